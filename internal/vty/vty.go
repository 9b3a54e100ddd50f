// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package vty provides an interactive CLI session to a Cisco NX-OS device
// through an SSH virtual terminal.
//
// Unlike a one-shot SSH exec channel, a [Session] keeps a single shell open
// for its whole lifetime. This allows for commands that prompt for
// confirmation (e.g. "guestshell reboot") and for entering configuration
// mode across several commands.
package vty

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/crypto/ssh"
)

var (
	// ErrTimeout is returned when the expected output did not arrive in time.
	ErrTimeout = errors.New("vty: timed out waiting for output")

	// ErrClosed is returned when the session has been closed by either side.
	ErrClosed = errors.New("vty: session closed")
)

// Client is the interface of an interactive CLI session.
type Client interface {
	// Send writes the command and waits until the device prompt returns.
	// The echoed command and the trailing prompt are stripped from the output.
	Send(ctx context.Context, cmd string, opts ...SendOption) (string, error)
	// SendTiming writes the command and returns once the output has been
	// quiet for the settle interval. Use it for commands that don't
	// reliably return to the prompt.
	SendTiming(ctx context.Context, cmd string) (string, error)
	// ConfigMode enters the global configuration mode.
	ConfigMode(ctx context.Context) error
	// ExitConfigMode returns to the exec mode.
	ExitConfigMode(ctx context.Context) error
	// Close terminates the session and the underlying connection.
	Close() error
}

// Endpoint holds the connection details of a device.
type Endpoint struct {
	// Address of the device, either "host" or "host:port".
	Address  string
	Username string
	Password string // #nosec G117
	// KeyFile is an optional path to a PEM encoded private key.
	KeyFile string
}

const (
	defaultPort        = "22"
	defaultReadTimeout = 10 * time.Second
	defaultSettle      = 500 * time.Millisecond
	defaultDialTimeout = 10 * time.Second
	terminalWidth      = 511
)

var (
	// genericPrompt matches any NX-OS exec or config prompt at the end of the output,
	// e.g. "leaf1# " or "leaf1(config-if)# ".
	genericPrompt = regexp.MustCompile(`(?:^|\n)([\w.\-]+)(\([\w\-]*\))?[#>] ?$`)
	ansiEscape    = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
)

type options struct {
	delayFactor     int
	readTimeout     time.Duration
	settle          time.Duration
	dialTimeout     time.Duration
	hostKeyCallback ssh.HostKeyCallback
	logger          logr.Logger
}

// Option configures a [Session].
type Option func(*options)

// WithDelayFactor multiplies all read timeouts and settle intervals by n.
// Slow devices (or long running commands such as package installs) need a
// larger factor.
func WithDelayFactor(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.delayFactor = n
		}
	}
}

// WithReadTimeout sets the base time to wait for the prompt after a command.
func WithReadTimeout(d time.Duration) Option {
	return func(o *options) {
		o.readTimeout = d
	}
}

// WithSettle sets the base quiet interval used by [Client.SendTiming].
func WithSettle(d time.Duration) Option {
	return func(o *options) {
		o.settle = d
	}
}

// WithHostKeyCallback sets the callback used to verify the device host key.
// By default, host keys are not verified.
func WithHostKeyCallback(cb ssh.HostKeyCallback) Option {
	return func(o *options) {
		o.hostKeyCallback = cb
	}
}

// WithLogger sets the logger used for command and response payloads.
func WithLogger(logger logr.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

type sendOptions struct {
	expect      string
	readTimeout time.Duration
}

// SendOption configures a single [Client.Send] call.
type SendOption func(*sendOptions)

// WithExpect waits for the given literal string instead of the prompt,
// e.g. a "(y/n)" confirmation question.
func WithExpect(s string) SendOption {
	return func(o *sendOptions) {
		o.expect = s
	}
}

// WithCommandTimeout overrides the read timeout for a single command.
// The delay factor is not applied.
func WithCommandTimeout(d time.Duration) SendOption {
	return func(o *sendOptions) {
		o.readTimeout = d
	}
}

// Session is an interactive shell on a network device.
// It is not safe for concurrent use.
type Session struct {
	opts   options
	client *ssh.Client
	sess   *ssh.Session
	stdin  io.WriteCloser

	// prompt matches the device prompt once the hostname is known.
	prompt *regexp.Regexp
	// tail matches the prompt at the end of the output, also when it
	// follows output without a line break.
	tail *regexp.Regexp
	// last is the most recently seen prompt.
	last string

	mu     sync.Mutex
	buf    bytes.Buffer
	notify chan struct{}
	done   chan struct{}
	err    error
}

var _ Client = (*Session)(nil)

// Dial connects to the device, starts an interactive shell and prepares
// the terminal for automation (no paging, wide lines).
func Dial(ctx context.Context, ep Endpoint, opts ...Option) (*Session, error) {
	o := options{
		delayFactor:     1,
		readTimeout:     defaultReadTimeout,
		settle:          defaultSettle,
		dialTimeout:     defaultDialTimeout,
		hostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec
		logger:          logr.Discard(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	auth, err := authMethods(ep)
	if err != nil {
		return nil, err
	}

	addr := ep.Address
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, defaultPort)
	}

	d := net.Dialer{Timeout: o.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("vty: failed to dial %s: %w", addr, err)
	}
	cc, chans, reqs, err := ssh.NewClientConn(conn, addr, &ssh.ClientConfig{
		User:            ep.Username,
		Auth:            auth,
		HostKeyCallback: o.hostKeyCallback,
		Timeout:         o.dialTimeout,
	})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("vty: ssh handshake with %s failed: %w", addr, err)
	}
	client := ssh.NewClient(cc, chans, reqs)

	s, err := newSession(ctx, client, o)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

func authMethods(ep Endpoint) ([]ssh.AuthMethod, error) {
	var auth []ssh.AuthMethod
	if ep.KeyFile != "" {
		pem, err := os.ReadFile(ep.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("vty: failed to read key file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("vty: failed to parse key file: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if ep.Password != "" {
		auth = append(auth, ssh.Password(ep.Password))
		// NX-OS commonly negotiates keyboard-interactive instead of password.
		auth = append(auth, ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range answers {
				answers[i] = ep.Password
			}
			return answers, nil
		}))
	}
	if len(auth) == 0 {
		return nil, errors.New("vty: either password or key file is required")
	}
	return auth, nil
}

func newSession(ctx context.Context, client *ssh.Client, o options) (*Session, error) {
	sess, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("vty: failed to create ssh session: %w", err)
	}
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 38400,
		ssh.TTY_OP_OSPEED: 38400,
	}
	if err := sess.RequestPty("vt100", 0, terminalWidth, modes); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("vty: failed to request pty: %w", err)
	}
	stdin, err := sess.StdinPipe()
	if err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("vty: failed to open stdin: %w", err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("vty: failed to open stdout: %w", err)
	}
	if err := sess.Shell(); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("vty: failed to start shell: %w", err)
	}

	s := &Session{
		opts:   o,
		client: client,
		sess:   sess,
		stdin:  stdin,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go s.read(stdout)

	out, err := s.readUntil(ctx, s.matchPrompt, s.timeout(0))
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("vty: no prompt received: %w", err)
	}
	if m := genericPrompt.FindStringSubmatch(out); m != nil {
		s.prompt = regexp.MustCompile(`(?:^|\n)` + regexp.QuoteMeta(m[1]) + `(\([\w\-]*\))?[#>] ?$`)
		s.tail = trailingPrompt(m[1])
	}
	for _, cmd := range []string{"terminal length 0", fmt.Sprintf("terminal width %d", terminalWidth)} {
		if _, err := s.Send(ctx, cmd); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

// read copies the remote output into the session buffer until EOF.
func (s *Session) read(r io.Reader) {
	defer close(s.done)
	b := make([]byte, 4096)
	for {
		n, err := r.Read(b)
		if n > 0 {
			s.mu.Lock()
			s.buf.Write(b[:n])
			s.mu.Unlock()
			select {
			case s.notify <- struct{}{}:
			default:
			}
		}
		if err != nil {
			s.mu.Lock()
			if errors.Is(err, io.EOF) {
				s.err = ErrClosed
			} else {
				s.err = fmt.Errorf("%w: %w", ErrClosed, err)
			}
			s.mu.Unlock()
			return
		}
	}
}

// timeout returns the read timeout scaled by the delay factor, unless overridden.
func (s *Session) timeout(override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return s.opts.readTimeout * time.Duration(s.opts.delayFactor)
}

// matchFunc reports the end offset of a match in the normalized output, or -1.
type matchFunc func(string) int

func (s *Session) matchPrompt(out string) int {
	re := s.prompt
	if re == nil {
		re = genericPrompt
	}
	loc := re.FindStringIndex(out)
	if loc == nil {
		return -1
	}
	s.last = strings.TrimSpace(out[loc[0]:loc[1]])
	return loc[1]
}

func matchLiteral(lit string) matchFunc {
	return func(out string) int {
		i := strings.Index(out, lit)
		if i < 0 {
			return -1
		}
		return i + len(lit)
	}
}

// readUntil consumes output from the session buffer until match succeeds and
// returns everything up to the end of the match.
func (s *Session) readUntil(ctx context.Context, match matchFunc, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		s.mu.Lock()
		out := normalize(s.buf.String())
		if end := match(out); end >= 0 {
			s.buf.Reset()
			s.buf.WriteString(out[end:])
			s.mu.Unlock()
			return out[:end], nil
		}
		err := s.err
		s.mu.Unlock()
		if err != nil {
			return out, err
		}
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case <-timer.C:
			return out, ErrTimeout
		case <-s.notify:
		case <-s.done:
		}
	}
}

// settle waits until no new output arrived for the settle interval and
// consumes the buffer.
func (s *Session) settle(ctx context.Context) (string, error) {
	quiet := s.opts.settle * time.Duration(s.opts.delayFactor)
	deadline := time.NewTimer(s.timeout(0))
	defer deadline.Stop()
	idle := time.NewTimer(quiet)
	defer idle.Stop()
	drain := func() string {
		s.mu.Lock()
		defer s.mu.Unlock()
		out := normalize(s.buf.String())
		s.buf.Reset()
		return out
	}
	for {
		select {
		case <-ctx.Done():
			return drain(), ctx.Err()
		case <-deadline.C:
			return drain(), nil
		case <-idle.C:
			return drain(), nil
		case <-s.done:
			return drain(), nil
		case <-s.notify:
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(quiet)
		}
	}
}

func (s *Session) write(cmd string) error {
	s.mu.Lock()
	// Discard anything unsolicited (e.g. syslog messages) before the next command.
	s.buf.Reset()
	s.mu.Unlock()
	if _, err := io.WriteString(s.stdin, cmd+"\n"); err != nil {
		return fmt.Errorf("vty: failed to write command %q: %w", cmd, err)
	}
	return nil
}

func (s *Session) Send(ctx context.Context, cmd string, opts ...SendOption) (string, error) {
	var so sendOptions
	for _, opt := range opts {
		opt(&so)
	}
	s.opts.logger.V(1).Info("Sending command", "command", cmd)
	if err := s.write(cmd); err != nil {
		return "", err
	}
	match := s.matchPrompt
	if so.expect != "" {
		match = matchLiteral(so.expect)
	}
	out, err := s.readUntil(ctx, match, s.timeout(so.readTimeout))
	if err != nil {
		return clean(out, cmd, nil), fmt.Errorf("vty: command %q: %w", cmd, err)
	}
	var prompt *regexp.Regexp
	if so.expect == "" {
		prompt = s.prompt
		if prompt == nil {
			prompt = genericPrompt
		}
	}
	res := clean(out, cmd, prompt)
	s.opts.logger.V(1).Info("Received response", "command", cmd, "response", res)
	return res, nil
}

func (s *Session) SendTiming(ctx context.Context, cmd string) (string, error) {
	s.opts.logger.V(1).Info("Sending command", "command", cmd, "timing", true)
	if err := s.write(cmd); err != nil {
		return "", err
	}
	out, err := s.settle(ctx)
	prompt := s.tail
	if prompt == nil {
		prompt = s.prompt
	}
	res := clean(out, cmd, prompt)
	if err != nil {
		return res, fmt.Errorf("vty: command %q: %w", cmd, err)
	}
	s.opts.logger.V(1).Info("Received response", "command", cmd, "response", res)
	return res, nil
}

// Prompt returns the most recently seen device prompt, e.g. "leaf1(config)#".
func (s *Session) Prompt() string {
	return s.last
}

func (s *Session) inConfigMode() bool {
	return strings.Contains(s.last, "(config")
}

func (s *Session) ConfigMode(ctx context.Context) error {
	if s.inConfigMode() {
		return nil
	}
	if _, err := s.Send(ctx, "configure terminal"); err != nil {
		return err
	}
	if !s.inConfigMode() {
		return fmt.Errorf("vty: failed to enter config mode, prompt is %q", s.last)
	}
	return nil
}

func (s *Session) ExitConfigMode(ctx context.Context) error {
	if !s.inConfigMode() {
		return nil
	}
	if _, err := s.Send(ctx, "end"); err != nil {
		return err
	}
	if s.inConfigMode() {
		return fmt.Errorf("vty: failed to exit config mode, prompt is %q", s.last)
	}
	return nil
}

func (s *Session) Close() error {
	_ = s.stdin.Close()
	err := s.sess.Close()
	if cerr := s.client.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
		err = errors.Join(err, cerr)
	}
	if errors.Is(err, io.EOF) {
		err = nil
	}
	return err
}

// trailingPrompt returns a pattern matching the prompt of host at the end of
// the output. Devices print the prompt right after the output of a confirmed
// command, which is not always terminated by a line break.
func trailingPrompt(host string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(host) + `(\([\w\-]*\))?[#>] ?$`)
}

// normalize removes carriage returns and terminal escape sequences.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return ansiEscape.ReplaceAllString(s, "")
}

// clean strips the echoed command from the first line and the prompt from
// the end of the output.
func clean(out, cmd string, prompt *regexp.Regexp) string {
	if prompt != nil {
		if loc := prompt.FindStringIndex(out); loc != nil {
			out = out[:loc[0]]
		}
	}
	first, rest, found := strings.Cut(out, "\n")
	if strings.Contains(first, cmd) {
		if !found {
			return ""
		}
		out = rest
	}
	return strings.TrimSpace(out)
}
