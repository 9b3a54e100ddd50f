// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package vtytest provides an in-process SSH server that emulates the
// interactive CLI of a Cisco NX-OS device for testing.
package vtytest

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"

	"golang.org/x/crypto/ssh"
)

// Credentials accepted by the [Server].
const (
	Username = "admin"
	Password = "secret"
)

// Reply is the answer of the emulated device to a command.
type Reply struct {
	// Output is written after the echoed command.
	Output string
	// Confirm, if set, is written instead of the prompt. The next line
	// received is answered with ConfirmOutput followed by the prompt.
	Confirm       string
	ConfirmOutput string
}

// Handler returns the reply for a command received in the given mode,
// which is either "exec" or "config".
type Handler func(mode, cmd string) Reply

// Responses returns a [Handler] answering commands from a static table.
// Unknown commands are answered with an empty output.
func Responses(m map[string]Reply) Handler {
	return func(_, cmd string) Reply {
		return m[cmd]
	}
}

// Server is an SSH server emulating an NX-OS virtual terminal.
type Server struct {
	Hostname string

	listener net.Listener
	config   *ssh.ServerConfig
	handler  Handler

	mu       sync.Mutex
	commands []string
	wg       sync.WaitGroup
}

// NewServer starts a server on a random local port and registers cleanup with t.
func NewServer(t testing.TB, hostname string, handler Handler) *Server {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate host key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("failed to create signer: %v", err)
	}
	config := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == Username && string(pass) == Password {
				return nil, nil
			}
			return nil, fmt.Errorf("password rejected for %q", c.User())
		},
	}
	config.AddHostKey(signer)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	s := &Server{
		Hostname: hostname,
		listener: l,
		config:   config,
		handler:  handler,
	}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(func() {
		_ = l.Close()
		s.wg.Wait()
	})
	return s
}

// Addr returns the "host:port" address of the server.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Commands returns all commands received so far, in order.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	sc, chans, reqs, err := ssh.NewServerConn(conn, s.config)
	if err != nil {
		return
	}
	defer sc.Close()
	go ssh.DiscardRequests(reqs)
	for nc := range chans {
		if nc.ChannelType() != "session" {
			_ = nc.Reject(ssh.UnknownChannelType, "unsupported channel type")
			continue
		}
		ch, requests, err := nc.Accept()
		if err != nil {
			return
		}
		shell := make(chan struct{})
		go func() {
			for req := range requests {
				switch req.Type {
				case "pty-req":
					_ = req.Reply(true, nil)
				case "shell":
					_ = req.Reply(true, nil)
					close(shell)
				default:
					_ = req.Reply(false, nil)
				}
			}
		}()
		<-shell
		s.handleShell(ch)
		_ = ch.Close()
	}
}

func (s *Server) prompt(mode string) string {
	if mode == "config" {
		return s.Hostname + "(config)# "
	}
	return s.Hostname + "# "
}

func (s *Server) handleShell(ch ssh.Channel) {
	mode := "exec"
	w := func(str string) {
		_, _ = io.WriteString(ch, strings.ReplaceAll(str, "\n", "\r\n"))
	}
	w("\nCisco Nexus Operating System (NX-OS) Software\n" + s.prompt(mode))

	var confirm *Reply
	for {
		line, err := readLine(ch)
		if err != nil {
			return
		}
		w(line + "\n")
		s.mu.Lock()
		s.commands = append(s.commands, line)
		s.mu.Unlock()

		if confirm != nil {
			if strings.EqualFold(line, "y") {
				w(confirm.ConfirmOutput)
			}
			confirm = nil
			w(s.prompt(mode))
			continue
		}

		switch line {
		case "configure terminal":
			mode = "config"
			w("Enter configuration commands, one per line. End with CNTL/Z.\n")
			w(s.prompt(mode))
			continue
		case "end":
			mode = "exec"
			w(s.prompt(mode))
			continue
		case "exit":
			if mode == "exec" {
				return
			}
			mode = "exec"
			w(s.prompt(mode))
			continue
		}

		reply := s.handler(mode, line)
		if reply.Output != "" {
			w(strings.TrimRight(reply.Output, "\n") + "\n")
		}
		if reply.Confirm != "" {
			w(reply.Confirm)
			confirm = &reply
			continue
		}
		w(s.prompt(mode))
	}
}

func readLine(r io.Reader) (string, error) {
	var sb strings.Builder
	b := make([]byte, 1)
	for {
		if _, err := r.Read(b); err != nil {
			if errors.Is(err, io.EOF) && sb.Len() > 0 {
				return sb.String(), nil
			}
			return "", err
		}
		switch b[0] {
		case '\r':
			continue
		case '\n':
			return sb.String(), nil
		default:
			sb.WriteByte(b[0])
		}
	}
}
