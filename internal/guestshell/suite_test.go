// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package guestshell

import (
	"context"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/ironcore-dev/nxos-guestshell/internal/vty"
)

func TestGuestShell(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "GuestShell Suite")
}

var ctx context.Context

var _ = BeforeSuite(func() {
	logger := zap.New(zap.WriteTo(GinkgoWriter), zap.UseDevMode(true))
	logf.SetLogger(logger)
	ctx = logf.IntoContext(context.Background(), logger)
})

// fakeTerminal answers commands from a table. If a command has more than one
// answer, they are returned in order and the last one is repeated.
type fakeTerminal struct {
	mu        sync.Mutex
	answers   map[string][]string
	sent      []string
	configure bool
	errs      map[string]error
}

var _ Terminal = (*fakeTerminal)(nil)

func newFakeTerminal() *fakeTerminal {
	return &fakeTerminal{answers: make(map[string][]string), errs: make(map[string]error)}
}

// On registers the answers for cmd.
func (f *fakeTerminal) On(cmd string, answers ...string) *fakeTerminal {
	f.answers[cmd] = answers
	return f
}

// Fail makes cmd return err.
func (f *fakeTerminal) Fail(cmd string, err error) *fakeTerminal {
	f.errs[cmd] = err
	return f
}

func (f *fakeTerminal) answer(cmd string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, cmd)
	if err, ok := f.errs[cmd]; ok {
		return "", err
	}
	a := f.answers[cmd]
	switch len(a) {
	case 0:
		return "", nil
	case 1:
		return a[0], nil
	default:
		f.answers[cmd] = a[1:]
		return a[0], nil
	}
}

func (f *fakeTerminal) Send(_ context.Context, cmd string, _ ...vty.SendOption) (string, error) {
	return f.answer(cmd)
}

func (f *fakeTerminal) SendTiming(_ context.Context, cmd string) (string, error) {
	return f.answer(cmd)
}

func (f *fakeTerminal) ConfigMode(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, "configure terminal")
	f.configure = true
	return nil
}

func (f *fakeTerminal) ExitConfigMode(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, "end")
	f.configure = false
	return nil
}

// Sent returns all commands received so far.
func (f *fakeTerminal) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}
