// Package cmdtest provides a scripted command.Runner for tests.
package cmdtest

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/blueboxgroup/ursula/internal/command"
)

// HandlerFunc answers one invocation. args holds the full argv, args[0] being the binary.
type HandlerFunc func(args []string) (command.Output, error)

type handler struct {
	prefix string
	fn     HandlerFunc
}

// Fake is a command.Runner that answers from registered handlers and records
// every invocation. Handlers are matched on the longest command line prefix.
type Fake struct {
	Calls    [][]string
	Paths    map[string]string
	handlers []handler
}

var _ command.Runner = (*Fake)(nil)

// New returns an empty Fake.
func New() *Fake {
	return &Fake{Paths: map[string]string{}}
}

// On registers fn for every command line starting with prefix, e.g. "ceph osd pool get".
func (f *Fake) On(prefix string, fn HandlerFunc) *Fake {
	f.handlers = append(f.handlers, handler{prefix: prefix, fn: fn})
	return f
}

// Run implements command.Runner.
func (f *Fake) Run(_ context.Context, name string, args ...string) (command.Output, error) {
	argv := append([]string{name}, args...)
	f.Calls = append(f.Calls, argv)

	line := strings.Join(argv, " ")
	var (
		best    HandlerFunc
		bestLen = -1
	)
	for _, h := range f.handlers {
		if (line == h.prefix || strings.HasPrefix(line, h.prefix+" ")) && len(h.prefix) > bestLen {
			best, bestLen = h.fn, len(h.prefix)
		}
	}
	if best == nil {
		return command.Output{}, fmt.Errorf("cmdtest: unexpected command %q", line)
	}
	return best(argv)
}

// LookPath implements command.Runner using the Paths table.
func (f *Fake) LookPath(file string) (string, error) {
	if p, ok := f.Paths[file]; ok {
		return p, nil
	}
	return "", &exec.Error{Name: file, Err: exec.ErrNotFound}
}

// Commands returns the recorded invocations as command lines.
func (f *Fake) Commands() []string {
	out := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		out = append(out, strings.Join(c, " "))
	}
	return out
}

// Count returns how many recorded invocations start with prefix.
func (f *Fake) Count(prefix string) int {
	n := 0
	for _, c := range f.Commands() {
		if c == prefix || strings.HasPrefix(c, prefix+" ") {
			n++
		}
	}
	return n
}

// Reset forgets the recorded invocations but keeps the handlers.
func (f *Fake) Reset() { f.Calls = nil }

// Stdout answers with the given stdout and exit status 0.
func Stdout(s string) HandlerFunc {
	return func([]string) (command.Output, error) {
		return command.Output{Stdout: []byte(s)}, nil
	}
}

// OK answers with empty output and exit status 0.
func OK() HandlerFunc { return Stdout("") }

// Exit answers with a non-zero exit status.
func Exit(code int, stderr string) HandlerFunc {
	return func(args []string) (command.Output, error) {
		return command.Output{Stderr: []byte(stderr)}, &command.ExitError{
			Command: strings.Join(args, " "),
			Code:    code,
			Stderr:  stderr,
		}
	}
}
