package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	stdLog "log"

	"github.com/blueboxgroup/ursula/internal/loggerutils"
	"github.com/blueboxgroup/ursula/internal/sanitise"
)

// Output holds what a finished command wrote.
type Output struct {
	Stdout []byte
	Stderr []byte
}

// String returns the trimmed stdout.
func (o Output) String() string { return strings.TrimSpace(string(o.Stdout)) }

// Lines returns the non-empty stdout lines.
func (o Output) Lines() []string {
	var lines []string
	for _, l := range strings.Split(string(o.Stdout), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// Runner executes host binaries. Every module talks to the host through it.
type Runner interface {
	// Run executes name with args. A non-zero exit status is returned as *ExitError
	// together with the captured output.
	Run(ctx context.Context, name string, args ...string) (Output, error)
	// LookPath searches for an executable named file in the PATH.
	LookPath(file string) (string, error)
}

// ExitError is returned when a command ran but exited with a non-zero status.
type ExitError struct {
	Command string
	Code    int
	Stderr  string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command %q exited with status %d", e.Command, e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// IsExitCode reports whether err is an *ExitError with one of the given codes.
// Without codes any non-zero exit matches.
func IsExitCode(err error, codes ...int) bool {
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	if len(codes) == 0 {
		return true
	}
	for _, c := range codes {
		if exitErr.Code == c {
			return true
		}
	}
	return false
}

// Cmd runs commands directly (no shell) and implements Runner.
type Cmd struct {
	Dir string
	// CommandTimeout is used to terminate the command after specified seconds,
	// regardless if it was successful or not. 0 means no timeout.
	CommandTimeout int
	// Stdout and Stderr additionally receive the command output as it is produced,
	// e.g. the prefixed writers from GetStdOut/GetStdErr.
	Stdout io.Writer
	Stderr io.Writer
}

// Wrapper struct holds data for the wrapper around stdout & stderr
type Wrapper struct {
	logger *stdLog.Logger
	buf    *bytes.Buffer
	prefix string
	// Adds color to stdout & stderr if terminal supports it
	useColours bool
	logType    int
}

const (
	STDOUT     = 0
	STDERR     = 1
	colorOkay  = "\x1b[32m"
	colorFail  = "\x1b[31m"
	colorReset = "\x1b[0m"
)

// Run executes the command and captures its output.
func (c *Cmd) Run(ctx context.Context, name string, args ...string) (Output, error) {
	if c.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.CommandTimeout)*time.Second)
		defer cancel()
	}

	line := commandLine(name, args)
	logger := loggerutils.FromContext(ctx)
	logger.Debug().Str("command", sanitise.Command(line)).Msg("Executing command")

	var stdout, stderr bytes.Buffer
	cmd := c.buildCmd(ctx, name, args, &stdout, &stderr)
	err := cmd.Run()
	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return out, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, &ExitError{
			Command: sanitise.Command(line),
			Code:    exitErr.ExitCode(),
			Stderr:  stderr.String(),
		}
	}
	return out, fmt.Errorf("failed to execute %q: %w", sanitise.Command(line), err)
}

// LookPath implements Runner.
func (c *Cmd) LookPath(file string) (string, error) { return exec.LookPath(file) }

// buildCmd prepares a exec.Cmd datastructure with context
func (c *Cmd) buildCmd(ctx context.Context, name string, args []string, stdout, stderr *bytes.Buffer) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = c.Dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if c.Stdout != nil {
		cmd.Stdout = io.MultiWriter(stdout, c.Stdout)
	}
	if c.Stderr != nil {
		cmd.Stderr = io.MultiWriter(stderr, c.Stderr)
	}
	return cmd
}

func commandLine(name string, args []string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}

// GetStdOut returns an io.Writer for exec with the defined prefix
func GetStdOut(prefix string) Wrapper {
	return getWrapper(prefix, STDOUT)
}

// GetStdErr returns an io.Writer for exec with the defined prefix
func GetStdErr(prefix string) Wrapper {
	return getWrapper(prefix, STDERR)
}

func getWrapper(prefix string, logType int) Wrapper {
	// module stdout is reserved for the JSON result, so both streams go to stderr.
	w := Wrapper{logger: stdLog.New(os.Stderr, "", 0), buf: bytes.NewBuffer([]byte("")), prefix: prefix, logType: logType}

	//check if console supports colors, if so, set flag to true
	w.useColours = strings.HasPrefix(os.Getenv("TERM"), "xterm")

	return w
}

// Write is implementation of the function from io.Writer interface
func (w Wrapper) Write(p []byte) (n int, err error) {
	if n, err = w.buf.Write(p); err != nil {
		return n, err
	}
	err = w.outputLines()
	return len(p), err
}

// outputLines will output strings from current buffer
func (w *Wrapper) outputLines() error {
	for {
		line, err := w.buf.ReadString('\n')
		//if EOF, keep the partial line for the next write
		if err == io.EOF {
			if len(line) > 0 {
				if _, err := w.buf.WriteString(line); err != nil {
					return err
				}
			}
			break
		}
		//if other err, break and return err
		if err != nil {
			return err
		}
		w.printWithPrefix(line)
	}
	return nil
}

// printWithPrefix will append a colour if supported and outputs the line with prefix
func (w *Wrapper) printWithPrefix(str string) {
	if len(str) < 1 {
		return
	}
	if w.useColours {
		if w.logType == STDOUT {
			str = colorOkay + w.prefix + "\t" + colorReset + " " + str
		} else {
			str = colorFail + w.prefix + "\t" + colorReset + " " + str
		}
	} else {
		str = w.prefix + "\t" + str
	}
	w.logger.Print(str)
}
