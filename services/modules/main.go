// Command ursula is a multi-call binary holding the deployment's Ansible
// modules and filters.
//
//	ursula <module> <args-file>   run a module (Ansible binary module protocol)
//	<module> <args-file>          same, when invoked through a symlink named after the module
//	ursula filter <name>          apply a filter to the JSON arguments read from stdin
//	ursula list                   print the module and filter names
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/blueboxgroup/ursula/internal/ansible"
	"github.com/blueboxgroup/ursula/internal/command"
	"github.com/blueboxgroup/ursula/internal/envs"
	"github.com/blueboxgroup/ursula/internal/fileutils"
	"github.com/blueboxgroup/ursula/internal/filters"
	"github.com/blueboxgroup/ursula/internal/loggerutils"
)

const (
	binaryName = "ursula"
	exitUsage  = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func usage(w io.Writer) int {
	fmt.Fprintf(w, "usage: %s <module> <args-file> | %s filter <name> | %s list\n", binaryName, binaryName, binaryName)
	return exitUsage
}

func newRunner(name string) *command.Cmd {
	runner := &command.Cmd{CommandTimeout: envs.CommandTimeout}
	if loggerutils.IsDebug() {
		runner.Stdout = command.GetStdOut(name)
		runner.Stderr = command.GetStdErr(name)
	}
	return runner
}

func run(ctx context.Context, argv []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(argv) == 0 {
		return usage(stderr)
	}
	name, rest := filepath.Base(argv[0]), argv[1:]
	if name == binaryName {
		if len(rest) == 0 {
			return usage(stderr)
		}
		name, rest = rest[0], rest[1:]
	}

	switch name {
	case "list":
		reg := modules(newRunner(name), fileutils.DefaultRoot())
		for _, n := range reg.Names() {
			fmt.Fprintln(stdout, n)
		}
		for _, n := range filters.Names() {
			fmt.Fprintln(stdout, "filter/"+n)
		}
		return ansible.ExitOK
	case "filter":
		if len(rest) != 1 {
			return usage(stderr)
		}
		loggerutils.Init("filter-" + rest[0])
		input, err := io.ReadAll(stdin)
		if err != nil {
			log.Error().Err(err).Msg("Failed to read filter arguments")
			return ansible.ExitFailed
		}
		out, err := filters.Apply(rest[0], input)
		if err != nil {
			log.Error().Err(err).Msg("Filter failed")
			fmt.Fprintln(stderr, err)
			return ansible.ExitFailed
		}
		fmt.Fprintln(stdout, string(out))
		return ansible.ExitOK
	}

	if len(rest) != 1 {
		return usage(stderr)
	}
	loggerutils.Init(name)
	reg := modules(newRunner(name), fileutils.DefaultRoot())
	return ansible.Execute(ctx, reg, name, rest[0], stdout)
}
