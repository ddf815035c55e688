package ansible

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/blueboxgroup/ursula/internal/envs"
	"github.com/blueboxgroup/ursula/internal/loggerutils"
	"github.com/blueboxgroup/ursula/internal/utils/metrics"
)

const (
	ExitOK     = 0
	ExitFailed = 1
)

// Execute runs the named module against the args file, prints the result
// document on stdout and returns the process exit code.
func Execute(ctx context.Context, reg *Registry, name, argsFile string, stdout io.Writer) int {
	started := time.Now()
	logger := loggerutils.WithModule(name)
	ctx = loggerutils.With(ctx, logger)

	res, err := execute(ctx, reg, name, argsFile)

	var action string
	var changed bool
	if res != nil {
		action, changed = string(res.action), res.changed
	}
	metrics.Observe(name, action, changed, err, started)
	if werr := metrics.WriteTextfile(metrics.NewRegistry(), envs.MetricsDir, name); werr != nil {
		logger.Warn().Err(werr).Msg("Failed to write metrics")
	}

	if err != nil {
		logger.Error().Err(err).Msg("Module failed")
		fmt.Fprintln(stdout, string(Failure(err)))
		return ExitFailed
	}

	doc, err := res.JSON()
	if err != nil {
		logger.Error().Err(err).Msg("Module failed")
		fmt.Fprintln(stdout, string(Failure(err)))
		return ExitFailed
	}

	logger.Info().Bool("changed", changed).Str("action", action).Dur("took", time.Since(started)).Msg("Module finished")
	fmt.Fprintln(stdout, string(doc))
	return ExitOK
}

func execute(ctx context.Context, reg *Registry, name, argsFile string) (*Result, error) {
	m, ok := reg.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown module %q", name)
	}

	args, err := LoadArgs(argsFile)
	if err != nil {
		return nil, err
	}
	logger := loggerutils.FromContext(ctx)
	logger.Debug().Bool("check_mode", args.CheckMode).Interface("params", args.Sanitised()).Msg("Module arguments")

	res, err := m.Run(ctx, args)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("module %q returned no result", name)
	}
	return res, nil
}
