package ansible

import (
	"github.com/rs/zerolog"

	"github.com/blueboxgroup/ursula/internal/converge"
	"github.com/blueboxgroup/ursula/internal/loggerutils"
)

// ConvergeOptions returns the reconcile options for this invocation.
func (a *Args) ConvergeOptions(state string, logger zerolog.Logger) converge.Options {
	return converge.Options{
		State:     converge.State(state),
		CheckMode: a.CheckMode,
		Logger:    loggerutils.Logr(logger),
	}
}

// Report starts the result of a reconcile pass: changed, the action taken and,
// with --diff, the differing fields.
func Report[T any](a *Args, res converge.Result[T]) *Result {
	r := NewResult(res.Changed).Action(res.Action)
	if a.Diff {
		r.Diff(res.Diff)
	}
	return r
}
