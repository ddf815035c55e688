// Package converge implements the probe, diff and converge contract shared by
// every module: look the resource up by its identity key, compare the mutable
// fields against the descriptor and issue the one mutating step that closes
// the gap.
package converge

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
)

// State is the desired presence of a resource.
type State string

const (
	Present State = "present"
	Absent  State = "absent"
)

// Action is the mutating step picked for a resource.
type Action string

const (
	ActionNone   Action = "none"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ErrUnsupported is returned by a Converger for steps the resource kind cannot perform.
var ErrUnsupported = errors.New("operation not supported for this resource")

// Converger is implemented once per resource kind. The descriptor lives inside
// the implementation; Probe looks the resource up by its identity key and
// returns nil when it does not exist.
type Converger[T any] interface {
	Probe(ctx context.Context) (*T, error)
	Diff(current *T) Diff
	Create(ctx context.Context) (*T, error)
	Update(ctx context.Context, current *T) (*T, error)
	Delete(ctx context.Context, current *T) error
}

// Options controls a single reconcile pass.
type Options struct {
	State State
	// CheckMode decides the action without performing it.
	CheckMode bool
	Logger    logr.Logger
}

// Result is what a reconcile pass reports.
type Result[T any] struct {
	Changed bool
	Action  Action
	// Resource is the resource after the pass, nil when it does not exist.
	Resource *T
	// Diff holds the mutable fields that differed when the action was decided.
	Diff Diff
}

// Decide picks the action for a resource given its desired state, whether it
// exists and the differences in its mutable fields.
func Decide(state State, exists bool, diff Diff) Action {
	switch {
	case state == Absent && exists:
		return ActionDelete
	case state == Absent:
		return ActionNone
	case !exists:
		return ActionCreate
	case !diff.Empty():
		return ActionUpdate
	default:
		return ActionNone
	}
}

// Reconcile runs one probe, diff and converge pass. Any error aborts the pass
// immediately; nothing is retried or rolled back.
func Reconcile[T any](ctx context.Context, c Converger[T], opts Options) (Result[T], error) {
	state := opts.State
	if state == "" {
		state = Present
	}
	logger := opts.Logger

	current, err := c.Probe(ctx)
	if err != nil {
		return Result[T]{}, fmt.Errorf("probe failed: %w", err)
	}

	var diff Diff
	if current != nil && state == Present {
		diff = c.Diff(current)
	}

	action := Decide(state, current != nil, diff)
	res := Result[T]{
		Changed:  action != ActionNone,
		Action:   action,
		Resource: current,
		Diff:     diff,
	}
	logger.V(1).Info("decided", "state", state, "exists", current != nil, "action", action, "diff", diff.String())

	if opts.CheckMode || action == ActionNone {
		return res, nil
	}

	switch action {
	case ActionCreate:
		res.Resource, err = c.Create(ctx)
	case ActionUpdate:
		res.Resource, err = c.Update(ctx, current)
	case ActionDelete:
		err = c.Delete(ctx, current)
		res.Resource = nil
	}
	if err != nil {
		return Result[T]{}, fmt.Errorf("%s failed: %w", action, err)
	}

	logger.Info("converged", "action", action)
	return res, nil
}
