package ansible

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/sjson"

	"github.com/blueboxgroup/ursula/internal/converge"
)

// Result is the JSON document a module prints on stdout. Keys keep the order
// they were set in; "changed" always comes first.
type Result struct {
	doc      []byte
	changed  bool
	warnings []string
	action   converge.Action
	err      error
}

// NewResult returns a result reporting changed.
func NewResult(changed bool) *Result {
	r := &Result{doc: []byte(`{}`)}
	return r.Changed(changed)
}

// Changed sets the changed flag.
func (r *Result) Changed(changed bool) *Result {
	r.changed = changed
	return r.Set("changed", changed)
}

// IsChanged reports the changed flag.
func (r *Result) IsChanged() bool { return r.changed }

// Msg sets the human readable message.
func (r *Result) Msg(format string, a ...any) *Result {
	return r.Set("msg", fmt.Sprintf(format, a...))
}

// Set sets a top level key of the document.
func (r *Result) Set(key string, value any) *Result {
	return r.SetPath(escapeKey(key), value)
}

// SetPath sets a value at an sjson path. The first failure is kept and
// returned by JSON.
func (r *Result) SetPath(path string, value any) *Result {
	if r.err != nil {
		return r
	}
	r.doc, r.err = sjson.SetBytes(r.doc, path, value)
	return r
}

// Action records the action taken. It is logged and counted but not part of
// the document.
func (r *Result) Action(a converge.Action) *Result {
	r.action = a
	return r
}

// Warn adds an Ansible warning.
func (r *Result) Warn(format string, a ...any) *Result {
	r.warnings = append(r.warnings, fmt.Sprintf(format, a...))
	return r.Set("warnings", r.warnings)
}

// Diff reports the differing fields as the before/after mapping Ansible shows
// with --diff.
func (r *Result) Diff(d converge.Diff) *Result {
	if d.Empty() {
		return r
	}
	before, after := map[string]any{}, map[string]any{}
	for _, f := range d {
		before[f.Field] = f.Actual
		after[f.Field] = f.Desired
	}
	r.Set("diff", map[string]any{"before": before, "after": after})
	return r
}

// JSON returns the encoded document.
func (r *Result) JSON() ([]byte, error) {
	if r.err != nil {
		return nil, fmt.Errorf("failed to build module result: %w", r.err)
	}
	if !json.Valid(r.doc) {
		return nil, errors.New("module result is not valid JSON")
	}
	return r.doc, nil
}

// Failure builds the document reported for a failed invocation.
func Failure(err error) []byte {
	doc, _ := sjson.SetBytes([]byte(`{}`), "failed", true)
	doc, _ = sjson.SetBytes(doc, "changed", false)
	doc, _ = sjson.SetBytes(doc, "msg", err.Error())
	return doc
}
