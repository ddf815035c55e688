package converge

import (
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// FieldDiff is one mutable field whose desired and actual values differ.
type FieldDiff struct {
	Field   string `json:"field"`
	Desired any    `json:"desired"`
	Actual  any    `json:"actual"`
}

// Diff is the set of differing mutable fields of a resource.
type Diff []FieldDiff

// Empty reports whether nothing differs.
func (d Diff) Empty() bool { return len(d) == 0 }

// Fields returns the names of the differing fields.
func (d Diff) Fields() []string {
	out := make([]string, 0, len(d))
	for _, f := range d {
		out = append(out, f.Field)
	}
	return out
}

func (d Diff) String() string {
	parts := make([]string, 0, len(d))
	for _, f := range d {
		parts = append(parts, fmt.Sprintf("%s: %v -> %v", f.Field, f.Actual, f.Desired))
	}
	return strings.Join(parts, ", ")
}

// Field declares a mutable field for Compare.
func Field(name string, desired, actual any) FieldDiff {
	return FieldDiff{Field: name, Desired: desired, Actual: actual}
}

// Optional declares a mutable field that is only compared when the descriptor
// sets it (desired is non-nil).
func Optional[V any](name string, desired *V, actual V) FieldDiff {
	if desired == nil {
		return FieldDiff{Field: name}
	}
	return FieldDiff{Field: name, Desired: *desired, Actual: actual}
}

// Compare keeps the fields whose desired and actual values differ. Nil and
// empty slices/maps compare equal, as do unset optional fields.
func Compare(fields ...FieldDiff) Diff {
	var out Diff
	for _, f := range fields {
		if !Equal(f.Desired, f.Actual) {
			out = append(out, f)
		}
	}
	return out
}

// Equal compares two field values the way Compare does.
func Equal(desired, actual any) bool {
	if desired == nil {
		return true
	}
	return cmp.Equal(desired, actual, cmpopts.EquateEmpty())
}
