package converge

import (
	"context"
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type widget struct {
	Name string
	Size int
}

type fakeWidgets struct {
	desired widget
	store   map[string]widget
	calls   []Action
	failOn  Action
}

func (f *fakeWidgets) Probe(context.Context) (*widget, error) {
	w, ok := f.store[f.desired.Name]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (f *fakeWidgets) Diff(current *widget) Diff {
	return Compare(Field("size", f.desired.Size, current.Size))
}

func (f *fakeWidgets) Create(context.Context) (*widget, error) {
	f.calls = append(f.calls, ActionCreate)
	if f.failOn == ActionCreate {
		return nil, errors.New("quota exceeded")
	}
	f.store[f.desired.Name] = f.desired
	w := f.desired
	return &w, nil
}

func (f *fakeWidgets) Update(_ context.Context, current *widget) (*widget, error) {
	f.calls = append(f.calls, ActionUpdate)
	current.Size = f.desired.Size
	f.store[current.Name] = *current
	return current, nil
}

func (f *fakeWidgets) Delete(_ context.Context, current *widget) error {
	f.calls = append(f.calls, ActionDelete)
	delete(f.store, current.Name)
	return nil
}

func TestDecide(t *testing.T) {
	diff := Diff{{Field: "size", Desired: 2, Actual: 1}}
	tests := []struct {
		name   string
		state  State
		exists bool
		diff   Diff
		want   Action
	}{
		{"create missing", Present, false, nil, ActionCreate},
		{"update differing", Present, true, diff, ActionUpdate},
		{"keep matching", Present, true, nil, ActionNone},
		{"delete existing", Absent, true, diff, ActionDelete},
		{"absent missing", Absent, false, nil, ActionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Decide(tt.state, tt.exists, tt.diff))
		})
	}
}

func TestReconcileIdempotent(t *testing.T) {
	f := &fakeWidgets{desired: widget{Name: "a", Size: 3}, store: map[string]widget{}}
	opts := Options{State: Present, Logger: logr.Discard()}

	res, err := Reconcile[widget](context.Background(), f, opts)
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.Equal(t, ActionCreate, res.Action)
	require.Equal(t, &widget{Name: "a", Size: 3}, res.Resource)

	res, err = Reconcile[widget](context.Background(), f, opts)
	require.NoError(t, err)
	require.False(t, res.Changed)
	require.Equal(t, []Action{ActionCreate}, f.calls)
}

func TestReconcileUpdate(t *testing.T) {
	f := &fakeWidgets{desired: widget{Name: "a", Size: 3}, store: map[string]widget{"a": {Name: "a", Size: 1}}}

	res, err := Reconcile[widget](context.Background(), f, Options{})
	require.NoError(t, err)
	require.Equal(t, ActionUpdate, res.Action)
	require.Equal(t, []string{"size"}, res.Diff.Fields())
	require.Equal(t, 3, f.store["a"].Size)
}

func TestReconcileCheckMode(t *testing.T) {
	f := &fakeWidgets{desired: widget{Name: "a", Size: 3}, store: map[string]widget{"a": {Name: "a", Size: 1}}}

	res, err := Reconcile[widget](context.Background(), f, Options{State: Absent, CheckMode: true})
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.Equal(t, ActionDelete, res.Action)
	require.Empty(t, f.calls)
	require.Contains(t, f.store, "a")
}

func TestReconcileAbsentMissing(t *testing.T) {
	f := &fakeWidgets{desired: widget{Name: "a"}, store: map[string]widget{}}

	res, err := Reconcile[widget](context.Background(), f, Options{State: Absent})
	require.NoError(t, err)
	require.False(t, res.Changed)
	require.Nil(t, res.Resource)
	require.Empty(t, f.calls)
}

func TestReconcileError(t *testing.T) {
	f := &fakeWidgets{desired: widget{Name: "a"}, store: map[string]widget{}, failOn: ActionCreate}

	_, err := Reconcile[widget](context.Background(), f, Options{})
	require.ErrorContains(t, err, "create failed: quota exceeded")
	require.Len(t, f.calls, 1)
}

func TestCompare(t *testing.T) {
	enabled := true
	got := Compare(
		Field("remote_ids", []string{}, []string(nil)),
		Field("description", "x", "y"),
		Optional[bool]("enabled", nil, false),
		Optional("enabled_set", &enabled, false),
		Field("specs", map[string]string{"a": "1"}, map[string]string{"a": "1"}),
	)
	want := Diff{
		{Field: "description", Desired: "x", Actual: "y"},
		{Field: "enabled_set", Desired: true, Actual: false},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Compare() mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, "description: y -> x, enabled_set: false -> true", got.String())
}
