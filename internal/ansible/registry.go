package ansible

import (
	"context"
	"fmt"
	"slices"
)

// RunFunc executes a module against its arguments.
type RunFunc func(ctx context.Context, args *Args) (*Result, error)

// Module is a named, runnable module.
type Module struct {
	Name string
	Run  RunFunc
}

// Registry maps module names to their implementations.
type Registry struct {
	modules map[string]Module
}

func NewRegistry(modules ...Module) *Registry {
	r := &Registry{modules: make(map[string]Module, len(modules))}
	for _, m := range modules {
		r.Register(m)
	}
	return r
}

// Register adds a module, panicking on a duplicate name.
func (r *Registry) Register(m Module) {
	if _, ok := r.modules[m.Name]; ok {
		panic(fmt.Sprintf("module %q registered twice", m.Name))
	}
	r.modules[m.Name] = m
}

func (r *Registry) Lookup(name string) (Module, bool) {
	m, ok := r.modules[name]
	return m, ok
}

// Names returns the registered module names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
