// Package keystone holds the modules managing Keystone federation: identity
// providers, mappings, protocols and service providers.
package keystone

import (
	"context"
	"fmt"

	"github.com/blueboxgroup/ursula/internal/ansible"
	"github.com/blueboxgroup/ursula/internal/converge"
	"github.com/blueboxgroup/ursula/internal/loggerutils"
	"github.com/blueboxgroup/ursula/internal/openstack"
)

// converger builds the converger of a module from its decoded parameters and
// a connected API.
type converger[P, T any] func(api API, p *P) converge.Converger[T]

// module wires decoding, connecting and reconciling for one resource kind.
// report adds the module specific result fields.
func module[P, T any](
	name, kind string,
	newAPI APIFactory,
	defaults func() P,
	creds func(*P) (openstack.Credentials, string, string),
	build converger[P, T],
	report func(r *ansible.Result, p *P, res converge.Result[T]),
) ansible.Module {
	return ansible.Module{Name: name, Run: func(ctx context.Context, args *ansible.Args) (*ansible.Result, error) {
		p := defaults()
		if err := args.Decode(&p); err != nil {
			return nil, err
		}
		c, id, state := creds(&p)

		api, err := newAPI(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("%s failed: %w", kind, err)
		}

		res, err := converge.Reconcile(ctx, build(api, &p), args.ConvergeOptions(state, loggerutils.WithResource(kind, id)))
		if err != nil {
			return nil, fmt.Errorf("%s failed: %w", kind, err)
		}

		r := ansible.Report(args, res)
		if res.Resource != nil {
			report(r, &p, res)
		}
		return r, nil
	}}
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
