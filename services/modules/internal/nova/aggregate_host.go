package nova

import (
	"context"
	"fmt"
	"slices"

	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/aggregates"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/hypervisors"

	"github.com/blueboxgroup/ursula/internal/ansible"
	"github.com/blueboxgroup/ursula/internal/converge"
	"github.com/blueboxgroup/ursula/internal/loggerutils"
	"github.com/blueboxgroup/ursula/internal/openstack"
)

const AggregateHostModuleName = "os_nova_host_agg_host"

type AggregateHostParams struct {
	openstack.Credentials

	Name  string `json:"name" validate:"required"`
	Host  string `json:"host" validate:"required"`
	State string `json:"state" validate:"oneof=present absent"`
}

// membership converges the presence of a service host in an aggregate. The
// aggregate and the hypervisor are looked up once up front and either may be
// missing.
type membership struct {
	api        API
	p          AggregateHostParams
	aggregate  *aggregates.Aggregate
	hypervisor *hypervisors.Hypervisor
}

func (m *membership) Probe(context.Context) (*aggregates.Aggregate, error) {
	if m.aggregate == nil || m.hypervisor == nil {
		return nil, nil
	}
	if !slices.Contains(m.aggregate.Hosts, m.hypervisor.Service.Host) {
		return nil, nil
	}
	return m.aggregate, nil
}

func (m *membership) Diff(*aggregates.Aggregate) converge.Diff { return nil }

func (m *membership) Create(ctx context.Context) (*aggregates.Aggregate, error) {
	if m.hypervisor == nil {
		return nil, fmt.Errorf("no matches found for %s", m.p.Host)
	}
	if m.aggregate == nil {
		return nil, fmt.Errorf("no matches found for %s", m.p.Name)
	}
	return m.api.AddHost(ctx, m.aggregate.ID, m.hypervisor.Service.Host)
}

func (m *membership) Update(context.Context, *aggregates.Aggregate) (*aggregates.Aggregate, error) {
	return nil, converge.ErrUnsupported
}

func (m *membership) Delete(ctx context.Context, current *aggregates.Aggregate) error {
	_, err := m.api.RemoveHost(ctx, current.ID, m.hypervisor.Service.Host)
	return err
}

// AggregateHostModule adds a compute host to an aggregate or removes it.
func AggregateHostModule(newAPI APIFactory) ansible.Module {
	return ansible.Module{Name: AggregateHostModuleName, Run: func(ctx context.Context, args *ansible.Args) (*ansible.Result, error) {
		p := AggregateHostParams{State: string(converge.Present)}
		if err := args.Decode(&p); err != nil {
			return nil, err
		}
		api, err := newAPI(ctx, p.Credentials)
		if err != nil {
			return nil, err
		}

		m := &membership{api: api, p: p}
		if m.aggregate, err = FindAggregate(ctx, api, p.Name); err != nil {
			return nil, err
		}
		if m.hypervisor, err = FindHypervisor(ctx, api, p.Host); err != nil {
			return nil, err
		}

		logger := loggerutils.WithResource("aggregate", p.Name).With().Str("host", p.Host).Logger()
		res, err := converge.Reconcile[aggregates.Aggregate](ctx, m, args.ConvergeOptions(p.State, logger))
		if err != nil {
			return nil, fmt.Errorf("aggregate %s host %s: %w", p.Name, p.Host, err)
		}

		r := ansible.Report(args, res)
		if res.Resource != nil && p.State == string(converge.Present) {
			r.Set("agg", res.Resource).Set("hosts", res.Resource.Hosts)
		}
		return r, nil
	}}
}
