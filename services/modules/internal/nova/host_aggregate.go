// Package nova holds the host aggregate modules.
package nova

import (
	"context"
	"fmt"

	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/aggregates"

	"github.com/blueboxgroup/ursula/internal/ansible"
	"github.com/blueboxgroup/ursula/internal/converge"
	"github.com/blueboxgroup/ursula/internal/loggerutils"
	"github.com/blueboxgroup/ursula/internal/openstack"
)

const HostAggregateModuleName = "os_nova_host_agg"

type HostAggregateParams struct {
	openstack.Credentials

	Name  string `json:"name" validate:"required"`
	Zone  string `json:"az"`
	State string `json:"state" validate:"oneof=present absent"`
}

type aggregateConverger struct {
	api API
	p   HostAggregateParams
}

func (c *aggregateConverger) Probe(ctx context.Context) (*aggregates.Aggregate, error) {
	return FindAggregate(ctx, c.api, c.p.Name)
}

// Diff is empty: the availability zone is only set on creation.
func (c *aggregateConverger) Diff(*aggregates.Aggregate) converge.Diff { return nil }

func (c *aggregateConverger) Create(ctx context.Context) (*aggregates.Aggregate, error) {
	zone := c.p.Zone
	if zone == "" {
		zone = c.p.AvailabilityZone
	}
	return c.api.CreateAggregate(ctx, c.p.Name, zone)
}

func (c *aggregateConverger) Update(context.Context, *aggregates.Aggregate) (*aggregates.Aggregate, error) {
	return nil, converge.ErrUnsupported
}

func (c *aggregateConverger) Delete(ctx context.Context, current *aggregates.Aggregate) error {
	return c.api.DeleteAggregate(ctx, current.ID)
}

// HostAggregateModule creates or deletes a host aggregate.
func HostAggregateModule(newAPI APIFactory) ansible.Module {
	return ansible.Module{Name: HostAggregateModuleName, Run: func(ctx context.Context, args *ansible.Args) (*ansible.Result, error) {
		p := HostAggregateParams{State: string(converge.Present)}
		if err := args.Decode(&p); err != nil {
			return nil, err
		}
		api, err := newAPI(ctx, p.Credentials)
		if err != nil {
			return nil, err
		}

		logger := loggerutils.WithResource("aggregate", p.Name)
		res, err := converge.Reconcile[aggregates.Aggregate](ctx, &aggregateConverger{api: api, p: p}, args.ConvergeOptions(p.State, logger))
		if err != nil {
			return nil, fmt.Errorf("aggregate %s: %w", p.Name, err)
		}

		r := ansible.Report(args, res)
		if res.Resource != nil && p.State == string(converge.Present) {
			r.Set("agg", res.Resource).Set("id", res.Resource.ID)
		}
		return r, nil
	}}
}
