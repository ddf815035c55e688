package nova

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/aggregates"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/hypervisors"

	"github.com/blueboxgroup/ursula/internal/openstack"
)

// API is the part of the compute API the aggregate modules use.
type API interface {
	ListAggregates(ctx context.Context) ([]aggregates.Aggregate, error)
	CreateAggregate(ctx context.Context, name, zone string) (*aggregates.Aggregate, error)
	DeleteAggregate(ctx context.Context, id int) error
	AddHost(ctx context.Context, id int, host string) (*aggregates.Aggregate, error)
	RemoveHost(ctx context.Context, id int, host string) (*aggregates.Aggregate, error)
	ListHypervisors(ctx context.Context) ([]hypervisors.Hypervisor, error)
}

// APIFactory connects to the compute API.
type APIFactory func(ctx context.Context, creds openstack.Credentials) (API, error)

type compute struct {
	client *gophercloud.ServiceClient
}

// NewAPI authenticates and returns the gophercloud backed API.
func NewAPI(ctx context.Context, creds openstack.Credentials) (API, error) {
	clients, err := openstack.Connect(ctx, creds)
	if err != nil {
		return nil, err
	}
	client, err := clients.Compute()
	if err != nil {
		return nil, err
	}
	return &compute{client: client}, nil
}

func (c *compute) ListAggregates(ctx context.Context) ([]aggregates.Aggregate, error) {
	pages, err := aggregates.List(c.client).AllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing aggregates: %w", err)
	}
	return aggregates.ExtractAggregates(pages)
}

func (c *compute) CreateAggregate(ctx context.Context, name, zone string) (*aggregates.Aggregate, error) {
	return aggregates.Create(ctx, c.client, aggregates.CreateOpts{Name: name, AvailabilityZone: zone}).Extract()
}

func (c *compute) DeleteAggregate(ctx context.Context, id int) error {
	return aggregates.Delete(ctx, c.client, id).ExtractErr()
}

func (c *compute) AddHost(ctx context.Context, id int, host string) (*aggregates.Aggregate, error) {
	return aggregates.AddHost(ctx, c.client, id, aggregates.AddHostOpts{Host: host}).Extract()
}

func (c *compute) RemoveHost(ctx context.Context, id int, host string) (*aggregates.Aggregate, error) {
	return aggregates.RemoveHost(ctx, c.client, id, aggregates.RemoveHostOpts{Host: host}).Extract()
}

func (c *compute) ListHypervisors(ctx context.Context) ([]hypervisors.Hypervisor, error) {
	pages, err := hypervisors.List(c.client, hypervisors.ListOpts{}).AllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing hypervisors: %w", err)
	}
	return hypervisors.ExtractHypervisors(pages)
}

// FindAggregate returns the aggregate whose name or id is nameOrID, nil when
// there is none. More than one match is an error.
func FindAggregate(ctx context.Context, api API, nameOrID string) (*aggregates.Aggregate, error) {
	all, err := api.ListAggregates(ctx)
	if err != nil {
		return nil, err
	}
	var found []aggregates.Aggregate
	for _, a := range all {
		if a.Name == nameOrID || strconv.Itoa(a.ID) == nameOrID {
			found = append(found, a)
		}
	}
	return single(found, nameOrID)
}

// FindHypervisor returns the hypervisor matching host by id, hypervisor
// hostname or service host.
func FindHypervisor(ctx context.Context, api API, host string) (*hypervisors.Hypervisor, error) {
	all, err := api.ListHypervisors(ctx)
	if err != nil {
		return nil, err
	}
	var found []hypervisors.Hypervisor
	for _, h := range all {
		if h.ID == host || h.HypervisorHostname == host || h.Service.Host == host {
			found = append(found, h)
		}
	}
	return single(found, host)
}

func single[T any](found []T, key string) (*T, error) {
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return &found[0], nil
	}
	return nil, fmt.Errorf("multiple matches found for %s", key)
}
