package neutron

import (
	"context"
	"fmt"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/extensions/external"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/extensions/layer3/routers"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/networks"

	"github.com/blueboxgroup/ursula/internal/openstack"
)

// API is the part of the networking API the router gateway module uses.
type API interface {
	// FindRouter returns the first router with the name, nil when there is none.
	FindRouter(ctx context.Context, name string) (*routers.Router, error)
	// FindExternalNetwork returns the id of the first external network with
	// the name, empty when there is none.
	FindExternalNetwork(ctx context.Context, name string) (string, error)
	SetGateway(ctx context.Context, routerID string, gw routers.GatewayInfo) (*routers.Router, error)
	ClearGateway(ctx context.Context, routerID string) (*routers.Router, error)
}

// APIFactory connects to the networking API.
type APIFactory func(ctx context.Context, creds openstack.Credentials) (API, error)

type networking struct {
	client *gophercloud.ServiceClient
}

// NewAPI authenticates and returns the gophercloud backed API.
func NewAPI(ctx context.Context, creds openstack.Credentials) (API, error) {
	clients, err := openstack.Connect(ctx, creds)
	if err != nil {
		return nil, err
	}
	client, err := clients.Network()
	if err != nil {
		return nil, err
	}
	return &networking{client: client}, nil
}

func (n *networking) FindRouter(ctx context.Context, name string) (*routers.Router, error) {
	pages, err := routers.List(n.client, routers.ListOpts{Name: name}).AllPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("error in getting the router list: %w", err)
	}
	all, err := routers.ExtractRouters(pages)
	if err != nil {
		return nil, fmt.Errorf("error in getting the router list: %w", err)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return &all[0], nil
}

func (n *networking) FindExternalNetwork(ctx context.Context, name string) (string, error) {
	isExternal := true
	opts := external.ListOptsExt{
		ListOptsBuilder: networks.ListOpts{Name: name},
		External:        &isExternal,
	}
	pages, err := networks.List(n.client, opts).AllPages(ctx)
	if err != nil {
		return "", fmt.Errorf("error in listing neutron networks: %w", err)
	}
	all, err := networks.ExtractNetworks(pages)
	if err != nil {
		return "", fmt.Errorf("error in listing neutron networks: %w", err)
	}
	if len(all) == 0 {
		return "", nil
	}
	return all[0].ID, nil
}

func (n *networking) SetGateway(ctx context.Context, routerID string, gw routers.GatewayInfo) (*routers.Router, error) {
	r, err := routers.Update(ctx, n.client, routerID, routers.UpdateOpts{GatewayInfo: &gw}).Extract()
	if err != nil {
		return nil, fmt.Errorf("error in adding gateway to router: %w", err)
	}
	return r, nil
}

// ClearGateway removes the gateway by setting an empty gateway.
func (n *networking) ClearGateway(ctx context.Context, routerID string) (*routers.Router, error) {
	r, err := routers.Update(ctx, n.client, routerID, routers.UpdateOpts{GatewayInfo: &routers.GatewayInfo{}}).Extract()
	if err != nil {
		return nil, fmt.Errorf("error in removing gateway from router: %w", err)
	}
	return r, nil
}
