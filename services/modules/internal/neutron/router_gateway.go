// Package neutron holds the module attaching routers to external networks.
package neutron

import (
	"context"
	"errors"
	"fmt"

	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/extensions/layer3/routers"

	"github.com/blueboxgroup/ursula/internal/ansible"
	"github.com/blueboxgroup/ursula/internal/converge"
	"github.com/blueboxgroup/ursula/internal/loggerutils"
	"github.com/blueboxgroup/ursula/internal/openstack"
)

const RouterGatewayModuleName = "neutron_router_gateway"

var (
	ErrRouterNotFound  = errors.New("failed to get the router id, please check the router name")
	ErrNetworkNotFound = errors.New("failed to get the network id, please check the network name and make sure it is external")
)

type RouterGatewayParams struct {
	openstack.Credentials

	RouterName  string       `json:"router_name" validate:"required"`
	NetworkName string       `json:"network_name" validate:"required"`
	EnableSNAT  ansible.Bool `json:"enable_snat"`
	FixedIP     string       `json:"fixed_ip" validate:"omitempty,ip"`
	State       string       `json:"state" validate:"oneof=present absent"`
	// Verify is accepted for compatibility; certificate checks follow
	// validate_certs and insecure.
	Verify *ansible.Bool `json:"verify"`
}

// Gateway is the external gateway of a router.
type Gateway struct {
	RouterID   string `json:"router_id"`
	NetworkID  string `json:"network_id"`
	EnableSNAT bool   `json:"enable_snat"`
	FixedIP    string `json:"fixed_ip,omitempty"`
}

func gatewayOf(r *routers.Router) *Gateway {
	gw := r.GatewayInfo
	if gw.NetworkID == "" {
		return nil
	}
	out := &Gateway{RouterID: r.ID, NetworkID: gw.NetworkID, EnableSNAT: gw.EnableSNAT == nil || *gw.EnableSNAT}
	if len(gw.ExternalFixedIPs) > 0 {
		out.FixedIP = gw.ExternalFixedIPs[0].IPAddress
	}
	return out
}

type gatewayConverger struct {
	api       API
	router    *routers.Router
	networkID string
	p         *RouterGatewayParams
}

func (c *gatewayConverger) desired() routers.GatewayInfo {
	snat := bool(c.p.EnableSNAT)
	gw := routers.GatewayInfo{NetworkID: c.networkID, EnableSNAT: &snat}
	if c.p.FixedIP != "" {
		gw.ExternalFixedIPs = []routers.ExternalFixedIP{{IPAddress: c.p.FixedIP}}
	}
	return gw
}

func (c *gatewayConverger) Probe(context.Context) (*Gateway, error) {
	return gatewayOf(c.router), nil
}

func (c *gatewayConverger) Diff(current *Gateway) converge.Diff {
	var fixedIP *string
	if c.p.FixedIP != "" {
		fixedIP = &c.p.FixedIP
	}
	return converge.Compare(
		converge.Field("network_id", c.networkID, current.NetworkID),
		converge.Field("enable_snat", bool(c.p.EnableSNAT), current.EnableSNAT),
		converge.Optional("fixed_ip", fixedIP, current.FixedIP),
	)
}

func (c *gatewayConverger) set(ctx context.Context) (*Gateway, error) {
	r, err := c.api.SetGateway(ctx, c.router.ID, c.desired())
	if err != nil {
		return nil, err
	}
	return gatewayOf(r), nil
}

func (c *gatewayConverger) Create(ctx context.Context) (*Gateway, error) {
	return c.set(ctx)
}

// Update moves the gateway by clearing it first when it points at another
// network.
func (c *gatewayConverger) Update(ctx context.Context, current *Gateway) (*Gateway, error) {
	if current.NetworkID != c.networkID {
		if _, err := c.api.ClearGateway(ctx, c.router.ID); err != nil {
			return nil, err
		}
	}
	return c.set(ctx)
}

func (c *gatewayConverger) Delete(ctx context.Context, _ *Gateway) error {
	_, err := c.api.ClearGateway(ctx, c.router.ID)
	return err
}

// resultWord is the outcome reported in `result`. Moving a gateway to another
// network counts as a creation.
func resultWord(a converge.Action, moved bool) string {
	switch {
	case a == converge.ActionCreate || (a == converge.ActionUpdate && moved):
		return "created"
	case a == converge.ActionUpdate:
		return "updated"
	case a == converge.ActionDelete:
		return "deleted"
	}
	return "success"
}

// RouterGatewayModule sets or clears the external gateway of a router.
func RouterGatewayModule(newAPI APIFactory) ansible.Module {
	return ansible.Module{Name: RouterGatewayModuleName, Run: func(ctx context.Context, args *ansible.Args) (*ansible.Result, error) {
		p := RouterGatewayParams{EnableSNAT: true, State: string(converge.Present)}
		if err := args.Decode(&p); err != nil {
			return nil, err
		}

		api, err := newAPI(ctx, p.Credentials)
		if err != nil {
			return nil, err
		}
		router, err := api.FindRouter(ctx, p.RouterName)
		if err != nil {
			return nil, err
		}
		if router == nil {
			return nil, ErrRouterNotFound
		}
		networkID, err := api.FindExternalNetwork(ctx, p.NetworkName)
		if err != nil {
			return nil, err
		}
		if networkID == "" {
			return nil, ErrNetworkNotFound
		}

		current := gatewayOf(router)
		moved := current != nil && current.NetworkID != networkID

		c := &gatewayConverger{api: api, router: router, networkID: networkID, p: &p}
		logger := loggerutils.WithResource("router", p.RouterName)
		res, err := converge.Reconcile[Gateway](ctx, c, args.ConvergeOptions(p.State, logger))
		if err != nil {
			return nil, fmt.Errorf("router %s: %w", p.RouterName, err)
		}

		r := ansible.Report(args, res).
			Set("updated", res.Action == converge.ActionUpdate).
			Set("result", resultWord(res.Action, moved))
		if res.Resource != nil {
			r.Set("gateway", res.Resource)
		}
		return r, nil
	}}
}
