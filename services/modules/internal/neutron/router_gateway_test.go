package neutron

import (
	"context"
	"testing"

	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/extensions/layer3/routers"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/blueboxgroup/ursula/internal/ansible"
	"github.com/blueboxgroup/ursula/internal/openstack"
)

type fakeNetworking struct {
	routers  map[string]*routers.Router
	external map[string]string
	calls    []string
}

func newFakeNetworking() *fakeNetworking {
	return &fakeNetworking{
		routers: map[string]*routers.Router{
			"r1": {ID: "r1-id", Name: "r1"},
		},
		external: map[string]string{"public": "net-public", "floating": "net-floating"},
	}
}

func (f *fakeNetworking) factory(context.Context, openstack.Credentials) (API, error) { return f, nil }

func (f *fakeNetworking) FindRouter(_ context.Context, name string) (*routers.Router, error) {
	r, ok := f.routers[name]
	if !ok {
		return nil, nil
	}
	c := *r
	return &c, nil
}

func (f *fakeNetworking) FindExternalNetwork(_ context.Context, name string) (string, error) {
	return f.external[name], nil
}

func (f *fakeNetworking) byID(id string) *routers.Router {
	for _, r := range f.routers {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (f *fakeNetworking) SetGateway(_ context.Context, id string, gw routers.GatewayInfo) (*routers.Router, error) {
	f.calls = append(f.calls, "set "+gw.NetworkID)
	r := f.byID(id)
	r.GatewayInfo = gw
	c := *r
	return &c, nil
}

func (f *fakeNetworking) ClearGateway(_ context.Context, id string) (*routers.Router, error) {
	f.calls = append(f.calls, "clear")
	r := f.byID(id)
	r.GatewayInfo = routers.GatewayInfo{}
	c := *r
	return &c, nil
}

func run(t *testing.T, m ansible.Module, doc string) (gjson.Result, error) {
	t.Helper()
	args, err := ansible.ParseArgs([]byte(doc))
	require.NoError(t, err)
	res, err := m.Run(context.Background(), args)
	if err != nil {
		return gjson.Result{}, err
	}
	out, err := res.JSON()
	require.NoError(t, err)
	return gjson.ParseBytes(out), nil
}

func TestRouterGatewayLifecycle(t *testing.T) {
	api := newFakeNetworking()
	m := RouterGatewayModule(api.factory)

	out, err := run(t, m, `{"router_name":"r1","network_name":"public"}`)
	require.NoError(t, err)
	require.True(t, out.Get("changed").Bool())
	require.False(t, out.Get("updated").Bool())
	require.Equal(t, "created", out.Get("result").String())
	require.Equal(t, "net-public", out.Get("gateway.network_id").String())
	require.True(t, out.Get("gateway.enable_snat").Bool())

	out, err = run(t, m, `{"router_name":"r1","network_name":"public"}`)
	require.NoError(t, err)
	require.False(t, out.Get("changed").Bool())
	require.Equal(t, "success", out.Get("result").String())

	out, err = run(t, m, `{"router_name":"r1","network_name":"public","enable_snat":"no"}`)
	require.NoError(t, err)
	require.True(t, out.Get("changed").Bool())
	require.True(t, out.Get("updated").Bool())
	require.Equal(t, "updated", out.Get("result").String())

	out, err = run(t, m, `{"router_name":"r1","network_name":"floating","enable_snat":false}`)
	require.NoError(t, err)
	require.True(t, out.Get("updated").Bool())
	require.Equal(t, "created", out.Get("result").String())
	require.Equal(t, []string{"set net-public", "set net-public", "clear", "set net-floating"}, api.calls)

	out, err = run(t, m, `{"router_name":"r1","network_name":"floating","state":"absent"}`)
	require.NoError(t, err)
	require.True(t, out.Get("changed").Bool())
	require.Equal(t, "deleted", out.Get("result").String())
	require.False(t, out.Get("gateway").Exists())

	out, err = run(t, m, `{"router_name":"r1","network_name":"floating","state":"absent"}`)
	require.NoError(t, err)
	require.False(t, out.Get("changed").Bool())
	require.Equal(t, "success", out.Get("result").String())
}

func TestRouterGatewayFixedIP(t *testing.T) {
	api := newFakeNetworking()
	api.routers["r1"].GatewayInfo = routers.GatewayInfo{
		NetworkID:        "net-public",
		ExternalFixedIPs: []routers.ExternalFixedIP{{IPAddress: "10.0.0.5", SubnetID: "s"}},
	}
	m := RouterGatewayModule(api.factory)

	out, err := run(t, m, `{"router_name":"r1","network_name":"public","fixed_ip":"10.0.0.5"}`)
	require.NoError(t, err)
	require.False(t, out.Get("changed").Bool())

	out, err = run(t, m, `{"router_name":"r1","network_name":"public","fixed_ip":"10.0.0.9","_ansible_check_mode":true}`)
	require.NoError(t, err)
	require.True(t, out.Get("changed").Bool())
	require.Equal(t, "updated", out.Get("result").String())
	require.Empty(t, api.calls)

	_, err = run(t, m, `{"router_name":"r1","network_name":"public","fixed_ip":"nope"}`)
	require.Error(t, err)
}

func TestRouterGatewayLookupFailures(t *testing.T) {
	m := RouterGatewayModule(newFakeNetworking().factory)

	_, err := run(t, m, `{"router_name":"missing","network_name":"public"}`)
	require.ErrorIs(t, err, ErrRouterNotFound)

	_, err = run(t, m, `{"router_name":"r1","network_name":"private"}`)
	require.ErrorIs(t, err, ErrNetworkNotFound)
}
