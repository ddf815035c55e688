package filters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const hostvars = `{
	"ctrl-1": {"primary_interface": "eth0", "eth0": {"ipv4": {"address": "10.0.0.12"}}, "ansible_domain": "example.com", "stack_env": "prod"},
	"ctrl-2": {"primary_interface": "bond0", "bond0": {"ipv4": {"address": "10.0.0.11"}}, "ansible_domain": "example.com", "stack_env": "prod"},
	"compute.a": {"ansible_domain": "example.com", "stack_env": "prod", "monitoring": {"client_name": "compute-a"}}
}`

const groups = `{"controller": ["ctrl-1", "ctrl-2"], "compute": ["compute.a"]}`

func TestControllerIPs(t *testing.T) {
	ips, err := ControllerIPs(gjson.Parse(hostvars), gjson.Parse(groups), "controller")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.11", "10.0.0.12"}, ips)

	_, err = ControllerIPs(gjson.Parse(hostvars), gjson.Parse(groups), "db")
	require.Error(t, err)

	hosts, err := MemcacheHosts(gjson.Parse(hostvars), gjson.Parse(groups), "11211", "controller")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.11:11211,10.0.0.12:11211", hosts)
}

func TestSensuDependencies(t *testing.T) {
	deps, err := SensuDependencies("check-nova", gjson.Parse(hostvars), gjson.Parse(groups), "compute,controller,missing,controller")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"compute-a/check-nova",
		"ctrl-1.example.com-prod/check-nova",
		"ctrl-2.example.com-prod/check-nova",
	}, deps)
}

func TestScalarFilters(t *testing.T) {
	assert.Equal(t, "/opt/bbc/openstack-2015.1-bbc7/nova", PackagePath("nova", "2015.1-bbc7"))
	assert.Equal(t, "eth1", RemoveVlanTag("eth1.204"))
	assert.Equal(t, "eth1", RemoveVlanTag("eth1"))
	assert.Equal(t, []string{"eth0", "eth1"}, NetPhysicalDevices(gjson.Parse(`{"device":"bond0","slaves":["eth0","eth1"]}`)))
	assert.Equal(t, []string{"eth2"}, NetPhysicalDevices(gjson.Parse(`{"device":"eth2"}`)))
	assert.Empty(t, NetPhysicalDevices(gjson.Parse(`{}`)))
}

func TestApply(t *testing.T) {
	out, err := Apply("ursula_memcache_hosts", []byte(`{"hostvars":`+hostvars+`,"groups":`+groups+`,"memcache_port":11211}`))
	require.NoError(t, err)
	assert.JSONEq(t, `"10.0.0.11:11211,10.0.0.12:11211"`, string(out))

	out, err = Apply("net_physical_devices", []byte(`{"interface":{}}`))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(out))

	_, err = Apply("nope", []byte(`{}`))
	require.Error(t, err)

	_, err = Apply("remove_vlan_tag", []byte(`{`))
	require.Error(t, err)

	assert.Contains(t, Names(), "sensu_dependencies")
	assert.Len(t, Names(), 6)
}
