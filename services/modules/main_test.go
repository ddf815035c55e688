package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/blueboxgroup/ursula/internal/ansible"
	"github.com/blueboxgroup/ursula/internal/envs"
	"github.com/blueboxgroup/ursula/internal/fileutils"
)

func TestModulesRegistered(t *testing.T) {
	reg := modules(nil, fileutils.Root(t.TempDir()))
	require.Equal(t, []string{
		"ceph_bcache",
		"ceph_pool",
		"cinder_volume_group",
		"cinder_volume_type",
		"keystone_federation_mapping",
		"keystone_federation_protocol",
		"keystone_identity_provider",
		"keystone_service_provider",
		"neutron_router_gateway",
		"os_nova_host_agg",
		"os_nova_host_agg_host",
		"ovs_bridge",
		"sensu_metrics_check",
		"swift_disk",
		"swift_ring",
		"systemd_service",
	}, reg.Names())
}

func TestRunDispatch(t *testing.T) {
	root := t.TempDir()
	prev := envs.FSRoot
	envs.FSRoot = root
	t.Cleanup(func() { envs.FSRoot = prev })

	argsFile := filepath.Join(t.TempDir(), "args")
	require.NoError(t, os.WriteFile(argsFile, []byte(`{"name":"cpu","plugin":"cpu-metrics.rb","check_dir":"/checks"}`), 0o600))

	want := []string{"created", "ok"}
	for i, argv := range [][]string{
		{"/usr/local/bin/ursula", "sensu_metrics_check", argsFile},
		{"/usr/share/ansible/sensu_metrics_check", argsFile},
	} {
		var stdout, stderr bytes.Buffer
		code := run(context.Background(), argv, nil, &stdout, &stderr)
		require.Equal(t, ansible.ExitOK, code, stderr.String())
		require.Equal(t, want[i], gjson.Get(stdout.String(), "result").String())
	}
	require.FileExists(t, filepath.Join(root, "checks", "cpu.json"))
}

func TestRunFailures(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, exitUsage, run(context.Background(), []string{"ursula"}, nil, &stdout, &stderr))

	stdout.Reset()
	code := run(context.Background(), []string{"ursula", "no_such_module", "/nonexistent"}, nil, &stdout, &stderr)
	require.Equal(t, ansible.ExitFailed, code)
	require.True(t, gjson.Get(stdout.String(), "failed").Bool())
	require.Contains(t, gjson.Get(stdout.String(), "msg").String(), "unknown module")
}

func TestRunFilterAndList(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"ursula", "filter", "remove_vlan_tag"}, strings.NewReader(`{"interface":"eth0.100"}`), &stdout, &stderr)
	require.Equal(t, ansible.ExitOK, code, stderr.String())
	require.Equal(t, "\"eth0\"\n", stdout.String())

	stdout.Reset()
	require.Equal(t, ansible.ExitOK, run(context.Background(), []string{"ursula", "list"}, nil, &stdout, &stderr))
	require.Contains(t, stdout.String(), "ceph_pool\n")
	require.Contains(t, stdout.String(), "filter/net_physical_devices\n")
}
