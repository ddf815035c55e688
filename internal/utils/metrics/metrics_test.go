package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	dir := t.TempDir()

	LastResult.Reset()
	Observe("ovs_bridge", "create", true, nil, time.Now())
	require.NoError(t, WriteTextfile(NewRegistry(), dir, "ovs_bridge"))

	out, err := os.ReadFile(filepath.Join(dir, "ursula_ovs_bridge.prom"))
	require.NoError(t, err)
	require.Contains(t, string(out), `ursula_module_last_result{module="ovs_bridge",result="changed"} 1`)
	require.Contains(t, string(out), `ursula_module_last_result{module="ovs_bridge",result="ok"} 0`)
	require.Contains(t, string(out), `ursula_module_changed{module="ovs_bridge"} 1`)
	require.NotContains(t, string(out), "_total")

	// a second run of the module replaces its outcome instead of adding to it
	Observe("ovs_bridge", "", false, errors.New("boom"), time.Now())
	require.NoError(t, WriteTextfile(NewRegistry(), dir, "ovs_bridge"))
	out, err = os.ReadFile(filepath.Join(dir, "ursula_ovs_bridge.prom"))
	require.NoError(t, err)
	require.Contains(t, string(out), `ursula_module_last_result{module="ovs_bridge",result="failed"} 1`)
	require.Contains(t, string(out), `ursula_module_last_result{module="ovs_bridge",result="changed"} 0`)
}

func TestWriteTextfileDisabled(t *testing.T) {
	require.NoError(t, WriteTextfile(NewRegistry(), "", "ovs_bridge"))
}

func TestTextfileName(t *testing.T) {
	require.Equal(t, "ursula_ceph_pool.prom", TextfileName("ceph_pool"))
}
