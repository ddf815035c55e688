package cinder

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/blueboxgroup/ursula/internal/ansible"
	"github.com/blueboxgroup/ursula/internal/command"
	"github.com/blueboxgroup/ursula/internal/command/cmdtest"
	"github.com/blueboxgroup/ursula/internal/fileutils"
)

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

// lvm simulates losetup and the volume groups on a host below root.
func lvm(root fileutils.Root, vgs map[string]bool) *cmdtest.Fake {
	return cmdtest.New().
		On("vgs", func(args []string) (command.Output, error) {
			if !vgs[args[1]] {
				return cmdtest.Exit(5, "Volume group \""+args[1]+"\" not found")(args)
			}
			return command.Output{Stdout: []byte("  VG #PV #LV\n")}, nil
		}).
		On("truncate -s", func(args []string) (command.Output, error) {
			return command.Output{}, root.WriteFile(args[3], nil, 0o644)
		}).
		On("losetup -f", cmdtest.Stdout("/dev/loop2\n")).
		On("losetup /dev/loop2", cmdtest.OK()).
		On("vgcreate", func(args []string) (command.Output, error) {
			vgs[args[1]] = true
			return command.Output{}, nil
		})
}

func TestVolumeGroupModuleIdempotent(t *testing.T) {
	root := fileutils.Root(t.TempDir())
	require.NoError(t, root.WriteFile(losetupJob, []byte("old"), 0o644))
	vgs := map[string]bool{}
	runner := lvm(root, vgs)
	m := VolumeGroupModule(runner, root)
	args := `{"size":"10G","dest":"/var/lib/cinder/volumes.img"}`

	out, err := run(t, m, args)
	require.NoError(t, err)
	require.True(t, out.Get("changed").Bool())
	require.Equal(t, "/var/lib/cinder/volumes.img", out.Get("file").String())
	require.True(t, vgs["cinder-volumes"])
	require.Equal(t, 1, runner.Count("vgcreate cinder-volumes /dev/loop2"))

	fi, err := os.Stat(root.Path("/var/lib/cinder/volumes.img"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o700), fi.Mode().Perm())

	job, err := root.ReadFile(losetupJob)
	require.NoError(t, err)
	require.Equal(t, "start on filesystem\ntask\nexec losetup /dev/loop2 /var/lib/cinder/volumes.img\n", string(job))

	out, err = run(t, m, args)
	require.NoError(t, err)
	require.False(t, out.Get("changed").Bool())
	require.Equal(t, 1, runner.Count("truncate"))
}

func TestVolumeGroupModuleFileExists(t *testing.T) {
	root := fileutils.Root(t.TempDir())
	require.NoError(t, root.WriteFile("/srv/cinder.img", []byte("x"), 0o600))

	_, err := run(t, VolumeGroupModule(lvm(root, map[string]bool{}), root), `{"size":"1G","file":"/srv/cinder.img"}`)
	require.ErrorIs(t, err, ErrFileExists)
}

func TestVolumeGroupModuleExistingPV(t *testing.T) {
	root := fileutils.Root(t.TempDir())
	label := make([]byte, 1024)
	copy(label[512:], "LABELONE\x00\x00\x00\x00LVM2 001")
	require.NoError(t, root.WriteFile("/dev/loop2", label, 0o600))
	runner := lvm(root, map[string]bool{})

	_, err := run(t, VolumeGroupModule(runner, root), `{"size":"1G","file":"/srv/cinder.img","vgname":"vg0"}`)
	require.ErrorContains(t, err, "/dev/loop2 is already a LVM PV")
	require.Zero(t, runner.Count("vgcreate"))
}

func TestVolumeGroupModuleLUKS(t *testing.T) {
	root := fileutils.Root(t.TempDir())
	require.NoError(t, root.WriteFile("/dev/mapper/vg0", []byte("LUKS\xba\xbe\x00\x01"), 0o600))

	_, err := run(t, VolumeGroupModule(lvm(root, map[string]bool{}), root), `{"size":"1G","file":"/srv/cinder.img","vgname":"vg0"}`)
	require.ErrorContains(t, err, "/dev/loop2 is a LUKS volume")
}

func TestVolumeGroupModuleRequiresFile(t *testing.T) {
	root := fileutils.Root(t.TempDir())

	_, err := run(t, VolumeGroupModule(lvm(root, map[string]bool{}), root), `{"size":"1G"}`)
	require.ErrorContains(t, err, "one of the following is required: file, dest")
}
