// Package swift prepares object storage disks and builds swift rings.
package swift

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/blueboxgroup/ursula/internal/ansible"
	"github.com/blueboxgroup/ursula/internal/command"
	"github.com/blueboxgroup/ursula/internal/converge"
	"github.com/blueboxgroup/ursula/internal/fileutils"
	"github.com/blueboxgroup/ursula/internal/fstab"
	"github.com/blueboxgroup/ursula/internal/loggerutils"
)

const (
	DiskModuleName = "swift_disk"

	nodeDir       = "/srv/node"
	diskMountOpts = "noatime,nodiratime,nobarrier,logbufs=8"
)

type DiskParams struct {
	Dev           string       `json:"dev" validate:"required_without=PartitionPath,excluded_with=PartitionPath"`
	PartitionPath string       `json:"partition_path"`
	MountPoint    string       `json:"mount_point"`
	MakeLabel     ansible.Bool `json:"make_label"`
}

// layout resolves the device, partition and mount point paths. devPath is
// empty when a partition path was given.
func (p DiskParams) layout() (devPath, partPath, mountPoint string) {
	partPath = p.PartitionPath
	if p.Dev != "" {
		devPath = "/dev/" + p.Dev
		partPath = "/dev/" + p.Dev + "1"
	}
	mountPoint = p.MountPoint
	if mountPoint == "" {
		mountPoint = path.Join(nodeDir, path.Base(partPath))
	}
	return devPath, partPath, mountPoint
}

// Disk is a formatted partition mounted below the node directory.
type Disk struct {
	Partition  string `json:"partition"`
	MountPoint string `json:"mount_point"`
	UUID       string `json:"uuid,omitempty"`
}

type diskConverger struct {
	runner     command.Runner
	root       fileutils.Root
	makeLabel  bool
	devPath    string
	partPath   string
	mountPoint string
}

func (c *diskConverger) run(ctx context.Context, name string, args ...string) (command.Output, error) {
	return c.runner.Run(ctx, name, args...)
}

func (c *diskConverger) mounted(ctx context.Context) (bool, error) {
	_, err := c.run(ctx, "mountpoint", "-q", c.mountPoint)
	if command.IsExitCode(err) {
		return false, nil
	}
	return err == nil, err
}

func (c *diskConverger) Probe(ctx context.Context) (*Disk, error) {
	if !c.root.Exists(c.partPath) {
		return nil, nil
	}
	ok, err := c.mounted(ctx)
	if err != nil || !ok {
		return nil, err
	}
	return &Disk{Partition: c.partPath, MountPoint: c.mountPoint}, nil
}

func (c *diskConverger) Diff(*Disk) converge.Diff { return nil }

// Create partitions the device when one was given, formats the partition
// with xfs, records it in fstab by filesystem uuid and mounts it for swift.
func (c *diskConverger) Create(ctx context.Context) (*Disk, error) {
	if c.devPath != "" {
		if c.makeLabel {
			if _, err := c.run(ctx, "parted", "--script", c.devPath, "mklabel", "gpt"); err != nil {
				return nil, err
			}
		}
		if _, err := c.run(ctx, "parted", "--script", c.devPath, "mkpart", "primary", "1", "100%"); err != nil {
			return nil, err
		}
	}
	if _, err := c.run(ctx, "mkfs.xfs", "-f", "-i", "size=512", c.partPath); err != nil {
		return nil, err
	}
	out, err := c.run(ctx, "blkid", "-o", "value", c.partPath)
	if err != nil {
		return nil, err
	}
	lines := out.Lines()
	if len(lines) == 0 {
		return nil, fmt.Errorf("blkid reported no uuid for %s", c.partPath)
	}
	fsUUID := lines[0]

	tab, err := fstab.Read(c.root)
	if err != nil {
		return nil, fmt.Errorf("failed to update fstab: %w", err)
	}
	entry := fstab.Entry{Spec: "UUID=" + fsUUID, File: c.mountPoint, VfsType: "xfs", MntOps: diskMountOpts}
	if tab.AppendEntry(entry) {
		if err := tab.Write(c.root); err != nil {
			return nil, fmt.Errorf("failed to update fstab: %w", err)
		}
	}

	if err := os.MkdirAll(c.root.Path(c.mountPoint), 0o755); err != nil {
		return nil, err
	}
	if _, err := c.run(ctx, "mount", c.mountPoint); err != nil {
		return nil, err
	}
	if _, err := c.run(ctx, "chown", "swift:swift", c.mountPoint); err != nil {
		return nil, err
	}
	return &Disk{Partition: c.partPath, MountPoint: c.mountPoint, UUID: fsUUID}, nil
}

func (c *diskConverger) Update(context.Context, *Disk) (*Disk, error) {
	return nil, converge.ErrUnsupported
}

func (c *diskConverger) Delete(context.Context, *Disk) error {
	return converge.ErrUnsupported
}

// DiskModule formats and mounts a swift storage disk.
func DiskModule(runner command.Runner, root fileutils.Root) ansible.Module {
	return ansible.Module{Name: DiskModuleName, Run: func(ctx context.Context, args *ansible.Args) (*ansible.Result, error) {
		var p DiskParams
		if err := args.Decode(&p); err != nil {
			return nil, err
		}
		devPath, partPath, mountPoint := p.layout()
		if devPath != "" && !root.Exists(devPath) {
			return nil, errors.New("no such device: " + p.Dev)
		}

		c := &diskConverger{
			runner:     runner,
			root:       root,
			makeLabel:  bool(p.MakeLabel),
			devPath:    devPath,
			partPath:   partPath,
			mountPoint: mountPoint,
		}
		logger := loggerutils.WithResource("swift_disk", partPath)
		res, err := converge.Reconcile[Disk](ctx, c, args.ConvergeOptions(string(converge.Present), logger))
		if err != nil {
			return nil, err
		}

		r := ansible.Report(args, res).Set("mount_point", mountPoint)
		if res.Resource != nil && res.Resource.UUID != "" {
			r.Set("uuid", res.Resource.UUID)
		}
		return r, nil
	}}
}
