package cinder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/blueboxgroup/ursula/internal/ansible"
	"github.com/blueboxgroup/ursula/internal/command"
	"github.com/blueboxgroup/ursula/internal/converge"
	"github.com/blueboxgroup/ursula/internal/fileutils"
	"github.com/blueboxgroup/ursula/internal/loggerutils"
)

const VolumeGroupModuleName = "cinder_volume_group"

const (
	losetupJob = "/etc/init/losetup.conf"
	// headerScanSize is how much of a device is searched for a LUKS or LVM label.
	headerScanSize = 16384
)

var (
	ErrFileExists = errors.New("destination file already exists")
	luksMagic     = []byte("LUKS")
	lvmLabel      = []byte("LVM2")
)

type VolumeGroupParams struct {
	Size   string `json:"size" validate:"required"`
	File   string `json:"file" validate:"required_without=Dest"`
	Dest   string `json:"dest" validate:"required_without=File"`
	VGName string `json:"vgname" validate:"required"`
}

func (p VolumeGroupParams) path() string {
	if p.File != "" {
		return p.File
	}
	return p.Dest
}

// VolumeGroup is an LVM volume group backed by a loop mounted file.
type VolumeGroup struct {
	Name   string
	File   string
	Device string
}

type volumeGroupConverger struct {
	runner command.Runner
	root   fileutils.Root
	name   string
	size   string
	file   string
}

func vgExists(ctx context.Context, runner command.Runner, name string) (bool, error) {
	_, err := runner.Run(ctx, "vgs", name)
	if command.IsExitCode(err) {
		return false, nil
	}
	return err == nil, err
}

func (c *volumeGroupConverger) Probe(ctx context.Context) (*VolumeGroup, error) {
	ok, err := vgExists(ctx, c.runner, c.name)
	if err != nil || !ok {
		return nil, err
	}
	return &VolumeGroup{Name: c.name}, nil
}

func (c *volumeGroupConverger) Diff(*VolumeGroup) converge.Diff { return nil }

// Create backs a new volume group with a sparse file attached to the first
// free loop device.
func (c *volumeGroupConverger) Create(ctx context.Context) (*VolumeGroup, error) {
	if c.root.Exists(c.file) {
		return nil, fmt.Errorf("%w: %s", ErrFileExists, c.file)
	}
	if _, err := c.runner.Run(ctx, "truncate", "-s", c.size, c.file); err != nil {
		return nil, err
	}
	if err := os.Chmod(c.root.Path(c.file), 0o700); err != nil {
		return nil, fmt.Errorf("unable to set permissions: %w", err)
	}

	out, err := c.runner.Run(ctx, "losetup", "-f")
	if err != nil {
		return nil, err
	}
	device := out.String()

	if c.root.Exists(losetupJob) {
		job := fmt.Sprintf("start on filesystem\ntask\nexec losetup %s %s\n", device, c.file)
		if err := c.root.WriteFile(losetupJob, []byte(job), 0o644); err != nil {
			return nil, fmt.Errorf("unable to write losetup file: %w", err)
		}
	}

	if _, err := c.runner.Run(ctx, "losetup", device, c.file); err != nil {
		return nil, err
	}

	if found, err := c.hasLabel("/dev/mapper/"+c.name, luksMagic); err != nil {
		return nil, err
	} else if found {
		return nil, fmt.Errorf("%s is a LUKS volume", device)
	}
	if found, err := c.hasLabel(device, lvmLabel); err != nil {
		return nil, err
	} else if found {
		return nil, fmt.Errorf("%s is already a LVM PV", device)
	}

	if _, err := c.runner.Run(ctx, "vgcreate", c.name, device); err != nil {
		return nil, err
	}
	ok, err := vgExists(ctx, c.runner, c.name)
	if err != nil {
		return nil, fmt.Errorf("unable to setup %s: %w", c.name, err)
	}
	if !ok {
		return nil, fmt.Errorf("unable to setup %s", c.name)
	}
	return &VolumeGroup{Name: c.name, File: c.file, Device: device}, nil
}

func (c *volumeGroupConverger) Update(context.Context, *VolumeGroup) (*VolumeGroup, error) {
	return nil, converge.ErrUnsupported
}

func (c *volumeGroupConverger) Delete(context.Context, *VolumeGroup) error {
	return converge.ErrUnsupported
}

// hasLabel searches the head of a device for a label. Missing devices carry
// no label.
func (c *volumeGroupConverger) hasLabel(device string, label []byte) (bool, error) {
	f, err := os.Open(c.root.Path(device))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", device, err)
	}
	defer f.Close()

	head, err := io.ReadAll(io.LimitReader(f, headerScanSize))
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", device, err)
	}
	return bytes.Contains(head, label), nil
}

// VolumeGroupModule creates the file backed cinder-volumes volume group.
func VolumeGroupModule(runner command.Runner, root fileutils.Root) ansible.Module {
	return ansible.Module{Name: VolumeGroupModuleName, Run: func(ctx context.Context, args *ansible.Args) (*ansible.Result, error) {
		p := VolumeGroupParams{VGName: "cinder-volumes"}
		if err := args.Decode(&p); err != nil {
			return nil, err
		}

		c := &volumeGroupConverger{runner: runner, root: root, name: p.VGName, size: p.Size, file: p.path()}
		logger := loggerutils.WithResource("volume_group", p.VGName)
		res, err := converge.Reconcile[VolumeGroup](ctx, c, args.ConvergeOptions(string(converge.Present), logger))
		if err != nil {
			return nil, err
		}

		r := ansible.Report(args, res)
		if res.Changed {
			r.Set("file", c.file)
		}
		return r, nil
	}}
}
