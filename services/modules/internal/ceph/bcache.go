package ceph

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/blueboxgroup/ursula/internal/ansible"
	"github.com/blueboxgroup/ursula/internal/command"
	"github.com/blueboxgroup/ursula/internal/converge"
	"github.com/blueboxgroup/ursula/internal/fileutils"
	"github.com/blueboxgroup/ursula/internal/fstab"
	"github.com/blueboxgroup/ursula/internal/loggerutils"
)

const BcacheModuleName = "ceph_bcache"

const (
	byUUIDDir      = "/dev/disk/by-uuid"
	osdMountOpts   = "defaults,noatime,largeio,inode64,swalloc"
	defaultDataDir = "/var/lib/ceph/osd"
)

var (
	bcacheRegex   = regexp.MustCompile(`^bcache(\d+)$`)
	partGUIDRegex = regexp.MustCompile(`(?m)^Partition GUID code:\s+(\S+)`)
)

type BcacheParams struct {
	Disks       ansible.StringList `json:"disks" validate:"required,min=1"`
	SSDDevice   string             `json:"ssd_device" validate:"required"`
	CephInitSSD *ansible.Bool      `json:"ceph_init_ssd" validate:"required"`
	JournalGUID string             `json:"journal_guid" validate:"required"`
	OSDDataDir  string             `json:"osd_data_dir"`
}

// OSD is a bcache backed OSD as found on the host.
type OSD struct {
	UUID string `json:"uuid"`
	ID   int    `json:"id"`
	// Bcache is N of the /dev/bcacheN device holding the OSD data.
	Bcache      int    `json:"bcache"`
	Dir         string `json:"dir"`
	JournalGUID string `json:"journal_guid,omitempty"`
}

// BcacheDevice is a filesystem uuid found on /dev/bcacheN.
type BcacheDevice struct {
	UUID  string
	Index int
}

// ScanBcache lists the filesystem uuids living on bcache devices ordered by
// device index. Every index must address one of the disks.
func ScanBcache(root fileutils.Root, disks int) ([]BcacheDevice, error) {
	entries, err := os.ReadDir(root.Path(byUUIDDir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", byUUIDDir, err)
	}

	var out []BcacheDevice
	for _, e := range entries {
		target, err := os.Readlink(root.Path(path.Join(byUUIDDir, e.Name())))
		if err != nil {
			continue
		}
		if !path.IsAbs(target) {
			target = path.Join(byUUIDDir, target)
		}
		m := bcacheRegex.FindStringSubmatch(path.Base(target))
		if m == nil {
			continue
		}
		if _, err := uuid.Parse(e.Name()); err != nil {
			return nil, fmt.Errorf("bcache device %s has an invalid uuid %q: %w", target, e.Name(), err)
		}
		idx, _ := strconv.Atoi(m[1])
		if idx >= disks {
			return nil, fmt.Errorf("bcache index %d out of range for %d disks", idx, disks)
		}
		out = append(out, BcacheDevice{UUID: e.Name(), Index: idx})
	}
	slices.SortFunc(out, func(a, b BcacheDevice) int { return a.Index - b.Index })
	return out, nil
}

// osdIDs returns the uuid to OSD id mapping known to the cluster.
func osdIDs(ctx context.Context, runner command.Runner) (map[string]int, error) {
	out, err := runner.Run(ctx, "ceph", "osd", "dump", "-f", "json")
	if err != nil {
		return nil, fmt.Errorf("failed to dump the osd map: %w", err)
	}
	ids := map[string]int{}
	gjson.GetBytes(out.Stdout, "osds").ForEach(func(_, osd gjson.Result) bool {
		ids[strings.ToLower(osd.Get("uuid").String())] = int(osd.Get("osd").Int())
		return true
	})
	return ids, nil
}

type osdConverger struct {
	runner command.Runner
	root   fileutils.Root
	p      BcacheParams
	dev    BcacheDevice
	id     int
	known  bool
}

func (c *osdConverger) dir(id int) string {
	return path.Join(c.p.OSDDataDir, "ceph-"+strconv.Itoa(id))
}

func (c *osdConverger) partition(id int) int {
	return id%len(c.p.Disks) + 1
}

// journalDevice is the journal partition on the SSD; nvme devices name their
// partitions with a "p" infix.
func (c *osdConverger) journalDevice(id int) string {
	dev := "/dev/" + c.p.SSDDevice
	if strings.Contains(c.p.SSDDevice, "nvme") {
		dev += "p"
	}
	return dev + strconv.Itoa(c.partition(id))
}

func (c *osdConverger) bcacheDevice() string {
	return "/dev/bcache" + strconv.Itoa(c.dev.Index)
}

func (c *osdConverger) Probe(ctx context.Context) (*OSD, error) {
	if !c.known || !c.root.Exists(c.dir(c.id)) {
		return nil, nil
	}
	osd := &OSD{UUID: c.dev.UUID, ID: c.id, Bcache: c.dev.Index, Dir: c.dir(c.id)}
	if bool(*c.p.CephInitSSD) {
		out, err := c.runner.Run(ctx, "sgdisk", "-i", strconv.Itoa(c.partition(c.id)), "/dev/"+c.p.SSDDevice)
		if err != nil {
			return nil, fmt.Errorf("failed to read journal partition type: %w", err)
		}
		if m := partGUIDRegex.FindSubmatch(out.Stdout); m != nil {
			osd.JournalGUID = string(m[1])
		}
	}
	return osd, nil
}

func (c *osdConverger) Diff(current *OSD) converge.Diff {
	if !bool(*c.p.CephInitSSD) {
		return nil
	}
	if sameGUID(current.JournalGUID, c.p.JournalGUID) {
		return nil
	}
	return converge.Diff{converge.Field("journal_guid", c.p.JournalGUID, current.JournalGUID)}
}

func sameGUID(a, b string) bool {
	ua, err := uuid.Parse(a)
	if err != nil {
		return false
	}
	ub, err := uuid.Parse(b)
	return err == nil && ua == ub
}

func (c *osdConverger) run(ctx context.Context, name string, args ...string) error {
	_, err := c.runner.Run(ctx, name, args...)
	return err
}

// setJournalType claims the journal partition for ceph and tags it with the
// journal type GUID.
func (c *osdConverger) setJournalType(ctx context.Context, id int) error {
	if err := c.run(ctx, "chown", "ceph:ceph", c.journalDevice(id)); err != nil {
		return err
	}
	return c.run(ctx, "sgdisk", "-t", fmt.Sprintf("%d:%s", c.partition(id), c.p.JournalGUID), "/dev/"+c.p.SSDDevice)
}

// Create allocates the OSD id and runs the activation sequence: mkfs and key
// generation on the mounted bcache device, journal setup, then ceph-disk
// activation.
func (c *osdConverger) Create(ctx context.Context) (*OSD, error) {
	out, err := c.runner.Run(ctx, "ceph", "osd", "create", c.dev.UUID)
	if err != nil {
		return nil, err
	}
	id, err := strconv.Atoi(out.String())
	if err != nil {
		return nil, fmt.Errorf("unexpected osd id %q: %w", out.String(), err)
	}
	c.id, c.known = id, true

	dir, osdID := c.dir(id), strconv.Itoa(id)
	if err := os.MkdirAll(c.root.Path(dir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if err := c.run(ctx, "mount", c.bcacheDevice(), dir); err != nil {
		return nil, err
	}
	if err := c.run(ctx, "ceph-osd", "-i", osdID, "--mkfs", "--mkkey", "--osd-uuid", c.dev.UUID); err != nil {
		return nil, err
	}
	journal := path.Join(dir, "journal")
	if _, err := c.root.Remove(journal); err != nil {
		return nil, fmt.Errorf("failed to remove %s: %w", journal, err)
	}
	if err := c.setJournalType(ctx, id); err != nil {
		return nil, err
	}
	if err := os.Symlink(c.journalDevice(id), c.root.Path(journal)); err != nil {
		return nil, fmt.Errorf("failed to link journal: %w", err)
	}
	if err := c.run(ctx, "ceph-osd", "-i", osdID, "--mkjournal"); err != nil {
		return nil, err
	}
	if err := c.run(ctx, "umount", dir); err != nil {
		return nil, err
	}
	if err := c.run(ctx, "ceph-disk", "activate", c.bcacheDevice()); err != nil {
		return nil, err
	}
	if err := c.run(ctx, "chown", "-R", "ceph:ceph", dir); err != nil {
		return nil, err
	}
	return &OSD{UUID: c.dev.UUID, ID: id, Bcache: c.dev.Index, Dir: dir, JournalGUID: c.p.JournalGUID}, nil
}

// Update re-initialises the journal of an already activated OSD.
func (c *osdConverger) Update(ctx context.Context, current *OSD) (*OSD, error) {
	if err := c.setJournalType(ctx, current.ID); err != nil {
		return nil, err
	}
	if err := c.run(ctx, "ceph-osd", "-i", strconv.Itoa(current.ID), "--mkjournal"); err != nil {
		return nil, err
	}
	updated := *current
	updated.JournalGUID = c.p.JournalGUID
	return &updated, nil
}

func (c *osdConverger) Delete(context.Context, *OSD) error { return converge.ErrUnsupported }

// osdFstabLine is the mount entry of an activated OSD.
func osdFstabLine(fsUUID, dir string) string {
	return fstab.Entry{Spec: "UUID=" + fsUUID, File: dir, VfsType: "xfs", MntOps: osdMountOpts}.String()
}

// rewriteFstab replaces the ceph entries with the known ones plus the newly
// activated OSDs.
func rewriteFstab(root fileutils.Root, activated []*OSD, devices []BcacheDevice) error {
	tab, err := fstab.Read(root)
	if err != nil {
		return err
	}
	lines := tab.Grep("ceph")
	for _, osd := range activated {
		lines = append(lines, osdFstabLine(osd.UUID, osd.Dir))
	}

	tab.RemoveMatching("ceph")
	for _, l := range lines {
		if slices.ContainsFunc(devices, func(d BcacheDevice) bool { return strings.Contains(l, d.UUID) }) {
			tab.Append(l)
		}
	}
	return tab.Write(root)
}

// BcacheModule activates the OSDs living on bcache devices.
func BcacheModule(runner command.Runner, root fileutils.Root) ansible.Module {
	return ansible.Module{Name: BcacheModuleName, Run: func(ctx context.Context, args *ansible.Args) (*ansible.Result, error) {
		p := BcacheParams{OSDDataDir: defaultDataDir}
		if err := args.Decode(&p); err != nil {
			return nil, err
		}
		if _, err := uuid.Parse(p.JournalGUID); err != nil {
			return nil, fmt.Errorf("invalid journal_guid %q: %w", p.JournalGUID, err)
		}

		devices, err := ScanBcache(root, len(p.Disks))
		if err != nil {
			return nil, err
		}
		ids, err := osdIDs(ctx, runner)
		if err != nil {
			return nil, err
		}

		var (
			changed   bool
			action    = converge.ActionNone
			activated []*OSD
			osds      []map[string]any
		)
		for _, dev := range devices {
			c := &osdConverger{runner: runner, root: root, p: p, dev: dev}
			c.id, c.known = ids[strings.ToLower(dev.UUID)]

			logger := loggerutils.WithResource("osd", dev.UUID).With().Int("bcache", dev.Index).Logger()
			res, err := converge.Reconcile[OSD](ctx, c, args.ConvergeOptions(string(converge.Present), logger))
			if err != nil {
				return nil, fmt.Errorf("failed to activate osd on %s: %w", c.bcacheDevice(), err)
			}
			changed = changed || res.Changed
			if res.Action != converge.ActionNone {
				action = res.Action
			}
			if res.Action == converge.ActionCreate && !args.CheckMode {
				activated = append(activated, res.Resource)
			}
			osds = append(osds, osdReport(dev, c, res, logger))
		}

		if len(activated) > 0 {
			if err := rewriteFstab(root, activated, devices); err != nil {
				return nil, err
			}
		}

		return ansible.NewResult(changed).Action(action).Set("osds", osds), nil
	}}
}

func osdReport(dev BcacheDevice, c *osdConverger, res converge.Result[OSD], logger zerolog.Logger) map[string]any {
	r := map[string]any{"uuid": dev.UUID, "bcache": dev.Index, "action": string(res.Action)}
	if c.known {
		r["id"] = c.id
		r["dir"] = c.dir(c.id)
	}
	logger.Debug().Interface("osd", r).Msg("OSD converged")
	return r
}
