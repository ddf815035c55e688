package ceph

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/blueboxgroup/ursula/internal/ansible"
	"github.com/blueboxgroup/ursula/internal/command"
	"github.com/blueboxgroup/ursula/internal/converge"
	"github.com/blueboxgroup/ursula/internal/loggerutils"
)

const PoolModuleName = "ceph_pool"

type PoolParams struct {
	PoolName        string      `json:"pool_name" validate:"required"`
	Osds            ansible.Int `json:"osds" validate:"min=1"`
	TargetPgsPerOsd ansible.Int `json:"target_pgs_per_osd" validate:"min=1"`
	MaxPgsPerOsd    ansible.Int `json:"max_pgs_per_osd" validate:"min=1"`
	PoolSize        ansible.Int `json:"pool_size" validate:"min=1"`
}

// Pool is a RADOS pool as reported by `ceph osd pool get`.
type Pool struct {
	Name  string
	PgNum int
}

// PgCount returns the placement group count for a new pool: the smallest
// power of two covering osds*target/size, halved while the resulting
// per-OSD count exceeds maxPerOsd.
func PgCount(osds, target, maxPerOsd, size int) int {
	total := float64(osds) * float64(target) / float64(size)
	count := 1
	for float64(count) < total {
		count *= 2
	}
	for count > 1 && float64(count)*float64(size)/float64(osds) > float64(maxPerOsd) {
		count /= 2
	}
	return count
}

type poolConverger struct {
	runner command.Runner
	name   string
	pgNum  int
}

func (c *poolConverger) Probe(ctx context.Context) (*Pool, error) {
	out, err := c.runner.Run(ctx, "ceph", "osd", "pool", "get", c.name, "pg_num", "-f", "json")
	if command.IsExitCode(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	pg := gjson.GetBytes(out.Stdout, "pg_num")
	if !pg.Exists() {
		return nil, fmt.Errorf("unexpected output from ceph osd pool get: %s", out.String())
	}
	return &Pool{Name: c.name, PgNum: int(pg.Int())}, nil
}

// Diff is always empty: the placement group count of an existing pool is
// never changed.
func (c *poolConverger) Diff(*Pool) converge.Diff { return nil }

func (c *poolConverger) Create(ctx context.Context) (*Pool, error) {
	pg := strconv.Itoa(c.pgNum)
	if _, err := c.runner.Run(ctx, "ceph", "osd", "pool", "create", c.name, pg, pg); err != nil {
		return nil, err
	}
	return &Pool{Name: c.name, PgNum: c.pgNum}, nil
}

func (c *poolConverger) Update(context.Context, *Pool) (*Pool, error) {
	return nil, converge.ErrUnsupported
}

func (c *poolConverger) Delete(context.Context, *Pool) error {
	return converge.ErrUnsupported
}

// PoolModule creates a pool sized for the cluster if it does not exist yet.
func PoolModule(runner command.Runner) ansible.Module {
	return ansible.Module{Name: PoolModuleName, Run: func(ctx context.Context, args *ansible.Args) (*ansible.Result, error) {
		p := PoolParams{PoolSize: 3}
		if err := args.Decode(&p); err != nil {
			return nil, err
		}

		c := &poolConverger{
			runner: runner,
			name:   p.PoolName,
			pgNum:  PgCount(int(p.Osds), int(p.TargetPgsPerOsd), int(p.MaxPgsPerOsd), int(p.PoolSize)),
		}
		logger := loggerutils.WithResource("ceph_pool", p.PoolName)
		res, err := converge.Reconcile[Pool](ctx, c, args.ConvergeOptions(string(converge.Present), logger))
		if err != nil {
			return nil, fmt.Errorf("failed to ensure pool %s: %w", p.PoolName, err)
		}

		r := ansible.Report(args, res).Set("pg_num", c.pgNum)
		if res.Action == converge.ActionCreate {
			r.Msg("new pool was created")
		} else if res.Resource != nil {
			r.Set("pg_num", res.Resource.PgNum)
		}
		return r, nil
	}}
}
