package swift

import (
	"context"
	"fmt"
	"path"

	"github.com/blueboxgroup/ursula/internal/ansible"
	"github.com/blueboxgroup/ursula/internal/command"
	"github.com/blueboxgroup/ursula/internal/converge"
	"github.com/blueboxgroup/ursula/internal/fileutils"
	"github.com/blueboxgroup/ursula/internal/loggerutils"
)

const (
	RingModuleName = "swift_ring"

	ringBuilder = "swift-ring-builder"
	// ringWarning is the exit status swift-ring-builder uses for warnings,
	// e.g. a rebalance that moved fewer partitions than asked.
	ringWarning = 1
)

type RingParams struct {
	Action       string          `json:"action" validate:"required,oneof=create add rebalance"`
	RingType     string          `json:"ring_type" validate:"required,oneof=account container object"`
	BuilderFile  string          `json:"builder_file" validate:"required"`
	PartPower    ansible.String  `json:"part_power" validate:"required_if=Action create"`
	Replicas     ansible.String  `json:"replicas" validate:"required_if=Action create"`
	MinPartHours ansible.String  `json:"min_part_hours" validate:"required_if=Action create"`
	Zone         ansible.String  `json:"zone" validate:"required_if=Action add"`
	IP           string          `json:"ip" validate:"required_if=Action add"`
	Port         ansible.String  `json:"port" validate:"required_if=Action add"`
	DeviceName   string          `json:"device_name" validate:"required_if=Action add"`
	Meta         *ansible.String `json:"meta"`
	Weight       ansible.String  `json:"weight" validate:"required_if=Action add"`
	Force        ansible.Bool    `json:"force"`
	RingDir      string          `json:"ring_dir"`
}

// Device returns the search value and device string of the add action,
// z<zone>-<ip>:<port>/<device>_<meta>. Rings built before carry "None" as the
// meta of devices added without one, so an unset meta keeps that spelling.
func (p RingParams) Device() string {
	meta := "None"
	if p.Meta != nil {
		meta = string(*p.Meta)
	}
	return fmt.Sprintf("z%s-%s:%s/%s_%s", p.Zone, p.IP, p.Port, p.DeviceName, meta)
}

// RingStep is a builder step that has already been done.
type RingStep struct {
	Action string `json:"action"`
	Target string `json:"target"`
}

// ringConverger treats each action as a resource that exists once the step
// has been done. force makes every step look undone.
type ringConverger struct {
	runner command.Runner
	root   fileutils.Root
	p      RingParams
}

func (c *ringConverger) builder(ctx context.Context, args ...string) (command.Output, error) {
	out, err := c.runner.Run(ctx, ringBuilder, append([]string{c.p.BuilderFile}, args...)...)
	if command.IsExitCode(err, ringWarning) {
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("error running swift-ring-builder: %w", err)
	}
	return out, nil
}

func (c *ringConverger) target() string {
	switch c.p.Action {
	case "add":
		return c.p.Device()
	case "rebalance":
		return path.Join(c.p.RingDir, c.p.RingType+".ring.gz")
	}
	return c.p.BuilderFile
}

func (c *ringConverger) Probe(ctx context.Context) (*RingStep, error) {
	if c.p.Force {
		return nil, nil
	}
	done := RingStep{Action: c.p.Action, Target: c.target()}
	switch c.p.Action {
	case "add":
		if !c.root.Exists(c.p.BuilderFile) {
			return nil, nil
		}
		_, err := c.runner.Run(ctx, ringBuilder, c.p.BuilderFile, "search", c.p.Device())
		if command.IsExitCode(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &done, nil
	default:
		if c.root.Exists(done.Target) {
			return &done, nil
		}
		return nil, nil
	}
}

func (c *ringConverger) Diff(*RingStep) converge.Diff { return nil }

func (c *ringConverger) Create(ctx context.Context) (*RingStep, error) {
	var err error
	switch c.p.Action {
	case "create":
		_, err = c.builder(ctx, "create", string(c.p.PartPower), string(c.p.Replicas), string(c.p.MinPartHours))
	case "add":
		_, err = c.builder(ctx, "add", c.p.Device(), string(c.p.Weight))
	case "rebalance":
		_, err = c.builder(ctx, "rebalance")
	}
	if err != nil {
		return nil, err
	}
	return &RingStep{Action: c.p.Action, Target: c.target()}, nil
}

func (c *ringConverger) Update(context.Context, *RingStep) (*RingStep, error) {
	return nil, converge.ErrUnsupported
}

func (c *ringConverger) Delete(context.Context, *RingStep) error {
	return converge.ErrUnsupported
}

// RingModule runs one swift-ring-builder step: create, add or rebalance.
func RingModule(runner command.Runner, root fileutils.Root) ansible.Module {
	return ansible.Module{Name: RingModuleName, Run: func(ctx context.Context, args *ansible.Args) (*ansible.Result, error) {
		p := RingParams{RingDir: "/etc/swift"}
		if err := args.Decode(&p); err != nil {
			return nil, err
		}

		c := &ringConverger{runner: runner, root: root, p: p}
		logger := loggerutils.WithResource("swift_ring", p.RingType).With().Str("action", p.Action).Logger()
		res, err := converge.Reconcile[RingStep](ctx, c, args.ConvergeOptions(string(converge.Present), logger))
		if err != nil {
			return nil, err
		}
		return ansible.Report(args, res).Set("target", c.target()), nil
	}}
}
