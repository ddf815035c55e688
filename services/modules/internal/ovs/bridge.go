// Package ovs manages Open vSwitch bridges through ovs-vsctl.
package ovs

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/blueboxgroup/ursula/internal/ansible"
	"github.com/blueboxgroup/ursula/internal/command"
	"github.com/blueboxgroup/ursula/internal/converge"
	"github.com/blueboxgroup/ursula/internal/loggerutils"
)

const BridgeModuleName = "ovs_bridge"

var ErrNoVsctl = errors.New("ovs-vsctl could not be found")

type BridgeParams struct {
	Name  string `json:"name" validate:"required,wordstart"`
	State string `json:"state" validate:"oneof=present absent"`
}

// Bridge is an existing OVS bridge.
type Bridge struct {
	Name string
}

type bridgeConverger struct {
	runner command.Runner
	vsctl  string
	name   string
}

func (c *bridgeConverger) Probe(ctx context.Context) (*Bridge, error) {
	out, err := c.runner.Run(ctx, c.vsctl, "list-br")
	if err != nil {
		return nil, err
	}
	if slices.Contains(out.Lines(), c.name) {
		return &Bridge{Name: c.name}, nil
	}
	return nil, nil
}

func (c *bridgeConverger) Diff(*Bridge) converge.Diff { return nil }

func (c *bridgeConverger) Create(ctx context.Context) (*Bridge, error) {
	if _, err := c.runner.Run(ctx, c.vsctl, "add-br", c.name); err != nil {
		return nil, fmt.Errorf("failed to create bridge: %w", err)
	}
	return &Bridge{Name: c.name}, nil
}

func (c *bridgeConverger) Update(context.Context, *Bridge) (*Bridge, error) {
	return nil, converge.ErrUnsupported
}

func (c *bridgeConverger) Delete(ctx context.Context, _ *Bridge) error {
	if _, err := c.runner.Run(ctx, c.vsctl, "del-br", c.name); err != nil {
		return fmt.Errorf("failed to delete bridge: %w", err)
	}
	return nil
}

// BridgeModule adds or deletes an OVS bridge.
func BridgeModule(runner command.Runner) ansible.Module {
	return ansible.Module{Name: BridgeModuleName, Run: func(ctx context.Context, args *ansible.Args) (*ansible.Result, error) {
		p := BridgeParams{State: string(converge.Present)}
		if err := args.Decode(&p); err != nil {
			return nil, err
		}
		vsctl, err := runner.LookPath("ovs-vsctl")
		if err != nil {
			return nil, ErrNoVsctl
		}

		c := &bridgeConverger{runner: runner, vsctl: vsctl, name: p.Name}
		logger := loggerutils.WithResource("ovs_bridge", p.Name)
		res, err := converge.Reconcile[Bridge](ctx, c, args.ConvergeOptions(p.State, logger))
		if err != nil {
			return nil, fmt.Errorf("ovs_bridge error: %w", err)
		}

		result := "ok"
		if res.Changed {
			result = "changed"
		}
		return ansible.Report(args, res).Set("result", result), nil
	}}
}
