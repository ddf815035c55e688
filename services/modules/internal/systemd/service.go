// Package systemd renders and installs systemd service units.
package systemd

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/blueboxgroup/ursula/internal/ansible"
	"github.com/blueboxgroup/ursula/internal/checksum"
	"github.com/blueboxgroup/ursula/internal/command"
	"github.com/blueboxgroup/ursula/internal/converge"
	"github.com/blueboxgroup/ursula/internal/fileutils"
	"github.com/blueboxgroup/ursula/internal/loggerutils"
	"github.com/blueboxgroup/ursula/internal/templateUtils"
)

const ServiceModuleName = "systemd_service"

//go:embed unit.tpl
var unitTemplate string

var unitTpl = templateUtils.MustLoadTemplate("systemd-unit", unitTemplate)

type ServiceParams struct {
	Name             string             `json:"name" validate:"required"`
	Cmd              string             `json:"cmd" validate:"required"`
	Environments     ansible.StringList `json:"environments"`
	EnvironmentFile  string             `json:"environment_file"`
	Args             ansible.String     `json:"args"`
	User             string             `json:"user"`
	Description      string             `json:"description"`
	After            string             `json:"after"`
	WantedBy         string             `json:"wanted_by"`
	Alias            string             `json:"alias"`
	Type             string             `json:"type" validate:"oneof=simple forking oneshot dbus notify idle"`
	Restart          string             `json:"restart" validate:"omitempty,oneof=always on-success on-failure on-abnormal on-abort on-watchdog"`
	RestartSecs      ansible.String     `json:"restart_secs"`
	NotifyAccess     string             `json:"notify_access" validate:"omitempty,oneof=none main all"`
	ConfigDirs       ansible.StringList `json:"config_dirs"`
	ConfigFiles      ansible.StringList `json:"config_files"`
	KillSignal       string             `json:"kill_signal"`
	State            string             `json:"state" validate:"oneof=present absent"`
	PrestartScript   string             `json:"prestart_script"`
	TimeoutStartSecs ansible.String     `json:"timeout_start_secs"`
	TimeoutStopSecs  ansible.String     `json:"timeout_stop_secs"`
	KillMode         string             `json:"kill_mode" validate:"omitempty,oneof=control-group process mixed none"`
	Pidfile          string             `json:"pidfile"`
	LimitNofile      ansible.String     `json:"limit_nofile"`
	Path             string             `json:"path"`
}

func (p ServiceParams) unitPath() string {
	if p.Path != "" {
		return p.Path
	}
	return "/etc/systemd/system/" + p.Name + ".service"
}

// Render returns the unit file for the service.
func Render(p ServiceParams) (string, error) {
	return templateUtils.GenerateToString(unitTpl, p)
}

// Unit is an installed unit file.
type Unit struct {
	Path   string `json:"path"`
	Digest string `json:"digest"`
}

type unitConverger struct {
	runner   command.Runner
	root     fileutils.Root
	path     string
	rendered string
}

func (c *unitConverger) Probe(context.Context) (*Unit, error) {
	if !c.root.Exists(c.path) {
		return nil, nil
	}
	data, err := c.root.ReadFile(c.path)
	if err != nil {
		return nil, err
	}
	return &Unit{Path: c.path, Digest: checksum.Hex(data)}, nil
}

func (c *unitConverger) Diff(current *Unit) converge.Diff {
	return converge.Compare(converge.Field("digest", checksum.Hex([]byte(c.rendered)), current.Digest))
}

func (c *unitConverger) reload(ctx context.Context) error {
	if _, err := c.runner.Run(ctx, "systemctl", "daemon-reload"); err != nil {
		return fmt.Errorf("systemctl daemon-reload: %w", err)
	}
	return nil
}

func (c *unitConverger) install(ctx context.Context) (*Unit, error) {
	if err := c.root.WriteFile(c.path, []byte(c.rendered), 0o644); err != nil {
		return nil, err
	}
	if err := c.reload(ctx); err != nil {
		return nil, err
	}
	return &Unit{Path: c.path, Digest: checksum.Hex([]byte(c.rendered))}, nil
}

func (c *unitConverger) Create(ctx context.Context) (*Unit, error) { return c.install(ctx) }

func (c *unitConverger) Update(ctx context.Context, _ *Unit) (*Unit, error) { return c.install(ctx) }

func (c *unitConverger) Delete(ctx context.Context, _ *Unit) error {
	if _, err := c.root.Remove(c.path); err != nil {
		return err
	}
	return c.reload(ctx)
}

// ServiceModule installs or removes a service unit and reloads systemd when
// the unit file changed.
func ServiceModule(runner command.Runner, root fileutils.Root) ansible.Module {
	return ansible.Module{Name: ServiceModuleName, Run: func(ctx context.Context, args *ansible.Args) (*ansible.Result, error) {
		p := ServiceParams{
			After:            "network.target syslog.target",
			WantedBy:         "multi-user.target",
			Type:             "simple",
			State:            string(converge.Present),
			TimeoutStartSecs: "120",
			TimeoutStopSecs:  "120",
		}
		if err := args.Decode(&p); err != nil {
			return nil, err
		}

		c := &unitConverger{runner: runner, root: root, path: p.unitPath()}
		if p.State == string(converge.Present) {
			var err error
			if c.rendered, err = Render(p); err != nil {
				return nil, err
			}
		}

		logger := loggerutils.WithResource("systemd_service", p.Name)
		res, err := converge.Reconcile[Unit](ctx, c, args.ConvergeOptions(p.State, logger))
		if err != nil {
			return nil, fmt.Errorf("creating the service failed: %w", err)
		}

		result := "ok"
		switch res.Action {
		case converge.ActionCreate, converge.ActionUpdate:
			result = "created"
		case converge.ActionDelete:
			result = "changed"
		}
		return ansible.Report(args, res).Set("result", result).Set("path", c.path), nil
	}}
}
