// Package sensu writes sensu metric check definitions.
package sensu

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/blueboxgroup/ursula/internal/ansible"
	"github.com/blueboxgroup/ursula/internal/converge"
	"github.com/blueboxgroup/ursula/internal/fileutils"
	"github.com/blueboxgroup/ursula/internal/loggerutils"
)

const (
	MetricsCheckModuleName = "sensu_metrics_check"
	// ExecuteOnIP runs a command only on the host currently holding an address.
	ExecuteOnIP = "/etc/sensu/plugins/execute-on-ip.sh"
)

type MetricsCheckParams struct {
	Name      string             `json:"name" validate:"required"`
	Plugin    string             `json:"plugin" validate:"required"`
	Args      ansible.String     `json:"args"`
	UseSudo   ansible.Bool       `json:"use_sudo"`
	Tags      ansible.StringList `json:"tags"`
	PluginDir string             `json:"plugin_dir"`
	CheckDir  string             `json:"check_dir"`
	Prefix    string             `json:"prefix"`
	Interval  ansible.Int        `json:"interval" validate:"min=1"`
	OnlyOnIP  string             `json:"only_on_ip"`
	State     string             `json:"state" validate:"oneof=present absent"`
}

// Check is one sensu check definition. Field order follows the files sensu
// ships with.
type Check struct {
	Type       string   `json:"type"`
	Command    string   `json:"command"`
	Standalone bool     `json:"standalone"`
	Interval   int      `json:"interval"`
	Handlers   []string `json:"handlers"`
	Tags       []string `json:"tags"`
}

// CheckFile is the content of <check_dir>/<name>.json.
type CheckFile struct {
	Checks map[string]Check `json:"checks"`
}

func (p MetricsCheckParams) path() string {
	return path.Join(p.CheckDir, p.Name+".json")
}

// command builds the check command line: the plugin with its args, the
// prefix, sudo and finally the execute-on-ip wrapper when only_on_ip holds
// an IPv4 address.
func (p MetricsCheckParams) command() string {
	cmd := fmt.Sprintf("%s %s", path.Join(p.PluginDir, p.Plugin), p.Args)
	if p.Prefix != "" {
		cmd = p.Prefix + " " + cmd
	}
	if p.UseSudo {
		cmd = "sudo " + cmd
	}
	if isIPv4(p.OnlyOnIP) {
		cmd = fmt.Sprintf("%s -i %s -c '%s'", ExecuteOnIP, p.OnlyOnIP, cmd)
	}
	return cmd
}

// isIPv4 reports whether s is an IPv4 address in any of the forms inet_aton
// accepts: one to four parts, each decimal, octal (leading 0) or hex (0x),
// with the last part filling the remaining bytes, e.g. 10.1 or 0x0a000001.
func isIPv4(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) > 4 {
		return false
	}
	for i, part := range parts {
		if part == "" || strings.ContainsAny(part, "_+-") {
			return false
		}
		// strconv also knows 0o and 0b prefixes, inet_aton does not
		if l := strings.ToLower(part); strings.HasPrefix(l, "0o") || strings.HasPrefix(l, "0b") {
			return false
		}
		n, err := strconv.ParseUint(part, 0, 32)
		if err != nil {
			return false
		}
		limit := uint64(255)
		if i == len(parts)-1 {
			limit = 1<<(8*(5-len(parts))) - 1
		}
		if n > limit {
			return false
		}
	}
	return true
}

func (p MetricsCheckParams) check() Check {
	return Check{
		Type:       "metric",
		Command:    p.command(),
		Standalone: true,
		Interval:   int(p.Interval),
		Handlers:   []string{"metrics"},
		Tags:       p.Tags,
	}
}

// Render returns the check file indented by four spaces.
func Render(name string, c Check) ([]byte, error) {
	return json.MarshalIndent(CheckFile{Checks: map[string]Check{name: c}}, "", "    ")
}

type checkConverger struct {
	root fileutils.Root
	p    MetricsCheckParams
}

// Probe parses the existing check file. A file that is not a valid check
// definition is reported as an empty one so that it gets rewritten.
func (c *checkConverger) Probe(context.Context) (*CheckFile, error) {
	if !c.root.Exists(c.p.path()) {
		return nil, nil
	}
	data, err := c.root.ReadFile(c.p.path())
	if err != nil {
		return nil, err
	}
	var f CheckFile
	if err := json.Unmarshal(data, &f); err != nil {
		logger := loggerutils.WithResource("sensu_check", c.p.Name)
		logger.Warn().Err(err).Msg("existing check file is not valid JSON")
		return &CheckFile{}, nil
	}
	return &f, nil
}

func (c *checkConverger) Diff(current *CheckFile) converge.Diff {
	want := c.p.check()
	got := current.Checks[c.p.Name]
	names := make([]string, 0, len(current.Checks))
	for n := range current.Checks {
		names = append(names, n)
	}
	slices.Sort(names)
	return converge.Compare(
		converge.Field("checks", []string{c.p.Name}, names),
		converge.Field("type", want.Type, got.Type),
		converge.Field("command", want.Command, got.Command),
		converge.Field("standalone", want.Standalone, got.Standalone),
		converge.Field("interval", want.Interval, got.Interval),
		converge.Field("handlers", want.Handlers, got.Handlers),
		converge.Field("tags", []string(want.Tags), []string(got.Tags)),
	)
}

func (c *checkConverger) write() (*CheckFile, error) {
	data, err := Render(c.p.Name, c.p.check())
	if err != nil {
		return nil, err
	}
	if err := c.root.WriteFile(c.p.path(), data, 0o644); err != nil {
		return nil, err
	}
	return &CheckFile{Checks: map[string]Check{c.p.Name: c.p.check()}}, nil
}

func (c *checkConverger) Create(context.Context) (*CheckFile, error) { return c.write() }

func (c *checkConverger) Update(context.Context, *CheckFile) (*CheckFile, error) { return c.write() }

func (c *checkConverger) Delete(context.Context, *CheckFile) error {
	_, err := c.root.Remove(c.p.path())
	return err
}

// MetricsCheckModule writes or removes a standalone metric check.
func MetricsCheckModule(root fileutils.Root) ansible.Module {
	return ansible.Module{Name: MetricsCheckModuleName, Run: func(ctx context.Context, args *ansible.Args) (*ansible.Result, error) {
		p := MetricsCheckParams{
			PluginDir: "/etc/sensu/plugins",
			CheckDir:  "/etc/sensu/conf.d/checks",
			Interval:  60,
			State:     string(converge.Present),
		}
		if err := args.Decode(&p); err != nil {
			return nil, err
		}

		logger := loggerutils.WithResource("sensu_check", p.Name)
		res, err := converge.Reconcile[CheckFile](ctx, &checkConverger{root: root, p: p}, args.ConvergeOptions(p.State, logger))
		if err != nil {
			verb := "creating"
			if p.State == string(converge.Absent) {
				verb = "removing"
			}
			return nil, fmt.Errorf("%s the check failed: %w", verb, err)
		}

		result := "ok"
		switch res.Action {
		case converge.ActionCreate:
			result = "created"
		case converge.ActionUpdate, converge.ActionDelete:
			result = "changed"
		}
		r := ansible.Report(args, res).Set("result", result)
		if res.Resource != nil {
			r.Set("command", p.command())
		}
		return r, nil
	}}
}
