package metrics

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ModuleLabel = "module"
	ResultLabel = "result"
	ActionLabel = "action"
)

const (
	ResultOK      = "ok"
	ResultChanged = "changed"
	ResultFailed  = "failed"
)

var results = []string{ResultOK, ResultChanged, ResultFailed}

// Every invocation is its own process, so only gauges describing the last run
// are exported. Counting runs is left to the collector.
var (
	LastResult = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ursula_module_last_result",
			Help: "Outcome of the last invocation of the module, 1 for the result it had and 0 for the others.",
		},
		[]string{ModuleLabel, ResultLabel},
	)

	LastDuration = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ursula_module_last_run_duration_seconds",
			Help: "Duration of the last invocation of the module in seconds.",
		},
		[]string{ModuleLabel},
	)

	Changed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ursula_module_changed",
			Help: "Whether the last invocation of the module changed anything (1) or not (0).",
		},
		[]string{ModuleLabel},
	)

	LastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ursula_module_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last invocation of the module.",
		},
		[]string{ModuleLabel, ActionLabel},
	)
)

// NewRegistry returns a private registry holding the module collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(LastResult, LastDuration, Changed, LastRun)
	return reg
}

// Observe records the outcome of a single module invocation.
func Observe(module, action string, changed bool, err error, started time.Time) {
	result := ResultOK
	switch {
	case err != nil:
		result = ResultFailed
	case changed:
		result = ResultChanged
	}
	if action == "" {
		action = "none"
	}

	for _, r := range results {
		v := 0.0
		if r == result {
			v = 1
		}
		LastResult.WithLabelValues(module, r).Set(v)
	}
	LastDuration.WithLabelValues(module).Set(time.Since(started).Seconds())
	LastRun.WithLabelValues(module, action).SetToCurrentTime()

	v := 0.0
	if changed {
		v = 1
	}
	Changed.WithLabelValues(module).Set(v)
}

// TextfileName is the file a module's metrics are written to, so modules do
// not overwrite each other's last run.
func TextfileName(module string) string {
	return "ursula_" + module + ".prom"
}

// WriteTextfile writes every collector of reg to the module's file in dir in
// the node_exporter textfile format. An empty dir is a no-op.
func WriteTextfile(reg *prometheus.Registry, dir, module string) error {
	if dir == "" {
		return nil
	}
	path := filepath.Join(dir, TextfileName(module))
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
