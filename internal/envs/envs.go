package envs

import (
	"os"
	"strconv"
)

var (
	//Golang log level
	LogLevel = GetOrDefault("GOLANG_LOG", "info")
	// FSRoot is prepended to every path a module reads or writes on the host.
	// Used to run the modules against a chroot or a test directory.
	FSRoot = GetOrDefault("URSULA_FS_ROOT", "/")
	// MetricsDir is the node_exporter textfile collector directory. Each module
	// writes its last run to ursula_<module>.prom there. Metrics are not written
	// when left empty.
	MetricsDir = os.Getenv("URSULA_METRICS_DIR")
	// CloudsFile overrides the clouds.yaml search path.
	CloudsFile = os.Getenv("OS_CLIENT_CONFIG_FILE")
	// CommandTimeout is the number of seconds after which a subprocess is killed.
	// 0 disables the timeout.
	CommandTimeout = GetIntOrDefault("URSULA_COMMAND_TIMEOUT", 0)
)

// GetOrDefault returns the value of the env variable or the default if unset.
func GetOrDefault(envKey string, defaultVal string) string {
	if v, ok := os.LookupEnv(envKey); ok && v != "" {
		return v
	}
	return defaultVal
}

// GetIntOrDefault returns the integer value of the env variable or the default
// if unset or not a number.
func GetIntOrDefault(envKey string, defaultVal int) int {
	v, ok := os.LookupEnv(envKey)
	if !ok {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}
