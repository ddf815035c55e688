package loggerutils

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zerologr"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/blueboxgroup/ursula/internal/envs"
)

// WithResource creates a new logger aware of the resource kind and its identity key.
func WithResource(kind, id string) zerolog.Logger {
	return logger.With().Str("resource", kind).Str("id", id).Logger()
}

// WithModule creates a new logger aware of the module being run.
func WithModule(module string) zerolog.Logger {
	return logger.With().Str("ansible_module", module).Logger()
}

// Logr bridges the given zerolog logger into a logr.Logger.
func Logr(l zerolog.Logger) logr.Logger {
	return zerologr.New(&l)
}

const defaultLogLevel = zerolog.InfoLevel

var (
	isLogInit = false
	// Available time formats https://pkg.go.dev/time#pkg-constants
	logTimeFormat = time.RFC3339 // c"2006-01-02T15:04:05Z07:00"
	logger        = zerolog.New(os.Stderr)
)

// Initialize the logging framework.
// Inputs are the golang module name used as a logging prefix
// and the env variable with the logging level.
// Logs always go to stderr, stdout belongs to the module result.
func Init(moduleName string) {
	if !isLogInit {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		// set log level from env variable
		logLevel, err := getLogLevelFromEnv()
		baseLogger := zerolog.New(os.Stderr)
		// create sub logger
		logger = baseLogger.With().Str("module", moduleName).Logger() // Add module name to log
		logger = logger.Level(logLevel).
			Output(zerolog.ConsoleWriter{
				Out:        os.Stderr,
				TimeFormat: logTimeFormat,
			}) // Prettify the output
		logger = logger.With().Timestamp().Logger() // Add time stamp
		if logLevel <= zerolog.DebugLevel {
			logger = logger.With().Caller().Logger() // Add caller (line number where log message was called)
		}
		if err != nil {
			logger.Err(err).Send()
		} else {
			logger.Debug().Msgf("Using log with the level \"%v\"", logLevel)
		}
		isLogInit = true
	}
	log.Logger = logger
}

// IsDebug reports whether subprocess output should be streamed to the log.
func IsDebug() bool {
	return logger.GetLevel() <= zerolog.DebugLevel
}

func getLogLevelFromEnv() (zerolog.Level, error) {
	logLevelStr := envs.LogLevel
	level, err := convertLogLevelStr(logLevelStr)
	if err != nil {
		return defaultLogLevel, fmt.Errorf("unsupported value \"%s\" for log level. Using log level \"%v\"", logLevelStr, defaultLogLevel)
	}
	return level, err
}

func convertLogLevelStr(logLevelStr string) (zerolog.Level, error) {
	levels := map[string]zerolog.Level{
		"disabled": zerolog.Disabled,
		"panic":    zerolog.PanicLevel,
		"fatal":    zerolog.FatalLevel,
		"error":    zerolog.ErrorLevel,
		"warn":     zerolog.WarnLevel,
		"info":     zerolog.InfoLevel,
		"debug":    zerolog.DebugLevel,
		"trace":    zerolog.TraceLevel,
	}
	res, ok := levels[strings.ToLower(logLevelStr)]
	if !ok {
		return defaultLogLevel, fmt.Errorf("unsupported log level %s", logLevelStr)
	}
	return res, nil
}
