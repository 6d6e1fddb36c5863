// Package logs provides the common logging facility for the build helper.
// It supports plain stdout output and a GitHub Actions mode that keeps the
// runner's own log grouping and timestamps readable.
package logs

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// LogOutput defines the output destination for logs
type LogOutput string

const (
	// OutputStdout sends logs to standard output with timestamps
	OutputStdout LogOutput = "stdout"
	// OutputActions formats logs for a GitHub Actions runner: the runner
	// already timestamps every line, so timestamps are suppressed
	OutputActions LogOutput = "actions"
	// OutputAuto selects actions mode when running inside a runner,
	// otherwise stdout
	OutputAuto LogOutput = "auto"
)

// Logger wraps the charm log.Logger with additional configuration
type Logger struct {
	*log.Logger
	output LogOutput
}

// Config holds the configuration for the logger
type Config struct {
	// Output specifies where logs should be sent (stdout, actions, auto)
	Output LogOutput
	// Level sets the minimum log level (debug, info, warn, error)
	Level string
	// Prefix sets a prefix for all log messages
	Prefix string
}

// DefaultConfig returns a default configuration
func DefaultConfig() Config {
	return Config{
		Output: OutputAuto,
		Level:  "info",
		Prefix: "",
	}
}

// runnerDetected reports whether the process runs inside a GitHub Actions
// runner. The runner sets GITHUB_ACTIONS=true for every step.
func runnerDetected() bool {
	return strings.EqualFold(os.Getenv("GITHUB_ACTIONS"), "true")
}

// debugRequested reports whether the workflow was started with step debug
// logging enabled (RUNNER_DEBUG=1 or ACTIONS_STEP_DEBUG=true).
func debugRequested() bool {
	return os.Getenv("RUNNER_DEBUG") == "1" ||
		strings.EqualFold(os.Getenv("ACTIONS_STEP_DEBUG"), "true")
}

// parseLevel converts a string level to log.Level
func parseLevel(level string) log.Level {
	switch level {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// New creates a new Logger with the given configuration
func New(cfg Config) *Logger {
	var writer io.Writer = os.Stdout
	output := OutputStdout

	switch cfg.Output {
	case OutputActions:
		output = OutputActions
	case OutputAuto:
		if runnerDetected() {
			output = OutputActions
		}
	}

	level := parseLevel(cfg.Level)
	if output == OutputActions && debugRequested() {
		level = log.DebugLevel
	}

	logger := log.NewWithOptions(writer, log.Options{
		Level:           level,
		Prefix:          cfg.Prefix,
		ReportTimestamp: output != OutputActions,
		ReportCaller:    false,
	})

	return &Logger{
		Logger: logger,
		output: output,
	}
}

// NewDefault creates a new Logger with default configuration
func NewDefault() *Logger {
	return New(DefaultConfig())
}

// Output returns the current output destination
func (l *Logger) Output() LogOutput {
	return l.output
}
