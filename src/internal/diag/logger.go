// FILE: logweave/src/internal/diag/logger.go
package diag

import (
	"fmt"
	"strings"

	"github.com/lixenwraith/log"
)

// NewLogger initializes the logger behind a Channel.
// Output is one of "stderr", "stdout" or "none"; level is debug, info, warn or error.
func NewLogger(output, level string) (*log.Logger, error) {
	logger := log.NewLogger()

	levelValue, err := parseLogLevel(level)
	if err != nil {
		return nil, err
	}

	configArgs := []string{
		"disable_file=true",
		fmt.Sprintf("level=%d", levelValue),
	}

	switch output {
	case "none":
		configArgs = append(configArgs, "enable_console=false")
	case "stdout":
		configArgs = append(configArgs, "enable_console=true", "console_target=stdout")
	case "stderr", "":
		configArgs = append(configArgs, "enable_console=true", "console_target=stderr")
	default:
		return nil, fmt.Errorf("invalid diagnostic output: %s", output)
	}

	if err := logger.ApplyConfigString(configArgs...); err != nil {
		return nil, fmt.Errorf("failed to initialize diagnostic logger: %w", err)
	}
	if err := logger.Start(); err != nil {
		return nil, fmt.Errorf("failed to initialize diagnostic logger: %w", err)
	}
	return logger, nil
}

func parseLogLevel(level string) (int, error) {
	switch strings.ToLower(level) {
	case "debug":
		return int(log.LevelDebug), nil
	case "info":
		return int(log.LevelInfo), nil
	case "warn", "warning", "":
		return int(log.LevelWarn), nil
	case "error":
		return int(log.LevelError), nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", level)
	}
}
