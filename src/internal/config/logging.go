// FILE: logweave/src/internal/config/logging.go
package config

import "fmt"

// DiagConfig configures the diagnostic channel of the CLI
type DiagConfig struct {
	// Output: "stdout", "stderr", "none"
	Output string `toml:"output"`

	// Level: "debug", "info", "warn", "error"
	Level string `toml:"level"`
}

// DefaultDiagConfig reports warnings and errors to stderr
func DefaultDiagConfig() *DiagConfig {
	return &DiagConfig{
		Output: "stderr",
		Level:  "warn",
	}
}

func validateDiagConfig(cfg *DiagConfig) error {
	validOutputs := map[string]bool{
		"stdout": true, "stderr": true, "none": true,
	}
	if !validOutputs[cfg.Output] {
		return fmt.Errorf("invalid diag output: %s", cfg.Output)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		return fmt.Errorf("invalid diag level: %s", cfg.Level)
	}

	return nil
}
