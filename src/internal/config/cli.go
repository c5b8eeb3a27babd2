// FILE: logweave/src/internal/config/cli.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"logweave/src/internal/core"

	lconfig "github.com/lixenwraith/config"
)

// CLIConfig holds the settings of the logweave command itself. Engine properties
// live in the property files it points to.
type CLIConfig struct {
	// Property files, comma separated; empty uses discovery
	Properties string `toml:"properties"`

	// Tag attached to every entry read from stdin
	Tag string `toml:"tag"`

	// Level for lines without a recognizable level keyword
	DefaultLevel string `toml:"default_level"`

	// Maximum time spent draining writer queues on shutdown
	DrainTimeoutMs int64 `toml:"drain_timeout_ms"`

	Diag *DiagConfig `toml:"diag"`
}

func defaults() *CLIConfig {
	return &CLIConfig{
		Tag:            "stdin",
		DefaultLevel:   "info",
		DrainTimeoutMs: 5000,
		Diag:           DefaultDiagConfig(),
	}
}

// LoadWithCLI resolves CLI settings from defaults, settings file, environment and arguments
func LoadWithCLI(cliArgs []string) (*CLIConfig, error) {
	configPath := GetConfigPath()

	cfg, err := lconfig.NewBuilder().
		WithDefaults(defaults()).
		WithEnvPrefix("LOGWEAVE_").
		WithFile(configPath).
		WithArgs(cliArgs).
		WithEnvTransform(customEnvTransform).
		WithSources(
			lconfig.SourceCLI,
			lconfig.SourceEnv,
			lconfig.SourceFile,
			lconfig.SourceDefault,
		).
		Build()

	if err != nil {
		if !strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	finalConfig := &CLIConfig{}
	if err := cfg.Scan(finalConfig, ""); err != nil {
		return nil, fmt.Errorf("failed to scan config: %w", err)
	}

	return finalConfig, finalConfig.validate()
}

func customEnvTransform(path string) string {
	env := strings.ReplaceAll(path, ".", "_")
	env = strings.ToUpper(env)
	env = "LOGWEAVE_" + env
	return env
}

// GetConfigPath locates the CLI settings file
func GetConfigPath() string {
	if configFile := os.Getenv("LOGWEAVE_CONFIG_FILE"); configFile != "" {
		if filepath.IsAbs(configFile) {
			return configFile
		}
		if configDir := os.Getenv("LOGWEAVE_CONFIG_DIR"); configDir != "" {
			return filepath.Join(configDir, configFile)
		}
		return configFile
	}

	if configDir := os.Getenv("LOGWEAVE_CONFIG_DIR"); configDir != "" {
		return filepath.Join(configDir, "logweave-cli.toml")
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "logweave-cli.toml")
	}

	return "logweave-cli.toml"
}

// PropertyFiles returns the configured property files
func (c *CLIConfig) PropertyFiles() []string {
	return SplitList(c.Properties)
}

func (c *CLIConfig) validate() error {
	if err := lconfig.NonEmpty(c.Tag); err != nil {
		return fmt.Errorf("tag: %w", err)
	}

	if _, err := core.ParseLevel(c.DefaultLevel); err != nil {
		return fmt.Errorf("default_level: %w", err)
	}

	if c.DrainTimeoutMs < 0 {
		return fmt.Errorf("drain_timeout_ms must not be negative: %d", c.DrainTimeoutMs)
	}

	if c.Diag == nil {
		c.Diag = DefaultDiagConfig()
	}
	return validateDiagConfig(c.Diag)
}
