// FILE: logweave/src/internal/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProperties = `
level = "debug"
locale = "de_DE"

[writer]
type = "console"
message-pattern = "{level}: {message}"
stream = "stderr"

[writer2]
type = "rolling-file"
file = "logs/app-{count}.log"
policies = ["size: 10MB", "startup"]
queue-size = 128
`

func TestParseProperties(t *testing.T) {
	props, err := ParseProperties(sampleProperties)
	require.NoError(t, err)

	assert.Equal(t, "debug", props["level"])
	assert.Equal(t, "console", props["writer.type"])
	assert.Equal(t, "{level}: {message}", props["writer.message-pattern"])
	assert.Equal(t, "size: 10MB, startup", props["writer2.policies"])
	assert.Equal(t, "128", props["writer2.queue-size"])

	_, err = ParseProperties("level = ")
	assert.Error(t, err)
}

func TestLoader_Layers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logweave.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleProperties), 0644))

	l := &Loader{
		Defaults: map[string]string{
			"level":       "info",
			"autoshutdown": "true",
		},
		Files:     []string{path},
		EnvPrefix: "TEST_PROP_",
		Environ: func() []string {
			return []string{
				"TEST_PROP_WRITER_STREAM=stdout",
				"TEST_PROP_WRITER_MESSAGE__PATTERN={message}",
				"UNRELATED=1",
			}
		},
		Overrides: map[string]string{"level": "error"},
	}

	s := NewStore(nil)
	require.NoError(t, l.Load(s))

	assert.Equal(t, "error", s.ValueOr("level", ""), "override beats file and default")
	assert.Equal(t, "true", s.ValueOr("autoshutdown", ""), "default survives")
	assert.Equal(t, "stdout", s.ValueOr("writer.stream", ""), "environment beats file")
	assert.Equal(t, "{message}", s.ValueOr("writer.message-pattern", ""))
	assert.Equal(t, "rolling-file", s.ValueOr("writer2.type", ""))
	_, ok := s.Value("unrelated")
	assert.False(t, ok)
}

func TestLoader_MissingFile(t *testing.T) {
	l := &Loader{Files: []string{filepath.Join(t.TempDir(), "absent.toml")}}
	err := l.Load(NewStore(nil))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read property file")
}

func TestLoader_FrozenStore(t *testing.T) {
	s := NewStore(nil)
	s.Freeze()

	l := &Loader{Overrides: map[string]string{"level": "info"}}
	assert.Error(t, l.Load(s))
}

func TestDiscoverPropertyFiles(t *testing.T) {
	t.Setenv(PropertiesEnv, "a.toml"+string(os.PathListSeparator)+" b.toml ")
	assert.Equal(t, []string{"a.toml", "b.toml"}, DiscoverPropertyFiles())
}

func TestValidateDiagConfig(t *testing.T) {
	assert.NoError(t, validateDiagConfig(DefaultDiagConfig()))
	assert.Error(t, validateDiagConfig(&DiagConfig{Output: "file", Level: "info"}))
	assert.Error(t, validateDiagConfig(&DiagConfig{Output: "stderr", Level: "trace"}))
}

func TestCLIConfig_Validate(t *testing.T) {
	cfg := defaults()
	assert.NoError(t, cfg.validate())

	cfg.DefaultLevel = "loud"
	assert.Error(t, cfg.validate())

	cfg = defaults()
	cfg.Tag = ""
	assert.Error(t, cfg.validate())

	cfg = defaults()
	cfg.Properties = "a.toml, b.toml"
	assert.Equal(t, []string{"a.toml", "b.toml"}, cfg.PropertyFiles())
}
