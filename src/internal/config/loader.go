// FILE: logweave/src/internal/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultPropertyFile is looked up in the working directory when no file is configured
	DefaultPropertyFile = "logweave.toml"
	// PropertiesEnv lists property files separated by the OS path list separator
	PropertiesEnv = "LOGWEAVE_PROPERTIES"
	// DefaultEnvPrefix marks environment variables that override single properties
	DefaultEnvPrefix = "LOGWEAVE_PROP_"
)

// Loader populates a Store from layered sources. Later layers win:
// defaults, property files, environment, overrides.
type Loader struct {
	Defaults map[string]string

	// Files are read in order; when empty, DiscoverPropertyFiles decides
	Files []string

	// EnvPrefix selects overriding variables, empty disables the environment layer
	EnvPrefix string
	// Environ defaults to os.Environ
	Environ func() []string

	Overrides map[string]string
}

// NewLoader returns a loader with discovered property files and the default env prefix
func NewLoader() *Loader {
	return &Loader{
		EnvPrefix: DefaultEnvPrefix,
	}
}

// Load resolves all layers and applies them to store as a single update
func (l *Loader) Load(store *Store) error {
	resolved := make(map[string]string)
	for k, v := range l.Defaults {
		resolved[k] = v
	}

	files := l.Files
	if len(files) == 0 {
		files = DiscoverPropertyFiles()
	}
	for _, path := range files {
		props, err := ReadPropertyFile(path)
		if err != nil {
			return err
		}
		for k, v := range props {
			resolved[k] = v
		}
	}

	if l.EnvPrefix != "" {
		environ := l.Environ
		if environ == nil {
			environ = os.Environ
		}
		for k, v := range envProperties(environ(), l.EnvPrefix) {
			resolved[k] = v
		}
	}

	for k, v := range l.Overrides {
		resolved[k] = v
	}

	return store.SetAll(resolved)
}

// DiscoverPropertyFiles returns the files named by LOGWEAVE_PROPERTIES, or the default
// property file of the working directory if it exists
func DiscoverPropertyFiles() []string {
	if list := os.Getenv(PropertiesEnv); list != "" {
		var files []string
		for _, f := range filepath.SplitList(list) {
			if f = strings.TrimSpace(f); f != "" {
				files = append(files, f)
			}
		}
		return files
	}

	if _, err := os.Stat(DefaultPropertyFile); err == nil {
		return []string{DefaultPropertyFile}
	}
	return nil
}

// ReadPropertyFile decodes a TOML file and flattens its tables into dotted keys.
// Arrays become comma lists, scalars their canonical text.
func ReadPropertyFile(path string) (map[string]string, error) {
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("failed to read property file %s: %w", path, err)
	}

	out := make(map[string]string)
	flatten("", raw, out)
	return out, nil
}

// ParseProperties decodes TOML text the same way ReadPropertyFile does
func ParseProperties(data string) (map[string]string, error) {
	var raw map[string]any
	if _, err := toml.Decode(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse properties: %w", err)
	}

	out := make(map[string]string)
	flatten("", raw, out)
	return out, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case []any:
			parts := make([]string, 0, len(val))
			for _, item := range val {
				parts = append(parts, fmt.Sprint(item))
			}
			out[key] = strings.Join(parts, ", ")
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// envProperties maps PREFIX_WRITER_MESSAGE__PATTERN to writer.message-pattern:
// single underscores become dots, double underscores dashes.
func envProperties(environ []string, prefix string) map[string]string {
	out := make(map[string]string)
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok || rest == "" {
			continue
		}
		key := strings.ToLower(rest)
		key = strings.ReplaceAll(key, "__", "-")
		key = strings.ReplaceAll(key, "_", ".")
		out[key] = value
	}
	return out
}

// SortedKeys is a helper for deterministic iteration over property maps
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
