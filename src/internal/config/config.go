// FILE: logweave/src/internal/config/config.go
package config

import (
	"maps"
	"os"
	"sort"
	"strings"
	"sync"

	"logweave/src/internal/core"
	"logweave/src/internal/diag"
)

// Store is the engine's string keyed configuration. It is mutable until the first
// use of the logging pipeline freezes it; every read and write takes the same lock.
type Store struct {
	mu     sync.Mutex
	values map[string]string
	frozen bool
	diag   *diag.Channel
}

// NewStore creates an empty, mutable store. The channel receives the resolved
// property dump on Freeze and may be nil.
func NewStore(ch *diag.Channel) *Store {
	if ch == nil {
		ch = diag.Discard()
	}
	return &Store{
		values: make(map[string]string),
		diag:   ch,
	}
}

// Set stores value under key, overwriting any previous value
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return &core.FrozenConfigurationError{Key: key}
	}
	s.values[key] = value
	return nil
}

// SetAll applies all values as one update; readers never observe part of it
func (s *Store) SetAll(values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		for k := range values {
			return &core.FrozenConfigurationError{Key: k}
		}
		return nil
	}
	maps.Copy(s.values, values)
	return nil
}

// Value returns the value of key and whether it is set
func (s *Store) Value(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	return v, ok
}

// ValueOr returns the value of key or def when unset
func (s *Store) ValueOr(key, def string) string {
	if v, ok := s.Value(key); ok {
		return v
	}
	return def
}

// List splits the value of key by commas, trims elements and drops empty ones
func (s *Store) List(key string) []string {
	v, ok := s.Value(key)
	if !ok {
		return nil
	}
	return SplitList(v)
}

// SplitList is the comma list rule shared by List and writer parameters
func SplitList(v string) []string {
	var out []string
	for _, element := range strings.Split(v, ",") {
		if element = strings.TrimSpace(element); element != "" {
			out = append(out, element)
		}
	}
	return out
}

// Locale parses the value of key as language[_country[_variant]].
// An unset key falls back to the process locale from LC_ALL or LANG.
func (s *Store) Locale(key string) Locale {
	if v, ok := s.Value(key); ok {
		return ParseLocale(v)
	}
	return systemLocale()
}

// Subset returns every key below prefix with the prefix and its dot removed
func (s *Store) Subset(prefix string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := prefix + "."
	out := make(map[string]string)
	for k, v := range s.values {
		if rest, ok := strings.CutPrefix(k, p); ok && rest != "" {
			out[rest] = v
		}
	}
	return out
}

// Keys returns all keys in sorted order
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of all properties
func (s *Store) Snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.values)
}

func (s *Store) IsFrozen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frozen
}

// Freeze makes the store read-only. Only the first call reports the resolved properties.
func (s *Store) Freeze() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return
	}
	s.frozen = true
	s.diag.DumpProperties("config", s.values)
}

// Locale is a language, country and variant triple; unspecified parts are empty
type Locale struct {
	Language string
	Country  string
	Variant  string
}

// ParseLocale splits s at underscores into at most three parts
func ParseLocale(s string) Locale {
	tokens := strings.SplitN(strings.TrimSpace(s), "_", 3)
	var l Locale
	l.Language = tokens[0]
	if len(tokens) > 1 {
		l.Country = tokens[1]
	}
	if len(tokens) > 2 {
		l.Variant = tokens[2]
	}
	return l
}

func (l Locale) String() string {
	switch {
	case l.Variant != "":
		return l.Language + "_" + l.Country + "_" + l.Variant
	case l.Country != "":
		return l.Language + "_" + l.Country
	default:
		return l.Language
	}
}

func systemLocale() Locale {
	for _, env := range []string{"LC_ALL", "LANG"} {
		v := os.Getenv(env)
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		// Drop encoding and modifier: en_US.UTF-8@euro
		if i := strings.IndexAny(v, ".@"); i >= 0 {
			v = v[:i]
		}
		return ParseLocale(v)
	}
	return Locale{}
}
