// FILE: logweave/src/internal/plugin/plugin.go
package plugin

import (
	"fmt"
	"sort"
	"sync"

	"logweave/src/internal/format"
	"logweave/src/internal/writer"
)

// Module is the extension point for placeholders and writers. Modules register
// themselves from an init function; Discover enumerates all of them.
type Module interface {
	Name() string
	Placeholders() []format.Builder
	Writers() []writer.Factory
}

var (
	mu      sync.RWMutex
	modules = make(map[string]Module)
)

func init() {
	Register(Builtin())
}

// Register makes a module visible to Discover. It panics on a nil module or a
// module name registered twice.
func Register(m Module) {
	mu.Lock()
	defer mu.Unlock()

	if m == nil {
		panic("plugin: Register module is nil")
	}
	name := m.Name()
	if _, dup := modules[name]; dup {
		panic("plugin: Register called twice for module " + name)
	}
	modules[name] = m
}

// Registered returns all registered modules ordered by name
func Registered() []Module {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Module, 0, len(names))
	for _, name := range names {
		out = append(out, modules[name])
	}
	return out
}

// Set holds the registries built from discovered modules
type Set struct {
	Placeholders *format.Registry
	Writers      *writer.Registry
	Modules      []string
}

// Discover builds placeholder and writer registries from every registered module
// plus extra. A name provided by two modules is an error naming both.
func Discover(extra ...Module) (*Set, error) {
	mods := Registered()
	seenModule := make(map[string]bool, len(mods)+len(extra))
	for _, m := range mods {
		seenModule[m.Name()] = true
	}
	for _, m := range extra {
		if m == nil {
			continue
		}
		if seenModule[m.Name()] {
			return nil, fmt.Errorf("module %q is already registered", m.Name())
		}
		seenModule[m.Name()] = true
		mods = append(mods, m)
	}

	var (
		builders    []format.Builder
		factories   []writer.Factory
		placeholder = make(map[string]string)
		writers     = make(map[string]string)
		names       = make([]string, 0, len(mods))
	)
	for _, m := range mods {
		names = append(names, m.Name())
		for _, b := range m.Placeholders() {
			if owner, dup := placeholder[b.Name()]; dup {
				return nil, fmt.Errorf("placeholder %q provided by both module %q and module %q", b.Name(), owner, m.Name())
			}
			placeholder[b.Name()] = m.Name()
			builders = append(builders, b)
		}
		for _, f := range m.Writers() {
			if owner, dup := writers[f.Name()]; dup {
				return nil, fmt.Errorf("writer %q provided by both module %q and module %q", f.Name(), owner, m.Name())
			}
			writers[f.Name()] = m.Name()
			factories = append(factories, f)
		}
	}

	placeholders, err := format.NewRegistry(builders...)
	if err != nil {
		return nil, err
	}
	writerRegistry, err := writer.NewRegistry(factories...)
	if err != nil {
		return nil, err
	}
	return &Set{Placeholders: placeholders, Writers: writerRegistry, Modules: names}, nil
}

// Builtin is the module providing everything shipped with the engine
func Builtin() Module {
	return &StaticModule{
		ModuleName:        "builtin",
		PlaceholderList:   format.Builtins(),
		WriterFactoryList: writer.Builtins(),
	}
}

// StaticModule is a Module over fixed lists
type StaticModule struct {
	ModuleName        string
	PlaceholderList   []format.Builder
	WriterFactoryList []writer.Factory
}

func (m *StaticModule) Name() string                   { return m.ModuleName }
func (m *StaticModule) Placeholders() []format.Builder { return m.PlaceholderList }
func (m *StaticModule) Writers() []writer.Factory      { return m.WriterFactoryList }
