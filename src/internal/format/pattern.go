// FILE: logweave/src/internal/format/pattern.go
package format

import (
	"fmt"
	"sort"
	"strings"

	"logweave/src/internal/core"
)

// Placeholder renders one value of a log entry. Implementations are bound to their
// parameters at build time and must be safe for concurrent use.
type Placeholder interface {
	Render(sb *strings.Builder, e *core.LogEntry)

	// Fields declares the expensive entry values the placeholder reads
	Fields() core.Fields
}

// Builder creates placeholders for one name
type Builder interface {
	Name() string
	Build(p Params) (Placeholder, error)
}

// Registry maps placeholder names to builders. It is read-only after construction.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry indexes builders by name, rejecting duplicates
func NewRegistry(builders ...Builder) (*Registry, error) {
	r := &Registry{builders: make(map[string]Builder, len(builders))}
	for _, b := range builders {
		name := b.Name()
		if name == "" {
			return nil, fmt.Errorf("placeholder builder %T has no name", b)
		}
		if _, exists := r.builders[name]; exists {
			return nil, fmt.Errorf("duplicate placeholder name: %s", name)
		}
		r.builders[name] = b
	}
	return r, nil
}

// Lookup returns the builder registered under name
func (r *Registry) Lookup(name string) (Builder, bool) {
	b, ok := r.builders[name]
	return b, ok
}

// Names returns all registered names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compile resolves every token of pattern into a render node. Unknown names and
// rejected parameters fail with a PatternSyntaxError.
func (r *Registry) Compile(pattern string) (*Pattern, error) {
	tokens, err := Tokenize(pattern)
	if err != nil {
		return nil, err
	}

	p := &Pattern{source: pattern, nodes: make([]Node, 0, len(tokens))}
	for _, tok := range tokens {
		if tok.Kind == TokenLiteral {
			p.nodes = append(p.nodes, Node{Literal: tok.Text})
			continue
		}

		b, ok := r.builders[tok.Name]
		if !ok {
			return nil, &core.PatternSyntaxError{
				Pattern: pattern,
				Pos:     tok.Pos,
				Reason:  "unresolved placeholder",
				Err:     &core.UnknownPlaceholderError{Name: tok.Name},
			}
		}
		ph, err := b.Build(tok.Param)
		if err != nil {
			return nil, &core.PatternSyntaxError{
				Pattern: pattern,
				Pos:     tok.Pos,
				Reason:  fmt.Sprintf("invalid parameter for {%s}", tok.Name),
				Err:     err,
			}
		}
		p.nodes = append(p.nodes, Node{Name: tok.Name, Placeholder: ph})
		p.fields |= ph.Fields()
	}

	return p, nil
}

// Node is a literal fragment or a resolved placeholder
type Node struct {
	Literal     string
	Name        string
	Placeholder Placeholder
}

// IsLiteral reports whether the node copies fixed text
func (n Node) IsLiteral() bool { return n.Placeholder == nil }

// Pattern is a compiled format pattern
type Pattern struct {
	source string
	nodes  []Node
	fields core.Fields
}

// Render returns the text of e according to the pattern
func (p *Pattern) Render(e *core.LogEntry) string {
	var sb strings.Builder
	p.AppendTo(&sb, e)
	return sb.String()
}

// AppendTo renders e into sb
func (p *Pattern) AppendTo(sb *strings.Builder, e *core.LogEntry) {
	for i := range p.nodes {
		n := &p.nodes[i]
		if n.Placeholder == nil {
			sb.WriteString(n.Literal)
			continue
		}
		n.Placeholder.Render(sb, e)
	}
}

// Nodes returns a copy of the compiled nodes
func (p *Pattern) Nodes() []Node {
	out := make([]Node, len(p.nodes))
	copy(out, p.nodes)
	return out
}

// Fields is the union of all placeholder field requirements
func (p *Pattern) Fields() core.Fields { return p.fields }

func (p *Pattern) String() string { return p.source }

type patternPlaceholder struct{ p *Pattern }

func (pp patternPlaceholder) Render(sb *strings.Builder, e *core.LogEntry) { pp.p.AppendTo(sb, e) }
func (pp patternPlaceholder) Fields() core.Fields                          { return pp.p.fields }

// AsPlaceholder exposes a compiled pattern through the Placeholder interface so it can be
// wrapped, e.g. by Truncate
func AsPlaceholder(p *Pattern) Placeholder { return patternPlaceholder{p} }
