// FILE: logweave/src/internal/rotation/label.go
package rotation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"logweave/src/internal/format"
)

// LabelGenerator computes file names from a template such as "logs/{date:yyyy-MM-dd}-{count}.log".
// {date[:layout]} renders the rotation time, {count} the rotation counter and {pid} the
// process id. It is not safe for concurrent use; a File serializes access.
type LabelGenerator struct {
	parts []labelPart
	count int
	// exists is replaceable for tests
	exists func(path string) bool
}

// maxSuffix bounds the collision search when the directory cannot be inspected
const maxSuffix = 10000

type labelPart struct {
	literal string
	render  func(sb *strings.Builder, t time.Time, count int)
}

// NewLabelGenerator parses a file name template
func NewLabelGenerator(template string) (*LabelGenerator, error) {
	if strings.TrimSpace(template) == "" {
		return nil, errors.New("file name template is empty")
	}
	tokens, err := format.Tokenize(template)
	if err != nil {
		return nil, err
	}

	g := &LabelGenerator{exists: fileExists}
	for _, tok := range tokens {
		if tok.Kind == format.TokenLiteral {
			g.parts = append(g.parts, labelPart{literal: tok.Text})
			continue
		}

		switch tok.Name {
		case "date":
			pattern := format.DefaultDateLayout
			if tok.Param.Raw() != "" {
				pattern = tok.Param.Raw()
			}
			layout, err := format.CompileDateLayout(pattern)
			if err != nil {
				return nil, err
			}
			g.parts = append(g.parts, labelPart{render: func(sb *strings.Builder, t time.Time, _ int) {
				sb.WriteString(layout.Format(t))
			}})
		case "count":
			g.parts = append(g.parts, labelPart{render: func(sb *strings.Builder, _ time.Time, count int) {
				sb.WriteString(strconv.Itoa(count))
			}})
		case "pid":
			pid := strconv.Itoa(os.Getpid())
			g.parts = append(g.parts, labelPart{literal: pid})
		default:
			return nil, fmt.Errorf("unsupported file name placeholder {%s}", tok.Name)
		}
	}
	return g, nil
}

// Resolve renders the template for t with the current counter
func (g *LabelGenerator) Resolve(t time.Time) string {
	var sb strings.Builder
	for _, p := range g.parts {
		if p.render == nil {
			sb.WriteString(p.literal)
			continue
		}
		p.render(&sb, t, g.count)
	}
	return sb.String()
}

// Next advances the counter and returns a label for t that names no existing file
func (g *LabelGenerator) Next(t time.Time) (string, error) {
	g.count++
	return g.Unique(g.Resolve(t))
}

// Count returns the number of labels handed out by Next
func (g *LabelGenerator) Count() int { return g.count }

// Unique returns path, or path with a numeric suffix before its extension
// (app.log, app.1.log, app.2.log, ...) when path already exists. It fails once
// every suffix up to maxSuffix is taken.
func (g *LabelGenerator) Unique(path string) (string, error) {
	if !g.exists(path) {
		return path, nil
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 1; i <= maxSuffix; i++ {
		candidate := base + "." + strconv.Itoa(i) + ext
		if !g.exists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free file name for %s after %d suffixes", path, maxSuffix)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
