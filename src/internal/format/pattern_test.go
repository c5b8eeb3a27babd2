// FILE: logweave/src/internal/format/pattern_test.go
package format

import (
	"errors"
	"strings"
	"testing"
	"time"

	"logweave/src/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(Builtins()...)
	require.NoError(t, err)
	return r
}

func TestTokenize(t *testing.T) {
	testCases := []struct {
		name     string
		pattern  string
		expected []Token
	}{
		{
			name:     "LiteralOnly",
			pattern:  "plain text",
			expected: []Token{{Kind: TokenLiteral, Text: "plain text", Pos: 0}},
		},
		{
			name:    "NameAndParameter",
			pattern: "a{ date : HH:mm }b",
			expected: []Token{
				{Kind: TokenLiteral, Text: "a", Pos: 0},
				{Kind: TokenPlaceholder, Text: "{ date : HH:mm }", Name: "date", Param: NewParams("HH:mm"), Pos: 1},
				{Kind: TokenLiteral, Text: "b", Pos: 17},
			},
		},
		{
			name:    "EscapedBraces",
			pattern: "{{x}} {level}",
			expected: []Token{
				{Kind: TokenLiteral, Text: "{x} ", Pos: 0},
				{Kind: TokenPlaceholder, Text: "{level}", Name: "level", Pos: 6},
			},
		},
		{
			name:    "NestedBracesInParameter",
			pattern: "{context:{id},-}",
			expected: []Token{
				{Kind: TokenPlaceholder, Text: "{context:{id},-}", Name: "context", Param: NewParams("{id},-"), Pos: 0},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tokens, err := Tokenize(tc.pattern)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, tokens)
		})
	}
}

func TestTokenize_SyntaxErrors(t *testing.T) {
	testCases := []struct {
		pattern string
		pos     int
		reason  string
	}{
		{pattern: "abc {level", pos: 4, reason: "unclosed '{'"},
		{pattern: "abc } def", pos: 4, reason: "unmatched '}'"},
		{pattern: "{ :x}", pos: 0, reason: "empty placeholder name"},
		{pattern: "{a{b}", pos: 0, reason: "unclosed '{'"},
	}

	for _, tc := range testCases {
		t.Run(tc.pattern, func(t *testing.T) {
			_, err := Tokenize(tc.pattern)
			var syntaxErr *core.PatternSyntaxError
			require.ErrorAs(t, err, &syntaxErr)
			assert.Equal(t, tc.pos, syntaxErr.Pos)
			assert.Equal(t, tc.reason, syntaxErr.Reason)
		})
	}
}

func TestParams_List(t *testing.T) {
	assert.Nil(t, Params{}.List())
	assert.Equal(t, []string{"a", "", "c"}, NewParams(" a ,, c").List())
}

func TestRegistry_Duplicates(t *testing.T) {
	_, err := NewRegistry(Builtins()[0], Builtins()[0])
	assert.ErrorContains(t, err, "duplicate placeholder name: date")
}

func TestCompile_NodeCount(t *testing.T) {
	r := newTestRegistry(t)

	p, err := r.Compile("[{level}] {tag}: {message} ({thread})")
	require.NoError(t, err)

	var placeholders, literals []string
	for _, n := range p.Nodes() {
		if n.IsLiteral() {
			literals = append(literals, n.Literal)
		} else {
			placeholders = append(placeholders, n.Name)
		}
	}
	assert.Equal(t, []string{"level", "tag", "message", "thread"}, placeholders)
	assert.Equal(t, []string{"[", "] ", ": ", " (", ")"}, literals)
	assert.Equal(t, core.FieldThread, p.Fields())

	e := core.NewEntryBuilder().Level(core.LevelWarn).Tag("db").Thread("7").Message("slow").Create()
	assert.Equal(t, "[WARN] db: slow (7)", p.Render(e))
}

func TestCompile_Errors(t *testing.T) {
	r := newTestRegistry(t)

	t.Run("UnknownPlaceholder", func(t *testing.T) {
		_, err := r.Compile("{level} {nope}")
		var syntaxErr *core.PatternSyntaxError
		require.ErrorAs(t, err, &syntaxErr)
		assert.Equal(t, 8, syntaxErr.Pos)

		var unknown *core.UnknownPlaceholderError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "nope", unknown.Name)
	})

	t.Run("RejectedParameter", func(t *testing.T) {
		_, err := r.Compile("{level:x}")
		var syntaxErr *core.PatternSyntaxError
		require.ErrorAs(t, err, &syntaxErr)
		assert.Contains(t, err.Error(), "does not accept parameters")
	})

	t.Run("ContextWithoutKey", func(t *testing.T) {
		_, err := r.Compile("{context}")
		assert.Error(t, err)
	})

	t.Run("BadDate", func(t *testing.T) {
		_, err := r.Compile("{date:yyyy 'oops}")
		assert.Error(t, err)
	})
}

func TestRender_ClassNameAndMessage(t *testing.T) {
	r := newTestRegistry(t)
	p, err := r.Compile("{class-name}: {message}")
	require.NoError(t, err)

	e := core.NewEntryBuilder().ClassName("org.foo.MyClass").Message("Hello World!").Create()
	assert.Equal(t, "MyClass: Hello World!", p.Render(e))
	assert.Equal(t, core.FieldCaller, p.Fields())
}

func TestRender_AbsentTag(t *testing.T) {
	r := newTestRegistry(t)

	p, err := r.Compile("{tag}")
	require.NoError(t, err)
	assert.Equal(t, "", p.Render(core.NewEntryBuilder().Create()))

	withDefault, err := r.Compile("{tag:-}")
	require.NoError(t, err)
	assert.Equal(t, "-", withDefault.Render(core.NewEntryBuilder().Create()))
	assert.Equal(t, "net", withDefault.Render(core.NewEntryBuilder().Tag("net").Create()))
}

func TestRender_Builtins(t *testing.T) {
	r := newTestRegistry(t)
	ts := time.Date(2024, 3, 9, 14, 5, 7, 123_000_000, time.UTC)

	e := core.NewEntryBuilder().
		Time(ts).
		Level(core.LevelError).
		Caller(core.Caller{Class: "github.com/acme/app/store.Repo", Method: "Save", File: "/src/store/repo.go", Line: 42}).
		Message("saving {} failed", "user").
		Err(errors.New("disk full")).
		Context(map[string]string{"request": "r-1"}).
		Create()

	testCases := []struct {
		pattern  string
		expected string
	}{
		{pattern: "{date:yyyy-MM-dd HH:mm:ss.SSS}", expected: "2024-03-09 14:05:07.123"},
		{pattern: "{date}", expected: "2024-03-09 14:05:07"},
		{pattern: "{date:EEE d MMM yy 'at' h:mm a}", expected: "Sat 9 Mar 24 at 2:05 PM"},
		{pattern: "{level}|{severity-code}", expected: "ERROR|E"},
		{pattern: "{class}", expected: "github.com/acme/app/store.Repo"},
		{pattern: "{package}.{class-name}.{method}()", expected: "github.com/acme/app/store.Repo.Save()"},
		{pattern: "{file}:{line}", expected: "repo.go:42"},
		{pattern: "{message}", expected: "saving user failed: disk full"},
		{pattern: "{message-only}", expected: "saving user failed"},
		{pattern: "{exception}", expected: "disk full"},
		{pattern: "{context:request}/{context:user,anonymous}", expected: "r-1/anonymous"},
		{pattern: "{{{level}}}", expected: "{ERROR}"},
	}

	for _, tc := range testCases {
		t.Run(tc.pattern, func(t *testing.T) {
			p, err := r.Compile(tc.pattern)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, p.Render(e))
		})
	}
}

func TestRender_Pid(t *testing.T) {
	r := newTestRegistry(t)
	p, err := r.Compile("{pid}")
	require.NoError(t, err)
	assert.Equal(t, pid, p.Render(core.NewEntryBuilder().Create()))
}

func TestRender_Uptime(t *testing.T) {
	r := newTestRegistry(t)
	e := core.NewEntryBuilder().Create()

	p, err := r.Compile("{uptime}")
	require.NoError(t, err)
	assert.Regexp(t, `^\d{2,}:\d{2}:\d{2}$`, p.Render(e))

	ms, err := r.Compile("{uptime:ms}")
	require.NoError(t, err)
	assert.Regexp(t, `^\d+$`, ms.Render(e))

	_, err = r.Compile("{uptime:days}")
	assert.Error(t, err)
}

func TestRender_Concurrent(t *testing.T) {
	r := newTestRegistry(t)
	p, err := r.Compile("{level} {message}")
	require.NoError(t, err)

	done := make(chan string, 8)
	for i := 0; i < 8; i++ {
		go func() {
			var out string
			for j := 0; j < 100; j++ {
				out = p.Render(core.NewEntryBuilder().Message("m").Create())
			}
			done <- out
		}()
	}
	for i := 0; i < 8; i++ {
		assert.Equal(t, "INFO m", <-done)
	}
}

func TestCompileDateLayout(t *testing.T) {
	ts := time.Date(2024, 7, 9, 14, 5, 7, 123456789, time.FixedZone("", 2*3600))

	testCases := []struct {
		name     string
		pattern  string
		expected string
	}{
		{name: "ISO", pattern: "yyyy-MM-dd'T'HH:mm:ss.SSSXXX", expected: "2024-07-09T14:05:07.123+02:00"},
		{name: "EscapedQuote", pattern: "''HH''", expected: "'14'"},
		{name: "DigitsInQuotedLiteral", pattern: "'Build 1' yyyy-MM-dd", expected: "Build 1 2024-07-09"},
		{name: "LayoutWordsInQuotedLiteral", pattern: "'Jan Mon PM MST 06 01 2' HH", expected: "Jan Mon PM MST 06 01 2 14"},
		{name: "DigitsOutsideQuotes", pattern: "yyyy/1/2", expected: "2024/1/2"},
		{name: "FractionWithoutSeparator", pattern: "ssSSSSSS", expected: "07123456"},
		{name: "FractionCommaSeparator", pattern: "HH:mm:ss,SS", expected: "14:05:07,12"},
		{name: "AdjacentElements", pattern: "yyyyMMddHHmm", expected: "202407091405"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			layout, err := CompileDateLayout(tc.pattern)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, layout.Format(ts))
		})
	}

	_, err := CompileDateLayout("yyyy qq")
	assert.ErrorContains(t, err, "unsupported date symbol")
	_, err = CompileDateLayout("yyyy 'open")
	assert.ErrorContains(t, err, "unterminated quote")
}

func TestTruncate(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty", input: "", expected: ""},
		{name: "Short", input: "tag", expected: "tag"},
		{name: "AtLimit", input: "12345678901234567890123", expected: "12345678901234567890123"},
		{name: "OneOver", input: "123456789012345678901234", expected: "12345678901234567890..."},
		{name: "Multibyte", input: strings.Repeat("é", 30), expected: strings.Repeat("é", 20) + "..."},
	}

	r := newTestRegistry(t)
	tag, err := r.Compile("{tag}")
	require.NoError(t, err)
	truncated := Truncate(AsPlaceholder(tag), DefaultTagMaxLength)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var sb strings.Builder
			truncated.Render(&sb, core.NewEntryBuilder().Tag(tc.input).Create())
			assert.Equal(t, tc.expected, sb.String())
			assert.LessOrEqual(t, len([]rune(sb.String())), DefaultTagMaxLength)
		})
	}
}
