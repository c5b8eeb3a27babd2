// FILE: logweave/src/internal/format/token.go
package format

import (
	"strings"

	"logweave/src/internal/core"
)

// TokenKind distinguishes literal text from placeholder tokens
type TokenKind int

const (
	TokenLiteral TokenKind = iota
	TokenPlaceholder
)

// Token is one scanned element of a pattern. For placeholders, Name and Param hold the
// trimmed parts of the body split at its first colon.
type Token struct {
	Kind  TokenKind
	Text  string
	Name  string
	Param Params
	Pos   int
}

// Params is the parameter text bound to a placeholder token
type Params struct {
	raw string
	set bool
}

// NewParams wraps raw parameter text, mainly for builders invoked outside a pattern
func NewParams(raw string) Params {
	return Params{raw: raw, set: true}
}

// Raw returns the parameter text as written, trimmed
func (p Params) Raw() string { return p.raw }

// IsSet reports whether the token carried a colon
func (p Params) IsSet() bool { return p.set }

// List splits the parameter text at commas, trimming each element. Empty elements are kept
// so positional parameters such as "key,,default" stay aligned.
func (p Params) List() []string {
	if !p.set || p.raw == "" {
		return nil
	}
	parts := strings.Split(p.raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Tokenize scans a pattern into literal and placeholder tokens.
// "{{" and "}}" stand for literal braces; braces nested inside a placeholder body must
// be balanced and are kept as part of its parameter. Adjacent literals are merged.
func Tokenize(pattern string) ([]Token, error) {
	var (
		tokens  []Token
		literal strings.Builder
		litPos  = -1
	)

	flush := func() {
		if literal.Len() > 0 {
			tokens = append(tokens, Token{Kind: TokenLiteral, Text: literal.String(), Pos: litPos})
			literal.Reset()
		}
		litPos = -1
	}
	addLiteral := func(pos int, s string) {
		if litPos < 0 {
			litPos = pos
		}
		literal.WriteString(s)
	}

	for i := 0; i < len(pattern); {
		c := pattern[i]
		switch c {
		case '{':
			if i+1 < len(pattern) && pattern[i+1] == '{' {
				addLiteral(i, "{")
				i += 2
				continue
			}
			end, err := matchingBrace(pattern, i)
			if err != nil {
				return nil, err
			}
			flush()
			tok, err := placeholderToken(pattern, i, pattern[i+1:end])
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			i = end + 1
		case '}':
			if i+1 < len(pattern) && pattern[i+1] == '}' {
				addLiteral(i, "}")
				i += 2
				continue
			}
			return nil, &core.PatternSyntaxError{Pattern: pattern, Pos: i, Reason: "unmatched '}'"}
		default:
			next := strings.IndexAny(pattern[i:], "{}")
			if next < 0 {
				next = len(pattern) - i
			}
			addLiteral(i, pattern[i:i+next])
			i += next
		}
	}
	flush()

	return tokens, nil
}

// matchingBrace returns the index of the '}' closing the '{' at open
func matchingBrace(pattern string, open int) (int, error) {
	depth := 0
	for j := open; j < len(pattern); j++ {
		switch pattern[j] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return j, nil
			}
		}
	}
	return 0, &core.PatternSyntaxError{Pattern: pattern, Pos: open, Reason: "unclosed '{'"}
}

func placeholderToken(pattern string, pos int, body string) (Token, error) {
	name, param, hasParam := strings.Cut(body, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return Token{}, &core.PatternSyntaxError{Pattern: pattern, Pos: pos, Reason: "empty placeholder name"}
	}

	tok := Token{
		Kind: TokenPlaceholder,
		Text: pattern[pos : pos+len(body)+2],
		Name: name,
		Pos:  pos,
	}
	if hasParam {
		tok.Param = Params{raw: strings.TrimSpace(param), set: true}
	}
	return tok, nil
}
