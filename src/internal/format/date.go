// FILE: logweave/src/internal/format/date.go
package format

import (
	"fmt"
	"strings"
	"time"
)

// DefaultDateLayout is used by {date} without a parameter
const DefaultDateLayout = "yyyy-MM-dd HH:mm:ss"

// dateSymbols maps runs of a pattern letter to Go reference layout elements.
// Keys are letter and run length; a run length of 0 matches any length not listed.
var dateSymbols = map[byte]map[int]string{
	'y': {2: "06", 0: "2006"},
	'M': {1: "1", 2: "01", 3: "Jan", 0: "January"},
	'd': {1: "2", 0: "02"},
	'D': {0: "002"},
	'H': {0: "15"},
	'h': {1: "3", 0: "03"},
	'm': {1: "4", 0: "04"},
	's': {1: "5", 0: "05"},
	'a': {0: "PM"},
	'E': {4: "Monday", 0: "Mon"},
	'z': {0: "MST"},
	'Z': {0: "-0700"},
	'X': {1: "-07", 2: "-0700", 0: "-07:00"},
}

type segmentKind uint8

const (
	segmentLiteral segmentKind = iota
	segmentLayout
	segmentFraction
)

type dateSegment struct {
	kind segmentKind
	// text is the literal, or the Go layout for segmentLayout
	text string
	// digits of fractional seconds
	digits int
}

// DateLayout is a compiled date pattern. Literal text is written as is and never
// interpreted as a Go layout element.
type DateLayout struct {
	segments []dateSegment
}

// CompileDateLayout parses a letter based date pattern such as "yyyy-MM-dd HH:mm:ss.SSS".
// Text between single quotes is literal, two single quotes produce one.
func CompileDateLayout(pattern string) (DateLayout, error) {
	var l DateLayout
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			l.segments = append(l.segments, dateSegment{kind: segmentLiteral, text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(pattern); {
		c := pattern[i]

		if c == '\'' {
			if i+1 < len(pattern) && pattern[i+1] == '\'' {
				lit.WriteByte('\'')
				i += 2
				continue
			}
			end := strings.IndexByte(pattern[i+1:], '\'')
			if end < 0 {
				return DateLayout{}, fmt.Errorf("unterminated quote at offset %d in date pattern %q", i, pattern)
			}
			lit.WriteString(pattern[i+1 : i+1+end])
			i += end + 2
			continue
		}

		if !isLetter(c) {
			lit.WriteByte(c)
			i++
			continue
		}

		run := 1
		for i+run < len(pattern) && pattern[i+run] == c {
			run++
		}
		i += run

		if c == 'S' {
			flush()
			l.segments = append(l.segments, dateSegment{kind: segmentFraction, digits: min(run, 9)})
			continue
		}

		forms, ok := dateSymbols[c]
		if !ok {
			return DateLayout{}, fmt.Errorf("unsupported date symbol %q in date pattern %q", c, pattern)
		}
		layout, ok := forms[run]
		if !ok {
			layout = forms[0]
		}

		flush()
		// Adjacent elements share one layout; nothing literal sits between them
		if n := len(l.segments); n > 0 && l.segments[n-1].kind == segmentLayout {
			l.segments[n-1].text += layout
		} else {
			l.segments = append(l.segments, dateSegment{kind: segmentLayout, text: layout})
		}
	}
	flush()

	return l, nil
}

// AppendFormat appends t rendered with the layout to b
func (l DateLayout) AppendFormat(b []byte, t time.Time) []byte {
	for _, s := range l.segments {
		switch s.kind {
		case segmentLiteral:
			b = append(b, s.text...)
		case segmentLayout:
			b = t.AppendFormat(b, s.text)
		case segmentFraction:
			b = appendFraction(b, t.Nanosecond(), s.digits)
		}
	}
	return b
}

// Format renders t with the layout
func (l DateLayout) Format(t time.Time) string {
	var buf [64]byte
	return string(l.AppendFormat(buf[:0], t))
}

// appendFraction appends the leading digits of a nanosecond value, zero padded to nine
func appendFraction(b []byte, nanos, digits int) []byte {
	var frac [9]byte
	for i := 8; i >= 0; i-- {
		frac[i] = byte('0' + nanos%10)
		nanos /= 10
	}
	return append(b, frac[:digits]...)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
