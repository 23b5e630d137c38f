// internal/toolcode/tokenize.go
package toolcode

import "strings"

type quoteState int

const (
	unquoted quoteState = iota
	inSingleQuote
	inDoubleQuote
)

// Tokenize splits raw call arguments into trimmed key=value segments. Commas
// separate segments only outside quotes and at paren depth zero. Backslash
// escapes are not recognized, and a stray ')' can push the depth negative, after
// which commas stay literal.
func Tokenize(rawArgs string) []string {
	var (
		segments []string
		current  strings.Builder
		state    = unquoted
		depth    int
	)
	flush := func() {
		if seg := strings.TrimSpace(current.String()); seg != "" {
			segments = append(segments, seg)
		}
		current.Reset()
	}

	// Bytes, not runes, so invalid UTF-8 is copied through untouched. Every
	// delimiter is ASCII and never appears inside a multi-byte sequence.
	in := rawArgs + ","
	for i := 0; i < len(in); i++ {
		r := in[i]
		switch state {
		case unquoted:
			switch r {
			case '\'':
				state = inSingleQuote
			case '"':
				state = inDoubleQuote
			case '(':
				depth++
			case ')':
				depth--
			case ',':
				if depth == 0 {
					flush()
					continue
				}
			}
		case inSingleQuote:
			if r == '\'' {
				state = unquoted
			}
		case inDoubleQuote:
			if r == '"' {
				state = unquoted
			}
		}
		current.WriteByte(r)
	}
	return segments
}
