// internal/toolcode/render.go
package toolcode

import (
	"strconv"
	"strings"
)

// Render writes call back out as a block in the parser's vocabulary. Extracting
// the result yields the same call unless a string value itself looks like a
// bool or number, or holds both quote characters.
func (p *Parser) Render(call ParsedCall) string {
	var b strings.Builder
	b.WriteString(p.vocab.Open)
	b.WriteByte('\n')
	if p.vocab.Wrapper != "" {
		b.WriteString(p.vocab.Wrapper)
		b.WriteByte('(')
	}
	b.WriteString(call.Name)
	b.WriteByte('(')
	for i, key := range call.Arguments.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		v, _ := call.Arguments.Get(key)
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(renderValue(v))
	}
	b.WriteByte(')')
	if p.vocab.Wrapper != "" {
		b.WriteByte(')')
	}
	b.WriteByte('\n')
	b.WriteString(p.vocab.Close)
	return b.String()
}

func renderValue(v Value) string {
	switch v.kind {
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	default:
		if strings.Contains(v.s, "'") {
			return `"` + v.s + `"`
		}
		return "'" + v.s + "'"
	}
}
