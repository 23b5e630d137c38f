// internal/toolcode/extract.go
package toolcode

import (
	"strings"

	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/util"
)

// Block is one located call block. Start and End bound the whole match
// including markers; Text is the body between them.
type Block struct {
	Start int
	End   int
	Text  string
}

// ParsedCall is a recovered call name with its coerced arguments.
type ParsedCall struct {
	Name      string
	Arguments Arguments
}

// FunctionCall is the function part of a ToolCall. Arguments holds the JSON
// object text of the call arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is the wire shape of a recovered call.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`

	// Parsed keeps the typed arguments; it is not serialized.
	Parsed ParsedCall `json:"-"`
}

// Result is the outcome of one-shot extraction. Content is nil when the text
// before the first block is empty.
type Result struct {
	ToolsCalled bool       `json:"tools_called"`
	Calls       []ToolCall `json:"tool_calls"`
	Content     *string    `json:"content"`
}

// Locate returns every call block in text in order of appearance. A block whose
// body contains the fence character is not matched.
func (p *Parser) Locate(text string) []Block {
	matches := p.blockRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}
	blocks := make([]Block, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, Block{Start: m[0], End: m[1], Text: text[m[2]:m[3]]})
	}
	return blocks
}

// Split unwraps one layer of the configured wrapper call and splits name(args)
// into the name and the trimmed raw argument text.
func (p *Parser) Split(blockText string) (string, string, bool) {
	text := strings.TrimSpace(blockText)
	if w := p.vocab.Wrapper; w != "" && strings.HasPrefix(text, w+"(") && strings.HasSuffix(text, ")") {
		text = text[len(w)+1 : len(text)-1]
	}
	m := callPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		p.logger.Debugf("toolcode: could not parse function call: %s", util.TruncateRunes(text, 200))
		return "", "", false
	}
	return m[1], strings.TrimSpace(m[2]), true
}

// ParseCall runs Split, Tokenize and ParseArgument over one block body.
// Segments without '=' or with an empty key are skipped.
func (p *Parser) ParseCall(blockText string) (ParsedCall, bool) {
	name, rawArgs, ok := p.Split(blockText)
	if !ok {
		return ParsedCall{}, false
	}
	call := ParsedCall{Name: name}
	for _, segment := range Tokenize(rawArgs) {
		key, value, ok := ParseArgument(segment)
		if !ok {
			p.logger.Debugf("toolcode: skipping argument %q of %s", segment, name)
			continue
		}
		call.Arguments.Set(key, value)
	}
	return call, true
}

// ToolCall encodes call in the wire shape with a fresh identifier.
func (p *Parser) ToolCall(call ParsedCall) (ToolCall, error) {
	args, err := call.Arguments.MarshalJSON()
	if err != nil {
		return ToolCall{}, err
	}
	return ToolCall{
		ID:       p.newID(),
		Type:     "function",
		Function: FunctionCall{Name: call.Name, Arguments: string(args)},
		Parsed:   call,
	}, nil
}

// Extract recovers every well-formed call from complete model output. It never
// fails: malformed blocks are dropped, and when nothing is recovered the whole
// input is returned as content.
func (p *Parser) Extract(text string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Errorf("toolcode: error extracting tool calls: %v", r)
			res = plainResult(text)
		}
	}()

	p.logger.Debugf("toolcode: extracting tool calls from output: %s", util.TruncateRunes(text, 200))
	start := strings.Index(text, p.vocab.Open)
	if start == -1 {
		return plainResult(text)
	}

	blocks := p.Locate(text)
	if len(blocks) == 0 {
		p.logger.Debugf("toolcode: no tool call matches found in pattern")
		return plainResult(text)
	}

	calls := make([]ToolCall, 0, len(blocks))
	for _, block := range blocks {
		parsed, ok := p.ParseCall(block.Text)
		if !ok {
			continue
		}
		call, err := p.ToolCall(parsed)
		if err != nil {
			p.logger.Errorf("toolcode: encode arguments for %s: %v", parsed.Name, err)
			continue
		}
		calls = append(calls, call)
	}
	if len(calls) == 0 {
		return plainResult(text)
	}
	p.logger.Debugf("toolcode: extracted %d tool calls", len(calls))

	res = Result{ToolsCalled: true, Calls: calls}
	if before := strings.TrimSpace(text[:start]); before != "" {
		res.Content = &before
	}
	return res
}

func plainResult(text string) Result {
	return Result{Calls: []ToolCall{}, Content: &text}
}
