// internal/toolcode/stream.go
package toolcode

import (
	"strings"
)

// Phase is the assembler state between deltas.
type Phase int

const (
	// Idle means no block is open; deltas pass through as content.
	Idle Phase = iota
	// Accumulating means an opening marker was seen and text is buffered.
	Accumulating
)

func (p Phase) String() string {
	if p == Accumulating {
		return "accumulating"
	}
	return "idle"
}

// EventKind distinguishes the two events an Assembler can emit.
type EventKind int

const (
	ContentEvent EventKind = iota + 1
	ToolCallEvent
)

// DeltaToolCall is a complete tool call emitted during streaming.
type DeltaToolCall struct {
	Index    int          `json:"index"`
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`

	Parsed ParsedCall `json:"-"`
}

// Event is the output for one delta: either raw content or one tool call.
type Event struct {
	Kind     EventKind
	Content  string
	ToolCall *DeltaToolCall
}

// Assembler incrementally recovers calls from the deltas of one generation.
// Deltas must be fed in arrival order from a single goroutine; each concurrent
// generation needs its own Assembler.
type Assembler struct {
	parser    *Parser
	phase     Phase
	buffer    strings.Builder
	callIndex int
}

// NewAssembler returns an Idle assembler bound to p's vocabulary.
func (p *Parser) NewAssembler() *Assembler {
	return &Assembler{parser: p, callIndex: -1}
}

// Phase reports the current state.
func (a *Assembler) Phase() Phase { return a.phase }

// CallIndex reports the index of the most recently opened block, -1 before the first.
func (a *Assembler) CallIndex() int { return a.callIndex }

// Buffered returns the text held for the currently open block.
func (a *Assembler) Buffered() string { return a.buffer.String() }

// Feed consumes one delta and returns at most one event. The opening marker is
// never surfaced as content, and a block that fails to parse is discarded.
// When a delta completes more than one block only the first call is returned;
// call Next until it reports false before feeding again, or the held blocks
// absorb the next delta and its text is lost.
func (a *Assembler) Feed(delta string) (ev Event, ok bool) {
	pending := delta
	if a.phase == Accumulating {
		pending = a.buffer.String() + delta
	}
	defer func() {
		if r := recover(); r != nil {
			a.parser.logger.Errorf("toolcode: error parsing streaming tool call: %v", r)
			a.reset()
			ev, ok = Event{Kind: ContentEvent, Content: pending}, true
		}
	}()

	a.parser.logger.Debugf("toolcode: streaming delta: %q", delta)
	open := a.parser.vocab.Open
	switch a.phase {
	case Idle:
		idx := strings.Index(delta, open)
		if idx == -1 {
			return Event{Kind: ContentEvent, Content: delta}, true
		}
		a.begin(delta[idx:])
	case Accumulating:
		a.buffer.WriteString(delta)
	}
	return a.drain()
}

// Next returns a call from a complete block still held after Feed. It reports
// false once no buffered block is complete.
func (a *Assembler) Next() (ev Event, ok bool) {
	if a.phase != Accumulating {
		return Event{}, false
	}
	snapshot := a.buffer.String()
	defer func() {
		if r := recover(); r != nil {
			a.parser.logger.Errorf("toolcode: error parsing streaming tool call: %v", r)
			a.reset()
			ev, ok = Event{Kind: ContentEvent, Content: snapshot}, true
		}
	}()
	return a.drain()
}

// Finish ends the generation. A complete block still in the buffer is parsed;
// a block that never closed is dropped or flushed as content per the parser's
// TruncatedPolicy. Call it until it reports false to drain every buffered block.
func (a *Assembler) Finish() (ev Event, ok bool) {
	if a.phase != Accumulating {
		return Event{}, false
	}
	snapshot := a.buffer.String()
	defer func() {
		if r := recover(); r != nil {
			a.parser.logger.Errorf("toolcode: error finishing streaming tool call: %v", r)
			a.reset()
			ev, ok = Event{Kind: ContentEvent, Content: snapshot}, true
		}
	}()

	if ev, ok := a.drain(); ok {
		return ev, true
	}
	if a.phase == Idle {
		return Event{}, false
	}
	pending := a.buffer.String()
	a.reset()
	if a.parser.truncated == TruncatedFlush {
		a.parser.logger.Debugf("toolcode: flushing unterminated tool call block as content")
		return Event{Kind: ContentEvent, Content: pending}, true
	}
	a.parser.logger.Debugf("toolcode: dropping unterminated tool call block")
	return Event{}, false
}

func (a *Assembler) begin(text string) {
	a.phase = Accumulating
	a.callIndex++
	a.buffer.Reset()
	a.buffer.WriteString(text)
	a.parser.logger.Debugf("toolcode: starting tool call %d", a.callIndex)
}

func (a *Assembler) reset() {
	a.phase = Idle
	a.buffer.Reset()
}

// drain completes buffered blocks until one yields a call or no block is
// complete. A failed block may reopen on a marker left in its tail.
func (a *Assembler) drain() (Event, bool) {
	for a.phase == Accumulating {
		index := a.callIndex
		if ev, ok := a.complete(); ok {
			return ev, true
		}
		if a.callIndex == index {
			break
		}
	}
	return Event{}, false
}

// complete parses the buffer once a closing marker follows the opening one.
// The buffer always starts with the opening marker.
func (a *Assembler) complete() (Event, bool) {
	p := a.parser
	buf := a.buffer.String()
	if !strings.Contains(buf[len(p.vocab.Open):], p.vocab.Close) {
		return Event{}, false
	}
	blocks := p.Locate(buf)
	if len(blocks) == 0 {
		p.logger.Debugf("toolcode: discarding malformed tool call block %d", a.callIndex)
		a.reset()
		return Event{}, false
	}
	block := blocks[0]
	defer a.resume(buf[block.End:])
	parsed, ok := p.ParseCall(block.Text)
	if !ok {
		return Event{}, false
	}
	call, err := p.ToolCall(parsed)
	if err != nil {
		p.logger.Errorf("toolcode: encode arguments for %s: %v", parsed.Name, err)
		return Event{}, false
	}
	p.logger.Debugf("toolcode: completed tool call: %s with args: %s", call.Function.Name, call.Function.Arguments)

	return Event{Kind: ToolCallEvent, ToolCall: &DeltaToolCall{
		Index:    a.callIndex,
		ID:       call.ID,
		Type:     call.Type,
		Function: call.Function,
		Parsed:   call.Parsed,
	}}, true
}

// resume returns to Idle after a block, reopening on any marker left in tail.
func (a *Assembler) resume(tail string) {
	a.reset()
	if idx := strings.Index(tail, a.parser.vocab.Open); idx != -1 {
		a.begin(tail[idx:])
	}
}
