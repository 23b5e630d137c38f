// internal/providers/toolstream.go
package providers

import (
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/logging"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/toolcode"
)

// ToolStream binds one generation's deltas to StreamCallbacks. Content goes to
// OnChunk, recovered calls go to OnToolCall after optional validation.
type ToolStream struct {
	parser    *toolcode.Parser
	assembler *toolcode.Assembler
	callbacks StreamCallbacks
	tools     []ToolDefinition
	validate  bool
	logger    *logging.Logger
	role      string
	calls     int
	nextIndex int
}

// NewToolStream starts a stream for one generation of req.
func NewToolStream(parser *toolcode.Parser, req StreamRequest, callbacks StreamCallbacks, logger *logging.Logger) *ToolStream {
	return &ToolStream{
		parser:    parser,
		assembler: parser.NewAssembler(),
		callbacks: callbacks,
		tools:     req.Tools,
		validate:  req.ValidateTools,
		logger:    logger,
		role:      "assistant",
	}
}

// Calls reports how many tool calls reached OnToolCall.
func (s *ToolStream) Calls() int { return s.calls }

// Feed passes one content delta through the assembler and emits every block it completes.
func (s *ToolStream) Feed(delta string) error {
	ev, ok := s.assembler.Feed(delta)
	for ok {
		if err := s.emit(ev); err != nil {
			return err
		}
		ev, ok = s.assembler.Next()
	}
	return nil
}

// Close finishes the generation, draining any buffered block.
func (s *ToolStream) Close() error {
	for {
		ev, ok := s.assembler.Finish()
		if !ok {
			return nil
		}
		if err := s.emit(ev); err != nil {
			return err
		}
	}
}

// Extract handles a complete, non-streamed response.
func (s *ToolStream) Extract(text string) error {
	res := s.parser.Extract(text)
	if res.Content != nil && *res.Content != "" {
		if err := s.chunk(*res.Content); err != nil {
			return err
		}
	}
	for i, call := range res.Calls {
		delta := ToolCall{
			Index:    s.nextIndex + i,
			ID:       call.ID,
			Type:     call.Type,
			Function: call.Function,
			Parsed:   call.Parsed,
		}
		if err := s.toolCall(delta); err != nil {
			return err
		}
	}
	s.nextIndex += len(res.Calls)
	return nil
}

// Native forwards a call the host reported in its own tool_calls field. It
// receives the next free index after any block calls.
func (s *ToolStream) Native(name, id string, arguments string) error {
	if id == "" {
		id = toolcode.NewCallID()
	}
	call := ToolCall{
		Index:    s.nextIndex,
		ID:       id,
		Type:     "function",
		Function: toolcode.FunctionCall{Name: name, Arguments: arguments},
	}
	s.nextIndex++
	return s.toolCall(call)
}

func (s *ToolStream) emit(ev toolcode.Event) error {
	switch ev.Kind {
	case toolcode.ContentEvent:
		return s.chunk(ev.Content)
	case toolcode.ToolCallEvent:
		call := *ev.ToolCall
		if s.nextIndex > call.Index {
			call.Index = s.nextIndex
		}
		s.nextIndex = call.Index + 1
		return s.toolCall(call)
	}
	return nil
}

func (s *ToolStream) chunk(content string) error {
	if s.callbacks.OnChunk == nil || content == "" {
		return nil
	}
	return s.callbacks.OnChunk(ChatMessage{Role: s.role, Content: content})
}

func (s *ToolStream) toolCall(call ToolCall) error {
	if s.validate && len(s.tools) > 0 {
		if err := ValidateCall(s.tools, call); err != nil {
			s.logger.Errorf("rejected tool call %s: %v", call.Function.Name, err)
			return s.chunk(s.rejectedText(call))
		}
	}
	s.calls++
	s.logger.Debugf("tool call %d: %s %s", call.Index, call.Function.Name, call.Function.Arguments)
	if s.callbacks.OnToolCall == nil {
		return nil
	}
	return s.callbacks.OnToolCall(call)
}

// rejectedText renders a rejected call back into block form so the text the
// model produced is not lost.
func (s *ToolStream) rejectedText(call ToolCall) string {
	if call.Parsed.Name != "" {
		return s.parser.Render(call.Parsed)
	}
	return call.Function.Name + "(" + call.Function.Arguments + ")"
}
