package providers

import (
	"errors"
	"strings"
	"testing"

	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/logging"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/toolcode"
)

type collected struct {
	chunks []string
	calls  []ToolCall
}

func (c *collected) callbacks() StreamCallbacks {
	return StreamCallbacks{
		OnChunk: func(msg ChatMessage) error {
			if msg.Role != "assistant" {
				return errors.New("unexpected role " + msg.Role)
			}
			c.chunks = append(c.chunks, msg.Content)
			return nil
		},
		OnToolCall: func(call ToolCall) error {
			c.calls = append(c.calls, call)
			return nil
		},
	}
}

var weatherTool = ToolDefinition{
	Name: "get_weather",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"location": map[string]any{"type": "string"},
			"days":     map[string]any{"type": "integer", "minimum": 1},
		},
		"required": []any{"location"},
	},
}

func TestToolStreamFeedAndClose(t *testing.T) {
	parser := toolcode.MustNew(toolcode.DefaultVocabulary)
	var c collected
	ts := NewToolStream(parser, StreamRequest{}, c.callbacks(), logging.New("test", false))

	for _, d := range []string{"Hi ", "```tool_code\nprint(a())\n```\n```tool_code\nprint(b(x=1))\n```", " bye"} {
		if err := ts.Feed(d); err != nil {
			t.Fatalf("Feed(%q): %v", d, err)
		}
	}
	if err := ts.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Text trailing a block inside the same delta is not surfaced; the next delta is.
	if strings.Join(c.chunks, "|") != "Hi | bye" {
		t.Fatalf("unexpected chunks: %q", c.chunks)
	}
	if len(c.calls) != 2 || c.calls[0].Function.Name != "a" || c.calls[1].Function.Name != "b" {
		t.Fatalf("unexpected calls: %+v", c.calls)
	}
	if c.calls[0].Index != 0 || c.calls[1].Index != 1 || ts.Calls() != 2 {
		t.Fatalf("unexpected indices: %d %d (%d)", c.calls[0].Index, c.calls[1].Index, ts.Calls())
	}
}

func TestToolStreamDrainsEveryBlockOfADelta(t *testing.T) {
	parser := toolcode.MustNew(toolcode.DefaultVocabulary)
	var c collected
	ts := NewToolStream(parser, StreamRequest{}, c.callbacks(), nil)

	two := "```tool_code\nprint(a())\n```\n```tool_code\nprint(b(x=1))\n```"
	for _, d := range []string{two, "Hello"} {
		if err := ts.Feed(d); err != nil {
			t.Fatalf("Feed(%q): %v", d, err)
		}
	}
	if len(c.calls) != 2 || c.calls[1].Function.Name != "b" || c.calls[1].Index != 1 {
		t.Fatalf("expected both calls before the next delta, got %+v", c.calls)
	}
	if strings.Join(c.chunks, "|") != "Hello" {
		t.Fatalf("expected following delta as content, got %q", c.chunks)
	}
	if err := ts.Close(); err != nil || len(c.calls) != 2 {
		t.Fatalf("Close: %v, calls %d", err, len(c.calls))
	}
}

func TestToolStreamValidation(t *testing.T) {
	parser := toolcode.MustNew(toolcode.DefaultVocabulary)
	var c collected
	req := StreamRequest{Tools: []ToolDefinition{weatherTool}, ValidateTools: true}
	ts := NewToolStream(parser, req, c.callbacks(), nil)

	good := "```tool_code\nprint(get_weather(location='Oslo', days=2))\n```"
	badArgs := "```tool_code\nprint(get_weather(days=0))\n```"
	unknown := "```tool_code\nprint(launch(target='moon'))\n```"
	for _, block := range []string{good, badArgs, unknown} {
		if err := ts.Feed(block); err != nil {
			t.Fatalf("Feed: %v", err)
		}
	}

	if len(c.calls) != 1 || c.calls[0].Function.Arguments != `{"location":"Oslo","days":2}` {
		t.Fatalf("expected only the valid call, got %+v", c.calls)
	}
	wantChunks := []string{
		"```tool_code\nprint(get_weather(days=0))\n```",
		"```tool_code\nprint(launch(target='moon'))\n```",
	}
	if strings.Join(c.chunks, "|") != strings.Join(wantChunks, "|") {
		t.Fatalf("rejected calls should surface as text, got %q", c.chunks)
	}
}

func TestToolStreamExtractAndNative(t *testing.T) {
	parser := toolcode.MustNew(toolcode.DefaultVocabulary)
	var c collected
	ts := NewToolStream(parser, StreamRequest{}, c.callbacks(), nil)

	if err := ts.Extract("Plain answer."); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if err := ts.Extract("Look:\n```tool_code\nprint(a())\n```"); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if err := ts.Native("b", "", `{"k":"v"}`); err != nil {
		t.Fatalf("Native: %v", err)
	}

	if strings.Join(c.chunks, "|") != "Plain answer.|Look:" {
		t.Fatalf("unexpected chunks: %q", c.chunks)
	}
	if len(c.calls) != 2 || c.calls[0].Index != 0 || c.calls[1].Index != 1 {
		t.Fatalf("unexpected calls: %+v", c.calls)
	}
	if c.calls[1].Function.Name != "b" || !strings.HasPrefix(c.calls[1].ID, "chatcmpl-tool-") || c.calls[1].Type != "function" {
		t.Fatalf("unexpected native call: %+v", c.calls[1])
	}
}

func TestToolStreamIndicesStayIncreasing(t *testing.T) {
	parser := toolcode.MustNew(toolcode.DefaultVocabulary)
	var c collected
	ts := NewToolStream(parser, StreamRequest{}, c.callbacks(), nil)

	if err := ts.Native("first", "id-1", "{}"); err != nil {
		t.Fatalf("Native: %v", err)
	}
	if err := ts.Feed("```tool_code\nprint(second())\n```"); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(c.calls) != 2 || c.calls[0].Index != 0 || c.calls[1].Index != 1 {
		t.Fatalf("expected indices 0 and 1, got %+v", c.calls)
	}
}

func TestToolStreamCallbackErrors(t *testing.T) {
	parser := toolcode.MustNew(toolcode.DefaultVocabulary)
	boom := errors.New("boom")
	ts := NewToolStream(parser, StreamRequest{}, StreamCallbacks{
		OnChunk:    func(ChatMessage) error { return boom },
		OnToolCall: func(ToolCall) error { return boom },
	}, nil)
	if err := ts.Feed("text"); !errors.Is(err, boom) {
		t.Fatalf("expected chunk error, got %v", err)
	}
	if err := ts.Feed("```tool_code\nprint(f())\n```"); !errors.Is(err, boom) {
		t.Fatalf("expected tool call error, got %v", err)
	}

	nop := NewToolStream(parser, StreamRequest{}, StreamCallbacks{}, nil)
	if err := nop.Feed("```tool_code\nprint(f())\n```"); err != nil {
		t.Fatalf("nil callbacks should be ignored, got %v", err)
	}
}
