// internal/providers/provider.go

// Package providers defines the transport abstraction for local model hosts.
// Every provider routes generated text through a ToolStream, so callers see
// plain content and recovered tool calls regardless of the host type.
package providers

import (
	"context"
	"time"

	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/appconfig"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/toolcode"
)

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolDefinition describes a tool the model may call. Parameters is a JSON
// Schema object for the call arguments.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ToolsFromConfig converts configured tool definitions.
func ToolsFromConfig(tools []appconfig.Tool) []ToolDefinition {
	if len(tools) == 0 {
		return nil
	}
	defs := make([]ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, ToolDefinition{Name: t.Name, Description: t.Description, Parameters: t.Parameters})
	}
	return defs
}

// ToolCall is a tool call surfaced to callers, recovered either from a call
// block in the text or from the host's native tool_calls field.
type ToolCall = toolcode.DeltaToolCall

// StreamMetadata describes a finished generation.
type StreamMetadata struct {
	Model              string
	CreatedAt          time.Time
	Done               bool
	TotalDuration      int64
	LoadDuration       int64
	PromptEvalCount    int
	PromptEvalDuration int64
	EvalCount          int
	EvalDuration       int64
	ToolCalls          int
}

// StreamRequest encapsulates all the information needed to initiate a chat stream.
type StreamRequest struct {
	Host             appconfig.Host
	Model            string
	History          []ChatMessage
	SystemPrompt     string
	Parameters       appconfig.Parameters
	Tools            []ToolDefinition
	ValidateTools    bool
	DisableStreaming bool
}

// StreamCallbacks are invoked in order as a generation progresses. OnChunk
// receives content only; call blocks never reach it.
type StreamCallbacks struct {
	OnChunk    func(ChatMessage) error
	OnToolCall func(ToolCall) error
	OnComplete func(StreamMetadata) error
}

// ChatProvider is the interface that all model providers must implement.
type ChatProvider interface {
	// Stream sends the request and forwards content and tool calls to callbacks.
	Stream(ctx context.Context, req StreamRequest, callbacks StreamCallbacks) error
	// Close cleans up any resources used by the provider.
	Close() error
}
