// internal/providers/llamacpp/provider.go
// Package llamacpp provides a ChatProvider backed by llama.cpp's OpenAI-compatible HTTP API.
package llamacpp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/appconfig"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/logging"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/providers"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/toolcode"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/util"
)

// Provider implements the providers.ChatProvider interface using llama.cpp HTTP APIs.
type Provider struct {
	client *http.Client
	parser *toolcode.Parser
	logger *logging.Logger
}

// New constructs a Provider configured with the application's request timeout.
func New(cfg *appconfig.Config, parser *toolcode.Parser) *Provider {
	return &Provider{
		client: &http.Client{
			Timeout:   cfg.RequestTimeout(),
			Transport: &http.Transport{ForceAttemptHTTP2: false},
		},
		parser: parser,
		logger: logging.New("llama.cpp", cfg.Debug),
	}
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role      string           `json:"role"`
			Content   string           `json:"content"`
			ToolCalls []openAIToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Timings *timings `json:"timings,omitempty"`
}

type chatStreamChunk struct {
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Role      string           `json:"role"`
			Content   string           `json:"content"`
			ToolCalls []openAIToolCall `json:"tool_calls"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Timings *timings `json:"timings,omitempty"`
}

type openAIToolCall struct {
	Index    int    `json:"index"`
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// timings is llama.cpp's per-request performance report.
type timings struct {
	PromptN     int     `json:"prompt_n"`
	PromptMS    float64 `json:"prompt_ms"`
	PredictedN  int     `json:"predicted_n"`
	PredictedMS float64 `json:"predicted_ms"`
}

// Stream issues a chat request and forwards content and recovered tool calls
// to the provided callbacks.
func (p *Provider) Stream(ctx context.Context, req providers.StreamRequest, callbacks providers.StreamCallbacks) error {
	messages := req.History
	if req.SystemPrompt != "" {
		messages = append([]providers.ChatMessage{{Role: "system", Content: req.SystemPrompt}}, messages...)
	}
	messages = sanitizeMessages(messages)

	payload := map[string]any{
		"model":    req.Model,
		"messages": messages,
		"stream":   !req.DisableStreaming,
	}
	applyParameters(payload, req.Parameters)
	if len(req.Tools) > 0 {
		payload["tools"] = providers.FormatToolsForPayload(req.Tools)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	logging.LogRequest("GEMMACALL->LLM", hostIdentifier(req.Host), req.Model, "", body)

	endpoint := strings.TrimRight(req.Host.URL, "/") + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if !req.DisableStreaming {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		logging.LogRequest("LLM->GEMMACALL", hostIdentifier(req.Host), req.Model, "", raw)
		return fmt.Errorf("llama.cpp: /v1/chat/completions returned %s: %s", resp.Status, util.TruncateRunes(strings.TrimSpace(string(raw)), 500))
	}

	ts := providers.NewToolStream(p.parser, req, callbacks, p.logger)
	if req.DisableStreaming {
		return p.handleNonStreaming(resp, req, callbacks, ts)
	}
	return p.handleStreaming(resp, req, callbacks, ts)
}

func (p *Provider) handleNonStreaming(resp *http.Response, req providers.StreamRequest, callbacks providers.StreamCallbacks, ts *providers.ToolStream) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	logging.LogRequest("LLM->GEMMACALL", hostIdentifier(req.Host), req.Model, "", body)

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("llama.cpp: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return errors.New("llama.cpp: chat response contained no choices")
	}

	message := parsed.Choices[0].Message
	if err := ts.Extract(message.Content); err != nil {
		return err
	}
	if err := p.forwardNative(ts, message.ToolCalls); err != nil {
		return err
	}
	return complete(callbacks, req, parsed.Model, parsed.Timings, ts)
}

func (p *Provider) handleStreaming(resp *http.Response, req providers.StreamRequest, callbacks providers.StreamCallbacks, ts *providers.ToolStream) error {
	reader := bufio.NewReader(resp.Body)
	pending := newToolCallAccumulator()
	var finalModel string
	var finalTimings *timings
	for {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		done := errors.Is(err, io.EOF)

		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				break
			}
			logging.LogRequest("LLM->GEMMACALL", hostIdentifier(req.Host), req.Model, "", data)

			var chunk chatStreamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				return fmt.Errorf("llama.cpp: decode stream chunk: %w", err)
			}
			if chunk.Model != "" {
				finalModel = chunk.Model
			}
			if chunk.Timings != nil {
				finalTimings = chunk.Timings
			}
			for _, choice := range chunk.Choices {
				if err := ts.Feed(choice.Delta.Content); err != nil {
					return err
				}
				pending.add(choice.Delta.ToolCalls)
				if choice.FinishReason != nil {
					if err := p.forwardNative(ts, pending.drain()); err != nil {
						return err
					}
				}
			}
		}
		if done {
			break
		}
	}

	if err := p.forwardNative(ts, pending.drain()); err != nil {
		return err
	}
	if err := ts.Close(); err != nil {
		return err
	}
	return complete(callbacks, req, finalModel, finalTimings, ts)
}

func (p *Provider) forwardNative(ts *providers.ToolStream, calls []openAIToolCall) error {
	for _, call := range calls {
		args, err := providers.NormalizeArguments(json.RawMessage(quoteJSON(call.Function.Arguments)))
		if err != nil {
			p.logger.Errorf("skipping native tool call %s: %v", call.Function.Name, err)
			continue
		}
		if err := ts.Native(call.Function.Name, call.ID, args); err != nil {
			return err
		}
	}
	return nil
}

// Close releases any resources held by the provider.
func (p *Provider) Close() error {
	return nil
}

func complete(callbacks providers.StreamCallbacks, req providers.StreamRequest, model string, t *timings, ts *providers.ToolStream) error {
	if callbacks.OnComplete == nil {
		return nil
	}
	if model == "" {
		model = req.Model
	}
	meta := providers.StreamMetadata{
		Model:     model,
		CreatedAt: time.Now(),
		Done:      true,
		ToolCalls: ts.Calls(),
	}
	if t != nil {
		meta.PromptEvalCount = t.PromptN
		meta.PromptEvalDuration = msToNs(t.PromptMS)
		meta.EvalCount = t.PredictedN
		meta.EvalDuration = msToNs(t.PredictedMS)
		meta.TotalDuration = meta.PromptEvalDuration + meta.EvalDuration
	}
	return callbacks.OnComplete(meta)
}

// toolCallAccumulator joins streamed native tool-call fragments by index.
type toolCallAccumulator struct {
	calls map[int]*openAIToolCall
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{calls: map[int]*openAIToolCall{}}
}

func (a *toolCallAccumulator) add(fragments []openAIToolCall) {
	for _, frag := range fragments {
		call, ok := a.calls[frag.Index]
		if !ok {
			call = &openAIToolCall{Index: frag.Index}
			a.calls[frag.Index] = call
		}
		if frag.ID != "" {
			call.ID = frag.ID
		}
		if frag.Type != "" {
			call.Type = frag.Type
		}
		call.Function.Name += frag.Function.Name
		call.Function.Arguments += frag.Function.Arguments
	}
}

func (a *toolCallAccumulator) drain() []openAIToolCall {
	if len(a.calls) == 0 {
		return nil
	}
	out := make([]openAIToolCall, 0, len(a.calls))
	for _, call := range a.calls {
		out = append(out, *call)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	a.calls = map[int]*openAIToolCall{}
	return out
}

func quoteJSON(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

func msToNs(ms float64) int64 {
	if ms <= 0 {
		return 0
	}
	return int64(ms * float64(time.Millisecond))
}

func applyParameters(payload map[string]any, params appconfig.Parameters) {
	if params.TopK != nil {
		payload["top_k"] = *params.TopK
	}
	if params.TopP != nil {
		payload["top_p"] = *params.TopP
	}
	if params.MinP != nil {
		payload["min_p"] = *params.MinP
	}
	if params.Temperature != nil {
		payload["temperature"] = *params.Temperature
	}
	if params.RepeatPenalty != nil {
		payload["repeat_penalty"] = *params.RepeatPenalty
	}
	if params.NumPredict != nil {
		payload["max_tokens"] = *params.NumPredict
	}
}

func sanitizeMessages(messages []providers.ChatMessage) []providers.ChatMessage {
	sanitized := make([]providers.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		role := strings.TrimSpace(msg.Role)
		content := strings.TrimSpace(msg.Content)
		if role == "" {
			role = "user"
		}
		if role != "assistant" && content == "" {
			continue
		}
		sanitized = append(sanitized, providers.ChatMessage{Role: role, Content: content})
	}
	return sanitized
}

// hostIdentifier returns a string identifier for a given host, preferring the name over the URL.
func hostIdentifier(host appconfig.Host) string {
	if name := strings.TrimSpace(host.Name); name != "" {
		return name
	}
	if url := strings.TrimSpace(host.URL); url != "" {
		return url
	}
	return "llama.cpp-host"
}
