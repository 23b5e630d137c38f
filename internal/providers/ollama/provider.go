// internal/providers/ollama/provider.go
// Package ollama provides a ChatProvider backed by the Ollama /api/chat endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/appconfig"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/logging"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/providers"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/toolcode"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/util"
)

// Provider implements providers.ChatProvider using Ollama HTTP APIs.
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
		logger: logging.New("ollama", cfg.Debug),
	}
}

// streamChunk is one NDJSON line of /api/chat, or the whole non-streamed reply.
type streamChunk struct {
	Model   string `json:"model"`
	Message struct {
		Role      string     `json:"role"`
		Content   string     `json:"content"`
		ToolCalls []toolCall `json:"tool_calls,omitempty"`
	} `json:"message"`
	Done               bool  `json:"done"`
	TotalDuration      int64 `json:"total_duration"`
	LoadDuration       int64 `json:"load_duration"`
	PromptEvalCount    int   `json:"prompt_eval_count"`
	PromptEvalDuration int64 `json:"prompt_eval_duration"`
	EvalCount          int   `json:"eval_count"`
	EvalDuration       int64 `json:"eval_duration"`
}

// toolCall is a native tool call from the Ollama API.
type toolCall struct {
	ID       string `json:"id,omitempty"`
	Type     string `json:"type"`
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

// Stream issues a chat request and forwards content and recovered tool calls
// to the provided callbacks.
func (p *Provider) Stream(ctx context.Context, req providers.StreamRequest, callbacks providers.StreamCallbacks) error {
	resp, err := p.post(ctx, req, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	hostID := hostIdentifier(req.Host)
	ts := providers.NewToolStream(p.parser, req, callbacks, p.logger)

	if req.DisableStreaming {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		logging.LogRequest("LLM->GEMMACALL", hostID, req.Model, "", body)
		var result streamChunk
		if err := json.Unmarshal(body, &result); err != nil {
			return fmt.Errorf("ollama: decode response: %w", err)
		}
		if err := ts.Extract(result.Message.Content); err != nil {
			return err
		}
		if err := p.forwardNative(ts, result.Message.ToolCalls); err != nil {
			return err
		}
		return complete(callbacks, req, result, ts)
	}

	decoder := json.NewDecoder(resp.Body)
	var final streamChunk
	for {
		var chunk streamChunk
		if err := decoder.Decode(&chunk); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("ollama: decode stream: %w", err)
		}
		if data, err := json.Marshal(chunk); err == nil {
			logging.LogRequest("LLM->GEMMACALL", hostID, req.Model, "", data)
		}

		if err := ts.Feed(chunk.Message.Content); err != nil {
			return err
		}
		if err := p.forwardNative(ts, chunk.Message.ToolCalls); err != nil {
			return err
		}

		if chunk.Done {
			final = chunk
			break
		}
	}

	if err := ts.Close(); err != nil {
		return err
	}
	return complete(callbacks, req, final, ts)
}

// post sends the chat request. A model without native tool support is retried
// once without the tools field; call blocks in the text still work.
func (p *Provider) post(ctx context.Context, req providers.StreamRequest, withTools bool) (*http.Response, error) {
	hostID := hostIdentifier(req.Host)
	body, err := json.Marshal(buildPayload(req, withTools))
	if err != nil {
		return nil, err
	}
	logging.LogRequest("GEMMACALL->LLM", hostID, req.Model, "", body)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(req.Host.URL, "/")+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}

	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	logging.LogRequest("LLM->GEMMACALL", hostID, req.Model, "", raw)
	if withTools && len(req.Tools) > 0 && isNoToolCapabilityResponse(raw) {
		p.logger.Debugf("%s has no native tool support, retrying without tools", req.Model)
		return p.post(ctx, req, false)
	}
	return nil, fmt.Errorf("ollama: /api/chat returned %s: %s", resp.Status, util.TruncateRunes(strings.TrimSpace(string(raw)), 500))
}

func (p *Provider) forwardNative(ts *providers.ToolStream, calls []toolCall) error {
	for _, call := range calls {
		args, err := providers.NormalizeArguments(call.Function.Arguments)
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

func complete(callbacks providers.StreamCallbacks, req providers.StreamRequest, final streamChunk, ts *providers.ToolStream) error {
	if callbacks.OnComplete == nil {
		return nil
	}
	modelName := final.Model
	if modelName == "" {
		modelName = req.Model
	}
	return callbacks.OnComplete(providers.StreamMetadata{
		Model:              modelName,
		CreatedAt:          time.Now(),
		Done:               final.Done || req.DisableStreaming,
		TotalDuration:      final.TotalDuration,
		LoadDuration:       final.LoadDuration,
		PromptEvalCount:    final.PromptEvalCount,
		PromptEvalDuration: final.PromptEvalDuration,
		EvalCount:          final.EvalCount,
		EvalDuration:       final.EvalDuration,
		ToolCalls:          ts.Calls(),
	})
}

func buildPayload(req providers.StreamRequest, withTools bool) map[string]any {
	messages := req.History
	if req.SystemPrompt != "" {
		messages = append([]providers.ChatMessage{{Role: "system", Content: req.SystemPrompt}}, messages...)
	}
	if len(messages) == 0 {
		messages = []providers.ChatMessage{}
	}
	payload := map[string]any{
		"model":    req.Model,
		"messages": messages,
		"options":  buildOptions(req.Parameters),
		"stream":   !req.DisableStreaming,
	}
	if withTools && len(req.Tools) > 0 {
		payload["tools"] = providers.FormatToolsForPayload(req.Tools)
	}
	return payload
}

func buildOptions(params appconfig.Parameters) map[string]any {
	options := map[string]any{}
	if params.TopK != nil {
		options["top_k"] = *params.TopK
	}
	if params.TopP != nil {
		options["top_p"] = *params.TopP
	}
	if params.MinP != nil {
		options["min_p"] = *params.MinP
	}
	if params.Temperature != nil {
		options["temperature"] = *params.Temperature
	}
	if params.RepeatPenalty != nil {
		options["repeat_penalty"] = *params.RepeatPenalty
	}
	if params.NumPredict != nil {
		options["num_predict"] = *params.NumPredict
	}
	return options
}

// isNoToolCapabilityResponse checks if the response body indicates that the model does not support tools.
func isNoToolCapabilityResponse(body []byte) bool {
	if len(body) == 0 {
		return false
	}
	mentionsTools := func(text string) bool {
		text = strings.ToLower(strings.TrimSpace(text))
		return strings.Contains(text, "tool") && (strings.Contains(text, "support") || strings.Contains(text, "capab"))
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		return mentionsTools(payload.Error + " " + payload.Message)
	}
	return mentionsTools(string(body))
}

// hostIdentifier returns a string identifier for a given host, preferring the name over the URL.
func hostIdentifier(host appconfig.Host) string {
	if name := strings.TrimSpace(host.Name); name != "" {
		return name
	}
	if url := strings.TrimSpace(host.URL); url != "" {
		return url
	}
	return "ollama-host"
}

// Close releases any resources held by the provider.
func (p *Provider) Close() error {
	return nil
}
