// scripts/toolcall_probe.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/appconfig"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/providerfactory"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/providers"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/util"
)

const probeSystemPrompt = "You can call functions. To call one, reply with a ```tool_code block containing print(function_name(arg=value)). Available: get_weather(location: str, days: int), get_time(tz: str)."

var probePrompts = []string{
	"What's the weather in Riyadh for the next 3 days?",
	"What time is it in UTC right now?",
	"Say hello without calling any function.",
}

func main() {
	configPath := flag.String("config", appconfig.DefaultConfigPath, "Path to config JSON")
	hostURL := flag.String("url", "", "Override host URL")
	hostType := flag.String("type", "", "Host type for --url (llama.cpp or ollama)")
	modelName := flag.String("model", "", "Override model name")
	noStream := flag.Bool("no-stream", false, "Request non-streamed responses")
	timeout := flag.Duration("timeout", 120*time.Second, "Per-prompt timeout")
	flag.Parse()

	cfg, host, model, err := resolveTarget(*configPath, *hostURL, *hostType, *modelName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	provider, err := providerfactory.NewChatProvider(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "provider error: %v\n", err)
		os.Exit(1)
	}
	defer provider.Close()

	fmt.Printf("Target host: %s (%s)\n", host.URL, host.Type)
	fmt.Printf("Target model: %s\n\n", model)

	failures := 0
	for _, prompt := range probePrompts {
		if err := probe(provider, host, model, prompt, *noStream, *timeout); err != nil {
			fmt.Fprintf(os.Stderr, "probe failed: %v\n\n", err)
			failures++
		}
	}
	if failures > 0 {
		os.Exit(1)
	}
}

func resolveTarget(configPath, overrideURL, overrideType, overrideModel string) (appconfig.Config, appconfig.Host, string, error) {
	if overrideURL != "" {
		model := overrideModel
		if model == "" {
			model = "gemma3"
		}
		host := appconfig.Host{URL: overrideURL, Name: "probe", Type: overrideType, Models: []string{model}}
		return appconfig.Config{Hosts: []appconfig.Host{host}}, host, model, nil
	}

	cfg, err := appconfig.Load(configPath)
	if err != nil {
		return appconfig.Config{}, appconfig.Host{}, "", err
	}
	host, err := cfg.HostByName("")
	if err != nil {
		return appconfig.Config{}, appconfig.Host{}, "", err
	}
	model := overrideModel
	if model == "" {
		if len(host.Models) == 0 {
			return appconfig.Config{}, appconfig.Host{}, "", fmt.Errorf("host %q has no models in %s", host.Name, configPath)
		}
		model = host.Models[0]
	}
	return cfg, host, model, nil
}

func probe(provider providers.ChatProvider, host appconfig.Host, model, prompt string, noStream bool, timeout time.Duration) error {
	fmt.Printf("== %s ==\n", prompt)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var content strings.Builder
	var calls []providers.ToolCall
	var meta providers.StreamMetadata
	start := time.Now()
	err := provider.Stream(ctx, providers.StreamRequest{
		Host:             host,
		Model:            model,
		History:          []providers.ChatMessage{{Role: "user", Content: prompt}},
		SystemPrompt:     probeSystemPrompt,
		Parameters:       host.Parameters,
		DisableStreaming: noStream,
	}, providers.StreamCallbacks{
		OnChunk: func(msg providers.ChatMessage) error {
			content.WriteString(msg.Content)
			return nil
		},
		OnToolCall: func(call providers.ToolCall) error {
			calls = append(calls, call)
			return nil
		},
		OnComplete: func(m providers.StreamMetadata) error {
			meta = m
			return nil
		},
	})
	if err != nil {
		return err
	}

	fmt.Printf("elapsed=%s eval_count=%d tool_calls=%d\n", time.Since(start).Round(time.Millisecond), meta.EvalCount, len(calls))
	for _, call := range calls {
		fmt.Printf("  - [%d] %s %s\n", call.Index, call.Function.Name, call.Function.Arguments)
	}
	if text := strings.TrimSpace(content.String()); text != "" {
		fmt.Printf("content: %s\n", util.TruncateRunes(text, 200))
	}
	if strings.Contains(content.String(), "tool_code") {
		fmt.Println("warning: a call block leaked into content")
	}
	fmt.Println()
	return nil
}
