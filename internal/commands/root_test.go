// internal/commands/root_test.go
package gemmacall

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/logging"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func resetFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(flag *pflag.Flag) {
		_ = flag.Value.Set(flag.DefValue)
		flag.Changed = false
	})
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// run executes the root command with fresh flag and viper state. A config
// path of "" points at a file that does not exist.
func run(t *testing.T, configPath, stdin string, args ...string) (string, error) {
	t.Helper()
	if configPath == "" {
		configPath = filepath.Join(t.TempDir(), "missing.json")
	}
	prevNoColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() {
		color.NoColor = prevNoColor
		_ = logging.Close()
		rootCmd.SetArgs([]string{})
		rootCmd.SetIn(nil)
	})

	viper.Reset()
	bindFlags()
	resetFlags(rootCmd.PersistentFlags())
	for _, sub := range rootCmd.Commands() {
		resetFlags(sub.Flags())
	}
	currentConfig = nil

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	full := append([]string{"--config", configPath, "--logFile", filepath.Join(t.TempDir(), "gemmacall.log")}, args...)
	rootCmd.SetArgs(full)
	_, err := rootCmd.ExecuteC()
	return buf.String(), err
}

// TestRootCmd verifies running the root command with an invalid subcommand reports an error.
func TestRootCmd(t *testing.T) {
	out, err := run(t, "", "", "nonexistent")
	if err == nil {
		t.Fatal("Expected an error for a nonexistent command, but got none")
	}
	expected := `unknown command "nonexistent" for "gemmacall"`
	if !strings.Contains(out, expected) {
		t.Fatalf("Expected output to contain %q, but got %q", expected, out)
	}
}

func TestPersistentPreRunEUsesFlagValues(t *testing.T) {
	configPath := writeTempFile(t, "config.json", `{"debug": false, "truncatedBlocks": "drop", "markers": {"open": "<tool>", "close": "</tool>"}}`)

	if _, err := run(t, configPath, "", "--debug", "--truncatedBlocks", "flush", "show", "config"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if currentConfig == nil || currentConfig.ConfigPath != configPath {
		t.Fatalf("expected config loaded with path %s, got %+v", configPath, currentConfig)
	}
	if !currentConfig.Debug || currentConfig.TruncatedBlocks != "flush" {
		t.Fatalf("expected flag values to flow into config: %+v", currentConfig)
	}
	if currentConfig.Markers.Open != "<tool>" || currentConfig.Markers.Close != "</tool>" {
		t.Fatalf("expected markers from file: %+v", currentConfig.Markers)
	}
}

func TestPersistentPreRunERejectsBadSettings(t *testing.T) {
	if _, err := run(t, "", "", "--truncatedBlocks", "explode", "show", "config"); err == nil {
		t.Fatal("expected error for unknown truncatedBlocks policy")
	}

	badMarkers := writeTempFile(t, "config.json", `{"markers": {"close": " "}}`)
	if _, err := run(t, badMarkers, "", "show", "config"); err == nil || !strings.Contains(err.Error(), "markers") {
		t.Fatalf("expected marker error, got %v", err)
	}

	broken := writeTempFile(t, "config.json", `{"hosts": [`)
	if _, err := run(t, broken, "", "show", "config"); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}

func TestShowConfigCommandOutput(t *testing.T) {
	configPath := writeTempFile(t, "config.json", `{"hosts": [{"name": "local", "url": "http://localhost:8080", "models": ["gemma-3-4b-it"]}]}`)

	out, err := run(t, configPath, "", "--validateTools", "show", "config")
	if err != nil {
		t.Fatalf("ExecuteC error: %v", err)
	}
	for _, want := range []string{"Config file: " + configPath, "Validate Tools:   true", "Open Marker:      \"```tool_code\"", "Hosts:", "gemma-3-4b-it"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}

	out, err = run(t, "", "", "show", "config")
	if err != nil {
		t.Fatalf("ExecuteC error: %v", err)
	}
	if !strings.Contains(out, "No config file loaded") {
		t.Fatalf("expected defaults notice, got:\n%s", out)
	}
}

func TestExtractCommand(t *testing.T) {
	input := "Let me check.\n```tool_code\nprint(get_weather(location='Riyadh, Saudi Arabia', days=3))\n```"
	out, err := run(t, "", input, "extract")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	var res struct {
		ToolsCalled bool `json:"tools_called"`
		ToolCalls   []struct {
			ID       string `json:"id"`
			Type     string `json:"type"`
			Function struct {
				Name      string `json:"name"`
				Arguments string `json:"arguments"`
			} `json:"function"`
		} `json:"tool_calls"`
		Content *string `json:"content"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if !res.ToolsCalled || len(res.ToolCalls) != 1 {
		t.Fatalf("unexpected result: %s", out)
	}
	call := res.ToolCalls[0]
	if call.Function.Name != "get_weather" || call.Function.Arguments != `{"location":"Riyadh, Saudi Arabia","days":3}` || call.Type != "function" {
		t.Fatalf("unexpected call: %+v", call)
	}
	if !strings.HasPrefix(call.ID, "chatcmpl-tool-") {
		t.Fatalf("unexpected id: %s", call.ID)
	}
	if res.Content == nil || *res.Content != "Let me check." {
		t.Fatalf("unexpected content: %v", res.Content)
	}
}

func TestExtractCommandFileWithoutCalls(t *testing.T) {
	path := writeTempFile(t, "reply.txt", "No tools needed.")
	out, err := run(t, "", "", "extract", path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(out, `"tools_called": false`) || !strings.Contains(out, `"tool_calls": []`) || !strings.Contains(out, `"content": "No tools needed."`) {
		t.Fatalf("unexpected output:\n%s", out)
	}

	if _, err := run(t, "", "", "extract", filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatal("expected error for missing input file")
	}
}

func TestReplayCommand(t *testing.T) {
	// The first fragment is exactly the prefix, so the opening marker arrives
	// whole at the start of the second fragment.
	input := "Looking it up.\n\n```tool_code\nprint(get_weather(location='Riyadh'))\n```"
	out, err := run(t, "", input, "replay", "--chunk", "16")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !strings.HasPrefix(out, "Looking it up.\n\n") {
		t.Fatalf("expected content first, got:\n%s", out)
	}
	if !strings.Contains(out, `tool_call[0] get_weather {"location":"Riyadh"} id=chatcmpl-tool-`) {
		t.Fatalf("expected tool call line, got:\n%s", out)
	}
	if !strings.Contains(out, "done model=replay tool_calls=1") {
		t.Fatalf("expected done line, got:\n%s", out)
	}
	if strings.Contains(out, "tool_code") {
		t.Fatalf("call block leaked into content:\n%s", out)
	}
}

func TestReplayCommandDefaultFlags(t *testing.T) {
	input := "Let me check the weather for you.\n```tool_code\nprint(get_weather(location='Riyadh'))\n```"
	out, err := run(t, "", input, "replay")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !strings.HasPrefix(out, "Let me check the weather for you.\n") {
		t.Fatalf("expected content first, got:\n%s", out)
	}
	if !strings.Contains(out, `tool_call[0] get_weather {"location":"Riyadh"}`) {
		t.Fatalf("expected tool call with default chunking, got:\n%s", out)
	}
	if strings.Contains(out, "tool_code") || !strings.Contains(out, "tool_calls=1") {
		t.Fatalf("unexpected replay output:\n%s", out)
	}
}

func TestReplayCommandValidatesTools(t *testing.T) {
	tools := writeTempFile(t, "tools.yaml", `
tools:
  - name: get_weather
    parameters:
      type: object
      properties:
        location: {type: string}
      required: [location]
`)
	input := "Looking it up.\n\n```tool_code\nprint(get_weather(city='Riyadh'))\n```"
	out, err := run(t, "", input, "--toolsFile", tools, "--validateTools", "replay", "--chunk", "16")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if strings.Contains(out, "tool_call[0]") {
		t.Fatalf("invalid call should be rejected, got:\n%s", out)
	}
	if !strings.Contains(out, "print(get_weather(city='Riyadh'))") || !strings.Contains(out, "tool_calls=0") {
		t.Fatalf("rejected call should be surfaced as text, got:\n%s", out)
	}
}

func TestChatCommand(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		enc := json.NewEncoder(w)
		for _, d := range []string{"Sure.\n", "```tool_code\nprint(get_time(tz='UTC'))\n", "```"} {
			_ = enc.Encode(map[string]any{"model": "gemma3", "message": map[string]any{"role": "assistant", "content": d}, "done": false})
		}
		_ = enc.Encode(map[string]any{"model": "gemma3", "message": map[string]any{"role": "assistant", "content": ""}, "done": true})
	}))
	defer server.Close()

	configPath := writeTempFile(t, "config.json", `{"hosts": [{"name": "local", "type": "ollama", "url": "`+server.URL+`", "models": ["gemma3"], "systemprompt": "Be brief."}]}`)
	out, err := run(t, configPath, "", "chat", "--host", "LOCAL", "what", "time", "is", "it?")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if !strings.Contains(out, "Sure.\n") || !strings.Contains(out, `tool_call[0] get_time {"tz":"UTC"}`) || !strings.Contains(out, "done model=gemma3 tool_calls=1") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	msgs, _ := captured["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected system and user messages, got %v", captured["messages"])
	}
	if user, _ := msgs[1].(map[string]any); user["content"] != "what time is it?" {
		t.Fatalf("unexpected user message: %v", msgs[1])
	}
}

func TestChatCommandErrors(t *testing.T) {
	if _, err := run(t, "", "", "chat", "hello"); err == nil || !strings.Contains(err.Error(), "no hosts") {
		t.Fatalf("expected no hosts error, got %v", err)
	}

	configPath := writeTempFile(t, "config.json", `{"hosts": [{"name": "local", "url": "http://127.0.0.1:1"}]}`)
	if _, err := run(t, configPath, "", "chat", "--host", "remote", "hello"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected unknown host error, got %v", err)
	}
	if _, err := run(t, configPath, "", "chat", "hello"); err == nil || !strings.Contains(err.Error(), "no models") {
		t.Fatalf("expected missing model error, got %v", err)
	}
}
