package logging

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
)

type testStringer string

func (s testStringer) String() string { return string(s) }

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevFlags := log.Writer(), log.Flags()
	prevNoColor := color.NoColor
	log.SetOutput(&buf)
	log.SetFlags(0)
	color.NoColor = true
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
		color.NoColor = prevNoColor
	})
	return &buf
}

func TestInitAndLoggingToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "gemmacall.log")

	if err := Init(logPath); err != nil {
		t.Fatalf("Init error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close()
	})

	LogEvent("hello %s", "world")
	LogRequest("gemmacall->llm", "local", "gemma3", "", `{"stream":true}`)
	_ = Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "hello world") {
		t.Fatalf("expected LogEvent content, got: %s", content)
	}
	if !strings.Contains(content, `[GEMMACALL->LLM] host=local model=gemma3 payload={"stream":true}`) {
		t.Fatalf("expected LogRequest content, got: %s", content)
	}
}

func TestCloseWithoutInit(t *testing.T) {
	if err := Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
}

func TestBuildRequestMessageDefaults(t *testing.T) {
	msg := buildRequestMessage(" in ", " ", "", " tool ", map[string]any{"ok": true})
	if !strings.Contains(msg, "[IN]") {
		t.Fatalf("expected uppercased direction, got: %s", msg)
	}
	if !strings.Contains(msg, "host=unknown") {
		t.Fatalf("expected default host, got: %s", msg)
	}
	if !strings.Contains(msg, "model=unknown") {
		t.Fatalf("expected default model, got: %s", msg)
	}
	if !strings.Contains(msg, "tool=tool") {
		t.Fatalf("expected tool name, got: %s", msg)
	}
	if !strings.Contains(msg, "payload={\"ok\":true}") {
		t.Fatalf("expected payload json, got: %s", msg)
	}
}

func TestFormatPayloadVariants(t *testing.T) {
	if got := formatPayload(nil); got != "null" {
		t.Fatalf("nil payload: %s", got)
	}
	if got := formatPayload(" "); got != `""` {
		t.Fatalf("empty string payload: %s", got)
	}
	if got := formatPayload([]byte("hi")); got != "hi" {
		t.Fatalf("byte payload: %s", got)
	}
	if got := formatPayload([]byte{}); got != "[]" {
		t.Fatalf("empty byte payload: %s", got)
	}
	if got := formatPayload(testStringer("ok")); got != "ok" {
		t.Fatalf("stringer payload: %s", got)
	}
	if got := formatPayload(make(chan int)); !strings.HasPrefix(got, "0x") {
		t.Fatalf("unmarshalable payload should fall back to %%v, got: %s", got)
	}
}

func TestLoggerLevels(t *testing.T) {
	buf := captureLog(t)

	quiet := New("toolcode", false)
	quiet.Debugf("hidden %d", 1)
	quiet.Errorf("shown %d", 2)

	loud := New("ollama", true)
	loud.Debugf("delta %q", "hi")

	got := buf.String()
	if strings.Contains(got, "hidden") {
		t.Fatalf("debug line written with debug disabled: %s", got)
	}
	if !strings.Contains(got, "ERROR [toolcode] shown 2") {
		t.Fatalf("expected error line, got: %s", got)
	}
	if !strings.Contains(got, `DEBUG [ollama] delta "hi"`) {
		t.Fatalf("expected debug line, got: %s", got)
	}
}

func TestNilLogger(t *testing.T) {
	buf := captureLog(t)
	var l *Logger
	if l.Enabled() {
		t.Fatal("nil logger should not be enabled")
	}
	l.Debugf("ignored")
	l.Errorf("still %s", "logged")
	if got := buf.String(); got != "still logged\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}
