// internal/logging/logging.go
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fatih/color"
)

var (
	mu      sync.Mutex
	logFile *os.File
)

// Init routes the standard logger to stderr and, when logPath is set, to an
// appended log file as well.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	writers := []io.Writer{os.Stderr}
	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		logFile = file
		writers = append(writers, logFile)
	}

	log.SetOutput(io.MultiWriter(writers...))
	return nil
}

func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	log.SetOutput(os.Stderr)
	err := logFile.Close()
	logFile = nil
	return err
}

func LogEvent(format string, args ...any) {
	log.Println(fmt.Sprintf(format, args...))
}

// LogRequest records one request or response crossing the process boundary.
// Direction is a label such as "GEMMACALL->LLM".
func LogRequest(direction, host, model, tool string, payload any) {
	log.Println(buildRequestMessage(direction, host, model, tool, payload))
}

func buildRequestMessage(direction, host, model, tool string, payload any) string {
	dir := strings.ToUpper(strings.TrimSpace(direction))
	hostValue := strings.TrimSpace(host)
	if hostValue == "" {
		hostValue = "unknown"
	}
	modelValue := strings.TrimSpace(model)
	if modelValue == "" {
		modelValue = "unknown"
	}
	parts := []string{
		fmt.Sprintf("[%s]", dir),
		fmt.Sprintf("host=%s", hostValue),
		fmt.Sprintf("model=%s", modelValue),
	}
	if tool = strings.TrimSpace(tool); tool != "" {
		parts = append(parts, fmt.Sprintf("tool=%s", tool))
	}
	parts = append(parts, fmt.Sprintf("payload=%s", formatPayload(payload)))
	return strings.Join(parts, " ")
}

func formatPayload(payload any) string {
	switch v := payload.(type) {
	case nil:
		return "null"
	case string:
		if strings.TrimSpace(v) == "" {
			return `""`
		}
		return v
	case []byte:
		if len(v) == 0 {
			return "[]"
		}
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

var (
	debugLabel = color.New(color.FgCyan).SprintFunc()
	errorLabel = color.New(color.FgRed, color.Bold).SprintFunc()
)

// Logger is a component-scoped logger over the standard logger. Debug lines
// are written only when debug is enabled.
type Logger struct {
	component string
	debug     bool
}

// New returns a logger tagged with component that writes debug lines only when debug is set.
func New(component string, debug bool) *Logger {
	return &Logger{component: component, debug: debug}
}

// Enabled reports whether debug output is on. A nil logger is disabled.
func (l *Logger) Enabled() bool { return l != nil && l.debug }

// Debugf logs a DEBUG line when Enabled.
func (l *Logger) Debugf(format string, args ...any) {
	if !l.Enabled() {
		return
	}
	log.Println(l.line(debugLabel("DEBUG"), format, args...))
}

// Errorf always logs. A nil logger prints the bare message.
func (l *Logger) Errorf(format string, args ...any) {
	if l == nil {
		log.Println(fmt.Sprintf(format, args...))
		return
	}
	log.Println(l.line(errorLabel("ERROR"), format, args...))
}

func (l *Logger) line(level, format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	if l.component == "" {
		return fmt.Sprintf("%s %s", level, msg)
	}
	return fmt.Sprintf("%s [%s] %s", level, l.component, msg)
}
