// internal/commands/output.go
package gemmacall

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/providers"
)

var (
	callLabel = color.New(color.FgGreen, color.Bold)
	callArgs  = color.New(color.FgHiBlack)
	doneLabel = color.New(color.Faint)
)

// readInput returns the text named by args: a file path, or stdin for "-" or
// no argument.
func readInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

// printCallbacks writes content as it arrives and one colored line per tool call.
func printCallbacks(out io.Writer) providers.StreamCallbacks {
	atLineStart := true
	return providers.StreamCallbacks{
		OnChunk: func(msg providers.ChatMessage) error {
			if _, err := io.WriteString(out, msg.Content); err != nil {
				return err
			}
			atLineStart = strings.HasSuffix(msg.Content, "\n")
			return nil
		},
		OnToolCall: func(call providers.ToolCall) error {
			if !atLineStart {
				fmt.Fprintln(out)
			}
			callLabel.Fprintf(out, "tool_call[%d] %s", call.Index, call.Function.Name)
			fmt.Fprint(out, " ")
			callArgs.Fprintf(out, "%s id=%s", call.Function.Arguments, call.ID)
			fmt.Fprintln(out)
			atLineStart = true
			return nil
		},
		OnComplete: func(meta providers.StreamMetadata) error {
			if !atLineStart {
				fmt.Fprintln(out)
			}
			doneLabel.Fprintf(out, "done model=%s tool_calls=%d", meta.Model, meta.ToolCalls)
			if meta.TotalDuration > 0 {
				doneLabel.Fprintf(out, " duration=%s", time.Duration(meta.TotalDuration).Round(time.Millisecond))
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}
