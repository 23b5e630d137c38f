// internal/tui/run.go
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/providers"
	"golang.org/x/sync/errgroup"
)

// StreamFunc runs one generation, reporting through callbacks.
type StreamFunc func(ctx context.Context, callbacks providers.StreamCallbacks) error

// Callbacks adapts stream callbacks to program messages.
func Callbacks(send func(tea.Msg)) providers.StreamCallbacks {
	return providers.StreamCallbacks{
		OnChunk: func(msg providers.ChatMessage) error {
			send(ContentMsg{Content: msg.Content})
			return nil
		},
		OnToolCall: func(call providers.ToolCall) error {
			send(ToolCallMsg{Call: call})
			return nil
		},
		OnComplete: func(meta providers.StreamMetadata) error {
			send(DoneMsg{Meta: meta})
			return nil
		},
	}
}

// Run shows m while stream runs. Quitting the program cancels the stream; a
// stream error is shown in the model and also returned.
func Run(ctx context.Context, m *Model, stream StreamFunc, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(m, opts...)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		_, err := program.Run()
		return err
	})
	g.Go(func() error {
		if err := stream(gctx, Callbacks(program.Send)); err != nil && gctx.Err() == nil {
			program.Send(ErrorMsg{Err: err})
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return m.Err()
}
