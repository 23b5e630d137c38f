// internal/commands/replay.go
package gemmacall

import (
	"context"
	"fmt"
	"time"

	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/appconfig"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/logging"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/providerfactory"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/providers"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/toolcode"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/tui"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/util"
	"github.com/spf13/cobra"
)

var (
	replayChunk int
	replayDelay time.Duration
	replayTUI   bool
)

// replayCmd simulates a streamed generation from saved model output.
var replayCmd = &cobra.Command{
	Use:   "replay [file|-]",
	Short: "Stream saved model output through the call assembler",
	Long: `The 'replay' command splits saved model output into fragments of --chunk runes and
feeds them through the streaming assembler, printing content and tool calls as they are recovered.
Every opening marker starts a new fragment and is never split.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		cfg := GetConfig()
		parser, err := providerfactory.NewParser(cfg)
		if err != nil {
			return err
		}
		tools, err := loadTools(cfg)
		if err != nil {
			return err
		}
		req := providers.StreamRequest{Model: "replay", Tools: tools, ValidateTools: cfg.ValidateTools}
		stream := replayStream(parser, req, util.ChunkRunesAt(text, replayChunk, parser.Vocabulary().Open), replayDelay, logging.New("replay", cfg.Debug))

		if replayTUI {
			title := fmt.Sprintf("replay · %d-rune fragments", replayChunk)
			return tui.Run(cmd.Context(), tui.New(title, false), stream)
		}
		return stream(cmd.Context(), printCallbacks(cmd.OutOrStdout()))
	},
}

func init() {
	replayCmd.Flags().IntVar(&replayChunk, "chunk", 8, "fragment size in runes")
	replayCmd.Flags().DurationVar(&replayDelay, "delay", 0, "pause between fragments (e.g. 30ms)")
	replayCmd.Flags().BoolVar(&replayTUI, "tui", false, "show the replay in a live terminal view")
	rootCmd.AddCommand(replayCmd)
}

// replayStream feeds fragments through a ToolStream as if a host produced them.
func replayStream(parser *toolcode.Parser, req providers.StreamRequest, fragments []string, delay time.Duration, logger *logging.Logger) tui.StreamFunc {
	return func(ctx context.Context, callbacks providers.StreamCallbacks) error {
		start := time.Now()
		ts := providers.NewToolStream(parser, req, callbacks, logger)
		for _, fragment := range fragments {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := ts.Feed(fragment); err != nil {
				return err
			}
			if delay > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delay):
				}
			}
		}
		if err := ts.Close(); err != nil {
			return err
		}
		if callbacks.OnComplete == nil {
			return nil
		}
		return callbacks.OnComplete(providers.StreamMetadata{
			Model:         req.Model,
			CreatedAt:     time.Now(),
			Done:          true,
			TotalDuration: int64(time.Since(start)),
			ToolCalls:     ts.Calls(),
		})
	}
}

func loadTools(cfg *appconfig.Config) ([]providers.ToolDefinition, error) {
	if cfg.ToolsFile == "" {
		return nil, nil
	}
	tools, err := appconfig.LoadTools(cfg.ToolsFile)
	if err != nil {
		return nil, err
	}
	return providers.ToolsFromConfig(tools), nil
}
