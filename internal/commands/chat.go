// internal/commands/chat.go
package gemmacall

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/providerfactory"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/providers"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/tui"
	"github.com/spf13/cobra"
)

var (
	chatHost     string
	chatModel    string
	chatSystem   string
	chatNoStream bool
	chatTUI      bool
)

// chatCmd sends one prompt to a configured host and prints the recovered
// content and tool calls.
var chatCmd = &cobra.Command{
	Use:   "chat [flags] prompt...",
	Short: "Send a prompt to a configured host",
	Long:  `The 'chat' command sends a single prompt to a configured host and prints the reply with any tool calls recovered from tool_code blocks.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if len(cfg.Hosts) == 0 {
			return errors.New("no hosts configured; add one to the config file")
		}
		host, err := cfg.HostByName(chatHost)
		if err != nil {
			return err
		}
		model := strings.TrimSpace(chatModel)
		if model == "" {
			if len(host.Models) == 0 {
				return fmt.Errorf("host %q has no models configured; pass --model", host.Name)
			}
			model = host.Models[0]
		}
		system := chatSystem
		if system == "" {
			system = host.SystemPrompt
		}
		tools, err := loadTools(cfg)
		if err != nil {
			return err
		}

		provider, err := providerfactory.NewChatProvider(cfg)
		if err != nil {
			return err
		}
		defer provider.Close()

		req := providers.StreamRequest{
			Host:             host,
			Model:            model,
			History:          []providers.ChatMessage{{Role: "user", Content: strings.Join(args, " ")}},
			SystemPrompt:     system,
			Parameters:       host.Parameters,
			Tools:            tools,
			ValidateTools:    cfg.ValidateTools,
			DisableStreaming: chatNoStream,
		}
		stream := func(ctx context.Context, callbacks providers.StreamCallbacks) error {
			return provider.Stream(ctx, req, callbacks)
		}

		if chatTUI {
			title := fmt.Sprintf("%s · %s", host.Name, model)
			return tui.Run(cmd.Context(), tui.New(title, false), stream)
		}
		return stream(cmd.Context(), printCallbacks(cmd.OutOrStdout()))
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatHost, "host", "", "configured host name (defaults to the first host)")
	chatCmd.Flags().StringVar(&chatModel, "model", "", "model name (defaults to the host's first model)")
	chatCmd.Flags().StringVar(&chatSystem, "system", "", "system prompt (defaults to the host's systemprompt)")
	chatCmd.Flags().BoolVar(&chatNoStream, "no-stream", false, "request a single non-streamed response")
	chatCmd.Flags().BoolVar(&chatTUI, "tui", false, "show the reply in a live terminal view")
	rootCmd.AddCommand(chatCmd)
}
