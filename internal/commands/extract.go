// internal/commands/extract.go
package gemmacall

import (
	"encoding/json"

	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/providerfactory"
	"github.com/spf13/cobra"
)

// extractCmd recovers tool calls from complete model output.
var extractCmd = &cobra.Command{
	Use:   "extract [file|-]",
	Short: "Recover tool calls from complete model output",
	Long:  `The 'extract' command reads complete model output from a file or stdin and prints the recovered tool calls and remaining content as JSON.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}
		parser, err := providerfactory.NewParser(GetConfig())
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(parser.Extract(text))
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
