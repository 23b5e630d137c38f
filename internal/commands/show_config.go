// internal/commands/show_config.go
package gemmacall

import (
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/appconfig"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// showCmd groups read-only inspection commands.
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show configuration details",
}

// showConfigCmd implements the 'show config' command, which displays the current configuration settings.
var showConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show config settings",
	Long:  `Show config settings ensuring that the JSON config is loaded properly and overridden by flags accordingly.`,
	Run: func(cmd *cobra.Command, args []string) {
		fallback := appconfig.Config{
			Debug:           viper.GetBool("debug"),
			ValidateTools:   viper.GetBool("validateTools"),
			LogFile:         viper.GetString("logFile"),
			TruncatedBlocks: viper.GetString("truncatedBlocks"),
			ToolsFile:       viper.GetString("toolsFile"),
		}
		cfg := currentConfig
		file := ""
		if cfg != nil {
			file = cfg.ConfigPath
		}
		appconfig.ShowConfig(cmd.OutOrStdout(), file, cfg, fallback)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.AddCommand(showConfigCmd)
}
