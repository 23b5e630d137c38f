package appconfig

import (
	"fmt"
	"io"

	"github.com/k0kubun/pp"
)

// ShowConfig prints the current configuration summary.
func ShowConfig(out io.Writer, file string, cfg *Config, fallback Config) {
	if file == "" {
		fmt.Fprintln(out, "No config file loaded (using defaults).")
	} else {
		fmt.Fprintf(out, "Config file: %s\n\n", file)
	}

	if cfg == nil {
		cfg = &fallback
	}
	vocab := cfg.Vocabulary()
	policy, err := cfg.TruncatedPolicy()
	if err != nil {
		policy = "invalid"
	}

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintf(out, "  Debug:            %v\n", cfg.Debug)
	fmt.Fprintf(out, "  Log File:         %s\n", cfg.LogFilePath())
	fmt.Fprintf(out, "  Request Timeout:  %s\n", cfg.RequestTimeout())
	fmt.Fprintf(out, "  Open Marker:      %q\n", vocab.Open)
	fmt.Fprintf(out, "  Close Marker:     %q\n", vocab.Close)
	fmt.Fprintf(out, "  Wrapper:          %q\n", vocab.Wrapper)
	fmt.Fprintf(out, "  Truncated Blocks: %s\n", policy)
	fmt.Fprintf(out, "  Tools File:       %s\n", cfg.ToolsFile)
	fmt.Fprintf(out, "  Validate Tools:   %v\n", cfg.ValidateTools)
	if len(cfg.Hosts) == 0 {
		return
	}

	fmt.Fprintln(out, "\nHosts:")
	pp.Fprintln(out, cfg.Hosts)
}
