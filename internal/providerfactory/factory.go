// internal/providerfactory/factory.go
package providerfactory

import (
	"fmt"

	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/appconfig"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/logging"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/providers"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/providers/llamacpp"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/providers/multiplex"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/providers/ollama"
	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/toolcode"
)

// NewParser builds the tool call parser described by cfg.
func NewParser(cfg *appconfig.Config) (*toolcode.Parser, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config provided to parser factory")
	}
	policy, err := cfg.TruncatedPolicy()
	if err != nil {
		return nil, err
	}
	return toolcode.New(cfg.Vocabulary(),
		toolcode.WithLogger(logging.New("toolcode", cfg.Debug)),
		toolcode.WithTruncatedPolicy(policy),
	)
}

// NewChatProvider selects and configures a chat provider for the configured
// hosts. A single host type gets its provider directly; mixed types are
// routed through a multiplex provider.
func NewChatProvider(cfg *appconfig.Config) (providers.ChatProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config provided to provider factory")
	}
	parser, err := NewParser(cfg)
	if err != nil {
		return nil, err
	}
	types, err := collectHostTypes(cfg)
	if err != nil {
		return nil, err
	}

	built := make(map[string]providers.ChatProvider, len(types))
	for hostType := range types {
		switch hostType {
		case "ollama":
			built[hostType] = ollama.New(cfg, parser)
		default:
			built[hostType] = llamacpp.New(cfg, parser)
		}
	}
	if len(built) == 1 {
		for _, provider := range built {
			return provider, nil
		}
	}
	logging.LogEvent("routing %d host types through multiplex provider", len(built))
	return multiplex.New(built), nil
}

func collectHostTypes(cfg *appconfig.Config) (map[string]bool, error) {
	types := map[string]bool{}
	for _, host := range cfg.Hosts {
		hostType := multiplex.NormalizeType(host.Type)
		switch hostType {
		case "llama.cpp", "ollama":
			types[hostType] = true
		default:
			return nil, fmt.Errorf("unsupported host type %q for host %q", host.Type, host.Name)
		}
	}
	if len(types) == 0 {
		types["llama.cpp"] = true
	}
	return types, nil
}
