// internal/appconfig/appconfig.go
// Package appconfig manages loading and interpreting application configuration.
package appconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jerilkuriakose/gemma3-tool-calling-openai/internal/toolcode"
)

const (
	// DefaultConfigPath is the default path to the application's configuration file.
	DefaultConfigPath = "config/config.json"
	// legacyConfigPath is the path used when config/ does not exist.
	legacyConfigPath = "config.json"
	// defaultRequestTimeout is the default timeout for HTTP requests.
	defaultRequestTimeout = 600 * time.Second
)

// Config represents the top-level application configuration.
type Config struct {
	Hosts           []Host  `json:"hosts" mapstructure:"hosts"`
	Debug           bool    `json:"debug" mapstructure:"debug"`
	TimeoutSeconds  int     `json:"timeout,omitempty" mapstructure:"timeout"`
	LogFile         string  `json:"logFile,omitempty" mapstructure:"logFile"`
	Markers         Markers `json:"markers" mapstructure:"markers"`
	TruncatedBlocks string  `json:"truncatedBlocks,omitempty" mapstructure:"truncatedBlocks"`
	ToolsFile       string  `json:"toolsFile,omitempty" mapstructure:"toolsFile"`
	ValidateTools   bool    `json:"validateTools" mapstructure:"validateTools"`
	ConfigPath      string  `json:"-" mapstructure:"-"`
}

// Host represents a single host that can serve language models.
type Host struct {
	Name         string     `json:"name" mapstructure:"name"`
	URL          string     `json:"url" mapstructure:"url"`
	Type         string     `json:"type" mapstructure:"type"`
	Models       []string   `json:"models" mapstructure:"models"`
	SystemPrompt string     `json:"systemprompt" mapstructure:"systemprompt"`
	Parameters   Parameters `json:"parameters" mapstructure:"parameters"`
}

// Parameters holds the sampling options forwarded to a host.
type Parameters struct {
	TopK          *int     `json:"top_k,omitempty" mapstructure:"top_k"`
	TopP          *float64 `json:"top_p,omitempty" mapstructure:"top_p"`
	MinP          *float64 `json:"min_p,omitempty" mapstructure:"min_p"`
	Temperature   *float64 `json:"temperature,omitempty" mapstructure:"temperature"`
	RepeatPenalty *float64 `json:"repeat_penalty,omitempty" mapstructure:"repeat_penalty"`
	NumPredict    *int     `json:"num_predict,omitempty" mapstructure:"num_predict"`
}

// Markers overrides parts of the call-block vocabulary. Empty fields keep the defaults.
type Markers struct {
	Open    string `json:"open,omitempty" mapstructure:"open"`
	Close   string `json:"close,omitempty" mapstructure:"close"`
	Wrapper string `json:"wrapper,omitempty" mapstructure:"wrapper"`
}

// RequestTimeout returns the timeout duration for HTTP requests, falling back to the default if not specified.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LogFilePath returns the path to the application log file, applying a default if not set.
func (c Config) LogFilePath() string {
	if path := c.LogFile; strings.TrimSpace(path) != "" {
		return path
	}
	return "gemmacall.log"
}

// Vocabulary merges the configured markers over toolcode.DefaultVocabulary.
func (c Config) Vocabulary() toolcode.Vocabulary {
	v := toolcode.DefaultVocabulary
	if c.Markers.Open != "" {
		v.Open = c.Markers.Open
	}
	if c.Markers.Close != "" {
		v.Close = c.Markers.Close
	}
	if c.Markers.Wrapper != "" {
		v.Wrapper = c.Markers.Wrapper
	}
	return v
}

// TruncatedPolicy maps truncatedBlocks to a toolcode policy. Unknown values
// are rejected so a typo does not silently drop text.
func (c Config) TruncatedPolicy() (toolcode.TruncatedPolicy, error) {
	switch p := toolcode.TruncatedPolicy(strings.ToLower(strings.TrimSpace(c.TruncatedBlocks))); p {
	case "":
		return toolcode.TruncatedDrop, nil
	case toolcode.TruncatedDrop, toolcode.TruncatedFlush:
		return p, nil
	default:
		return "", fmt.Errorf("invalid truncatedBlocks %q (want %q or %q)", c.TruncatedBlocks, toolcode.TruncatedDrop, toolcode.TruncatedFlush)
	}
}

// HostByName finds a configured host by case-insensitive name. An empty name
// selects the first host.
func (c Config) HostByName(name string) (Host, error) {
	if len(c.Hosts) == 0 {
		return Host{}, errors.New("no hosts configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return c.Hosts[0], nil
	}
	for _, h := range c.Hosts {
		if strings.EqualFold(h.Name, name) {
			return h, nil
		}
	}
	return Host{}, fmt.Errorf("host %q not found in configuration", name)
}

// Load reads the application configuration from the specified path, with fallback to a legacy path.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	config, err := loadFromPath(path)
	if err == nil {
		if len(config.Hosts) == 0 {
			return Config{}, errors.New("config must contain at least one host")
		}
		config.ConfigPath = path
		return config, nil
	}

	if errors.Is(err, os.ErrNotExist) {
		if path == DefaultConfigPath {
			config, legacyErr := loadFromPath(legacyConfigPath)
			if legacyErr == nil {
				if len(config.Hosts) == 0 {
					return Config{}, errors.New("config must contain at least one host")
				}
				config.ConfigPath = legacyConfigPath
				return config, nil
			}
			if errors.Is(legacyErr, os.ErrNotExist) {
				return Config{}, fmt.Errorf("no configuration file found (searched %q and %q)", DefaultConfigPath, legacyConfigPath)
			}
			return Config{}, fmt.Errorf("could not read config file %q: %w", legacyConfigPath, legacyErr)
		}
		return Config{}, fmt.Errorf("no configuration file found at %q", path)
	}

	return Config{}, fmt.Errorf("could not read config file %q: %w", path, err)
}

func loadFromPath(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	if err := json.NewDecoder(file).Decode(&config); err != nil {
		return Config{}, err
	}
	if config.TimeoutSeconds <= 0 {
		config.TimeoutSeconds = int(defaultRequestTimeout.Seconds())
	}
	if _, err := config.TruncatedPolicy(); err != nil {
		return Config{}, err
	}
	if err := config.Vocabulary().Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}
