// internal/appconfig/tools.go
package appconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tool is one tool definition advertised to the model. Parameters is a JSON
// Schema object describing the call arguments.
type Tool struct {
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Parameters  map[string]any `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

type toolsDocument struct {
	Tools []Tool `yaml:"tools"`
}

// LoadTools reads tool definitions from a YAML or JSON file. The file may hold
// a bare list of tools or an object with a "tools" list.
func LoadTools(path string) ([]Tool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tools file %q: %w", path, err)
	}
	tools, err := ParseTools(data)
	if err != nil {
		return nil, fmt.Errorf("parse tools file %q: %w", path, err)
	}
	return tools, nil
}

// ParseTools decodes tool definitions from YAML or JSON bytes.
func ParseTools(data []byte) ([]Tool, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	var tools []Tool
	switch doc := root.Content[0]; doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&tools); err != nil {
			return nil, err
		}
	case yaml.MappingNode:
		var wrapped toolsDocument
		if err := doc.Decode(&wrapped); err != nil {
			return nil, err
		}
		tools = wrapped.Tools
	default:
		return nil, errors.New("expected a list of tools or an object with a tools list")
	}

	seen := make(map[string]struct{}, len(tools))
	for i, tool := range tools {
		name := strings.TrimSpace(tool.Name)
		if name == "" {
			return nil, fmt.Errorf("tool %d has no name", i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", name)
		}
		seen[name] = struct{}{}
		tools[i].Name = name
	}
	return tools, nil
}
