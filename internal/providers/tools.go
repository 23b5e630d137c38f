// internal/providers/tools.go
package providers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/xeipuuv/gojsonschema"
)

// ErrUnknownTool is returned when a call names a tool that was not offered.
var ErrUnknownTool = errors.New("unknown tool")

// FindTool returns the definition named name.
func FindTool(tools []ToolDefinition, name string) (ToolDefinition, bool) {
	for _, tool := range tools {
		if tool.Name == name {
			return tool, true
		}
	}
	return ToolDefinition{}, false
}

// ValidateCall checks a call against the offered tools: the name must be known
// and the arguments must satisfy the tool's parameter schema, if it has one.
func ValidateCall(tools []ToolDefinition, call ToolCall) error {
	def, ok := FindTool(tools, call.Function.Name)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownTool, call.Function.Name)
	}
	args := map[string]any{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return fmt.Errorf("decode arguments for %s: %w", def.Name, err)
		}
	}
	return validateArgumentsAgainstTool(def, args)
}

func validateArgumentsAgainstTool(def ToolDefinition, args map[string]any) error {
	if len(def.Parameters) == 0 {
		return nil
	}
	schemaLoader := gojsonschema.NewGoLoader(def.Parameters)
	argBytes, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("marshal arguments for validation: %w", err)
	}
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(argBytes))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}
	var details []string
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return fmt.Errorf("arguments failed validation: %s", strings.Join(details, "; "))
}

// FormatToolsForPayload converts tool definitions to the chat API "tools" shape.
func FormatToolsForPayload(tools []ToolDefinition) []map[string]any {
	formatted := make([]map[string]any, 0, len(tools))
	for _, tool := range tools {
		function := map[string]any{
			"name": tool.Name,
		}
		if tool.Description != "" {
			function["description"] = tool.Description
		}
		if tool.Parameters != nil {
			function["parameters"] = tool.Parameters
		}
		formatted = append(formatted, map[string]any{
			"type":     "function",
			"function": function,
		})
	}
	return formatted
}

// NormalizeArguments turns native tool-call arguments into JSON object text.
// Hosts send either an object or a string holding one, sometimes with
// trailing commas, single quotes or a missing brace; those are repaired.
func NormalizeArguments(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "{}", nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		trimmed = strings.TrimSpace(text)
		if trimmed == "" {
			return "{}", nil
		}
	}
	if isJSONObject(trimmed) {
		return compactJSON(trimmed)
	}
	repaired, err := jsonrepair.JSONRepair(trimmed)
	if err != nil {
		return "", fmt.Errorf("repair tool arguments: %w", err)
	}
	if !isJSONObject(repaired) {
		return "", fmt.Errorf("tool arguments are not an object: %s", repaired)
	}
	return compactJSON(repaired)
}

func isJSONObject(s string) bool {
	var obj map[string]any
	return json.Unmarshal([]byte(s), &obj) == nil && obj != nil
}

func compactJSON(s string) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return "", err
	}
	return buf.String(), nil
}
