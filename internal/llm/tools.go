package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// ToolFunc executes a tool with the model-supplied arguments and returns a
// string, usually JSON, that is fed back to the model.
type ToolFunc func(ctx context.Context, args map[string]any) (string, error)

// ToolSpec declares a tool the model may call
type ToolSpec struct {
	Name        string
	Description string
	// Parameters is a JSON schema object
	Parameters map[string]any
}

// Definition converts the tool spec to the wire representation
func (t ToolSpec) Definition() openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		},
	}
}

// StringParams builds an object schema where every named property is a
// required string. props alternates name and description.
func StringParams(props ...string) map[string]any {
	properties := make(map[string]any, len(props)/2)
	required := make([]string, 0, len(props)/2)
	for i := 0; i+1 < len(props); i += 2 {
		properties[props[i]] = map[string]any{
			"type":        "string",
			"description": props[i+1],
		}
		required = append(required, props[i])
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// StringArg returns a string argument, or "" when absent or not a string
func StringArg(args map[string]any, name string) string {
	v, _ := args[name].(string)
	return v
}
