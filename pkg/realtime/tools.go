package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/kaptinlin/jsonrepair"
	"google.golang.org/genai"

	openairealtime "github.com/carhubcentralts-hue/prosaasil-sub006/pkg/openai-realtime"
)

// EndCallName is the name of the built-in hang-up tool.
const EndCallName = "end_call"

// Tool is a function the model may call.
type Tool struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
}

// EndCallArgs are the arguments of the end_call tool.
type EndCallArgs struct {
	Reason string `json:"reason" jsonschema:"Short reason the conversation is over"`
}

// NewTool builds a tool whose parameters are inferred from ArgType.
func NewTool[ArgType any](name, description string) (Tool, error) {
	s, err := jsonschema.For[ArgType](&jsonschema.ForOptions{})
	if err != nil {
		return Tool{}, fmt.Errorf("realtime: schema for %s: %w", name, err)
	}
	return Tool{Name: name, Description: description, Parameters: s}, nil
}

// EndCallTool returns the tool that lets the model hang up after saying
// goodbye.
func EndCallTool() Tool {
	t, err := NewTool[EndCallArgs](EndCallName,
		"Hang up the phone call. Call this only after you have said goodbye to the caller.")
	if err != nil {
		panic(err)
	}
	return t
}

// ParseArguments decodes function-call arguments, repairing malformed JSON
// when possible. Empty input yields an empty map.
func ParseArguments(raw string) (map[string]any, error) {
	out := map[string]any{}
	if raw == "" {
		return out, nil
	}
	if err := unmarshalJSON([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%w: arguments %q: %v", ErrProtocol, raw, err)
	}
	return out, nil
}

func unmarshalJSON(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	if _, ok := err.(*json.SyntaxError); ok {
		fixed, err := jsonrepair.JSONRepair(string(data))
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(fixed), v)
	}
	return err
}

func openaiTools(tools []Tool) ([]openairealtime.Tool, error) {
	out := make([]openairealtime.Tool, 0, len(tools))
	for _, t := range tools {
		params, err := json.Marshal(t.Parameters)
		if err != nil {
			return nil, fmt.Errorf("realtime: marshal %s parameters: %w", t.Name, err)
		}
		out = append(out, openairealtime.Tool{
			Type:        "function",
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
		})
	}
	return out, nil
}

func geminiTools(tools []Tool) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  geminiSchema(t.Parameters),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func geminiSchema(s *jsonschema.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	gs := &genai.Schema{
		Format:      s.Format,
		Description: s.Description,
		Items:       geminiSchema(s.Items),
		Required:    s.Required,
	}
	for _, v := range s.Enum {
		gs.Enum = append(gs.Enum, fmt.Sprintf("%v", v))
	}
	if len(s.Properties) > 0 {
		gs.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for k, p := range s.Properties {
			gs.Properties[k] = geminiSchema(p)
		}
	}
	switch s.Type {
	case "object":
		gs.Type = genai.TypeObject
	case "array":
		gs.Type = genai.TypeArray
	case "string":
		gs.Type = genai.TypeString
	case "number":
		gs.Type = genai.TypeNumber
	case "integer":
		gs.Type = genai.TypeInteger
	case "boolean":
		gs.Type = genai.TypeBoolean
	}
	return gs
}
