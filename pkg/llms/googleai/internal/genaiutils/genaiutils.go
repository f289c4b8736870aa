package genaiutils

import (
	"fmt"

	"github.com/effective-security/mcpchat/pkg/llms"
	"google.golang.org/genai"
)

// ConvertDeclarations converts normalized function declarations to genai
// tools. Every declaration becomes its own genai.Tool holding a single
// function declaration.
func ConvertDeclarations(decls []*llms.FunctionDeclaration) []*genai.Tool {
	genaiTools := make([]*genai.Tool, 0, len(decls))
	for _, decl := range decls {
		genaiFuncDecl := &genai.FunctionDeclaration{
			Name:        decl.Name,
			Description: decl.Description,
		}
		if decl.Parameters != nil {
			genaiFuncDecl.Parameters = ConvertSchemaMap(decl.Parameters)
		}
		genaiTools = append(genaiTools, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{genaiFuncDecl},
		})
	}
	return genaiTools
}

// ConvertSchemaMap converts a generic JSON-schema mapping to a genai.Schema.
// Unknown keys are dropped; the mapping is expected to be normalized already.
func ConvertSchemaMap(m map[string]any) *genai.Schema {
	if m == nil {
		return nil
	}

	out := &genai.Schema{
		Type: ConvertJSONSchemaType(stringValue(m["type"])),
	}
	if d := stringValue(m["description"]); d != "" {
		out.Description = d
	}
	if f := stringValue(m["format"]); f != "" {
		out.Format = f
	}
	out.Required = stringSlice(m["required"])
	out.Enum = stringSlice(m["enum"])

	if props, ok := m["properties"].(map[string]any); ok && len(props) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for k, v := range props {
			if pm, ok := v.(map[string]any); ok {
				out.Properties[k] = ConvertSchemaMap(pm)
			}
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		out.Items = ConvertSchemaMap(items)
	}

	return out
}

// ConvertJSONSchemaType converts a JSON schema type name to a genai.Type.
func ConvertJSONSchemaType(dt string) genai.Type {
	switch dt {
	case "object":
		return genai.TypeObject
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeUnspecified
	}
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch tv := item.(type) {
		case string:
			out = append(out, tv)
		default:
			out = append(out, fmt.Sprintf("%v", tv))
		}
	}
	return out
}

func Float32Ptr(f float32) *float32 {
	if f == 0 {
		return nil
	}
	return &f
}
