package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/venator/internal/interfaces"
	"google.golang.org/genai"
)

// toGenaiSchema converts a classification schema into the genai response
// schema that makes Gemini enforce the output shape server side.
func toGenaiSchema(field *interfaces.SchemaField) *genai.Schema {
	if field == nil {
		return nil
	}

	schema := &genai.Schema{
		Description: field.Description,
		Enum:        field.Enum,
		Required:    field.Required,
	}

	switch field.Type {
	case interfaces.SchemaObject:
		schema.Type = genai.TypeObject
	case interfaces.SchemaArray:
		schema.Type = genai.TypeArray
	case interfaces.SchemaString:
		schema.Type = genai.TypeString
	case interfaces.SchemaInteger:
		schema.Type = genai.TypeInteger
	case interfaces.SchemaNumber:
		schema.Type = genai.TypeNumber
	case interfaces.SchemaBoolean:
		schema.Type = genai.TypeBoolean
	}

	if field.Items != nil {
		schema.Items = toGenaiSchema(field.Items)
	}
	if len(field.Properties) > 0 {
		schema.Properties = make(map[string]*genai.Schema, len(field.Properties))
		for name, prop := range field.Properties {
			schema.Properties[name] = toGenaiSchema(prop)
		}
	}
	return schema
}

// schemaInstruction renders a classification schema as prompt text for
// providers without server-side constrained output. The model is told to
// answer with JSON only.
func schemaInstruction(field *interfaces.SchemaField) string {
	data, err := json.MarshalIndent(field, "", "  ")
	if err != nil {
		return "Respond with valid JSON only, no prose."
	}
	return fmt.Sprintf(`Respond with JSON only, no prose and no markdown fences.
The response must match this schema exactly:

%s`, string(data))
}

// decodeStructured parses a model reply into out, tolerating markdown code
// fences around the JSON body.
func decodeStructured(reply string, out interface{}) error {
	text := strings.TrimSpace(reply)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	if text == "" {
		return fmt.Errorf("empty structured response")
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("structured response is not valid JSON: %w", err)
	}
	return nil
}
