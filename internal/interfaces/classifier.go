package interfaces

import (
	"context"
)

// SchemaType enumerates the JSON types a classification schema can request.
type SchemaType string

const (
	SchemaObject  SchemaType = "OBJECT"
	SchemaArray   SchemaType = "ARRAY"
	SchemaString  SchemaType = "STRING"
	SchemaInteger SchemaType = "INTEGER"
	SchemaNumber  SchemaType = "NUMBER"
	SchemaBoolean SchemaType = "BOOLEAN"
)

// SchemaField describes the shape of the structured output a classification
// call must produce. Providers translate it to their native constrained
// output mechanism (Gemini response schemas) or embed it in the prompt and
// parse the reply (Claude).
type SchemaField struct {
	Type        SchemaType              `json:"type"`
	Description string                  `json:"description,omitempty"`
	Items       *SchemaField            `json:"items,omitempty"`
	Properties  map[string]*SchemaField `json:"properties,omitempty"`
	Required    []string                `json:"required,omitempty"`
	Enum        []string                `json:"enum,omitempty"`
}

// Classifier runs a language-model call that must return data matching the
// requested schema, decoded into out (a pointer). Parse failures surface as
// errors rather than silently returning partial data; callers decide
// whether to skip the item or fail open.
type Classifier interface {
	Classify(ctx context.Context, prompt string, schema *SchemaField, out interface{}) error
}
