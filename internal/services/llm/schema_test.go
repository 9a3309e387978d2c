package llm

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/venator/internal/interfaces"
	"google.golang.org/genai"
)

func TestToGenaiSchema(t *testing.T) {
	field := &interfaces.SchemaField{
		Type: interfaces.SchemaArray,
		Items: &interfaces.SchemaField{
			Type: interfaces.SchemaObject,
			Properties: map[string]*interfaces.SchemaField{
				"index":     {Type: interfaces.SchemaInteger},
				"is_seller": {Type: interfaces.SchemaBoolean, Description: "promoting or selling"},
			},
			Required: []string{"index", "is_seller"},
		},
	}

	schema := toGenaiSchema(field)
	require.NotNil(t, schema)
	assert.Equal(t, genai.TypeArray, schema.Type)
	require.NotNil(t, schema.Items)
	assert.Equal(t, genai.TypeObject, schema.Items.Type)
	assert.Equal(t, genai.TypeInteger, schema.Items.Properties["index"].Type)
	assert.Equal(t, genai.TypeBoolean, schema.Items.Properties["is_seller"].Type)
	assert.Equal(t, []string{"index", "is_seller"}, schema.Items.Required)

	assert.Nil(t, toGenaiSchema(nil))
}

func TestDecodeStructured(t *testing.T) {
	var out []map[string]int

	require.NoError(t, decodeStructured(`[{"index": 1}]`, &out))
	assert.Equal(t, 1, out[0]["index"])

	out = nil
	require.NoError(t, decodeStructured("```json\n[{\"index\": 2}]\n```", &out))
	assert.Equal(t, 2, out[0]["index"])

	assert.Error(t, decodeStructured("", &out))
	assert.Error(t, decodeStructured("not json at all", &out))
}

func TestSchemaInstruction_MentionsJSONOnly(t *testing.T) {
	text := schemaInstruction(&interfaces.SchemaField{Type: interfaces.SchemaArray})
	assert.Contains(t, text, "JSON only")
	assert.Contains(t, text, "ARRAY")
}

func TestIsRateLimitError(t *testing.T) {
	assert.True(t, IsRateLimitError(fmt.Errorf("Error 429, Message: quota exceeded")))
	assert.True(t, IsRateLimitError(fmt.Errorf("RESOURCE_EXHAUSTED")))
	assert.False(t, IsRateLimitError(fmt.Errorf("connection refused")))
	assert.False(t, IsRateLimitError(nil))
}

func TestExtractRetryDelay(t *testing.T) {
	err := fmt.Errorf("Error 429, Please retry in 45.387061394s., Status: RESOURCE_EXHAUSTED")
	delay := ExtractRetryDelay(err)
	assert.InDelta(t, 45.387, delay.Seconds(), 0.01)

	assert.Equal(t, time.Duration(0), ExtractRetryDelay(fmt.Errorf("no delay here")))
}

func TestCalculateBackoff_CappedAtMax(t *testing.T) {
	cfg := NewDefaultRetryConfig()
	assert.LessOrEqual(t, cfg.CalculateBackoff(10, 0), cfg.MaxBackoff)
	assert.Equal(t, cfg.InitialBackoff, cfg.CalculateBackoff(0, 0))
}
