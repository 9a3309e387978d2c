package workerutil

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// fakeClassifier answers every Classify call with the canned JSON document,
// or fails.
type fakeClassifier struct {
	response string
	err      error
}

func (f *fakeClassifier) Classify(ctx context.Context, prompt string, schema *interfaces.SchemaField, out interface{}) error {
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.response), out)
}

func candidates() []models.Lead {
	return []models.Lead{
		{Name: "Buyer One", IntentSignal: "looking for a tool", IntentScore: 70, SourcePlatform: models.PlatformCommunity},
		{Name: "Seller", IntentSignal: "check out my product", IntentScore: 65, SourcePlatform: models.PlatformCommunity},
		{Name: "Buyer Two", IntentSignal: "fed up with current vendor", IntentScore: 62, SourcePlatform: models.PlatformCommunity},
	}
}

func TestSellerFilter_RemovesSellers(t *testing.T) {
	f := NewSellerFilter(&fakeClassifier{response: `[
		{"index": 0, "is_seller": false},
		{"index": 1, "is_seller": true},
		{"index": 2, "is_seller": false}
	]`}, common.GetLogger())

	buyers, warning := f.Filter(context.Background(), candidates())

	assert.Empty(t, warning)
	assert.Len(t, buyers, 2)
	assert.Equal(t, "Buyer One", buyers[0].Name)
	assert.Equal(t, "Buyer Two", buyers[1].Name)
}

func TestSellerFilter_FailsOpenOnClassifierError(t *testing.T) {
	f := NewSellerFilter(&fakeClassifier{err: fmt.Errorf("model unavailable")}, common.GetLogger())

	buyers, warning := f.Filter(context.Background(), candidates())

	assert.Len(t, buyers, 3, "classifier outage must not drop candidates")
	assert.Contains(t, warning, "failed open")
}

func TestSellerFilter_FailsOpenWithoutClassifier(t *testing.T) {
	f := NewSellerFilter(nil, common.GetLogger())

	buyers, warning := f.Filter(context.Background(), candidates())

	assert.Len(t, buyers, 3)
	assert.NotEmpty(t, warning)
}

func TestSellerFilter_IgnoresOutOfRangeVerdicts(t *testing.T) {
	f := NewSellerFilter(&fakeClassifier{response: `[
		{"index": 99, "is_seller": true},
		{"index": -1, "is_seller": true}
	]`}, common.GetLogger())

	buyers, _ := f.Filter(context.Background(), candidates())
	assert.Len(t, buyers, 3)
}

func TestSellerFilter_EmptyInput(t *testing.T) {
	f := NewSellerFilter(&fakeClassifier{response: `[]`}, common.GetLogger())
	buyers, warning := f.Filter(context.Background(), nil)
	assert.Empty(t, buyers)
	assert.Empty(t, warning)
}
