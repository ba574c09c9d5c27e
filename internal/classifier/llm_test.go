package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/mikey/invoice-analyzer/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLLMClient struct {
	extraction *core.InvoiceExtraction
	err        error
	calls      int
}

func (f *fakeLLMClient) ExtractInvoice(_ context.Context, _ *core.Email) (*core.InvoiceExtraction, error) {
	f.calls++
	return f.extraction, f.err
}

func TestLLMClassifier_MergesExtraction(t *testing.T) {
	client := &fakeLLMClient{extraction: &core.InvoiceExtraction{
		ContainsInvoice: true,
		Confidence:      87,
		Vendor:          "ABC Company",
		Amount:          "$2,500.00",
		InvoiceNumber:   "INV-2024-001",
		DueDate:         "2024-03-15",
		ModelUsed:       "test-model",
	}}
	c := NewLLMClassifier(client, newTestClassifier(), zap.NewNop())
	email := clearInvoice()

	a, err := c.Classify(context.Background(), &email)

	require.NoError(t, err)
	assert.Equal(t, 1, client.calls)
	assert.True(t, a.ContainsInvoice)
	assert.Equal(t, core.DetectionLLM, a.DetectionMethod)
	assert.Equal(t, core.AnalysisMethodLLM, a.AnalysisMethod)
	assert.Equal(t, 87, a.Confidence)
	assert.Equal(t, "ABC Company", a.InvoiceDetails.Vendor)
	assert.Equal(t, "INV-2024-001", a.InvoiceDetails.InvoiceNumber)
	require.NotNil(t, a.InvoiceDetails.DueDate)
	assert.Equal(t, "2024-03-15", *a.InvoiceDetails.DueDate)
	assert.Contains(t, a.Patterns, "llm_model: test-model")
	assert.Contains(t, a.Patterns, "amount_pattern: $2,500.00", "heuristic traces are kept")
	assert.NotEmpty(t, a.Topics)
}

func TestLLMClassifier_ConfidenceInvariants(t *testing.T) {
	tests := []struct {
		name       string
		extraction core.InvoiceExtraction
		want       int
	}{
		{"low confidence raised to floor", core.InvoiceExtraction{ContainsInvoice: true, Confidence: 5}, 30},
		{"over range capped", core.InvoiceExtraction{ContainsInvoice: true, Confidence: 250}, 100},
		{"negative clamped", core.InvoiceExtraction{ContainsInvoice: true, Confidence: -10}, 30},
		{"not an invoice", core.InvoiceExtraction{ContainsInvoice: false, Confidence: 90}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := tt.extraction
			c := NewLLMClassifier(&fakeLLMClient{extraction: &ext}, newTestClassifier(), zap.NewNop())
			email := meetingEmail()

			a, err := c.Classify(context.Background(), &email)

			require.NoError(t, err)
			assert.Equal(t, tt.want, a.Confidence)
		})
	}
}

func TestLLMClassifier_FallsBackOnError(t *testing.T) {
	c := NewLLMClassifier(&fakeLLMClient{err: errors.New("throttled")}, newTestClassifier(), zap.NewNop())
	email := clearInvoice()

	a, err := c.Classify(context.Background(), &email)

	require.NoError(t, err)
	assert.Equal(t, newTestClassifier().Analyze(clearInvoice()), a)
	assert.Equal(t, core.AnalysisMethodEnhanced, a.AnalysisMethod)
}

func TestMergeExtraction_DoesNotMutateBase(t *testing.T) {
	base := newTestClassifier().Analyze(clearInvoice())
	before := *base.InvoiceDetails.Amount
	patterns := len(base.Patterns)

	mergeExtraction(base, &core.InvoiceExtraction{ContainsInvoice: true, Confidence: 50, Amount: "$1.00"})

	assert.Equal(t, before, *base.InvoiceDetails.Amount)
	assert.Len(t, base.Patterns, patterns)
	assert.Equal(t, core.AnalysisMethodEnhanced, base.AnalysisMethod)
}
