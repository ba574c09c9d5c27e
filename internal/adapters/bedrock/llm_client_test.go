package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/invoice-analyzer/internal/core"
	"github.com/mikey/invoice-analyzer/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeInvoker struct {
	body  string
	err   error
	input *bedrockruntime.InvokeModelInput
}

func (f *fakeInvoker) InvokeModel(_ context.Context, params *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

func newTestClient(modelID string, fake *fakeInvoker) *BedrockClient {
	logger := zap.NewNop()
	return NewBedrockClient(fake, modelID, 300, 0.1, 0.9, 4096, logger, utils.NewTextProcessor(logger))
}

func testEmail() *core.Email {
	return &core.Email{Subject: "Invoice INV-9", From: "billing@acme.com", Body: "Total: $50.00"}
}

const answer = `{"contains_invoice": true, "confidence": 88, "vendor": "Acme", "amount": "$50.00"}`

func TestExtractInvoice_ModelFamilies(t *testing.T) {
	tests := []struct {
		name      string
		modelID   string
		response  string
		wantField string
	}{
		{
			name:      "claude messages",
			modelID:   "anthropic.claude-3-haiku-20240307-v1:0",
			response:  mustJSON(t, map[string]any{"content": []map[string]string{{"type": "text", "text": answer}}}),
			wantField: "messages",
		},
		{
			name:      "claude text completion",
			modelID:   "anthropic.claude-v2",
			response:  mustJSON(t, map[string]string{"completion": answer}),
			wantField: "prompt",
		},
		{
			name:      "titan",
			modelID:   "amazon.titan-text-express-v1",
			response:  mustJSON(t, map[string]any{"results": []map[string]string{{"outputText": answer}}}),
			wantField: "inputText",
		},
		{
			name:      "generic",
			modelID:   "meta.llama3-8b-instruct-v1:0",
			response:  mustJSON(t, map[string]string{"output": answer}),
			wantField: "prompt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeInvoker{body: tt.response}
			client := newTestClient(tt.modelID, fake)

			ext, err := client.ExtractInvoice(context.Background(), testEmail())
			require.NoError(t, err)

			assert.True(t, ext.ContainsInvoice)
			assert.Equal(t, 88, ext.Confidence)
			assert.Equal(t, "$50.00", ext.Amount)
			assert.Equal(t, tt.modelID, ext.ModelUsed)

			require.NotNil(t, fake.input)
			assert.Equal(t, tt.modelID, aws.ToString(fake.input.ModelId))
			var payload map[string]any
			require.NoError(t, json.Unmarshal(fake.input.Body, &payload))
			assert.Contains(t, payload, tt.wantField)
		})
	}
}

func TestExtractInvoice_Errors(t *testing.T) {
	t.Run("invoke failure", func(t *testing.T) {
		client := newTestClient("anthropic.claude-3-haiku-20240307-v1:0", &fakeInvoker{err: errors.New("throttled")})
		_, err := client.ExtractInvoice(context.Background(), testEmail())
		assert.ErrorContains(t, err, "throttled")
	})

	t.Run("empty claude content", func(t *testing.T) {
		client := newTestClient("anthropic.claude-3-haiku-20240307-v1:0", &fakeInvoker{body: `{"content": []}`})
		_, err := client.ExtractInvoice(context.Background(), testEmail())
		assert.Error(t, err)
	})

	t.Run("empty titan results", func(t *testing.T) {
		client := newTestClient("amazon.titan-text-express-v1", &fakeInvoker{body: `{"results": []}`})
		_, err := client.ExtractInvoice(context.Background(), testEmail())
		assert.Error(t, err)
	})
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}
