package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikey/invoice-analyzer/internal/adapters/cache"
	"github.com/mikey/invoice-analyzer/internal/classifier"
	"github.com/mikey/invoice-analyzer/internal/config"
	"github.com/mikey/invoice-analyzer/internal/core"
	"github.com/mikey/invoice-analyzer/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type analyzeEnvelope struct {
	Success  bool           `json:"success"`
	Analysis *core.Analysis `json:"analysis"`
	Cached   bool           `json:"cached"`
	Error    string         `json:"error"`
}

type panicAnalyzer struct{}

func (panicAnalyzer) Analyze(_ context.Context, _ string, _ *core.Email) (*core.Analysis, bool, error) {
	panic("boom")
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	memory := cache.NewMemoryCache(zap.NewNop(), 0)
	t.Cleanup(memory.Stop)

	reg := prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(reg)
	require.NoError(t, err)

	clock := classifier.WithClock(func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) })
	service := core.NewAnalysisService(classifier.New(clock), memory, recorder, zap.NewNop(), core.CacheOptions{
		Enabled:       true,
		BypassMarkers: core.DefaultBypassMarkers,
	})

	return NewServer(service, config.ServerConfig{}, zap.NewNop(), recorder, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) analyzeEnvelope {
	t.Helper()
	var env analyzeEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

const invoiceRequest = `{
	"emailId": "email-1",
	"emailContent": {
		"subject": "Invoice for Web Development Services - ABC Company",
		"from": "billing@abc-company.com",
		"body": "Please find attached invoice #INV-2024-001. Amount due: $2,500.00"
	}
}`

func TestAnalyze_Success(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(s, http.MethodPost, "/api/analyze", invoiceRequest)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	env := decodeEnvelope(t, w)
	assert.True(t, env.Success)
	assert.False(t, env.Cached)
	require.NotNil(t, env.Analysis)
	assert.True(t, env.Analysis.ContainsInvoice)
	assert.Equal(t, core.DetectionStrongKeywords, env.Analysis.DetectionMethod)
	require.NotNil(t, env.Analysis.InvoiceDetails.Amount)
	assert.Equal(t, "$2,500.00", *env.Analysis.InvoiceDetails.Amount)
}

func TestAnalyze_WireFieldNames(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(s, http.MethodPost, "/api/analyze", invoiceRequest)

	var body struct {
		Analysis map[string]json.RawMessage `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	for _, field := range []string{
		"containsInvoice", "confidence", "detectionMethod", "invoiceDetails", "extractedKeywords",
		"patterns", "topics", "urgency", "actionItems", "summary", "analysisMethod",
	} {
		assert.Contains(t, body.Analysis, field)
	}

	var details map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body.Analysis["invoiceDetails"], &details))
	for _, field := range []string{"vendor", "amount", "date", "invoiceNumber", "dueDate", "currency"} {
		assert.Contains(t, details, field)
	}
	assert.Equal(t, "null", string(details["dueDate"]))
}

func TestAnalyze_SecondCallCached(t *testing.T) {
	s := newTestServer(t)

	first := decodeEnvelope(t, doRequest(s, http.MethodPost, "/api/analyze", invoiceRequest))
	second := decodeEnvelope(t, doRequest(s, http.MethodPost, "/api/analyze", invoiceRequest))

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Analysis, second.Analysis)
}

func TestAnalyze_TestIDsBypassCache(t *testing.T) {
	s := newTestServer(t)
	body := strings.Replace(invoiceRequest, "email-1", "test-email-1", 1)

	doRequest(s, http.MethodPost, "/api/analyze", body)
	second := decodeEnvelope(t, doRequest(s, http.MethodPost, "/api/analyze", body))

	assert.True(t, second.Success)
	assert.False(t, second.Cached)
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"emailId": "x", `},
		{"empty body", ``},
		{"missing content", `{"emailId": "x"}`},
		{"missing id", `{"emailContent": {"subject": "hi"}}`},
		{"null id", `{"emailId": null, "emailContent": {"subject": "hi"}}`},
		{"numeric id", `{"emailId": 42, "emailContent": {"subject": "hi"}}`},
	}

	s := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(s, http.MethodPost, "/api/analyze", tt.body)

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			env := decodeEnvelope(t, w)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestAnalyze_EmptyIDAccepted(t *testing.T) {
	s := newTestServer(t)
	body := strings.Replace(invoiceRequest, `"email-1"`, `""`, 1)

	first := doRequest(s, http.MethodPost, "/api/analyze", body)
	require.Equal(t, http.StatusOK, first.Code)
	assert.True(t, decodeEnvelope(t, first).Success)

	second := decodeEnvelope(t, doRequest(s, http.MethodPost, "/api/analyze", body))
	assert.True(t, second.Success)
	assert.True(t, second.Cached)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/analyze", "/anything"} {
		w := doRequest(s, http.MethodOptions, path, "")

		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Empty(t, w.Body.String(), path)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
	}
}

func TestDashboard(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(s, http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "/api/analyze")
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(s, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t)
	doRequest(s, http.MethodPost, "/api/analyze", invoiceRequest)

	w := doRequest(s, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "invoice_analyzer_analyses_total")
	assert.Contains(t, w.Body.String(), "invoice_analyzer_http_requests_total")
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(s, http.MethodGet, "/nope", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not Found", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}

func TestPanicRecovered(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewServer(panicAnalyzer{}, config.ServerConfig{}, zap.NewNop(), nil, nil)

	w := doRequest(s, http.MethodPost, "/api/analyze", invoiceRequest)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	env := decodeEnvelope(t, w)
	assert.False(t, env.Success)
	assert.Equal(t, "internal server error", env.Error)
}
