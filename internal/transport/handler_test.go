package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-medical-analyzer/internal/config"
	apperrors "go-medical-analyzer/internal/errors"
	"go-medical-analyzer/internal/pipeline"
	"go-medical-analyzer/pkg/models"
	"go-medical-analyzer/pkg/validation"
)

type fakeService struct {
	result  *models.AnalysisResult
	err     error
	gotExt  string
	gotData []byte
	gotOpts pipeline.RunOptions
}

func (f *fakeService) Analyze(_ context.Context, data []byte, ext string, opts pipeline.RunOptions) (*models.AnalysisResult, error) {
	f.gotData, f.gotExt, f.gotOpts = data, ext, opts
	return f.result, f.err
}

func (f *fakeService) Get(_ context.Context, id string) (*models.AnalysisResult, error) {
	if id == "known" {
		return f.result, nil
	}
	return nil, apperrors.NewNotFoundError("analysis not found", nil)
}

func (f *fakeService) History(_ context.Context, limit int) ([]*models.AnalysisResult, error) {
	out := []*models.AnalysisResult{}
	for i := 0; i < limit && i < 3; i++ {
		out = append(out, f.result)
	}
	return out, nil
}

func (f *fakeService) Providers() []string {
	return []string{"remote_vision", "heuristic"}
}

type staticMetrics map[string]map[string]int

func (m staticMetrics) Snapshot() map[string]map[string]int { return m }

func testConfig() *config.Config {
	return &config.Config{
		LogLevel:           "info",
		MaxRequestBodySize: 1 << 20,
		AllowedOrigins:     []string{"*"},
	}
}

func sampleResult() *models.AnalysisResult {
	return &models.AnalysisResult{
		ID:         "known",
		Provider:   "remote_vision",
		Narrative:  "Likely **Pneumonia**.",
		Findings:   []models.Finding{},
		Timestamp:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		TopFinding: nil,
	}
}

func newTestHandler(svc *fakeService) http.Handler {
	return NewHandler(svc, validation.NewUploadValidator(1<<20), staticMetrics{"heuristic": {"provider_succeeded": 2}}, testConfig())
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestAnalyzeUpload(t *testing.T) {
	svc := &fakeService{result: sampleResult()}
	h := newTestHandler(svc)

	body, contentType := multipartBody(t, "image", "chest.PNG", []byte("png-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "png", svc.gotExt)
	assert.Equal(t, []byte("png-bytes"), svc.gotData)
	assert.Empty(t, svc.gotOpts.Skip)

	var resp models.AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.HTML, "<strong>Pneumonia</strong>")
	assert.Equal(t, "remote_vision", resp.Analysis.Provider)
}

func TestMLAnalyzeSkipsRemote(t *testing.T) {
	svc := &fakeService{result: sampleResult()}
	h := newTestHandler(svc)

	body, contentType := multipartBody(t, "image", "scan.dcm", []byte("dicom"))
	req := httptest.NewRequest(http.MethodPost, "/api/ml-analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"remote_vision"}, svc.gotOpts.Skip)
}

func TestAnalyzeUploadErrors(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		filename string
		svcErr   error
		expected int
	}{
		{"missing file", "image", "", nil, http.StatusBadRequest},
		{"wrong field", "file", "chest.png", nil, http.StatusBadRequest},
		{"bad extension", "image", "notes.txt", nil, http.StatusBadRequest},
		{"malformed image", "image", "chest.png", apperrors.NewMalformedInputError("image could not be decoded", nil), http.StatusUnprocessableEntity},
		{"no provider", "image", "chest.png", apperrors.NewNoProviderError("no analysis provider available", nil), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{result: sampleResult(), err: tt.svcErr}
			h := newTestHandler(svc)

			body, contentType := multipartBody(t, tt.field, tt.filename, []byte("data"))
			req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.expected, rec.Code, rec.Body.String())
			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestAnalyzeUploadTooLarge(t *testing.T) {
	svc := &fakeService{result: sampleResult()}
	cfg := testConfig()
	cfg.MaxRequestBodySize = 512
	h := NewHandler(svc, validation.NewUploadValidator(512), nil, cfg)

	body, contentType := multipartBody(t, "image", "chest.png", make([]byte, 4096))
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Nil(t, svc.gotData)
}

func TestGetAnalysis(t *testing.T) {
	h := newTestHandler(&fakeService{result: sampleResult()})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyses/known", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyses/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAnalyses(t *testing.T) {
	h := newTestHandler(&fakeService{result: sampleResult()})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyses?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyses?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	h := newTestHandler(&fakeService{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "available", resp.Status)
	assert.Equal(t, []string{"remote_vision", "heuristic"}, resp.Providers)
	assert.Equal(t, 2, resp.Metrics["heuristic"]["provider_succeeded"])
}

func TestCORSPreflight(t *testing.T) {
	h := newTestHandler(&fakeService{})

	req := httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
