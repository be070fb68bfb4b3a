package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	aicentral "github.com/IAprender-dev/Iaprender-sub006"
	"github.com/IAprender-dev/Iaprender-sub006/models"
	"github.com/IAprender-dev/Iaprender-sub006/providers"
)

// scriptedProvider serves canned results for handler tests.
type scriptedProvider struct {
	name   string
	creds  []string
	result *providers.GenerationResult
	err    error
}

func (s *scriptedProvider) Name() string                  { return s.name }
func (s *scriptedProvider) RequiredCredentials() []string { return s.creds }
func (s *scriptedProvider) Invoke(_ context.Context, _ providers.GenerationRequest, model string) (*providers.GenerationResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	res := *s.result
	if res.Model == "" {
		res.Model = model
	}
	return &res, nil
}

func newTestServer(t *testing.T, ps ...providers.Provider) http.Handler {
	t.Helper()
	catalog, err := models.NewCatalog(models.PolicyFallback)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	gw := aicentral.New(catalog, nil)
	for _, p := range ps {
		gw.RegisterProvider(p)
	}
	return newRouter(gw, nil)
}

func TestHandleChat(t *testing.T) {
	t.Setenv(providers.EnvOpenAIKey, "sk-test")

	h := newTestServer(t, &scriptedProvider{
		name:  "openai",
		creds: []string{providers.EnvOpenAIKey},
		result: &providers.GenerationResult{
			Content:     "Brasília.",
			TokensUsed:  25,
			TokensExact: true,
			Provider:    "openai",
		},
	})

	body := `{"prompt": "Qual é a capital do Brasil?"}`
	req := httptest.NewRequest(http.MethodPost, "/ai/openai/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Caller-ID", "42")
	req.Header.Set("X-Contract-ID", "7")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp chatResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Content != "Brasília." || resp.TokensUsed != 25 || !resp.TokensExact {
		t.Errorf("response = %+v", resp)
	}
	if resp.Model != "gpt-4o" {
		t.Errorf("model = %q, want family default gpt-4o", resp.Model)
	}
}

func TestHandleChat_ValidationError(t *testing.T) {
	t.Setenv(providers.EnvOpenAIKey, "sk-test")

	h := newTestServer(t, &scriptedProvider{
		name:   "openai",
		creds:  []string{providers.EnvOpenAIKey},
		result: &providers.GenerationResult{Provider: "openai"},
	})

	req := httptest.NewRequest(http.MethodPost, "/ai/openai/chat", strings.NewReader(`{"prompt": ""}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "validation") {
		t.Errorf("body should carry the error kind: %s", rr.Body.String())
	}
}

func TestHandleChat_MissingCredentials(t *testing.T) {
	t.Setenv(providers.EnvOpenAIKey, "")

	h := newTestServer(t, &scriptedProvider{
		name:   "openai",
		creds:  []string{providers.EnvOpenAIKey},
		result: &providers.GenerationResult{Provider: "openai"},
	})

	req := httptest.NewRequest(http.MethodPost, "/ai/openai/chat", strings.NewReader(`{"prompt": "olá"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
}

func TestHandleChat_WrongOperationForProvider(t *testing.T) {
	t.Setenv(providers.EnvPerplexityKey, "pplx-test")

	h := newTestServer(t, &scriptedProvider{
		name:   "perplexity",
		creds:  []string{providers.EnvPerplexityKey},
		result: &providers.GenerationResult{Provider: "perplexity"},
	})

	// Perplexity serves search, not chat.
	req := httptest.NewRequest(http.MethodPost, "/ai/perplexity/chat", strings.NewReader(`{"prompt": "olá"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "unsupported_operation") {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestHandleSearch(t *testing.T) {
	t.Setenv(providers.EnvPerplexityKey, "pplx-test")

	h := newTestServer(t, &scriptedProvider{
		name:  "perplexity",
		creds: []string{providers.EnvPerplexityKey},
		result: &providers.GenerationResult{
			Content:     "Novidades do ENEM...",
			Citations:   []string{"https://example.com/enem"},
			TokensUsed:  42,
			TokensExact: true,
			Provider:    "perplexity",
		},
	})

	body := `{"query": "novidades do ENEM", "includeReferences": true}`
	req := httptest.NewRequest(http.MethodPost, "/ai/perplexity/search", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp searchResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Citations) != 1 || resp.TokensUsed != 42 {
		t.Errorf("response = %+v", resp)
	}
}

func TestHandleAnalyze(t *testing.T) {
	t.Setenv(providers.EnvAnthropicKey, "sk-test")

	h := newTestServer(t, &scriptedProvider{
		name:  "anthropic",
		creds: []string{providers.EnvAnthropicKey},
		result: &providers.GenerationResult{
			Content:     "A imagem mostra um diagrama.",
			TokensUsed:  1280,
			TokensExact: true,
			Provider:    "anthropic",
		},
	})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "diagram.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10})
	_ = mw.WriteField("prompt", "O que mostra esta imagem?")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/ai/anthropic/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp chatResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TokensUsed != 1280 {
		t.Errorf("tokensUsed = %d, want 1280", resp.TokensUsed)
	}
}

func TestHandleAnalyze_MissingImage(t *testing.T) {
	t.Setenv(providers.EnvAnthropicKey, "sk-test")

	h := newTestServer(t, &scriptedProvider{
		name:   "anthropic",
		creds:  []string{providers.EnvAnthropicKey},
		result: &providers.GenerationResult{Provider: "anthropic"},
	})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("prompt", "sem imagem")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/ai/anthropic/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestHandleAvailability(t *testing.T) {
	t.Setenv(providers.EnvOpenAIKey, "sk-test")
	t.Setenv(providers.EnvAnthropicKey, "")
	t.Setenv(providers.EnvPerplexityKey, "")
	t.Setenv(providers.EnvAWSAccessKey, "")
	t.Setenv(providers.EnvAWSSecretKey, "")

	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/ai/availability", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var report map[string]bool
	if err := json.Unmarshal(rr.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if !report["openai"] || report["anthropic"] || report["bedrock"] || report["perplexity"] {
		t.Errorf("report = %v", report)
	}
}

func TestHandleModels(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/ai/models", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp struct {
		Providers []models.ProviderDescriptor `json:"providers"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode catalog: %v", err)
	}
	if len(resp.Providers) != 4 {
		t.Errorf("len(providers) = %d, want 4", len(resp.Providers))
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || rr.Body.String() != "OK" {
		t.Errorf("health = %d %q", rr.Code, rr.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	catalog, _ := models.NewCatalog(models.PolicyFallback)
	gw := aicentral.New(catalog, nil)
	h := newRouter(gw, []string{"https://app.iaprender.com.br"})

	req := httptest.NewRequest(http.MethodOptions, "/ai/openai/chat", nil)
	req.Header.Set("Origin", "https://app.iaprender.com.br")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.iaprender.com.br" {
		t.Errorf("allow-origin = %q", got)
	}

	// Unknown origins get no allow header.
	req = httptest.NewRequest(http.MethodOptions, "/ai/openai/chat", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("allow-origin for unknown origin = %q, want empty", got)
	}
}
