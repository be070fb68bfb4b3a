package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewAnthropic(t *testing.T) {
	provider, err := NewAnthropic("sk-test-key", "")
	if err != nil {
		t.Fatalf("NewAnthropic() returned error: %v", err)
	}
	if provider.Name() != "anthropic" {
		t.Errorf("provider name = %v, want anthropic", provider.Name())
	}
	if got := provider.RequiredCredentials(); len(got) != 1 || got[0] != EnvAnthropicKey {
		t.Errorf("RequiredCredentials() = %v, want [%s]", got, EnvAnthropicKey)
	}
}

func TestAnthropicProvider_Chat(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("request path = %q, want /v1/messages", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "sk-test-key" {
			t.Errorf("x-api-key header = %q, want sk-test-key", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("anthropic-version header = %q", r.Header.Get("anthropic-version"))
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_123",
			"role": "assistant",
			"model": "claude-3-5-sonnet-20241022",
			"content": [{"type": "text", "text": "Fotossíntese é o processo..."}],
			"usage": {"input_tokens": 12, "output_tokens": 40}
		}`))
	}))
	defer srv.Close()

	p, _ := NewAnthropic("sk-test-key", srv.URL)
	res, err := p.Invoke(context.Background(), GenerationRequest{
		Operation: OpChat,
		Prompt:    "Explique a fotossíntese",
		System:    "Responda em português.",
	}, "claude-3-5-sonnet-20241022")
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}

	if res.Content != "Fotossíntese é o processo..." {
		t.Errorf("Content = %q", res.Content)
	}
	if res.TokensUsed != 52 || !res.TokensExact {
		t.Errorf("tokens = %d exact=%v, want 52 exact", res.TokensUsed, res.TokensExact)
	}
	if res.Provider != "anthropic" {
		t.Errorf("Provider = %q, want anthropic", res.Provider)
	}
	if gotBody["system"] != "Responda em português." {
		t.Errorf("request system = %v", gotBody["system"])
	}
	if gotBody["model"] != "claude-3-5-sonnet-20241022" {
		t.Errorf("request model = %v", gotBody["model"])
	}
}

func TestAnthropicProvider_VisionAnalyze(t *testing.T) {
	jpegBytes := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

	var gotReq anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		// Re-decode into the concrete wire type to inspect the content parts.
		var generic struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string                 `json:"role"`
				Content []anthropicContentPart `json:"content"`
			} `json:"messages"`
		}
		if err := json.Unmarshal(raw, &generic); err != nil {
			t.Errorf("request body did not decode: %v", err)
		}
		gotReq.Model = generic.Model
		if len(generic.Messages) == 1 {
			gotReq.Messages = []anthropicMessage{{
				Role:    generic.Messages[0].Role,
				Content: generic.Messages[0].Content,
			}}
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_456",
			"model": "claude-3-5-sonnet-20241022",
			"content": [{"type": "text", "text": "A imagem mostra um diagrama."}],
			"usage": {"input_tokens": 1200, "output_tokens": 80}
		}`))
	}))
	defer srv.Close()

	p, _ := NewAnthropic("sk-test-key", srv.URL)
	res, err := p.Invoke(context.Background(), GenerationRequest{
		Operation:  OpVisionAnalyze,
		Prompt:     "O que mostra esta imagem?",
		Attachment: jpegBytes,
	}, "claude-3-5-sonnet-20241022")
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}

	if res.TokensUsed != 1280 || !res.TokensExact {
		t.Errorf("tokens = %d exact=%v, want 1280 exact", res.TokensUsed, res.TokensExact)
	}

	if len(gotReq.Messages) != 1 {
		t.Fatalf("request carried %d messages, want 1", len(gotReq.Messages))
	}
	parts, ok := gotReq.Messages[0].Content.([]anthropicContentPart)
	if !ok || len(parts) != 2 {
		t.Fatalf("user turn should hold an image part and a text part, got %v", gotReq.Messages[0].Content)
	}
	if parts[0].Type != "image" || parts[0].Source == nil {
		t.Fatalf("first part should be an image block, got %+v", parts[0])
	}
	if parts[0].Source.MediaType != "image/jpeg" {
		t.Errorf("media_type = %q, want image/jpeg", parts[0].Source.MediaType)
	}
	if parts[0].Source.Data != base64.StdEncoding.EncodeToString(jpegBytes) {
		t.Error("image data was not base64 encoded from the attachment")
	}
	if parts[1].Type != ContentTypeText || parts[1].Text != "O que mostra esta imagem?" {
		t.Errorf("text part = %+v", parts[1])
	}
}

func TestAnthropicProvider_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"rate limited"}}`))
	}))
	defer srv.Close()

	p, _ := NewAnthropic("sk-test-key", srv.URL)
	_, err := p.Invoke(context.Background(), GenerationRequest{
		Operation: OpChat,
		Prompt:    "hi",
	}, "claude-3-5-sonnet-20241022")
	if err == nil {
		t.Fatal("expected an error for a 429 response")
	}
	if KindOf(err) != KindUpstream {
		t.Errorf("error kind = %v, want %v", KindOf(err), KindUpstream)
	}
}

func TestAnthropicProvider_UnsupportedOperation(t *testing.T) {
	p, _ := NewAnthropic("sk-test-key", "")
	for _, op := range []Operation{OpImage, OpSearch} {
		_, err := p.Invoke(context.Background(), GenerationRequest{Operation: op, Prompt: "x"}, "claude-3-5-sonnet-20241022")
		if KindOf(err) != KindUnsupportedOperation {
			t.Errorf("Invoke(%s) error kind = %v, want %v", op, KindOf(err), KindUnsupportedOperation)
		}
	}
}

func TestSniffImageMediaType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg marker", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}, "image/jpeg"},
		{"png marker", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00}, "image/png"},
		{"webp passthrough", []byte("RIFF....WEBP"), "application/octet-stream"},
		{"empty", nil, "application/octet-stream"},
		{"truncated jpeg", []byte{0xFF, 0xD8}, "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SniffImageMediaType(tt.data); got != tt.want {
				t.Errorf("SniffImageMediaType() = %q, want %q", got, tt.want)
			}
		})
	}
}
