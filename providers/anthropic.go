package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// EnvAnthropicKey is the environment variable carrying the Anthropic API key.
const EnvAnthropicKey = "ANTHROPIC_API_KEY"

// AnthropicProvider is the vision-capable chat adapter. It serves text chat
// and image analysis through the Messages API. Token counts come from the
// backend's usage block and are always exact.
type AnthropicProvider struct {
	Base
	httpClient *http.Client
}

// NewAnthropic creates the Anthropic adapter. The optional baseURL parameter
// allows overriding the API endpoint (pass "" for the default).
func NewAnthropic(apiKey string, baseURL string) (*AnthropicProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	return &AnthropicProvider{
		Base:       Base{name: "anthropic", apiKey: apiKey, baseURL: baseURL},
		httpClient: &http.Client{},
	}, nil
}

// RequiredCredentials implements Provider.
func (p *AnthropicProvider) RequiredCredentials() []string {
	return []string{EnvAnthropicKey}
}

type anthropicContentPart struct {
	Type   string                `json:"type"`
	Text   string                `json:"text,omitempty"`
	Source *anthropicImageSource `json:"source,omitempty"`
}

type anthropicImageSource struct {
	Type      string `json:"type"`       // always "base64"
	MediaType string `json:"media_type"` // e.g. "image/jpeg"
	Data      string `json:"data"`
}

type anthropicMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string or []anthropicContentPart
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicResponse struct {
	ID      string                  `json:"id"`
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
	Model   string                  `json:"model"`
	Usage   anthropicUsage          `json:"usage"`
}

type anthropicErrorResponse struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Invoke implements Provider. Anthropic serves chat and image analysis.
func (p *AnthropicProvider) Invoke(ctx context.Context, req GenerationRequest, model string) (*GenerationResult, error) {
	switch req.Operation {
	case OpChat:
		return p.send(ctx, req, model, anthropicMessage{Role: RoleUser, Content: req.Prompt})
	case OpVisionAnalyze:
		return p.send(ctx, req, model, p.visionMessage(req))
	default:
		return nil, Unsupported(
			"anthropic adapter serves chat and analyze operations only")
	}
}

// visionMessage builds the multipart user turn for image analysis: one image
// block (base64, sniffed media type) followed by the instruction text.
func (p *AnthropicProvider) visionMessage(req GenerationRequest) anthropicMessage {
	prompt := req.Prompt
	if prompt == "" {
		prompt = "Descreva e analise esta imagem em detalhes."
	}
	return anthropicMessage{
		Role: RoleUser,
		Content: []anthropicContentPart{
			{
				Type: "image",
				Source: &anthropicImageSource{
					Type:      "base64",
					MediaType: SniffImageMediaType(req.Attachment),
					Data:      base64.StdEncoding.EncodeToString(req.Attachment),
				},
			},
			{Type: ContentTypeText, Text: prompt},
		},
	}
}

func (p *AnthropicProvider) send(ctx context.Context, req GenerationRequest, model string, msg anthropicMessage) (*GenerationResult, error) {
	maxTokens := 1024
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	aReq := anthropicRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		System:      req.System,
		Messages:    []anthropicMessage{msg},
		Temperature: req.Temperature,
	}

	body, err := json.Marshal(aReq)
	if err != nil {
		return nil, Upstream(p.name, fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, Upstream(p.name, err)
	}
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	httpReq.Header.Set("content-type", "application/json")

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, Upstream(p.name, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, Upstream(p.name, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var errResp anthropicErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return nil, Upstream(p.name, fmt.Errorf("API error (%d): %s", httpResp.StatusCode, errResp.Error.Message))
		}
		return nil, Upstream(p.name, fmt.Errorf("API error (%d): %s", httpResp.StatusCode, string(respBody)))
	}

	var aResp anthropicResponse
	if err := json.Unmarshal(respBody, &aResp); err != nil {
		return nil, Upstream(p.name, fmt.Errorf("unmarshal response: %w", err))
	}

	var content strings.Builder
	for _, block := range aResp.Content {
		if block.Type == ContentTypeText {
			content.WriteString(block.Text)
		}
	}

	return &GenerationResult{
		Content:     content.String(),
		TokensUsed:  aResp.Usage.InputTokens + aResp.Usage.OutputTokens,
		TokensExact: true,
		Provider:    p.name,
		Model:       aResp.Model,
	}, nil
}

// SniffImageMediaType infers a media type from the attachment's leading
// bytes. JPEG and PNG markers are recognised (the upload filter admits both);
// anything else is passed through as a generic binary type.
func SniffImageMediaType(data []byte) string {
	if len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	if len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}) {
		return "image/png"
	}
	return "application/octet-stream"
}
