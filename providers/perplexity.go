package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// EnvPerplexityKey is the environment variable carrying the Perplexity API key.
const EnvPerplexityKey = "PERPLEXITY_API_KEY"

// DefaultSearchRecency is the recency window applied to search calls when
// the caller does not pick one.
const DefaultSearchRecency = "month"

// PerplexityProvider is the search-augmented adapter. Queries go to the
// chat-completions endpoint with a recency filter, and the answer comes back
// with the citation URLs the backend grounded it on. Perplexity does not
// always report usage; when it is absent the call is flagged as unmetered
// rather than estimated.
type PerplexityProvider struct {
	Base
	httpClient *http.Client
}

// NewPerplexity creates the Perplexity adapter.
func NewPerplexity(apiKey, baseURL string) (*PerplexityProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.perplexity.ai"
	}
	baseURL = strings.TrimRight(baseURL, "/")
	return &PerplexityProvider{
		Base:       Base{name: "perplexity", apiKey: apiKey, baseURL: baseURL},
		httpClient: &http.Client{},
	}, nil
}

// RequiredCredentials implements Provider.
func (p *PerplexityProvider) RequiredCredentials() []string {
	return []string{EnvPerplexityKey}
}

type perplexityMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type perplexityRequest struct {
	Model               string              `json:"model"`
	Messages            []perplexityMessage `json:"messages"`
	Temperature         *float64            `json:"temperature,omitempty"`
	MaxTokens           *int                `json:"max_tokens,omitempty"`
	SearchRecencyFilter string              `json:"search_recency_filter,omitempty"`
	ReturnCitations     bool                `json:"return_citations,omitempty"`
}

type perplexityResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations"`
	Usage     *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type perplexityError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Invoke implements Provider. Perplexity serves search operations only.
func (p *PerplexityProvider) Invoke(ctx context.Context, req GenerationRequest, model string) (*GenerationResult, error) {
	if req.Operation != OpSearch {
		return nil, Unsupported("perplexity adapter serves search operations only")
	}

	recency := req.Search.Recency
	if recency == "" {
		recency = DefaultSearchRecency
	}

	pReq := perplexityRequest{
		Model: model,
		Messages: []perplexityMessage{
			{Role: RoleUser, Content: req.Prompt},
		},
		Temperature:         req.Temperature,
		MaxTokens:           req.MaxTokens,
		SearchRecencyFilter: recency,
		ReturnCitations:     req.Search.IncludeCitations,
	}
	if req.System != "" {
		pReq.Messages = append([]perplexityMessage{
			{Role: RoleSystem, Content: req.System},
		}, pReq.Messages...)
	}

	body, err := json.Marshal(pReq)
	if err != nil {
		return nil, Upstream(p.name, fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, Upstream(p.name, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

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
		var errResp perplexityError
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return nil, Upstream(p.name, fmt.Errorf("API error (%d): %s", httpResp.StatusCode, errResp.Error.Message))
		}
		return nil, Upstream(p.name, fmt.Errorf("API error (%d): %s", httpResp.StatusCode, string(respBody)))
	}

	var pResp perplexityResponse
	if err := json.Unmarshal(respBody, &pResp); err != nil {
		return nil, Upstream(p.name, fmt.Errorf("unmarshal response: %w", err))
	}
	if len(pResp.Choices) == 0 {
		return nil, Upstream(p.name, errNoChoices)
	}

	result := &GenerationResult{
		Content:  pResp.Choices[0].Message.Content,
		Provider: p.name,
		Model:    pResp.Model,
	}
	if req.Search.IncludeCitations {
		result.Citations = pResp.Citations
	}
	if pResp.Usage != nil && pResp.Usage.TotalTokens > 0 {
		result.TokensUsed = pResp.Usage.TotalTokens
		result.TokensExact = true
	}
	return result, nil
}
