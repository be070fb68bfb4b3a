// Package providers defines the Provider interface and the shared request and
// result types used across all AI backend adapters.
//
// Each backend family (openai, anthropic, bedrock, perplexity) implements the
// Provider interface. The rest of the gateway (router, accountant, HTTP
// handlers) works only with these normalised types and never sees a
// backend's wire format.
package providers

import (
	"context"
	"fmt"
)

// Message role constants shared by the chat-style adapters.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"

	// ContentTypeText is the content-part type for plain text in multimodal
	// message arrays.
	ContentTypeText = "text"
)

// Operation identifies what kind of generation a request asks for.
type Operation string

// Operations supported by the gateway.
const (
	OpChat          Operation = "chat"
	OpImage         Operation = "image"
	OpVisionAnalyze Operation = "analyze"
	OpSearch        Operation = "search"
)

// Valid reports whether op is one of the defined operations.
func (op Operation) Valid() bool {
	switch op {
	case OpChat, OpImage, OpVisionAnalyze, OpSearch:
		return true
	}
	return false
}

// Provider is the contract every backend adapter satisfies.
type Provider interface {
	// Name returns the stable provider identifier, e.g. "openai" or "bedrock".
	Name() string
	// RequiredCredentials returns the environment variable names that must be
	// set and non-empty for this provider to be usable.
	RequiredCredentials() []string
	// Invoke performs one exchange against the backend using the concrete
	// model resolved by the catalog. Backend failures are returned as *Error
	// values from this package; raw backend error types never escape.
	Invoke(ctx context.Context, req GenerationRequest, model string) (*GenerationResult, error)
}

// SearchOptions tunes a search-augmented request.
type SearchOptions struct {
	// Recency restricts results by age: "day", "week", "month" or "year".
	// Empty means the provider default ("month").
	Recency string `json:"recency,omitempty"`
	// IncludeCitations asks the backend to return its source references.
	IncludeCitations bool `json:"includeCitations,omitempty"`
}

// GenerationRequest is the normalised request accepted by the gateway.
type GenerationRequest struct {
	// CallerID and ContractID key the usage ledger entry written after a
	// completed exchange.
	CallerID   int `json:"callerId"`
	ContractID int `json:"contractId"`

	Operation Operation `json:"operation"`

	// Prompt is the user text. For OpSearch it is the query; for
	// OpVisionAnalyze it is the optional instruction accompanying the image.
	Prompt string `json:"prompt"`

	// Provider optionally pins the exchange to one backend (the HTTP surface
	// is per-provider). Empty means "route by operation and model hint".
	Provider string `json:"provider,omitempty"`

	// Model is the optional model hint. Empty means the family default.
	Model string `json:"model,omitempty"`

	// System overrides the family's default system preamble.
	System string `json:"system,omitempty"`

	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"maxTokens,omitempty"`

	// Attachment carries the raw image bytes for OpVisionAnalyze.
	Attachment []byte `json:"-"`

	// Image generation tuning (OpImage only).
	ImageSize    string `json:"size,omitempty"`
	ImageQuality string `json:"quality,omitempty"`
	ImageCount   *int   `json:"n,omitempty"`

	Search SearchOptions `json:"searchOptions,omitempty"`
}

// Per-operation prompt bounds, matching the web layer's form limits.
const (
	maxChatPromptChars     = 4000
	maxLongFormPromptChars = 100000
	maxAttachmentBytes     = 5 * 1024 * 1024
	maxImagesPerRequest    = 4
)

// Validate checks the structural per-operation constraints. It is the
// gateway's first step and runs before any routing or network activity.
func (r GenerationRequest) Validate() error {
	if !r.Operation.Valid() {
		return Validation(fmt.Sprintf("unknown operation: %q", r.Operation))
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 1) {
		return Validation("temperature must be between 0 and 1")
	}
	if r.MaxTokens != nil && *r.MaxTokens <= 0 {
		return Validation("maxTokens must be positive")
	}

	switch r.Operation {
	case OpChat:
		if r.Prompt == "" {
			return Validation("prompt is required")
		}
		if len(r.Prompt) > maxLongFormPromptChars {
			return Validation(fmt.Sprintf("prompt exceeds %d characters", maxLongFormPromptChars))
		}
	case OpImage:
		if r.Prompt == "" {
			return Validation("prompt is required")
		}
		if len(r.Prompt) > maxChatPromptChars {
			return Validation(fmt.Sprintf("prompt exceeds %d characters", maxChatPromptChars))
		}
		if r.ImageCount != nil && (*r.ImageCount < 1 || *r.ImageCount > maxImagesPerRequest) {
			return Validation(fmt.Sprintf("n must be between 1 and %d", maxImagesPerRequest))
		}
	case OpVisionAnalyze:
		if len(r.Attachment) == 0 {
			return Validation("an image attachment is required for analysis")
		}
		if len(r.Attachment) > maxAttachmentBytes {
			return Validation("attachment exceeds the 5MB limit")
		}
		if len(r.Prompt) > maxChatPromptChars {
			return Validation(fmt.Sprintf("prompt exceeds %d characters", maxChatPromptChars))
		}
	case OpSearch:
		if r.Prompt == "" {
			return Validation("query is required")
		}
		if len(r.Prompt) > maxChatPromptChars {
			return Validation(fmt.Sprintf("query exceeds %d characters", maxChatPromptChars))
		}
	}

	// An attachment on a non-analysis operation is a caller bug, not
	// something to silently drop.
	if r.Operation != OpVisionAnalyze && len(r.Attachment) > 0 {
		return Validation("attachment is only accepted by the analyze operation")
	}
	return nil
}

// GeneratedImage describes a single image produced by OpImage.
type GeneratedImage struct {
	URL           string `json:"url,omitempty"`
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revisedPrompt,omitempty"`
}

// GenerationResult is the normalised outcome of a completed exchange.
type GenerationResult struct {
	// Content holds the text answer. Empty for OpImage.
	Content string `json:"content,omitempty"`
	// Images holds the generated image descriptors (OpImage only).
	Images []GeneratedImage `json:"images,omitempty"`
	// Citations holds source references (OpSearch only).
	Citations []string `json:"citations,omitempty"`

	// TokensUsed is the input+output token total for the exchange. When
	// TokensExact is false the value is a local estimate (or zero when the
	// backend reported nothing and no estimate is meaningful), never a
	// backend-reported figure.
	TokensUsed  int  `json:"tokensUsed"`
	TokensExact bool `json:"tokensExact"`

	// Provider and Model identify the backend and the concrete model that
	// actually served the request, which may differ from the request's hint.
	Provider string `json:"provider"`
	Model    string `json:"model"`
}
