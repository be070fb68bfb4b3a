// Package models holds the static provider catalog, the routing rules that
// map an operation and model hint to a concrete backend model, and the
// per-model pricing table.
package models

import (
	"fmt"
	"strings"

	"github.com/IAprender-dev/Iaprender-sub006/providers"
)

// Family classifies what a provider backend can do.
type Family string

// The four backend families.
const (
	FamilyChatCompletion    Family = "chat-completion"
	FamilyVisionCapableChat Family = "vision-capable-chat"
	FamilyManagedMultiModel Family = "managed-multi-model"
	FamilySearchAugmented   Family = "search-augmented"
)

// HintPolicy decides what happens when a model hint matches nothing in the
// catalog: quietly fall back to the family default, or reject the request.
type HintPolicy string

const (
	// PolicyFallback routes unmatched hints to the family default model.
	PolicyFallback HintPolicy = "fallback"
	// PolicyReject fails unmatched hints with a validation error.
	PolicyReject HintPolicy = "reject"
)

// Valid reports whether p is a defined policy.
func (p HintPolicy) Valid() bool {
	return p == PolicyFallback || p == PolicyReject
}

// ProviderDescriptor is the immutable catalog entry for one backend.
type ProviderDescriptor struct {
	ID             string                `json:"id"`
	Family         Family                `json:"family"`
	CredentialKeys []string              `json:"credentialKeys"`
	Operations     []providers.Operation `json:"operations"`

	// Models lists the known model IDs in preference order. For the managed
	// family the list is open-ended; unknown IDs still route by fragment.
	Models       []string `json:"models"`
	DefaultModel string   `json:"defaultModel"`

	// ImageModel is the default for the image operation where it differs
	// from the chat default.
	ImageModel string `json:"imageModel,omitempty"`

	// OpenEnded marks families whose hosted model list cannot be enumerated
	// up front. An unlisted hint is accepted as-is when a body-shape
	// fragment recognises it.
	OpenEnded bool `json:"openEnded"`
}

// Serves reports whether the descriptor can handle op.
func (d ProviderDescriptor) Serves(op providers.Operation) bool {
	for _, o := range d.Operations {
		if o == op {
			return true
		}
	}
	return false
}

// DefaultModelFor returns the default concrete model for op.
func (d ProviderDescriptor) DefaultModelFor(op providers.Operation) string {
	if op == providers.OpImage && d.ImageModel != "" {
		return d.ImageModel
	}
	return d.DefaultModel
}

// knowsModel reports whether hint is routable by this descriptor: a literal
// entry in Models, or any fragment-recognised ID for open-ended families.
func (d ProviderDescriptor) knowsModel(hint string) bool {
	for _, m := range d.Models {
		if m == hint {
			return true
		}
	}
	if d.OpenEnded {
		id := strings.ToLower(hint)
		for _, frag := range []string{"claude", "titan", "llama", "j2"} {
			if strings.Contains(id, frag) {
				return true
			}
		}
	}
	return false
}

// Catalog is the read-only routing table built once at process start. Safe
// for unlimited concurrent readers.
type Catalog struct {
	descriptors []ProviderDescriptor
	policy      HintPolicy
}

// NewCatalog builds the default catalog. policy controls unmatched-hint
// handling; an empty policy means fallback.
func NewCatalog(policy HintPolicy) (*Catalog, error) {
	if policy == "" {
		policy = PolicyFallback
	}
	if !policy.Valid() {
		return nil, fmt.Errorf("unknown model hint policy: %q", policy)
	}
	return &Catalog{descriptors: defaultDescriptors(), policy: policy}, nil
}

func defaultDescriptors() []ProviderDescriptor {
	return []ProviderDescriptor{
		{
			ID:             "openai",
			Family:         FamilyChatCompletion,
			CredentialKeys: []string{providers.EnvOpenAIKey},
			Operations:     []providers.Operation{providers.OpChat, providers.OpImage},
			Models: []string{
				"gpt-4o",
				"gpt-4o-mini",
				"gpt-4",
				"gpt-3.5-turbo",
				"dall-e-3",
				"dall-e-2",
			},
			DefaultModel: "gpt-4o",
			ImageModel:   "dall-e-3",
		},
		{
			ID:             "anthropic",
			Family:         FamilyVisionCapableChat,
			CredentialKeys: []string{providers.EnvAnthropicKey},
			Operations:     []providers.Operation{providers.OpChat, providers.OpVisionAnalyze},
			Models: []string{
				"claude-3-5-sonnet-20241022",
				"claude-3-5-haiku-20241022",
				"claude-3-opus-20240229",
				"claude-3-haiku-20240307",
			},
			DefaultModel: "claude-3-5-sonnet-20241022",
		},
		{
			ID:             "bedrock",
			Family:         FamilyManagedMultiModel,
			CredentialKeys: []string{providers.EnvAWSAccessKey, providers.EnvAWSSecretKey},
			Operations:     []providers.Operation{providers.OpChat},
			Models: []string{
				"anthropic.claude-3-5-sonnet-20241022-v2:0",
				"anthropic.claude-3-haiku-20240307-v1:0",
				"amazon.titan-text-express-v1",
				"amazon.titan-text-lite-v1",
				"meta.llama3-1-70b-instruct-v1:0",
				"meta.llama3-1-8b-instruct-v1:0",
				"ai21.j2-ultra-v1",
				"ai21.j2-mid-v1",
			},
			DefaultModel: "anthropic.claude-3-5-sonnet-20241022-v2:0",
			OpenEnded:    true,
		},
		{
			ID:             "perplexity",
			Family:         FamilySearchAugmented,
			CredentialKeys: []string{providers.EnvPerplexityKey},
			Operations:     []providers.Operation{providers.OpSearch},
			Models: []string{
				"llama-3.1-sonar-small-128k-online",
				"llama-3.1-sonar-large-128k-online",
				"llama-3.1-sonar-huge-128k-online",
				"sonar",
				"sonar-pro",
			},
			DefaultModel: "llama-3.1-sonar-small-128k-online",
		},
	}
}

// Descriptors returns the catalog entries in routing order.
func (c *Catalog) Descriptors() []ProviderDescriptor {
	out := make([]ProviderDescriptor, len(c.descriptors))
	copy(out, c.descriptors)
	return out
}

// Descriptor looks up one entry by provider id.
func (c *Catalog) Descriptor(id string) (ProviderDescriptor, bool) {
	for _, d := range c.descriptors {
		if d.ID == id {
			return d, true
		}
	}
	return ProviderDescriptor{}, false
}

// Resolve picks the descriptor and concrete model for one request.
//
// providerID, when non-empty, pins the request to that backend; the only
// check left is operation compatibility. When empty, the first descriptor
// whose family serves the operation wins, except that a hint literally
// matching another compatible descriptor's model list redirects there.
//
// A hint the chosen descriptor does not know follows the catalog's policy:
// fall back to the family default, or reject.
func (c *Catalog) Resolve(op providers.Operation, providerID, hint string) (ProviderDescriptor, string, error) {
	if !op.Valid() {
		return ProviderDescriptor{}, "", providers.Validation(fmt.Sprintf("unknown operation: %q", op))
	}

	var chosen *ProviderDescriptor
	if providerID != "" {
		d, ok := c.Descriptor(providerID)
		if !ok {
			return ProviderDescriptor{}, "", providers.Validation(fmt.Sprintf("unknown provider: %q", providerID))
		}
		if !d.Serves(op) {
			return ProviderDescriptor{}, "", providers.Unsupported(
				fmt.Sprintf("provider %s does not serve the %s operation", d.ID, op))
		}
		chosen = &d
	} else {
		// Exact hint match against any compatible descriptor takes priority
		// over routing order.
		if hint != "" {
			for i := range c.descriptors {
				d := c.descriptors[i]
				if d.Serves(op) && d.knowsModel(hint) {
					chosen = &d
					break
				}
			}
		}
		if chosen == nil {
			for i := range c.descriptors {
				if c.descriptors[i].Serves(op) {
					chosen = &c.descriptors[i]
					break
				}
			}
		}
		if chosen == nil {
			return ProviderDescriptor{}, "", providers.Unsupported(
				fmt.Sprintf("no provider serves the %s operation", op))
		}
	}

	model := chosen.DefaultModelFor(op)
	if hint != "" {
		switch {
		case chosen.knowsModel(hint):
			model = hint
		case c.policy == PolicyReject:
			return ProviderDescriptor{}, "", providers.Validation(
				fmt.Sprintf("model %q is not served by provider %s", hint, chosen.ID))
		}
		// PolicyFallback keeps the family default. Deliberate: an unmatched
		// hint degrades to the default model instead of failing the call.
	}

	return *chosen, model, nil
}
