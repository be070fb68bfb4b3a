package models

import (
	"testing"

	"github.com/IAprender-dev/Iaprender-sub006/providers"
)

func mustCatalog(t *testing.T, policy HintPolicy) *Catalog {
	t.Helper()
	c, err := NewCatalog(policy)
	if err != nil {
		t.Fatalf("NewCatalog(%q) error: %v", policy, err)
	}
	return c
}

func TestNewCatalog_RejectsUnknownPolicy(t *testing.T) {
	if _, err := NewCatalog("maybe"); err == nil {
		t.Error("NewCatalog should reject an unknown policy")
	}
	if _, err := NewCatalog(""); err != nil {
		t.Errorf("empty policy should default to fallback, got error: %v", err)
	}
}

func TestCatalog_Resolve(t *testing.T) {
	c := mustCatalog(t, PolicyFallback)

	tests := []struct {
		name         string
		op           providers.Operation
		providerID   string
		hint         string
		wantProvider string
		wantModel    string
		wantKind     providers.ErrorKind
	}{
		{
			name:         "chat no hint picks first compatible family default",
			op:           providers.OpChat,
			wantProvider: "openai",
			wantModel:    "gpt-4o",
		},
		{
			name:         "exact hint routes deterministically",
			op:           providers.OpChat,
			hint:         "claude-3-haiku-20240307",
			wantProvider: "anthropic",
			wantModel:    "claude-3-haiku-20240307",
		},
		{
			name:         "image defaults to the image model",
			op:           providers.OpImage,
			providerID:   "openai",
			wantProvider: "openai",
			wantModel:    "dall-e-3",
		},
		{
			name:         "search routes to the search family",
			op:           providers.OpSearch,
			wantProvider: "perplexity",
			wantModel:    "llama-3.1-sonar-small-128k-online",
		},
		{
			name:         "analyze routes to the vision family",
			op:           providers.OpVisionAnalyze,
			wantProvider: "anthropic",
			wantModel:    "claude-3-5-sonnet-20241022",
		},
		{
			name:         "bedrock fragment accepts unlisted model",
			op:           providers.OpChat,
			providerID:   "bedrock",
			hint:         "anthropic.claude-3-opus-20240229-v1:0",
			wantProvider: "bedrock",
			wantModel:    "anthropic.claude-3-opus-20240229-v1:0",
		},
		{
			name:         "bedrock unmatched hint falls back to family default",
			op:           providers.OpChat,
			providerID:   "bedrock",
			hint:         "mistral.mistral-large-2402-v1:0",
			wantProvider: "bedrock",
			wantModel:    "anthropic.claude-3-5-sonnet-20241022-v2:0",
		},
		{
			name:         "unmatched hint on closed family falls back",
			op:           providers.OpChat,
			providerID:   "openai",
			hint:         "gpt-99-turbo",
			wantProvider: "openai",
			wantModel:    "gpt-4o",
		},
		{
			name:       "pinned provider rejects incompatible operation",
			op:         providers.OpSearch,
			providerID: "openai",
			wantKind:   providers.KindUnsupportedOperation,
		},
		{
			name:       "unknown provider id",
			op:         providers.OpChat,
			providerID: "cohere",
			wantKind:   providers.KindValidation,
		},
		{
			name:     "unknown operation",
			op:       providers.Operation("translate"),
			wantKind: providers.KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, model, err := c.Resolve(tt.op, tt.providerID, tt.hint)
			if tt.wantKind != "" {
				if err == nil {
					t.Fatalf("Resolve() succeeded with %s/%s, want %v error", d.ID, model, tt.wantKind)
				}
				if got := providers.KindOf(err); got != tt.wantKind {
					t.Fatalf("Resolve() error kind = %v, want %v", got, tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if d.ID != tt.wantProvider || model != tt.wantModel {
				t.Errorf("Resolve() = %s/%s, want %s/%s", d.ID, model, tt.wantProvider, tt.wantModel)
			}
		})
	}
}

func TestCatalog_Resolve_RejectPolicy(t *testing.T) {
	c := mustCatalog(t, PolicyReject)

	_, _, err := c.Resolve(providers.OpChat, "bedrock", "mistral.mistral-large-2402-v1:0")
	if providers.KindOf(err) != providers.KindValidation {
		t.Errorf("reject policy should fail unmatched hints, got %v", err)
	}

	// Known hints still resolve.
	d, model, err := c.Resolve(providers.OpChat, "bedrock", "amazon.titan-text-express-v1")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if d.ID != "bedrock" || model != "amazon.titan-text-express-v1" {
		t.Errorf("Resolve() = %s/%s", d.ID, model)
	}
}

func TestCatalog_ResolutionIsDeterministic(t *testing.T) {
	c := mustCatalog(t, PolicyFallback)
	for i := 0; i < 5; i++ {
		d, model, err := c.Resolve(providers.OpChat, "", "claude-3-5-sonnet-20241022")
		if err != nil {
			t.Fatalf("Resolve() error: %v", err)
		}
		if d.ID != "anthropic" || model != "claude-3-5-sonnet-20241022" {
			t.Fatalf("iteration %d resolved %s/%s", i, d.ID, model)
		}
	}
}

func TestCatalog_Descriptors(t *testing.T) {
	c := mustCatalog(t, PolicyFallback)

	ds := c.Descriptors()
	if len(ds) != 4 {
		t.Fatalf("len(Descriptors()) = %d, want 4", len(ds))
	}

	wantIDs := []string{"openai", "anthropic", "bedrock", "perplexity"}
	for i, id := range wantIDs {
		if ds[i].ID != id {
			t.Errorf("Descriptors()[%d].ID = %q, want %q", i, ds[i].ID, id)
		}
		if len(ds[i].CredentialKeys) == 0 {
			t.Errorf("descriptor %s has no credential keys", id)
		}
		if ds[i].DefaultModel == "" {
			t.Errorf("descriptor %s has no default model", id)
		}
	}

	// Returned slice is a copy; mutating it must not touch the catalog.
	ds[0].ID = "mutated"
	if again := c.Descriptors(); again[0].ID != "openai" {
		t.Error("Descriptors() should return a defensive copy")
	}
}
