package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"validation", Validation("bad field"), KindValidation},
		{"unsupported", Unsupported("no adapter"), KindUnsupportedOperation},
		{"unavailable", Unavailable("openai", []string{EnvOpenAIKey}), KindServiceUnavailable},
		{"upstream", Upstream("openai", errors.New("boom")), KindUpstream},
		{"persistence", Persistence(errors.New("disk full")), KindPersistence},
		{"wrapped gateway error", fmt.Errorf("handler: %w", Validation("bad")), KindValidation},
		{"plain error", errors.New("boom"), KindUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUpstream_ClassifiesCancellation(t *testing.T) {
	wrapped := fmt.Errorf("request failed: %w", context.Canceled)
	if got := KindOf(Upstream("anthropic", wrapped)); got != KindCancelled {
		t.Errorf("Upstream(ctx.Canceled) kind = %v, want %v", got, KindCancelled)
	}
	if got := KindOf(Upstream("anthropic", context.DeadlineExceeded)); got != KindCancelled {
		t.Errorf("Upstream(DeadlineExceeded) kind = %v, want %v", got, KindCancelled)
	}
}

func TestError_Is(t *testing.T) {
	err := Upstream("bedrock", errors.New("throttled"))
	if !errors.Is(err, &Error{Kind: KindUpstream}) {
		t.Error("errors.Is should match on kind")
	}
	if errors.Is(err, &Error{Kind: KindValidation}) {
		t.Error("errors.Is should not match a different kind")
	}
}

func TestError_UnwrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Upstream("perplexity", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
}

func TestUnavailable_NamesMissingCredentials(t *testing.T) {
	err := Unavailable("bedrock", []string{EnvAWSAccessKey, EnvAWSSecretKey})
	for _, key := range []string{EnvAWSAccessKey, EnvAWSSecretKey} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q should name %s", err.Error(), key)
		}
	}
}
