// Package ledger persists the append-only token usage records the gateway
// emits after every completed exchange. Records are the billing-relevant
// output of the gateway; nothing here ever mutates or deletes a row.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is one usage ledger entry, created exactly once per completed
// exchange.
type Record struct {
	ID         string
	CallerID   int
	ContractID int
	Provider   string
	Model      string
	Operation  string

	TokensUsed  int
	TokensExact bool
	CostUSD     float64

	// RequestSnapshot and ResponseSnapshot carry compact JSON views of the
	// exchange for later auditing.
	RequestSnapshot  string
	ResponseSnapshot string

	CreatedAt time.Time
}

// NewRecordID returns a fresh ledger row identifier.
func NewRecordID() string {
	return uuid.NewString()
}

// Recorder persists usage records. Implementations must be safe under
// concurrent calls from independent requests; every call is a pure insert.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// NoopRecorder discards all records. Used when no ledger is configured.
type NoopRecorder struct{}

func (NoopRecorder) Record(_ context.Context, _ Record) error { return nil }
