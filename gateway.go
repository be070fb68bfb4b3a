// Package aicentral routes normalised AI generation requests to one of
// several backend providers and accounts for the tokens each completed
// exchange consumed.
//
// The Gateway type is the single entry point: create one with New, register
// the provider adapters for the backends the deployment has credentials for,
// and serve requests with Handle. Routing consults the static model catalog;
// usage accounting is a best-effort append to the configured ledger and never
// fails a generation call.
package aicentral

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/IAprender-dev/Iaprender-sub006/internal/ledger"
	"github.com/IAprender-dev/Iaprender-sub006/internal/logging"
	"github.com/IAprender-dev/Iaprender-sub006/internal/metrics"
	"github.com/IAprender-dev/Iaprender-sub006/models"
	"github.com/IAprender-dev/Iaprender-sub006/providers"
)

// Gateway is the facade in front of the provider adapters. One instance is
// built at process start and serves concurrent requests; the catalog is
// read-only and the recorder performs pure inserts, so no per-request state
// is shared.
type Gateway struct {
	mu       sync.RWMutex
	catalog  *models.Catalog
	adapters map[string]providers.Provider
	recorder ledger.Recorder
	preamble string
}

func envSet(key string) bool { return os.Getenv(key) != "" }

// New creates a Gateway routing against catalog and accounting into rec.
// A nil rec disables accounting.
func New(catalog *models.Catalog, rec ledger.Recorder) *Gateway {
	if rec == nil {
		rec = ledger.NoopRecorder{}
	}
	return &Gateway{
		catalog:  catalog,
		adapters: make(map[string]providers.Provider),
		recorder: rec,
	}
}

// SetSystemPreamble overrides the default system instruction applied when a
// request carries none. Call before serving traffic.
func (g *Gateway) SetSystemPreamble(preamble string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.preamble = preamble
}

// RegisterProvider registers a backend adapter under its own name.
func (g *Gateway) RegisterProvider(p providers.Provider) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.adapters[p.Name()] = p
}

// Provider returns a registered adapter by name.
func (g *Gateway) Provider(name string) (providers.Provider, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.adapters[name]
	return p, ok
}

// Catalog returns the routing catalog.
func (g *Gateway) Catalog() *models.Catalog {
	return g.catalog
}

// Availability reports, per catalog entry, whether its credentials are
// currently present. Recomputed from the environment on every call.
func (g *Gateway) Availability() providers.AvailabilityReport {
	report := make(providers.AvailabilityReport)
	for _, d := range g.catalog.Descriptors() {
		available := true
		for _, key := range d.CredentialKeys {
			if !envSet(key) {
				available = false
				break
			}
		}
		report[d.ID] = available
	}
	return report
}

// Handle serves one generation request end-to-end: validate, route, check
// credentials, invoke the adapter, account, return. Every failure carries a
// *providers.Error kind; see that package for the taxonomy.
func (g *Gateway) Handle(ctx context.Context, req providers.GenerationRequest) (*providers.GenerationResult, error) {
	start := time.Now()
	log := logging.FromContext(ctx)

	if err := req.Validate(); err != nil {
		metrics.RequestsTotal.WithLabelValues(req.Provider, string(req.Operation), "rejected").Inc()
		return nil, err
	}

	descriptor, model, err := g.catalog.Resolve(req.Operation, req.Provider, req.Model)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(req.Provider, string(req.Operation), "rejected").Inc()
		return nil, err
	}

	adapter, ok := g.Provider(descriptor.ID)
	if !ok {
		metrics.RequestsTotal.WithLabelValues(descriptor.ID, string(req.Operation), "error").Inc()
		return nil, providers.Unavailable(descriptor.ID, descriptor.CredentialKeys)
	}

	// Fail fast on missing credentials before any network round trip.
	if missing := providers.MissingCredentials(adapter); len(missing) > 0 {
		metrics.RequestsTotal.WithLabelValues(descriptor.ID, string(req.Operation), "error").Inc()
		return nil, providers.Unavailable(descriptor.ID, missing)
	}

	g.mu.RLock()
	preamble := g.preamble
	g.mu.RUnlock()
	if req.System == "" && preamble != "" {
		req.System = preamble
	}

	result, err := adapter.Invoke(ctx, req, model)
	latency := time.Since(start)

	if err != nil {
		kind := providers.KindOf(err)
		metrics.RequestsTotal.WithLabelValues(descriptor.ID, string(req.Operation), "error").Inc()
		metrics.ProviderErrors.WithLabelValues(descriptor.ID, string(kind)).Inc()
		log.Error("generation failed",
			"provider", descriptor.ID,
			"operation", string(req.Operation),
			"model", model,
			"kind", string(kind),
			"latency_ms", latency.Milliseconds(),
			"error", err.Error(),
		)
		return nil, err
	}

	cost := models.CostForTotal(result.Provider, result.Model, result.TokensUsed)

	basis := "estimated"
	if result.TokensExact {
		basis = "exact"
	}
	metrics.RequestDuration.WithLabelValues(result.Provider, string(req.Operation)).Observe(latency.Seconds())
	metrics.RequestsTotal.WithLabelValues(result.Provider, string(req.Operation), "success").Inc()
	metrics.TokensUsed.WithLabelValues(result.Provider, result.Model, basis).Add(float64(result.TokensUsed))
	if cost > 0 {
		metrics.UsageCostUSD.WithLabelValues(result.Provider, result.Model).Add(cost)
	}

	g.account(ctx, req, result, cost)

	log.Info("generation completed",
		"provider", result.Provider,
		"operation", string(req.Operation),
		"model", result.Model,
		"tokens_used", result.TokensUsed,
		"tokens_exact", result.TokensExact,
		"cost_usd", cost,
		"latency_ms", latency.Milliseconds(),
	)

	return result, nil
}

// account writes the usage record for a completed exchange. The write is
// best-effort: a ledger outage is logged and counted but the generation
// result still reaches the caller.
func (g *Gateway) account(ctx context.Context, req providers.GenerationRequest, result *providers.GenerationResult, cost float64) {
	rec := ledger.Record{
		ID:               ledger.NewRecordID(),
		CallerID:         req.CallerID,
		ContractID:       req.ContractID,
		Provider:         result.Provider,
		Model:            result.Model,
		Operation:        string(req.Operation),
		TokensUsed:       result.TokensUsed,
		TokensExact:      result.TokensExact,
		CostUSD:          cost,
		RequestSnapshot:  snapshot(req),
		ResponseSnapshot: snapshot(result),
		CreatedAt:        time.Now().UTC(),
	}

	if err := g.recorder.Record(ctx, rec); err != nil {
		perr := providers.Persistence(err)
		metrics.LedgerWriteFailures.Inc()
		logging.FromContext(ctx).Error("usage record write failed",
			"caller_id", req.CallerID,
			"contract_id", req.ContractID,
			"provider", result.Provider,
			"error", perr.Error(),
		)
	}
}

// snapshot renders a compact JSON view for the ledger's audit columns.
// Attachment bytes never reach the ledger; GenerationRequest excludes them
// from JSON.
func snapshot(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
