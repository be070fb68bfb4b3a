package aicentral

import (
	"github.com/IAprender-dev/Iaprender-sub006/models"
)

// Config holds the non-secret runtime configuration for the gateway.
// Credentials are never read from here; they come from the environment only.
type Config struct {
	// Listen is the HTTP bind address, e.g. ":8080".
	Listen string `json:"listen" yaml:"listen"`

	// ModelHintPolicy decides what an unmatched model hint does: "fallback"
	// (route to the family default) or "reject". Empty means fallback.
	ModelHintPolicy models.HintPolicy `json:"model_hint_policy" yaml:"model_hint_policy"`

	// SystemPreamble overrides the built-in default system instruction
	// applied when a request carries none.
	SystemPreamble string `json:"system_preamble,omitempty" yaml:"system_preamble,omitempty"`

	// Ledger configures the usage ledger sink.
	Ledger LedgerConfig `json:"ledger" yaml:"ledger"`

	// CORS configures the browser-facing allowlist.
	CORS CORSConfig `json:"cors,omitempty" yaml:"cors,omitempty"`

	// AWSRegion is the Bedrock region. Defaults to us-east-1.
	AWSRegion string `json:"aws_region,omitempty" yaml:"aws_region,omitempty"`
}

// LedgerConfig selects the usage ledger storage engine.
type LedgerConfig struct {
	// Driver is "sqlite" (default), "postgres", or "none".
	Driver string `json:"driver" yaml:"driver"`
	// DSN is the connection string. Optional for sqlite, required for
	// postgres.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// CORSConfig holds the allowed browser origins.
type CORSConfig struct {
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"`
}

// Ledger driver names accepted by ValidateConfig.
const (
	LedgerDriverSQLite   = "sqlite"
	LedgerDriverPostgres = "postgres"
	LedgerDriverNone     = "none"
)

// DefaultConfig returns the configuration used when no config file is given.
func DefaultConfig() Config {
	return Config{
		Listen:          ":8080",
		ModelHintPolicy: models.PolicyFallback,
		Ledger:          LedgerConfig{Driver: LedgerDriverSQLite},
		AWSRegion:       "us-east-1",
	}
}
