package aicentral

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads and parses a config file from the given path, layered on
// top of DefaultConfig. Supported formats: JSON (.json), YAML (.yaml, .yml).
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q: use .json, .yaml, or .yml", ext)
	}

	return &cfg, nil
}

// ValidateConfig validates a Config for correctness.
func ValidateConfig(cfg Config) error {
	if cfg.ModelHintPolicy != "" && !cfg.ModelHintPolicy.Valid() {
		return fmt.Errorf("unknown model hint policy: %q", cfg.ModelHintPolicy)
	}

	driver := cfg.Ledger.Driver
	if driver == "" {
		driver = LedgerDriverSQLite
	}
	switch driver {
	case LedgerDriverSQLite, LedgerDriverNone:
	case LedgerDriverPostgres:
		if strings.TrimSpace(cfg.Ledger.DSN) == "" {
			return fmt.Errorf("ledger driver postgres requires a dsn")
		}
	default:
		return fmt.Errorf("unknown ledger driver: %q", cfg.Ledger.Driver)
	}

	for _, origin := range cfg.CORS.AllowedOrigins {
		if strings.TrimSpace(origin) == "" {
			return fmt.Errorf("cors allowed_origins contains an empty entry")
		}
	}

	return nil
}
