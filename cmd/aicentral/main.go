package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	aicentral "github.com/IAprender-dev/Iaprender-sub006"
	"github.com/IAprender-dev/Iaprender-sub006/internal/ledger"
	"github.com/IAprender-dev/Iaprender-sub006/internal/version"
	"github.com/IAprender-dev/Iaprender-sub006/models"
	"github.com/IAprender-dev/Iaprender-sub006/providers"
)

func main() {
	cfg := aicentral.DefaultConfig()
	if cfgPath := os.Getenv("AICENTRAL_CONFIG"); cfgPath != "" {
		loaded, err := aicentral.LoadConfig(cfgPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if err := aicentral.ValidateConfig(*loaded); err != nil {
			log.Fatalf("Invalid config: %v", err)
		}
		cfg = *loaded
		log.Printf("Config loaded: policy=%s, ledger=%s", cfg.ModelHintPolicy, cfg.Ledger.Driver)
	}

	catalog, err := models.NewCatalog(cfg.ModelHintPolicy)
	if err != nil {
		log.Fatalf("Failed to build catalog: %v", err)
	}

	recorder, closeRecorder, err := buildRecorder(cfg.Ledger)
	if err != nil {
		log.Fatalf("Failed to open usage ledger: %v", err)
	}
	defer closeRecorder()

	gw := aicentral.New(catalog, recorder)
	if cfg.SystemPreamble != "" {
		gw.SetSystemPreamble(cfg.SystemPreamble)
	}
	registerProviders(gw, cfg)

	var corsOrigins []string
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		corsOrigins = strings.Split(origins, ",")
	} else {
		corsOrigins = cfg.CORS.AllowedOrigins
	}

	addr := cfg.Listen
	if p := os.Getenv("PORT"); p != "" {
		addr = ":" + p
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      newRouter(gw, corsOrigins),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Println("Shutting down gracefully…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Printf("aicentral %s listening on %s", version.Short(), addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stop()
		log.Fatalf("Server error: %v", err) //nolint:gocritic
	}
	log.Println("Server stopped.")
}

// registerProviders wires up the adapters whose credentials are present at
// startup. Missing backends still appear in the availability report; calls
// against them fail with a 503 until the deployment supplies credentials.
func registerProviders(gw *aicentral.Gateway, cfg aicentral.Config) {
	if key := os.Getenv(providers.EnvOpenAIKey); key != "" {
		p, err := providers.NewOpenAI(key, "")
		if err != nil {
			log.Fatalf("openai provider: %v", err)
		}
		gw.RegisterProvider(p)
		log.Println("Provider registered: openai")
	}

	if key := os.Getenv(providers.EnvAnthropicKey); key != "" {
		p, err := providers.NewAnthropic(key, "")
		if err != nil {
			log.Fatalf("anthropic provider: %v", err)
		}
		gw.RegisterProvider(p)
		log.Println("Provider registered: anthropic")
	}

	if os.Getenv(providers.EnvAWSAccessKey) != "" && os.Getenv(providers.EnvAWSSecretKey) != "" {
		region := os.Getenv(providers.EnvAWSRegion)
		if region == "" {
			region = cfg.AWSRegion
		}
		p, err := providers.NewBedrock(context.Background(), region)
		if err != nil {
			log.Fatalf("bedrock provider: %v", err)
		}
		gw.RegisterProvider(p)
		log.Printf("Provider registered: bedrock (region %s)", region)
	}

	if key := os.Getenv(providers.EnvPerplexityKey); key != "" {
		p, err := providers.NewPerplexity(key, "")
		if err != nil {
			log.Fatalf("perplexity provider: %v", err)
		}
		gw.RegisterProvider(p)
		log.Println("Provider registered: perplexity")
	}
}

// buildRecorder opens the configured ledger sink. The returned close func is
// a no-op for sinks without resources.
func buildRecorder(cfg aicentral.LedgerConfig) (ledger.Recorder, func(), error) {
	driver := cfg.Driver
	if driver == "" {
		driver = aicentral.LedgerDriverSQLite
	}
	switch driver {
	case aicentral.LedgerDriverNone:
		return ledger.NoopRecorder{}, func() {}, nil
	case aicentral.LedgerDriverPostgres:
		r, err := ledger.NewPostgresRecorder(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { _ = r.Close() }, nil
	default:
		r, err := ledger.NewSQLiteRecorder(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { _ = r.Close() }, nil
	}
}
