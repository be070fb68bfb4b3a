// Package main provides the aicentral-cli command-line tool for inspecting
// and validating an aicentral deployment.
package main

import (
	"fmt"
	"os"
	"strings"

	aicentral "github.com/IAprender-dev/Iaprender-sub006"
	"github.com/IAprender-dev/Iaprender-sub006/internal/version"
	"github.com/IAprender-dev/Iaprender-sub006/models"
)

const usage = `aicentral-cli — IAprender AI gateway command line tool

Usage:
  aicentral-cli <command> [arguments]

Commands:
  validate <config-file>    Validate a gateway configuration file (JSON/YAML)
  models                    List the provider catalog and known models
  pricing <provider>        Show per-1K-token USD prices for a provider
  version                   Print version info
  help                      Show this help
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "validate":
		cmdValidate()
	case "models":
		cmdModels()
	case "pricing":
		cmdPricing()
	case "version":
		cmdVersion()
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		fmt.Print(usage)
		os.Exit(1)
	}
}

func cmdValidate() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: aicentral-cli validate <config-file>")
		os.Exit(1)
	}
	path := os.Args[2]

	cfg, err := aicentral.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := aicentral.ValidateConfig(*cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Config is valid\n")
	fmt.Printf("  Listen:       %s\n", cfg.Listen)
	fmt.Printf("  Hint policy:  %s\n", cfg.ModelHintPolicy)
	fmt.Printf("  Ledger:       %s\n", cfg.Ledger.Driver)
	if len(cfg.CORS.AllowedOrigins) > 0 {
		fmt.Printf("  CORS origins: %s\n", strings.Join(cfg.CORS.AllowedOrigins, ", "))
	}
}

func cmdModels() {
	catalog, err := models.NewCatalog(models.PolicyFallback)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building catalog: %v\n", err)
		os.Exit(1)
	}

	for _, d := range catalog.Descriptors() {
		var ops []string
		for _, op := range d.Operations {
			ops = append(ops, string(op))
		}
		fmt.Printf("%s (%s)\n", d.ID, d.Family)
		fmt.Printf("  operations: %s\n", strings.Join(ops, ", "))
		fmt.Printf("  default:    %s\n", d.DefaultModel)
		for _, m := range d.Models {
			fmt.Printf("    %s\n", m)
		}
		if d.OpenEnded {
			fmt.Printf("    (any model id containing claude, titan, llama or j2)\n")
		}
	}
}

func cmdPricing() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: aicentral-cli pricing <provider>")
		os.Exit(1)
	}
	provider := os.Args[2]

	catalog, err := models.NewCatalog(models.PolicyFallback)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building catalog: %v\n", err)
		os.Exit(1)
	}

	var known []string
	for _, d := range catalog.Descriptors() {
		known = append(known, d.ID)
		if d.ID != provider {
			continue
		}
		fmt.Printf("%-55s %12s %12s\n", "model", "input/1K", "output/1K")
		for _, m := range d.Models {
			p, ok := models.PricingFor(provider, m)
			if !ok {
				fmt.Printf("%-55s %12s %12s\n", m, "-", "-")
				continue
			}
			fmt.Printf("%-55s %11.5f$ %11.5f$\n", m, p.InputPer1K, p.OutputPer1K)
		}
		return
	}

	fmt.Fprintf(os.Stderr, "Unknown provider %q (known: %s)\n", provider, strings.Join(known, ", "))
	os.Exit(1)
}

func cmdVersion() {
	fmt.Printf("aicentral-cli %s\n", version.String())
}
