package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	version = "1.0.0"

	// Global flags
	verbose      bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "facturx",
	Short: "Generate, validate and track French electronic invoices",
	Long: `facturx is a CLI for the French 2026 e-invoicing reform.

Supports:
  - CII and UBL invoice generation at the Factur-X profiles
  - Factur-X hybrid documents (PDF with embedded CII XML)
  - Two-stage validation: structure first, then business rules
  - XMLDSig signature verification with OCSP revocation checks
  - Lifecycle statuses and CDAR acknowledgement messages
  - E-reporting submissions for B2C and cross-border flows

Examples:
  # Render an invoice description as CII XML
  facturx generate invoice.json --as cii

  # Build the hybrid document
  facturx generate invoice.json --as facturx --pdf facture.pdf -o facture-fx.pdf

  # Validate a document (XML or hybrid PDF)
  facturx validate facture-fx.pdf

  # Inspect the regulatory lifecycle
  facturx statuses`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "json", "Output format (json, table)")

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// A .env file is optional; variables already in the environment win
	_ = godotenv.Load()

	if verbose {
		log.SetLevel(log.DebugLevel)
	}
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
