package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rezonia/facturx-fr/internal/generator"
	"github.com/rezonia/facturx-fr/internal/model"
)

var (
	generateAs      string
	generateProfile string
	generatePeppol  bool
	generatePDF     string
	generateOutput  string
)

var generateCmd = &cobra.Command{
	Use:   "generate [invoice.json]",
	Short: "Render an invoice description as an electronic document",
	Long: `Render a JSON invoice description as one of the regulatory formats.

Formats:
  cii      - UN/CEFACT Cross Industry Invoice XML
  ubl      - OASIS UBL 2.1 Invoice or CreditNote XML
  facturx  - Hybrid PDF carrying the CII rendition (requires --pdf)

Examples:
  facturx generate invoice.json --as cii
  facturx generate invoice.json --as ubl --peppol
  facturx generate invoice.json --as cii --profile basic -o facture.xml
  facturx generate invoice.json --as facturx --pdf facture.pdf -o facture-fx.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&generateAs, "as", "cii", "Document format (cii, ubl, facturx)")
	generateCmd.Flags().StringVar(&generateProfile, "profile", "en16931", "Factur-X profile (minimum, basicwl, basic, en16931, extended)")
	generateCmd.Flags().BoolVar(&generatePeppol, "peppol", false, "Target the PEPPOL BIS Billing 3.0 flavor (UBL only)")
	generateCmd.Flags().StringVar(&generatePDF, "pdf", "", "Visual PDF to embed the XML into (facturx only)")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Output file (default: stdout)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	inv, err := loadInvoice(args[0])
	if err != nil {
		return err
	}

	profile := model.Profile(strings.ToLower(generateProfile))
	if !profile.Valid() {
		return fmt.Errorf("unknown profile %q", generateProfile)
	}

	var out []byte
	switch strings.ToLower(generateAs) {
	case "cii":
		out, err = generator.NewCIIGenerator().Generate(inv, profile)

	case "ubl":
		var opts []generator.UBLOption
		if generatePeppol {
			opts = append(opts, generator.WithPeppol())
		}
		out, err = generator.NewUBLGenerator(opts...).Generate(inv, profile)

	case "facturx":
		if generatePDF == "" {
			return fmt.Errorf("--pdf is required for the hybrid format")
		}
		pdfData, rerr := os.ReadFile(generatePDF)
		if rerr != nil {
			return fmt.Errorf("failed to read PDF: %w", rerr)
		}
		var result *generator.Result
		result, err = generator.NewFacturXGenerator().GenerateWithPDF(inv, profile, pdfData)
		if err == nil {
			out = result.PDF
		}

	default:
		return fmt.Errorf("unknown document format %q", generateAs)
	}
	if err != nil {
		return err
	}

	printVerbose("Generated %d bytes\n", len(out))
	return writeOutput(generateOutput, out)
}

func loadInvoice(path string) (*model.Invoice, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read invoice: %w", err)
	}

	inv := &model.Invoice{}
	if err := json.Unmarshal(data, inv); err != nil {
		return nil, fmt.Errorf("invalid invoice JSON: %w", err)
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return inv, nil
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	printVerbose("Wrote %s\n", path)
	return nil
}
