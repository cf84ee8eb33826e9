package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/facturx-fr/internal/model"
	parser "github.com/rezonia/facturx-fr/internal/parser/xml"
	"github.com/rezonia/facturx-fr/internal/pdf"
	"github.com/rezonia/facturx-fr/internal/tax"
)

var parseCmd = &cobra.Command{
	Use:   "parse [files...]",
	Short: "Parse invoice documents into the canonical model",
	Long: `Parse received invoice documents back into the canonical model.

The format is detected from the root element: CII, UBL Invoice or
CreditNote. Hybrid PDFs are unwrapped first and their embedded XML
rendition is parsed.

Examples:
  facturx parse facture.xml
  facturx parse facture-fx.pdf
  facturx parse inbox/ -f table`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args, isDocumentFile)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to parse")
	}

	registry := parser.NewRegistry()
	embedder := pdf.NewEmbedder()

	results := make([]*ParseResult, 0, len(files))
	for _, file := range files {
		printVerbose("Parsing: %s\n", file)
		results = append(results, parseFile(registry, embedder, file))
	}

	switch outputFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	case "table":
		return parseTable(results)
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}

func parseFile(registry *parser.Registry, embedder *pdf.Embedder, filePath string) *ParseResult {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result := &ParseResult{File: filePath}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Error = fmt.Sprintf("failed to read file: %v", err)
		return result
	}

	if pdf.IsPDF(data) {
		xmlData, err := embedder.ExtractXML(data)
		if err != nil {
			result.Error = fmt.Sprintf("no XML rendition in PDF: %v", err)
			return result
		}
		data = xmlData
		result.Hybrid = true
	}

	adapter, err := registry.Detect(data)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Format = string(adapter.Format())

	inv, err := adapter.Parse(ctx, bytes.NewReader(data))
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Invoice = inv
	return result
}

func parseTable(results []*ParseResult) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tFORMAT\tNUMBER\tISSUED\tSELLER\tTOTAL")
	fmt.Fprintln(tw, "----\t------\t------\t------\t------\t-----")

	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(tw, "%s\tERROR: %s\t\t\t\t\n", r.File, r.Error)
			continue
		}

		inv := r.Invoice
		format := r.Format
		if r.Hybrid {
			format = string(model.FormatFacturX)
		}
		totals := tax.Compute(inv)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s %s\n",
			r.File,
			format,
			inv.Number,
			inv.IssueDate.Format("2006-01-02"),
			inv.Seller.Name,
			totals.GrossTotal.StringFixed(2),
			inv.Currency,
		)
	}

	return tw.Flush()
}

// ParseResult holds the result of parsing a single file
type ParseResult struct {
	File    string         `json:"file"`
	Format  string         `json:"format,omitempty"`
	Hybrid  bool           `json:"hybrid,omitempty"`
	Invoice *model.Invoice `json:"invoice,omitempty"`
	Error   string         `json:"error,omitempty"`
}
