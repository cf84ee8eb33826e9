package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rezonia/facturx-fr/internal/model"
	"github.com/rezonia/facturx-fr/internal/pdf"
	"github.com/rezonia/facturx-fr/internal/validator"
)

var validateProfile string

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Validate invoice documents",
	Long: `Validate one or more invoice documents against the regulatory rules.

Validation runs in two stages: the structural stage checks the document
against the profile's element manifest, and only a structurally sound
document reaches the business rules (SIREN checksums, totals
arithmetic, VAT breakdown consistency, payment terms).

Hybrid PDFs are unwrapped first: the embedded XML rendition is what
gets validated.

Examples:
  facturx validate facture.xml
  facturx validate facture-fx.pdf
  facturx validate *.xml --profile basic
  facturx validate invoices/ -f table`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateProfile, "profile", "", "Validate against a specific profile instead of the one the document declares")
}

func runValidate(cmd *cobra.Command, args []string) error {
	if validateProfile != "" && !model.Profile(strings.ToLower(validateProfile)).Valid() {
		return fmt.Errorf("unknown profile %q", validateProfile)
	}

	files, err := collectFiles(args, isDocumentFile)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to validate")
	}

	v := validator.New()
	embedder := pdf.NewEmbedder()

	results := make([]*ValidationResult, 0, len(files))
	allValid := true

	for _, file := range files {
		printVerbose("Validating: %s\n", file)

		result := validateFile(v, embedder, file)
		results = append(results, result)

		if !result.Valid {
			allValid = false
		}
	}

	if outputFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Valid {
				fmt.Printf("✓ %s: VALID (%s)\n", r.File, r.Format)
			} else {
				fmt.Printf("✗ %s: INVALID\n", r.File)
				for _, finding := range r.Findings {
					fmt.Printf("  - %s\n", finding)
				}
			}
		}
	}

	if !allValid {
		return fmt.Errorf("validation failed for some files")
	}
	return nil
}

func validateFile(v *validator.Validator, embedder *pdf.Embedder, filePath string) *ValidationResult {
	result := &ValidationResult{File: filePath}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Findings = append(result.Findings, fmt.Sprintf("failed to read file: %v", err))
		return result
	}

	if pdf.IsPDF(data) {
		xmlData, err := embedder.ExtractXML(data)
		if err != nil {
			result.Findings = append(result.Findings, fmt.Sprintf("no XML rendition in PDF: %v", err))
			return result
		}
		data = xmlData
		result.Format = string(model.FormatFacturX)
	}

	findings, err := v.ValidateXML(data, model.FormatUnknown, model.Profile(strings.ToLower(validateProfile)))
	if err != nil {
		result.Findings = append(result.Findings, err.Error())
		return result
	}

	if result.Format == "" {
		result.Format = string(validator.DetectFormat(data))
	}
	result.Findings = findings
	result.Valid = len(findings) == 0
	return result
}

// collectFiles expands globs and walks directories, keeping the files
// the predicate accepts
func collectFiles(args []string, supported func(string) bool) ([]string, error) {
	var files []string

	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", arg, err)
		}

		if len(matches) == 0 {
			info, err := os.Stat(arg)
			if err != nil {
				return nil, fmt.Errorf("file not found: %s", arg)
			}

			if info.IsDir() {
				err := filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
					if err != nil {
						return err
					}
					if !info.IsDir() && supported(path) {
						files = append(files, path)
					}
					return nil
				})
				if err != nil {
					return nil, err
				}
			} else {
				files = append(files, arg)
			}
		} else {
			for _, match := range matches {
				info, err := os.Stat(match)
				if err != nil {
					continue
				}
				if !info.IsDir() && supported(match) {
					files = append(files, match)
				}
			}
		}
	}

	return files, nil
}

func isDocumentFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml", ".pdf":
		return true
	default:
		return false
	}
}

// ValidationResult holds the result of validating a single file
type ValidationResult struct {
	File     string   `json:"file"`
	Valid    bool     `json:"valid"`
	Format   string   `json:"format,omitempty"`
	Findings []string `json:"findings,omitempty"`
}
