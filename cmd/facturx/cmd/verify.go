package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/facturx-fr/internal/signature"
	"github.com/rezonia/facturx-fr/internal/signature/trust"
	xmlsig "github.com/rezonia/facturx-fr/internal/signature/xml"
)

var (
	caFile   string
	caDir    string
	skipOCSP bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify [files...]",
	Short: "Verify digital signatures",
	Long: `Verify XMLDSig signatures on invoice documents.

Verifies:
  - Signature validity (cryptographic verification)
  - Certificate chain (to the configured trust anchors)
  - Certificate revocation (OCSP, unless --skip-ocsp)
  - Signer information

Platform certificates are not in the system roots, so production use
needs --ca-file or --ca-dir pointing at the anchors to trust.

Examples:
  # Verify against a platform CA certificate
  facturx verify --ca-file plateforme.pem facture.xml

  # Verify against a directory of anchors
  facturx verify --ca-dir /etc/facturx/cas facture.xml

  # Tolerate unreachable OCSP responders
  facturx verify --skip-ocsp facture.xml

  # JSON output
  facturx verify -f json facture.xml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&caFile, "ca-file", "", "Trusted CA certificate file (PEM)")
	verifyCmd.Flags().StringVar(&caDir, "ca-dir", "", "Directory of trusted CA certificates")
	verifyCmd.Flags().BoolVar(&skipOCSP, "skip-ocsp", false, "Tolerate unreachable OCSP responders")
}

func runVerify(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args, isXMLFile)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to verify")
	}

	var opts []trust.StoreOption
	if skipOCSP {
		opts = append(opts, trust.WithSoftFail())
	}

	trustStore, err := trust.NewStore(opts...)
	if err != nil {
		return fmt.Errorf("failed to create trust store: %w", err)
	}
	if caFile != "" {
		if err := trustStore.LoadFile(caFile); err != nil {
			return err
		}
	}
	if caDir != "" {
		if _, err := trustStore.LoadDirectory(caDir); err != nil {
			return err
		}
	}

	registry := signature.NewRegistry()
	registry.Register(xmlsig.NewVerifier(trustStore))

	results := make([]*VerifyResult, 0, len(files))
	allValid := true

	for _, file := range files {
		printVerbose("Verifying: %s\n", file)

		result := verifyFile(registry, file)
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
		printVerifyTable(results)
	}

	if !allValid {
		return fmt.Errorf("verification failed for some files")
	}
	return nil
}

func verifyFile(registry *signature.Registry, filePath string) *VerifyResult {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	result := &VerifyResult{
		File:     filePath,
		Errors:   []string{},
		Warnings: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to read file: %v", err))
		return result
	}

	verifier, err := registry.Detect(data)
	if err != nil {
		result.Errors = append(result.Errors, "no verifier available for this file format")
		return result
	}

	verifyResult, err := verifier.Verify(ctx, data)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("verification error: %v", err))
		if verifyResult != nil {
			result.Errors = append(result.Errors, verifyResult.Errors...)
		}
		return result
	}

	result.Valid = verifyResult.Valid
	result.Format = verifyResult.Format
	result.SignatureFound = verifyResult.SignatureFound
	result.SignatureValid = verifyResult.SignatureValid
	result.CertChainValid = verifyResult.CertChainValid
	result.NotRevoked = verifyResult.NotRevoked
	result.SignedAt = verifyResult.SignedAt
	result.Errors = append(result.Errors, verifyResult.Errors...)
	result.Warnings = append(result.Warnings, verifyResult.Warnings...)

	if verifyResult.Signer != nil {
		result.Signer = &SignerOutput{
			Name:         verifyResult.Signer.Name,
			Organization: verifyResult.Signer.Organization,
			SerialNumber: verifyResult.Signer.SerialNumber,
			Issuer:       verifyResult.Signer.Issuer,
			ValidFrom:    &verifyResult.Signer.ValidFrom,
			ValidTo:      &verifyResult.Signer.ValidTo,
		}
	}

	return result
}

func printVerifyTable(results []*VerifyResult) {
	for _, r := range results {
		statusIcon := "✓"
		statusText := "VALID"
		if !r.Valid {
			statusIcon = "✗"
			statusText = "INVALID"
		}

		fmt.Printf("%s %s: %s\n", statusIcon, r.File, statusText)

		if r.Format != "" {
			fmt.Printf("  Format: %s\n", r.Format)
		}

		if r.Signer != nil {
			fmt.Printf("  Signer: %s\n", r.Signer.Name)
			if r.Signer.Organization != "" {
				fmt.Printf("  Org:    %s\n", r.Signer.Organization)
			}
			if r.Signer.Issuer != "" {
				fmt.Printf("  Issuer: %s\n", r.Signer.Issuer)
			}
		}

		if r.SignedAt != nil {
			fmt.Printf("  Signed: %s\n", r.SignedAt.Format(time.RFC3339))
		}

		if r.SignatureFound {
			sigStatus := "✓"
			if !r.SignatureValid {
				sigStatus = "✗"
			}
			fmt.Printf("  Signature:   %s\n", sigStatus)

			certStatus := "✓"
			if !r.CertChainValid {
				certStatus = "✗"
			}
			fmt.Printf("  Cert Chain:  %s\n", certStatus)

			revokeStatus := "✓"
			if !r.NotRevoked {
				revokeStatus = "✗"
			}
			if skipOCSP {
				revokeStatus = "- (soft fail)"
			}
			fmt.Printf("  Not Revoked: %s\n", revokeStatus)
		}

		for _, e := range r.Errors {
			fmt.Printf("  ✗ %s\n", e)
		}
		for _, w := range r.Warnings {
			fmt.Printf("  ⚠ %s\n", w)
		}
	}
}

func isXMLFile(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".xml"
}

// VerifyResult holds the result of verifying a single file
type VerifyResult struct {
	File           string        `json:"file"`
	Valid          bool          `json:"valid"`
	Format         string        `json:"format,omitempty"`
	SignatureFound bool          `json:"signature_found"`
	SignatureValid bool          `json:"signature_valid"`
	CertChainValid bool          `json:"cert_chain_valid"`
	NotRevoked     bool          `json:"not_revoked"`
	Signer         *SignerOutput `json:"signer,omitempty"`
	SignedAt       *time.Time    `json:"signed_at,omitempty"`
	Errors         []string      `json:"errors,omitempty"`
	Warnings       []string      `json:"warnings,omitempty"`
}

// SignerOutput holds signer info for output
type SignerOutput struct {
	Name         string     `json:"name,omitempty"`
	Organization string     `json:"organization,omitempty"`
	SerialNumber string     `json:"serial_number,omitempty"`
	Issuer       string     `json:"issuer,omitempty"`
	ValidFrom    *time.Time `json:"valid_from,omitempty"`
	ValidTo      *time.Time `json:"valid_to,omitempty"`
}
