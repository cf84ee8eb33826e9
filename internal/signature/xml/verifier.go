package xml

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"

	"github.com/rezonia/facturx-fr/internal/model"
	"github.com/rezonia/facturx-fr/internal/signature"
	"github.com/rezonia/facturx-fr/internal/signature/trust"
)

// Verifier checks XMLDSig signatures on invoice and lifecycle documents
type Verifier struct {
	trustStore *trust.Store
	extractor  *SignatureExtractor
}

// NewVerifier creates an XML signature verifier backed by the given
// trust store
func NewVerifier(ts *trust.Store) *Verifier {
	return &Verifier{
		trustStore: ts,
		extractor:  NewSignatureExtractor(),
	}
}

// Verify checks the XMLDSig signature in the given XML data
func (v *Verifier) Verify(ctx context.Context, data []byte) (*signature.Result, error) {
	result := signature.NewResult()
	result.Format = signature.FormatXML

	extraction, err := v.extractor.Extract(data)
	if err != nil {
		result.AddError(err.Error())
		return result, signature.ErrNoSignature()
	}

	result.SignatureFound = true
	if extraction.Format != model.FormatUnknown {
		result.Format = string(extraction.Format)
	}

	validationCtx := dsig.NewDefaultValidationContext(&dsig.MemoryX509CertificateStore{
		Roots: v.trustStore.RootCerts(),
	})

	// goxmldsig wants the element the enveloped signature covers and
	// locates the signature inside it
	_, err = validationCtx.Validate(extraction.Document.Root())
	if err != nil {
		result.SignatureValid = false
		result.AddError(fmt.Sprintf("signature validation failed: %v", err))
		// Keep going so the result still carries signer details
	} else {
		result.SignatureValid = true
	}

	cert, certChain, err := v.extractAndVerifyCertificate(extraction.SignatureElement)
	if err != nil {
		result.AddWarning(fmt.Sprintf("certificate extraction/verification: %v", err))
	} else {
		result.SetSigner(cert)
		result.CertChain = certChain
		result.CertChainValid = true

		if len(certChain) >= 2 {
			notRevoked, err := v.trustStore.CheckRevocation(ctx, cert, certChain[1])
			if err != nil {
				if v.trustStore.IsSoftFail() {
					result.AddWarning(fmt.Sprintf("OCSP check: %v (soft-fail enabled)", err))
					result.NotRevoked = true
				} else {
					result.AddError(fmt.Sprintf("OCSP check failed: %v", err))
					result.NotRevoked = false
				}
			} else {
				result.NotRevoked = notRevoked
				if !notRevoked {
					result.AddError("certificate has been revoked")
				}
			}
		} else {
			// Self-signed or no issuer in chain
			result.NotRevoked = true
			result.AddWarning("revocation check skipped: no issuer certificate in chain")
		}
	}

	if signingTime := extractSigningTime(extraction.SignatureElement); signingTime != nil {
		result.SignedAt = signingTime
	}

	result.ComputeValidity()
	return result, nil
}

// CanVerify returns true if the data appears to be XML
func (v *Verifier) CanVerify(data []byte) bool {
	if len(data) < 5 {
		return false
	}

	trimmed := bytes.TrimSpace(data)
	return bytes.HasPrefix(trimmed, []byte("<?xml")) || bytes.HasPrefix(trimmed, []byte("<"))
}

// Format returns the signature format this verifier handles
func (v *Verifier) Format() string {
	return signature.FormatXML
}

// extractAndVerifyCertificate pulls the signing certificate out of the
// signature and verifies its chain against the trust store
func (v *Verifier) extractAndVerifyCertificate(sigElem *etree.Element) (*x509.Certificate, []*x509.Certificate, error) {
	certData, err := ExtractCertificateData(sigElem)
	if err != nil {
		return nil, nil, err
	}

	derData, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(certData)))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(derData)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	chain, err := v.trustStore.VerifyChain(cert, nil)
	if err != nil {
		return cert, nil, fmt.Errorf("chain verification failed: %w", err)
	}

	return cert, chain, nil
}

// extractSigningTime attempts to extract the signing time from the
// signature properties
func extractSigningTime(sigElem *etree.Element) *time.Time {
	// XAdES qualifying properties first, then plain signature properties
	paths := []string{
		"Object/QualifyingProperties/SignedProperties/SignedSignatureProperties/SigningTime",
		"Object/SignatureProperties/SignatureProperty/SigningTime",
		"Object/SignatureProperties/SigningTime",
	}

	for _, path := range paths {
		if elem := sigElem.FindElement(path); elem != nil {
			if t, err := time.Parse(time.RFC3339, elem.Text()); err == nil {
				return &t
			}
			if t, err := time.Parse("2006-01-02T15:04:05", elem.Text()); err == nil {
				return &t
			}
		}
	}

	return nil
}
