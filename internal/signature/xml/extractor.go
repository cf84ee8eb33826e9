package xml

import (
	"bytes"
	"fmt"

	"github.com/beevik/etree"

	"github.com/rezonia/facturx-fr/internal/model"
)

// XMLDSigNamespace is the W3C XML digital signature namespace
const XMLDSigNamespace = "http://www.w3.org/2000/09/xmldsig#"

// SignatureExtractor locates XMLDSig signature elements in invoice
// and lifecycle documents
type SignatureExtractor struct{}

// NewSignatureExtractor creates a new signature extractor
func NewSignatureExtractor() *SignatureExtractor {
	return &SignatureExtractor{}
}

// ExtractionResult contains the extracted signature and related elements
type ExtractionResult struct {
	// SignatureElement is the ds:Signature element
	SignatureElement *etree.Element
	// SignedElement is the element the signature covers (document root
	// for enveloped signatures)
	SignedElement *etree.Element
	// Document is the parsed XML document
	Document *etree.Document
	// Format is the document vocabulary the signature was found in
	Format model.Format
}

// Extract finds the XMLDSig signature in the given XML data
func (e *SignatureExtractor) Extract(data []byte) (*ExtractionResult, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("empty XML document")
	}

	sig := findSignatureElement(root)
	if sig == nil {
		return nil, fmt.Errorf("no Signature element found in document")
	}

	// Enveloped signatures cover the whole document
	signedElement := sig.Parent()
	if signedElement == nil {
		signedElement = root
	}

	return &ExtractionResult{
		SignatureElement: sig,
		SignedElement:    signedElement,
		Document:         doc,
		Format:           detectFormat(root),
	}, nil
}

// findSignatureElement searches for the Signature element in the document
func findSignatureElement(root *etree.Element) *etree.Element {
	// Known placements: enveloped as a direct child of the root, or in
	// the UBL extension slot
	searchPaths := []string{
		"Signature",
		"ds:Signature",
		"UBLExtensions/UBLExtension/ExtensionContent/Signature",
		"ext:UBLExtensions/ext:UBLExtension/ext:ExtensionContent/ds:Signature",
	}

	for _, path := range searchPaths {
		if elem := root.FindElement(path); elem != nil {
			return elem
		}
	}

	// Fallback: recursive search by local name, any prefix
	return findElementRecursive(root, "Signature")
}

// findElementRecursive searches for an element by local name, ignoring
// namespace prefixes
func findElementRecursive(elem *etree.Element, localName string) *etree.Element {
	if elem.Tag == localName {
		return elem
	}

	for _, child := range elem.ChildElements() {
		if found := findElementRecursive(child, localName); found != nil {
			return found
		}
	}

	return nil
}

// detectFormat identifies the document vocabulary from the root element
func detectFormat(root *etree.Element) model.Format {
	switch root.Tag {
	case "CrossIndustryInvoice":
		return model.FormatCII
	case "Invoice", "CreditNote":
		return model.FormatUBL
	case "CrossDomainAcknowledgementAndResponse":
		return model.FormatCDAR
	default:
		return model.FormatUnknown
	}
}

// ExtractCertificateData extracts the base64-encoded certificate from a
// Signature element
func ExtractCertificateData(sig *etree.Element) ([]byte, error) {
	paths := []string{
		"KeyInfo/X509Data/X509Certificate",
		"ds:KeyInfo/ds:X509Data/ds:X509Certificate",
	}

	for _, path := range paths {
		if certElem := sig.FindElement(path); certElem != nil {
			certText := certElem.Text()
			if certText != "" {
				return []byte(certText), nil
			}
		}
	}

	return nil, fmt.Errorf("no X509Certificate found in Signature")
}

// CanExtract returns true if the data appears to be XML with a signature
func (e *SignatureExtractor) CanExtract(data []byte) bool {
	if len(data) < 5 {
		return false
	}

	trimmed := bytes.TrimSpace(data)
	if !bytes.HasPrefix(trimmed, []byte("<?xml")) && !bytes.HasPrefix(trimmed, []byte("<")) {
		return false
	}

	return bytes.Contains(data, []byte("<Signature")) ||
		bytes.Contains(data, []byte("<ds:Signature")) ||
		bytes.Contains(data, []byte(":Signature"))
}
