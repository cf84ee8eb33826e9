// Package pdf handles the container side of the hybrid format:
// attaching the XML rendition to a PDF and pulling it back out of
// received documents.
package pdf

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfcpumodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// AttachmentName is the fixed file name of the embedded XML rendition
const AttachmentName = "factur-x.xml"

// IsPDF reports whether data starts with the PDF file header
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

// Embedder attaches the XML rendition to a PDF container and extracts
// it from received ones. Attachment IO goes through a scratch
// directory because the backend works on file paths.
type Embedder struct {
	conf *pdfcpumodel.Configuration
}

// NewEmbedder creates an embedder with relaxed PDF validation, which
// tolerates the slightly off-spec output of common invoice printers
func NewEmbedder() *Embedder {
	conf := pdfcpumodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfcpumodel.ValidationRelaxed
	return &Embedder{conf: conf}
}

// Embed returns a copy of pdfData carrying xml as an attachment named
// factur-x.xml
func (e *Embedder) Embed(pdfData, xml []byte) ([]byte, error) {
	if !IsPDF(pdfData) {
		return nil, errors.New("data does not start with a PDF header")
	}
	if len(xml) == 0 {
		return nil, errors.New("no XML to embed")
	}

	dir, err := os.MkdirTemp("", "facturx-embed-")
	if err != nil {
		return nil, errors.Wrap(err, "create scratch dir")
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, AttachmentName)
	if err := os.WriteFile(path, xml, 0o600); err != nil {
		return nil, errors.Wrap(err, "write attachment")
	}

	var out bytes.Buffer
	if err := api.AddAttachments(bytes.NewReader(pdfData), &out, []string{path}, false, e.conf); err != nil {
		return nil, errors.Wrap(err, "add attachment")
	}
	return out.Bytes(), nil
}

// ExtractXML returns the embedded XML rendition of a hybrid document.
// It prefers the factur-x.xml attachment and falls back to the first
// XML attachment found, which covers older naming conventions.
func (e *Embedder) ExtractXML(pdfData []byte) ([]byte, error) {
	if !IsPDF(pdfData) {
		return nil, errors.New("data does not start with a PDF header")
	}

	dir, err := os.MkdirTemp("", "facturx-extract-")
	if err != nil {
		return nil, errors.Wrap(err, "create scratch dir")
	}
	defer os.RemoveAll(dir)

	if err := api.ExtractAttachments(bytes.NewReader(pdfData), dir, nil, e.conf); err != nil {
		return nil, errors.Wrap(err, "extract attachments")
	}

	data, err := os.ReadFile(filepath.Join(dir, AttachmentName))
	if err == nil {
		return data, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "read scratch dir")
	}
	for _, entry := range entries {
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".xml") {
			return os.ReadFile(filepath.Join(dir, entry.Name()))
		}
	}
	return nil, errors.New("no XML attachment in PDF")
}
