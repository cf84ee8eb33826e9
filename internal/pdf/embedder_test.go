package pdf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/facturx-fr/internal/pdf"
)

func TestIsPDF(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"pdf header", []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3"), true},
		{"older version", []byte("%PDF-1.4"), true},
		{"xml document", []byte("<?xml version=\"1.0\"?>"), false},
		{"empty", nil, false},
		{"header not at start", []byte(" %PDF-1.7"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pdf.IsPDF(tt.data))
		})
	}
}

func TestEmbedder_EmbedRejectsBadInput(t *testing.T) {
	e := pdf.NewEmbedder()
	require.NotNil(t, e)

	_, err := e.Embed([]byte("not a pdf"), []byte("<xml/>"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PDF header")

	_, err = e.Embed([]byte("%PDF-1.7"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no XML")
}

func TestEmbedder_ExtractRejectsNonPDF(t *testing.T) {
	e := pdf.NewEmbedder()

	_, err := e.ExtractXML([]byte("<?xml version=\"1.0\"?>"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PDF header")
}
