package xml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/facturx-fr/internal/model"
)

func TestSignatureExtractor_CanExtract(t *testing.T) {
	extractor := NewSignatureExtractor()

	tests := []struct {
		name     string
		data     []byte
		expected bool
	}{
		{
			name:     "XML with Signature",
			data:     []byte(`<?xml version="1.0"?><Invoice><Data>test</Data><Signature xmlns="http://www.w3.org/2000/09/xmldsig#"><SignedInfo/></Signature></Invoice>`),
			expected: true,
		},
		{
			name:     "XML with ds:Signature",
			data:     []byte(`<?xml version="1.0"?><Invoice><ds:Signature xmlns:ds="http://www.w3.org/2000/09/xmldsig#"><ds:SignedInfo/></ds:Signature></Invoice>`),
			expected: true,
		},
		{
			name:     "XML without Signature",
			data:     []byte(`<?xml version="1.0"?><Invoice><Data>test</Data></Invoice>`),
			expected: false,
		},
		{
			name:     "not XML",
			data:     []byte(`{"type": "json"}`),
			expected: false,
		},
		{
			name:     "empty",
			data:     []byte(``),
			expected: false,
		},
		{
			name:     "PDF magic bytes",
			data:     []byte(`%PDF-1.4`),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractor.CanExtract(tt.data))
		})
	}
}

func TestSignatureExtractor_Extract(t *testing.T) {
	extractor := NewSignatureExtractor()

	tests := []struct {
		name           string
		data           []byte
		expectError    bool
		expectedFormat model.Format
	}{
		{
			name: "CII invoice",
			data: []byte(`<?xml version="1.0"?>
<rsm:CrossIndustryInvoice xmlns:rsm="urn:un:unece:uncefact:data:standard:CrossIndustryInvoice:100">
	<rsm:ExchangedDocument/>
	<ds:Signature xmlns:ds="http://www.w3.org/2000/09/xmldsig#">
		<ds:SignedInfo/>
		<ds:SignatureValue/>
	</ds:Signature>
</rsm:CrossIndustryInvoice>`),
			expectedFormat: model.FormatCII,
		},
		{
			name: "UBL invoice with extension slot",
			data: []byte(`<?xml version="1.0"?>
<Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2">
	<ext:UBLExtensions xmlns:ext="urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2">
		<ext:UBLExtension>
			<ext:ExtensionContent>
				<ds:Signature xmlns:ds="http://www.w3.org/2000/09/xmldsig#">
					<ds:SignedInfo/>
				</ds:Signature>
			</ext:ExtensionContent>
		</ext:UBLExtension>
	</ext:UBLExtensions>
	<cbc:ID xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">FA-2026-001</cbc:ID>
</Invoice>`),
			expectedFormat: model.FormatUBL,
		},
		{
			name: "UBL credit note",
			data: []byte(`<?xml version="1.0"?>
<CreditNote xmlns="urn:oasis:names:specification:ubl:schema:xsd:CreditNote-2">
	<Signature xmlns="http://www.w3.org/2000/09/xmldsig#">
		<SignedInfo/>
	</Signature>
</CreditNote>`),
			expectedFormat: model.FormatUBL,
		},
		{
			name: "lifecycle message",
			data: []byte(`<?xml version="1.0"?>
<rsm:CrossDomainAcknowledgementAndResponse xmlns:rsm="urn:un:unece:uncefact:data:standard:CrossDomainAcknowledgementAndResponse:100">
	<rsm:AcknowledgementDocument/>
	<ds:Signature xmlns:ds="http://www.w3.org/2000/09/xmldsig#">
		<ds:SignedInfo/>
	</ds:Signature>
</rsm:CrossDomainAcknowledgementAndResponse>`),
			expectedFormat: model.FormatCDAR,
		},
		{
			name: "unknown vocabulary",
			data: []byte(`<?xml version="1.0"?>
<Document>
	<Signature xmlns="http://www.w3.org/2000/09/xmldsig#">
		<SignedInfo/>
	</Signature>
</Document>`),
			expectedFormat: model.FormatUnknown,
		},
		{
			name:        "no signature",
			data:        []byte(`<?xml version="1.0"?><Invoice><Data>test</Data></Invoice>`),
			expectError: true,
		},
		{
			name:        "invalid XML",
			data:        []byte(`not xml`),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := extractor.Extract(tt.data)

			if tt.expectError {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, result.SignatureElement)
			assert.Equal(t, "Signature", result.SignatureElement.Tag)
			assert.Equal(t, tt.expectedFormat, result.Format)
		})
	}
}

func TestSignatureExtractor_Extract_NestedSignature(t *testing.T) {
	extractor := NewSignatureExtractor()

	data := []byte(`<?xml version="1.0"?>
<Root>
	<Level1>
		<Level2>
			<Level3>
				<Signature xmlns="http://www.w3.org/2000/09/xmldsig#">
					<SignedInfo/>
				</Signature>
			</Level3>
		</Level2>
	</Level1>
</Root>`)

	result, err := extractor.Extract(data)
	require.NoError(t, err)
	require.NotNil(t, result.SignatureElement)
	require.NotNil(t, result.SignedElement)
	assert.Equal(t, "Level3", result.SignedElement.Tag)
}

func TestExtractCertificateData(t *testing.T) {
	xmlWithCert := []byte(`<?xml version="1.0"?>
<Signature xmlns="http://www.w3.org/2000/09/xmldsig#">
	<SignedInfo/>
	<SignatureValue/>
	<KeyInfo>
		<X509Data>
			<X509Certificate>MIIBkTCB+wIJAKHBfpE=</X509Certificate>
		</X509Data>
	</KeyInfo>
</Signature>`)

	extractor := NewSignatureExtractor()
	result, err := extractor.Extract(xmlWithCert)
	require.NoError(t, err)

	certData, err := ExtractCertificateData(result.SignatureElement)
	require.NoError(t, err)
	assert.Equal(t, "MIIBkTCB+wIJAKHBfpE=", string(certData))
}

func TestExtractCertificateData_NotFound(t *testing.T) {
	xmlNoCert := []byte(`<?xml version="1.0"?>
<Signature xmlns="http://www.w3.org/2000/09/xmldsig#">
	<SignedInfo/>
	<SignatureValue/>
</Signature>`)

	extractor := NewSignatureExtractor()
	result, err := extractor.Extract(xmlNoCert)
	require.NoError(t, err)

	_, err = ExtractCertificateData(result.SignatureElement)
	require.Error(t, err)
}
