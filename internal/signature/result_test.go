package signature_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/facturx-fr/internal/signature"
)

func TestResult_JSONSerialization(t *testing.T) {
	signedAt := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)

	result := &signature.Result{
		Valid:          true,
		SignatureFound: true,
		SignatureValid: true,
		CertChainValid: true,
		NotRevoked:     true,
		TimestampValid: true,
		SignedAt:       &signedAt,
		Format:         "cii",
		Signer: &signature.SignerInfo{
			Name:         "Optique Durand SARL",
			Organization: "Optique Durand",
			SerialNumber: "1234567890",
			Issuer:       "Certigna Services CA",
			ValidFrom:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			ValidTo:      time.Date(2027, 12, 31, 23, 59, 59, 0, time.UTC),
		},
		Warnings: []string{"OCSP response cached"},
		Errors:   []string{},
	}

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded signature.Result
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, result.Valid, decoded.Valid)
	assert.Equal(t, result.SignatureFound, decoded.SignatureFound)
	assert.Equal(t, result.SignatureValid, decoded.SignatureValid)
	assert.Equal(t, result.Format, decoded.Format)
	require.NotNil(t, decoded.Signer)
	assert.Equal(t, result.Signer.Name, decoded.Signer.Name)
	assert.Equal(t, result.Signer.Issuer, decoded.Signer.Issuer)
	assert.Len(t, decoded.Warnings, 1)
}

func TestResult_OmitEmpty(t *testing.T) {
	result := &signature.Result{
		Valid:          false,
		SignatureFound: false,
	}

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.NotContains(t, raw, "signer")
	assert.NotContains(t, raw, "signed_at")
	assert.NotContains(t, raw, "timestamp_valid")
}

func TestResult_CertChainNotInJSON(t *testing.T) {
	cert := newTestCert(t, "Test Cert", "Test Issuer")

	result := &signature.Result{
		Valid:     true,
		CertChain: []*x509.Certificate{cert},
	}

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.NotContains(t, raw, "cert_chain")
}

func TestResult_SetSigner(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(12345),
		Subject: pkix.Name{
			CommonName:   "Optique Durand SARL",
			Organization: []string{"Optique Durand"},
		},
		NotBefore: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:  time.Date(2027, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(certDER)
	require.NoError(t, err)

	result := signature.NewResult()
	result.SetSigner(cert)

	require.NotNil(t, result.Signer)
	assert.Equal(t, "Optique Durand SARL", result.Signer.Name)
	assert.Equal(t, "Optique Durand", result.Signer.Organization)
	assert.Equal(t, "12345", result.Signer.SerialNumber)
}

func TestResult_ComputeValidity(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*signature.Result)
		expected bool
	}{
		{
			name: "all checks pass",
			setup: func(r *signature.Result) {
				r.SignatureFound = true
				r.SignatureValid = true
				r.CertChainValid = true
				r.NotRevoked = true
			},
			expected: true,
		},
		{
			name: "signature not found",
			setup: func(r *signature.Result) {
				r.SignatureValid = true
				r.CertChainValid = true
				r.NotRevoked = true
			},
			expected: false,
		},
		{
			name: "signature invalid",
			setup: func(r *signature.Result) {
				r.SignatureFound = true
				r.CertChainValid = true
				r.NotRevoked = true
			},
			expected: false,
		},
		{
			name: "chain invalid",
			setup: func(r *signature.Result) {
				r.SignatureFound = true
				r.SignatureValid = true
				r.NotRevoked = true
			},
			expected: false,
		},
		{
			name: "certificate revoked",
			setup: func(r *signature.Result) {
				r.SignatureFound = true
				r.SignatureValid = true
				r.CertChainValid = true
			},
			expected: false,
		},
		{
			name: "has errors",
			setup: func(r *signature.Result) {
				r.SignatureFound = true
				r.SignatureValid = true
				r.CertChainValid = true
				r.NotRevoked = true
				r.Errors = []string{"some error"}
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := signature.NewResult()
			tt.setup(result)
			result.ComputeValidity()

			assert.Equal(t, tt.expected, result.Valid)
		})
	}
}

func TestResult_AddWarningAndError(t *testing.T) {
	result := signature.NewResult()
	result.Valid = true

	result.AddWarning("OCSP cache hit")
	assert.Len(t, result.Warnings, 1)
	assert.True(t, result.Valid, "AddWarning should not change Valid")

	result.AddError("certificate expired")
	assert.Len(t, result.Errors, 1)
	assert.False(t, result.Valid, "AddError should set Valid to false")
}

func TestResult_IsFullyValid(t *testing.T) {
	result := signature.NewResult()
	result.Valid = true
	assert.False(t, result.IsFullyValid())

	result.TimestampValid = true
	assert.True(t, result.IsFullyValid())
}

func newTestCert(t *testing.T, cn, issuer string) *x509.Certificate {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: cn},
		Issuer:       pkix.Name{CommonName: issuer},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
	}
	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(certDER)
	require.NoError(t, err)
	return cert
}
