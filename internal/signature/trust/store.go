package trust

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store manages trusted CA certificates and revocation checking
type Store struct {
	roots       *x509.CertPool
	rootCerts   []*x509.Certificate // individual anchors, for libraries that need a slice
	ocspCache   *OCSPCache
	ocspTimeout time.Duration
	softFail    bool
}

// StoreOption configures a Store
type StoreOption func(*Store)

// NewStore creates a trust store seeded with the system root CAs.
// System roots take part in chain verification only; XMLDSig validation
// uses the anchors added explicitly (PEM files or directories), since
// the platform pool cannot be enumerated.
func NewStore(opts ...StoreOption) (*Store, error) {
	roots, err := x509.SystemCertPool()
	if err != nil {
		return nil, fmt.Errorf("failed to load system root CAs: %w", err)
	}

	store := &Store{
		roots:       roots,
		rootCerts:   make([]*x509.Certificate, 0),
		ocspCache:   NewOCSPCache(DefaultOCSPCacheTTL),
		ocspTimeout: DefaultOCSPTimeout,
		softFail:    false,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store, nil
}

// NewEmptyStore creates a trust store without any default CAs
func NewEmptyStore(opts ...StoreOption) *Store {
	store := &Store{
		roots:       x509.NewCertPool(),
		rootCerts:   make([]*x509.Certificate, 0),
		ocspCache:   NewOCSPCache(DefaultOCSPCacheTTL),
		ocspTimeout: DefaultOCSPTimeout,
		softFail:    false,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// WithSoftFail enables soft-fail mode for OCSP checks
// When enabled, OCSP failures don't cause verification to fail
func WithSoftFail() StoreOption {
	return func(s *Store) {
		s.softFail = true
	}
}

// WithOCSPTimeout sets the timeout for OCSP requests
func WithOCSPTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		s.ocspTimeout = d
	}
}

// WithOCSPCacheTTL sets the TTL for OCSP cache entries
func WithOCSPCacheTTL(d time.Duration) StoreOption {
	return func(s *Store) {
		s.ocspCache = NewOCSPCache(d)
	}
}

// WithCertsFromFile adds trust anchors from a PEM file.
// Load errors are ignored here; use LoadFile when they matter.
func WithCertsFromFile(path string) StoreOption {
	return func(s *Store) {
		_ = s.LoadFile(path)
	}
}

// WithCertsFromDirectory adds trust anchors from every PEM file in a
// directory. Load errors are ignored here; use LoadDirectory when they
// matter.
func WithCertsFromDirectory(dir string) StoreOption {
	return func(s *Store) {
		_, _ = s.LoadDirectory(dir)
	}
}

// AddCertificate adds a single certificate to the trust store
func (s *Store) AddCertificate(cert *x509.Certificate) {
	if cert != nil {
		s.roots.AddCert(cert)
		s.rootCerts = append(s.rootCerts, cert)
	}
}

// AddCertificates adds multiple certificates to the trust store
func (s *Store) AddCertificates(certs ...*x509.Certificate) {
	for _, cert := range certs {
		s.AddCertificate(cert)
	}
}

// AddCertificatesFromPEM parses and adds certificates from PEM data
func (s *Store) AddCertificatesFromPEM(pemData []byte) error {
	var added int
	for {
		block, rest := pem.Decode(pemData)
		if block == nil {
			break
		}
		if block.Type == "CERTIFICATE" {
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return fmt.Errorf("failed to parse certificate: %w", err)
			}
			s.AddCertificate(cert)
			added++
		}
		pemData = rest
	}
	if added == 0 {
		return fmt.Errorf("no certificates found in PEM data")
	}
	return nil
}

// LoadFile reads a PEM file and adds its certificates as trust anchors
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read certificate file: %w", err)
	}
	if err := s.AddCertificatesFromPEM(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// LoadDirectory adds every certificate found in .pem, .crt and .cer
// files in the given directory. Returns the number of anchors added.
func (s *Store) LoadDirectory(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read certificate directory: %w", err)
	}

	before := len(s.rootCerts)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".pem", ".crt", ".cer":
		default:
			continue
		}
		if err := s.LoadFile(filepath.Join(dir, entry.Name())); err != nil {
			return len(s.rootCerts) - before, err
		}
	}

	return len(s.rootCerts) - before, nil
}

// VerifyChain verifies the certificate chain against trusted roots
func (s *Store) VerifyChain(cert *x509.Certificate, intermediates []*x509.Certificate) ([]*x509.Certificate, error) {
	if cert == nil {
		return nil, fmt.Errorf("certificate is nil")
	}

	var interPool *x509.CertPool
	if len(intermediates) > 0 {
		interPool = x509.NewCertPool()
		for _, inter := range intermediates {
			interPool.AddCert(inter)
		}
	}

	opts := x509.VerifyOptions{
		Roots:         s.roots,
		Intermediates: interPool,
		CurrentTime:   time.Now(),
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}

	chains, err := cert.Verify(opts)
	if err != nil {
		return nil, fmt.Errorf("chain verification failed: %w", err)
	}

	if len(chains) == 0 {
		return nil, fmt.Errorf("no valid certificate chains found")
	}

	return chains[0], nil
}

// CheckRevocation checks if a certificate has been revoked using OCSP
func (s *Store) CheckRevocation(ctx context.Context, cert *x509.Certificate, issuer *x509.Certificate) (bool, error) {
	if cert == nil || issuer == nil {
		return false, fmt.Errorf("certificate or issuer is nil")
	}

	if notRevoked, found := s.ocspCache.Get(cert); found {
		return notRevoked, nil
	}

	// No OCSP URLs, nothing to check against
	if len(cert.OCSPServer) == 0 {
		return true, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.ocspTimeout)
	defer cancel()

	revoked, err := CheckOCSP(ctx, cert, issuer)
	if err != nil {
		if s.softFail {
			return true, fmt.Errorf("OCSP check failed (soft-fail enabled): %w", err)
		}
		return false, fmt.Errorf("OCSP check failed: %w", err)
	}

	s.ocspCache.Set(cert, !revoked)

	return !revoked, nil
}

// Roots returns the certificate pool
func (s *Store) Roots() *x509.CertPool {
	return s.roots
}

// RootCerts returns the explicitly added trust anchors as a slice.
// Useful for libraries that require []*x509.Certificate instead of
// *x509.CertPool.
func (s *Store) RootCerts() []*x509.Certificate {
	return s.rootCerts
}

// IsSoftFail returns whether soft-fail mode is enabled
func (s *Store) IsSoftFail() bool {
	return s.softFail
}
