// Package security signs and validates the access tokens handed out on login.
package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"strings"
)

var (
	// ErrInvalidKey is returned when PEM or key type is invalid.
	ErrInvalidKey = errors.New("invalid key")
	// ErrKeyPairRequired is returned when only one half of the signing key pair is configured.
	ErrKeyPairRequired = errors.New("both JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set")
)

// LoadPEM returns s as PEM bytes when it is inline PEM (literal "\n" sequences are expanded,
// as env files often carry them); otherwise s is treated as a file path.
func LoadPEM(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	if strings.HasPrefix(s, "-----BEGIN") {
		return []byte(strings.ReplaceAll(s, `\n`, "\n")), nil
	}
	return os.ReadFile(s)
}

func decodeBlock(s string) (*pem.Block, error) {
	raw, err := LoadPEM(s)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, ErrInvalidKey
	}
	return block, nil
}

// ParsePrivateKey parses a PEM-encoded RSA or ECDSA private key given inline or as a file path.
func ParsePrivateKey(s string) (crypto.Signer, error) {
	block, err := decodeBlock(s)
	if err != nil {
		return nil, err
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		if signer, ok := key.(crypto.Signer); ok {
			return signer, nil
		}
	}
	return nil, ErrInvalidKey
}

// ParsePublicKey parses a PEM-encoded RSA or ECDSA public key given inline or as a file path.
func ParsePublicKey(s string) (crypto.PublicKey, error) {
	block, err := decodeBlock(s)
	if err != nil {
		return nil, err
	}
	switch block.Type {
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	case "PUBLIC KEY":
		return x509.ParsePKIXPublicKey(block.Bytes)
	}
	return nil, ErrInvalidKey
}

// LoadKeyPair returns the configured signing key pair. When both values are empty and
// allowEphemeral is set, a fresh P-256 key is generated; tokens signed with it do not
// survive a restart.
func LoadKeyPair(privatePEM, publicPEM string, allowEphemeral bool) (crypto.Signer, crypto.PublicKey, error) {
	privatePEM, publicPEM = strings.TrimSpace(privatePEM), strings.TrimSpace(publicPEM)
	if privatePEM == "" && publicPEM == "" {
		if !allowEphemeral {
			return nil, nil, ErrKeyPairRequired
		}
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, nil, err
		}
		return key, key.Public(), nil
	}
	if privatePEM == "" || publicPEM == "" {
		return nil, nil, ErrKeyPairRequired
	}
	signer, err := ParsePrivateKey(privatePEM)
	if err != nil {
		return nil, nil, err
	}
	pub, err := ParsePublicKey(publicPEM)
	if err != nil {
		return nil, nil, err
	}
	if KeyAlg(pub) == "" || KeyAlg(pub) != KeyAlg(signer.Public()) {
		return nil, nil, ErrInvalidKey
	}
	return signer, pub, nil
}

// KeyAlg returns "RS256" for RSA and "ES256" for ECDSA; empty otherwise.
func KeyAlg(pub crypto.PublicKey) string {
	switch pub.(type) {
	case *rsa.PublicKey:
		return "RS256"
	case *ecdsa.PublicKey:
		return "ES256"
	default:
		return ""
	}
}
