package certify

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	privateKeyFile = "private.pem"
	publicKeyFile  = "public.pem"
	keyBits        = 2048

	signatureAlg = "RSA-PSS-SHA256"
)

// Signature is the detached signature block embedded in a signed certificate.
type Signature struct {
	Alg         string `json:"alg"`
	SigB64      string `json:"sig_b64"`
	Fingerprint string `json:"pubkey_sha256_16"`
}

// pssOptions matches the salt convention of common PSS implementations so
// certificates remain verifiable outside this tool.
var pssOptions = &rsa.PSSOptions{
	SaltLength: rsa.PSSSaltLengthEqualsHash,
	Hash:       crypto.SHA256,
}

// Signer holds the signing keypair and the public key fingerprint.
type Signer struct {
	key         *rsa.PrivateKey
	publicPEM   []byte
	fingerprint string
}

// LoadOrCreateKeys opens the keypair under dir, generating one on first use.
// An existing keypair is never regenerated or overwritten; the private key
// file is created exclusively so two racing bootstraps cannot both win.
func LoadOrCreateKeys(dir string) (*Signer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &CryptoError{Op: "keygen", Err: err}
	}

	privPath := filepath.Join(dir, privateKeyFile)
	pubPath := filepath.Join(dir, publicKeyFile)

	if _, err := os.Stat(privPath); err == nil {
		return loadSigner(privPath, pubPath)
	}

	key, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, &CryptoError{Op: "keygen", Err: err}
	}

	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, &CryptoError{Op: "keygen", Err: err}
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	f, err := os.OpenFile(privPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		// Lost the bootstrap race; the other writer's keypair wins.
		if errors.Is(err, os.ErrExist) {
			return loadSigner(privPath, pubPath)
		}
		return nil, &CryptoError{Op: "keygen", Err: err}
	}
	if _, err := f.Write(privPEM); err != nil {
		f.Close()
		return nil, &CryptoError{Op: "keygen", Err: err}
	}
	if err := f.Close(); err != nil {
		return nil, &CryptoError{Op: "keygen", Err: err}
	}
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		return nil, &CryptoError{Op: "keygen", Err: err}
	}

	return &Signer{key: key, publicPEM: pubPEM, fingerprint: fingerprintPEM(pubPEM)}, nil
}

func loadSigner(privPath, pubPath string) (*Signer, error) {
	privPEM, err := os.ReadFile(privPath)
	if err != nil {
		return nil, &CryptoError{Op: "load", Err: err}
	}
	block, _ := pem.Decode(privPEM)
	if block == nil {
		return nil, &CryptoError{Op: "load", Err: fmt.Errorf("no PEM block in %s", privPath)}
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, &CryptoError{Op: "load", Err: err}
	}
	pubPEM, err := os.ReadFile(pubPath)
	if err != nil {
		return nil, &CryptoError{Op: "load", Err: err}
	}
	return &Signer{key: key, publicPEM: pubPEM, fingerprint: fingerprintPEM(pubPEM)}, nil
}

// PublicPEM returns the public key in PEM form for distribution to verifiers.
func (s *Signer) PublicPEM() []byte { return s.publicPEM }

// Fingerprint is the truncated SHA-256 of the public key PEM, embedded in
// each signature so the verifying key can be identified.
func (s *Signer) Fingerprint() string { return s.fingerprint }

// Sign returns the signed certificate JSON for the record. The signature
// covers the canonical form of the document; the input record is left
// untouched, the signed certificate is a separate variant.
func (s *Signer) Sign(r *Record) ([]byte, error) {
	canonical, err := CanonicalizeRecord(r)
	if err != nil {
		return nil, &CryptoError{Op: "sign", Err: err}
	}

	digest := sha256.Sum256(canonical)
	sig, err := rsa.SignPSS(rand.Reader, s.key, crypto.SHA256, digest[:], pssOptions)
	if err != nil {
		return nil, &CryptoError{Op: "sign", Err: err}
	}

	signed := *r
	signed.Signature = &Signature{
		Alg:         signatureAlg,
		SigB64:      base64.StdEncoding.EncodeToString(sig),
		Fingerprint: s.fingerprint,
	}
	return marshalIndent(&signed)
}

// fingerprintPEM is the first 16 hex characters of the SHA-256 of the PEM.
func fingerprintPEM(pubPEM []byte) string {
	sum := sha256.Sum256(pubPEM)
	return hex.EncodeToString(sum[:])[:16]
}
