package certify

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
)

// Verify checks a signed certificate against the given public key PEM. It
// returns whether the signature is valid plus a human-readable diagnostic.
// Malformed input is a verification failure, never a panic: auditors feed
// this function untrusted files.
func Verify(signedJSON, pubPEM []byte) (bool, string) {
	var doc struct {
		Signature *Signature `json:"signature"`
	}
	if err := json.Unmarshal(signedJSON, &doc); err != nil {
		return false, fmt.Sprintf("certificate is not valid JSON: %v", err)
	}
	if doc.Signature == nil {
		return false, "certificate carries no signature block"
	}
	if doc.Signature.Alg != signatureAlg {
		return false, fmt.Sprintf("unsupported signature algorithm %q", doc.Signature.Alg)
	}

	sig, err := base64.StdEncoding.DecodeString(doc.Signature.SigB64)
	if err != nil {
		return false, fmt.Sprintf("signature is not valid base64: %v", err)
	}

	block, _ := pem.Decode(pubPEM)
	if block == nil {
		return false, "public key is not valid PEM"
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return false, fmt.Sprintf("cannot parse public key: %v", err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return false, "public key is not RSA"
	}

	canonical, err := Canonicalize(signedJSON)
	if err != nil {
		return false, fmt.Sprintf("cannot canonicalize certificate: %v", err)
	}
	digest := sha256.Sum256(canonical)

	if err := rsa.VerifyPSS(pub, crypto.SHA256, digest[:], sig, pssOptions); err != nil {
		return false, "signature does not match certificate contents"
	}

	// A fingerprint mismatch with a valid signature means the certificate
	// names a different key than the one that checked out; surface it, but
	// the cryptographic verdict stands.
	diag := "signature valid"
	if got := fingerprintPEM(pubPEM); doc.Signature.Fingerprint != "" && doc.Signature.Fingerprint != got {
		diag = fmt.Sprintf("signature valid; warning: embedded key fingerprint %s does not match verifying key %s",
			doc.Signature.Fingerprint, got)
	}
	return true, diag
}
