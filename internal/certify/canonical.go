package certify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"
)

// Canonicalize produces the byte form that is signed and verified: keys
// sorted, compact separators, signature block excluded, no HTML escaping,
// non-ASCII escaped as \uXXXX. Independent verifiers must derive the exact
// same bytes from the same document, so the encoding is pinned down to the
// convention of json.dumps(separators=(",",":"), sort_keys=True).
func Canonicalize(doc []byte) ([]byte, error) {
	var m map[string]interface{}
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	delete(m, "signature")

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	out := bytes.TrimRight(buf.Bytes(), "\n")
	return escapeNonASCII(out), nil
}

// CanonicalizeRecord serializes the record and canonicalizes it in one step.
func CanonicalizeRecord(r *Record) ([]byte, error) {
	doc, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	return Canonicalize(doc)
}

// escapeNonASCII rewrites runes outside ASCII as lowercase \uXXXX escapes,
// using surrogate pairs above the BMP. Non-ASCII only occurs inside JSON
// strings, so the transform is safe on whole documents.
func escapeNonASCII(in []byte) []byte {
	ascii := true
	for _, b := range in {
		if b >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return in
	}

	var out bytes.Buffer
	out.Grow(len(in))
	for _, r := range string(in) {
		switch {
		case r < utf8.RuneSelf:
			out.WriteByte(byte(r))
		case r > 0xFFFF:
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&out, `\u%04x\u%04x`, hi, lo)
		default:
			fmt.Fprintf(&out, `\u%04x`, r)
		}
	}
	return out.Bytes()
}
