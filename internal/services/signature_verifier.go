package services

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"hash"
	"strings"
)

// SignatureScheme is one way the gateway has signed webhook bodies.
type SignatureScheme struct {
	Name   string
	Hash   func() hash.Hash
	Encode func([]byte) string
}

var (
	SchemeSHA256Hex    = SignatureScheme{Name: "hmac-sha256-hex", Hash: sha256.New, Encode: hex.EncodeToString}
	SchemeSHA256Base64 = SignatureScheme{Name: "hmac-sha256-base64", Hash: sha256.New, Encode: base64.StdEncoding.EncodeToString}
	SchemeSHA1Hex      = SignatureScheme{Name: "hmac-sha1-hex", Hash: sha1.New, Encode: hex.EncodeToString}
	SchemeSHA1Base64   = SignatureScheme{Name: "hmac-sha1-base64", Hash: sha1.New, Encode: base64.StdEncoding.EncodeToString}
)

// DefaultSchemes are tried for every configured secret, in this order.
var DefaultSchemes = []SignatureScheme{SchemeSHA256Hex, SchemeSHA256Base64, SchemeSHA1Hex, SchemeSHA1Base64}

// SigningKey pairs one trusted secret with one scheme.
type SigningKey struct {
	Secret []byte
	Scheme SignatureScheme
}

// Sign computes the signature of body under this key.
func (k SigningKey) Sign(body []byte) string {
	mac := hmac.New(k.Scheme.Hash, k.Secret)
	mac.Write(body)
	return k.Scheme.Encode(mac.Sum(nil))
}

// Matches compares in constant time.
func (k SigningKey) Matches(body []byte, signature string) bool {
	return hmac.Equal([]byte(k.Sign(body)), []byte(signature))
}

// SignatureVerifier accepts a body whose signature is valid under any trusted
// key. With no keys it runs in open mode and accepts everything.
type SignatureVerifier struct {
	keys []SigningKey
}

// NewSignatureVerifier expands each secret into the default schemes, keeping
// the configured secret order. Blank secrets are ignored.
func NewSignatureVerifier(secrets []string) *SignatureVerifier {
	v := &SignatureVerifier{}
	for _, s := range secrets {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		for _, scheme := range DefaultSchemes {
			v.keys = append(v.keys, SigningKey{Secret: []byte(s), Scheme: scheme})
		}
	}
	return v
}

// NewSignatureVerifierWithKeys uses an explicit key list.
func NewSignatureVerifierWithKeys(keys ...SigningKey) *SignatureVerifier {
	return &SignatureVerifier{keys: keys}
}

// Enabled reports whether at least one secret is configured.
func (v *SignatureVerifier) Enabled() bool {
	return v != nil && len(v.keys) > 0
}

// Verify never panics; an empty signature fails whenever a secret is set.
func (v *SignatureVerifier) Verify(body []byte, signature string) bool {
	if !v.Enabled() {
		return true
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return false
	}
	for _, k := range v.keys {
		if k.Matches(body, signature) {
			return true
		}
	}
	return false
}
