package jws

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

// protected header is fixed for the bank integration: RS256 over the
// base64url-encoded payload, {"alg":"RS256","typ":"JWT"}.
var encodedHeader = base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`))

// Signer produces JSON Web Signatures with a single validated RSA key.
// The key is immutable after construction.
type Signer struct {
	key *rsa.PrivateKey
}

func NewSigner(key *rsa.PrivateKey) *Signer {
	return &Signer{key: key}
}

// SignDetached returns the detached JWS ("header..signature", payload
// segment empty) together with the normalized payload bytes. The caller
// must transmit exactly those bytes as the request body: the signature was
// computed over them and over nothing else.
func (s *Signer) SignDetached(p Payload) (string, []byte, error) {
	normalized, sig, err := s.sign(p)
	if err != nil {
		return "", nil, err
	}
	return encodedHeader + ".." + sig, normalized, nil
}

// SignCompact returns the full compact JWS ("header.payload.signature").
// Used for self-verification and the simulator, never for bank transmission.
// Its signature segment is byte-identical to the detached form for the same
// payload.
func (s *Signer) SignCompact(p Payload) (string, []byte, error) {
	normalized, sig, err := s.sign(p)
	if err != nil {
		return "", nil, err
	}
	payloadB64 := base64.RawURLEncoding.EncodeToString(normalized)
	return encodedHeader + "." + payloadB64 + "." + sig, normalized, nil
}

func (s *Signer) sign(p Payload) (normalized []byte, sigB64 string, err error) {
	normalized, err = p.Normalize()
	if err != nil {
		return nil, "", err
	}
	signingInput := encodedHeader + "." + base64.RawURLEncoding.EncodeToString(normalized)
	digest := sha256.Sum256([]byte(signingInput))
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest[:])
	if err != nil {
		return nil, "", fmt.Errorf("jws signing failed: %w", err)
	}
	return normalized, base64.RawURLEncoding.EncodeToString(sig), nil
}

// Verify checks a detached or compact JWS against the payload bytes using
// the given public key.
func Verify(pub *rsa.PublicKey, token string, payload []byte) error {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return fmt.Errorf("jws must have three segments, got %d", len(parts))
	}
	header := parts[0]
	payloadB64 := parts[1]
	if payloadB64 == "" {
		payloadB64 = base64.RawURLEncoding.EncodeToString(payload)
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return fmt.Errorf("jws signature segment is not base64url: %w", err)
	}
	digest := sha256.Sum256([]byte(header + "." + payloadB64))
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
		return fmt.Errorf("jws signature verification failed: %w", err)
	}
	return nil
}
