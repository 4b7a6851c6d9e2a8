package jws

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"
)

func testSigner(t *testing.T) (*Signer, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatal(err)
	}
	return NewSigner(key), key
}

func TestDetachedAndCompactShareSignature(t *testing.T) {
	signer, key := testSigner(t)
	payload := JSONPayload{Value: map[string]any{"CompanyCode": "FLNT01", "ApiReference": "X1"}}

	detached, normDetached, err := signer.SignDetached(payload)
	if err != nil {
		t.Fatal(err)
	}
	compact, normCompact, err := signer.SignCompact(payload)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(normDetached, normCompact) {
		t.Fatalf("normalized payloads differ: %q vs %q", normDetached, normCompact)
	}

	dParts := strings.Split(detached, ".")
	cParts := strings.Split(compact, ".")
	if len(dParts) != 3 || len(cParts) != 3 {
		t.Fatalf("want 3 segments, got %d and %d", len(dParts), len(cParts))
	}
	if dParts[1] != "" {
		t.Fatalf("detached payload segment must be empty, got %q", dParts[1])
	}
	if dParts[2] != cParts[2] {
		t.Fatal("detached and compact signature segments differ")
	}

	// Independent verification the way the bank does it: RS256 over
	// "header.base64url(payload)".
	signingInput := dParts[0] + "." + base64.RawURLEncoding.EncodeToString(normDetached)
	digest := sha256.Sum256([]byte(signingInput))
	sig, err := base64.RawURLEncoding.DecodeString(dParts[2])
	if err != nil {
		t.Fatal(err)
	}
	if err := rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, digest[:], sig); err != nil {
		t.Fatalf("independent verification failed: %v", err)
	}

	if err := Verify(&key.PublicKey, detached, normDetached); err != nil {
		t.Fatalf("detached verify: %v", err)
	}
	if err := Verify(&key.PublicKey, compact, nil); err != nil {
		t.Fatalf("compact verify: %v", err)
	}
}

func TestHeaderIsFixedRS256(t *testing.T) {
	raw, err := base64.RawURLEncoding.DecodeString(encodedHeader)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `{"alg":"RS256","typ":"JWT"}` {
		t.Fatalf("unexpected header: %s", raw)
	}
}

func TestNormalizeEquivalentInputs(t *testing.T) {
	want := []byte(`{"a":1,"b":"x"}`)

	inputs := []Payload{
		JSONPayload{Value: map[string]any{"b": "x", "a": 1}},
		TextPayload(`{ "b" : "x", "a" : 1 }`),
		TextPayload(`{"a":1,"b":"x"}`),
		BinaryPayload(`{"b":"x",  "a": 1}`),
	}
	for i, p := range inputs {
		got, err := p.Normalize()
		if err != nil {
			t.Fatalf("input %d: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("input %d: got %q, want %q", i, got, want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	once, err := TextPayload(`{"z": 9, "a": {"c": 2, "b": 1}}`).Normalize()
	if err != nil {
		t.Fatal(err)
	}
	twice, err := TextPayload(once).Normalize()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(once, twice) {
		t.Fatalf("normalize is not idempotent: %q vs %q", once, twice)
	}
}

func TestNormalizePreservesNumberLiterals(t *testing.T) {
	got, err := TextPayload(`{"amount": 150.00}`).Normalize()
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"amount":150.00}` {
		t.Fatalf("number literal was rewritten: %q", got)
	}
}

func TestNormalizePlainTextAndBinary(t *testing.T) {
	got, err := TextPayload("not json at all").Normalize()
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "not json at all" {
		t.Fatalf("plain text must pass through, got %q", got)
	}

	raw := []byte{0xff, 0xfe, 0x00, 0x01}
	got, err = BinaryPayload(raw).Normalize()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("non-UTF-8 binary must pass through, got %v", got)
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	signer, key := testSigner(t)
	detached, normalized, err := signer.SignDetached(TextPayload("hello"))
	if err != nil {
		t.Fatal(err)
	}
	if err := Verify(&key.PublicKey, detached, normalized); err != nil {
		t.Fatal(err)
	}
	if err := Verify(&key.PublicKey, detached, []byte("hellO")); err == nil {
		t.Fatal("tampered payload must fail verification")
	}
}
