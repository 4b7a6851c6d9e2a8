package keys

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
)

// Key-material errors. Each failure mode gets its own sentinel so Diagnose
// can classify the problem and suggest a remedy.
var (
	ErrEmptyKey       = errors.New("private key is empty")
	ErrMissingHeader  = errors.New("private key is missing the -----BEGIN ...----- header line")
	ErrMissingFooter  = errors.New("private key is missing the -----END ...----- footer line")
	ErrInvalidBase64  = errors.New("private key body contains invalid base64 content")
	ErrEncryptedKey   = errors.New("private key is password-protected; an unencrypted key is required")
	ErrNotPrivateKey  = errors.New("PEM block is not a private key")
	ErrNotRSA         = errors.New("private key is not an RSA key")
	ErrUnparsableKey  = errors.New("private key could not be parsed as PKCS#1 or PKCS#8")
	ErrSelfTestFailed = errors.New("private key failed the signing self-test")
)

// Load parses a PEM-encoded RSA private key. The input may carry literal
// `\n` escape sequences instead of real newlines (keys pasted into config
// stores usually do); those are normalized first. The reconstructed key must
// be an unencrypted PKCS#1 or PKCS#8 RSA key and must survive one test-sign
// before it is handed to the signer.
func Load(pemText string) (*rsa.PrivateKey, error) {
	lines, blockType, err := validateLines(pemText)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode([]byte(strings.Join(lines, "\n") + "\n"))
	if block == nil {
		return nil, fmt.Errorf("%w: PEM decode failed", ErrUnparsableKey)
	}
	if procType, ok := block.Headers["Proc-Type"]; ok && strings.Contains(procType, "ENCRYPTED") {
		return nil, ErrEncryptedKey
	}

	key, err := parseRSA(block, blockType)
	if err != nil {
		return nil, err
	}
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSelfTestFailed, err)
	}
	if err := selfTest(key); err != nil {
		return nil, err
	}
	return key, nil
}

// validateLines normalizes escaped newlines, checks the header/footer lines
// and the base64 body, and returns only the validated lines plus the block
// type named in the header.
func validateLines(pemText string) ([]string, string, error) {
	normalized := strings.ReplaceAll(pemText, `\n`, "\n")
	normalized = strings.TrimSpace(normalized)
	if normalized == "" {
		return nil, "", ErrEmptyKey
	}

	rawLines := strings.Split(normalized, "\n")
	var lines []string
	for _, l := range rawLines {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) < 3 {
		return nil, "", fmt.Errorf("%w: key has only %d non-empty lines", ErrMissingHeader, len(lines))
	}

	first, last := lines[0], lines[len(lines)-1]
	if !strings.HasPrefix(first, "-----BEGIN ") || !strings.HasSuffix(first, "-----") {
		return nil, "", ErrMissingHeader
	}
	if !strings.HasPrefix(last, "-----END ") || !strings.HasSuffix(last, "-----") {
		return nil, "", ErrMissingFooter
	}

	blockType := strings.TrimSuffix(strings.TrimPrefix(first, "-----BEGIN "), "-----")
	if strings.Contains(blockType, "ENCRYPTED") {
		return nil, "", ErrEncryptedKey
	}

	for i, l := range lines[1 : len(lines)-1] {
		// Legacy OpenSSL encryption markers live between header and body.
		if strings.HasPrefix(l, "Proc-Type:") || strings.HasPrefix(l, "DEK-Info:") {
			return nil, "", ErrEncryptedKey
		}
		if _, err := base64.StdEncoding.DecodeString(l); err != nil {
			return nil, "", fmt.Errorf("%w: line %d", ErrInvalidBase64, i+2)
		}
	}
	return lines, blockType, nil
}

func parseRSA(block *pem.Block, blockType string) (*rsa.PrivateKey, error) {
	switch blockType {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnparsableKey, err)
		}
		return key, nil
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnparsableKey, err)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: got %T", ErrNotRSA, parsed)
		}
		return key, nil
	case "EC PRIVATE KEY":
		return nil, fmt.Errorf("%w: got an EC key", ErrNotRSA)
	case "PUBLIC KEY", "RSA PUBLIC KEY", "CERTIFICATE":
		return nil, fmt.Errorf("%w: got a %s block", ErrNotPrivateKey, blockType)
	default:
		return nil, fmt.Errorf("%w: unsupported PEM block type %q", ErrNotPrivateKey, blockType)
	}
}

// selfTest signs and verifies a fixed payload to catch silently corrupted
// key material before it reaches a real bank request.
func selfTest(key *rsa.PrivateKey) error {
	digest := sha256.Sum256([]byte("payroll-gateway key self-test"))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return fmt.Errorf("%w: sign: %v", ErrSelfTestFailed, err)
	}
	if err := rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, digest[:], sig); err != nil {
		return fmt.Errorf("%w: verify: %v", ErrSelfTestFailed, err)
	}
	return nil
}
