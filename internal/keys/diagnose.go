package keys

import (
	"errors"
	"strings"
)

// Report is the structured result of a key diagnosis, meant for operator
// troubleshooting UIs. It never carries key material.
type Report struct {
	Valid           bool     `json:"valid"`
	Format          string   `json:"format"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

// Diagnose runs the same checks as Load but never returns an error: every
// failure is translated into an issue plus a remedy the operator can act on.
func Diagnose(pemText string) Report {
	report := Report{Format: "unknown"}

	_, blockType, err := validateLines(pemText)
	if err == nil && blockType != "" {
		report.Format = blockType
	}

	if _, loadErr := Load(pemText); loadErr != nil {
		report.Issues = append(report.Issues, loadErr.Error())
		report.Recommendations = append(report.Recommendations, remedyFor(loadErr))
		return report
	}

	report.Valid = true
	report.Format = formatName(blockType)
	report.Recommendations = append(report.Recommendations,
		"key is valid and ready for use")
	return report
}

func formatName(blockType string) string {
	switch blockType {
	case "RSA PRIVATE KEY":
		return "PKCS#1 RSA"
	case "PRIVATE KEY":
		return "PKCS#8 RSA"
	default:
		return blockType
	}
}

func remedyFor(err error) string {
	switch {
	case errors.Is(err, ErrEmptyKey):
		return "paste the full PEM key including the BEGIN and END lines"
	case errors.Is(err, ErrMissingHeader), errors.Is(err, ErrMissingFooter):
		return "the key must start with -----BEGIN ... PRIVATE KEY----- and end with the matching -----END line; check for truncation when copying"
	case errors.Is(err, ErrInvalidBase64):
		return "the key body is corrupted; re-export the key and copy it without modification"
	case errors.Is(err, ErrEncryptedKey):
		return "remove the passphrase, e.g. openssl rsa -in encrypted.pem -out plain.pem"
	case errors.Is(err, ErrNotRSA):
		return "the bank requires an RSA key; generate one with openssl genrsa 2048"
	case errors.Is(err, ErrNotPrivateKey):
		return "this is not a private key; supply the private half of the signing key pair"
	case errors.Is(err, ErrSelfTestFailed):
		return "the key material is corrupted; re-export the key from its original source"
	default:
		if strings.Contains(err.Error(), "PKCS") {
			return "convert the key to PKCS#8: openssl pkcs8 -topk8 -nocrypt -in key.pem"
		}
		return "verify the key was exported unencrypted in PEM format"
	}
}
