package saib

import (
	"errors"
	"fmt"
)

var (
	// ErrBadCredentials maps 401 from the token or business endpoints.
	ErrBadCredentials = errors.New("bank rejected the OAuth credentials (401); check bank.oauth username/password and client id/secret")
	// ErrAccessDenied maps 403: authenticated but not entitled.
	ErrAccessDenied = errors.New("bank denied access (403); the client certificate or API subscription may not cover this service")
)

// TransportError classifies a failed HTTP exchange so operators can tell a
// certificate problem from a plain network outage.
type TransportError struct {
	Kind string // "ssl", "connection", "timeout", "http"
	Hint string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("bank %s error: %v (%s)", e.Kind, e.Err, e.Hint)
}

func (e *TransportError) Unwrap() error { return e.Err }

// BankError is a structured business error embedded in an otherwise
// successful bank response. Promoted to a raised error, never returned
// silently.
type BankError struct {
	Code string
	Desc string
}

func (e *BankError) Error() string {
	return fmt.Sprintf("bank returned error %s: %s", e.Code, e.Desc)
}

// ResponseError reports an unusable bank response body, carrying a
// truncated copy for diagnosis.
type ResponseError struct {
	Status int
	Body   string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("bank returned status %d with unusable body: %s", e.Status, truncate(e.Body, 300))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
