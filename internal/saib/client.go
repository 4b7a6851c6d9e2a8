package saib

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"payroll-gateway/internal/config"
	"payroll-gateway/internal/jws"
)

const (
	PaymentPath    = "/b2b-rest-payroll-service/b2b/payroll/payment"
	InquiryPath    = "/b2b-rest-payroll-service/b2b/payroll/inquiry"
	SignedFilePath = "/b2b-rest-payroll-service/b2b/payroll/file"
)

// Client talks to the SAIB B2B payroll API: OAuth2 password grant over
// mutual TLS, detached-JWS-signed bodies, and structured bank errors
// promoted to Go errors. Each call acquires its own identity, token and
// temp-file set; nothing is shared across concurrent requests.
type Client struct {
	cfg    *config.BankConfig
	signer *jws.Signer
	log    *zap.Logger
}

func NewClient(cfg *config.BankConfig, signer *jws.Signer, log *zap.Logger) *Client {
	return &Client{cfg: cfg, signer: signer, log: log}
}

// SubmitPayment posts a payroll batch to the bank.
func (c *Client) SubmitPayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error) {
	raw, err := c.Request(ctx, http.MethodPost, PaymentPath, jws.JSONPayload{Value: req}, req.APIReference)
	if err != nil {
		return nil, err
	}
	var resp PaymentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &ResponseError{Status: http.StatusOK, Body: string(raw)}
	}
	return &resp, nil
}

// InquirePayment polls the status of a previously submitted batch.
func (c *Client) InquirePayment(ctx context.Context, req InquiryRequest) (*InquiryResponse, error) {
	raw, err := c.Request(ctx, http.MethodPost, InquiryPath, jws.JSONPayload{Value: req}, req.APIReference)
	if err != nil {
		return nil, err
	}
	var resp InquiryResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &ResponseError{Status: http.StatusOK, Body: string(raw)}
	}
	return &resp, nil
}

// FetchSignedFile retrieves the bank-signed confirmation file for a batch.
func (c *Client) FetchSignedFile(ctx context.Context, apiReference string) (*SignedFileResponse, error) {
	req := InquiryRequest{CompanyCode: c.cfg.CompanyCode, APIReference: apiReference}
	raw, err := c.Request(ctx, http.MethodPost, SignedFilePath, jws.JSONPayload{Value: req}, apiReference)
	if err != nil {
		return nil, err
	}
	var resp SignedFileResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &ResponseError{Status: http.StatusOK, Body: string(raw)}
	}
	return &resp, nil
}

// Request performs one signed bank exchange and returns the raw response
// body after error promotion. The body transmitted is exactly the
// normalized payload the signature was computed over.
func (c *Client) Request(ctx context.Context, method, endpoint string, payload jws.Payload, idempotencyKey string) ([]byte, error) {
	id, err := acquireIdentity(c.cfg)
	if err != nil {
		return nil, err
	}
	defer id.Close()

	hc := c.httpClient(id)

	token, err := c.getToken(ctx, hc)
	if err != nil {
		return nil, err
	}

	var body []byte
	var signature string
	if payload != nil {
		signature, body, err = c.signer.SignDetached(payload)
		if err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build bank request: %w", err)
	}
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}
	interactionID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("x-ibm-client-id", c.cfg.OAuth.ClientID)
	req.Header.Set("x-ibm-client-secret", c.cfg.OAuth.ClientSecret)
	req.Header.Set("x-idempotency-key", idempotencyKey)
	req.Header.Set("x-fapi-interaction-id", interactionID)
	req.Header.Set("x-saib-timestamp", time.Now().UTC().Format(time.RFC3339))
	if signature != "" {
		req.Header.Set("x-jws-signature", signature)
	}

	c.log.Info("bank request",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.String("interaction_id", interactionID),
		zap.String("idempotency_key", idempotencyKey),
	)

	resp, err := hc.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Kind: "connection", Hint: "the bank closed the connection mid-response", Err: err}
	}

	if err := checkStatus(resp.StatusCode, raw); err != nil {
		c.log.Warn("bank request failed",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.Error(err),
		)
		return nil, err
	}

	if err := promoteBankError(raw, resp.StatusCode); err != nil {
		c.log.Warn("bank business error",
			zap.String("endpoint", endpoint),
			zap.Error(err),
		)
		return nil, err
	}
	return raw, nil
}

func (c *Client) httpClient(id *identity) *http.Client {
	return &http.Client{
		Timeout: time.Duration(c.cfg.TimeoutSeconds) * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: id.TLSConfig(),
		},
	}
}

// getToken runs the OAuth2 password grant. Client id and secret are sent
// both as headers and as form fields; the bank gateway has accepted either
// at different times.
func (c *Client) getToken(ctx context.Context, hc *http.Client) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", c.cfg.OAuth.Username)
	form.Set("password", c.cfg.OAuth.Password)
	form.Set("client_id", c.cfg.OAuth.ClientID)
	form.Set("client_secret", c.cfg.OAuth.ClientSecret)
	if c.cfg.OAuth.Scope != "" {
		form.Set("scope", c.cfg.OAuth.Scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("x-ibm-client-id", c.cfg.OAuth.ClientID)
	req.Header.Set("x-ibm-client-secret", c.cfg.OAuth.ClientSecret)

	resp, err := hc.Do(req)
	if err != nil {
		return "", classify(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Kind: "connection", Hint: "the token endpoint closed the connection mid-response", Err: err}
	}
	if err := checkStatus(resp.StatusCode, raw); err != nil {
		return "", err
	}

	var tok tokenResponse
	if err := json.Unmarshal(raw, &tok); err != nil {
		return "", &ResponseError{Status: resp.StatusCode, Body: string(raw)}
	}
	if tok.AccessToken == "" {
		return "", &ResponseError{Status: resp.StatusCode, Body: string(raw)}
	}
	return tok.AccessToken, nil
}

func checkStatus(status int, body []byte) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrBadCredentials
	case status == http.StatusForbidden:
		return ErrAccessDenied
	case status >= 400:
		return &TransportError{
			Kind: "http",
			Hint: fmt.Sprintf("bank response body: %s", truncate(string(body), 300)),
			Err:  fmt.Errorf("unexpected HTTP status %d", status),
		}
	}
	return nil
}

// promoteBankError surfaces structured error codes embedded in a 200
// response, either top-level ErrorCode/ErrorDesc or a nested
// Data.StatusCode other than OK.
func promoteBankError(raw []byte, status int) error {
	var envelope struct {
		ErrorCode string `json:"ErrorCode"`
		ErrorDesc string `json:"ErrorDesc"`
		Data      struct {
			StatusCode string `json:"StatusCode"`
			StatusDesc string `json:"StatusDesc"`
		} `json:"Data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return &ResponseError{Status: status, Body: string(raw)}
	}
	if envelope.ErrorCode != "" {
		return &BankError{Code: envelope.ErrorCode, Desc: envelope.ErrorDesc}
	}
	if envelope.Data.StatusCode != "" && envelope.Data.StatusCode != "OK" {
		return &BankError{Code: envelope.Data.StatusCode, Desc: envelope.Data.StatusDesc}
	}
	return nil
}

// classify maps low-level request failures onto the transport taxonomy.
func classify(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		if uerr.Timeout() {
			return &TransportError{Kind: "timeout", Hint: "the bank did not respond within the configured timeout", Err: err}
		}
		var unknownAuthority x509.UnknownAuthorityError
		var hostnameErr x509.HostnameError
		var certInvalid x509.CertificateInvalidError
		if errors.As(err, &unknownAuthority) || errors.As(err, &hostnameErr) || errors.As(err, &certInvalid) ||
			strings.Contains(uerr.Err.Error(), "tls:") || strings.Contains(uerr.Err.Error(), "x509:") {
			return &TransportError{Kind: "ssl", Hint: "check the client certificate, key, and the bank's CA chain", Err: err}
		}
	}
	return &TransportError{Kind: "connection", Hint: "check network connectivity to the bank gateway", Err: err}
}
