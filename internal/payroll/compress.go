package payroll

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
)

// CompressLines serializes the line list to JSON, gzip-compresses it and
// base64-encodes the result for the PayrollDetails payload field.
func CompressLines(lines []Line) (string, error) {
	if lines == nil {
		lines = []Line{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return "", fmt.Errorf("failed to serialize payroll lines: %w", err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return "", fmt.Errorf("failed to compress payroll lines: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to finish compression: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecompressLines is the inverse of CompressLines. An empty or null detail
// block decodes to an empty list, not an error.
func DecompressLines(blob string) ([]Line, error) {
	if blob == "" {
		return []Line{}, nil
	}
	compressed, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("payroll detail block is not base64: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("payroll detail block is not gzip: %w", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress payroll detail block: %w", err)
	}

	var lines []Line
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, fmt.Errorf("payroll detail block is not a line list: %w", err)
	}
	if lines == nil {
		lines = []Line{}
	}
	return lines, nil
}

// DecodeDetail decodes a compressed detail block from a bank response for
// display. Degrades gracefully: if the blob is not base64+gzip it is
// returned as-is.
func DecodeDetail(blob string) string {
	compressed, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return blob
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return blob
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return blob
	}
	return string(raw)
}
