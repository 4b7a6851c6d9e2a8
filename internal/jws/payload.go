package jws

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Payload is the tagged variant of everything the bank pipeline signs:
// a JSON-structured value, plain text, or opaque binary. Each variant
// normalizes itself exactly once; callers must transmit the normalized
// bytes verbatim, because the bank re-derives the signature from the body
// it receives and any re-serialization breaks the comparison.
type Payload interface {
	Normalize() ([]byte, error)
}

// JSONPayload wraps a value serialized as canonical JSON: lexicographically
// sorted keys, no whitespace, numbers kept as their original literals.
type JSONPayload struct {
	Value any
}

func (p JSONPayload) Normalize() ([]byte, error) {
	return canonicalize(p.Value)
}

// TextPayload is UTF-8 text. Text that parses as a JSON object or array is
// re-serialized canonically so that logically equal inputs sign identically;
// anything else is signed verbatim.
type TextPayload string

func (p TextPayload) Normalize() ([]byte, error) {
	trimmed := bytes.TrimSpace([]byte(p))
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		var value any
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&value); err == nil && !dec.More() {
			switch value.(type) {
			case map[string]any, []any:
				return canonicalize(value)
			}
		}
	}
	return []byte(p), nil
}

// BinaryPayload is raw bytes. Valid UTF-8 falls through to the text rules;
// anything else is signed as-is.
type BinaryPayload []byte

func (p BinaryPayload) Normalize() ([]byte, error) {
	if utf8.Valid(p) {
		return TextPayload(p).Normalize()
	}
	return []byte(p), nil
}

// canonicalize produces the canonical JSON form of v. Marshalling through an
// intermediate map guarantees sorted keys even for struct inputs, and
// json.Number preserves numeric literals byte for byte.
func canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("payload is not JSON-serializable: %w", err)
	}

	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("payload re-decode failed: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return nil, fmt.Errorf("payload canonical encode failed: %w", err)
	}
	// Encoder appends a newline; the signed bytes must not include it.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
