// Package canonical produces the deterministic byte forms that get hashed:
// sorted-key compact JSON and lowercase hex SHA-256.
package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// JSON serializes v as compact JSON with object keys sorted.
// Values are normalized through a decode round trip first, so a struct and the
// map it decodes into produce the same bytes.
func JSON(v any) ([]byte, error) {
	normalized, err := Normalize(v)
	if err != nil {
		return nil, err
	}
	return encode(normalized)
}

// Normalize converts v into plain JSON values (map[string]any, []any,
// json.Number, string, bool, nil). Numbers keep their literal text.
func Normalize(v any) (any, error) {
	raw, err := encode(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	return out, nil
}

// SHA256Hex returns the lowercase hex SHA-256 of the UTF-8 bytes of s.
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// encode marshals without HTML escaping and without the trailing newline
// json.Encoder appends. encoding/json already sorts map keys.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
