// Package jsonutil holds JSON helpers shared by the sweep phases.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CanonicalMarshal encodes v deterministically: compact, object keys sorted,
// array order kept and numbers written exactly as decoded. Audit hashes are
// computed over this form.
func CanonicalMarshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical marshal: %w", err)
	}
	return Canonicalize(raw)
}

// Canonicalize rewrites encoded JSON into canonical form.
func Canonicalize(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonical unmarshal: %w", err)
	}

	// encoding/json sorts map keys; generic holds only maps, slices,
	// json.Number and scalars.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return nil, fmt.Errorf("canonical encode: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
