// Package repair recovers JSON documents whose string values carry unescaped
// quote characters.
//
// The transform is a single left-to-right pass. A quote is structural when the
// byte before it is one of { , : \ or the byte after it is one of } , : and is
// copied unchanged. Every other quote gets a backslash inserted before it.
// Nothing is ever removed. Inputs with adjacent embedded quotes, or with
// quotes next to array brackets or whitespace, are not guaranteed to recover.
package repair

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrUnrepairable is returned when the escaped buffer still is not valid JSON.
var ErrUnrepairable = errors.New("payload could not be repaired")

// Escape returns buf with a backslash inserted before every quote that is not
// structural. It never fails and never shortens the input.
func Escape(buf []byte) []byte {
	out := make([]byte, 0, len(buf)+8)
	for i, b := range buf {
		if b == '"' && !structural(buf, i) {
			out = append(out, '\\')
		}
		out = append(out, b)
	}
	return out
}

// A missing neighbour at either end of the buffer counts as structural.
func structural(buf []byte, i int) bool {
	if i == 0 || i == len(buf)-1 {
		return true
	}
	switch buf[i-1] {
	case '{', ',', ':', '\\':
		return true
	}
	switch buf[i+1] {
	case '}', ',', ':':
		return true
	}
	return false
}

// Repair escapes embedded quotes and returns the result only if it parses.
func Repair(buf []byte) ([]byte, error) {
	fixed := Escape(buf)
	if !json.Valid(fixed) {
		return nil, ErrUnrepairable
	}
	return fixed, nil
}

// Decode unmarshals data into v. When strict parsing fails it retries once on
// the repaired buffer. If that also fails, the original parse error is
// returned unchanged and v must be treated as unset.
func Decode(data []byte, v any) (repaired bool, err error) {
	original := json.Unmarshal(data, v)
	if original == nil {
		return false, nil
	}
	if !isSyntaxError(original) {
		return false, original
	}
	fixed, err := Repair(data)
	if err != nil {
		return false, original
	}
	if err := json.Unmarshal(fixed, v); err != nil {
		return false, original
	}
	return true, nil
}

// Normalize returns data as compact, valid JSON, repairing it if needed.
func Normalize(data []byte) (out []byte, repaired bool, err error) {
	candidate := bytes.TrimSpace(data)
	if !json.Valid(candidate) {
		original := syntaxError(candidate)
		fixed, rerr := Repair(candidate)
		if rerr != nil {
			return nil, false, original
		}
		candidate = fixed
		repaired = true
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, candidate); err != nil {
		return nil, false, err
	}
	return compact.Bytes(), repaired, nil
}

func syntaxError(data []byte) error {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return errors.New("invalid JSON")
}

func isSyntaxError(err error) bool {
	var syntax *json.SyntaxError
	return errors.As(err, &syntax)
}
