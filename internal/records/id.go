// Package records holds helpers shared by every relay record kind.
package records

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	pkgerrors "github.com/angelmondragon/posrelay/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// MaxIDLength bounds every record identifier.
const MaxIDLength = 128

// KeySeparator joins store key parts. Identifiers may not contain it.
const KeySeparator = ":"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("keysafe", func(fl validator.FieldLevel) bool {
		id := fl.Field().String()
		return strings.IndexFunc(id, unicode.IsControl) < 0 && !strings.Contains(id, KeySeparator)
	})
	return v
}

// Object decodes a JSON object into its raw fields.
func Object(body []byte) (map[string]json.RawMessage, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil || doc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payload must be a JSON object")
	}
	return doc, nil
}

// ExtractID returns the first non-empty identifier found under fields.
// String and integer values are accepted.
func ExtractID(doc map[string]json.RawMessage, fields ...string) (string, error) {
	for _, field := range fields {
		raw, ok := doc[field]
		if !ok {
			continue
		}
		id, err := scalar(raw)
		if err != nil {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid record id").
				WithDetails(map[string]any{field: err.Error()})
		}
		if id == "" {
			continue
		}
		if err := ValidateID(id); err != nil {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid record id").
				WithDetails(map[string]any{field: err.Error()})
		}
		return id, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, "record id is required").
		WithDetails(map[string]any{"fields": fields})
}

// ValidateID checks an identifier taken from a URL or payload. Ids become
// store key parts, so control characters and the key separator are refused.
func ValidateID(id string) error {
	if err := validate.Var(id, fmt.Sprintf("required,max=%d,keysafe", MaxIDLength)); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return fmt.Errorf("failed %s", errs[0].Tag())
		}
		return err
	}
	return nil
}

func scalar(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", fmt.Errorf("must be a string or integer")
		}
		if _, err := n.Int64(); err != nil {
			return "", fmt.Errorf("must be a string or integer")
		}
		return n.String(), nil
	}
}
