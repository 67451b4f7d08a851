package validators

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/angelmondragon/posrelay/internal/repair"
	pkgerrors "github.com/angelmondragon/posrelay/pkg/errors"
	"github.com/tidwall/jsonc"
)

// RepairObserver records the outcome of every repair attempt.
type RepairObserver interface {
	ObserveRepair(recovered bool)
}

// ReadJSON reads the request body and returns it as compact JSON. Bodies that
// fail strict parsing go through the quote repair; if that also fails the
// original parse error is returned as a malformed payload.
func ReadJSON(r *http.Request, observer RepairObserver) ([]byte, error) {
	body, err := readAll(r)
	if err != nil {
		return nil, err
	}
	return normalize(body, observer)
}

// ReadJSONC is ReadJSON for hand-edited documents. The raw body is parsed
// and repaired first; comments and trailing commas are stripped only when
// both fail. Errors always describe the raw body.
func ReadJSONC(r *http.Request, observer RepairObserver) ([]byte, error) {
	body, err := readAll(r)
	if err != nil {
		return nil, err
	}
	out, repaired, rawErr := repair.Normalize(body)
	if rawErr == nil {
		if repaired && observer != nil {
			observer.ObserveRepair(true)
		}
		return out, nil
	}
	if stripped := jsonc.ToJSON(body); json.Valid(stripped) {
		if out, _, err := repair.Normalize(stripped); err == nil {
			return out, nil
		}
	}
	return nil, malformed(rawErr, observer)
}

func readAll(r *http.Request) ([]byte, error) {
	defer func() {
		io.Copy(io.Discard, r.Body)
	}()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request body too large").
				WithDetails(map[string]any{"limit_bytes": tooLarge.Limit})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unable to read request body")
	}
	return body, nil
}

func normalize(body []byte, observer RepairObserver) ([]byte, error) {
	out, repaired, err := repair.Normalize(body)
	if err != nil {
		return nil, malformed(err, observer)
	}
	if repaired && observer != nil {
		observer.ObserveRepair(true)
	}
	return out, nil
}

func malformed(err error, observer RepairObserver) error {
	if observer != nil {
		observer.ObserveRepair(false)
	}
	return pkgerrors.Wrap(pkgerrors.CodeMalformedPayload, err, "malformed JSON payload").
		WithDetails(map[string]any{"error": err.Error()})
}
