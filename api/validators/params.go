package validators

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/posrelay/internal/records"
	pkgerrors "github.com/angelmondragon/posrelay/pkg/errors"
	"github.com/go-chi/chi/v5"
)

// PathID returns the named URL parameter after validating it as a record id.
func PathID(r *http.Request, name string) (string, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if err := records.ValidateID(raw); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid path parameter").
			WithDetails(map[string]any{"field": name, "error": err.Error()})
	}
	return raw, nil
}
