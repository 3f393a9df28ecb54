package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/trailerops/yardgate/internal/model"
)

// MaxJSONBody is the maximum size for a JSON request body (2 MiB: submissions
// carry asset references, never bytes).
const MaxJSONBody = 2 << 20

// BindJSON reads the request body (up to MaxJSONBody bytes) and decodes JSON
// into dst with strict decoding: unknown fields and trailing values are
// rejected. The caller translates returned errors into HTTP responses.
func BindJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return fmt.Errorf("request body must not be empty")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("request body must contain only a single JSON object")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody is the uniform failure envelope.
type errorBody struct {
	Error      string            `json:"error"`
	Violations []model.Violation `json:"violations,omitempty"`
}

// writeError maps the error taxonomy onto HTTP status codes: validation 422,
// not-found 404, conflict 409, anything else 500. The caller always sees the
// original failure reason.
func writeError(w http.ResponseWriter, err error) {
	var vErr *model.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:      vErr.Error(),
			Violations: vErr.Violations,
		})
	case errors.Is(err, model.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, model.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}
