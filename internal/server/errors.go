package server

import (
	"net/http"

	"github.com/aegishub/hub/internal/herr"
)

// statusFor implements spec.md §6's normative HTTP status mapping. This is
// the one place herr.Kind gets translated to a transport status code.
func statusFor(kind herr.Kind) int {
	switch kind {
	case herr.NotFound:
		return http.StatusNotFound
	case herr.Validation:
		return http.StatusBadRequest
	case herr.Conflict:
		return http.StatusConflict
	case herr.Unauthorized:
		return http.StatusUnauthorized
	case herr.CapacityRejected:
		return http.StatusServiceUnavailable
	case herr.PeerFailure, herr.Internal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err's herr.Kind to a status code and writes a JSON error
// body. Non-herr errors (which should not occur past the service layer)
// are treated as Internal.
func writeError(w http.ResponseWriter, err error) {
	kind := herr.KindOf(err)
	writeJSON(w, statusFor(kind), map[string]any{
		"error": err.Error(),
		"kind":  string(kind),
	})
}
