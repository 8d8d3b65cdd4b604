// Package shared holds response helpers used by every handler package.
package shared

import (
	"encoding/json"
	"net/http"

	"github.com/mandalnilabja/pollinate/internal/types"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteJSONError writes an error envelope whose type follows the status:
// 4xx is an invalid request, 502 an upstream failure, anything else a
// server error.
func WriteJSONError(w http.ResponseWriter, message string, status int) {
	errType := types.ErrorTypeServer
	switch {
	case status == http.StatusNotFound:
		errType = types.ErrorTypeNotFound
	case status == http.StatusBadGateway:
		errType = types.ErrorTypeUpstream
	case status >= 400 && status < 500:
		errType = types.ErrorTypeInvalidRequest
	}
	types.WriteError(w, status, types.NewAPIError(message, errType))
}
