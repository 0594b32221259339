// Package respond writes the JSON bodies shared by every handler.
package respond

import (
	"encoding/json"
	"net/http"
	"strings"

	"clubsite/internal/apperr"
	"clubsite/pkg/logger"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Sugar.Errorf("Failed to encode response: %v", err)
	}
}

// Error writes err as {error, code}. Only the public message is sent; the
// full error is logged for anything that is not a client mistake.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		logger.Sugar.Errorf("Handler: %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	JSON(w, status, errorBody{Error: apperr.Public(err), Code: apperr.Code(err)})
}

// BadRequest reports a body that could not be parsed.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, errorBody{Error: msg, Code: apperr.CodeValidation})
}

// MethodNotAllowed answers 405 with an Allow header listing allowed.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	http.Error(w, "Method "+r.Method+" Not Allowed", http.StatusMethodNotAllowed)
}
