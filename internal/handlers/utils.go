package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/fastship/backend/internal/apperr"
)

// ErrorResponse is the boundary error shape: message, closed code,
// and optional metadata.
type ErrorResponse struct {
	Error *apperr.Error `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// writeError maps any error to the boundary shape. Uncategorized
// errors surface as INTERNAL_SERVER_ERROR without detail.
func writeError(w http.ResponseWriter, err error) {
	appErr := apperr.From(err)
	writeJSON(w, appErr.HTTPStatus(), ErrorResponse{Error: appErr})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error: apperr.New(apperr.CodeUnknown, message),
	})
}
