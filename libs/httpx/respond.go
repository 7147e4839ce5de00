package httpx

import (
	"encoding/json"
	"net/http"
)

// Error codes shared by every endpoint. The body shape is
// {"error": message, "code": CODE} so clients can branch on the code while
// showing the message verbatim.
const (
	CodeBadRequest              = "BAD_REQUEST"
	CodeNotFound                = "NOT_FOUND"
	CodeParticipantLimitReached = "PARTICIPANT_LIMIT_REACHED"
	CodeInternal                = "INTERNAL_SERVER_ERROR"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, errorBody{Error: message, Code: code})
}

func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, CodeBadRequest, message)
}

func NotFound(w http.ResponseWriter) {
	Error(w, http.StatusNotFound, CodeNotFound, "Resource not found")
}

func Internal(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, CodeInternal, "Database error")
}
