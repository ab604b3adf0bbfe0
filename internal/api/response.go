package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/BTreeMap/PayFlow/internal/models"
)

// RetryAfterSeconds is advertised when no gateway is reachable.
const RetryAfterSeconds = 30

// internalErrorBody is written when a response cannot be encoded.
var internalErrorBody = mustMarshal(models.Error("Internal server error"))

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic("api: cannot encode static response: " + err.Error())
	}
	return b
}

// errorStatus maps a session error onto the HTTP status a host sees.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidFlowKind):
		return http.StatusNotFound
	case errors.Is(err, models.ErrNetworkUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrInvalidConfiguration):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrSessionAlreadyStarted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeErrorResponse writes the error envelope for err, carrying result when
// it is non-nil. Unavailable responses tell the host when to try again.
func writeErrorResponse(w http.ResponseWriter, err error, result any) int {
	status := errorStatus(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds))
	}
	if result == nil {
		writeJSONResponse(w, status, models.Error(err.Error()))
	} else {
		writeJSONResponse(w, status, models.ErrorWithResult(err.Error(), result))
	}
	return status
}

// writeJSONResponse encodes response before touching the headers so an
// encoding failure still yields a well-formed 500.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response any) {
	body, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: encode failed", "status", statusCode, "error", err)
		body, statusCode = internalErrorBody, http.StatusInternalServerError
	}

	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		slog.Warn("Server.writeJSONResponse: write failed", "status", statusCode, "error", err)
	}
}
