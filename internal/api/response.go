package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// apiError is the JSON error envelope.
type apiError struct {
	Error string `json:"error"`
}

func errorResponse(msg string) apiError {
	return apiError{Error: msg}
}

// fallbackErrorResponse avoids runtime JSON encoding failures on the error path.
var fallbackErrorResponse = []byte(`{"error":"internal server error"}`)

// writeJSONResponse marshals before writing headers so encoding errors can
// still change the status code.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	jsonData, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal JSON response", "error", err)
		jsonData = fallbackErrorResponse
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, writeErr := w.Write(jsonData); writeErr != nil {
		slog.Error("Server.writeJSONResponse: failed to write JSON response", "error", writeErr)
	}
}
