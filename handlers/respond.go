package handlers

import (
	"encoding/json"
	"net/http"
)

// Every HTTP response uses the {status, data?, message?} envelope the
// frontend expects. Extra top-level fields (source, totalEpisodes,
// retryAfterSeconds) ride alongside via the dedicated response structs.

type envelope struct {
	Status  bool   `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Status: true, Data: data})
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, envelope{Status: false, Message: message})
}
