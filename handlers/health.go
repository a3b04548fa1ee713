package handlers

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string  `json:"status"`
	Uptime    float64 `json:"uptime"`
	Timestamp string  `json:"timestamp"`
}

type HealthHandler struct {
	start time.Time
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{start: time.Now()}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Uptime:    time.Since(h.start).Seconds(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
