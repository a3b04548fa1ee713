package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"dramarelay/services/party"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The gateway fronts a public demo UI; origin checks stay open like
		// the CORS layer.
		return true
	},
}

type PartyHandler struct {
	Coordinator *party.Coordinator
}

func NewPartyHandler(c *party.Coordinator) *PartyHandler {
	return &PartyHandler{Coordinator: c}
}

// WebSocket upgrades the connection and hands it to the coordinator for the
// rest of its lifetime.
func (h *PartyHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[party] upgrade failed: %v", err)
		return
	}
	h.Coordinator.Serve(conn)
}
