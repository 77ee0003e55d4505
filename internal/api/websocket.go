package api

import (
	"log"
	"net/http"
)

// handleWS admits the socket into the relay. The gate runs before the
// upgrade so an over-limit host gets a plain 429 instead of a slot.
func (h *routerHandlers) handleWS(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)

	if !h.sockets.Enter(ip) {
		log.Printf("⚠️ WebSocket rejected from %s: %d sockets already open", ip, h.sockets.PerIP())
		RecordConnectionRejected("ws_ip_limit")
		writeError(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}
	defer h.sockets.Leave(ip)

	// Blocks until the participant disconnects
	h.relay.HandleWebSocket(w, r)
}
