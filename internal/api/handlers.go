package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// SlotsResponse is the /api/slots body
type SlotsResponse struct {
	Occupancy string          `json:"occupancy"`
	Slots     map[string]bool `json:"slots"`
}

func (h *routerHandlers) handleGetSlots(w http.ResponseWriter, r *http.Request) {
	slots := h.relay.Slots()
	one, two := slots.Occupied()

	writeJSON(w, SlotsResponse{
		Occupancy: slots.Occupancy().String(),
		Slots: map[string]bool{
			"1": one,
			"2": two,
		},
	})
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"occupancy": h.relay.Slots().Occupancy().String(),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"requests":  h.requests.Stats(),
		"sockets":   h.sockets.Stats(),
	})
}

func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
