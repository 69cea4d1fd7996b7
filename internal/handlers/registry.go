package handlers

import (
	"net/http"

	"github.com/disruptio/cne-pipeline/internal/modelregistry"
)

// RegistryHandler serves the model-registry history endpoint of spec §6.
type RegistryHandler struct {
	Registry *modelregistry.Registry
}

// History handles GET /models/history.
func (h *RegistryHandler) History(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{"items": h.Registry.History()})
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
