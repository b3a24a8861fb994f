package handler

import (
	"encoding/json"
	"net/http"

	"prochain-bridge/internal/domain"
	"prochain-bridge/internal/service"
	"prochain-bridge/pkg/response"
)

type PluginHandler struct {
	service *service.PluginService
}

func NewPluginHandler(service *service.PluginService) *PluginHandler {
	return &PluginHandler{service: service}
}

// Sync replaces the user's scanned plugin list.
func (h *PluginHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req domain.SyncPluginsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	list, err := h.service.Sync(r.Context(), &req)
	respond(w, http.StatusOK, list, err)
}

func (h *PluginHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err == nil && list == nil {
		response.NotFound(w, "Plugin list not available offline")
		return
	}
	respond(w, http.StatusOK, list, err)
}
