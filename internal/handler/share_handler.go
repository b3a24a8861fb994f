package handler

import (
	"encoding/json"
	"net/http"

	"prochain-bridge/internal/domain"
	"prochain-bridge/internal/service"
	"prochain-bridge/pkg/response"

	"github.com/gorilla/mux"
)

type ShareHandler struct {
	service *service.ShareService
}

func NewShareHandler(service *service.ShareService) *ShareHandler {
	return &ShareHandler{service: service}
}

func (h *ShareHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req domain.SendShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	share, err := h.service.Send(r.Context(), &req)
	respond(w, http.StatusCreated, share, err)
}

func (h *ShareHandler) Received(w http.ResponseWriter, r *http.Request) {
	shares, err := h.service.Received(r.Context())
	if err == nil && shares == nil {
		shares = []*domain.Share{}
	}
	respond(w, http.StatusOK, shares, err)
}

func (h *ShareHandler) Respond(w http.ResponseWriter, r *http.Request) {
	var req domain.RespondShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	result, err := h.service.Respond(r.Context(), mux.Vars(r)["id"], &req)
	respond(w, http.StatusOK, result, err)
}
