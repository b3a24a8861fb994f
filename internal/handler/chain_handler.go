package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"prochain-bridge/internal/domain"
	"prochain-bridge/internal/service"
	"prochain-bridge/pkg/response"

	"github.com/gorilla/mux"
)

type ChainHandler struct {
	service *service.ChainService
}

func NewChainHandler(service *service.ChainService) *ChainHandler {
	return &ChainHandler{service: service}
}

func (h *ChainHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req domain.SaveChainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	chain, err := h.service.Save(r.Context(), &req)
	respond(w, http.StatusCreated, chain, err)
}

func (h *ChainHandler) Get(w http.ResponseWriter, r *http.Request) {
	chainID := mux.Vars(r)["id"]

	chain, err := h.service.Get(r.Context(), chainID)
	if err == nil && chain == nil {
		response.NotFound(w, "Chain not available offline")
		return
	}
	respond(w, http.StatusOK, chain, err)
}

func (h *ChainHandler) Browse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := domain.BrowseQuery{
		Category: q.Get("category"),
		Sort:     domain.BrowseSort(q.Get("sort")),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(w, "limit must be a number")
			return
		}
		query.Limit = limit
	}

	chains, err := h.service.Browse(r.Context(), query)
	if err == nil && chains == nil {
		chains = []*domain.Chain{}
	}
	respond(w, http.StatusOK, chains, err)
}
