package handler

import (
	"encoding/json"
	"net/http"

	"prochain-bridge/internal/domain"
	"prochain-bridge/internal/service"
	"prochain-bridge/pkg/response"

	"github.com/gorilla/mux"
)

type SocialHandler struct {
	service *service.SocialService
}

func NewSocialHandler(service *service.SocialService) *SocialHandler {
	return &SocialHandler{service: service}
}

func (h *SocialHandler) Like(w http.ResponseWriter, r *http.Request) {
	var req domain.LikeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	result, err := h.service.ToggleLike(r.Context(), mux.Vars(r)["id"], req.Liked)
	respond(w, http.StatusOK, result, err)
}

func (h *SocialHandler) Rate(w http.ResponseWriter, r *http.Request) {
	var req domain.RateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	result, err := h.service.Rate(r.Context(), mux.Vars(r)["id"], &req)
	respond(w, http.StatusOK, result, err)
}

func (h *SocialHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req domain.AddCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	comment, err := h.service.AddComment(r.Context(), mux.Vars(r)["id"], &req)
	respond(w, http.StatusCreated, comment, err)
}

func (h *SocialHandler) Comments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.service.Comments(r.Context(), mux.Vars(r)["id"])
	if err == nil && comments == nil {
		comments = []*domain.Comment{}
	}
	respond(w, http.StatusOK, comments, err)
}

func (h *SocialHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteComment(r.Context(), mux.Vars(r)["id"])
	respond(w, http.StatusOK, nil, err)
}

func (h *SocialHandler) Follow(w http.ResponseWriter, r *http.Request) {
	err := h.service.Follow(r.Context(), mux.Vars(r)["id"])
	respond(w, http.StatusOK, nil, err)
}

func (h *SocialHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	err := h.service.Unfollow(r.Context(), mux.Vars(r)["id"])
	respond(w, http.StatusOK, nil, err)
}
