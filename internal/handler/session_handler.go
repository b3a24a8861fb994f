package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"prochain-bridge/internal/domain"
	"prochain-bridge/internal/session"
	"prochain-bridge/internal/storage"
	"prochain-bridge/pkg/jwt"
	"prochain-bridge/pkg/response"

	"github.com/go-playground/validator/v10"
)

// SessionHandler receives the backend session token from the UI after sign
// in. Queued writes replay as whoever is signed in at replay time.
type SessionHandler struct {
	sessions *session.Store
	validate *validator.Validate
}

func NewSessionHandler(sessions *session.Store) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		validate: validator.New(),
	}
}

func (h *SessionHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req domain.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.sessions.SetToken(r.Context(), req.Token); err != nil {
		if errors.Is(err, jwt.ErrInvalidToken) || errors.Is(err, jwt.ErrNoSubject) || errors.Is(err, storage.ErrInvalidInput) {
			response.BadRequest(w, err.Error())
			return
		}
		writeError(w, err)
		return
	}

	userID, err := h.sessions.UserID(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, map[string]string{"user_id": userID})
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	response.NoContent(w)
}
