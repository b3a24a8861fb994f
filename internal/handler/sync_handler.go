package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"prochain-bridge/internal/domain"
	"prochain-bridge/internal/offline"
	"prochain-bridge/pkg/response"

	"github.com/go-playground/validator/v10"
)

// Retrier runs a manual retry. *connectivity.Monitor pings the backend
// before draining.
type Retrier interface {
	Retry(ctx context.Context)
}

// storeRetrier treats a manual retry as a connectivity signal when no
// monitor is wired.
type storeRetrier struct {
	store *offline.Store
}

func (r storeRetrier) Retry(ctx context.Context) {
	r.store.SetOnline(true)
	r.store.Flush(ctx)
}

func retrierFor(store *offline.Store, retrier Retrier) Retrier {
	if retrier == nil {
		return storeRetrier{store: store}
	}
	return retrier
}

// SyncHandler exposes the offline store to the UI: status, the pending
// queue, manual retry and the dead letters.
type SyncHandler struct {
	store    *offline.Store
	retrier  Retrier
	validate *validator.Validate
}

func NewSyncHandler(store *offline.Store, retrier Retrier) *SyncHandler {
	return &SyncHandler{
		store:    store,
		retrier:  retrierFor(store, retrier),
		validate: validator.New(),
	}
}

func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.store.State())
}

func (h *SyncHandler) Queue(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.store.Queue())
}

// Retry re-checks the backend, drains the queue once and reports the
// resulting state. The drain is not tied to the request so a closed UI does
// not abort it halfway.
func (h *SyncHandler) Retry(w http.ResponseWriter, r *http.Request) {
	h.retrier.Retry(context.WithoutCancel(r.Context()))
	response.Success(w, h.store.State())
}

// SetOnline applies a platform connectivity signal. Going online also
// drains the queue.
func (h *SyncHandler) SetOnline(w http.ResponseWriter, r *http.Request) {
	var req domain.SetOnlineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	h.store.SetOnline(*req.Online)
	if *req.Online {
		h.store.Flush(context.WithoutCancel(r.Context()))
	}
	response.Success(w, h.store.State())
}

func (h *SyncHandler) DeadLetters(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.store.DeadLetters())
}

func (h *SyncHandler) ClearDeadLetters(w http.ResponseWriter, r *http.Request) {
	h.store.ClearDeadLetters()
	response.Success(w, h.store.State())
}
