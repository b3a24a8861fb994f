package handler

import (
	"net/http"

	"prochain-bridge/internal/config"
	"prochain-bridge/internal/middleware"
	"prochain-bridge/pkg/response"

	"github.com/gorilla/mux"
)

type Handlers struct {
	Chains    *ChainHandler
	Social    *SocialHandler
	Plugins   *PluginHandler
	Shares    *ShareHandler
	Sync      *SyncHandler
	Session   *SessionHandler
	WebSocket *WebSocketHandler
}

// NewRouter mounts the bridge surface. Everything except /health requires a
// bridge token.
func NewRouter(h Handlers, tokenSecret string, cors config.CORSConfig) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORSMiddleware(
		cors.AllowedOrigins,
		cors.AllowedMethods,
		cors.AllowedHeaders,
	))

	r.HandleFunc("/health", healthHandler).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.AuthMiddleware(tokenSecret))

	api.HandleFunc("/chains", h.Chains.Save).Methods("POST", "OPTIONS")
	api.HandleFunc("/chains", h.Chains.Browse).Methods("GET", "OPTIONS")
	api.HandleFunc("/chains/{id}", h.Chains.Get).Methods("GET", "OPTIONS")

	api.HandleFunc("/chains/{id}/like", h.Social.Like).Methods("POST", "OPTIONS")
	api.HandleFunc("/chains/{id}/rating", h.Social.Rate).Methods("POST", "OPTIONS")
	api.HandleFunc("/chains/{id}/comments", h.Social.Comments).Methods("GET", "OPTIONS")
	api.HandleFunc("/chains/{id}/comments", h.Social.AddComment).Methods("POST", "OPTIONS")
	api.HandleFunc("/comments/{id}", h.Social.DeleteComment).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/users/{id}/follow", h.Social.Follow).Methods("POST", "OPTIONS")
	api.HandleFunc("/users/{id}/follow", h.Social.Unfollow).Methods("DELETE", "OPTIONS")

	api.HandleFunc("/plugins", h.Plugins.Sync).Methods("PUT", "OPTIONS")
	api.HandleFunc("/plugins", h.Plugins.List).Methods("GET", "OPTIONS")

	api.HandleFunc("/shares", h.Shares.Send).Methods("POST", "OPTIONS")
	api.HandleFunc("/shares/received", h.Shares.Received).Methods("GET", "OPTIONS")
	api.HandleFunc("/shares/{id}/respond", h.Shares.Respond).Methods("POST", "OPTIONS")

	api.HandleFunc("/sync/status", h.Sync.Status).Methods("GET", "OPTIONS")
	api.HandleFunc("/sync/queue", h.Sync.Queue).Methods("GET", "OPTIONS")
	api.HandleFunc("/sync/retry", h.Sync.Retry).Methods("POST", "OPTIONS")
	api.HandleFunc("/sync/online", h.Sync.SetOnline).Methods("POST", "OPTIONS")
	api.HandleFunc("/sync/dead-letters", h.Sync.DeadLetters).Methods("GET", "OPTIONS")
	api.HandleFunc("/sync/dead-letters", h.Sync.ClearDeadLetters).Methods("DELETE", "OPTIONS")

	api.HandleFunc("/session", h.Session.Put).Methods("PUT", "OPTIONS")
	api.HandleFunc("/session", h.Session.Delete).Methods("DELETE", "OPTIONS")

	r.Handle("/ws", middleware.AuthMiddleware(tokenSecret)(http.HandlerFunc(h.WebSocket.HandleConnection))).Methods("GET")

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]string{
		"status":  "healthy",
		"service": "prochain-bridge",
	})
}
