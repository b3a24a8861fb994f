package domain

// QueuedResponse answers a write that was accepted locally but not yet
// delivered to the backend. Result carries the optimistic value, if any.
type QueuedResponse struct {
	Queued  bool        `json:"queued"`
	WriteID string      `json:"write_id"`
	Action  string      `json:"action"`
	Result  interface{} `json:"result,omitempty"`
}

type SetOnlineRequest struct {
	Online *bool `json:"online" validate:"required"`
}

type SessionRequest struct {
	Token string `json:"token" validate:"required"`
}
