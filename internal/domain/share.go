package domain

import "time"

type ShareStatus string

const (
	ShareStatusPending  ShareStatus = "pending"
	ShareStatusAccepted ShareStatus = "accepted"
	ShareStatusRejected ShareStatus = "rejected"
)

type Share struct {
	ID          string      `json:"id"`
	ChainID     string      `json:"chain_id"`
	ChainName   string      `json:"chain_name"`
	SenderID    string      `json:"sender_id"`
	RecipientID string      `json:"recipient_id"`
	Status      ShareStatus `json:"status"`
	SentAt      time.Time   `json:"sent_at"`
	RespondedAt *time.Time  `json:"responded_at,omitempty"`
}

type SendShareRequest struct {
	ChainID     string `json:"chain_id" validate:"required"`
	RecipientID string `json:"recipient_id" validate:"required"`
}

type RespondShareRequest struct {
	Action string `json:"action" validate:"required,oneof=accept reject"`
}

// ShareResponse carries the shared chain when a share was accepted.
type ShareResponse struct {
	Share *Share `json:"share"`
	Chain *Chain `json:"chain,omitempty"`
}

// ReceivedSharesUpdate is pushed to the views when the pending received
// shares change.
type ReceivedSharesUpdate struct {
	Pending int      `json:"pending"`
	New     []*Share `json:"new,omitempty"`
}
