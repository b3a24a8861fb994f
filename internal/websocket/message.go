package websocket

import (
	"encoding/json"
	"time"

	"prochain-bridge/internal/offline"
)

type MessageType string

const (
	// server to client
	TypeSyncStatus     MessageType = "sync_status"
	TypeSharesReceived MessageType = "shares_received"
	TypeAck            MessageType = "ack"
	TypePong           MessageType = "pong"

	// client to server
	TypeStatusRequest MessageType = "status_request"
	TypeRetryRequest  MessageType = "retry_request"
	TypePing          MessageType = "ping"
)

type Message struct {
	ID        string          `json:"id,omitempty"`
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type SyncStatusPayload struct {
	offline.State
}

type AckPayload struct {
	MessageID string `json:"message_id"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
	}, nil
}

func (m *Message) UnmarshalPayload(v interface{}) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
