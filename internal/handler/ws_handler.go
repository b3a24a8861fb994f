package handler

import (
	"context"
	"log"
	"net/http"

	"prochain-bridge/internal/offline"
	"prochain-bridge/internal/websocket"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

// WebSocketHandler upgrades UI views to the status push channel. The route
// sits behind the bridge token middleware.
type WebSocketHandler struct {
	manager        *websocket.Manager
	maxMessageSize int64
	upgrader       ws.Upgrader
}

func NewWebSocketHandler(manager *websocket.Manager, readBuffer, writeBuffer int, maxMessageSize int64) *WebSocketHandler {
	return &WebSocketHandler{
		manager:        manager,
		maxMessageSize: maxMessageSize,
		upgrader: ws.Upgrader{
			ReadBufferSize:  readBuffer,
			WriteBufferSize: writeBuffer,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	view := r.URL.Query().Get("view")
	if view == "" {
		view = "default"
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WebSocket] Failed to upgrade connection: %v", err)
		return
	}

	client := websocket.NewClient(uuid.New().String(), view, conn, h.manager)
	h.manager.Register <- client
	log.Printf("[WebSocket] view %s connected as %s", view, client.ID)

	go client.WritePump()
	go client.ReadPump(h.maxMessageSize)
}

// WebSocketMessageHandler answers view requests over the push channel.
type WebSocketMessageHandler struct {
	store   *offline.Store
	retrier Retrier
	manager *websocket.Manager
}

func NewWebSocketMessageHandler(store *offline.Store, retrier Retrier, manager *websocket.Manager) *WebSocketMessageHandler {
	return &WebSocketMessageHandler{
		store:   store,
		retrier: retrierFor(store, retrier),
		manager: manager,
	}
}

func (h *WebSocketMessageHandler) HandleWebSocketMessage(ctx context.Context, client *websocket.Client, msg *websocket.Message) error {
	switch msg.Type {
	case websocket.TypeStatusRequest:
		return h.sendStatus(client)

	case websocket.TypeRetryRequest:
		// the drain runs off the hub loop; its state changes reach every
		// view through the store subscription
		go h.retrier.Retry(context.WithoutCancel(ctx))
		return h.ack(client, msg)

	case websocket.TypePing:
		pong, err := websocket.NewMessage(websocket.TypePong, nil)
		if err != nil {
			return err
		}
		return h.manager.SendToClient(client.ID, pong)

	default:
		log.Printf("[WebSocket] unknown message type: %s", msg.Type)
	}

	return nil
}

func (h *WebSocketMessageHandler) sendStatus(client *websocket.Client) error {
	status, err := websocket.NewMessage(websocket.TypeSyncStatus, websocket.SyncStatusPayload{State: h.store.State()})
	if err != nil {
		return err
	}
	return h.manager.SendToClient(client.ID, status)
}

func (h *WebSocketMessageHandler) ack(client *websocket.Client, msg *websocket.Message) error {
	ack, err := websocket.NewMessage(websocket.TypeAck, websocket.AckPayload{
		MessageID: msg.ID,
		Success:   true,
	})
	if err != nil {
		return err
	}
	return h.manager.SendToClient(client.ID, ack)
}
