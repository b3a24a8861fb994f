package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"prochain-bridge/internal/domain"
	"prochain-bridge/internal/offline"
)

type ClientMessage struct {
	Client  *Client
	Message []byte
}

// Manager tracks the UI views connected to the bridge and pushes sync
// status changes to all of them.
type Manager struct {
	clients        map[string]*Client
	clientsMutex   sync.RWMutex
	Register       chan *Client
	Unregister     chan *Client
	HandleMessage  chan *ClientMessage
	done           chan struct{}
	maxConns       int
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	messageHandler MessageHandler
}

type MessageHandler interface {
	HandleWebSocketMessage(ctx context.Context, client *Client, msg *Message) error
}

func NewManager(maxConns int, writeWait, pongWait, pingPeriod time.Duration) *Manager {
	return &Manager{
		clients:       make(map[string]*Client),
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		HandleMessage: make(chan *ClientMessage),
		done:          make(chan struct{}),
		maxConns:      maxConns,
		writeWait:     writeWait,
		pongWait:      pongWait,
		pingPeriod:    pingPeriod,
	}
}

func (m *Manager) SetMessageHandler(handler MessageHandler) {
	m.messageHandler = handler
}

// Run serves registrations and client messages until ctx is done, then
// closes every connection.
func (m *Manager) Run(ctx context.Context) error {
	defer m.shutdown()
	for {
		select {
		case <-ctx.Done():
			return nil

		case client := <-m.Register:
			m.registerClient(client)

		case client := <-m.Unregister:
			m.unregisterClient(client)

		case clientMsg := <-m.HandleMessage:
			m.processMessage(ctx, clientMsg)
		}
	}
}

func (m *Manager) shutdown() {
	close(m.done)

	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()
	for id, client := range m.clients {
		delete(m.clients, id)
		close(client.Send)
	}
}

func (m *Manager) registerClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if m.maxConns > 0 && len(m.clients) >= m.maxConns {
		log.Printf("[WebSocket] max connections reached, rejecting %s", client.ID)
		close(client.Send)
		return
	}

	m.clients[client.ID] = client
	log.Printf("[WebSocket] client registered: %s (view: %s)", client.ID, client.View)
}

func (m *Manager) unregisterClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if _, ok := m.clients[client.ID]; ok {
		delete(m.clients, client.ID)
		close(client.Send)
		log.Printf("[WebSocket] client unregistered: %s", client.ID)
	}
}

func (m *Manager) processMessage(ctx context.Context, clientMsg *ClientMessage) {
	var msg Message
	if err := json.Unmarshal(clientMsg.Message, &msg); err != nil {
		log.Printf("[WebSocket] error unmarshaling message: %v", err)
		return
	}

	if m.messageHandler != nil {
		if err := m.messageHandler.HandleWebSocketMessage(ctx, clientMsg.Client, &msg); err != nil {
			log.Printf("[WebSocket] error handling %s: %v", msg.Type, err)
		}
	}
}

// Broadcast sends message to every connected view. Views whose send buffer
// is full are disconnected.
func (m *Manager) Broadcast(message *Message) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	var slow []*Client
	m.clientsMutex.RLock()
	for _, client := range m.clients {
		select {
		case client.Send <- messageBytes:
		default:
			slow = append(slow, client)
		}
	}
	m.clientsMutex.RUnlock()

	for _, client := range slow {
		log.Printf("[WebSocket] client %s send buffer full, closing connection", client.ID)
		go m.unregister(client)
	}
	return nil
}

// PublishState pushes a sync status update. It matches the offline store's
// subscriber signature.
func (m *Manager) PublishState(state offline.State) {
	msg, err := NewMessage(TypeSyncStatus, SyncStatusPayload{State: state})
	if err != nil {
		log.Printf("[WebSocket] encode sync status: %v", err)
		return
	}
	if err := m.Broadcast(msg); err != nil {
		log.Printf("[WebSocket] broadcast sync status: %v", err)
	}
}

// PublishShares pushes a received shares update to every view.
func (m *Manager) PublishShares(update domain.ReceivedSharesUpdate) {
	msg, err := NewMessage(TypeSharesReceived, update)
	if err != nil {
		log.Printf("[WebSocket] encode shares update: %v", err)
		return
	}
	if err := m.Broadcast(msg); err != nil {
		log.Printf("[WebSocket] broadcast shares update: %v", err)
	}
}

func (m *Manager) SendToClient(clientID string, message *Message) error {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	client, exists := m.clients[clientID]
	if !exists {
		return nil
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case client.Send <- messageBytes:
	default:
		log.Printf("[WebSocket] client %s send buffer full", clientID)
	}

	return nil
}

func (m *Manager) Connections() int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()
	return len(m.clients)
}

func (m *Manager) unregister(client *Client) {
	select {
	case m.Unregister <- client:
	case <-m.done:
	}
}

func (m *Manager) dispatch(msg *ClientMessage) {
	select {
	case m.HandleMessage <- msg:
	case <-m.done:
	}
}
