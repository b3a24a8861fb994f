package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"prochain-bridge/internal/domain"
	"prochain-bridge/internal/offline"

	"github.com/gorilla/websocket"
)

type echoHandler struct{}

func (echoHandler) HandleWebSocketMessage(ctx context.Context, client *Client, msg *Message) error {
	if msg.Type != TypePing {
		return nil
	}
	pong, err := NewMessage(TypePong, nil)
	if err != nil {
		return err
	}
	return client.Manager.SendToClient(client.ID, pong)
}

func startManager(t *testing.T, maxConns int) (*Manager, string) {
	t.Helper()
	manager := NewManager(maxConns, time.Second, time.Minute, 50*time.Second)
	manager.SetMessageHandler(echoHandler{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		manager.Run(ctx)
		close(done)
	}()

	upgrader := websocket.Upgrader{}
	var seq int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		id := fmt.Sprintf("client-%d", atomic.AddInt32(&seq, 1))
		client := NewClient(id, r.URL.Query().Get("view"), conn, manager)
		manager.Register <- client
		go client.WritePump()
		go client.ReadPump(4096)
	}))

	t.Cleanup(func() {
		cancel()
		<-done
		server.Close()
	})
	return manager, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url+"?view=browse", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForConnections(t *testing.T, m *Manager, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for m.Connections() != want {
		if time.Now().After(deadline) {
			t.Fatalf("connections = %d, want %d", m.Connections(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) *Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return &msg
}

func TestManager_PublishStateReachesEveryView(t *testing.T) {
	manager, url := startManager(t, 5)
	first := dial(t, url)
	second := dial(t, url)
	waitForConnections(t, manager, 2)

	manager.PublishState(offline.State{Online: false, SyncStatus: offline.StatusOffline, PendingWrites: 3})

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		if msg.Type != TypeSyncStatus {
			t.Fatalf("type = %s, want sync_status", msg.Type)
		}
		var payload SyncStatusPayload
		if err := msg.UnmarshalPayload(&payload); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if payload.SyncStatus != offline.StatusOffline || payload.PendingWrites != 3 {
			t.Errorf("payload = %+v", payload.State)
		}
	}
}

func TestManager_HandlesClientMessages(t *testing.T) {
	manager, url := startManager(t, 5)
	conn := dial(t, url)
	waitForConnections(t, manager, 1)

	ping, _ := json.Marshal(Message{Type: TypePing, Timestamp: time.Now()})
	if err := conn.WriteMessage(websocket.TextMessage, ping); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != TypePong {
		t.Errorf("type = %s, want pong", msg.Type)
	}
}

func TestManager_RejectsOverLimit(t *testing.T) {
	manager, url := startManager(t, 1)
	dial(t, url)
	waitForConnections(t, manager, 1)

	extra := dial(t, url)
	extra.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := extra.ReadMessage(); err == nil {
		t.Error("connection over the limit was not closed")
	}
	if got := manager.Connections(); got != 1 {
		t.Errorf("connections = %d, want 1", got)
	}
}

func TestManager_PublishShares(t *testing.T) {
	manager, url := startManager(t, 5)
	conn := dial(t, url)
	waitForConnections(t, manager, 1)

	manager.PublishShares(domain.ReceivedSharesUpdate{
		Pending: 2,
		New:     []*domain.Share{{ID: "share-2", ChainID: "chain-1", SenderID: "user-2"}},
	})

	msg := readMessage(t, conn)
	if msg.Type != TypeSharesReceived {
		t.Fatalf("type = %s, want shares_received", msg.Type)
	}
	var update domain.ReceivedSharesUpdate
	if err := msg.UnmarshalPayload(&update); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if update.Pending != 2 || len(update.New) != 1 || update.New[0].ID != "share-2" {
		t.Errorf("update = %+v", update)
	}
}
