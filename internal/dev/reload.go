package dev

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ReloadMessageType represents the type of reload message.
type ReloadMessageType string

const (
	// ReloadTypeRebuild reports freshly generated artifacts.
	ReloadTypeRebuild ReloadMessageType = "rebuild"
	// ReloadTypeError reports a failed or skipped rebuild.
	ReloadTypeError ReloadMessageType = "error"
)

// ReloadMessage is sent to clients via WebSocket.
type ReloadMessage struct {
	Type     ReloadMessageType `json:"type"`
	Items    []string          `json:"items,omitempty"`
	Error    string            `json:"error,omitempty"`
	Errors   int               `json:"errors"`
	Warnings int               `json:"warnings"`
}

const writeTimeout = 5 * time.Second

// ReloadServer manages WebSocket connections for rebuild notifications.
type ReloadServer struct {
	clients   map[*websocket.Conn]*sync.Mutex
	mu        sync.RWMutex
	upgrader  websocket.Upgrader
	onClients func(n int)
}

// NewReloadServer creates a new reload server. onClients, when set, is called
// with the client count whenever it changes.
func NewReloadServer(onClients func(n int)) *ReloadServer {
	return &ReloadServer{
		clients: make(map[*websocket.Conn]*sync.Mutex),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		onClients: onClients,
	}
}

// HandleWebSocket upgrades the request and holds the connection until the
// client goes away.
func (r *ReloadServer) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}

	r.mu.Lock()
	r.clients[conn] = &sync.Mutex{}
	n := len(r.clients)
	r.mu.Unlock()
	r.notifyClients(n)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	r.remove(conn)
}

// NotifyRebuild tells clients which items were regenerated.
func (r *ReloadServer) NotifyRebuild(items []string, warnings int) {
	r.broadcast(ReloadMessage{Type: ReloadTypeRebuild, Items: items, Warnings: warnings})
}

// NotifyError tells clients the last rebuild did not produce artifacts.
func (r *ReloadServer) NotifyError(msg string, errs, warnings int) {
	r.broadcast(ReloadMessage{Type: ReloadTypeError, Error: msg, Errors: errs, Warnings: warnings})
}

func (r *ReloadServer) broadcast(msg ReloadMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	r.mu.RLock()
	type client struct {
		conn *websocket.Conn
		mu   *sync.Mutex
	}
	clients := make([]client, 0, len(r.clients))
	for conn, mu := range r.clients {
		clients = append(clients, client{conn, mu})
	}
	r.mu.RUnlock()

	for _, c := range clients {
		c.mu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		err := c.conn.WriteMessage(websocket.TextMessage, data)
		c.mu.Unlock()
		if err != nil {
			r.remove(c.conn)
		}
	}
}

func (r *ReloadServer) remove(conn *websocket.Conn) {
	r.mu.Lock()
	_, ok := r.clients[conn]
	delete(r.clients, conn)
	n := len(r.clients)
	r.mu.Unlock()

	if ok {
		conn.Close()
		r.notifyClients(n)
	}
}

func (r *ReloadServer) notifyClients(n int) {
	if r.onClients != nil {
		r.onClients(n)
	}
}

// ClientCount returns the number of connected clients.
func (r *ReloadServer) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Close closes all client connections.
func (r *ReloadServer) Close() {
	r.mu.Lock()
	for conn := range r.clients {
		conn.Close()
		delete(r.clients, conn)
	}
	r.mu.Unlock()
	r.notifyClients(0)
}
