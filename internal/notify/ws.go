package notify

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notification is a toast shown to the user of one session.
type Notification struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Variant     Variant `json:"variant"`
}

var ErrNoSession = errors.New("no ws session")

// conn is a websocket connection serialised by its own lock.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) send(n Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(n)
}

// Registry holds the notification sockets of connected sessions. A session
// has at most one socket; a newer one replaces the old.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*conn
}

func NewRegistry() *Registry { return &Registry{conns: make(map[string]*conn)} }

func (r *Registry) Add(sessionID string, ws *websocket.Conn) {
	r.mu.Lock()
	old := r.conns[sessionID]
	r.conns[sessionID] = &conn{ws: ws}
	r.mu.Unlock()
	if old != nil {
		_ = old.ws.Close()
	}
}

// Remove drops ws if it is still the socket registered for sessionID.
func (r *Registry) Remove(sessionID string, ws *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.conns[sessionID]; ok && c.ws == ws {
		delete(r.conns, sessionID)
	}
}

func (r *Registry) Notify(sessionID string, n Notification) error {
	r.mu.RLock()
	c, ok := r.conns[sessionID]
	r.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}
	if err := c.send(n); err != nil {
		r.Remove(sessionID, c.ws)
		return err
	}
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
