package handlers

import (
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"moltbot/internal/models"
	"moltbot/internal/services"
)

const (
	wsPingInterval = 30 * time.Second
	wsReadTimeout  = 90 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// NotificationHandler pushes reminder and digest notifications over websocket
type NotificationHandler struct {
	listeners *services.ConnectionManager
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(listeners *services.ConnectionManager) *NotificationHandler {
	return &NotificationHandler{listeners: listeners}
}

// serverMessage is what listeners receive
type serverMessage struct {
	Type         string               `json:"type"`
	Content      string               `json:"content,omitempty"`
	Notification *models.Notification `json:"notification,omitempty"`
}

// Handle serves one websocket listener until it disconnects
// GET /ws/notifications
func (h *NotificationHandler) Handle(c *websocket.Conn) {
	connID := uuid.New().String()
	notifications := h.listeners.Add(connID)

	done := make(chan struct{})
	var writeMu sync.Mutex

	defer func() {
		h.listeners.Remove(connID)
		c.Close()
	}()

	write := func(msg serverMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return c.WriteJSON(msg)
	}

	c.SetReadDeadline(time.Now().Add(wsReadTimeout))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	// Listeners only receive; the read loop exists to notice disconnects
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := write(serverMessage{Type: "connected", Content: "Listening for reminders and digests."}); err != nil {
		log.Printf("⚠️ Failed to greet listener %s: %v", connID, err)
		return
	}

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case n, ok := <-notifications:
			if !ok {
				return
			}
			if err := write(serverMessage{Type: n.Type, Notification: &n}); err != nil {
				log.Printf("⚠️ Failed to push %s to %s: %v", n.Type, connID, err)
				return
			}
		case <-ticker.C:
			writeMu.Lock()
			err := c.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(wsWriteTimeout))
			writeMu.Unlock()
			if err != nil {
				log.Printf("⚠️ Ping failed for %s: %v", connID, err)
				return
			}
		}
	}
}
