package services

import (
	"log"
	"sync"

	"moltbot/internal/models"
)

// listenerBuffer is how many notifications a slow listener may lag behind before drops
const listenerBuffer = 16

// ConnectionManager tracks live notification listeners (websocket clients)
type ConnectionManager struct {
	listeners map[string]chan models.Notification
	mutex     sync.RWMutex
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		listeners: make(map[string]chan models.Notification),
	}
}

// Add registers a listener and returns the channel it should drain
func (cm *ConnectionManager) Add(connID string) <-chan models.Notification {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	ch := make(chan models.Notification, listenerBuffer)
	cm.listeners[connID] = ch
	log.Printf("✅ Listener added: %s (Total: %d)", connID, len(cm.listeners))
	return ch
}

// Remove unregisters a listener and closes its channel
func (cm *ConnectionManager) Remove(connID string) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	if ch, exists := cm.listeners[connID]; exists {
		close(ch)
		delete(cm.listeners, connID)
		log.Printf("❌ Listener removed: %s (Total: %d)", connID, len(cm.listeners))
	}
}

// Count returns the number of active listeners
func (cm *ConnectionManager) Count() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.listeners)
}

// Broadcast hands n to every listener without blocking; a full listener misses it
func (cm *ConnectionManager) Broadcast(n models.Notification) int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	delivered := 0
	for id, ch := range cm.listeners {
		select {
		case ch <- n:
			delivered++
		default:
			log.Printf("⚠️ Listener %s is behind, dropped %s notification", id, n.Type)
		}
	}
	return delivered
}
