// Package notify delivers transient, non-blocking notifications (the toast
// analog): mutation failures surface here instead of as blocking errors.
package notify

import (
	"log"
	"sync"
	"time"
)

// Level classifies a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is one transient message for the user.
type Notification struct {
	Level   Level
	Message string
	Time    time.Time
}

// Subscriber receives notifications from a Hub.
type Subscriber struct {
	ch chan Notification
}

// C returns the channel notifications arrive on.
func (s *Subscriber) C() <-chan Notification {
	return s.ch
}

// Hub fans notifications out to active subscribers. Delivery is best-effort:
// a subscriber that is not draining its channel misses notifications rather
// than blocking a mutation.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
	buffer      int
}

// NewHub creates a Hub with the given per-subscriber channel buffer.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subscribers: make(map[*Subscriber]struct{}),
		buffer:      buffer,
	}
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe() *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscriber{ch: make(chan Notification, h.buffer)}
	h.subscribers[sub] = struct{}{}
	return sub
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subscribers[sub]; !ok {
		return
	}

	delete(h.subscribers, sub)
	close(sub.ch)
}

// Success publishes a success notification.
func (h *Hub) Success(message string) {
	h.publish(Notification{Level: LevelSuccess, Message: message, Time: time.Now()})
}

// Error publishes an error notification.
func (h *Hub) Error(message string) {
	h.publish(Notification{Level: LevelError, Message: message, Time: time.Now()})
}

func (h *Hub) publish(n Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers {
		select {
		case sub.ch <- n:
		default:
			log.Printf("notify: dropping %s notification for slow subscriber", n.Level)
		}
	}
}

// ActiveSubscribers returns the number of registered subscribers.
func (h *Hub) ActiveSubscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers)
}
