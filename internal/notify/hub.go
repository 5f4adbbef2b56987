// Package notify fans status-change events out to connected dashboards.
package notify

import (
	"sync"

	"farmfi-backend/internal/metrics"
	"farmfi-backend/internal/models"

	"go.uber.org/zap"
)

const subscriberBuffer = 16

// Subscription receives the events its owner may see. C is closed when the
// subscription is removed or the hub shuts down.
type Subscription struct {
	Identity models.Identity
	C        chan models.StatusEvent
}

// allows reports whether the subscriber may see ev. Staff see everything,
// farmers only their own records.
func (s *Subscription) allows(ev models.StatusEvent) bool {
	if s.Identity.IsStaff() {
		return true
	}
	return s.Identity.IsFarmer() && ev.FarmerID == s.Identity.ID
}

type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
	log    *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		subs: make(map[*Subscription]struct{}),
		log:  log.Named("notify"),
	}
}

// Subscribe registers a new listener. It returns nil once the hub is closed.
func (h *Hub) Subscribe(id models.Identity) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}

	s := &Subscription{Identity: id, C: make(chan models.StatusEvent, subscriberBuffer)}
	h.subs[s] = struct{}{}
	metrics.WebsocketClients.Inc()
	return s
}

func (h *Hub) Unsubscribe(s *Subscription) {
	if s == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	close(s.C)
	metrics.WebsocketClients.Dec()
}

// Publish never blocks: a subscriber whose buffer is full misses the event.
func (h *Hub) Publish(ev models.StatusEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs {
		if !s.allows(ev) {
			continue
		}
		select {
		case s.C <- ev:
		default:
			h.log.Warn("dropping event for slow subscriber",
				zap.String("role", s.Identity.Role),
				zap.Int("principal_id", s.Identity.ID),
				zap.String("entity", ev.Entity),
				zap.Int("entity_id", ev.ID))
		}
	}
}

// Count returns the number of live subscriptions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close removes every subscription. Later Subscribe calls return nil.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		delete(h.subs, s)
		close(s.C)
		metrics.WebsocketClients.Dec()
	}
}
