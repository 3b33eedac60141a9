// Package progress is the in-process progress channel: a registry mapping
// session ids to live subscriptions. Publishing never blocks and never fails;
// events for sessions nobody listens to are dropped, and nothing is replayed.
package progress

import (
	"log/slog"
	"sync"

	"foldervault/internal/domain/models"
	"foldervault/internal/metrics"
)

// DefaultBuffer is the per-subscription queue length.
const DefaultBuffer = 64

// Hub routes progress events to subscriptions by session id
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	logger *slog.Logger
}

// NewHub creates an empty hub. buffer <= 0 selects DefaultBuffer.
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Subscription receives the events published for one session
type Subscription struct {
	hub       *Hub
	sessionID string
	events    chan models.ProgressEvent
	once      sync.Once
}

// Events returns the delivery channel; it is closed by Close
func (s *Subscription) Events() <-chan models.ProgressEvent {
	return s.events
}

// SessionID returns the session this subscription listens on
func (s *Subscription) SessionID() string {
	return s.sessionID
}

// Close deregisters the subscription. Safe to call multiple times.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
	})
}

// Subscribe registers a new subscription for sessionID
func (h *Hub) Subscribe(sessionID string) *Subscription {
	sub := &Subscription{
		hub:       h,
		sessionID: sessionID,
		events:    make(chan models.ProgressEvent, h.buffer),
	}

	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[*Subscription]struct{})
	}
	h.subs[sessionID][sub] = struct{}{}
	h.mu.Unlock()

	metrics.ProgressSubscribers.Inc()
	h.logger.Debug("progress subscriber registered", "session_id", sessionID)

	return sub
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	if subs := h.subs[sub.sessionID]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subs, sub.sessionID)
		}
	}
	// Closed under the write lock so Publish never sends on a closed channel
	close(sub.events)
	h.mu.Unlock()

	metrics.ProgressSubscribers.Dec()
	h.logger.Debug("progress subscriber removed", "session_id", sub.sessionID)
}

// Publish delivers event to every subscription of sessionID without blocking.
// A subscription whose queue is full misses the event.
func (h *Hub) Publish(sessionID string, event models.ProgressEvent) {
	if sessionID == "" {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	subs := h.subs[sessionID]
	if len(subs) == 0 {
		metrics.ProgressEventsTotal.WithLabelValues(metrics.OutcomeDropped).Inc()
		return
	}

	for sub := range subs {
		select {
		case sub.events <- event:
			metrics.ProgressEventsTotal.WithLabelValues(metrics.OutcomeSent).Inc()
		default:
			metrics.ProgressEventsTotal.WithLabelValues(metrics.OutcomeDropped).Inc()
			h.logger.Debug("progress subscriber queue full, event dropped",
				"session_id", sessionID,
				"event", event.Name,
			)
		}
	}
}

// Subscribers returns how many subscriptions listen on sessionID
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}

// CloseAll closes every subscription, ending the streams reading from them
func (h *Hub) CloseAll() {
	h.mu.RLock()
	var all []*Subscription
	for _, subs := range h.subs {
		for sub := range subs {
			all = append(all, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range all {
		sub.Close()
	}
}
