package realtime

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

const defaultBacklog = 32

// Hub is the in-process topic registry behind websocket connections.
// Publishing never blocks: a subscriber whose buffer is full misses the frame.
type Hub struct {
	mu      sync.RWMutex
	topics  map[string]map[*Subscription]struct{}
	backlog int
	dropped atomic.Int64
	logger  *zap.Logger
}

// Subscription receives the frames of one topic until closed.
type Subscription struct {
	topic string
	ch    chan Message
	hub   *Hub
	once  sync.Once
}

// NewHub creates a hub whose subscribers buffer up to backlog frames.
func NewHub(backlog int, logger *zap.Logger) *Hub {
	if backlog <= 0 {
		backlog = defaultBacklog
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		topics:  make(map[string]map[*Subscription]struct{}),
		backlog: backlog,
		logger:  logger,
	}
}

// Subscribe registers a new subscriber on topic.
func (h *Hub) Subscribe(topic string) *Subscription {
	sub := &Subscription{topic: topic, ch: make(chan Message, h.backlog), hub: h}
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	return sub
}

// Publish delivers msg to the current subscribers of msg.Topic.
func (h *Hub) Publish(_ context.Context, msg Message) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.topics[msg.Topic] {
		select {
		case sub.ch <- msg:
		default:
			h.dropped.Add(1)
			h.logger.Debug("dropping frame for slow subscriber",
				zap.String("topic", msg.Topic),
				zap.String("event", msg.Event),
			)
		}
	}
	return nil
}

// Subscribers returns the number of live subscribers on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Dropped returns how many frames were skipped because a subscriber lagged.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.topics[sub.topic]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.topics, sub.topic)
		}
	}
	close(sub.ch)
}

// C returns the channel frames arrive on. It is closed by Close.
func (s *Subscription) C() <-chan Message {
	return s.ch
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() string {
	return s.topic
}

// Close unregisters the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}
