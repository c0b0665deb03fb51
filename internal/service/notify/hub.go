package notify

import (
	"sync"

	"TradeDesk/internal/domain/models"
	domrepo "TradeDesk/internal/domain/repository"
	applogger "TradeDesk/pkg/logger"
)

// Hub keeps a bounded feed of recent notifications and fans new ones out to
// subscribers. Publish never blocks: a subscriber whose buffer is full misses
// the notification.
type Hub struct {
	mu      sync.RWMutex
	feed    []models.Notification
	next    int
	full    bool
	subs    map[int]chan models.Notification
	nextSub int

	log     *applogger.Logger
	metrics domrepo.Metrics
}

var _ domrepo.Notifier = (*Hub)(nil)

const subscriberBuffer = 32

// NewHub creates a hub retaining up to size notifications. metrics may be nil.
func NewHub(size int, log *applogger.Logger, metrics domrepo.Metrics) *Hub {
	if size <= 0 {
		size = 100
	}
	return &Hub{
		feed:    make([]models.Notification, size),
		subs:    make(map[int]chan models.Notification),
		log:     log,
		metrics: metrics,
	}
}

func (h *Hub) Publish(n models.Notification) {
	h.mu.Lock()
	h.feed[h.next] = n
	h.next = (h.next + 1) % len(h.feed)
	if h.next == 0 {
		h.full = true
	}
	dropped := 0
	for _, ch := range h.subs {
		select {
		case ch <- n:
		default:
			dropped++
		}
	}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.RecordNotification(string(n.Level))
	}
	if n.Level == models.LevelError {
		h.log.Warn("notification", applogger.String("op", n.Op), applogger.String("message", n.Message))
	} else {
		h.log.Debug("notification", applogger.String("op", n.Op), applogger.String("message", n.Message))
	}
	if dropped > 0 {
		h.log.Debug("slow notification subscribers skipped", applogger.Int("count", dropped))
	}
}

// Success and Error are shorthands for Publish.
func (h *Hub) Success(op, message string) {
	h.Publish(models.NewNotification(models.LevelSuccess, op, message))
}

func (h *Hub) Error(op, message string) {
	h.Publish(models.NewNotification(models.LevelError, op, message))
}

// Recent returns up to limit notifications, newest first.
func (h *Hub) Recent(limit int) []models.Notification {
	h.mu.RLock()
	defer h.mu.RUnlock()

	size := h.next
	if h.full {
		size = len(h.feed)
	}
	if limit <= 0 || limit > size {
		limit = size
	}
	out := make([]models.Notification, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (h.next - i + len(h.feed)) % len(h.feed)
		out = append(out, h.feed[idx])
	}
	return out
}

// Subscribe registers a listener. The returned cancel func must be called
// to release it; the channel is closed afterwards.
func (h *Hub) Subscribe() (<-chan models.Notification, func()) {
	ch := make(chan models.Notification, subscriberBuffer)

	h.mu.Lock()
	id := h.nextSub
	h.nextSub++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers reports the current listener count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
