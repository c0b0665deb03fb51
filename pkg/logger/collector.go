package logger

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Publisher ships a digest batch to a topic.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type CollectionConfig struct {
	Interval  time.Duration // flush interval
	Threshold int           // distinct entries that force an early flush
	Topic     string
	Publisher Publisher
	// OnError is told about failed flushes. It must not log through a
	// collected logger.
	OnError func(error)
}

// DigestEntry is one distinct warn/error line and how often it repeated
// within a flush window.
type DigestEntry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// LogCollector folds repeated warn/error entries into counted digests and
// ships them periodically. Publishing happens off the logging goroutine.
type LogCollector struct {
	cfg     CollectionConfig
	mu      sync.Mutex
	entries map[string]*DigestEntry
	cancel  context.CancelFunc
	loop    sync.WaitGroup
	sends   sync.WaitGroup
	now     func() time.Time
}

func NewLogCollector(cfg CollectionConfig) *LogCollector {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 100
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &LogCollector{
		cfg:     cfg,
		entries: make(map[string]*DigestEntry),
		cancel:  cancel,
		now:     time.Now,
	}
	c.loop.Add(1)
	go c.run(ctx)
	return c
}

// Add records one entry.
func (c *LogCollector) Add(level, message string, fields map[string]interface{}) {
	now := c.now()
	key := digestKey(level, message, fields)

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.Count++
		e.LastSeen = now
	} else {
		c.entries[key] = &DigestEntry{Level: level, Message: message, Fields: fields, Count: 1, FirstSeen: now, LastSeen: now}
	}
	if len(c.entries) >= c.cfg.Threshold {
		c.flushLocked()
	}
}

// Close stops the flush loop, ships what is left and waits for in-flight sends.
func (c *LogCollector) Close() {
	c.cancel()
	c.loop.Wait()
	c.sends.Wait()
}

func (c *LogCollector) run(ctx context.Context) {
	defer c.loop.Done()
	t := time.NewTicker(c.cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			c.mu.Lock()
			c.flushLocked()
			c.mu.Unlock()
		case <-ctx.Done():
			c.mu.Lock()
			c.flushLocked()
			c.mu.Unlock()
			return
		}
	}
}

func (c *LogCollector) flushLocked() {
	if len(c.entries) == 0 {
		return
	}
	batch := make([]DigestEntry, 0, len(c.entries))
	for _, e := range c.entries {
		batch = append(batch, *e)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].FirstSeen.Before(batch[j].FirstSeen) })
	c.entries = make(map[string]*DigestEntry)

	c.sends.Add(1)
	go func() {
		defer c.sends.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.cfg.Publisher.PublishMessage(ctx, c.cfg.Topic, batch); err != nil && c.cfg.OnError != nil {
			c.cfg.OnError(fmt.Errorf("ship log digest: %w", err))
		}
	}()
}

func digestKey(level, message string, fields map[string]interface{}) string {
	b, _ := json.Marshal(struct {
		L string                 `json:"l"`
		M string                 `json:"m"`
		F map[string]interface{} `json:"f"`
	}{level, message, fields})
	return fmt.Sprintf("%x", sha256.Sum256(b))
}

// digestSink is shared by a logger and all of its children so a collector
// attached after construction reaches every derived logger.
type digestSink struct {
	c atomic.Pointer[LogCollector]
}
