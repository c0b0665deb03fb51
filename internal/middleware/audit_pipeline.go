package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"TradeDesk/internal/domain/models"
	domrepo "TradeDesk/internal/domain/repository"
	applogger "TradeDesk/pkg/logger"
)

var ErrAuditBufferFull = errors.New("audit buffer full")

// AuditPipeline sits between the sync service and the change feed.
// PublishChange only validates and queues; a single background worker
// started by Start delivers queued changes in order, retrying each with
// capped exponential backoff before giving up on it.
type AuditPipeline struct {
	next        domrepo.ChangePublisher
	metrics     domrepo.Metrics
	log         *applogger.Logger
	bufSize     int
	maxAttempts int
	backoff     time.Duration
	maxWait     time.Duration
	bufCh       chan *models.TickerChange

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

var _ domrepo.ChangePublisher = (*AuditPipeline)(nil)

type PipelineOption func(*AuditPipeline)

// WithBufferSize sets how many changes may wait for delivery.
func WithBufferSize(n int) PipelineOption {
	return func(p *AuditPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithBackoff sets the initial and maximum delay between delivery attempts.
func WithBackoff(initial, max time.Duration) PipelineOption {
	return func(p *AuditPipeline) {
		if initial > 0 {
			p.backoff = initial
		}
		if max >= p.backoff {
			p.maxWait = max
		}
	}
}

// WithMaxAttempts bounds delivery attempts per change.
func WithMaxAttempts(n int) PipelineOption {
	return func(p *AuditPipeline) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// NewAuditPipeline creates a pipeline in front of next. metrics may be nil.
// Nothing is delivered until Start is called.
func NewAuditPipeline(next domrepo.ChangePublisher, metrics domrepo.Metrics, log *applogger.Logger, opts ...PipelineOption) *AuditPipeline {
	p := &AuditPipeline{
		next:        next,
		metrics:     metrics,
		log:         log,
		bufSize:     256,
		maxAttempts: 5,
		backoff:     50 * time.Millisecond,
		maxWait:     2 * time.Second,
		doneCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.TickerChange, p.bufSize)
	return p
}

// Start launches the delivery worker. It is a no-op once started or closed.
func (p *AuditPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	ctx, p.cancel = context.WithCancel(ctx)

	go func() {
		defer close(p.doneCh)
		for {
			select {
			case <-ctx.Done():
				return
			case c := <-p.bufCh:
				p.deliver(ctx, c)
			}
		}
	}()
}

// PublishChange validates c and queues it for delivery. It never waits on
// the downstream.
func (p *AuditPipeline) PublishChange(_ context.Context, c *models.TickerChange) error {
	if err := validateChange(c); err != nil {
		p.record("invalid", err)
		return err
	}
	select {
	case p.bufCh <- c:
		p.record("enqueue", nil)
		return nil
	default:
		p.record("enqueue", ErrAuditBufferFull)
		return fmt.Errorf("%w: %s %s", ErrAuditBufferFull, c.Strategy, c.Symbol)
	}
}

// Pending reports how many changes wait for delivery.
func (p *AuditPipeline) Pending() int {
	return len(p.bufCh)
}

// Close stops the worker and closes the downstream. Changes still queued
// are logged and dropped.
func (p *AuditPipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	started := p.started
	p.mu.Unlock()

	if started {
		p.cancel()
		<-p.doneCh
	}
	if n := len(p.bufCh); n > 0 {
		p.log.Warn("dropping undelivered ticker changes", applogger.Int("count", n))
	}
	return p.next.Close()
}

func (p *AuditPipeline) deliver(ctx context.Context, c *models.TickerChange) {
	start := time.Now()
	wait := p.backoff
	for attempt := 1; ; attempt++ {
		err := p.next.PublishChange(ctx, c)
		p.record("deliver", err)
		if err == nil {
			if p.metrics != nil {
				p.metrics.RecordLatency("audit.deliver", time.Since(start).Seconds())
			}
			return
		}
		if attempt >= p.maxAttempts || ctx.Err() != nil {
			p.log.Warn("ticker change not delivered",
				applogger.String("strategy", string(c.Strategy)),
				applogger.String("symbol", c.Symbol),
				applogger.Int("attempts", attempt),
				applogger.Error(err),
			)
			return
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
		if wait *= 2; wait > p.maxWait {
			wait = p.maxWait
		}
	}
}

func (p *AuditPipeline) record(stage string, err error) {
	if p.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.metrics.RecordCall("audit_"+stage, result)
}

func validateChange(c *models.TickerChange) error {
	if c == nil {
		return fmt.Errorf("change nil")
	}
	if c.Strategy == "" {
		return fmt.Errorf("strategy empty")
	}
	if c.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if c.Action != models.ChangeSaved && c.Action != models.ChangeDeleted {
		return fmt.Errorf("unknown action %q", c.Action)
	}
	return nil
}
