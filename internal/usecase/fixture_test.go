package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"TradeDesk/internal/domain/models"
	"TradeDesk/internal/repository"
	"TradeDesk/internal/service/backend"
	"TradeDesk/internal/service/backend/backendtest"
	"TradeDesk/pkg/cache"
	applogger "TradeDesk/pkg/logger"
)

type noteRecorder struct {
	mu    sync.Mutex
	notes []models.Notification
}

func (r *noteRecorder) Publish(n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *noteRecorder) count(level models.NotificationLevel) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, x := range r.notes {
		if x.Level == level {
			n++
		}
	}
	return n
}

func (r *noteRecorder) last() models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notes) == 0 {
		return models.Notification{}
	}
	return r.notes[len(r.notes)-1]
}

func (r *noteRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = nil
}

type changeRecorder struct {
	mu      sync.Mutex
	changes []*models.TickerChange
}

func (c *changeRecorder) PublishChange(_ context.Context, ch *models.TickerChange) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes = append(c.changes, ch)
	return nil
}

func (c *changeRecorder) Close() error { return nil }

func (c *changeRecorder) all() []*models.TickerChange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*models.TickerChange(nil), c.changes...)
}

type decodeCounter struct {
	mu     sync.Mutex
	errors map[string]int
}

func (d *decodeCounter) RecordCall(string, string) {}
func (d *decodeCounter) RecordDecodeError(strategy string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.errors == nil {
		d.errors = map[string]int{}
	}
	d.errors[strategy]++
}
func (d *decodeCounter) RecordNotification(string)     {}
func (d *decodeCounter) RecordLatency(string, float64) {}

type fixture struct {
	srv     *backendtest.Server
	client  *backend.Client
	state   *repository.CacheStateStore
	notes   *noteRecorder
	changes *changeRecorder
	metrics *decodeCounter
	conns   *ConnectionTracker
	session *SessionStore
	params  *ParamStore
	sync    *TickerSync
	editor  *TickerEditor
	brokers *BrokerService
	trading *TradingControl
	account *AccountService
}

func newFixture(t *testing.T, opts SyncOptions) *fixture {
	t.Helper()
	srv := backendtest.New("a@b.com", "x", "t1")
	t.Cleanup(srv.Close)

	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })

	log := applogger.Nop()
	f := &fixture{
		srv:     srv,
		state:   repository.NewCacheStateStore(mc).(*repository.CacheStateStore),
		notes:   &noteRecorder{},
		changes: &changeRecorder{},
		metrics: &decodeCounter{},
		params:  NewParamStore(),
	}
	client := backend.New(backend.Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, log, f.metrics)
	f.client = client

	f.conns = NewConnectionTracker(f.state, log)
	f.session = NewSessionStore(client, f.state, f.conns, f.notes, log)
	f.sync = NewTickerSync(client, f.session, f.params, f.notes, f.changes, f.metrics, log, opts)
	f.editor = NewTickerEditor(f.sync, f.notes)
	f.brokers = NewBrokerService(client, f.session, f.conns, f.state, f.notes, log)
	f.trading = NewTradingControl(client, f.session, f.notes)
	f.account = NewAccountService(client, f.session, f.notes)
	return f
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	if _, err := f.session.Login(context.Background(), "a@b.com", "x"); err != nil {
		t.Fatalf("login: %v", err)
	}
	f.notes.reset()
}
