package usecase

import (
	"context"
	"sync"

	"TradeDesk/internal/domain/models"
	domrepo "TradeDesk/internal/domain/repository"
	applogger "TradeDesk/pkg/logger"
)

// ConnectionTracker is the advisory view of brokerage connectivity. Login
// seeds it wholesale; each token-exchange flow updates its own broker.
type ConnectionTracker struct {
	mu     sync.RWMutex
	status models.Connections
	state  domrepo.StateStore
	log    *applogger.Logger
}

func NewConnectionTracker(state domrepo.StateStore, log *applogger.Logger) *ConnectionTracker {
	return &ConnectionTracker{state: state, log: log}
}

func (t *ConnectionTracker) Status() models.Connections {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *ConnectionTracker) SetAll(ctx context.Context, c models.Connections) {
	t.mu.Lock()
	t.status = c
	t.mu.Unlock()
	t.persist(ctx, c)
}

func (t *ConnectionTracker) Set(ctx context.Context, broker models.Broker, connected bool) {
	t.mu.Lock()
	switch broker {
	case models.BrokerSchwab:
		t.status.Schwab = connected
	case models.BrokerTastytrade:
		t.status.Tastytrade = connected
	}
	c := t.status
	t.mu.Unlock()
	t.persist(ctx, c)
}

// Reset forgets connectivity in memory; the store is cleared with the session.
func (t *ConnectionTracker) Reset() {
	t.mu.Lock()
	t.status = models.Connections{}
	t.mu.Unlock()
}

func (t *ConnectionTracker) Load(ctx context.Context) error {
	c, err := t.state.LoadConnections(ctx)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.status = c
	t.mu.Unlock()
	return nil
}

func (t *ConnectionTracker) persist(ctx context.Context, c models.Connections) {
	if err := t.state.SaveConnections(ctx, c); err != nil {
		t.log.Warn("persist connections failed", applogger.Error(err))
	}
}
