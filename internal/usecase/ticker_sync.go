package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TradeDesk/internal/domain/models"
	domrepo "TradeDesk/internal/domain/repository"
	"TradeDesk/internal/schema"
	applogger "TradeDesk/pkg/logger"

	"github.com/google/uuid"
)

var (
	ErrStaleRecord    = errors.New("ticker changed on the server since editing began")
	ErrTickerNotFound = errors.New("ticker not found")
	ErrKindMismatch   = errors.New("ticker kind does not match strategy")
)

// SyncOptions tunes the synchronisation service.
type SyncOptions struct {
	StaleCheck bool
}

// TickerSync keeps the local parameter store in step with the backend. The
// backend is authoritative: slots are only replaced with collections it
// returned, and a failed call leaves them untouched.
type TickerSync struct {
	backend   domrepo.TradingBackend
	session   *SessionStore
	params    *ParamStore
	notifier  domrepo.Notifier
	publisher domrepo.ChangePublisher
	metrics   domrepo.Metrics
	log       *applogger.Logger
	opts      SyncOptions
}

func NewTickerSync(
	backend domrepo.TradingBackend,
	session *SessionStore,
	params *ParamStore,
	notifier domrepo.Notifier,
	publisher domrepo.ChangePublisher,
	metrics domrepo.Metrics,
	log *applogger.Logger,
	opts SyncOptions,
) *TickerSync {
	return &TickerSync{
		backend:   backend,
		session:   session,
		params:    params,
		notifier:  notifier,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
		opts:      opts,
	}
}

// Cached returns the last loaded collection without touching the network.
func (s *TickerSync) Cached(kind models.StrategyKind) ([]models.Ticker, uint64) {
	return s.params.Get(kind)
}

func (s *TickerSync) Fetch(ctx context.Context, kind models.StrategyKind) ([]models.Ticker, error) {
	op := "fetch_" + kind.String()
	start := time.Now()
	defer s.observe(op, start)

	token, err := s.session.Token()
	if err != nil {
		notifyFailure(s.notifier, op, err)
		return nil, err
	}
	list, err := s.load(ctx, token, kind)
	if err != nil {
		notifyFailure(s.notifier, op, err)
		return nil, fmt.Errorf("fetch %s tickers: %w", kind, err)
	}
	s.params.Replace(kind, list)
	notifySuccess(s.notifier, op, fmt.Sprintf("Loaded %d %s tickers", len(list), kind))
	return list, nil
}

// Save creates or replaces the record keyed by its symbol.
func (s *TickerSync) Save(ctx context.Context, kind models.StrategyKind, t models.Ticker) ([]models.Ticker, error) {
	op := "save_" + kind.String()
	start := time.Now()
	defer s.observe(op, start)

	token, err := s.session.Token()
	if err != nil {
		notifyFailure(s.notifier, op, err)
		return nil, err
	}
	list, err := s.save(ctx, token, kind, t)
	if err != nil {
		notifyFailure(s.notifier, op, err)
		return nil, fmt.Errorf("save %s ticker: %w", kind, err)
	}
	notifySuccess(s.notifier, op, fmt.Sprintf("Ticker %s saved", t.Base().Symbol))
	return list, nil
}

// SaveIfUnchanged saves t only when the server still holds base for its
// symbol. With the stale check disabled it is a plain Save.
func (s *TickerSync) SaveIfUnchanged(ctx context.Context, kind models.StrategyKind, base, t models.Ticker) ([]models.Ticker, error) {
	if !s.opts.StaleCheck {
		return s.Save(ctx, kind, t)
	}

	op := "save_" + kind.String()
	start := time.Now()
	defer s.observe(op, start)

	token, err := s.session.Token()
	if err != nil {
		notifyFailure(s.notifier, op, err)
		return nil, err
	}

	current, err := s.load(ctx, token, kind)
	if err != nil {
		notifyFailure(s.notifier, op, err)
		return nil, fmt.Errorf("save %s ticker: %w", kind, err)
	}
	s.params.Replace(kind, current)

	symbol := base.Base().Symbol
	if !schema.Equal(find(current, symbol), base) {
		s.log.Info("stale ticker rejected", applogger.String("strategy", kind.String()), applogger.String("symbol", symbol))
		s.notifier.Publish(models.NewNotification(models.LevelError, op,
			fmt.Sprintf("Ticker %s was changed by someone else; reload and try again", symbol)))
		return nil, ErrStaleRecord
	}

	list, err := s.save(ctx, token, kind, t)
	if err != nil {
		notifyFailure(s.notifier, op, err)
		return nil, fmt.Errorf("save %s ticker: %w", kind, err)
	}
	notifySuccess(s.notifier, op, fmt.Sprintf("Ticker %s saved", t.Base().Symbol))
	return list, nil
}

func (s *TickerSync) Delete(ctx context.Context, kind models.StrategyKind, symbol string) ([]models.Ticker, error) {
	op := "delete_" + kind.String()
	start := time.Now()
	defer s.observe(op, start)

	token, err := s.session.Token()
	if err != nil {
		notifyFailure(s.notifier, op, err)
		return nil, err
	}

	data, version, err := s.backend.DeleteTicker(ctx, token, kind, symbol)
	if err == nil {
		var list []models.Ticker
		list, err = s.settle(ctx, token, kind, data, version)
		if err == nil {
			s.params.Replace(kind, list)
			s.audit(ctx, &models.TickerChange{Strategy: kind, Symbol: symbol, Action: models.ChangeDeleted})
			notifySuccess(s.notifier, op, fmt.Sprintf("Ticker %s deleted", symbol))
			return list, nil
		}
	}
	notifyFailure(s.notifier, op, err)
	return nil, fmt.Errorf("delete %s ticker %s: %w", kind, symbol, err)
}

// UpdateLegacy goes through the older full-record update endpoint, which
// returns no collection, and resyncs afterwards.
func (s *TickerSync) UpdateLegacy(ctx context.Context, kind models.StrategyKind, t models.Ticker) ([]models.Ticker, error) {
	op := "update_" + kind.String()

	token, err := s.session.Token()
	if err != nil {
		notifyFailure(s.notifier, op, err)
		return nil, err
	}
	if t.Kind() != kind {
		notifyFailure(s.notifier, op, ErrKindMismatch)
		return nil, ErrKindMismatch
	}
	fields, err := schema.Named(t)
	if err != nil {
		notifyFailure(s.notifier, op, err)
		return nil, err
	}
	if err := s.backend.UpdateTicker(ctx, token, kind, fields); err != nil {
		notifyFailure(s.notifier, op, err)
		return nil, fmt.Errorf("update %s ticker: %w", kind, err)
	}
	prev, _ := s.params.Find(kind, t.Base().Symbol)
	s.audit(ctx, s.savedChange(kind, prev, t))
	notifySuccess(s.notifier, op, fmt.Sprintf("Ticker %s updated", t.Base().Symbol))
	return s.Fetch(ctx, kind)
}

func (s *TickerSync) save(ctx context.Context, token string, kind models.StrategyKind, t models.Ticker) ([]models.Ticker, error) {
	if t.Kind() != kind {
		return nil, ErrKindMismatch
	}
	fields, err := schema.Named(t)
	if err != nil {
		return nil, err
	}
	data, version, err := s.backend.AddTicker(ctx, token, kind, fields)
	if err != nil {
		return nil, err
	}
	list, err := s.settle(ctx, token, kind, data, version)
	if err != nil {
		return nil, err
	}

	prev, _ := s.params.Find(kind, t.Base().Symbol)
	s.params.Replace(kind, list)
	s.audit(ctx, s.savedChange(kind, prev, t))
	return list, nil
}

// settle decodes a mutation response. Responses without data are resolved
// with a follow-up fetch.
func (s *TickerSync) settle(ctx context.Context, token string, kind models.StrategyKind, data schema.Collection, version int) ([]models.Ticker, error) {
	if data == nil {
		return s.load(ctx, token, kind)
	}
	return s.decode(kind, data, version)
}

func (s *TickerSync) load(ctx context.Context, token string, kind models.StrategyKind) ([]models.Ticker, error) {
	data, version, err := s.backend.GetTickers(ctx, token, kind)
	if err != nil {
		return nil, err
	}
	return s.decode(kind, data, version)
}

func (s *TickerSync) decode(kind models.StrategyKind, data schema.Collection, version int) ([]models.Ticker, error) {
	list, err := schema.DecodeCollection(kind, data, version)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordDecodeError(kind.String())
		}
		s.log.Error("decode tickers failed", applogger.String("strategy", kind.String()), applogger.Error(err))
		return nil, err
	}
	return list, nil
}

func (s *TickerSync) savedChange(kind models.StrategyKind, prev, t models.Ticker) *models.TickerChange {
	c := &models.TickerChange{Strategy: kind, Symbol: t.Base().Symbol, Action: models.ChangeSaved}
	if row, err := schema.Encode(t); err == nil {
		c.Row = row
	}
	if prev != nil {
		c.Fields = schema.ChangedFields(prev, t)
	}
	return c
}

// audit publishes a change record. Audit failures never fail the mutation.
func (s *TickerSync) audit(ctx context.Context, c *models.TickerChange) {
	if s.publisher == nil {
		return
	}
	c.ID = uuid.New()
	c.At = time.Now().UTC()
	if sess, err := s.session.Current(); err == nil {
		c.Actor = sess.Email
	}
	if err := s.publisher.PublishChange(ctx, c); err != nil {
		s.log.Warn("publish ticker change failed",
			applogger.String("strategy", c.Strategy.String()),
			applogger.String("symbol", c.Symbol),
			applogger.Error(err),
		)
	}
}

func (s *TickerSync) observe(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordLatency("sync."+op, time.Since(start).Seconds())
	}
}

func find(list []models.Ticker, symbol string) models.Ticker {
	for _, t := range list {
		if t.Base().Symbol == symbol {
			return t
		}
	}
	return nil
}
