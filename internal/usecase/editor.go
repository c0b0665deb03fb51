package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"TradeDesk/internal/domain/models"
	domrepo "TradeDesk/internal/domain/repository"
	"TradeDesk/internal/schema"
)

var (
	ErrNotEditing     = errors.New("ticker is not being edited")
	ErrAlreadyEditing = errors.New("ticker is already being edited")
)

type EditState string

const (
	StateViewing    EditState = "viewing"
	StateEditing    EditState = "editing"
	StateCommitting EditState = "committing"
)

// EditSession is one row under edit. Base is the copy captured when editing
// began; it is what the stale check compares against.
type EditSession struct {
	Strategy  models.StrategyKind `json:"strategy"`
	Symbol    string              `json:"symbol"`
	State     EditState           `json:"state"`
	Base      models.Ticker       `json:"base"`
	StartedAt time.Time           `json:"started_at"`
}

type editKey struct {
	kind   models.StrategyKind
	symbol string
}

// TickerEditor drives the per-row edit state machine:
// viewing -> editing -> (cancel) viewing, or editing -> committing -> viewing.
type TickerEditor struct {
	mu       sync.Mutex
	rows     map[editKey]*EditSession
	sync     *TickerSync
	notifier domrepo.Notifier
}

func NewTickerEditor(sync *TickerSync, notifier domrepo.Notifier) *TickerEditor {
	return &TickerEditor{rows: make(map[editKey]*EditSession), sync: sync, notifier: notifier}
}

// ValidateForm runs the client-side rules for kind. It never touches the network.
func (e *TickerEditor) ValidateForm(kind models.StrategyKind, t models.Ticker) error {
	if t == nil || t.Kind() != kind {
		return ErrKindMismatch
	}
	return schema.Validate(t)
}

// Create validates a new record and saves it.
func (e *TickerEditor) Create(ctx context.Context, kind models.StrategyKind, t models.Ticker) ([]models.Ticker, error) {
	if err := e.ValidateForm(kind, t); err != nil {
		e.rejectForm("create_"+kind.String(), err)
		return nil, err
	}
	return e.sync.Save(ctx, kind, t)
}

// Begin captures a copy of the cached row and enters the editing state.
func (e *TickerEditor) Begin(kind models.StrategyKind, symbol string) (*EditSession, error) {
	base, ok := e.sync.params.Find(kind, symbol)
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrTickerNotFound, kind, symbol)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	k := editKey{kind, symbol}
	if _, ok := e.rows[k]; ok {
		return nil, ErrAlreadyEditing
	}
	es := &EditSession{Strategy: kind, Symbol: symbol, State: StateEditing, Base: base, StartedAt: time.Now().UTC()}
	e.rows[k] = es
	return es.copy(), nil
}

func (e *TickerEditor) Cancel(kind models.StrategyKind, symbol string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	k := editKey{kind, symbol}
	es, ok := e.rows[k]
	if !ok || es.State != StateEditing {
		return ErrNotEditing
	}
	delete(e.rows, k)
	return nil
}

// Commit saves the edited record. An invalid record keeps the row in the
// editing state; otherwise the edit is cleared whatever the save outcome.
func (e *TickerEditor) Commit(ctx context.Context, kind models.StrategyKind, symbol string, t models.Ticker) ([]models.Ticker, error) {
	k := editKey{kind, symbol}

	e.mu.Lock()
	es, ok := e.rows[k]
	if !ok || es.State != StateEditing {
		e.mu.Unlock()
		return nil, ErrNotEditing
	}
	if t != nil && t.Kind() == kind {
		t.Base().Symbol = symbol
	}
	if err := e.ValidateForm(kind, t); err != nil {
		e.mu.Unlock()
		e.rejectForm("update_"+kind.String(), err)
		return nil, err
	}
	es.State = StateCommitting
	base := es.Base
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.rows, k)
		e.mu.Unlock()
	}()
	return e.sync.SaveIfUnchanged(ctx, kind, base, t)
}

func (e *TickerEditor) State(kind models.StrategyKind, symbol string) EditState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if es, ok := e.rows[editKey{kind, symbol}]; ok {
		return es.State
	}
	return StateViewing
}

// Editing lists rows of kind currently being edited.
func (e *TickerEditor) Editing(kind models.StrategyKind) []*EditSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*EditSession
	for k, es := range e.rows {
		if k.kind == kind {
			out = append(out, es.copy())
		}
	}
	return out
}

// Toggle flips trade_enabled on the cached row and saves it immediately.
// A row under edit cannot be toggled: its pending commit would then fail the
// stale check against its own toggle.
func (e *TickerEditor) Toggle(ctx context.Context, kind models.StrategyKind, symbol string) ([]models.Ticker, error) {
	e.mu.Lock()
	_, editing := e.rows[editKey{kind, symbol}]
	e.mu.Unlock()
	if editing {
		return nil, ErrAlreadyEditing
	}
	t, ok := e.sync.params.Find(kind, symbol)
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrTickerNotFound, kind, symbol)
	}
	t.Base().TradeEnabled = !t.Base().TradeEnabled
	return e.sync.Save(ctx, kind, t)
}

// Reset drops every edit, e.g. on logout.
func (e *TickerEditor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rows = make(map[editKey]*EditSession)
}

// rejectForm reports the first failing field, or the error itself, on the
// notification feed.
func (e *TickerEditor) rejectForm(op string, err error) {
	msg := err.Error()
	var verrs schema.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		msg = verrs[0].Message
	}
	e.notifier.Publish(models.NewNotification(models.LevelError, op, msg))
}

func (es *EditSession) copy() *EditSession {
	c := *es
	c.Base = models.CloneTicker(es.Base)
	return &c
}
