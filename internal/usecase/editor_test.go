package usecase

import (
	"context"
	"errors"
	"testing"

	"TradeDesk/internal/domain/models"
	"TradeDesk/internal/schema"

	"github.com/shopspring/decimal"
)

func zerodayTicker() *models.ZerodayTicker {
	return &models.ZerodayTicker{
		TickerBase: models.TickerBase{
			Symbol:             "SPX",
			TradeEnabled:       true,
			Timeframe:          "1Min",
			SchwabQuantity:     decimal.NewFromInt(1),
			TastytradeQuantity: decimal.Zero,
		},
		Crossover:   models.Crossover{TrendLine1: "EMA", Period1: 5, TrendLine2: "EMA", Period2: 20},
		CallEnabled: true,
		PutEnabled:  true,
	}
}

func hasFieldError(err error, field string) bool {
	var verrs schema.ValidationErrors
	if !errors.As(err, &verrs) {
		return false
	}
	for _, e := range verrs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestCreateRejectsInvalidZerodayWithoutNetwork(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.ZerodayTicker)
		field  string
	}{
		{"call and put disabled", func(z *models.ZerodayTicker) { z.CallEnabled, z.PutEnabled = false, false }, "call_enabled"},
		{"period_1 equals period_2", func(z *models.ZerodayTicker) { z.Period1 = 20 }, "period_2"},
		{"period_1 above period_2", func(z *models.ZerodayTicker) { z.Period1 = 30 }, "period_2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, SyncOptions{})
			f.login(t)

			z := zerodayTicker()
			tt.mutate(z)
			_, err := f.editor.Create(context.Background(), models.StrategyZeroday, z)
			if !hasFieldError(err, tt.field) {
				t.Fatalf("expected error on %s, got %v", tt.field, err)
			}
			if f.srv.CallCount("/api/add-ticker") != 0 {
				t.Fatalf("invalid form reached the network")
			}
		})
	}
}

func TestCreateSavesValidRecord(t *testing.T) {
	f := newFixture(t, SyncOptions{})
	f.login(t)

	list, err := f.editor.Create(context.Background(), models.StrategyZeroday, zerodayTicker())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(list) != 1 || list[0].Base().Symbol != "SPX" {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestEditLifecycle(t *testing.T) {
	f := newFixture(t, SyncOptions{StaleCheck: true})
	f.srv.SetTickers(models.StrategyEMA, schema.Collection{"AAPL": {"1Day", "10", "TRUE", "5", "EMA", "9", "SMA", "21"}})
	f.login(t)
	ctx := context.Background()
	if _, err := f.sync.Fetch(ctx, models.StrategyEMA); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if st := f.editor.State(models.StrategyEMA, "AAPL"); st != StateViewing {
		t.Fatalf("expected viewing, got %s", st)
	}
	es, err := f.editor.Begin(models.StrategyEMA, "AAPL")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := f.editor.Begin(models.StrategyEMA, "AAPL"); !errors.Is(err, ErrAlreadyEditing) {
		t.Fatalf("expected ErrAlreadyEditing, got %v", err)
	}

	draft := models.CloneTicker(es.Base).(*models.EMATicker)
	draft.Period2 = 50
	if _, err := f.editor.Commit(ctx, models.StrategyEMA, "AAPL", draft); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if st := f.editor.State(models.StrategyEMA, "AAPL"); st != StateViewing {
		t.Fatalf("expected viewing after commit, got %s", st)
	}
	if row := f.srv.Tickers(models.StrategyEMA)["AAPL"]; row[7] != "50" {
		t.Fatalf("edit not saved: %v", row)
	}
}

func TestCommitInvalidStaysEditing(t *testing.T) {
	f := newFixture(t, SyncOptions{})
	f.srv.SetTickers(models.StrategyEMA, schema.Collection{"AAPL": {"1Day", "10", "TRUE", "5", "EMA", "9", "SMA", "21"}})
	f.login(t)
	ctx := context.Background()
	_, _ = f.sync.Fetch(ctx, models.StrategyEMA)

	es, err := f.editor.Begin(models.StrategyEMA, "AAPL")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	draft := models.CloneTicker(es.Base).(*models.EMATicker)
	draft.TrendLine1 = "HMA"
	if _, err := f.editor.Commit(ctx, models.StrategyEMA, "AAPL", draft); !hasFieldError(err, "trend_line_1") {
		t.Fatalf("expected trend_line_1 error, got %v", err)
	}
	if st := f.editor.State(models.StrategyEMA, "AAPL"); st != StateEditing {
		t.Fatalf("expected editing, got %s", st)
	}
	if err := f.editor.Cancel(models.StrategyEMA, "AAPL"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := f.editor.Cancel(models.StrategyEMA, "AAPL"); !errors.Is(err, ErrNotEditing) {
		t.Fatalf("expected ErrNotEditing, got %v", err)
	}
}

func TestCommitFailureClearsEdit(t *testing.T) {
	f := newFixture(t, SyncOptions{StaleCheck: true})
	f.srv.SetTickers(models.StrategyEMA, schema.Collection{"AAPL": {"1Day", "10", "TRUE", "5", "EMA", "9", "SMA", "21"}})
	f.login(t)
	ctx := context.Background()
	_, _ = f.sync.Fetch(ctx, models.StrategyEMA)

	es, _ := f.editor.Begin(models.StrategyEMA, "AAPL")
	f.srv.SetTickers(models.StrategyEMA, schema.Collection{"AAPL": {"1Day", "11", "TRUE", "5", "EMA", "9", "SMA", "21"}})

	if _, err := f.editor.Commit(ctx, models.StrategyEMA, "AAPL", es.Base); !errors.Is(err, ErrStaleRecord) {
		t.Fatalf("expected ErrStaleRecord, got %v", err)
	}
	if st := f.editor.State(models.StrategyEMA, "AAPL"); st != StateViewing {
		t.Fatalf("edit state not cleared: %s", st)
	}
}

func TestCommitWithoutBegin(t *testing.T) {
	f := newFixture(t, SyncOptions{})
	if _, err := f.editor.Commit(context.Background(), models.StrategyEMA, "AAPL", emaTicker("AAPL", 1, true)); !errors.Is(err, ErrNotEditing) {
		t.Fatalf("expected ErrNotEditing, got %v", err)
	}
}

func TestToggleFlipsTradeEnabled(t *testing.T) {
	f := newFixture(t, SyncOptions{})
	f.srv.SetTickers(models.StrategyEMA, schema.Collection{"AAPL": {"1Day", "10", "TRUE", "5", "EMA", "9", "SMA", "21"}})
	f.login(t)
	ctx := context.Background()
	_, _ = f.sync.Fetch(ctx, models.StrategyEMA)

	list, err := f.editor.Toggle(ctx, models.StrategyEMA, "AAPL")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if find(list, "AAPL").Base().TradeEnabled {
		t.Fatalf("trade_enabled not flipped")
	}
	if _, err := f.editor.Toggle(ctx, models.StrategyEMA, "NOPE"); !errors.Is(err, ErrTickerNotFound) {
		t.Fatalf("expected ErrTickerNotFound, got %v", err)
	}
}

func TestInvalidFormIsNotified(t *testing.T) {
	f := newFixture(t, SyncOptions{})
	f.login(t)

	z := zerodayTicker()
	z.CallEnabled, z.PutEnabled = false, false
	if _, err := f.editor.Create(context.Background(), models.StrategyZeroday, z); err == nil {
		t.Fatalf("expected validation error")
	}
	if f.notes.count(models.LevelError) != 1 {
		t.Fatalf("expected one error notification, got %+v", f.notes.notes)
	}
	if n := f.notes.last(); n.Message == "" || n.Op == "" {
		t.Fatalf("notification lacks detail: %+v", n)
	}
}

func TestToggleRefusedWhileEditing(t *testing.T) {
	f := newFixture(t, SyncOptions{StaleCheck: true})
	f.srv.SetTickers(models.StrategyEMA, schema.Collection{"AAPL": {"1Day", "10", "TRUE", "5", "EMA", "9", "SMA", "21"}})
	f.login(t)
	ctx := context.Background()
	_, _ = f.sync.Fetch(ctx, models.StrategyEMA)

	es, err := f.editor.Begin(models.StrategyEMA, "AAPL")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := f.editor.Toggle(ctx, models.StrategyEMA, "AAPL"); !errors.Is(err, ErrAlreadyEditing) {
		t.Fatalf("expected ErrAlreadyEditing, got %v", err)
	}
	if f.srv.CallCount("/api/add-ticker") != 0 {
		t.Fatalf("toggle reached the backend during an edit")
	}

	draft := models.CloneTicker(es.Base).(*models.EMATicker)
	draft.Period1 = 12
	if _, err := f.editor.Commit(ctx, models.StrategyEMA, "AAPL", draft); err != nil {
		t.Fatalf("commit after refused toggle: %v", err)
	}
	if _, err := f.editor.Toggle(ctx, models.StrategyEMA, "AAPL"); err != nil {
		t.Fatalf("toggle after commit: %v", err)
	}
}
