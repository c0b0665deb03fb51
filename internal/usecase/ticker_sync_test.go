package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"TradeDesk/internal/domain/models"
	"TradeDesk/internal/middleware"
	"TradeDesk/internal/schema"
	applogger "TradeDesk/pkg/logger"

	"github.com/shopspring/decimal"
)

func emaTicker(symbol string, schwab int64, enabled bool) *models.EMATicker {
	return &models.EMATicker{
		TickerBase: models.TickerBase{
			Symbol:             symbol,
			TradeEnabled:       enabled,
			Timeframe:          "1Day",
			SchwabQuantity:     decimal.NewFromInt(schwab),
			TastytradeQuantity: decimal.NewFromInt(5),
		},
		Crossover: models.Crossover{TrendLine1: "EMA", Period1: 9, TrendLine2: "SMA", Period2: 21},
	}
}

func TestFetchDecodesPositionalRows(t *testing.T) {
	f := newFixture(t, SyncOptions{})
	f.srv.SetTickers(models.StrategyEMA, schema.Collection{"AAPL": {"1Day", "10", "TRUE", "5", "EMA", "9", "SMA", "21"}})
	f.login(t)

	list, err := f.sync.Fetch(context.Background(), models.StrategyEMA)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 ticker, got %d", len(list))
	}
	got := list[0].(*models.EMATicker)
	if got.Symbol != "AAPL" || got.Timeframe != "1Day" || !got.TradeEnabled {
		t.Fatalf("unexpected base %+v", got.TickerBase)
	}
	if !got.SchwabQuantity.Equal(decimal.NewFromInt(10)) || !got.TastytradeQuantity.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("unexpected quantities %+v", got.TickerBase)
	}
	if got.Crossover != (models.Crossover{TrendLine1: "EMA", Period1: 9, TrendLine2: "SMA", Period2: 21}) {
		t.Fatalf("unexpected crossover %+v", got.Crossover)
	}
	if _, rev := f.sync.Cached(models.StrategyEMA); rev != 1 {
		t.Fatalf("expected revision 1, got %d", rev)
	}
}

func TestFetchWithoutSessionDoesNotCallBackend(t *testing.T) {
	f := newFixture(t, SyncOptions{})
	if _, err := f.sync.Fetch(context.Background(), models.StrategyEMA); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if n := f.srv.CallCount("/api/get-ticker"); n != 0 {
		t.Fatalf("backend called %d times", n)
	}
	if f.notes.count(models.LevelError) != 1 {
		t.Fatalf("expected an error notification")
	}
}

func TestFetchDecodeErrorLeavesSlot(t *testing.T) {
	f := newFixture(t, SyncOptions{})
	f.srv.SetTickers(models.StrategyEMA, schema.Collection{"AAPL": {"1Day", "10", "TRUE", "5", "EMA", "9", "SMA", "21"}})
	f.login(t)
	ctx := context.Background()
	if _, err := f.sync.Fetch(ctx, models.StrategyEMA); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	f.srv.SetTickers(models.StrategyEMA, schema.Collection{"AAPL": {"1Day", "10"}})
	if _, err := f.sync.Fetch(ctx, models.StrategyEMA); !errors.Is(err, schema.ErrFieldCount) {
		t.Fatalf("expected ErrFieldCount, got %v", err)
	}
	if list, rev := f.sync.Cached(models.StrategyEMA); len(list) != 1 || rev != 1 {
		t.Fatalf("slot changed on failure: %d rows rev %d", len(list), rev)
	}
	if f.metrics.errors["ema"] != 1 {
		t.Fatalf("decode error not recorded: %v", f.metrics.errors)
	}
}

func TestFetchRejectsNewerSchemaVersion(t *testing.T) {
	f := newFixture(t, SyncOptions{})
	f.srv.SetSchemaVersion(schema.Version + 1)
	f.login(t)
	if _, err := f.sync.Fetch(context.Background(), models.StrategyEMA); !errors.Is(err, schema.ErrSchemaVersion) {
		t.Fatalf("expected ErrSchemaVersion, got %v", err)
	}
}

func TestSaveThenFetchHasLastSavedValues(t *testing.T) {
	f := newFixture(t, SyncOptions{})
	f.login(t)
	ctx := context.Background()

	if _, err := f.sync.Save(ctx, models.StrategyEMA, emaTicker("MSFT", 3, false)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := f.sync.Save(ctx, models.StrategyEMA, emaTicker("MSFT", 7, true)); err != nil {
		t.Fatalf("save: %v", err)
	}

	list, err := f.sync.Fetch(ctx, models.StrategyEMA)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	got := find(list, "MSFT")
	if got == nil {
		t.Fatalf("MSFT missing after save")
	}
	if !schema.Equal(got, emaTicker("MSFT", 7, true)) {
		t.Fatalf("unexpected values %+v", got)
	}

	body := f.srv.LastBody("/api/add-ticker")
	if body["strategy"] != "ema" || body["symbol"] != "MSFT" {
		t.Fatalf("unexpected request body %v", body)
	}

	changes := f.changes.all()
	if len(changes) != 2 || changes[1].Action != models.ChangeSaved || changes[1].Actor != "a@b.com" {
		t.Fatalf("unexpected audit trail %+v", changes)
	}
	if len(changes[1].Fields) != 2 {
		t.Fatalf("expected trade_enabled and schwab_quantity changed, got %v", changes[1].Fields)
	}
}

func TestSaveFailureKeepsLocalState(t *testing.T) {
	f := newFixture(t, SyncOptions{})
	f.srv.SetTickers(models.StrategyEMA, schema.Collection{"AAPL": {"1Day", "10", "TRUE", "5", "EMA", "9", "SMA", "21"}})
	f.login(t)
	ctx := context.Background()
	if _, err := f.sync.Fetch(ctx, models.StrategyEMA); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	f.notes.reset()

	f.srv.Fail("/api/add-ticker", http.StatusInternalServerError, "database unavailable")
	if _, err := f.sync.Save(ctx, models.StrategyEMA, emaTicker("MSFT", 1, true)); err == nil {
		t.Fatalf("expected error")
	}
	if list, rev := f.sync.Cached(models.StrategyEMA); len(list) != 1 || rev != 1 {
		t.Fatalf("local state changed: %d rows rev %d", len(list), rev)
	}
	if n := f.notes.last(); n.Level != models.LevelError || n.Message != "database unavailable" {
		t.Fatalf("unexpected notification %+v", n)
	}
	if f.notes.count(models.LevelSuccess) != 0 || len(f.changes.all()) != 0 {
		t.Fatalf("failure produced success side effects")
	}
}

func TestDeleteThenFetchHasNoRecord(t *testing.T) {
	f := newFixture(t, SyncOptions{})
	f.srv.SetTickers(models.StrategyEMA, schema.Collection{
		"AAPL": {"1Day", "10", "TRUE", "5", "EMA", "9", "SMA", "21"},
		"MSFT": {"1Day", "1", "FALSE", "1", "EMA", "9", "SMA", "21"},
	})
	f.login(t)
	ctx := context.Background()

	list, err := f.sync.Delete(ctx, models.StrategyEMA, "AAPL")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(list) != 1 || find(list, "AAPL") != nil {
		t.Fatalf("unexpected list after delete %+v", list)
	}
	list, err = f.sync.Fetch(ctx, models.StrategyEMA)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if find(list, "AAPL") != nil {
		t.Fatalf("AAPL still present")
	}
	if c := f.changes.all(); len(c) != 1 || c[0].Action != models.ChangeDeleted {
		t.Fatalf("unexpected audit trail %+v", c)
	}
}

func TestDeleteRejectedLeavesCollection(t *testing.T) {
	f := newFixture(t, SyncOptions{})
	f.srv.SetTickers(models.StrategyZeroday, schema.Collection{"SPX": {"1Min", "1", "TRUE", "1", "EMA", "5", "EMA", "20", "TRUE", "TRUE"}})
	f.login(t)
	ctx := context.Background()
	if _, err := f.sync.Fetch(ctx, models.StrategyZeroday); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	f.notes.reset()

	f.srv.Fail("/api/delete-ticker", 0, "")
	if _, err := f.sync.Delete(ctx, models.StrategyZeroday, "SPX"); err == nil {
		t.Fatalf("expected error")
	}
	list, rev := f.sync.Cached(models.StrategyZeroday)
	if len(list) != 1 || rev != 1 {
		t.Fatalf("collection changed: %d rows rev %d", len(list), rev)
	}
	if f.notes.count(models.LevelSuccess) != 0 {
		t.Fatalf("success notification posted on failure")
	}
	if n := f.notes.last(); n.Message != "Failed to delete ticker" {
		t.Fatalf("expected fallback message, got %q", n.Message)
	}
}

func TestSaveIfUnchangedRejectsStaleBase(t *testing.T) {
	f := newFixture(t, SyncOptions{StaleCheck: true})
	f.srv.SetTickers(models.StrategyEMA, schema.Collection{"AAPL": {"1Day", "10", "TRUE", "5", "EMA", "9", "SMA", "21"}})
	f.login(t)
	ctx := context.Background()

	list, err := f.sync.Fetch(ctx, models.StrategyEMA)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	base := list[0]

	// another editor changes the row
	f.srv.SetTickers(models.StrategyEMA, schema.Collection{"AAPL": {"1Day", "99", "TRUE", "5", "EMA", "9", "SMA", "21"}})

	edited := models.CloneTicker(base)
	edited.Base().TradeEnabled = false
	if _, err := f.sync.SaveIfUnchanged(ctx, models.StrategyEMA, base, edited); !errors.Is(err, ErrStaleRecord) {
		t.Fatalf("expected ErrStaleRecord, got %v", err)
	}
	if f.srv.CallCount("/api/add-ticker") != 0 {
		t.Fatalf("stale record was written")
	}
	if got, _ := f.params.Find(models.StrategyEMA, "AAPL"); got.Base().SchwabQuantity.String() != "99" {
		t.Fatalf("local slot not refreshed from server: %+v", got.Base())
	}
}

func TestSaveIfUnchangedWritesFreshBase(t *testing.T) {
	f := newFixture(t, SyncOptions{StaleCheck: true})
	f.srv.SetTickers(models.StrategyEMA, schema.Collection{"AAPL": {"1Day", "10", "TRUE", "5", "EMA", "9", "SMA", "21"}})
	f.login(t)
	ctx := context.Background()

	list, _ := f.sync.Fetch(ctx, models.StrategyEMA)
	edited := models.CloneTicker(list[0])
	edited.Base().TradeEnabled = false
	if _, err := f.sync.SaveIfUnchanged(ctx, models.StrategyEMA, list[0], edited); err != nil {
		t.Fatalf("save: %v", err)
	}
	if row := f.srv.Tickers(models.StrategyEMA)["AAPL"]; row[2] != "FALSE" {
		t.Fatalf("unexpected stored row %v", row)
	}
}

func TestUpdateLegacyResyncs(t *testing.T) {
	f := newFixture(t, SyncOptions{})
	f.login(t)

	list, err := f.sync.UpdateLegacy(context.Background(), models.StrategyEMA, emaTicker("QQQ", 2, true))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if find(list, "QQQ") == nil {
		t.Fatalf("QQQ missing after resync")
	}
	if f.srv.CallCount("/api/update-ticker") != 1 || f.srv.CallCount("/api/get-ticker") != 1 {
		t.Fatalf("unexpected calls %v", f.srv.Calls())
	}
}

func TestSaveRejectsKindMismatch(t *testing.T) {
	f := newFixture(t, SyncOptions{})
	f.login(t)
	if _, err := f.sync.Save(context.Background(), models.StrategyZeroday, emaTicker("AAPL", 1, true)); !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch, got %v", err)
	}
}

// hangingPublisher never completes a publish until its context ends.
type hangingPublisher struct{ calls chan *models.TickerChange }

func (h *hangingPublisher) PublishChange(ctx context.Context, c *models.TickerChange) error {
	h.calls <- c
	<-ctx.Done()
	return ctx.Err()
}

func (h *hangingPublisher) Close() error { return nil }

func TestSaveDoesNotWaitOnAuditDelivery(t *testing.T) {
	f := newFixture(t, SyncOptions{})
	f.login(t)

	hang := &hangingPublisher{calls: make(chan *models.TickerChange, 4)}
	pipeline := middleware.NewAuditPipeline(hang, nil, applogger.Nop())
	pipeline.Start(context.Background())
	t.Cleanup(func() { _ = pipeline.Close() })

	s := NewTickerSync(f.client, f.session, f.params, f.notes, pipeline, f.metrics, applogger.Nop(), SyncOptions{})

	start := time.Now()
	if _, err := s.Save(context.Background(), models.StrategyEMA, emaTicker("AAPL", 1, true)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("save waited %v on audit delivery", elapsed)
	}

	select {
	case c := <-hang.calls:
		if c.Symbol != "AAPL" || c.Action != models.ChangeSaved {
			t.Fatalf("unexpected change %+v", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("change never reached the downstream")
	}
}
