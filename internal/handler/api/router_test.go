package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"TradeDesk/internal/domain/models"
	"TradeDesk/internal/repository"
	"TradeDesk/internal/schema"
	"TradeDesk/internal/service/backend"
	"TradeDesk/internal/service/backend/backendtest"
	"TradeDesk/internal/service/notify"
	"TradeDesk/internal/service/ratelimit"
	"TradeDesk/internal/usecase"
	"TradeDesk/pkg/cache"
	applogger "TradeDesk/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

type testApp struct {
	e   *echo.Echo
	srv *backendtest.Server
	hub *notify.Hub
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	srv := backendtest.New("a@b.com", "x", "t1")
	t.Cleanup(srv.Close)
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })

	log := applogger.Nop()
	state := repository.NewCacheStateStore(mc)
	hub := notify.NewHub(50, log, nil)
	client := backend.New(backend.Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, log, nil)

	conns := usecase.NewConnectionTracker(state, log)
	sessions := usecase.NewSessionStore(client, state, conns, hub, log)
	params := usecase.NewParamStore()
	sync := usecase.NewTickerSync(client, sessions, params, hub, repository.NoopChangePublisher{}, nil, log, usecase.SyncOptions{StaleCheck: true})
	editor := usecase.NewTickerEditor(sync, hub)
	trading := usecase.NewTradingControl(client, sessions, hub)
	brokers := usecase.NewBrokerService(client, sessions, conns, state, hub, log)
	account := usecase.NewAccountService(client, sessions, hub)

	router := NewRouter(
		sessions,
		NewSessionHandler(sessions, conns, params, editor, ratelimit.New(3, 0.001), log),
		NewTickersHandler(sync, editor, trading, log),
		NewBrokersHandler(brokers, log),
		NewAccountHandler(account, sessions, log),
		NewNotificationsHandler(hub, nil, log),
	)
	e := echo.New()
	router.RegisterRoutes(e)
	return &testApp{e: e, srv: srv, hub: hub}
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (a *testApp) do(t *testing.T, method, path, body string) envelope {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("%s %s: http status %d body %s", method, path, rec.Code, rec.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	return env
}

func (a *testApp) login(t *testing.T) {
	t.Helper()
	if env := a.do(t, http.MethodPost, "/api/session/login", `{"email":"a@b.com","password":"x"}`); env.Status != http.StatusOK {
		t.Fatalf("login failed: %+v", env)
	}
}

func TestLoginAndSession(t *testing.T) {
	a := newTestApp(t)
	a.srv.SetConnections(models.Connections{Schwab: true})

	env := a.do(t, http.MethodPost, "/api/session/login", `{"email":"a@b.com","password":"x"}`)
	if env.Status != http.StatusOK {
		t.Fatalf("unexpected envelope %+v", env)
	}
	var view SessionView
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Email != "a@b.com" || !view.Connections.Schwab {
		t.Fatalf("unexpected view %+v", view)
	}
	if strings.Contains(string(env.Data), "t1") {
		t.Fatalf("token leaked: %s", env.Data)
	}

	if env := a.do(t, http.MethodPost, "/api/session/logout", ""); env.Status != http.StatusOK {
		t.Fatalf("logout: %+v", env)
	}
	if env := a.do(t, http.MethodGet, "/api/session", ""); env.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %+v", env)
	}
}

func TestLoginValidationAndFailure(t *testing.T) {
	a := newTestApp(t)
	if env := a.do(t, http.MethodPost, "/api/session/login", `{"email":"nope","password":"x"}`); env.Status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %+v", env)
	}
	if a.srv.CallCount("/api/login") != 0 {
		t.Fatalf("invalid request reached the backend")
	}
	env := a.do(t, http.MethodPost, "/api/session/login", `{"email":"a@b.com","password":"bad"}`)
	if env.Status != http.StatusUnauthorized || !strings.Contains(string(env.Data), "Invalid email or password") {
		t.Fatalf("unexpected envelope %+v %s", env, env.Data)
	}
}

func TestLoginRateLimited(t *testing.T) {
	a := newTestApp(t)
	for i := 0; i < 3; i++ {
		a.do(t, http.MethodPost, "/api/session/login", `{"email":"a@b.com","password":"bad"}`)
	}
	if env := a.do(t, http.MethodPost, "/api/session/login", `{"email":"a@b.com","password":"x"}`); env.Status != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %+v", env)
	}
}

func TestTickersRequireSession(t *testing.T) {
	a := newTestApp(t)
	if env := a.do(t, http.MethodGet, "/api/strategies/ema/tickers", ""); env.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", env)
	}
}

func TestListAndCreateTickers(t *testing.T) {
	a := newTestApp(t)
	a.srv.SetTickers(models.StrategyEMA, schema.Collection{"AAPL": {"1Day", "10", "TRUE", "5", "EMA", "9", "SMA", "21"}})
	a.login(t)

	env := a.do(t, http.MethodGet, "/api/strategies/ema/tickers", "")
	if env.Status != http.StatusOK {
		t.Fatalf("unexpected envelope %+v", env)
	}
	var view struct {
		Strategy string           `json:"strategy"`
		Title    string           `json:"title"`
		Rows     []map[string]any `json:"rows"`
	}
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Title != "EMA Crossover Strategy" || len(view.Rows) != 1 || view.Rows[0]["symbol"] != "AAPL" {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.Rows[0]["schwab_quantity"] != float64(10) {
		t.Fatalf("quantity should be a JSON number, got %#v", view.Rows[0]["schwab_quantity"])
	}

	body := `{"symbol":"msft","timeframe":"5","schwab_quantity":2,"tastytrade_quantity":0,"trade_enabled":true,
		"trend_line_1":"EMA","period_1":9,"trend_line_2":"EMA","period_2":21}`
	if env := a.do(t, http.MethodPost, "/api/strategies/ema/tickers", body); env.Status != http.StatusOK {
		t.Fatalf("create: %+v %s", env, env.Data)
	}
	row := a.srv.Tickers(models.StrategyEMA)["MSFT"]
	if len(row) != 8 || row[0] != "5Min" {
		t.Fatalf("unexpected stored row %v", row)
	}
}

func TestCreateInvalidZerodayReturnsFieldErrors(t *testing.T) {
	a := newTestApp(t)
	a.login(t)

	body := `{"symbol":"SPX","timeframe":"1Min","schwab_quantity":1,"trend_line_1":"EMA","period_1":20,
		"trend_line_2":"EMA","period_2":10,"call_enabled":false,"put_enabled":false}`
	env := a.do(t, http.MethodPost, "/api/strategies/zeroday/tickers", body)
	if env.Status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %+v", env)
	}
	for _, field := range []string{"period_2", "call_enabled"} {
		if !strings.Contains(string(env.Data), `"field":"`+field+`"`) {
			t.Fatalf("missing %s error in %s", field, env.Data)
		}
	}
	if a.srv.CallCount("/api/add-ticker") != 0 {
		t.Fatalf("invalid form reached the backend")
	}
}

func TestEditConflictsAndUnknownKind(t *testing.T) {
	a := newTestApp(t)
	a.srv.SetTickers(models.StrategyEMA, schema.Collection{"AAPL": {"1Day", "10", "TRUE", "5", "EMA", "9", "SMA", "21"}})
	a.login(t)

	if env := a.do(t, http.MethodGet, "/api/strategies/forex/tickers", ""); env.Status != http.StatusNotFound {
		t.Fatalf("expected 404, got %+v", env)
	}
	if env := a.do(t, http.MethodPost, "/api/strategies/ema/tickers/AAPL/cancel", ""); env.Status != http.StatusConflict {
		t.Fatalf("expected 409, got %+v", env)
	}

	a.do(t, http.MethodGet, "/api/strategies/ema/tickers", "")
	if env := a.do(t, http.MethodPost, "/api/strategies/ema/tickers/AAPL/edit", ""); env.Status != http.StatusOK {
		t.Fatalf("edit: %+v", env)
	}
	body := `{"timeframe":"1Day","schwab_quantity":10,"tastytrade_quantity":5,"trade_enabled":false,
		"trend_line_1":"EMA","period_1":9,"trend_line_2":"SMA","period_2":21}`
	if env := a.do(t, http.MethodPost, "/api/strategies/ema/tickers/AAPL/commit", body); env.Status != http.StatusOK {
		t.Fatalf("commit: %+v %s", env, env.Data)
	}
	if row := a.srv.Tickers(models.StrategyEMA)["AAPL"]; row[2] != "FALSE" {
		t.Fatalf("commit not stored: %v", row)
	}
}

func TestBackendFailureIsBadGateway(t *testing.T) {
	a := newTestApp(t)
	a.srv.SetTickers(models.StrategyZeroday, schema.Collection{"SPX": {"1Min", "1", "TRUE", "1", "EMA", "5", "EMA", "20", "TRUE", "TRUE"}})
	a.login(t)
	a.srv.Fail("/api/delete-ticker", 0, "")

	env := a.do(t, http.MethodDelete, "/api/strategies/zeroday/tickers/SPX", "")
	if env.Status != http.StatusBadGateway || !strings.Contains(string(env.Data), "Failed to delete ticker") {
		t.Fatalf("unexpected envelope %+v %s", env, env.Data)
	}
	if _, ok := a.srv.Tickers(models.StrategyZeroday)["SPX"]; !ok {
		t.Fatalf("ticker removed despite failure")
	}
}

func TestSchemaEndpoint(t *testing.T) {
	a := newTestApp(t)
	a.login(t)
	env := a.do(t, http.MethodGet, "/api/strategies/zeroday/schema", "")
	var s schema.Schema
	if err := json.Unmarshal(env.Data, &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Kind != models.StrategyZeroday || len(s.Fields) != 10 || s.Fields[8].Name != "call_enabled" {
		t.Fatalf("unexpected schema %+v", s)
	}
}

func TestManualTriggerValidation(t *testing.T) {
	a := newTestApp(t)
	a.login(t)
	if env := a.do(t, http.MethodPost, "/api/strategies/zeroday/trigger", `{"action":"buy"}`); env.Status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %+v", env)
	}
	if env := a.do(t, http.MethodPost, "/api/strategies/zeroday/trigger", `{"action":"close"}`); env.Status != http.StatusOK {
		t.Fatalf("trigger: %+v %s", env, env.Data)
	}
	if body := a.srv.LastBody("/api/manual-trigger"); body["symbol"] != "SPX" {
		t.Fatalf("symbol default not applied: %v", body)
	}
}

func TestBrokerAccessToken(t *testing.T) {
	a := newTestApp(t)
	a.login(t)
	env := a.do(t, http.MethodPost, "/api/brokers/tasty/access-token", `{"value":"code"}`)
	if env.Status != http.StatusOK || !strings.Contains(string(env.Data), `"tastytrade":true`) {
		t.Fatalf("unexpected envelope %+v %s", env, env.Data)
	}
	if env := a.do(t, http.MethodGet, "/api/brokers/etrade/authorize-url", ""); env.Status != http.StatusNotFound {
		t.Fatalf("expected 404, got %+v", env)
	}
}

func TestNotificationsFeedAndStream(t *testing.T) {
	a := newTestApp(t)
	a.login(t)

	env := a.do(t, http.MethodGet, "/api/notifications?limit=5", "")
	var list []models.Notification
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) == 0 || list[0].Op != "login" {
		t.Fatalf("unexpected feed %+v", list)
	}

	ts := httptest.NewServer(a.e)
	defer ts.Close()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/notifications", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for a.hub.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	a.hub.Success("test", "hello")

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var n models.Notification
	if err := conn.ReadJSON(&n); err != nil {
		t.Fatalf("read: %v", err)
	}
	if n.Op != "test" || n.Message != "hello" || n.Level != models.LevelSuccess {
		t.Fatalf("unexpected notification %+v", n)
	}
}
