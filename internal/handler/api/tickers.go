package api

import (
	"context"
	"encoding/json"
	"strings"

	"TradeDesk/internal/domain/models"
	"TradeDesk/internal/schema"
	"TradeDesk/internal/usecase"
	xhttp "TradeDesk/pkg/http"
	applogger "TradeDesk/pkg/logger"

	"github.com/labstack/echo/v4"
)

// TickersHandler serves the per-strategy parameter tables and toolbars.
type TickersHandler struct {
	sync    *usecase.TickerSync
	editor  *usecase.TickerEditor
	trading *usecase.TradingControl
	log     *applogger.Logger
}

func NewTickersHandler(sync *usecase.TickerSync, editor *usecase.TickerEditor, trading *usecase.TradingControl, log *applogger.Logger) *TickersHandler {
	return &TickersHandler{sync: sync, editor: editor, trading: trading, log: log}
}

func (h *TickersHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/strategies", h.Strategies)
	g.POST("/strategies/zeroday/trigger", h.Trigger)

	s := g.Group("/strategies/:kind")
	s.GET("/schema", h.Schema)
	s.GET("/tickers", h.List)
	s.POST("/tickers", h.Create)
	s.PUT("/tickers/:symbol", h.Update)
	s.DELETE("/tickers/:symbol", h.Delete)
	s.POST("/tickers/:symbol/edit", h.Edit)
	s.POST("/tickers/:symbol/cancel", h.Cancel)
	s.POST("/tickers/:symbol/commit", h.Commit)
	s.POST("/tickers/:symbol/toggle", h.Toggle)
	s.POST("/start", h.Start)
	s.POST("/stop", h.Stop)
}

func kindParam(c echo.Context) (models.StrategyKind, error) {
	k, err := models.ParseStrategyKind(c.Param("kind"))
	if err != nil {
		return "", xhttp.NotFoundErrorf("unknown strategy %q", c.Param("kind"))
	}
	return k, nil
}

func symbolParam(c echo.Context) string {
	return strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
}

// bindTicker decodes the request body into the record type of kind.
func bindTicker(c echo.Context, kind models.StrategyKind) (models.Ticker, error) {
	t := models.NewTicker(kind)
	if err := json.NewDecoder(c.Request().Body).Decode(t); err != nil {
		return nil, xhttp.BadRequestErrorf("invalid %s ticker: %v", kind, err)
	}
	b := t.Base()
	b.Symbol = strings.ToUpper(strings.TrimSpace(b.Symbol))
	b.Timeframe = schema.NormalizeTimeframe(b.Timeframe)
	return t, nil
}

func (h *TickersHandler) view(kind models.StrategyKind, rows []models.Ticker, revision uint64) *models.TickerView {
	if rows == nil {
		rows = []models.Ticker{}
	}
	return &models.TickerView{Strategy: kind, Title: kind.Title(), Revision: revision, Rows: rows}
}

func (h *TickersHandler) reply(c echo.Context, kind models.StrategyKind, rows []models.Ticker, err error) error {
	if err != nil {
		return respondError(c, h.log, err)
	}
	_, rev := h.sync.Cached(kind)
	return xhttp.SuccessResponse(c, h.view(kind, rows, rev))
}

func (h *TickersHandler) Strategies(c echo.Context) error {
	return xhttp.SuccessResponse(c, schema.All())
}

func (h *TickersHandler) Schema(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	s, err := schema.For(kind)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return xhttp.SuccessResponse(c, s)
}

// List fetches from the backend; ?cached=true serves the last loaded copy.
func (h *TickersHandler) List(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if c.QueryParam("cached") == "true" {
		rows, rev := h.sync.Cached(kind)
		return xhttp.SuccessResponse(c, h.view(kind, rows, rev))
	}
	rows, err := h.sync.Fetch(c.Request().Context(), kind)
	return h.reply(c, kind, rows, err)
}

func (h *TickersHandler) Create(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	t, err := bindTicker(c, kind)
	if err != nil {
		return respondError(c, h.log, err)
	}
	rows, err := h.editor.Create(c.Request().Context(), kind, t)
	return h.reply(c, kind, rows, err)
}

// Update uses the legacy full-record endpoint.
func (h *TickersHandler) Update(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	t, err := bindTicker(c, kind)
	if err != nil {
		return respondError(c, h.log, err)
	}
	t.Base().Symbol = symbolParam(c)
	if err := h.editor.ValidateForm(kind, t); err != nil {
		return respondError(c, h.log, err)
	}
	rows, err := h.sync.UpdateLegacy(c.Request().Context(), kind, t)
	return h.reply(c, kind, rows, err)
}

func (h *TickersHandler) Delete(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	rows, err := h.sync.Delete(c.Request().Context(), kind, symbolParam(c))
	return h.reply(c, kind, rows, err)
}

func (h *TickersHandler) Edit(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	es, err := h.editor.Begin(kind, symbolParam(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return xhttp.SuccessResponse(c, es)
}

func (h *TickersHandler) Cancel(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.editor.Cancel(kind, symbolParam(c)); err != nil {
		return respondError(c, h.log, err)
	}
	return xhttp.SuccessResponse(c, map[string]usecase.EditState{"state": usecase.StateViewing})
}

func (h *TickersHandler) Commit(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	t, err := bindTicker(c, kind)
	if err != nil {
		return respondError(c, h.log, err)
	}
	rows, err := h.editor.Commit(c.Request().Context(), kind, symbolParam(c), t)
	return h.reply(c, kind, rows, err)
}

func (h *TickersHandler) Toggle(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	rows, err := h.editor.Toggle(c.Request().Context(), kind, symbolParam(c))
	return h.reply(c, kind, rows, err)
}

func (h *TickersHandler) Start(c echo.Context) error {
	return h.toggleTrading(c, h.trading.Start)
}

func (h *TickersHandler) Stop(c echo.Context) error {
	return h.toggleTrading(c, h.trading.Stop)
}

func (h *TickersHandler) toggleTrading(c echo.Context, run func(context.Context, models.StrategyKind) (string, error)) error {
	kind, err := kindParam(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	msg, err := run(c.Request().Context(), kind)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"message": msg})
}

func (h *TickersHandler) Trigger(c echo.Context) error {
	req := &models.ManualTriggerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	msg, err := h.trading.ManualTrigger(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"message": msg})
}
