package api

import (
	"TradeDesk/internal/domain/models"
	"TradeDesk/internal/usecase"
	xhttp "TradeDesk/pkg/http"
	applogger "TradeDesk/pkg/logger"

	"github.com/labstack/echo/v4"
)

type BrokersHandler struct {
	brokers *usecase.BrokerService
	log     *applogger.Logger
}

func NewBrokersHandler(brokers *usecase.BrokerService, log *applogger.Logger) *BrokersHandler {
	return &BrokersHandler{brokers: brokers, log: log}
}

func (h *BrokersHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/brokers/status", h.Status)
	g.GET("/brokers/refresh-token-link", h.RefreshTokenState)
	g.POST("/brokers/refresh-token-link", h.RefreshTokenLink)
	g.POST("/brokers/tastytrade/refresh", h.RefreshTastytrade)
	g.GET("/brokers/:broker/authorize-url", h.AuthorizeURL)
	g.POST("/brokers/:broker/access-token", h.AccessToken)
}

func brokerParam(c echo.Context) (models.Broker, error) {
	b, ok := models.ParseBroker(c.Param("broker"))
	if !ok {
		return "", xhttp.NotFoundErrorf("unknown broker %q", c.Param("broker"))
	}
	return b, nil
}

func (h *BrokersHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.brokers.Status())
}

func (h *BrokersHandler) AuthorizeURL(c echo.Context) error {
	b, err := brokerParam(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	u, err := h.brokers.AuthorizeURL(c.Request().Context(), b)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"url": u})
}

func (h *BrokersHandler) AccessToken(c echo.Context) error {
	b, err := brokerParam(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	req := &models.AccessTokenRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.brokers.ExchangeToken(c.Request().Context(), b, req.Value); err != nil {
		return respondError(c, h.log, err)
	}
	return xhttp.SuccessResponse(c, h.brokers.Status())
}

func (h *BrokersHandler) RefreshTastytrade(c echo.Context) error {
	if err := h.brokers.RefreshTastytrade(c.Request().Context()); err != nil {
		return respondError(c, h.log, err)
	}
	return xhttp.SuccessResponse(c, nil)
}

func (h *BrokersHandler) RefreshTokenLink(c echo.Context) error {
	req := &models.RefreshTokenLinkRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	st, err := h.brokers.ValidateRefreshTokenLink(c.Request().Context(), req.Link)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return xhttp.SuccessResponse(c, st)
}

func (h *BrokersHandler) RefreshTokenState(c echo.Context) error {
	st, err := h.brokers.RefreshToken(c.Request().Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return xhttp.SuccessResponse(c, st)
}
