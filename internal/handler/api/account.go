package api

import (
	"TradeDesk/internal/domain/models"
	"TradeDesk/internal/usecase"
	xhttp "TradeDesk/pkg/http"
	applogger "TradeDesk/pkg/logger"

	"github.com/labstack/echo/v4"
)

type AccountHandler struct {
	account  *usecase.AccountService
	sessions *usecase.SessionStore
	log      *applogger.Logger
}

func NewAccountHandler(account *usecase.AccountService, sessions *usecase.SessionStore, log *applogger.Logger) *AccountHandler {
	return &AccountHandler{account: account, sessions: sessions, log: log}
}

func (h *AccountHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/account/email", h.ChangeEmail)
	g.POST("/account/password", h.ChangePassword)
}

func (h *AccountHandler) ChangeEmail(c echo.Context) error {
	req := &models.ChangeEmailRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.account.ChangeEmail(c.Request().Context(), req.CurrentPassword, req.NewEmail); err != nil {
		return respondError(c, h.log, err)
	}
	return h.current(c)
}

func (h *AccountHandler) ChangePassword(c echo.Context) error {
	req := &models.ChangePasswordRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.account.ChangePassword(c.Request().Context(), req.CurrentPassword, req.NewPassword); err != nil {
		return respondError(c, h.log, err)
	}
	return h.current(c)
}

func (h *AccountHandler) current(c echo.Context) error {
	sess, err := h.sessions.Current()
	if err != nil {
		return respondError(c, h.log, err)
	}
	return xhttp.SuccessResponse(c, map[string]string{"email": sess.Email})
}
