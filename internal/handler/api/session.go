package api

import (
	"time"

	"TradeDesk/internal/domain/models"
	"TradeDesk/internal/service/ratelimit"
	"TradeDesk/internal/usecase"
	xhttp "TradeDesk/pkg/http"
	applogger "TradeDesk/pkg/logger"

	"github.com/labstack/echo/v4"
)

type SessionHandler struct {
	sessions *usecase.SessionStore
	conns    *usecase.ConnectionTracker
	params   *usecase.ParamStore
	editor   *usecase.TickerEditor
	limiter  *ratelimit.Limiter
	log      *applogger.Logger
}

func NewSessionHandler(
	sessions *usecase.SessionStore,
	conns *usecase.ConnectionTracker,
	params *usecase.ParamStore,
	editor *usecase.TickerEditor,
	limiter *ratelimit.Limiter,
	log *applogger.Logger,
) *SessionHandler {
	return &SessionHandler{sessions: sessions, conns: conns, params: params, editor: editor, limiter: limiter, log: log}
}

func (h *SessionHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/session/login", h.Login)
	g.POST("/session/logout", h.Logout)
	g.GET("/session", h.Current)
}

// SessionView is the API shape of the current session. The token itself is
// never exposed.
type SessionView struct {
	Email       string             `json:"email"`
	ExpiresAt   *time.Time         `json:"expires_at,omitempty"`
	Connections models.Connections `json:"connections"`
}

func (h *SessionHandler) view(s *models.Session) *SessionView {
	v := &SessionView{Email: s.Email, Connections: h.conns.Status()}
	if !s.ExpiresAt.IsZero() {
		exp := s.ExpiresAt
		v.ExpiresAt = &exp
	}
	return v
}

func (h *SessionHandler) Login(c echo.Context) error {
	if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("Too many login attempts, try again later"))
	}
	req := &models.LoginRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	sess, err := h.sessions.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if h.limiter != nil {
		h.limiter.Reset(c.RealIP())
	}
	return xhttp.SuccessResponse(c, h.view(sess))
}

func (h *SessionHandler) Logout(c echo.Context) error {
	h.sessions.Logout(c.Request().Context())
	h.params.Clear()
	h.editor.Reset()
	return xhttp.SuccessResponse(c, nil)
}

func (h *SessionHandler) Current(c echo.Context) error {
	sess, err := h.sessions.Current()
	if err != nil {
		return respondError(c, h.log, err)
	}
	return xhttp.SuccessResponse(c, h.view(sess))
}
