package api

import (
	"TradeDesk/internal/usecase"
	xhttp "TradeDesk/pkg/http"

	"github.com/labstack/echo/v4"
)

// Router mounts every dashboard endpoint.
type Router struct {
	session       *SessionHandler
	tickers       *TickersHandler
	brokers       *BrokersHandler
	account       *AccountHandler
	notifications *NotificationsHandler
	sessions      *usecase.SessionStore
}

var _ xhttp.Handler = (*Router)(nil)

func NewRouter(
	sessions *usecase.SessionStore,
	session *SessionHandler,
	tickers *TickersHandler,
	brokers *BrokersHandler,
	account *AccountHandler,
	notifications *NotificationsHandler,
) *Router {
	return &Router{
		session:       session,
		tickers:       tickers,
		brokers:       brokers,
		account:       account,
		notifications: notifications,
		sessions:      sessions,
	}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	r.session.RegisterRoutes(g)

	authed := g.Group("", RequireSession(r.sessions))
	r.tickers.RegisterRoutes(authed)
	r.brokers.RegisterRoutes(authed)
	r.account.RegisterRoutes(authed)

	r.notifications.RegisterRoutes(g)
	e.GET("/ws/notifications", r.notifications.Stream)
}

// RequireSession rejects requests made while no one is logged in.
func RequireSession(sessions *usecase.SessionStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := sessions.Token(); err != nil {
				return xhttp.AppErrorResponse(c, xhttp.UnauthorizedError("Authentication required"))
			}
			return next(c)
		}
	}
}
