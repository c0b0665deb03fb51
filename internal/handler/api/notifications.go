package api

import (
	"net/http"
	"time"

	"TradeDesk/internal/domain/models"
	xhttp "TradeDesk/pkg/http"
	applogger "TradeDesk/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// NotificationFeed is the read side of the notification hub.
type NotificationFeed interface {
	Recent(limit int) []models.Notification
	Subscribe() (<-chan models.Notification, func())
}

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

type NotificationsHandler struct {
	feed     NotificationFeed
	upgrader websocket.Upgrader
	log      *applogger.Logger
}

// NewNotificationsHandler creates the handler. allowOrigins limits websocket
// origins; empty or "*" accepts any.
func NewNotificationsHandler(feed NotificationFeed, allowOrigins []string, log *applogger.Logger) *NotificationsHandler {
	h := &NotificationsHandler{feed: feed, log: log}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowOrigins),
	}
	return h
}

func (h *NotificationsHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/notifications", h.List)
}

func (h *NotificationsHandler) List(c echo.Context) error {
	req := &models.NotificationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.feed.Recent(req.Limit))
}

// Stream pushes every new notification to a websocket client until it
// disconnects.
func (h *NotificationsHandler) Stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", applogger.Error(err))
		return nil
	}
	defer conn.Close()

	ch, cancel := h.feed.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return nil
		case n, ok := <-ch:
			if !ok {
				return nil
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(n); err != nil {
				h.log.Debug("websocket write failed", applogger.Error(err))
				return nil
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}

func originChecker(allow []string) func(r *http.Request) bool {
	if len(allow) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allow))
	for _, o := range allow {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}
