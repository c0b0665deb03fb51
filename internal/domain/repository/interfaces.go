package repository

import (
	"context"

	"TradeDesk/internal/domain/models"
	"TradeDesk/internal/schema"
)

// TradingBackend is every call the dashboard makes to the trading backend.
// token is the bearer credential of the current session.
type TradingBackend interface {
	Login(ctx context.Context, email, password string) (*models.LoginResult, error)

	GetTickers(ctx context.Context, token string, kind models.StrategyKind) (schema.Collection, int, error)
	AddTicker(ctx context.Context, token string, kind models.StrategyKind, fields map[string]any) (schema.Collection, int, error)
	UpdateTicker(ctx context.Context, token string, kind models.StrategyKind, fields map[string]any) error
	DeleteTicker(ctx context.Context, token string, kind models.StrategyKind, symbol string) (schema.Collection, int, error)

	StartTrading(ctx context.Context, token string, kind models.StrategyKind) (string, error)
	StopTrading(ctx context.Context, token string, kind models.StrategyKind) (string, error)
	ManualTrigger(ctx context.Context, token string, req *models.ManualTriggerRequest) (string, error)

	AuthorizeURL(ctx context.Context, token string, broker models.Broker) (string, error)
	AccessToken(ctx context.Context, token string, broker models.Broker, value string) (string, error)
	RefreshTastytrade(ctx context.Context, token string) error
	RefreshTokenLink(ctx context.Context, token, link string) (string, error)

	UpdateCredentials(ctx context.Context, token string, creds map[string]string) error
}

// StateStore persists the client-side session state between restarts.
type StateStore interface {
	SaveSession(ctx context.Context, s *models.Session) error
	LoadSession(ctx context.Context) (*models.Session, error)
	ClearSession(ctx context.Context) error

	SaveConnections(ctx context.Context, c models.Connections) error
	LoadConnections(ctx context.Context) (models.Connections, error)

	SaveRefreshToken(ctx context.Context, link string, validated bool) error
	LoadRefreshToken(ctx context.Context) (string, bool, error)
}

// Notifier raises user-visible notifications.
type Notifier interface {
	Publish(n models.Notification)
}

// ChangePublisher emits audit records for successful parameter mutations.
type ChangePublisher interface {
	PublishChange(ctx context.Context, c *models.TickerChange) error
	Close() error
}

type Metrics interface {
	RecordCall(endpoint, result string)
	RecordDecodeError(strategy string)
	RecordNotification(level string)
	RecordLatency(op string, seconds float64)
}
