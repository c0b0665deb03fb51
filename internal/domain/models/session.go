package models

import "time"

// Broker names a brokerage integration.
type Broker string

const (
	BrokerSchwab     Broker = "schwab"
	BrokerTastytrade Broker = "tastytrade"
)

// ParseBroker accepts "tasty" as shorthand for tastytrade.
func ParseBroker(s string) (Broker, bool) {
	switch s {
	case "schwab":
		return BrokerSchwab, true
	case "tastytrade", "tasty":
		return BrokerTastytrade, true
	}
	return "", false
}

// Session is the authenticated identity plus the bearer credential.
type Session struct {
	Email     string    `json:"email"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Connections is the advisory brokerage connectivity view.
type Connections struct {
	Schwab     bool `json:"schwab"`
	Tastytrade bool `json:"tastytrade"`
}

// LoginResult is what the backend reports on a successful login.
type LoginResult struct {
	Token        string
	RefreshToken string
	// Connections is nil when the backend did not report connectivity.
	Connections *Connections
}
