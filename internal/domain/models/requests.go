package models

// Requests for the dashboard HTTP endpoints.

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ChangeEmailRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewEmail        string `json:"new_email" validate:"required,email"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,nefield=CurrentPassword"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

type AccessTokenRequest struct {
	// Schwab expects the full redirect link, Tastytrade the bare code.
	Value string `json:"value" validate:"required"`
}

type RefreshTokenLinkRequest struct {
	Link string `json:"refresh_token_link" validate:"required"`
}

type ManualTriggerRequest struct {
	Action     string  `json:"action" validate:"required,oneof=call put close"`
	Symbol     string  `json:"symbol" default:"SPX" validate:"eq=SPX"`
	Strike     float64 `json:"strike,omitempty" validate:"gte=0"`
	Expiration string  `json:"expiration,omitempty"`
}

type NotificationsRequest struct {
	Limit int `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=500"`
}

// TickerView is the API shape of a strategy collection.
type TickerView struct {
	Strategy StrategyKind `json:"strategy"`
	Title    string       `json:"title"`
	Revision uint64       `json:"revision"`
	Rows     []Ticker     `json:"rows"`
}
