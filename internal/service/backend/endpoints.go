package backend

import (
	"context"
	"errors"
	"strings"
	"time"

	"TradeDesk/internal/domain/models"
	"TradeDesk/internal/schema"
	xhttp "TradeDesk/pkg/http"
)

func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResult, error) {
	env, err := c.do(ctx, call{
		op:       "login",
		method:   xhttp.MethodPost,
		path:     "/api/login",
		body:     map[string]string{"email": email, "password": password},
		fallback: "Login failed",
	})
	if err != nil {
		return nil, err
	}
	if env.Token == "" {
		return nil, c.fail(&Error{Op: "login", Message: "Login failed: no token issued"})
	}

	res := &models.LoginResult{Token: env.Token, RefreshToken: env.RefreshToken}
	if env.SchwabConnected != nil || env.TastyConnected != nil {
		res.Connections = &models.Connections{
			Schwab:     env.SchwabConnected != nil && *env.SchwabConnected,
			Tastytrade: env.TastyConnected != nil && *env.TastyConnected,
		}
	}
	return res, nil
}

func (c *Client) GetTickers(ctx context.Context, token string, kind models.StrategyKind) (schema.Collection, int, error) {
	env, err := c.do(ctx, call{
		op:       "get_ticker",
		method:   xhttp.MethodGet,
		path:     "/api/get-ticker",
		token:    token,
		query:    map[string][]string{"strategy": {kind.String()}},
		fallback: "Failed to load " + kind.String() + " tickers",
	})
	if err != nil {
		return nil, 0, err
	}
	if env.Data == nil {
		env.Data = schema.Collection{}
	}
	return env.Data, env.SchemaVersion, nil
}

// AddTicker creates or replaces the record named by fields["symbol"]. The
// returned collection is nil when the backend did not echo it.
func (c *Client) AddTicker(ctx context.Context, token string, kind models.StrategyKind, fields map[string]any) (schema.Collection, int, error) {
	body := withStrategy(kind, fields)
	env, err := c.do(ctx, call{
		op:       "add_ticker",
		method:   xhttp.MethodPost,
		path:     "/api/add-ticker",
		token:    token,
		body:     body,
		fallback: "Failed to save ticker",
	})
	if err != nil {
		return nil, 0, err
	}
	return env.Data, env.SchemaVersion, nil
}

// UpdateTicker is the legacy full-record update path.
func (c *Client) UpdateTicker(ctx context.Context, token string, kind models.StrategyKind, fields map[string]any) error {
	_, err := c.do(ctx, call{
		op:       "update_ticker",
		method:   xhttp.MethodPut,
		path:     "/api/update-ticker",
		token:    token,
		body:     withStrategy(kind, fields),
		fallback: "Failed to update ticker",
	})
	return err
}

func (c *Client) DeleteTicker(ctx context.Context, token string, kind models.StrategyKind, symbol string) (schema.Collection, int, error) {
	env, err := c.do(ctx, call{
		op:       "delete_ticker",
		method:   xhttp.MethodDelete,
		path:     "/api/delete-ticker",
		token:    token,
		body:     map[string]string{"strategy": kind.String(), "symbol": symbol},
		fallback: "Failed to delete ticker",
	})
	if err != nil {
		return nil, 0, err
	}
	return env.Data, env.SchemaVersion, nil
}

func (c *Client) StartTrading(ctx context.Context, token string, kind models.StrategyKind) (string, error) {
	return c.toggleTrading(ctx, token, kind, "start")
}

func (c *Client) StopTrading(ctx context.Context, token string, kind models.StrategyKind) (string, error) {
	return c.toggleTrading(ctx, token, kind, "stop")
}

func (c *Client) toggleTrading(ctx context.Context, token string, kind models.StrategyKind, verb string) (string, error) {
	env, err := c.do(ctx, call{
		op:       verb + "_trading",
		method:   xhttp.MethodGet,
		path:     "/api/" + verb + "-trading",
		token:    token,
		query:    map[string][]string{"strategy": {kind.String()}},
		fallback: "Failed to " + verb + " trading",
	})
	if err != nil {
		return "", err
	}
	return env.text(), nil
}

func (c *Client) ManualTrigger(ctx context.Context, token string, req *models.ManualTriggerRequest) (string, error) {
	body := map[string]any{"action": req.Action, "symbol": req.Symbol}
	if req.Strike > 0 {
		body["strike"] = req.Strike
	}
	if req.Expiration != "" {
		body["expiration"] = req.Expiration
	}
	env, err := c.do(ctx, call{
		op:       "manual_trigger",
		method:   xhttp.MethodPost,
		path:     c.triggerPath,
		token:    token,
		body:     body,
		fallback: "Failed to execute trade",
	})
	if err != nil {
		return "", err
	}
	if msg := env.text(); msg != "" {
		return msg, nil
	}
	return "Trade executed successfully", nil
}

// AuthorizeURL returns the brokerage OAuth URL. The backend answers with the
// URL as plain text rather than a JSON envelope.
func (c *Client) AuthorizeURL(ctx context.Context, token string, broker models.Broker) (string, error) {
	op := "authorize_url_" + string(broker)
	cl := call{
		op:       op,
		method:   xhttp.MethodGet,
		path:     "/api/" + brokerPath(broker) + "/authorize-url",
		token:    token,
		fallback: "Failed to fetch authorization URL",
	}
	start := time.Now()
	var raw []byte
	err := c.http.SendAndParse(ctx, c.request(cl), &raw)
	c.observe(op, start, err)
	if err != nil {
		status := 0
		var se *xhttp.StatusError
		if errors.As(err, &se) {
			status = se.Status
		}
		return "", c.fail(&Error{Op: op, Status: status, Message: cl.fallback, Err: err})
	}
	u := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if u == "" {
		return "", c.fail(&Error{Op: op, Message: "empty authorization URL"})
	}
	return u, nil
}

// AccessToken exchanges the OAuth result for broker tokens. Schwab takes the
// full redirect link, Tastytrade the bare authorization code.
func (c *Client) AccessToken(ctx context.Context, token string, broker models.Broker, value string) (string, error) {
	body := map[string]string{"authorizationLink": value}
	name := "Schwab"
	if broker == models.BrokerTastytrade {
		body = map[string]string{"authorizationCode": value}
		name = "TastyTrade"
	}
	_, err := c.do(ctx, call{
		op:       "access_token_" + string(broker),
		method:   xhttp.MethodPost,
		path:     "/api/" + brokerPath(broker) + "/access-token",
		token:    token,
		body:     body,
		fallback: "Connection to " + name + " failed",
	})
	if err != nil {
		return "", err
	}
	return "Connection to " + name + " successful!", nil
}

func (c *Client) RefreshTastytrade(ctx context.Context, token string) error {
	_, err := c.do(ctx, call{
		op:       "tasty_refresh_token",
		method:   xhttp.MethodPost,
		path:     "/api/tasty/refresh-token",
		token:    token,
		fallback: "Failed to refresh TastyTrade token",
	})
	return err
}

func (c *Client) RefreshTokenLink(ctx context.Context, token, link string) (string, error) {
	env, err := c.do(ctx, call{
		op:       "refresh_token_link",
		method:   xhttp.MethodPost,
		path:     "/api/refresh-token-link",
		token:    token,
		body:     map[string]string{"refresh_token_link": link},
		fallback: "Token validation failed",
	})
	if err != nil {
		return "", err
	}
	return env.text(), nil
}

// UpdateCredentials changes the account email or password. creds carries
// currentPassword plus newEmail or newPassword.
func (c *Client) UpdateCredentials(ctx context.Context, token string, creds map[string]string) error {
	fallback := "Failed to update password"
	if _, ok := creds["newEmail"]; ok {
		fallback = "Failed to update email"
	}
	_, err := c.do(ctx, call{
		op:       "update_credentials",
		method:   xhttp.MethodPost,
		path:     "/api/update-credentials",
		token:    token,
		body:     creds,
		fallback: fallback,
	})
	return err
}

func withStrategy(kind models.StrategyKind, fields map[string]any) map[string]any {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["strategy"] = kind.String()
	return body
}

func brokerPath(b models.Broker) string {
	if b == models.BrokerTastytrade {
		return "tasty"
	}
	return "schwab"
}
