package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	domrepo "TradeDesk/internal/domain/repository"
	"TradeDesk/internal/schema"
	xhttp "TradeDesk/pkg/http"
	applogger "TradeDesk/pkg/logger"
)

// Error is the single failure type for backend calls. Transport failures,
// non-2xx responses and success:false bodies all surface as *Error.
type Error struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("backend %s (%d): %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("backend %s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Config holds backend client settings.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	ManualTriggerPath string
}

// Client talks to the trading backend over bearer-authenticated JSON.
type Client struct {
	http        *xhttp.Client
	baseURL     string
	triggerPath string
	log         *applogger.Logger
	metrics     domrepo.Metrics
}

var _ domrepo.TradingBackend = (*Client)(nil)

// New creates a backend client. metrics may be nil.
func New(cfg Config, log *applogger.Logger, metrics domrepo.Metrics, opts ...xhttp.ClientOption) *Client {
	if cfg.Timeout > 0 {
		opts = append([]xhttp.ClientOption{xhttp.WithTimeout(cfg.Timeout)}, opts...)
	}
	if cfg.ManualTriggerPath == "" {
		cfg.ManualTriggerPath = "/api/manual-trigger"
	}
	return &Client{
		http:        xhttp.NewClient(opts...),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		triggerPath: cfg.ManualTriggerPath,
		log:         log,
		metrics:     metrics,
	}
}

type envelope struct {
	Success         bool              `json:"success"`
	Message         string            `json:"message"`
	Error           string            `json:"error"`
	Token           string            `json:"token"`
	RefreshToken    string            `json:"refreshToken"`
	SchwabConnected *bool             `json:"schwab_connected"`
	TastyConnected  *bool             `json:"tasty_connected"`
	SchemaVersion   int               `json:"schema_version"`
	Data            schema.Collection `json:"data"`
}

func (e *envelope) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

type call struct {
	op       string
	method   string
	path     string
	token    string
	query    map[string][]string
	body     interface{}
	fallback string
}

func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + path
}

func (c *Client) request(cl call) *xhttp.RequestOptions {
	headers := map[string]string{"Accept": "application/json"}
	if cl.token != "" {
		headers["Authorization"] = "Bearer " + cl.token
	}
	return &xhttp.RequestOptions{
		Method:      cl.method,
		URL:         c.url(cl.path),
		Headers:     headers,
		QueryParams: cl.query,
		Body:        cl.body,
	}
}

// do runs one JSON call and collapses every failure class into *Error.
func (c *Client) do(ctx context.Context, cl call) (*envelope, error) {
	start := time.Now()
	var raw []byte
	err := c.http.SendAndParse(ctx, c.request(cl), &raw)
	c.observe(cl.op, start, err)

	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) {
			msg := cl.fallback
			var env envelope
			if json.Unmarshal(se.Body, &env) == nil && env.text() != "" {
				msg = env.text()
			}
			return nil, c.fail(&Error{Op: cl.op, Status: se.Status, Message: msg, Err: err})
		}
		if ctx.Err() != nil {
			return nil, c.fail(&Error{Op: cl.op, Message: "request cancelled", Err: ctx.Err()})
		}
		return nil, c.fail(&Error{Op: cl.op, Message: "network error: " + cl.fallback, Err: err})
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, c.fail(&Error{Op: cl.op, Message: "malformed response: " + cl.fallback, Err: err})
	}
	if !env.Success {
		msg := env.text()
		if msg == "" {
			msg = cl.fallback
		}
		return nil, c.fail(&Error{Op: cl.op, Message: msg})
	}
	return &env, nil
}

func (c *Client) observe(op string, start time.Time, err error) {
	took := time.Since(start)
	c.log.Debug("backend call", applogger.String("op", op), applogger.Duration("took", took), applogger.Bool("ok", err == nil))
	if c.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.metrics.RecordCall(op, result)
	c.metrics.RecordLatency("backend."+op, took.Seconds())
}

func (c *Client) fail(e *Error) error {
	c.log.Warn("backend call failed",
		applogger.String("op", e.Op),
		applogger.Int("status", e.Status),
		applogger.String("message", e.Message),
		applogger.Error(e.Err),
	)
	return e
}
