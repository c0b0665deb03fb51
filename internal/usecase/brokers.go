package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"TradeDesk/internal/domain/models"
	domrepo "TradeDesk/internal/domain/repository"
	applogger "TradeDesk/pkg/logger"
)

var ErrEmptyTokenLink = errors.New("token link is required")

// RefreshTokenState is the persisted brokerage refresh token and whether the
// backend accepted it.
type RefreshTokenState struct {
	Link      string `json:"refresh_token_link"`
	Validated bool   `json:"token_validated"`
}

// BrokerService runs the brokerage connection flows.
type BrokerService struct {
	backend  domrepo.TradingBackend
	session  *SessionStore
	conns    *ConnectionTracker
	state    domrepo.StateStore
	notifier domrepo.Notifier
	log      *applogger.Logger
}

func NewBrokerService(
	backend domrepo.TradingBackend,
	session *SessionStore,
	conns *ConnectionTracker,
	state domrepo.StateStore,
	notifier domrepo.Notifier,
	log *applogger.Logger,
) *BrokerService {
	return &BrokerService{backend: backend, session: session, conns: conns, state: state, notifier: notifier, log: log}
}

func (b *BrokerService) Status() models.Connections {
	return b.conns.Status()
}

func (b *BrokerService) AuthorizeURL(ctx context.Context, broker models.Broker) (string, error) {
	op := "authorize_" + string(broker)
	token, err := b.session.Token()
	if err != nil {
		notifyFailure(b.notifier, op, err)
		return "", err
	}
	u, err := b.backend.AuthorizeURL(ctx, token, broker)
	if err != nil {
		notifyFailure(b.notifier, op, err)
		return "", fmt.Errorf("authorize url %s: %w", broker, err)
	}
	return u, nil
}

// ExchangeToken completes the OAuth flow. Schwab takes the redirect link,
// Tastytrade the authorization code. Success marks the broker connected.
func (b *BrokerService) ExchangeToken(ctx context.Context, broker models.Broker, value string) error {
	op := "access_token_" + string(broker)
	token, err := b.session.Token()
	if err != nil {
		notifyFailure(b.notifier, op, err)
		return err
	}
	msg, err := b.backend.AccessToken(ctx, token, broker, strings.TrimSpace(value))
	if err != nil {
		notifyFailure(b.notifier, op, err)
		return fmt.Errorf("access token %s: %w", broker, err)
	}
	b.conns.Set(ctx, broker, true)
	notifySuccess(b.notifier, op, msg)
	return nil
}

func (b *BrokerService) RefreshTastytrade(ctx context.Context) error {
	op := "refresh_tastytrade"
	token, err := b.session.Token()
	if err != nil {
		notifyFailure(b.notifier, op, err)
		return err
	}
	if err := b.backend.RefreshTastytrade(ctx, token); err != nil {
		notifyFailure(b.notifier, op, err)
		return fmt.Errorf("refresh tastytrade: %w", err)
	}
	notifySuccess(b.notifier, op, "TastyTrade token refreshed")
	return nil
}

// ValidateRefreshTokenLink submits the link and persists it with the
// outcome. A rejected link is still remembered, unvalidated.
func (b *BrokerService) ValidateRefreshTokenLink(ctx context.Context, link string) (*RefreshTokenState, error) {
	op := "refresh_token_link"
	link = strings.TrimSpace(link)
	if link == "" {
		notifyFailure(b.notifier, op, ErrEmptyTokenLink)
		return nil, ErrEmptyTokenLink
	}
	token, err := b.session.Token()
	if err != nil {
		notifyFailure(b.notifier, op, err)
		return nil, err
	}

	msg, err := b.backend.RefreshTokenLink(ctx, token, link)
	st := &RefreshTokenState{Link: link, Validated: err == nil}
	if perr := b.state.SaveRefreshToken(ctx, st.Link, st.Validated); perr != nil {
		b.log.Warn("persist refresh token failed", applogger.Error(perr))
	}
	if err != nil {
		notifyFailure(b.notifier, op, err)
		return st, fmt.Errorf("validate refresh token link: %w", err)
	}
	if msg == "" {
		msg = "Token validated successfully"
	}
	notifySuccess(b.notifier, op, msg)
	return st, nil
}

func (b *BrokerService) RefreshToken(ctx context.Context) (*RefreshTokenState, error) {
	link, validated, err := b.state.LoadRefreshToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("load refresh token: %w", err)
	}
	return &RefreshTokenState{Link: link, Validated: validated}, nil
}
