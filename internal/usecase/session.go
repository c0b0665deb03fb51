package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"TradeDesk/internal/domain/models"
	domrepo "TradeDesk/internal/domain/repository"
	applogger "TradeDesk/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoSession = errors.New("no active session")

// SessionStore holds the authenticated identity and bearer token. It is the
// only place the token lives; every other usecase asks it per call.
type SessionStore struct {
	mu      sync.RWMutex
	current *models.Session

	backend  domrepo.TradingBackend
	state    domrepo.StateStore
	conns    *ConnectionTracker
	notifier domrepo.Notifier
	log      *applogger.Logger
}

func NewSessionStore(
	backend domrepo.TradingBackend,
	state domrepo.StateStore,
	conns *ConnectionTracker,
	notifier domrepo.Notifier,
	log *applogger.Logger,
) *SessionStore {
	return &SessionStore{backend: backend, state: state, conns: conns, notifier: notifier, log: log}
}

// Login authenticates against the backend. On failure any prior session is
// left untouched.
func (s *SessionStore) Login(ctx context.Context, email, password string) (*models.Session, error) {
	res, err := s.backend.Login(ctx, email, password)
	if err != nil {
		notifyFailure(s.notifier, "login", err)
		return nil, fmt.Errorf("login: %w", err)
	}

	sess := &models.Session{Email: email, Token: res.Token, ExpiresAt: tokenExpiry(res.Token)}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	if err := s.state.SaveSession(ctx, sess); err != nil {
		s.log.Warn("persist session failed", applogger.Error(err))
	}
	if res.RefreshToken != "" {
		s.rememberRefreshToken(ctx, res.RefreshToken)
	}
	if res.Connections != nil {
		s.conns.SetAll(ctx, *res.Connections)
	}

	s.log.Info("logged in", applogger.String("email", email))
	notifySuccess(s.notifier, "login", "Login successful")
	c := *sess
	return &c, nil
}

// rememberRefreshToken stores the brokerage refresh token issued at login.
// The validated flag survives only when the token did not change.
func (s *SessionStore) rememberRefreshToken(ctx context.Context, token string) {
	prev, validated, err := s.state.LoadRefreshToken(ctx)
	if err != nil {
		s.log.Warn("load refresh token failed", applogger.Error(err))
	}
	if err := s.state.SaveRefreshToken(ctx, token, validated && prev == token); err != nil {
		s.log.Warn("persist refresh token failed", applogger.Error(err))
	}
}

// Logout clears every held credential unconditionally.
func (s *SessionStore) Logout(ctx context.Context) {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	if err := s.state.ClearSession(ctx); err != nil {
		s.log.Warn("clear persisted session failed", applogger.Error(err))
	}
	s.conns.Reset()
	notifySuccess(s.notifier, "logout", "Logged out")
}

// Restore reloads a persisted session. It reports whether one was found.
func (s *SessionStore) Restore(ctx context.Context) (bool, error) {
	sess, err := s.state.LoadSession(ctx)
	if err != nil {
		return false, fmt.Errorf("restore session: %w", err)
	}
	if sess == nil {
		return false, nil
	}
	if sess.ExpiresAt.IsZero() {
		sess.ExpiresAt = tokenExpiry(sess.Token)
	}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	if err := s.conns.Load(ctx); err != nil {
		s.log.Warn("restore connections failed", applogger.Error(err))
	}
	return true, nil
}

// Current returns a copy of the active session.
func (s *SessionStore) Current() (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNoSession
	}
	c := *s.current
	return &c, nil
}

// Token returns the bearer credential for outbound calls.
func (s *SessionStore) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil || s.current.Token == "" {
		return "", ErrNoSession
	}
	return s.current.Token, nil
}

// tokenExpiry reads the exp claim without verifying the signature; the
// backend owns verification. Non-JWT tokens have no known expiry.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time.UTC()
}
