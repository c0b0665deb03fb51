package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TradeDesk/internal/domain/models"
	"TradeDesk/internal/domain/repository"
	"TradeDesk/pkg/cache"
)

// Keys of the persisted client-side state.
const (
	keyUser           = "user"
	keyToken          = "token"
	keyRefreshToken   = "refresh_token"
	keyTokenValidated = "token_validated"
	keyConnections    = "connections"
)

// CacheStateStore implements StateStore on top of cache.Service. Values are
// stored without expiry and without encryption.
type CacheStateStore struct {
	cache cache.Service
}

// NewCacheStateStore creates a state store over memory, redis or layered cache.
func NewCacheStateStore(c cache.Service) repository.StateStore {
	return &CacheStateStore{cache: c}
}

type storedUser struct {
	Email     string `json:"email"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

func (s *CacheStateStore) SaveSession(ctx context.Context, sess *models.Session) error {
	u := storedUser{Email: sess.Email}
	if !sess.ExpiresAt.IsZero() {
		u.ExpiresAt = sess.ExpiresAt.Unix()
	}
	if err := s.cache.Set(ctx, keyUser, u, 0); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	if err := s.cache.Set(ctx, keyToken, sess.Token, 0); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// LoadSession returns (nil, nil) when no complete session is stored.
func (s *CacheStateStore) LoadSession(ctx context.Context) (*models.Session, error) {
	var u storedUser
	if err := s.cache.Get(ctx, keyUser, &u); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	var token string
	if err := s.cache.Get(ctx, keyToken, &token); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("load token: %w", err)
	}
	if u.Email == "" || token == "" {
		return nil, nil
	}
	sess := &models.Session{Email: u.Email, Token: token}
	if u.ExpiresAt > 0 {
		sess.ExpiresAt = time.Unix(u.ExpiresAt, 0).UTC()
	}
	return sess, nil
}

// ClearSession removes identity and credential. Brokerage refresh-token
// state is kept, matching what a browser logout leaves behind.
func (s *CacheStateStore) ClearSession(ctx context.Context) error {
	if err := s.cache.Delete(ctx, keyUser, keyToken, keyConnections); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *CacheStateStore) SaveConnections(ctx context.Context, c models.Connections) error {
	if err := s.cache.Set(ctx, keyConnections, c, 0); err != nil {
		return fmt.Errorf("save connections: %w", err)
	}
	return nil
}

func (s *CacheStateStore) LoadConnections(ctx context.Context) (models.Connections, error) {
	var c models.Connections
	if err := s.cache.Get(ctx, keyConnections, &c); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		return c, fmt.Errorf("load connections: %w", err)
	}
	return c, nil
}

func (s *CacheStateStore) SaveRefreshToken(ctx context.Context, link string, validated bool) error {
	if err := s.cache.Set(ctx, keyRefreshToken, link, 0); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	if err := s.cache.Set(ctx, keyTokenValidated, validated, 0); err != nil {
		return fmt.Errorf("save token validated: %w", err)
	}
	return nil
}

func (s *CacheStateStore) LoadRefreshToken(ctx context.Context) (string, bool, error) {
	var link string
	if err := s.cache.Get(ctx, keyRefreshToken, &link); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		return "", false, fmt.Errorf("load refresh token: %w", err)
	}
	var validated bool
	if err := s.cache.Get(ctx, keyTokenValidated, &validated); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		return "", false, fmt.Errorf("load token validated: %w", err)
	}
	return link, validated, nil
}
