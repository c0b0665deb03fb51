package repository

import (
	"context"
	"testing"
	"time"

	"TradeDesk/internal/domain/models"
	"TradeDesk/pkg/cache"
)

func newStore(t *testing.T) (*CacheStateStore, cache.Service) {
	t.Helper()
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })
	return NewCacheStateStore(mc).(*CacheStateStore), mc
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	if got, err := s.LoadSession(ctx); err != nil || got != nil {
		t.Fatalf("expected empty store, got %+v %v", got, err)
	}

	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := s.SaveSession(ctx, &models.Session{Email: "a@b.com", Token: "t1", ExpiresAt: exp}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.LoadSession(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Email != "a@b.com" || got.Token != "t1" || !got.ExpiresAt.Equal(exp) {
		t.Fatalf("unexpected session %+v", got)
	}
}

func TestClearSessionKeepsRefreshToken(t *testing.T) {
	ctx := context.Background()
	s, mc := newStore(t)

	_ = s.SaveSession(ctx, &models.Session{Email: "a@b.com", Token: "t1"})
	_ = s.SaveConnections(ctx, models.Connections{Schwab: true})
	_ = s.SaveRefreshToken(ctx, "https://link", true)

	if err := s.ClearSession(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got, _ := s.LoadSession(ctx); got != nil {
		t.Fatalf("session should be gone, got %+v", got)
	}
	if ok, _ := mc.Exists(ctx, "token", "user", "connections"); ok {
		t.Fatalf("credential keys remain")
	}
	link, validated, err := s.LoadRefreshToken(ctx)
	if err != nil || link != "https://link" || !validated {
		t.Fatalf("refresh token lost: %q %v %v", link, validated, err)
	}
	c, err := s.LoadConnections(ctx)
	if err != nil || c.Schwab {
		t.Fatalf("connections should reset, got %+v %v", c, err)
	}
}

func TestTokenStoredAsPlainText(t *testing.T) {
	ctx := context.Background()
	s, mc := newStore(t)
	_ = s.SaveSession(ctx, &models.Session{Email: "a@b.com", Token: "t1"})

	var raw string
	if err := mc.Get(ctx, "token", &raw); err != nil || raw != "t1" {
		t.Fatalf("unexpected raw token %q %v", raw, err)
	}
}
