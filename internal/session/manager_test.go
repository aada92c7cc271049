package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/domain"
)

func TestCreateAndGet(t *testing.T) {
	m := NewManager(time.Hour, time.Minute, zap.NewNop())

	s := m.Create(domain.Principal{ID: 1, Username: "alice", Role: domain.RoleAdmin, TenantID: 5, TenantSlug: "acme"})
	require.NotEmpty(t, s.ID)
	require.NotEmpty(t, s.ForgeryToken)

	got, ok := m.Get(s.ID)
	require.True(t, ok)
	require.Equal(t, "alice", got.Principal.Username)
	require.Equal(t, s.ForgeryToken, got.ForgeryToken)
}

func TestRegenerateRotatesIDAndForgeryToken(t *testing.T) {
	m := NewManager(time.Hour, time.Minute, zap.NewNop())

	anon := m.Create(domain.Principal{})
	authed := m.Regenerate(anon.ID, domain.Principal{ID: 7, Username: "bob", Role: domain.RoleStore, TenantID: 3})

	require.NotEqual(t, anon.ID, authed.ID)
	require.NotEqual(t, anon.ForgeryToken, authed.ForgeryToken)

	_, ok := m.Get(anon.ID)
	require.False(t, ok, "old session must be gone after regeneration")

	got, ok := m.Get(authed.ID)
	require.True(t, ok)
	require.Equal(t, int64(7), got.Principal.ID)
}

func TestExpiredSessionIsDroppedOnAccess(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	m := NewManager(time.Hour, time.Minute, zap.NewNop(), WithClock(func() time.Time { return clock }))

	s := m.Create(domain.Principal{ID: 1})

	clock = clock.Add(2 * time.Hour)
	_, ok := m.Get(s.ID)
	require.False(t, ok)
	require.Zero(t, m.Len())
}

func TestDestroy(t *testing.T) {
	m := NewManager(time.Hour, time.Minute, zap.NewNop())

	s := m.Create(domain.Principal{ID: 1})
	m.Destroy(s.ID)
	m.Destroy(s.ID) // no-op

	_, ok := m.Get(s.ID)
	require.False(t, ok)
}

func TestSweepRemovesExpired(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	m := NewManager(time.Hour, time.Minute, zap.NewNop(), WithClock(func() time.Time { return clock }))

	m.Create(domain.Principal{ID: 1})
	clock = clock.Add(30 * time.Minute)
	keep := m.Create(domain.Principal{ID: 2})
	clock = clock.Add(45 * time.Minute)

	m.sweep()
	require.Equal(t, 1, m.Len())
	_, ok := m.Get(keep.ID)
	require.True(t, ok)
}

func TestLifecycle(t *testing.T) {
	m := NewManager(time.Hour, 10*time.Millisecond, zap.NewNop())
	m.Start()
	m.Start()
	m.Stop()
	m.Stop()

	idle := NewManager(time.Hour, time.Minute, zap.NewNop())
	idle.Stop()
}
