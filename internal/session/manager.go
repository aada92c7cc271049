package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/domain"
)

// Session is a server-side session. The forgery token is bound 1:1 to the
// session and never leaves the server except through the page that echoes it
// back in a request header.
type Session struct {
	ID           string
	Principal    domain.Principal
	ForgeryToken string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Manager stores sessions in process memory with a TTL and a janitor sweep.
// The principal inside a session is immutable; identity changes go through
// Regenerate, which also rotates the forgery token to prevent fixation.
type Manager struct {
	ttl           time.Duration
	sweepInterval time.Duration
	now           func() time.Time
	log           *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	started  bool

	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock substitutes the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a session manager.
func NewManager(ttl, sweepInterval time.Duration, log *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		ttl:           ttl,
		sweepInterval: sweepInterval,
		now:           time.Now,
		log:           log,
		sessions:      make(map[string]*Session),
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create issues a new session for principal.
func (m *Manager) Create(principal domain.Principal) Session {
	now := m.now()
	s := &Session{
		ID:           uuid.NewString(),
		Principal:    principal,
		ForgeryToken: uuid.NewString(),
		CreatedAt:    now,
		ExpiresAt:    now.Add(m.ttl),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	return *s
}

// Get returns the session for id. Expired sessions are dropped on access.
func (m *Manager) Get(id string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return Session{}, false
	}
	if m.now().After(s.ExpiresAt) {
		delete(m.sessions, id)
		return Session{}, false
	}
	return *s, true
}

// Regenerate destroys the session for oldID and issues a fresh one for
// principal. The new session carries a new id and a new forgery token.
func (m *Manager) Regenerate(oldID string, principal domain.Principal) Session {
	m.Destroy(oldID)
	return m.Create(principal)
}

// Destroy removes a session. Unknown ids are a no-op.
func (m *Manager) Destroy(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len returns the number of live sessions, expired ones included until swept.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Start launches the janitor. Idempotent.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true
	go m.sweepLoop()
}

// Stop cancels the janitor and waits for it to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()

	m.stopOnce.Do(func() {
		close(m.done)
	})
	if started {
		<-m.stopped
	}
}

func (m *Manager) sweepLoop() {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()
	defer close(m.stopped)

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Manager) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, s := range m.sessions {
		if now.After(s.ExpiresAt) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.log.Debug("session sweep", zap.Int("removed", removed), zap.Int("remaining", len(m.sessions)))
	}
}
