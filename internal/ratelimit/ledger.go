package ratelimit

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/domain"
)

// Policy parametrizes one sliding-window-with-lockout instance.
type Policy struct {
	Window time.Duration
	Max    int
	Lock   time.Duration
}

type entry struct {
	count       int
	windowStart time.Time
	lockedUntil time.Time
}

// Ledger tracks per-key sliding-window counters with lockout. State is
// process-local and ephemeral; a periodic sweep bounds memory against
// key-space explosion from spoofed IPs or emails.
//
// Invariant: lockedUntil is non-zero only once count has reached Policy.Max.
type Ledger struct {
	name          string
	policy        Policy
	sweepInterval time.Duration
	bypass        bool
	now           func() time.Time
	log           *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry
	started bool

	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// Option customizes a Ledger.
type Option func(*Ledger)

// WithClock substitutes the time source. Tests use this to make window and
// lock arithmetic deterministic.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithBypass disables the ledger entirely. This is the single auditable
// switch behind the RATE_LIMIT_BYPASS flag; nothing else may skip checks.
func WithBypass(bypass bool) Option {
	return func(l *Ledger) {
		l.bypass = bypass
	}
}

// NewLedger creates a ledger. Start must be called before the sweep runs;
// Check and Record work without it.
func NewLedger(name string, policy Policy, sweepInterval time.Duration, log *zap.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		name:          name,
		policy:        policy,
		sweepInterval: sweepInterval,
		now:           time.Now,
		log:           log,
		entries:       make(map[string]*entry),
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check reports whether key may proceed. When the key is locked it returns
// the remaining lock time and domain.ErrRateLimited. An expired window is
// reset in place so the next Record starts a fresh count.
func (l *Ledger) Check(key string) (time.Duration, error) {
	if l.bypass {
		return 0, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		return 0, nil
	}

	now := l.now()
	if now.Before(e.lockedUntil) {
		remaining := e.lockedUntil.Sub(now)
		l.log.Warn("rate limit rejection",
			zap.String("ledger", l.name),
			zap.String("key", key),
			zap.Duration("retry_after", remaining),
		)
		return remaining, domain.ErrRateLimited
	}

	if now.Sub(e.windowStart) > l.policy.Window {
		e.count = 0
		e.windowStart = now
		e.lockedUntil = time.Time{}
	}

	return 0, nil
}

// Record counts one admission for key. Recording is optimistic: it happens at
// admission time, before the downstream handler confirms success, so a burst
// cannot race the check-then-record gap.
func (l *Ledger) Record(key string) {
	if l.bypass {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{windowStart: now}
		l.entries[key] = e
	}

	e.count++
	if e.count >= l.policy.Max {
		e.lockedUntil = now.Add(l.policy.Lock)
		l.log.Warn("rate limit lockout",
			zap.String("ledger", l.name),
			zap.String("key", key),
			zap.Time("locked_until", e.lockedUntil),
		)
	}
}

// Clear forgets all state for key. Called on login success for a fresh start.
func (l *Ledger) Clear(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// Len returns the number of tracked keys.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Start launches the periodic sweep. Idempotent.
func (l *Ledger) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return
	}
	l.started = true
	go l.sweepLoop()
}

// Stop cancels the sweep and waits for it to exit. Safe to call multiple
// times and safe to call on a ledger that was never started.
func (l *Ledger) Stop() {
	l.mu.Lock()
	started := l.started
	l.mu.Unlock()

	l.stopOnce.Do(func() {
		close(l.done)
	})
	if started {
		<-l.stopped
	}
}

func (l *Ledger) sweepLoop() {
	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()
	defer close(l.stopped)

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// Sweep removes entries whose window has been idle past twice its length and
// entries whose lock has expired beyond its own lock duration. Idempotent
// and safe to call concurrently with Check/Record.
func (l *Ledger) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, e := range l.entries {
		if e.lockedUntil.IsZero() {
			if now.Sub(e.windowStart) > 2*l.policy.Window {
				delete(l.entries, key)
				removed++
			}
			continue
		}
		if now.Sub(e.lockedUntil) > l.policy.Lock {
			delete(l.entries, key)
			removed++
		}
	}

	if removed > 0 {
		l.log.Debug("rate limit sweep",
			zap.String("ledger", l.name),
			zap.Int("removed", removed),
			zap.Int("remaining", len(l.entries)),
		)
	}
}
