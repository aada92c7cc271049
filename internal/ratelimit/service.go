package ratelimit

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/config"
)

// Service bundles the three ledger instances the admission chain uses and
// gives them one start/stop lifecycle.
type Service struct {
	Login       *Ledger
	SubmitIP    *Ledger
	SubmitEmail *Ledger
}

// NewService builds the ledgers from configuration. The bypass flag applies
// to all three; it is the only switch that disables rate limiting.
func NewService(cfg config.Config, log *zap.Logger, opts ...Option) *Service {
	opts = append([]Option{WithBypass(cfg.RateLimitBypass)}, opts...)
	return &Service{
		Login: NewLedger("login", Policy{
			Window: cfg.LoginWindow,
			Max:    cfg.LoginMaxAttempts,
			Lock:   cfg.LoginLockDuration,
		}, cfg.LedgerSweepInterval, log, opts...),
		SubmitIP: NewLedger("submit-ip", Policy{
			Window: cfg.SubmitIPWindow,
			Max:    cfg.SubmitIPMaxAttempts,
			Lock:   cfg.SubmitIPLockDuration,
		}, cfg.LedgerSweepInterval, log, opts...),
		SubmitEmail: NewLedger("submit-email", Policy{
			Window: cfg.SubmitEmailWindow,
			Max:    cfg.SubmitEmailMaxAttempts,
			Lock:   cfg.SubmitEmailLockDuration,
		}, cfg.LedgerSweepInterval, log, opts...),
	}
}

// Start launches the periodic sweeps. Idempotent.
func (s *Service) Start() {
	s.Login.Start()
	s.SubmitIP.Start()
	s.SubmitEmail.Start()
}

// Stop cancels the sweeps and waits for them to exit.
func (s *Service) Stop() {
	s.Login.Stop()
	s.SubmitIP.Stop()
	s.SubmitEmail.Stop()
}

// EmailKey builds the per-tenant daily-submission key. The email is
// normalized so that trivially aliased addresses share one counter.
func EmailKey(tenantID int64, email string) string {
	return strconv.FormatInt(tenantID, 10) + ":" + NormalizeEmail(email)
}

// NormalizeEmail lowercases, trims, and strips a plus-tag from the local
// part ("User+promo@Example.com" and "user@example.com" count together).
func NormalizeEmail(email string) string {
	cleaned := strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(cleaned, "@")
	if at <= 0 {
		return cleaned
	}
	local, dom := cleaned[:at], cleaned[at+1:]
	if plus := strings.Index(local, "+"); plus > 0 {
		local = local[:plus]
	}
	return local + "@" + dom
}
