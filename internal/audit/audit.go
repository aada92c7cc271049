package audit

import (
	"context"

	"go.uber.org/zap"
)

// Outcome classifies an admission decision worth recording.
type Outcome string

const (
	OutcomeUnauthenticated Outcome = "unauthenticated"
	OutcomeForbidden       Outcome = "forbidden"
	OutcomeRedirected      Outcome = "redirected"
	OutcomeRateLimited     Outcome = "rate_limited"
	OutcomeBadRequest      Outcome = "bad_request"
)

// Event is one rejected or redirected admission decision.
type Event struct {
	Principal  string
	TenantID   int64
	TenantSlug string
	Action     string
	Path       string
	Outcome    Outcome
}

// Recorder consumes admission events. The trail itself is an external
// collaborator; guards only emit.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// ZapRecorder writes events to the structured log.
type ZapRecorder struct {
	log *zap.Logger
}

func NewZapRecorder(log *zap.Logger) *ZapRecorder {
	return &ZapRecorder{log: log}
}

func (r *ZapRecorder) Record(_ context.Context, event Event) {
	r.log.Info("admission audit",
		zap.String("principal", event.Principal),
		zap.Int64("tenant_id", event.TenantID),
		zap.String("tenant_slug", event.TenantSlug),
		zap.String("action", event.Action),
		zap.String("path", event.Path),
		zap.String("outcome", string(event.Outcome)),
	)
}

var _ Recorder = (*ZapRecorder)(nil)
