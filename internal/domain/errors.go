package domain

import "errors"

// Admission error taxonomy. Every guard resolves a rejected request to
// exactly one of these; handlers map them to HTTP via errors.Is.
var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrForbidden        = errors.New("forbidden")
	ErrTenantNotFound   = errors.New("tenant not found")
	ErrRateLimited      = errors.New("rate limited")
	ErrBadRequest       = errors.New("bad request")
	ErrStoreUnavailable = errors.New("store unavailable")
)
