package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/domain"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/repository"
)

// Context stores resolved tenant metadata used throughout the request lifecycle.
type Context struct {
	Tenant domain.Tenant
	Slug   string
}

// Resolver loads tenant metadata from the repository. Each Resolve call
// re-reads the tenant row so that settings changes are visible on the next
// request without any cache invalidation logic.
type Resolver struct {
	repo repository.TenantRepository
}

// NewResolver creates a tenant resolver.
func NewResolver(repo repository.TenantRepository) *Resolver {
	return &Resolver{repo: repo}
}

// ResolveBySlug loads tenant information for a URL-embedded slug.
func (r *Resolver) ResolveBySlug(ctx context.Context, slug string) (*Context, error) {
	cleaned := strings.ToLower(strings.TrimSpace(slug))
	if cleaned == "" {
		zap.L().Warn("tenant resolver received empty slug")
		return nil, domain.ErrTenantNotFound
	}

	tenantRow, err := r.repo.GetBySlug(ctx, cleaned)
	if err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			zap.L().Warn("unknown tenant slug", zap.String("slug", cleaned))
			return nil, domain.ErrTenantNotFound
		}
		zap.L().Error("failed to resolve tenant", zap.String("slug", cleaned), zap.Error(err))
		return nil, fmt.Errorf("resolve tenant: %w", err)
	}

	zap.L().Debug("tenant resolved", zap.String("slug", cleaned), zap.Int64("tenant_id", tenantRow.ID))

	return &Context{Tenant: tenantRow, Slug: tenantRow.Slug}, nil
}
