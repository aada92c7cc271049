package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/domain"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/tenant"
)

const ginTenantContextKey = "tenantContext"

type tenantContextKey struct{}

// SlugParam is the route parameter carrying the tenant slug on
// tenant-scoped paths (/t/:tenantSlug/...).
const SlugParam = "tenantSlug"

// Tenant resolves the URL-embedded tenant slug and stores the result in Gin
// and request contexts. Unknown tenants fail closed with 404; a store outage
// is reported as 503, never as "tenant does not exist".
func Tenant(resolver *tenant.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantCtx, err := resolver.ResolveBySlug(c.Request.Context(), c.Param(SlugParam))
		if err != nil {
			if errors.Is(err, domain.ErrTenantNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "invalid_tenant", "error_description": "Unknown tenant."})
				return
			}
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "server_error", "error_description": "Service temporarily unavailable."})
			return
		}

		ctx := context.WithValue(c.Request.Context(), tenantContextKey{}, tenantCtx)
		c.Request = c.Request.WithContext(ctx)

		c.Set(ginTenantContextKey, tenantCtx)
		c.Set("tenant_id", tenantCtx.Tenant.ID)

		c.Next()
	}
}

// GetTenantContext extracts the tenant context from gin.
func GetTenantContext(c *gin.Context) (*tenant.Context, bool) {
	value, ok := c.Get(ginTenantContextKey)
	if !ok {
		return nil, false
	}
	tenantCtx, ok := value.(*tenant.Context)
	return tenantCtx, ok
}

// TenantContextFromContext extracts the tenant context from a standard context.
func TenantContextFromContext(ctx context.Context) (*tenant.Context, bool) {
	value := ctx.Value(tenantContextKey{})
	if value == nil {
		return nil, false
	}
	tenantCtx, ok := value.(*tenant.Context)
	return tenantCtx, ok
}
