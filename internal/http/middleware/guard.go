package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/audit"
	apimiddleware "github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/middleware"
)

// TenantGuard enforces that the authenticated principal's tenant matches the
// resolved tenant of the current request. This is the isolation boundary:
// the decisive check is the identity match, and the guard never falls
// through to a handler that would scope a query to a foreign tenant.
//
// A principal whose slug is set but differs from the resolved one is treated
// as a routing error, not an authorization failure: tenant slugs are
// bookmarkable UI state, so the caller is redirected to the same logical
// path under its own slug instead of being shown a 403.
func TenantGuard(recorder audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		tc, ok := apimiddleware.GetTenantContext(c)
		if !ok {
			// Resolver did not run; fail closed.
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "invalid_tenant", "error_description": "Unknown tenant."})
			return
		}

		principal, ok := GetPrincipal(c)
		if !ok {
			recorder.Record(c.Request.Context(), audit.Event{
				TenantID:   tc.Tenant.ID,
				TenantSlug: tc.Slug,
				Action:     "tenant_guard",
				Path:       c.Request.URL.Path,
				Outcome:    audit.OutcomeUnauthenticated,
			})
			abortUnauthenticated(c)
			return
		}

		if principal.IsSuperAdmin {
			c.Next()
			return
		}
		if principal.TenantID == tc.Tenant.ID {
			c.Next()
			return
		}
		if principal.TenantSlug == tc.Slug {
			c.Next()
			return
		}

		if principal.TenantSlug != "" {
			target := rewriteTenantPath(c.Request.URL.Path, tc.Slug, principal.TenantSlug)
			if raw := c.Request.URL.RawQuery; raw != "" {
				target += "?" + raw
			}
			recorder.Record(c.Request.Context(), audit.Event{
				Principal:  principal.Username,
				TenantID:   tc.Tenant.ID,
				TenantSlug: tc.Slug,
				Action:     "tenant_guard",
				Path:       c.Request.URL.Path,
				Outcome:    audit.OutcomeRedirected,
			})
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}

		recorder.Record(c.Request.Context(), audit.Event{
			Principal:  principal.Username,
			TenantID:   tc.Tenant.ID,
			TenantSlug: tc.Slug,
			Action:     "tenant_guard",
			Path:       c.Request.URL.Path,
			Outcome:    audit.OutcomeForbidden,
		})
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "error_description": "Tenant mismatch."})
	}
}

// rewriteTenantPath swaps the tenant slug segment of a /t/{slug}/... path.
func rewriteTenantPath(path, from, to string) string {
	prefix := "/t/" + from
	if path == prefix {
		return "/t/" + to
	}
	if strings.HasPrefix(path, prefix+"/") {
		return "/t/" + to + strings.TrimPrefix(path, prefix)
	}
	return path
}
