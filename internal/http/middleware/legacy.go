package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/audit"
	apimiddleware "github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/middleware"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/tenant"
)

// ResolveLegacyTenantID resolves a tenant id for routes that predate
// tenant-prefixed paths. Resolution order: an already-resolved tenant on the
// request context, a tenant slug embedded in the Referer header looked up
// against the tenant table, then the principal's own tenant id.
//
// The Referer fallback is a client-controlled compatibility shim, not a
// security boundary; the tenant guard remains the isolation boundary for
// any path that carries a principal. Callers MUST treat a false return as a
// hard failure and refuse to run any tenant-scoped query.
func ResolveLegacyTenantID(c *gin.Context, resolver *tenant.Resolver) (int64, bool) {
	if tc, ok := apimiddleware.GetTenantContext(c); ok {
		return tc.Tenant.ID, true
	}

	if slug := refererTenantSlug(c.Request.Header.Get("Referer")); slug != "" {
		if tc, err := resolver.ResolveBySlug(c.Request.Context(), slug); err == nil {
			return tc.Tenant.ID, true
		}
	}

	if principal, ok := GetPrincipal(c); ok && principal.TenantID != 0 {
		return principal.TenantID, true
	}

	return 0, false
}

// AbortUnresolvableTenant is the mandatory 400 for legacy routes whose
// tenant identity could not be resolved. Silently defaulting to tenant 0 or
// omitting the filter is the single most dangerous failure mode here.
func AbortUnresolvableTenant(c *gin.Context, recorder audit.Recorder) {
	principal, _ := GetPrincipal(c)
	recorder.Record(c.Request.Context(), audit.Event{
		Principal: principal.Username,
		Action:    "legacy_tenant_resolution",
		Path:      c.Request.URL.Path,
		Outcome:   audit.OutcomeBadRequest,
	})
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Tenant could not be resolved."})
}

// refererTenantSlug extracts the slug from a Referer pointing at a
// tenant-scoped path (/t/{slug}/...).
func refererTenantSlug(referer string) string {
	if referer == "" {
		return ""
	}
	u, err := url.Parse(referer)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.TrimPrefix(u.Path, "/"), "/")
	if len(segments) >= 2 && segments[0] == "t" && segments[1] != "" {
		return segments[1]
	}
	return ""
}
