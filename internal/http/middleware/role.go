package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/audit"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/domain"
	apimiddleware "github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/middleware"
)

// RequireRole builds a gate enforcing a minimum role, independent of tenant
// checks. Precedence: superadmin always passes, then an exact role match,
// and admins may also access store endpoints.
func RequireRole(role domain.Role, recorder audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			recordRoleEvent(c, recorder, "", audit.OutcomeUnauthenticated)
			abortUnauthenticated(c)
			return
		}

		if !roleAllows(principal, role) {
			recordRoleEvent(c, recorder, principal.Username, audit.OutcomeForbidden)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "error_description": "Insufficient role."})
			return
		}

		c.Next()
	}
}

// RequireAdmin gates admin-only endpoints.
func RequireAdmin(recorder audit.Recorder) gin.HandlerFunc {
	return RequireRole(domain.RoleAdmin, recorder)
}

// RequireStore gates endpoints open to store operators and admins.
func RequireStore(recorder audit.Recorder) gin.HandlerFunc {
	return RequireRole(domain.RoleStore, recorder)
}

// RequireSuperAdmin gates superadmin-only endpoints.
func RequireSuperAdmin(recorder audit.Recorder) gin.HandlerFunc {
	return RequireRole(domain.RoleSuperAdmin, recorder)
}

func roleAllows(p domain.Principal, role domain.Role) bool {
	if p.IsSuperAdmin || p.Role == domain.RoleSuperAdmin {
		return true
	}
	if p.Role == role {
		return true
	}
	if role == domain.RoleStore && p.Role == domain.RoleAdmin {
		return true
	}
	return false
}

func recordRoleEvent(c *gin.Context, recorder audit.Recorder, principal string, outcome audit.Outcome) {
	event := audit.Event{
		Principal: principal,
		Action:    "role_gate",
		Path:      c.Request.URL.Path,
		Outcome:   outcome,
	}
	if tc, ok := apimiddleware.GetTenantContext(c); ok {
		event.TenantID = tc.Tenant.ID
		event.TenantSlug = tc.Slug
	}
	recorder.Record(c.Request.Context(), event)
}
