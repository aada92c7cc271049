package middleware

import (
	"crypto/subtle"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/audit"
	apimiddleware "github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/middleware"
)

// ForgeryTokenHeader carries the session-bound anti-forgery token. The token
// travels through the session store, never a long-lived cookie, and the page
// echoes it back in this header on mutating requests.
const ForgeryTokenHeader = "X-CSRF-Token"

// Exemptions: unauthenticated entry points that cannot carry a token yet.
// Templates use single-segment placeholders; prefixes are a deliberate
// carve-out for the nested public submission paths. Anything else must
// match a full template exactly — a partial match on exemptions would be a
// vulnerability.
var (
	defaultExemptTemplates = []string{
		"/t/{tenantSlug}/login",
		"/t/{tenantSlug}/signup",
		"/login",
		"/signup",
	}
	defaultExemptPrefixes = []string{
		"/submit/",
	}
)

// ForgeryGuard validates the session-bound token on state-changing requests
// to protected paths. Matchers are compiled once at construction, not per
// request.
type ForgeryGuard struct {
	exempt         []*regexp.Regexp
	exemptPrefixes []string
	recorder       audit.Recorder
}

// NewForgeryGuard compiles the default exemption set.
func NewForgeryGuard(recorder audit.Recorder) *ForgeryGuard {
	g := &ForgeryGuard{
		exemptPrefixes: defaultExemptPrefixes,
		recorder:       recorder,
	}
	for _, tpl := range defaultExemptTemplates {
		g.exempt = append(g.exempt, compileTemplate(tpl))
	}
	return g
}

// Handler is the gin middleware.
func (g *ForgeryGuard) Handler(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		c.Next()
		return
	}

	path := c.Request.URL.Path
	if !protectedPath(path) || g.exemptMatch(path) {
		c.Next()
		return
	}

	s, ok := GetSession(c)
	token := c.GetHeader(ForgeryTokenHeader)
	if !ok || token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.ForgeryToken)) != 1 {
		event := audit.Event{
			Principal: s.Principal.Username,
			Action:    "forgery_guard",
			Path:      path,
			Outcome:   audit.OutcomeForbidden,
		}
		if tc, tok := apimiddleware.GetTenantContext(c); tok {
			event.TenantID = tc.Tenant.ID
			event.TenantSlug = tc.Slug
		}
		g.recorder.Record(c.Request.Context(), event)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "error_description": "Invalid or missing forgery token."})
		return
	}

	c.Next()
}

// protectedPath reports whether the forgery guard applies: tenant-scoped
// paths and the admin/store/superadmin API surface.
func protectedPath(path string) bool {
	return strings.HasPrefix(path, "/t/") || strings.HasPrefix(path, "/api/")
}

func (g *ForgeryGuard) exemptMatch(path string) bool {
	for _, re := range g.exempt {
		if re.MatchString(path) {
			return true
		}
	}
	for _, prefix := range g.exemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// compileTemplate turns a path template into an anchored matcher. A
// {placeholder} matches exactly one path segment; everything else is
// literal.
func compileTemplate(tpl string) *regexp.Regexp {
	segments := strings.Split(tpl, "/")
	parts := make([]string, len(segments))
	for i, seg := range segments {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			parts[i] = "[^/]+"
			continue
		}
		parts[i] = regexp.QuoteMeta(seg)
	}
	return regexp.MustCompile("^" + strings.Join(parts, "/") + "$")
}
