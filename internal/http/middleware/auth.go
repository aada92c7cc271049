package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/domain"
	apimiddleware "github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/middleware"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/session"
)

const (
	ginSessionKey   = "sessionState"
	ginPrincipalKey = "sessionPrincipal"
)

// Auth loads the server-side session named by the request cookie and
// attaches the principal. It never rejects on its own; the guards decide.
type Auth struct {
	Sessions *session.Manager
}

// LoadSession attaches session state and principal when the cookie names a
// live session. Missing or expired sessions simply leave both unset.
func (m *Auth) LoadSession(c *gin.Context) {
	id, err := session.IDFromRequest(c.Request)
	if err == nil {
		if s, ok := m.Sessions.Get(id); ok {
			c.Set(ginSessionKey, s)
			c.Set(ginPrincipalKey, s.Principal)
		}
	}
	c.Next()
}

// GetSession extracts the session state from gin.
func GetSession(c *gin.Context) (session.Session, bool) {
	value, ok := c.Get(ginSessionKey)
	if !ok {
		return session.Session{}, false
	}
	s, ok := value.(session.Session)
	return s, ok
}

// GetPrincipal extracts the authenticated principal from gin.
func GetPrincipal(c *gin.Context) (domain.Principal, bool) {
	value, ok := c.Get(ginPrincipalKey)
	if !ok {
		return domain.Principal{}, false
	}
	p, ok := value.(domain.Principal)
	return p, ok
}

// apiShaped reports whether a path takes the API failure mode. The
// distinction is made on path shape, not on an Accept header, to match
// existing client expectations: an /api/ segment at the root or immediately
// after the tenant prefix.
func apiShaped(path string) bool {
	if strings.HasPrefix(path, "/api/") {
		return true
	}
	if strings.HasPrefix(path, "/t/") {
		rest := path[len("/t/"):]
		if i := strings.Index(rest, "/"); i >= 0 {
			return strings.HasPrefix(rest[i:], "/api/")
		}
	}
	return false
}

// abortUnauthenticated terminates the chain for a request with no
// principal: browser navigation is redirected to the tenant's login page,
// API-shaped paths get a JSON 401. A page path with no resolved tenant has
// no login page to send the caller to, so it takes the 401 as well.
func abortUnauthenticated(c *gin.Context) {
	if !apiShaped(c.Request.URL.Path) {
		if tc, ok := apimiddleware.GetTenantContext(c); ok {
			c.Redirect(http.StatusFound, "/t/"+tc.Slug+"/login")
			c.Abort()
			return
		}
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "error_description": "Authentication required."})
}
