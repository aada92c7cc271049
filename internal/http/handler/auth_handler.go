package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/audit"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/domain"
	apimiddleware "github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/middleware"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/ratelimit"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/repository"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/session"
)

// AuthHandler owns the authentication endpoints: the only place sessions are
// issued, regenerated, and destroyed.
type AuthHandler struct {
	Users        repository.UserRepository
	Sessions     *session.Manager
	LoginLimiter *ratelimit.Ledger
	Audit        audit.Recorder
	SessionTTL   time.Duration
}

// NewAuthHandler creates the handler set.
func NewAuthHandler(users repository.UserRepository, sessions *session.Manager, limits *ratelimit.Service, recorder audit.Recorder, sessionTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		Users:        users,
		Sessions:     sessions,
		LoginLimiter: limits.Login,
		Audit:        recorder,
		SessionTTL:   sessionTTL,
	}
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates against the resolved tenant's accounts. Failures are
// recorded in the login ledger per client IP; success clears the entry for a
// fresh start and regenerates the session, which also rotates the forgery
// token.
func (h *AuthHandler) Login(c *gin.Context) {
	tc, ok := apimiddleware.GetTenantContext(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid_tenant", "error_description": "Tenant not resolved."})
		return
	}

	ip := c.ClientIP()
	if retryAfter, err := h.LoginLimiter.Check(ip); err != nil {
		h.Audit.Record(c.Request.Context(), audit.Event{
			TenantID:   tc.Tenant.ID,
			TenantSlug: tc.Slug,
			Action:     "login",
			Path:       c.Request.URL.Path,
			Outcome:    audit.OutcomeRateLimited,
		})
		apimiddleware.AbortRateLimited(c, retryAfter)
		return
	}

	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "username and password are required."})
		return
	}

	user, err := h.Users.GetByUsername(c.Request.Context(), tc.Tenant.ID, strings.TrimSpace(req.Username))
	if err != nil {
		h.failLogin(c, ip, tc.Slug)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		h.failLogin(c, ip, tc.Slug)
		return
	}

	h.LoginLimiter.Clear(ip)

	principal := domain.Principal{
		ID:           user.ID,
		Username:     user.Username,
		Role:         user.Role,
		TenantID:     user.TenantID,
		TenantSlug:   tc.Slug,
		IsSuperAdmin: user.IsSuperAdmin,
	}
	h.issueSession(c, principal)
}

// Signup registers an account under the resolved tenant and signs it in.
func (h *AuthHandler) Signup(c *gin.Context) {
	tc, ok := apimiddleware.GetTenantContext(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid_tenant", "error_description": "Tenant not resolved."})
		return
	}

	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "username and password are required."})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		zap.L().Error("failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Internal server error."})
		return
	}

	user, err := h.Users.Create(c.Request.Context(), domain.User{
		TenantID:     tc.Tenant.ID,
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: string(hash),
		Role:         domain.RoleStore,
	})
	if err != nil {
		zap.L().Error("failed to create user", zap.Int64("tenant_id", tc.Tenant.ID), zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": "invalid_request", "error_description": "Account could not be created."})
		return
	}

	principal := domain.Principal{
		ID:         user.ID,
		Username:   user.Username,
		Role:       user.Role,
		TenantID:   user.TenantID,
		TenantSlug: tc.Slug,
	}
	h.issueSession(c, principal)
}

// Logout destroys the session and expires the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	if id, err := session.IDFromRequest(c.Request); err == nil {
		h.Sessions.Destroy(id)
	}
	http.SetCookie(c.Writer, session.DeleteCookie())
	c.Status(http.StatusNoContent)
}

// issueSession regenerates the session for the new identity. The forgery
// token is returned in the body so the page can echo it on mutating requests.
func (h *AuthHandler) issueSession(c *gin.Context, principal domain.Principal) {
	oldID, _ := session.IDFromRequest(c.Request)
	s := h.Sessions.Regenerate(oldID, principal)

	http.SetCookie(c.Writer, session.NewCookie(s.ID, int(h.SessionTTL.Seconds()), c.Request))
	c.JSON(http.StatusOK, gin.H{
		"username":      principal.Username,
		"role":          principal.Role,
		"tenant_slug":   principal.TenantSlug,
		"forgery_token": s.ForgeryToken,
	})
}

func (h *AuthHandler) failLogin(c *gin.Context, ip, slug string) {
	h.LoginLimiter.Record(ip)
	zap.L().Warn("login failure", zap.String("tenant_slug", slug), zap.String("ip", ip))
	c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials", "error_description": "Invalid username or password."})
}
