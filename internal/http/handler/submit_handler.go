package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/audit"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/domain"
	apimiddleware "github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/middleware"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/ratelimit"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/repository"
)

// SubmitHandler serves the public coupon-request form. The per-IP ledger is
// enforced by route middleware; the per-email daily ledger lives here
// because the key needs the parsed form.
type SubmitHandler struct {
	Coupons      repository.CouponRepository
	EmailLimiter *ratelimit.Ledger
	Audit        audit.Recorder
}

// NewSubmitHandler creates the public submission handler.
func NewSubmitHandler(coupons repository.CouponRepository, limits *ratelimit.Service, recorder audit.Recorder) *SubmitHandler {
	return &SubmitHandler{Coupons: coupons, EmailLimiter: limits.SubmitEmail, Audit: recorder}
}

type submitRequest struct {
	Email string `json:"email" form:"email" binding:"required"`
}

// Submit records a coupon request for the resolved tenant. The email
// counter is keyed by tenant and normalized address, so the limit holds
// regardless of source IP, and recording is optimistic.
func (h *SubmitHandler) Submit(c *gin.Context) {
	tc, ok := apimiddleware.GetTenantContext(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid_tenant", "error_description": "Tenant not resolved."})
		return
	}

	var req submitRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "email is required."})
		return
	}
	email := ratelimit.NormalizeEmail(req.Email)
	if !strings.Contains(email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "email is invalid."})
		return
	}

	key := ratelimit.EmailKey(tc.Tenant.ID, email)
	if retryAfter, err := h.EmailLimiter.Check(key); err != nil {
		h.Audit.Record(c.Request.Context(), audit.Event{
			TenantID:   tc.Tenant.ID,
			TenantSlug: tc.Slug,
			Action:     "submit",
			Path:       c.Request.URL.Path,
			Outcome:    audit.OutcomeRateLimited,
		})
		apimiddleware.AbortRateLimited(c, retryAfter)
		return
	}
	h.EmailLimiter.Record(key)

	sub, err := h.Coupons.CreateSubmission(c.Request.Context(), domain.Submission{
		TenantID: tc.Tenant.ID,
		Email:    email,
		ClientIP: c.ClientIP(),
	})
	if err != nil {
		zap.L().Error("failed to store submission", zap.Int64("tenant_id", tc.Tenant.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Internal server error."})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": sub.ID, "status": "received"})
}
