package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/audit"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/domain"
	httpmiddleware "github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/http/middleware"
	apimiddleware "github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/middleware"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/repository"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/tenant"
)

// CouponHandler fronts the tenant-scoped business surface. Every query is
// scoped by a tenant id taken from the admission chain, never from the
// request body.
type CouponHandler struct {
	Coupons  repository.CouponRepository
	Resolver *tenant.Resolver
	Audit    audit.Recorder
}

// NewCouponHandler creates the coupon endpoints.
func NewCouponHandler(coupons repository.CouponRepository, resolver *tenant.Resolver, recorder audit.Recorder) *CouponHandler {
	return &CouponHandler{Coupons: coupons, Resolver: resolver, Audit: recorder}
}

// ListCampaigns returns the resolved tenant's campaigns.
func (h *CouponHandler) ListCampaigns(c *gin.Context) {
	tc, ok := apimiddleware.GetTenantContext(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid_tenant", "error_description": "Tenant not resolved."})
		return
	}
	h.listCampaigns(c, tc.Tenant.ID)
}

type createCampaignRequest struct {
	Name   string `json:"name" binding:"required"`
	Active bool   `json:"active"`
}

// CreateCampaign creates a campaign under the resolved tenant.
func (h *CouponHandler) CreateCampaign(c *gin.Context) {
	tc, ok := apimiddleware.GetTenantContext(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid_tenant", "error_description": "Tenant not resolved."})
		return
	}

	var req createCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "name is required."})
		return
	}

	campaign, err := h.Coupons.CreateCampaign(c.Request.Context(), domain.Campaign{
		TenantID: tc.Tenant.ID,
		Name:     strings.TrimSpace(req.Name),
		Active:   req.Active,
	})
	if err != nil {
		zap.L().Error("failed to create campaign", zap.Int64("tenant_id", tc.Tenant.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Internal server error."})
		return
	}
	c.JSON(http.StatusCreated, campaignResponse(campaign))
}

type redeemRequest struct {
	Code string `json:"code" binding:"required"`
}

// Redeem marks a coupon redeemed within the resolved tenant.
func (h *CouponHandler) Redeem(c *gin.Context) {
	tc, ok := apimiddleware.GetTenantContext(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid_tenant", "error_description": "Tenant not resolved."})
		return
	}
	h.redeem(c, tc.Tenant.ID)
}

// TenantSettings exposes the resolved tenant's record to superadmins.
func (h *CouponHandler) TenantSettings(c *gin.Context) {
	tc, ok := apimiddleware.GetTenantContext(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid_tenant", "error_description": "Tenant not resolved."})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":                   tc.Tenant.ID,
		"slug":                 tc.Tenant.Slug,
		"name":                 tc.Tenant.Name,
		"email_from_name":      tc.Tenant.EmailFromName,
		"email_from_address":   tc.Tenant.EmailFromAddress,
		"custom_domain":        tc.Tenant.CustomDomain,
		"mail_provider_domain": tc.Tenant.MailProviderDomain,
		"mail_provider_region": tc.Tenant.MailProviderRegion,
	})
}

// LegacyListCampaigns serves the pre-multi-tenant API surface. An
// unresolvable tenant is a hard 400; no query runs without one.
func (h *CouponHandler) LegacyListCampaigns(c *gin.Context) {
	tenantID, ok := httpmiddleware.ResolveLegacyTenantID(c, h.Resolver)
	if !ok {
		httpmiddleware.AbortUnresolvableTenant(c, h.Audit)
		return
	}
	h.listCampaigns(c, tenantID)
}

// LegacyRedeem is the legacy-path twin of Redeem.
func (h *CouponHandler) LegacyRedeem(c *gin.Context) {
	tenantID, ok := httpmiddleware.ResolveLegacyTenantID(c, h.Resolver)
	if !ok {
		httpmiddleware.AbortUnresolvableTenant(c, h.Audit)
		return
	}
	h.redeem(c, tenantID)
}

func (h *CouponHandler) listCampaigns(c *gin.Context, tenantID int64) {
	campaigns, err := h.Coupons.ListCampaigns(c.Request.Context(), tenantID)
	if err != nil {
		zap.L().Error("failed to list campaigns", zap.Int64("tenant_id", tenantID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "error_description": "Internal server error."})
		return
	}

	out := make([]gin.H, 0, len(campaigns))
	for _, campaign := range campaigns {
		out = append(out, campaignResponse(campaign))
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": out})
}

func (h *CouponHandler) redeem(c *gin.Context, tenantID int64) {
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "code is required."})
		return
	}

	coupon, err := h.Coupons.RedeemCoupon(c.Request.Context(), tenantID, strings.TrimSpace(req.Code))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "coupon_not_found", "error_description": "Coupon is unknown or already redeemed."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": coupon.Code, "redeemed": coupon.Redeemed})
}

func campaignResponse(campaign domain.Campaign) gin.H {
	return gin.H{
		"id":     campaign.ID,
		"name":   campaign.Name,
		"active": campaign.Active,
	}
}
