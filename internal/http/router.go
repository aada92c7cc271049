package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/audit"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/config"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/http/handler"
	httpmiddleware "github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/http/middleware"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/middleware"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/ratelimit"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/tenant"
)

// NewRouter wires Gin routes and middleware. Per-request order on
// tenant-scoped routes: tenant resolver, consistency guard, role gate,
// forgery guard, rate limit, handler.
func NewRouter(
	cfg config.Config,
	authHandler *handler.AuthHandler,
	couponHandler *handler.CouponHandler,
	submitHandler *handler.SubmitHandler,
	authMiddleware *httpmiddleware.Auth,
	forgeryGuard *httpmiddleware.ForgeryGuard,
	resolver *tenant.Resolver,
	limits *ratelimit.Service,
	recorder audit.Recorder,
	logger *zap.Logger,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(logger))
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(authMiddleware.LoadSession)

	tenantGroup := r.Group("/t/:tenantSlug", middleware.Tenant(resolver), middleware.TenantCORS(cfg))
	{
		tenantGroup.POST("/login", authHandler.Login)
		tenantGroup.POST("/signup", authHandler.Signup)
		tenantGroup.POST("/logout", forgeryGuard.Handler, authHandler.Logout)

		api := tenantGroup.Group("/api", httpmiddleware.TenantGuard(recorder))
		{
			admin := api.Group("/admin", httpmiddleware.RequireAdmin(recorder), forgeryGuard.Handler)
			{
				admin.GET("/campaigns", couponHandler.ListCampaigns)
				admin.POST("/campaigns", couponHandler.CreateCampaign)
			}

			store := api.Group("/store", httpmiddleware.RequireStore(recorder), forgeryGuard.Handler)
			{
				store.POST("/redeem", couponHandler.Redeem)
			}

			superadmin := api.Group("/superadmin", httpmiddleware.RequireSuperAdmin(recorder), forgeryGuard.Handler)
			{
				superadmin.GET("/tenant", couponHandler.TenantSettings)
			}
		}
	}

	// Legacy API surface without a tenant prefix; tenant identity comes
	// from the legacy resolution helper inside each handler.
	legacy := r.Group("/api")
	{
		admin := legacy.Group("/admin", httpmiddleware.RequireAdmin(recorder), forgeryGuard.Handler)
		{
			admin.GET("/campaigns", couponHandler.LegacyListCampaigns)
		}

		store := legacy.Group("/store", httpmiddleware.RequireStore(recorder), forgeryGuard.Handler)
		{
			store.POST("/redeem", couponHandler.LegacyRedeem)
		}
	}

	// Public, unauthenticated coupon-request form. No forgery token exists
	// yet on this path; the IP ledger here and the per-email ledger in the
	// handler gate it instead.
	r.POST("/submit/:tenantSlug",
		middleware.Tenant(resolver),
		middleware.SubmitIPRateLimit(limits.SubmitIP),
		submitHandler.Submit,
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
