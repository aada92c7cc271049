package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/domain"
	apimiddleware "github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/middleware"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/ratelimit"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/tenant"
)

type stubCouponRepo struct {
	submissions []domain.Submission
	campaigns   []domain.Campaign
}

func (s *stubCouponRepo) ListCampaigns(_ context.Context, tenantID int64) ([]domain.Campaign, error) {
	var out []domain.Campaign
	for _, c := range s.campaigns {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubCouponRepo) CreateCampaign(_ context.Context, campaign domain.Campaign) (domain.Campaign, error) {
	campaign.ID = int64(len(s.campaigns) + 1)
	s.campaigns = append(s.campaigns, campaign)
	return campaign, nil
}

func (s *stubCouponRepo) RedeemCoupon(_ context.Context, tenantID int64, code string) (domain.Coupon, error) {
	return domain.Coupon{TenantID: tenantID, Code: code, Redeemed: true}, nil
}

func (s *stubCouponRepo) CreateSubmission(_ context.Context, sub domain.Submission) (domain.Submission, error) {
	sub.ID = int64(len(s.submissions) + 1)
	s.submissions = append(s.submissions, sub)
	return sub, nil
}

type submitTestEnv struct {
	router  *gin.Engine
	coupons *stubCouponRepo
	clock   *fakeClock
}

func newSubmitTestEnv(t *testing.T) *submitTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clk := &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	limits := ratelimit.NewService(ledgerConfig(), zap.NewNop(), ratelimit.WithClock(clk.Now))
	coupons := &stubCouponRepo{}
	rec := &captureRecorder{}

	resolver := tenant.NewResolver(&stubTenantRepo{tenants: map[string]domain.Tenant{
		"globex": {ID: 1, Slug: "globex"},
		"acme":   {ID: 2, Slug: "acme"},
	}})

	h := NewSubmitHandler(coupons, limits, rec)

	r := gin.New()
	r.POST("/submit/:tenantSlug",
		apimiddleware.Tenant(resolver),
		apimiddleware.SubmitIPRateLimit(limits.SubmitIP),
		h.Submit,
	)

	return &submitTestEnv{router: r, coupons: coupons, clock: clk}
}

func (env *submitTestEnv) post(slug, email, remoteAddr string) *httptest.ResponseRecorder {
	form := url.Values{"email": {email}}
	req := httptest.NewRequest(http.MethodPost, "/submit/"+slug, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestSubmitStoresNormalizedSubmission(t *testing.T) {
	env := newSubmitTestEnv(t)

	w := env.post("globex", " Shopper@Example.COM ", "203.0.113.7:4000")
	require.Equal(t, http.StatusCreated, w.Code)

	require.Len(t, env.coupons.submissions, 1)
	require.Equal(t, "shopper@example.com", env.coupons.submissions[0].Email)
	require.Equal(t, int64(1), env.coupons.submissions[0].TenantID)
	require.Equal(t, "203.0.113.7", env.coupons.submissions[0].ClientIP)
}

func TestSubmitEmailCapHoldsAcrossIPs(t *testing.T) {
	env := newSubmitTestEnv(t)

	ips := []string{"203.0.113.1:1", "203.0.113.2:1", "203.0.113.3:1"}
	for i, ip := range ips {
		require.Equal(t, http.StatusCreated, env.post("globex", "shopper@example.com", ip).Code, "submission %d", i+1)
	}

	// Fourth from yet another IP is still refused: the counter follows the
	// address, not the source.
	w := env.post("globex", "shopper@example.com", "203.0.113.4:1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Contains(t, w.Body.String(), "24 hours")

	// A different address from the same IP is unaffected.
	require.Equal(t, http.StatusCreated, env.post("globex", "other@example.com", "203.0.113.4:1").Code)
}

func TestSubmitEmailCapCountsPlusAliasesTogether(t *testing.T) {
	env := newSubmitTestEnv(t)

	require.Equal(t, http.StatusCreated, env.post("globex", "shopper@example.com", "203.0.113.1:1").Code)
	require.Equal(t, http.StatusCreated, env.post("globex", "shopper+a@example.com", "203.0.113.2:1").Code)
	require.Equal(t, http.StatusCreated, env.post("globex", "Shopper+b@example.com", "203.0.113.3:1").Code)

	w := env.post("globex", "shopper+c@example.com", "203.0.113.4:1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestSubmitEmailCapIsPerTenant(t *testing.T) {
	env := newSubmitTestEnv(t)

	for _, ip := range []string{"203.0.113.1:1", "203.0.113.2:1", "203.0.113.3:1"} {
		require.Equal(t, http.StatusCreated, env.post("globex", "shopper@example.com", ip).Code)
	}
	require.Equal(t, http.StatusTooManyRequests, env.post("globex", "shopper@example.com", "203.0.113.4:1").Code)

	// Same address on another tenant has its own counter.
	require.Equal(t, http.StatusCreated, env.post("acme", "shopper@example.com", "203.0.113.4:1").Code)
}

func TestSubmitEmailCapResetsNextDay(t *testing.T) {
	env := newSubmitTestEnv(t)

	for _, ip := range []string{"203.0.113.1:1", "203.0.113.2:1", "203.0.113.3:1"} {
		require.Equal(t, http.StatusCreated, env.post("globex", "shopper@example.com", ip).Code)
	}
	require.Equal(t, http.StatusTooManyRequests, env.post("globex", "shopper@example.com", "203.0.113.4:1").Code)

	env.clock.Advance(25 * time.Hour)
	require.Equal(t, http.StatusCreated, env.post("globex", "shopper@example.com", "203.0.113.4:1").Code)
}

func TestSubmitRejectsInvalidEmail(t *testing.T) {
	env := newSubmitTestEnv(t)

	require.Equal(t, http.StatusBadRequest, env.post("globex", "not-an-email", "203.0.113.1:1").Code)
	require.Empty(t, env.coupons.submissions)
}

func TestSubmitUnknownTenantIs404(t *testing.T) {
	env := newSubmitTestEnv(t)

	require.Equal(t, http.StatusNotFound, env.post("nobody", "shopper@example.com", "203.0.113.1:1").Code)
}
