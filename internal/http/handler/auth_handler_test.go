package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/audit"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/config"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/domain"
	httpmiddleware "github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/http/middleware"
	apimiddleware "github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/middleware"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/ratelimit"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/session"
	"github.com/lorenzoMuro88/railwaycoupongen-sub004/internal/tenant"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type stubTenantRepo struct {
	tenants map[string]domain.Tenant
}

func (s *stubTenantRepo) GetBySlug(_ context.Context, slug string) (domain.Tenant, error) {
	t, ok := s.tenants[slug]
	if !ok {
		return domain.Tenant{}, domain.ErrTenantNotFound
	}
	return t, nil
}

func (s *stubTenantRepo) GetByID(_ context.Context, tenantID int64) (domain.Tenant, error) {
	for _, t := range s.tenants {
		if t.ID == tenantID {
			return t, nil
		}
	}
	return domain.Tenant{}, domain.ErrTenantNotFound
}

type stubUserRepo struct {
	users  map[string]domain.User
	nextID int64
}

func (s *stubUserRepo) GetByUsername(_ context.Context, tenantID int64, username string) (domain.User, error) {
	u, ok := s.users[username]
	if !ok || u.TenantID != tenantID {
		return domain.User{}, fmt.Errorf("get user: no rows")
	}
	return u, nil
}

func (s *stubUserRepo) Create(_ context.Context, user domain.User) (domain.User, error) {
	if _, exists := s.users[user.Username]; exists {
		return domain.User{}, fmt.Errorf("create user: duplicate username")
	}
	s.nextID++
	user.ID = s.nextID
	if s.users == nil {
		s.users = make(map[string]domain.User)
	}
	s.users[user.Username] = user
	return user, nil
}

type captureRecorder struct {
	events []audit.Event
}

func (r *captureRecorder) Record(_ context.Context, event audit.Event) {
	r.events = append(r.events, event)
}

func ledgerConfig() config.Config {
	return config.Config{
		LoginWindow:       10 * time.Minute,
		LoginMaxAttempts:  10,
		LoginLockDuration: 30 * time.Minute,

		SubmitIPWindow:       10 * time.Minute,
		SubmitIPMaxAttempts:  20,
		SubmitIPLockDuration: 30 * time.Minute,

		SubmitEmailWindow:       24 * time.Hour,
		SubmitEmailMaxAttempts:  3,
		SubmitEmailLockDuration: 24 * time.Hour,

		LedgerSweepInterval: time.Minute,
	}
}

type authTestEnv struct {
	router   *gin.Engine
	sessions *session.Manager
	limits   *ratelimit.Service
	clock    *fakeClock
	recorder *captureRecorder
}

func newAuthTestEnv(t *testing.T) *authTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clk := &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	limits := ratelimit.NewService(ledgerConfig(), zap.NewNop(), ratelimit.WithClock(clk.Now))
	sessions := session.NewManager(time.Hour, time.Minute, zap.NewNop())
	rec := &captureRecorder{}

	hash, err := bcrypt.GenerateFromPassword([]byte("open-sesame"), bcrypt.MinCost)
	require.NoError(t, err)
	users := &stubUserRepo{users: map[string]domain.User{
		"ana": {ID: 1, TenantID: 1, Username: "ana", PasswordHash: string(hash), Role: domain.RoleAdmin},
	}, nextID: 1}

	resolver := tenant.NewResolver(&stubTenantRepo{tenants: map[string]domain.Tenant{
		"globex": {ID: 1, Slug: "globex"},
	}})

	h := NewAuthHandler(users, sessions, limits, rec, time.Hour)
	auth := &httpmiddleware.Auth{Sessions: sessions}

	r := gin.New()
	r.Use(auth.LoadSession)
	grp := r.Group("/t/:tenantSlug", apimiddleware.Tenant(resolver))
	grp.POST("/login", h.Login)
	grp.POST("/signup", h.Signup)
	grp.POST("/logout", h.Logout)

	return &authTestEnv{router: r, sessions: sessions, limits: limits, clock: clk, recorder: rec}
}

func (env *authTestEnv) postLogin(username, password string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(gin.H{"username": username, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/t/globex/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestLoginSuccessIssuesSessionAndClearsLedger(t *testing.T) {
	env := newAuthTestEnv(t)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusUnauthorized, env.postLogin("ana", "wrong").Code)
	}

	w := env.postLogin("ana", "open-sesame")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Username     string `json:"username"`
		TenantSlug   string `json:"tenant_slug"`
		ForgeryToken string `json:"forgery_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "ana", resp.Username)
	require.Equal(t, "globex", resp.TenantSlug)
	require.NotEmpty(t, resp.ForgeryToken)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, session.CookieName, cookies[0].Name)
	_, ok := env.sessions.Get(cookies[0].Value)
	require.True(t, ok)

	// Success wipes the failure count for this IP.
	require.Equal(t, 0, env.limits.Login.Len())
}

func TestLoginLockoutAfterTenFailures(t *testing.T) {
	env := newAuthTestEnv(t)

	for i := 0; i < 10; i++ {
		w := env.postLogin("ana", "wrong")
		require.Equal(t, http.StatusUnauthorized, w.Code, "attempt %d", i+1)
	}

	// Two minutes later even correct credentials are refused, with the
	// remaining lock time disclosed and nothing else.
	env.clock.Advance(2 * time.Minute)
	w := env.postLogin("ana", "open-sesame")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "1680", w.Header().Get("Retry-After"))
	require.Contains(t, w.Body.String(), "28 minutes")
	require.NotContains(t, w.Body.String(), "attempts remaining")

	last := env.recorder.events[len(env.recorder.events)-1]
	require.Equal(t, audit.OutcomeRateLimited, last.Outcome)
	require.Equal(t, "login", last.Action)
}

func TestLoginLockExpiresAfterLockDuration(t *testing.T) {
	env := newAuthTestEnv(t)

	for i := 0; i < 10; i++ {
		env.postLogin("ana", "wrong")
	}
	require.Equal(t, http.StatusTooManyRequests, env.postLogin("ana", "open-sesame").Code)

	env.clock.Advance(31 * time.Minute)
	require.Equal(t, http.StatusOK, env.postLogin("ana", "open-sesame").Code)
}

func TestLoginFailureResponseDoesNotDistinguishUnknownUser(t *testing.T) {
	env := newAuthTestEnv(t)

	unknown := env.postLogin("nobody", "whatever")
	badPassword := env.postLogin("ana", "wrong")

	require.Equal(t, http.StatusUnauthorized, unknown.Code)
	require.Equal(t, badPassword.Body.String(), unknown.Body.String())
}

func TestLoginUnknownTenantIs404(t *testing.T) {
	env := newAuthTestEnv(t)

	body, _ := json.Marshal(gin.H{"username": "ana", "password": "open-sesame"})
	req := httptest.NewRequest(http.MethodPost, "/t/nobody/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSignupCreatesStoreAccountAndSignsIn(t *testing.T) {
	env := newAuthTestEnv(t)

	body, _ := json.Marshal(gin.H{"username": "newbie", "password": "hunter22"})
	req := httptest.NewRequest(http.MethodPost, "/t/globex/signup", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"role":"store"`)
	require.Len(t, w.Result().Cookies(), 1)
}

func TestLogoutDestroysSession(t *testing.T) {
	env := newAuthTestEnv(t)

	login := env.postLogin("ana", "open-sesame")
	require.Equal(t, http.StatusOK, login.Code)
	cookie := login.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodPost, "/t/globex/logout", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	_, ok := env.sessions.Get(cookie.Value)
	require.False(t, ok)
}

func TestLoginRegenerateRotatesSessionAndToken(t *testing.T) {
	env := newAuthTestEnv(t)

	first := env.postLogin("ana", "open-sesame")
	require.Equal(t, http.StatusOK, first.Code)
	firstCookie := first.Result().Cookies()[0]

	body, _ := json.Marshal(gin.H{"username": "ana", "password": "open-sesame"})
	req := httptest.NewRequest(http.MethodPost, "/t/globex/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(firstCookie)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	secondCookie := w.Result().Cookies()[0]
	require.NotEqual(t, firstCookie.Value, secondCookie.Value)

	_, ok := env.sessions.Get(firstCookie.Value)
	require.False(t, ok, "old session must be gone after regeneration")
}
