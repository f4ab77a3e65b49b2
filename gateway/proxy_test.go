package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elzini/tenant-gateway/shared/config"
	"github.com/Elzini/tenant-gateway/shared/middleware"
	"github.com/Elzini/tenant-gateway/shared/models"
	"github.com/Elzini/tenant-gateway/shared/tenancy"
	"github.com/Elzini/tenant-gateway/shared/utils"
)

type stubRegistry struct {
	tenants map[string]*models.Tenant
	err     error
}

func (s *stubRegistry) FindActiveBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	if s.err != nil {
		return nil, s.err
	}
	if tenant, ok := s.tenants[subdomain]; ok {
		return tenant, nil
	}
	return nil, tenancy.ErrTenantNotFound
}

func (s *stubRegistry) GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	return nil, tenancy.ErrTenantNotFound
}

func (s *stubRegistry) ListTenants(ctx context.Context) ([]models.Tenant, error) { return nil, nil }

func (s *stubRegistry) GetQuota(ctx context.Context, tenantID string) (*models.TenantQuota, error) {
	return nil, tenancy.ErrTenantNotFound
}

func (s *stubRegistry) SchemaExists(ctx context.Context, schema string) (bool, error) {
	return false, nil
}

// originCapture records what the origin saw for assertions.
type originCapture struct {
	path            string
	query           string
	method          string
	body            string
	tenantID        string
	tenantSubdomain string
}

type gatewayFixture struct {
	router   *gin.Engine
	registry *stubRegistry
	origin   *httptest.Server
	captured *originCapture
}

func newGateway(t *testing.T, mode config.IsolationMode) *gatewayFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	captured := &originCapture{}
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*captured = originCapture{
			path:            r.URL.Path,
			query:           r.URL.RawQuery,
			method:          r.Method,
			body:            string(body),
			tenantID:        r.Header.Get("X-Tenant-ID"),
			tenantSubdomain: r.Header.Get("X-Tenant-Subdomain"),
		}
		w.Header().Set("X-Origin", "app")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("origin says hello"))
	}))
	t.Cleanup(origin.Close)

	cfg := &config.GatewayConfig{
		BaseDomains:           []string{"elzini.com", "alnimar-car.com"},
		ReservedSubdomains:    []string{"www", "app", "api"},
		PreviewDomainSuffix:   "lovable.app",
		OriginURL:             origin.URL,
		IsolationMode:         mode,
		RateLimitRequests:     50,
		RateLimitWindow:       time.Minute,
		ResolverCacheTTL:      time.Minute,
		LookupTimeout:         time.Second,
		OriginTimeout:         5 * time.Second,
		TenantIDHeader:        "X-Tenant-ID",
		TenantSubdomainHeader: "X-Tenant-Subdomain",
	}

	registry := &stubRegistry{tenants: map[string]*models.Tenant{}}
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	resolver := tenancy.NewResolver(registry, nil, cfg.ResolverCacheTTL, cfg.LookupTimeout)
	limiter := utils.NewRateLimiter(client, cfg.RateLimitRequests, cfg.RateLimitWindow, !cfg.Strict())
	forwarder := NewForwarder(cfg.OriginURL, cfg.TenantIDHeader, cfg.TenantSubdomainHeader, cfg.OriginTimeout)
	m := middleware.NewTenantMiddleware(cfg, tenancy.NewHostnameParser(cfg.BaseDomains, cfg.PreviewDomainSuffix),
		tenancy.NewReservedSet(cfg.ReservedSubdomains), resolver, limiter, nil, renderTenantNotFound)

	router := gin.New()
	router.NoRoute(m.Handler(), forwarder.Handle)

	return &gatewayFixture{router: router, registry: registry, origin: origin, captured: captured}
}

func (g *gatewayFixture) addTenant(subdomain string) *models.Tenant {
	tenant := &models.Tenant{
		ID:        uuid.New(),
		Name:      "Tenant " + subdomain,
		Subdomain: &subdomain,
		IsActive:  true,
	}
	g.registry.tenants[subdomain] = tenant
	return tenant
}

func (g *gatewayFixture) do(method, host, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	req.Host = host
	w := httptest.NewRecorder()
	g.router.ServeHTTP(w, req)
	return w
}

// Scenario: unknown subdomain renders the localized not-found page.
func TestGatewayTenantNotFoundPage(t *testing.T) {
	g := newGateway(t, config.ModePermissive)

	w := g.do(http.MethodGet, "acme.elzini.com", "/", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "text/html; charset=UTF-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "acme")
	assert.Contains(t, w.Body.String(), `dir="rtl"`)
	assert.Contains(t, w.Body.String(), "https://elzini.com")
}

// Scenario: reserved subdomain passes through with original path, no headers.
func TestGatewayReservedSubdomainPassthrough(t *testing.T) {
	g := newGateway(t, config.ModePermissive)
	g.addTenant("www")

	w := g.do(http.MethodGet, "www.elzini.com", "/login?next=%2Fhome", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/login", g.captured.path)
	assert.Equal(t, "next=%2Fhome", g.captured.query)
	assert.Empty(t, g.captured.tenantID)
	assert.Empty(t, w.Header().Get("X-Tenant-ID"))
	assert.Equal(t, "origin says hello", w.Body.String())
}

// Scenario: resolved tenant carries identity headers on request and response.
func TestGatewayResolvedTenantHeaders(t *testing.T) {
	g := newGateway(t, config.ModePermissive)
	tenant := g.addTenant("demo")

	w := g.do(http.MethodPost, "demo.alnimar-car.com", "/api/orders", strings.NewReader(`{"qty":3}`))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.MethodPost, g.captured.method)
	assert.Equal(t, `{"qty":3}`, g.captured.body)

	// Upstream request headers.
	assert.Equal(t, tenant.ID.String(), g.captured.tenantID)
	assert.Equal(t, "demo", g.captured.tenantSubdomain)

	// Echoed client response headers.
	assert.Equal(t, tenant.ID.String(), w.Header().Get("X-Tenant-ID"))
	assert.Equal(t, "demo", w.Header().Get("X-Tenant-Subdomain"))
	assert.Equal(t, "app", w.Header().Get("X-Origin"))
}

// Scenario: registry outage fails open to a plain passthrough.
func TestGatewayLookupFailurePassthrough(t *testing.T) {
	g := newGateway(t, config.ModePermissive)
	g.registry.err = errors.New("rpc timeout")

	w := g.do(http.MethodGet, "beta.elzini.com", "/reports", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/reports", g.captured.path)
	assert.Empty(t, g.captured.tenantID)
	assert.Empty(t, w.Header().Get("X-Tenant-ID"))
}

func TestGatewayHostWithPort(t *testing.T) {
	g := newGateway(t, config.ModePermissive)
	tenant := g.addTenant("acme")

	w := g.do(http.MethodGet, "acme.elzini.com:8443", "/", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, tenant.ID.String(), w.Header().Get("X-Tenant-ID"))
}

func TestGatewayOriginUnreachable(t *testing.T) {
	g := newGateway(t, config.ModePermissive)
	g.addTenant("demo")
	g.origin.Close()

	w := g.do(http.MethodGet, "demo.elzini.com", "/", nil)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestGatewayPreviewDomainPassthrough(t *testing.T) {
	g := newGateway(t, config.ModePermissive)

	w := g.do(http.MethodGet, "feature-branch.lovable.app", "/", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, g.captured.tenantID)
}

// Scenario: connection-scoped headers stay on their own hop; end-to-end
// headers cross the gateway untouched.
func TestGatewayStripsHopByHopHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seen http.Header
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		w.Header().Set("Keep-Alive", "timeout=5")
		w.Header().Set("X-Origin", "app")
		w.WriteHeader(http.StatusOK)
	}))
	defer origin.Close()

	forwarder := NewForwarder(origin.URL, "X-Tenant-ID", "X-Tenant-Subdomain", 5*time.Second)
	router := gin.New()
	router.NoRoute(forwarder.Handle)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "demo.elzini.com"
	req.Header.Set("Connection", "keep-alive, X-Internal")
	req.Header.Set("Keep-Alive", "timeout=5")
	req.Header.Set("Proxy-Connection", "keep-alive")
	req.Header.Set("Te", "trailers")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("X-Internal", "connection-scoped")
	req.Header.Set("Accept-Language", "ar")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	for _, name := range []string{"Connection", "Keep-Alive", "Proxy-Connection", "Te", "Upgrade", "X-Internal"} {
		assert.Empty(t, seen.Get(name), "request header %s reached the origin", name)
	}
	assert.Equal(t, "ar", seen.Get("Accept-Language"))

	assert.Empty(t, w.Header().Get("Keep-Alive"))
	assert.Equal(t, "app", w.Header().Get("X-Origin"))
}
