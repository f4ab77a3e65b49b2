package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Elzini/tenant-gateway/shared/config"
	"github.com/Elzini/tenant-gateway/shared/events"
	"github.com/Elzini/tenant-gateway/shared/models"
	"github.com/Elzini/tenant-gateway/shared/tenancy"
	"github.com/Elzini/tenant-gateway/shared/utils"
)

// Context keys set by the tenant middleware for downstream handlers.
const (
	ContextTenant          = "tenant"
	ContextTenantID        = "tenant_id"
	ContextTenantSubdomain = "tenant_subdomain"
	ContextBaseDomain      = "base_domain"
)

// NotFoundRenderer renders the user-facing page for a slug that matched no
// active tenant. Supplied by the gateway so the shared pipeline stays free of
// presentation concerns.
type NotFoundRenderer func(c *gin.Context, subdomain, baseDomain string)

// TenantMiddleware runs the per-request routing pipeline: hostname parse,
// reserved-slug filter, registry resolution, rate limiting. Tenant identity
// is carried in the gin context, never in package globals, so concurrent
// requests cannot cross-contaminate.
type TenantMiddleware struct {
	cfg      *config.GatewayConfig
	parser   *tenancy.HostnameParser
	reserved *tenancy.ReservedSet
	resolver *tenancy.Resolver
	limiter  *utils.RateLimiter
	producer *events.Producer // nil when the audit stream is disabled
	notFound NotFoundRenderer
}

// NewTenantMiddleware wires the pipeline stages together.
func NewTenantMiddleware(
	cfg *config.GatewayConfig,
	parser *tenancy.HostnameParser,
	reserved *tenancy.ReservedSet,
	resolver *tenancy.Resolver,
	limiter *utils.RateLimiter,
	producer *events.Producer,
	notFound NotFoundRenderer,
) *TenantMiddleware {
	return &TenantMiddleware{
		cfg:      cfg,
		parser:   parser,
		reserved: reserved,
		resolver: resolver,
		limiter:  limiter,
		producer: producer,
		notFound: notFound,
	}
}

// Handler returns the gin middleware executing the pipeline. Requests without
// a tenant context (unrecognized host, reserved slug, lookup failure in
// permissive mode) continue down the chain untouched.
func (m *TenantMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		host := c.Request.Host

		subdomain, baseDomain, ok := m.parser.Parse(host)
		if !ok {
			m.next(c, events.DecisionPassthrough, "", nil)
			return
		}

		if m.reserved.Contains(subdomain) {
			m.next(c, events.DecisionReserved, subdomain, nil)
			return
		}

		c.Set(ContextBaseDomain, baseDomain)

		tenant, err := m.resolver.Resolve(c.Request.Context(), subdomain)
		if err != nil {
			if errors.Is(err, tenancy.ErrTenantNotFound) {
				m.emit(c, events.DecisionNotFound, subdomain, nil, http.StatusNotFound)
				m.notFound(c, subdomain, baseDomain)
				c.Abort()
				return
			}

			logrus.WithError(err).WithField("subdomain", subdomain).
				Error("Tenant registry lookup failed")

			if m.cfg.Strict() {
				m.emit(c, events.DecisionLookupFailed, subdomain, nil, http.StatusServiceUnavailable)
				utils.ServiceUnavailableResponse(c, "Tenant resolution unavailable")
				c.Abort()
				return
			}

			// Fail open: forward without tenant context.
			m.next(c, events.DecisionLookupFailed, subdomain, nil)
			return
		}

		limit := int64(0)
		if tenant.Quota != nil {
			limit = tenant.Quota.MaxRequestsPerMinute
		}
		result := m.limiter.Allow(c.Request.Context(), tenant.ID.String(), limit)

		if result.Failed {
			logrus.WithField("tenant_id", tenant.ID).Warn("Rate limiter unavailable")
			if m.cfg.Strict() {
				m.emit(c, events.DecisionLimiterFailed, subdomain, tenant, http.StatusServiceUnavailable)
				utils.ServiceUnavailableResponse(c, "Admission control unavailable")
				c.Abort()
				return
			}
		}

		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Seconds())
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			m.emit(c, events.DecisionRateLimited, subdomain, tenant, http.StatusTooManyRequests)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": retryAfter,
			})
			c.Abort()
			return
		}

		c.Set(ContextTenant, tenant)
		c.Set(ContextTenantID, tenant.ID.String())
		c.Set(ContextTenantSubdomain, subdomain)

		m.next(c, events.DecisionResolved, subdomain, tenant)
	}
}

// next runs the remaining chain, then emits the audit event with the final
// response status.
func (m *TenantMiddleware) next(c *gin.Context, decision events.Decision, subdomain string, tenant *models.Tenant) {
	c.Next()
	m.emit(c, decision, subdomain, tenant, c.Writer.Status())
}

func (m *TenantMiddleware) emit(c *gin.Context, decision events.Decision, subdomain string, tenant *models.Tenant, status int) {
	if m.producer == nil {
		return
	}
	event := events.NewRoutingEvent(decision, c.Request.Host, c.Request.URL.Path, c.Request.Method)
	event.Subdomain = subdomain
	event.Status = status
	if tenant != nil {
		event.TenantID = tenant.ID.String()
	}
	if err := m.producer.Publish(event); err != nil {
		logrus.WithError(err).Debug("Routing event dropped")
	}
}

// TenantFromContext returns the resolved tenant for the current request.
func TenantFromContext(c *gin.Context) (*models.Tenant, bool) {
	value, exists := c.Get(ContextTenant)
	if !exists {
		return nil, false
	}
	tenant, ok := value.(*models.Tenant)
	return tenant, ok
}
