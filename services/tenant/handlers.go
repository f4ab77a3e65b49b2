package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Elzini/tenant-gateway/shared/models"
	"github.com/Elzini/tenant-gateway/shared/tenancy"
	"github.com/Elzini/tenant-gateway/shared/utils"
)

// rpcRequest is the action-dispatch envelope of the administrative surface.
type rpcRequest struct {
	Action    string `json:"action" binding:"required"`
	Subdomain string `json:"subdomain"`
	CompanyID string `json:"company_id"`
}

// tenantSummary is the wire shape of a tenant in resolve/health responses.
type tenantSummary struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Subdomain   string             `json:"subdomain"`
	CompanyType models.CompanyType `json:"company_type"`
	Schema      string             `json:"schema"`
}

// tenantRouting extends the summary with derived routing metadata for list().
type tenantRouting struct {
	tenantSummary
	IsActive bool   `json:"is_active"`
	URL      string `json:"url,omitempty"`
}

type adminDeps struct {
	registry tenancy.Registry
	resolver *tenancy.Resolver
	limiter  *utils.RateLimiter
	reserved *tenancy.ReservedSet
	// baseDomain is the primary base domain used for derived tenant URLs.
	baseDomain string
}

func summarize(t *models.Tenant) tenantSummary {
	return tenantSummary{
		ID:          t.ID.String(),
		Name:        t.Name,
		Subdomain:   t.SubdomainOrEmpty(),
		CompanyType: t.CompanyType,
		Schema:      t.SchemaName(),
	}
}

// handleRPC dispatches the {action, subdomain?, company_id?} envelope.
func handleRPC(deps *adminDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req rpcRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		switch req.Action {
		case "resolve":
			resolveTenant(c, deps, req.Subdomain)
		case "health":
			reportHealth(c, deps, req.CompanyID)
		case "list":
			listTenants(c, deps)
		default:
			utils.BadRequestResponse(c, "Unknown action: "+req.Action)
		}
	}
}

// handleResolve is the GET adapter over the resolve operation.
func handleResolve(deps *adminDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		resolveTenant(c, deps, c.Param("subdomain"))
	}
}

// handleHealth is the GET adapter over the health operation.
func handleHealth(deps *adminDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		reportHealth(c, deps, c.Param("company_id"))
	}
}

// handleList is the GET adapter over the list operation.
func handleList(deps *adminDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		listTenants(c, deps)
	}
}

func resolveTenant(c *gin.Context, deps *adminDeps, subdomain string) {
	if subdomain == "" {
		utils.BadRequestResponse(c, "subdomain is required")
		return
	}

	// Reserved slugs never resolve, regardless of registry contents.
	if deps.reserved.Contains(subdomain) {
		c.JSON(http.StatusNotFound, gin.H{
			"resolved":  false,
			"error":     "Subdomain is reserved",
			"subdomain": subdomain,
		})
		return
	}

	tenant, err := deps.resolver.Resolve(c.Request.Context(), subdomain)
	if err != nil {
		if errors.Is(err, tenancy.ErrTenantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"resolved":  false,
				"error":     "No active company for subdomain",
				"subdomain": subdomain,
			})
			return
		}
		logrus.WithError(err).Error("Resolve lookup failed")
		utils.InternalServerErrorResponse(c, "Registry lookup failed")
		return
	}

	limit := int64(0)
	if tenant.Quota != nil {
		limit = tenant.Quota.MaxRequestsPerMinute
	}
	if exceeded, retryAfter := deps.limiter.Exceeded(c.Request.Context(), tenant.ID.String(), limit); exceeded {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"resolved":    false,
			"error":       "Rate limit exceeded",
			"retry_after": int(retryAfter.Seconds()),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"resolved": true,
		"tenant":   summarize(tenant),
	})
}

func reportHealth(c *gin.Context, deps *adminDeps, companyID string) {
	if companyID == "" {
		utils.BadRequestResponse(c, "company_id is required")
		return
	}

	tenant, err := deps.registry.GetTenant(c.Request.Context(), companyID)
	if err != nil {
		if errors.Is(err, tenancy.ErrTenantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"healthy": false,
				"error":   "Company not found",
			})
			return
		}
		logrus.WithError(err).Error("Health lookup failed")
		utils.InternalServerErrorResponse(c, "Registry lookup failed")
		return
	}

	// Isolation artifacts are reported, never treated as fatal: a tenant
	// mid-provisioning is healthy but incompletely isolated.
	schemaExists, err := deps.registry.SchemaExists(c.Request.Context(), tenant.SchemaName())
	if err != nil {
		logrus.WithError(err).Warn("Schema existence check failed")
		schemaExists = false
	}

	quota, err := deps.registry.GetQuota(c.Request.Context(), tenant.ID.String())
	if err != nil && !errors.Is(err, tenancy.ErrTenantNotFound) {
		logrus.WithError(err).Warn("Quota fetch failed")
	}

	isolation := gin.H{
		"schema_exists":         schemaExists,
		"encryption_configured": quota.EncryptionConfigured(),
		"quotas_configured":     quota != nil,
		"quotas":                quota,
	}

	c.JSON(http.StatusOK, gin.H{
		"healthy":   true,
		"tenant":    summarize(tenant),
		"isolation": isolation,
	})
}

// listTenants enumerates every tenant with derived routing metadata. There is
// deliberately no pagination; operator tooling consumes the full set, and the
// endpoint is off the hot path. Revisit if the registry grows past a few
// thousand rows.
func listTenants(c *gin.Context, deps *adminDeps) {
	tenants, err := deps.registry.ListTenants(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("Tenant list failed")
		utils.InternalServerErrorResponse(c, "Registry list failed")
		return
	}

	out := make([]tenantRouting, 0, len(tenants))
	var active, configured int
	for i := range tenants {
		t := &tenants[i]
		entry := tenantRouting{
			tenantSummary: summarize(t),
			IsActive:      t.IsActive,
		}
		if t.HasSubdomain() {
			configured++
			entry.URL = models.BuildTenantURL(*t.Subdomain, deps.baseDomain)
		}
		if t.IsActive {
			active++
		}
		out = append(out, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"tenants":    out,
		"total":      len(tenants),
		"active":     active,
		"configured": configured,
	})
}
