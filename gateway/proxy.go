package main

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Elzini/tenant-gateway/shared/middleware"
)

// Hop-by-hop headers per RFC 7230 section 6.1. They describe the connection
// between two peers, not the request, so the forwarder strips them in both
// directions.
var hopByHopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Connection":    true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// copyEndToEndHeaders copies headers from src to dst, skipping hop-by-hop
// headers and any header the Connection header nominates.
func copyEndToEndHeaders(dst, src http.Header) {
	connectionScoped := map[string]bool{}
	for _, value := range src.Values("Connection") {
		for _, name := range strings.Split(value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				connectionScoped[http.CanonicalHeaderKey(name)] = true
			}
		}
	}
	for key, values := range src {
		if hopByHopHeaders[key] || connectionScoped[key] {
			continue
		}
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

// Forwarder proxies requests to the application origin. Bodies are forwarded
// as opaque streams in both directions; the forwarder never buffers or parses
// them.
type Forwarder struct {
	originURL             string
	tenantIDHeader        string
	tenantSubdomainHeader string
	httpClient            *http.Client
}

// NewForwarder creates a forwarder for the configured origin base URL.
func NewForwarder(originURL, tenantIDHeader, tenantSubdomainHeader string, originTimeout time.Duration) *Forwarder {
	return &Forwarder{
		originURL:             originURL,
		tenantIDHeader:        tenantIDHeader,
		tenantSubdomainHeader: tenantSubdomainHeader,
		httpClient: &http.Client{
			Timeout: originTimeout,
			// The gateway relays origin redirects to the client untouched.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Handle proxies one request to the origin. When the tenant middleware
// resolved a tenant, identity headers are set on the outgoing request and
// echoed on the client response so downstream consumers never re-derive
// tenant identity from the hostname.
func (f *Forwarder) Handle(c *gin.Context) {
	targetURL := f.originURL + c.Request.URL.Path
	if c.Request.URL.RawQuery != "" {
		targetURL += "?" + c.Request.URL.RawQuery
	}

	// The inbound request context propagates client disconnects to the
	// origin call.
	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, targetURL, c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to build origin request"})
		return
	}

	copyEndToEndHeaders(req.Header, c.Request.Header)
	req.Header.Set("X-Forwarded-Host", c.Request.Host)

	tenant, resolved := middleware.TenantFromContext(c)
	if resolved {
		req.Header.Set(f.tenantIDHeader, tenant.ID.String())
		req.Header.Set(f.tenantSubdomainHeader, c.GetString(middleware.ContextTenantSubdomain))
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		logrus.WithError(err).WithField("target", targetURL).Error("Origin request failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Origin unreachable"})
		return
	}
	defer resp.Body.Close()

	header := c.Writer.Header()
	copyEndToEndHeaders(header, resp.Header)
	if resolved {
		header.Set(f.tenantIDHeader, tenant.ID.String())
		header.Set(f.tenantSubdomainHeader, c.GetString(middleware.ContextTenantSubdomain))
	}

	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		logrus.WithError(err).Debug("Response stream interrupted")
	}
}
