package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// IsolationMode controls how the gateway reacts to infrastructure failures
// in the lookup and rate-limit stages.
type IsolationMode string

const (
	// ModePermissive degrades to "no tenant" / "allow" on infra failures.
	ModePermissive IsolationMode = "permissive"
	// ModeStrict rejects requests when tenant isolation cannot be verified.
	ModeStrict IsolationMode = "strict"
)

// GatewayConfig holds the routing gateway configuration, loaded once at
// startup from environment variables and immutable afterwards.
type GatewayConfig struct {
	// BaseDomains are the root domains under which subdomain tenancy applies.
	BaseDomains []string
	// ReservedSubdomains never resolve to a tenant.
	ReservedSubdomains []string
	// PreviewDomainSuffix marks preview/staging hosts that bypass tenancy.
	PreviewDomainSuffix string
	// OriginURL is the base URL of the upstream application.
	OriginURL string

	IsolationMode IsolationMode

	// Rate limiting defaults; per-tenant quotas override the budget.
	RateLimitRequests int64
	RateLimitWindow   time.Duration

	// ResolverCacheTTL bounds how long a cached tenant resolution may lag
	// behind a deactivation or subdomain change.
	ResolverCacheTTL time.Duration

	LookupTimeout time.Duration
	OriginTimeout time.Duration

	TenantIDHeader        string
	TenantSubdomainHeader string

	KafkaBroker        string
	RoutingEventsTopic string
}

// LoadGatewayConfig reads the gateway configuration from the environment.
func LoadGatewayConfig() *GatewayConfig {
	return &GatewayConfig{
		BaseDomains:         splitList(getEnv("BASE_DOMAINS", "elzini.com,alnimar-car.com")),
		ReservedSubdomains:  splitList(getEnv("RESERVED_SUBDOMAINS", "www,app,api,admin,mail,smtp,ftp,ns1,ns2,webmail,cpanel,staging,dev,test")),
		PreviewDomainSuffix: getEnv("PREVIEW_DOMAIN_SUFFIX", "lovable.app"),
		OriginURL:           strings.TrimRight(getEnv("ORIGIN_URL", "http://localhost:3000"), "/"),

		IsolationMode: parseIsolationMode(getEnv("ISOLATION_MODE", "permissive")),

		RateLimitRequests: getEnvInt64("RATE_LIMIT_REQUESTS", 120),
		RateLimitWindow:   time.Duration(getEnvInt64("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,

		ResolverCacheTTL: time.Duration(getEnvInt64("RESOLVER_CACHE_TTL_SECONDS", 30)) * time.Second,

		LookupTimeout: time.Duration(getEnvInt64("LOOKUP_TIMEOUT_MS", 2000)) * time.Millisecond,
		OriginTimeout: time.Duration(getEnvInt64("ORIGIN_TIMEOUT_SECONDS", 30)) * time.Second,

		TenantIDHeader:        "X-Tenant-ID",
		TenantSubdomainHeader: "X-Tenant-Subdomain",

		KafkaBroker:        os.Getenv("KAFKA_BROKER"),
		RoutingEventsTopic: getEnv("ROUTING_EVENTS_TOPIC", "routing-events"),
	}
}

// Strict reports whether the gateway should fail closed on infra errors.
func (c *GatewayConfig) Strict() bool {
	return c.IsolationMode == ModeStrict
}

func parseIsolationMode(raw string) IsolationMode {
	if strings.EqualFold(raw, string(ModeStrict)) {
		return ModeStrict
	}
	return ModePermissive
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, strings.ToLower(trimmed))
		}
	}
	return out
}

// getEnvInt64 gets an integer environment variable with a default value
func getEnvInt64(key string, defaultValue int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
