package tenancy

import (
	"net"
	"regexp"
	"strings"
)

var ipv4Pattern = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)

// HostnameParser extracts a candidate tenant slug from a request hostname.
// It is a pure function over immutable configuration and is safe for
// concurrent use.
type HostnameParser struct {
	baseDomains         []string
	previewDomainSuffix string
}

// NewHostnameParser creates a parser for the given base-domain set. Base
// domains are matched as dot-separated suffixes; hosts ending in the preview
// suffix never carry a tenant.
func NewHostnameParser(baseDomains []string, previewDomainSuffix string) *HostnameParser {
	normalized := make([]string, 0, len(baseDomains))
	for _, d := range baseDomains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			normalized = append(normalized, d)
		}
	}
	return &HostnameParser{
		baseDomains:         normalized,
		previewDomainSuffix: strings.ToLower(previewDomainSuffix),
	}
}

// Parse returns the subdomain and matched base domain for a Host header
// value, or ok=false when the host carries no tenant. Ports are stripped
// before matching.
func (p *HostnameParser) Parse(host string) (subdomain, baseDomain string, ok bool) {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return "", "", false
	}

	// Host headers may carry a port (acme.elzini.com:8443).
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	if host == "localhost" || ipv4Pattern.MatchString(host) {
		return "", "", false
	}
	if p.previewDomainSuffix != "" && strings.HasSuffix(host, p.previewDomainSuffix) {
		return "", "", false
	}

	for _, domain := range p.baseDomains {
		if host == domain {
			// Bare base domain, no tenant.
			return "", "", false
		}
		if strings.HasSuffix(host, "."+domain) {
			sub := strings.TrimSuffix(host, "."+domain)
			if sub == "" {
				return "", "", false
			}
			return sub, domain, true
		}
	}

	return "", "", false
}

// BaseDomains returns the configured base-domain set.
func (p *HostnameParser) BaseDomains() []string {
	return p.baseDomains
}

// PrimaryBaseDomain returns the first configured base domain, used for
// derived tenant URLs and the not-found page backlink.
func (p *HostnameParser) PrimaryBaseDomain() string {
	if len(p.baseDomains) == 0 {
		return ""
	}
	return p.baseDomains[0]
}
