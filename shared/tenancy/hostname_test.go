package tenancy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestParser() *HostnameParser {
	return NewHostnameParser([]string{"elzini.com", "alnimar-car.com"}, "lovable.app")
}

func TestParseSubdomains(t *testing.T) {
	parser := newTestParser()

	tests := []struct {
		host       string
		subdomain  string
		baseDomain string
		ok         bool
	}{
		{"acme.elzini.com", "acme", "elzini.com", true},
		{"demo.alnimar-car.com", "demo", "alnimar-car.com", true},
		{"ACME.Elzini.COM", "acme", "elzini.com", true},
		{"a.b.elzini.com", "a.b", "elzini.com", true},
		{"elzini.com", "", "", false},
		{"alnimar-car.com", "", "", false},
		{"example.org", "", "", false},
		{"acme.elzini.org", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		sub, base, ok := parser.Parse(tt.host)
		assert.Equal(t, tt.ok, ok, "host %q", tt.host)
		assert.Equal(t, tt.subdomain, sub, "host %q", tt.host)
		assert.Equal(t, tt.baseDomain, base, "host %q", tt.host)
	}
}

func TestParseStripsPort(t *testing.T) {
	parser := newTestParser()

	sub, base, ok := parser.Parse("acme.elzini.com:8443")
	assert.True(t, ok)
	assert.Equal(t, "acme", sub)
	assert.Equal(t, "elzini.com", base)

	_, _, ok = parser.Parse("elzini.com:443")
	assert.False(t, ok)
}

func TestParseEarlyExits(t *testing.T) {
	parser := newTestParser()

	for _, host := range []string{
		"localhost",
		"localhost:3000",
		"127.0.0.1",
		"10.0.0.2:8080",
		"192.168.1.50",
		"preview.lovable.app",
		"my-branch.lovable.app",
	} {
		_, _, ok := parser.Parse(host)
		assert.False(t, ok, "host %q must not carry a tenant", host)
	}
}

func TestParseRoundTripsBuildTenantURL(t *testing.T) {
	parser := newTestParser()

	// buildTenantUrl followed by parse recovers the original subdomain.
	urlHost := "demo" + "." + parser.PrimaryBaseDomain()
	sub, base, ok := parser.Parse(urlHost)
	assert.True(t, ok)
	assert.Equal(t, "demo", sub)
	assert.Equal(t, parser.PrimaryBaseDomain(), base)
}
