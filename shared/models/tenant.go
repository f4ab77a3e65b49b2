package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CompanyType selects the UI variant the upstream application renders for a
// tenant. The gateway never branches on it; it is carried through for clients.
type CompanyType string

const (
	CompanyTypeGeneral    CompanyType = "general"
	CompanyTypeCarDealer  CompanyType = "car_dealer"
	CompanyTypeRestaurant CompanyType = "restaurant"
)

// Tenant represents one company account in the registry
type Tenant struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name        string         `json:"name" gorm:"not null"`
	Subdomain   *string        `json:"subdomain" gorm:"uniqueIndex"` // nil until configured
	CompanyType CompanyType    `json:"company_type" gorm:"default:'general'"`
	IsActive    bool           `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	Quota *TenantQuota `json:"quota,omitempty" gorm:"foreignKey:TenantID"`
}

// TableName returns the table name for the Tenant model
func (Tenant) TableName() string {
	return "tenants"
}

// HasSubdomain reports whether the tenant is reachable by hostname.
func (t *Tenant) HasSubdomain() bool {
	return t.Subdomain != nil && *t.Subdomain != ""
}

// SubdomainOrEmpty returns the configured slug, or "" when unset.
func (t *Tenant) SubdomainOrEmpty() string {
	if t.Subdomain == nil {
		return ""
	}
	return *t.Subdomain
}

// SchemaName derives the per-tenant database schema name. Tenants without a
// subdomain fall back to their id so the name is always defined.
func (t *Tenant) SchemaName() string {
	if t.HasSubdomain() {
		return "tenant_" + strings.ReplaceAll(strings.ToLower(*t.Subdomain), "-", "_")
	}
	return "tenant_" + strings.ReplaceAll(t.ID.String(), "-", "_")
}

// TenantQuota holds per-tenant limits and isolation markers. Consulted by the
// rate limiter (request budget) and the health report; everything else is
// operational metadata.
type TenantQuota struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID uuid.UUID `json:"tenant_id" gorm:"type:uuid;uniqueIndex;not null"`

	MaxRequestsPerMinute int64 `json:"max_requests_per_minute" gorm:"default:0"` // 0 = system default
	MaxStorageMB         int64 `json:"max_storage_mb" gorm:"default:0"`
	MaxUsers             int64 `json:"max_users" gorm:"default:0"`

	// EncryptionKeyFingerprint is set when a tenant data key has been
	// provisioned. The key itself never reaches this system.
	EncryptionKeyFingerprint string `json:"encryption_key_fingerprint"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for the TenantQuota model
func (TenantQuota) TableName() string {
	return "tenant_quotas"
}

// EncryptionConfigured reports whether a data key is provisioned.
func (q *TenantQuota) EncryptionConfigured() bool {
	return q != nil && q.EncryptionKeyFingerprint != ""
}

// BuildTenantURL derives the canonical routing URL for a slug under the given
// base domain, e.g. ("demo", "elzini.com") -> "https://demo.elzini.com".
func BuildTenantURL(subdomain, baseDomain string) string {
	return fmt.Sprintf("https://%s.%s", strings.ToLower(subdomain), baseDomain)
}
