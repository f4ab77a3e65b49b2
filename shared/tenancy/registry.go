package tenancy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Elzini/tenant-gateway/shared/models"
)

// ErrTenantNotFound is returned when no active tenant matches a lookup key.
var ErrTenantNotFound = errors.New("tenant not found")

// Registry is the single tenant-lookup abstraction shared by the gateway hot
// path and the administrative service, so both entry points route through
// identical resolution semantics.
type Registry interface {
	// FindActiveBySubdomain resolves a lower-cased slug to an active tenant.
	// Inactive tenants are indistinguishable from missing ones.
	FindActiveBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error)
	// GetTenant fetches a tenant by id regardless of subdomain configuration.
	GetTenant(ctx context.Context, id string) (*models.Tenant, error)
	// ListTenants enumerates all tenants. No pagination; see the list handler.
	ListTenants(ctx context.Context) ([]models.Tenant, error)
	// GetQuota fetches the quota record for a tenant, ErrTenantNotFound when
	// none is provisioned.
	GetQuota(ctx context.Context, tenantID string) (*models.TenantQuota, error)
	// SchemaExists checks whether the tenant's dedicated schema is present.
	SchemaExists(ctx context.Context, schema string) (bool, error)
}

// GormRegistry implements Registry against the postgres tenant registry.
type GormRegistry struct {
	db *gorm.DB
}

// NewGormRegistry creates a registry over an open gorm connection.
func NewGormRegistry(db *gorm.DB) *GormRegistry {
	return &GormRegistry{db: db}
}

// FindActiveBySubdomain resolves a slug against active tenants only.
func (r *GormRegistry) FindActiveBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.WithContext(ctx).
		Preload("Quota").
		Where("subdomain = ? AND is_active = ?", strings.ToLower(subdomain), true).
		First(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("registry lookup for %q failed: %w", subdomain, err)
	}
	return &tenant, nil
}

// GetTenant fetches a tenant by id.
func (r *GormRegistry) GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.db.WithContext(ctx).Preload("Quota").Where("id = ?", id).First(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("registry fetch for %q failed: %w", id, err)
	}
	return &tenant, nil
}

// ListTenants enumerates all tenants ordered by creation time.
func (r *GormRegistry) ListTenants(ctx context.Context) ([]models.Tenant, error) {
	var tenants []models.Tenant
	if err := r.db.WithContext(ctx).Preload("Quota").Order("created_at").Find(&tenants).Error; err != nil {
		return nil, fmt.Errorf("registry list failed: %w", err)
	}
	return tenants, nil
}

// GetQuota fetches the quota record for a tenant.
func (r *GormRegistry) GetQuota(ctx context.Context, tenantID string) (*models.TenantQuota, error) {
	var quota models.TenantQuota
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&quota).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("quota fetch for %q failed: %w", tenantID, err)
	}
	return &quota, nil
}

// SchemaExists checks information_schema for the tenant's schema.
func (r *GormRegistry) SchemaExists(ctx context.Context, schema string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM information_schema.schemata WHERE schema_name = ?", schema).
		Scan(&count).Error
	if err != nil {
		return false, fmt.Errorf("schema check for %q failed: %w", schema, err)
	}
	return count > 0, nil
}
