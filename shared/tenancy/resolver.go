package tenancy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/Elzini/tenant-gateway/shared/models"
	"github.com/Elzini/tenant-gateway/shared/utils"
)

// Resolver resolves non-reserved slugs to tenants. It bounds registry lookups
// with a timeout, guards them behind a circuit breaker, and caches positive
// results in Redis so a deactivation propagates within the cache TTL.
type Resolver struct {
	registry Registry
	cache    *redis.Client // nil disables caching
	breaker  *utils.CircuitBreaker
	cacheTTL time.Duration
	timeout  time.Duration
}

// NewResolver creates a resolver. Pass a nil cache client to disable caching.
func NewResolver(registry Registry, cache *redis.Client, cacheTTL, timeout time.Duration) *Resolver {
	return &Resolver{
		registry: registry,
		cache:    cache,
		breaker:  utils.NewCircuitBreaker(5, 10*time.Second),
		cacheTTL: cacheTTL,
		timeout:  timeout,
	}
}

// Resolve returns the active tenant for a slug, ErrTenantNotFound when no
// active tenant matches, or a transport error when the registry is
// unreachable. Callers decide whether transport errors fail open or closed.
func (r *Resolver) Resolve(ctx context.Context, subdomain string) (*models.Tenant, error) {
	if cached := r.fromCache(ctx, subdomain); cached != nil {
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var tenant *models.Tenant
	var notFound bool
	err := r.breaker.Call(func() error {
		found, lookupErr := r.registry.FindActiveBySubdomain(ctx, subdomain)
		if errors.Is(lookupErr, ErrTenantNotFound) {
			// A clean miss is a registry answer, not a registry failure;
			// it must not trip the breaker.
			notFound = true
			return nil
		}
		if lookupErr != nil {
			return lookupErr
		}
		tenant = found
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tenant resolution for %q failed: %w", subdomain, err)
	}
	if notFound {
		return nil, ErrTenantNotFound
	}

	r.toCache(ctx, subdomain, tenant)
	return tenant, nil
}

func cacheKey(subdomain string) string {
	return "tenant:subdomain:" + subdomain
}

func (r *Resolver) fromCache(ctx context.Context, subdomain string) *models.Tenant {
	if r.cache == nil {
		return nil
	}
	data, err := r.cache.Get(ctx, cacheKey(subdomain)).Result()
	if err != nil {
		if err != redis.Nil {
			logrus.WithError(err).Debug("tenant cache read failed")
		}
		return nil
	}
	var tenant models.Tenant
	if err := json.Unmarshal([]byte(data), &tenant); err != nil {
		return nil
	}
	return &tenant
}

func (r *Resolver) toCache(ctx context.Context, subdomain string, tenant *models.Tenant) {
	if r.cache == nil || tenant == nil {
		return
	}
	data, err := json.Marshal(tenant)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, cacheKey(subdomain), data, r.cacheTTL).Err(); err != nil {
		logrus.WithError(err).Debug("tenant cache write failed")
	}
}

// Invalidate drops a cached resolution so a slug change or deactivation
// takes effect before the cache TTL elapses.
func (r *Resolver) Invalidate(ctx context.Context, subdomain string) {
	if r.cache == nil || subdomain == "" {
		return
	}
	r.cache.Del(ctx, cacheKey(subdomain))
}

// BreakerState exposes the circuit breaker state for health reporting.
func (r *Resolver) BreakerState() utils.CircuitState {
	return r.breaker.GetState()
}
