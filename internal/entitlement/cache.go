package entitlement

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/clearviewcrm/clearview/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// VerificationTTL is how long an "entitled" verdict may be reused before the
// gate must recompute from source state.
const VerificationTTL = 30 * time.Minute

// Verification asserts that a tenant was entitled as of VerifiedAt. It is an
// optimization, never a security boundary: the gate always recomputes on miss
// or expiry, and status changes invalidate it server-side.
type Verification struct {
	TenantID   uuid.UUID                 `json:"tenant_id"`
	Status     models.SubscriptionStatus `json:"status"`
	VerifiedAt time.Time                 `json:"verified_at"`
}

// Valid reports whether the verification may still be used for the given
// tenant at the given instant.
func (v *Verification) Valid(tenantID uuid.UUID, now time.Time) bool {
	if v == nil || v.TenantID != tenantID {
		return false
	}
	return now.Sub(v.VerifiedAt) < VerificationTTL
}

// VerificationCache stores entitled verdicts keyed by tenant. Implementations
// must be safe for concurrent use.
type VerificationCache interface {
	Get(ctx context.Context, tenantID uuid.UUID) (*Verification, error)
	Set(ctx context.Context, v *Verification) error
	Invalidate(ctx context.Context, tenantID uuid.UUID) error
}

// MemoryCache is the in-process VerificationCache used when Redis is not
// configured.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*Verification
	now     func() time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[uuid.UUID]*Verification),
		now:     time.Now,
	}
}

// Get returns the cached verification, or nil if absent or expired.
func (c *MemoryCache) Get(_ context.Context, tenantID uuid.UUID) (*Verification, error) {
	c.mu.RLock()
	v, ok := c.entries[tenantID]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !v.Valid(tenantID, c.now()) {
		c.mu.Lock()
		delete(c.entries, tenantID)
		c.mu.Unlock()
		return nil, nil
	}
	return v, nil
}

// Set stores a verification.
func (c *MemoryCache) Set(_ context.Context, v *Verification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[v.TenantID] = v
	return nil
}

// Invalidate removes any cached verification for the tenant.
func (c *MemoryCache) Invalidate(_ context.Context, tenantID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, tenantID)
	return nil
}

// RedisCache is the VerificationCache backed by Redis, letting multiple server
// instances share and revoke verdicts.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a Redis-backed cache from a connection URL.
func NewRedisCache(url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

func verificationKey(tenantID uuid.UUID) string {
	return "entitlement:verification:" + tenantID.String()
}

// Get returns the cached verification, or nil if absent.
func (c *RedisCache) Get(ctx context.Context, tenantID uuid.UUID) (*Verification, error) {
	data, err := c.client.Get(ctx, verificationKey(tenantID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("get verification: %w", err)
	}
	var v Verification
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode verification: %w", err)
	}
	return &v, nil
}

// Set stores a verification with the standard TTL.
func (c *RedisCache) Set(ctx context.Context, v *Verification) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode verification: %w", err)
	}
	if err := c.client.Set(ctx, verificationKey(v.TenantID), data, VerificationTTL).Err(); err != nil {
		return fmt.Errorf("set verification: %w", err)
	}
	return nil
}

// Invalidate removes any cached verification for the tenant.
func (c *RedisCache) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	if err := c.client.Del(ctx, verificationKey(tenantID)).Err(); err != nil {
		return fmt.Errorf("invalidate verification: %w", err)
	}
	return nil
}
