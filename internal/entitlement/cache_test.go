package entitlement

import (
	"context"
	"testing"
	"time"

	"github.com/clearviewcrm/clearview/internal/models"
	"github.com/google/uuid"
)

func TestMemoryCache_RoundTrip(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()
	tenantID := uuid.New()

	got, err := cache.Get(ctx, tenantID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got != nil {
		t.Fatal("empty cache must return nil")
	}

	v := &Verification{TenantID: tenantID, Status: models.SubscriptionActive, VerifiedAt: time.Now()}
	if err := cache.Set(ctx, v); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	got, err = cache.Get(ctx, tenantID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got == nil || got.Status != models.SubscriptionActive {
		t.Fatalf("Get() = %+v, want cached active verification", got)
	}
}

func TestMemoryCache_ExpiryEvicts(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()
	tenantID := uuid.New()

	base := time.Now()
	cache.now = func() time.Time { return base }

	v := &Verification{TenantID: tenantID, Status: models.SubscriptionTrial, VerifiedAt: base}
	if err := cache.Set(ctx, v); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	cache.now = func() time.Time { return base.Add(VerificationTTL - time.Second) }
	if got, _ := cache.Get(ctx, tenantID); got == nil {
		t.Fatal("verification just inside the TTL must still be served")
	}

	cache.now = func() time.Time { return base.Add(VerificationTTL + time.Second) }
	if got, _ := cache.Get(ctx, tenantID); got != nil {
		t.Fatal("verification past the TTL must be evicted")
	}
}

func TestMemoryCache_Invalidate(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()
	tenantID := uuid.New()

	v := &Verification{TenantID: tenantID, Status: models.SubscriptionComped, VerifiedAt: time.Now()}
	if err := cache.Set(ctx, v); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := cache.Invalidate(ctx, tenantID); err != nil {
		t.Fatalf("Invalidate() error: %v", err)
	}
	if got, _ := cache.Get(ctx, tenantID); got != nil {
		t.Fatal("invalidated verification must not be served")
	}
}

func TestVerification_Valid(t *testing.T) {
	now := time.Now()
	tenantID := uuid.New()

	tests := []struct {
		name string
		v    *Verification
		want bool
	}{
		{"nil", nil, false},
		{"fresh", &Verification{TenantID: tenantID, VerifiedAt: now.Add(-time.Minute)}, true},
		{"expired", &Verification{TenantID: tenantID, VerifiedAt: now.Add(-VerificationTTL)}, false},
		{"other tenant", &Verification{TenantID: uuid.New(), VerifiedAt: now}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Valid(tenantID, now); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
