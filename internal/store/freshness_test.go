package store

import (
	"testing"
	"time"
)

func TestTTLPolicyIsFresh(t *testing.T) {
	policy := DefaultTTLPolicy()
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		kind      string
		fetchedAt time.Time
		want      bool
	}{
		{"prices fetched an hour ago", KindPrices, now.Add(-time.Hour), true},
		{"prices fetched 23h ago", KindPrices, now.Add(-23 * time.Hour), true},
		{"prices fetched exactly at TTL", KindPrices, now.Add(-24 * time.Hour), false},
		{"prices fetched 2 days ago", KindPrices, now.Add(-48 * time.Hour), false},
		{"fundamentals fetched 6 days ago", KindFundamentals, now.Add(-6 * 24 * time.Hour), true},
		{"fundamentals fetched 8 days ago", KindFundamentals, now.Add(-8 * 24 * time.Hour), false},
		{"never fetched", KindPrices, time.Time{}, false},
		{"unknown kind", "other", now.Add(-time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.IsFresh(tt.kind, tt.fetchedAt, now); got != tt.want {
				t.Errorf("IsFresh(%s, %v) = %v, want %v", tt.kind, tt.fetchedAt, got, tt.want)
			}
		})
	}
}

func TestTTLPolicyPerKind(t *testing.T) {
	policy := DefaultTTLPolicy()

	if policy.TTL(KindPrices) != 24*time.Hour {
		t.Errorf("prices TTL = %v, want 24h", policy.TTL(KindPrices))
	}
	if policy.TTL(KindFundamentals) != 7*24*time.Hour {
		t.Errorf("fundamentals TTL = %v, want 168h", policy.TTL(KindFundamentals))
	}
	if policy.TTL("bogus") != 0 {
		t.Errorf("unknown kind TTL = %v, want 0", policy.TTL("bogus"))
	}
}
