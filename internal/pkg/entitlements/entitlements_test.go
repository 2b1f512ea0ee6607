package entitlements

import "testing"

func TestIsEntitled(t *testing.T) {
	tests := []struct {
		tier   Tier
		status Status
		want   bool
	}{
		{TierPro, StatusActive, true},
		{TierPro, StatusInactive, false},
		{TierFree, StatusActive, false},
		{TierFree, StatusInactive, false},
	}

	for _, tt := range tests {
		got := IsEntitled(Plan{Tier: tt.tier, Status: tt.status})
		if got != tt.want {
			t.Fatalf("IsEntitled(%s/%s) = %v, want %v", tt.tier, tt.status, got, tt.want)
		}
	}
}

func TestNormalizeTier(t *testing.T) {
	tests := []struct {
		in   string
		want Tier
	}{
		{in: "pro", want: TierPro},
		{in: "PRO", want: TierPro},
		{in: "free", want: TierFree},
		{in: "premium", want: TierFree},
		{in: "", want: TierFree},
	}

	for _, tt := range tests {
		if got := NormalizeTier(tt.in); got != tt.want {
			t.Fatalf("NormalizeTier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFromModelNil(t *testing.T) {
	p := FromModel(nil)
	if p.Tier != TierFree || p.Status != StatusInactive {
		t.Fatalf("expected nil record to map to free/inactive, got %s/%s", p.Tier, p.Status)
	}
	if IsEntitled(p) {
		t.Fatalf("expected nil record to be unentitled")
	}
}
