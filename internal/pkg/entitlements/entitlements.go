package entitlements

import (
	"strings"
	"time"

	"github.com/stepio-app/stepio-server/app/models"
)

type Tier string

type Status string

const (
	TierFree Tier = models.PlanTierFree
	TierPro  Tier = models.PlanTierPro

	StatusActive   Status = models.PlanStatusActive
	StatusInactive Status = models.PlanStatusInactive
)

// Plan is the canonical entitlement state for one user. Tier and status
// travel together; a zero Plan means free/inactive.
type Plan struct {
	Tier        Tier       `json:"tier"`
	Status      Status     `json:"status"`
	RenewalDate *time.Time `json:"renewal_date,omitempty"`
	ProductID   string     `json:"product_id,omitempty"`
}

// Free returns the default plan used wherever no entitlement data exists.
func Free() Plan {
	return Plan{Tier: TierFree, Status: StatusInactive}
}

// IsEntitled is the single gate predicate for pro features (CSV export,
// multi-month history, ad removal). No call site re-derives entitlement
// from raw fields.
func IsEntitled(p Plan) bool {
	return p.Tier == TierPro && p.Status == StatusActive
}

// NormalizeTier maps arbitrary tier strings to a known tier, defaulting
// to free.
func NormalizeTier(tier string) Tier {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case string(TierPro):
		return TierPro
	default:
		return TierFree
	}
}

// NormalizeStatus maps arbitrary status strings to a known status,
// defaulting to inactive.
func NormalizeStatus(status string) Status {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case string(StatusActive):
		return StatusActive
	default:
		return StatusInactive
	}
}

// FromModel converts the persisted record into the canonical plan value.
func FromModel(m *models.UserPlan) Plan {
	if m == nil {
		return Free()
	}
	return Plan{
		Tier:        NormalizeTier(m.Tier),
		Status:      NormalizeStatus(m.Status),
		RenewalDate: m.RenewalDate,
		ProductID:   m.ProductID,
	}
}
