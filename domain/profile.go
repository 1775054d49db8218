package domain

import (
	"strings"
	"time"
)

// Role classifies a profile's access level. It is derived from the email
// address at creation time and is not meant to change afterwards.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Plan identifies the subscription tier attached to a profile.
type Plan string

const (
	PlanStarter Plan = "starter"
	PlanPro     Plan = "pro"
	PlanElite   Plan = "elite"
	PlanTrial   Plan = "trial"
)

// TrialWindow is the evaluation period granted to every new profile.
const TrialWindow = 72 * time.Hour

// Profile is the durable user record keyed by the identity provider's user id.
// ID and Email are authoritative: the update path must never let a request
// body change them.
type Profile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        Role      `json:"role"`
	Plan        Plan      `json:"plan"`
	TrialEndsAt time.Time `json:"trialEndsAt"`
	TradesCount int       `json:"tradesCount"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// Patch carries the mutable subset of a profile update request. Nil fields
// are left untouched; ID and Email are accepted on the wire but discarded by
// the update path.
type Patch struct {
	Name        *string `json:"name,omitempty"`
	Role        *Role   `json:"role,omitempty"`
	Plan        *Plan   `json:"plan,omitempty"`
	TradesCount *int    `json:"tradesCount,omitempty"`
}

// DeriveRole applies the creation-time role heuristic: any email containing
// "admin" maps to the admin role.
func DeriveRole(email string) Role {
	if strings.Contains(strings.ToLower(email), "admin") {
		return RoleAdmin
	}
	return RoleUser
}

// ValidPlan reports whether p is one of the known subscription tiers.
func ValidPlan(p Plan) bool {
	switch p {
	case PlanStarter, PlanPro, PlanElite, PlanTrial:
		return true
	}
	return false
}

// NewProfile builds the record persisted at explicit signup. An empty plan
// defaults to the trial tier.
func NewProfile(id, email, name string, plan Plan) *Profile {
	if plan == "" {
		plan = PlanTrial
	}
	now := time.Now()
	return &Profile{
		ID:          id,
		Email:       email,
		Name:        name,
		Role:        DeriveRole(email),
		Plan:        plan,
		TrialEndsAt: now.Add(TrialWindow),
		TradesCount: 0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// DefaultProfile synthesizes the record created lazily on the first
// authenticated profile read. The display name falls back to the local part
// of the email address.
func DefaultProfile(id, email string) *Profile {
	name := email
	if at := strings.Index(email, "@"); at > 0 {
		name = email[:at]
	}
	p := NewProfile(id, email, name, PlanStarter)
	return p
}

// Apply merges the patch over the profile. ID and Email are not part of the
// patch, so they survive any payload.
func (p *Profile) Apply(patch Patch) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Role != nil {
		p.Role = *patch.Role
	}
	if patch.Plan != nil {
		p.Plan = *patch.Plan
	}
	if patch.TradesCount != nil {
		p.TradesCount = *patch.TradesCount
	}
	p.UpdatedAt = time.Now()
}

// TrialActive reports whether the trial window still covers the reference
// time. Informational only: nothing in this service enforces expiry.
func (p *Profile) TrialActive(reference time.Time) bool {
	if p == nil {
		return false
	}
	if reference.IsZero() {
		reference = time.Now()
	}
	return p.TrialEndsAt.After(reference)
}
