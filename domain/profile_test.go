package domain

import (
	"testing"
	"time"
)

func TestDeriveRole(t *testing.T) {
	cases := []struct {
		email string
		want  Role
	}{
		{"admin@signalrelay.io", RoleAdmin},
		{"the-administrator@corp.com", RoleAdmin},
		{"ADMIN@CORP.COM", RoleAdmin},
		{"trader@signalrelay.io", RoleUser},
		{"", RoleUser},
	}
	for _, tc := range cases {
		if got := DeriveRole(tc.email); got != tc.want {
			t.Errorf("DeriveRole(%q) = %q, want %q", tc.email, got, tc.want)
		}
	}
}

func TestNewProfileTrialWindow(t *testing.T) {
	before := time.Now()
	p := NewProfile("u-1", "trader@corp.com", "Trader", "")
	after := time.Now()

	lo := before.Add(TrialWindow)
	hi := after.Add(TrialWindow)
	if p.TrialEndsAt.Before(lo) || p.TrialEndsAt.After(hi) {
		t.Fatalf("TrialEndsAt = %v, want within [%v, %v]", p.TrialEndsAt, lo, hi)
	}
	if p.Plan != PlanTrial {
		t.Fatalf("empty plan defaulted to %q, want %q", p.Plan, PlanTrial)
	}
	if p.TradesCount != 0 {
		t.Fatalf("TradesCount = %d, want 0", p.TradesCount)
	}
}

func TestDefaultProfile(t *testing.T) {
	p := DefaultProfile("u-2", "admin@corp.com")
	if p.Role != RoleAdmin {
		t.Fatalf("lazy-created role = %q, want %q", p.Role, RoleAdmin)
	}
	if p.Plan != PlanStarter {
		t.Fatalf("lazy-created plan = %q, want %q", p.Plan, PlanStarter)
	}
	if p.Name != "admin" {
		t.Fatalf("lazy-created name = %q, want %q", p.Name, "admin")
	}
	if !p.TrialActive(time.Now()) {
		t.Fatal("fresh profile should have an active trial window")
	}
}

func TestApplyLeavesUnsetFieldsAlone(t *testing.T) {
	p := NewProfile("u-3", "trader@corp.com", "Trader", PlanPro)
	name := "Renamed"
	p.Apply(Patch{Name: &name})

	if p.Name != "Renamed" {
		t.Fatalf("Name = %q, want %q", p.Name, "Renamed")
	}
	if p.Plan != PlanPro {
		t.Fatalf("Plan changed to %q, patch did not set it", p.Plan)
	}
	if p.Role != RoleUser {
		t.Fatalf("Role changed to %q, patch did not set it", p.Role)
	}
}

func TestValidPlan(t *testing.T) {
	for _, p := range []Plan{PlanStarter, PlanPro, PlanElite, PlanTrial} {
		if !ValidPlan(p) {
			t.Errorf("ValidPlan(%q) = false, want true", p)
		}
	}
	if ValidPlan("platinum") {
		t.Error(`ValidPlan("platinum") = true, want false`)
	}
}
