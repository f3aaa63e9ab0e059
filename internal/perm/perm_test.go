package perm_test

import (
	"testing"

	"orgline/internal/domain"
	"orgline/internal/perm"
)

func TestDraftAllowsFullStructure(t *testing.T) {
	for _, kind := range []string{domain.KindDepartment, domain.KindPosition, domain.KindAppointment} {
		d := perm.For(kind, domain.StatusDraft)
		if !d.CanCreate || !d.CanRead || !d.CanUpdate || !d.CanDelete {
			t.Fatalf("%s in draft: expected full access, got %+v", kind, d)
		}
		if !d.FieldAllowed("title") {
			t.Fatalf("%s in draft: title should be updatable", kind)
		}
	}
}

func TestFrozenNarrowsDepartmentToNarrative(t *testing.T) {
	for _, status := range []string{domain.StatusPendingApproval, domain.StatusApproved, domain.StatusRevoked} {
		d := perm.For(domain.KindDepartment, status)
		if d.CanCreate || d.CanDelete {
			t.Fatalf("department in %s: create/delete should be denied", status)
		}
		if !d.FieldAllowed("charter") || !d.FieldAllowed("description") {
			t.Fatalf("department in %s: narrative fields should stay updatable", status)
		}
		if d.FieldAllowed("headcount") || d.FieldAllowed("code") || d.FieldAllowed("title") {
			t.Fatalf("department in %s: structural fields should be frozen", status)
		}
	}
}

func TestFrozenNarrowsPositionToNarrative(t *testing.T) {
	d := perm.For(domain.KindPosition, domain.StatusApproved)
	if !d.FieldAllowed("job_description") || !d.FieldAllowed("description") {
		t.Fatalf("position narrative fields should stay updatable: %+v", d)
	}
	if d.FieldAllowed("salary_min") || d.FieldAllowed("reports_to_position_id") {
		t.Fatalf("position structural fields should be frozen: %+v", d)
	}
}

func TestAppointmentsMutableInEveryStatus(t *testing.T) {
	for _, status := range []string{domain.StatusDraft, domain.StatusPendingApproval, domain.StatusApproved, domain.StatusRevoked} {
		d := perm.For(domain.KindAppointment, status)
		if !d.CanCreate || !d.CanUpdate || !d.CanDelete {
			t.Fatalf("appointment in %s: expected full access, got %+v", status, d)
		}
	}
}

func TestChartRow(t *testing.T) {
	d := perm.For(domain.KindOrgChart, domain.StatusDraft)
	if !d.CanUpdate || d.CanDelete {
		t.Fatalf("draft chart: update yes, delete no, got %+v", d)
	}
	for _, status := range []string{domain.StatusPendingApproval, domain.StatusApproved, domain.StatusRevoked} {
		d := perm.For(domain.KindOrgChart, status)
		if d.CanUpdate || d.CanDelete || d.CanCreate {
			t.Fatalf("chart in %s should be read-only, got %+v", status, d)
		}
		if !d.CanRead {
			t.Fatalf("chart in %s should stay readable", status)
		}
	}
}

func TestUnknownStatusDeniesWrites(t *testing.T) {
	d := perm.For(domain.KindDepartment, "bogus")
	if d.CanCreate || d.CanUpdate || d.CanDelete {
		t.Fatalf("unknown status should deny writes, got %+v", d)
	}
}
