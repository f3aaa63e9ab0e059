package engine_test

import (
	"testing"

	"orgline/internal/domain"
	"orgline/internal/engine"
)

func TestAssembleTreeShape(t *testing.T) {
	env := newTestEnv(t)
	chart := mustChart(t, env)
	fin := mustDepartment(t, env, chart.ID, "Finance", "FIN", 5)
	acc, err := env.Engine.CreateDepartment(env.Ctx, engine.DepartmentCreateOptions{
		Company:            "acme",
		OrgChartID:         chart.ID,
		Title:              "Accounting",
		Code:               "ACC",
		ParentDepartmentID: fin.Department.ID,
		ActorID:            "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	analyst, err := env.Engine.CreatePosition(env.Ctx, engine.PositionCreateOptions{
		Company:      "acme",
		OrgChartID:   chart.ID,
		DepartmentID: fin.Department.ID,
		Title:        "Analyst",
		ActorID:      "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.FillAppointment(env.Ctx, analyst.Appointment.ID, engine.FillOptions{
		UserID:          "u-1",
		UserDisplayName: "Dana",
		ActorID:         "tester",
	}); err != nil {
		t.Fatal(err)
	}

	rows, err := env.Engine.AssembleTree(env.Ctx, "acme", chart.ID)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	// 1 chart + 2 departments + 3 positions + 3 appointments.
	if len(rows) != 9 {
		t.Fatalf("row count = %d, want 9", len(rows))
	}
	if rows[0].Kind != domain.KindOrgChart || rows[0].ID != chart.ID || !rows[0].HasChildren {
		t.Fatalf("unexpected root row: %+v", rows[0])
	}

	byID := map[string]domain.TreeRow{}
	pos := map[string]int{}
	for i, r := range rows {
		if _, dup := byID[r.ID]; dup {
			t.Fatalf("duplicate row for %s", r.ID)
		}
		byID[r.ID] = r
		pos[r.ID] = i
	}

	// Every non-root row's parent appears earlier in the listing.
	for _, r := range rows[1:] {
		p, ok := pos[r.ParentID]
		if !ok {
			t.Fatalf("row %s has unknown parent %s", r.ID, r.ParentID)
		}
		if p >= pos[r.ID] {
			t.Fatalf("parent %s listed after child %s", r.ParentID, r.ID)
		}
	}

	finRow := byID[fin.Department.ID]
	if finRow.Level != 0 || finRow.ParentID != chart.ID || !finRow.HasChildren {
		t.Fatalf("unexpected finance row: %+v", finRow)
	}
	accRow := byID[acc.Department.ID]
	if accRow.Level != 1 || accRow.ParentID != fin.Department.ID {
		t.Fatalf("unexpected accounting row: %+v", accRow)
	}
	headRow := byID[fin.HeadPosition.ID]
	if headRow.Level != 1 || headRow.ParentID != fin.Department.ID || headRow.Code != "FIN-001" || !headRow.HasChildren {
		t.Fatalf("unexpected head position row: %+v", headRow)
	}

	// Vacant appointments render as "Vacant", filled ones show the person.
	if r := byID[fin.HeadAppointment.ID]; r.Title != "Vacant" || r.Level != 2 {
		t.Fatalf("unexpected vacant row: %+v", r)
	}
	if r := byID[analyst.Appointment.ID]; r.Title != "Dana" {
		t.Fatalf("filled appointment row title = %q, want Dana", r.Title)
	}

	// Positions with no filled appointment still carry their vacancy row.
	if r := byID[acc.HeadAppointment.ID]; r.ParentID != acc.HeadPosition.ID {
		t.Fatalf("unexpected nested vacancy row: %+v", r)
	}
}

func TestAssembleTreeEmptyChart(t *testing.T) {
	env := newTestEnv(t)
	chart := mustChart(t, env)

	rows, err := env.Engine.AssembleTree(env.Ctx, "acme", chart.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("row count = %d, want 1", len(rows))
	}
	if rows[0].HasChildren {
		t.Fatalf("empty chart should have no children")
	}
}

func TestAssembleTreeSiblingOrderStable(t *testing.T) {
	env := newTestEnv(t)
	chart := mustChart(t, env)
	mustDepartment(t, env, chart.ID, "Finance", "FIN", 0)
	mustDepartment(t, env, chart.ID, "Engineering", "ENG", 0)
	mustDepartment(t, env, chart.ID, "Legal", "LEG", 0)

	first, err := env.Engine.AssembleTree(env.Ctx, "acme", chart.ID)
	if err != nil {
		t.Fatal(err)
	}
	second, err := env.Engine.AssembleTree(env.Ctx, "acme", chart.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) {
		t.Fatalf("row counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("row %d differs between runs: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}
}
