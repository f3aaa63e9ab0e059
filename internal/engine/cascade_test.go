package engine_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"orgline/internal/config"
	"orgline/internal/domain"
	"orgline/internal/engine"
	"orgline/internal/store"
	"orgline/internal/store/memstore"
)

// flakyStore fails Remove for one id a configurable number of times, then
// behaves normally.
type flakyStore struct {
	store.Store
	failID    string
	failsLeft int
}

func (s *flakyStore) Remove(ctx context.Context, id string) error {
	if id == s.failID && s.failsLeft > 0 {
		s.failsLeft--
		return fmt.Errorf("simulated backend outage")
	}
	return s.Store.Remove(ctx, id)
}

func buildSubtree(t *testing.T, env testEnv) (domain.OrgChart, engine.DepartmentBundle, engine.DepartmentBundle, engine.PositionBundle) {
	t.Helper()
	chart := mustChart(t, env)
	parent := mustDepartment(t, env, chart.ID, "Finance", "FIN", 5)
	child, err := env.Engine.CreateDepartment(env.Ctx, engine.DepartmentCreateOptions{
		Company:            "acme",
		OrgChartID:         chart.ID,
		Title:              "Accounting",
		Code:               "ACC",
		ParentDepartmentID: parent.Department.ID,
		ActorID:            "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	extra, err := env.Engine.CreatePosition(env.Ctx, engine.PositionCreateOptions{
		Company:      "acme",
		OrgChartID:   chart.ID,
		DepartmentID: child.Department.ID,
		Title:        "Bookkeeper",
		ActorID:      "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.FillAppointment(env.Ctx, extra.Appointment.ID, engine.FillOptions{UserID: "u-1", ActorID: "tester"}); err != nil {
		t.Fatal(err)
	}
	return chart, parent, child, extra
}

func countKind(t *testing.T, env testEnv, kind, chartID string) int {
	t.Helper()
	nodes, err := env.Store.FindByKind(env.Ctx, "acme", kind, store.Filter{"org_chart_id": chartID})
	if err != nil {
		t.Fatal(err)
	}
	return len(nodes)
}

func TestDeleteDepartmentRemovesWholeSubtree(t *testing.T) {
	env := newTestEnv(t)
	chart, parent, _, _ := buildSubtree(t, env)

	if err := env.Engine.DeleteDepartment(env.Ctx, parent.Department.ID, "tester"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if n := countKind(t, env, domain.KindDepartment, chart.ID); n != 0 {
		t.Fatalf("departments remaining: %d", n)
	}
	if n := countKind(t, env, domain.KindPosition, chart.ID); n != 0 {
		t.Fatalf("positions remaining: %d", n)
	}
	if n := countKind(t, env, domain.KindAppointment, chart.ID); n != 0 {
		t.Fatalf("appointments remaining: %d", n)
	}
	if _, err := env.Engine.GetDepartment(env.Ctx, parent.Department.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteChildLeavesParentIntact(t *testing.T) {
	env := newTestEnv(t)
	chart, parent, child, _ := buildSubtree(t, env)

	if err := env.Engine.DeleteDepartment(env.Ctx, child.Department.ID, "tester"); err != nil {
		t.Fatalf("delete child: %v", err)
	}
	if _, err := env.Engine.GetDepartment(env.Ctx, parent.Department.ID); err != nil {
		t.Fatalf("parent should survive: %v", err)
	}
	if _, err := env.Engine.GetPosition(env.Ctx, parent.HeadPosition.ID); err != nil {
		t.Fatalf("parent head position should survive: %v", err)
	}
	if n := countKind(t, env, domain.KindDepartment, chart.ID); n != 1 {
		t.Fatalf("departments remaining: %d, want 1", n)
	}
}

func TestDeletePositionRemovesAppointments(t *testing.T) {
	env := newTestEnv(t)
	chart, _, _, extra := buildSubtree(t, env)

	before := countKind(t, env, domain.KindAppointment, chart.ID)
	if err := env.Engine.DeletePosition(env.Ctx, extra.Position.ID, "tester"); err != nil {
		t.Fatalf("delete position: %v", err)
	}
	if _, err := env.Engine.GetPosition(env.Ctx, extra.Position.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := env.Engine.GetAppointment(env.Ctx, extra.Appointment.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("appointment should be gone, got %v", err)
	}
	after := countKind(t, env, domain.KindAppointment, chart.ID)
	if after != before-1 {
		t.Fatalf("appointments %d -> %d, want one fewer", before, after)
	}
}

func TestCascadeRecoversFromTransientFailure(t *testing.T) {
	base := memstore.New()
	flaky := &flakyStore{Store: base}
	eng := engine.New(flaky, config.Default("acme"))
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	env := testEnv{Engine: eng, Store: base, Ctx: context.Background()}

	chart, parent, child, _ := buildSubtree(t, env)
	_ = chart

	// Fail the child department's removal once. A later pass retries it.
	flaky.failID = child.Department.ID
	flaky.failsLeft = 1

	if err := env.Engine.DeleteDepartment(env.Ctx, parent.Department.ID, "tester"); err != nil {
		t.Fatalf("delete should drain despite one transient failure: %v", err)
	}
	if n := countKind(t, env, domain.KindDepartment, chart.ID); n != 0 {
		t.Fatalf("departments remaining: %d", n)
	}
}

func TestCascadePersistentFailureIsRetryable(t *testing.T) {
	base := memstore.New()
	flaky := &flakyStore{Store: base}
	eng := engine.New(flaky, config.Default("acme"))
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	env := testEnv{Engine: eng, Store: base, Ctx: context.Background()}

	chart, parent, child, _ := buildSubtree(t, env)

	flaky.failID = child.Department.ID
	flaky.failsLeft = 1 << 20

	err := env.Engine.DeleteDepartment(env.Ctx, parent.Department.ID, "tester")
	var ce engine.CascadeError
	if !errors.As(err, &ce) {
		t.Fatalf("expected cascade error, got %v", err)
	}
	if ce.RootID != parent.Department.ID || len(ce.Remaining) == 0 {
		t.Fatalf("unexpected cascade error: %+v", ce)
	}

	// The stuck node and everything above it must still be present so the
	// delete can be retried.
	if _, err := env.Engine.GetDepartment(env.Ctx, child.Department.ID); err != nil {
		t.Fatalf("stuck department should still exist: %v", err)
	}
	if _, err := env.Engine.GetDepartment(env.Ctx, parent.Department.ID); err != nil {
		t.Fatalf("root department should still exist: %v", err)
	}

	// Clear the fault and retry. The cascade must now drain fully.
	flaky.failsLeft = 0
	if err := env.Engine.DeleteDepartment(env.Ctx, parent.Department.ID, "tester"); err != nil {
		t.Fatalf("retry should succeed: %v", err)
	}
	if n := countKind(t, env, domain.KindDepartment, chart.ID); n != 0 {
		t.Fatalf("departments remaining after retry: %d", n)
	}
}

func TestDeleteAppointmentIdempotent(t *testing.T) {
	env := newTestEnv(t)
	_, _, _, extra := buildSubtree(t, env)

	if err := env.Engine.DeleteAppointment(env.Ctx, extra.Appointment.ID, "tester"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := env.Engine.DeleteAppointment(env.Ctx, extra.Appointment.ID, "tester"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}
