package engine

import (
	"context"
	"errors"

	"orgline/internal/domain"
	"orgline/internal/events"
	"orgline/internal/perm"
	"orgline/internal/store"
)

// Cascade deletion works off a worklist: the whole subtree is collected up
// front, removed leaves first, and any node whose removal fails stays on the
// list for another pass. A node that turned out to be already gone counts as
// done. If nodes still remain after the retry passes, the remainder is
// reported so the caller can retry the same delete.

const cascadePasses = 3

// DeleteDepartment removes a department with its child departments,
// positions and appointments.
func (e *Engine) DeleteDepartment(ctx context.Context, id, actorID string) error {
	_, d0, err := e.getDepartmentNode(ctx, id)
	if err != nil {
		return err
	}
	unlock := e.lock(d0.OrgChartID)
	defer unlock()

	_, d, err := e.getDepartmentNode(ctx, id)
	if err != nil {
		return err
	}
	_, chart, err := e.getChartNode(ctx, d.OrgChartID)
	if err != nil {
		return err
	}
	if dec := perm.For(domain.KindDepartment, chart.Status); !dec.CanDelete {
		return PermissionError{Kind: domain.KindDepartment, Operation: "delete", Status: chart.Status}
	}
	worklist, err := e.collectSubtree(ctx, chart, d.ID)
	if err != nil {
		return err
	}
	if err := e.drainWorklist(ctx, d.ID, worklist); err != nil {
		return err
	}
	return e.Events.Append(ctx, "department.deleted", d.Company, chart.ID, domain.KindDepartment, d.ID, actorID, events.Payload{"title": d.Title, "code": d.Code, "removed": len(worklist)})
}

// DeletePosition removes a position and its appointments.
func (e *Engine) DeletePosition(ctx context.Context, id, actorID string) error {
	_, p0, err := e.getPositionNode(ctx, id)
	if err != nil {
		return err
	}
	unlock := e.lock(p0.OrgChartID)
	defer unlock()

	_, p, err := e.getPositionNode(ctx, id)
	if err != nil {
		return err
	}
	_, chart, err := e.getChartNode(ctx, p.OrgChartID)
	if err != nil {
		return err
	}
	if dec := perm.For(domain.KindPosition, chart.Status); !dec.CanDelete {
		return PermissionError{Kind: domain.KindPosition, Operation: "delete", Status: chart.Status}
	}
	apps, err := e.listAppointments(ctx, chart.Company, store.Filter{"position_id": p.ID})
	if err != nil {
		return err
	}
	worklist := make([]string, 0, len(apps)+1)
	for _, a := range apps {
		worklist = append(worklist, a.ID)
	}
	worklist = append(worklist, p.ID)
	if err := e.drainWorklist(ctx, p.ID, worklist); err != nil {
		return err
	}
	return e.Events.Append(ctx, "position.deleted", p.Company, chart.ID, domain.KindPosition, p.ID, actorID, events.Payload{"title": p.Title, "code": p.Code})
}

// DeleteAppointment removes a single appointment.
func (e *Engine) DeleteAppointment(ctx context.Context, id, actorID string) error {
	_, a0, err := e.getAppointmentNode(ctx, id)
	if err != nil {
		return err
	}
	unlock := e.lock(a0.OrgChartID)
	defer unlock()

	_, a, err := e.getAppointmentNode(ctx, id)
	if err != nil {
		return err
	}
	_, chart, err := e.getChartNode(ctx, a.OrgChartID)
	if err != nil {
		return err
	}
	if dec := perm.For(domain.KindAppointment, chart.Status); !dec.CanDelete {
		return PermissionError{Kind: domain.KindAppointment, Operation: "delete", Status: chart.Status}
	}
	if err := e.Store.Remove(ctx, a.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return e.Events.Append(ctx, "appointment.deleted", a.Company, chart.ID, domain.KindAppointment, a.ID, actorID, nil)
}

// collectSubtree gathers the ids of a department's subtree ordered leaves
// first: appointments, then positions, then child departments bottom up,
// then the root department itself.
func (e *Engine) collectSubtree(ctx context.Context, chart domain.OrgChart, rootDeptID string) ([]string, error) {
	depts, err := e.listDepartments(ctx, chart.Company, chart.ID)
	if err != nil {
		return nil, err
	}
	children := map[string][]string{}
	for _, d := range depts {
		if d.ParentDepartmentID != nil {
			children[*d.ParentDepartmentID] = append(children[*d.ParentDepartmentID], d.ID)
		}
	}
	// Depth-first so deeper departments come later, then reverse for
	// leaf-first ordering.
	var order []string
	var walk func(id string)
	walk = func(id string) {
		order = append(order, id)
		for _, c := range children[id] {
			walk(c)
		}
	}
	walk(rootDeptID)

	var worklist []string
	for i := len(order) - 1; i >= 0; i-- {
		deptID := order[i]
		positions, err := e.listPositions(ctx, chart.Company, store.Filter{"department_id": deptID})
		if err != nil {
			return nil, err
		}
		for _, p := range positions {
			apps, err := e.listAppointments(ctx, chart.Company, store.Filter{"position_id": p.ID})
			if err != nil {
				return nil, err
			}
			for _, a := range apps {
				worklist = append(worklist, a.ID)
			}
			worklist = append(worklist, p.ID)
		}
		worklist = append(worklist, deptID)
	}
	return worklist, nil
}

// drainWorklist removes ids in order, retrying across passes. A pass stops
// at the first failure so an ancestor is never removed while one of its
// descendants is still present; whatever remains is reachable again on a
// later delete of the same root. Already missing nodes count as removed.
func (e *Engine) drainWorklist(ctx context.Context, rootID string, worklist []string) error {
	remaining := worklist
	var lastErr error
	for pass := 0; pass < cascadePasses && len(remaining) > 0; pass++ {
		n := 0
		for _, id := range remaining {
			err := e.Store.Remove(ctx, id)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				lastErr = err
				break
			}
			n++
		}
		remaining = remaining[n:]
	}
	if len(remaining) > 0 {
		return CascadeError{RootID: rootID, Remaining: remaining, Err: lastErr}
	}
	return nil
}
