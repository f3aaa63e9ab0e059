package engine

import (
	"context"
	"sort"

	"orgline/internal/domain"
	"orgline/internal/store"
)

// AssembleTree flattens a chart's hierarchy into display rows in
// depth-first order. Each entity kind is loaded with a single query and
// stitched together in memory; siblings sort by (sort order, id) so the
// output is stable across runs.
func (e *Engine) AssembleTree(ctx context.Context, company, chartID string) ([]domain.TreeRow, error) {
	chart, err := e.GetOrgChart(ctx, chartID)
	if err != nil {
		return nil, err
	}
	depts, err := e.listDepartments(ctx, company, chartID)
	if err != nil {
		return nil, err
	}
	positions, err := e.listPositions(ctx, company, store.Filter{"org_chart_id": chartID})
	if err != nil {
		return nil, err
	}
	apps, err := e.listAppointments(ctx, company, store.Filter{"org_chart_id": chartID})
	if err != nil {
		return nil, err
	}

	deptByParent := map[string][]domain.Department{}
	for _, d := range depts {
		parent := chart.ID
		if d.ParentDepartmentID != nil {
			parent = *d.ParentDepartmentID
		}
		deptByParent[parent] = append(deptByParent[parent], d)
	}
	posByDept := map[string][]domain.Position{}
	for _, p := range positions {
		posByDept[p.DepartmentID] = append(posByDept[p.DepartmentID], p)
	}
	appByPos := map[string][]domain.Appointment{}
	for _, a := range apps {
		appByPos[a.PositionID] = append(appByPos[a.PositionID], a)
	}
	for _, ds := range deptByParent {
		sort.Slice(ds, func(i, j int) bool { return siblingLess(ds[i].SortOrder, ds[i].ID, ds[j].SortOrder, ds[j].ID) })
	}
	for _, ps := range posByDept {
		sort.Slice(ps, func(i, j int) bool { return siblingLess(ps[i].SortOrder, ps[i].ID, ps[j].SortOrder, ps[j].ID) })
	}
	for _, as := range appByPos {
		sort.Slice(as, func(i, j int) bool { return siblingLess(as[i].SortOrder, as[i].ID, as[j].SortOrder, as[j].ID) })
	}

	rows := make([]domain.TreeRow, 0, 1+len(depts)+len(positions)+len(apps))
	rows = append(rows, domain.TreeRow{
		ID:          chart.ID,
		Kind:        domain.KindOrgChart,
		Title:       chart.Title,
		Level:       0,
		SortOrder:   chart.CreatedAt,
		HasChildren: len(deptByParent[chart.ID]) > 0,
	})

	// Guard against a parent pointer cycle left by a corrupted store:
	// each department is emitted at most once.
	emitted := map[string]bool{}
	var walkDept func(d domain.Department)
	walkDept = func(d domain.Department) {
		if emitted[d.ID] {
			return
		}
		emitted[d.ID] = true
		childDepts := deptByParent[d.ID]
		childPos := posByDept[d.ID]
		rows = append(rows, domain.TreeRow{
			ID:          d.ID,
			Kind:        domain.KindDepartment,
			Title:       d.Title,
			Code:        d.Code,
			ParentID:    parentOrChart(d.ParentDepartmentID, chart.ID),
			Level:       d.Level,
			SortOrder:   d.SortOrder,
			HasChildren: len(childDepts)+len(childPos) > 0,
		})
		for _, p := range childPos {
			childApps := appByPos[p.ID]
			rows = append(rows, domain.TreeRow{
				ID:          p.ID,
				Kind:        domain.KindPosition,
				Title:       p.Title,
				Code:        p.Code,
				ParentID:    d.ID,
				Level:       p.Level,
				SortOrder:   p.SortOrder,
				HasChildren: len(childApps) > 0,
			})
			for _, a := range childApps {
				rows = append(rows, domain.TreeRow{
					ID:        a.ID,
					Kind:      domain.KindAppointment,
					Title:     appointmentTitle(a),
					ParentID:  p.ID,
					Level:     a.Level,
					SortOrder: a.SortOrder,
				})
			}
		}
		for _, c := range childDepts {
			walkDept(c)
		}
	}
	for _, d := range deptByParent[chart.ID] {
		walkDept(d)
	}
	return rows, nil
}

func parentOrChart(parent *string, chartID string) string {
	if parent != nil {
		return *parent
	}
	return chartID
}

func appointmentTitle(a domain.Appointment) string {
	if a.IsVacant {
		return "Vacant"
	}
	if a.UserDisplayName != "" {
		return a.UserDisplayName
	}
	if a.UserID != nil {
		return *a.UserID
	}
	return "Vacant"
}

func siblingLess(so1, id1, so2, id2 string) bool {
	if so1 != so2 {
		return so1 < so2
	}
	return id1 < id2
}
