package engine

import (
	"context"
	"fmt"

	"orgline/internal/domain"
	"orgline/internal/events"
)

// ensureChartTransition validates a status move. The lifecycle is
// draft -> pending_approval -> approved -> revoked, with pending_approval
// able to fall back to draft. Revoked is terminal.
func ensureChartTransition(from, to string) error {
	ok := false
	switch from {
	case domain.StatusDraft:
		ok = to == domain.StatusPendingApproval
	case domain.StatusPendingApproval:
		ok = to == domain.StatusApproved || to == domain.StatusDraft
	case domain.StatusApproved:
		ok = to == domain.StatusRevoked
	}
	if !ok {
		return ValidationError{Field: "status", Reason: fmt.Sprintf("cannot move chart from %s to %s", from, to)}
	}
	return nil
}

// SubmitOrgChart moves a draft chart to pending_approval.
func (e *Engine) SubmitOrgChart(ctx context.Context, id, actorID string) (domain.OrgChart, error) {
	unlock := e.lock(id)
	defer unlock()

	n, c, err := e.getChartNode(ctx, id)
	if err != nil {
		return domain.OrgChart{}, err
	}
	if err := ensureChartTransition(c.Status, domain.StatusPendingApproval); err != nil {
		return domain.OrgChart{}, err
	}
	ts := e.nowString()
	c.Status = domain.StatusPendingApproval
	c.SubmittedForApprovalAt = &ts
	c.SubmittedForApprovalBy = &actorID
	c.UpdatedAt = ts
	c.UpdatedBy = actorID
	if err := e.putUpdate(ctx, n, c, chartIndex(c), actorID, ts); err != nil {
		return domain.OrgChart{}, err
	}
	if err := e.Events.Append(ctx, "chart.submitted", c.Company, c.ID, domain.KindOrgChart, c.ID, actorID, nil); err != nil {
		return domain.OrgChart{}, err
	}
	return c, nil
}

// ApproveOrgChart moves a pending chart to approved. The version major is
// recomputed from the company's enforced charts and the minor freezes to 0,
// so an approved chart always carries a whole version like "3.0".
func (e *Engine) ApproveOrgChart(ctx context.Context, id, actorID string) (domain.OrgChart, error) {
	n, c, err := e.getChartNode(ctx, id)
	if err != nil {
		return domain.OrgChart{}, err
	}
	unlock := e.lock("company:" + c.Company)
	defer unlock()
	unlockChart := e.lock(id)
	defer unlockChart()

	n, c, err = e.getChartNode(ctx, id)
	if err != nil {
		return domain.OrgChart{}, err
	}
	if err := ensureChartTransition(c.Status, domain.StatusApproved); err != nil {
		return domain.OrgChart{}, err
	}
	charts, err := e.ListOrgCharts(ctx, c.Company)
	if err != nil {
		return domain.OrgChart{}, err
	}
	enforced := 0
	for _, other := range charts {
		if other.ID == c.ID {
			continue
		}
		if other.Status == domain.StatusApproved || other.Status == domain.StatusRevoked {
			enforced++
		}
	}
	ts := e.nowString()
	c.Status = domain.StatusApproved
	c.Version = fmt.Sprintf("%d.0", enforced+1)
	c.ApprovedAt = &ts
	c.ApprovedBy = &actorID
	if c.EnforcedAt == nil {
		c.EnforcedAt = &ts
	}
	c.UpdatedAt = ts
	c.UpdatedBy = actorID
	if err := e.putUpdate(ctx, n, c, chartIndex(c), actorID, ts); err != nil {
		return domain.OrgChart{}, err
	}
	if err := e.Events.Append(ctx, "chart.approved", c.Company, c.ID, domain.KindOrgChart, c.ID, actorID, events.Payload{"version": c.Version}); err != nil {
		return domain.OrgChart{}, err
	}
	return c, nil
}

// ReturnOrgChartToDraft sends a pending chart back for more edits.
func (e *Engine) ReturnOrgChartToDraft(ctx context.Context, id, actorID string) (domain.OrgChart, error) {
	unlock := e.lock(id)
	defer unlock()

	n, c, err := e.getChartNode(ctx, id)
	if err != nil {
		return domain.OrgChart{}, err
	}
	if err := ensureChartTransition(c.Status, domain.StatusDraft); err != nil {
		return domain.OrgChart{}, err
	}
	ts := e.nowString()
	c.Status = domain.StatusDraft
	c.SubmittedForApprovalAt = nil
	c.SubmittedForApprovalBy = nil
	c.UpdatedAt = ts
	c.UpdatedBy = actorID
	if err := e.putUpdate(ctx, n, c, chartIndex(c), actorID, ts); err != nil {
		return domain.OrgChart{}, err
	}
	if err := e.Events.Append(ctx, "chart.returned", c.Company, c.ID, domain.KindOrgChart, c.ID, actorID, nil); err != nil {
		return domain.OrgChart{}, err
	}
	return c, nil
}

// RevokeOrgChart retires an approved chart. Revoked charts stay readable
// forever but accept no further structural or lifecycle changes.
func (e *Engine) RevokeOrgChart(ctx context.Context, id, actorID string) (domain.OrgChart, error) {
	unlock := e.lock(id)
	defer unlock()

	n, c, err := e.getChartNode(ctx, id)
	if err != nil {
		return domain.OrgChart{}, err
	}
	if err := ensureChartTransition(c.Status, domain.StatusRevoked); err != nil {
		return domain.OrgChart{}, err
	}
	ts := e.nowString()
	c.Status = domain.StatusRevoked
	c.RevokedAt = &ts
	c.UpdatedAt = ts
	c.UpdatedBy = actorID
	if err := e.putUpdate(ctx, n, c, chartIndex(c), actorID, ts); err != nil {
		return domain.OrgChart{}, err
	}
	if err := e.Events.Append(ctx, "chart.revoked", c.Company, c.ID, domain.KindOrgChart, c.ID, actorID, nil); err != nil {
		return domain.OrgChart{}, err
	}
	return c, nil
}
