package engine

import (
	"context"
	"fmt"

	"orgline/internal/domain"
	"orgline/internal/events"
	"orgline/internal/perm"
)

// Update options use pointers so callers can distinguish "leave alone"
// from "set to zero value". Each set field is checked against the
// permission table for the chart's current status before anything is
// written.

type ChartUpdateOptions struct {
	Title       *string
	Description *string
	ActorID     string
}

func (e *Engine) UpdateOrgChart(ctx context.Context, id string, opts ChartUpdateOptions) (domain.OrgChart, error) {
	unlock := e.lock(id)
	defer unlock()

	n, c, err := e.getChartNode(ctx, id)
	if err != nil {
		return domain.OrgChart{}, err
	}
	dec := perm.For(domain.KindOrgChart, c.Status)
	if !dec.CanUpdate {
		return domain.OrgChart{}, PermissionError{Kind: domain.KindOrgChart, Operation: "update", Status: c.Status}
	}
	changed := events.Payload{}
	if opts.Title != nil {
		if *opts.Title == "" {
			return domain.OrgChart{}, ValidationError{Field: "title", Reason: "required"}
		}
		if err := fieldAllowed(dec, domain.KindOrgChart, c.Status, "title"); err != nil {
			return domain.OrgChart{}, err
		}
		c.Title = *opts.Title
		changed["title"] = c.Title
	}
	if opts.Description != nil {
		if err := fieldAllowed(dec, domain.KindOrgChart, c.Status, "description"); err != nil {
			return domain.OrgChart{}, err
		}
		c.Description = *opts.Description
		changed["description"] = c.Description
	}
	if len(changed) == 0 {
		return c, nil
	}
	ts := e.nowString()
	c.UpdatedAt = ts
	c.UpdatedBy = opts.ActorID
	if err := e.putUpdate(ctx, n, c, chartIndex(c), opts.ActorID, ts); err != nil {
		return domain.OrgChart{}, err
	}
	if err := e.Events.Append(ctx, "chart.updated", c.Company, c.ID, domain.KindOrgChart, c.ID, opts.ActorID, changed); err != nil {
		return domain.OrgChart{}, err
	}
	return c, nil
}

type DepartmentUpdateOptions struct {
	Title       *string
	Description *string
	Code        *string
	Headcount   *int
	Charter     *domain.Charter
	ActorID     string
}

func (e *Engine) UpdateDepartment(ctx context.Context, id string, opts DepartmentUpdateOptions) (domain.Department, error) {
	_, d0, err := e.getDepartmentNode(ctx, id)
	if err != nil {
		return domain.Department{}, err
	}
	unlock := e.lock(d0.OrgChartID)
	defer unlock()

	n, d, err := e.getDepartmentNode(ctx, id)
	if err != nil {
		return domain.Department{}, err
	}
	_, chart, err := e.getChartNode(ctx, d.OrgChartID)
	if err != nil {
		return domain.Department{}, err
	}
	dec := perm.For(domain.KindDepartment, chart.Status)
	if !dec.CanUpdate {
		return domain.Department{}, PermissionError{Kind: domain.KindDepartment, Operation: "update", Status: chart.Status}
	}
	changed := events.Payload{}
	if opts.Title != nil {
		if *opts.Title == "" {
			return domain.Department{}, ValidationError{Field: "title", Reason: "required"}
		}
		if err := fieldAllowed(dec, domain.KindDepartment, chart.Status, "title"); err != nil {
			return domain.Department{}, err
		}
		d.Title = *opts.Title
		changed["title"] = d.Title
	}
	if opts.Description != nil {
		if err := fieldAllowed(dec, domain.KindDepartment, chart.Status, "description"); err != nil {
			return domain.Department{}, err
		}
		d.Description = *opts.Description
		changed["description"] = d.Description
	}
	if opts.Code != nil {
		if err := fieldAllowed(dec, domain.KindDepartment, chart.Status, "code"); err != nil {
			return domain.Department{}, err
		}
		if *opts.Code == "" {
			return domain.Department{}, ValidationError{Field: "code", Reason: "required"}
		}
		if *opts.Code != d.Code {
			taken, err := e.departmentCodeTaken(ctx, chart, *opts.Code)
			if err != nil {
				return domain.Department{}, err
			}
			if taken {
				return domain.Department{}, ValidationError{Field: "code", Reason: fmt.Sprintf("code %s already used in chart", *opts.Code)}
			}
			d.Code = *opts.Code
			changed["code"] = d.Code
		}
	}
	if opts.Headcount != nil {
		if err := fieldAllowed(dec, domain.KindDepartment, chart.Status, "headcount"); err != nil {
			return domain.Department{}, err
		}
		if *opts.Headcount < 0 {
			return domain.Department{}, ValidationError{Field: "headcount", Reason: "must not be negative"}
		}
		d.Headcount = *opts.Headcount
		changed["headcount"] = d.Headcount
	}
	if opts.Charter != nil {
		if err := fieldAllowed(dec, domain.KindDepartment, chart.Status, "charter"); err != nil {
			return domain.Department{}, err
		}
		d.Charter = opts.Charter
		changed["charter"] = true
	}
	if len(changed) == 0 {
		return d, nil
	}
	ts := e.nowString()
	d.UpdatedAt = ts
	d.UpdatedBy = opts.ActorID
	if err := e.putUpdate(ctx, n, d, departmentIndex(d), opts.ActorID, ts); err != nil {
		return domain.Department{}, err
	}
	if err := e.Events.Append(ctx, "department.updated", d.Company, chart.ID, domain.KindDepartment, d.ID, opts.ActorID, changed); err != nil {
		return domain.Department{}, err
	}
	return d, nil
}

type PositionUpdateOptions struct {
	Title               *string
	Description         *string
	ReportsToPositionID *string
	SalaryMin           *float64
	SalaryMax           *float64
	SalaryCurrency      *string
	SalaryFrequency     *string
	JobDescription      *domain.JobDescription
	ActorID             string
}

func (e *Engine) UpdatePosition(ctx context.Context, id string, opts PositionUpdateOptions) (domain.Position, error) {
	_, p0, err := e.getPositionNode(ctx, id)
	if err != nil {
		return domain.Position{}, err
	}
	unlock := e.lock(p0.OrgChartID)
	defer unlock()

	n, p, err := e.getPositionNode(ctx, id)
	if err != nil {
		return domain.Position{}, err
	}
	_, chart, err := e.getChartNode(ctx, p.OrgChartID)
	if err != nil {
		return domain.Position{}, err
	}
	dec := perm.For(domain.KindPosition, chart.Status)
	if !dec.CanUpdate {
		return domain.Position{}, PermissionError{Kind: domain.KindPosition, Operation: "update", Status: chart.Status}
	}
	changed := events.Payload{}
	if opts.Title != nil {
		if *opts.Title == "" {
			return domain.Position{}, ValidationError{Field: "title", Reason: "required"}
		}
		if err := fieldAllowed(dec, domain.KindPosition, chart.Status, "title"); err != nil {
			return domain.Position{}, err
		}
		p.Title = *opts.Title
		changed["title"] = p.Title
	}
	if opts.Description != nil {
		if err := fieldAllowed(dec, domain.KindPosition, chart.Status, "description"); err != nil {
			return domain.Position{}, err
		}
		p.Description = *opts.Description
		changed["description"] = p.Description
	}
	if opts.ReportsToPositionID != nil {
		if err := fieldAllowed(dec, domain.KindPosition, chart.Status, "reports_to_position_id"); err != nil {
			return domain.Position{}, err
		}
		if *opts.ReportsToPositionID == "" {
			p.ReportsToPositionID = nil
		} else {
			if *opts.ReportsToPositionID == p.ID {
				return domain.Position{}, ValidationError{Field: "reports_to_position_id", Reason: "position cannot report to itself"}
			}
			if err := e.checkReportingChain(ctx, chart, *opts.ReportsToPositionID, p.ID); err != nil {
				return domain.Position{}, err
			}
			p.ReportsToPositionID = opts.ReportsToPositionID
		}
		changed["reports_to_position_id"] = *opts.ReportsToPositionID
	}
	min, max := p.SalaryMin, p.SalaryMax
	if opts.SalaryMin != nil {
		min = *opts.SalaryMin
	}
	if opts.SalaryMax != nil {
		max = *opts.SalaryMax
	}
	if opts.SalaryMin != nil || opts.SalaryMax != nil {
		if err := validateSalaryBand(min, max); err != nil {
			return domain.Position{}, err
		}
	}
	if opts.SalaryMin != nil {
		if err := fieldAllowed(dec, domain.KindPosition, chart.Status, "salary_min"); err != nil {
			return domain.Position{}, err
		}
		p.SalaryMin = min
		changed["salary_min"] = min
	}
	if opts.SalaryMax != nil {
		if err := fieldAllowed(dec, domain.KindPosition, chart.Status, "salary_max"); err != nil {
			return domain.Position{}, err
		}
		p.SalaryMax = max
		changed["salary_max"] = max
	}
	if opts.SalaryCurrency != nil {
		if err := fieldAllowed(dec, domain.KindPosition, chart.Status, "salary_currency"); err != nil {
			return domain.Position{}, err
		}
		p.SalaryCurrency = *opts.SalaryCurrency
		changed["salary_currency"] = p.SalaryCurrency
	}
	if opts.SalaryFrequency != nil {
		if err := fieldAllowed(dec, domain.KindPosition, chart.Status, "salary_frequency"); err != nil {
			return domain.Position{}, err
		}
		if !validFrequency(*opts.SalaryFrequency) {
			return domain.Position{}, ValidationError{Field: "salary_frequency", Reason: "unknown frequency " + *opts.SalaryFrequency}
		}
		p.SalaryFrequency = *opts.SalaryFrequency
		changed["salary_frequency"] = p.SalaryFrequency
	}
	if opts.JobDescription != nil {
		if err := fieldAllowed(dec, domain.KindPosition, chart.Status, "job_description"); err != nil {
			return domain.Position{}, err
		}
		p.JobDescription = opts.JobDescription
		changed["job_description"] = true
	}
	if len(changed) == 0 {
		return p, nil
	}
	ts := e.nowString()
	p.UpdatedAt = ts
	p.UpdatedBy = opts.ActorID
	if err := e.putUpdate(ctx, n, p, positionIndex(p), opts.ActorID, ts); err != nil {
		return domain.Position{}, err
	}
	if err := e.Events.Append(ctx, "position.updated", p.Company, chart.ID, domain.KindPosition, p.ID, opts.ActorID, changed); err != nil {
		return domain.Position{}, err
	}
	return p, nil
}

type AppointmentUpdateOptions struct {
	UserDisplayName     *string
	JobOffer            *domain.JobOffer
	ContractSignedAt    *string
	StartedAt           *string
	EndedAt             *string
	TerminationNoticeAt *string
	TerminationReason   *string
	ActorID             string
}

func (e *Engine) UpdateAppointment(ctx context.Context, id string, opts AppointmentUpdateOptions) (domain.Appointment, error) {
	_, a0, err := e.getAppointmentNode(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	unlock := e.lock(a0.OrgChartID)
	defer unlock()

	n, a, err := e.getAppointmentNode(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	_, chart, err := e.getChartNode(ctx, a.OrgChartID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if dec := perm.For(domain.KindAppointment, chart.Status); !dec.CanUpdate {
		return domain.Appointment{}, PermissionError{Kind: domain.KindAppointment, Operation: "update", Status: chart.Status}
	}
	changed := events.Payload{}
	if opts.UserDisplayName != nil {
		a.UserDisplayName = *opts.UserDisplayName
		changed["user_display_name"] = a.UserDisplayName
	}
	if opts.JobOffer != nil {
		a.JobOffer = opts.JobOffer
		changed["job_offer"] = true
	}
	if opts.ContractSignedAt != nil {
		a.ContractSignedAt = opts.ContractSignedAt
		changed["contract_signed_at"] = *opts.ContractSignedAt
	}
	if opts.StartedAt != nil {
		a.StartedAt = opts.StartedAt
		changed["started_at"] = *opts.StartedAt
	}
	if opts.EndedAt != nil {
		a.EndedAt = opts.EndedAt
		changed["ended_at"] = *opts.EndedAt
	}
	if opts.TerminationNoticeAt != nil {
		a.TerminationNoticeAt = opts.TerminationNoticeAt
		changed["termination_notice_at"] = *opts.TerminationNoticeAt
	}
	if opts.TerminationReason != nil {
		a.TerminationReason = *opts.TerminationReason
		changed["termination_reason"] = a.TerminationReason
	}
	if len(changed) == 0 {
		return a, nil
	}
	ts := e.nowString()
	a.UpdatedAt = ts
	a.UpdatedBy = opts.ActorID
	if err := e.putUpdate(ctx, n, a, appointmentIndex(a), opts.ActorID, ts); err != nil {
		return domain.Appointment{}, err
	}
	if err := e.Events.Append(ctx, "appointment.updated", a.Company, chart.ID, domain.KindAppointment, a.ID, opts.ActorID, changed); err != nil {
		return domain.Appointment{}, err
	}
	return a, nil
}

type FillOptions struct {
	UserID          string
	UserDisplayName string
	JobOffer        *domain.JobOffer
	ActorID         string
}

// FillAppointment assigns a person to a vacant appointment. Filling counts
// against the department's headcount.
func (e *Engine) FillAppointment(ctx context.Context, id string, opts FillOptions) (domain.Appointment, error) {
	if opts.UserID == "" {
		return domain.Appointment{}, ValidationError{Field: "user_id", Reason: "required"}
	}
	_, a0, err := e.getAppointmentNode(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	unlock := e.lock(a0.OrgChartID)
	defer unlock()

	n, a, err := e.getAppointmentNode(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	_, chart, err := e.getChartNode(ctx, a.OrgChartID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if dec := perm.For(domain.KindAppointment, chart.Status); !dec.CanUpdate {
		return domain.Appointment{}, PermissionError{Kind: domain.KindAppointment, Operation: "update", Status: chart.Status}
	}
	if !a.IsVacant {
		return domain.Appointment{}, ValidationError{Field: "is_vacant", Reason: "appointment already filled"}
	}
	_, pos, err := e.getPositionNode(ctx, a.PositionID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if err := e.checkHeadcount(ctx, chart, pos.DepartmentID, a.ID); err != nil {
		return domain.Appointment{}, err
	}
	ts := e.nowString()
	a.IsVacant = false
	a.UserID = &opts.UserID
	a.UserDisplayName = opts.UserDisplayName
	if opts.JobOffer != nil {
		a.JobOffer = opts.JobOffer
	}
	a.UpdatedAt = ts
	a.UpdatedBy = opts.ActorID
	if err := e.putUpdate(ctx, n, a, appointmentIndex(a), opts.ActorID, ts); err != nil {
		return domain.Appointment{}, err
	}
	if err := e.Events.Append(ctx, "appointment.filled", a.Company, chart.ID, domain.KindAppointment, a.ID, opts.ActorID, events.Payload{"user_id": opts.UserID}); err != nil {
		return domain.Appointment{}, err
	}
	return a, nil
}

type VacateOptions struct {
	TerminationReason string
	ActorID           string
}

// VacateAppointment clears the occupant. Vacating an already vacant
// appointment is a no-op, not an error.
func (e *Engine) VacateAppointment(ctx context.Context, id string, opts VacateOptions) (domain.Appointment, error) {
	_, a0, err := e.getAppointmentNode(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	unlock := e.lock(a0.OrgChartID)
	defer unlock()

	n, a, err := e.getAppointmentNode(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	if a.IsVacant {
		return a, nil
	}
	_, chart, err := e.getChartNode(ctx, a.OrgChartID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if dec := perm.For(domain.KindAppointment, chart.Status); !dec.CanUpdate {
		return domain.Appointment{}, PermissionError{Kind: domain.KindAppointment, Operation: "update", Status: chart.Status}
	}
	ts := e.nowString()
	wasUser := ""
	if a.UserID != nil {
		wasUser = *a.UserID
	}
	a.IsVacant = true
	a.UserID = nil
	a.UserDisplayName = ""
	a.EndedAt = &ts
	if opts.TerminationReason != "" {
		a.TerminationReason = opts.TerminationReason
	}
	a.UpdatedAt = ts
	a.UpdatedBy = opts.ActorID
	if err := e.putUpdate(ctx, n, a, appointmentIndex(a), opts.ActorID, ts); err != nil {
		return domain.Appointment{}, err
	}
	if err := e.Events.Append(ctx, "appointment.vacated", a.Company, chart.ID, domain.KindAppointment, a.ID, opts.ActorID, events.Payload{"user_id": wasUser}); err != nil {
		return domain.Appointment{}, err
	}
	return a, nil
}

// fieldAllowed wraps the per-field permission check into the engine's error
// type so callers see which field was frozen.
func fieldAllowed(dec perm.Decision, kind, status, field string) error {
	if dec.FieldAllowed(field) {
		return nil
	}
	return PermissionError{Kind: kind, Operation: "update", Status: status, Field: field}
}
