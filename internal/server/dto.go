package server

import (
	"orgline/internal/domain"
	"orgline/internal/engine"
)

// Request payloads

type CreateChartRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

type UpdateChartRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

type CharterRequest struct {
	Mission          string   `json:"mission,omitempty"`
	Objectives       []string `json:"objectives,omitempty"`
	Responsibilities []string `json:"responsibilities,omitempty"`
}

type CreateDepartmentRequest struct {
	Title              string          `json:"title"`
	Description        *string         `json:"description,omitempty"`
	Code               *string         `json:"code,omitempty"`
	Headcount          *int            `json:"headcount,omitempty"`
	ParentDepartmentID *string         `json:"parent_department_id,omitempty"`
	Charter            *CharterRequest `json:"charter,omitempty"`
}

type UpdateDepartmentRequest struct {
	Title       *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	Code        *string         `json:"code,omitempty"`
	Headcount   *int            `json:"headcount,omitempty"`
	Charter     *CharterRequest `json:"charter,omitempty"`
}

type JobDescriptionRequest struct {
	Summary          string   `json:"summary,omitempty"`
	Responsibilities []string `json:"responsibilities,omitempty"`
	Requirements     []string `json:"requirements,omitempty"`
	Qualifications   []string `json:"qualifications,omitempty"`
	Benefits         []string `json:"benefits,omitempty"`
}

type CreatePositionRequest struct {
	Title               string                 `json:"title"`
	Description         *string                `json:"description,omitempty"`
	ReportsToPositionID *string                `json:"reports_to_position_id,omitempty"`
	SalaryMin           *float64               `json:"salary_min,omitempty"`
	SalaryMax           *float64               `json:"salary_max,omitempty"`
	SalaryCurrency      *string                `json:"salary_currency,omitempty"`
	SalaryFrequency     *string                `json:"salary_frequency,omitempty" enum:"hourly,daily,weekly,monthly,annual,per_job"`
	JobDescription      *JobDescriptionRequest `json:"job_description,omitempty"`
}

type UpdatePositionRequest struct {
	Title               *string                `json:"title,omitempty"`
	Description         *string                `json:"description,omitempty"`
	ReportsToPositionID *string                `json:"reports_to_position_id,omitempty"`
	SalaryMin           *float64               `json:"salary_min,omitempty"`
	SalaryMax           *float64               `json:"salary_max,omitempty"`
	SalaryCurrency      *string                `json:"salary_currency,omitempty"`
	SalaryFrequency     *string                `json:"salary_frequency,omitempty" enum:"hourly,daily,weekly,monthly,annual,per_job"`
	JobDescription      *JobDescriptionRequest `json:"job_description,omitempty"`
}

type JobOfferRequest struct {
	SalaryAmount    float64  `json:"salary_amount,omitempty"`
	SalaryCurrency  string   `json:"salary_currency,omitempty"`
	SalaryFrequency string   `json:"salary_frequency,omitempty" enum:"hourly,daily,weekly,monthly,annual,per_job"`
	StartDate       string   `json:"start_date,omitempty" format:"date-time"`
	Benefits        []string `json:"benefits,omitempty"`
	Conditions      []string `json:"conditions,omitempty"`
}

type CreateAppointmentRequest struct {
	UserID          *string          `json:"user_id,omitempty"`
	UserDisplayName *string          `json:"user_display_name,omitempty"`
	IsVacant        bool             `json:"is_vacant,omitempty"`
	JobOffer        *JobOfferRequest `json:"job_offer,omitempty"`
}

type UpdateAppointmentRequest struct {
	UserDisplayName     *string          `json:"user_display_name,omitempty"`
	JobOffer            *JobOfferRequest `json:"job_offer,omitempty"`
	ContractSignedAt    *string          `json:"contract_signed_at,omitempty" format:"date-time"`
	StartedAt           *string          `json:"started_at,omitempty" format:"date-time"`
	EndedAt             *string          `json:"ended_at,omitempty" format:"date-time"`
	TerminationNoticeAt *string          `json:"termination_notice_at,omitempty" format:"date-time"`
	TerminationReason   *string          `json:"termination_reason,omitempty"`
}

type FillAppointmentRequest struct {
	UserID          string           `json:"user_id"`
	UserDisplayName *string          `json:"user_display_name,omitempty"`
	JobOffer        *JobOfferRequest `json:"job_offer,omitempty"`
}

type VacateAppointmentRequest struct {
	TerminationReason *string `json:"termination_reason,omitempty"`
}

type CreateAPIKeyRequest struct {
	ActorID string  `json:"actor_id"`
	Name    *string `json:"name,omitempty"`
}

// Response payloads

type ChartResponse struct {
	ID                     string  `json:"id"`
	Company                string  `json:"company"`
	Title                  string  `json:"title"`
	Description            string  `json:"description,omitempty"`
	Status                 string  `json:"status" enum:"draft,pending_approval,approved,revoked"`
	Version                string  `json:"version"`
	SubmittedForApprovalAt *string `json:"submitted_for_approval_at,omitempty" format:"date-time"`
	ApprovedAt             *string `json:"approved_at,omitempty" format:"date-time"`
	EnforcedAt             *string `json:"enforced_at,omitempty" format:"date-time"`
	RevokedAt              *string `json:"revoked_at,omitempty" format:"date-time"`
	CreatedAt              string  `json:"created_at" format:"date-time"`
	UpdatedAt              string  `json:"updated_at" format:"date-time"`
}

type DepartmentResponse struct {
	ID                 string          `json:"id"`
	OrgChartID         string          `json:"org_chart_id"`
	ParentDepartmentID *string         `json:"parent_department_id,omitempty"`
	Title              string          `json:"title"`
	Description        string          `json:"description,omitempty"`
	Code               string          `json:"code"`
	Headcount          int             `json:"headcount"`
	Charter            *domain.Charter `json:"charter,omitempty"`
	Level              int             `json:"level"`
	CreatedAt          string          `json:"created_at" format:"date-time"`
	UpdatedAt          string          `json:"updated_at" format:"date-time"`
}

type PositionResponse struct {
	ID                  string                 `json:"id"`
	OrgChartID          string                 `json:"org_chart_id"`
	DepartmentID        string                 `json:"department_id"`
	Title               string                 `json:"title"`
	Description         string                 `json:"description,omitempty"`
	Code                string                 `json:"code"`
	ReportsToPositionID *string                `json:"reports_to_position_id,omitempty"`
	SalaryMin           float64                `json:"salary_min"`
	SalaryMax           float64                `json:"salary_max"`
	SalaryCurrency      string                 `json:"salary_currency,omitempty"`
	SalaryFrequency     string                 `json:"salary_frequency,omitempty" enum:"hourly,daily,weekly,monthly,annual,per_job"`
	JobDescription      *domain.JobDescription `json:"job_description,omitempty"`
	Level               int                    `json:"level"`
	CreatedAt           string                 `json:"created_at" format:"date-time"`
	UpdatedAt           string                 `json:"updated_at" format:"date-time"`
}

type AppointmentResponse struct {
	ID                  string           `json:"id"`
	OrgChartID          string           `json:"org_chart_id"`
	PositionID          string           `json:"position_id"`
	UserID              *string          `json:"user_id,omitempty"`
	UserDisplayName     string           `json:"user_display_name,omitempty"`
	IsVacant            bool             `json:"is_vacant"`
	JobOffer            *domain.JobOffer `json:"job_offer,omitempty"`
	ContractSignedAt    *string          `json:"contract_signed_at,omitempty" format:"date-time"`
	StartedAt           *string          `json:"started_at,omitempty" format:"date-time"`
	EndedAt             *string          `json:"ended_at,omitempty" format:"date-time"`
	TerminationNoticeAt *string          `json:"termination_notice_at,omitempty" format:"date-time"`
	TerminationReason   string           `json:"termination_reason,omitempty"`
	Level               int              `json:"level"`
	CreatedAt           string           `json:"created_at" format:"date-time"`
	UpdatedAt           string           `json:"updated_at" format:"date-time"`
}

type DepartmentBundleResponse struct {
	Department      DepartmentResponse  `json:"department"`
	HeadPosition    PositionResponse    `json:"head_position"`
	HeadAppointment AppointmentResponse `json:"head_appointment"`
}

type PositionBundleResponse struct {
	Position    PositionResponse    `json:"position"`
	Appointment AppointmentResponse `json:"appointment"`
}

type TreeRowResponse struct {
	ID          string `json:"id"`
	Kind        string `json:"kind" enum:"orgchart,department,position,appointment"`
	Title       string `json:"title"`
	Code        string `json:"code,omitempty"`
	ParentID    string `json:"parent_id,omitempty"`
	Level       int    `json:"level"`
	HasChildren bool   `json:"has_children"`
}

type EventResponse struct {
	ID         string         `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	OrgChartID string         `json:"org_chart_id"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	ActorID    string         `json:"actor_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

type APIKeyResponse struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	Key       string `json:"key,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// Mapping helpers

func chartResponse(c domain.OrgChart) ChartResponse {
	return ChartResponse{
		ID:                     c.ID,
		Company:                c.Company,
		Title:                  c.Title,
		Description:            c.Description,
		Status:                 c.Status,
		Version:                c.Version,
		SubmittedForApprovalAt: c.SubmittedForApprovalAt,
		ApprovedAt:             c.ApprovedAt,
		EnforcedAt:             c.EnforcedAt,
		RevokedAt:              c.RevokedAt,
		CreatedAt:              c.CreatedAt,
		UpdatedAt:              c.UpdatedAt,
	}
}

func mapCharts(items []domain.OrgChart) []ChartResponse {
	out := make([]ChartResponse, 0, len(items))
	for _, c := range items {
		out = append(out, chartResponse(c))
	}
	return out
}

func departmentResponse(d domain.Department) DepartmentResponse {
	return DepartmentResponse{
		ID:                 d.ID,
		OrgChartID:         d.OrgChartID,
		ParentDepartmentID: d.ParentDepartmentID,
		Title:              d.Title,
		Description:        d.Description,
		Code:               d.Code,
		Headcount:          d.Headcount,
		Charter:            d.Charter,
		Level:              d.Level,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

func positionResponse(p domain.Position) PositionResponse {
	return PositionResponse{
		ID:                  p.ID,
		OrgChartID:          p.OrgChartID,
		DepartmentID:        p.DepartmentID,
		Title:               p.Title,
		Description:         p.Description,
		Code:                p.Code,
		ReportsToPositionID: p.ReportsToPositionID,
		SalaryMin:           p.SalaryMin,
		SalaryMax:           p.SalaryMax,
		SalaryCurrency:      p.SalaryCurrency,
		SalaryFrequency:     p.SalaryFrequency,
		JobDescription:      p.JobDescription,
		Level:               p.Level,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

func appointmentResponse(a domain.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                  a.ID,
		OrgChartID:          a.OrgChartID,
		PositionID:          a.PositionID,
		UserID:              a.UserID,
		UserDisplayName:     a.UserDisplayName,
		IsVacant:            a.IsVacant,
		JobOffer:            a.JobOffer,
		ContractSignedAt:    a.ContractSignedAt,
		StartedAt:           a.StartedAt,
		EndedAt:             a.EndedAt,
		TerminationNoticeAt: a.TerminationNoticeAt,
		TerminationReason:   a.TerminationReason,
		Level:               a.Level,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
}

func departmentBundleResponse(b engine.DepartmentBundle) DepartmentBundleResponse {
	return DepartmentBundleResponse{
		Department:      departmentResponse(b.Department),
		HeadPosition:    positionResponse(b.HeadPosition),
		HeadAppointment: appointmentResponse(b.HeadAppointment),
	}
}

func positionBundleResponse(b engine.PositionBundle) PositionBundleResponse {
	return PositionBundleResponse{
		Position:    positionResponse(b.Position),
		Appointment: appointmentResponse(b.Appointment),
	}
}

func treeRowResponse(r domain.TreeRow) TreeRowResponse {
	return TreeRowResponse{
		ID:          r.ID,
		Kind:        r.Kind,
		Title:       r.Title,
		Code:        r.Code,
		ParentID:    r.ParentID,
		Level:       r.Level,
		HasChildren: r.HasChildren,
	}
}

func eventResponse(ev domain.Event) EventResponse {
	return EventResponse{
		ID:         ev.ID,
		TS:         ev.TS,
		Type:       ev.Type,
		OrgChartID: ev.OrgChartID,
		EntityKind: ev.EntityKind,
		EntityID:   ev.EntityID,
		ActorID:    ev.ActorID,
		Payload:    ev.Payload,
	}
}

func charterFromRequest(r *CharterRequest) *domain.Charter {
	if r == nil {
		return nil
	}
	return &domain.Charter{
		Mission:          r.Mission,
		Objectives:       r.Objectives,
		Responsibilities: r.Responsibilities,
	}
}

func jobDescriptionFromRequest(r *JobDescriptionRequest) *domain.JobDescription {
	if r == nil {
		return nil
	}
	return &domain.JobDescription{
		Summary:          r.Summary,
		Responsibilities: r.Responsibilities,
		Requirements:     r.Requirements,
		Qualifications:   r.Qualifications,
		Benefits:         r.Benefits,
	}
}

func jobOfferFromRequest(r *JobOfferRequest) *domain.JobOffer {
	if r == nil {
		return nil
	}
	return &domain.JobOffer{
		SalaryAmount:    r.SalaryAmount,
		SalaryCurrency:  r.SalaryCurrency,
		SalaryFrequency: r.SalaryFrequency,
		StartDate:       stringPtrOrNil(r.StartDate),
		Benefits:        r.Benefits,
		Conditions:      r.Conditions,
	}
}

func stringPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
