package domain

// Node kinds stored by the engine.
const (
	KindOrgChart    = "orgchart"
	KindDepartment  = "department"
	KindPosition    = "position"
	KindAppointment = "appointment"
	KindEvent       = "event"
	KindAPIKey      = "apikey"
)

// OrgChart lifecycle statuses.
const (
	StatusDraft           = "draft"
	StatusPendingApproval = "pending_approval"
	StatusApproved        = "approved"
	StatusRevoked         = "revoked"
)

// Salary frequencies.
const (
	FrequencyHourly  = "hourly"
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
	FrequencyAnnual  = "annual"
	FrequencyPerJob  = "per_job"
)

type OrgChart struct {
	ID                     string  `json:"id"`
	Company                string  `json:"company"`
	Title                  string  `json:"title"`
	Description            string  `json:"description,omitempty"`
	Status                 string  `json:"status" enum:"draft,pending_approval,approved,revoked"`
	Version                string  `json:"version"`
	EnforcedAt             *string `json:"enforced_at,omitempty" format:"date-time"`
	RevokedAt              *string `json:"revoked_at,omitempty" format:"date-time"`
	ApprovedAt             *string `json:"approved_at,omitempty" format:"date-time"`
	ApprovedBy             *string `json:"approved_by,omitempty"`
	SubmittedForApprovalAt *string `json:"submitted_for_approval_at,omitempty" format:"date-time"`
	SubmittedForApprovalBy *string `json:"submitted_for_approval_by,omitempty"`
	CreatedAt              string  `json:"created_at" format:"date-time"`
	UpdatedAt              string  `json:"updated_at" format:"date-time"`
	CreatedBy              string  `json:"created_by"`
	UpdatedBy              string  `json:"updated_by"`
}

// Charter is the free-form mission statement attached to a department.
type Charter struct {
	Mission          string   `json:"mission,omitempty"`
	Objectives       []string `json:"objectives,omitempty"`
	Responsibilities []string `json:"responsibilities,omitempty"`
}

type Department struct {
	ID                 string   `json:"id"`
	Company            string   `json:"company"`
	OrgChartID         string   `json:"org_chart_id"`
	ParentDepartmentID *string  `json:"parent_department_id,omitempty"`
	Title              string   `json:"title"`
	Description        string   `json:"description,omitempty"`
	Code               string   `json:"code"`
	Headcount          int      `json:"headcount"`
	Charter            *Charter `json:"charter,omitempty"`
	Level              int      `json:"level"`
	SortOrder          string   `json:"sort_order"`
	CreatedAt          string   `json:"created_at" format:"date-time"`
	UpdatedAt          string   `json:"updated_at" format:"date-time"`
	CreatedBy          string   `json:"created_by"`
	UpdatedBy          string   `json:"updated_by"`
}

// JobDescription is the free-form role description attached to a position.
type JobDescription struct {
	Summary          string   `json:"summary,omitempty"`
	Responsibilities []string `json:"responsibilities,omitempty"`
	Requirements     []string `json:"requirements,omitempty"`
	Qualifications   []string `json:"qualifications,omitempty"`
	Benefits         []string `json:"benefits,omitempty"`
}

type Position struct {
	ID                  string          `json:"id"`
	Company             string          `json:"company"`
	OrgChartID          string          `json:"org_chart_id"`
	DepartmentID        string          `json:"department_id"`
	Title               string          `json:"title"`
	Description         string          `json:"description,omitempty"`
	Code                string          `json:"code"`
	ReportsToPositionID *string         `json:"reports_to_position_id,omitempty"`
	SalaryMin           float64         `json:"salary_min"`
	SalaryMax           float64         `json:"salary_max"`
	SalaryCurrency      string          `json:"salary_currency,omitempty"`
	SalaryFrequency     string          `json:"salary_frequency,omitempty" enum:"hourly,daily,weekly,monthly,annual,per_job"`
	JobDescription      *JobDescription `json:"job_description,omitempty"`
	Level               int             `json:"level"`
	SortOrder           string          `json:"sort_order"`
	CreatedAt           string          `json:"created_at" format:"date-time"`
	UpdatedAt           string          `json:"updated_at" format:"date-time"`
	CreatedBy           string          `json:"created_by"`
	UpdatedBy           string          `json:"updated_by"`
}

// JobOffer captures the terms extended for a position.
type JobOffer struct {
	SalaryAmount    float64  `json:"salary_amount"`
	SalaryCurrency  string   `json:"salary_currency,omitempty"`
	SalaryFrequency string   `json:"salary_frequency,omitempty" enum:"hourly,daily,weekly,monthly,annual,per_job"`
	StartDate       *string  `json:"start_date,omitempty" format:"date-time"`
	Benefits        []string `json:"benefits,omitempty"`
	Conditions      []string `json:"conditions,omitempty"`
}

type Appointment struct {
	ID                  string    `json:"id"`
	Company             string    `json:"company"`
	OrgChartID          string    `json:"org_chart_id"`
	PositionID          string    `json:"position_id"`
	UserID              *string   `json:"user_id,omitempty"`
	UserDisplayName     string    `json:"user_display_name,omitempty"`
	IsVacant            bool      `json:"is_vacant"`
	JobOffer            *JobOffer `json:"job_offer,omitempty"`
	ContractSignedAt    *string   `json:"contract_signed_at,omitempty" format:"date-time"`
	StartedAt           *string   `json:"started_at,omitempty" format:"date-time"`
	EndedAt             *string   `json:"ended_at,omitempty" format:"date-time"`
	TerminationNoticeAt *string   `json:"termination_notice_at,omitempty" format:"date-time"`
	TerminationReason   string    `json:"termination_reason,omitempty"`
	Level               int       `json:"level"`
	SortOrder           string    `json:"sort_order"`
	CreatedAt           string    `json:"created_at" format:"date-time"`
	UpdatedAt           string    `json:"updated_at" format:"date-time"`
	CreatedBy           string    `json:"created_by"`
	UpdatedBy           string    `json:"updated_by"`
}

// TreeRow is one flattened, render-ready row of an assembled chart.
type TreeRow struct {
	ID          string `json:"id"`
	Kind        string `json:"kind" enum:"orgchart,department,position,appointment"`
	Title       string `json:"title"`
	Code        string `json:"code,omitempty"`
	ParentID    string `json:"parent_id,omitempty"`
	Level       int    `json:"level"`
	SortOrder   string `json:"sort_order"`
	HasChildren bool   `json:"has_children"`
}

type Event struct {
	ID         string         `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	Company    string         `json:"company"`
	OrgChartID string         `json:"org_chart_id,omitempty"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload,omitempty"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
