package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"orgline/internal/config"
	"orgline/internal/domain"
	"orgline/internal/events"
	"orgline/internal/perm"
	"orgline/internal/store"
)

// How many probes code/version derivation makes before giving up.
const derivationRetries = 3

// Engine applies all hierarchy mutations. Writers are serialized per chart
// (and per company for chart creation): the store only promises single-node
// atomicity, so cascading operations hold the chart lock for their whole
// duration. Different charts proceed concurrently.
type Engine struct {
	Store  store.Store
	Events events.Recorder
	Config *config.Config
	Now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(st store.Store, cfg *config.Config) *Engine {
	return &Engine{
		Store:  st,
		Events: events.Recorder{Store: st},
		Config: cfg,
		Now:    time.Now,
		locks:  map[string]*sync.Mutex{},
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) nowString() string {
	return e.now().UTC().Format(time.RFC3339)
}

// lock acquires the writer lock for a chart (or company) key and returns the
// release func.
func (e *Engine) lock(key string) func() {
	e.mu.Lock()
	l, ok := e.locks[key]
	if !ok {
		l = &sync.Mutex{}
		e.locks[key] = l
	}
	e.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// --- node marshaling ---

func (e *Engine) putNew(ctx context.Context, scope, kind, id string, v any, index map[string]string, actor, ts string) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}
	_, err = e.Store.Put(ctx, store.Node{
		ID:        id,
		Scope:     scope,
		Kind:      kind,
		Index:     index,
		Payload:   payload,
		CreatedAt: ts,
		UpdatedAt: ts,
		CreatedBy: actor,
		UpdatedBy: actor,
	})
	return err
}

func (e *Engine) putUpdate(ctx context.Context, n store.Node, v any, index map[string]string, actor, ts string) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", n.Kind, err)
	}
	n.Payload = payload
	if index != nil {
		n.Index = index
	}
	n.UpdatedAt = ts
	n.UpdatedBy = actor
	_, err = e.Store.Put(ctx, n)
	return err
}

func (e *Engine) getNode(ctx context.Context, id, kind string) (store.Node, error) {
	n, err := e.Store.Get(ctx, id)
	if err != nil {
		return store.Node{}, err
	}
	if n.Kind != kind {
		return store.Node{}, store.ErrNotFound
	}
	return n, nil
}

func (e *Engine) getChartNode(ctx context.Context, id string) (store.Node, domain.OrgChart, error) {
	n, err := e.getNode(ctx, id, domain.KindOrgChart)
	if err != nil {
		return store.Node{}, domain.OrgChart{}, err
	}
	var c domain.OrgChart
	if err := json.Unmarshal(n.Payload, &c); err != nil {
		return store.Node{}, domain.OrgChart{}, fmt.Errorf("unmarshal chart %s: %w", id, err)
	}
	return n, c, nil
}

func (e *Engine) getDepartmentNode(ctx context.Context, id string) (store.Node, domain.Department, error) {
	n, err := e.getNode(ctx, id, domain.KindDepartment)
	if err != nil {
		return store.Node{}, domain.Department{}, err
	}
	var d domain.Department
	if err := json.Unmarshal(n.Payload, &d); err != nil {
		return store.Node{}, domain.Department{}, fmt.Errorf("unmarshal department %s: %w", id, err)
	}
	return n, d, nil
}

func (e *Engine) getPositionNode(ctx context.Context, id string) (store.Node, domain.Position, error) {
	n, err := e.getNode(ctx, id, domain.KindPosition)
	if err != nil {
		return store.Node{}, domain.Position{}, err
	}
	var p domain.Position
	if err := json.Unmarshal(n.Payload, &p); err != nil {
		return store.Node{}, domain.Position{}, fmt.Errorf("unmarshal position %s: %w", id, err)
	}
	return n, p, nil
}

func (e *Engine) getAppointmentNode(ctx context.Context, id string) (store.Node, domain.Appointment, error) {
	n, err := e.getNode(ctx, id, domain.KindAppointment)
	if err != nil {
		return store.Node{}, domain.Appointment{}, err
	}
	var a domain.Appointment
	if err := json.Unmarshal(n.Payload, &a); err != nil {
		return store.Node{}, domain.Appointment{}, fmt.Errorf("unmarshal appointment %s: %w", id, err)
	}
	return n, a, nil
}

// --- public getters / listers ---

func (e *Engine) GetOrgChart(ctx context.Context, id string) (domain.OrgChart, error) {
	_, c, err := e.getChartNode(ctx, id)
	return c, err
}

func (e *Engine) GetDepartment(ctx context.Context, id string) (domain.Department, error) {
	_, d, err := e.getDepartmentNode(ctx, id)
	return d, err
}

func (e *Engine) GetPosition(ctx context.Context, id string) (domain.Position, error) {
	_, p, err := e.getPositionNode(ctx, id)
	return p, err
}

func (e *Engine) GetAppointment(ctx context.Context, id string) (domain.Appointment, error) {
	_, a, err := e.getAppointmentNode(ctx, id)
	return a, err
}

func (e *Engine) ListOrgCharts(ctx context.Context, company string) ([]domain.OrgChart, error) {
	nodes, err := e.Store.FindByKind(ctx, company, domain.KindOrgChart, nil)
	if err != nil {
		return nil, err
	}
	res := make([]domain.OrgChart, 0, len(nodes))
	for _, n := range nodes {
		var c domain.OrgChart
		if err := json.Unmarshal(n.Payload, &c); err != nil {
			return nil, fmt.Errorf("unmarshal chart %s: %w", n.ID, err)
		}
		res = append(res, c)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt != res[j].CreatedAt {
			return res[i].CreatedAt < res[j].CreatedAt
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}

func (e *Engine) listDepartments(ctx context.Context, company, chartID string) ([]domain.Department, error) {
	nodes, err := e.Store.FindByKind(ctx, company, domain.KindDepartment, store.Filter{"org_chart_id": chartID})
	if err != nil {
		return nil, err
	}
	res := make([]domain.Department, 0, len(nodes))
	for _, n := range nodes {
		var d domain.Department
		if err := json.Unmarshal(n.Payload, &d); err != nil {
			return nil, fmt.Errorf("unmarshal department %s: %w", n.ID, err)
		}
		res = append(res, d)
	}
	return res, nil
}

func (e *Engine) listPositions(ctx context.Context, company string, filter store.Filter) ([]domain.Position, error) {
	nodes, err := e.Store.FindByKind(ctx, company, domain.KindPosition, filter)
	if err != nil {
		return nil, err
	}
	res := make([]domain.Position, 0, len(nodes))
	for _, n := range nodes {
		var p domain.Position
		if err := json.Unmarshal(n.Payload, &p); err != nil {
			return nil, fmt.Errorf("unmarshal position %s: %w", n.ID, err)
		}
		res = append(res, p)
	}
	return res, nil
}

func (e *Engine) listAppointments(ctx context.Context, company string, filter store.Filter) ([]domain.Appointment, error) {
	nodes, err := e.Store.FindByKind(ctx, company, domain.KindAppointment, filter)
	if err != nil {
		return nil, err
	}
	res := make([]domain.Appointment, 0, len(nodes))
	for _, n := range nodes {
		var a domain.Appointment
		if err := json.Unmarshal(n.Payload, &a); err != nil {
			return nil, fmt.Errorf("unmarshal appointment %s: %w", n.ID, err)
		}
		res = append(res, a)
	}
	return res, nil
}

// --- index builders ---

func chartIndex(c domain.OrgChart) map[string]string {
	return map[string]string{"status": c.Status}
}

func departmentIndex(d domain.Department) map[string]string {
	idx := map[string]string{"org_chart_id": d.OrgChartID, "code": d.Code}
	if d.ParentDepartmentID != nil {
		idx["parent_department_id"] = *d.ParentDepartmentID
	}
	return idx
}

func positionIndex(p domain.Position) map[string]string {
	return map[string]string{"org_chart_id": p.OrgChartID, "department_id": p.DepartmentID, "code": p.Code}
}

func appointmentIndex(a domain.Appointment) map[string]string {
	return map[string]string{"org_chart_id": a.OrgChartID, "position_id": a.PositionID}
}

// --- chart creation ---

type ChartCreateOptions struct {
	Company     string
	Title       string
	Description string
	ActorID     string
}

// CreateOrgChart creates a new draft chart. The version is derived from the
// company's existing chart counts, so creation is serialized per company.
func (e *Engine) CreateOrgChart(ctx context.Context, opts ChartCreateOptions) (domain.OrgChart, error) {
	if opts.Company == "" {
		return domain.OrgChart{}, ValidationError{Field: "company", Reason: "required"}
	}
	if opts.Title == "" {
		return domain.OrgChart{}, ValidationError{Field: "title", Reason: "required"}
	}
	unlock := e.lock("company:" + opts.Company)
	defer unlock()

	version, err := e.deriveChartVersion(ctx, opts.Company, "")
	if err != nil {
		return domain.OrgChart{}, err
	}
	ts := e.nowString()
	c := domain.OrgChart{
		ID:          uuid.New().String(),
		Company:     opts.Company,
		Title:       opts.Title,
		Description: opts.Description,
		Status:      domain.StatusDraft,
		Version:     version,
		CreatedAt:   ts,
		UpdatedAt:   ts,
		CreatedBy:   opts.ActorID,
		UpdatedBy:   opts.ActorID,
	}
	if err := e.putNew(ctx, c.Company, domain.KindOrgChart, c.ID, c, chartIndex(c), opts.ActorID, ts); err != nil {
		return domain.OrgChart{}, err
	}
	if err := e.Events.Append(ctx, "chart.created", c.Company, c.ID, domain.KindOrgChart, c.ID, opts.ActorID, events.Payload{"version": c.Version}); err != nil {
		_ = e.Store.Remove(ctx, c.ID)
		return domain.OrgChart{}, err
	}
	return c, nil
}

// deriveChartVersion computes the next chart version for a company,
// excluding the chart with excludeID from the counts (used on approval).
func (e *Engine) deriveChartVersion(ctx context.Context, company, excludeID string) (string, error) {
	for attempt := 0; attempt < derivationRetries; attempt++ {
		charts, err := e.ListOrgCharts(ctx, company)
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				continue
			}
			return "", err
		}
		enforced, inFlight := 0, 0
		for _, c := range charts {
			if c.ID == excludeID {
				continue
			}
			switch c.Status {
			case domain.StatusApproved, domain.StatusRevoked:
				enforced++
			case domain.StatusDraft, domain.StatusPendingApproval:
				inFlight++
			}
		}
		return NextChartVersion(enforced, inFlight), nil
	}
	return "", DerivationError{What: "chart version", Attempts: derivationRetries}
}

// --- department creation ---

type DepartmentCreateOptions struct {
	Company            string
	OrgChartID         string
	Title              string
	Description        string
	Code               string
	Headcount          int
	ParentDepartmentID string
	Charter            *domain.Charter
	ActorID            string
}

// DepartmentBundle is everything CreateDepartment produces: the department
// itself plus its auto-created head position and that position's vacant
// appointment.
type DepartmentBundle struct {
	Department      domain.Department
	HeadPosition    domain.Position
	HeadAppointment domain.Appointment
}

func (e *Engine) CreateDepartment(ctx context.Context, opts DepartmentCreateOptions) (DepartmentBundle, error) {
	if opts.Title == "" {
		return DepartmentBundle{}, ValidationError{Field: "title", Reason: "required"}
	}
	if opts.Headcount < 0 {
		return DepartmentBundle{}, ValidationError{Field: "headcount", Reason: "must not be negative"}
	}
	unlock := e.lock(opts.OrgChartID)
	defer unlock()

	_, chart, err := e.getChartNode(ctx, opts.OrgChartID)
	if err != nil {
		return DepartmentBundle{}, err
	}
	if dec := perm.For(domain.KindDepartment, chart.Status); !dec.CanCreate {
		return DepartmentBundle{}, PermissionError{Kind: domain.KindDepartment, Operation: "create", Status: chart.Status}
	}

	level := 0
	var parentID *string
	if opts.ParentDepartmentID != "" {
		_, parent, err := e.getDepartmentNode(ctx, opts.ParentDepartmentID)
		if err != nil {
			return DepartmentBundle{}, err
		}
		if parent.OrgChartID != chart.ID {
			return DepartmentBundle{}, ValidationError{Field: "parent_department_id", Reason: "parent belongs to a different chart"}
		}
		level = parent.Level + 1
		parentID = &opts.ParentDepartmentID
	}

	code := opts.Code
	if code == "" {
		code, err = e.deriveDepartmentCode(ctx, chart)
		if err != nil {
			return DepartmentBundle{}, err
		}
	} else {
		taken, err := e.departmentCodeTaken(ctx, chart, code)
		if err != nil {
			return DepartmentBundle{}, err
		}
		if taken {
			return DepartmentBundle{}, ValidationError{Field: "code", Reason: fmt.Sprintf("code %s already used in chart", code)}
		}
	}

	headcount := opts.Headcount
	if headcount == 0 && e.Config != nil {
		headcount = e.Config.Defaults.Headcount
	}
	ts := e.nowString()
	d := domain.Department{
		ID:                 uuid.New().String(),
		Company:            chart.Company,
		OrgChartID:         chart.ID,
		ParentDepartmentID: parentID,
		Title:              opts.Title,
		Description:        opts.Description,
		Code:               code,
		Headcount:          headcount,
		Charter:            opts.Charter,
		Level:              level,
		SortOrder:          ts,
		CreatedAt:          ts,
		UpdatedAt:          ts,
		CreatedBy:          opts.ActorID,
		UpdatedBy:          opts.ActorID,
	}
	if err := e.putNew(ctx, d.Company, domain.KindDepartment, d.ID, d, departmentIndex(d), opts.ActorID, ts); err != nil {
		return DepartmentBundle{}, err
	}

	headTitle := "Head of " + opts.Title
	if e.Config != nil {
		headTitle = e.Config.HeadTitle(opts.Title)
	}
	pos, app, err := e.createPositionLocked(ctx, chart, d, positionSeed{
		Title:   headTitle,
		ActorID: opts.ActorID,
	})
	if err != nil {
		// Undo the department write so no half-created subtree is visible.
		_ = e.Store.Remove(ctx, d.ID)
		return DepartmentBundle{}, err
	}
	if err := e.Events.Append(ctx, "department.created", d.Company, chart.ID, domain.KindDepartment, d.ID, opts.ActorID, events.Payload{"title": d.Title, "code": d.Code}); err != nil {
		_ = e.Store.Remove(ctx, app.ID)
		_ = e.Store.Remove(ctx, pos.ID)
		_ = e.Store.Remove(ctx, d.ID)
		return DepartmentBundle{}, err
	}
	return DepartmentBundle{Department: d, HeadPosition: pos, HeadAppointment: app}, nil
}

func (e *Engine) deriveDepartmentCode(ctx context.Context, chart domain.OrgChart) (string, error) {
	prefix := "DEP-"
	if e.Config != nil && e.Config.Codes.DepartmentPrefix != "" {
		prefix = e.Config.Codes.DepartmentPrefix
	}
	existing, err := e.listDepartments(ctx, chart.Company, chart.ID)
	if err != nil {
		return "", err
	}
	for attempt := 0; attempt < derivationRetries; attempt++ {
		code := fmt.Sprintf("%s%03d", prefix, len(existing)+1+attempt)
		taken, err := e.departmentCodeTaken(ctx, chart, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", DerivationError{What: "department code", Attempts: derivationRetries}
}

func (e *Engine) departmentCodeTaken(ctx context.Context, chart domain.OrgChart, code string) (bool, error) {
	nodes, err := e.Store.FindByKind(ctx, chart.Company, domain.KindDepartment, store.Filter{"org_chart_id": chart.ID, "code": code})
	if err != nil {
		return false, err
	}
	return len(nodes) > 0, nil
}

// --- position creation ---

type PositionCreateOptions struct {
	Company             string
	OrgChartID          string
	DepartmentID        string
	Title               string
	Description         string
	ReportsToPositionID string
	SalaryMin           float64
	SalaryMax           float64
	SalaryCurrency      string
	SalaryFrequency     string
	JobDescription      *domain.JobDescription
	ActorID             string
}

// PositionBundle is a created position plus its auto-created vacant
// appointment.
type PositionBundle struct {
	Position    domain.Position
	Appointment domain.Appointment
}

func (e *Engine) CreatePosition(ctx context.Context, opts PositionCreateOptions) (PositionBundle, error) {
	if opts.Title == "" {
		return PositionBundle{}, ValidationError{Field: "title", Reason: "required"}
	}
	if err := validateSalaryBand(opts.SalaryMin, opts.SalaryMax); err != nil {
		return PositionBundle{}, err
	}
	if opts.SalaryFrequency != "" && !validFrequency(opts.SalaryFrequency) {
		return PositionBundle{}, ValidationError{Field: "salary_frequency", Reason: "unknown frequency " + opts.SalaryFrequency}
	}
	unlock := e.lock(opts.OrgChartID)
	defer unlock()

	_, chart, err := e.getChartNode(ctx, opts.OrgChartID)
	if err != nil {
		return PositionBundle{}, err
	}
	if dec := perm.For(domain.KindPosition, chart.Status); !dec.CanCreate {
		return PositionBundle{}, PermissionError{Kind: domain.KindPosition, Operation: "create", Status: chart.Status}
	}
	_, dept, err := e.getDepartmentNode(ctx, opts.DepartmentID)
	if err != nil {
		return PositionBundle{}, err
	}
	if dept.OrgChartID != chart.ID {
		return PositionBundle{}, ValidationError{Field: "department_id", Reason: "department belongs to a different chart"}
	}
	var reportsTo *string
	if opts.ReportsToPositionID != "" {
		if err := e.checkReportingChain(ctx, chart, opts.ReportsToPositionID, ""); err != nil {
			return PositionBundle{}, err
		}
		reportsTo = &opts.ReportsToPositionID
	}
	pos, app, err := e.createPositionLocked(ctx, chart, dept, positionSeed{
		Title:           opts.Title,
		Description:     opts.Description,
		ReportsTo:       reportsTo,
		SalaryMin:       opts.SalaryMin,
		SalaryMax:       opts.SalaryMax,
		SalaryCurrency:  opts.SalaryCurrency,
		SalaryFrequency: opts.SalaryFrequency,
		JobDescription:  opts.JobDescription,
		ActorID:         opts.ActorID,
	})
	if err != nil {
		return PositionBundle{}, err
	}
	return PositionBundle{Position: pos, Appointment: app}, nil
}

type positionSeed struct {
	Title           string
	Description     string
	ReportsTo       *string
	SalaryMin       float64
	SalaryMax       float64
	SalaryCurrency  string
	SalaryFrequency string
	JobDescription  *domain.JobDescription
	ActorID         string
}

// createPositionLocked creates a position and its vacant appointment.
// The caller holds the chart lock and has already checked permissions.
func (e *Engine) createPositionLocked(ctx context.Context, chart domain.OrgChart, dept domain.Department, seed positionSeed) (domain.Position, domain.Appointment, error) {
	code, err := e.derivePositionCode(ctx, chart, dept)
	if err != nil {
		return domain.Position{}, domain.Appointment{}, err
	}
	currency := seed.SalaryCurrency
	frequency := seed.SalaryFrequency
	if e.Config != nil {
		if currency == "" {
			currency = e.Config.Defaults.SalaryCurrency
		}
		if frequency == "" {
			frequency = e.Config.Defaults.SalaryFrequency
		}
	}
	ts := e.nowString()
	p := domain.Position{
		ID:                  uuid.New().String(),
		Company:             chart.Company,
		OrgChartID:          chart.ID,
		DepartmentID:        dept.ID,
		Title:               seed.Title,
		Description:         seed.Description,
		Code:                code,
		ReportsToPositionID: seed.ReportsTo,
		SalaryMin:           seed.SalaryMin,
		SalaryMax:           seed.SalaryMax,
		SalaryCurrency:      currency,
		SalaryFrequency:     frequency,
		JobDescription:      seed.JobDescription,
		Level:               dept.Level + 1,
		SortOrder:           ts,
		CreatedAt:           ts,
		UpdatedAt:           ts,
		CreatedBy:           seed.ActorID,
		UpdatedBy:           seed.ActorID,
	}
	if err := e.putNew(ctx, p.Company, domain.KindPosition, p.ID, p, positionIndex(p), seed.ActorID, ts); err != nil {
		return domain.Position{}, domain.Appointment{}, err
	}
	a := domain.Appointment{
		ID:         uuid.New().String(),
		Company:    chart.Company,
		OrgChartID: chart.ID,
		PositionID: p.ID,
		IsVacant:   true,
		Level:      p.Level + 1,
		SortOrder:  ts,
		CreatedAt:  ts,
		UpdatedAt:  ts,
		CreatedBy:  seed.ActorID,
		UpdatedBy:  seed.ActorID,
	}
	if err := e.putNew(ctx, a.Company, domain.KindAppointment, a.ID, a, appointmentIndex(a), seed.ActorID, ts); err != nil {
		_ = e.Store.Remove(ctx, p.ID)
		return domain.Position{}, domain.Appointment{}, err
	}
	if err := e.Events.Append(ctx, "position.created", p.Company, chart.ID, domain.KindPosition, p.ID, seed.ActorID, events.Payload{"title": p.Title, "code": p.Code}); err != nil {
		_ = e.Store.Remove(ctx, a.ID)
		_ = e.Store.Remove(ctx, p.ID)
		return domain.Position{}, domain.Appointment{}, err
	}
	if err := e.Events.Append(ctx, "appointment.created", a.Company, chart.ID, domain.KindAppointment, a.ID, seed.ActorID, events.Payload{"position_id": p.ID, "is_vacant": true}); err != nil {
		_ = e.Store.Remove(ctx, a.ID)
		_ = e.Store.Remove(ctx, p.ID)
		return domain.Position{}, domain.Appointment{}, err
	}
	return p, a, nil
}

// derivePositionCode derives the next code in the department's sequence.
// Deleted positions leave gaps, so the probe walks forward past codes that
// are still taken instead of looping on the same count.
func (e *Engine) derivePositionCode(ctx context.Context, chart domain.OrgChart, dept domain.Department) (string, error) {
	existing, err := e.listPositions(ctx, chart.Company, store.Filter{"department_id": dept.ID})
	if err != nil {
		return "", err
	}
	for attempt := 0; attempt < derivationRetries; attempt++ {
		code := NextPositionCode(dept.Code, len(existing)+attempt)
		nodes, err := e.Store.FindByKind(ctx, chart.Company, domain.KindPosition, store.Filter{"org_chart_id": chart.ID, "code": code})
		if err != nil {
			return "", err
		}
		if len(nodes) == 0 {
			return code, nil
		}
	}
	return "", DerivationError{What: "position code", Attempts: derivationRetries}
}

// checkReportingChain validates a reports-to target: it must be a position in
// the same chart, and linking fromID to it must not close a cycle. The
// reporting graph is independent of the containment tree, so this walks the
// reports-to adjacency only.
func (e *Engine) checkReportingChain(ctx context.Context, chart domain.OrgChart, targetID, fromID string) error {
	seen := map[string]bool{}
	cur := targetID
	for cur != "" {
		if cur == fromID {
			return ValidationError{Field: "reports_to_position_id", Reason: "reporting chain cycle"}
		}
		if seen[cur] {
			return ValidationError{Field: "reports_to_position_id", Reason: "reporting chain cycle"}
		}
		seen[cur] = true
		_, p, err := e.getPositionNode(ctx, cur)
		if err != nil {
			return err
		}
		if p.OrgChartID != chart.ID {
			return ValidationError{Field: "reports_to_position_id", Reason: "position belongs to a different chart"}
		}
		if p.ReportsToPositionID == nil {
			return nil
		}
		cur = *p.ReportsToPositionID
	}
	return nil
}

// --- appointment creation ---

type AppointmentCreateOptions struct {
	Company         string
	PositionID      string
	UserID          string
	UserDisplayName string
	IsVacant        bool
	JobOffer        *domain.JobOffer
	ActorID         string
}

// CreateAppointment creates a standalone appointment for a position, used to
// re-appoint after a position's prior appointment was removed.
func (e *Engine) CreateAppointment(ctx context.Context, opts AppointmentCreateOptions) (domain.Appointment, error) {
	if !opts.IsVacant && opts.UserID == "" {
		return domain.Appointment{}, ValidationError{Field: "user_id", Reason: "required unless vacant"}
	}
	if opts.IsVacant && opts.UserID != "" {
		return domain.Appointment{}, ValidationError{Field: "user_id", Reason: "must be empty for a vacancy"}
	}
	_, pos0, err := e.getPositionNode(ctx, opts.PositionID)
	if err != nil {
		return domain.Appointment{}, err
	}
	unlock := e.lock(pos0.OrgChartID)
	defer unlock()

	// Re-read under the lock: the position may have been deleted while we
	// waited for it.
	_, pos, err := e.getPositionNode(ctx, opts.PositionID)
	if err != nil {
		return domain.Appointment{}, err
	}
	_, chart, err := e.getChartNode(ctx, pos.OrgChartID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if dec := perm.For(domain.KindAppointment, chart.Status); !dec.CanCreate {
		return domain.Appointment{}, PermissionError{Kind: domain.KindAppointment, Operation: "create", Status: chart.Status}
	}
	if !opts.IsVacant {
		if err := e.checkHeadcount(ctx, chart, pos.DepartmentID, ""); err != nil {
			return domain.Appointment{}, err
		}
	}
	ts := e.nowString()
	a := domain.Appointment{
		ID:              uuid.New().String(),
		Company:         chart.Company,
		OrgChartID:      chart.ID,
		PositionID:      pos.ID,
		IsVacant:        opts.IsVacant,
		UserDisplayName: opts.UserDisplayName,
		JobOffer:        opts.JobOffer,
		Level:           pos.Level + 1,
		SortOrder:       ts,
		CreatedAt:       ts,
		UpdatedAt:       ts,
		CreatedBy:       opts.ActorID,
		UpdatedBy:       opts.ActorID,
	}
	if opts.UserID != "" {
		a.UserID = &opts.UserID
	}
	if err := e.putNew(ctx, a.Company, domain.KindAppointment, a.ID, a, appointmentIndex(a), opts.ActorID, ts); err != nil {
		return domain.Appointment{}, err
	}
	if err := e.Events.Append(ctx, "appointment.created", a.Company, chart.ID, domain.KindAppointment, a.ID, opts.ActorID, events.Payload{"position_id": pos.ID, "is_vacant": a.IsVacant}); err != nil {
		_ = e.Store.Remove(ctx, a.ID)
		return domain.Appointment{}, err
	}
	return a, nil
}

// checkHeadcount rejects filling beyond the department's permitted filled
// appointments. A zero headcount means unlimited. excludeID skips the
// appointment being updated.
func (e *Engine) checkHeadcount(ctx context.Context, chart domain.OrgChart, departmentID, excludeID string) error {
	_, dept, err := e.getDepartmentNode(ctx, departmentID)
	if err != nil {
		return err
	}
	if dept.Headcount <= 0 {
		return nil
	}
	positions, err := e.listPositions(ctx, chart.Company, store.Filter{"department_id": dept.ID})
	if err != nil {
		return err
	}
	posIDs := map[string]bool{}
	for _, p := range positions {
		posIDs[p.ID] = true
	}
	apps, err := e.listAppointments(ctx, chart.Company, store.Filter{"org_chart_id": chart.ID})
	if err != nil {
		return err
	}
	filled := 0
	for _, a := range apps {
		if a.ID == excludeID || a.IsVacant || !posIDs[a.PositionID] {
			continue
		}
		filled++
	}
	if filled >= dept.Headcount {
		return ValidationError{Field: "headcount", Reason: fmt.Sprintf("department %s headcount %d exceeded", dept.Code, dept.Headcount)}
	}
	return nil
}

func validateSalaryBand(min, max float64) error {
	if min < 0 || max < 0 {
		return ValidationError{Field: "salary_min", Reason: "salary must not be negative"}
	}
	if max < min {
		return ValidationError{Field: "salary_max", Reason: "salary_max below salary_min"}
	}
	return nil
}

func validFrequency(f string) bool {
	switch f {
	case domain.FrequencyHourly, domain.FrequencyDaily, domain.FrequencyWeekly,
		domain.FrequencyMonthly, domain.FrequencyAnnual, domain.FrequencyPerJob:
		return true
	}
	return false
}
