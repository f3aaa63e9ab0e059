package orglinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Orgline HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Chart represents the API org chart model (partial).
type Chart struct {
	ID      string `json:"id"`
	Company string `json:"company"`
	Title   string `json:"title"`
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Department represents a department.
type Department struct {
	ID                 string  `json:"id"`
	OrgChartID         string  `json:"org_chart_id"`
	ParentDepartmentID *string `json:"parent_department_id,omitempty"`
	Title              string  `json:"title"`
	Code               string  `json:"code"`
	Headcount          int     `json:"headcount"`
	Level              int     `json:"level"`
}

// Position represents a position.
type Position struct {
	ID           string  `json:"id"`
	OrgChartID   string  `json:"org_chart_id"`
	DepartmentID string  `json:"department_id"`
	Title        string  `json:"title"`
	Code         string  `json:"code"`
	SalaryMin    float64 `json:"salary_min"`
	SalaryMax    float64 `json:"salary_max"`
	Level        int     `json:"level"`
}

// Appointment represents an appointment.
type Appointment struct {
	ID              string  `json:"id"`
	OrgChartID      string  `json:"org_chart_id"`
	PositionID      string  `json:"position_id"`
	UserID          *string `json:"user_id,omitempty"`
	UserDisplayName string  `json:"user_display_name,omitempty"`
	IsVacant        bool    `json:"is_vacant"`
	Level           int     `json:"level"`
}

// DepartmentBundle is what creating a department returns: the department,
// its head position, and the head's vacant appointment.
type DepartmentBundle struct {
	Department      Department  `json:"department"`
	HeadPosition    Position    `json:"head_position"`
	HeadAppointment Appointment `json:"head_appointment"`
}

// PositionBundle is what creating a position returns.
type PositionBundle struct {
	Position    Position    `json:"position"`
	Appointment Appointment `json:"appointment"`
}

// TreeRow is one line of a flattened chart tree.
type TreeRow struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Code        string `json:"code,omitempty"`
	ParentID    string `json:"parent_id,omitempty"`
	Level       int    `json:"level"`
	HasChildren bool   `json:"has_children"`
}

// Event represents a log entry.
type Event struct {
	ID         string         `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	OrgChartID string         `json:"org_chart_id"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateChart creates a draft chart.
func (c *Client) CreateChart(ctx context.Context, title string) (Chart, error) {
	body := map[string]any{"title": title}
	var resp Chart
	err := c.do(ctx, http.MethodPost, "v0/charts", body, &resp)
	return resp, err
}

// ListCharts lists the company's charts.
func (c *Client) ListCharts(ctx context.Context) ([]Chart, error) {
	var resp []Chart
	err := c.do(ctx, http.MethodGet, "v0/charts", nil, &resp)
	return resp, err
}

// GetChart fetches a chart by id.
func (c *Client) GetChart(ctx context.Context, id string) (Chart, error) {
	var resp Chart
	err := c.do(ctx, http.MethodGet, "v0/charts/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// SubmitChart submits a draft chart for approval.
func (c *Client) SubmitChart(ctx context.Context, id string) (Chart, error) {
	var resp Chart
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v0/charts/%s/submit", url.PathEscape(id)), nil, &resp)
	return resp, err
}

// ApproveChart approves a pending chart.
func (c *Client) ApproveChart(ctx context.Context, id string) (Chart, error) {
	var resp Chart
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v0/charts/%s/approve", url.PathEscape(id)), nil, &resp)
	return resp, err
}

// RevokeChart revokes an approved chart.
func (c *Client) RevokeChart(ctx context.Context, id string) (Chart, error) {
	var resp Chart
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("v0/charts/%s/revoke", url.PathEscape(id)), nil, &resp)
	return resp, err
}

// CreateDepartment creates a department in a chart and returns the bundle
// with the auto-created head position and vacant appointment.
func (c *Client) CreateDepartment(ctx context.Context, chartID, title string, headcount int) (DepartmentBundle, error) {
	body := map[string]any{"title": title}
	if headcount > 0 {
		body["headcount"] = headcount
	}
	var resp DepartmentBundle
	endpoint := fmt.Sprintf("v0/charts/%s/departments", url.PathEscape(chartID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// CreatePosition creates a position in a department.
func (c *Client) CreatePosition(ctx context.Context, departmentID, title string, salaryMin, salaryMax float64) (PositionBundle, error) {
	body := map[string]any{
		"title":      title,
		"salary_min": salaryMin,
		"salary_max": salaryMax,
	}
	var resp PositionBundle
	endpoint := fmt.Sprintf("v0/departments/%s/positions", url.PathEscape(departmentID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// FillAppointment assigns a user to a vacant appointment.
func (c *Client) FillAppointment(ctx context.Context, id, userID, displayName string) (Appointment, error) {
	body := map[string]any{
		"user_id":           userID,
		"user_display_name": displayName,
	}
	var resp Appointment
	endpoint := fmt.Sprintf("v0/appointments/%s/fill", url.PathEscape(id))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// VacateAppointment clears an appointment's occupant.
func (c *Client) VacateAppointment(ctx context.Context, id, reason string) (Appointment, error) {
	body := map[string]any{}
	if reason != "" {
		body["termination_reason"] = reason
	}
	var resp Appointment
	endpoint := fmt.Sprintf("v0/appointments/%s/vacate", url.PathEscape(id))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// Tree returns the flattened hierarchy of a chart.
func (c *Client) Tree(ctx context.Context, chartID string) ([]TreeRow, error) {
	var resp []TreeRow
	endpoint := fmt.Sprintf("v0/charts/%s/tree", url.PathEscape(chartID))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Events returns a chart's audit events, optionally filtered by type.
func (c *Client) Events(ctx context.Context, chartID, evtType string) ([]Event, error) {
	endpoint := fmt.Sprintf("v0/charts/%s/events", url.PathEscape(chartID))
	if evtType != "" {
		endpoint += "?type=" + url.QueryEscape(evtType)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
