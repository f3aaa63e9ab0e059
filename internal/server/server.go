package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"orgline/internal/auth"
	"orgline/internal/engine"
	"orgline/internal/store"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   *engine.Engine
	Keys     auth.Keys
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"permission_denied"`
	Message string         `json:"message" example:"department cannot be deleted while the chart is approved"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the required error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Orgline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope above.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Keys))
	hcfg := huma.DefaultConfig("Orgline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerCharts(group, cfg.Engine)
	registerLifecycle(group, cfg.Engine)
	registerDepartments(group, cfg.Engine)
	registerPositions(group, cfg.Engine)
	registerAppointments(group, cfg.Engine)
	registerTree(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerAPIKeys(group, cfg.Keys)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// handleError maps engine and store errors onto the HTTP envelope.
func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var pe engine.PermissionError
	if errors.As(err, &pe) {
		details := map[string]any{"kind": pe.Kind, "operation": pe.Operation, "status": pe.Status}
		if pe.Field != "" {
			details["field"] = pe.Field
		}
		return newAPIError(http.StatusForbidden, "permission_denied", err.Error(), details)
	}
	var ve engine.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusUnprocessableEntity, "validation_failed", err.Error(), map[string]any{"field": ve.Field, "reason": ve.Reason})
	}
	var de engine.DerivationError
	if errors.As(err, &de) {
		return newAPIError(http.StatusConflict, "conflict_derivation", err.Error(), map[string]any{"what": de.What, "attempts": de.Attempts})
	}
	var ce engine.CascadeError
	if errors.As(err, &ce) {
		return newAPIError(http.StatusInternalServerError, "cascade_failure", err.Error(), map[string]any{"root_id": ce.RootID, "remaining": ce.Remaining})
	}
	if errors.Is(err, store.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	if errors.Is(err, store.ErrConflict) {
		return newAPIError(http.StatusConflict, "conflict", err.Error(), nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "permission_denied"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func company(e *engine.Engine) string {
	if e.Config != nil {
		return e.Config.Company.ID
	}
	return ""
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	if !strings.HasPrefix(healthPath, "/") {
		healthPath = "/" + healthPath
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Orgline API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerCharts(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-chart",
		Method:        http.MethodPost,
		Path:          "/charts",
		Summary:       "Create org chart",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateChartRequest `json:"body"`
	}) (*struct {
		Body ChartResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if input.Body.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		c, err := e.CreateOrgChart(ctx, engine.ChartCreateOptions{
			Company:     company(e),
			Title:       input.Body.Title,
			Description: stringOrEmpty(input.Body.Description),
			ActorID:     actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ChartResponse `json:"body"`
		}{Body: chartResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-charts",
		Method:      http.MethodGet,
		Path:        "/charts",
		Summary:     "List org charts",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []ChartResponse `json:"body"`
	}, error) {
		items, err := e.ListOrgCharts(ctx, company(e))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ChartResponse `json:"body"`
		}{Body: mapCharts(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-chart",
		Method:      http.MethodGet,
		Path:        "/charts/{chart_id}",
		Summary:     "Get org chart",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ChartID string `path:"chart_id"`
	}) (*struct {
		Body ChartResponse `json:"body"`
	}, error) {
		c, err := e.GetOrgChart(ctx, input.ChartID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ChartResponse `json:"body"`
		}{Body: chartResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-chart",
		Method:      http.MethodPatch,
		Path:        "/charts/{chart_id}",
		Summary:     "Update org chart",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		ChartID string             `path:"chart_id"`
		Body    UpdateChartRequest `json:"body"`
	}) (*struct {
		Body ChartResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.UpdateOrgChart(ctx, input.ChartID, engine.ChartUpdateOptions{
			Title:       input.Body.Title,
			Description: input.Body.Description,
			ActorID:     actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ChartResponse `json:"body"`
		}{Body: chartResponse(c)}, nil
	})
}

func registerLifecycle(api huma.API, e *engine.Engine) {
	type chartPath struct {
		ChartID string `path:"chart_id"`
	}
	register := func(opID, suffix, summary string, apply func(ctx context.Context, id, actorID string) (ChartResponse, error)) {
		huma.Register(api, huma.Operation{
			OperationID: opID,
			Method:      http.MethodPost,
			Path:        "/charts/{chart_id}/" + suffix,
			Summary:     summary,
			Errors: []int{
				http.StatusForbidden,
				http.StatusNotFound,
				http.StatusConflict,
				http.StatusUnprocessableEntity,
			},
		}, func(ctx context.Context, input *chartPath) (*struct {
			Body ChartResponse `json:"body"`
		}, error) {
			actorID, authErr := actorIDFromContext(ctx)
			if authErr != nil {
				return nil, authErr
			}
			resp, err := apply(ctx, input.ChartID, actorID)
			if err != nil {
				return nil, err
			}
			return &struct {
				Body ChartResponse `json:"body"`
			}{Body: resp}, nil
		})
	}

	register("submit-chart", "submit", "Submit chart for approval", func(ctx context.Context, id, actorID string) (ChartResponse, error) {
		c, err := e.SubmitOrgChart(ctx, id, actorID)
		if err != nil {
			return ChartResponse{}, handleError(err)
		}
		return chartResponse(c), nil
	})
	register("approve-chart", "approve", "Approve chart", func(ctx context.Context, id, actorID string) (ChartResponse, error) {
		c, err := e.ApproveOrgChart(ctx, id, actorID)
		if err != nil {
			return ChartResponse{}, handleError(err)
		}
		return chartResponse(c), nil
	})
	register("return-chart", "return", "Return chart to draft", func(ctx context.Context, id, actorID string) (ChartResponse, error) {
		c, err := e.ReturnOrgChartToDraft(ctx, id, actorID)
		if err != nil {
			return ChartResponse{}, handleError(err)
		}
		return chartResponse(c), nil
	})
	register("revoke-chart", "revoke", "Revoke chart", func(ctx context.Context, id, actorID string) (ChartResponse, error) {
		c, err := e.RevokeOrgChart(ctx, id, actorID)
		if err != nil {
			return ChartResponse{}, handleError(err)
		}
		return chartResponse(c), nil
	})
}

func registerDepartments(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-department",
		Method:        http.MethodPost,
		Path:          "/charts/{chart_id}/departments",
		Summary:       "Create department",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ChartID string                  `path:"chart_id"`
		Body    CreateDepartmentRequest `json:"body"`
	}) (*struct {
		Body DepartmentBundleResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if input.Body.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		opts := engine.DepartmentCreateOptions{
			Company:     company(e),
			OrgChartID:  input.ChartID,
			Title:       input.Body.Title,
			Description: stringOrEmpty(input.Body.Description),
			Code:        stringOrEmpty(input.Body.Code),
			Charter:     charterFromRequest(input.Body.Charter),
			ActorID:     actorID,
		}
		if input.Body.Headcount != nil {
			opts.Headcount = *input.Body.Headcount
		}
		if input.Body.ParentDepartmentID != nil {
			opts.ParentDepartmentID = *input.Body.ParentDepartmentID
		}
		b, err := e.CreateDepartment(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DepartmentBundleResponse `json:"body"`
		}{Body: departmentBundleResponse(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-department",
		Method:      http.MethodGet,
		Path:        "/departments/{id}",
		Summary:     "Get department",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body DepartmentResponse `json:"body"`
	}, error) {
		d, err := e.GetDepartment(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DepartmentResponse `json:"body"`
		}{Body: departmentResponse(d)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-department",
		Method:      http.MethodPatch,
		Path:        "/departments/{id}",
		Summary:     "Update department",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		ID   string                  `path:"id"`
		Body UpdateDepartmentRequest `json:"body"`
	}) (*struct {
		Body DepartmentResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		d, err := e.UpdateDepartment(ctx, input.ID, engine.DepartmentUpdateOptions{
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Code:        input.Body.Code,
			Headcount:   input.Body.Headcount,
			Charter:     charterFromRequest(input.Body.Charter),
			ActorID:     actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DepartmentResponse `json:"body"`
		}{Body: departmentResponse(d)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-department",
		Method:      http.MethodDelete,
		Path:        "/departments/{id}",
		Summary:     "Delete department with its subtree",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteDepartment(ctx, input.ID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerPositions(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-position",
		Method:        http.MethodPost,
		Path:          "/departments/{department_id}/positions",
		Summary:       "Create position",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		DepartmentID string                `path:"department_id"`
		Body         CreatePositionRequest `json:"body"`
	}) (*struct {
		Body PositionBundleResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if input.Body.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		dept, err := e.GetDepartment(ctx, input.DepartmentID)
		if err != nil {
			return nil, handleError(err)
		}
		opts := engine.PositionCreateOptions{
			Company:      company(e),
			OrgChartID:   dept.OrgChartID,
			DepartmentID: dept.ID,
			Title:        input.Body.Title,
			Description:  stringOrEmpty(input.Body.Description),
			ActorID:      actorID,
		}
		if input.Body.ReportsToPositionID != nil {
			opts.ReportsToPositionID = *input.Body.ReportsToPositionID
		}
		if input.Body.SalaryMin != nil {
			opts.SalaryMin = *input.Body.SalaryMin
		}
		if input.Body.SalaryMax != nil {
			opts.SalaryMax = *input.Body.SalaryMax
		}
		if input.Body.SalaryCurrency != nil {
			opts.SalaryCurrency = *input.Body.SalaryCurrency
		}
		if input.Body.SalaryFrequency != nil {
			opts.SalaryFrequency = *input.Body.SalaryFrequency
		}
		opts.JobDescription = jobDescriptionFromRequest(input.Body.JobDescription)
		b, err := e.CreatePosition(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PositionBundleResponse `json:"body"`
		}{Body: positionBundleResponse(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-position",
		Method:      http.MethodGet,
		Path:        "/positions/{id}",
		Summary:     "Get position",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body PositionResponse `json:"body"`
	}, error) {
		p, err := e.GetPosition(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PositionResponse `json:"body"`
		}{Body: positionResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-position",
		Method:      http.MethodPatch,
		Path:        "/positions/{id}",
		Summary:     "Update position",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		ID   string                `path:"id"`
		Body UpdatePositionRequest `json:"body"`
	}) (*struct {
		Body PositionResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.UpdatePosition(ctx, input.ID, engine.PositionUpdateOptions{
			Title:               input.Body.Title,
			Description:         input.Body.Description,
			ReportsToPositionID: input.Body.ReportsToPositionID,
			SalaryMin:           input.Body.SalaryMin,
			SalaryMax:           input.Body.SalaryMax,
			SalaryCurrency:      input.Body.SalaryCurrency,
			SalaryFrequency:     input.Body.SalaryFrequency,
			JobDescription:      jobDescriptionFromRequest(input.Body.JobDescription),
			ActorID:             actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PositionResponse `json:"body"`
		}{Body: positionResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-position",
		Method:      http.MethodDelete,
		Path:        "/positions/{id}",
		Summary:     "Delete position with its appointments",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeletePosition(ctx, input.ID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerAppointments(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-appointment",
		Method:        http.MethodPost,
		Path:          "/positions/{position_id}/appointments",
		Summary:       "Create appointment",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		PositionID string                   `path:"position_id"`
		Body       CreateAppointmentRequest `json:"body"`
	}) (*struct {
		Body AppointmentResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.AppointmentCreateOptions{
			Company:         company(e),
			PositionID:      input.PositionID,
			IsVacant:        input.Body.IsVacant,
			UserDisplayName: stringOrEmpty(input.Body.UserDisplayName),
			JobOffer:        jobOfferFromRequest(input.Body.JobOffer),
			ActorID:         actorID,
		}
		if input.Body.UserID != nil {
			opts.UserID = *input.Body.UserID
		}
		a, err := e.CreateAppointment(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AppointmentResponse `json:"body"`
		}{Body: appointmentResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-appointment",
		Method:      http.MethodGet,
		Path:        "/appointments/{id}",
		Summary:     "Get appointment",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body AppointmentResponse `json:"body"`
	}, error) {
		a, err := e.GetAppointment(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AppointmentResponse `json:"body"`
		}{Body: appointmentResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-appointment",
		Method:      http.MethodPatch,
		Path:        "/appointments/{id}",
		Summary:     "Update appointment",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		ID   string                   `path:"id"`
		Body UpdateAppointmentRequest `json:"body"`
	}) (*struct {
		Body AppointmentResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.UpdateAppointment(ctx, input.ID, engine.AppointmentUpdateOptions{
			UserDisplayName:     input.Body.UserDisplayName,
			JobOffer:            jobOfferFromRequest(input.Body.JobOffer),
			ContractSignedAt:    input.Body.ContractSignedAt,
			StartedAt:           input.Body.StartedAt,
			EndedAt:             input.Body.EndedAt,
			TerminationNoticeAt: input.Body.TerminationNoticeAt,
			TerminationReason:   input.Body.TerminationReason,
			ActorID:             actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AppointmentResponse `json:"body"`
		}{Body: appointmentResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "fill-appointment",
		Method:      http.MethodPost,
		Path:        "/appointments/{id}/fill",
		Summary:     "Fill a vacant appointment",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		ID   string                 `path:"id"`
		Body FillAppointmentRequest `json:"body"`
	}) (*struct {
		Body AppointmentResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if input.Body.UserID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "user_id is required", nil)
		}
		a, err := e.FillAppointment(ctx, input.ID, engine.FillOptions{
			UserID:          input.Body.UserID,
			UserDisplayName: stringOrEmpty(input.Body.UserDisplayName),
			JobOffer:        jobOfferFromRequest(input.Body.JobOffer),
			ActorID:         actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AppointmentResponse `json:"body"`
		}{Body: appointmentResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "vacate-appointment",
		Method:      http.MethodPost,
		Path:        "/appointments/{id}/vacate",
		Summary:     "Vacate an appointment",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		ID   string                   `path:"id"`
		Body VacateAppointmentRequest `json:"body"`
	}) (*struct {
		Body AppointmentResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.VacateAppointment(ctx, input.ID, engine.VacateOptions{
			TerminationReason: stringOrEmpty(input.Body.TerminationReason),
			ActorID:           actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AppointmentResponse `json:"body"`
		}{Body: appointmentResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-appointment",
		Method:      http.MethodDelete,
		Path:        "/appointments/{id}",
		Summary:     "Delete appointment",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteAppointment(ctx, input.ID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerTree(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "chart-tree",
		Method:      http.MethodGet,
		Path:        "/charts/{chart_id}/tree",
		Summary:     "Chart tree",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ChartID string `path:"chart_id"`
	}) (*struct {
		Body []TreeRowResponse `json:"body"`
	}, error) {
		rows, err := e.AssembleTree(ctx, company(e), input.ChartID)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]TreeRowResponse, 0, len(rows))
		for _, r := range rows {
			out = append(out, treeRowResponse(r))
		}
		return &struct {
			Body []TreeRowResponse `json:"body"`
		}{Body: out}, nil
	})
}

func registerEvents(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-chart-events",
		Method:      http.MethodGet,
		Path:        "/charts/{chart_id}/events",
		Summary:     "List chart audit events",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ChartID string `path:"chart_id"`
		Type    string `query:"type"`
	}) (*struct {
		Body []EventResponse `json:"body"`
	}, error) {
		if _, err := e.GetOrgChart(ctx, input.ChartID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Events.List(ctx, company(e), input.ChartID, input.Type)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]EventResponse, 0, len(items))
		for _, ev := range items {
			out = append(out, eventResponse(ev))
		}
		return &struct {
			Body []EventResponse `json:"body"`
		}{Body: out}, nil
	})
}

func registerAPIKeys(api huma.API, keys auth.Keys) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-apikey",
		Method:        http.MethodPost,
		Path:          "/apikeys",
		Summary:       "Issue API key",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateAPIKeyRequest `json:"body"`
	}) (*struct {
		Body APIKeyResponse `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		if input.Body.ActorID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "actor_id is required", nil)
		}
		key, secret, err := keys.Issue(ctx, input.Body.ActorID, stringOrEmpty(input.Body.Name))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body APIKeyResponse `json:"body"`
		}{Body: APIKeyResponse{
			ID:        key.ID,
			ActorID:   key.ActorID,
			Name:      key.Name,
			Key:       secret,
			CreatedAt: key.CreatedAt,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-apikeys",
		Method:      http.MethodGet,
		Path:        "/apikeys",
		Summary:     "List API keys",
	}, func(ctx context.Context, input *struct {
		ActorID string `query:"actor_id"`
	}) (*struct {
		Body []APIKeyResponse `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := keys.List(ctx, input.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]APIKeyResponse, 0, len(items))
		for _, key := range items {
			out = append(out, APIKeyResponse{
				ID:        key.ID,
				ActorID:   key.ActorID,
				Name:      key.Name,
				CreatedAt: key.CreatedAt,
			})
		}
		return &struct {
			Body []APIKeyResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-apikey",
		Method:      http.MethodDelete,
		Path:        "/apikeys/{id}",
		Summary:     "Delete API key",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		if err := keys.Delete(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}
