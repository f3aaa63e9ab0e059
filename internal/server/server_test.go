package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"testing"

	"orgline/internal/auth"
	"orgline/internal/config"
	"orgline/internal/engine"
	"orgline/internal/store/memstore"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	st := memstore.New()
	cfg := config.Default("acme")
	e := engine.New(st, cfg)
	keys := auth.Keys{Store: st, Scope: "acme"}
	handler, err := New(Config{
		Engine: e,
		Keys:   keys,
		Auth: AuthConfig{
			AllowLegacyActorHeader: true,
			Logger:                 log.New(io.Discard, "", 0),
		},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

var actorHeader = map[string]string{"X-Actor-Id": "tester"}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func TestChartDepartmentTreeFlow(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/charts", map[string]any{
		"title": "Org v1",
	}, actorHeader)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create chart status %d: %s", res.StatusCode, string(data))
	}
	var chart ChartResponse
	if err := json.Unmarshal(data, &chart); err != nil {
		t.Fatalf("unmarshal chart: %v", err)
	}
	if chart.Status != "draft" || chart.Version != "1.0" {
		t.Fatalf("unexpected chart: %+v", chart)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/charts/"+chart.ID+"/departments", map[string]any{
		"title":     "Finance",
		"code":      "FIN",
		"headcount": 5,
	}, actorHeader)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create department status %d: %s", res.StatusCode, string(data))
	}
	var bundle DepartmentBundleResponse
	if err := json.Unmarshal(data, &bundle); err != nil {
		t.Fatalf("unmarshal bundle: %v", err)
	}
	if bundle.HeadPosition.Code != "FIN-001" || !bundle.HeadAppointment.IsVacant {
		t.Fatalf("unexpected bundle: %+v", bundle)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/appointments/"+bundle.HeadAppointment.ID+"/fill", map[string]any{
		"user_id":           "u-1",
		"user_display_name": "Dana",
	}, actorHeader)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("fill status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/charts/"+chart.ID+"/tree", nil, actorHeader)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("tree status %d: %s", res.StatusCode, string(data))
	}
	var rows []TreeRowResponse
	if err := json.Unmarshal(data, &rows); err != nil {
		t.Fatalf("unmarshal tree: %v", err)
	}
	// Chart, department, head position, filled appointment.
	if len(rows) != 4 {
		t.Fatalf("tree rows = %d: %s", len(rows), string(data))
	}
	if rows[3].Title != "Dana" {
		t.Fatalf("appointment row title = %q", rows[3].Title)
	}
}

func TestUnauthenticatedRejected(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/charts", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
	var body apiErrorBody
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if body.Code != "unauthorized" {
		t.Fatalf("error code = %q", body.Code)
	}

	// Health stays open.
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", res.StatusCode)
	}
}

func TestFrozenChartReturnsPermissionDenied(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/charts", map[string]any{"title": "Org v1"}, actorHeader)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create chart: %d %s", res.StatusCode, string(data))
	}
	var chart ChartResponse
	_ = json.Unmarshal(data, &chart)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/charts/"+chart.ID+"/submit", nil, actorHeader)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("submit: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/charts/"+chart.ID+"/departments", map[string]any{
		"title": "Ops",
	}, actorHeader)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", res.StatusCode, string(data))
	}
	var body apiErrorBody
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if body.Code != "permission_denied" {
		t.Fatalf("error code = %q", body.Code)
	}
}

func TestAPIKeyAuthentication(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/apikeys", map[string]any{
		"actor_id": "ci-bot",
	}, actorHeader)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create apikey: %d %s", res.StatusCode, string(data))
	}
	var key APIKeyResponse
	if err := json.Unmarshal(data, &key); err != nil {
		t.Fatalf("unmarshal key: %v", err)
	}
	if key.Key == "" {
		t.Fatalf("expected clear secret in create response")
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/charts", map[string]any{
		"title": "Bot chart",
	}, map[string]string{"X-Api-Key": key.Key})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create chart with key: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/charts", nil, map[string]string{"X-Api-Key": "ok_bogus"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bogus key status %d: %s", res.StatusCode, string(data))
	}

	// Listing never echoes the secret.
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/apikeys", nil, actorHeader)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list apikeys: %d %s", res.StatusCode, string(data))
	}
	var listed []APIKeyResponse
	if err := json.Unmarshal(data, &listed); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(listed) != 1 || listed[0].Key != "" {
		t.Fatalf("unexpected listing: %+v", listed)
	}
}
