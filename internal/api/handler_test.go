package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/outletmesh/outletmesh/internal/archive"
	"github.com/outletmesh/outletmesh/internal/config"
	"github.com/outletmesh/outletmesh/internal/outlets"
	"github.com/outletmesh/outletmesh/internal/query"
	"github.com/outletmesh/outletmesh/internal/schema"
	"github.com/outletmesh/outletmesh/internal/workflow"
)

type fakeRepo struct {
	items   []outlets.Outlet
	listErr error
	getErr  error
}

func (f *fakeRepo) HealthCheck(context.Context) error { return nil }

func (f *fakeRepo) ListOutlets(context.Context) ([]outlets.Outlet, error) {
	return f.items, f.listErr
}

func (f *fakeRepo) GetOutlet(_ context.Context, id int64) (outlets.Outlet, error) {
	if f.getErr != nil {
		return outlets.Outlet{}, f.getErr
	}
	for _, item := range f.items {
		if item.ID == id {
			return item, nil
		}
	}
	return outlets.Outlet{}, outlets.ErrNotFound
}

type fakeEngine struct {
	result query.Result
	err    error
	last   query.Request
}

func (f *fakeEngine) Execute(_ context.Context, request query.Request) (query.Result, error) {
	f.last = request
	return f.result, f.err
}

type fakeInspector struct {
	tables   []string
	contexts []schema.TableContext
	err      error
}

func (f *fakeInspector) ListTables(context.Context) ([]string, error) {
	return f.tables, f.err
}

func (f *fakeInspector) TableContexts(context.Context, []string) ([]schema.TableContext, error) {
	return f.contexts, f.err
}

func (f *fakeInspector) DescribeTables(context.Context, []string) (string, error) {
	return schema.Render(f.contexts), f.err
}

type fakeWorkflow struct {
	result   workflow.RunResult
	err      error
	question string
}

func (f *fakeWorkflow) ExecuteRun(_ context.Context, question string) (workflow.RunResult, error) {
	f.question = question
	return f.result, f.err
}

type fakeArchiver struct {
	record archive.RunRecord
	stored bool
}

func (f *fakeArchiver) Store(_ context.Context, record archive.RunRecord) error {
	f.record = record
	f.stored = true
	return nil
}

func testConfig() config.Config {
	return config.Config{
		Profile: config.ProfileTest,
		Service: config.ServiceConfig{Name: "outletmesh-api"},
	}
}

func TestHealthEndpoint(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "outletmesh-api") {
		t.Fatalf("body = %q", rr.Body.String())
	}
}

func TestReadyEndpointReportsFailure(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{
		Readiness: func(context.Context) error { return fmt.Errorf("db down") },
	})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestReadyEndpointCombinesChecks(t *testing.T) {
	dbCheck := func(context.Context) error { return nil }
	archiveCheck := func(context.Context) error { return fmt.Errorf("archive bucket unreachable") }
	handler := NewHandler(testConfig(), Dependencies{
		Readiness: CombineReadinessChecks(dbCheck, nil, archiveCheck),
	})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "archive bucket unreachable") {
		t.Fatalf("body = %q", rr.Body.String())
	}
}

func TestListOutlets(t *testing.T) {
	repo := &fakeRepo{items: []outlets.Outlet{{ID: 1, Name: "Central"}}}
	handler := NewHandler(testConfig(), Dependencies{Outlets: repo})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/outlets", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	var decoded []outlets.Outlet
	if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Name != "Central" {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestListOutletsEmptyIsNotFound(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{Outlets: &fakeRepo{}})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/outlets", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestGetOutletByID(t *testing.T) {
	repo := &fakeRepo{items: []outlets.Outlet{{ID: 7, Name: "East"}}}
	handler := NewHandler(testConfig(), Dependencies{Outlets: repo})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/outlets/7", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/outlets/404", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing outlet status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/outlets/abc", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid id status = %d", rr.Code)
	}
}

func TestQuestionEndpointReturnsAnswerString(t *testing.T) {
	wf := &fakeWorkflow{result: workflow.RunResult{
		Answer:      "Central opens the earliest at 08:00.",
		Generations: 2,
		Duration:    time.Second,
		StartedAt:   time.Now(),
	}}
	archiver := &fakeArchiver{}
	handler := NewHandler(testConfig(), Dependencies{Workflow: wf, Archiver: archiver})

	body := bytes.NewBufferString(`{"query": "Which outlet opens the earliest?"}`)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/query", body))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	var answer string
	if err := json.Unmarshal(rr.Body.Bytes(), &answer); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if answer != "Central opens the earliest at 08:00." {
		t.Fatalf("answer = %q", answer)
	}
	if wf.question != "Which outlet opens the earliest?" {
		t.Fatalf("question = %q", wf.question)
	}

	if !archiver.stored {
		t.Fatal("expected run to be archived")
	}
	if archiver.record.RunID == "" || archiver.record.Generations != 2 {
		t.Fatalf("archived record = %+v", archiver.record)
	}
}

func TestQuestionEndpointFailureContract(t *testing.T) {
	wf := &fakeWorkflow{err: fmt.Errorf("workflow: generation budget exhausted")}
	handler := NewHandler(testConfig(), Dependencies{Workflow: wf})

	body := bytes.NewBufferString(`{"query": "q"}`)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/query", body))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["detail"] != "workflow: generation budget exhausted" {
		t.Fatalf("detail = %q", payload["detail"])
	}
}

func TestQuestionEndpointRejectsEmptyQuery(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{Workflow: &fakeWorkflow{}})

	body := bytes.NewBufferString(`{"query": "  "}`)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/query", body))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestSQLEndpointGuardsNonSelect(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{QueryEngine: &fakeEngine{}})

	body := bytes.NewBufferString(`{"sql": "DROP TABLE outlets"}`)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/sql", body))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "SQL_NOT_ALLOWED") {
		t.Fatalf("body = %q", rr.Body.String())
	}
}

func TestSQLEndpointExecutesSelect(t *testing.T) {
	engine := &fakeEngine{result: query.Result{
		Columns:  []string{"name"},
		Rows:     [][]any{{"Central"}},
		Duration: 12 * time.Millisecond,
	}}
	handler := NewHandler(testConfig(), Dependencies{QueryEngine: engine, RowLimit: 50})

	body := bytes.NewBufferString(`{"sql": "SELECT name FROM outlets", "row_limit": 100}`)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/sql", body))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	// Requested limit above the configured cap is clamped.
	if engine.last.RowLimit != 50 {
		t.Fatalf("row limit = %d, want 50", engine.last.RowLimit)
	}
	var decoded sqlResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded.Rows) != 1 {
		t.Fatalf("rows = %+v", decoded.Rows)
	}
}

func TestSchemaEndpoint(t *testing.T) {
	inspector := &fakeInspector{
		tables: []string{"outlets"},
		contexts: []schema.TableContext{{
			TableName: "outlets",
			Columns:   []schema.Column{{Name: "id", Type: "BIGINT"}},
		}},
	}
	handler := NewHandler(testConfig(), Dependencies{Inspector: inspector})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/schema", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "outlets") {
		t.Fatalf("body = %q", rr.Body.String())
	}
}

func TestAuthRequiredWithoutMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Required = true
	handler := NewHandler(cfg, Dependencies{Outlets: &fakeRepo{}})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/outlets", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
}
