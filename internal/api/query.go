package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/outletmesh/outletmesh/internal/archive"
	"github.com/outletmesh/outletmesh/internal/auth"
	"github.com/outletmesh/outletmesh/internal/query"
)

type questionRequest struct {
	Query string `json:"query"`
}

// handleQuestion runs the workflow. The response contract is fixed: a bare
// JSON string on success, {"detail": ...} on failure.
func handleQuestion(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Workflow == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]any{"detail": "question workflow is not configured"})
		return
	}
	if err := requireRole(r, auth.RoleQueryReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request questionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "invalid request body"})
		return
	}
	if strings.TrimSpace(request.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "query is required"})
		return
	}

	result, err := deps.Workflow.ExecuteRun(r.Context(), request.Query)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": err.Error()})
		return
	}

	archiveRun(r.Context(), deps, request.Query, result.Answer, result.Generations, result.Duration, result.StartedAt)
	writeJSON(w, http.StatusOK, result.Answer)
}

// archiveRun is best effort: failures are logged, never surfaced.
func archiveRun(ctx context.Context, deps Dependencies, question, answer string, generations int, duration time.Duration, startedAt time.Time) {
	if deps.Archiver == nil {
		return
	}
	record := archive.RunRecord{
		RunID:       uuid.NewString(),
		Question:    question,
		Answer:      answer,
		Generations: generations,
		Duration:    duration,
		StartedAt:   startedAt,
	}
	if err := deps.Archiver.Store(ctx, record); err != nil && deps.Logger != nil {
		deps.Logger.WarnContext(ctx, "run archive failed",
			slog.String("run_id", record.RunID),
			slog.String("error", err.Error()),
		)
	}
}

type sqlRequest struct {
	SQL      string `json:"sql"`
	RowLimit int    `json:"row_limit"`
}

type sqlResponse struct {
	Columns []string       `json:"columns"`
	Rows    [][]any        `json:"rows"`
	Stats   map[string]any `json:"stats"`
}

func handleSQL(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.QueryEngine == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SQL_NOT_CONFIGURED", "query engine is not configured", false, nil)
		return
	}
	if err := requireRole(r, auth.RoleQueryReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request sqlRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}
	if !isAllowedSQL(request.SQL) {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_NOT_ALLOWED", "only read-only SELECT/WITH queries are allowed", false, nil)
		return
	}

	rowLimit := request.RowLimit
	if rowLimit <= 0 || (deps.RowLimit > 0 && rowLimit > deps.RowLimit) {
		rowLimit = deps.RowLimit
	}

	result, err := deps.QueryEngine.Execute(r.Context(), query.Request{
		SQL:      request.SQL,
		RowLimit: rowLimit,
	})
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", "query execution failed", false, map[string]any{"details": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, sqlResponse{
		Columns: result.Columns,
		Rows:    result.Rows,
		Stats: map[string]any{
			"duration_ms": result.Duration.Milliseconds(),
			"row_count":   len(result.Rows),
		},
	})
}

func isAllowedSQL(sqlText string) bool {
	normalized := strings.ToLower(strings.TrimSpace(sqlText))
	if normalized == "" {
		return false
	}
	return strings.HasPrefix(normalized, "select") || strings.HasPrefix(normalized, "with")
}
