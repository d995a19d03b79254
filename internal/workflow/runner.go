package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/outletmesh/outletmesh/internal/observability"
	"github.com/outletmesh/outletmesh/internal/query"
)

// queryFailedMessage is the fixed diagnostic the executor hands back to the
// generator on any execution failure. The exact text is part of the loop's
// control contract.
const queryFailedMessage = "Error: Query failed. Please rewrite your query and try again."

// QueryRunner executes a candidate query and renders the outcome as a tool
// message. Failures are folded into the diagnostic text rather than
// returned, so the generation loop can recover.
type QueryRunner interface {
	Run(ctx context.Context, sql string) string
}

type EngineRunner struct {
	engine   query.Engine
	rowLimit int
}

func NewEngineRunner(engine query.Engine, rowLimit int) *EngineRunner {
	return &EngineRunner{engine: engine, rowLimit: rowLimit}
}

func (r *EngineRunner) Run(ctx context.Context, sql string) string {
	result, err := r.engine.Execute(ctx, query.Request{SQL: sql, RowLimit: r.rowLimit})
	if err != nil {
		observability.IncrementWorkflowQueryFailure()
		return queryFailedMessage
	}
	return formatResult(result)
}

// formatResult renders rows for the generator. Two-column rows use the
// "- a: b" listing the answer prompt expects; wider rows are pipe-joined.
// Empty result sets are reported explicitly so the generator can rewrite.
func formatResult(result query.Result) string {
	var b strings.Builder
	b.WriteString("Query Results:")
	if len(result.Rows) == 0 {
		b.WriteString("\n(no rows)")
		return b.String()
	}
	for _, row := range result.Rows {
		if len(row) == 2 {
			fmt.Fprintf(&b, "\n- %v: %v", row[0], row[1])
			continue
		}
		parts := make([]string, len(row))
		for i, value := range row {
			parts[i] = fmt.Sprintf("%v", value)
		}
		fmt.Fprintf(&b, "\n%s", strings.Join(parts, " | "))
	}
	return b.String()
}
