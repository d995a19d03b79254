// Package schema inspects the outlet database at runtime: table listing,
// column metadata, and sample rows rendered for prompt context.
package schema

import (
	"context"
	"fmt"
	"strings"
)

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TableContext is the inspectable shape of one table. Error carries the
// engine's own message when the table could not be described.
type TableContext struct {
	TableName  string   `json:"table_name"`
	Columns    []Column `json:"columns,omitempty"`
	SampleRows [][]any  `json:"sample_rows,omitempty"`
	Error      string   `json:"error,omitempty"`
}

type Inspector interface {
	ListTables(ctx context.Context) ([]string, error)
	TableContexts(ctx context.Context, tables []string) ([]TableContext, error)
	DescribeTables(ctx context.Context, tables []string) (string, error)
}

// Render formats table contexts as the text blob handed to the language
// capability.
func Render(contexts []TableContext) string {
	var b strings.Builder
	for i, table := range contexts {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Table: %s", table.TableName)
		if table.Error != "" {
			fmt.Fprintf(&b, "\nError: %s", table.Error)
			continue
		}
		b.WriteString("\nColumns:")
		for _, column := range table.Columns {
			fmt.Fprintf(&b, "\n  %s (%s)", column.Name, column.Type)
		}
		if len(table.SampleRows) == 0 {
			continue
		}
		b.WriteString("\nSample rows:")
		for _, row := range table.SampleRows {
			parts := make([]string, len(row))
			for j, value := range row {
				parts[j] = fmt.Sprintf("%v", value)
			}
			fmt.Fprintf(&b, "\n  %s", strings.Join(parts, " | "))
		}
	}
	return b.String()
}
