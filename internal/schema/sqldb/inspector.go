// Package sqldb implements the schema inspector on database/sql with
// dialect-aware table listing.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/outletmesh/outletmesh/internal/schema"
	"github.com/outletmesh/outletmesh/internal/store"
)

type Inspector struct {
	db         *sql.DB
	dialect    store.Dialect
	sampleRows int
}

func NewInspector(db *sql.DB, dialect store.Dialect, sampleRows int) *Inspector {
	if sampleRows < 0 {
		sampleRows = 0
	}
	return &Inspector{db: db, dialect: dialect, sampleRows: sampleRows}
}

func (i *Inspector) ListTables(ctx context.Context) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, listTablesSQL(i.dialect))
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return tables, nil
}

func (i *Inspector) TableContexts(ctx context.Context, tables []string) ([]schema.TableContext, error) {
	contexts := make([]schema.TableContext, 0, len(tables))
	for _, table := range tables {
		contexts = append(contexts, i.describeTable(ctx, table))
	}
	return contexts, nil
}

func (i *Inspector) DescribeTables(ctx context.Context, tables []string) (string, error) {
	contexts, err := i.TableContexts(ctx, tables)
	if err != nil {
		return "", err
	}
	return schema.Render(contexts), nil
}

// describeTable embeds the engine's error text in the context rather than
// validating table names locally: unknown names surface the database's own
// diagnostic.
func (i *Inspector) describeTable(ctx context.Context, table string) schema.TableContext {
	result := schema.TableContext{TableName: table}

	sqlText := "SELECT * FROM " + quoteIdent(table) + " LIMIT " + strconv.Itoa(i.sampleRows)
	rows, err := i.db.QueryContext(ctx, sqlText)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer func() { _ = rows.Close() }()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		result.Error = err.Error()
		return result
	}
	for _, columnType := range columnTypes {
		result.Columns = append(result.Columns, schema.Column{
			Name: columnType.Name(),
			Type: columnType.DatabaseTypeName(),
		})
	}

	for rows.Next() {
		values := make([]any, len(columnTypes))
		scanTargets := make([]any, len(columnTypes))
		for j := range values {
			scanTargets[j] = &values[j]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			result.Error = err.Error()
			return result
		}
		result.SampleRows = append(result.SampleRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		result.Error = err.Error()
	}
	return result
}

func listTablesSQL(dialect store.Dialect) string {
	switch dialect {
	case store.DialectSQLite:
		return `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name ASC`
	case store.DialectDuckDB:
		return `SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' ORDER BY table_name ASC`
	default:
		return `SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_type = 'BASE TABLE' ORDER BY table_name ASC`
	}
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
