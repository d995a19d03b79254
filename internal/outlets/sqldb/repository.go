// Package sqldb implements the outlet repository on database/sql.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/outletmesh/outletmesh/internal/outlets"
)

const outletColumns = "id, name, address, work_day_start, work_day_end, start_time, end_time, latitude, longitude"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping outlet db: %w", err)
	}
	return nil
}

func (r *Repository) ListOutlets(ctx context.Context) ([]outlets.Outlet, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+outletColumns+` FROM outlets ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list outlets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []outlets.Outlet
	for rows.Next() {
		item, err := scanOutlet(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return items, nil
}

func (r *Repository) GetOutlet(ctx context.Context, id int64) (outlets.Outlet, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+outletColumns+` FROM outlets WHERE id = $1`, id)
	item, err := scanOutlet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return outlets.Outlet{}, outlets.ErrNotFound
		}
		return outlets.Outlet{}, err
	}
	return item, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOutlet(row rowScanner) (outlets.Outlet, error) {
	var item outlets.Outlet
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Address,
		&item.WorkDayStart,
		&item.WorkDayEnd,
		&item.StartTime,
		&item.EndTime,
		&item.Latitude,
		&item.Longitude,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return outlets.Outlet{}, err
		}
		return outlets.Outlet{}, fmt.Errorf("scan outlet: %w", err)
	}
	return item, nil
}
