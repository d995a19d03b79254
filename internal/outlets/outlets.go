// Package outlets defines the outlet record domain and its read repository.
package outlets

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("outlets: not found")

// Outlet is one retail location. Working hours are stored as free-form
// strings the way the source dataset carries them.
type Outlet struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Address      string  `json:"address"`
	WorkDayStart string  `json:"work_day_start"`
	WorkDayEnd   string  `json:"work_day_end"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
}

type Repository interface {
	HealthCheck(ctx context.Context) error
	ListOutlets(ctx context.Context) ([]Outlet, error)
	GetOutlet(ctx context.Context, id int64) (Outlet, error)
}
