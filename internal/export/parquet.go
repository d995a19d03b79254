// Package export encodes outlet rows for offline analytics.
package export

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/outletmesh/outletmesh/internal/outlets"
)

type ParquetEncodeResult struct {
	Data        []byte
	RecordCount int64
}

type parquetOutlet struct {
	ID           int64   `parquet:"id"`
	Name         string  `parquet:"name"`
	Address      string  `parquet:"address"`
	WorkDayStart string  `parquet:"work_day_start"`
	WorkDayEnd   string  `parquet:"work_day_end"`
	StartTime    string  `parquet:"start_time"`
	EndTime      string  `parquet:"end_time"`
	Latitude     float64 `parquet:"latitude"`
	Longitude    float64 `parquet:"longitude"`
}

func EncodeOutletsToParquet(items []outlets.Outlet) (ParquetEncodeResult, error) {
	if len(items) == 0 {
		return ParquetEncodeResult{}, fmt.Errorf("outlets are required")
	}

	rows := make([]parquetOutlet, 0, len(items))
	for _, item := range items {
		rows = append(rows, parquetOutlet{
			ID:           item.ID,
			Name:         item.Name,
			Address:      item.Address,
			WorkDayStart: item.WorkDayStart,
			WorkDayEnd:   item.WorkDayEnd,
			StartTime:    item.StartTime,
			EndTime:      item.EndTime,
			Latitude:     item.Latitude,
			Longitude:    item.Longitude,
		})
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[parquetOutlet](buf)
	if _, err := writer.Write(rows); err != nil {
		return ParquetEncodeResult{}, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return ParquetEncodeResult{}, fmt.Errorf("close parquet writer: %w", err)
	}

	return ParquetEncodeResult{
		Data:        buf.Bytes(),
		RecordCount: int64(len(rows)),
	}, nil
}
