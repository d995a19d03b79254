package export

import (
	"bytes"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/outletmesh/outletmesh/internal/outlets"
)

func TestEncodeOutletsToParquet(t *testing.T) {
	items := []outlets.Outlet{
		{ID: 1, Name: "Central", Address: "1 Main St", WorkDayStart: "Monday", WorkDayEnd: "Friday", StartTime: "09:00", EndTime: "18:00", Latitude: 3.139, Longitude: 101.6869},
		{ID: 2, Name: "North", Address: "2 Hill Rd", WorkDayStart: "Monday", WorkDayEnd: "Saturday", StartTime: "10:00", EndTime: "22:00", Latitude: 3.21, Longitude: 101.65},
	}

	result, err := EncodeOutletsToParquet(items)
	if err != nil {
		t.Fatalf("EncodeOutletsToParquet() error = %v", err)
	}
	if result.RecordCount != 2 {
		t.Fatalf("RecordCount = %d, want 2", result.RecordCount)
	}

	rows, err := parquet.Read[parquetOutlet](bytes.NewReader(result.Data), int64(len(result.Data)))
	if err != nil {
		t.Fatalf("read parquet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("decoded rows = %d, want 2", len(rows))
	}
	if rows[0].Name != "Central" || rows[1].EndTime != "22:00" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestEncodeOutletsToParquetRequiresRows(t *testing.T) {
	if _, err := EncodeOutletsToParquet(nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}
