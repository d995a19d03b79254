// Package archive persists per-run audit records of the question workflow.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// RunRecord is the audit shape of one completed workflow run.
type RunRecord struct {
	RunID       string        `json:"run_id"`
	Question    string        `json:"question"`
	Answer      string        `json:"answer"`
	Generations int           `json:"generations"`
	Duration    time.Duration `json:"duration_ns"`
	StartedAt   time.Time     `json:"started_at"`
}

type Archiver interface {
	Store(ctx context.Context, record RunRecord) error
}

// ObjectWriter is the storage capability the archiver needs.
type ObjectWriter interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
}

// ObjectArchiver writes run records as JSON objects keyed by date and run id.
type ObjectArchiver struct {
	writer ObjectWriter
}

func NewObjectArchiver(writer ObjectWriter) (*ObjectArchiver, error) {
	if writer == nil {
		return nil, fmt.Errorf("object writer is required")
	}
	return &ObjectArchiver{writer: writer}, nil
}

func (a *ObjectArchiver) Store(ctx context.Context, record RunRecord) error {
	if record.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}
	key := recordKey(record)
	if err := a.writer.Put(ctx, key, bytes.NewReader(body), int64(len(body)), "application/json"); err != nil {
		return fmt.Errorf("store run record %q: %w", key, err)
	}
	return nil
}

func recordKey(record RunRecord) string {
	return fmt.Sprintf("runs/%s/%s.json", record.StartedAt.UTC().Format("2006-01-02"), record.RunID)
}
