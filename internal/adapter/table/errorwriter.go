package table

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/iho/qbwriter/internal/domain"
)

var errorColumns = []string{"id", "endpoint", "action", "body", "error", "ts"}

// ErrorWriter appends failed submissions to the output error table. The
// table is created for every lenient run and finalized even when empty so
// downstream consumers always find the artifact.
type ErrorWriter struct {
	file  *os.File
	w     *csv.Writer
	count int
}

// NewErrorWriter creates the error table and writes its header row.
func NewErrorWriter(path string) (*ErrorWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create error table: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(errorColumns); err != nil {
		f.Close()
		return nil, fmt.Errorf("write error table header: %w", err)
	}

	return &ErrorWriter{file: f, w: w}, nil
}

// Append writes one error record.
func (ew *ErrorWriter) Append(rec domain.ErrorRecord) error {
	ew.count++
	return ew.w.Write([]string{
		rec.ID,
		rec.Endpoint,
		rec.Action,
		rec.Body,
		rec.Error,
		rec.TS.UTC().Format(time.RFC3339),
	})
}

// Count returns the number of appended records.
func (ew *ErrorWriter) Count() int { return ew.count }

// Close flushes and finalizes the table.
func (ew *ErrorWriter) Close() error {
	ew.w.Flush()
	if err := ew.w.Error(); err != nil {
		ew.file.Close()
		return fmt.Errorf("flush error table: %w", err)
	}
	return ew.file.Close()
}
