package table

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/iho/qbwriter/internal/domain"
)

// Source adapts ReadTable to the run coordinator's InputReader port.
type Source struct{}

// Read implements usecase.InputReader.
func (Source) Read(path string) ([]string, []domain.Row, error) {
	return ReadTable(path)
}

// ReadTable reads a UTF-8 CSV input table with a required header row and
// returns the header plus the data rows as header-keyed maps, in file order.
func ReadTable(path string) ([]string, []domain.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input table: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read input table %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, domain.NewConfigError("input table %s is empty, header row required", path)
	}

	header := make([]string, len(records[0]))
	for i, col := range records[0] {
		header[i] = strings.TrimSpace(col)
	}

	rows := make([]domain.Row, 0, len(records)-1)
	for _, record := range records[1:] {
		if isEmpty(record) {
			continue
		}
		// Header cells are trimmed above; data cells are kept verbatim so
		// posted text matches the input table.
		row := make(domain.Row, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}

	return header, rows, nil
}

func isEmpty(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
