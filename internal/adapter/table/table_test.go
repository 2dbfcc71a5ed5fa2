package table

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/qbwriter/internal/domain"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadTable(t *testing.T) {
	path := writeFile(t, "Id,Amount,Description\n1,10.50,first\n1,2.00,second\n\n2,3,third\n")

	header, rows, err := ReadTable(path)

	require.NoError(t, err)
	assert.Equal(t, []string{"Id", "Amount", "Description"}, header)
	require.Len(t, rows, 3, "blank rows are skipped")
	assert.Equal(t, "10.50", rows[0]["Amount"])
	assert.Equal(t, "third", rows[2]["Description"])
}

func TestReadTable_CellWhitespacePreserved(t *testing.T) {
	path := writeFile(t, "Id , Description\n1,\"  note with spaces  \"\n")

	header, rows, err := ReadTable(path)

	require.NoError(t, err)
	assert.Equal(t, []string{"Id", "Description"}, header, "header cells are trimmed")
	assert.Equal(t, "  note with spaces  ", rows[0]["Description"], "data cells are kept verbatim")
}

func TestReadTable_ShortRecordPadsEmpty(t *testing.T) {
	path := writeFile(t, "Id,Amount,Description\n1,10\n")

	_, rows, err := ReadTable(path)

	require.NoError(t, err)
	assert.Equal(t, "", rows[0]["Description"])
}

func TestReadTable_Empty(t *testing.T) {
	path := writeFile(t, "")

	_, _, err := ReadTable(path)

	var configErr *domain.ConfigError
	require.True(t, errors.As(err, &configErr))
}

func TestErrorWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.csv")

	ew, err := NewErrorWriter(path)
	require.NoError(t, err)

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, ew.Append(domain.ErrorRecord{
		ID:       "7",
		Endpoint: "journalentry",
		Action:   "create",
		Body:     `{"TxnDate":"2024-05-01"}`,
		Error:    "Duplicate Document Number Error",
		TS:       ts,
	}))
	assert.Equal(t, 1, ew.Count())
	require.NoError(t, ew.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,endpoint,action,body,error,ts", lines[0])
	assert.Contains(t, lines[1], "Duplicate Document Number Error")
	assert.Contains(t, lines[1], "2024-05-01T12:00:00Z")
}

func TestErrorWriter_EmptyTableStillFinalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.csv")

	ew, err := NewErrorWriter(path)
	require.NoError(t, err)
	require.NoError(t, ew.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id,endpoint,action,body,error,ts", strings.TrimSpace(string(content)))
}
