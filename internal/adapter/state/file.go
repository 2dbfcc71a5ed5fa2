package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/iho/qbwriter/internal/domain"
)

// tsFormat matches the timestamp format the connector has always written to
// its state file. Kept for compatibility with state produced by earlier
// revisions.
const tsFormat = "2006-01-02T15:04:05.000000Z"

// RunState is the persisted local state file.
type RunState struct {
	Token TokenState `json:"token"`
}

// TokenState carries the rotated refresh token. The leading # marks the
// field as encrypted at rest by the platform.
type TokenState struct {
	TS           string `json:"ts"`
	RefreshToken string `json:"#refresh_token"`
}

// FileStore reads and writes the connector's local state file. The local
// file is always written at run end and acts as the fallback when remote
// persistence fails.
type FileStore struct {
	path string
}

// NewFileStore creates a store over the given state file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the persisted token. A missing file or a state without a
// timestamp returns nil: the caller falls back to the grant's token.
func (s *FileStore) Load() (*domain.PersistedToken, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var st RunState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	if st.Token.TS == "" {
		return nil, nil
	}

	ts, err := ParseTimestamp(st.Token.TS)
	if err != nil {
		return nil, fmt.Errorf("parse state timestamp: %w", err)
	}

	return &domain.PersistedToken{RefreshToken: st.Token.RefreshToken, SavedAt: ts}, nil
}

// Save writes the refresh token with the given timestamp. Callers pass the
// run-start timestamp, not the write time, so the next run's grant-vs-state
// comparison stays monotonic even for long runs.
func (s *FileStore) Save(refreshToken string, ts time.Time) error {
	st := RunState{Token: TokenState{
		TS:           FormatTimestamp(ts),
		RefreshToken: refreshToken,
	}}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// FormatTimestamp renders a timestamp in the state file format.
func FormatTimestamp(ts time.Time) string {
	return ts.UTC().Format(tsFormat)
}

// ParseTimestamp parses state and grant timestamps, accepting both the state
// file format and RFC 3339.
func ParseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(tsFormat, s); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
