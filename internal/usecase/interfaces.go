package usecase

import (
	"context"
	"time"

	"github.com/iho/qbwriter/internal/domain"
)

// APIClient wraps outbound HTTP to the accounting API and the OAuth token
// endpoint.
type APIClient interface {
	RefreshToken(ctx context.Context, refreshToken string) (domain.TokenPair, error)
	Send(ctx context.Context, op domain.Operation, accessToken string, payload domain.Payload) (*domain.Fault, error)
}

// InputReader reads an input table into its header and data rows.
type InputReader interface {
	Read(path string) (header []string, rows []domain.Row, err error)
}

// ErrorSink receives row-level failures under lenient policy.
type ErrorSink interface {
	Append(rec domain.ErrorRecord) error
}

// StateStore persists the final refresh token to the run's local state.
type StateStore interface {
	Save(refreshToken string, ts time.Time) error
}

// RemoteStateStore persists the rotated refresh token to the platform's
// configuration state. Best-effort: failures are logged, not fatal.
type RemoteStateStore interface {
	PersistToken(ctx context.Context, refreshToken string, ts time.Time) error
}
