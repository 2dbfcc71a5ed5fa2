package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/iho/qbwriter/internal/domain"
)

// Endpoint is one configured endpoint/action with its input table.
type Endpoint struct {
	Op        domain.Operation
	TablePath string
}

// RunInput carries everything one run needs.
type RunInput struct {
	Grant     domain.Grant
	Persisted *domain.PersistedToken
	Endpoints []Endpoint

	// FailOnError selects strict policy: the first row-level failure aborts
	// the whole run. The default (false) is lenient: failures are appended
	// to Errors and processing continues.
	FailOnError bool

	// Errors receives row-level failures; required under lenient policy.
	Errors ErrorSink

	// StartedAt is persisted as the state timestamp so the next run's
	// grant-vs-state comparison stays monotonic.
	StartedAt time.Time
}

// RunResult summarizes a completed run.
type RunResult struct {
	Token  domain.TokenPair
	Groups int
	Failed int
}

// RunUseCase orchestrates one connector run: resolve and refresh the token,
// process each configured endpoint group by group, persist the final token
// state.
type RunUseCase struct {
	tokens *TokenUseCase
	client APIClient
	input  InputReader
	local  StateStore
	remote RemoteStateStore // nil disables remote persistence
	logger zerolog.Logger
}

// NewRunUseCase creates a new RunUseCase. remote may be nil (sandbox runs
// skip remote persistence).
func NewRunUseCase(tokens *TokenUseCase, client APIClient, input InputReader, local StateStore, remote RemoteStateStore, logger zerolog.Logger) *RunUseCase {
	return &RunUseCase{
		tokens: tokens,
		client: client,
		input:  input,
		local:  local,
		remote: remote,
		logger: logger.With().Str("run_id", ulid.Make().String()).Logger(),
	}
}

// Run executes the whole run sequentially. Any returned error aborts the
// run; row-level failures only surface as errors under strict policy.
func (uc *RunUseCase) Run(ctx context.Context, in RunInput) (RunResult, error) {
	if len(in.Endpoints) == 0 {
		return RunResult{}, domain.NewConfigError("endpoints parameter cannot be empty")
	}
	if !in.FailOnError && in.Errors == nil {
		return RunResult{}, domain.NewConfigError("lenient policy requires an error table")
	}

	refreshToken := uc.tokens.Resolve(in.Grant, in.Persisted)

	pair, err := uc.tokens.Refresh(ctx, refreshToken)
	if err != nil {
		return RunResult{}, err
	}

	result := RunResult{Token: pair}

	// A rotated refresh token is persisted before any rows are processed:
	// the provider only honors the new token, so an abort later in the run
	// must not strand it.
	if pair.Rotated {
		if err := uc.persistState(ctx, pair, in.StartedAt); err != nil {
			return result, err
		}
	}

	for _, endpoint := range in.Endpoints {
		if err := uc.processEndpoint(ctx, endpoint, pair.AccessToken, in, &result); err != nil {
			return result, err
		}
	}

	if !pair.Rotated {
		if err := uc.local.Save(pair.RefreshToken, in.StartedAt); err != nil {
			return result, err
		}
	}

	uc.logger.Info().
		Int("groups", result.Groups).
		Int("failed", result.Failed).
		Msg("run finished")
	return result, nil
}

func (uc *RunUseCase) processEndpoint(ctx context.Context, endpoint Endpoint, accessToken string, in RunInput, result *RunResult) error {
	logger := uc.logger.With().Str("endpoint", endpoint.Op.Endpoint()).Logger()
	logger.Info().Str("table", endpoint.TablePath).Msg("processing endpoint")

	header, rows, err := uc.input.Read(endpoint.TablePath)
	if err != nil {
		return err
	}
	if err := domain.ValidateColumns(header, endpoint.Op.RequiredColumns()); err != nil {
		return err
	}

	for _, group := range domain.GroupRows(rows) {
		result.Groups++

		payload, err := domain.BuildPayload(endpoint.Op, group)
		if err != nil {
			// Malformed input, not a remote rejection: fatal under both
			// policies.
			return err
		}

		fault, err := uc.client.Send(ctx, endpoint.Op, accessToken, payload)
		if err != nil {
			return err
		}
		if fault == nil {
			continue
		}

		result.Failed++
		if in.FailOnError {
			return &domain.SubmissionError{GroupID: group.ID, Fault: fault}
		}

		body, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		record := domain.ErrorRecord{
			ID:       group.ID,
			Endpoint: endpoint.Op.Endpoint(),
			Action:   endpoint.Op.Action(),
			Body:     string(body),
			Error:    fault.Summary(),
			TS:       time.Now().UTC(),
		}
		if err := in.Errors.Append(record); err != nil {
			return err
		}
		logger.Warn().Str("group", group.ID).Str("fault", fault.Summary()).Msg("submission rejected")
	}

	return nil
}

// persistState writes a rotated refresh token: remote best-effort, local
// file always as the fallback. Losing the local write is fatal: a rotated
// token that was never persisted invalidates every future run.
func (uc *RunUseCase) persistState(ctx context.Context, pair domain.TokenPair, startedAt time.Time) error {
	if uc.remote != nil {
		if err := uc.remote.PersistToken(ctx, pair.RefreshToken, startedAt); err != nil {
			uc.logger.Warn().Err(err).Msg("unable to persist token to remote state, local state file is the fallback")
		}
	}

	return uc.local.Save(pair.RefreshToken, startedAt)
}
