package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/iho/qbwriter/internal/domain"
)

// TokenUseCase resolves which refresh token is authoritative at run start
// and performs the single token refresh of the run.
type TokenUseCase struct {
	client APIClient
	logger zerolog.Logger
}

// NewTokenUseCase creates a new TokenUseCase.
func NewTokenUseCase(client APIClient, logger zerolog.Logger) *TokenUseCase {
	return &TokenUseCase{client: client, logger: logger}
}

// Resolve picks the authoritative refresh token between the OAuth grant and
// the previously persisted state.
func (uc *TokenUseCase) Resolve(grant domain.Grant, persisted *domain.PersistedToken) string {
	token, source := domain.ResolveRefreshToken(grant, persisted)

	switch source {
	case domain.TokenFromState:
		uc.logger.Debug().Msg("loaded refresh token from state file")
	case domain.TokenFromGrant:
		uc.logger.Debug().Msg("using refresh token from oauth grant")
	case domain.TokenFromGrantNoState:
		uc.logger.Warn().Msg("no timestamp found in state file, using oauth grant token")
	}

	return token
}

// Refresh exchanges the refresh token for a fresh token pair. The pair is
// mutated exactly once per run, here; afterwards it is read-only.
func (uc *TokenUseCase) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	pair, err := uc.client.RefreshToken(ctx, refreshToken)
	if err != nil {
		return domain.TokenPair{}, err
	}

	if pair.Rotated {
		uc.logger.Info().Msg("provider rotated the refresh token, state will be updated")
	}

	return pair, nil
}
