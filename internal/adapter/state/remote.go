package state

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Retry budget for the secrets/state collaborators.
const remoteAttempts = 5

// RemoteConfig identifies this connector instance to the platform's
// encryption and configuration-state APIs.
type RemoteConfig struct {
	EncryptionHost string
	StorageHost    string
	StorageToken   string
	ComponentID    string
	ProjectID      string
	ConfigID       string
	BranchID       string
}

// RemoteStore persists the rotated refresh token outside the run's own state
// file: the token is encrypted by the platform's encryption service and
// written to the configuration state endpoint. Failures here are non-fatal
// to the run; the local state file is always written as a fallback.
type RemoteStore struct {
	cfg    RemoteConfig
	http   *http.Client
	logger zerolog.Logger
}

// NewRemoteStore creates a remote state store.
func NewRemoteStore(cfg RemoteConfig, logger zerolog.Logger) *RemoteStore {
	if cfg.BranchID == "" {
		cfg.BranchID = "default"
	}
	return &RemoteStore{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// PersistToken encrypts the refresh token and updates the configuration
// state with the run-start timestamp.
func (r *RemoteStore) PersistToken(ctx context.Context, refreshToken string, ts time.Time) error {
	encrypted, err := r.encrypt(ctx, refreshToken)
	if err != nil {
		return fmt.Errorf("encrypt refresh token: %w", err)
	}

	st := map[string]any{
		"component": RunState{Token: TokenState{
			TS:           FormatTimestamp(ts),
			RefreshToken: encrypted,
		}},
	}
	if err := r.updateConfigState(ctx, st); err != nil {
		return fmt.Errorf("update config state: %w", err)
	}

	return nil
}

func (r *RemoteStore) encrypt(ctx context.Context, token string) (string, error) {
	endpoint := fmt.Sprintf("%s/encrypt?componentId=%s&projectId=%s&configId=%s",
		r.cfg.EncryptionHost,
		url.QueryEscape(r.cfg.ComponentID),
		url.QueryEscape(r.cfg.ProjectID),
		url.QueryEscape(r.cfg.ConfigID))

	body, err := r.call(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(token))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "text/plain")
		return req, nil
	})
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (r *RemoteStore) updateConfigState(ctx context.Context, st map[string]any) error {
	stateJSON, err := json.Marshal(st)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/v2/storage/branch/%s/components/%s/configs/%s/state",
		r.cfg.StorageHost, r.cfg.BranchID, r.cfg.ComponentID, r.cfg.ConfigID)
	form := url.Values{"state": {string(stateJSON)}}

	_, err = r.call(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-StorageApi-Token", r.cfg.StorageToken)
		return req, nil
	})
	return err
}

// call performs the request with exponential backoff across the remote
// attempt budget; any non-2xx status counts as a failed attempt.
func (r *RemoteStore) call(ctx context.Context, build func() (*http.Request, error)) ([]byte, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second

	var out []byte
	attempt := 0

	operation := func() error {
		attempt++

		req, err := build()
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := r.http.Do(req)
		if err != nil {
			if attempt >= remoteAttempts {
				return backoff.Permanent(fmt.Errorf("request failed after %d attempts: %w", attempt, err))
			}
			r.logger.Warn().Err(err).Int("attempt", attempt).Msg("state api request failed, retrying")
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			if attempt >= remoteAttempts {
				return backoff.Permanent(err)
			}
			return err
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			err := fmt.Errorf("state api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			if attempt >= remoteAttempts {
				return backoff.Permanent(err)
			}
			r.logger.Warn().Int("status", resp.StatusCode).Int("attempt", attempt).Msg("state api error, retrying")
			return err
		}

		out = body
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return out, nil
}
