package quickbooks

import (
	"bytes"
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

	"github.com/iho/qbwriter/internal/domain"
)

const (
	productionBaseURL = "https://quickbooks.api.intuit.com"
	sandboxBaseURL    = "https://sandbox-quickbooks.api.intuit.com"
	defaultTokenURL   = "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"

	minorVersion = "75"

	// Bounded retry budget for transient transport failures and 5xx.
	sendAttempts = 3
)

// Config holds the connection settings of the QuickBooks client.
type Config struct {
	CompanyID string
	AppKey    string
	AppSecret string
	Sandbox   bool

	// Strict controls whether an unclassifiable response body is fatal
	// (strict) or rewrapped into a synthetic fault (lenient).
	Strict bool

	// BaseURL and TokenURL override the Intuit hosts, used by tests.
	BaseURL  string
	TokenURL string
}

// Client performs authenticated writes against the QuickBooks Online v3 API
// and refresh-token exchanges against the Intuit OAuth endpoint.
type Client struct {
	cfg    Config
	http   *http.Client
	logger zerolog.Logger
}

// New creates a QuickBooks client.
func New(cfg Config, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		if cfg.Sandbox {
			cfg.BaseURL = sandboxBaseURL
		} else {
			cfg.BaseURL = productionBaseURL
		}
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}

	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

// RefreshToken exchanges the refresh token for a new access+refresh token
// pair. Rotated is set when the provider returned a different refresh token.
// An explicit error body is an AuthError and is never retried: the
// credentials are unusable and re-authorization is required out-of-band.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	c.logger.Info().Msg("refreshing access token")

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	res, err := c.post(ctx, sendAttempts, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(c.cfg.AppKey, c.cfg.AppSecret)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("token refresh: %w", err)
	}

	var tr tokenResponse
	if jsonErr := json.Unmarshal(res.body, &tr); jsonErr != nil || tr.Error != "" || res.status >= 400 || tr.AccessToken == "" {
		return domain.TokenPair{}, domain.NewAuthError(
			"failed to refresh access token, please re-authorize credentials: %s", strings.TrimSpace(string(res.body)))
	}

	if tr.RefreshToken == "" {
		// Some token responses omit the refresh token; the current one
		// stays valid in that case.
		tr.RefreshToken = refreshToken
	}

	pair := domain.TokenPair{
		RefreshToken: tr.RefreshToken,
		AccessToken:  tr.AccessToken,
		Rotated:      tr.RefreshToken != refreshToken,
	}
	return pair, nil
}

// Send posts one payload to the operation's resource. A nil fault with a nil
// error means the object was created. Row-level rejections come back as a
// Fault value for the coordinator to record; credential and parse failures
// come back as errors and abort the run.
func (c *Client) Send(ctx context.Context, op domain.Operation, accessToken string, payload domain.Payload) (*domain.Fault, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v3/company/%s/%s?minorversion=%s",
		c.cfg.BaseURL, c.cfg.CompanyID, op.Resource(), minorVersion)

	c.logger.Debug().Str("endpoint", op.Endpoint()).RawJSON("payload", body).Msg("posting entry")

	res, err := c.post(ctx, sendAttempts, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("send %s: %w", op, err)
	}

	switch {
	case res.status >= 200 && res.status < 300:
		return nil, nil
	case res.status == http.StatusUnauthorized:
		return nil, domain.NewAuthError("quickbooks returned 401 unauthorized, re-authorize or check company id")
	default:
		return classifyFault(res.header.Get("Content-Type"), res.body, c.cfg.Strict)
	}
}

type httpResult struct {
	status int
	header http.Header
	body   []byte
}

// post performs the request with bounded exponential backoff. Only transport
// errors and 5xx statuses are retried; every other status is returned to the
// caller for classification. The request is rebuilt per attempt because its
// body reader is consumed.
func (c *Client) post(ctx context.Context, attempts int, build func() (*http.Request, error)) (*httpResult, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second

	var res *httpResult
	attempt := 0

	operation := func() error {
		attempt++

		req, err := build()
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt >= attempts {
				return backoff.Permanent(fmt.Errorf("request failed after %d attempts: %w", attempt, err))
			}
			c.logger.Warn().Err(err).Int("attempt", attempt).Msg("transient request failure, retrying")
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			if attempt >= attempts {
				return backoff.Permanent(fmt.Errorf("read response after %d attempts: %w", attempt, err))
			}
			return err
		}

		if resp.StatusCode >= 500 {
			if attempt >= attempts {
				return backoff.Permanent(fmt.Errorf("server error %d after %d attempts: %s",
					resp.StatusCode, attempt, strings.TrimSpace(string(body))))
			}
			c.logger.Warn().Int("status", resp.StatusCode).Int("attempt", attempt).Msg("server error, retrying")
			return fmt.Errorf("server error %d", resp.StatusCode)
		}

		res = &httpResult{status: resp.StatusCode, header: resp.Header, body: body}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return res, nil
}
