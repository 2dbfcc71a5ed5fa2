package quickbooks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/qbwriter/internal/domain"
)

func testClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	if cfg.CompanyID == "" {
		cfg.CompanyID = "12345"
	}
	cfg.AppKey = "app-key"
	cfg.AppSecret = "app-secret"
	return New(cfg, zerolog.Nop())
}

func TestRefreshToken_Rotation(t *testing.T) {
	tests := []struct {
		name        string
		newRefresh  string
		wantRotated bool
	}{
		{"provider rotates refresh token", "r1", true},
		{"provider returns same refresh token", "r0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
				assert.Equal(t, "r0", r.PostForm.Get("refresh_token"))

				user, pass, ok := r.BasicAuth()
				require.True(t, ok)
				assert.Equal(t, "app-key", user)
				assert.Equal(t, "app-secret", pass)

				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"access_token":"a1","refresh_token":"` + tt.newRefresh + `","token_type":"bearer","expires_in":3600}`))
			}))
			defer srv.Close()

			client := testClient(t, Config{TokenURL: srv.URL})
			pair, err := client.RefreshToken(context.Background(), "r0")

			require.NoError(t, err)
			assert.Equal(t, "a1", pair.AccessToken)
			assert.Equal(t, tt.newRefresh, pair.RefreshToken)
			assert.Equal(t, tt.wantRotated, pair.Rotated)
		})
	}
}

func TestRefreshToken_ErrorBodyIsAuthErrorWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	client := testClient(t, Config{TokenURL: srv.URL})
	_, err := client.RefreshToken(context.Background(), "r0")

	var authErr *domain.AuthError
	require.True(t, errors.As(err, &authErr), "expected AuthError, got %v", err)
	assert.Contains(t, authErr.Msg, "invalid_grant")
	assert.Equal(t, int32(1), calls.Load(), "explicit error body must not be retried")
}

func TestRefreshToken_RetriesTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"a1","refresh_token":"r1"}`))
	}))
	defer srv.Close()

	client := testClient(t, Config{TokenURL: srv.URL})
	pair, err := client.RefreshToken(context.Background(), "r0")

	require.NoError(t, err)
	assert.Equal(t, "a1", pair.AccessToken)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSend_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/company/12345/journalentry", r.URL.Path)
		assert.Equal(t, minorVersion, r.URL.Query().Get("minorversion"))
		assert.Equal(t, "Bearer a1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"JournalEntry":{"Id":"99"}}`))
	}))
	defer srv.Close()

	client := testClient(t, Config{BaseURL: srv.URL})
	payload := domain.Payload{"TxnDate": "2024-05-01", "Line": []map[string]any{}}

	// Two identical sends: both succeed independently.
	for i := 0; i < 2; i++ {
		fault, err := client.Send(context.Background(), domain.JournalEntryCreate, "a1", payload)
		require.NoError(t, err)
		assert.Nil(t, fault)
	}
}

func TestSend_UnauthorizedIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	// Lenient policy must not downgrade a 401 to a row error.
	client := testClient(t, Config{BaseURL: srv.URL, Strict: false})
	fault, err := client.Send(context.Background(), domain.JournalEntryCreate, "stale", domain.Payload{})

	assert.Nil(t, fault)
	var authErr *domain.AuthError
	require.True(t, errors.As(err, &authErr), "expected AuthError, got %v", err)
}

func TestSend_FaultReturnedAsValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"Fault":{"Error":[{"Message":"Duplicate Document Number Error","Detail":"DocNumber exists"}]}}`))
	}))
	defer srv.Close()

	client := testClient(t, Config{BaseURL: srv.URL})
	fault, err := client.Send(context.Background(), domain.JournalEntryCreate, "a1", domain.Payload{})

	require.NoError(t, err)
	require.NotNil(t, fault)
	require.Len(t, fault.Errors, 1)
	assert.Equal(t, "Duplicate Document Number Error", fault.Errors[0].Message)
}

func TestSend_ServerErrorExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := testClient(t, Config{BaseURL: srv.URL})
	_, err := client.Send(context.Background(), domain.JournalEntryCreate, "a1", domain.Payload{})

	require.Error(t, err)
	assert.Equal(t, int32(sendAttempts), calls.Load())
}
