package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/iho/qbwriter/internal/domain"
)

// MockAPIClient is a mock implementation of usecase.APIClient.
type MockAPIClient struct {
	mu        sync.Mutex
	SendCalls []domain.Payload

	RefreshTokenFunc func(ctx context.Context, refreshToken string) (domain.TokenPair, error)
	SendFunc         func(ctx context.Context, op domain.Operation, accessToken string, payload domain.Payload) (*domain.Fault, error)
}

func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

func (m *MockAPIClient) RefreshToken(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	if m.RefreshTokenFunc != nil {
		return m.RefreshTokenFunc(ctx, refreshToken)
	}
	return domain.TokenPair{RefreshToken: refreshToken, AccessToken: "access"}, nil
}

func (m *MockAPIClient) Send(ctx context.Context, op domain.Operation, accessToken string, payload domain.Payload) (*domain.Fault, error) {
	m.mu.Lock()
	m.SendCalls = append(m.SendCalls, payload)
	m.mu.Unlock()

	if m.SendFunc != nil {
		return m.SendFunc(ctx, op, accessToken, payload)
	}
	return nil, nil
}

// MockInputReader is a mock implementation of usecase.InputReader serving
// fixed tables by path.
type MockInputReader struct {
	Tables map[string]MockTable

	ReadFunc func(path string) ([]string, []domain.Row, error)
}

type MockTable struct {
	Header []string
	Rows   []domain.Row
}

func NewMockInputReader() *MockInputReader {
	return &MockInputReader{Tables: make(map[string]MockTable)}
}

func (m *MockInputReader) Read(path string) ([]string, []domain.Row, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(path)
	}
	table := m.Tables[path]
	return table.Header, table.Rows, nil
}

// MockErrorSink records appended error records in memory.
type MockErrorSink struct {
	mu      sync.Mutex
	Records []domain.ErrorRecord

	AppendFunc func(rec domain.ErrorRecord) error
}

func NewMockErrorSink() *MockErrorSink {
	return &MockErrorSink{}
}

func (m *MockErrorSink) Append(rec domain.ErrorRecord) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(rec)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, rec)
	return nil
}

// MockStateStore records the last saved token.
type MockStateStore struct {
	SavedToken string
	SavedAt    time.Time
	Saves      int

	SaveFunc func(refreshToken string, ts time.Time) error
}

func NewMockStateStore() *MockStateStore {
	return &MockStateStore{}
}

func (m *MockStateStore) Save(refreshToken string, ts time.Time) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(refreshToken, ts)
	}
	m.SavedToken = refreshToken
	m.SavedAt = ts
	m.Saves++
	return nil
}

// MockRemoteStateStore records remote persistence calls.
type MockRemoteStateStore struct {
	PersistedToken string
	Persists       int

	PersistTokenFunc func(ctx context.Context, refreshToken string, ts time.Time) error
}

func NewMockRemoteStateStore() *MockRemoteStateStore {
	return &MockRemoteStateStore{}
}

func (m *MockRemoteStateStore) PersistToken(ctx context.Context, refreshToken string, ts time.Time) error {
	if m.PersistTokenFunc != nil {
		return m.PersistTokenFunc(ctx, refreshToken, ts)
	}
	m.PersistedToken = refreshToken
	m.Persists++
	return nil
}
