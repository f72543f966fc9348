package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockScanner struct {
	mock.Mock
}

var _ Scanner = &mockScanner{} // Compile-time check

func (m *mockScanner) Scan(ctx context.Context, req schema.ScanRequest) (*schema.ScanResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*schema.ScanResponse)
	return resp, args.Error(1)
}

func (m *mockScanner) Analyze(ctx context.Context, req schema.ScanRequest) (*schema.ScanResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*schema.ScanResponse)
	return resp, args.Error(1)
}

func (m *mockScanner) Score(ctx context.Context, username string) (*schema.ScanResponse, error) {
	args := m.Called(ctx, username)
	resp, _ := args.Get(0).(*schema.ScanResponse)
	return resp, args.Error(1)
}

func (m *mockScanner) Invalidate(username string) error {
	return m.Called(username).Error(0)
}

func (m *mockScanner) Reset(ctx context.Context, username string) error {
	return m.Called(ctx, username).Error(0)
}

func computedResponse() *schema.ScanResponse {
	return &schema.ScanResponse{
		Success:    true,
		Status:     schema.ComputedStatus,
		TotalRepos: 12,
		Score:      &schema.ScoreResult{Composite: 72.5, Grade: schema.GradeB, Percentile: 50, PopulationSize: 4},
		Persisted:  true,
	}
}

func do(t *testing.T, s *Server, method, target, token string) (*httptest.ResponseRecorder, schema.ScanResponse) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var body schema.ScanResponse
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewServer(&mockScanner{}).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestScan(t *testing.T) {
	scanner := &mockScanner{}
	scanner.On("Scan", mock.Anything, schema.ScanRequest{Username: "octocat", Token: "ghp_x", Fast: true, Fresh: false}).
		Return(computedResponse(), nil)

	rec, body := do(t, NewServer(scanner), http.MethodPost, "/api/v1/users/octocat/scan?fast=true&fresh=nope", "ghp_x")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.Equal(t, schema.GradeB, body.Score.Grade)
	assert.Equal(t, 72.5, body.Score.Composite)
	scanner.AssertExpectations(t)
}

func TestScan_MissingToken(t *testing.T) {
	scanner := &mockScanner{}
	for _, header := range []string{"", "Basic abc", "Bearer   "} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/octocat/scan", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		NewServer(scanner).Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
	scanner.AssertNotCalled(t, "Scan", mock.Anything, mock.Anything)
}

func TestScan_RateLimited(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	rle := &contract.RateLimitError{Reason: "scan needs about 128 calls", Limit: 5000, Remaining: 50, Reset: now.Add(90*time.Second + 200*time.Millisecond)}
	failed := &schema.ScanResponse{Status: schema.FailedStatus, Error: rle.Error(), RateLimit: &schema.RateLimit{Limit: 5000, Remaining: 50}}

	scanner := &mockScanner{}
	scanner.On("Scan", mock.Anything, mock.Anything).Return(failed, rle)
	s := NewServer(scanner)
	s.now = func() time.Time { return now }

	rec, body := do(t, s, http.MethodPost, "/api/v1/users/octocat/scan", "ghp_x")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "91", rec.Header().Get("Retry-After"))
	assert.False(t, body.Success)
	assert.Equal(t, schema.FailedStatus, body.Status)
	assert.Equal(t, 50, body.RateLimit.Remaining)
	assert.Contains(t, body.Error, "rate limited")
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{contract.ErrUnauthorized, http.StatusUnauthorized},
		{&contract.RateLimitError{}, http.StatusTooManyRequests},
		{contract.ErrNoSnapshot, http.StatusNotFound},
		{contract.ErrUserNotFound, http.StatusNotFound},
		{contract.ErrUsernameRequired, http.StatusBadRequest},
		{errors.New("database is locked"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusCode(tt.err))
		})
	}
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	s := NewServer(&mockScanner{})
	s.now = func() time.Time { return now }

	assert.Equal(t, 60, s.retryAfter(contract.ErrRateLimited))
	assert.Equal(t, 1, s.retryAfter(&contract.RateLimitError{Reset: now.Add(-time.Minute)}))
	assert.Equal(t, 3600, s.retryAfter(&contract.RateLimitError{Reset: now.Add(time.Hour)}))
}

func TestAnalysis(t *testing.T) {
	scanner := &mockScanner{}
	scanner.On("Analyze", mock.Anything, schema.ScanRequest{Username: "octocat", Token: "ghp_x"}).
		Return(&schema.ScanResponse{Status: schema.FailedStatus}, contract.ErrNoSnapshot)

	rec, body := do(t, NewServer(scanner), http.MethodPost, "/api/v1/users/octocat/analysis", "ghp_x")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, contract.ErrNoSnapshot.Error(), body.Error)
}

func TestScore(t *testing.T) {
	scanner := &mockScanner{}
	scanner.On("Score", mock.Anything, "octocat").Return(computedResponse(), nil)

	rec, body := do(t, NewServer(scanner), http.MethodGet, "/api/v1/users/octocat/score", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, body.Score.PopulationSize)
}

func TestScore_UnexpectedError(t *testing.T) {
	scanner := &mockScanner{}
	scanner.On("Score", mock.Anything, "octocat").Return(nil, errors.New("database is locked"))

	rec, body := do(t, NewServer(scanner), http.MethodGet, "/api/v1/users/octocat/score", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, schema.FailedStatus, body.Status)
	assert.Equal(t, "database is locked", body.Error)
}

func TestInvalidate(t *testing.T) {
	scanner := &mockScanner{}
	scanner.On("Invalidate", "octocat").Return(nil)

	rec := httptest.NewRecorder()
	NewServer(scanner).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/users/octocat/cache", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	scanner.AssertExpectations(t)
	scanner.AssertNotCalled(t, "Reset", mock.Anything, mock.Anything)
}

func TestReset(t *testing.T) {
	scanner := &mockScanner{}
	scanner.On("Reset", mock.Anything, "octocat").Return(nil)

	rec := httptest.NewRecorder()
	NewServer(scanner).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/users/octocat/analysis", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	scanner.AssertExpectations(t)
	scanner.AssertNotCalled(t, "Invalidate", mock.Anything)
}

func TestUnknownRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	NewServer(&mockScanner{}).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/octocat/scan", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestListenAndServe_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer(&mockScanner{}).ListenAndServe(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
