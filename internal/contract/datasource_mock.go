package contract

import (
	"context"

	"github.com/huangsam/devscore/schema"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of DataSource for testing.
type MockDataSource struct {
	mock.Mock
}

var _ DataSource = &MockDataSource{} // Compile-time check

// GetRateLimit implements the DataSource interface.
func (m *MockDataSource) GetRateLimit(ctx context.Context) (schema.RateLimit, error) {
	args := m.Called(ctx)
	return args.Get(0).(schema.RateLimit), args.Error(1)
}

// GetUser implements the DataSource interface.
func (m *MockDataSource) GetUser(ctx context.Context, username string) (schema.UserProfile, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(schema.UserProfile), args.Error(1)
}

// ListRepositories implements the DataSource interface.
func (m *MockDataSource) ListRepositories(ctx context.Context, username string) ([]schema.Repository, error) {
	args := m.Called(ctx, username)
	repos, _ := args.Get(0).([]schema.Repository)
	return repos, args.Error(1)
}

// GetContributionCalendar implements the DataSource interface.
func (m *MockDataSource) GetContributionCalendar(ctx context.Context, username string) (schema.ContributionCalendar, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(schema.ContributionCalendar), args.Error(1)
}

// GetPullRequestMetrics implements the DataSource interface.
func (m *MockDataSource) GetPullRequestMetrics(ctx context.Context, username string) (schema.PullRequestMetrics, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(schema.PullRequestMetrics), args.Error(1)
}

// ListOrganizations implements the DataSource interface.
func (m *MockDataSource) ListOrganizations(ctx context.Context, username string) ([]string, error) {
	args := m.Called(ctx, username)
	orgs, _ := args.Get(0).([]string)
	return orgs, args.Error(1)
}

// GetLanguages implements the DataSource interface.
func (m *MockDataSource) GetLanguages(ctx context.Context, owner, repo string) (map[string]int, error) {
	args := m.Called(ctx, owner, repo)
	langs, _ := args.Get(0).(map[string]int)
	return langs, args.Error(1)
}

// DetectFrameworks implements the DataSource interface.
func (m *MockDataSource) DetectFrameworks(ctx context.Context, owner, repo string) ([]string, error) {
	args := m.Called(ctx, owner, repo)
	fws, _ := args.Get(0).([]string)
	return fws, args.Error(1)
}

// GetReadme implements the DataSource interface.
func (m *MockDataSource) GetReadme(ctx context.Context, owner, repo string) (string, error) {
	args := m.Called(ctx, owner, repo)
	return args.String(0), args.Error(1)
}

// ListCommits implements the DataSource interface.
func (m *MockDataSource) ListCommits(ctx context.Context, owner, repo, author string, limit int) ([]schema.Commit, error) {
	args := m.Called(ctx, owner, repo, author, limit)
	commits, _ := args.Get(0).([]schema.Commit)
	return commits, args.Error(1)
}

// CountContributors implements the DataSource interface.
func (m *MockDataSource) CountContributors(ctx context.Context, owner, repo string) (int, error) {
	args := m.Called(ctx, owner, repo)
	return args.Int(0), args.Error(1)
}

// CountBranches implements the DataSource interface.
func (m *MockDataSource) CountBranches(ctx context.Context, owner, repo string) (int, error) {
	args := m.Called(ctx, owner, repo)
	return args.Int(0), args.Error(1)
}
