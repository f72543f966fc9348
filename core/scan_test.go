package core

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/internal/iocache"
	"github.com/huangsam/devscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testToken = "ghp_test"

func scanConfig() *contract.Config {
	return &contract.Config{
		Workers:          2,
		ModuleTimeout:    5 * time.Second,
		ScanTimeout:      30 * time.Second,
		MinRateRemaining: 100,
		TopRepos:         3,
		MaxAnalyzedRepos: 20,
	}
}

// newTestStores opens in-memory snapshot and event stores behind a fresh memory tier.
func newTestStores(t *testing.T) *iocache.CacheStoreManager {
	t.Helper()
	snaps, err := iocache.NewSnapshotStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	events, err := iocache.NewEventStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	mgr := iocache.NewCacheStoreManager(iocache.NewMemoryCache(time.Hour), snaps, events)
	t.Cleanup(mgr.Close)
	return mgr
}

func newTestScanner(mgr contract.CacheManager, source contract.DataSource) *Scanner {
	s := NewScanner(scanConfig(), func(string) (contract.DataSource, error) { return source, nil }, mgr)
	s.now = func() time.Time { return syncNow }
	return s
}

// emptyAccount mocks an account with no repositories and no activity.
func emptyAccount(user string) *contract.MockDataSource {
	source := &contract.MockDataSource{}
	source.On("GetRateLimit", mock.Anything).Return(schema.RateLimit{Limit: 5000, Remaining: 4900}, nil)
	source.On("GetUser", mock.Anything, user).Return(schema.UserProfile{Login: user}, nil)
	source.On("ListRepositories", mock.Anything, user).Return([]schema.Repository{}, nil)
	source.On("GetContributionCalendar", mock.Anything, user).Return(schema.ContributionCalendar{Days: []schema.ContributionDay{}}, nil)
	source.On("GetPullRequestMetrics", mock.Anything, user).Return(schema.PullRequestMetrics{}, nil)
	source.On("ListOrganizations", mock.Anything, user).Return([]string{}, nil)
	return source
}

// activeAccount mocks an account with two maintained repositories.
func activeAccount(user string) *contract.MockDataSource {
	return accountWithRepos(user, 2)
}

// accountWithRepos mocks an active account owning n repositories.
func accountWithRepos(user string, n int) *contract.MockDataSource {
	repos := makeRepos(n)
	for i := range repos {
		repos[i].Owner = user
		repos[i].License = "MIT"
		repos[i].Description = "tool"
	}
	days := make([]schema.ContributionDay, 0, 60)
	for i := range 60 {
		days = append(days, schema.ContributionDay{Date: syncNow.AddDate(0, 0, i-59), Count: 2})
	}

	source := &contract.MockDataSource{}
	source.On("GetRateLimit", mock.Anything).Return(schema.RateLimit{Limit: 5000, Remaining: 4900}, nil)
	source.On("GetUser", mock.Anything, user).Return(schema.UserProfile{Login: user, Followers: 40, CreatedAt: syncNow.AddDate(-6, 0, 0)}, nil)
	source.On("ListRepositories", mock.Anything, user).Return(repos, nil)
	source.On("GetContributionCalendar", mock.Anything, user).Return(schema.ContributionCalendar{TotalContributions: 120, TotalCommits: 120, Days: days}, nil)
	source.On("GetPullRequestMetrics", mock.Anything, user).Return(schema.PullRequestMetrics{Total: 10, Merged: 8}, nil)
	source.On("ListOrganizations", mock.Anything, user).Return([]string{"acme"}, nil)
	source.On("GetLanguages", mock.Anything, user, mock.Anything).Return(map[string]int{"Go": 100}, nil)
	source.On("DetectFrameworks", mock.Anything, user, mock.Anything).Return([]string{"cobra"}, nil)
	source.On("GetReadme", mock.Anything, user, mock.Anything).Return(sampleReadme, nil)
	source.On("CountContributors", mock.Anything, user, mock.Anything).Return(3, nil)
	source.On("CountBranches", mock.Anything, user, mock.Anything).Return(2, nil)
	source.On("ListCommits", mock.Anything, user, mock.Anything, user, commitsPerRepo).Return([]schema.Commit{
		{SHA: "c1", Message: "feat: add scoring engine", AuthoredAt: syncNow},
	}, nil)
	return source
}

func TestScan_EmptyAccount(t *testing.T) {
	mgr := newTestStores(t)
	s := newTestScanner(mgr, emptyAccount("ghost"))

	resp, err := s.Scan(context.Background(), schema.ScanRequest{Username: "Ghost", Token: testToken})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, schema.PartialStatus, resp.Status)
	assert.Equal(t, 0, resp.TotalRepos)
	require.NotNil(t, resp.Score)
	assert.Equal(t, 0.0, resp.Score.Composite)
	assert.Equal(t, schema.GradeF, resp.Score.Grade)
	assert.Equal(t, 4, resp.Score.FallbackCount())
	assert.True(t, resp.Persisted)

	stored, err := mgr.GetSnapshotStore().Get(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, stored.HasComponents())
	require.NotNil(t, stored.Score)
	assert.Equal(t, 0.0, *stored.Score)

	events, err := mgr.GetEventStore().ListEvents(context.Background(), "ghost", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, schema.FullScan, events[0].Mode)
	assert.Equal(t, schema.PartialStatus, events[0].Status)
	assert.NotEmpty(t, events[0].EventID)
}

func TestScan_FullAnalysis(t *testing.T) {
	mgr := newTestStores(t)
	source := activeAccount("octocat")
	s := newTestScanner(mgr, source)

	resp, err := s.Scan(context.Background(), schema.ScanRequest{Username: "octocat", Token: testToken})
	require.NoError(t, err)

	assert.Equal(t, schema.ComputedStatus, resp.Status)
	assert.Equal(t, 4, resp.Bundle.ComputedCount())
	assert.Zero(t, resp.Score.FallbackCount())
	assert.Greater(t, resp.Score.Composite, 0.0)
	assert.Empty(t, resp.Warnings)
	require.NotNil(t, resp.RateLimit)
	assert.Equal(t, 4900, resp.RateLimit.Remaining)

	stored, err := mgr.GetSnapshotStore().Get(context.Background(), "octocat")
	require.NoError(t, err)
	assert.Len(t, stored.Components, 4)
	for _, record := range stored.Components {
		assert.False(t, record.ScannedAt.Before(stored.ScannedAt))
	}
	assert.Equal(t, 2, stored.CachedRepoCount)
	assert.Equal(t, map[string]float64{"Go": 100}, stored.Languages)
	assert.Equal(t, []string{"acme"}, stored.Organizations)
	assert.Equal(t, resp.Score.Grade, stored.Grade)

	// Same repository count: slow categories are reused, modules come from memory
	_, err = s.Scan(context.Background(), schema.ScanRequest{Username: "octocat", Token: testToken})
	require.NoError(t, err)
	source.AssertNumberOfCalls(t, "GetLanguages", 2)
	source.AssertNumberOfCalls(t, "ListOrganizations", 1)
	source.AssertNumberOfCalls(t, "GetReadme", 2)
}

func TestScan_FreshClearsStoredAnalyses(t *testing.T) {
	mgr := newTestStores(t)
	source := activeAccount("octocat")
	s := newTestScanner(mgr, source)
	ctx := context.Background()

	_, err := s.Scan(ctx, schema.ScanRequest{Username: "octocat", Token: testToken})
	require.NoError(t, err)

	resp, err := s.Scan(ctx, schema.ScanRequest{Username: "octocat", Token: testToken, Fresh: true})
	require.NoError(t, err)
	assert.Equal(t, schema.ComputedStatus, resp.Status)

	// Modules ran again instead of being served from memory
	source.AssertNumberOfCalls(t, "GetReadme", 4)
	source.AssertNumberOfCalls(t, "CountBranches", 4)
}

func TestScan_FastThenAnalyze(t *testing.T) {
	mgr := newTestStores(t)
	source := activeAccount("octocat")
	s := newTestScanner(mgr, source)
	ctx := context.Background()

	fast, err := s.Scan(ctx, schema.ScanRequest{Username: "octocat", Token: testToken, Fast: true})
	require.NoError(t, err)
	assert.Equal(t, schema.PartialStatus, fast.Status)
	assert.Equal(t, 4, fast.Score.FallbackCount())
	source.AssertNotCalled(t, "GetReadme", mock.Anything, mock.Anything, mock.Anything)

	stored, err := mgr.GetSnapshotStore().Get(ctx, "octocat")
	require.NoError(t, err)
	assert.False(t, stored.HasComponents())
	scannedAt := stored.ScannedAt

	later := syncNow.Add(time.Hour)
	s.now = func() time.Time { return later }
	analyzed, err := s.Analyze(ctx, schema.ScanRequest{Username: "octocat", Token: testToken})
	require.NoError(t, err)
	assert.Equal(t, schema.ComputedStatus, analyzed.Status)

	stored, err = mgr.GetSnapshotStore().Get(ctx, "octocat")
	require.NoError(t, err)
	assert.Len(t, stored.Components, 4)
	assert.True(t, stored.ScannedAt.Equal(scannedAt), "analysis keeps the scan time")
	for _, record := range stored.Components {
		assert.True(t, record.ScannedAt.Equal(later))
	}
	source.AssertNumberOfCalls(t, "GetUser", 1)
	source.AssertNumberOfCalls(t, "ListRepositories", 2)

	events, err := mgr.GetEventStore().ListEvents(ctx, "octocat", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, schema.DeferredScan, events[0].Mode)
	assert.Equal(t, schema.FastScan, events[1].Mode)
}

func TestAnalyze_WithoutSnapshot(t *testing.T) {
	s := newTestScanner(newTestStores(t), activeAccount("octocat"))

	resp, err := s.Analyze(context.Background(), schema.ScanRequest{Username: "octocat", Token: testToken})
	assert.ErrorIs(t, err, contract.ErrNoSnapshot)
	assert.Equal(t, schema.FailedStatus, resp.Status)
}

func TestScan_PersistenceFailureStillAnswers(t *testing.T) {
	store := &iocache.MockSnapshotStore{}
	store.On("Get", mock.Anything, "ghost").Return(nil, contract.ErrNoSnapshot)
	store.On("ListScores", mock.Anything, "ghost").Return([]float64{}, nil)
	store.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	events := &iocache.MockEventStore{}
	events.On("Append", mock.Anything, mock.Anything).Return(nil)
	mgr := iocache.NewCacheStoreManager(iocache.NewMemoryCache(time.Hour), store, events)

	s := newTestScanner(mgr, emptyAccount("ghost"))
	resp, err := s.Scan(context.Background(), schema.ScanRequest{Username: "ghost", Token: testToken})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.False(t, resp.Persisted)
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "snapshot not persisted")

	// The memory tier still serves the result
	cached, err := s.Score(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, resp.Score.Composite, cached.Score.Composite)
	assert.False(t, cached.Persisted)
	store.AssertNumberOfCalls(t, "Get", 1)

	events.AssertCalled(t, "Append", mock.Anything, mock.MatchedBy(func(e schema.ScanEvent) bool {
		return e.UserID == "ghost" && !e.Persisted && e.Score != nil
	}))
}

func TestScan_RateLimited(t *testing.T) {
	mgr := newTestStores(t)
	source := &contract.MockDataSource{}
	source.On("GetRateLimit", mock.Anything).Return(schema.RateLimit{Limit: 5000, Remaining: 50, Reset: syncNow.Add(time.Hour)}, nil)
	s := newTestScanner(mgr, source)

	resp, err := s.Scan(context.Background(), schema.ScanRequest{Username: "octocat", Token: testToken})

	require.ErrorIs(t, err, contract.ErrRateLimited)
	var rle *contract.RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, 50, rle.Remaining)
	assert.Equal(t, schema.FailedStatus, resp.Status)
	require.NotNil(t, resp.RateLimit)
	assert.Equal(t, 50, resp.RateLimit.Remaining)
	source.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)

	_, err = mgr.GetSnapshotStore().Get(context.Background(), "octocat")
	assert.ErrorIs(t, err, contract.ErrNoSnapshot)

	events, err := mgr.GetEventStore().ListEvents(context.Background(), "octocat", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, schema.FailedStatus, events[0].Status)
	assert.Nil(t, events[0].Score)
}

func TestScan_Unauthorized(t *testing.T) {
	mgr := newTestStores(t)
	called := false
	s := NewScanner(scanConfig(), func(string) (contract.DataSource, error) {
		called = true
		return nil, errors.New("unexpected")
	}, mgr)

	resp, err := s.Scan(context.Background(), schema.ScanRequest{Username: "octocat", Token: "  "})
	assert.ErrorIs(t, err, contract.ErrUnauthorized)
	assert.Equal(t, schema.FailedStatus, resp.Status)
	assert.False(t, called)

	source := &contract.MockDataSource{}
	source.On("GetRateLimit", mock.Anything).Return(schema.RateLimit{}, contract.ErrUnauthorized)
	s = newTestScanner(mgr, source)
	_, err = s.Scan(context.Background(), schema.ScanRequest{Username: "octocat", Token: "revoked"})
	assert.ErrorIs(t, err, contract.ErrUnauthorized)
}

func TestScan_DegradesOnCalendarFailure(t *testing.T) {
	mgr := newTestStores(t)
	source := &contract.MockDataSource{}
	source.On("GetRateLimit", mock.Anything).Return(schema.RateLimit{Limit: 5000, Remaining: 4900}, nil)
	source.On("GetUser", mock.Anything, "ghost").Return(schema.UserProfile{Login: "ghost"}, nil)
	source.On("ListRepositories", mock.Anything, "ghost").Return([]schema.Repository{}, nil)
	source.On("GetContributionCalendar", mock.Anything, "ghost").Return(schema.ContributionCalendar{}, errors.New("graphql error"))
	source.On("GetPullRequestMetrics", mock.Anything, "ghost").Return(schema.PullRequestMetrics{}, nil)
	source.On("ListOrganizations", mock.Anything, "ghost").Return([]string{}, nil)
	s := newTestScanner(mgr, source)

	resp, err := s.Scan(context.Background(), schema.ScanRequest{Username: "ghost", Token: testToken})
	require.NoError(t, err)
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "contribution calendar unavailable")

	// A quota error is not degraded
	source = &contract.MockDataSource{}
	source.On("GetRateLimit", mock.Anything).Return(schema.RateLimit{Limit: 5000, Remaining: 4900}, nil)
	source.On("GetUser", mock.Anything, "ghost").Return(schema.UserProfile{Login: "ghost"}, nil)
	source.On("ListRepositories", mock.Anything, "ghost").Return([]schema.Repository{}, nil)
	source.On("GetContributionCalendar", mock.Anything, "ghost").Return(schema.ContributionCalendar{}, contract.ErrRateLimited)
	s = newTestScanner(mgr, source)

	_, err = s.Scan(context.Background(), schema.ScanRequest{Username: "ghost", Token: testToken})
	assert.ErrorIs(t, err, contract.ErrRateLimited)
}

func TestScan_PercentileAgainstOtherUsers(t *testing.T) {
	mgr := newTestStores(t)
	ctx := context.Background()

	_, err := newTestScanner(mgr, emptyAccount("ghost")).Scan(ctx, schema.ScanRequest{Username: "ghost", Token: testToken})
	require.NoError(t, err)

	resp, err := newTestScanner(mgr, activeAccount("octocat")).Scan(ctx, schema.ScanRequest{Username: "octocat", Token: testToken})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Score.PopulationSize)
	assert.Equal(t, 100.0, resp.Score.Percentile)
}

func TestScore(t *testing.T) {
	mgr := newTestStores(t)
	source := activeAccount("octocat")
	s := newTestScanner(mgr, source)
	ctx := context.Background()

	_, err := s.Score(ctx, "octocat")
	assert.ErrorIs(t, err, contract.ErrNoSnapshot)
	_, err = s.Score(ctx, " ")
	assert.ErrorIs(t, err, contract.ErrUsernameRequired)

	scanned, err := s.Scan(ctx, schema.ScanRequest{Username: "octocat", Token: testToken})
	require.NoError(t, err)
	calls := len(source.Calls)

	// Served from the snapshot once the memory tier is dropped
	require.NoError(t, s.Invalidate("OctoCat"))
	assert.ErrorIs(t, s.Invalidate(" "), contract.ErrUsernameRequired)
	scored, err := s.Score(ctx, "OctoCat")
	require.NoError(t, err)
	assert.Equal(t, scanned.Score.Composite, scored.Score.Composite)
	assert.Equal(t, scanned.Score.Grade, scored.Score.Grade)
	assert.Equal(t, schema.ComputedStatus, scored.Status)
	assert.Len(t, source.Calls, calls, "scores are read without external calls")
}

func TestReset(t *testing.T) {
	mgr := newTestStores(t)
	s := newTestScanner(mgr, activeAccount("octocat"))
	ctx := context.Background()

	_, err := s.Scan(ctx, schema.ScanRequest{Username: "octocat", Token: testToken})
	require.NoError(t, err)
	require.NoError(t, s.Reset(ctx, "octocat"))

	stored, err := mgr.GetSnapshotStore().Get(ctx, "octocat")
	require.NoError(t, err)
	assert.False(t, stored.HasComponents())
	assert.False(t, mgr.GetMemoryCache().Has(schema.CacheKey(schema.CompositeCategory, "octocat")))
	assert.ErrorIs(t, s.Reset(ctx, ""), contract.ErrUsernameRequired)
}

func TestScan_RequiresUsername(t *testing.T) {
	s := newTestScanner(newTestStores(t), emptyAccount("ghost"))
	_, err := s.Scan(context.Background(), schema.ScanRequest{Token: testToken})
	assert.ErrorIs(t, err, contract.ErrUsernameRequired)
}

func TestCheckBudget(t *testing.T) {
	assert.NoError(t, checkBudget(schema.RateLimit{}, 1000, 100), "no reported limit")
	assert.NoError(t, checkBudget(schema.RateLimit{Limit: 5000, Remaining: 300}, 200, 100))
	assert.ErrorIs(t, checkBudget(schema.RateLimit{Limit: 5000, Remaining: 299}, 200, 100), contract.ErrRateLimited)
}

func TestEstimateCost(t *testing.T) {
	s := NewScanner(scanConfig(), nil, nil)
	prev := &schema.Snapshot{CachedRepoCount: 5}

	assert.Equal(t, baseCallCost+syncCallsPerRepo*20+moduleCallsPerRepo*20, s.estimateCost(schema.FullScan, nil))
	assert.Equal(t, baseCallCost+moduleCallsPerRepo*5, s.estimateCost(schema.FullScan, prev))
	assert.Equal(t, baseCallCost, s.estimateCost(schema.FastScan, prev))
	assert.Equal(t, 1+moduleCallsPerRepo*5, s.estimateCost(schema.DeferredScan, prev))
}

func TestScan_FreshWithoutStoredSnapshot(t *testing.T) {
	snaps, err := iocache.NewSnapshotStore(schema.NoneBackend, "")
	require.NoError(t, err)
	events, err := iocache.NewEventStore(schema.NoneBackend, "")
	require.NoError(t, err)
	mgr := iocache.NewCacheStoreManager(iocache.NewMemoryCache(time.Hour), snaps, events)
	source := activeAccount("octocat")
	s := newTestScanner(mgr, source)
	ctx := context.Background()

	_, err = s.Scan(ctx, schema.ScanRequest{Username: "octocat", Token: testToken})
	require.NoError(t, err)
	resp, err := s.Scan(ctx, schema.ScanRequest{Username: "octocat", Token: testToken, Fresh: true})
	require.NoError(t, err)

	assert.Equal(t, schema.ComputedStatus, resp.Status)
	source.AssertNumberOfCalls(t, "GetReadme", 4)
}

func TestScan_RepositoryCountChangeRecomputesModules(t *testing.T) {
	mgr := newTestStores(t)
	ctx := context.Background()

	_, err := newTestScanner(mgr, accountWithRepos("octocat", 2)).Scan(ctx, schema.ScanRequest{Username: "octocat", Token: testToken})
	require.NoError(t, err)

	source := accountWithRepos("octocat", 3)
	resp, err := newTestScanner(mgr, source).Scan(ctx, schema.ScanRequest{Username: "octocat", Token: testToken})
	require.NoError(t, err)

	assert.Equal(t, 3, resp.TotalRepos)
	assert.Equal(t, 3, resp.Snapshot.CachedRepoCount)
	doc, ok := resp.Bundle.Documentation.Get()
	require.True(t, ok)
	assert.Equal(t, 3, doc.ReposAnalyzed)
	health, ok := resp.Bundle.Health.Get()
	require.True(t, ok)
	assert.Equal(t, 3, health.ReposAnalyzed)
	source.AssertNumberOfCalls(t, "GetReadme", 3)
}

func TestScan_Deterministic(t *testing.T) {
	scanOnce := func() *schema.ScanResponse {
		resp, err := newTestScanner(newTestStores(t), activeAccount("octocat")).
			Scan(context.Background(), schema.ScanRequest{Username: "octocat", Token: testToken})
		require.NoError(t, err)
		return resp
	}

	first, second := scanOnce(), scanOnce()

	require.NotNil(t, first.Score)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Score.Composite, second.Score.Composite)
	assert.Equal(t, first.Score.Percentile, second.Score.Percentile)
	for _, kind := range schema.AllComponents {
		a, okA := first.Bundle.Payload(kind)
		b, okB := second.Bundle.Payload(kind)
		require.True(t, okA && okB, "kind %s computed", kind)
		assert.Equal(t, a, b, "kind %s", kind)
	}
}

func TestScan_JoinedCallerOutlivesFirstCaller(t *testing.T) {
	mgr := newTestStores(t)
	started := make(chan struct{}, 1)
	release := make(chan struct{})

	source := &contract.MockDataSource{}
	source.On("GetRateLimit", mock.Anything).Return(schema.RateLimit{Limit: 5000, Remaining: 4900}, nil)
	source.On("GetUser", mock.Anything, "ghost").Run(func(mock.Arguments) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	}).Return(schema.UserProfile{Login: "ghost"}, nil)
	source.On("ListRepositories", mock.Anything, "ghost").Return([]schema.Repository{}, nil)
	source.On("GetContributionCalendar", mock.Anything, "ghost").Return(schema.ContributionCalendar{Days: []schema.ContributionDay{}}, nil)
	source.On("GetPullRequestMetrics", mock.Anything, "ghost").Return(schema.PullRequestMetrics{}, nil)
	source.On("ListOrganizations", mock.Anything, "ghost").Return([]string{}, nil)
	s := newTestScanner(mgr, source)
	req := schema.ScanRequest{Username: "ghost", Token: testToken}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := s.Scan(firstCtx, req)
		firstErr <- err
	}()
	<-started

	var joinedOK atomic.Bool
	joined := make(chan struct{})
	go func() {
		defer close(joined)
		resp, err := s.Scan(context.Background(), req)
		joinedOK.Store(err == nil && resp != nil && resp.Success)
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	select {
	case <-joined:
	case <-time.After(5 * time.Second):
		t.Fatal("joined caller never returned")
	}
	assert.True(t, joinedOK.Load())
	source.AssertNumberOfCalls(t, "GetUser", 1)
}
