package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/internal/iocache"
	"github.com/huangsam/devscore/schema"
	"golang.org/x/sync/singleflight"
)

// Estimated external calls, used to check the rate-limit budget up front.
const (
	baseCallCost       = 8 // profile, repositories, calendar, four searches, organizations
	syncCallsPerRepo   = 2
	moduleCallsPerRepo = 4 // readme, contributors, branches, commits
)

// Scanner runs the scan pipeline for any number of users.
// It is safe for concurrent use; concurrent scans of the same user and mode are collapsed.
type Scanner struct {
	cfg     *contract.Config
	factory contract.DataSourceFactory
	caches  contract.CacheManager
	now     func() time.Time
	group   singleflight.Group
}

// NewScanner creates a scanner. factory binds a data source to each request's token.
func NewScanner(cfg *contract.Config, factory contract.DataSourceFactory, caches contract.CacheManager) *Scanner {
	return &Scanner{cfg: cfg, factory: factory, caches: caches, now: time.Now}
}

// scanRun carries the state of one pipeline execution.
type scanRun struct {
	username string
	mode     schema.ScanMode
	started  time.Time
	source   contract.DataSource
	rate     schema.RateLimit
	warnings []string
}

func (r *scanRun) warn(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

// Scan fetches the user's footprint, refreshes stale categories, analyzes and scores it.
// With req.Fast the counters and a fallback score are persisted and the modules are left
// to Analyze. With req.Fresh the stored component payloads are cleared first.
func (s *Scanner) Scan(ctx context.Context, req schema.ScanRequest) (*schema.ScanResponse, error) {
	mode := schema.FullScan
	if req.Fast {
		mode = schema.FastScan
	}
	return s.do(ctx, req, mode, s.scan)
}

// Analyze runs the analysis modules against the stored snapshot, completing a fast scan.
func (s *Scanner) Analyze(ctx context.Context, req schema.ScanRequest) (*schema.ScanResponse, error) {
	return s.do(ctx, req, schema.DeferredScan, s.analyze)
}

type pipeline func(ctx context.Context, run *scanRun, req schema.ScanRequest) (*schema.ScanResponse, error)

// do validates the request, deduplicates it and records the scan event.
func (s *Scanner) do(ctx context.Context, req schema.ScanRequest, mode schema.ScanMode, fn pipeline) (*schema.ScanResponse, error) {
	username := schema.NormalizeUser(req.Username)
	if username == "" {
		return nil, contract.ErrUsernameRequired
	}
	if strings.TrimSpace(req.Token) == "" {
		return failedResponse(contract.ErrUnauthorized, nil), contract.ErrUnauthorized
	}

	key := fmt.Sprintf("%s|%s|%t", username, mode, req.Fresh)
	ch := s.group.DoChan(key, func() (any, error) {
		// Shared by joined callers; not cancelled with the caller that started it
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.scanTimeout())
		defer cancel()
		ctx = withScanID(ctx, uuid.NewString())
		run := &scanRun{username: username, mode: mode, started: s.now()}

		resp, err := fn(ctx, run, req)
		if err != nil {
			err = s.abortError(ctx, run, err)
			resp = failedResponse(err, run)
		}
		s.recordEvent(ctx, run, resp, err)
		return resp, err
	})

	select {
	case res := <-ch:
		resp, _ := res.Val.(*schema.ScanResponse)
		if resp != nil {
			own := *resp // callers may edit the top-level fields
			resp = &own
		}
		return resp, res.Err
	case <-ctx.Done():
		return failedResponse(ctx.Err(), nil), ctx.Err()
	}
}

// scan is the full and fast pipeline, in strict order.
func (s *Scanner) scan(ctx context.Context, run *scanRun, req schema.ScanRequest) (*schema.ScanResponse, error) {
	prev := s.previousSnapshot(ctx, run)
	if err := s.open(ctx, run, req.Token, s.estimateCost(run.mode, prev)); err != nil {
		return nil, err
	}

	if req.Fresh {
		iocache.InvalidateUser(s.caches.GetMemoryCache(), run.username)
		if prev != nil {
			logProgress(ctx, "Clearing stored analyses of %s", run.username)
			if err := s.caches.GetSnapshotStore().ClearComponents(ctx, run.username); err != nil {
				run.warn("failed to clear stored analyses: %v", err)
			}
			prev.Components = nil
		}
	}

	in, err := s.fetch(ctx, run)
	if err != nil {
		return nil, err
	}

	now := s.now()
	synced := NewSyncController(run.source, s.cfg.Workers, s.cfg.DetectUpdates).Sync(ctx, run.username, in.repos, prev, now)
	run.warnings = append(run.warnings, synced.Warnings...)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ds := buildDataset(run.username, in, synced, now)

	bundle := deferredBundle()
	if run.mode == schema.FullScan {
		logProgress(ctx, "Analyzing %d repositories of %s", len(in.repos), run.username)
		bundle = NewOrchestrator(s.cfg, run.source, s.caches.GetMemoryCache()).Run(ctx, ds)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	snap := newSnapshot(ds, synced, s.topRepos())
	return s.finish(ctx, run, snap, bundle, now)
}

// analyze is the deferred pipeline. Only the repository list is re-fetched.
func (s *Scanner) analyze(ctx context.Context, run *scanRun, req schema.ScanRequest) (*schema.ScanResponse, error) {
	prev, err := s.caches.GetSnapshotStore().Get(ctx, run.username)
	if err != nil {
		return nil, err
	}
	if err := s.open(ctx, run, req.Token, s.estimateCost(run.mode, prev)); err != nil {
		return nil, err
	}

	repos, err := run.source.ListRepositories(ctx, run.username)
	if err != nil {
		return nil, err
	}
	now := s.now()
	ds := datasetFromSnapshot(prev, repos, now)
	bundle := NewOrchestrator(s.cfg, run.source, s.caches.GetMemoryCache()).Run(ctx, ds)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.finish(ctx, run, prev, bundle, now)
}

// Score returns the stored score of a user without any external call.
// The memory tier is consulted first, then the snapshot.
func (s *Scanner) Score(ctx context.Context, username string) (*schema.ScanResponse, error) {
	username = schema.NormalizeUser(username)
	if username == "" {
		return nil, contract.ErrUsernameRequired
	}

	memory := s.caches.GetMemoryCache()
	key := schema.CacheKey(schema.CompositeCategory, username)
	if raw, ok := memory.Get(key); ok {
		var resp schema.ScanResponse
		if err := json.Unmarshal(raw, &resp); err == nil {
			return &resp, nil
		}
		memory.Delete(key)
	}

	snap, err := s.caches.GetSnapshotStore().Get(ctx, username)
	if err != nil {
		return nil, err
	}
	population, err := s.caches.GetSnapshotStore().ListScores(ctx, username)
	if err != nil {
		population = nil
	}
	bundle := bundleFromSnapshot(snap)
	result := ComputeScore(bundle, &snap.Counters, population)

	resp := &schema.ScanResponse{
		Success:    true,
		Status:     statusOf(&result),
		TotalRepos: snap.Counters.TotalRepos,
		Snapshot:   snap,
		Score:      &result,
		Bundle:     bundle,
		Persisted:  true,
	}
	s.cacheResponse(username, resp)
	return resp, nil
}

// Invalidate drops every memory tier entry of a user. Stored snapshots are untouched.
func (s *Scanner) Invalidate(username string) error {
	username = schema.NormalizeUser(username)
	if username == "" {
		return contract.ErrUsernameRequired
	}
	iocache.InvalidateUser(s.caches.GetMemoryCache(), username)
	return nil
}

// Reset nulls the stored component payloads of a user and drops the cached entries.
func (s *Scanner) Reset(ctx context.Context, username string) error {
	username = schema.NormalizeUser(username)
	if username == "" {
		return contract.ErrUsernameRequired
	}
	iocache.InvalidateUser(s.caches.GetMemoryCache(), username)
	return s.caches.GetSnapshotStore().ClearComponents(ctx, username)
}

// open binds the data source and checks the rate-limit budget before any other call.
func (s *Scanner) open(ctx context.Context, run *scanRun, token string, cost int) error {
	source, err := s.factory(token)
	if err != nil {
		return fmt.Errorf("failed to create data source: %w", err)
	}
	run.source = source

	rate, err := source.GetRateLimit(ctx)
	if err != nil {
		return err
	}
	run.rate = rate
	return checkBudget(rate, cost, s.cfg.MinRateRemaining)
}

// checkBudget fails when the estimated cost would leave fewer than minRemaining calls.
// A zero limit means the server does not report one.
func checkBudget(rate schema.RateLimit, cost, minRemaining int) error {
	if rate.Limit == 0 {
		return nil
	}
	if rate.Remaining-cost < minRemaining {
		return &contract.RateLimitError{
			Reason:    fmt.Sprintf("scan needs about %d calls", cost),
			Limit:     rate.Limit,
			Remaining: rate.Remaining,
			Reset:     rate.Reset,
		}
	}
	return nil
}

// estimateCost approximates the external calls of a scan.
func (s *Scanner) estimateCost(mode schema.ScanMode, prev *schema.Snapshot) int {
	repos := s.cfg.MaxAnalyzedRepos
	if prev != nil && prev.CachedRepoCount < repos {
		repos = prev.CachedRepoCount
	}
	cost := 0
	if mode != schema.DeferredScan {
		cost += baseCallCost
		if prev == nil {
			cost += syncCallsPerRepo * repos
		}
	} else {
		cost++ // repository listing
	}
	if mode != schema.FastScan {
		cost += moduleCallsPerRepo * repos
	}
	return cost
}

// previousSnapshot loads the stored snapshot. A store failure is a warning, not an abort.
func (s *Scanner) previousSnapshot(ctx context.Context, run *scanRun) *schema.Snapshot {
	prev, err := s.caches.GetSnapshotStore().Get(ctx, run.username)
	if errors.Is(err, contract.ErrNoSnapshot) {
		return nil
	}
	if err != nil {
		run.warn("failed to read previous snapshot: %v", err)
		return nil
	}
	return prev
}

// fetch pulls the account-level data. Calendar and search failures degrade to empty
// values unless they are credential or quota errors.
func (s *Scanner) fetch(ctx context.Context, run *scanRun) (fetched, error) {
	var in fetched
	var err error

	logProgress(ctx, "Fetching profile and repositories of %s", run.username)
	if in.profile, err = run.source.GetUser(ctx, run.username); err != nil {
		return fetched{}, err
	}
	if in.repos, err = run.source.ListRepositories(ctx, run.username); err != nil {
		return fetched{}, err
	}

	if in.calendar, err = run.source.GetContributionCalendar(ctx, run.username); err != nil {
		if isAbortError(ctx, err) {
			return fetched{}, err
		}
		run.warn("contribution calendar unavailable: %v", err)
		in.calendar = schema.ContributionCalendar{Days: []schema.ContributionDay{}}
	}
	if in.prs, err = run.source.GetPullRequestMetrics(ctx, run.username); err != nil {
		if isAbortError(ctx, err) {
			return fetched{}, err
		}
		run.warn("pull request metrics unavailable: %v", err)
		in.prs = schema.PullRequestMetrics{}
	}
	return in, nil
}

// finish scores, persists, caches and builds the response.
func (s *Scanner) finish(ctx context.Context, run *scanRun, snap *schema.Snapshot, bundle *schema.AnalysisBundle, now time.Time) (*schema.ScanResponse, error) {
	store := s.caches.GetSnapshotStore()
	population, err := store.ListScores(ctx, run.username)
	if err != nil {
		run.warn("percentile population unavailable: %v", err)
		population = nil
	}
	result := ComputeScore(bundle, &snap.Counters, population)

	components, err := componentRecords(bundle, now)
	if err != nil {
		return nil, err
	}
	snap.Components = components
	snap.Score = &result.Composite
	snap.Percentile = result.Percentile
	snap.Grade = result.Grade
	snap.ScoreComputedAt = &now

	persisted := true
	if err := store.Upsert(ctx, snap); err != nil {
		persisted = false
		run.warn("snapshot not persisted: %v", err)
		contract.LogWarn("snapshot write for "+run.username, err)
	}

	resp := &schema.ScanResponse{
		Success:    true,
		Status:     statusOf(&result),
		TotalRepos: snap.Counters.TotalRepos,
		Snapshot:   snap,
		Score:      &result,
		Bundle:     bundle,
		RateLimit:  s.currentRate(ctx, run),
		Warnings:   run.warnings,
		Persisted:  persisted,
	}
	s.cacheResponse(run.username, resp)
	return resp, nil
}

// newSnapshot builds the snapshot of a scan, before scoring.
func newSnapshot(ds *schema.Dataset, synced SyncResult, top int) *schema.Snapshot {
	return &schema.Snapshot{
		UserID:                 ds.Username,
		Profile:                ds.Profile,
		Counters:               ds.Counters,
		Languages:              ds.Languages,
		Frameworks:             ds.Frameworks,
		Organizations:          ds.Organizations,
		OrganizationCount:      len(ds.Organizations),
		TopRepos:               topRepos(ds.Repositories, top),
		Activity:               ds.Activity,
		CachedRepoCount:        len(ds.Repositories),
		LanguagesScannedAt:     synced.ScannedAt[schema.LanguagesCategory],
		FrameworksScannedAt:    synced.ScannedAt[schema.FrameworksCategory],
		OrganizationsScannedAt: synced.ScannedAt[schema.OrganizationsCategory],
		ScannedAt:              ds.AsOf,
	}
}

// cacheResponse stores the response in the memory tier without its per-request warnings.
func (s *Scanner) cacheResponse(username string, resp *schema.ScanResponse) {
	cached := *resp
	cached.Warnings = nil
	if raw, err := json.Marshal(cached); err == nil {
		s.caches.GetMemoryCache().Set(schema.CacheKey(schema.CompositeCategory, username), raw)
	}
}

// currentRate re-reads the quota after the scan, falling back to the initial reading.
func (s *Scanner) currentRate(ctx context.Context, run *scanRun) *schema.RateLimit {
	rate := run.rate
	if fresh, err := run.source.GetRateLimit(ctx); err == nil {
		rate = fresh
		run.rate = fresh
	}
	return &rate
}

// abortError turns an exhausted scan deadline into a rate-limit error.
func (s *Scanner) abortError(ctx context.Context, run *scanRun, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &contract.RateLimitError{
			Reason:    fmt.Sprintf("scan exceeded its %s budget", s.scanTimeout()),
			Limit:     run.rate.Limit,
			Remaining: run.rate.Remaining,
			Reset:     run.rate.Reset,
		}
	}
	return err
}

// recordEvent appends the scan event. Event store failures are logged only.
func (s *Scanner) recordEvent(ctx context.Context, run *scanRun, resp *schema.ScanResponse, scanErr error) {
	finished := s.now()
	event := schema.ScanEvent{
		EventID:       getScanID(ctx),
		UserID:        run.username,
		Mode:          run.mode,
		Status:        schema.FailedStatus,
		RateRemaining: run.rate.Remaining,
		StartedAt:     run.started,
		FinishedAt:    finished,
		DurationMs:    finished.Sub(run.started).Milliseconds(),
	}
	if resp != nil {
		event.Status = resp.Status
		event.Persisted = resp.Persisted
		if resp.Score != nil && scanErr == nil {
			score := resp.Score.Composite
			event.Score = &score
			event.Grade = resp.Score.Grade
		}
	}
	if scanErr != nil {
		event.Error = scanErr.Error()
	}

	// The scan context may be spent; the audit row must still land
	ectx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.caches.GetEventStore().Append(ectx, event); err != nil {
		contract.LogWarn("scan event for "+run.username, err)
	}
}

func (s *Scanner) scanTimeout() time.Duration {
	if s.cfg.ScanTimeout <= 0 {
		return contract.DefaultScanTimeout
	}
	return s.cfg.ScanTimeout
}

func (s *Scanner) topRepos() int {
	if s.cfg.TopRepos <= 0 {
		return contract.DefaultTopRepos
	}
	return s.cfg.TopRepos
}

// statusOf distinguishes fully computed results from those that used a fallback.
func statusOf(result *schema.ScoreResult) schema.ScanStatus {
	if len(result.Components) == len(schema.AllComponents) && result.FallbackCount() == 0 {
		return schema.ComputedStatus
	}
	return schema.PartialStatus
}

// failedResponse reports an abort before computation.
func failedResponse(err error, run *scanRun) *schema.ScanResponse {
	resp := &schema.ScanResponse{Status: schema.FailedStatus, Error: err.Error()}
	var rle *contract.RateLimitError
	if errors.As(err, &rle) {
		resp.RateLimit = &schema.RateLimit{Limit: rle.Limit, Remaining: rle.Remaining, Reset: rle.Reset}
	} else if run != nil && run.rate.Limit > 0 {
		rate := run.rate
		resp.RateLimit = &rate
	}
	if run != nil {
		resp.Warnings = run.warnings
	}
	return resp
}

// isAbortError reports errors that must stop a scan instead of degrading it.
func isAbortError(ctx context.Context, err error) bool {
	return errors.Is(err, contract.ErrUnauthorized) ||
		errors.Is(err, contract.ErrRateLimited) ||
		ctx.Err() != nil
}
