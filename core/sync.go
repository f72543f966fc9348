package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/schema"
)

// Reasons reported by SyncDecision.
const (
	reasonNoPrevious  = "no previous value"
	reasonRepoCount   = "repository count changed"
	reasonNoTimestamp = "never scanned"
	reasonRepoUpdated = "repository updated since last scan"
	reasonReused      = "reused"
)

const (
	maxFrameworkScans  = 30 // manifests are several calls per repository
	defaultSyncWorkers = 4
)

// SyncDecision tells whether one category is recomputed and why.
type SyncDecision struct {
	Category schema.SyncCategory `json:"category"`
	Refresh  bool                `json:"refresh"`
	Reason   string              `json:"reason"`
}

// SyncResult holds the category values to store in the next snapshot.
type SyncResult struct {
	Languages     map[string]float64
	Frameworks    map[string]int
	Organizations []string
	ScannedAt     map[schema.SyncCategory]*time.Time
	Decisions     []SyncDecision
	Warnings      []string
}

// SyncController decides per category whether the previous snapshot value can be reused.
type SyncController struct {
	source        contract.DataSource
	workers       int
	detectUpdates bool
}

// NewSyncController creates a controller fetching through source.
// With detectUpdates set, a repository updated after the last scan also forces a refresh.
func NewSyncController(source contract.DataSource, workers int, detectUpdates bool) *SyncController {
	if workers <= 0 {
		workers = defaultSyncWorkers
	}
	return &SyncController{source: source, workers: workers, detectUpdates: detectUpdates}
}

// Decide applies the staleness policy to one category.
func Decide(category schema.SyncCategory, repos []schema.Repository, prev *schema.Snapshot, detectUpdates bool) SyncDecision {
	d := SyncDecision{Category: category, Refresh: true}
	switch {
	case prev == nil || !hasPreviousValue(category, prev):
		d.Reason = reasonNoPrevious
	case len(repos) != prev.CachedRepoCount:
		d.Reason = reasonRepoCount
	case prev.CategoryScannedAt(category) == nil:
		d.Reason = reasonNoTimestamp
	case detectUpdates && updatedSince(repos, *prev.CategoryScannedAt(category)):
		d.Reason = reasonRepoUpdated
	default:
		d.Refresh = false
		d.Reason = reasonReused
	}
	return d
}

// Sync returns the value of every category, fetching only the stale ones.
func (s *SyncController) Sync(ctx context.Context, username string, repos []schema.Repository, prev *schema.Snapshot, now time.Time) SyncResult {
	res := SyncResult{
		Languages:     map[string]float64{},
		Frameworks:    map[string]int{},
		Organizations: []string{},
		ScannedAt:     map[schema.SyncCategory]*time.Time{},
	}

	for _, category := range schema.AllSyncCategories {
		d := Decide(category, repos, prev, s.detectUpdates)
		res.Decisions = append(res.Decisions, d)

		if !d.Refresh {
			s.reuse(&res, category, prev)
			continue
		}

		logProgress(ctx, "Refreshing %s (%s)", category, d.Reason)
		if err := s.refresh(ctx, &res, category, username, repos); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s refresh failed, keeping previous value: %v", category, err))
			if prev != nil {
				s.reuse(&res, category, prev)
			}
			continue
		}
		stamp := now
		res.ScannedAt[category] = &stamp
	}
	return res
}

// reuse copies the previous value and timestamp of one category.
func (s *SyncController) reuse(res *SyncResult, category schema.SyncCategory, prev *schema.Snapshot) {
	switch category {
	case schema.LanguagesCategory:
		res.Languages = copyMap(prev.Languages)
	case schema.FrameworksCategory:
		res.Frameworks = copyMap(prev.Frameworks)
	case schema.OrganizationsCategory:
		res.Organizations = append([]string{}, prev.Organizations...)
	}
	res.ScannedAt[category] = prev.CategoryScannedAt(category)
}

// refresh fetches one category. Nothing is written to res on failure.
func (s *SyncController) refresh(ctx context.Context, res *SyncResult, category schema.SyncCategory, username string, repos []schema.Repository) error {
	switch category {
	case schema.LanguagesCategory:
		langs, err := s.fetchLanguages(ctx, repos)
		if err != nil {
			return err
		}
		res.Languages = langs
	case schema.FrameworksCategory:
		frameworks, err := s.fetchFrameworks(ctx, repos)
		if err != nil {
			return err
		}
		res.Frameworks = frameworks
	case schema.OrganizationsCategory:
		orgs, err := s.source.ListOrganizations(ctx, username)
		if err != nil {
			return err
		}
		orgs = append([]string{}, orgs...)
		sort.Strings(orgs)
		res.Organizations = orgs
	}
	return nil
}

// fetchLanguages sums language bytes over active owned repositories and converts them to percentages.
func (s *SyncController) fetchLanguages(ctx context.Context, repos []schema.Repository) (map[string]float64, error) {
	own := analyzedRepos(repos, 0)
	perRepo, err := fanOutRepos(ctx, s.workers, own, func(ctx context.Context, r schema.Repository) (map[string]int, error) {
		langs, err := s.source.GetLanguages(ctx, r.Owner, r.Name)
		if errors.Is(err, contract.ErrUserNotFound) {
			return map[string]int{}, nil // repository vanished mid-scan
		}
		return langs, err
	})
	if err != nil {
		return nil, err
	}
	return languageShares(perRepo), nil
}

// fetchFrameworks counts, per framework, how many recently pushed repositories use it.
func (s *SyncController) fetchFrameworks(ctx context.Context, repos []schema.Repository) (map[string]int, error) {
	own := analyzedRepos(repos, maxFrameworkScans)
	perRepo, err := fanOutRepos(ctx, s.workers, own, func(ctx context.Context, r schema.Repository) ([]string, error) {
		found, err := s.source.DetectFrameworks(ctx, r.Owner, r.Name)
		if errors.Is(err, contract.ErrUserNotFound) {
			return nil, nil
		}
		return found, err
	})
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	for _, found := range perRepo {
		for _, fw := range found {
			counts[fw]++
		}
	}
	return counts, nil
}

// languageShares converts byte counts to percentages rounded to two decimals.
func languageShares(perRepo []map[string]int) map[string]float64 {
	totals := map[string]int{}
	sum := 0
	for _, langs := range perRepo {
		for name, bytes := range langs {
			totals[name] += bytes
			sum += bytes
		}
	}

	shares := make(map[string]float64, len(totals))
	if sum == 0 {
		return shares
	}
	for name, bytes := range totals {
		shares[name] = round2(float64(bytes) / float64(sum) * 100)
	}
	return shares
}

func hasPreviousValue(category schema.SyncCategory, prev *schema.Snapshot) bool {
	switch category {
	case schema.LanguagesCategory:
		return prev.Languages != nil
	case schema.FrameworksCategory:
		return prev.Frameworks != nil
	default:
		return prev.Organizations != nil
	}
}

func updatedSince(repos []schema.Repository, since time.Time) bool {
	for _, r := range repos {
		if r.UpdatedAt.After(since) {
			return true
		}
	}
	return false
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
