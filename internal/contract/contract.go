// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"

	"github.com/huangsam/devscore/schema"
)

// DataSource defines the read-only operations devscore needs from the external code host.
// This allows the sync, analysis and scan logic to be tested without network access.
type DataSource interface {
	// --- Account Level ---

	// GetRateLimit returns the remaining call budget for the credential in use.
	GetRateLimit(ctx context.Context) (schema.RateLimit, error)

	// GetUser returns the public profile of a user.
	GetUser(ctx context.Context, username string) (schema.UserProfile, error)

	// ListRepositories returns every public repository owned by the user.
	ListRepositories(ctx context.Context, username string) ([]schema.Repository, error)

	// GetContributionCalendar returns the last year of daily contributions.
	GetContributionCalendar(ctx context.Context, username string) (schema.ContributionCalendar, error)

	// GetPullRequestMetrics returns pull-request and issue counts authored by the user.
	GetPullRequestMetrics(ctx context.Context, username string) (schema.PullRequestMetrics, error)

	// ListOrganizations returns the logins of the user's public organizations.
	ListOrganizations(ctx context.Context, username string) ([]string, error)

	// --- Repository Level ---

	// GetLanguages returns language byte counts for one repository.
	GetLanguages(ctx context.Context, owner, repo string) (map[string]int, error)

	// DetectFrameworks returns the frameworks recognized from the repository's manifests.
	DetectFrameworks(ctx context.Context, owner, repo string) ([]string, error)

	// GetReadme returns the decoded README, or an empty string if there is none.
	GetReadme(ctx context.Context, owner, repo string) (string, error)

	// ListCommits returns up to limit recent commits by author.
	ListCommits(ctx context.Context, owner, repo, author string, limit int) ([]schema.Commit, error)

	// CountContributors returns the number of contributors to a repository.
	CountContributors(ctx context.Context, owner, repo string) (int, error)

	// CountBranches returns the number of branches of a repository.
	CountBranches(ctx context.Context, owner, repo string) (int, error)
}

// DataSourceFactory builds a DataSource bound to one access credential.
type DataSourceFactory func(token string) (DataSource, error)

// Cache is a key/value tier keyed by schema.CacheKey.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Has(key string) bool
	Delete(key string)
	Clear()
}

// CacheManager defines the interface for reaching every cache tier.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetMemoryCache() Cache
	GetSnapshotStore() SnapshotStore
	GetEventStore() EventStore
}

// SnapshotStore defines the durable, one-row-per-user snapshot storage.
type SnapshotStore interface {
	// Get returns the snapshot of a user or ErrNoSnapshot.
	Get(ctx context.Context, userID string) (*schema.Snapshot, error)

	// Upsert writes the full snapshot, replacing any existing row for the user.
	Upsert(ctx context.Context, snap *schema.Snapshot) error

	// ClearComponents nulls the four component payloads and their timestamps.
	ClearComponents(ctx context.Context, userID string) error

	// ListScores returns every stored composite score except the given user's.
	ListScores(ctx context.Context, excludeUserID string) ([]float64, error)

	// ListSnapshots returns every stored snapshot.
	ListSnapshots(ctx context.Context) ([]schema.Snapshot, error)

	// GetStatus returns status information about the snapshot store.
	GetStatus() (schema.StoreStatus, error)

	// Close closes the underlying connection.
	Close() error
}

// EventStore defines the append-only scan audit log.
type EventStore interface {
	// Append inserts one scan event.
	Append(ctx context.Context, event schema.ScanEvent) error

	// ListEvents returns events newest first, for one user or all users when userID is empty.
	ListEvents(ctx context.Context, userID string, limit int) ([]schema.ScanEvent, error)

	// GetStatus returns status information about the event store.
	GetStatus() (schema.StoreStatus, error)

	// Close closes the underlying connection.
	Close() error
}
