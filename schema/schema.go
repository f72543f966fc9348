// Package schema holds the data types shared by every devscore layer.
package schema

import (
	"encoding/json"
	"time"
)

// UserProfile is the public account information of a developer.
type UserProfile struct {
	Login       string    `json:"login"`
	Name        string    `json:"name,omitempty"`
	Company     string    `json:"company,omitempty"`
	Location    string    `json:"location,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	Blog        string    `json:"blog,omitempty"`
	Hireable    bool      `json:"hireable"`
	PublicRepos int       `json:"public_repos"`
	Followers   int       `json:"followers"`
	Following   int       `json:"following"`
	CreatedAt   time.Time `json:"created_at"`
}

// Repository is one repository owned by the user.
type Repository struct {
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"`
	Owner         string    `json:"owner"`
	Description   string    `json:"description,omitempty"`
	Language      string    `json:"language,omitempty"`
	License       string    `json:"license,omitempty"`
	DefaultBranch string    `json:"default_branch,omitempty"`
	Topics        []string  `json:"topics,omitempty"`
	Stars         int       `json:"stars"`
	Forks         int       `json:"forks"`
	OpenIssues    int       `json:"open_issues"`
	SizeKB        int       `json:"size_kb"`
	Fork          bool      `json:"fork"`
	Archived      bool      `json:"archived"`
	HasWiki       bool      `json:"has_wiki"`
	HasPages      bool      `json:"has_pages"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	PushedAt      time.Time `json:"pushed_at"`
}

// RepoSummary is the trimmed repository view kept in a snapshot.
type RepoSummary struct {
	Name      string    `json:"name"`
	Stars     int       `json:"stars"`
	Forks     int       `json:"forks"`
	Language  string    `json:"language,omitempty"`
	License   string    `json:"license,omitempty"`
	Fork      bool      `json:"fork"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Commit is a single authored commit.
type Commit struct {
	SHA        string    `json:"sha"`
	Message    string    `json:"message"`
	AuthoredAt time.Time `json:"authored_at"`
}

// ContributionDay is one cell of the contribution calendar.
type ContributionDay struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// ContributionCalendar is the yearly contribution calendar.
type ContributionCalendar struct {
	TotalContributions int               `json:"total_contributions"`
	TotalCommits       int               `json:"total_commits"`
	Days               []ContributionDay `json:"days"`
}

// PullRequestMetrics summarizes pull-request and issue search results.
type PullRequestMetrics struct {
	Total        int `json:"total"`
	Merged       int `json:"merged"`
	Open         int `json:"open"`
	IssuesOpened int `json:"issues_opened"`
}

// ActivityMetrics is derived from the contribution calendar.
type ActivityMetrics struct {
	CurrentStreak      int     `json:"current_streak"`
	LongestStreak      int     `json:"longest_streak"`
	WeekdayHistogram   [7]int  `json:"weekday_histogram"` // indexed by time.Weekday
	WeekendRatio       float64 `json:"weekend_ratio"`
	TotalContributions int     `json:"total_contributions"`
	ActiveDays         int     `json:"active_days"`
}

// BasicCounters are the cheap, always-available numbers behind the fallback scores.
type BasicCounters struct {
	TotalRepos    int `json:"total_repos"`
	TotalStars    int `json:"total_stars"`
	TotalForks    int `json:"total_forks"`
	TotalCommits  int `json:"total_commits"`
	TotalPRs      int `json:"total_prs"`
	MergedPRs     int `json:"merged_prs"`
	Followers     int `json:"followers"`
	Following     int `json:"following"`
	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`
}

// RateLimit is the remaining external call budget. It is never persisted.
type RateLimit struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
}

// Dataset is the read-only input shared by every analysis module during one scan.
type Dataset struct {
	Username      string               `json:"username"`
	Profile       UserProfile          `json:"profile"`
	Repositories  []Repository         `json:"repositories"`
	Languages     map[string]float64   `json:"languages"`
	Frameworks    map[string]int       `json:"frameworks"`
	Organizations []string             `json:"organizations"`
	Calendar      ContributionCalendar `json:"calendar"`
	PullRequests  PullRequestMetrics   `json:"pull_requests"`
	Counters      BasicCounters        `json:"counters"`
	Activity      ActivityMetrics      `json:"activity"`
	AsOf          time.Time            `json:"as_of"`
}

// OwnRepositories returns the repositories that are not forks.
func (d *Dataset) OwnRepositories() []Repository {
	own := make([]Repository, 0, len(d.Repositories))
	for _, r := range d.Repositories {
		if !r.Fork {
			own = append(own, r)
		}
	}
	return own
}

// ComponentRecord is a persisted analysis payload plus the time it was produced.
type ComponentRecord struct {
	Payload   json.RawMessage `json:"payload"`
	ScannedAt time.Time       `json:"scanned_at"`
}

// Snapshot is the single persisted record of a user's latest analysis.
// A missing key in Components means the component was never analyzed or was cleared.
type Snapshot struct {
	UserID            string                            `json:"user_id"`
	Profile           UserProfile                       `json:"profile"`
	Counters          BasicCounters                     `json:"counters"`
	Languages         map[string]float64                `json:"languages"`
	Frameworks        map[string]int                    `json:"frameworks"`
	Organizations     []string                          `json:"organizations"`
	OrganizationCount int                               `json:"organization_count"`
	TopRepos          []RepoSummary                     `json:"top_repos"`
	Activity          ActivityMetrics                   `json:"activity"`
	Components        map[ComponentKind]ComponentRecord `json:"components,omitempty"`
	CachedRepoCount   int                               `json:"cached_repo_count"`

	LanguagesScannedAt     *time.Time `json:"languages_scanned_at,omitempty"`
	FrameworksScannedAt    *time.Time `json:"frameworks_scanned_at,omitempty"`
	OrganizationsScannedAt *time.Time `json:"organizations_scanned_at,omitempty"`

	Score           *float64   `json:"score,omitempty"`
	Percentile      float64    `json:"percentile"`
	Grade           Grade      `json:"grade,omitempty"`
	ScoreComputedAt *time.Time `json:"score_computed_at,omitempty"`
	ScannedAt       time.Time  `json:"scanned_at"`
}

// CategoryScannedAt returns the last-scan timestamp of a sync category.
func (s *Snapshot) CategoryScannedAt(category SyncCategory) *time.Time {
	switch category {
	case LanguagesCategory:
		return s.LanguagesScannedAt
	case FrameworksCategory:
		return s.FrameworksScannedAt
	default:
		return s.OrganizationsScannedAt
	}
}

// SetCategoryScannedAt stores the last-scan timestamp of a sync category.
func (s *Snapshot) SetCategoryScannedAt(category SyncCategory, ts *time.Time) {
	switch category {
	case LanguagesCategory:
		s.LanguagesScannedAt = ts
	case FrameworksCategory:
		s.FrameworksScannedAt = ts
	default:
		s.OrganizationsScannedAt = ts
	}
}

// HasComponents reports whether any component payload is stored.
func (s *Snapshot) HasComponents() bool {
	return len(s.Components) > 0
}
