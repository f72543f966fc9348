package schema

import "strings"

// Custom string types for type safety.
type (
	// ComponentKind identifies one of the scored analysis categories.
	ComponentKind string

	// ScoreSource tells whether a component score came from its analysis payload or the fallback path.
	ScoreSource string

	// Grade is the letter band for a composite score.
	Grade string

	// SyncCategory is a slow-changing dataset category governed by the sync controller.
	SyncCategory string

	// ScanStatus reports how much of a scan was actually computed.
	ScanStatus string

	// ScanMode is the kind of work a scan event recorded.
	ScanMode string

	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for snapshot persistence.
	DatabaseBackend string
)

// Analysis components, in scoring order.
const (
	DocumentationComponent ComponentKind = "documentation-quality"
	HealthComponent        ComponentKind = "repository-health"
	BehaviorComponent      ComponentKind = "behavioral-patterns"
	CareerComponent        ComponentKind = "career-insights"
)

// CompositeCategory is the cache category holding a user's final score.
const CompositeCategory = "composite-analysis"

// Component score sources.
const (
	ComputedSource ScoreSource = "computed"
	FallbackSource ScoreSource = "fallback-estimated"
)

// Grade bands.
const (
	GradeS Grade = "S"
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// Sync categories.
const (
	LanguagesCategory     SyncCategory = "languages"
	FrameworksCategory    SyncCategory = "frameworks"
	OrganizationsCategory SyncCategory = "organizations"
)

// Scan outcomes.
const (
	ComputedStatus ScanStatus = "computed"
	PartialStatus  ScanStatus = "partial"
	FailedStatus   ScanStatus = "failed"
)

// Scan modes recorded in the event log.
const (
	FullScan     ScanMode = "full"
	FastScan     ScanMode = "fast"
	DeferredScan ScanMode = "analysis"
)

// All output modes supported.
const (
	TextOut OutputMode = "text" // default
	JSONOut OutputMode = "json"
	CSVOut  OutputMode = "csv"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// AllComponents lists every component in canonical order.
var AllComponents = []ComponentKind{DocumentationComponent, HealthComponent, BehaviorComponent, CareerComponent}

// ConcurrentComponents are the modules that fan out against the shared dataset.
var ConcurrentComponents = []ComponentKind{DocumentationComponent, HealthComponent, BehaviorComponent}

// AllSyncCategories lists every category the sync controller decides on.
var AllSyncCategories = []SyncCategory{LanguagesCategory, FrameworksCategory, OrganizationsCategory}

// CacheCategories lists every cache key namespace.
var CacheCategories = []string{
	string(DocumentationComponent),
	string(HealthComponent),
	string(BehaviorComponent),
	string(CareerComponent),
	CompositeCategory,
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	TextOut: {},
	JSONOut: {},
	CSVOut:  {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// DefaultWeights holds the canonical percentage weight of each component.
var DefaultWeights = map[ComponentKind]float64{
	DocumentationComponent: 20,
	HealthComponent:        25,
	BehaviorComponent:      30,
	CareerComponent:        25,
}

// NormalizeUser lower-cases and trims a username so keys and snapshot ids agree.
func NormalizeUser(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// CacheKey builds a tiered-cache key of the form <category>:<username>.
func CacheKey(category string, username string) string {
	return category + ":" + NormalizeUser(username)
}
