package schema

import (
	"encoding/json"
	"fmt"
	"time"
)

// ComponentPayload is implemented by every analysis report that can feed the scoring engine.
type ComponentPayload interface {
	ComponentScore() float64
	SubScores() map[string]float64
}

// Outcome is the result of one analysis module: either Computed with a payload or Unavailable with a reason.
type Outcome[T any] struct {
	value  *T
	reason string
}

// Computed wraps a successfully produced payload.
func Computed[T any](v T) Outcome[T] {
	return Outcome[T]{value: &v}
}

// Unavailable marks a module that did not produce a payload.
func Unavailable[T any](reason string) Outcome[T] {
	return Outcome[T]{reason: reason}
}

// IsComputed reports whether the outcome carries a payload.
func (o Outcome[T]) IsComputed() bool {
	return o.value != nil
}

// Get returns the payload and whether it exists.
func (o Outcome[T]) Get() (T, bool) {
	if o.value == nil {
		var zero T
		return zero, false
	}
	return *o.value, true
}

// Reason returns why the outcome is unavailable.
func (o Outcome[T]) Reason() string {
	return o.reason
}

type outcomeJSON[T any] struct {
	Status  string `json:"status"`
	Payload *T     `json:"payload,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// MarshalJSON encodes the variant with an explicit status tag.
func (o Outcome[T]) MarshalJSON() ([]byte, error) {
	if o.value != nil {
		return json.Marshal(outcomeJSON[T]{Status: "computed", Payload: o.value})
	}
	return json.Marshal(outcomeJSON[T]{Status: "unavailable", Reason: o.reason})
}

// UnmarshalJSON decodes the tagged variant.
func (o *Outcome[T]) UnmarshalJSON(data []byte) error {
	var raw outcomeJSON[T]
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Status {
	case "computed":
		if raw.Payload == nil {
			return fmt.Errorf("computed outcome without payload")
		}
		*o = Outcome[T]{value: raw.Payload}
	case "unavailable", "":
		*o = Outcome[T]{reason: raw.Reason}
	default:
		return fmt.Errorf("unknown outcome status %q", raw.Status)
	}
	return nil
}

// DocumentationReport scores README, license and description coverage.
type DocumentationReport struct {
	Score               float64   `json:"score"`
	ReposAnalyzed       int       `json:"repos_analyzed"`
	ReadmeCoverage      float64   `json:"readme_coverage"`
	AverageReadmeLength float64   `json:"average_readme_length"`
	SectionCoverage     float64   `json:"section_coverage"`
	LicenseCoverage     float64   `json:"license_coverage"`
	DescriptionCoverage float64   `json:"description_coverage"`
	AnalyzedAt          time.Time `json:"analyzed_at"`
}

// ComponentScore implements ComponentPayload.
func (r DocumentationReport) ComponentScore() float64 { return r.Score }

// SubScores implements ComponentPayload.
func (r DocumentationReport) SubScores() map[string]float64 {
	return map[string]float64{
		"readme":      r.ReadmeCoverage * 10,
		"sections":    r.SectionCoverage * 10,
		"license":     r.LicenseCoverage * 10,
		"description": r.DescriptionCoverage * 10,
	}
}

// HealthReport scores maintenance, community and structure of the user's repositories.
type HealthReport struct {
	Score               float64   `json:"score"`
	ReposAnalyzed       int       `json:"repos_analyzed"`
	MaintenanceScore    float64   `json:"maintenance_score"`
	CommunityScore      float64   `json:"community_score"`
	StructureScore      float64   `json:"structure_score"`
	ActiveRepoRatio     float64   `json:"active_repo_ratio"`
	AverageContributors float64   `json:"average_contributors"`
	AverageBranches     float64   `json:"average_branches"`
	AnalyzedAt          time.Time `json:"analyzed_at"`
}

// ComponentScore implements ComponentPayload.
func (r HealthReport) ComponentScore() float64 { return r.Score }

// SubScores implements ComponentPayload.
func (r HealthReport) SubScores() map[string]float64 {
	return map[string]float64{
		"maintenance": r.MaintenanceScore,
		"community":   r.CommunityScore,
		"structure":   r.StructureScore,
	}
}

// BehaviorReport scores commit habits and activity rhythm.
type BehaviorReport struct {
	Score                float64   `json:"score"`
	CommitsAnalyzed      int       `json:"commits_analyzed"`
	ConventionalRatio    float64   `json:"conventional_ratio"`
	AverageMessageLength float64   `json:"average_message_length"`
	ConsistencyScore     float64   `json:"consistency_score"`
	MessageScore         float64   `json:"message_score"`
	StreakScore          float64   `json:"streak_score"`
	WeekendRatio         float64   `json:"weekend_ratio"`
	AnalyzedAt           time.Time `json:"analyzed_at"`
}

// ComponentScore implements ComponentPayload.
func (r BehaviorReport) ComponentScore() float64 { return r.Score }

// SubScores implements ComponentPayload.
func (r BehaviorReport) SubScores() map[string]float64 {
	return map[string]float64{
		"consistency": r.ConsistencyScore,
		"messages":    r.MessageScore,
		"streaks":     r.StreakScore,
	}
}

// CareerReport is derived from the other reports and the already fetched dataset.
type CareerReport struct {
	Score             float64   `json:"score"`
	Level             string    `json:"level"`
	ExperienceYears   float64   `json:"experience_years"`
	LanguageDiversity float64   `json:"language_diversity"`
	FrameworkBreadth  float64   `json:"framework_breadth"`
	ImpactScore       float64   `json:"impact_score"`
	QualityScore      float64   `json:"quality_score"`
	Strengths         []string  `json:"strengths"`
	Improvements      []string  `json:"improvements"`
	AnalyzedAt        time.Time `json:"analyzed_at"`
}

// ComponentScore implements ComponentPayload.
func (r CareerReport) ComponentScore() float64 { return r.Score }

// SubScores implements ComponentPayload.
func (r CareerReport) SubScores() map[string]float64 {
	return map[string]float64{
		"diversity": r.LanguageDiversity,
		"breadth":   r.FrameworkBreadth,
		"impact":    r.ImpactScore,
		"quality":   r.QualityScore,
	}
}

// AnalysisBundle holds one outcome per component.
type AnalysisBundle struct {
	Documentation Outcome[DocumentationReport] `json:"documentation-quality"`
	Health        Outcome[HealthReport]        `json:"repository-health"`
	Behavior      Outcome[BehaviorReport]      `json:"behavioral-patterns"`
	Career        Outcome[CareerReport]        `json:"career-insights"`
}

// Payload returns the computed payload for a component, if any.
func (b *AnalysisBundle) Payload(kind ComponentKind) (ComponentPayload, bool) {
	switch kind {
	case DocumentationComponent:
		if v, ok := b.Documentation.Get(); ok {
			return v, true
		}
	case HealthComponent:
		if v, ok := b.Health.Get(); ok {
			return v, true
		}
	case BehaviorComponent:
		if v, ok := b.Behavior.Get(); ok {
			return v, true
		}
	case CareerComponent:
		if v, ok := b.Career.Get(); ok {
			return v, true
		}
	}
	return nil, false
}

// UnavailableReason returns the reason a component is missing, or "" when it is computed.
func (b *AnalysisBundle) UnavailableReason(kind ComponentKind) string {
	switch kind {
	case DocumentationComponent:
		return b.Documentation.Reason()
	case HealthComponent:
		return b.Health.Reason()
	case BehaviorComponent:
		return b.Behavior.Reason()
	default:
		return b.Career.Reason()
	}
}

// ComputedCount returns how many components carry a payload.
func (b *AnalysisBundle) ComputedCount() int {
	n := 0
	for _, kind := range AllComponents {
		if _, ok := b.Payload(kind); ok {
			n++
		}
	}
	return n
}

// ComponentScore is one weighted entry of a scoring run.
type ComponentScore struct {
	Kind        ComponentKind      `json:"kind"`
	Score       float64            `json:"score"`
	Weight      float64            `json:"weight"`
	Source      ScoreSource        `json:"source"`
	Description string             `json:"description"`
	Rationale   []string           `json:"rationale,omitempty"`
	SubScores   map[string]float64 `json:"sub_scores,omitempty"`
}

// ScoreResult is the output of the scoring engine.
type ScoreResult struct {
	Composite      float64          `json:"composite"`
	Percentile     float64          `json:"percentile"`
	Grade          Grade            `json:"grade"`
	Components     []ComponentScore `json:"components"`
	PopulationSize int              `json:"population_size"`
}

// FallbackCount returns how many components used the fallback path.
func (r *ScoreResult) FallbackCount() int {
	n := 0
	for _, c := range r.Components {
		if c.Source == FallbackSource {
			n++
		}
	}
	return n
}
