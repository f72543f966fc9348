package core

import (
	"math"

	"github.com/huangsam/devscore/schema"
)

// gradeBands are inclusive lower bounds, highest first.
var gradeBands = []schema.GradeBand{
	{Grade: schema.GradeS, Min: 95},
	{Grade: schema.GradeA, Min: 85},
	{Grade: schema.GradeB, Min: 70},
	{Grade: schema.GradeC, Min: 55},
	{Grade: schema.GradeD, Min: 40},
	{Grade: schema.GradeF, Min: 0},
}

// compositeFormula is shown by the weights listing.
const compositeFormula = "composite = sum(score x weight) / sum(weights present) x 10, clamped to [0, 100]"

// componentInfo is the static explanation of one component.
type componentInfo struct {
	description string
	rationale   []string
}

// componentTable owns the explanation text of every component.
var componentTable = map[schema.ComponentKind]componentInfo{
	schema.DocumentationComponent: {
		description: "README, license and description coverage of owned repositories",
		rationale: []string{
			"Repositories with a README are easier to adopt",
			"Install, usage and license sections answer the first questions of a visitor",
			"A license and a one-line description make reuse legally and practically possible",
		},
	},
	schema.HealthComponent: {
		description: "Maintenance, community and structure of owned repositories",
		rationale: []string{
			"Recently pushed repositories signal ongoing maintenance",
			"Contributors and forks show that others rely on the work",
			"Topics, branches and licenses reflect deliberate project structure",
		},
	},
	schema.BehaviorComponent: {
		description: "Commit message quality and contribution rhythm",
		rationale: []string{
			"Conventional, well sized commit messages make history reviewable",
			"Steady activity across the year beats occasional bursts",
			"Streaks reward sustained engagement",
		},
	},
	schema.CareerComponent: {
		description: "Experience, breadth and impact derived from the other analyses",
		rationale: []string{
			"Account age approximates experience on the platform",
			"Language and framework breadth show range",
			"Stars, followers and merged pull requests approximate impact",
		},
	},
}

// ComputeScore combines the bundle into a composite score, percentile and grade.
// Components without a payload fall back to estimates from counters; a nil counters
// value disables the fallback so those components are left out. The result only
// depends on its inputs.
func ComputeScore(bundle *schema.AnalysisBundle, counters *schema.BasicCounters, population []float64) schema.ScoreResult {
	result := schema.ScoreResult{
		Grade:          schema.GradeF,
		Components:     []schema.ComponentScore{},
		PopulationSize: len(population),
	}

	var weighted, weights float64
	for _, kind := range schema.AllComponents {
		component, ok := scoreComponent(kind, bundle, counters)
		if !ok {
			continue
		}
		weighted += component.Score * component.Weight
		weights += component.Weight
		result.Components = append(result.Components, component)
	}

	if weights > 0 {
		result.Composite = round2(clamp(weighted/weights*10, 0, 100))
	}
	result.Percentile = Percentile(result.Composite, population)
	result.Grade = Grade(result.Composite)
	return result
}

// scoreComponent returns the computed or fallback score of one component.
func scoreComponent(kind schema.ComponentKind, bundle *schema.AnalysisBundle, counters *schema.BasicCounters) (schema.ComponentScore, bool) {
	info := componentTable[kind]
	component := schema.ComponentScore{
		Kind:        kind,
		Weight:      schema.DefaultWeights[kind],
		Description: info.description,
		Rationale:   info.rationale,
	}

	if bundle != nil {
		if payload, ok := bundle.Payload(kind); ok {
			component.Score = round2(clamp(payload.ComponentScore(), 0, 10))
			component.Source = schema.ComputedSource
			component.SubScores = roundAll(payload.SubScores())
			return component, true
		}
	}
	if counters == nil {
		return schema.ComponentScore{}, false
	}

	component.Score = FallbackScore(kind, counters)
	component.Source = schema.FallbackSource
	return component, true
}

// FallbackScore estimates a component score (0-10) from basic counters.
func FallbackScore(kind schema.ComponentKind, c *schema.BasicCounters) float64 {
	var score float64
	switch kind {
	case schema.DocumentationComponent:
		score = 0.5*logScale(c.TotalRepos, 50) + 0.5*logScale(c.TotalStars, 1000)
	case schema.HealthComponent:
		score = 0.4*logScale(c.TotalStars, 1000) + 0.3*logScale(c.TotalForks, 200) + 0.3*logScale(c.MergedPRs, 200)
	case schema.BehaviorComponent:
		score = 0.5*logScale(c.TotalCommits, 2000) + 0.25*logScale(c.LongestStreak, 100) + 0.25*logScale(c.CurrentStreak, 30)
	case schema.CareerComponent:
		score = 0.3*logScale(c.Followers, 1000) + 0.3*logScale(c.TotalPRs, 500) + 0.2*logScale(c.TotalRepos, 50) + 0.2*logScale(c.TotalStars, 1000)
	}
	return round2(clamp(score, 0, 10))
}

// Percentile returns the share of the population strictly below score, as a percentage.
func Percentile(score float64, population []float64) float64 {
	if len(population) == 0 {
		return 0
	}
	lower := 0
	for _, p := range population {
		if p < score {
			lower++
		}
	}
	return round2(float64(lower) / float64(len(population)) * 100)
}

// Grade maps a composite score onto its letter band.
func Grade(score float64) schema.Grade {
	for _, band := range gradeBands {
		if score >= band.Min {
			return band.Grade
		}
	}
	return schema.GradeF
}

// Weights describes the scoring model for display.
func Weights() schema.WeightsRenderModel {
	model := schema.WeightsRenderModel{Formula: compositeFormula}
	for _, kind := range schema.AllComponents {
		info := componentTable[kind]
		model.Components = append(model.Components, schema.WeightRow{
			Kind:        kind,
			Weight:      schema.DefaultWeights[kind],
			Description: info.description,
			Rationale:   info.rationale,
		})
	}
	model.Grades = append(model.Grades, gradeBands...)
	return model
}

// logScale maps a count onto 0-10, saturating at ceiling.
func logScale(x int, ceiling float64) float64 {
	if x <= 0 {
		return 0
	}
	return 10 * math.Min(1, math.Log10(1+float64(x))/math.Log10(1+ceiling))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func roundAll(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = round2(v)
	}
	return out
}
