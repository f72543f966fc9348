package core

import (
	"testing"

	"github.com/huangsam/devscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func computedBundle(docs, health, behavior, career float64) *schema.AnalysisBundle {
	return &schema.AnalysisBundle{
		Documentation: schema.Computed(schema.DocumentationReport{Score: docs}),
		Health:        schema.Computed(schema.HealthReport{Score: health}),
		Behavior:      schema.Computed(schema.BehaviorReport{Score: behavior}),
		Career:        schema.Computed(schema.CareerReport{Score: career}),
	}
}

func TestGrade(t *testing.T) {
	tests := []struct {
		score    float64
		expected schema.Grade
	}{
		{100, schema.GradeS},
		{95, schema.GradeS},
		{94.99, schema.GradeA},
		{85, schema.GradeA},
		{84.99, schema.GradeB},
		{70, schema.GradeB},
		{69.99, schema.GradeC},
		{55, schema.GradeC},
		{40, schema.GradeD},
		{39.99, schema.GradeF},
		{0, schema.GradeF},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Grade(tt.score), "score %v", tt.score)
	}
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name       string
		score      float64
		population []float64
		expected   float64
	}{
		{"empty population", 80, nil, 0},
		{"ties are not lower", 50, []float64{10, 50, 60, 70}, 25},
		{"highest", 99, []float64{10, 20, 30}, 100},
		{"lowest", 1, []float64{10, 20, 30}, 0},
		{"thirds", 25, []float64{10, 20, 30}, 66.67},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Percentile(tt.score, tt.population))
		})
	}
}

func TestComputeScore_AllComputed(t *testing.T) {
	result := ComputeScore(computedBundle(8, 6, 7, 5), &schema.BasicCounters{}, []float64{10, 90})

	// (8*20 + 6*25 + 7*30 + 5*25) / 100 * 10
	assert.Equal(t, 64.5, result.Composite)
	assert.Equal(t, schema.GradeC, result.Grade)
	assert.Equal(t, 50.0, result.Percentile)
	assert.Equal(t, 2, result.PopulationSize)
	require.Len(t, result.Components, 4)
	assert.Zero(t, result.FallbackCount())
	for i, kind := range schema.AllComponents {
		assert.Equal(t, kind, result.Components[i].Kind)
		assert.Equal(t, schema.ComputedSource, result.Components[i].Source)
		assert.Equal(t, schema.DefaultWeights[kind], result.Components[i].Weight)
		assert.NotEmpty(t, result.Components[i].Description)
	}
}

func TestComputeScore_RenormalizesWithoutFallback(t *testing.T) {
	bundle := computedBundle(8, 6, 7, 5)
	bundle.Health = schema.Unavailable[schema.HealthReport]("timed out")

	result := ComputeScore(bundle, nil, nil)

	// (8*20 + 7*30 + 5*25) / 75 * 10
	assert.Equal(t, 66.0, result.Composite)
	assert.Len(t, result.Components, 3)
}

func TestComputeScore_FallbackForMissingPayload(t *testing.T) {
	bundle := computedBundle(8, 6, 7, 5)
	bundle.Documentation = schema.Unavailable[schema.DocumentationReport]("no repositories to analyze")
	counters := &schema.BasicCounters{TotalRepos: 50, TotalStars: 1000}

	result := ComputeScore(bundle, counters, nil)

	require.Len(t, result.Components, 4)
	docs := result.Components[0]
	assert.Equal(t, schema.FallbackSource, docs.Source)
	assert.Equal(t, 10.0, docs.Score)
	assert.Empty(t, docs.SubScores)
	assert.Equal(t, 1, result.FallbackCount())
}

func TestComputeScore_ZeroData(t *testing.T) {
	result := ComputeScore(deferredBundle(), &schema.BasicCounters{}, nil)

	assert.Equal(t, 0.0, result.Composite)
	assert.Equal(t, schema.GradeF, result.Grade)
	assert.Equal(t, 0.0, result.Percentile)
	assert.Len(t, result.Components, 4)
	assert.Equal(t, 4, result.FallbackCount())
}

func TestComputeScore_NothingToScore(t *testing.T) {
	result := ComputeScore(nil, nil, nil)

	assert.Equal(t, 0.0, result.Composite)
	assert.Equal(t, schema.GradeF, result.Grade)
	assert.NotNil(t, result.Components)
	assert.Empty(t, result.Components)
}

func TestComputeScore_ClampsPayloadScores(t *testing.T) {
	result := ComputeScore(computedBundle(15, 12, 11, 10), nil, nil)
	assert.Equal(t, 100.0, result.Composite)
	assert.Equal(t, schema.GradeS, result.Grade)

	result = ComputeScore(computedBundle(-3, 0, 0, 0), nil, nil)
	assert.Equal(t, 0.0, result.Composite)
}

func TestComputeScore_Deterministic(t *testing.T) {
	counters := &schema.BasicCounters{TotalRepos: 12, TotalStars: 40, TotalCommits: 300, Followers: 8}
	bundle := computedBundle(7.3, 0, 6.1, 0)
	bundle.Health = schema.Unavailable[schema.HealthReport]("failed")
	population := []float64{12, 40, 77}

	assert.Equal(t, ComputeScore(bundle, counters, population), ComputeScore(bundle, counters, population))
}

func TestFallbackScore(t *testing.T) {
	huge := &schema.BasicCounters{
		TotalRepos: 1000, TotalStars: 100000, TotalForks: 10000, TotalCommits: 100000,
		TotalPRs: 10000, MergedPRs: 10000, Followers: 100000, CurrentStreak: 365, LongestStreak: 365,
	}
	for _, kind := range schema.AllComponents {
		assert.Equal(t, 10.0, FallbackScore(kind, huge), "kind %s saturates", kind)
		assert.Equal(t, 0.0, FallbackScore(kind, &schema.BasicCounters{}), "kind %s empty", kind)
	}

	// Half the documentation estimate comes from repository count
	assert.Equal(t, 5.0, FallbackScore(schema.DocumentationComponent, &schema.BasicCounters{TotalRepos: 50}))
}

func TestWeights(t *testing.T) {
	model := Weights()

	require.Len(t, model.Components, 4)
	var total float64
	for _, row := range model.Components {
		total += row.Weight
		assert.NotEmpty(t, row.Rationale)
	}
	assert.Equal(t, 100.0, total)
	require.Len(t, model.Grades, 6)
	assert.Equal(t, schema.GradeS, model.Grades[0].Grade)
	assert.Equal(t, 95.0, model.Grades[0].Min)
	assert.NotEmpty(t, model.Formula)
}
