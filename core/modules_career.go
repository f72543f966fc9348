package core

import (
	"errors"
	"math"
	"sort"

	"github.com/huangsam/devscore/schema"
)

var errNoCareerInputs = errors.New("no computed analysis to derive from")

// Career levels, most senior first.
var careerLevels = []struct {
	name     string
	minYears float64
	minScore float64
}{
	{"Principal", 10, 8},
	{"Senior", 5, 6.5},
	{"Mid-level", 2, 4.5},
	{"Junior", 0, 0},
}

// deriveCareer computes the career report from the dataset and the finished sibling outcomes.
// It makes no external calls.
func deriveCareer(ds *schema.Dataset, bundle *schema.AnalysisBundle) (schema.CareerReport, error) {
	var quality float64
	computed := 0
	for _, kind := range schema.ConcurrentComponents {
		if payload, ok := bundle.Payload(kind); ok {
			quality += payload.ComponentScore()
			computed++
		}
	}
	if computed == 0 {
		return schema.CareerReport{}, errNoCareerInputs
	}

	report := schema.CareerReport{
		QualityScore:      round2(quality / float64(computed)),
		LanguageDiversity: round2(10 * clamp(float64(significantLanguages(ds.Languages))/6, 0, 1)),
		FrameworkBreadth:  round2(10 * clamp(float64(len(ds.Frameworks))/5, 0, 1)),
		ImpactScore: round2(0.4*logScale(ds.Counters.TotalStars, 1000) +
			0.3*logScale(ds.Counters.Followers, 500) +
			0.3*logScale(ds.Counters.MergedPRs, 200)),
		AnalyzedAt: ds.AsOf,
	}
	if !ds.Profile.CreatedAt.IsZero() && ds.AsOf.After(ds.Profile.CreatedAt) {
		years := ds.AsOf.Sub(ds.Profile.CreatedAt).Hours() / 24 / 365.25
		report.ExperienceYears = math.Round(years*10) / 10
	}

	experience := 10 * clamp(report.ExperienceYears/10, 0, 1)
	report.Score = round2(0.2*experience +
		0.2*report.LanguageDiversity +
		0.15*report.FrameworkBreadth +
		0.2*report.ImpactScore +
		0.25*report.QualityScore)
	report.Level = careerLevel(report.ExperienceYears, report.Score)
	report.Strengths, report.Improvements = splitSubScores(report)
	return report, nil
}

// significantLanguages counts languages holding at least one percent of the code.
func significantLanguages(langs map[string]float64) int {
	n := 0
	for _, share := range langs {
		if share >= 1 {
			n++
		}
	}
	return n
}

func careerLevel(years, score float64) string {
	for _, level := range careerLevels {
		if years >= level.minYears && score >= level.minScore {
			return level.name
		}
	}
	return careerLevels[len(careerLevels)-1].name
}

// splitSubScores lists strong (>= 7) and weak (<= 4) sub-scores by name.
func splitSubScores(report schema.CareerReport) (strengths, improvements []string) {
	subs := report.SubScores()
	names := make([]string, 0, len(subs))
	for name := range subs {
		names = append(names, name)
	}
	sort.Strings(names)

	strengths, improvements = []string{}, []string{}
	for _, name := range names {
		switch v := subs[name]; {
		case v >= 7:
			strengths = append(strengths, name)
		case v <= 4:
			improvements = append(improvements, name)
		}
	}
	return strengths, improvements
}
