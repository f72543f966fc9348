package core

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/huangsam/devscore/schema"
)

// commitsPerRepo caps the commits fetched from each analyzed repository.
const commitsPerRepo = 30

var (
	errNoActivity = errors.New("no commits or contributions to analyze")

	conventionalPattern = regexp.MustCompile(`^(feat|fix|docs|style|refactor|perf|test|build|ci|chore|revert)(\([^)]*\))?!?: \S`)
)

// analyzeBehavior scores commit messages and the contribution rhythm.
func analyzeBehavior(ctx context.Context, in *moduleInput) (schema.BehaviorReport, error) {
	perRepo, err := fanOutRepos(ctx, in.workers, in.repos, func(ctx context.Context, r schema.Repository) ([]schema.Commit, error) {
		return in.source.ListCommits(ctx, r.Owner, r.Name, in.dataset.Username, commitsPerRepo)
	})
	if err != nil {
		return schema.BehaviorReport{}, err
	}

	var commits []schema.Commit
	for _, batch := range perRepo {
		commits = append(commits, batch...)
	}
	activity := in.dataset.Activity
	if len(commits) == 0 && activity.TotalContributions == 0 {
		return schema.BehaviorReport{}, errNoActivity
	}
	sort.SliceStable(commits, func(i, j int) bool {
		if !commits[i].AuthoredAt.Equal(commits[j].AuthoredAt) {
			return commits[i].AuthoredAt.After(commits[j].AuthoredAt)
		}
		return commits[i].SHA < commits[j].SHA
	})

	report := schema.BehaviorReport{
		CommitsAnalyzed: len(commits),
		WeekendRatio:    activity.WeekendRatio,
		AnalyzedAt:      in.dataset.AsOf,
	}

	if len(commits) > 0 {
		var conventional, totalLength int
		var lengthQuality float64
		for _, c := range commits {
			subject := subjectLine(c.Message)
			if conventionalPattern.MatchString(subject) {
				conventional++
			}
			size := utf8.RuneCountInString(subject)
			totalLength += size
			lengthQuality += subjectQuality(size)
		}
		n := float64(len(commits))
		report.ConventionalRatio = round2(float64(conventional) / n)
		report.AverageMessageLength = round2(float64(totalLength) / n)
		report.MessageScore = round2(10 * (0.5*report.ConventionalRatio + 0.5*lengthQuality/n))
	}

	days := len(in.dataset.Calendar.Days)
	if days == 0 {
		days = 365 // calendar not kept in snapshots
	}
	// Active on 60% of days is considered fully consistent
	report.ConsistencyScore = round2(10 * clamp(float64(activity.ActiveDays)/(float64(days)*0.6), 0, 1))
	report.StreakScore = round2(6*clamp(float64(activity.LongestStreak)/30, 0, 1) + 4*clamp(float64(activity.CurrentStreak)/7, 0, 1))

	report.Score = round2(0.35*report.ConsistencyScore + 0.35*report.MessageScore + 0.3*report.StreakScore)
	return report, nil
}

func subjectLine(message string) string {
	subject, _, _ := strings.Cut(message, "\n")
	return strings.TrimSpace(subject)
}

// subjectQuality rates a subject length on 0-1; 10 to 72 characters is ideal.
func subjectQuality(size int) float64 {
	switch {
	case size >= 10 && size <= 72:
		return 1
	case size > 72:
		return 0.5
	default:
		return float64(size) / 10
	}
}
