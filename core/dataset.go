package core

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/huangsam/devscore/schema"
)

// fetched is everything pulled from the data source for one scan.
type fetched struct {
	profile  schema.UserProfile
	repos    []schema.Repository
	calendar schema.ContributionCalendar
	prs      schema.PullRequestMetrics
}

// buildDataset assembles the read-only module input.
func buildDataset(username string, in fetched, synced SyncResult, asOf time.Time) *schema.Dataset {
	activity := computeActivity(in.calendar)
	ds := &schema.Dataset{
		Username:      username,
		Profile:       in.profile,
		Repositories:  in.repos,
		Languages:     synced.Languages,
		Frameworks:    synced.Frameworks,
		Organizations: synced.Organizations,
		Calendar:      in.calendar,
		PullRequests:  in.prs,
		Activity:      activity,
		AsOf:          asOf,
	}
	ds.Counters = computeCounters(in.profile, in.repos, in.calendar, in.prs, activity)
	return ds
}

// datasetFromSnapshot rebuilds the module input of a deferred analysis.
// Only the repository list is fresh; everything else comes from the snapshot.
func datasetFromSnapshot(snap *schema.Snapshot, repos []schema.Repository, asOf time.Time) *schema.Dataset {
	return &schema.Dataset{
		Username:      snap.UserID,
		Profile:       snap.Profile,
		Repositories:  repos,
		Languages:     snap.Languages,
		Frameworks:    snap.Frameworks,
		Organizations: snap.Organizations,
		Calendar:      schema.ContributionCalendar{Days: []schema.ContributionDay{}},
		PullRequests: schema.PullRequestMetrics{
			Total:  snap.Counters.TotalPRs,
			Merged: snap.Counters.MergedPRs,
		},
		Counters: snap.Counters,
		Activity: snap.Activity,
		AsOf:     asOf,
	}
}

// computeCounters sums the cheap counters behind the fallback scores.
func computeCounters(profile schema.UserProfile, repos []schema.Repository, cal schema.ContributionCalendar, prs schema.PullRequestMetrics, activity schema.ActivityMetrics) schema.BasicCounters {
	c := schema.BasicCounters{
		TotalRepos:    len(repos),
		TotalCommits:  cal.TotalCommits,
		TotalPRs:      prs.Total,
		MergedPRs:     prs.Merged,
		Followers:     profile.Followers,
		Following:     profile.Following,
		CurrentStreak: activity.CurrentStreak,
		LongestStreak: activity.LongestStreak,
	}
	for _, r := range repos {
		if r.Fork {
			continue
		}
		c.TotalStars += r.Stars
		c.TotalForks += r.Forks
	}
	return c
}

// computeActivity derives streaks and the weekday histogram from the calendar.
// The current streak tolerates an empty last day, since today may not be over.
func computeActivity(cal schema.ContributionCalendar) schema.ActivityMetrics {
	days := append([]schema.ContributionDay(nil), cal.Days...)
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })

	var m schema.ActivityMetrics
	run, weekend := 0, 0
	for _, d := range days {
		m.TotalContributions += d.Count
		m.WeekdayHistogram[d.Date.Weekday()] += d.Count
		if wd := d.Date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			weekend += d.Count
		}
		if d.Count > 0 {
			m.ActiveDays++
			run++
			m.LongestStreak = max(m.LongestStreak, run)
		} else {
			run = 0
		}
	}

	end := len(days) - 1
	if end >= 0 && days[end].Count == 0 {
		end--
	}
	for i := end; i >= 0 && days[i].Count > 0; i-- {
		m.CurrentStreak++
	}

	if m.TotalContributions > 0 {
		m.WeekendRatio = round2(float64(weekend) / float64(m.TotalContributions))
	}
	return m
}

// topRepos returns the n most starred owned repositories.
func topRepos(repos []schema.Repository, n int) []schema.RepoSummary {
	own := make([]schema.Repository, 0, len(repos))
	for _, r := range repos {
		if !r.Fork {
			own = append(own, r)
		}
	}
	sort.SliceStable(own, func(i, j int) bool {
		if own[i].Stars != own[j].Stars {
			return own[i].Stars > own[j].Stars
		}
		return own[i].Name < own[j].Name
	})

	out := make([]schema.RepoSummary, 0, min(n, len(own)))
	for _, r := range own[:min(n, len(own))] {
		out = append(out, schema.RepoSummary{
			Name:      r.Name,
			Stars:     r.Stars,
			Forks:     r.Forks,
			Language:  r.Language,
			License:   r.License,
			Fork:      r.Fork,
			UpdatedAt: r.UpdatedAt,
		})
	}
	return out
}

// analyzedRepos picks the owned repositories the per-repository modules look at:
// most recently pushed first, name as tie breaker, at most limit of them.
func analyzedRepos(repos []schema.Repository, limit int) []schema.Repository {
	own := make([]schema.Repository, 0, len(repos))
	for _, r := range repos {
		if !r.Fork && !r.Archived {
			own = append(own, r)
		}
	}
	sort.SliceStable(own, func(i, j int) bool {
		if !own[i].PushedAt.Equal(own[j].PushedAt) {
			return own[i].PushedAt.After(own[j].PushedAt)
		}
		return own[i].Name < own[j].Name
	})
	if limit > 0 && len(own) > limit {
		own = own[:limit]
	}
	return own
}

// componentRecords encodes every computed payload of the bundle.
func componentRecords(bundle *schema.AnalysisBundle, at time.Time) (map[schema.ComponentKind]schema.ComponentRecord, error) {
	records := map[schema.ComponentKind]schema.ComponentRecord{}
	for _, kind := range schema.AllComponents {
		payload, ok := bundle.Payload(kind)
		if !ok {
			continue
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", kind, err)
		}
		records[kind] = schema.ComponentRecord{Payload: raw, ScannedAt: at}
	}
	return records, nil
}

// bundleFromSnapshot decodes the stored payloads back into a bundle.
func bundleFromSnapshot(snap *schema.Snapshot) *schema.AnalysisBundle {
	bundle := &schema.AnalysisBundle{
		Documentation: decodeComponent[schema.DocumentationReport](snap, schema.DocumentationComponent),
		Health:        decodeComponent[schema.HealthReport](snap, schema.HealthComponent),
		Behavior:      decodeComponent[schema.BehaviorReport](snap, schema.BehaviorComponent),
		Career:        decodeComponent[schema.CareerReport](snap, schema.CareerComponent),
	}
	return bundle
}

func decodeComponent[T any](snap *schema.Snapshot, kind schema.ComponentKind) schema.Outcome[T] {
	record, ok := snap.Components[kind]
	if !ok || len(record.Payload) == 0 {
		return schema.Unavailable[T]("not analyzed")
	}
	var v T
	if err := json.Unmarshal(record.Payload, &v); err != nil {
		return schema.Unavailable[T]("stored payload is unreadable: " + err.Error())
	}
	return schema.Computed(v)
}

// deferredBundle marks every component as left for a later analysis.
func deferredBundle() *schema.AnalysisBundle {
	const reason = "deferred to analysis"
	return &schema.AnalysisBundle{
		Documentation: schema.Unavailable[schema.DocumentationReport](reason),
		Health:        schema.Unavailable[schema.HealthReport](reason),
		Behavior:      schema.Unavailable[schema.BehaviorReport](reason),
		Career:        schema.Unavailable[schema.CareerReport](reason),
	}
}
