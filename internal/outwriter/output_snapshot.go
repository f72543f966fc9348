package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/schema"
)

// PrintSnapshot outputs a stored snapshot in the configured format.
func PrintSnapshot(snap *schema.Snapshot, cfg *contract.Config) error {
	fmtFloat, intFmt := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, snap)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVWithHeader(w, []string{"field", "value"}, func(cw *csv.Writer) error {
				return cw.WriteAll(snapshotFields(snap, fmtFloat, intFmt))
			})
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeSnapshotText(w, snap, fmtFloat, intFmt)
		}, "Wrote table")
	}
}

func writeSnapshotText(w io.Writer, snap *schema.Snapshot, fmtFloat func(float64) string, intFmt string) error {
	if err := writeTable(w, []string{"Field", "Value"}, snapshotFields(snap, fmtFloat, intFmt)); err != nil {
		return err
	}
	if len(snap.TopRepos) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(snap.TopRepos))
	for i, r := range snap.TopRepos {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			r.Name,
			fmt.Sprintf(intFmt, r.Stars),
			fmt.Sprintf(intFmt, r.Forks),
			r.Language,
			r.License,
		})
	}
	return writeTable(w, []string{"Rank", "Repository", "Stars", "Forks", "Language", "License"}, rows)
}

// snapshotFields flattens the snapshot into ordered field/value pairs.
func snapshotFields(snap *schema.Snapshot, fmtFloat func(float64) string, intFmt string) [][]string {
	c := snap.Counters
	fields := [][]string{
		{"user", snap.UserID},
		{"name", snap.Profile.Name},
		{"score", formatOptionalScore(snap.Score, fmtFloat)},
		{"grade", string(snap.Grade)},
		{"percentile", fmtFloat(snap.Percentile)},
		{"repos", fmt.Sprintf(intFmt, c.TotalRepos)},
		{"cached_repo_count", fmt.Sprintf(intFmt, snap.CachedRepoCount)},
		{"stars", fmt.Sprintf(intFmt, c.TotalStars)},
		{"forks", fmt.Sprintf(intFmt, c.TotalForks)},
		{"commits", fmt.Sprintf(intFmt, c.TotalCommits)},
		{"pull_requests", fmt.Sprintf(intFmt, c.TotalPRs)},
		{"merged_prs", fmt.Sprintf(intFmt, c.MergedPRs)},
		{"followers", fmt.Sprintf(intFmt, c.Followers)},
		{"current_streak", fmt.Sprintf(intFmt, c.CurrentStreak)},
		{"longest_streak", fmt.Sprintf(intFmt, c.LongestStreak)},
		{"languages", formatShares(snap.Languages, fmtFloat)},
		{"frameworks", formatCounts(snap.Frameworks)},
		{"organizations", strings.Join(snap.Organizations, " ")},
		{"components", formatComponents(snap.Components)},
		{"languages_scanned_at", formatOptionalTime(snap.LanguagesScannedAt)},
		{"frameworks_scanned_at", formatOptionalTime(snap.FrameworksScannedAt)},
		{"organizations_scanned_at", formatOptionalTime(snap.OrganizationsScannedAt)},
		{"score_computed_at", formatOptionalTime(snap.ScoreComputedAt)},
		{"scanned_at", snap.ScannedAt.Format(contract.DateTimeFormat)},
	}
	return fields
}

// formatShares prints language shares largest first.
func formatShares(shares map[string]float64, fmtFloat func(float64) string) string {
	names := make([]string, 0, len(shares))
	for name := range shares {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if shares[names[i]] != shares[names[j]] {
			return shares[names[i]] > shares[names[j]]
		}
		return names[i] < names[j]
	})
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s:%s%%", name, fmtFloat(shares[name])))
	}
	return strings.Join(parts, " ")
}

func formatCounts(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s:%d", name, counts[name]))
	}
	return strings.Join(parts, " ")
}

// formatComponents lists the stored components in scoring order.
func formatComponents(components map[schema.ComponentKind]schema.ComponentRecord) string {
	if len(components) == 0 {
		return "none"
	}
	var parts []string
	for _, kind := range schema.AllComponents {
		if _, ok := components[kind]; ok {
			parts = append(parts, string(kind))
		}
	}
	return strings.Join(parts, " ")
}

func formatOptionalTime(ts *time.Time) string {
	if ts == nil {
		return "never"
	}
	return ts.Format(contract.DateTimeFormat)
}
