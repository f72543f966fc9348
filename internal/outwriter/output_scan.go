package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/schema"
)

// PrintScanResponse outputs a scan, analysis or score response in the configured format.
func PrintScanResponse(resp *schema.ScanResponse, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, _ := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, resp)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeScanCSV(w, resp, fmtFloat)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeScanText(w, resp, cfg, fmtFloat, duration)
		}, "Wrote table")
	}
}

// writeScanText prints the headline, the component table, warnings and a summary line.
func writeScanText(w io.Writer, resp *schema.ScanResponse, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	user := "unknown"
	if resp.Snapshot != nil {
		user = resp.Snapshot.UserID
	}

	if !resp.Success {
		if _, err := fmt.Fprintf(w, "❌ Scan of %s failed: %s\n", user, resp.Error); err != nil {
			return err
		}
		return writeWarnings(w, resp.Warnings)
	}

	// 1. Headline
	if resp.Score != nil {
		if _, err := fmt.Fprintf(w, "👤 %s  score %s  grade %s  percentile %s%% of %d\n",
			user,
			fmtFloat(resp.Score.Composite),
			contract.GetColorGrade(resp.Score.Grade),
			fmtFloat(resp.Score.Percentile),
			resp.Score.PopulationSize,
		); err != nil {
			return err
		}

		// 2. Component table
		detailWidth := getMaxTableTextWidth(cfg, 70)
		rows := make([][]string, 0, len(resp.Score.Components))
		for _, c := range resp.Score.Components {
			rows = append(rows, []string{
				string(c.Kind),
				fmtFloat(c.Weight),
				fmtFloat(c.Score),
				contract.GetColorSource(c.Source),
				contract.TruncateText(componentDetail(c, resp.Bundle), detailWidth),
			})
		}
		if err := writeTable(w, []string{"Component", "Weight", "Score", "Source", "Detail"}, rows); err != nil {
			return err
		}
	}

	// 3. Warnings
	if err := writeWarnings(w, resp.Warnings); err != nil {
		return err
	}

	// 4. Summary
	summary := fmt.Sprintf("Status %s across %d repositories in %v.", resp.Status, resp.TotalRepos, duration.Round(time.Millisecond))
	if resp.RateLimit != nil && resp.RateLimit.Limit > 0 {
		summary += fmt.Sprintf(" Rate remaining: %d/%d.", resp.RateLimit.Remaining, resp.RateLimit.Limit)
	}
	if !resp.Persisted {
		summary += " Snapshot not persisted."
	}
	_, err := fmt.Fprintln(w, summary)
	return err
}

// componentDetail describes a component by its sub-scores, or by why it fell back.
func componentDetail(c schema.ComponentScore, bundle *schema.AnalysisBundle) string {
	if c.Source == schema.FallbackSource {
		if bundle != nil {
			if reason := bundle.UnavailableReason(c.Kind); reason != "" {
				return "estimated: " + reason
			}
		}
		return "estimated from counters"
	}
	return formatSubScores(c.SubScores)
}

// formatSubScores prints sub-scores in name order.
func formatSubScores(subs map[string]float64) string {
	names := make([]string, 0, len(subs))
	for name := range subs {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%.1f", name, subs[name]))
	}
	return strings.Join(parts, " ")
}

func writeWarnings(w io.Writer, warnings []string) error {
	for _, warning := range warnings {
		if _, err := fmt.Fprintf(w, "⚠️  %s\n", warning); err != nil {
			return err
		}
	}
	return nil
}

// writeScanCSV writes one row per component with the composite repeated on each row.
func writeScanCSV(w io.Writer, resp *schema.ScanResponse, fmtFloat func(float64) string) error {
	header := []string{"user", "status", "component", "weight", "score", "source", "composite", "grade", "percentile"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		if resp.Score == nil {
			return nil
		}
		user := ""
		if resp.Snapshot != nil {
			user = resp.Snapshot.UserID
		}
		for _, c := range resp.Score.Components {
			rec := []string{
				user,
				string(resp.Status),
				string(c.Kind),
				fmtFloat(c.Weight),
				fmtFloat(c.Score),
				string(c.Source),
				fmtFloat(resp.Score.Composite),
				string(resp.Score.Grade),
				fmtFloat(resp.Score.Percentile),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
