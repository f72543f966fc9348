// Package parquet provides data structures and functions for exporting devscore
// scan history and snapshots to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/huangsam/devscore/schema"
	"github.com/parquet-go/parquet-go"
)

// ScanEvent represents one scan of a user.
// This struct maps to the devscore_scan_events database table.
type ScanEvent struct {
	// EventID is the unique identifier of the scan
	EventID string `parquet:"event_id,snappy"`

	// UserID is the normalized username
	UserID string `parquet:"user_id,snappy"`

	// Mode is full, fast or analysis
	Mode string `parquet:"mode,snappy"`

	// Status is computed, partial or failed
	Status string `parquet:"status,snappy"`

	// Score is the composite score (nullable when the scan failed)
	Score *float64 `parquet:"score,optional,snappy"`

	// Grade is the letter grade (nullable when the scan failed)
	Grade *string `parquet:"grade,optional,snappy"`

	// Persisted tells whether the snapshot write succeeded
	Persisted bool `parquet:"persisted,snappy"`

	// RateRemaining is the call budget left when the scan started
	RateRemaining int32 `parquet:"rate_remaining,snappy"`

	StartedAt  time.Time `parquet:"started_at,snappy"`
	FinishedAt time.Time `parquet:"finished_at,snappy"`
	DurationMs int64     `parquet:"duration_ms,snappy"`

	// ErrorMessage is the failure reason (nullable)
	ErrorMessage *string `parquet:"error_message,optional,snappy"`
}

// Snapshot is the flattened, analytics-friendly view of one persisted snapshot.
// This struct maps to the devscore_snapshots database table.
type Snapshot struct {
	UserID            string `parquet:"user_id,snappy"`
	TotalRepos        int32  `parquet:"total_repos,snappy"`
	TotalStars        int32  `parquet:"total_stars,snappy"`
	TotalCommits      int32  `parquet:"total_commits,snappy"`
	TotalPRs          int32  `parquet:"total_prs,snappy"`
	Followers         int32  `parquet:"followers,snappy"`
	OrganizationCount int32  `parquet:"organization_count,snappy"`
	CachedRepoCount   int32  `parquet:"cached_repo_count,snappy"`

	// TopLanguage is the language with the largest share (nullable)
	TopLanguage *string `parquet:"top_language,optional,snappy"`

	// ComponentsStored counts the analysis components with a payload
	ComponentsStored int32 `parquet:"components_stored,snappy"`

	Score      *float64  `parquet:"score,optional,snappy"`
	Percentile float64   `parquet:"percentile,snappy"`
	Grade      *string   `parquet:"grade,optional,snappy"`
	ScannedAt  time.Time `parquet:"scanned_at,snappy"`
}

// writeParquet writes rows of any tagged struct to outputPath.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// The schema is derived from the struct tags
	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteScanEventsParquet writes scan events to a Parquet file.
func WriteScanEventsParquet(data []ScanEvent, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteSnapshotsParquet writes snapshots to a Parquet file.
func WriteSnapshotsParquet(data []Snapshot, outputPath string) error {
	return writeParquet(data, outputPath)
}

// ConvertScanEvents converts stored events into Parquet rows.
func ConvertScanEvents(events []schema.ScanEvent) []ScanEvent {
	rows := make([]ScanEvent, 0, len(events))
	for _, e := range events {
		row := ScanEvent{
			EventID:       e.EventID,
			UserID:        e.UserID,
			Mode:          string(e.Mode),
			Status:        string(e.Status),
			Score:         e.Score,
			Persisted:     e.Persisted,
			RateRemaining: int32(e.RateRemaining),
			StartedAt:     e.StartedAt,
			FinishedAt:    e.FinishedAt,
			DurationMs:    e.DurationMs,
		}
		if e.Grade != "" {
			grade := string(e.Grade)
			row.Grade = &grade
		}
		if e.Error != "" {
			msg := e.Error
			row.ErrorMessage = &msg
		}
		rows = append(rows, row)
	}
	return rows
}

// ConvertSnapshots converts stored snapshots into Parquet rows.
func ConvertSnapshots(snaps []schema.Snapshot) []Snapshot {
	rows := make([]Snapshot, 0, len(snaps))
	for _, s := range snaps {
		row := Snapshot{
			UserID:            s.UserID,
			TotalRepos:        int32(s.Counters.TotalRepos),
			TotalStars:        int32(s.Counters.TotalStars),
			TotalCommits:      int32(s.Counters.TotalCommits),
			TotalPRs:          int32(s.Counters.TotalPRs),
			Followers:         int32(s.Counters.Followers),
			OrganizationCount: int32(s.OrganizationCount),
			CachedRepoCount:   int32(s.CachedRepoCount),
			TopLanguage:       topLanguage(s.Languages),
			ComponentsStored:  int32(len(s.Components)),
			Score:             s.Score,
			Percentile:        s.Percentile,
			ScannedAt:         s.ScannedAt,
		}
		if s.Grade != "" {
			grade := string(s.Grade)
			row.Grade = &grade
		}
		rows = append(rows, row)
	}
	return rows
}

// topLanguage returns the language with the largest share, breaking ties by name.
func topLanguage(langs map[string]float64) *string {
	if len(langs) == 0 {
		return nil
	}
	names := make([]string, 0, len(langs))
	for name := range langs {
		names = append(names, name)
	}
	sort.Strings(names)

	best := names[0]
	for _, name := range names[1:] {
		if langs[name] > langs[best] {
			best = name
		}
	}
	return &best
}
