package iocache

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/internal/parquet"
)

// ExecuteEventExport exports the scan log and the snapshot table to Parquet files.
// It returns the paths of the written files.
func ExecuteEventExport(ctx context.Context, mgr contract.CacheManager, outputFile string) ([]string, error) {
	if outputFile == "" {
		return nil, errors.New("--output-file is required for export command")
	}

	events := mgr.GetEventStore()
	status, err := events.GetStatus()
	if err != nil {
		return nil, fmt.Errorf("failed to get event status: %w", err)
	}
	if status.TotalEntries == 0 {
		return nil, errors.New("no scan events found to export")
	}

	fmt.Printf("Exporting data from %s backend...\n", status.Backend)
	fmt.Printf("Total scan events: %d\n", status.TotalEntries)

	allEvents, err := events.ListEvents(ctx, "", 0)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve scan events: %w", err)
	}
	eventsFile := outputFile + ".scan_events.parquet"
	eventRows := parquet.ConvertScanEvents(allEvents)
	if err := parquet.WriteScanEventsParquet(eventRows, eventsFile); err != nil {
		return nil, fmt.Errorf("failed to write scan events: %w", err)
	}
	fmt.Printf("Exported %d scan events to: %s\n", len(eventRows), eventsFile)

	snaps, err := mgr.GetSnapshotStore().ListSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve snapshots: %w", err)
	}
	snapshotsFile := outputFile + ".snapshots.parquet"
	snapRows := parquet.ConvertSnapshots(snaps)
	if err := parquet.WriteSnapshotsParquet(snapRows, snapshotsFile); err != nil {
		return nil, fmt.Errorf("failed to write snapshots: %w", err)
	}
	fmt.Printf("Exported %d snapshots to: %s\n", len(snapRows), snapshotsFile)

	fmt.Println("\nExport complete! The Parquet files can be read with DuckDB, Pandas (via pyarrow) or Spark.")
	return []string{eventsFile, snapshotsFile}, nil
}
