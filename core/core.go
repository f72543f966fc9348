// Package core has core logic for syncing, analysis orchestration and scoring.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/devscore/internal/api"
	"github.com/huangsam/devscore/internal/apiclient"
	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/internal/ghclient"
	"github.com/huangsam/devscore/internal/iocache"
	"github.com/huangsam/devscore/internal/outwriter"
	"github.com/huangsam/devscore/internal/s3export"
	"github.com/huangsam/devscore/schema"
)

// ExecutorFunc defines the function signature for executing the CLI modes.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error

// NewGitHubScanner creates a scanner reading from the configured GitHub API.
func NewGitHubScanner(cfg *contract.Config, mgr contract.CacheManager) *Scanner {
	return NewScanner(cfg, ghclient.NewDataSourceFactory(cfg.APIURL), mgr)
}

// ExecuteScan scans the configured user and prints the result.
// It serves as the main entry point for the 'scan' command.
func ExecuteScan(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	resp, err := NewGitHubScanner(cfg, mgr).Scan(WithProgress(ctx), schema.ScanRequest{
		Username: cfg.Username,
		Token:    cfg.Token,
		Fast:     cfg.Fast,
		Fresh:    cfg.Fresh,
	})
	if err != nil {
		return err
	}
	return outwriter.PrintScanResponse(resp, cfg, time.Since(start))
}

// ExecuteAnalyze runs the deferred analysis of the configured user and prints the result.
func ExecuteAnalyze(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	resp, err := NewGitHubScanner(cfg, mgr).Analyze(WithProgress(ctx), schema.ScanRequest{
		Username: cfg.Username,
		Token:    cfg.Token,
	})
	if err != nil {
		return err
	}
	return outwriter.PrintScanResponse(resp, cfg, time.Since(start))
}

// ExecuteScore prints the stored score of the configured user without external calls.
func ExecuteScore(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	resp, err := NewGitHubScanner(cfg, mgr).Score(ctx, cfg.Username)
	if err != nil {
		return err
	}
	return outwriter.PrintScanResponse(resp, cfg, time.Since(start))
}

// ExecuteRemoteScore prints the score served by a devscore server.
// Reads go through a session cache scoped to this invocation.
func ExecuteRemoteScore(ctx context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	start := time.Now()
	client, err := apiclient.New(cfg.ServerURL, cfg.Token, iocache.NewSessionCache())
	if err != nil {
		return err
	}
	resp, err := client.Score(ctx, cfg.Username)
	if err != nil {
		return err
	}
	return outwriter.PrintScanResponse(resp, cfg, time.Since(start))
}

// ExecuteServe serves the HTTP API until ctx is cancelled.
func ExecuteServe(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	fmt.Printf("Serving devscore API on %s\n", cfg.Listen)
	return api.NewServer(NewGitHubScanner(cfg, mgr)).ListenAndServe(ctx, cfg.Listen)
}

// ExecuteSnapshotShow prints the stored snapshot of the configured user.
func ExecuteSnapshotShow(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	snap, err := mgr.GetSnapshotStore().Get(ctx, cfg.Username)
	if err != nil {
		return err
	}
	return outwriter.PrintSnapshot(snap, cfg)
}

// ExecuteSnapshotReset nulls the stored analyses of the configured user.
func ExecuteSnapshotReset(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	return NewGitHubScanner(cfg, mgr).Reset(ctx, cfg.Username)
}

// ExecuteEvents prints the most recent scan events, optionally for one user.
func ExecuteEvents(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	events, err := mgr.GetEventStore().ListEvents(ctx, cfg.Username, cfg.EventLimit)
	if err != nil {
		return err
	}
	return outwriter.PrintEvents(events, cfg)
}

// ExecuteWeights prints the scoring model. It needs no stores.
func ExecuteWeights(_ context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	return outwriter.PrintWeights(Weights(), cfg)
}

// ExecuteEventsExport writes the scan log and snapshots to Parquet files,
// then uploads them when an export bucket is configured.
func ExecuteEventsExport(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	files, err := iocache.ExecuteEventExport(ctx, mgr, cfg.OutputFile)
	if err != nil {
		return err
	}
	if cfg.ExportS3Bucket == "" {
		return nil
	}

	uploader, err := s3export.New(ctx, s3export.Options{
		Bucket:   cfg.ExportS3Bucket,
		Prefix:   cfg.ExportS3Prefix,
		Endpoint: cfg.ExportS3Endpoint,
		Region:   cfg.ExportS3Region,
	})
	if err != nil {
		return err
	}
	uris, err := uploader.UploadFiles(ctx, files)
	for _, uri := range uris {
		fmt.Printf("Uploaded %s\n", uri)
	}
	return err
}

// ExecuteMigrate migrates the snapshot database and, when it lives elsewhere, the event database.
func ExecuteMigrate(_ context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	type target struct {
		label       string
		backend     schema.DatabaseBackend
		connStr     string
		defaultPath string
	}
	targets := []target{
		{"snapshot", cfg.SnapshotBackend, cfg.SnapshotDBConnect, contract.GetSnapshotDBFilePath()},
		{"event", cfg.EventBackend, cfg.EventDBConnect, contract.GetEventDBFilePath()},
	}
	if cfg.EventBackend == cfg.SnapshotBackend && cfg.EventDBConnect == cfg.SnapshotDBConnect && cfg.SnapshotBackend != schema.SQLiteBackend {
		targets = targets[:1]
	}

	for _, t := range targets {
		if t.backend == schema.NoneBackend {
			fmt.Printf("Skipping %s store: backend is none\n", t.label)
			continue
		}
		v, err := iocache.Migrate(t.backend, t.connStr, t.defaultPath, cfg.TargetVersion)
		if err != nil {
			return fmt.Errorf("%s store: %w", t.label, err)
		}
		fmt.Printf("Migrated %s store (%s) to version %d\n", t.label, t.backend, v)
	}
	return nil
}

// ExecuteCacheStatus prints the status of every cache tier.
func ExecuteCacheStatus(_ context.Context, _ *contract.Config, mgr contract.CacheManager) error {
	if mem, ok := mgr.GetMemoryCache().(*iocache.MemoryCache); ok {
		iocache.PrintMemoryStatus(mem.Status())
		fmt.Println()
	}
	snapStatus, err := mgr.GetSnapshotStore().GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get snapshot status: %w", err)
	}
	iocache.PrintStoreStatus("Snapshot", snapStatus)
	fmt.Println()

	eventStatus, err := mgr.GetEventStore().GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get event status: %w", err)
	}
	iocache.PrintStoreStatus("Event", eventStatus)
	return nil
}

// ExecuteCacheClear drops both persisted stores. It expects the stores to be closed.
func ExecuteCacheClear(_ context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	if err := iocache.ClearStore(cfg.SnapshotBackend, iocache.DefaultDBFilePath(iocache.SnapshotTable), cfg.SnapshotDBConnect, iocache.SnapshotTable); err != nil {
		return fmt.Errorf("failed to clear snapshots: %w", err)
	}
	if err := iocache.ClearStore(cfg.EventBackend, iocache.DefaultDBFilePath(iocache.EventTable), cfg.EventDBConnect, iocache.EventTable); err != nil {
		return fmt.Errorf("failed to clear scan events: %w", err)
	}
	fmt.Println("Stores cleared successfully.")
	return nil
}
