package iocache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/schema"
)

// snapshotColumns is the column order used by every snapshot query.
var snapshotColumns = []string{
	"user_id",
	"profile_json",
	"counters_json",
	"languages_json",
	"frameworks_json",
	"organizations_json",
	"organization_count",
	"top_repos_json",
	"activity_json",
	"cached_repo_count",
	"languages_scanned_at",
	"frameworks_scanned_at",
	"organizations_scanned_at",
	"documentation_json",
	"documentation_scanned_at",
	"health_json",
	"health_scanned_at",
	"behavior_json",
	"behavior_scanned_at",
	"career_json",
	"career_scanned_at",
	"score",
	"percentile",
	"grade",
	"score_computed_at",
	"scanned_at",
}

// componentColumns maps each component to its payload column prefix.
var componentColumns = map[schema.ComponentKind]string{
	schema.DocumentationComponent: "documentation",
	schema.HealthComponent:        "health",
	schema.BehaviorComponent:      "behavior",
	schema.CareerComponent:        "career",
}

// SnapshotStoreImpl handles durable snapshot storage using various database backends.
type SnapshotStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
	connStr string
}

var _ contract.SnapshotStore = &SnapshotStoreImpl{} // Compile-time check

// NewSnapshotStore initializes and returns a new SnapshotStore based on the backend type.
func NewSnapshotStore(backend schema.DatabaseBackend, connStr string) (*SnapshotStoreImpl, error) {
	if backend == schema.NoneBackend {
		// Return a no-op store for disabled persistence
		return &SnapshotStoreImpl{backend: backend, connStr: connStr}, nil
	}

	db, err := openDB(backend, connStr, contract.GetSnapshotDBFilePath())
	if err != nil {
		return nil, err
	}

	ddl, err := readDDL(backend, snapshotDDLFile)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", SnapshotTable, err)
	}

	return &SnapshotStoreImpl{db: db, backend: backend, connStr: connStr}, nil
}

// disabled reports whether the store is a no-op.
func (s *SnapshotStoreImpl) disabled() bool {
	return s.backend == schema.NoneBackend || s.db == nil
}

// Get retrieves the snapshot of a user.
func (s *SnapshotStoreImpl) Get(ctx context.Context, userID string) (*schema.Snapshot, error) {
	if s.disabled() {
		return nil, contract.ErrNoSnapshot
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE user_id = %s",
		strings.Join(snapshotColumns, ", "), quoteTableName(SnapshotTable, s.backend), placeholder(s.backend, 1))
	row := s.db.QueryRowContext(ctx, query, schema.NormalizeUser(userID))

	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contract.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot for %s: %w", userID, err)
	}
	return snap, nil
}

// Upsert writes the full snapshot. Concurrent writers for the same user resolve as last-writer-wins.
func (s *SnapshotStoreImpl) Upsert(ctx context.Context, snap *schema.Snapshot) error {
	if s.disabled() {
		return nil
	}
	if snap == nil || snap.UserID == "" {
		return fmt.Errorf("snapshot requires a user id")
	}

	args, err := snapshotArgs(snap)
	if err != nil {
		return err
	}
	query := upsertQuery(s.backend, SnapshotTable, "user_id", snapshotColumns)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert snapshot for %s: %w", snap.UserID, err)
	}
	return nil
}

// ClearComponents nulls every component payload and timestamp of a user.
func (s *SnapshotStoreImpl) ClearComponents(ctx context.Context, userID string) error {
	if s.disabled() {
		return nil
	}

	sets := make([]string, 0, 2*len(schema.AllComponents))
	for _, kind := range schema.AllComponents {
		prefix := componentColumns[kind]
		sets = append(sets, prefix+"_json = NULL", prefix+"_scanned_at = NULL")
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE user_id = %s",
		quoteTableName(SnapshotTable, s.backend), strings.Join(sets, ", "), placeholder(s.backend, 1))
	if _, err := s.db.ExecContext(ctx, query, schema.NormalizeUser(userID)); err != nil {
		return fmt.Errorf("failed to clear components for %s: %w", userID, err)
	}
	return nil
}

// ListScores returns every stored composite score except the excluded user's, ordered by user id.
func (s *SnapshotStoreImpl) ListScores(ctx context.Context, excludeUserID string) ([]float64, error) {
	if s.disabled() {
		return []float64{}, nil
	}

	query := fmt.Sprintf("SELECT score FROM %s WHERE score IS NOT NULL AND user_id <> %s ORDER BY user_id",
		quoteTableName(SnapshotTable, s.backend), placeholder(s.backend, 1))
	rows, err := s.db.QueryContext(ctx, query, schema.NormalizeUser(excludeUserID))
	if err != nil {
		return nil, fmt.Errorf("failed to list scores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	scores := []float64{}
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		scores = append(scores, v)
	}
	return scores, rows.Err()
}

// ListSnapshots returns every stored snapshot ordered by user id.
func (s *SnapshotStoreImpl) ListSnapshots(ctx context.Context) ([]schema.Snapshot, error) {
	if s.disabled() {
		return []schema.Snapshot{}, nil
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY user_id",
		strings.Join(snapshotColumns, ", "), quoteTableName(SnapshotTable, s.backend))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	snaps := []schema.Snapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, *snap)
	}
	return snaps, rows.Err()
}

// GetStatus returns status information about the snapshot store.
func (s *SnapshotStoreImpl) GetStatus() (schema.StoreStatus, error) {
	return tableStatus(s.db, s.backend, s.connStr, SnapshotTable, "scanned_at")
}

// Close closes the underlying DB connection.
func (s *SnapshotStoreImpl) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// snapshotArgs flattens a snapshot into column values in snapshotColumns order.
func snapshotArgs(snap *schema.Snapshot) ([]any, error) {
	blobs := make([]string, 0, 7)
	for _, v := range []any{snap.Profile, snap.Counters, nonNilMap(snap.Languages), nonNilMap(snap.Frameworks), nonNilSlice(snap.Organizations), nonNilSlice(snap.TopRepos), snap.Activity} {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode snapshot: %w", err)
		}
		blobs = append(blobs, string(data))
	}

	args := []any{
		schema.NormalizeUser(snap.UserID),
		blobs[0], blobs[1], blobs[2], blobs[3], blobs[4],
		snap.OrganizationCount,
		blobs[5], blobs[6],
		snap.CachedRepoCount,
		toMillis(snap.LanguagesScannedAt),
		toMillis(snap.FrameworksScannedAt),
		toMillis(snap.OrganizationsScannedAt),
	}

	for _, kind := range schema.AllComponents {
		rec, ok := snap.Components[kind]
		if !ok || len(rec.Payload) == 0 {
			args = append(args, sql.NullString{}, sql.NullInt64{})
			continue
		}
		ts := rec.ScannedAt
		args = append(args, sql.NullString{String: string(rec.Payload), Valid: true}, toMillis(&ts))
	}

	var score sql.NullFloat64
	if snap.Score != nil {
		score = sql.NullFloat64{Float64: *snap.Score, Valid: true}
	}
	var grade sql.NullString
	if snap.Grade != "" {
		grade = sql.NullString{String: string(snap.Grade), Valid: true}
	}
	scannedAt := snap.ScannedAt
	args = append(args, score, snap.Percentile, grade, toMillis(snap.ScoreComputedAt), scannedAt.UnixMilli())
	return args, nil
}

// scanSnapshot reads one row in snapshotColumns order.
func scanSnapshot(row rowScanner) (*schema.Snapshot, error) {
	var (
		snap                                schema.Snapshot
		profile, counters, langs, fws, orgs string
		topRepos, activity                  string
		langsAt, fwsAt, orgsAt              sql.NullInt64
		payloads                            [4]sql.NullString
		payloadAts                          [4]sql.NullInt64
		score                               sql.NullFloat64
		grade                               sql.NullString
		scoreAt                             sql.NullInt64
		scannedAt                           int64
	)

	err := row.Scan(
		&snap.UserID, &profile, &counters, &langs, &fws, &orgs,
		&snap.OrganizationCount, &topRepos, &activity, &snap.CachedRepoCount,
		&langsAt, &fwsAt, &orgsAt,
		&payloads[0], &payloadAts[0],
		&payloads[1], &payloadAts[1],
		&payloads[2], &payloadAts[2],
		&payloads[3], &payloadAts[3],
		&score, &snap.Percentile, &grade, &scoreAt, &scannedAt,
	)
	if err != nil {
		return nil, err
	}

	decoders := []struct {
		raw string
		dst any
	}{
		{profile, &snap.Profile},
		{counters, &snap.Counters},
		{langs, &snap.Languages},
		{fws, &snap.Frameworks},
		{orgs, &snap.Organizations},
		{topRepos, &snap.TopRepos},
		{activity, &snap.Activity},
	}
	for _, d := range decoders {
		if err := json.Unmarshal([]byte(d.raw), d.dst); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot column: %w", err)
		}
	}

	snap.LanguagesScannedAt = fromMillis(langsAt)
	snap.FrameworksScannedAt = fromMillis(fwsAt)
	snap.OrganizationsScannedAt = fromMillis(orgsAt)

	for i, kind := range schema.AllComponents {
		if !payloads[i].Valid {
			continue
		}
		if snap.Components == nil {
			snap.Components = make(map[schema.ComponentKind]schema.ComponentRecord)
		}
		rec := schema.ComponentRecord{Payload: json.RawMessage(payloads[i].String)}
		if ts := fromMillis(payloadAts[i]); ts != nil {
			rec.ScannedAt = *ts
		}
		snap.Components[kind] = rec
	}

	if score.Valid {
		v := score.Float64
		snap.Score = &v
	}
	snap.Grade = schema.Grade(grade.String)
	snap.ScoreComputedAt = fromMillis(scoreAt)
	snap.ScannedAt = time.UnixMilli(scannedAt).UTC()
	return &snap, nil
}

// nonNilMap keeps empty maps encoded as {} rather than null.
func nonNilMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return map[K]V{}
	}
	return m
}

// nonNilSlice keeps empty slices encoded as [] rather than null.
func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
