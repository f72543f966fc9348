package iocache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSnapshotStore(t *testing.T) *SnapshotStoreImpl {
	t.Helper()
	store, err := NewSnapshotStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleSnapshot(user string, score float64) *schema.Snapshot {
	scanned := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)
	langsAt := scanned.Add(-time.Hour)
	s := score
	return &schema.Snapshot{
		UserID:            user,
		Profile:           schema.UserProfile{Login: user, Followers: 12, CreatedAt: scanned.AddDate(-5, 0, 0)},
		Counters:          schema.BasicCounters{TotalRepos: 3, TotalStars: 40, TotalCommits: 500},
		Languages:         map[string]float64{"Go": 75.5, "Shell": 24.5},
		Frameworks:        map[string]int{"cobra": 2},
		Organizations:     []string{"acme"},
		OrganizationCount: 1,
		TopRepos:          []schema.RepoSummary{{Name: "tool", Stars: 30}},
		Activity:          schema.ActivityMetrics{CurrentStreak: 4, LongestStreak: 20},
		Components: map[schema.ComponentKind]schema.ComponentRecord{
			schema.HealthComponent: {Payload: json.RawMessage(`{"status":"computed","payload":{"score":7.5}}`), ScannedAt: scanned},
		},
		CachedRepoCount:    3,
		LanguagesScannedAt: &langsAt,
		Score:              &s,
		Percentile:         50,
		Grade:              schema.GradeC,
		ScoreComputedAt:    &scanned,
		ScannedAt:          scanned,
	}
}

func TestSnapshotStore_NoneBackend(t *testing.T) {
	store, err := NewSnapshotStore(schema.NoneBackend, "")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Get(ctx, "octocat")
	assert.ErrorIs(t, err, contract.ErrNoSnapshot)
	assert.NoError(t, store.Upsert(ctx, sampleSnapshot("octocat", 60)))
	assert.NoError(t, store.ClearComponents(ctx, "octocat"))

	scores, err := store.ListScores(ctx, "")
	assert.NoError(t, err)
	assert.Empty(t, scores)

	status, err := store.GetStatus()
	assert.NoError(t, err)
	assert.False(t, status.Connected)
	assert.NoError(t, store.Close())
}

func TestSnapshotStore_RoundTrip(t *testing.T) {
	store := newTestSnapshotStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "octocat")
	require.ErrorIs(t, err, contract.ErrNoSnapshot)

	want := sampleSnapshot("octocat", 61.25)
	require.NoError(t, store.Upsert(ctx, want))

	got, err := store.Get(ctx, "OctoCat")
	require.NoError(t, err)

	assert.Equal(t, "octocat", got.UserID)
	assert.Equal(t, want.Profile.Login, got.Profile.Login)
	assert.True(t, want.Profile.CreatedAt.Equal(got.Profile.CreatedAt))
	assert.Equal(t, want.Counters, got.Counters)
	assert.Equal(t, want.Languages, got.Languages)
	assert.Equal(t, want.Frameworks, got.Frameworks)
	assert.Equal(t, want.Organizations, got.Organizations)
	assert.Equal(t, want.Activity, got.Activity)
	assert.Equal(t, want.CachedRepoCount, got.CachedRepoCount)
	require.NotNil(t, got.LanguagesScannedAt)
	assert.True(t, want.LanguagesScannedAt.Equal(*got.LanguagesScannedAt))
	assert.Nil(t, got.FrameworksScannedAt)

	require.Len(t, got.Components, 1)
	rec := got.Components[schema.HealthComponent]
	assert.JSONEq(t, string(want.Components[schema.HealthComponent].Payload), string(rec.Payload))
	assert.True(t, want.ScannedAt.Equal(rec.ScannedAt))

	require.NotNil(t, got.Score)
	assert.InDelta(t, 61.25, *got.Score, 1e-9)
	assert.Equal(t, schema.GradeC, got.Grade)
	assert.True(t, want.ScannedAt.Equal(got.ScannedAt))
}

func TestSnapshotStore_UpsertReplaces(t *testing.T) {
	store := newTestSnapshotStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, sampleSnapshot("octocat", 40)))
	second := sampleSnapshot("octocat", 90)
	second.Components = nil
	require.NoError(t, store.Upsert(ctx, second))

	got, err := store.Get(ctx, "octocat")
	require.NoError(t, err)
	assert.InDelta(t, 90, *got.Score, 1e-9)
	assert.False(t, got.HasComponents())

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 1, status.TotalEntries)
}

func TestSnapshotStore_ClearComponents(t *testing.T) {
	store := newTestSnapshotStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, sampleSnapshot("octocat", 55)))
	require.NoError(t, store.ClearComponents(ctx, "octocat"))

	got, err := store.Get(ctx, "octocat")
	require.NoError(t, err)
	assert.False(t, got.HasComponents())
	require.NotNil(t, got.Score, "the composite survives a component reset")
	assert.Equal(t, map[string]float64{"Go": 75.5, "Shell": 24.5}, got.Languages)

	// Clearing a missing user is not an error
	assert.NoError(t, store.ClearComponents(ctx, "ghost"))
}

func TestSnapshotStore_ListScores(t *testing.T) {
	store := newTestSnapshotStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, sampleSnapshot("carol", 30)))
	require.NoError(t, store.Upsert(ctx, sampleSnapshot("alice", 80)))
	require.NoError(t, store.Upsert(ctx, sampleSnapshot("bob", 55)))
	unscored := sampleSnapshot("dave", 0)
	unscored.Score = nil
	require.NoError(t, store.Upsert(ctx, unscored))

	scores, err := store.ListScores(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []float64{80, 30}, scores, "ordered by user id, excluding bob and unscored rows")

	snaps, err := store.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 4)
	assert.Equal(t, "alice", snaps[0].UserID)
	assert.Nil(t, snaps[3].Score)
}

func TestSnapshotStore_RejectsEmptyUser(t *testing.T) {
	store := newTestSnapshotStore(t)
	assert.Error(t, store.Upsert(context.Background(), &schema.Snapshot{}))
	assert.Error(t, store.Upsert(context.Background(), nil))
}
