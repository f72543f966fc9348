//go:build database

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/huangsam/devscore/core"
	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/internal/iocache"
	"github.com/huangsam/devscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startMySQL starts a MySQL container and returns its connection string.
func startMySQL(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306:3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "devscore",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(30 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mysqlC.Terminate(ctx) })

	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	return fmt.Sprintf("root:secret123@tcp(%s:%s)/devscore?parseTime=true", host, port.Port())
}

// startPostgres starts a PostgreSQL container and returns its connection string.
func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432:5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })
	time.Sleep(5 * time.Second)

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres sslmode=disable", host, port.Port())
}

// emptyAccount mocks a GitHub account with no repositories.
func emptyAccount(user string) *contract.MockDataSource {
	source := &contract.MockDataSource{}
	source.On("GetRateLimit", mock.Anything).Return(schema.RateLimit{Limit: 5000, Remaining: 4999}, nil)
	source.On("GetUser", mock.Anything, user).Return(schema.UserProfile{Login: user, Followers: 3}, nil)
	source.On("ListRepositories", mock.Anything, user).Return([]schema.Repository{}, nil)
	source.On("GetContributionCalendar", mock.Anything, user).Return(schema.ContributionCalendar{Days: []schema.ContributionDay{}}, nil)
	source.On("GetPullRequestMetrics", mock.Anything, user).Return(schema.PullRequestMetrics{}, nil)
	source.On("ListOrganizations", mock.Anything, user).Return([]string{"acme"}, nil)
	return source
}

// exerciseStores scans two users through real stores and checks what landed.
func exerciseStores(t *testing.T, backend schema.DatabaseBackend, connStr string) {
	ctx := context.Background()
	for _, table := range []string{iocache.SnapshotTable, iocache.EventTable} {
		require.NoError(t, iocache.ClearStore(backend, "", connStr, table))
	}

	mgr, err := iocache.OpenStores(time.Hour, backend, connStr, backend, connStr)
	require.NoError(t, err)
	defer mgr.Close()

	cfg := &contract.Config{Workers: 2, ModuleTimeout: 5 * time.Second, MinRateRemaining: 100, TopRepos: 3, MaxAnalyzedRepos: 5}
	for _, user := range []string{"ghost", "octocat"} {
		source := emptyAccount(user)
		scanner := core.NewScanner(cfg, func(string) (contract.DataSource, error) { return source, nil }, mgr)
		resp, err := scanner.Scan(ctx, schema.ScanRequest{Username: user, Token: "ghp_test"})
		require.NoError(t, err)
		assert.True(t, resp.Persisted)
	}

	snap, err := mgr.GetSnapshotStore().Get(ctx, "octocat")
	require.NoError(t, err)
	assert.Equal(t, []string{"acme"}, snap.Organizations)
	assert.Equal(t, 3, snap.Counters.Followers)
	require.NotNil(t, snap.OrganizationsScannedAt)

	scores, err := mgr.GetSnapshotStore().ListScores(ctx, "octocat")
	require.NoError(t, err)
	assert.Len(t, scores, 1)

	require.NoError(t, mgr.GetSnapshotStore().ClearComponents(ctx, "octocat"))
	snap, err = mgr.GetSnapshotStore().Get(ctx, "octocat")
	require.NoError(t, err)
	assert.False(t, snap.HasComponents())

	events, err := mgr.GetEventStore().ListEvents(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.ElementsMatch(t, []string{"ghost", "octocat"}, []string{events[0].UserID, events[1].UserID})

	status, err := mgr.GetSnapshotStore().GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, 2, status.TotalEntries)
}

// exerciseCLI runs the store-only commands of the binary against the backend.
func exerciseCLI(t *testing.T, backend schema.DatabaseBackend, connStr string) {
	env := map[string]string{
		"DEVSCORE_SNAPSHOT_BACKEND":    string(backend),
		"DEVSCORE_SNAPSHOT_DB_CONNECT": connStr,
		"DEVSCORE_EVENT_BACKEND":       string(backend),
		"DEVSCORE_EVENT_DB_CONNECT":    connStr,
	}

	_, err := runDevscoreCommand(t, env, "cache", "clear")
	require.NoError(t, err)

	out, err := runDevscoreCommand(t, env, "snapshot", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "to version 3")

	_, err = runDevscoreCommand(t, env, "cache", "status")
	require.NoError(t, err)

	out, err = runDevscoreCommand(t, env, "events", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No scan events recorded.")

	_, err = runDevscoreCommand(t, env, "score", "octocat")
	assert.Error(t, err, "nothing has been scanned")
}

// TestDevscoreWithMySQL tests the stores and the CLI with a MySQL backend.
func TestDevscoreWithMySQL(t *testing.T) {
	connStr := startMySQL(t)
	exerciseStores(t, schema.MySQLBackend, connStr)
	exerciseCLI(t, schema.MySQLBackend, connStr)
}

// TestDevscoreWithPostgres tests the stores and the CLI with a PostgreSQL backend.
func TestDevscoreWithPostgres(t *testing.T) {
	connStr := startPostgres(t)
	exerciseStores(t, schema.PostgreSQLBackend, connStr)
	exerciseCLI(t, schema.PostgreSQLBackend, connStr)
}
