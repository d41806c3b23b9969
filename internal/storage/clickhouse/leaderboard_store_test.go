package clickhouse

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"lossmine/internal/domain"
)

// setupTestDB creates a ClickHouse container and returns a connection.
// Returns a cleanup function that must be called when done.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.1-alpine",
		ExposedPorts: []string{"9000/tcp", "8123/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Application: Ready for connections").
				WithStartupTimeout(60 * time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
		Env: map[string]string{
			"CLICKHOUSE_DB":       "test",
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	dsn := fmt.Sprintf("clickhouse://%s:%s/test", host, port.Port())

	conn, err := NewConn(ctx, dsn)
	require.NoError(t, err)

	err = conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS leaderboard_history (
			cycle         Int64,
			timestamp_ms  Int64,
			wallet        String,
			balance       Float64,
			cost_basis    Nullable(Float64),
			current_price Float64,
			drawdown_pct  Float64,
			loss_usd      Float64,
			rank          Int32
		) ENGINE = MergeTree()
		ORDER BY (wallet, cycle)
	`)
	require.NoError(t, err)

	cleanup := func() {
		conn.Close()
		_ = container.Terminate(ctx)
	}

	return conn, cleanup
}

// archivedRow builds one ranked holder with float-exact figures so the
// Float64 archive round-trips without precision surprises.
func archivedRow(wallet string, rank int, balance, basis, price, drawdown, loss string) domain.RankedHolder {
	r := domain.RankedHolder{
		Wallet:       wallet,
		Balance:      decimal.RequireFromString(balance),
		CurrentPrice: decimal.RequireFromString(price),
		DrawdownPct:  decimal.RequireFromString(drawdown),
		LossUsd:      decimal.RequireFromString(loss),
		Rank:         rank,
		Eligible:     true,
	}
	if basis != "" {
		cb := decimal.RequireFromString(basis)
		r.CostBasis = &cb
	}
	return r
}

func TestLeaderboardHistoryStore_InsertAndTopLosers(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLeaderboardHistoryStore(conn)
	ctx := context.Background()

	// Three cycles for wallet-hist-a with distinct losses, one row for
	// another wallet that must not leak into the result.
	cycles := []struct {
		cycle int64
		loss  string
	}{
		{1, "100"},
		{2, "200"},
		{3, "400"},
	}
	for _, c := range cycles {
		err := store.InsertCycle(ctx, c.cycle, c.cycle*1000, []domain.RankedHolder{
			archivedRow("wallet-hist-a", 1, "1000", "0.5", "0.25", "-50", c.loss),
		})
		require.NoError(t, err)
	}
	err := store.InsertCycle(ctx, 3, 3000, []domain.RankedHolder{
		archivedRow("wallet-hist-b", 2, "500", "0.5", "0.25", "-50", "125"),
	})
	require.NoError(t, err)

	rows, err := store.TopLosers(ctx, "wallet-hist-a", 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Newest cycle first
	assert.True(t, rows[0].LossUsd.Equal(decimal.RequireFromString("400")),
		"expected cycle 3 first, got loss %s", rows[0].LossUsd)
	assert.True(t, rows[2].LossUsd.Equal(decimal.RequireFromString("100")),
		"expected cycle 1 last, got loss %s", rows[2].LossUsd)

	assert.Equal(t, "wallet-hist-a", rows[0].Wallet)
	assert.Equal(t, 1, rows[0].Rank)
	assert.True(t, rows[0].Balance.Equal(decimal.RequireFromString("1000")))
	require.NotNil(t, rows[0].CostBasis)
	assert.True(t, rows[0].CostBasis.Equal(decimal.RequireFromString("0.5")))
	assert.True(t, rows[0].DrawdownPct.Equal(decimal.RequireFromString("-50")))
}

func TestLeaderboardHistoryStore_TopLosersLimit(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLeaderboardHistoryStore(conn)
	ctx := context.Background()

	for cycle := int64(1); cycle <= 5; cycle++ {
		err := store.InsertCycle(ctx, cycle, cycle*1000, []domain.RankedHolder{
			archivedRow("wallet-hist-c", 1, "1000", "0.5", "0.25", "-50", "250"),
		})
		require.NoError(t, err)
	}

	rows, err := store.TopLosers(ctx, "wallet-hist-c", 2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestLeaderboardHistoryStore_NullCostBasis(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLeaderboardHistoryStore(conn)
	ctx := context.Background()

	err := store.InsertCycle(ctx, 1, 1000, []domain.RankedHolder{
		archivedRow("wallet-hist-d", 1, "1000", "", "0.25", "0", "0"),
	})
	require.NoError(t, err)

	rows, err := store.TopLosers(ctx, "wallet-hist-d", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].CostBasis)
}

func TestLeaderboardHistoryStore_InsertCycleEmpty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLeaderboardHistoryStore(conn)

	require.NoError(t, store.InsertCycle(context.Background(), 1, 1000, nil))
}

func TestLeaderboardHistoryStore_TopLosersUnknownWallet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLeaderboardHistoryStore(conn)

	rows, err := store.TopLosers(context.Background(), "wallet-hist-missing", 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
