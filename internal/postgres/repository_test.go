package postgres

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chess-ranking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testImage = "postgres:16.3-alpine"

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, testImage,
		tcpostgres.WithDatabase("chess_players"),
		tcpostgres.WithUsername("chess"),
		tcpostgres.WithPassword("secret"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("error terminating container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	repo, err := NewRepositoryFromURL(connStr, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(repo.Close)

	require.NoError(t, repo.RunMigrations(ctx))
	return repo
}

func TestRepository_addAndList(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	players, err := repo.ListPlayers(ctx)
	require.NoError(t, err)
	assert.NotNil(t, players)
	assert.Empty(t, players)

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	alice, err := repo.AddPlayer(ctx, domain.Player{ChessComUsername: domain.StringPtr("alice"), CreatedAt: created})
	require.NoError(t, err)
	bob, err := repo.AddPlayer(ctx, domain.Player{LichessUsername: domain.StringPtr("bob")})
	require.NoError(t, err)

	assert.Equal(t, int64(1), alice.ID)
	assert.Equal(t, int64(2), bob.ID)
	assert.True(t, created.Equal(alice.CreatedAt))

	players, err = repo.ListPlayers(ctx)
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, "alice", *players[0].ChessComUsername)
	assert.Nil(t, players[0].LichessUsername)
	assert.Equal(t, "bob", *players[1].LichessUsername)
	assert.Zero(t, players[1].ChessComRating)
	assert.Zero(t, players[1].LichessRating)

	long := strings.Repeat("x", 300)
	carol, err := repo.AddPlayer(ctx, domain.Player{ChessComUsername: domain.StringPtr(long)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), carol.ID)

	players, err = repo.ListPlayers(ctx)
	require.NoError(t, err)
	require.Len(t, players, 3)
	assert.Equal(t, long, *players[2].ChessComUsername)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestRepository_concurrentAdds(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AddPlayer(ctx, domain.Player{LichessUsername: domain.StringPtr("p")})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	players, err := repo.ListPlayers(ctx)
	require.NoError(t, err)
	require.Len(t, players, n)

	seen := make(map[int64]bool, n)
	for i, p := range players {
		assert.False(t, seen[p.ID])
		seen[p.ID] = true
		if i > 0 {
			assert.Greater(t, p.ID, players[i-1].ID)
		}
	}
}
