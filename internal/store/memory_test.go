package store

import (
	"context"
	"sync"
	"testing"

	"github.com/chess-ranking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_AddPlayerAssignsSequentialIDs(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	alice, err := s.AddPlayer(ctx, domain.Player{ChessComUsername: domain.StringPtr("alice")})
	require.NoError(t, err)
	bob, err := s.AddPlayer(ctx, domain.Player{LichessUsername: domain.StringPtr("bob")})
	require.NoError(t, err)

	assert.Equal(t, int64(1), alice.ID)
	assert.Equal(t, int64(2), bob.ID)
	assert.Zero(t, alice.ChessComRating)
	assert.Zero(t, alice.LichessRating)
	assert.Nil(t, alice.LichessUsername)
}

func TestMemory_AddPlayerIgnoresCallerID(t *testing.T) {
	s := NewMemory()

	p, err := s.AddPlayer(context.Background(), domain.Player{ID: 42})
	require.NoError(t, err)

	assert.Equal(t, int64(1), p.ID)
}

func TestMemory_ListPlayersInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	names := []string{"carol", "alice", "bob"}
	for _, name := range names {
		_, err := s.AddPlayer(ctx, domain.Player{ChessComUsername: domain.StringPtr(name)})
		require.NoError(t, err)
	}

	players, err := s.ListPlayers(ctx)
	require.NoError(t, err)
	require.Len(t, players, len(names))
	for i, p := range players {
		assert.Equal(t, names[i], *p.ChessComUsername)
		assert.Equal(t, int64(i+1), p.ID)
	}
}

func TestMemory_ListPlayersEmpty(t *testing.T) {
	players, err := NewMemory().ListPlayers(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, players)
	assert.Empty(t, players)
}

func TestMemory_ListPlayersReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	_, err := s.AddPlayer(ctx, domain.Player{ChessComUsername: domain.StringPtr("alice")})
	require.NoError(t, err)

	first, err := s.ListPlayers(ctx)
	require.NoError(t, err)
	*first[0].ChessComUsername = "mallory"
	first[0].ChessComRating = 3000

	second, err := s.ListPlayers(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", *second[0].ChessComUsername)
	assert.Zero(t, second[0].ChessComRating)
}

func TestMemory_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	const workers = 16
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, err := s.AddPlayer(ctx, domain.Player{LichessUsername: domain.StringPtr("p")})
				assert.NoError(t, err)
				_, err = s.ListPlayers(ctx)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	players, err := s.ListPlayers(ctx)
	require.NoError(t, err)
	require.Len(t, players, workers*perWorker)

	for i, p := range players {
		assert.Equal(t, int64(i+1), p.ID, "ids must be dense and ordered")
	}

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(workers*perWorker), count)
}

func TestMemory_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemory().AddPlayer(ctx, domain.Player{})
	assert.ErrorIs(t, err, context.Canceled)
}
