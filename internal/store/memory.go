package store

import (
	"context"
	"sync"

	"github.com/chess-ranking/internal/domain"
)

// Memory is an in-process Store backed by a slice
type Memory struct {
	mu      sync.RWMutex
	players []domain.Player
	nextID  int64
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		players: make([]domain.Player, 0),
		nextID:  1,
	}
}

// AddPlayer assigns the next id to the player and appends it
func (m *Memory) AddPlayer(ctx context.Context, player domain.Player) (domain.Player, error) {
	if err := ctx.Err(); err != nil {
		return domain.Player{}, err
	}

	player = clonePlayer(player)

	m.mu.Lock()
	defer m.mu.Unlock()

	player.ID = m.nextID
	m.nextID++
	m.players = append(m.players, player)

	return clonePlayer(player), nil
}

// ListPlayers returns a copy of every player in insertion order
func (m *Memory) ListPlayers(ctx context.Context) ([]domain.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	players := make([]domain.Player, len(m.players))
	for i, p := range m.players {
		players[i] = clonePlayer(p)
	}
	return players, nil
}

// Count returns the number of stored players
func (m *Memory) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.players)), nil
}

// Ping always succeeds
func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

func clonePlayer(p domain.Player) domain.Player {
	p.ChessComUsername = copyString(p.ChessComUsername)
	p.LichessUsername = copyString(p.LichessUsername)
	return p
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
