package store

import (
	"context"

	"github.com/chess-ranking/internal/domain"
)

// Store holds the authoritative set of players and assigns their identifiers.
// AddPlayer ignores any id already set on the player.
//
// ListPlayers returns players in insertion order, which for every
// implementation is ascending id order.
type Store interface {
	AddPlayer(ctx context.Context, player domain.Player) (domain.Player, error)
	ListPlayers(ctx context.Context) ([]domain.Player, error)
	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}
