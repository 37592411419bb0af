package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chess-ranking/internal/config"
	"github.com/chess-ranking/internal/domain"
	"github.com/chess-ranking/internal/metrics"
	"github.com/chess-ranking/internal/ranking"
	"github.com/chess-ranking/internal/store"
	"github.com/itbasis/go-clock"
)

// Ranking order sources reported to metrics
const (
	SourceIndex    = "index"
	SourceComputed = "computed"
)

// RankingIndex keeps a precomputed ranking order next to the store
type RankingIndex interface {
	Put(ctx context.Context, p domain.Player) error
	OrderedIDs(ctx context.Context) ([]int64, error)
}

// Broadcaster pushes player and ranking changes to live subscribers
type Broadcaster interface {
	BroadcastPlayerCreated(player domain.Player)
	BroadcastRankings(entries []domain.RankingEntry)
	HasRankingsSubscribers() bool
}

// PlayerService provides business logic for player registration and ranking
type PlayerService struct {
	store       store.Store
	index       RankingIndex
	broadcaster Broadcaster
	metrics     *metrics.Metrics
	clock       clock.Clock
	config      config.PlayersConfig
	logger      *slog.Logger
}

// Option customizes a PlayerService
type Option func(*PlayerService)

// WithIndex serves rankings from a ranking index when it agrees with the store
func WithIndex(index RankingIndex) Option {
	return func(s *PlayerService) { s.index = index }
}

// WithBroadcaster publishes registrations and ranking changes
func WithBroadcaster(b Broadcaster) Option {
	return func(s *PlayerService) { s.broadcaster = b }
}

// WithClock overrides the clock used to stamp created_at
func WithClock(c clock.Clock) Option {
	return func(s *PlayerService) { s.clock = c }
}

// NewPlayerService creates a new player service
func NewPlayerService(
	st store.Store,
	m *metrics.Metrics,
	cfg config.PlayersConfig,
	logger *slog.Logger,
	opts ...Option,
) *PlayerService {
	s := &PlayerService{
		store:   st,
		metrics: m,
		clock:   clock.New(),
		config:  cfg,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddPlayer registers a new player with default ratings
func (s *PlayerService) AddPlayer(ctx context.Context, req domain.CreatePlayerRequest) (domain.Player, error) {
	req = req.Normalize()
	if s.config.RequireUsername && !req.HasUsername() {
		s.metrics.RegistrationFailed("username_required")
		return domain.Player{}, domain.ErrUsernameRequired
	}

	player, err := s.store.AddPlayer(ctx, domain.Player{
		ChessComUsername: req.ChessComUsername,
		LichessUsername:  req.LichessUsername,
		ChessComRating:   domain.DefaultRating,
		LichessRating:    domain.DefaultRating,
		CreatedAt:        s.clock.Now().UTC(),
	})
	if err != nil {
		s.metrics.RegistrationFailed("store")
		return domain.Player{}, fmt.Errorf("%w: adding player: %w", domain.ErrStoreUnavailable, err)
	}

	s.metrics.PlayerCreated()
	s.logger.Info("player registered", "player_id", player.ID, "name", player.DisplayName())

	if s.index != nil {
		// The sync worker repairs the index if this write is lost
		if err := s.index.Put(ctx, player); err != nil {
			s.logger.Warn("failed to index player", "player_id", player.ID, "error", err)
		}
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastPlayerCreated(player)
		// Ranking the whole store is skipped when nobody is listening
		if s.broadcaster.HasRankingsSubscribers() {
			if entries, err := s.GetRankings(ctx); err == nil {
				s.broadcaster.BroadcastRankings(entries)
			}
		}
	}

	return player, nil
}

// ListPlayers returns every player in registration order
func (s *PlayerService) ListPlayers(ctx context.Context) ([]domain.Player, error) {
	players, err := s.store.ListPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing players: %w", domain.ErrStoreUnavailable, err)
	}
	return players, nil
}

// GetRankings returns every player ordered by best rating, highest first
func (s *PlayerService) GetRankings(ctx context.Context) ([]domain.RankingEntry, error) {
	players, err := s.ListPlayers(ctx)
	if err != nil {
		return nil, err
	}

	if s.index != nil {
		order, err := s.index.OrderedIDs(ctx)
		if err != nil {
			s.logger.Warn("ranking index unavailable, computing rankings", "error", err)
		} else if entries, ok := ranking.FromOrder(players, order); ok {
			s.metrics.RankingsComputed(SourceIndex)
			return entries, nil
		} else {
			s.logger.Debug("ranking index out of date, computing rankings",
				"indexed", len(order),
				"players", len(players),
			)
		}
	}

	s.metrics.RankingsComputed(SourceComputed)
	return ranking.Rank(players), nil
}

// Ready reports whether the player store can serve requests
func (s *PlayerService) Ready(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}
