package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/chess-ranking/internal/config"
	"github.com/chess-ranking/internal/domain"
	"github.com/chess-ranking/internal/ranking"
	"github.com/redis/go-redis/v9"
)

// memberWidth pads ids so that lexicographic member order equals numeric id order
const memberWidth = 20

// RankingIndex mirrors player best ratings in a Redis sorted set.
//
// Scores are stored negated and members are zero-padded ids, so an ascending
// ZRANGE yields the highest rating first and breaks ties by ascending id.
type RankingIndex struct {
	client *redis.Client
	key    string
	logger *slog.Logger
}

// NewRankingIndex creates a new Redis ranking index
func NewRankingIndex(cfg *config.RedisConfig, logger *slog.Logger) (*RankingIndex, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RankingIndex{
		client: client,
		key:    fmt.Sprintf("%s:rankings:best", cfg.KeyPrefix),
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (i *RankingIndex) Close() error {
	return i.client.Close()
}

func member(id int64) string {
	return fmt.Sprintf("%0*d", memberWidth, id)
}

func entry(p domain.Player) redis.Z {
	return redis.Z{
		Score:  -ranking.BestRating(p),
		Member: member(p.ID),
	}
}

// Put adds or updates a single player in the index
func (i *RankingIndex) Put(ctx context.Context, p domain.Player) error {
	if err := i.client.ZAdd(ctx, i.key, entry(p)).Err(); err != nil {
		return fmt.Errorf("indexing player: %w", err)
	}
	return nil
}

// Rebuild replaces the whole index with the given players atomically
func (i *RankingIndex) Rebuild(ctx context.Context, players []domain.Player) error {
	tmpKey := i.key + ":rebuild"

	pipe := i.client.TxPipeline()
	pipe.Del(ctx, tmpKey)
	if len(players) > 0 {
		members := make([]redis.Z, len(players))
		for n, p := range players {
			members[n] = entry(p)
		}
		pipe.ZAdd(ctx, tmpKey, members...)
		pipe.Rename(ctx, tmpKey, i.key)
	} else {
		pipe.Del(ctx, i.key)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rebuilding ranking index: %w", err)
	}
	return nil
}

// OrderedIDs returns player ids from best to worst rating
func (i *RankingIndex) OrderedIDs(ctx context.Context) ([]int64, error) {
	members, err := i.client.ZRange(ctx, i.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading ranking index: %w", err)
	}

	ids := make([]int64, len(members))
	for n, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing index member %q: %w", m, err)
		}
		ids[n] = id
	}
	return ids, nil
}

// Count returns the number of indexed players
func (i *RankingIndex) Count(ctx context.Context) (int64, error) {
	count, err := i.client.ZCard(ctx, i.key).Result()
	if err != nil {
		return 0, fmt.Errorf("getting count: %w", err)
	}
	return count, nil
}
