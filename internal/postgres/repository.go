package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chess-ranking/internal/config"
	"github.com/chess-ranking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL-backed player storage
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	return newRepository(poolConfig, logger)
}

// NewRepositoryFromURL creates a repository from a raw connection string
func NewRepositoryFromURL(connString string, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	return newRepository(poolConfig, logger)
}

func newRepository(poolConfig *pgxpool.Config, logger *slog.Logger) (*Repository, error) {
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS players (
			id BIGSERIAL PRIMARY KEY,
			chess_com_username TEXT,
			lichess_username TEXT,
			chess_com_rating DOUBLE PRECISION NOT NULL DEFAULT 0,
			lichess_rating DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// AddPlayer inserts a player and returns it with its generated id
func (r *Repository) AddPlayer(ctx context.Context, player domain.Player) (domain.Player, error) {
	query := `
		INSERT INTO players (chess_com_username, lichess_username, chess_com_rating, lichess_rating, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	createdAt := player.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	err := r.pool.QueryRow(ctx, query,
		player.ChessComUsername,
		player.LichessUsername,
		player.ChessComRating,
		player.LichessRating,
		createdAt,
	).Scan(&player.ID, &player.CreatedAt)
	if err != nil {
		return domain.Player{}, fmt.Errorf("inserting player: %w", err)
	}
	return player, nil
}

// ListPlayers retrieves every player ordered by id
func (r *Repository) ListPlayers(ctx context.Context) ([]domain.Player, error) {
	query := `
		SELECT id, chess_com_username, lichess_username, chess_com_rating, lichess_rating, created_at
		FROM players
		ORDER BY id ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}

	players, err := pgx.CollectRows(rows, scanPlayer)
	if err != nil {
		return nil, fmt.Errorf("scanning player: %w", err)
	}
	if players == nil {
		players = []domain.Player{}
	}
	return players, nil
}

// Count returns the number of stored players
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM players`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting players: %w", err)
	}
	return count, nil
}

// Ping checks database connectivity
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

func scanPlayer(row pgx.CollectableRow) (domain.Player, error) {
	var p domain.Player
	err := row.Scan(
		&p.ID,
		&p.ChessComUsername,
		&p.LichessUsername,
		&p.ChessComRating,
		&p.LichessRating,
		&p.CreatedAt,
	)
	return p, err
}
