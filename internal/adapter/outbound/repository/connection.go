package repository

import (
	"context"
	"errors"
	"fmt"
	"funcscan/internal/config"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultMaxConnections = 5
	defaultSSLMode        = "disable"
	pingTimeout           = 5 * time.Second
)

// ValidateDatabaseConfig validates the settings needed to open a pool.
func ValidateDatabaseConfig(cfg config.DatabaseConfig) error {
	if cfg.Host == "" {
		return errors.New("host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}
	if cfg.Name == "" {
		return errors.New("database is required")
	}
	if cfg.User == "" {
		return errors.New("username is required")
	}
	if cfg.Schema == "" {
		return errors.New("schema is required")
	}
	return nil
}

// ConnectionString builds the pgx connection string for cfg, pinning
// search_path to the configured schema.
func ConnectionString(cfg config.DatabaseConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = defaultSSLMode
	}

	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s search_path=%s",
		cfg.Host, cfg.Port, cfg.Name, cfg.User, cfg.Password, sslMode, cfg.Schema,
	)
}

// NewDatabaseConnection creates a connection pool and checks it with a ping.
func NewDatabaseConnection(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if err := ValidateDatabaseConfig(cfg); err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(ConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = defaultMaxConnections
	}
	poolConfig.MaxConns = int32(maxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if pingErr := pool.Ping(pingCtx); pingErr != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}

	return pool, nil
}
