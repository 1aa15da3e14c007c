package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aiidateam/aiida-data-apis/log"
	"github.com/aiidateam/aiida-data-apis/query"
	"github.com/aiidateam/aiida-data-apis/schema"
)

// PgxQuerier is the part of *pgxpool.Pool used by PostgresStorage.
type PgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStorage runs entity queries against the tables of an AiiDA
// PostgreSQL database.
type PostgresStorage struct {
	querier PgxQuerier
	logger  log.Logger
}

func NewPostgresStorage(querier PgxQuerier, logger log.Logger) *PostgresStorage {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &PostgresStorage{querier: querier, logger: logger}
}

// NewPostgresPool opens a connection pool and checks the database is
// reachable.
func NewPostgresPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach postgres: %w", err)
	}
	return pool, nil
}

func (s *PostgresStorage) Count(ctx context.Context, entity *schema.Entity, opts query.CountOptions) (int64, error) {
	sql, args, err := buildCountSQL(entity, opts)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("executing query", "query", sql, "args", len(args))

	var total int64
	if err := s.querier.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *PostgresStorage) Find(ctx context.Context, entity *schema.Entity, opts query.FindOptions) ([]query.Row, error) {
	sql, args, err := buildFindSQL(entity, opts)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("executing query", "query", sql, "args", len(args))

	rows, err := s.querier.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToMap)
}
