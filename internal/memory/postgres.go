package memory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists conversational memory in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS memory_records (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			text TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_memory_records_user ON memory_records (user_id, id);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, userID, text string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO memory_records (user_id, text) VALUES ($1, $2)`,
		userID,
		text,
	)
	if err != nil {
		return fmt.Errorf("%w: insert record: %w", ErrStorage, err)
	}
	return nil
}

func (s *PostgresStore) ReadAll(ctx context.Context, userID string) (string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT text FROM memory_records WHERE user_id=$1 ORDER BY id ASC`,
		userID,
	)
	if err != nil {
		return "", fmt.Errorf("%w: query records: %w", ErrStorage, err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return "", fmt.Errorf("%w: scan record: %w", ErrStorage, err)
		}
		texts = append(texts, text)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("%w: iterate records: %w", ErrStorage, err)
	}
	return joinTexts(texts), nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
