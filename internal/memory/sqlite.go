package memory

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/ent0n29/levo/internal/logging"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// SQLiteStore keeps the log in a single local table.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	inMemory := path == ":memory:"
	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Every pooled connection to :memory: would see its own empty database.
	if inMemory {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(logging.NewGooseLogger(ctx))
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, userID, text string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO memory_records (user_id, text) VALUES (?, ?)`, userID, text)
	if err != nil {
		return fmt.Errorf("%w: insert record: %w", ErrStorage, err)
	}
	return nil
}

func (s *SQLiteStore) ReadAll(ctx context.Context, userID string) (string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT text FROM memory_records WHERE user_id = ? ORDER BY id ASC`, userID)
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

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
