package memory

import (
	"context"
	"fmt"
	"strings"
)

// Backend names the store NewStore would build for databaseURL, or "" when
// the scheme is missing or unknown.
func Backend(databaseURL string) string {
	raw := strings.TrimSpace(databaseURL)
	if raw == "" {
		return "memory"
	}
	scheme, _, ok := strings.Cut(raw, "://")
	if !ok {
		return ""
	}
	switch strings.ToLower(scheme) {
	case "memory":
		return "memory"
	case "sqlite", "sqlite3":
		return "sqlite"
	case "postgres", "postgresql":
		return "postgres"
	case "redis", "rediss":
		return "redis"
	case "badger":
		return "badger"
	default:
		return ""
	}
}

// NewStore picks a backend from the scheme of databaseURL:
// "" or memory:// (in-process), sqlite://<path>, postgres:// or
// postgresql://, redis:// or rediss://, badger://<dir>.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	raw := strings.TrimSpace(databaseURL)
	_, rest, _ := strings.Cut(raw, "://")

	switch Backend(raw) {
	case "memory":
		return NewInMemoryStore(), nil
	case "sqlite":
		if rest == "" {
			return nil, fmt.Errorf("sqlite url requires a path")
		}
		return NewSQLiteStore(ctx, rest)
	case "postgres":
		return NewPostgresStore(ctx, raw)
	case "redis":
		return NewRedisStore(ctx, raw)
	case "badger":
		if rest == "" {
			return nil, fmt.Errorf("badger url requires a directory")
		}
		return NewBadgerStore(rest)
	default:
		return nil, fmt.Errorf("unsupported memory store url %q", raw)
	}
}
