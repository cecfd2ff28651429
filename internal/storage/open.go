package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"todo-list/internal/config"
)

const DriverPostgres = "postgres"

// Open создает хранилище по настройкам
func Open(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStorage(), nil
	case DriverSQLite, DriverSQLite3:
		if err := ensureDir(cfg.DSN); err != nil {
			return nil, err
		}
		return NewSQLStorage(ctx, cfg.Driver, cfg.DSN)
	case DriverMySQL:
		return NewSQLStorage(ctx, cfg.Driver, cfg.DSN)
	case DriverPostgres:
		return NewPostgresStorage(ctx, cfg.DSN)
	case "redis":
		return NewRedisStorage(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
	default:
		return nil, fmt.Errorf("неизвестный тип хранилища: %q", cfg.Driver)
	}
}

// ensureDir создает директорию для файла SQLite, если её нет
func ensureDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ошибка создания директории %s: %w", dir, err)
	}
	return nil
}
