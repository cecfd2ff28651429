package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"todo-list/internal/logger"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Поддерживаемые драйверы database/sql
const (
	DriverSQLite  = "sqlite"  // modernc.org/sqlite, без cgo
	DriverSQLite3 = "sqlite3" // github.com/mattn/go-sqlite3, нужен cgo
	DriverMySQL   = "mysql"
)

type dialect struct {
	createTable string
	upsert      string
}

var dialects = map[string]dialect{
	DriverSQLite:  sqliteDialect,
	DriverSQLite3: sqliteDialect,
	DriverMySQL: {
		createTable: `
	CREATE TABLE IF NOT EXISTS kv_store (
		key_name VARCHAR(255) NOT NULL PRIMARY KEY,
		value LONGTEXT NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
		upsert: `
	INSERT INTO kv_store (key_name, value, updated_at) VALUES (?, ?, ?)
	ON DUPLICATE KEY UPDATE value = VALUES(value), updated_at = VALUES(updated_at)`,
	},
}

var sqliteDialect = dialect{
	createTable: `
	CREATE TABLE IF NOT EXISTS kv_store (
		key_name TEXT NOT NULL PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	upsert: `
	INSERT INTO kv_store (key_name, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key_name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
}

// SQLStorage хранит пары ключ-значение в одной таблице kv_store
type SQLStorage struct {
	db      *sql.DB
	dialect dialect
}

func NewSQLStorage(ctx context.Context, driver, dsn string) (*SQLStorage, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("неподдерживаемый драйвер БД: %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия БД: %w", err)
	}

	// У SQLite каждое соединение с ":memory:" - отдельная база
	if driver != DriverMySQL {
		db.SetMaxOpenConns(1)
	}

	// Проверяем соединение
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	// Создаем таблицу
	if _, err := db.ExecContext(ctx, d.createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка создания таблицы kv_store: %w", err)
	}

	logger.Info(ctx, "SQL хранилище инициализировано", "driver", driver)
	return &SQLStorage{db: db, dialect: d}, nil
}

func (s *SQLStorage) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv_store WHERE key_name = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("ошибка чтения ключа %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLStorage) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.upsert, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("ошибка записи ключа %s: %w", key, err)
	}
	return nil
}

func (s *SQLStorage) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv_store WHERE key_name = ?", key); err != nil {
		return fmt.Errorf("ошибка удаления ключа %s: %w", key, err)
	}
	return nil
}

// Закрытие соединения
func (s *SQLStorage) Close() error {
	return s.db.Close()
}
