package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"todo-list/internal/logger"
)

type PostgresStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresStorage(ctx context.Context, dsn string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пула postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка подключения к postgres: %w", err)
	}

	_, err = pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS kv_store (
		key_name TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка создания таблицы kv_store: %w", err)
	}

	logger.Info(ctx, "Postgres хранилище инициализировано")
	return &PostgresStorage{pool: pool}, nil
}

func (p *PostgresStorage) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.pool.QueryRow(ctx, "SELECT value FROM kv_store WHERE key_name = $1", key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("ошибка чтения ключа %s: %w", key, err)
	}
	return value, true, nil
}

func (p *PostgresStorage) Set(ctx context.Context, key, value string) error {
	_, err := p.pool.Exec(ctx, `
	INSERT INTO kv_store (key_name, value, updated_at) VALUES ($1, $2, $3)
	ON CONFLICT (key_name) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("ошибка записи ключа %s: %w", key, err)
	}
	return nil
}

func (p *PostgresStorage) Remove(ctx context.Context, key string) error {
	if _, err := p.pool.Exec(ctx, "DELETE FROM kv_store WHERE key_name = $1", key); err != nil {
		return fmt.Errorf("ошибка удаления ключа %s: %w", key, err)
	}
	return nil
}

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}
