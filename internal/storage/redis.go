package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"todo-list/internal/logger"
)

// RedisStorage хранит каждое значение как строку под ключом prefix+key
type RedisStorage struct {
	client *redis.Client
	prefix string
}

func NewRedisStorage(ctx context.Context, addr, password string, db int, prefix string) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ошибка подключения к redis %s: %w", addr, err)
	}

	logger.Info(ctx, "Redis хранилище инициализировано", "addr", addr, "db", db)
	return &RedisStorage{client: client, prefix: prefix}, nil
}

func (r *RedisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("ошибка чтения ключа %s: %w", key, err)
	}
	return value, true, nil
}

func (r *RedisStorage) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("ошибка записи ключа %s: %w", key, err)
	}
	return nil
}

func (r *RedisStorage) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("ошибка удаления ключа %s: %w", key, err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
