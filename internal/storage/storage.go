package storage

import (
	"context"
	"sync"
)

// Storage интерфейс для абстракции хранилища ключ-значение.
// Значение всегда читается и пишется целиком, частичного обновления нет
type Storage interface {
	// Get возвращает ok=false, если ключа нет. Отсутствие ключа - не ошибка
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	// Remove для отсутствующего ключа ничего не делает
	Remove(ctx context.Context, key string) error

	// Закрытие соединения
	Close() error
}

// In-memory хранилище для тестов и режима --storage memory
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		values: make(map[string]string),
	}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}
