package manager

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"todo-list/internal/logger"
	"todo-list/internal/models"
	"todo-list/internal/storage"
)

const DefaultKey = "todos"

// ErrCorrupt - сохранённая запись не читается как список задач
var ErrCorrupt = errors.New("список задач повреждён")

var (
	storeOpCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todolist_store_operations_total",
			Help: "Total number of store operations",
		},
		[]string{"op", "status"},
	)

	storeOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "todolist_store_operation_duration_seconds",
			Help:    "Duration of store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	corruptLoads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "todolist_store_corrupt_loads_total",
			Help: "Number of loads that found unreadable persisted data",
		},
	)

	storedTasks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "todolist_tasks_stored",
			Help: "Number of tasks in the persisted collection after the last operation",
		},
	)
)

//go:embed todos.schema.json
var todosSchema string

var listSchema = jsonschema.MustCompileString("todos.schema.json", todosSchema)

// TaskManager владеет сохранённым списком задач.
// Весь список лежит одной JSON-записью под ключом key, и каждая мутация
// читает его целиком, меняет и записывает целиком обратно
type TaskManager struct {
	mu      sync.Mutex
	storage storage.Storage
	key     string
}

func NewTaskManager(s storage.Storage, key string) *TaskManager {
	if key == "" {
		key = DefaultKey
	}
	return &TaskManager{storage: s, key: key}
}

// LoadAll возвращает сохранённые задачи в порядке добавления.
// Отсутствие записи и повреждённые данные дают пустой список; ошибка
// возвращается только если не удалось прочитать само хранилище
func (tm *TaskManager) LoadAll(ctx context.Context) ([]models.Task, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	var tasks []models.Task
	err := tm.observe(ctx, "load", func() error {
		var err error
		tasks, err = tm.read(ctx)
		return err
	})
	return tasks, err
}

// Append добавляет задачу в конец. Уникальность ID обеспечивает вызывающий
func (tm *TaskManager) Append(ctx context.Context, task models.Task) error {
	return tm.mutate(ctx, "append", func(tasks []models.Task) []models.Task {
		return append(tasks, task)
	})
}

// RemoveByID удаляет все записи с этим ID. Отсутствующий ID - не ошибка
func (tm *TaskManager) RemoveByID(ctx context.Context, id int64) error {
	return tm.mutate(ctx, "remove", func(tasks []models.Task) []models.Task {
		kept := make([]models.Task, 0, len(tasks))
		for _, t := range tasks {
			if t.ID != id {
				kept = append(kept, t)
			}
		}
		return kept
	})
}

// ToggleCompletedByID переключает completed у первой записи с этим ID
func (tm *TaskManager) ToggleCompletedByID(ctx context.Context, id int64) error {
	return tm.mutate(ctx, "toggle", func(tasks []models.Task) []models.Task {
		for i := range tasks {
			if tasks[i].ID == id {
				tasks[i].Completed = !tasks[i].Completed
				break
			}
		}
		return tasks
	})
}

// ClearAll удаляет запись со списком целиком
func (tm *TaskManager) ClearAll(ctx context.Context) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	return tm.observe(ctx, "clear", func() error {
		if err := tm.storage.Remove(ctx, tm.key); err != nil {
			return err
		}
		storedTasks.Set(0)
		return nil
	})
}

func (tm *TaskManager) Count(ctx context.Context) (int, error) {
	tasks, err := tm.LoadAll(ctx)
	return len(tasks), err
}

// Validate проверяет сохранённую запись без подмены на пустой список.
// Nil означает, что записи нет или она читается без ошибок. Повреждённая
// запись даёт ErrCorrupt, остальные ошибки - от самого хранилища
func (tm *TaskManager) Validate(ctx context.Context) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	raw, ok, err := tm.storage.Get(ctx, tm.key)
	if err != nil || !ok {
		return err
	}
	_, err = decode(raw)
	return err
}

func (tm *TaskManager) mutate(ctx context.Context, op string, fn func([]models.Task) []models.Task) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	return tm.observe(ctx, op, func() error {
		tasks, err := tm.read(ctx)
		if err != nil {
			return err
		}
		return tm.write(ctx, fn(tasks))
	})
}

func (tm *TaskManager) observe(ctx context.Context, op string, fn func() error) error {
	startTime := time.Now()
	defer func() {
		storeOpDuration.WithLabelValues(op).Observe(time.Since(startTime).Seconds())
	}()

	if err := fn(); err != nil {
		storeOpCount.WithLabelValues(op, "error").Inc()
		logger.Error(ctx, err, "Ошибка операции хранилища", "op", op)
		return fmt.Errorf("%s: %w", op, err)
	}
	storeOpCount.WithLabelValues(op, "success").Inc()
	return nil
}

func (tm *TaskManager) read(ctx context.Context) ([]models.Task, error) {
	raw, ok, err := tm.storage.Get(ctx, tm.key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []models.Task{}, nil
	}

	tasks, err := decode(raw)
	if err != nil {
		corruptLoads.Inc()
		logger.Warn(ctx, "Сохранённый список повреждён, используется пустой", "key", tm.key, "error", err)
		return []models.Task{}, nil
	}
	return tasks, nil
}

func (tm *TaskManager) write(ctx context.Context, tasks []models.Task) error {
	data, err := json.Marshal(tasks)
	if err != nil {
		return err
	}
	if err := tm.storage.Set(ctx, tm.key, string(data)); err != nil {
		return err
	}
	storedTasks.Set(float64(len(tasks)))
	return nil
}

func decode(raw string) ([]models.Task, error) {
	var doc interface{}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: некорректный JSON: %w", ErrCorrupt, err)
	}
	if err := listSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: данные не соответствуют схеме: %w", ErrCorrupt, err)
	}

	var tasks []models.Task
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}
