package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"todo-list/internal/logger"
	"todo-list/internal/manager"
	"todo-list/internal/models"
	"todo-list/internal/view"
)

// ErrValidation - пустой текст или дата. Состояние при этом не меняется
var ErrValidation = errors.New("заполните и задачу, и дату")

const ConfirmClearPrompt = "Вы уверены, что хотите удалить все задачи?"

// ConfirmFunc - запрос "да/нет" перед необратимым действием
type ConfirmFunc func(prompt string) bool

// Snapshot - состояние отображения для транспортов
type Snapshot struct {
	Items  []view.Item   `json:"items"`
	Filter models.Filter `json:"filter"`
	Empty  bool          `json:"empty"`
}

// Controller связывает действия пользователя с TaskManager и View.
// Каждое действие сначала меняет хранилище, затем отображение
type Controller struct {
	mu     sync.Mutex
	store  *manager.TaskManager
	view   *view.View
	now    func() time.Time
	lastID int64
}

type Option func(*Controller)

// WithClock подменяет источник времени для генерации ID
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

func New(store *manager.TaskManager, v *view.View, opts ...Option) *Controller {
	c := &Controller{
		store: store,
		view:  v,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load перестраивает отображение из хранилища (аналог загрузки страницы)
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tasks, err := c.store.LoadAll(ctx)
	if err != nil {
		return err
	}

	c.view.Clear()
	for _, t := range tasks {
		c.view.RenderTask(t)
		if t.ID > c.lastID {
			c.lastID = t.ID
		}
	}
	c.view.ApplyFilter(c.view.Filter())
	c.view.UpdateEmptyMessage()

	logger.Debug(ctx, "Список загружен", "tasks", len(tasks))
	return nil
}

// Submit проверяет ввод, создаёт задачу, сохраняет и показывает её
func (c *Controller) Submit(ctx context.Context, req models.CreateTaskRequest) (models.Task, error) {
	if err := validate(req); err != nil {
		return models.Task{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	task := models.Task{
		ID:        c.nextID(),
		Text:      req.Text,
		Date:      strings.TrimSpace(req.Date),
		Completed: false,
	}

	if err := c.store.Append(ctx, task); err != nil {
		return models.Task{}, err
	}
	c.view.RenderTask(task)
	c.view.UpdateEmptyMessage()

	logger.Info(ctx, "Задача добавлена", "id", task.ID, "date", task.Date)
	return task, nil
}

func (c *Controller) Toggle(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.ToggleCompletedByID(ctx, id); err != nil {
		return err
	}
	c.view.ToggleTaskVisual(id)
	return nil
}

// Delete удаляет задачу из хранилища и сразу из отображения
func (c *Controller) Delete(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.RemoveByID(ctx, id); err != nil {
		return err
	}
	c.view.RemoveTaskVisual(id)

	logger.Info(ctx, "Задача удалена", "id", id)
	return nil
}

// DeleteAll удаляет все задачи, если confirm ответил "да".
// Возвращает true, если удаление выполнено
func (c *Controller) DeleteAll(ctx context.Context, confirm ConfirmFunc) (bool, error) {
	if confirm == nil || !confirm(ConfirmClearPrompt) {
		return false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.ClearAll(ctx); err != nil {
		return false, err
	}
	c.view.Clear()

	logger.Info(ctx, "Все задачи удалены")
	return true, nil
}

func (c *Controller) SetFilter(mode models.Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.view.ApplyFilter(mode)
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		Items:  c.view.Items(),
		Filter: c.view.Filter(),
		Empty:  c.view.EmptyMessageVisible(),
	}
}

// WithView выполняет fn под блокировкой контроллера (для рендеринга)
func (c *Controller) WithView(fn func(v *view.View) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return fn(c.view)
}

func validate(req models.CreateTaskRequest) error {
	if strings.TrimSpace(req.Text) == "" || strings.TrimSpace(req.Date) == "" {
		return ErrValidation
	}
	if _, err := time.Parse(models.DateLayout, strings.TrimSpace(req.Date)); err != nil {
		return fmt.Errorf("%w: дата должна быть в формате ГГГГ-ММ-ДД", ErrValidation)
	}
	return nil
}

// nextID - время в миллисекундах, но всегда больше предыдущего ID
func (c *Controller) nextID() int64 {
	id := c.now().UnixMilli()
	if id <= c.lastID {
		id = c.lastID + 1
	}
	c.lastID = id
	return id
}
