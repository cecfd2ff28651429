package manager

import (
	"bytes"
	"context"
	"errors"
	"log"
	"reflect"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"todo-list/internal/models"
	"todo-list/internal/storage"
)

func newTestManager() (*TaskManager, *storage.MemoryStorage) {
	s := storage.NewMemoryStorage()
	return NewTaskManager(s, ""), s
}

func mustLoad(t *testing.T, tm *TaskManager) []models.Task {
	t.Helper()
	tasks, err := tm.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	return tasks
}

func TestLoadAllEmpty(t *testing.T) {
	tm, _ := newTestManager()

	tasks := mustLoad(t, tm)
	if tasks == nil || len(tasks) != 0 {
		t.Errorf("Ожидался пустой (не nil) список, получено %#v", tasks)
	}
}

func TestAppendKeepsInsertionOrder(t *testing.T) {
	tm, _ := newTestManager()
	ctx := context.Background()

	want := []models.Task{
		{ID: 30, Text: "третья по id, первая по порядку", Date: "2024-01-03"},
		{ID: 10, Text: "вторая", Date: "2024-01-01"},
		{ID: 20, Text: "третья", Date: "2024-01-02", Completed: true},
	}
	for _, task := range want {
		if err := tm.Append(ctx, task); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	if got := mustLoad(t, tm); !reflect.DeepEqual(got, want) {
		t.Errorf("Порядок нарушен:\nполучено %+v\nожидалось %+v", got, want)
	}
}

func TestRemoveByID(t *testing.T) {
	tm, _ := newTestManager()
	ctx := context.Background()

	_ = tm.Append(ctx, models.Task{ID: 1, Text: "a", Date: "2024-01-01"})
	_ = tm.Append(ctx, models.Task{ID: 2, Text: "b", Date: "2024-01-01"})

	if err := tm.RemoveByID(ctx, 1); err != nil {
		t.Fatalf("RemoveByID: %v", err)
	}
	tasks := mustLoad(t, tm)
	if len(tasks) != 1 || tasks[0].ID != 2 {
		t.Fatalf("Ожидалась только задача 2, получено %+v", tasks)
	}

	// Удаление отсутствующего ID ничего не меняет
	if err := tm.RemoveByID(ctx, 42); err != nil {
		t.Fatalf("RemoveByID(42): %v", err)
	}
	if again := mustLoad(t, tm); !reflect.DeepEqual(again, tasks) {
		t.Errorf("Удаление отсутствующего ID изменило список: %+v", again)
	}
}

func TestRemoveByIDRemovesEveryDuplicate(t *testing.T) {
	tm, _ := newTestManager()
	ctx := context.Background()

	_ = tm.Append(ctx, models.Task{ID: 7, Text: "a", Date: "2024-01-01"})
	_ = tm.Append(ctx, models.Task{ID: 7, Text: "b", Date: "2024-01-01"})

	_ = tm.RemoveByID(ctx, 7)
	if tasks := mustLoad(t, tm); len(tasks) != 0 {
		t.Errorf("Ожидался пустой список, получено %+v", tasks)
	}
}

func TestToggleIsInvolution(t *testing.T) {
	tm, _ := newTestManager()
	ctx := context.Background()

	_ = tm.Append(ctx, models.Task{ID: 1, Text: "a", Date: "2024-01-01"})

	_ = tm.ToggleCompletedByID(ctx, 1)
	if !mustLoad(t, tm)[0].Completed {
		t.Fatal("После первого переключения задача должна быть выполнена")
	}
	_ = tm.ToggleCompletedByID(ctx, 1)
	if mustLoad(t, tm)[0].Completed {
		t.Fatal("Двойное переключение должно вернуть исходное состояние")
	}

	if err := tm.ToggleCompletedByID(ctx, 99); err != nil {
		t.Errorf("Переключение отсутствующего ID должно быть no-op: %v", err)
	}
}

func TestToggleOnlyFirstMatch(t *testing.T) {
	tm, _ := newTestManager()
	ctx := context.Background()

	_ = tm.Append(ctx, models.Task{ID: 5, Text: "a", Date: "2024-01-01"})
	_ = tm.Append(ctx, models.Task{ID: 5, Text: "b", Date: "2024-01-01"})
	_ = tm.ToggleCompletedByID(ctx, 5)

	tasks := mustLoad(t, tm)
	if !tasks[0].Completed || tasks[1].Completed {
		t.Errorf("Должна переключиться только первая запись: %+v", tasks)
	}
}

func TestClearAll(t *testing.T) {
	tm, s := newTestManager()
	ctx := context.Background()

	_ = tm.Append(ctx, models.Task{ID: 1, Text: "a", Date: "2024-01-01"})
	if err := tm.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}

	if tasks := mustLoad(t, tm); len(tasks) != 0 {
		t.Errorf("После ClearAll ожидался пустой список: %+v", tasks)
	}
	if _, ok, _ := s.Get(ctx, DefaultKey); ok {
		t.Error("ClearAll должен удалить запись целиком")
	}
}

func TestPersistedLayout(t *testing.T) {
	tm, s := newTestManager()
	ctx := context.Background()

	_ = tm.Append(ctx, models.Task{ID: 1704844800000, Text: "Buy milk", Date: "2024-01-10"})

	raw, _, _ := s.Get(ctx, DefaultKey)
	want := `[{"id":1704844800000,"text":"Buy milk","date":"2024-01-10","completed":false}]`
	if raw != want {
		t.Errorf("Неверный формат записи:\nполучено %s\nожидалось %s", raw, want)
	}
}

func TestCorruptDataFallsBackToEmpty(t *testing.T) {
	oldOutput := log.Writer()
	defer log.SetOutput(oldOutput)
	var buf bytes.Buffer
	log.SetOutput(&buf)

	ctx := context.Background()
	cases := map[string]string{
		"not json":      `{oops`,
		"not an array":  `{"id":1}`,
		"wrong types":   `[{"id":"1","text":"a","date":"2024-01-01","completed":false}]`,
		"missing field": `[{"id":1,"text":"a","date":"2024-01-01"}]`,
		"null":          `null`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			tm, s := newTestManager()
			_ = s.Set(ctx, DefaultKey, raw)
			buf.Reset()
			before := testutil.ToFloat64(corruptLoads)

			tasks := mustLoad(t, tm)
			if len(tasks) != 0 {
				t.Errorf("Ожидался пустой список, получено %+v", tasks)
			}
			if got := testutil.ToFloat64(corruptLoads) - before; got != 1 {
				t.Errorf("Ожидалось 1 повреждённое чтение, получено %v", got)
			}
			if !strings.Contains(buf.String(), "[WARN]") {
				t.Errorf("Ожидалось предупреждение в логе: %s", buf.String())
			}
			if err := tm.Validate(ctx); !errors.Is(err, ErrCorrupt) {
				t.Error("Validate должен сообщить о повреждении")
			}

			// Следующая мутация перезаписывает повреждённые данные
			_ = tm.Append(ctx, models.Task{ID: 1, Text: "a", Date: "2024-01-01"})
			if tasks := mustLoad(t, tm); len(tasks) != 1 {
				t.Errorf("Ожидалась 1 задача после Append, получено %+v", tasks)
			}
		})
	}
}

type failingStorage struct {
	storage.MemoryStorage
}

var errBackend = errors.New("диск недоступен")

func (f *failingStorage) Get(context.Context, string) (string, bool, error) {
	return "", false, errBackend
}

func TestBackendErrorIsReturned(t *testing.T) {
	tm := NewTaskManager(&failingStorage{}, "")
	ctx := context.Background()

	before := testutil.ToFloat64(storeOpCount.WithLabelValues("append", "error"))

	if _, err := tm.LoadAll(ctx); !errors.Is(err, errBackend) {
		t.Errorf("LoadAll: ожидалась ошибка хранилища, получено %v", err)
	}
	if err := tm.Append(ctx, models.Task{ID: 1}); !errors.Is(err, errBackend) {
		t.Errorf("Append: ожидалась ошибка хранилища, получено %v", err)
	}

	if got := testutil.ToFloat64(storeOpCount.WithLabelValues("append", "error")) - before; got != 1 {
		t.Errorf("Ожидалась 1 ошибка append в метриках, получено %v", got)
	}
}

func TestMetrics(t *testing.T) {
	tm, _ := newTestManager()
	ctx := context.Background()

	before := testutil.ToFloat64(storeOpCount.WithLabelValues("append", "success"))
	_ = tm.Append(ctx, models.Task{ID: 1, Text: "a", Date: "2024-01-01"})
	_ = tm.Append(ctx, models.Task{ID: 2, Text: "b", Date: "2024-01-01"})

	if got := testutil.ToFloat64(storeOpCount.WithLabelValues("append", "success")) - before; got != 2 {
		t.Errorf("Ожидалось 2 успешных append, получено %v", got)
	}
	if got := testutil.ToFloat64(storedTasks); got != 2 {
		t.Errorf("Ожидалось 2 задачи в gauge, получено %v", got)
	}
}

func TestScenario(t *testing.T) {
	tm, _ := newTestManager()
	ctx := context.Background()

	milk := models.Task{ID: 1, Text: "Buy milk", Date: "2024-01-10"}
	_ = tm.Append(ctx, milk)

	tasks := mustLoad(t, tm)
	if len(tasks) != 1 || tasks[0].Text != "Buy milk" || tasks[0].Date != "2024-01-10" || tasks[0].Completed {
		t.Fatalf("Шаг 1: %+v", tasks)
	}

	_ = tm.ToggleCompletedByID(ctx, milk.ID)
	if !mustLoad(t, tm)[0].Completed {
		t.Fatal("Шаг 2: задача должна быть выполнена")
	}

	bread := models.Task{ID: 2, Text: "Buy bread", Date: "2024-01-11"}
	_ = tm.Append(ctx, bread)
	tasks = mustLoad(t, tm)
	if len(tasks) != 2 || tasks[0].ID != milk.ID || tasks[1].ID != bread.ID {
		t.Fatalf("Шаг 3: %+v", tasks)
	}

	_ = tm.RemoveByID(ctx, milk.ID)
	tasks = mustLoad(t, tm)
	if len(tasks) != 1 || tasks[0].ID != bread.ID {
		t.Fatalf("Шаг 4: %+v", tasks)
	}

	_ = tm.ClearAll(ctx)
	if tasks := mustLoad(t, tm); len(tasks) != 0 {
		t.Fatalf("Шаг 5: %+v", tasks)
	}
}
