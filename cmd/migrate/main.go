package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"todo-list/internal/config"
	"todo-list/internal/logger"
	"todo-list/internal/manager"
	"todo-list/internal/storage"
)

func main() {
	ctx := context.Background()

	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	reset := fs.Bool("reset", false, "Удалить повреждённую запись списка задач")

	cfg, err := config.Load(fs, os.Args[1:])
	if err != nil {
		logger.Error(ctx, err, "❌ Ошибка загрузки конфигурации")
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	logger.Info(ctx, "🔄 Подготовка хранилища...", "driver", cfg.Storage.Driver)

	// Open создаёт папку для файла БД и таблицу kv_store
	s, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		logger.Error(ctx, err, "❌ Ошибка подключения к хранилищу")
		os.Exit(1)
	}
	defer s.Close()

	logger.Info(ctx, "✅ Хранилище готово")

	if err := run(ctx, manager.NewTaskManager(s, cfg.Storage.Key), *reset); err != nil {
		logger.Error(ctx, err, "❌ Проверка не пройдена")
		s.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, tm *manager.TaskManager, reset bool) error {
	if err := tm.Validate(ctx); err != nil {
		// Ошибку подключения не считаем повреждением
		if !reset || !errors.Is(err, manager.ErrCorrupt) {
			return err
		}
		logger.Warn(ctx, "⚠️ Запись повреждена, удаляем", "error", err)
		if err := tm.ClearAll(ctx); err != nil {
			return err
		}
	}

	count, err := tm.Count(ctx)
	if err != nil {
		return err
	}
	logger.Info(ctx, "🎉 Запись списка задач читается", "tasks", count)
	return nil
}
