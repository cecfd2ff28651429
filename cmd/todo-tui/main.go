package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"todo-list/internal/config"
	"todo-list/internal/controller"
	"todo-list/internal/logger"
	"todo-list/internal/manager"
	"todo-list/internal/storage"
	"todo-list/internal/ui"
	"todo-list/internal/view"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(flag.NewFlagSet("todo-tui", flag.ExitOnError), os.Args[1:])
	if err != nil {
		return err
	}
	// Логи поверх alt screen ломают отрисовку, поэтому по умолчанию только ошибки
	if cfg.LogLevel == config.Default().LogLevel {
		cfg.LogLevel = "error"
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	s, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer s.Close()

	c := controller.New(manager.NewTaskManager(s, cfg.Storage.Key), view.New())
	if err := c.Load(ctx); err != nil {
		return err
	}
	return ui.Run(ctx, c)
}
