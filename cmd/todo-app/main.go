package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"todo-list/internal/config"
	"todo-list/internal/controller"
	"todo-list/internal/export"
	"todo-list/internal/logger"
	"todo-list/internal/manager"
	"todo-list/internal/models"
	"todo-list/internal/server"
	"todo-list/internal/storage"
	"todo-list/internal/view"
)

type app struct {
	cfg     *config.Config
	storage storage.Storage
	tm      *manager.TaskManager
	c       *controller.Controller
}

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	command := os.Args[1]
	handlers := map[string]func(ctx context.Context, args []string) error{
		"add":      handleAddCommand,
		"list":     handleListCommand,
		"complete": handleCompleteCommand,
		"delete":   handleDeleteCommand,
		"clear":    handleClearCommand,
		"export":   handleExportCommand,
		"serve":    handleServeCommand,
	}

	handler, ok := handlers[command]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printHelp()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := handler(ctx, os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openApp загружает конфигурацию, открывает хранилище и строит отображение
func openApp(ctx context.Context, fs *flag.FlagSet, args []string) (*app, error) {
	cfg, err := config.Load(fs, args)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	s, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	tm := manager.NewTaskManager(s, cfg.Storage.Key)
	c := controller.New(tm, view.New())
	if err := c.Load(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return &app{cfg: cfg, storage: s, tm: tm, c: c}, nil
}

func (a *app) Close() {
	if err := a.storage.Close(); err != nil {
		logger.Error(context.Background(), err, "Ошибка закрытия хранилища")
	}
}

func handleAddCommand(ctx context.Context, args []string) error {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	text := addCmd.String("text", "", "Task text")
	date := addCmd.String("date", "", "Due date (YYYY-MM-DD)")

	a, err := openApp(ctx, addCmd, args)
	if err != nil {
		return err
	}
	defer a.Close()

	task, err := a.c.Submit(ctx, models.CreateTaskRequest{Text: *text, Date: *date})
	if err != nil {
		if errors.Is(err, controller.ErrValidation) {
			return fmt.Errorf("%v (use --text and --date)", err)
		}
		return err
	}

	fmt.Printf("Added task with ID %d\n", task.ID)
	return nil
}

func handleListCommand(ctx context.Context, args []string) error {
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	filter := listCmd.String("filter", "all", "Filter tasks (all|completed|uncompleted)")

	a, err := openApp(ctx, listCmd, args)
	if err != nil {
		return err
	}
	defer a.Close()

	mode, err := models.ParseFilter(*filter)
	if err != nil {
		return err
	}
	a.c.SetFilter(mode)

	return a.c.WithView(func(v *view.View) error {
		return v.WriteText(os.Stdout)
	})
}

func handleCompleteCommand(ctx context.Context, args []string) error {
	completeCmd := flag.NewFlagSet("complete", flag.ExitOnError)
	id := completeCmd.Int64("id", 0, "Task ID to toggle")

	a, err := openApp(ctx, completeCmd, args)
	if err != nil {
		return err
	}
	defer a.Close()

	if *id == 0 {
		return errors.New("--id is required")
	}
	if err := a.c.Toggle(ctx, *id); err != nil {
		return err
	}

	fmt.Printf("Task %d toggled\n", *id)
	return nil
}

func handleDeleteCommand(ctx context.Context, args []string) error {
	deleteCmd := flag.NewFlagSet("delete", flag.ExitOnError)
	id := deleteCmd.Int64("id", 0, "Task ID to delete")

	a, err := openApp(ctx, deleteCmd, args)
	if err != nil {
		return err
	}
	defer a.Close()

	if *id == 0 {
		return errors.New("--id is required")
	}
	if err := a.c.Delete(ctx, *id); err != nil {
		return err
	}

	fmt.Printf("Task %d deleted\n", *id)
	return nil
}

func handleClearCommand(ctx context.Context, args []string) error {
	clearCmd := flag.NewFlagSet("clear", flag.ExitOnError)
	yes := clearCmd.Bool("yes", false, "Do not ask for confirmation")

	a, err := openApp(ctx, clearCmd, args)
	if err != nil {
		return err
	}
	defer a.Close()

	confirm := askConfirm
	if *yes {
		confirm = func(string) bool { return true }
	}

	deleted, err := a.c.DeleteAll(ctx, confirm)
	if err != nil {
		return err
	}
	if deleted {
		fmt.Println("All tasks deleted")
	} else {
		fmt.Println("Cancelled")
	}
	return nil
}

func handleExportCommand(ctx context.Context, args []string) error {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	format := exportCmd.String("format", "json", "Export format (json|csv|pdf)")
	outFile := exportCmd.String("out", "", "Output file path")

	a, err := openApp(ctx, exportCmd, args)
	if err != nil {
		return err
	}
	defer a.Close()

	if *outFile == "" {
		return errors.New("--out is required")
	}

	tasks, err := a.tm.LoadAll(ctx)
	if err != nil {
		return err
	}
	data, err := export.ExportWith(tasks, *format, export.Options{FontPath: a.cfg.PDFFont})
	if err != nil {
		return err
	}
	if err := os.WriteFile(*outFile, data, 0o644); err != nil {
		return err
	}

	fmt.Printf("Tasks exported to %s in %s format\n", *outFile, *format)
	return nil
}

func handleServeCommand(ctx context.Context, args []string) error {
	serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)

	a, err := openApp(ctx, serveCmd, args)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           server.NewRouter(a.c),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "HTTP сервер запущен", "addr", a.cfg.HTTPAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info(ctx, "HTTP сервер остановлен")
	return nil
}

func askConfirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "д", "да":
		return true
	}
	return false
}

func printHelp() {
	fmt.Println(`Usage: todo <command> [flags]

Commands:
  add      --text="..." --date=YYYY-MM-DD          Add new task
  list     [--filter=all|completed|uncompleted]    List tasks
  complete --id=ID                                 Toggle task completion
  delete   --id=ID                                 Delete task
  clear    [--yes]                                 Delete all tasks (asks for confirmation)
  export   --format=json|csv|pdf --out=FILE        Export tasks
  serve    [--addr=:8080]                          Run HTTP server

Common flags:
  --config=FILE   TOML config (default todo.toml if present)
  --storage=NAME  memory|sqlite|sqlite3|mysql|postgres|redis
  --dsn=DSN       Storage DSN
  --log-level=LVL debug|info|warn|error

Storage:
  Tasks are kept as one JSON list under a single key (default "todos").
  The default backend is SQLite at ./data/todoapp.db.`)
}
