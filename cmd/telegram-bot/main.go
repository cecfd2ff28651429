package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"todo-list/internal/config"
	"todo-list/internal/controller"
	"todo-list/internal/logger"
	"todo-list/internal/manager"
	"todo-list/internal/models"
	"todo-list/internal/storage"
	"todo-list/internal/view"
)

// sender - часть BotAPI, которая нужна боту (подменяется в тестах)
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api        sender
	controller *controller.Controller

	mu           sync.Mutex
	pendingClear map[int64]bool
}

func NewBot(api sender, c *controller.Controller) *Bot {
	return &Bot{
		api:          api,
		controller:   c,
		pendingClear: make(map[int64]bool),
	}
}

func (b *Bot) Start(ctx context.Context, api *tgbotapi.BotAPI) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates, err := api.GetUpdatesChan(u)
	if err != nil {
		return fmt.Errorf("ошибка получения updates: %w", err)
	}

	logger.Info(ctx, "Бот запущен и слушает сообщения...")

	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	user := ""
	if msg.From != nil {
		user = msg.From.UserName
	}
	logger.Info(ctx, "Получено сообщение",
		"user", user,
		"text", msg.Text,
	)

	b.handleText(ctx, msg.Chat.ID, msg.Text)
}

func (b *Bot) handleText(ctx context.Context, chatID int64, text string) {
	command, args := parseCommand(text)

	switch command {
	case "start":
		b.sendMessage(chatID, welcomeText)
	case "help":
		b.sendMessage(chatID, helpText)
	case "add":
		b.addTask(ctx, chatID, args)
	case "list":
		b.listTasks(chatID, args)
	case "done":
		b.withID(chatID, args, "/done", func(id int64) {
			if b.reportError(chatID, b.controller.Toggle(ctx, id)) {
				b.sendMessage(chatID, fmt.Sprintf("✅ Задача #%d переключена", id))
			}
		})
	case "delete":
		b.withID(chatID, args, "/delete", func(id int64) {
			if b.reportError(chatID, b.controller.Delete(ctx, id)) {
				b.sendMessage(chatID, fmt.Sprintf("🗑️ Задача #%d удалена!", id))
			}
		})
	case "clear":
		b.setPending(chatID, true)
		b.sendMessage(chatID, controller.ConfirmClearPrompt+"\n/yes - удалить, /no - отмена")
	case "yes", "no":
		b.answerClear(ctx, chatID, command == "yes")
	case "":
		// Обычный текст без команды добавляем как задачу
		if strings.TrimSpace(text) != "" {
			b.addTask(ctx, chatID, text)
		}
	default:
		b.sendMessage(chatID, "Неизвестная команда. Используйте /help для списка команд.")
	}
}

// parseCommand разбирает "/add@bot текст" на ("add", "текст")
func parseCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	if i := strings.IndexByte(head, '@'); i >= 0 {
		head = head[:i]
	}
	return strings.ToLower(head), strings.TrimSpace(rest)
}

// splitTaskArgs отделяет дату в конце: "Купить молоко 2024-01-10"
func splitTaskArgs(args string) models.CreateTaskRequest {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return models.CreateTaskRequest{}
	}
	last := fields[len(fields)-1]
	if len(last) == len(models.DateLayout) && strings.Count(last, "-") == 2 {
		return models.CreateTaskRequest{
			Text: strings.Join(fields[:len(fields)-1], " "),
			Date: last,
		}
	}
	return models.CreateTaskRequest{Text: args}
}

func (b *Bot) addTask(ctx context.Context, chatID int64, args string) {
	task, err := b.controller.Submit(ctx, splitTaskArgs(args))
	if errors.Is(err, controller.ErrValidation) {
		b.sendMessage(chatID, "❌ "+err.Error()+"\nПример: /add Купить молоко 2024-01-10")
		return
	}
	if !b.reportError(chatID, err) {
		return
	}

	b.sendMessage(chatID, fmt.Sprintf("✅ *Задача добавлена!*\n\nID: #%d\nЗадача: %s\nСрок: %s",
		task.ID, escapeMarkdown(task.Text), view.FormatDueDate(task.Date)))
}

func (b *Bot) listTasks(chatID int64, args string) {
	if args != "" {
		mode, err := models.ParseFilter(args)
		if err != nil {
			b.sendMessage(chatID, "Фильтр: all, completed или uncompleted")
			return
		}
		b.controller.SetFilter(mode)
	}

	snap := b.controller.Snapshot()
	if snap.Empty {
		b.sendMessage(chatID, "📭 Список задач пуст")
		return
	}

	var response strings.Builder
	fmt.Fprintf(&response, "📋 *Ваши задачи* (%s):\n\n", snap.Filter)

	shown := 0
	for _, it := range snap.Items {
		if !it.Visible {
			continue
		}
		status := "🟢"
		if it.Task.Completed {
			status = "✅"
		}
		fmt.Fprintf(&response, "%s #%d: %s (до %s)\n\n", status, it.Task.ID,
			escapeMarkdown(it.Task.Text), view.FormatDueDate(it.Task.Date))
		shown++
	}
	if shown == 0 {
		response.WriteString("Нет задач под этот фильтр")
	}

	b.sendMessage(chatID, response.String())
}

func (b *Bot) answerClear(ctx context.Context, chatID int64, yes bool) {
	if !b.setPending(chatID, false) {
		b.sendMessage(chatID, "Нечего подтверждать. Используйте /clear")
		return
	}

	deleted, err := b.controller.DeleteAll(ctx, func(string) bool { return yes })
	if !b.reportError(chatID, err) {
		return
	}
	if deleted {
		b.sendMessage(chatID, "🗑️ Все задачи удалены")
	} else {
		b.sendMessage(chatID, "Отменено")
	}
}

// setPending меняет флаг ожидания подтверждения и возвращает прежнее значение
func (b *Bot) setPending(chatID int64, v bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev := b.pendingClear[chatID]
	if v {
		b.pendingClear[chatID] = true
	} else {
		delete(b.pendingClear, chatID)
	}
	return prev
}

func (b *Bot) withID(chatID int64, args, usage string, fn func(id int64)) {
	if args == "" {
		b.sendMessage(chatID, "Укажите номер задачи: "+usage+" 1704844800000")
		return
	}
	id, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		b.sendMessage(chatID, "Номер задачи должен быть числом")
		return
	}
	fn(id)
}

// reportError отправляет ошибку пользователю. Возвращает true, если ошибки нет
func (b *Bot) reportError(chatID int64, err error) bool {
	if err == nil {
		return true
	}
	logger.Error(context.Background(), err, "Ошибка обработки команды", "chat", chatID)
	b.sendMessage(chatID, "❌ Ошибка: "+err.Error())
	return false
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"

	if _, err := b.api.Send(msg); err != nil {
		logger.Error(context.Background(), err, "Ошибка отправки сообщения")
	}
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

const welcomeText = `🎯 *Добро пожаловать в TodoBot!*

*Доступные команды:*
/add [задача] [ГГГГ-ММ-ДД] - Добавить задачу
/list [all|completed|uncompleted] - Показать задачи
/done [номер] - Отметить выполненной / снять отметку
/delete [номер] - Удалить задачу
/clear - Удалить все задачи
/help - Помощь`

const helpText = `🤖 *Помощь по командам*

*/start* - Начать работу с ботом
*/add [задача] [дата]* - Добавить новую задачу
*/list [фильтр]* - Показать задачи
*/done [номер]* - Переключить выполнение
*/delete [номер]* - Удалить задачу
*/clear* - Удалить все задачи (с подтверждением /yes или /no)
*/help* - Показать эту справку

*Примеры использования:*
/add Купить молоко 2024-01-10
/list completed`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fs := flag.NewFlagSet("telegram-bot", flag.ExitOnError)
	cfg, err := config.Load(fs, os.Args[1:])
	if err != nil {
		logger.Error(ctx, err, "Ошибка загрузки конфигурации")
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
	logger.Info(ctx, "Запуск Telegram-бота...")

	if cfg.TelegramToken == "" {
		logger.Error(ctx, nil, "Не задан токен бота (TODO_TELEGRAM_TOKEN или telegram_token в todo.toml)")
		os.Exit(1)
	}

	s, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		logger.Error(ctx, err, "Ошибка инициализации хранилища")
		os.Exit(1)
	}
	defer s.Close()

	c := controller.New(manager.NewTaskManager(s, cfg.Storage.Key), view.New())
	if err := c.Load(ctx); err != nil {
		logger.Error(ctx, err, "Ошибка загрузки задач")
		return
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		logger.Error(ctx, err, "Ошибка создания бота")
		return
	}
	logger.Info(ctx, "Авторизован", "bot", api.Self.UserName)

	bot := NewBot(api, c)
	if err := bot.Start(ctx, api); err != nil {
		logger.Error(ctx, err, "Бот остановлен с ошибкой")
	}
}
