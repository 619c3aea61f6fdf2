// Package telegram exposes the dashboard summary over a Telegram bot:
// KPI stats, the current week and manual refresh, plus a button that
// opens the web dashboard.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"studiodash/internal/config"
	"studiodash/internal/dashboard"
	appLog "studiodash/internal/log"
)

// Controller is the part of *dashboard.Controller the bot uses.
type Controller interface {
	State() dashboard.State
	Refresh(ctx context.Context) (dashboard.Result, error)
	SetFilter(ctx context.Context, student string) (dashboard.Result, error)
}

// Commands is the menu registered with Telegram on startup.
var Commands = []tgbotapi.BotCommand{
	{Command: "start", Description: "Открыть дашборд"},
	{Command: "stats", Description: "Показатели посещаемости и бюджета"},
	{Command: "week", Description: "Занятия на этой неделе"},
	{Command: "refresh", Description: "Обновить данные"},
	{Command: "student", Description: "Выбрать ученика: /student Имя"},
}

// Bot answers chat commands from the dashboard controller.
type Bot struct {
	api       *tgbotapi.BotAPI
	ctrl      Controller
	loc       *time.Location
	webAppURL string
	timeout   time.Duration
}

// New connects to the Bot API with cfg's token.
func New(cfg config.TelegramConfig, ctrl Controller, loc *time.Location, timeout time.Duration) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram: token is empty")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", err)
	}
	b := newBot(ctrl, loc, cfg.WebAppURL, timeout)
	b.api = api
	return b, nil
}

func newBot(ctrl Controller, loc *time.Location, webAppURL string, timeout time.Duration) *Bot {
	if loc == nil {
		loc = time.Local
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Bot{ctrl: ctrl, loc: loc, webAppURL: webAppURL, timeout: timeout}
}

// Run long-polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(Commands...)); err != nil {
		appLog.Warn("telegram: set commands failed", "err", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)
	appLog.Info("telegram bot started", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			appLog.Info("telegram bot stopped")
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if upd.Message == nil || !upd.Message.IsCommand() {
				continue
			}
			reply := b.Handle(ctx, upd.Message)
			if _, err := b.api.Send(reply); err != nil {
				appLog.Error("telegram: send failed", err, "chat", upd.Message.Chat.ID)
			}
		}
	}
}

// Handle builds the reply to one command message.
func (b *Bot) Handle(ctx context.Context, msg *tgbotapi.Message) tgbotapi.MessageConfig {
	var chatID int64
	if msg.Chat != nil {
		chatID = msg.Chat.ID
	}
	appLog.Debug("telegram command", "chat", chatID, "command", msg.Command())

	var text string
	withButton := false
	switch msg.Command() {
	case "start":
		text = "Дашборд занятий. Команды: /stats, /week, /refresh, /student Имя"
		withButton = true
	case "stats":
		text = FormatStats(b.view())
		withButton = true
	case "week":
		text = FormatWeek(b.view())
	case "refresh":
		text = b.refresh(ctx, func(ctx context.Context) (dashboard.Result, error) {
			return b.ctrl.Refresh(ctx)
		})
	case "student":
		student := strings.TrimSpace(msg.CommandArguments())
		if student == "" {
			student = config.AllStudents
		}
		text = b.refresh(ctx, func(ctx context.Context) (dashboard.Result, error) {
			return b.ctrl.SetFilter(ctx, student)
		})
	default:
		text = "Неизвестная команда. Доступно: /stats, /week, /refresh, /student Имя"
	}

	reply := tgbotapi.NewMessage(chatID, text)
	if withButton && b.webAppURL != "" {
		reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("Открыть дашборд", b.webAppURL)),
		)
	}
	return reply
}

func (b *Bot) view() dashboard.View {
	return dashboard.BuildView(b.ctrl.State(), dashboard.Today(b.loc))
}

func (b *Bot) refresh(ctx context.Context, run func(context.Context) (dashboard.Result, error)) string {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	res, err := run(ctx)
	switch {
	case errors.Is(err, dashboard.ErrAlreadyLoading):
		return "Обновление уже идет, попробуйте через минуту"
	case err != nil:
		return "Не удалось обновить: " + err.Error()
	}

	text := FormatStats(b.view())
	if res.FetchErr != nil {
		text = "API недоступен, показаны демо-данные\n\n" + text
	}
	return text
}
