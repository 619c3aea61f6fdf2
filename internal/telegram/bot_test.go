package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studiodash/internal/dashboard"
	"studiodash/internal/fallback"
	"studiodash/internal/metrics"
	"studiodash/internal/model"
)

type fakeController struct {
	st      dashboard.State
	refresh int
	filters []string
	res     dashboard.Result
	err     error
}

func (f *fakeController) State() dashboard.State { return f.st }

func (f *fakeController) Refresh(context.Context) (dashboard.Result, error) {
	f.refresh++
	return f.res, f.err
}

func (f *fakeController) SetFilter(_ context.Context, student string) (dashboard.Result, error) {
	f.filters = append(f.filters, student)
	f.st.Filter = student
	return f.res, f.err
}

func demoController() *fakeController {
	return &fakeController{st: dashboard.State{
		Dataset: fallback.Dataset(),
		Mode:    metrics.ModeClient,
		Filter:  "Все",
	}}
}

func command(text string) *tgbotapi.Message {
	n := len(text)
	for i, r := range text {
		if r == ' ' {
			n = i
			break
		}
	}
	return &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: 42},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: n}},
	}
}

func TestStartHasButton(t *testing.T) {
	b := newBot(demoController(), time.UTC, "https://dash.example.com", 0)
	reply := b.Handle(context.Background(), command("/start"))

	assert.Equal(t, int64(42), reply.ChatID)
	markup, ok := reply.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	require.Len(t, markup.InlineKeyboard[0], 1)
	btn := markup.InlineKeyboard[0][0]
	require.NotNil(t, btn.URL)
	assert.Equal(t, "https://dash.example.com", *btn.URL)
}

func TestNoButtonWithoutURL(t *testing.T) {
	b := newBot(demoController(), time.UTC, "", 0)
	reply := b.Handle(context.Background(), command("/stats"))
	assert.Nil(t, reply.ReplyMarkup)
	assert.Contains(t, reply.Text, "Посещаемость:")
	assert.Contains(t, reply.Text, "(демо-данные)")
	assert.Contains(t, reply.Text, "В этом месяце: посещено")
	assert.Contains(t, reply.Text, "• Футбол - Марк: 50%, осталось 1 из 2")
}

func TestRefreshCommand(t *testing.T) {
	ctrl := demoController()
	b := newBot(ctrl, time.UTC, "", 0)

	reply := b.Handle(context.Background(), command("/refresh"))
	assert.Equal(t, 1, ctrl.refresh)
	assert.Contains(t, reply.Text, "Запланировано:")

	ctrl.res = dashboard.Result{FetchErr: errors.New("down")}
	reply = b.Handle(context.Background(), command("/refresh"))
	assert.Contains(t, reply.Text, "API недоступен")

	ctrl.err = dashboard.ErrAlreadyLoading
	reply = b.Handle(context.Background(), command("/refresh"))
	assert.Contains(t, reply.Text, "Обновление уже идет")
}

func TestStudentCommand(t *testing.T) {
	ctrl := demoController()
	b := newBot(ctrl, time.UTC, "", 0)

	reply := b.Handle(context.Background(), command("/student Марк"))
	assert.Equal(t, []string{"Марк"}, ctrl.filters)
	assert.Contains(t, reply.Text, "📊 Марк")

	b.Handle(context.Background(), command("/student"))
	assert.Equal(t, []string{"Марк", "Все"}, ctrl.filters)
}

func TestUnknownCommand(t *testing.T) {
	b := newBot(demoController(), time.UTC, "", 0)
	reply := b.Handle(context.Background(), command("/nope"))
	assert.Contains(t, reply.Text, "Неизвестная команда")
}

func TestFormatWeek(t *testing.T) {
	st := demoController().st
	v := dashboard.BuildView(st, model.NewDate(2025, 10, 15))

	out := FormatWeek(v)
	assert.Contains(t, out, "🗓 13 октября - 19 октября\nПосещено 1, пропущено 0, запланировано 1")
	assert.Contains(t, out, "ср 15\n10:00 Футбол - Марк ✅")
	assert.Contains(t, out, "пт 17\n12:30 Рисование - Майя ⏳")
	assert.NotContains(t, out, "пн 13")

	v = dashboard.BuildView(st, model.NewDate(2025, 11, 3))
	assert.Contains(t, FormatWeek(v), "Занятий нет")
}
