package widget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studiodash/internal/metrics"
	"studiodash/internal/model"
	"studiodash/internal/progress"
)

var fixedNow = time.Date(2025, 10, 15, 14, 5, 0, 0, time.UTC)

func subs(n int) []model.Subscription {
	out := make([]model.Subscription, n)
	for i := range out {
		out[i] = model.Subscription{
			ID:               fmt.Sprint(i),
			Title:            fmt.Sprintf("Кружок %d", i),
			TotalLessons:     16,
			CompletedLessons: 4,
			ProgressPercent:  25,
		}
	}
	return out
}

func TestParseFamily(t *testing.T) {
	assert.Equal(t, FamilyLarge, ParseFamily(" Large "))
	assert.Equal(t, FamilySmall, ParseFamily("small"))
	assert.Equal(t, FamilyMedium, ParseFamily(""))
	assert.Equal(t, FamilyMedium, ParseFamily("huge"))
}

func TestBuildProgressRowsAndMore(t *testing.T) {
	ds := model.Dataset{Subscriptions: subs(5)}
	opts := Options{MaxRows: 3, Segments: 10}

	w := BuildProgress(ds, FamilyMedium, opts, fixedNow)
	assert.Equal(t, StateOK, w.State)
	assert.Equal(t, "14:05", w.UpdatedAt)
	require.Len(t, w.Rows, 3)
	assert.Equal(t, 2, w.More)
	assert.Equal(t, "+2 еще...", w.MoreText)
	assert.Nil(t, w.Summary)

	row := w.Rows[0]
	assert.Equal(t, "Прошло: 4/16", row.Passed)
	assert.Equal(t, 25, row.Percent)
	require.Len(t, row.Bar, 10)
	assert.Equal(t, progress.GradientStart, row.Bar[0])
	assert.Equal(t, progress.WidgetEmptyColor, row.Bar[4])

	large := BuildProgress(ds, FamilyLarge, opts, fixedNow)
	assert.Len(t, large.Rows, 4)
	assert.Equal(t, "+1 еще...", large.MoreText)
}

func TestBuildProgressExactFit(t *testing.T) {
	w := BuildProgress(model.Dataset{Subscriptions: subs(3)}, FamilySmall, Options{}, fixedNow)
	assert.Len(t, w.Rows, 3)
	assert.Zero(t, w.More)
	assert.Empty(t, w.MoreText)
}

func TestBuildProgressEmptyAndSummary(t *testing.T) {
	empty := BuildProgress(model.Dataset{}, FamilyMedium, Options{}, fixedNow)
	assert.Equal(t, StateEmpty, empty.State)
	assert.Equal(t, "Нет активных абонементов", empty.Message)
	assert.Empty(t, empty.Rows)

	ds := model.Dataset{
		Subscriptions: subs(1),
		Metrics:       &model.Metrics{Planned: 5, Attended: 2, AttendanceRate: 66.6},
	}
	w := BuildProgress(ds, FamilyMedium, Options{}, fixedNow)
	require.NotNil(t, w.Summary)
	assert.Equal(t, Summary{Planned: "5", Attended: "2", Rate: "67%"}, *w.Summary)
}

func TestBuildProgressMissedBadge(t *testing.T) {
	s := subs(2)
	s[1].MissedThisMonth = 2
	w := BuildProgress(model.Dataset{Subscriptions: s}, FamilyMedium, Options{}, fixedNow)
	assert.False(t, w.Rows[0].ShowMissed)
	assert.True(t, w.Rows[1].ShowMissed)
	assert.Equal(t, 2, w.Rows[1].Missed)
}

func TestBuildFinance(t *testing.T) {
	m := &model.Metrics{
		Planned:        7,
		AttendanceRate: 80,
		BudgetMonth:    148500,
		PaidMonth:      120000,
		BudgetWeek:     35000,
		PaidWeek:       25000,
	}

	w := BuildFinance(m, FamilyMedium, fixedNow)
	assert.Equal(t, "148 500 ₽", w.BudgetMonth)
	assert.Equal(t, "120 000 ₽", w.PaidMonth)
	assert.Equal(t, "35 000 ₽", w.BudgetWeek)
	assert.Equal(t, "25 000 ₽", w.PaidWeek)
	assert.Nil(t, w.Attendance)

	require.NotNil(t, w.Completion)
	assert.Equal(t, 81, w.Completion.Percent)
	assert.Equal(t, "81%", w.Completion.Text)
	assert.Equal(t, metrics.LevelWarning, w.Completion.Level)
	require.Len(t, w.Completion.Bar, 20)
	filled := 0
	for _, c := range w.Completion.Bar {
		if c.Filled {
			filled++
			assert.Equal(t, "#FDDD00", c.Color)
		}
	}
	assert.Equal(t, 16, filled)

	large := BuildFinance(m, FamilyLarge, fixedNow)
	require.NotNil(t, large.Attendance)
	assert.Equal(t, Attendance{Rate: "80%", Planned: "7"}, *large.Attendance)
}

func TestBuildFinanceWithoutBudget(t *testing.T) {
	w := BuildFinance(nil, FamilyMedium, fixedNow)
	assert.Equal(t, "0 ₽", w.BudgetMonth)
	assert.Nil(t, w.Completion)
}

func TestCompletionBarOverflow(t *testing.T) {
	bar := completionBar(130, "#10B981")
	require.Len(t, bar, 20)
	for _, c := range bar {
		assert.True(t, c.Filled)
	}
}

type fakeAPI struct {
	subs    json.RawMessage
	metrics json.RawMessage
	subErr  error
	metErr  error
	block   bool
	student string
}

func (f *fakeAPI) Subscriptions(ctx context.Context, student string) (json.RawMessage, error) {
	f.student = student
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.subs, f.subErr
}

func (f *fakeAPI) Metrics(ctx context.Context, student string) (json.RawMessage, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.metrics, f.metErr
}

func newTestLoader(api API, opts Options) *Loader {
	l := NewLoader(api, opts)
	l.now = func() time.Time { return fixedNow }
	return l
}

func TestLoaderProgress(t *testing.T) {
	api := &fakeAPI{
		subs:   json.RawMessage(`[{"id":"1","name":"Футбол","total_lessons":8,"completed_lessons":2}]`),
		metErr:  errors.New("metrics down"),
	}
	w := newTestLoader(api, Options{}).Progress(context.Background(), FamilyMedium)

	assert.Equal(t, "Все", api.student)
	assert.Equal(t, StateOK, w.State)
	require.Len(t, w.Rows, 1)
	assert.Equal(t, "Футбол", w.Rows[0].Title)
	assert.Equal(t, 25, w.Rows[0].Percent)
	assert.Nil(t, w.Summary)
}

func TestLoaderProgressErrorNeverUsesDemoData(t *testing.T) {
	api := &fakeAPI{subErr: errors.New("boom")}
	w := newTestLoader(api, Options{}).Progress(context.Background(), FamilyMedium)

	assert.Equal(t, StateError, w.State)
	assert.Empty(t, w.Rows)
	assert.Equal(t, "Не удалось загрузить данные", w.Message)
	assert.Equal(t, "Попробуйте позже", w.Hint)
}

func TestLoaderTimeout(t *testing.T) {
	api := &fakeAPI{block: true}
	l := newTestLoader(api, Options{Timeout: 20 * time.Millisecond})

	start := time.Now()
	w := l.Finance(context.Background(), FamilySmall)
	assert.Equal(t, StateError, w.State)
	assert.Equal(t, "❌ Ошибка загрузки", w.Message)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestLoaderFinance(t *testing.T) {
	api := &fakeAPI{metrics: json.RawMessage(`{"budget_month":"148500","paid_month":140000}`)}
	w := newTestLoader(api, Options{}).Finance(context.Background(), FamilyMedium)

	assert.Equal(t, StateOK, w.State)
	assert.Equal(t, "148 500 ₽", w.BudgetMonth)
	require.NotNil(t, w.Completion)
	assert.Equal(t, 94, w.Completion.Percent)
	assert.Equal(t, metrics.LevelGood, w.Completion.Level)
}

func TestRenderContainsText(t *testing.T) {
	p := BuildProgress(model.Dataset{Subscriptions: subs(4)}, FamilyMedium, Options{}, fixedNow)
	out := RenderProgress(p)
	assert.Contains(t, out, "Активные абонементы")
	assert.Contains(t, out, "Кружок 0")
	assert.Contains(t, out, "Прошло: 4/16")
	assert.Contains(t, out, "+1 еще...")

	assert.Contains(t, RenderProgress(ProgressError(FamilySmall, nil, fixedNow)), "Попробуйте позже")

	f := BuildFinance(&model.Metrics{BudgetMonth: 1000, PaidMonth: 500}, FamilyMedium, fixedNow)
	fout := RenderFinance(f)
	assert.Contains(t, fout, "1 000 ₽")
	assert.Contains(t, fout, "Выполнение бюджета")
	assert.Contains(t, fout, "50%")

	assert.Contains(t, RenderFinance(FinanceError(FamilyMedium, fixedNow)), "Ошибка загрузки")
}
