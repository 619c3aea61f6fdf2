package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studiodash/internal/fallback"
	"studiodash/internal/metrics"
	"studiodash/internal/model"
	"studiodash/internal/normalize"
)

type fetchFunc func(ctx context.Context, student string) (normalize.Payload, error)

type stubFetcher struct {
	mu    sync.Mutex
	calls []string
	fn    fetchFunc
}

func (s *stubFetcher) Fetch(ctx context.Context, student string) (normalize.Payload, error) {
	s.mu.Lock()
	s.calls = append(s.calls, student)
	s.mu.Unlock()
	return s.fn(ctx, student)
}

func (s *stubFetcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func payloadFor(title string) normalize.Payload {
	events, _ := json.Marshal([]map[string]any{
		{"date": "2025-10-15", "time": "10:00", "title": title, "status": "Посещение"},
	})
	return normalize.Payload{
		Filters:       json.RawMessage(`["Все","Марк"]`),
		Metrics:       json.RawMessage(`{"planned":3,"attended":1,"missed":1,"attendance_rate":50}`),
		Subscriptions: json.RawMessage(`[]`),
		Calendar:      events,
	}
}

func TestRefreshSuccessInstallsAPIData(t *testing.T) {
	f := &stubFetcher{fn: func(context.Context, string) (normalize.Payload, error) {
		return payloadFor("Футбол - Марк"), nil
	}}
	c := NewController(f, "")

	res, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, uint64(1), res.Seq)
	assert.NotEmpty(t, res.ID)
	assert.NoError(t, res.FetchErr)

	st := c.State()
	assert.Equal(t, model.SourceAPI, st.Dataset.Source)
	assert.Equal(t, metrics.ModeServer, st.Mode)
	assert.Equal(t, "Все", st.Filter)
	require.Len(t, st.Dataset.Events, 1)
	assert.Equal(t, "Футбол - Марк", st.Dataset.Events[0].Title)
	assert.Empty(t, st.LastError)
	assert.False(t, st.Loading)
	assert.Equal(t, []string{"Все"}, f.calls)
}

func TestRefreshFailureInstallsDemoData(t *testing.T) {
	f := &stubFetcher{fn: func(context.Context, string) (normalize.Payload, error) {
		return normalize.Payload{}, errors.New("dashapi: call /api/metrics: connection refused")
	}}
	c := NewController(f, "Все")

	res, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Error(t, res.FetchErr)
	assert.Equal(t, model.SourceDemo, res.Source)

	st := c.State()
	assert.Equal(t, metrics.ModeClient, st.Mode)
	assert.Equal(t, fallback.Dataset(), st.Dataset)
	assert.Contains(t, st.LastError, "connection refused")

	// A later success switches back to the server path.
	f.fn = func(context.Context, string) (normalize.Payload, error) {
		return payloadFor("Логопед - Алиса"), nil
	}
	_, err = c.Refresh(context.Background())
	require.NoError(t, err)
	st = c.State()
	assert.Equal(t, metrics.ModeServer, st.Mode)
	assert.Equal(t, model.SourceAPI, st.Dataset.Source)
	assert.Empty(t, st.LastError)
}

func TestRefreshIsNotReentrant(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	f := &stubFetcher{fn: func(context.Context, string) (normalize.Payload, error) {
		close(started)
		<-release
		return payloadFor("Футбол - Марк"), nil
	}}
	c := NewController(f, "")

	done := make(chan error, 1)
	go func() {
		_, err := c.Refresh(context.Background())
		done <- err
	}()
	<-started

	assert.True(t, c.Loading())
	assert.True(t, c.State().Loading)

	_, err := c.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyLoading)
	assert.Equal(t, 1, f.callCount(), "second refresh must not fetch")
	assert.Equal(t, uint64(0), c.State().Seq, "state untouched while loading")

	close(release)
	require.NoError(t, <-done)
	assert.False(t, c.Loading())
	assert.Equal(t, uint64(1), c.State().Seq)
}

func TestStaleRefreshIsDiscarded(t *testing.T) {
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	f := &stubFetcher{fn: func(_ context.Context, student string) (normalize.Payload, error) {
		if student == "Все" {
			close(firstStarted)
			<-releaseFirst
			return payloadFor("old"), nil
		}
		return payloadFor("new"), nil
	}}
	c := NewController(f, "Все")

	first := make(chan Result, 1)
	go func() {
		res, _ := c.Refresh(context.Background())
		first <- res
	}()
	<-firstStarted

	res, err := c.SetFilter(context.Background(), "Марк")
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, uint64(2), res.Seq)

	close(releaseFirst)
	old := <-first
	assert.Equal(t, uint64(1), old.Seq)
	assert.False(t, old.Applied)

	st := c.State()
	assert.Equal(t, uint64(2), st.Seq)
	assert.Equal(t, "Марк", st.Filter)
	require.Len(t, st.Dataset.Events, 1)
	assert.Equal(t, "new", st.Dataset.Events[0].Title)
}

func TestWeekNavigation(t *testing.T) {
	c := NewController(&stubFetcher{}, "")
	assert.Equal(t, 1, c.ShiftWeek(1))
	assert.Equal(t, -1, c.ShiftWeek(-2))
	c.ResetWeek()
	assert.Equal(t, 0, c.State().WeekOffset)
}

func TestBuildViewDemo(t *testing.T) {
	st := State{
		Dataset:  fallback.Dataset(),
		Mode:     metrics.ModeClient,
		Filter:   "Все",
		Seq:      3,
		LoadedAt: time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC),
	}
	today := model.NewDate(2025, 10, 15)

	v := BuildView(st, today)
	assert.Equal(t, model.SourceDemo, v.Source)
	assert.Equal(t, []string{"Все"}, v.Filters)
	assert.Equal(t, "13 октября - 19 октября", v.Week.Title)
	require.Len(t, v.Week.Days, 7)
	assert.True(t, v.Week.Days[2].IsToday)
	require.Len(t, v.Week.Days[2].Blocks, 1)
	assert.Equal(t, 60.0, v.Week.Days[2].Blocks[0].Top)
	assert.Len(t, v.Week.Days[3].Blocks, 1)
	assert.Len(t, v.Week.Days[4].Blocks, 1)

	assert.Equal(t, "1", v.KPIs.Attended)
	assert.Equal(t, "1", v.KPIs.Planned)
	assert.Equal(t, "0", v.KPIs.Missed)
	assert.Equal(t, "100%", v.KPIs.Rate)
	assert.Equal(t, "148 500 ₽", v.KPIs.BudgetMonth)

	assert.Equal(t, metrics.Counts{Planned: 1, Attended: 1}, v.WeekCounts)
	assert.Equal(t, metrics.Counts{Planned: 1, Attended: 1}, v.MonthCounts)

	require.Len(t, v.Cards, 1)
	assert.Equal(t, 50, v.Cards[0].Percent)

	assert.Equal(t, v, BuildView(st, today), "BuildView is deterministic")
}

func TestBuildViewWeekOffset(t *testing.T) {
	st := State{Dataset: fallback.Dataset(), Mode: metrics.ModeClient, WeekOffset: 1}
	v := BuildView(st, model.NewDate(2025, 10, 15))

	assert.Equal(t, model.NewDate(2025, 10, 20), v.Week.WeekStart)
	assert.Equal(t, metrics.Counts{}, v.WeekCounts)
	assert.Equal(t, metrics.Counts{Planned: 1, Attended: 1}, v.MonthCounts, "month follows today, not the visible week")
	for _, d := range v.Week.Days {
		assert.Empty(t, d.Blocks)
		assert.False(t, d.IsToday)
	}
}

func TestFilterChoices(t *testing.T) {
	assert.Equal(t, []string{"Все"}, filterChoices(nil))
	assert.Equal(t, []string{"Все", "Марк", "Алиса"}, filterChoices([]string{"Марк", "Все", "", "Алиса", "Марк"}))
}

func TestBuildViewSurvivesOutOfRangeCounters(t *testing.T) {
	ds := normalize.FromJSON([]byte(`{"subscriptions": [
		{"id": "a", "total_lessons": 1e13, "completed_lessons": 3},
		{"id": "b", "total_lessons": "NaN", "progress_percent": "NaN"},
		{"id": "c", "total_lessons": 1e30, "progress_percent": "Infinity"}
	]}`))
	st := State{Dataset: ds, Mode: metrics.ModeServer}

	var v View
	require.NotPanics(t, func() { v = BuildView(st, model.NewDate(2025, 10, 15)) })
	require.Len(t, v.Cards, 3)
	for _, c := range v.Cards {
		assert.GreaterOrEqual(t, c.Total, 0, c.ID)
		assert.LessOrEqual(t, len(c.Segments), 1000, c.ID)
		assert.GreaterOrEqual(t, c.Percent, 0, c.ID)
		assert.LessOrEqual(t, c.Percent, 100, c.ID)
	}
	assert.Equal(t, 0, v.Cards[1].Total)
	assert.Equal(t, 0, v.Cards[1].Percent)
}
