package normalize

import (
	"encoding/json"
	"strings"

	appLog "studiodash/internal/log"
	"studiodash/internal/model"
)

const (
	defaultEventTime     = "09:00"
	defaultEventDuration = 1.5
	defaultActivity      = "Занятие"
	defaultPerson        = "Ученик"
	defaultSubID         = "unknown"
	defaultSubTitle      = "Неизвестный абонемент"
	allStudents          = "Все"

	// maxLessons caps per-subscription lesson counters; every surface
	// draws one segment per lesson.
	maxLessons = 1000
)

// FromJSON normalizes a combined payload object of the form
// {"filters": [...], "metrics": {...}, "subscriptions": [...], "calendar": [...]}.
// A body that is not an object yields an empty Dataset.
func FromJSON(data []byte) model.Dataset {
	var p Payload
	if !object(data, &p) {
		appLog.Warn("normalize: payload is not a JSON object", "bytes", len(data))
		return emptyDataset()
	}
	return Normalize(p)
}

// Normalize converts raw endpoint bodies into canonical records. It never
// fails: missing fields get their defaults, malformed records are skipped.
// A payload that carries neither calendar nor subscriptions yields empty
// sequences; demo data is never substituted here.
func Normalize(p Payload) model.Dataset {
	if !present(p.Calendar) && !present(p.Subscriptions) {
		return emptyDataset()
	}

	ds := model.Dataset{
		Source:        model.SourceAPI,
		Filters:       normalizeFilters(p.Filters),
		Events:        normalizeEvents(p.Calendar),
		Subscriptions: normalizeSubscriptions(p.Subscriptions),
		Metrics:       normalizeMetrics(p.Metrics),
	}
	if ds.Metrics != nil {
		ds.Budget = model.Budget{
			BudgetMonth: ds.Metrics.BudgetMonth,
			PaidMonth:   ds.Metrics.PaidMonth,
			BudgetWeek:  ds.Metrics.BudgetWeek,
			PaidWeek:    ds.Metrics.PaidWeek,
		}
	}
	return ds
}

func emptyDataset() model.Dataset {
	return model.Dataset{
		Source:        model.SourceAPI,
		Filters:       []string{},
		Events:        []model.Event{},
		Subscriptions: []model.Subscription{},
	}
}

func normalizeFilters(raw json.RawMessage) []string {
	out := make([]string, 0)
	for _, el := range elements(raw) {
		var s string
		if err := json.Unmarshal(el, &s); err != nil {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		out = append(out, allStudents)
	}
	return out
}

func normalizeEvents(raw json.RawMessage) []model.Event {
	out := make([]model.Event, 0)
	for i, el := range elements(raw) {
		var re rawEvent
		if !object(el, &re) {
			appLog.Debug("normalize: skipping non-object calendar record", "index", i)
			continue
		}
		ev, ok := toEvent(re)
		if !ok {
			appLog.Warn("normalize: skipping calendar record with unreadable time", "index", i, "time", re.Time)
			continue
		}
		out = append(out, ev)
	}
	return out
}

func toEvent(re rawEvent) (model.Event, bool) {
	// Unparseable dates stay zero and simply never land on a calendar day.
	date, _ := model.ParseDate(re.Date.String())

	timeStr := re.Time.String()
	if timeStr == "" {
		timeStr = defaultEventTime
	}
	clock, err := model.ParseClock(timeStr)
	if err != nil {
		return model.Event{}, false
	}

	duration := re.Duration.Float()
	if duration <= 0 {
		duration = defaultEventDuration
	}

	title := re.Title.String()
	if title == "" {
		title = orDefault(re.Circle.String(), defaultActivity) + " - " + orDefault(re.Child.String(), defaultPerson)
	}

	return model.Event{
		Date:          date,
		Time:          clock,
		DurationHours: duration,
		Title:         title,
		Status:        MapStatusPair(re.Status.String(), re.Attendance.String()),
	}, true
}

func normalizeSubscriptions(raw json.RawMessage) []model.Subscription {
	out := make([]model.Subscription, 0)
	for i, el := range elements(raw) {
		var rs rawSubscription
		if !object(el, &rs) {
			appLog.Debug("normalize: skipping non-object subscription", "index", i)
			continue
		}
		out = append(out, toSubscription(rs))
	}
	return out
}

func toSubscription(rs rawSubscription) model.Subscription {
	lessons := normalizeLessons(rs.Lessons)

	total := lessonCount(rs.TotalLessons)
	if total == 0 {
		total = min(len(lessons), maxLessons)
	}
	completed := lessonCount(rs.CompletedLessons)

	progress := rs.ProgressPercent.Float()
	if progress == 0 && total > 0 {
		progress = float64(completed) / float64(total) * 100
	}
	progress = min(max(progress, 0), 100)

	return model.Subscription{
		ID:               orDefault(rs.ID.String(), defaultSubID),
		Title:            orDefault(rs.Name.String(), defaultSubTitle),
		TotalLessons:     total,
		CompletedLessons: completed,
		RemainingLessons: lessonCount(rs.RemainingLessons),
		ProgressPercent:  progress,
		MissedThisMonth:  lessonCount(rs.MissedThisMonth),
		Lessons:          lessons,
	}
}

func lessonCount(n flexNumber) int {
	return min(n.Int(), maxLessons)
}

// normalizeLessons keeps positional alignment: a malformed element still
// occupies its index as a scheduled slot with no date.
func normalizeLessons(raw json.RawMessage) []model.LessonSlot {
	els := elements(raw)
	out := make([]model.LessonSlot, 0, len(els))
	for _, el := range els {
		var rl rawLesson
		if !object(el, &rl) {
			out = append(out, model.LessonSlot{Status: model.StatusScheduled})
			continue
		}
		date, _ := model.ParseDate(rl.Date.String())
		start := rl.StartTime.String()
		if start == "" {
			start = rl.Time.String()
		}
		out = append(out, model.LessonSlot{
			Date:      date,
			StartTime: start,
			EndTime:   rl.EndTime.String(),
			Status:    MapStatusPair(rl.Status.String(), rl.Attendance.String()),
		})
	}
	return out
}

func normalizeMetrics(raw json.RawMessage) *model.Metrics {
	var rm rawMetrics
	if !object(raw, &rm) {
		return nil
	}
	rate := rm.AttendanceRate.Float()
	if rate > 100 {
		rate = 100
	}
	return &model.Metrics{
		Planned:        rm.Planned.Int(),
		Attended:       rm.Attended.Int(),
		Missed:         rm.Missed.Int(),
		AttendanceRate: rate,
		BudgetMonth:    rm.BudgetMonth.Float(),
		PaidMonth:      rm.PaidMonth.Float(),
		BudgetWeek:     rm.BudgetWeek.Float(),
		PaidWeek:       rm.PaidWeek.Float(),
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Metrics normalizes a lone metrics object, for surfaces that fetch only
// the metrics endpoint. It returns nil when raw is not an object.
func Metrics(raw json.RawMessage) *model.Metrics {
	return normalizeMetrics(raw)
}

// Subscriptions normalizes a lone subscriptions array.
func Subscriptions(raw json.RawMessage) []model.Subscription {
	return normalizeSubscriptions(raw)
}
