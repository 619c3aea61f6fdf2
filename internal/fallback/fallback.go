// Package fallback provides the fixed demo dataset installed when the API
// cannot be reached.
package fallback

import (
	"time"

	"github.com/teambition/rrule-go"

	"studiodash/internal/config"
	"studiodash/internal/model"
)

// Demo budget figures, in rubles.
const (
	BudgetMonth = 148500
	PaidMonth   = 120000
	BudgetWeek  = 35000
	PaidWeek    = 25000
)

// lessonLength is the demo subscription's lesson duration.
const lessonLength = 90 * time.Minute

// demoSchedule describes the recurring lessons of one demo subscription.
// Occurrences before attendedUntil are marked attended.
type demoSchedule struct {
	id            string
	title         string
	start         time.Time
	days          []rrule.Weekday
	count         int
	attendedUntil time.Time
}

var schedules = []demoSchedule{
	{
		id:            "demo1",
		title:         "Футбол - Марк",
		start:         time.Date(2025, time.October, 15, 10, 0, 0, 0, time.UTC),
		days:          []rrule.Weekday{rrule.WE, rrule.FR},
		count:         2,
		attendedUntil: time.Date(2025, time.October, 16, 0, 0, 0, 0, time.UTC),
	},
}

// Dataset returns a freshly built demo dataset. Callers own the result.
func Dataset() model.Dataset {
	subs := make([]model.Subscription, 0, len(schedules))
	for _, s := range schedules {
		subs = append(subs, s.subscription())
	}

	return model.Dataset{
		Source:  model.SourceDemo,
		Filters: []string{config.AllStudents},
		Events: []model.Event{
			{
				Date:          model.NewDate(2025, time.October, 15),
				Time:          model.Clock{Hour: 10},
				DurationHours: 1.5,
				Title:         "Футбол - Марк",
				Status:        model.StatusAttended,
			},
			{
				Date:          model.NewDate(2025, time.October, 16),
				Time:          model.Clock{Hour: 11},
				DurationHours: 1,
				Title:         "Логопед - Алиса",
				Status:        model.StatusAttended,
			},
			{
				Date:          model.NewDate(2025, time.October, 17),
				Time:          model.Clock{Hour: 12, Minute: 30},
				DurationHours: 2,
				Title:         "Рисование - Майя",
				Status:        model.StatusScheduled,
			},
		},
		Subscriptions: subs,
		Budget: model.Budget{
			BudgetMonth: BudgetMonth,
			PaidMonth:   PaidMonth,
			BudgetWeek:  BudgetWeek,
			PaidWeek:    PaidWeek,
		},
	}
}

func (s demoSchedule) subscription() model.Subscription {
	sub := model.Subscription{ID: s.id, Title: s.title, Lessons: []model.LessonSlot{}}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   s.start,
		Byweekday: s.days,
		Count:     s.count,
	})
	if err == nil {
		for _, at := range rule.All() {
			slot := model.LessonSlot{
				Date:      model.DateOf(at),
				StartTime: at.Format("15:04"),
				EndTime:   at.Add(lessonLength).Format("15:04"),
				Status:    model.StatusScheduled,
			}
			if at.Before(s.attendedUntil) {
				slot.Status = model.StatusAttended
				sub.CompletedLessons++
			}
			sub.Lessons = append(sub.Lessons, slot)
		}
	}

	sub.TotalLessons = len(sub.Lessons)
	sub.RemainingLessons = sub.TotalLessons - sub.CompletedLessons
	if sub.TotalLessons > 0 {
		sub.ProgressPercent = float64(sub.CompletedLessons) / float64(sub.TotalLessons) * 100
	}
	return sub
}
