// Package ics exports the visible calendar week as an iCalendar feed.
package ics

import (
	"fmt"
	"io"
	"math"
	"time"

	ical "github.com/arran4/golang-ical"

	"studiodash/internal/calendar"
	"studiodash/internal/model"
)

const (
	productID = "-//studiodash//lesson calendar//RU"
	uidDomain = "studiodash"
)

// WeekCalendar builds a VCALENDAR with the events of the week containing
// reference that fall inside the displayed hour window. Wall-clock times
// are interpreted in loc; stamp is written as DTSTAMP.
func WeekCalendar(events []model.Event, reference model.Date, loc *time.Location, stamp time.Time) *ical.Calendar {
	if loc == nil {
		loc = time.UTC
	}
	start, end := calendar.WeekBounds(reference)

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(fmt.Sprintf("Занятия %s - %s", start, end))
	cal.SetXWRTimezone(loc.String())

	for i, ev := range events {
		if ev.Date.Before(start) || ev.Date.After(end) || ev.Date.IsZero() {
			continue
		}
		if ev.Time.Hour < calendar.FirstHour || ev.Time.Hour >= calendar.EndHour {
			continue
		}

		begin := ev.Date.In(loc).Add(time.Duration(ev.Time.Hour)*time.Hour + time.Duration(ev.Time.Minute)*time.Minute)
		finish := begin.Add(time.Duration(math.Round(ev.DurationHours*60)) * time.Minute)
		detail := calendar.DetailOf(ev)

		ve := cal.AddEvent(eventUID(ev, i))
		ve.SetDtStampTime(stamp)
		ve.SetStartAt(begin)
		ve.SetEndAt(finish)
		ve.SetSummary(ev.Title)
		ve.SetDescription(detail.Person + "\n" + detail.TimeLine + "\n" + detail.Status)
		ve.SetStatus(objectStatus(ev.Status))
		ve.AddCategory(ev.Status.String())
	}
	return cal
}

// WriteWeek serializes WeekCalendar to w.
func WriteWeek(w io.Writer, events []model.Event, reference model.Date, loc *time.Location, stamp time.Time) error {
	if err := WeekCalendar(events, reference, loc, stamp).SerializeTo(w); err != nil {
		return fmt.Errorf("ics: serialize week: %w", err)
	}
	return nil
}

func eventUID(ev model.Event, i int) string {
	return fmt.Sprintf("%s-%02d%02d-%d@%s",
		ev.Date.String(), ev.Time.Hour, ev.Time.Minute, i, uidDomain)
}

func objectStatus(s model.AttendanceStatus) ical.ObjectStatus {
	switch s {
	case model.StatusAttended:
		return ical.ObjectStatusConfirmed
	case model.StatusMissed:
		return ical.ObjectStatusCancelled
	default:
		return ical.ObjectStatusTentative
	}
}
