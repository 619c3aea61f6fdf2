package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"studiodash/internal/model"
	"studiodash/internal/normalize"
)

// parseEvents reads exported VEVENTs back into events, with wall-clock
// times taken in loc. Events without a usable DTSTART are skipped.
func parseEvents(body []byte, loc *time.Location) ([]model.Event, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty body")
	}
	if loc == nil {
		loc = time.UTC
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ics: parse calendar: %w", err)
	}

	events := make([]model.Event, 0)
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(ve, loc)
		if err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (model.Event, error) {
	start, err := ve.GetStartAt()
	if err != nil {
		return model.Event{}, err
	}
	start = start.In(loc)

	ev := model.Event{
		Date:          model.DateOf(start),
		Time:          model.Clock{Hour: start.Hour(), Minute: start.Minute()},
		DurationHours: 1.5,
		Status:        model.StatusScheduled,
	}

	if end, err := ve.GetEndAt(); err == nil && end.After(start) {
		ev.DurationHours = end.Sub(start).Hours()
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyCategories); p != nil {
		ev.Status = normalize.MapStatus(p.Value)
	} else if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil {
		switch strings.ToUpper(p.Value) {
		case string(ical.ObjectStatusConfirmed):
			ev.Status = model.StatusAttended
		case string(ical.ObjectStatusCancelled):
			ev.Status = model.StatusMissed
		}
	}
	return ev, nil
}
