package calendar

import (
	"strconv"
	"strings"

	"studiodash/internal/model"
)

// Detail is the payload shown when a block is clicked.
type Detail struct {
	Activity string `json:"activity"`
	Person   string `json:"person"`
	TimeLine string `json:"time_line"`
	Status   string `json:"status"`
}

// DetailOf splits an "<activity> - <person>" title and formats the time line.
func DetailOf(ev model.Event) Detail {
	activity, person, _ := strings.Cut(ev.Title, " - ")
	if activity == "" {
		activity = "Название не указано"
	}
	if person == "" {
		person = "Не указан"
	}
	return Detail{
		Activity: activity,
		Person:   "Ученик: " + person,
		TimeLine: "Время: " + ev.Time.String() + ", " + strconv.FormatFloat(ev.DurationHours, 'f', -1, 64) + " ч.",
		Status:   "Статус: " + ev.Status.String(),
	}
}
