// Package calendar lays out a week of events as pixel-positioned blocks.
//
// The layout is a pure function of its inputs: the same events, reference
// date and "today" always yield the same WeekLayout.
package calendar

import (
	"fmt"
	"time"

	"studiodash/internal/model"
)

const (
	// HourHeight is the vertical size of one hour in pixels.
	HourHeight = 60.0
	// Gap is subtracted from each block height to separate stacked blocks.
	Gap = 4.0
	// FirstHour and EndHour bound the displayed window [FirstHour, EndHour).
	FirstHour = 9
	EndHour   = 22
	// DaysPerWeek is the number of columns in a week layout.
	DaysPerWeek = 7
)

// Block is one positioned event.
type Block struct {
	Time   string                 `json:"time"`
	Title  string                 `json:"title"`
	Status model.AttendanceStatus `json:"status"`
	Top    float64                `json:"top"`
	Height float64                `json:"height"`
	Detail Detail                 `json:"detail"`
}

// Day is one column of the week.
type Day struct {
	Date    model.Date `json:"date"`
	Label   string     `json:"label"`
	Number  int        `json:"number"`
	IsToday bool       `json:"is_today"`
	Blocks  []Block    `json:"blocks"`
}

// WeekLayout is everything a surface needs to draw the week grid.
type WeekLayout struct {
	WeekStart   model.Date `json:"week_start"`
	WeekEnd     model.Date `json:"week_end"`
	Title       string     `json:"title"`
	HourMarkers []string   `json:"hour_markers"`
	GridHeight  float64    `json:"grid_height"`
	Days        []Day      `json:"days"`
}

// WeekBounds returns the Monday on or before reference and the Sunday after it.
func WeekBounds(reference model.Date) (start, end model.Date) {
	dayOfWeek := (int(reference.Weekday()) + 6) % 7
	start = reference.AddDays(-dayOfWeek)
	return start, start.AddDays(DaysPerWeek - 1)
}

// ShiftWeek moves reference by n weeks (negative n goes back).
func ShiftWeek(reference model.Date, n int) model.Date {
	return reference.AddDays(7 * n)
}

// LayoutWeek buckets events into the week containing reference and computes
// each block's geometry. Events outside the [FirstHour, EndHour) window or
// outside the week are left out. Overlapping events are not offset; they
// keep their input order.
func LayoutWeek(events []model.Event, reference, today model.Date) WeekLayout {
	start, end := WeekBounds(reference)

	layout := WeekLayout{
		WeekStart:   start,
		WeekEnd:     end,
		Title:       rangeTitle(start, end),
		HourMarkers: hourMarkers(),
		GridHeight:  float64(EndHour-FirstHour) * HourHeight,
		Days:        make([]Day, 0, DaysPerWeek),
	}

	for i := 0; i < DaysPerWeek; i++ {
		date := start.AddDays(i)
		day := Day{
			Date:    date,
			Label:   weekdayShort[date.Weekday()],
			Number:  date.Day,
			IsToday: date == today,
			Blocks:  []Block{},
		}
		for _, ev := range events {
			if ev.Date != date || !inWindow(ev.Time) {
				continue
			}
			day.Blocks = append(day.Blocks, place(ev))
		}
		layout.Days = append(layout.Days, day)
	}

	return layout
}

func inWindow(c model.Clock) bool {
	return c.Hour >= FirstHour && c.Hour < EndHour
}

func place(ev model.Event) Block {
	top := ((float64(ev.Time.Hour) - FirstHour) + float64(ev.Time.Minute)/60) * HourHeight
	return Block{
		Time:   ev.Time.String(),
		Title:  ev.Title,
		Status: ev.Status,
		Top:    top,
		Height: ev.DurationHours*HourHeight - Gap,
		Detail: DetailOf(ev),
	}
}

func hourMarkers() []string {
	out := make([]string, 0, EndHour-FirstHour)
	for h := FirstHour; h < EndHour; h++ {
		out = append(out, fmt.Sprintf("%02d:00", h))
	}
	return out
}

var weekdayShort = map[time.Weekday]string{
	time.Monday:    "пн",
	time.Tuesday:   "вт",
	time.Wednesday: "ср",
	time.Thursday:  "чт",
	time.Friday:    "пт",
	time.Saturday:  "сб",
	time.Sunday:    "вс",
}

// monthGenitive holds month names as used after a day number ("13 октября").
var monthGenitive = [...]string{
	"", "января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

func rangeTitle(start, end model.Date) string {
	return fmt.Sprintf("%d %s - %d %s", start.Day, monthGenitive[start.Month], end.Day, monthGenitive[end.Month])
}
