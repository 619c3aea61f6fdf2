package dashboard

import (
	"time"

	"studiodash/internal/calendar"
	"studiodash/internal/config"
	"studiodash/internal/metrics"
	"studiodash/internal/model"
	"studiodash/internal/progress"
)

// View is the declarative description of the whole dashboard.
type View struct {
	Source      model.Source        `json:"source"`
	Mode        metrics.Mode        `json:"mode"`
	Filter      string              `json:"filter"`
	Filters     []string            `json:"filters"`
	WeekOffset  int                 `json:"week_offset"`
	Today       model.Date          `json:"today"`
	KPIs        metrics.Display     `json:"kpis"`
	// WeekCounts covers the visible week, MonthCounts the month of today.
	// Both are counted from lesson slots whatever the mode.
	WeekCounts  metrics.Counts      `json:"week_counts"`
	MonthCounts metrics.Counts      `json:"month_counts"`
	Week        calendar.WeekLayout `json:"week"`
	Cards       []progress.Card     `json:"cards"`
	Loading     bool                `json:"loading"`
	Seq         uint64              `json:"seq"`
	LoadedAt    time.Time           `json:"loaded_at"`
}

// BuildView derives the full view from st. It is pure: it reads no clock
// and performs no I/O, so today must be supplied by the caller.
func BuildView(st State, today model.Date) View {
	ds := st.Dataset
	reference := calendar.ShiftWeek(today, st.WeekOffset)

	return View{
		Source:      ds.Source,
		Mode:        st.Mode,
		Filter:      st.Filter,
		Filters:     filterChoices(ds.Filters),
		WeekOffset:  st.WeekOffset,
		Today:       today,
		KPIs:        metrics.Aggregate(st.Mode, ds, metrics.Window{}),
		WeekCounts:  metrics.CountSlots(ds.Subscriptions, metrics.WeekWindow(reference)),
		MonthCounts: metrics.CountSlots(ds.Subscriptions, metrics.MonthWindow(today)),
		Week:        calendar.LayoutWeek(ds.Events, reference, today),
		Cards:       progress.BuildCards(ds.Subscriptions),
		Loading:     st.Loading,
		Seq:         st.Seq,
		LoadedAt:    st.LoadedAt,
	}
}

// filterChoices puts "all students" first and drops duplicates.
func filterChoices(filters []string) []string {
	out := []string{config.AllStudents}
	seen := map[string]bool{config.AllStudents: true}
	for _, f := range filters {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// Today returns the current date in loc.
func Today(loc *time.Location) model.Date {
	if loc == nil {
		loc = time.Local
	}
	return model.DateOf(time.Now().In(loc))
}
