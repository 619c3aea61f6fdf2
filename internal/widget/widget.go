// Package widget builds the two compact widget descriptors (subscription
// progress and finances) and renders them for a terminal.
//
// Widgets load their own data with a hard timeout. On failure they show an
// error state; they never fall back to demo data.
package widget

import (
	"fmt"
	"strings"
	"time"

	"studiodash/internal/metrics"
	"studiodash/internal/model"
	"studiodash/internal/progress"
)

// Family is the widget size.
type Family string

const (
	FamilySmall  Family = "small"
	FamilyMedium Family = "medium"
	FamilyLarge  Family = "large"
)

// ParseFamily maps free text onto a Family, defaulting to medium.
func ParseFamily(s string) Family {
	switch Family(strings.ToLower(strings.TrimSpace(s))) {
	case FamilySmall:
		return FamilySmall
	case FamilyLarge:
		return FamilyLarge
	default:
		return FamilyMedium
	}
}

// State tells which variant of a widget to draw.
type State string

const (
	StateOK    State = "ok"
	StateEmpty State = "empty"
	StateError State = "error"
)

const (
	ProgressTitle = "📊 Активные абонементы"
	FinanceTitle  = "💰 Финансы"

	emptyMessage = "Нет активных абонементов"
	errorMessage = "Не удалось загрузить данные"
	retryHint    = "Попробуйте позже"

	// FinanceSegments is the length of the budget completion bar.
	FinanceSegments = 20
	// FinanceEmptyColor fills the unreached part of the budget bar.
	FinanceEmptyColor = "#4B5563"
)

// Options are the widget knobs taken from configuration.
type Options struct {
	Student string
	Timeout time.Duration
	// MaxRows is the number of subscription rows for small and medium
	// widgets; large shows one more.
	MaxRows  int
	Segments int
}

func (o Options) rows(f Family) int {
	n := o.MaxRows
	if n <= 0 {
		n = 3
	}
	if f == FamilyLarge {
		n++
	}
	return n
}

func (o Options) segments() int {
	if o.Segments <= 0 {
		return 10
	}
	return o.Segments
}

// Summary is the KPI strip at the top of the progress widget.
type Summary struct {
	Planned  string `json:"planned"`
	Attended string `json:"attended"`
	Rate     string `json:"rate"`
}

// Row is one subscription line of the progress widget.
type Row struct {
	Title      string         `json:"title"`
	Percent    int            `json:"percent"`
	Completed  int            `json:"completed"`
	Total      int            `json:"total"`
	Passed     string         `json:"passed"`
	Missed     int            `json:"missed"`
	ShowMissed bool           `json:"show_missed"`
	Bar        []progress.RGB `json:"bar"`
}

// Progress is the subscription progress widget.
type Progress struct {
	Family    Family   `json:"family"`
	State     State    `json:"state"`
	Title     string   `json:"title"`
	UpdatedAt string   `json:"updated_at"`
	Summary   *Summary `json:"summary,omitempty"`
	Rows      []Row    `json:"rows"`
	More      int      `json:"more"`
	MoreText  string   `json:"more_text,omitempty"`
	Message   string   `json:"message,omitempty"`
	Hint      string   `json:"hint,omitempty"`
}

// BuildProgress lays out ds as a progress widget. Rows past the family's
// limit are summarized as "+N еще...".
func BuildProgress(ds model.Dataset, f Family, opts Options, now time.Time) Progress {
	w := Progress{
		Family:    f,
		State:     StateOK,
		Title:     ProgressTitle,
		UpdatedAt: now.Format("15:04"),
		Rows:      []Row{},
	}
	if len(ds.Subscriptions) == 0 {
		w.State = StateEmpty
		w.Message = emptyMessage
		return w
	}

	if m := ds.Metrics; m != nil {
		w.Summary = &Summary{
			Planned:  fmt.Sprint(m.Planned),
			Attended: fmt.Sprint(m.Attended),
			Rate:     metrics.FormatPercent(progress.Round(m.AttendanceRate)),
		}
	}

	limit := opts.rows(f)
	for i, sub := range ds.Subscriptions {
		if i == limit {
			break
		}
		w.Rows = append(w.Rows, Row{
			Title:      sub.Title,
			Percent:    progress.Round(sub.ProgressPercent),
			Completed:  sub.CompletedLessons,
			Total:      sub.TotalLessons,
			Passed:     fmt.Sprintf("Прошло: %d/%d", sub.CompletedLessons, sub.TotalLessons),
			Missed:     sub.MissedThisMonth,
			ShowMissed: sub.MissedThisMonth > 0,
			Bar:        progress.CompactBar(sub, opts.segments()),
		})
	}
	if extra := len(ds.Subscriptions) - limit; extra > 0 {
		w.More = extra
		w.MoreText = fmt.Sprintf("+%d еще...", extra)
	}
	return w
}

// ProgressError is the progress widget's error variant.
func ProgressError(f Family, err error, now time.Time) Progress {
	msg := errorMessage
	if err != nil {
		msg = err.Error()
	}
	return Progress{
		Family:    f,
		State:     StateError,
		Title:     "❌ Ошибка",
		UpdatedAt: now.Format("15:04"),
		Rows:      []Row{},
		Message:   msg,
		Hint:      retryHint,
	}
}

// BarCell is one cell of the budget completion bar.
type BarCell struct {
	Filled bool   `json:"filled"`
	Color  string `json:"color"`
}

// Completion is the month budget completion block.
type Completion struct {
	Percent int           `json:"percent"`
	Text    string        `json:"text"`
	Level   metrics.Level `json:"level"`
	Color   string        `json:"color"`
	Bar     []BarCell     `json:"bar"`
}

// Attendance is the extra block of the large finance widget.
type Attendance struct {
	Rate    string `json:"rate"`
	Planned string `json:"planned"`
}

// Finance is the financial widget.
type Finance struct {
	Family      Family      `json:"family"`
	State       State       `json:"state"`
	Title       string      `json:"title"`
	UpdatedAt   string      `json:"updated_at"`
	BudgetMonth string      `json:"budget_month"`
	PaidMonth   string      `json:"paid_month"`
	BudgetWeek  string      `json:"budget_week"`
	PaidWeek    string      `json:"paid_week"`
	Completion  *Completion `json:"completion,omitempty"`
	Attendance  *Attendance `json:"attendance,omitempty"`
	Message     string      `json:"message,omitempty"`
}

// BuildFinance lays out server metrics as a finance widget. A nil m is
// drawn as zeros.
func BuildFinance(m *model.Metrics, f Family, now time.Time) Finance {
	if m == nil {
		m = &model.Metrics{}
	}
	w := Finance{
		Family:      f,
		State:       StateOK,
		Title:       FinanceTitle,
		UpdatedAt:   now.Format("15:04"),
		BudgetMonth: metrics.FormatCurrency(m.BudgetMonth),
		PaidMonth:   metrics.FormatCurrency(m.PaidMonth),
		BudgetWeek:  metrics.FormatCurrency(m.BudgetWeek),
		PaidWeek:    metrics.FormatCurrency(m.PaidWeek),
	}

	if pct, ok := metrics.BudgetCompletion(m.PaidMonth, m.BudgetMonth); ok {
		tier := metrics.TierFor(pct)
		w.Completion = &Completion{
			Percent: pct,
			Text:    metrics.FormatPercent(pct),
			Level:   tier.Level,
			Color:   tier.Color,
			Bar:     completionBar(pct, tier.Color),
		}
	}

	if f == FamilyLarge {
		w.Attendance = &Attendance{
			Rate:    metrics.FormatPercent(progress.Round(m.AttendanceRate)),
			Planned: fmt.Sprint(m.Planned),
		}
	}
	return w
}

// FinanceError is the finance widget's error variant.
func FinanceError(f Family, now time.Time) Finance {
	return Finance{
		Family:    f,
		State:     StateError,
		Title:     FinanceTitle,
		UpdatedAt: now.Format("15:04"),
		Message:   "❌ Ошибка загрузки",
	}
}

// completionBar fills round(pct/100*20) cells with the tier color. Values
// above 100% fill the whole bar.
func completionBar(pct int, color string) []BarCell {
	filled := progress.Round(float64(pct) / 100 * FinanceSegments)
	bar := make([]BarCell, FinanceSegments)
	for i := range bar {
		if i < filled {
			bar[i] = BarCell{Filled: true, Color: color}
			continue
		}
		bar[i] = BarCell{Color: FinanceEmptyColor}
	}
	return bar
}
