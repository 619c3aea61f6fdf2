// Package metrics aggregates KPI figures and formats them for display.
//
// Two computation paths exist. Server trusts the metrics payload of the
// API verbatim; Client recounts lesson slots across subscriptions and is
// used for the demo dataset. The path is chosen by an explicit Mode.
package metrics

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"studiodash/internal/calendar"
	"studiodash/internal/model"
)

// Mode selects the aggregation path.
type Mode int

const (
	ModeServer Mode = iota
	ModeClient
)

func (m Mode) String() string {
	if m == ModeClient {
		return "client"
	}
	return "server"
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Window restricts client-side counting to [From, To], both inclusive.
// The zero Window counts every slot.
type Window struct {
	From model.Date
	To   model.Date
}

// IsZero reports whether w places no restriction.
func (w Window) IsZero() bool {
	return w.From.IsZero() && w.To.IsZero()
}

// Contains reports whether d falls inside w. A zero-date slot is only
// counted by the zero Window.
func (w Window) Contains(d model.Date) bool {
	if w.IsZero() {
		return true
	}
	if d.IsZero() {
		return false
	}
	if !w.From.IsZero() && d.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && d.After(w.To) {
		return false
	}
	return true
}

// WeekWindow is the Monday..Sunday week containing ref.
func WeekWindow(ref model.Date) Window {
	start, end := calendar.WeekBounds(ref)
	return Window{From: start, To: end}
}

// MonthWindow is the calendar month containing ref.
func MonthWindow(ref model.Date) Window {
	first := model.NewDate(ref.Year, ref.Month, 1)
	last := model.DateOf(time.Date(ref.Year, ref.Month+1, 0, 0, 0, 0, 0, time.UTC))
	return Window{From: first, To: last}
}

// Counts are the attendance figures behind the KPIs.
type Counts struct {
	Planned  int `json:"planned"`
	Attended int `json:"attended"`
	Missed   int `json:"missed"`
}

// Rate is round(attended/(attended+missed)*100), or 0 when nothing was
// marked yet.
func (c Counts) Rate() int {
	marked := c.Attended + c.Missed
	if marked == 0 {
		return 0
	}
	return int(math.Round(float64(c.Attended) / float64(marked) * 100))
}

// CountSlots scans every lesson slot of subs inside w.
func CountSlots(subs []model.Subscription, w Window) Counts {
	var c Counts
	for _, sub := range subs {
		for _, slot := range sub.Lessons {
			if !w.Contains(slot.Date) {
				continue
			}
			switch slot.Status {
			case model.StatusAttended:
				c.Attended++
			case model.StatusMissed:
				c.Missed++
			default:
				c.Planned++
			}
		}
	}
	return c
}

// Display holds the KPI strings shown by every surface, plus the raw
// figures they were formatted from.
type Display struct {
	Mode        Mode    `json:"mode"`
	Planned     string  `json:"planned"`
	Attended    string  `json:"attended"`
	Missed      string  `json:"missed"`
	Rate        string  `json:"rate"`
	BudgetMonth string  `json:"budget_month"`
	PaidMonth   string  `json:"paid_month"`
	BudgetWeek  string  `json:"budget_week"`
	PaidWeek    string  `json:"paid_week"`
	Raw         Figures `json:"raw"`
}

// Figures are the unformatted numbers behind a Display.
type Figures struct {
	Counts
	RatePercent int          `json:"rate_percent"`
	Budget      model.Budget `json:"budget"`
}

// Aggregate computes the KPI display for ds. In ModeServer a dataset
// without metrics yields zeros; the window is ignored. In ModeClient the
// window restricts slot counting and money comes from ds.Budget.
func Aggregate(mode Mode, ds model.Dataset, w Window) Display {
	var f Figures
	switch mode {
	case ModeClient:
		f.Counts = CountSlots(ds.Subscriptions, w)
		f.RatePercent = f.Counts.Rate()
		f.Budget = ds.Budget
	default:
		if m := ds.Metrics; m != nil {
			f.Counts = Counts{Planned: m.Planned, Attended: m.Attended, Missed: m.Missed}
			f.RatePercent = int(math.Round(m.AttendanceRate))
			f.Budget = model.Budget{
				BudgetMonth: m.BudgetMonth,
				PaidMonth:   m.PaidMonth,
				BudgetWeek:  m.BudgetWeek,
				PaidWeek:    m.PaidWeek,
			}
		}
	}

	return Display{
		Mode:        mode,
		Planned:     fmt.Sprint(f.Planned),
		Attended:    fmt.Sprint(f.Attended),
		Missed:      fmt.Sprint(f.Missed),
		Rate:        FormatPercent(f.RatePercent),
		BudgetMonth: FormatCurrency(f.Budget.BudgetMonth),
		PaidMonth:   FormatCurrency(f.Budget.PaidMonth),
		BudgetWeek:  FormatCurrency(f.Budget.BudgetWeek),
		PaidWeek:    FormatCurrency(f.Budget.PaidWeek),
		Raw:         f,
	}
}

// FormatCurrency groups thousands with a space, drops decimals and appends
// the ruble sign. Negative and non-finite amounts render as zero.
func FormatCurrency(v float64) string {
	if v < 0 {
		v = 0
	}
	return FormatNumber(v) + " ₽"
}

// bigNumber is where FormatFloat stops being safe; it converts through int64.
const bigNumber = 1e15

// FormatNumber rounds v and groups thousands with a space. NaN and
// infinities render as "0".
func FormatNumber(v float64) string {
	v = math.Round(v)
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return "0"
	case math.Abs(v) >= bigNumber:
		i, _ := big.NewFloat(v).Int(nil)
		return strings.ReplaceAll(humanize.BigComma(i), ",", " ")
	}
	return strings.TrimSpace(humanize.FormatFloat("# ###.", v))
}

// FormatPercent renders an integer percentage.
func FormatPercent(p int) string {
	return fmt.Sprintf("%d%%", p)
}
