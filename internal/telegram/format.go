package telegram

import (
	"fmt"
	"strings"

	"studiodash/internal/dashboard"
	"studiodash/internal/model"
)

// FormatStats renders the KPI block and subscription progress as plain text.
func FormatStats(v dashboard.View) string {
	k := v.KPIs
	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s\n", v.Filter)
	if v.Source == model.SourceDemo {
		b.WriteString("(демо-данные)\n")
	}
	fmt.Fprintf(&b, "Запланировано: %s\n", k.Planned)
	fmt.Fprintf(&b, "Посещено: %s\n", k.Attended)
	fmt.Fprintf(&b, "Пропущено: %s\n", k.Missed)
	fmt.Fprintf(&b, "Посещаемость: %s\n", k.Rate)
	fmt.Fprintf(&b, "Бюджет (месяц): %s, оплачено %s\n", k.BudgetMonth, k.PaidMonth)
	fmt.Fprintf(&b, "Бюджет (неделя): %s, оплачено %s\n", k.BudgetWeek, k.PaidWeek)
	mc := v.MonthCounts
	fmt.Fprintf(&b, "В этом месяце: посещено %d, пропущено %d\n", mc.Attended, mc.Missed)

	if len(v.Cards) > 0 {
		b.WriteString("\nАбонементы:\n")
		for _, c := range v.Cards {
			fmt.Fprintf(&b, "• %s: %d%%, осталось %d из %d", c.Title, c.Percent, c.Remaining, c.Total)
			if c.ShowMissed {
				fmt.Fprintf(&b, ", пропусков %d", c.MissedBadge)
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatWeek lists the week's lessons by day, skipping empty days.
func FormatWeek(v dashboard.View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🗓 %s\n", v.Week.Title)
	wc := v.WeekCounts
	fmt.Fprintf(&b, "Посещено %d, пропущено %d, запланировано %d\n", wc.Attended, wc.Missed, wc.Planned)

	empty := true
	for _, d := range v.Week.Days {
		if len(d.Blocks) == 0 {
			continue
		}
		empty = false
		fmt.Fprintf(&b, "\n%s %d\n", d.Label, d.Number)
		for _, blk := range d.Blocks {
			fmt.Fprintf(&b, "%s %s %s\n", blk.Time, blk.Title, statusMark(blk.Status))
		}
	}
	if empty {
		b.WriteString("\nЗанятий нет")
	}
	return strings.TrimRight(b.String(), "\n")
}

func statusMark(s model.AttendanceStatus) string {
	switch s {
	case model.StatusAttended:
		return "✅"
	case model.StatusMissed:
		return "❌"
	default:
		return "⏳"
	}
}
