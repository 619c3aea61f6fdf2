package widget

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"studiodash/internal/progress"
)

var (
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#2A344A")).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	missStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(progress.MissedColor.Hex()))
)

const cell = "■"

// Swatch draws one colored bar cell.
func Swatch(c progress.RGB) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c.Hex())).Render(cell)
}

// RenderProgress draws w for a terminal.
func RenderProgress(w Progress) string {
	lines := []string{header(w.Title, w.UpdatedAt)}

	switch w.State {
	case StateError:
		lines = append(lines, errorStyle.Render(w.Message), mutedStyle.Render(w.Hint))
		return frameStyle.Render(strings.Join(lines, "\n"))
	case StateEmpty:
		lines = append(lines, mutedStyle.Render(w.Message))
		return frameStyle.Render(strings.Join(lines, "\n"))
	}

	if s := w.Summary; s != nil {
		lines = append(lines, mutedStyle.Render("Запланировано "+s.Planned+"  Посещено "+s.Attended+"  Посещаемость "+s.Rate))
	}
	for _, r := range w.Rows {
		lines = append(lines, "")
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			titleStyle.Render(r.Title), " ", mutedStyle.Render(strconv.Itoa(r.Percent)+"%")))

		var bar strings.Builder
		for _, c := range r.Bar {
			bar.WriteString(Swatch(c))
		}
		lines = append(lines, bar.String())

		details := mutedStyle.Render(r.Passed)
		if r.ShowMissed {
			details += "  " + missStyle.Render("Пропущено: "+strconv.Itoa(r.Missed))
		}
		lines = append(lines, details)
	}
	if w.MoreText != "" {
		lines = append(lines, "", mutedStyle.Render(w.MoreText))
	}
	return frameStyle.Render(strings.Join(lines, "\n"))
}

// RenderFinance draws w for a terminal.
func RenderFinance(w Finance) string {
	lines := []string{header(w.Title, w.UpdatedAt)}
	if w.State == StateError {
		lines = append(lines, errorStyle.Render(w.Message))
		return frameStyle.Render(strings.Join(lines, "\n"))
	}

	lines = append(lines,
		titleStyle.Render("📅 Месяц"),
		mutedStyle.Render("Бюджет   ")+w.BudgetMonth,
		mutedStyle.Render("Оплачено ")+w.PaidMonth,
		"",
		titleStyle.Render("📊 Неделя"),
		mutedStyle.Render("Бюджет   ")+w.BudgetWeek,
		mutedStyle.Render("Оплачено ")+w.PaidWeek,
	)

	if c := w.Completion; c != nil {
		tier := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(c.Color))
		var bar strings.Builder
		for _, b := range c.Bar {
			bar.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(b.Color)).Render(cell))
		}
		lines = append(lines, "",
			mutedStyle.Render("Выполнение бюджета: ")+tier.Render(c.Text),
			bar.String())
	}

	if a := w.Attendance; a != nil {
		lines = append(lines, "",
			mutedStyle.Render("Посещаемость ")+a.Rate+"  "+mutedStyle.Render("Запланировано ")+a.Planned)
	}
	return frameStyle.Render(strings.Join(lines, "\n"))
}

func header(title, updated string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, titleStyle.Render(title), "  ", mutedStyle.Render(updated))
}
