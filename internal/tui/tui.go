// Package tui is the terminal dashboard: KPIs, the week's lessons and
// subscription progress, with week navigation and manual refresh.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"studiodash/internal/dashboard"
	"studiodash/internal/model"
	"studiodash/internal/widget"
)

// Controller is the part of *dashboard.Controller the TUI drives.
type Controller interface {
	State() dashboard.State
	Refresh(ctx context.Context) (dashboard.Result, error)
	ShiftWeek(n int) int
	ResetWeek()
}

type refreshDoneMsg struct {
	res dashboard.Result
	err error
}

// Model is the bubbletea model of the terminal dashboard.
type Model struct {
	ctrl   Controller
	loc    *time.Location
	now    func() time.Time
	view   dashboard.View
	status string
	width  int
}

// New builds a Model over ctrl; "today" is taken in loc.
func New(ctrl Controller, loc *time.Location) Model {
	if loc == nil {
		loc = time.Local
	}
	m := Model{ctrl: ctrl, loc: loc, now: time.Now}
	m.rebuild()
	return m
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, ctrl Controller, loc *time.Location) error {
	_, err := tea.NewProgram(New(ctrl, loc), tea.WithContext(ctx), tea.WithAltScreen()).Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

func (m *Model) rebuild() {
	m.view = dashboard.BuildView(m.ctrl.State(), model.DateOf(m.now().In(m.loc)))
}

func (m Model) refresh() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		res, err := ctrl.Refresh(context.Background())
		return refreshDoneMsg{res: res, err: err}
	}
}

func (m Model) Init() tea.Cmd {
	return m.refresh()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "left", "h":
			m.ctrl.ShiftWeek(-1)
		case "right", "l":
			m.ctrl.ShiftWeek(1)
		case "t":
			m.ctrl.ResetWeek()
		case "r":
			m.status = "Обновление..."
			return m, m.refresh()
		}
		m.rebuild()
		return m, nil

	case refreshDoneMsg:
		switch {
		case errors.Is(msg.err, dashboard.ErrAlreadyLoading):
			m.status = "Обновление уже идет"
		case msg.err != nil:
			m.status = "Ошибка: " + msg.err.Error()
		case msg.res.FetchErr != nil:
			m.status = "API недоступен, показаны демо-данные"
		default:
			m.status = "Обновлено " + m.now().In(m.loc).Format("15:04")
		}
		m.rebuild()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	}
	return m, nil
}

var (
	headStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8"))
	todayStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FDDD00"))
	dayStyle   = lipgloss.NewStyle().Width(26).PaddingRight(1)
	statusFG   = map[model.AttendanceStatus]lipgloss.Style{
		model.StatusAttended:  lipgloss.NewStyle().Foreground(lipgloss.Color("#00C1FF")),
		model.StatusMissed:    lipgloss.NewStyle().Foreground(lipgloss.Color("#F97316")),
		model.StatusScheduled: lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")),
	}
)

func (m Model) View() string {
	v := m.view
	var b strings.Builder

	b.WriteString(headStyle.Render("Расписание занятий"))
	b.WriteString("  ")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%s · %s", v.Filter, v.Source)))
	b.WriteString("\n\n")

	k := v.KPIs
	b.WriteString(fmt.Sprintf("Запланировано %s  Посещено %s  Пропущено %s  Посещаемость %s\n",
		k.Planned, k.Attended, k.Missed, k.Rate))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("Бюджет %s / оплачено %s за месяц, %s / %s за неделю",
		k.BudgetMonth, k.PaidMonth, k.BudgetWeek, k.PaidWeek)))
	b.WriteString("\n\n")

	b.WriteString(headStyle.Render("← " + v.Week.Title + " →"))
	b.WriteString("\n")
	cols := make([]string, 0, len(v.Week.Days))
	for _, d := range v.Week.Days {
		head := fmt.Sprintf("%s %d", d.Label, d.Number)
		if d.IsToday {
			head = todayStyle.Render(head)
		} else {
			head = mutedStyle.Render(head)
		}
		lines := []string{head}
		for _, blk := range d.Blocks {
			lines = append(lines, statusFG[blk.Status].Render(blk.Time+" "+blk.Title))
		}
		cols = append(cols, dayStyle.Render(strings.Join(lines, "\n")))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	b.WriteString("\n\n")

	for _, c := range v.Cards {
		var bar strings.Builder
		for _, seg := range c.Segments {
			bar.WriteString(widget.Swatch(seg.Color))
		}
		line := fmt.Sprintf("%s %d%%  осталось %d из %d", c.Title, c.Percent, c.Remaining, c.Total)
		if c.ShowMissed {
			line += fmt.Sprintf("  пропущено %d", c.MissedBadge)
		}
		b.WriteString(line + "\n" + bar.String() + "\n")
	}

	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(m.status + "\n")
	}
	b.WriteString(mutedStyle.Render("←/→ неделя · t сегодня · r обновить · q выход"))
	return b.String()
}
