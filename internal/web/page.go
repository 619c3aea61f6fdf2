package web

import (
	"html/template"
	"strconv"

	"studiodash/internal/dashboard"
	"studiodash/internal/progress"
)

// pageData is the root value of templates/index.html.
type pageData struct {
	View dashboard.View
}

func (p pageData) PrevWeek() int { return p.View.WeekOffset - 1 }
func (p pageData) NextWeek() int { return p.View.WeekOffset + 1 }

var templateFuncs = template.FuncMap{
	"px": func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64) + "px"
	},
	"tooltip": progress.TooltipText,
}
