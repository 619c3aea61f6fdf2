package progress

import "strings"

// TooltipOffset is how far the tooltip sits from the pointer, in pixels.
const TooltipOffset = 10

// Tooltip is the hover state of a progress bar. The zero value is hidden.
type Tooltip struct {
	Visible bool   `json:"visible"`
	Text    string `json:"text"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
}

// Enter shows the tooltip for seg next to the pointer at (x, y).
func (t *Tooltip) Enter(seg Segment, x, y int) {
	t.Visible = true
	t.Text = TooltipText(seg.Hover)
	t.X = x + TooltipOffset
	t.Y = y + TooltipOffset
}

// Leave hides the tooltip.
func (t *Tooltip) Leave() {
	*t = Tooltip{}
}

// TooltipText is the plain-text tooltip body. Empty fields are not
// interpolated as markup; callers render the text as-is.
func TooltipText(h Hover) string {
	var b strings.Builder
	if h.Date != "" {
		b.WriteString("Дата: ")
		b.WriteString(h.Date)
		b.WriteByte('\n')
	}
	switch {
	case h.StartTime != "" && h.EndTime != "":
		b.WriteString("Время: " + h.StartTime + " - " + h.EndTime)
	case h.StartTime != "":
		b.WriteString("Время: " + h.StartTime)
	default:
		b.WriteString("Время не указано")
	}
	b.WriteByte('\n')
	b.WriteString("Статус: " + h.Status)
	b.WriteByte('\n')
	b.WriteString("ID: " + h.SubscriptionID)
	return b.String()
}
