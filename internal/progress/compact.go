package progress

import "studiodash/internal/model"

// CompactBar is the widget variant of the bar: min(total, max) cells, the
// first `completed` of them colored along the gradient of the compact
// length, the rest WidgetEmptyColor. Lesson statuses are not consulted.
func CompactBar(sub model.Subscription, max int) []RGB {
	n := sub.TotalLessons
	if max > 0 && n > max {
		n = max
	}
	if n <= 0 {
		return []RGB{}
	}

	completed := sub.CompletedLessons
	if completed > n {
		completed = n
	}

	out := make([]RGB, n)
	for i := range out {
		if i < completed {
			out[i] = GradientAt(i, n)
			continue
		}
		out[i] = WidgetEmptyColor
	}
	return out
}
