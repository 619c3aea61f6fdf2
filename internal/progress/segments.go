// Package progress turns subscriptions into progress-bar segments and
// card descriptors.
package progress

import (
	"math"

	"studiodash/internal/model"
)

// SegmentKind says how a segment was colored.
type SegmentKind string

const (
	KindEmpty     SegmentKind = "empty"
	KindScheduled SegmentKind = "scheduled"
	KindAttended  SegmentKind = "attended"
	KindMissed    SegmentKind = "missed"
)

// Hover is the data carried for the on-demand tooltip.
type Hover struct {
	SubscriptionID string `json:"subscription_id"`
	Date           string `json:"date"`
	Status         string `json:"status"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
}

// Segment is one lesson cell of a progress bar.
type Segment struct {
	Index int         `json:"index"`
	Kind  SegmentKind `json:"kind"`
	Color RGB         `json:"color"`
	Hover Hover       `json:"hover"`
}

// Segments builds exactly sub.TotalLessons segments. Slot i colors segment
// i; attended slots take the gradient color of their position, not of
// their date. Slots beyond TotalLessons are ignored and missing slots are
// drawn empty.
func Segments(sub model.Subscription) []Segment {
	total := sub.TotalLessons
	if total <= 0 {
		return []Segment{}
	}

	out := make([]Segment, total)
	for i := 0; i < total; i++ {
		seg := Segment{
			Index: i,
			Kind:  KindEmpty,
			Color: NeutralColor,
			Hover: Hover{
				SubscriptionID: sub.ID,
				Status:         model.StatusScheduled.String(),
			},
		}
		if i < len(sub.Lessons) {
			slot := sub.Lessons[i]
			seg.Hover.Date = slot.Date.String()
			seg.Hover.Status = slot.Status.String()
			seg.Hover.StartTime = slot.StartTime
			seg.Hover.EndTime = slot.EndTime

			switch slot.Status {
			case model.StatusAttended:
				seg.Kind = KindAttended
				seg.Color = GradientAt(i, total)
			case model.StatusMissed:
				seg.Kind = KindMissed
				seg.Color = MissedColor
			default:
				seg.Kind = KindScheduled
			}
		}
		out[i] = seg
	}
	return out
}

// Card is the descriptor of one subscription's progress card.
type Card struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Remaining   int       `json:"remaining"`
	Total       int       `json:"total"`
	Percent     int       `json:"percent"`
	ShowMissed  bool      `json:"show_missed"`
	MissedBadge int       `json:"missed_badge"`
	Segments    []Segment `json:"segments"`
}

// BuildCard computes the card-level values. Remaining is the source value,
// taken as is.
func BuildCard(sub model.Subscription) Card {
	return Card{
		ID:          sub.ID,
		Title:       sub.Title,
		Remaining:   sub.RemainingLessons,
		Total:       sub.TotalLessons,
		Percent:     Round(sub.ProgressPercent),
		ShowMissed:  sub.MissedThisMonth > 0,
		MissedBadge: sub.MissedThisMonth,
		Segments:    Segments(sub),
	}
}

// BuildCards maps BuildCard over subs, keeping order.
func BuildCards(subs []model.Subscription) []Card {
	out := make([]Card, 0, len(subs))
	for _, sub := range subs {
		out = append(out, BuildCard(sub))
	}
	return out
}

// Round rounds half away from zero, matching the dashboard's display rounding.
func Round(v float64) int {
	return int(math.Round(v))
}
