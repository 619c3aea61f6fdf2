package normalize

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Payload is the raw result of one refresh: the unwrapped body of each of the
// four endpoints. Any field may be nil or malformed.
type Payload struct {
	Filters       json.RawMessage `json:"filters,omitempty"`
	Metrics       json.RawMessage `json:"metrics,omitempty"`
	Subscriptions json.RawMessage `json:"subscriptions,omitempty"`
	Calendar      json.RawMessage `json:"calendar,omitempty"`
}

type rawEvent struct {
	Date       flexString `json:"date"`
	Time       flexString `json:"time"`
	Duration   flexNumber `json:"duration"`
	Title      flexString `json:"title"`
	Circle     flexString `json:"circle"`
	Child      flexString `json:"child"`
	Status     flexString `json:"status"`
	Attendance flexString `json:"attendance"`
}

type rawLesson struct {
	Date       flexString `json:"date"`
	Time       flexString `json:"time"`
	StartTime  flexString `json:"start_time"`
	EndTime    flexString `json:"end_time"`
	Status     flexString `json:"status"`
	Attendance flexString `json:"attendance"`
}

type rawSubscription struct {
	ID               flexString      `json:"id"`
	Name             flexString      `json:"name"`
	TotalLessons     flexNumber      `json:"total_lessons"`
	CompletedLessons flexNumber      `json:"completed_lessons"`
	RemainingLessons flexNumber      `json:"remaining_lessons"`
	ProgressPercent  flexNumber      `json:"progress_percent"`
	MissedThisMonth  flexNumber      `json:"missed_this_month"`
	Lessons          json.RawMessage `json:"lessons"`
}

type rawMetrics struct {
	Planned        flexNumber `json:"planned"`
	Attended       flexNumber `json:"attended"`
	Missed         flexNumber `json:"missed"`
	AttendanceRate flexNumber `json:"attendance_rate"`
	BudgetMonth    flexNumber `json:"budget_month"`
	PaidMonth      flexNumber `json:"paid_month"`
	BudgetWeek     flexNumber `json:"budget_week"`
	PaidWeek       flexNumber `json:"paid_week"`
}

// flexNumber accepts a JSON number or a numeric string. Anything else,
// including NaN and infinities, decodes to 0 without error so one bad cell
// never drops a record.
type flexNumber float64

// maxCount bounds integer fields so the float to int conversion never
// wraps.
const maxCount = math.MaxInt32

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	*n = 0
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	var s string
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	} else {
		s = string(b)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	*n = flexNumber(v)
	return nil
}

// Int truncates n into [0, maxCount].
func (n flexNumber) Int() int {
	switch {
	case n < 0:
		return 0
	case n > maxCount:
		return maxCount
	}
	return int(n)
}

// Float returns n, or 0 when negative.
func (n flexNumber) Float() float64 {
	if n < 0 {
		return 0
	}
	return float64(n)
}

// flexString accepts strings and numbers (spreadsheet IDs often arrive as
// numbers). Other JSON values decode to "".
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	*s = ""
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch {
	case b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err == nil {
			*s = flexString(strings.TrimSpace(v))
		}
	case b[0] == '-' || (b[0] >= '0' && b[0] <= '9'):
		*s = flexString(b)
	}
	return nil
}

func (s flexString) String() string {
	return string(s)
}

// present reports whether raw holds a non-null JSON value.
func present(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && !bytes.Equal(t, []byte("null"))
}

// elements splits a JSON array into its raw elements. A non-array yields nil.
func elements(raw json.RawMessage) []json.RawMessage {
	if !present(raw) {
		return nil
	}
	var out []json.RawMessage
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// object decodes raw into v only when raw is a JSON object.
func object(raw json.RawMessage, v any) bool {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 || t[0] != '{' {
		return false
	}
	return json.Unmarshal(t, v) == nil
}
