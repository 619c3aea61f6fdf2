package model

// AttendanceStatus is the closed set of lesson states shown on the dashboard.
// Raw status strings from the API are mapped onto it by internal/normalize.
type AttendanceStatus int

const (
	StatusScheduled AttendanceStatus = iota
	StatusAttended
	StatusMissed
)

// String returns the Russian label used across every surface.
func (s AttendanceStatus) String() string {
	switch s {
	case StatusAttended:
		return "Посещение"
	case StatusMissed:
		return "Пропуск"
	default:
		return "Запланировано"
	}
}

// Key is a stable ASCII identifier, used for CSS classes and JSON.
func (s AttendanceStatus) Key() string {
	switch s {
	case StatusAttended:
		return "attended"
	case StatusMissed:
		return "missed"
	default:
		return "scheduled"
	}
}

func (s AttendanceStatus) MarshalText() ([]byte, error) {
	return []byte(s.Key()), nil
}

// Event is a single calendar entry produced from one raw calendar-API record.
type Event struct {
	Date          Date             `json:"date"`
	Time          Clock            `json:"time"`
	DurationHours float64          `json:"duration_hours"`
	Title         string           `json:"title"`
	Status        AttendanceStatus `json:"status"`
}

// LessonSlot is one contracted lesson of a subscription. Its position in
// Subscription.Lessons is its lesson index; the order is the source's
// declaration order and is not necessarily chronological.
type LessonSlot struct {
	Date      Date             `json:"date"`
	StartTime string           `json:"start_time,omitempty"`
	EndTime   string           `json:"end_time,omitempty"`
	Status    AttendanceStatus `json:"status"`
}

// Subscription is a lesson package with its progress counters.
//
// Counters are taken verbatim from the source when present. RemainingLessons
// in particular is never cross-checked against TotalLessons-CompletedLessons.
type Subscription struct {
	ID               string       `json:"id"`
	Title            string       `json:"title"`
	TotalLessons     int          `json:"total_lessons"`
	CompletedLessons int          `json:"completed_lessons"`
	RemainingLessons int          `json:"remaining_lessons"`
	ProgressPercent  float64      `json:"progress_percent"`
	MissedThisMonth  int          `json:"missed_this_month"`
	Lessons          []LessonSlot `json:"lessons"`
}

// Metrics are the server-computed KPI figures.
type Metrics struct {
	Planned        int     `json:"planned"`
	Attended       int     `json:"attended"`
	Missed         int     `json:"missed"`
	AttendanceRate float64 `json:"attendance_rate"`
	BudgetMonth    float64 `json:"budget_month"`
	PaidMonth      float64 `json:"paid_month"`
	BudgetWeek     float64 `json:"budget_week"`
	PaidWeek       float64 `json:"paid_week"`
}

// Budget holds the financial figures used when metrics are computed
// client-side (demo/offline mode).
type Budget struct {
	BudgetMonth float64 `json:"budget_month"`
	PaidMonth   float64 `json:"paid_month"`
	BudgetWeek  float64 `json:"budget_week"`
	PaidWeek    float64 `json:"paid_week"`
}

// Source tells where a Dataset came from.
type Source string

const (
	SourceAPI  Source = "api"
	SourceDemo Source = "demo"
)

// Dataset is the full result of one refresh. It is replaced wholesale on
// every refresh and never patched in place.
type Dataset struct {
	Source        Source         `json:"source"`
	Filters       []string       `json:"filters"`
	Events        []Event        `json:"events"`
	Subscriptions []Subscription `json:"subscriptions"`
	// Metrics is nil when the server sent no metrics payload.
	Metrics *Metrics `json:"metrics,omitempty"`
	Budget  Budget   `json:"budget"`
}
