package normalize

import (
	"strings"

	"studiodash/internal/model"
)

// statusTable is the full vocabulary seen in the source spreadsheets and
// the bot's check marks. Keys are lower-cased, trimmed and stripped of the
// emoji variation selector. Anything else maps to StatusScheduled.
var statusTable = map[string]model.AttendanceStatus{
	"присутствовал": model.StatusAttended,
	"посещение":     model.StatusAttended,
	"посещено":      model.StatusAttended,
	"✔":             model.StatusAttended,
	"✓":             model.StatusAttended,
	"✅":             model.StatusAttended,

	"отсутствовал": model.StatusMissed,
	"пропуск":      model.StatusMissed,
	"пропущено":    model.StatusMissed,
	"✖":            model.StatusMissed,
	"✗":            model.StatusMissed,
	"❌":            model.StatusMissed,

	"запланировано": model.StatusScheduled,
	"завершен":      model.StatusScheduled,
}

// MapStatus maps one raw status string onto the closed enum.
func MapStatus(raw string) model.AttendanceStatus {
	key := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(raw, "\uFE0F", "")))
	if st, ok := statusTable[key]; ok {
		return st
	}
	return model.StatusScheduled
}

// MapStatusPair resolves a record carrying both a status column and an
// attendance mark. The status column wins unless it says nothing more than
// "scheduled".
func MapStatusPair(status, attendance string) model.AttendanceStatus {
	if st := MapStatus(status); st != model.StatusScheduled {
		return st
	}
	return MapStatus(attendance)
}
