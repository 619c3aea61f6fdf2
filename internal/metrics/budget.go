package metrics

import "math"

// BudgetCompletion is round(paid/budget*100). ok is false when there is no
// budget to compare against.
func BudgetCompletion(paid, budget float64) (pct int, ok bool) {
	if budget <= 0 {
		return 0, false
	}
	return int(math.Round(paid / budget * 100)), true
}

// Level names a budget completion tier.
type Level string

const (
	LevelGood     Level = "good"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

// Tier is one row of the completion policy: percentages at or above Min
// fall into it.
type Tier struct {
	Min   int
	Level Level
	Color string
}

// DefaultTiers is ordered from the highest threshold down; the last row
// catches everything.
var DefaultTiers = []Tier{
	{Min: 90, Level: LevelGood, Color: "#10B981"},
	{Min: 70, Level: LevelWarning, Color: "#FDDD00"},
	{Min: math.MinInt, Level: LevelCritical, Color: "#FD7000"},
}

// TierFor picks the first tier of DefaultTiers whose threshold pct meets.
func TierFor(pct int) Tier {
	return TierIn(DefaultTiers, pct)
}

// TierIn is TierFor over a custom table.
func TierIn(tiers []Tier, pct int) Tier {
	for _, t := range tiers {
		if pct >= t.Min {
			return t
		}
	}
	if len(tiers) == 0 {
		return Tier{Level: LevelCritical}
	}
	return tiers[len(tiers)-1]
}
