package core

import "fmt"

// Goal status is derived from the spend percentage, never stored.
const (
	GoalOK       GoalStatus = "ok"
	GoalWarning  GoalStatus = "warning"
	GoalExceeded GoalStatus = "exceeded"
)

// Threshold percentages for goal alerting.
const (
	WarningPct  = 80
	ExceededPct = 100
)

type GoalStatus string

// GoalPct returns round(spent/limit*100). Limits are constrained positive at
// write time; a non-positive limit here is a programming error and fails
// fast instead of producing a nonsense percentage.
func GoalPct(spentCents, limitCents int64) (int, error) {
	if limitCents <= 0 {
		return 0, fmt.Errorf("goal limit must be positive, got %d cents", limitCents)
	}
	pct := float64(spentCents) / float64(limitCents) * 100
	return int(pct + 0.5), nil
}

// StatusForPct classifies a spend percentage against the goal thresholds.
func StatusForPct(pct int) GoalStatus {
	switch {
	case pct >= ExceededPct:
		return GoalExceeded
	case pct >= WarningPct:
		return GoalWarning
	default:
		return GoalOK
	}
}
