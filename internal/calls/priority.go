package calls

import (
	"strings"
	"time"

	"qms/hospital-service/internal/models"
)

var priorityRanks = map[string]int{
	models.PriorityHigh:   1,
	models.PriorityMedium: 2,
	models.PriorityLow:    3,
}

var priorityAliases = map[string]string{
	"high":   models.PriorityHigh,
	"alta":   models.PriorityHigh,
	"medium": models.PriorityMedium,
	"media":  models.PriorityMedium,
	"low":    models.PriorityLow,
	"baja":   models.PriorityLow,
}

// NormalizePriority resolves a label to its canonical form and rank. Unknown or empty
// labels fall back to medium.
func NormalizePriority(label string) (string, int) {
	canonical, ok := priorityAliases[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		canonical = models.PriorityMedium
	}
	return canonical, priorityRanks[canonical]
}

func PriorityRank(label string) int {
	_, rank := NormalizePriority(label)
	return rank
}

// EscalationThreshold is the lowest severity that opens a call automatically.
const EscalationThreshold = 7

// PriorityForSeverity returns "" when the severity does not warrant a call.
// Only 10 and 9 map above low.
func PriorityForSeverity(severity int) string {
	switch {
	case severity < EscalationThreshold:
		return ""
	case severity >= 10:
		return models.PriorityHigh
	case severity == 9:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// DayBounds returns [start of day, start of next day) for t in loc.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
