package Execution

import (
	"time"

	"Warden/Models"
)

// NextDueDate computes the next occurrence of a recurring maintenance from
// its last completion date. An unknown frequency returns nil: the schedule
// row is a one-off and no further occurrence is planned. The caller validates
// interval > 0 before invoking; the calculator is total over its documented
// domain and does not guard.
//
// Month and year arithmetic clamps to the last valid day of the target month,
// so Jan 31 + 1 month is Feb 28 (or 29), never Mar 2/3.
func NextDueDate(last time.Time, frequency Models.Frequency, interval int) *time.Time {
	var next time.Time
	switch frequency {
	case Models.FrequencyDaily:
		next = last.AddDate(0, 0, interval)
	case Models.FrequencyWeekly:
		next = last.AddDate(0, 0, 7*interval)
	case Models.FrequencyMonthly:
		next = addMonthsClamped(last, interval)
	case Models.FrequencyQuarterly:
		next = addMonthsClamped(last, 3*interval)
	case Models.FrequencyYearly:
		next = addMonthsClamped(last, 12*interval)
	default:
		return nil
	}
	return &next
}

// addMonthsClamped shifts t by months, clamping the day to the length of the
// target month instead of letting the date normalize forward.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	// First of the target month, then clamp the day.
	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
