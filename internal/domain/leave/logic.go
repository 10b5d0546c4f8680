package leave

import "time"

const dateLayout = "2006-01-02"

// DateOnly truncates a timestamp to its calendar date.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDate compares two timestamps by calendar date, ignoring
// time-of-day and stored offsets.
func SameDate(a, b time.Time) bool {
	return a.Format(dateLayout) == b.Format(dateLayout)
}

// BusinessDays returns the inclusive count of business days between
// start and end: every calendar day in the range that is neither a
// Saturday/Sunday nor one of the supplied holiday dates. An inverted
// range counts as zero.
func BusinessDays(start, end time.Time, holidays []time.Time) int {
	start = DateOnly(start)
	end = DateOnly(end)
	if end.Before(start) {
		return 0
	}

	skip := make(map[string]struct{}, len(holidays))
	for _, holiday := range holidays {
		skip[holiday.Format(dateLayout)] = struct{}{}
	}

	days := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if weekday := d.Weekday(); weekday == time.Saturday || weekday == time.Sunday {
			continue
		}
		if _, ok := skip[d.Format(dateLayout)]; ok {
			continue
		}
		days++
	}
	return days
}
