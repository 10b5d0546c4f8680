package leave

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBusinessDaysFullWeek(t *testing.T) {
	// Monday 2026-03-02 through Sunday 2026-03-08.
	days := BusinessDays(date(2026, time.March, 2), date(2026, time.March, 8), nil)
	if days != 5 {
		t.Fatalf("expected 5 business days, got %d", days)
	}
}

func TestBusinessDaysSingleDay(t *testing.T) {
	if days := BusinessDays(date(2026, time.March, 4), date(2026, time.March, 4), nil); days != 1 {
		t.Fatalf("expected 1 business day, got %d", days)
	}
	// Saturday
	if days := BusinessDays(date(2026, time.March, 7), date(2026, time.March, 7), nil); days != 0 {
		t.Fatalf("expected 0 business days on a Saturday, got %d", days)
	}
}

func TestBusinessDaysExcludesHolidays(t *testing.T) {
	holidays := []time.Time{
		date(2026, time.March, 4),
		// Saturday holiday must not double-count the exclusion.
		date(2026, time.March, 7),
	}
	days := BusinessDays(date(2026, time.March, 2), date(2026, time.March, 8), holidays)
	if days != 4 {
		t.Fatalf("expected 4 business days, got %d", days)
	}
}

func TestBusinessDaysHolidayTimeOfDayIgnored(t *testing.T) {
	holiday := time.Date(2026, time.March, 4, 15, 30, 0, 0, time.UTC)
	days := BusinessDays(date(2026, time.March, 4), date(2026, time.March, 4), []time.Time{holiday})
	if days != 0 {
		t.Fatalf("expected holiday to match by calendar date, got %d days", days)
	}
}

func TestBusinessDaysInvertedRange(t *testing.T) {
	if days := BusinessDays(date(2026, time.March, 8), date(2026, time.March, 2), nil); days != 0 {
		t.Fatalf("expected 0 for inverted range, got %d", days)
	}
}

func TestBusinessDaysMatchesManualCount(t *testing.T) {
	start := date(2026, time.January, 1)
	end := date(2026, time.January, 31)
	holidays := []time.Time{date(2026, time.January, 1), date(2026, time.January, 19)}

	manual := 0
	skip := map[string]bool{}
	for _, h := range holidays {
		skip[h.Format("2006-01-02")] = true
	}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		if skip[d.Format("2006-01-02")] {
			continue
		}
		manual++
	}

	if days := BusinessDays(start, end, holidays); days != manual {
		t.Fatalf("expected %d business days, got %d", manual, days)
	}
}
