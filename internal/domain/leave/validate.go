package leave

import (
	"fmt"
	"strings"
	"time"
)

// NoticeDays returns the whole days of notice given before start.
// Both values are reduced to their own calendar date at UTC midnight,
// so the host time zone never shifts the count and a same-day request
// gives zero days of notice.
func NoticeDays(start, now time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(s.Sub(today).Hours() / 24)
}

// CheckNotice enforces the policy's minimum notice period. Policies
// with a zero notice requirement always pass.
func CheckNotice(policy LeavePolicy, start, now time.Time) error {
	if policy.MinNoticeDays <= 0 {
		return nil
	}
	given := NoticeDays(start, now)
	if given < policy.MinNoticeDays {
		return fmt.Errorf("%w: %d day(s) notice given, policy %q requires %d",
			ErrNoticeViolation, given, policy.Name, policy.MinNoticeDays)
	}
	return nil
}

// Overlaps reports whether the two inclusive date ranges share at
// least one calendar day. A single shared boundary day counts.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !DateOnly(aStart).After(DateOnly(bEnd)) && !DateOnly(aEnd).Before(DateOnly(bStart))
}

// FindOverlap returns the first PENDING or APPROVED request whose
// range intersects [start, end], skipping excludeID so a request can
// be re-validated against its siblings at approval time.
func FindOverlap(start, end time.Time, existing []LeaveRequest, excludeID string) *LeaveRequest {
	for i := range existing {
		candidate := &existing[i]
		if candidate.ID == excludeID {
			continue
		}
		if candidate.Status != StatusPending && candidate.Status != StatusApproved {
			continue
		}
		if Overlaps(candidate.StartDate, candidate.EndDate, start, end) {
			return candidate
		}
	}
	return nil
}

// CheckOverlap wraps FindOverlap into an error naming the conflicting
// request's status, type and date range.
func CheckOverlap(start, end time.Time, existing []LeaveRequest, excludeID string) error {
	conflict := FindOverlap(start, end, existing, excludeID)
	if conflict == nil {
		return nil
	}
	return fmt.Errorf("%w: %s %s request from %s to %s",
		ErrOverlapConflict,
		strings.ToLower(conflict.Status),
		conflict.Type,
		conflict.StartDate.Format(dateLayout),
		conflict.EndDate.Format(dateLayout))
}
