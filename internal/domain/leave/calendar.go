package leave

import (
	"context"
	"fmt"
	"strings"
	"time"

	"leavedesk/internal/domain/auth"
)

// Organization calendar management: the holiday table consulted by
// BusinessDays when requests are priced.

func (s *Service) ListHolidays(ctx context.Context, orgID string) ([]Holiday, error) {
	return s.Store.ListHolidayRecords(ctx, orgID)
}

func (s *Service) CreateHoliday(ctx context.Context, actor Actor, holiday Holiday) (Holiday, error) {
	if !auth.PrivilegedRole(actor.Role) {
		return Holiday{}, fmt.Errorf("%w: hr or admin role required", ErrForbidden)
	}
	holiday.Name = strings.TrimSpace(holiday.Name)
	if holiday.Name == "" {
		return Holiday{}, fmt.Errorf("%w: holiday name is required", ErrValidation)
	}
	if holiday.Date.IsZero() {
		return Holiday{}, fmt.Errorf("%w: holiday date is required", ErrValidation)
	}

	holiday.OrganizationID = actor.OrganizationID
	holiday.Date = DateOnly(holiday.Date)
	id, err := s.Store.InsertHoliday(ctx, holiday)
	if err != nil {
		return Holiday{}, err
	}
	holiday.ID = id
	return holiday, nil
}

func (s *Service) DeleteHoliday(ctx context.Context, actor Actor, holidayID string) error {
	if !auth.PrivilegedRole(actor.Role) {
		return fmt.Errorf("%w: hr or admin role required", ErrForbidden)
	}
	return s.Store.DeleteHoliday(ctx, actor.OrganizationID, holidayID)
}

// CountBusinessDays prices a date range without creating a request:
// inclusive weekdays minus the organization's holidays.
func (s *Service) CountBusinessDays(ctx context.Context, orgID string, start, end time.Time) (int, error) {
	if start.IsZero() || end.IsZero() {
		return 0, fmt.Errorf("%w: start and end dates are required", ErrValidation)
	}
	if DateOnly(end).Before(DateOnly(start)) {
		return 0, fmt.Errorf("%w: end date is before start date", ErrValidation)
	}
	holidays, err := s.Store.ListHolidays(ctx, orgID, start, end)
	if err != nil {
		return 0, err
	}
	return BusinessDays(start, end, holidays), nil
}
