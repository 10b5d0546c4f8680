package leave

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCreateHolidayRequiresPrivilege(t *testing.T) {
	svc, _, _ := fixture(t)

	_, err := svc.CreateHoliday(context.Background(), employeeActor(), Holiday{
		Date: date(2026, time.December, 25),
		Name: "Christmas Day",
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestCreateHolidayValidation(t *testing.T) {
	svc, _, _ := fixture(t)

	if _, err := svc.CreateHoliday(context.Background(), hrActor(), Holiday{Name: "No Date"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("missing date err = %v, want ErrValidation", err)
	}
	if _, err := svc.CreateHoliday(context.Background(), hrActor(), Holiday{Date: date(2026, time.May, 1)}); !errors.Is(err, ErrValidation) {
		t.Fatalf("missing name err = %v, want ErrValidation", err)
	}
}

func TestHolidayReducesRequestDays(t *testing.T) {
	svc, _, _ := fixture(t)

	if _, err := svc.CreateHoliday(context.Background(), hrActor(), Holiday{
		Date: date(2026, time.March, 5),
		Name: "Company Day",
	}); err != nil {
		t.Fatalf("CreateHoliday: %v", err)
	}

	req, err := svc.CreateRequest(context.Background(), employeeActor(), annualRequest())
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if req.Days != 1 {
		t.Fatalf("days = %d, want 1 (holiday excluded)", req.Days)
	}
}

func TestCountBusinessDays(t *testing.T) {
	svc, _, _ := fixture(t)

	if _, err := svc.CreateHoliday(context.Background(), hrActor(), Holiday{
		Date: date(2026, time.March, 4),
		Name: "Company Day",
	}); err != nil {
		t.Fatalf("CreateHoliday: %v", err)
	}

	// Mon 2 Mar .. Fri 6 Mar with one midweek holiday.
	days, err := svc.CountBusinessDays(context.Background(), testOrg, date(2026, time.March, 2), date(2026, time.March, 6))
	if err != nil {
		t.Fatalf("CountBusinessDays: %v", err)
	}
	if days != 4 {
		t.Fatalf("days = %d, want 4", days)
	}

	if _, err := svc.CountBusinessDays(context.Background(), testOrg, date(2026, time.March, 6), date(2026, time.March, 2)); !errors.Is(err, ErrValidation) {
		t.Fatalf("inverted range err = %v, want ErrValidation", err)
	}
}

func TestDeleteHoliday(t *testing.T) {
	svc, _, _ := fixture(t)

	created, err := svc.CreateHoliday(context.Background(), hrActor(), Holiday{
		Date: date(2026, time.June, 5),
		Name: "Founders Day",
	})
	if err != nil {
		t.Fatalf("CreateHoliday: %v", err)
	}

	if err := svc.DeleteHoliday(context.Background(), employeeActor(), created.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("employee delete err = %v, want ErrForbidden", err)
	}
	if err := svc.DeleteHoliday(context.Background(), hrActor(), created.ID); err != nil {
		t.Fatalf("DeleteHoliday: %v", err)
	}

	remaining, err := svc.ListHolidays(context.Background(), testOrg)
	if err != nil {
		t.Fatalf("ListHolidays: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("holidays after delete = %d, want 0", len(remaining))
	}
}
