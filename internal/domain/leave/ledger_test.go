package leave

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCreatePolicyFansOutBalances(t *testing.T) {
	svc, store, _ := fixture(t)

	policy, err := svc.CreatePolicy(context.Background(), hrActor(), LeavePolicy{
		Name:          "Sick",
		MaxDays:       8,
		CarryForward:  2,
		MinNoticeDays: 0,
	})
	if err != nil {
		t.Fatalf("CreatePolicy: %v", err)
	}
	if !policy.Active {
		t.Fatalf("new policy should be active")
	}

	// Every employee in the organization gets a row.
	for _, employeeID := range []string{testEmployee, testManager, testHR} {
		balance, err := store.GetBalance(context.Background(), employeeID, policy.ID)
		if err != nil {
			t.Fatalf("GetBalance %s: %v", employeeID, err)
		}
		if balance.TotalDays != 8 || balance.RemainingDays != 10 || balance.CarryForward != 2 {
			t.Fatalf("balance %s = %+v, want total 8 remaining 10 carry 2", employeeID, balance)
		}
	}
	store.checkInvariant(t)
}

func TestCreatePolicyRequiresPrivilege(t *testing.T) {
	svc, _, _ := fixture(t)

	_, err := svc.CreatePolicy(context.Background(), employeeActor(), LeavePolicy{Name: "Sick", MaxDays: 8})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestCreatePolicyValidation(t *testing.T) {
	svc, _, _ := fixture(t)

	cases := []LeavePolicy{
		{Name: "", MaxDays: 8},
		{Name: "Sick", MaxDays: 0},
		{Name: "Sick", MaxDays: 8, CarryForward: -1},
		{Name: "Sick", MaxDays: 8, MinNoticeDays: -1},
	}
	for _, policy := range cases {
		if _, err := svc.CreatePolicy(context.Background(), hrActor(), policy); !errors.Is(err, ErrValidation) {
			t.Fatalf("policy %+v: err = %v, want ErrValidation", policy, err)
		}
	}
}

func TestUpdatePolicyAdjustsBalances(t *testing.T) {
	svc, store, _ := fixture(t)

	policy := store.policies["pol-annual"]
	policy.MaxDays = 15
	updated, err := svc.UpdatePolicy(context.Background(), hrActor(), policy)
	if err != nil {
		t.Fatalf("UpdatePolicy: %v", err)
	}
	if updated.MaxDays != 15 {
		t.Fatalf("maxDays = %d, want 15", updated.MaxDays)
	}

	balance, _ := store.GetBalance(context.Background(), testEmployee, "pol-annual")
	if balance.TotalDays != 15 || balance.RemainingDays != 15 {
		t.Fatalf("balance = %+v, want total 15 remaining 15", balance)
	}
}

func TestUpdatePolicyClampsAtZero(t *testing.T) {
	svc, store, _ := fixture(t)

	// 10 of 12 days already used; shrinking the entitlement to 3 would
	// push remaining negative without the clamp.
	row := store.balances[balanceKey(testEmployee, "pol-annual")]
	row.UsedDays = 10
	row.RemainingDays = 2

	policy := store.policies["pol-annual"]
	policy.MaxDays = 3
	if _, err := svc.UpdatePolicy(context.Background(), hrActor(), policy); err != nil {
		t.Fatalf("UpdatePolicy: %v", err)
	}

	balance, _ := store.GetBalance(context.Background(), testEmployee, "pol-annual")
	if balance.RemainingDays != 0 {
		t.Fatalf("remaining = %d, want 0 (clamped)", balance.RemainingDays)
	}
	if balance.TotalDays != 3 {
		t.Fatalf("total = %d, want 3", balance.TotalDays)
	}
}

func TestInitializeForEmployeeIdempotent(t *testing.T) {
	svc, store, _ := fixture(t)
	store.addEmployee(testOrg, "emp-new", testManager)

	created, err := svc.InitializeForEmployee(context.Background(), "emp-new", testOrg)
	if err != nil {
		t.Fatalf("InitializeForEmployee: %v", err)
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}

	// A second run is a no-op.
	created, err = svc.InitializeForEmployee(context.Background(), "emp-new", testOrg)
	if err != nil {
		t.Fatalf("second InitializeForEmployee: %v", err)
	}
	if created != 0 {
		t.Fatalf("created on rerun = %d, want 0", created)
	}
}

func TestResetAnnualCapsCarryForward(t *testing.T) {
	svc, store, _ := fixture(t)

	policy := store.policies["pol-annual"]
	policy.CarryForward = 5
	store.policies["pol-annual"] = policy

	// 8 days left at year end, cap is 5.
	row := store.balances[balanceKey(testEmployee, "pol-annual")]
	row.UsedDays = 4
	row.RemainingDays = 8

	reset, err := svc.ResetAnnual(context.Background(), hrActor())
	if err != nil {
		t.Fatalf("ResetAnnual: %v", err)
	}
	if reset != 1 {
		t.Fatalf("reset rows = %d, want 1", reset)
	}

	balance, _ := store.GetBalance(context.Background(), testEmployee, "pol-annual")
	if balance.CarryForward != 5 {
		t.Fatalf("carryForward = %d, want 5 (capped)", balance.CarryForward)
	}
	if balance.UsedDays != 0 || balance.TotalDays != 12 || balance.RemainingDays != 17 {
		t.Fatalf("balance after reset = %+v, want total 12 used 0 remaining 17", balance)
	}
	if balance.LastReset.IsZero() {
		t.Fatalf("lastReset not stamped")
	}
	store.checkInvariant(t)
}

func TestResetAnnualCarryBelowCap(t *testing.T) {
	svc, store, _ := fixture(t)

	policy := store.policies["pol-annual"]
	policy.CarryForward = 5
	store.policies["pol-annual"] = policy

	row := store.balances[balanceKey(testEmployee, "pol-annual")]
	row.UsedDays = 9
	row.RemainingDays = 3

	if _, err := svc.ResetAnnual(context.Background(), hrActor()); err != nil {
		t.Fatalf("ResetAnnual: %v", err)
	}

	balance, _ := store.GetBalance(context.Background(), testEmployee, "pol-annual")
	if balance.CarryForward != 3 || balance.RemainingDays != 15 {
		t.Fatalf("balance = %+v, want carry 3 remaining 15", balance)
	}
}

func TestResetAnnualRequiresPrivilege(t *testing.T) {
	svc, _, _ := fixture(t)

	if _, err := svc.ResetAnnual(context.Background(), managerActor()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestRecalculateFixesDrift(t *testing.T) {
	svc, store, _ := fixture(t)

	row := store.balances[balanceKey(testEmployee, "pol-annual")]
	row.UsedDays = 3
	row.RemainingDays = 7 // should be 9

	corrected, err := svc.Recalculate(context.Background(), testEmployee)
	if err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	if len(corrected) != 1 {
		t.Fatalf("corrected rows = %d, want 1", len(corrected))
	}
	if corrected[0].RemainingDays != 9 {
		t.Fatalf("corrected remaining = %d, want 9", corrected[0].RemainingDays)
	}
	store.checkInvariant(t)

	// Consistent rows stay untouched.
	corrected, err = svc.Recalculate(context.Background(), testEmployee)
	if err != nil {
		t.Fatalf("second Recalculate: %v", err)
	}
	if len(corrected) != 0 {
		t.Fatalf("corrected on rerun = %d, want 0", len(corrected))
	}
}

func TestCheckSufficient(t *testing.T) {
	svc, store, _ := fixture(t)

	ok, err := svc.CheckSufficient(context.Background(), testEmployee, "pol-annual", 12)
	if err != nil || !ok {
		t.Fatalf("CheckSufficient(12) = %v, %v, want true", ok, err)
	}
	ok, err = svc.CheckSufficient(context.Background(), testEmployee, "pol-annual", 13)
	if err != nil || ok {
		t.Fatalf("CheckSufficient(13) = %v, %v, want false", ok, err)
	}

	// No balance row reads as insufficient, not as an error.
	delete(store.balances, balanceKey(testEmployee, "pol-annual"))
	ok, err = svc.CheckSufficient(context.Background(), testEmployee, "pol-annual", 1)
	if err != nil || ok {
		t.Fatalf("CheckSufficient without row = %v, %v, want false, nil", ok, err)
	}
}

func TestDeactivatePolicyBlocksNewRequests(t *testing.T) {
	svc, _, _ := fixture(t)

	if err := svc.DeactivatePolicy(context.Background(), hrActor(), "pol-annual"); err != nil {
		t.Fatalf("DeactivatePolicy: %v", err)
	}
	_, err := svc.CreateRequest(context.Background(), employeeActor(), annualRequest())
	if !errors.Is(err, ErrPolicyNotFound) {
		t.Fatalf("err = %v, want ErrPolicyNotFound", err)
	}
}

func TestBalanceAndUsageReports(t *testing.T) {
	svc, _, _ := fixture(t)

	req, err := svc.CreateRequest(context.Background(), employeeActor(), annualRequest())
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if _, err := svc.DecideRequest(context.Background(), managerActor(), req.ID, true); err != nil {
		t.Fatalf("approve: %v", err)
	}

	rows, err := svc.BalanceReport(context.Background(), testOrg)
	if err != nil {
		t.Fatalf("BalanceReport: %v", err)
	}
	found := false
	for _, row := range rows {
		if row.EmployeeID == testEmployee && row.PolicyName == "Annual" {
			found = true
			if row.UsedDays != 2 || row.RemainingDays != 10 {
				t.Fatalf("report row = %+v, want used 2 remaining 10", row)
			}
		}
	}
	if !found {
		t.Fatalf("balance report missing row for %s", testEmployee)
	}

	usage, err := svc.UsageReport(context.Background(), testOrg)
	if err != nil {
		t.Fatalf("UsageReport: %v", err)
	}
	if len(usage) != 1 || usage[0].TotalDays != 2 {
		t.Fatalf("usage = %+v, want one row with 2 days", usage)
	}
}

func TestResetAnnualStampsProvidedClock(t *testing.T) {
	svc, store, _ := fixture(t)
	want := time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return want }

	if _, err := svc.ResetAnnual(context.Background(), hrActor()); err != nil {
		t.Fatalf("ResetAnnual: %v", err)
	}
	balance, _ := store.GetBalance(context.Background(), testEmployee, "pol-annual")
	if !balance.LastReset.Equal(want) {
		t.Fatalf("lastReset = %v, want %v", balance.LastReset, want)
	}
}
