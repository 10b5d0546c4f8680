package leave

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Integration coverage for the transactional paths the fake store can
// only approximate. Runs against a disposable database.
func newIntegrationStore(t *testing.T) (*Store, *pgxpool.Pool) {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return NewStore(pool), pool
}

func seedIntegrationOrg(t *testing.T, pool *pgxpool.Pool) (orgID, employeeID, policyID string) {
	t.Helper()
	ctx := context.Background()

	name := fmt.Sprintf("it-org-%d", time.Now().UnixNano())
	if err := pool.QueryRow(ctx, "INSERT INTO organizations (name) VALUES ($1) RETURNING id", name).Scan(&orgID); err != nil {
		t.Fatalf("insert organization: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, "DELETE FROM organizations WHERE id = $1", orgID)
	})

	if err := pool.QueryRow(ctx, `
    INSERT INTO employees (organization_id, first_name, last_name, email, status)
    VALUES ($1, 'Test', 'Employee', $2, 'active')
    RETURNING id
  `, orgID, name+"@example.com").Scan(&employeeID); err != nil {
		t.Fatalf("insert employee: %v", err)
	}

	if err := pool.QueryRow(ctx, `
    INSERT INTO leave_policies (organization_id, name, max_days, carry_forward, min_notice_days, active)
    VALUES ($1, 'Annual', 12, 0, 0, true)
    RETURNING id
  `, orgID).Scan(&policyID); err != nil {
		t.Fatalf("insert policy: %v", err)
	}
	return orgID, employeeID, policyID
}

func TestIntegrationApproveReservesAtomically(t *testing.T) {
	store, pool := newIntegrationStore(t)
	orgID, employeeID, policyID := seedIntegrationOrg(t, pool)
	ctx := context.Background()

	created, err := store.InitBalancesForPolicy(ctx, orgID, policyID, 12, 0)
	if err != nil {
		t.Fatalf("InitBalancesForPolicy: %v", err)
	}
	if created != 1 {
		t.Fatalf("balances created = %d, want 1", created)
	}

	// Re-running the fan-out touches nothing.
	created, err = store.InitBalancesForPolicy(ctx, orgID, policyID, 12, 0)
	if err != nil {
		t.Fatalf("second InitBalancesForPolicy: %v", err)
	}
	if created != 0 {
		t.Fatalf("balances created on rerun = %d, want 0", created)
	}

	req := LeaveRequest{
		EmployeeID:     employeeID,
		OrganizationID: orgID,
		LeavePolicyID:  policyID,
		Type:           "Annual",
		StartDate:      time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, time.March, 6, 0, 0, 0, 0, time.UTC),
		Days:           2,
		Status:         StatusPending,
	}
	req.ID, err = store.InsertRequest(ctx, req)
	if err != nil {
		t.Fatalf("InsertRequest: %v", err)
	}

	if err := store.ApproveRequestTx(ctx, req, ""); err != nil {
		t.Fatalf("ApproveRequestTx: %v", err)
	}

	balance, err := store.GetBalance(ctx, employeeID, policyID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance.UsedDays != 2 || balance.RemainingDays != 10 {
		t.Fatalf("balance = used %d remaining %d, want 2/10", balance.UsedDays, balance.RemainingDays)
	}

	// A second approval of the same request must not double-reserve.
	if err := store.ApproveRequestTx(ctx, req, ""); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second approve err = %v, want ErrInvalidState", err)
	}

	// Deleting the approved request releases the days.
	stored, err := store.GetRequest(ctx, orgID, req.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if err := store.DeleteRequestTx(ctx, stored); err != nil {
		t.Fatalf("DeleteRequestTx: %v", err)
	}
	balance, err = store.GetBalance(ctx, employeeID, policyID)
	if err != nil {
		t.Fatalf("GetBalance after delete: %v", err)
	}
	if balance.UsedDays != 0 || balance.RemainingDays != 12 {
		t.Fatalf("balance after delete = used %d remaining %d, want 0/12", balance.UsedDays, balance.RemainingDays)
	}
}

func TestIntegrationRecalculateRepairsDrift(t *testing.T) {
	store, pool := newIntegrationStore(t)
	orgID, employeeID, policyID := seedIntegrationOrg(t, pool)
	ctx := context.Background()

	if _, err := store.InitBalancesForPolicy(ctx, orgID, policyID, 12, 0); err != nil {
		t.Fatalf("InitBalancesForPolicy: %v", err)
	}

	if _, err := pool.Exec(ctx, `
    UPDATE leave_balances SET remaining_days = 3
    WHERE employee_id = $1 AND leave_policy_id = $2
  `, employeeID, policyID); err != nil {
		t.Fatalf("introduce drift: %v", err)
	}

	corrected, err := store.RecalculateBalances(ctx, employeeID)
	if err != nil {
		t.Fatalf("RecalculateBalances: %v", err)
	}
	if len(corrected) != 1 || corrected[0].RemainingDays != 12 {
		t.Fatalf("corrected = %+v, want one row with remaining 12", corrected)
	}
}
