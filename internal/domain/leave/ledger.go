package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"leavedesk/internal/domain/auth"
)

// Ledger operations. Every mutation here keeps the balance invariant
// remainingDays == totalDays + carryForward - usedDays; reserve and
// release run inside the request transactions in store_data.go.

func (s *Service) CheckSufficient(ctx context.Context, employeeID, policyID string, days int) (bool, error) {
	balance, err := s.Store.GetBalance(ctx, employeeID, policyID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return balance.RemainingDays >= days, nil
}

func (s *Service) Balances(ctx context.Context, employeeID string) ([]LeaveBalance, error) {
	return s.Store.ListBalances(ctx, employeeID)
}

// InitializeForEmployee creates one balance row per active policy for
// a newly joined employee. Idempotent: existing rows are untouched.
func (s *Service) InitializeForEmployee(ctx context.Context, employeeID, orgID string) (int, error) {
	created, err := s.Store.InitBalancesForEmployee(ctx, employeeID, orgID)
	if err != nil {
		return 0, err
	}
	if created > 0 {
		slog.Info("leave balances initialized for employee", "employeeId", employeeID, "created", created)
	}
	return created, nil
}

func (s *Service) CreatePolicy(ctx context.Context, actor Actor, policy LeavePolicy) (LeavePolicy, error) {
	if !auth.PrivilegedRole(actor.Role) {
		return LeavePolicy{}, fmt.Errorf("%w: hr or admin role required", ErrForbidden)
	}
	policy.Name = strings.TrimSpace(policy.Name)
	if policy.Name == "" {
		return LeavePolicy{}, fmt.Errorf("%w: policy name is required", ErrValidation)
	}
	if policy.MaxDays <= 0 {
		return LeavePolicy{}, fmt.Errorf("%w: maxDays must be positive", ErrValidation)
	}
	if policy.CarryForward < 0 || policy.MinNoticeDays < 0 {
		return LeavePolicy{}, fmt.Errorf("%w: carryForward and minNoticeDays must not be negative", ErrValidation)
	}

	policy.OrganizationID = actor.OrganizationID
	id, err := s.Store.InsertPolicy(ctx, policy)
	if err != nil {
		return LeavePolicy{}, err
	}
	policy.ID = id
	policy.Active = true

	created, err := s.Store.InitBalancesForPolicy(ctx, policy.OrganizationID, policy.ID, policy.MaxDays, policy.CarryForward)
	if err != nil {
		return LeavePolicy{}, err
	}
	slog.Info("leave policy created", "policyId", id, "name", policy.Name, "balancesCreated", created)
	return policy, nil
}

func (s *Service) UpdatePolicy(ctx context.Context, actor Actor, policy LeavePolicy) (LeavePolicy, error) {
	if !auth.PrivilegedRole(actor.Role) {
		return LeavePolicy{}, fmt.Errorf("%w: hr or admin role required", ErrForbidden)
	}
	if policy.MaxDays <= 0 {
		return LeavePolicy{}, fmt.Errorf("%w: maxDays must be positive", ErrValidation)
	}

	policy.OrganizationID = actor.OrganizationID
	current, err := s.Store.GetPolicy(ctx, policy.OrganizationID, policy.ID)
	if err != nil {
		return LeavePolicy{}, err
	}
	if strings.TrimSpace(policy.Name) == "" {
		policy.Name = current.Name
	}

	if err := s.Store.UpdatePolicy(ctx, policy); err != nil {
		return LeavePolicy{}, err
	}

	if delta := policy.MaxDays - current.MaxDays; delta != 0 {
		adjusted, err := s.Store.AdjustBalancesForPolicy(ctx, policy.ID, policy.MaxDays, delta)
		if err != nil {
			return LeavePolicy{}, err
		}
		slog.Info("leave balances adjusted for policy change",
			"policyId", policy.ID, "delta", delta, "rows", adjusted)
	}

	policy.Active = current.Active
	return policy, nil
}

func (s *Service) DeactivatePolicy(ctx context.Context, actor Actor, policyID string) error {
	if !auth.PrivilegedRole(actor.Role) {
		return fmt.Errorf("%w: hr or admin role required", ErrForbidden)
	}
	return s.Store.DeactivatePolicy(ctx, actor.OrganizationID, policyID)
}

func (s *Service) ListPolicies(ctx context.Context, orgID string) ([]LeavePolicy, error) {
	return s.Store.ListPolicies(ctx, orgID)
}

// ResetAnnual rolls every balance row in the organization into the new
// period: carry-forward capped by policy, counters reset to the
// policy entitlement.
func (s *Service) ResetAnnual(ctx context.Context, actor Actor) (int, error) {
	if !auth.PrivilegedRole(actor.Role) {
		return 0, fmt.Errorf("%w: hr or admin role required", ErrForbidden)
	}
	reset, err := s.Store.ResetAnnual(ctx, actor.OrganizationID, s.Now())
	if err != nil {
		return 0, err
	}
	slog.Info("annual leave reset", "organizationId", actor.OrganizationID, "rows", reset)
	return reset, nil
}

// Recalculate is the self-healing pass: it recomputes remainingDays
// from the other counters for every drifted row and returns the rows
// it corrected.
func (s *Service) Recalculate(ctx context.Context, employeeID string) ([]LeaveBalance, error) {
	corrected, err := s.Store.RecalculateBalances(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if len(corrected) > 0 {
		slog.Warn("leave balances drifted and were recalculated", "employeeId", employeeID, "rows", len(corrected))
	}
	return corrected, nil
}

func (s *Service) BalanceReport(ctx context.Context, orgID string) ([]BalanceReportRow, error) {
	return s.Store.OrgBalanceReport(ctx, orgID)
}

func (s *Service) UsageReport(ctx context.Context, orgID string) ([]UsageRow, error) {
	return s.Store.UsageByPolicy(ctx, orgID)
}
