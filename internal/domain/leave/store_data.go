package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

const requestColumns = `
    id, organization_id, employee_id, leave_policy_id, COALESCE(approver_id::text, ''),
    type, reason, start_date, end_date, days, status, created_at, updated_at`

const policyColumns = `
    id, organization_id, name, max_days, carry_forward, min_notice_days, active, created_at, updated_at`

const balanceColumns = `
    id, employee_id, leave_policy_id, total_days, used_days, remaining_days, carry_forward, last_reset, updated_at`

func scanRequest(row pgx.Row, req *LeaveRequest) error {
	return row.Scan(&req.ID, &req.OrganizationID, &req.EmployeeID, &req.LeavePolicyID, &req.ApproverID,
		&req.Type, &req.Reason, &req.StartDate, &req.EndDate, &req.Days, &req.Status, &req.CreatedAt, &req.UpdatedAt)
}

func scanPolicy(row pgx.Row, p *LeavePolicy) error {
	return row.Scan(&p.ID, &p.OrganizationID, &p.Name, &p.MaxDays, &p.CarryForward, &p.MinNoticeDays,
		&p.Active, &p.CreatedAt, &p.UpdatedAt)
}

func scanBalance(row pgx.Row, b *LeaveBalance) error {
	return row.Scan(&b.ID, &b.EmployeeID, &b.LeavePolicyID, &b.TotalDays, &b.UsedDays, &b.RemainingDays,
		&b.CarryForward, &b.LastReset, &b.UpdatedAt)
}

func (s *Store) FindActivePolicy(ctx context.Context, orgID, name string) (LeavePolicy, error) {
	var p LeavePolicy
	err := scanPolicy(s.DB.QueryRow(ctx, `
    SELECT`+policyColumns+`
    FROM leave_policies
    WHERE organization_id = $1 AND name = $2 AND active
  `, orgID, name), &p)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeavePolicy{}, fmt.Errorf("%w: no active policy named %q", ErrPolicyNotFound, name)
	}
	return p, err
}

func (s *Store) GetPolicy(ctx context.Context, orgID, policyID string) (LeavePolicy, error) {
	var p LeavePolicy
	err := scanPolicy(s.DB.QueryRow(ctx, `
    SELECT`+policyColumns+`
    FROM leave_policies
    WHERE organization_id = $1 AND id = $2
  `, orgID, policyID), &p)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeavePolicy{}, ErrPolicyNotFound
	}
	return p, err
}

func (s *Store) ListPolicies(ctx context.Context, orgID string) ([]LeavePolicy, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT`+policyColumns+`
    FROM leave_policies
    WHERE organization_id = $1
    ORDER BY name
  `, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []LeavePolicy
	for rows.Next() {
		var p LeavePolicy
		if err := scanPolicy(rows, &p); err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

func (s *Store) InsertPolicy(ctx context.Context, policy LeavePolicy) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO leave_policies (organization_id, name, max_days, carry_forward, min_notice_days, active)
    VALUES ($1,$2,$3,$4,$5,true)
    RETURNING id
  `, policy.OrganizationID, policy.Name, policy.MaxDays, policy.CarryForward, policy.MinNoticeDays).Scan(&id)
	return id, err
}

func (s *Store) UpdatePolicy(ctx context.Context, policy LeavePolicy) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_policies
    SET name = $3, max_days = $4, carry_forward = $5, min_notice_days = $6, updated_at = now()
    WHERE organization_id = $1 AND id = $2
  `, policy.OrganizationID, policy.ID, policy.Name, policy.MaxDays, policy.CarryForward, policy.MinNoticeDays)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPolicyNotFound
	}
	return nil
}

func (s *Store) DeactivatePolicy(ctx context.Context, orgID, policyID string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_policies SET active = false, updated_at = now()
    WHERE organization_id = $1 AND id = $2
  `, orgID, policyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPolicyNotFound
	}
	return nil
}

func (s *Store) ListHolidays(ctx context.Context, orgID string, from, to time.Time) ([]time.Time, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT date
    FROM holidays
    WHERE organization_id = $1 AND date >= $2 AND date <= $3
    ORDER BY date
  `, orgID, DateOnly(from), DateOnly(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (s *Store) ListHolidayRecords(ctx context.Context, orgID string) ([]Holiday, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, organization_id, date, name, created_at
    FROM holidays
    WHERE organization_id = $1
    ORDER BY date
  `, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Holiday
	for rows.Next() {
		var h Holiday
		if err := rows.Scan(&h.ID, &h.OrganizationID, &h.Date, &h.Name, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) InsertHoliday(ctx context.Context, holiday Holiday) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO holidays (organization_id, date, name)
    VALUES ($1, $2, $3)
    ON CONFLICT (organization_id, date) DO UPDATE SET name = EXCLUDED.name
    RETURNING id
  `, holiday.OrganizationID, DateOnly(holiday.Date), holiday.Name).Scan(&id)
	return id, err
}

func (s *Store) DeleteHoliday(ctx context.Context, orgID, holidayID string) error {
	tag, err := s.DB.Exec(ctx, `
    DELETE FROM holidays WHERE organization_id = $1 AND id = $2
  `, orgID, holidayID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetRequest(ctx context.Context, orgID, requestID string) (LeaveRequest, error) {
	var req LeaveRequest
	err := scanRequest(s.DB.QueryRow(ctx, `
    SELECT`+requestColumns+`
    FROM leave_requests
    WHERE organization_id = $1 AND id = $2
  `, orgID, requestID), &req)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveRequest{}, ErrNotFound
	}
	return req, err
}

func (s *Store) ListRequests(ctx context.Context, q RequestQuery) ([]LeaveRequest, int, error) {
	where := " WHERE organization_id = $1"
	args := []any{q.OrganizationID}

	if q.EmployeeID != "" {
		args = append(args, q.EmployeeID)
		where += fmt.Sprintf(" AND employee_id = $%d", len(args))
	}
	if q.ManagerEmployeeID != "" {
		args = append(args, q.ManagerEmployeeID)
		where += fmt.Sprintf(" AND employee_id IN (SELECT id FROM employees WHERE organization_id = $1 AND manager_id = $%d)", len(args))
	}
	if q.Status != "" {
		args = append(args, q.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if !q.From.IsZero() {
		args = append(args, DateOnly(q.From))
		where += fmt.Sprintf(" AND end_date >= $%d", len(args))
	}
	if !q.To.IsZero() {
		args = append(args, DateOnly(q.To))
		where += fmt.Sprintf(" AND start_date <= $%d", len(args))
	}

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM leave_requests"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT" + requestColumns + " FROM leave_requests" + where + " ORDER BY created_at DESC"
	args = append(args, q.Limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, q.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var requests []LeaveRequest
	for rows.Next() {
		var req LeaveRequest
		if err := scanRequest(rows, &req); err != nil {
			return nil, 0, err
		}
		requests = append(requests, req)
	}
	return requests, total, rows.Err()
}

func (s *Store) ListActiveRequests(ctx context.Context, employeeID string) ([]LeaveRequest, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT`+requestColumns+`
    FROM leave_requests
    WHERE employee_id = $1 AND status IN ($2, $3)
    ORDER BY start_date
  `, employeeID, StatusPending, StatusApproved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []LeaveRequest
	for rows.Next() {
		var req LeaveRequest
		if err := scanRequest(rows, &req); err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func (s *Store) InsertRequest(ctx context.Context, req LeaveRequest) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO leave_requests (organization_id, employee_id, leave_policy_id, approver_id, type, reason, start_date, end_date, days, status)
    VALUES ($1,$2,$3,NULLIF($4, '')::uuid,$5,$6,$7,$8,$9,$10)
    RETURNING id
  `, req.OrganizationID, req.EmployeeID, req.LeavePolicyID, req.ApproverID, req.Type, req.Reason,
		DateOnly(req.StartDate), DateOnly(req.EndDate), req.Days, req.Status).Scan(&id)
	return id, err
}

func (s *Store) UpdateRequestStatus(ctx context.Context, requestID, status string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_requests SET status = $2, updated_at = now()
    WHERE id = $1 AND status = $3
  `, requestID, status, StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: request is no longer pending", ErrInvalidState)
	}
	return nil
}

func (s *Store) RejectRequest(ctx context.Context, requestID, approverID string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_requests SET status = $2, approver_id = NULLIF($3, '')::uuid, updated_at = now()
    WHERE id = $1 AND status = $4
  `, requestID, StatusRejected, approverID, StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: request is no longer pending", ErrInvalidState)
	}
	return nil
}

// ApproveRequestTx flips the request to APPROVED and reserves the days
// on the balance row in one transaction. The balance row is locked
// before the sufficiency re-check so concurrent approvals serialize.
func (s *Store) ApproveRequestTx(ctx context.Context, req LeaveRequest, approverID string) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer rollback(ctx, tx)

	var remaining int
	err = tx.QueryRow(ctx, `
    SELECT remaining_days
    FROM leave_balances
    WHERE employee_id = $1 AND leave_policy_id = $2
    FOR UPDATE
  `, req.EmployeeID, req.LeavePolicyID).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: no balance for policy %q", ErrInsufficientBalance, req.Type)
	}
	if err != nil {
		return err
	}
	if remaining < req.Days {
		return fmt.Errorf("%w: %d day(s) remaining, %d requested", ErrInsufficientBalance, remaining, req.Days)
	}

	tag, err := tx.Exec(ctx, `
    UPDATE leave_requests SET status = $2, approver_id = NULLIF($3, '')::uuid, updated_at = now()
    WHERE id = $1 AND status = $4
  `, req.ID, StatusApproved, approverID, StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: request is no longer pending", ErrInvalidState)
	}

	if _, err := tx.Exec(ctx, `
    UPDATE leave_balances
    SET used_days = used_days + $3, remaining_days = remaining_days - $3, updated_at = now()
    WHERE employee_id = $1 AND leave_policy_id = $2
  `, req.EmployeeID, req.LeavePolicyID, req.Days); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// DeleteRequestTx removes the request and, when it was APPROVED,
// releases the reserved days on the balance row in the same
// transaction.
func (s *Store) DeleteRequestTx(ctx context.Context, req LeaveRequest) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer rollback(ctx, tx)

	if req.Status == StatusApproved {
		var remaining int
		err = tx.QueryRow(ctx, `
      SELECT remaining_days
      FROM leave_balances
      WHERE employee_id = $1 AND leave_policy_id = $2
      FOR UPDATE
    `, req.EmployeeID, req.LeavePolicyID).Scan(&remaining)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		if err == nil {
			if _, err := tx.Exec(ctx, `
        UPDATE leave_balances
        SET used_days = used_days - $3, remaining_days = remaining_days + $3, updated_at = now()
        WHERE employee_id = $1 AND leave_policy_id = $2
      `, req.EmployeeID, req.LeavePolicyID, req.Days); err != nil {
				return err
			}
		}
	}

	tag, err := tx.Exec(ctx, "DELETE FROM leave_requests WHERE id = $1", req.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return tx.Commit(ctx)
}

func (s *Store) GetBalance(ctx context.Context, employeeID, policyID string) (LeaveBalance, error) {
	var b LeaveBalance
	err := scanBalance(s.DB.QueryRow(ctx, `
    SELECT`+balanceColumns+`
    FROM leave_balances
    WHERE employee_id = $1 AND leave_policy_id = $2
  `, employeeID, policyID), &b)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveBalance{}, ErrNotFound
	}
	return b, err
}

func (s *Store) ListBalances(ctx context.Context, employeeID string) ([]LeaveBalance, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT`+balanceColumns+`
    FROM leave_balances
    WHERE employee_id = $1
  `, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []LeaveBalance
	for rows.Next() {
		var b LeaveBalance
		if err := scanBalance(rows, &b); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func (s *Store) InitBalancesForPolicy(ctx context.Context, orgID, policyID string, totalDays, carryForward int) (int, error) {
	tag, err := s.DB.Exec(ctx, `
    INSERT INTO leave_balances (employee_id, leave_policy_id, total_days, used_days, remaining_days, carry_forward, last_reset)
    SELECT e.id, $2, $3, 0, $3 + $4, $4, now()
    FROM employees e
    WHERE e.organization_id = $1 AND e.status = $5
    ON CONFLICT (employee_id, leave_policy_id) DO NOTHING
  `, orgID, policyID, totalDays, carryForward, "active")
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) InitBalancesForEmployee(ctx context.Context, employeeID, orgID string) (int, error) {
	tag, err := s.DB.Exec(ctx, `
    INSERT INTO leave_balances (employee_id, leave_policy_id, total_days, used_days, remaining_days, carry_forward, last_reset)
    SELECT $1, p.id, p.max_days, 0, p.max_days + p.carry_forward, p.carry_forward, now()
    FROM leave_policies p
    WHERE p.organization_id = $2 AND p.active
    ON CONFLICT (employee_id, leave_policy_id) DO NOTHING
  `, employeeID, orgID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// AdjustBalancesForPolicy applies a maxDays change as a straight delta
// on every row for the policy. remaining_days is clamped at zero so a
// shrinking entitlement cannot push a heavily-used balance negative.
func (s *Store) AdjustBalancesForPolicy(ctx context.Context, policyID string, newMaxDays, delta int) (int, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_balances
    SET total_days = $2, remaining_days = GREATEST(remaining_days + $3, 0), updated_at = now()
    WHERE leave_policy_id = $1
  `, policyID, newMaxDays, delta)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) ResetAnnual(ctx context.Context, orgID string, now time.Time) (int, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_balances b
    SET carry_forward = LEAST(b.remaining_days, p.carry_forward),
        total_days = p.max_days,
        used_days = 0,
        remaining_days = p.max_days + LEAST(b.remaining_days, p.carry_forward),
        last_reset = $2,
        updated_at = now()
    FROM leave_policies p
    WHERE b.leave_policy_id = p.id AND p.organization_id = $1
  `, orgID, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) RecalculateBalances(ctx context.Context, employeeID string) ([]LeaveBalance, error) {
	rows, err := s.DB.Query(ctx, `
    UPDATE leave_balances
    SET remaining_days = total_days + carry_forward - used_days, updated_at = now()
    WHERE employee_id = $1 AND remaining_days <> total_days + carry_forward - used_days
    RETURNING`+balanceColumns+`
  `, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var corrected []LeaveBalance
	for rows.Next() {
		var b LeaveBalance
		if err := scanBalance(rows, &b); err != nil {
			return nil, err
		}
		corrected = append(corrected, b)
	}
	return corrected, rows.Err()
}

func (s *Store) OrgBalanceReport(ctx context.Context, orgID string) ([]BalanceReportRow, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT b.employee_id, e.first_name || ' ' || e.last_name, p.name,
           b.total_days, b.used_days, b.remaining_days, b.carry_forward
    FROM leave_balances b
    JOIN employees e ON b.employee_id = e.id
    JOIN leave_policies p ON b.leave_policy_id = p.id
    WHERE e.organization_id = $1
    ORDER BY e.last_name, e.first_name, p.name
  `, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BalanceReportRow
	for rows.Next() {
		var row BalanceReportRow
		if err := rows.Scan(&row.EmployeeID, &row.EmployeeName, &row.PolicyName,
			&row.TotalDays, &row.UsedDays, &row.RemainingDays, &row.CarryForward); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Store) UsageByPolicy(ctx context.Context, orgID string) ([]UsageRow, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT r.leave_policy_id, r.type, SUM(r.days)
    FROM leave_requests r
    WHERE r.organization_id = $1 AND r.status = $2
    GROUP BY r.leave_policy_id, r.type
    ORDER BY r.type
  `, orgID, StatusApproved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UsageRow
	for rows.Next() {
		var row UsageRow
		if err := rows.Scan(&row.LeavePolicyID, &row.PolicyName, &row.TotalDays); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Store) ManagerOf(ctx context.Context, orgID, employeeID string) (string, error) {
	var managerID string
	err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(manager_id::text, '')
    FROM employees
    WHERE organization_id = $1 AND id = $2
  `, orgID, employeeID).Scan(&managerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return managerID, err
}

func (s *Store) IsManagerOf(ctx context.Context, orgID, managerEmployeeID, employeeID string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM employees
    WHERE organization_id = $1 AND id = $2 AND manager_id = $3
  `, orgID, employeeID, managerEmployeeID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) HREmployeeIDs(ctx context.Context, orgID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT e.id
    FROM employees e
    JOIN users u ON e.user_id = u.id
    JOIN roles r ON u.role_id = r.id
    WHERE e.organization_id = $1 AND r.name = $2
  `, orgID, "hr")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		slog.Warn("leave tx rollback failed", "err", err)
	}
}
