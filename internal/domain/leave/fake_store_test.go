package leave

import (
	"context"
	"fmt"
	"time"
)

// fakeStore mirrors the SQL semantics of Store in memory so the
// lifecycle and ledger paths can be exercised without Postgres.
type fakeStore struct {
	policies map[string]LeavePolicy
	holidays map[string]Holiday
	requests map[string]LeaveRequest
	balances map[string]*LeaveBalance
	managers map[string]string
	orgOf    map[string]string
	hr       []string
	seq      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		policies: map[string]LeavePolicy{},
		holidays: map[string]Holiday{},
		requests: map[string]LeaveRequest{},
		balances: map[string]*LeaveBalance{},
		managers: map[string]string{},
		orgOf:    map[string]string{},
	}
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func balanceKey(employeeID, policyID string) string {
	return employeeID + "|" + policyID
}

func (f *fakeStore) addEmployee(orgID, employeeID, managerID string) {
	f.orgOf[employeeID] = orgID
	f.managers[employeeID] = managerID
}

func (f *fakeStore) addBalance(employeeID, policyID string, total, used, carry int) {
	f.balances[balanceKey(employeeID, policyID)] = &LeaveBalance{
		ID:            f.nextID("bal"),
		EmployeeID:    employeeID,
		LeavePolicyID: policyID,
		TotalDays:     total,
		UsedDays:      used,
		RemainingDays: total + carry - used,
		CarryForward:  carry,
	}
}

func (f *fakeStore) FindActivePolicy(ctx context.Context, orgID, name string) (LeavePolicy, error) {
	for _, p := range f.policies {
		if p.OrganizationID == orgID && p.Name == name && p.Active {
			return p, nil
		}
	}
	return LeavePolicy{}, fmt.Errorf("%w: no active policy named %q", ErrPolicyNotFound, name)
}

func (f *fakeStore) GetPolicy(ctx context.Context, orgID, policyID string) (LeavePolicy, error) {
	p, ok := f.policies[policyID]
	if !ok || p.OrganizationID != orgID {
		return LeavePolicy{}, ErrPolicyNotFound
	}
	return p, nil
}

func (f *fakeStore) ListPolicies(ctx context.Context, orgID string) ([]LeavePolicy, error) {
	var out []LeavePolicy
	for _, p := range f.policies {
		if p.OrganizationID == orgID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertPolicy(ctx context.Context, policy LeavePolicy) (string, error) {
	id := f.nextID("pol")
	policy.ID = id
	policy.Active = true
	f.policies[id] = policy
	return id, nil
}

func (f *fakeStore) UpdatePolicy(ctx context.Context, policy LeavePolicy) error {
	current, ok := f.policies[policy.ID]
	if !ok {
		return ErrPolicyNotFound
	}
	policy.Active = current.Active
	f.policies[policy.ID] = policy
	return nil
}

func (f *fakeStore) DeactivatePolicy(ctx context.Context, orgID, policyID string) error {
	p, ok := f.policies[policyID]
	if !ok || p.OrganizationID != orgID {
		return ErrPolicyNotFound
	}
	p.Active = false
	f.policies[policyID] = p
	return nil
}

func (f *fakeStore) ListHolidays(ctx context.Context, orgID string, from, to time.Time) ([]time.Time, error) {
	var out []time.Time
	for _, h := range f.holidays {
		if h.OrganizationID != orgID {
			continue
		}
		if !DateOnly(h.Date).Before(DateOnly(from)) && !DateOnly(h.Date).After(DateOnly(to)) {
			out = append(out, h.Date)
		}
	}
	return out, nil
}

func (f *fakeStore) ListHolidayRecords(ctx context.Context, orgID string) ([]Holiday, error) {
	var out []Holiday
	for _, h := range f.holidays {
		if h.OrganizationID == orgID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertHoliday(ctx context.Context, holiday Holiday) (string, error) {
	for id, existing := range f.holidays {
		if existing.OrganizationID == holiday.OrganizationID && SameDate(existing.Date, holiday.Date) {
			existing.Name = holiday.Name
			f.holidays[id] = existing
			return id, nil
		}
	}
	id := f.nextID("hol")
	holiday.ID = id
	f.holidays[id] = holiday
	return id, nil
}

func (f *fakeStore) DeleteHoliday(ctx context.Context, orgID, holidayID string) error {
	h, ok := f.holidays[holidayID]
	if !ok || h.OrganizationID != orgID {
		return ErrNotFound
	}
	delete(f.holidays, holidayID)
	return nil
}

func (f *fakeStore) GetRequest(ctx context.Context, orgID, requestID string) (LeaveRequest, error) {
	req, ok := f.requests[requestID]
	if !ok || req.OrganizationID != orgID {
		return LeaveRequest{}, ErrNotFound
	}
	return req, nil
}

func (f *fakeStore) ListRequests(ctx context.Context, q RequestQuery) ([]LeaveRequest, int, error) {
	var out []LeaveRequest
	for _, req := range f.requests {
		if req.OrganizationID != q.OrganizationID {
			continue
		}
		if q.EmployeeID != "" && req.EmployeeID != q.EmployeeID {
			continue
		}
		if q.ManagerEmployeeID != "" && f.managers[req.EmployeeID] != q.ManagerEmployeeID {
			continue
		}
		if q.Status != "" && req.Status != q.Status {
			continue
		}
		out = append(out, req)
	}
	return out, len(out), nil
}

func (f *fakeStore) ListActiveRequests(ctx context.Context, employeeID string) ([]LeaveRequest, error) {
	var out []LeaveRequest
	for _, req := range f.requests {
		if req.EmployeeID == employeeID && (req.Status == StatusPending || req.Status == StatusApproved) {
			out = append(out, req)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertRequest(ctx context.Context, req LeaveRequest) (string, error) {
	id := f.nextID("req")
	req.ID = id
	f.requests[id] = req
	return id, nil
}

func (f *fakeStore) UpdateRequestStatus(ctx context.Context, requestID, status string) error {
	req, ok := f.requests[requestID]
	if !ok || req.Status != StatusPending {
		return fmt.Errorf("%w: request is no longer pending", ErrInvalidState)
	}
	req.Status = status
	f.requests[requestID] = req
	return nil
}

func (f *fakeStore) RejectRequest(ctx context.Context, requestID, approverID string) error {
	req, ok := f.requests[requestID]
	if !ok || req.Status != StatusPending {
		return fmt.Errorf("%w: request is no longer pending", ErrInvalidState)
	}
	req.Status = StatusRejected
	req.ApproverID = approverID
	f.requests[requestID] = req
	return nil
}

func (f *fakeStore) ApproveRequestTx(ctx context.Context, req LeaveRequest, approverID string) error {
	balance, ok := f.balances[balanceKey(req.EmployeeID, req.LeavePolicyID)]
	if !ok {
		return fmt.Errorf("%w: no balance for policy %q", ErrInsufficientBalance, req.Type)
	}
	if balance.RemainingDays < req.Days {
		return fmt.Errorf("%w: %d day(s) remaining, %d requested", ErrInsufficientBalance, balance.RemainingDays, req.Days)
	}
	stored, ok := f.requests[req.ID]
	if !ok || stored.Status != StatusPending {
		return fmt.Errorf("%w: request is no longer pending", ErrInvalidState)
	}

	stored.Status = StatusApproved
	stored.ApproverID = approverID
	f.requests[req.ID] = stored
	balance.UsedDays += req.Days
	balance.RemainingDays -= req.Days
	return nil
}

func (f *fakeStore) DeleteRequestTx(ctx context.Context, req LeaveRequest) error {
	stored, ok := f.requests[req.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Status == StatusApproved {
		if balance, ok := f.balances[balanceKey(stored.EmployeeID, stored.LeavePolicyID)]; ok {
			balance.UsedDays -= stored.Days
			balance.RemainingDays += stored.Days
		}
	}
	delete(f.requests, req.ID)
	return nil
}

func (f *fakeStore) GetBalance(ctx context.Context, employeeID, policyID string) (LeaveBalance, error) {
	balance, ok := f.balances[balanceKey(employeeID, policyID)]
	if !ok {
		return LeaveBalance{}, ErrNotFound
	}
	return *balance, nil
}

func (f *fakeStore) ListBalances(ctx context.Context, employeeID string) ([]LeaveBalance, error) {
	var out []LeaveBalance
	for _, balance := range f.balances {
		if balance.EmployeeID == employeeID {
			out = append(out, *balance)
		}
	}
	return out, nil
}

func (f *fakeStore) InitBalancesForPolicy(ctx context.Context, orgID, policyID string, totalDays, carryForward int) (int, error) {
	created := 0
	for employeeID, employeeOrg := range f.orgOf {
		if employeeOrg != orgID {
			continue
		}
		key := balanceKey(employeeID, policyID)
		if _, exists := f.balances[key]; exists {
			continue
		}
		f.balances[key] = &LeaveBalance{
			ID:            f.nextID("bal"),
			EmployeeID:    employeeID,
			LeavePolicyID: policyID,
			TotalDays:     totalDays,
			RemainingDays: totalDays + carryForward,
			CarryForward:  carryForward,
		}
		created++
	}
	return created, nil
}

func (f *fakeStore) InitBalancesForEmployee(ctx context.Context, employeeID, orgID string) (int, error) {
	created := 0
	for _, policy := range f.policies {
		if policy.OrganizationID != orgID || !policy.Active {
			continue
		}
		key := balanceKey(employeeID, policy.ID)
		if _, exists := f.balances[key]; exists {
			continue
		}
		f.balances[key] = &LeaveBalance{
			ID:            f.nextID("bal"),
			EmployeeID:    employeeID,
			LeavePolicyID: policy.ID,
			TotalDays:     policy.MaxDays,
			RemainingDays: policy.MaxDays + policy.CarryForward,
			CarryForward:  policy.CarryForward,
		}
		created++
	}
	return created, nil
}

func (f *fakeStore) AdjustBalancesForPolicy(ctx context.Context, policyID string, newMaxDays, delta int) (int, error) {
	adjusted := 0
	for _, balance := range f.balances {
		if balance.LeavePolicyID != policyID {
			continue
		}
		balance.TotalDays = newMaxDays
		balance.RemainingDays += delta
		if balance.RemainingDays < 0 {
			balance.RemainingDays = 0
		}
		adjusted++
	}
	return adjusted, nil
}

func (f *fakeStore) ResetAnnual(ctx context.Context, orgID string, now time.Time) (int, error) {
	reset := 0
	for _, balance := range f.balances {
		policy, ok := f.policies[balance.LeavePolicyID]
		if !ok || policy.OrganizationID != orgID {
			continue
		}
		carry := balance.RemainingDays
		if carry > policy.CarryForward {
			carry = policy.CarryForward
		}
		balance.CarryForward = carry
		balance.TotalDays = policy.MaxDays
		balance.UsedDays = 0
		balance.RemainingDays = policy.MaxDays + carry
		balance.LastReset = now
		reset++
	}
	return reset, nil
}

func (f *fakeStore) RecalculateBalances(ctx context.Context, employeeID string) ([]LeaveBalance, error) {
	var corrected []LeaveBalance
	for _, balance := range f.balances {
		if balance.EmployeeID != employeeID {
			continue
		}
		want := balance.TotalDays + balance.CarryForward - balance.UsedDays
		if balance.RemainingDays != want {
			balance.RemainingDays = want
			corrected = append(corrected, *balance)
		}
	}
	return corrected, nil
}

func (f *fakeStore) OrgBalanceReport(ctx context.Context, orgID string) ([]BalanceReportRow, error) {
	var out []BalanceReportRow
	for _, balance := range f.balances {
		if f.orgOf[balance.EmployeeID] != orgID {
			continue
		}
		policy := f.policies[balance.LeavePolicyID]
		out = append(out, BalanceReportRow{
			EmployeeID:    balance.EmployeeID,
			PolicyName:    policy.Name,
			TotalDays:     balance.TotalDays,
			UsedDays:      balance.UsedDays,
			RemainingDays: balance.RemainingDays,
			CarryForward:  balance.CarryForward,
		})
	}
	return out, nil
}

func (f *fakeStore) UsageByPolicy(ctx context.Context, orgID string) ([]UsageRow, error) {
	totals := map[string]*UsageRow{}
	for _, req := range f.requests {
		if req.OrganizationID != orgID || req.Status != StatusApproved {
			continue
		}
		row, ok := totals[req.LeavePolicyID]
		if !ok {
			row = &UsageRow{LeavePolicyID: req.LeavePolicyID, PolicyName: req.Type}
			totals[req.LeavePolicyID] = row
		}
		row.TotalDays += req.Days
	}
	var out []UsageRow
	for _, row := range totals {
		out = append(out, *row)
	}
	return out, nil
}

func (f *fakeStore) ManagerOf(ctx context.Context, orgID, employeeID string) (string, error) {
	return f.managers[employeeID], nil
}

func (f *fakeStore) IsManagerOf(ctx context.Context, orgID, managerEmployeeID, employeeID string) (bool, error) {
	return managerEmployeeID != "" && f.managers[employeeID] == managerEmployeeID, nil
}

func (f *fakeStore) HREmployeeIDs(ctx context.Context, orgID string) ([]string, error) {
	return f.hr, nil
}

// checkInvariant fails the calling test when any ledger row violates
// remainingDays == totalDays + carryForward - usedDays.
func (f *fakeStore) checkInvariant(t interface{ Fatalf(string, ...any) }) {
	for key, balance := range f.balances {
		want := balance.TotalDays + balance.CarryForward - balance.UsedDays
		if balance.RemainingDays != want {
			t.Fatalf("balance %s violates invariant: remaining %d, want %d", key, balance.RemainingDays, want)
		}
	}
}

type fakeNotifier struct {
	submitted []LeaveRequest
	decided   []LeaveRequest
	recipient [][]string
}

func (n *fakeNotifier) LeaveSubmitted(ctx context.Context, req LeaveRequest, recipientEmployeeIDs []string) {
	n.submitted = append(n.submitted, req)
	n.recipient = append(n.recipient, recipientEmployeeIDs)
}

func (n *fakeNotifier) LeaveDecided(ctx context.Context, req LeaveRequest) {
	n.decided = append(n.decided, req)
}
