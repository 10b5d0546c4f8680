package leave

import (
	"context"
	"time"
)

type StoreAPI interface {
	// Policies
	FindActivePolicy(ctx context.Context, orgID, name string) (LeavePolicy, error)
	GetPolicy(ctx context.Context, orgID, policyID string) (LeavePolicy, error)
	ListPolicies(ctx context.Context, orgID string) ([]LeavePolicy, error)
	InsertPolicy(ctx context.Context, policy LeavePolicy) (string, error)
	UpdatePolicy(ctx context.Context, policy LeavePolicy) error
	DeactivatePolicy(ctx context.Context, orgID, policyID string) error

	// Holidays
	ListHolidays(ctx context.Context, orgID string, from, to time.Time) ([]time.Time, error)
	ListHolidayRecords(ctx context.Context, orgID string) ([]Holiday, error)
	InsertHoliday(ctx context.Context, holiday Holiday) (string, error)
	DeleteHoliday(ctx context.Context, orgID, holidayID string) error

	// Requests
	GetRequest(ctx context.Context, orgID, requestID string) (LeaveRequest, error)
	ListRequests(ctx context.Context, q RequestQuery) ([]LeaveRequest, int, error)
	ListActiveRequests(ctx context.Context, employeeID string) ([]LeaveRequest, error)
	InsertRequest(ctx context.Context, req LeaveRequest) (string, error)
	UpdateRequestStatus(ctx context.Context, requestID, status string) error
	RejectRequest(ctx context.Context, requestID, approverID string) error
	ApproveRequestTx(ctx context.Context, req LeaveRequest, approverID string) error
	DeleteRequestTx(ctx context.Context, req LeaveRequest) error

	// Balances
	GetBalance(ctx context.Context, employeeID, policyID string) (LeaveBalance, error)
	ListBalances(ctx context.Context, employeeID string) ([]LeaveBalance, error)
	InitBalancesForPolicy(ctx context.Context, orgID, policyID string, totalDays, carryForward int) (int, error)
	InitBalancesForEmployee(ctx context.Context, employeeID, orgID string) (int, error)
	AdjustBalancesForPolicy(ctx context.Context, policyID string, newMaxDays, delta int) (int, error)
	ResetAnnual(ctx context.Context, orgID string, now time.Time) (int, error)
	RecalculateBalances(ctx context.Context, employeeID string) ([]LeaveBalance, error)

	// Reports
	OrgBalanceReport(ctx context.Context, orgID string) ([]BalanceReportRow, error)
	UsageByPolicy(ctx context.Context, orgID string) ([]UsageRow, error)

	// Org lookups the lifecycle depends on
	ManagerOf(ctx context.Context, orgID, employeeID string) (string, error)
	IsManagerOf(ctx context.Context, orgID, managerEmployeeID, employeeID string) (bool, error)
	HREmployeeIDs(ctx context.Context, orgID string) ([]string, error)
}
