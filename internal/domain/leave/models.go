package leave

import "time"

const (
	StatusPending   = "PENDING"
	StatusApproved  = "APPROVED"
	StatusRejected  = "REJECTED"
	StatusCancelled = "CANCELLED"
)

// Terminal reports whether a request status permits no further transition.
func Terminal(status string) bool {
	return status == StatusApproved || status == StatusRejected || status == StatusCancelled
}

type LeavePolicy struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	Name           string    `json:"name"`
	MaxDays        int       `json:"maxDays"`
	CarryForward   int       `json:"carryForward"`
	MinNoticeDays  int       `json:"minNoticeDays"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// LeaveBalance is the ledger row for one (employee, policy) pair.
// remainingDays == totalDays + carryForward - usedDays holds after
// every ledger mutation.
type LeaveBalance struct {
	ID            string    `json:"id"`
	EmployeeID    string    `json:"employeeId"`
	LeavePolicyID string    `json:"leavePolicyId"`
	TotalDays     int       `json:"totalDays"`
	UsedDays      int       `json:"usedDays"`
	RemainingDays int       `json:"remainingDays"`
	CarryForward  int       `json:"carryForward"`
	LastReset     time.Time `json:"lastReset"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type LeaveRequest struct {
	ID             string    `json:"id"`
	EmployeeID     string    `json:"employeeId"`
	OrganizationID string    `json:"organizationId"`
	LeavePolicyID  string    `json:"leavePolicyId"`
	ApproverID     string    `json:"approverId,omitempty"`
	Type           string    `json:"type"`
	Reason         string    `json:"reason"`
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
	Days           int       `json:"days"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type Holiday struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	Date           time.Time `json:"date"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"createdAt"`
}

type BalanceReportRow struct {
	EmployeeID    string `json:"employeeId"`
	EmployeeName  string `json:"employeeName"`
	PolicyName    string `json:"policyName"`
	TotalDays     int    `json:"totalDays"`
	UsedDays      int    `json:"usedDays"`
	RemainingDays int    `json:"remainingDays"`
	CarryForward  int    `json:"carryForward"`
}

type UsageRow struct {
	LeavePolicyID string `json:"leavePolicyId"`
	PolicyName    string `json:"policyName"`
	TotalDays     int    `json:"totalDays"`
}

type RequestQuery struct {
	OrganizationID    string
	EmployeeID        string
	ManagerEmployeeID string
	Status            string
	From              time.Time
	To                time.Time
	Limit             int
	Offset            int
}
