package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"leavedesk/internal/domain/auth"
)

// Actor is the authenticated caller a lifecycle operation runs as.
type Actor struct {
	UserID         string
	EmployeeID     string
	OrganizationID string
	Role           string
}

// Notifier delivers post-commit notifications. Implementations are
// fire-and-forget: they log failures and never return them.
type Notifier interface {
	LeaveSubmitted(ctx context.Context, req LeaveRequest, recipientEmployeeIDs []string)
	LeaveDecided(ctx context.Context, req LeaveRequest)
}

type Service struct {
	Store  StoreAPI
	Notify Notifier
	Now    func() time.Time
}

func NewService(store StoreAPI, notify Notifier) *Service {
	return &Service{Store: store, Notify: notify, Now: time.Now}
}

type CreateRequestInput struct {
	Type      string
	Reason    string
	StartDate time.Time
	EndDate   time.Time
}

// CreateRequest runs the full eligibility pipeline: policy resolution,
// business-day computation, overlap check, balance check, notice check.
// The resolved policy id is stored on the request; the policy name is
// kept as a display label only.
func (s *Service) CreateRequest(ctx context.Context, actor Actor, input CreateRequestInput) (LeaveRequest, error) {
	input.Type = strings.TrimSpace(input.Type)
	if input.Type == "" {
		return LeaveRequest{}, fmt.Errorf("%w: leave type is required", ErrValidation)
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() {
		return LeaveRequest{}, fmt.Errorf("%w: start and end dates are required", ErrValidation)
	}
	if DateOnly(input.EndDate).Before(DateOnly(input.StartDate)) {
		return LeaveRequest{}, fmt.Errorf("%w: end date is before start date", ErrValidation)
	}

	policy, err := s.Store.FindActivePolicy(ctx, actor.OrganizationID, input.Type)
	if err != nil {
		return LeaveRequest{}, err
	}

	holidays, err := s.Store.ListHolidays(ctx, actor.OrganizationID, input.StartDate, input.EndDate)
	if err != nil {
		return LeaveRequest{}, err
	}
	days := BusinessDays(input.StartDate, input.EndDate, holidays)
	if days <= 0 {
		return LeaveRequest{}, fmt.Errorf("%w: no business days in range", ErrValidation)
	}

	existing, err := s.Store.ListActiveRequests(ctx, actor.EmployeeID)
	if err != nil {
		return LeaveRequest{}, err
	}
	if err := CheckOverlap(input.StartDate, input.EndDate, existing, ""); err != nil {
		return LeaveRequest{}, err
	}

	balance, err := s.Store.GetBalance(ctx, actor.EmployeeID, policy.ID)
	if errors.Is(err, ErrNotFound) {
		return LeaveRequest{}, fmt.Errorf("%w: no balance for policy %q", ErrInsufficientBalance, policy.Name)
	}
	if err != nil {
		return LeaveRequest{}, err
	}
	if balance.RemainingDays < days {
		return LeaveRequest{}, fmt.Errorf("%w: %d day(s) remaining, %d requested",
			ErrInsufficientBalance, balance.RemainingDays, days)
	}

	if err := CheckNotice(policy, input.StartDate, s.Now()); err != nil {
		return LeaveRequest{}, err
	}

	manager, err := s.Store.ManagerOf(ctx, actor.OrganizationID, actor.EmployeeID)
	if err != nil {
		return LeaveRequest{}, err
	}

	req := LeaveRequest{
		EmployeeID:     actor.EmployeeID,
		OrganizationID: actor.OrganizationID,
		LeavePolicyID:  policy.ID,
		ApproverID:     manager,
		Type:           policy.Name,
		Reason:         strings.TrimSpace(input.Reason),
		StartDate:      DateOnly(input.StartDate),
		EndDate:        DateOnly(input.EndDate),
		Days:           days,
		Status:         StatusPending,
	}
	id, err := s.Store.InsertRequest(ctx, req)
	if err != nil {
		return LeaveRequest{}, err
	}
	req.ID = id

	s.notifySubmitted(ctx, req)
	return req, nil
}

// CancelRequest lets the owning employee withdraw a still-pending
// request. Pending requests never reserved days, so no ledger
// mutation happens here.
func (s *Service) CancelRequest(ctx context.Context, actor Actor, requestID string) (LeaveRequest, error) {
	req, err := s.Store.GetRequest(ctx, actor.OrganizationID, requestID)
	if err != nil {
		return LeaveRequest{}, err
	}
	if req.EmployeeID != actor.EmployeeID {
		return LeaveRequest{}, fmt.Errorf("%w: only the requesting employee may cancel", ErrForbidden)
	}
	if req.Status != StatusPending {
		return LeaveRequest{}, fmt.Errorf("%w: request is %s", ErrInvalidState, req.Status)
	}

	if err := s.Store.UpdateRequestStatus(ctx, req.ID, StatusCancelled); err != nil {
		return LeaveRequest{}, err
	}
	req.Status = StatusCancelled
	return req, nil
}

// DecideRequest approves or rejects a pending request. Authorization
// precedence, first match wins: direct manager, recorded approver,
// HR/Admin. On approval the sufficiency re-check and the reservation
// run in the same transaction as the status flip.
func (s *Service) DecideRequest(ctx context.Context, actor Actor, requestID string, approve bool) (LeaveRequest, error) {
	req, err := s.Store.GetRequest(ctx, actor.OrganizationID, requestID)
	if err != nil {
		return LeaveRequest{}, err
	}
	if req.Status != StatusPending {
		return LeaveRequest{}, fmt.Errorf("%w: request is %s", ErrInvalidState, req.Status)
	}

	allowed, err := s.canDecide(ctx, actor, req)
	if err != nil {
		return LeaveRequest{}, err
	}
	if !allowed {
		return LeaveRequest{}, fmt.Errorf("%w: not the manager, assigned approver, or hr/admin", ErrForbidden)
	}

	if approve {
		policy, err := s.Store.GetPolicy(ctx, req.OrganizationID, req.LeavePolicyID)
		if err != nil {
			return LeaveRequest{}, err
		}
		if !policy.Active {
			return LeaveRequest{}, fmt.Errorf("%w: policy %q is no longer active", ErrPolicyNotFound, policy.Name)
		}
		// Re-validate overlap against requests filed since submission,
		// excluding this request itself.
		siblings, err := s.Store.ListActiveRequests(ctx, req.EmployeeID)
		if err != nil {
			return LeaveRequest{}, err
		}
		if err := CheckOverlap(req.StartDate, req.EndDate, siblings, req.ID); err != nil {
			return LeaveRequest{}, err
		}
		if err := s.Store.ApproveRequestTx(ctx, req, actor.EmployeeID); err != nil {
			return LeaveRequest{}, err
		}
		req.Status = StatusApproved
	} else {
		if err := s.Store.RejectRequest(ctx, req.ID, actor.EmployeeID); err != nil {
			return LeaveRequest{}, err
		}
		req.Status = StatusRejected
	}
	req.ApproverID = actor.EmployeeID

	if s.Notify != nil {
		s.Notify.LeaveDecided(ctx, req)
	}
	return req, nil
}

// DeleteRequest is the privileged removal path. Deleting an APPROVED
// request releases its reserved days in the same transaction.
func (s *Service) DeleteRequest(ctx context.Context, actor Actor, requestID string) error {
	if !auth.PrivilegedRole(actor.Role) {
		return fmt.Errorf("%w: hr or admin role required", ErrForbidden)
	}
	req, err := s.Store.GetRequest(ctx, actor.OrganizationID, requestID)
	if err != nil {
		return err
	}
	return s.Store.DeleteRequestTx(ctx, req)
}

func (s *Service) GetRequest(ctx context.Context, actor Actor, requestID string) (LeaveRequest, error) {
	req, err := s.Store.GetRequest(ctx, actor.OrganizationID, requestID)
	if err != nil {
		return LeaveRequest{}, err
	}
	if req.EmployeeID != actor.EmployeeID && !auth.PrivilegedRole(actor.Role) {
		isManager, err := s.Store.IsManagerOf(ctx, actor.OrganizationID, actor.EmployeeID, req.EmployeeID)
		if err != nil {
			return LeaveRequest{}, err
		}
		if !isManager {
			return LeaveRequest{}, ErrNotFound
		}
	}
	return req, nil
}

func (s *Service) ListRequests(ctx context.Context, actor Actor, q RequestQuery) ([]LeaveRequest, int, error) {
	q.OrganizationID = actor.OrganizationID
	switch actor.Role {
	case auth.RoleEmployee:
		q.EmployeeID = actor.EmployeeID
	case auth.RoleManager:
		if q.EmployeeID == "" {
			q.ManagerEmployeeID = actor.EmployeeID
		} else if q.EmployeeID != actor.EmployeeID {
			isManager, err := s.Store.IsManagerOf(ctx, actor.OrganizationID, actor.EmployeeID, q.EmployeeID)
			if err != nil {
				return nil, 0, err
			}
			if !isManager {
				return nil, 0, fmt.Errorf("%w: not a direct report", ErrForbidden)
			}
		}
	}
	if q.Limit <= 0 {
		q.Limit = 50
	}
	return s.Store.ListRequests(ctx, q)
}

func (s *Service) canDecide(ctx context.Context, actor Actor, req LeaveRequest) (bool, error) {
	if actor.EmployeeID != "" {
		isManager, err := s.Store.IsManagerOf(ctx, actor.OrganizationID, actor.EmployeeID, req.EmployeeID)
		if err != nil {
			return false, err
		}
		if isManager {
			return true, nil
		}
		if req.ApproverID != "" && actor.EmployeeID == req.ApproverID {
			return true, nil
		}
	}
	return auth.PrivilegedRole(actor.Role), nil
}

func (s *Service) notifySubmitted(ctx context.Context, req LeaveRequest) {
	if s.Notify == nil {
		return
	}
	recipients := []string{}
	if req.ApproverID != "" {
		recipients = append(recipients, req.ApproverID)
	}
	hrIDs, err := s.Store.HREmployeeIDs(ctx, req.OrganizationID)
	if err != nil {
		slog.Warn("hr recipient lookup failed", "organizationId", req.OrganizationID, "err", err)
	}
	for _, id := range hrIDs {
		if id != "" && id != req.ApproverID {
			recipients = append(recipients, id)
		}
	}
	s.Notify.LeaveSubmitted(ctx, req, recipients)
}
