package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"leavedesk/internal/domain/leave"
)

const (
	TypeLeaveSubmitted = "leave_submitted"
	TypeLeaveDecided   = "leave_decided"
)

// LeaveNotifier adapts the notification service to the lifecycle
// engine's post-commit events. Both methods are fire-and-forget:
// failures are logged per recipient and never returned.
type LeaveNotifier struct {
	Service *Service
	Store   StoreAPI
}

func NewLeaveNotifier(service *Service, store StoreAPI) *LeaveNotifier {
	return &LeaveNotifier{Service: service, Store: store}
}

func (n *LeaveNotifier) LeaveSubmitted(ctx context.Context, req leave.LeaveRequest, recipientEmployeeIDs []string) {
	userIDs := n.resolveRecipients(ctx, req.OrganizationID, recipientEmployeeIDs)
	title := fmt.Sprintf("Leave request submitted: %s", req.Type)
	body := fmt.Sprintf("A %s request for %d day(s) from %s to %s is awaiting review.",
		req.Type, req.Days, req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02"))

	for _, userID := range userIDs {
		if err := n.Service.Create(ctx, req.OrganizationID, userID, TypeLeaveSubmitted, title, body); err != nil {
			slog.Warn("leave submitted notification failed", "userId", userID, "requestId", req.ID, "err", err)
		}
	}
}

func (n *LeaveNotifier) LeaveDecided(ctx context.Context, req leave.LeaveRequest) {
	userID, err := n.Store.UserIDForEmployee(ctx, req.EmployeeID)
	if err != nil {
		slog.Warn("leave decided notification lookup failed", "employeeId", req.EmployeeID, "err", err)
		return
	}
	title := fmt.Sprintf("Leave request %s", strings.ToLower(req.Status))
	body := fmt.Sprintf("Your %s request from %s to %s was %s.",
		req.Type, req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02"), strings.ToLower(req.Status))

	if err := n.Service.Create(ctx, req.OrganizationID, userID, TypeLeaveDecided, title, body); err != nil {
		slog.Warn("leave decided notification failed", "userId", userID, "requestId", req.ID, "err", err)
	}
}

// resolveRecipients maps employee ids to user ids, falling back to the
// organization's HR users when no explicit recipient exists.
func (n *LeaveNotifier) resolveRecipients(ctx context.Context, orgID string, employeeIDs []string) []string {
	var userIDs []string
	for _, employeeID := range employeeIDs {
		userID, err := n.Store.UserIDForEmployee(ctx, employeeID)
		if err != nil {
			slog.Warn("notification recipient lookup failed", "employeeId", employeeID, "err", err)
			continue
		}
		if userID != "" {
			userIDs = append(userIDs, userID)
		}
	}
	if len(userIDs) > 0 {
		return userIDs
	}

	hrIDs, err := n.Store.HRUserIDs(ctx, orgID)
	if err != nil {
		slog.Warn("hr recipient lookup failed", "organizationId", orgID, "err", err)
		return nil
	}
	return hrIDs
}
