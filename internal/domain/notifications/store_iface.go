package notifications

import (
	"context"
	"time"
)

type Notification struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type StoreAPI interface {
	CreateNotification(ctx context.Context, orgID, userID, ntype, title, body string) error
	UserEmail(ctx context.Context, orgID, userID string) (string, error)
	UserIDForEmployee(ctx context.Context, employeeID string) (string, error)
	HRUserIDs(ctx context.Context, orgID string) ([]string, error)
	ListNotifications(ctx context.Context, orgID, userID string, limit, offset int) ([]Notification, error)
	MarkRead(ctx context.Context, orgID, userID, notificationID string) error
}
