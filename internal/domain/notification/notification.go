package notification

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("notification: not found")
	ErrInvalidInput = errors.New("notification: invalid input")
)

type Kind string

const (
	KindSystem    Kind = "system"
	KindOrder     Kind = "order"
	KindPromotion Kind = "promotion"
)

func (k Kind) Valid() bool {
	return k == KindSystem || k == KindOrder || k == KindPromotion
}

type Notification struct {
	ID        string
	Title     string
	Content   string
	Kind      Kind
	CreatedAt time.Time
}

// Receipt links a notification to one recipient. (NotificationID, UserID) is unique.
type Receipt struct {
	NotificationID string
	UserID         string
	Read           bool
	ReadAt         *time.Time
	CreatedAt      time.Time
}

// InboxItem is a notification as seen by one user.
type InboxItem struct {
	Notification Notification
	Read         bool
	ReadAt       *time.Time
}

// Recipients selects who receives a notification: explicit users, or every
// user holding Role when UserIDs is empty.
type Recipients struct {
	UserIDs []string
	Role    string
}

type Request struct {
	Recipients Recipients
	Title      string
	Content    string
	Kind       Kind
}

type Repository interface {
	// Create inserts the notification and all receipts in one batch.
	Create(ctx context.Context, n *Notification, userIDs []string) error
	// MarkRead is idempotent; it fails only when the user has no receipt.
	MarkRead(ctx context.Context, notificationID, userID string, at time.Time) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error)
	ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]InboxItem, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
}

// Message is one realtime push. Channel names the audience, e.g. "user:<id>".
type Message struct {
	Channel string
	Event   string
	Data    any
}

// PubSub delivers realtime pushes. Delivery is best effort.
type PubSub interface {
	Publish(ctx context.Context, msgs ...Message) error
}

func UserChannel(userID string) string { return "user:" + userID }
