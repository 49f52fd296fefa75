package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/notification"
)

type NotificationRepository struct {
	mu            sync.RWMutex
	notifications map[string]domain.Notification
	receipts      map[string][]*domain.Receipt // userID -> receipts
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{
		notifications: make(map[string]domain.Notification),
		receipts:      make(map[string][]*domain.Receipt),
	}
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification, userIDs []string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	r.notifications[n.ID] = *n
	seen := make(map[string]struct{}, len(userIDs))
	for _, uid := range userIDs {
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}
		r.receipts[uid] = append(r.receipts[uid], &domain.Receipt{
			NotificationID: n.ID,
			UserID:         uid,
			CreatedAt:      n.CreatedAt,
		})
	}
	return nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, notificationID, userID string, at time.Time) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rc := range r.receipts[userID] {
		if rc.NotificationID != notificationID {
			continue
		}
		if !rc.Read {
			readAt := at.UTC()
			rc.Read = true
			rc.ReadAt = &readAt
		}
		return nil
	}
	return domain.ErrNotFound
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	readAt := at.UTC()
	for _, rc := range r.receipts[userID] {
		if rc.Read {
			continue
		}
		rc.Read = true
		rc.ReadAt = &readAt
		n++
	}
	return n, nil
}

func (r *NotificationRepository) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]domain.InboxItem, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.InboxItem, 0, len(r.receipts[userID]))
	for _, rc := range r.receipts[userID] {
		if unreadOnly && rc.Read {
			continue
		}
		item := domain.InboxItem{Notification: r.notifications[rc.NotificationID], Read: rc.Read}
		if rc.ReadAt != nil {
			t := *rc.ReadAt
			item.ReadAt = &t
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Notification.CreatedAt.After(out[j].Notification.CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, userID string) (int64, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, rc := range r.receipts[userID] {
		if !rc.Read {
			n++
		}
	}
	return n, nil
}
