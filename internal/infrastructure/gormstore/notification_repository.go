package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm"

	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/notification"
)

// receiptBatchSize bounds the rows per INSERT when fanning out to many users.
const receiptBatchSize = 200

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification, userIDs []string) error {
	receipts := make([]receiptRow, 0, len(userIDs))
	seen := make(map[string]struct{}, len(userIDs))
	for _, uid := range userIDs {
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}
		receipts = append(receipts, receiptRow{NotificationID: n.ID, UserID: uid, CreatedAt: n.CreatedAt})
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&notificationRow{
			ID:        n.ID,
			Title:     n.Title,
			Content:   n.Content,
			Kind:      string(n.Kind),
			CreatedAt: n.CreatedAt,
		}).Error; err != nil {
			return err
		}
		if len(receipts) == 0 {
			return nil
		}
		return tx.CreateInBatches(receipts, receiptBatchSize).Error
	})
}

func (r *NotificationRepository) MarkRead(ctx context.Context, notificationID, userID string, at time.Time) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&receiptRow{}).
		Where("notification_id = ? AND user_id = ? AND is_read = ?", notificationID, userID, false).
		Updates(map[string]any{"is_read": true, "read_at": at.UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var exists int64
	if err := db.Model(&receiptRow{}).
		Where("notification_id = ? AND user_id = ?", notificationID, userID).
		Count(&exists).Error; err != nil {
		return err
	}
	if exists == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&receiptRow{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": at.UTC()})
	return res.RowsAffected, res.Error
}

type inboxRow struct {
	ID        string
	Title     string
	Content   string
	Kind      string
	CreatedAt time.Time
	IsRead    bool
	ReadAt    *time.Time
}

func (r *NotificationRepository) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]domain.InboxItem, error) {
	q := r.db.WithContext(ctx).
		Table("notification_users AS nu").
		Select("n.id, n.title, n.content, n.kind, n.created_at, nu.is_read, nu.read_at").
		Joins("JOIN notifications AS n ON n.id = nu.notification_id").
		Where("nu.user_id = ?", userID).
		Order("n.created_at DESC")
	if unreadOnly {
		q = q.Where("nu.is_read = ?", false)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []inboxRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.InboxItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.InboxItem{
			Notification: domain.Notification{
				ID:        row.ID,
				Title:     row.Title,
				Content:   row.Content,
				Kind:      domain.Kind(row.Kind),
				CreatedAt: row.CreatedAt,
			},
			Read:   row.IsRead,
			ReadAt: row.ReadAt,
		})
	}
	return out, nil
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&receiptRow{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}
