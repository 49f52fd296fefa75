package gormstore

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/LoiPham2005/backend-doantotnghiep/internal/domain/user"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Save(ctx context.Context, u *domain.User) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "username", "role"}),
	}).Create(&userRow{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}).Error
}

func (r *UserRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	var row userRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &domain.User{
		ID:        row.ID,
		Email:     row.Email,
		Username:  row.Username,
		Role:      domain.Role(row.Role),
		CreatedAt: row.CreatedAt,
	}, nil
}

func (r *UserRepository) ListIDsByRole(ctx context.Context, role domain.Role) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&userRow{}).
		Where("role = ?", string(role)).
		Order("id").
		Pluck("id", &ids).Error
	if ids == nil {
		ids = []string{}
	}
	return ids, err
}
