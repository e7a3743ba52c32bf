package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/internal/notification/domain"
	"github.com/smallbiznis/shaadmin/pkg/db/option"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) UserExists(ctx context.Context, db *gorm.DB, userID snowflake.ID) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM users WHERE id = ?`, userID).Scan(&n).Error
	return n > 0, err
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, n *domain.Notification) error {
	return db.WithContext(ctx).Create(n).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, userID snowflake.ID, unreadOnly bool, page pagination.Pagination) ([]*domain.Notification, error) {
	stmt := db.WithContext(ctx).Model(&domain.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		stmt = stmt.Where("is_read = ?", false)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)

	var items []*domain.Notification
	err := stmt.Order("created_at desc, id desc").Find(&items).Error
	return items, err
}

// SetRead marks ids read when readAt is set and unread otherwise. Rows that
// already have the target state are not counted.
func (r *repo) SetRead(ctx context.Context, db *gorm.DB, userID snowflake.ID, ids []snowflake.ID, readAt *time.Time) (int64, error) {
	isRead := readAt != nil
	res := db.WithContext(ctx).Model(&domain.Notification{}).
		Where("user_id = ? AND id IN ? AND is_read = ?", userID, ids, !isRead).
		Updates(map[string]any{"is_read": isRead, "read_at": readAt})
	return res.RowsAffected, res.Error
}

func (r *repo) CountUnread(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}
