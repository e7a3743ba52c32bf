package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListRequest struct {
	pagination.Pagination
	UserID     snowflake.ID
	UnreadOnly bool
}

type ListResponse struct {
	pagination.PageInfo
	Notifications []Notification `json:"notifications"`
}

type Service interface {
	// Notify writes on tx; unknown recipients are skipped without error.
	Notify(ctx context.Context, tx *gorm.DB, msg Message) error
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	MarkRead(ctx context.Context, userID snowflake.ID, ids []snowflake.ID) (int64, error)
	MarkUnread(ctx context.Context, userID snowflake.ID, ids []snowflake.ID) (int64, error)
	UnreadCount(ctx context.Context, userID snowflake.ID) (int64, error)
}

type Repository interface {
	UserExists(ctx context.Context, db *gorm.DB, userID snowflake.ID) (bool, error)
	Insert(ctx context.Context, db *gorm.DB, n *Notification) error
	List(ctx context.Context, db *gorm.DB, userID snowflake.ID, unreadOnly bool, page pagination.Pagination) ([]*Notification, error)
	SetRead(ctx context.Context, db *gorm.DB, userID snowflake.ID, ids []snowflake.ID, readAt *time.Time) (int64, error)
	CountUnread(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error)
}

var (
	ErrInvalidUser    = errors.New("invalid_user")
	ErrInvalidType    = errors.New("invalid_notification_type")
	ErrInvalidTitle   = errors.New("invalid_title")
	ErrInvalidRelated = errors.New("invalid_related_object")
	ErrInvalidIDs     = errors.New("invalid_ids")
)
