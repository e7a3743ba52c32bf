package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/internal/clock"
	"github.com/smallbiznis/shaadmin/internal/notification/domain"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("notification.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Notify(ctx context.Context, tx *gorm.DB, msg domain.Message) error {
	if msg.UserID == nil || *msg.UserID == 0 {
		return nil
	}
	if strings.TrimSpace(msg.Title) == "" {
		return domain.ErrInvalidTitle
	}
	if msg.Related.Kind != "" && !msg.Related.Kind.Valid() {
		return domain.ErrInvalidRelated
	}
	if tx == nil {
		tx = s.db
	}

	exists, err := s.repo.UserExists(ctx, tx, *msg.UserID)
	if err != nil {
		return err
	}
	if !exists {
		s.log.Debug("skipping notification for unknown user",
			zap.String("user_id", msg.UserID.String()),
			zap.String("type", string(msg.Type)),
		)
		return nil
	}

	return s.repo.Insert(ctx, tx, &domain.Notification{
		ID:               s.genID.Generate(),
		UserID:           *msg.UserID,
		NotificationType: msg.Type,
		Title:            strings.TrimSpace(msg.Title),
		Message:          strings.TrimSpace(msg.Body),
		Related:          msg.Related,
		CreatedAt:        s.clock.Now(),
	})
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	if req.UserID == 0 {
		return domain.ListResponse{}, domain.ErrInvalidUser
	}
	page := req.Pagination
	page.PageSize = pagination.Normalize(page.PageSize)

	items, err := s.repo.List(ctx, s.db, req.UserID, req.UnreadOnly, page)
	if err != nil {
		return domain.ListResponse{}, err
	}
	info := pagination.BuildCursorPageInfo(items, page.PageSize, func(n *domain.Notification) string {
		return pagination.CursorFor(n.ID, n.CreatedAt)
	})
	return domain.ListResponse{
		PageInfo:      *info,
		Notifications: pagination.Trim(items, page.PageSize),
	}, nil
}

func (s *Service) MarkRead(ctx context.Context, userID snowflake.ID, ids []snowflake.ID) (int64, error) {
	now := s.clock.Now()
	return s.setRead(ctx, userID, ids, &now)
}

func (s *Service) MarkUnread(ctx context.Context, userID snowflake.ID, ids []snowflake.ID) (int64, error) {
	return s.setRead(ctx, userID, ids, nil)
}

func (s *Service) setRead(ctx context.Context, userID snowflake.ID, ids []snowflake.ID, readAt *time.Time) (int64, error) {
	if userID == 0 {
		return 0, domain.ErrInvalidUser
	}
	if len(ids) == 0 {
		return 0, domain.ErrInvalidIDs
	}
	return s.repo.SetRead(ctx, s.db, userID, ids, readAt)
}

func (s *Service) UnreadCount(ctx context.Context, userID snowflake.ID) (int64, error) {
	if userID == 0 {
		return 0, domain.ErrInvalidUser
	}
	return s.repo.CountUnread(ctx, s.db, userID)
}
