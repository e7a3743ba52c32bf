package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/internal/actorcontext"
	"github.com/smallbiznis/shaadmin/internal/audit/domain"
	"github.com/smallbiznis/shaadmin/internal/audit/masking"
	"github.com/smallbiznis/shaadmin/internal/clock"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
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
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, entry domain.Entry) error {
	if !entry.Action.Valid() {
		return domain.ErrInvalidAction
	}
	modelName := strings.TrimSpace(entry.ModelName)
	if modelName == "" {
		return domain.ErrInvalidModelName
	}
	if tx == nil {
		tx = s.db
	}

	changes := make([]domain.Change, 0, len(entry.Changes))
	for _, change := range entry.Changes {
		if masking.Sensitive(change.Field) {
			change.Before = masking.MaskValue(change.Before)
			change.After = masking.MaskValue(change.After)
		}
		changes = append(changes, change)
	}

	objectID := ""
	if entry.ObjectID != 0 {
		objectID = entry.ObjectID.String()
	}

	row := domain.AuditLog{
		ID:         s.genID.Generate(),
		UserID:     actorcontext.ActorOrSystem(ctx).UserIDPtr(),
		Action:     entry.Action,
		ModelName:  modelName,
		ObjectID:   objectID,
		ObjectRepr: strings.TrimSpace(entry.ObjectRepr),
		Changes:    datatypes.JSONSlice[domain.Change](changes),
		IPAddress:  actorcontext.IPAddressFromContext(ctx),
		UserAgent:  actorcontext.UserAgentFromContext(ctx),
		CreatedAt:  s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, tx, &row); err != nil {
		s.log.Error("failed to write audit log",
			zap.String("action", string(entry.Action)),
			zap.String("model", modelName),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req domain.ListAuditLogRequest) (domain.ListAuditLogResponse, error) {
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return domain.ListAuditLogResponse{}, domain.ErrInvalidTimeRange
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		if _, err := pagination.DecodeCursor(token); err != nil {
			return domain.ListAuditLogResponse{}, domain.ErrInvalidPageToken
		}
	}

	filter := domain.ListFilter{
		ModelName: strings.TrimSpace(req.ModelName),
		ObjectID:  strings.TrimSpace(req.ObjectID),
		StartAt:   req.StartAt,
		EndAt:     req.EndAt,
	}
	if action := strings.ToUpper(strings.TrimSpace(req.Action)); action != "" {
		filter.Action = domain.Action(action)
		if !filter.Action.Valid() {
			return domain.ListAuditLogResponse{}, domain.ErrInvalidAction
		}
	}
	if userID := strings.TrimSpace(req.UserID); userID != "" {
		id, err := snowflake.ParseString(userID)
		if err != nil || id == 0 {
			return domain.ListAuditLogResponse{}, domain.ErrInvalidUserID
		}
		filter.UserID = id
	}

	page := req.Pagination
	page.PageSize = pagination.Normalize(page.PageSize)

	items, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListAuditLogResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, page.PageSize, func(item *domain.AuditLog) string {
		return pagination.CursorFor(item.ID, item.CreatedAt)
	})
	return domain.ListAuditLogResponse{
		PageInfo:  *pageInfo,
		AuditLogs: pagination.Trim(items, page.PageSize),
	}, nil
}
