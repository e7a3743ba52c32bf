package service

import (
	"context"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/internal/actorcontext"
	"github.com/smallbiznis/shaadmin/internal/clock"
	"github.com/smallbiznis/shaadmin/internal/config"
	"github.com/smallbiznis/shaadmin/internal/eligibility/domain"
	"github.com/smallbiznis/shaadmin/internal/events"
	"github.com/smallbiznis/shaadmin/pkg/db/option"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"github.com/smallbiznis/shaadmin/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Store   repository.Repository[domain.Check]
	Policy  *config.SchemePolicyHolder
	Emitter *events.Emitter
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	store   repository.Repository[domain.Check]
	policy  *config.SchemePolicyHolder
	emitter *events.Emitter
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("eligibility.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		store:   p.Store,
		policy:  p.Policy,
		emitter: p.Emitter,
	}
}

func (s *Service) Check(ctx context.Context, req domain.CheckRequest) (*domain.Check, error) {
	now := s.clock.Now()
	since := domain.WindowStart(now, s.policy.Get().EligibilityGraceMonths)

	var check *domain.Check
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, active, err := s.repo.ProviderActive(ctx, tx, req.ProviderID)
		if err != nil {
			return err
		}
		if !found || !active {
			return domain.ErrInvalidProvider
		}
		standing, err := s.repo.Standing(ctx, tx, req.MemberID, since)
		if err != nil {
			return err
		}
		if !standing.Found {
			return domain.ErrInvalidMember
		}
		last, err := s.repo.LastContributionDate(ctx, tx, req.MemberID)
		if err != nil {
			return err
		}

		verdict := domain.Evaluate(standing)
		providerID := req.ProviderID
		check = &domain.Check{
			ID:                    s.genID.Generate(),
			MemberID:              req.MemberID,
			ProviderID:            &providerID,
			CheckDate:             now,
			IsEligible:            verdict.Eligible,
			ContributionsUpToDate: verdict.UpToDate,
			LastContributionDate:  last,
			IneligibilityReason:   verdict.Reason,
			CheckedBy:             actorcontext.ActorOrSystem(ctx).UserIDPtr(),
			CreatedAt:             now,
		}
		return s.store.WithTrx(tx).Create(ctx, check)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("eligibility checked",
		zap.String("member_id", check.MemberID.String()),
		zap.Bool("eligible", check.IsEligible),
		zap.String("reason", check.IneligibilityReason),
	)
	s.emitter.Emit(ctx, events.Event{
		Type:     events.EligibilityChecked,
		EntityID: check.ID,
		Payload: map[string]any{
			"member_id":   check.MemberID.String(),
			"provider_id": req.ProviderID.String(),
			"is_eligible": check.IsEligible,
		},
	})
	return check, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Check, error) {
	if id == 0 {
		return nil, domain.ErrNotFound
	}
	check, err := s.store.FindOne(ctx, &domain.Check{ID: id})
	if err != nil {
		return nil, err
	}
	if check == nil {
		return nil, domain.ErrNotFound
	}
	return check, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	query := &domain.Check{}
	var opts []option.QueryOption
	if req.MemberID != "" {
		id, err := snowflake.ParseString(req.MemberID)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidMember
		}
		query.MemberID = id
	}
	if req.ProviderID != "" {
		id, err := snowflake.ParseString(req.ProviderID)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidProvider
		}
		opts = append(opts, option.WithWhere("provider_id = ?", id))
	}
	if req.Eligible != "" {
		eligible, err := strconv.ParseBool(req.Eligible)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidEligible
		}
		opts = append(opts, option.WithWhere("is_eligible = ?", eligible))
	}

	page := req.Pagination
	page.PageSize = pagination.Normalize(page.PageSize)
	opts = append(opts, option.ApplyPagination(page), option.WithOrder("created_at desc, id desc"))
	items, err := s.store.Find(ctx, query, opts...)
	if err != nil {
		return domain.ListResponse{}, err
	}
	info := pagination.BuildCursorPageInfo(items, page.PageSize, func(c *domain.Check) string {
		return pagination.CursorFor(c.ID, c.CreatedAt)
	})
	return domain.ListResponse{
		PageInfo: *info,
		Checks:   pagination.Trim(items, page.PageSize),
	}, nil
}
