package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/internal/actorcontext"
	auditdomain "github.com/smallbiznis/shaadmin/internal/audit/domain"
	"github.com/smallbiznis/shaadmin/internal/clock"
	"github.com/smallbiznis/shaadmin/internal/config"
	"github.com/smallbiznis/shaadmin/internal/contribution/domain"
	"github.com/smallbiznis/shaadmin/internal/events"
	notificationdomain "github.com/smallbiznis/shaadmin/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/shaadmin/internal/observability/metrics"
	"github.com/smallbiznis/shaadmin/pkg/civil"
	"github.com/smallbiznis/shaadmin/pkg/db"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"github.com/smallbiznis/shaadmin/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const modelName = "contribution"

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Policy   *config.SchemePolicyHolder
	AuditSvc auditdomain.Service
	Notify   notificationdomain.Service
	Emitter  *events.Emitter
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	policy   *config.SchemePolicyHolder
	auditSvc auditdomain.Service
	notify   notificationdomain.Service
	emitter  *events.Emitter
	metrics  *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("contribution.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		policy:   p.Policy,
		auditSvc: p.AuditSvc,
		notify:   p.Notify,
		emitter:  p.Emitter,
		metrics:  p.Metrics,
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordRequest) (*domain.Contribution, error) {
	if req.MemberID == 0 {
		return nil, domain.ErrInvalidMember
	}
	if req.ContributionMonth.IsZero() {
		return nil, domain.ErrInvalidContributionMonth
	}
	method := domain.PaymentMethod(strings.ToUpper(strings.TrimSpace(req.PaymentMethod)))
	if !method.Valid() {
		return nil, domain.ErrInvalidPaymentMethod
	}
	reference := strings.TrimSpace(req.TransactionReference)
	if reference == "" {
		return nil, domain.ErrInvalidTransactionReference
	}
	status := domain.StatusPending
	if req.Status != "" {
		status = domain.Status(strings.ToUpper(strings.TrimSpace(req.Status)))
		if !status.Valid() || status == domain.StatusReversed {
			return nil, domain.ErrInvalidStatus
		}
	}

	policy := s.policy.Get()
	rate := policy.ContributionRateBps
	if req.ContributionRate != nil {
		rate = *req.ContributionRate
		if rate <= 0 || rate > 10000 {
			return nil, domain.ErrInvalidContributionRate
		}
	}

	var amount int64
	switch {
	case req.ContributionAmount != nil:
		amount = *req.ContributionAmount
		if amount < policy.MinimumContribution {
			return nil, domain.ErrInvalidContributionAmount
		}
	case req.GrossSalary != nil:
		if *req.GrossSalary <= 0 {
			return nil, domain.ErrInvalidGrossSalary
		}
		amount = domain.ComputeAmount(*req.GrossSalary, rate, policy.MinimumContribution)
	default:
		return nil, domain.ErrInvalidContributionAmount
	}

	now := s.clock.Now()
	paymentDate := now
	if req.PaymentDate != nil && !req.PaymentDate.IsZero() {
		paymentDate = req.PaymentDate.UTC()
	}
	c := domain.Contribution{
		ID:                   s.genID.Generate(),
		MemberID:             req.MemberID,
		ContributionMonth:    civil.FirstOfMonth(req.ContributionMonth.Time),
		GrossSalary:          req.GrossSalary,
		ContributionAmount:   amount,
		ContributionRate:     rate,
		PaymentMethod:        method,
		TransactionReference: reference,
		PaymentDate:          paymentDate,
		Status:               status,
		SubmittedBy:          actorcontext.ActorOrSystem(ctx).UserIDPtr(),
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, memberEmployer, err := s.repo.MemberEmployer(ctx, tx, c.MemberID)
		if err != nil {
			return err
		}
		if !found {
			return domain.ErrInvalidMember
		}
		c.EmployerID = memberEmployer
		if req.EmployerID != nil && *req.EmployerID != 0 {
			ok, err := s.repo.EmployerExists(ctx, tx, *req.EmployerID)
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrInvalidEmployer
			}
			c.EmployerID = req.EmployerID
		}

		if err := s.repo.Insert(ctx, tx, &c); err != nil {
			return err
		}

		var changes auditdomain.ChangeSet
		changes.Set("contribution_month", civil.Of(c.ContributionMonth).String())
		changes.Set("contribution_amount", c.ContributionAmount)
		changes.Set("transaction_reference", c.TransactionReference)
		changes.Set("status", string(c.Status))
		if err := s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionCreate,
			ModelName:  modelName,
			ObjectID:   c.ID,
			ObjectRepr: repr(&c),
			Changes:    changes,
		}); err != nil {
			return err
		}
		if c.Status == domain.StatusCompleted {
			return s.notifyReceived(ctx, tx, []snowflake.ID{c.ID})
		}
		return nil
	})
	if err != nil {
		return nil, translateDuplicate(err)
	}

	s.log.Info("contribution recorded",
		zap.String("contribution_id", c.ID.String()),
		zap.String("member_id", c.MemberID.String()),
		zap.Int64("amount", c.ContributionAmount),
		zap.String("status", string(c.Status)),
	)
	evs := []events.Event{contributionEvent(events.ContributionRecorded, &c)}
	if c.Status == domain.StatusCompleted {
		evs = append(evs, contributionEvent(events.ContributionCompleted, &c))
	}
	s.emitter.Emit(ctx, evs...)
	return &c, nil
}

func translateDuplicate(err error) error {
	key, ok := db.DuplicateKey(err, "transaction_reference", "contribution_month", "member_month")
	if !ok {
		return err
	}
	if key == "transaction_reference" {
		return domain.ErrDuplicateTransactionReference
	}
	return domain.ErrDuplicateContribution
}

func repr(c *domain.Contribution) string {
	return fmt.Sprintf("%s %s", c.TransactionReference, civil.Of(c.ContributionMonth).Time.Format("2006-01"))
}

func contributionEvent(t events.Type, c *domain.Contribution) events.Event {
	return events.Event{
		Type:      t,
		EntityID:  c.ID,
		Reference: c.TransactionReference,
		Payload: map[string]any{
			"member_id":          c.MemberID.String(),
			"amount":             c.ContributionAmount,
			"contribution_month": civil.Of(c.ContributionMonth).String(),
		},
	}
}

func (s *Service) notifyReceived(ctx context.Context, tx *gorm.DB, ids []snowflake.ID) error {
	recipients, err := s.repo.Recipients(ctx, tx, ids)
	if err != nil {
		return err
	}
	for _, r := range recipients {
		err := s.notify.Notify(ctx, tx, notificationdomain.Message{
			UserID: r.UserID,
			Type:   notificationdomain.TypeContributionReceived,
			Title:  "Contribution received",
			Body: fmt.Sprintf("Your contribution of KES %s for %s has been received.",
				money.Format(r.Amount), r.Month.Format("January 2006")),
			Related: notificationdomain.RelatedTo(notificationdomain.KindContribution, r.ContributionID),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Contribution, error) {
	c, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	var filter domain.ListFilter
	if req.MemberID != "" {
		id, err := snowflake.ParseString(req.MemberID)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidMember
		}
		filter.MemberID = id
	}
	if req.EmployerID != "" {
		id, err := snowflake.ParseString(req.EmployerID)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidEmployer
		}
		filter.EmployerID = id
	}
	if req.Status != "" {
		filter.Status = domain.Status(strings.ToUpper(req.Status))
		if !filter.Status.Valid() {
			return domain.ListResponse{}, domain.ErrInvalidStatus
		}
	}
	for _, bound := range []struct {
		raw string
		dst **time.Time
	}{{req.MonthFrom, &filter.MonthFrom}, {req.MonthTo, &filter.MonthTo}} {
		if bound.raw == "" {
			continue
		}
		d, err := civil.Parse(bound.raw)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidContributionMonth
		}
		month := civil.FirstOfMonth(d.Time)
		*bound.dst = &month
	}

	page := req.Pagination
	page.PageSize = pagination.Normalize(page.PageSize)
	items, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListResponse{}, err
	}
	info := pagination.BuildCursorPageInfo(items, page.PageSize, func(c *domain.Contribution) string {
		return pagination.CursorFor(c.ID, c.CreatedAt)
	})
	return domain.ListResponse{
		PageInfo:      *info,
		Contributions: pagination.Trim(items, page.PageSize),
	}, nil
}

func (s *Service) BulkMarkCompleted(ctx context.Context, ids []snowflake.ID) (domain.BulkResult, error) {
	return s.bulkSet(ctx, ids, domain.StatusCompleted, events.ContributionCompleted)
}

func (s *Service) BulkMarkFailed(ctx context.Context, ids []snowflake.ID) (domain.BulkResult, error) {
	return s.bulkSet(ctx, ids, domain.StatusFailed, events.ContributionFailed)
}

// bulkSet applies to every selected row regardless of its current status;
// rows already in the target status are left alone and not counted.
func (s *Service) bulkSet(ctx context.Context, ids []snowflake.ID, to domain.Status, eventType events.Type) (domain.BulkResult, error) {
	ids = dedupe(ids)
	result := domain.BulkResult{Requested: len(ids)}
	if len(ids) == 0 {
		return result, domain.ErrInvalidIDs
	}

	var changed []snowflake.ID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		changed, err = s.repo.IDsNotIn(ctx, tx, ids, to)
		if err != nil || len(changed) == 0 {
			return err
		}
		n, err := s.repo.SetStatus(ctx, tx, changed, nil, to, s.clock.Now())
		if err != nil {
			return err
		}
		result.Updated = n

		for _, id := range changed {
			var changes auditdomain.ChangeSet
			changes.Set("status", string(to))
			if err := s.auditSvc.Record(ctx, tx, auditdomain.Entry{
				Action:    auditdomain.ActionUpdate,
				ModelName: modelName,
				ObjectID:  id,
				Changes:   changes,
			}); err != nil {
				return err
			}
		}
		if to == domain.StatusCompleted {
			return s.notifyReceived(ctx, tx, changed)
		}
		return nil
	})
	if err != nil {
		return domain.BulkResult{Requested: len(ids)}, err
	}

	s.metrics.RecordTransition(ctx, modelName, string(to), result.Updated)
	s.log.Info("contributions updated",
		zap.String("status", string(to)),
		zap.Int("requested", result.Requested),
		zap.Int64("updated", result.Updated),
	)
	evs := make([]events.Event, 0, len(changed))
	for _, id := range changed {
		evs = append(evs, events.Event{Type: eventType, EntityID: id})
	}
	s.emitter.Emit(ctx, evs...)
	return result, nil
}

func dedupe(ids []snowflake.ID) []snowflake.ID {
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		if id != 0 && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func (s *Service) Reverse(ctx context.Context, id snowflake.ID) (*domain.Contribution, error) {
	var out *domain.Contribution
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := s.repo.SetStatus(ctx, tx, []snowflake.ID{id}, domain.ReverseSources(), domain.StatusReversed, s.clock.Now())
		if err != nil {
			return err
		}
		c, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return domain.ErrNotFound
		}
		if n == 0 {
			return domain.ErrInvalidTransition
		}
		out = c

		var changes auditdomain.ChangeSet
		changes.Add("status", string(domain.StatusCompleted), string(c.Status))
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionUpdate,
			ModelName:  modelName,
			ObjectID:   c.ID,
			ObjectRepr: repr(c),
			Changes:    changes,
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			s.metrics.RecordRejectedTransition(ctx, modelName, string(domain.StatusReversed))
		}
		return nil, err
	}

	s.metrics.RecordTransition(ctx, modelName, string(domain.StatusReversed), 1)
	s.emitter.Emit(ctx, contributionEvent(events.ContributionReversed, out))
	return out, nil
}

func (s *Service) MemberSummary(ctx context.Context, memberID snowflake.ID) (domain.Summary, error) {
	found, _, err := s.repo.MemberEmployer(ctx, s.db, memberID)
	if err != nil {
		return domain.Summary{}, err
	}
	if !found {
		return domain.Summary{}, domain.ErrMemberNotFound
	}
	return s.repo.Summary(ctx, s.db, memberID)
}
