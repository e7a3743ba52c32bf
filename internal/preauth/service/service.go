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
	"github.com/smallbiznis/shaadmin/internal/attachment"
	auditdomain "github.com/smallbiznis/shaadmin/internal/audit/domain"
	"github.com/smallbiznis/shaadmin/internal/clock"
	"github.com/smallbiznis/shaadmin/internal/config"
	"github.com/smallbiznis/shaadmin/internal/events"
	notificationdomain "github.com/smallbiznis/shaadmin/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/shaadmin/internal/observability/metrics"
	"github.com/smallbiznis/shaadmin/internal/preauth/domain"
	referencedomain "github.com/smallbiznis/shaadmin/internal/reference/domain"
	"github.com/smallbiznis/shaadmin/pkg/civil"
	"github.com/smallbiznis/shaadmin/pkg/db"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const modelName = "preauthorization"

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Policy    *config.SchemePolicyHolder
	Reference referencedomain.Service
	AuditSvc  auditdomain.Service
	Notify    notificationdomain.Service
	Emitter   *events.Emitter
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	policy    *config.SchemePolicyHolder
	reference referencedomain.Service
	auditSvc  auditdomain.Service
	notify    notificationdomain.Service
	emitter   *events.Emitter
	metrics   *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("preauth.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		policy:    p.Policy,
		reference: p.Reference,
		auditSvc:  p.AuditSvc,
		notify:    p.Notify,
		emitter:   p.Emitter,
		metrics:   p.Metrics,
	}
}

func (s *Service) Request(ctx context.Context, req domain.RequestRequest) (*domain.PreAuthorization, error) {
	diagnosis := strings.TrimSpace(req.Diagnosis)
	if diagnosis == "" {
		return nil, domain.ErrInvalidDiagnosis
	}
	procedure := strings.TrimSpace(req.ProcedureDescription)
	if procedure == "" {
		return nil, domain.ErrInvalidProcedure
	}
	if req.EstimatedCost <= 0 {
		return nil, domain.ErrInvalidEstimatedCost
	}
	now := s.clock.Now()
	planned := civil.TimePtr(req.PlannedProcedureDate)
	if planned != nil && planned.Before(civil.Of(now).Time) {
		return nil, domain.ErrInvalidPlannedDate
	}
	docs, err := attachment.Normalize(req.SupportingDocuments)
	if err != nil {
		return nil, err
	}

	providerID := req.ProviderID
	p := domain.PreAuthorization{
		ID:                   s.genID.Generate(),
		MemberID:             req.MemberID,
		ProviderID:           &providerID,
		BenefitServiceID:     req.BenefitServiceID,
		Diagnosis:            diagnosis,
		ProcedureDescription: procedure,
		EstimatedCost:        req.EstimatedCost,
		RequestedDate:        now,
		PlannedProcedureDate: planned,
		SupportingDocuments:  docs,
		Status:               domain.StatusPending,
		SubmittedBy:          actorcontext.ActorOrSystem(ctx).UserIDPtr(),
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		checks := []struct {
			lookup func(context.Context, *gorm.DB, snowflake.ID) (domain.Party, error)
			id     snowflake.ID
			err    error
		}{
			{s.repo.Member, req.MemberID, domain.ErrInvalidMember},
			{s.repo.Provider, req.ProviderID, domain.ErrInvalidProvider},
			{s.repo.BenefitService, req.BenefitServiceID, domain.ErrInvalidBenefitService},
		}
		for _, check := range checks {
			party, err := check.lookup(ctx, tx, check.id)
			if err != nil {
				return err
			}
			if !party.Found || !party.Active {
				return check.err
			}
		}

		code, err := s.reference.Issue(ctx, tx, referencedomain.FamilyPreAuth, req.AuthorizationNumber)
		if err != nil {
			return err
		}
		p.AuthorizationNumber = code
		if err := s.repo.Insert(ctx, tx, &p); err != nil {
			return err
		}

		var changes auditdomain.ChangeSet
		changes.Set("authorization_number", p.AuthorizationNumber)
		changes.Set("estimated_cost", p.EstimatedCost)
		changes.Set("status", string(p.Status))
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionCreate,
			ModelName:  modelName,
			ObjectID:   p.ID,
			ObjectRepr: p.AuthorizationNumber,
			Changes:    changes,
		})
	})
	if err != nil {
		if _, dup := db.DuplicateKey(err, "authorization_number"); dup {
			return nil, domain.ErrDuplicateAuthorizationNumber
		}
		return nil, err
	}

	s.log.Info("preauthorization requested",
		zap.String("preauthorization_id", p.ID.String()),
		zap.String("authorization_number", p.AuthorizationNumber),
		zap.Int64("estimated_cost", p.EstimatedCost),
	)
	s.emitter.Emit(ctx, events.Event{
		Type:      events.PreAuthRequested,
		EntityID:  p.ID,
		Reference: p.AuthorizationNumber,
		Payload: map[string]any{
			"member_id":      p.MemberID.String(),
			"estimated_cost": p.EstimatedCost,
		},
	})
	return &p, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.PreAuthorization, error) {
	p, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	var filter domain.ListFilter
	if req.Status != "" {
		filter.Status = domain.Status(strings.ToUpper(req.Status))
		if !filter.Status.Valid() {
			return domain.ListResponse{}, domain.ErrInvalidStatus
		}
	}
	if req.MemberID != "" {
		id, err := snowflake.ParseString(req.MemberID)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidMember
		}
		filter.MemberID = id
	}
	if req.ProviderID != "" {
		id, err := snowflake.ParseString(req.ProviderID)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidProvider
		}
		filter.ProviderID = id
	}

	page := req.Pagination
	page.PageSize = pagination.Normalize(page.PageSize)
	items, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListResponse{}, err
	}
	info := pagination.BuildCursorPageInfo(items, page.PageSize, func(p *domain.PreAuthorization) string {
		return pagination.CursorFor(p.ID, p.CreatedAt)
	})
	return domain.ListResponse{
		PageInfo:          *info,
		PreAuthorizations: pagination.Trim(items, page.PageSize),
	}, nil
}

func (s *Service) Approve(ctx context.Context, id snowflake.ID, amount *int64) (*domain.PreAuthorization, error) {
	return s.decide(ctx, id, domain.StatusApproved, func(p *domain.PreAuthorization, now time.Time) (map[string]any, error) {
		approved := p.EstimatedCost
		if amount != nil {
			if *amount <= 0 || *amount > p.EstimatedCost {
				return nil, domain.ErrInvalidApprovedAmount
			}
			approved = *amount
		}
		validUntil := now.AddDate(0, 0, s.policy.Get().PreAuthValidityDays)
		return map[string]any{
			"approved_amount": approved,
			"approval_date":   now,
			"approved_by":     actorcontext.ActorOrSystem(ctx).UserIDPtr(),
			"valid_until":     validUntil,
		}, nil
	})
}

func (s *Service) Reject(ctx context.Context, id snowflake.ID, reason string) (*domain.PreAuthorization, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.ErrInvalidRejectionReason
	}
	return s.decide(ctx, id, domain.StatusRejected, func(*domain.PreAuthorization, time.Time) (map[string]any, error) {
		return map[string]any{"rejection_reason": reason}, nil
	})
}

// decide moves one PENDING record to to. fields supplies the columns that
// accompany the status change.
func (s *Service) decide(ctx context.Context, id snowflake.ID, to domain.Status, fields func(*domain.PreAuthorization, time.Time) (map[string]any, error)) (*domain.PreAuthorization, error) {
	var out *domain.PreAuthorization
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.ErrNotFound
		}
		if !domain.CanTransition(p.Status, to) {
			return domain.ErrInvalidTransition
		}

		now := s.clock.Now()
		update, err := fields(p, now)
		if err != nil {
			return err
		}
		update["status"] = to
		update["updated_at"] = now
		n, err := s.repo.Transition(ctx, tx, []snowflake.ID{id}, domain.Sources(to), update)
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrInvalidTransition
		}

		out, err = s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.auditDecision(ctx, tx, out, p.Status); err != nil {
			return err
		}
		return s.notifyDecision(ctx, tx, []snowflake.ID{id}, to)
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			s.metrics.RecordRejectedTransition(ctx, modelName, string(to))
		}
		return nil, err
	}

	s.metrics.RecordTransition(ctx, modelName, string(to), 1)
	s.emitter.Emit(ctx, decisionEvent(out, to))
	return out, nil
}

func (s *Service) auditDecision(ctx context.Context, tx *gorm.DB, p *domain.PreAuthorization, from domain.Status) error {
	action := auditdomain.ActionUpdate
	var changes auditdomain.ChangeSet
	changes.Add("status", string(from), string(p.Status))
	switch p.Status {
	case domain.StatusApproved:
		action = auditdomain.ActionApprove
		if p.ApprovedAmount != nil {
			changes.Set("approved_amount", *p.ApprovedAmount)
		}
	case domain.StatusRejected:
		action = auditdomain.ActionReject
		changes.Set("rejection_reason", p.RejectionReason)
	}
	return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
		Action:     action,
		ModelName:  modelName,
		ObjectID:   p.ID,
		ObjectRepr: p.AuthorizationNumber,
		Changes:    changes,
	})
}

func (s *Service) notifyDecision(ctx context.Context, tx *gorm.DB, ids []snowflake.ID, to domain.Status) error {
	recipients, err := s.repo.Recipients(ctx, tx, ids)
	if err != nil {
		return err
	}
	for _, r := range recipients {
		msg := notificationdomain.Message{
			UserID:  r.UserID,
			Related: notificationdomain.RelatedTo(notificationdomain.KindPreAuthorization, r.ID),
		}
		switch to {
		case domain.StatusApproved:
			msg.Type = notificationdomain.TypePreAuthApproved
			msg.Title = "Pre-authorization approved"
			msg.Body = fmt.Sprintf("Pre-authorization %s has been approved.", r.AuthorizationNumber)
		case domain.StatusRejected:
			msg.Type = notificationdomain.TypePreAuthRejected
			msg.Title = "Pre-authorization rejected"
			msg.Body = fmt.Sprintf("Pre-authorization %s has been rejected.", r.AuthorizationNumber)
		default:
			continue
		}
		if err := s.notify.Notify(ctx, tx, msg); err != nil {
			return err
		}
	}
	return nil
}

func decisionEvent(p *domain.PreAuthorization, to domain.Status) events.Event {
	ev := events.Event{EntityID: p.ID, Reference: p.AuthorizationNumber}
	switch to {
	case domain.StatusApproved:
		ev.Type = events.PreAuthApproved
		if p.ApprovedAmount != nil {
			ev.Payload = map[string]any{"approved_amount": *p.ApprovedAmount}
		}
	case domain.StatusRejected:
		ev.Type = events.PreAuthRejected
	default:
		ev.Type = events.PreAuthExpired
	}
	return ev
}

func (s *Service) BulkApprove(ctx context.Context, ids []snowflake.ID) (domain.BulkResult, error) {
	return s.bulkDecide(ctx, ids, domain.StatusApproved, func(now time.Time) map[string]any {
		return map[string]any{
			"approved_amount": gorm.Expr("estimated_cost"),
			"approval_date":   now,
			"approved_by":     actorcontext.ActorOrSystem(ctx).UserIDPtr(),
			"valid_until":     now.AddDate(0, 0, s.policy.Get().PreAuthValidityDays),
		}
	})
}

func (s *Service) BulkReject(ctx context.Context, ids []snowflake.ID, reason string) (domain.BulkResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.BulkResult{Requested: len(ids)}, domain.ErrInvalidRejectionReason
	}
	return s.bulkDecide(ctx, ids, domain.StatusRejected, func(time.Time) map[string]any {
		return map[string]any{"rejection_reason": reason}
	})
}

func (s *Service) bulkDecide(ctx context.Context, ids []snowflake.ID, to domain.Status, fields func(time.Time) map[string]any) (domain.BulkResult, error) {
	ids = dedupe(ids)
	result := domain.BulkResult{Requested: len(ids)}
	if len(ids) == 0 {
		return result, domain.ErrInvalidIDs
	}

	var changed []*domain.PreAuthorization
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		from := domain.Sources(to)
		eligible, err := s.repo.IDsInStatus(ctx, tx, ids, from)
		if err != nil || len(eligible) == 0 {
			return err
		}
		now := s.clock.Now()
		update := fields(now)
		update["status"] = to
		update["updated_at"] = now
		n, err := s.repo.Transition(ctx, tx, eligible, from, update)
		if err != nil {
			return err
		}
		result.Updated = n

		changed, err = s.auditTransitions(ctx, tx, eligible, domain.StatusPending)
		if err != nil {
			return err
		}
		return s.notifyDecision(ctx, tx, eligible, to)
	})
	if err != nil {
		return domain.BulkResult{Requested: len(ids)}, err
	}

	s.metrics.RecordTransition(ctx, modelName, string(to), result.Updated)
	s.log.Info("preauthorizations updated",
		zap.String("status", string(to)),
		zap.Int("requested", result.Requested),
		zap.Int64("updated", result.Updated),
	)
	evs := make([]events.Event, 0, len(changed))
	for _, p := range changed {
		evs = append(evs, decisionEvent(p, to))
	}
	s.emitter.Emit(ctx, evs...)
	return result, nil
}

// auditTransitions reloads ids after a transition and writes one entry each.
func (s *Service) auditTransitions(ctx context.Context, tx *gorm.DB, ids []snowflake.ID, from domain.Status) ([]*domain.PreAuthorization, error) {
	out := make([]*domain.PreAuthorization, 0, len(ids))
	for _, id := range ids {
		p, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		if err := s.auditDecision(ctx, tx, p, from); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ExpireStale moves approvals whose validity ended before now to EXPIRED.
func (s *Service) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	var (
		n       int64
		expired []*domain.PreAuthorization
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids, err := s.repo.ExpiredIDs(ctx, tx, now)
		if err != nil || len(ids) == 0 {
			return err
		}
		n, err = s.repo.Transition(ctx, tx, ids, domain.Sources(domain.StatusExpired), map[string]any{
			"status":     domain.StatusExpired,
			"updated_at": s.clock.Now(),
		})
		if err != nil {
			return err
		}
		expired, err = s.auditTransitions(ctx, tx, ids, domain.StatusApproved)
		return err
	})
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	s.metrics.RecordTransition(ctx, modelName, string(domain.StatusExpired), n)
	s.log.Info("preauthorizations expired", zap.Int64("count", n))
	evs := make([]events.Event, 0, len(expired))
	for _, p := range expired {
		evs = append(evs, decisionEvent(p, domain.StatusExpired))
	}
	s.emitter.Emit(ctx, evs...)
	return n, nil
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
