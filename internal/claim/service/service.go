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
	benefitdomain "github.com/smallbiznis/shaadmin/internal/benefit/domain"
	"github.com/smallbiznis/shaadmin/internal/claim/domain"
	"github.com/smallbiznis/shaadmin/internal/clock"
	"github.com/smallbiznis/shaadmin/internal/events"
	notificationdomain "github.com/smallbiznis/shaadmin/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/shaadmin/internal/observability/metrics"
	referencedomain "github.com/smallbiznis/shaadmin/internal/reference/domain"
	"github.com/smallbiznis/shaadmin/pkg/civil"
	"github.com/smallbiznis/shaadmin/pkg/db"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	modelName     = "claim"
	itemModelName = "claim_item"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
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
	reference referencedomain.Service
	auditSvc  auditdomain.Service
	notify    notificationdomain.Service
	emitter   *events.Emitter
	metrics   *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("claim.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		reference: p.Reference,
		auditSvc:  p.AuditSvc,
		notify:    p.Notify,
		emitter:   p.Emitter,
		metrics:   p.Metrics,
	}
}

func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) (*domain.Claim, error) {
	claimType := domain.Type(strings.ToUpper(strings.TrimSpace(req.ClaimType)))
	if !claimType.Valid() {
		return nil, domain.ErrInvalidClaimType
	}
	if req.VisitDate.IsZero() {
		return nil, domain.ErrInvalidVisitDate
	}
	diagnosis := strings.TrimSpace(req.Diagnosis)
	if diagnosis == "" {
		return nil, domain.ErrInvalidDiagnosis
	}
	admission := civil.TimePtr(req.AdmissionDate)
	discharge := civil.TimePtr(req.DischargeDate)
	if admission != nil && discharge != nil && discharge.Before(*admission) {
		return nil, domain.ErrInvalidDischargeDate
	}
	if len(req.Items) == 0 {
		return nil, domain.ErrInvalidItems
	}
	serviceIDs := make([]snowflake.ID, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, domain.ErrInvalidQuantity
		}
		if item.UnitPrice != nil && *item.UnitPrice < 0 {
			return nil, domain.ErrInvalidUnitPrice
		}
		if !slices.Contains(serviceIDs, item.BenefitServiceID) {
			serviceIDs = append(serviceIDs, item.BenefitServiceID)
		}
	}
	docs, err := attachment.Normalize(req.SupportingDocuments)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	providerID := req.ProviderID
	c := domain.Claim{
		ID:                  s.genID.Generate(),
		MemberID:            req.MemberID,
		ProviderID:          &providerID,
		BenefitPackageID:    req.BenefitPackageID,
		PreAuthorizationID:  nonZero(req.PreAuthorizationID),
		ClaimType:           claimType,
		VisitDate:           req.VisitDate.Time,
		AdmissionDate:       admission,
		DischargeDate:       discharge,
		Diagnosis:           diagnosis,
		ICDCode:             strings.ToUpper(strings.TrimSpace(req.ICDCode)),
		Status:              domain.StatusSubmitted,
		SubmissionDate:      now,
		SupportingDocuments: docs,
		SubmittedBy:         actorcontext.ActorOrSystem(ctx).UserIDPtr(),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkParties(ctx, tx, req, c.PreAuthorizationID); err != nil {
			return err
		}
		services, err := s.repo.PackageServices(ctx, tx, req.BenefitPackageID, serviceIDs)
		if err != nil {
			return err
		}
		byID := make(map[snowflake.ID]benefitdomain.BenefitService, len(services))
		for _, svc := range services {
			byID[svc.ID] = svc
		}

		c.Items = make([]domain.Item, 0, len(req.Items))
		for _, item := range req.Items {
			svc, ok := byID[item.BenefitServiceID]
			if !ok || !svc.IsActive {
				return domain.ErrInvalidBenefitService
			}
			price := svc.StandardTariff
			if item.UnitPrice != nil {
				price = *item.UnitPrice
			}
			serviceDate := c.VisitDate
			if !item.ServiceDate.IsZero() {
				serviceDate = item.ServiceDate.Time
			}
			total := price * int64(item.Quantity)
			c.ClaimedAmount += total
			c.CopaymentAmount += benefitdomain.Copayment(svc, item.Quantity, total)
			c.Items = append(c.Items, domain.Item{
				ID:               s.genID.Generate(),
				ClaimID:          c.ID,
				BenefitServiceID: svc.ID,
				ServiceDate:      serviceDate,
				Quantity:         item.Quantity,
				UnitPrice:        price,
				TotalAmount:      total,
				Notes:            strings.TrimSpace(item.Notes),
				CreatedAt:        now,
				UpdatedAt:        now,
			})
		}

		code, err := s.reference.Issue(ctx, tx, referencedomain.FamilyClaim, req.ClaimNumber)
		if err != nil {
			return err
		}
		c.ClaimNumber = code
		if err := s.repo.Insert(ctx, tx, &c); err != nil {
			return err
		}
		if err := s.repo.InsertItems(ctx, tx, c.Items); err != nil {
			return err
		}

		var changes auditdomain.ChangeSet
		changes.Set("claim_number", c.ClaimNumber)
		changes.Set("claimed_amount", c.ClaimedAmount)
		changes.Set("copayment_amount", c.CopaymentAmount)
		changes.Set("items", len(c.Items))
		changes.Set("status", string(c.Status))
		if err := s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionCreate,
			ModelName:  modelName,
			ObjectID:   c.ID,
			ObjectRepr: c.ClaimNumber,
			Changes:    changes,
		}); err != nil {
			return err
		}
		return s.notifyMembers(ctx, tx, []snowflake.ID{c.ID}, domain.StatusSubmitted)
	})
	if err != nil {
		if _, dup := db.DuplicateKey(err, "claim_number"); dup {
			return nil, domain.ErrDuplicateClaimNumber
		}
		return nil, err
	}

	s.log.Info("claim submitted",
		zap.String("claim_id", c.ID.String()),
		zap.String("claim_number", c.ClaimNumber),
		zap.Int64("claimed_amount", c.ClaimedAmount),
		zap.Int("items", len(c.Items)),
	)
	s.emitter.Emit(ctx, events.Event{
		Type:      events.ClaimSubmitted,
		EntityID:  c.ID,
		Reference: c.ClaimNumber,
		Payload: map[string]any{
			"member_id":        c.MemberID.String(),
			"claimed_amount":   c.ClaimedAmount,
			"copayment_amount": c.CopaymentAmount,
		},
	})
	return &c, nil
}

func (s *Service) checkParties(ctx context.Context, tx *gorm.DB, req domain.SubmitRequest, preauthID *snowflake.ID) error {
	member, err := s.repo.Member(ctx, tx, req.MemberID)
	if err != nil {
		return err
	}
	if !member.Found || !member.Active {
		return domain.ErrInvalidMember
	}
	provider, err := s.repo.Provider(ctx, tx, req.ProviderID)
	if err != nil {
		return err
	}
	if !provider.Found || !provider.Active {
		return domain.ErrInvalidProvider
	}
	ok, err := s.repo.PackageExists(ctx, tx, req.BenefitPackageID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidBenefitPackage
	}
	if preauthID != nil {
		owner, err := s.repo.PreAuthMember(ctx, tx, *preauthID)
		if err != nil {
			return err
		}
		if owner != req.MemberID {
			return domain.ErrInvalidPreAuthorization
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Claim, error) {
	c, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	c.Items, err = s.repo.FindItems(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	var filter domain.ListFilter
	if req.Status != "" {
		filter.Status = domain.Status(strings.ToUpper(req.Status))
		if !filter.Status.Valid() {
			return domain.ListResponse{}, domain.ErrInvalidStatus
		}
	}
	if req.ClaimType != "" {
		filter.ClaimType = domain.Type(strings.ToUpper(req.ClaimType))
		if !filter.ClaimType.Valid() {
			return domain.ListResponse{}, domain.ErrInvalidClaimType
		}
	}
	for _, ref := range []struct {
		raw string
		dst *snowflake.ID
		err error
	}{{req.MemberID, &filter.MemberID, domain.ErrInvalidMember}, {req.ProviderID, &filter.ProviderID, domain.ErrInvalidProvider}} {
		if ref.raw == "" {
			continue
		}
		id, err := snowflake.ParseString(ref.raw)
		if err != nil {
			return domain.ListResponse{}, ref.err
		}
		*ref.dst = id
	}
	for _, bound := range []struct {
		raw string
		dst **time.Time
	}{{req.VisitFrom, &filter.VisitFrom}, {req.VisitTo, &filter.VisitTo}} {
		if bound.raw == "" {
			continue
		}
		d, err := civil.Parse(bound.raw)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidVisitDate
		}
		*bound.dst = &d.Time
	}

	page := req.Pagination
	page.PageSize = pagination.Normalize(page.PageSize)
	items, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListResponse{}, err
	}
	info := pagination.BuildCursorPageInfo(items, page.PageSize, func(c *domain.Claim) string {
		return pagination.CursorFor(c.ID, c.CreatedAt)
	})
	return domain.ListResponse{
		PageInfo: *info,
		Claims:   pagination.Trim(items, page.PageSize),
	}, nil
}

func (s *Service) MarkUnderReview(ctx context.Context, id snowflake.ID) (*domain.Claim, error) {
	return s.move(ctx, id, domain.StatusUnderReview, func(_ *domain.Claim, now time.Time) (map[string]any, error) {
		return s.reviewFields(ctx, now), nil
	})
}

func (s *Service) Approve(ctx context.Context, id snowflake.ID, amount *int64) (*domain.Claim, error) {
	return s.move(ctx, id, domain.StatusApproved, func(c *domain.Claim, now time.Time) (map[string]any, error) {
		fields := s.approvalFields(ctx, now)
		if amount != nil {
			if *amount < 0 || *amount > c.ClaimedAmount {
				return nil, domain.ErrInvalidApprovedAmount
			}
			fields["approved_amount"] = *amount
			fields["rejected_amount"] = c.ClaimedAmount - *amount
		}
		return fields, nil
	})
}

func (s *Service) Reject(ctx context.Context, id snowflake.ID, reason string) (*domain.Claim, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.ErrInvalidRejectionReason
	}
	return s.move(ctx, id, domain.StatusRejected, func(*domain.Claim, time.Time) (map[string]any, error) {
		return map[string]any{"rejection_reason": reason}, nil
	})
}

func (s *Service) reviewFields(ctx context.Context, now time.Time) map[string]any {
	return map[string]any{
		"review_date": now,
		"reviewed_by": actorcontext.ActorOrSystem(ctx).UserIDPtr(),
	}
}

func (s *Service) approvalFields(ctx context.Context, now time.Time) map[string]any {
	return map[string]any{
		"approval_date": now,
		"approved_by":   actorcontext.ActorOrSystem(ctx).UserIDPtr(),
	}
}

// move applies one transition to a single claim. fields supplies the
// columns that accompany the status change.
func (s *Service) move(ctx context.Context, id snowflake.ID, to domain.Status, fields func(*domain.Claim, time.Time) (map[string]any, error)) (*domain.Claim, error) {
	var out *domain.Claim
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return domain.ErrNotFound
		}
		if !domain.CanTransition(c.Status, to) {
			return domain.ErrInvalidTransition
		}
		out, err = s.transition(ctx, tx, c, to, fields)
		if err != nil {
			return err
		}
		if out == nil {
			return domain.ErrInvalidTransition
		}
		return s.notifyMembers(ctx, tx, []snowflake.ID{id}, to)
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			s.metrics.RecordRejectedTransition(ctx, modelName, string(to))
		}
		return nil, err
	}

	s.metrics.RecordTransition(ctx, modelName, string(to), 1)
	s.log.Info("claim transitioned",
		zap.String("claim_number", out.ClaimNumber),
		zap.String("status", string(to)),
	)
	s.emitter.Emit(ctx, transitionEvent(out))
	return out, nil
}

// transition performs the guarded update for c and audits it. It returns nil
// when the row had already left its source state.
func (s *Service) transition(ctx context.Context, tx *gorm.DB, c *domain.Claim, to domain.Status, fields func(*domain.Claim, time.Time) (map[string]any, error)) (*domain.Claim, error) {
	now := s.clock.Now()
	update, err := fields(c, now)
	if err != nil {
		return nil, err
	}
	update["status"] = to
	update["updated_at"] = now
	n, err := s.repo.Transition(ctx, tx, []snowflake.ID{c.ID}, []domain.Status{c.Status}, update)
	if err != nil || n == 0 {
		return nil, err
	}

	out, err := s.repo.FindByID(ctx, tx, c.ID)
	if err != nil {
		return nil, err
	}
	if err := s.auditTransition(ctx, tx, c.Status, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) auditTransition(ctx context.Context, tx *gorm.DB, from domain.Status, c *domain.Claim) error {
	action := auditdomain.ActionUpdate
	var changes auditdomain.ChangeSet
	changes.Add("status", string(from), string(c.Status))
	switch c.Status {
	case domain.StatusApproved:
		action = auditdomain.ActionApprove
		if c.ApprovedAmount != nil {
			changes.Set("approved_amount", *c.ApprovedAmount)
		}
	case domain.StatusRejected:
		action = auditdomain.ActionReject
		changes.Set("rejection_reason", c.RejectionReason)
	case domain.StatusPaid:
		action = auditdomain.ActionPayment
	}
	return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
		Action:     action,
		ModelName:  modelName,
		ObjectID:   c.ID,
		ObjectRepr: c.ClaimNumber,
		Changes:    changes,
	})
}

func (s *Service) notifyMembers(ctx context.Context, tx *gorm.DB, ids []snowflake.ID, status domain.Status) error {
	var (
		kind  notificationdomain.Type
		title string
		verb  string
	)
	switch status {
	case domain.StatusSubmitted:
		kind, title, verb = notificationdomain.TypeClaimSubmitted, "Claim submitted", "has been submitted"
	case domain.StatusApproved:
		kind, title, verb = notificationdomain.TypeClaimApproved, "Claim approved", "has been approved"
	case domain.StatusRejected:
		kind, title, verb = notificationdomain.TypeClaimRejected, "Claim rejected", "has been rejected"
	default:
		return nil
	}

	recipients, err := s.repo.Recipients(ctx, tx, ids)
	if err != nil {
		return err
	}
	for _, r := range recipients {
		if err := s.notify.Notify(ctx, tx, notificationdomain.Message{
			UserID:  r.UserID,
			Type:    kind,
			Title:   title,
			Body:    fmt.Sprintf("Claim %s %s.", r.ClaimNumber, verb),
			Related: notificationdomain.RelatedTo(notificationdomain.KindClaim, r.ID),
		}); err != nil {
			return err
		}
	}
	return nil
}

func transitionEvent(c *domain.Claim) events.Event {
	ev := events.Event{EntityID: c.ID, Reference: c.ClaimNumber}
	switch c.Status {
	case domain.StatusUnderReview:
		ev.Type = events.ClaimUnderReview
	case domain.StatusApproved:
		ev.Type = events.ClaimApproved
		if c.ApprovedAmount != nil {
			ev.Payload = map[string]any{"approved_amount": *c.ApprovedAmount}
		}
	case domain.StatusRejected:
		ev.Type = events.ClaimRejected
	case domain.StatusPaid:
		ev.Type = events.ClaimPaid
	}
	return ev
}

func (s *Service) MarkPaid(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Claim, error) {
	c, err := s.repo.FindByID(ctx, tx, id)
	if err != nil || c == nil {
		return nil, err
	}
	if !domain.CanTransition(c.Status, domain.StatusPaid) {
		return nil, nil
	}
	return s.transition(ctx, tx, c, domain.StatusPaid, func(_ *domain.Claim, now time.Time) (map[string]any, error) {
		return map[string]any{"payment_date": now}, nil
	})
}

func (s *Service) BulkMarkUnderReview(ctx context.Context, ids []snowflake.ID) (domain.BulkResult, error) {
	return s.bulkMove(ctx, ids, domain.StatusUnderReview, func(now time.Time) map[string]any {
		return s.reviewFields(ctx, now)
	})
}

// BulkApprove keeps whatever approved amounts reviewers already recorded.
func (s *Service) BulkApprove(ctx context.Context, ids []snowflake.ID) (domain.BulkResult, error) {
	return s.bulkMove(ctx, ids, domain.StatusApproved, func(now time.Time) map[string]any {
		return s.approvalFields(ctx, now)
	})
}

func (s *Service) BulkReject(ctx context.Context, ids []snowflake.ID, reason string) (domain.BulkResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.BulkResult{Requested: len(ids)}, domain.ErrInvalidRejectionReason
	}
	return s.bulkMove(ctx, ids, domain.StatusRejected, func(time.Time) map[string]any {
		return map[string]any{"rejection_reason": reason}
	})
}

func (s *Service) bulkMove(ctx context.Context, ids []snowflake.ID, to domain.Status, fields func(time.Time) map[string]any) (domain.BulkResult, error) {
	ids = dedupe(ids)
	result := domain.BulkResult{Requested: len(ids)}
	if len(ids) == 0 {
		return result, domain.ErrInvalidIDs
	}

	var changed []*domain.Claim
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sources := domain.Sources(to)
		eligible, err := s.repo.IDsInStatus(ctx, tx, ids, sources)
		if err != nil || len(eligible) == 0 {
			return err
		}
		before := make(map[snowflake.ID]domain.Status, len(eligible))
		for _, id := range eligible {
			c, err := s.repo.FindByID(ctx, tx, id)
			if err != nil {
				return err
			}
			before[id] = c.Status
		}

		now := s.clock.Now()
		update := fields(now)
		update["status"] = to
		update["updated_at"] = now
		n, err := s.repo.Transition(ctx, tx, eligible, sources, update)
		if err != nil {
			return err
		}
		result.Updated = n

		for _, id := range eligible {
			c, err := s.repo.FindByID(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := s.auditTransition(ctx, tx, before[id], c); err != nil {
				return err
			}
			changed = append(changed, c)
		}
		return s.notifyMembers(ctx, tx, eligible, to)
	})
	if err != nil {
		return domain.BulkResult{Requested: len(ids)}, err
	}

	s.metrics.RecordTransition(ctx, modelName, string(to), result.Updated)
	s.log.Info("claims updated",
		zap.String("status", string(to)),
		zap.Int("requested", result.Requested),
		zap.Int64("updated", result.Updated),
	)
	evs := make([]events.Event, 0, len(changed))
	for _, c := range changed {
		evs = append(evs, transitionEvent(c))
	}
	s.emitter.Emit(ctx, evs...)
	return result, nil
}

func (s *Service) AdjustItem(ctx context.Context, claimID, itemID snowflake.ID, req domain.AdjustItemRequest) (*domain.Item, error) {
	var out *domain.Item
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.repo.FindByID(ctx, tx, claimID)
		if err != nil {
			return err
		}
		if c == nil {
			return domain.ErrNotFound
		}
		if !c.Status.Adjustable() {
			return domain.ErrInvalidTransition
		}
		item, err := s.repo.FindItem(ctx, tx, claimID, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrItemNotFound
		}
		out = item

		fields := map[string]any{}
		var changes auditdomain.ChangeSet
		if req.ApprovedQuantity != nil {
			qty := *req.ApprovedQuantity
			if qty < 0 || qty > item.Quantity {
				return domain.ErrInvalidApprovedQuantity
			}
			changes.Add("approved_quantity", deref(item.ApprovedQuantity), qty)
			fields["approved_quantity"] = qty
			item.ApprovedQuantity = &qty
			if req.ApprovedAmount == nil {
				amount := int64(qty) * item.UnitPrice
				req.ApprovedAmount = &amount
			}
		}
		if req.ApprovedAmount != nil {
			amount := *req.ApprovedAmount
			if amount < 0 || amount > item.TotalAmount {
				return domain.ErrInvalidApprovedAmount
			}
			changes.Add("approved_amount", deref(item.ApprovedAmount), amount)
			fields["approved_amount"] = amount
			item.ApprovedAmount = &amount
		}
		if req.Notes != nil {
			notes := strings.TrimSpace(*req.Notes)
			changes.Add("notes", item.Notes, notes)
			fields["notes"] = notes
			item.Notes = notes
		}
		if len(changes) == 0 {
			return nil
		}

		item.UpdatedAt = s.clock.Now()
		fields["updated_at"] = item.UpdatedAt
		if err := s.repo.UpdateItem(ctx, tx, itemID, fields); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionUpdate,
			ModelName:  itemModelName,
			ObjectID:   item.ID,
			ObjectRepr: c.ClaimNumber,
			Changes:    changes,
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func deref[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

func nonZero(id *snowflake.ID) *snowflake.ID {
	if id == nil || *id == 0 {
		return nil
	}
	v := *id
	return &v
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
