package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/internal/actorcontext"
	auditdomain "github.com/smallbiznis/shaadmin/internal/audit/domain"
	claimdomain "github.com/smallbiznis/shaadmin/internal/claim/domain"
	"github.com/smallbiznis/shaadmin/internal/clock"
	"github.com/smallbiznis/shaadmin/internal/events"
	notificationdomain "github.com/smallbiznis/shaadmin/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/shaadmin/internal/observability/metrics"
	"github.com/smallbiznis/shaadmin/internal/payment/domain"
	referencedomain "github.com/smallbiznis/shaadmin/internal/reference/domain"
	"github.com/smallbiznis/shaadmin/pkg/db"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"github.com/smallbiznis/shaadmin/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const modelName = "payment"

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Claims    claimdomain.Service
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
	claims    claimdomain.Service
	reference referencedomain.Service
	auditSvc  auditdomain.Service
	notify    notificationdomain.Service
	emitter   *events.Emitter
	metrics   *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("payment.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		claims:    p.Claims,
		reference: p.Reference,
		auditSvc:  p.AuditSvc,
		notify:    p.Notify,
		emitter:   p.Emitter,
		metrics:   p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Payment, error) {
	if req.PaymentAmount != nil && *req.PaymentAmount <= 0 {
		return nil, domain.ErrInvalidPaymentAmount
	}
	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		method = domain.DefaultMethod
	}

	now := s.clock.Now()
	paidAt := now
	if req.PaymentDate != nil && !req.PaymentDate.IsZero() {
		paidAt = req.PaymentDate.UTC()
	}
	providerID := req.ProviderID
	p := domain.Payment{
		ID:                   s.genID.Generate(),
		ProviderID:           &providerID,
		ClaimID:              req.ClaimID,
		PaymentDate:          paidAt,
		PaymentMethod:        method,
		BankName:             strings.TrimSpace(req.BankName),
		AccountNumber:        strings.TrimSpace(req.AccountNumber),
		TransactionReference: strings.TrimSpace(req.TransactionReference),
		Status:               domain.StatusPending,
		ProcessedBy:          actorcontext.ActorOrSystem(ctx).UserIDPtr(),
		Notes:                strings.TrimSpace(req.Notes),
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	var claimNumber string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		terms, err := s.repo.ClaimTerms(ctx, tx, req.ClaimID)
		if err != nil {
			return err
		}
		if terms == nil {
			return domain.ErrInvalidClaim
		}
		if terms.Status != string(claimdomain.StatusApproved) {
			return domain.ErrClaimNotApproved
		}
		if terms.ProviderID == nil || *terms.ProviderID != req.ProviderID {
			return domain.ErrInvalidProvider
		}
		claimNumber = terms.ClaimNumber

		amount := terms.ClaimedAmount
		if terms.ApprovedAmount != nil {
			amount = *terms.ApprovedAmount
		}
		if req.PaymentAmount != nil {
			amount = *req.PaymentAmount
		}
		if amount <= 0 || amount > terms.ClaimedAmount {
			return domain.ErrInvalidPaymentAmount
		}
		p.PaymentAmount = amount

		active, err := s.repo.HasActivePayment(ctx, tx, req.ClaimID)
		if err != nil {
			return err
		}
		if active {
			return domain.ErrDuplicatePayment
		}

		code, err := s.reference.Issue(ctx, tx, referencedomain.FamilyPayment, req.PaymentReference)
		if err != nil {
			return err
		}
		p.PaymentReference = code
		if err := s.repo.Insert(ctx, tx, &p); err != nil {
			return err
		}

		var changes auditdomain.ChangeSet
		changes.Set("payment_reference", p.PaymentReference)
		changes.Set("claim_number", claimNumber)
		changes.Set("payment_amount", p.PaymentAmount)
		changes.Set("status", string(p.Status))
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionCreate,
			ModelName:  modelName,
			ObjectID:   p.ID,
			ObjectRepr: p.PaymentReference,
			Changes:    changes,
		})
	})
	if err != nil {
		return nil, translateDuplicate(err)
	}

	s.log.Info("payment created",
		zap.String("payment_reference", p.PaymentReference),
		zap.String("claim_number", claimNumber),
		zap.Int64("payment_amount", p.PaymentAmount),
	)
	s.emitter.Emit(ctx, events.Event{
		Type:      events.PaymentCreated,
		EntityID:  p.ID,
		Reference: p.PaymentReference,
		Payload: map[string]any{
			"claim_id":       p.ClaimID.String(),
			"payment_amount": p.PaymentAmount,
		},
	})
	return &p, nil
}

func translateDuplicate(err error) error {
	key, dup := db.DuplicateKey(err, "payment_reference", "active_claim", "claim_id")
	if !dup {
		return err
	}
	if key == "payment_reference" {
		return domain.ErrDuplicatePaymentRef
	}
	return domain.ErrDuplicatePayment
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Payment, error) {
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
	if req.ProviderID != "" {
		id, err := snowflake.ParseString(req.ProviderID)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidProvider
		}
		filter.ProviderID = id
	}
	if req.ClaimID != "" {
		id, err := snowflake.ParseString(req.ClaimID)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidClaim
		}
		filter.ClaimID = id
	}

	page := req.Pagination
	page.PageSize = pagination.Normalize(page.PageSize)
	items, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListResponse{}, err
	}
	info := pagination.BuildCursorPageInfo(items, page.PageSize, func(p *domain.Payment) string {
		return pagination.CursorFor(p.ID, p.CreatedAt)
	})
	return domain.ListResponse{
		PageInfo: *info,
		Payments: pagination.Trim(items, page.PageSize),
	}, nil
}

func (s *Service) MarkProcessing(ctx context.Context, id snowflake.ID) (*domain.Payment, error) {
	var out *domain.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := s.repo.SetStatus(ctx, tx, []snowflake.ID{id}, []domain.Status{domain.StatusPending}, s.statusFields(ctx, domain.StatusProcessing))
		if err != nil {
			return err
		}
		p, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.ErrNotFound
		}
		if n == 0 {
			return domain.ErrInvalidTransition
		}
		out = p

		var changes auditdomain.ChangeSet
		changes.Add("status", string(domain.StatusPending), string(p.Status))
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionUpdate,
			ModelName:  modelName,
			ObjectID:   p.ID,
			ObjectRepr: p.PaymentReference,
			Changes:    changes,
		})
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			s.metrics.RecordRejectedTransition(ctx, modelName, string(domain.StatusProcessing))
		}
		return nil, err
	}
	s.metrics.RecordTransition(ctx, modelName, string(domain.StatusProcessing), 1)
	return out, nil
}

func (s *Service) statusFields(ctx context.Context, to domain.Status) map[string]any {
	return map[string]any{
		"status":       to,
		"processed_by": actorcontext.ActorOrSystem(ctx).UserIDPtr(),
		"updated_at":   s.clock.Now(),
	}
}

func (s *Service) BulkMarkCompleted(ctx context.Context, ids []snowflake.ID) (domain.BulkResult, error) {
	return s.bulkSet(ctx, ids, domain.StatusCompleted)
}

func (s *Service) BulkMarkFailed(ctx context.Context, ids []snowflake.ID) (domain.BulkResult, error) {
	return s.bulkSet(ctx, ids, domain.StatusFailed)
}

// payableClaimStatuses are the claim states a payment may complete against.
var payableClaimStatuses = []string{string(claimdomain.StatusApproved), string(claimdomain.StatusPaid)}

// bulkSet applies to whatever the selected payments currently are; rows
// already in to are not counted. Completion skips payments whose claim was
// rejected or reopened after the payment was created.
func (s *Service) bulkSet(ctx context.Context, ids []snowflake.ID, to domain.Status) (domain.BulkResult, error) {
	ids = dedupe(ids)
	result := domain.BulkResult{Requested: len(ids)}
	if len(ids) == 0 {
		return result, domain.ErrInvalidIDs
	}

	var (
		changed []domain.Recipient
		paid    []*claimdomain.Claim
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		targets, err := s.repo.IDsNotIn(ctx, tx, ids, to)
		if err != nil || len(targets) == 0 {
			return err
		}
		if to == domain.StatusCompleted {
			targets, err = s.repo.WithClaimIn(ctx, tx, targets, payableClaimStatuses)
			if err != nil || len(targets) == 0 {
				return err
			}
		}
		n, err := s.repo.SetStatus(ctx, tx, targets, nil, s.statusFields(ctx, to))
		if err != nil {
			return err
		}
		result.Updated = n

		changed, err = s.repo.Recipients(ctx, tx, targets)
		if err != nil {
			return err
		}
		action := auditdomain.ActionUpdate
		if to == domain.StatusCompleted {
			action = auditdomain.ActionPayment
		}
		for _, r := range changed {
			var changes auditdomain.ChangeSet
			changes.Set("status", string(to))
			if err := s.auditSvc.Record(ctx, tx, auditdomain.Entry{
				Action:     action,
				ModelName:  modelName,
				ObjectID:   r.ID,
				ObjectRepr: r.PaymentReference,
				Changes:    changes,
			}); err != nil {
				return err
			}
			if to != domain.StatusCompleted {
				continue
			}

			c, err := s.claims.MarkPaid(ctx, tx, r.ClaimID)
			if err != nil {
				return err
			}
			if c != nil {
				paid = append(paid, c)
			}
			if err := s.notify.Notify(ctx, tx, notificationdomain.Message{
				UserID:  r.UserID,
				Type:    notificationdomain.TypePaymentMade,
				Title:   "Payment made",
				Body:    fmt.Sprintf("Payment %s of KES %s has been made.", r.PaymentReference, money.Format(r.PaymentAmount)),
				Related: notificationdomain.RelatedTo(notificationdomain.KindPayment, r.ID),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.BulkResult{Requested: len(ids)}, translateDuplicate(err)
	}

	s.metrics.RecordTransition(ctx, modelName, string(to), result.Updated)
	if len(paid) > 0 {
		s.metrics.RecordTransition(ctx, "claim", string(claimdomain.StatusPaid), int64(len(paid)))
	}
	s.log.Info("payments updated",
		zap.String("status", string(to)),
		zap.Int("requested", result.Requested),
		zap.Int64("updated", result.Updated),
		zap.Int("claims_paid", len(paid)),
	)

	eventType := events.PaymentFailed
	if to == domain.StatusCompleted {
		eventType = events.PaymentCompleted
	}
	evs := make([]events.Event, 0, len(changed)+len(paid))
	for _, r := range changed {
		evs = append(evs, events.Event{
			Type:      eventType,
			EntityID:  r.ID,
			Reference: r.PaymentReference,
			Payload:   map[string]any{"claim_id": r.ClaimID.String(), "payment_amount": r.PaymentAmount},
		})
	}
	for _, c := range paid {
		evs = append(evs, events.Event{Type: events.ClaimPaid, EntityID: c.ID, Reference: c.ClaimNumber})
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
