package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	claimrepo "github.com/smallbiznis/shaadmin/internal/claim/repository"
	claimservice "github.com/smallbiznis/shaadmin/internal/claim/service"
	"github.com/smallbiznis/shaadmin/internal/events"
	"github.com/smallbiznis/shaadmin/internal/payment/domain"
	"github.com/smallbiznis/shaadmin/internal/payment/repository"
	"github.com/smallbiznis/shaadmin/internal/testutil"
	"github.com/smallbiznis/shaadmin/internal/testutil/harness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (domain.Service, *harness.Harness) {
	t.Helper()
	h := harness.New(t, time.Date(2025, time.May, 5, 12, 0, 0, 0, time.UTC))
	claims := claimservice.New(claimservice.Params{
		DB: h.DB, Log: h.Log, GenID: h.Node, Clock: h.Clock,
		Repo: claimrepo.Provide(), Reference: h.Reference,
		AuditSvc: h.Audit, Notify: h.Notify, Emitter: h.Emitter,
	})
	return New(Params{
		DB: h.DB, Log: h.Log, GenID: h.Node, Clock: h.Clock,
		Repo: repository.Provide(), Claims: claims, Reference: h.Reference,
		AuditSvc: h.Audit, Notify: h.Notify, Emitter: h.Emitter,
	}), h
}

type world struct {
	providerUser, member, provider, pkg snowflake.ID
}

func newWorld(h *harness.Harness) world {
	user := h.Fixtures.User("PROVIDER")
	return world{
		providerUser: user,
		member:       h.Fixtures.Member(nil),
		provider:     h.Fixtures.Provider(&user),
		pkg:          h.Fixtures.Package(),
	}
}

func (w world) claim(h *harness.Harness, status string, claimed int64, approved *int64) snowflake.ID {
	return h.Fixtures.Claim(w.member, w.provider, w.pkg, status, claimed, approved)
}

func int64p(v int64) *int64 { return &v }

func TestCreateDefaultsToApprovedAmount(t *testing.T) {
	svc, h := setup(t)
	w := newWorld(h)
	claimID := w.claim(h, "APPROVED", 500000, int64p(400000))

	p, err := svc.Create(context.Background(), domain.CreateRequest{ClaimID: claimID, ProviderID: w.provider})
	require.NoError(t, err)
	assert.Equal(t, "PAY/2025/000001", p.PaymentReference)
	assert.Equal(t, int64(400000), p.PaymentAmount)
	assert.Equal(t, domain.DefaultMethod, p.PaymentMethod)
	assert.Equal(t, domain.StatusPending, p.Status)
	assert.Equal(t, []events.Type{events.PaymentCreated}, h.Recorder.Types())

	other := w.claim(h, "APPROVED", 700000, nil)
	p, err = svc.Create(context.Background(), domain.CreateRequest{ClaimID: other, ProviderID: w.provider, PaymentMethod: "EFT"})
	require.NoError(t, err)
	assert.Equal(t, int64(700000), p.PaymentAmount)
	assert.Equal(t, "EFT", p.PaymentMethod)
}

func TestCreateRules(t *testing.T) {
	svc, h := setup(t)
	w := newWorld(h)
	ctx := context.Background()
	approved := w.claim(h, "APPROVED", 500000, nil)
	review := w.claim(h, "UNDER_REVIEW", 500000, nil)
	elsewhere := h.Fixtures.Provider(nil)

	_, err := svc.Create(ctx, domain.CreateRequest{ClaimID: review, ProviderID: w.provider})
	assert.ErrorIs(t, err, domain.ErrClaimNotApproved)

	_, err = svc.Create(ctx, domain.CreateRequest{ClaimID: h.Node.Generate(), ProviderID: w.provider})
	assert.ErrorIs(t, err, domain.ErrInvalidClaim)

	_, err = svc.Create(ctx, domain.CreateRequest{ClaimID: approved, ProviderID: elsewhere})
	assert.ErrorIs(t, err, domain.ErrInvalidProvider)

	_, err = svc.Create(ctx, domain.CreateRequest{ClaimID: approved, ProviderID: w.provider, PaymentAmount: int64p(500001)})
	assert.ErrorIs(t, err, domain.ErrInvalidPaymentAmount)

	_, err = svc.Create(ctx, domain.CreateRequest{ClaimID: approved, ProviderID: w.provider, PaymentAmount: int64p(0)})
	assert.ErrorIs(t, err, domain.ErrInvalidPaymentAmount)

	first, err := svc.Create(ctx, domain.CreateRequest{ClaimID: approved, ProviderID: w.provider, PaymentAmount: int64p(250000)})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateRequest{ClaimID: approved, ProviderID: w.provider})
	assert.ErrorIs(t, err, domain.ErrDuplicatePayment)

	res, err := svc.BulkMarkFailed(ctx, []snowflake.ID{first.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.BulkResult{Requested: 1, Updated: 1}, res)

	second, err := svc.Create(ctx, domain.CreateRequest{ClaimID: approved, ProviderID: w.provider})
	require.NoError(t, err)
	assert.Equal(t, int64(500000), second.PaymentAmount)

	_, err = svc.BulkMarkCompleted(ctx, []snowflake.ID{first.ID})
	assert.ErrorIs(t, err, domain.ErrDuplicatePayment)
	assert.Equal(t, "FAILED", testutil.Status(t, h.DB, "payments", first.ID))
}

func TestMarkProcessing(t *testing.T) {
	svc, h := setup(t)
	w := newWorld(h)
	ctx := context.Background()

	p, err := svc.Create(ctx, domain.CreateRequest{ClaimID: w.claim(h, "APPROVED", 1000, nil), ProviderID: w.provider})
	require.NoError(t, err)

	got, err := svc.MarkProcessing(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, got.Status)

	_, err = svc.MarkProcessing(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = svc.MarkProcessing(ctx, h.Node.Generate())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBulkMarkCompletedPaysClaims(t *testing.T) {
	svc, h := setup(t)
	w := newWorld(h)
	ctx := context.Background()

	claimA := w.claim(h, "APPROVED", 100000, nil)
	claimB := w.claim(h, "APPROVED", 200000, nil)
	a, err := svc.Create(ctx, domain.CreateRequest{ClaimID: claimA, ProviderID: w.provider})
	require.NoError(t, err)
	b, err := svc.Create(ctx, domain.CreateRequest{ClaimID: claimB, ProviderID: w.provider})
	require.NoError(t, err)
	_, err = svc.MarkProcessing(ctx, b.ID)
	require.NoError(t, err)

	res, err := svc.BulkMarkCompleted(ctx, []snowflake.ID{a.ID, b.ID, a.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.BulkResult{Requested: 2, Updated: 2}, res)

	assert.Equal(t, "PAID", testutil.Status(t, h.DB, "claims", claimA))
	assert.Equal(t, "PAID", testutil.Status(t, h.DB, "claims", claimB))
	assert.Equal(t, int64(2), testutil.Count(t, h.DB, "notifications", "user_id = ? AND notification_type = ?", w.providerUser, "PAYMENT_MADE"))
	assert.Equal(t, int64(2), testutil.Count(t, h.DB, "audit_logs", "model_name = ? AND action = ?", "payment", "PAYMENT"))
	assert.Equal(t, int64(2), testutil.Count(t, h.DB, "audit_logs", "model_name = ? AND action = ?", "claim", "PAYMENT"))

	types := h.Recorder.Types()
	assert.Equal(t, []events.Type{events.PaymentCompleted, events.PaymentCompleted, events.ClaimPaid, events.ClaimPaid}, types[len(types)-4:])

	res, err = svc.BulkMarkCompleted(ctx, []snowflake.ID{a.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.BulkResult{Requested: 1, Updated: 0}, res)

	_, err = svc.BulkMarkCompleted(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidIDs)
}

func TestBulkMarkCompletedSkipsRejectedClaims(t *testing.T) {
	svc, h := setup(t)
	w := newWorld(h)
	ctx := context.Background()

	kept := w.claim(h, "APPROVED", 100000, nil)
	withdrawn := w.claim(h, "APPROVED", 500000, nil)
	a, err := svc.Create(ctx, domain.CreateRequest{ClaimID: kept, ProviderID: w.provider})
	require.NoError(t, err)
	b, err := svc.Create(ctx, domain.CreateRequest{ClaimID: withdrawn, ProviderID: w.provider})
	require.NoError(t, err)
	require.NoError(t, h.DB.Exec(`UPDATE claims SET status = 'REJECTED' WHERE id = ?`, withdrawn).Error)

	res, err := svc.BulkMarkCompleted(ctx, []snowflake.ID{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.BulkResult{Requested: 2, Updated: 1}, res)

	assert.Equal(t, "COMPLETED", testutil.Status(t, h.DB, "payments", a.ID))
	assert.Equal(t, "PENDING", testutil.Status(t, h.DB, "payments", b.ID))
	assert.Equal(t, "PAID", testutil.Status(t, h.DB, "claims", kept))
	assert.Equal(t, "REJECTED", testutil.Status(t, h.DB, "claims", withdrawn))
	assert.Equal(t, int64(1), testutil.Count(t, h.DB, "notifications", "user_id = ? AND notification_type = ?", w.providerUser, "PAYMENT_MADE"))

	res, err = svc.BulkMarkFailed(ctx, []snowflake.ID{b.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.BulkResult{Requested: 1, Updated: 1}, res)
}

func TestList(t *testing.T) {
	svc, h := setup(t)
	w := newWorld(h)
	ctx := context.Background()

	claimID := w.claim(h, "APPROVED", 1000, nil)
	_, err := svc.Create(ctx, domain.CreateRequest{ClaimID: claimID, ProviderID: w.provider})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateRequest{ClaimID: w.claim(h, "APPROVED", 1000, nil), ProviderID: w.provider})
	require.NoError(t, err)

	res, err := svc.List(ctx, domain.ListRequest{ClaimID: claimID.String()})
	require.NoError(t, err)
	assert.Len(t, res.Payments, 1)

	res, err = svc.List(ctx, domain.ListRequest{Status: "pending", ProviderID: w.provider.String()})
	require.NoError(t, err)
	assert.Len(t, res.Payments, 2)

	_, err = svc.List(ctx, domain.ListRequest{Status: "SETTLED"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}
