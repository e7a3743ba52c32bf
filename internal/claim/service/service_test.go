package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/internal/actorcontext"
	"github.com/smallbiznis/shaadmin/internal/claim/domain"
	"github.com/smallbiznis/shaadmin/internal/claim/repository"
	"github.com/smallbiznis/shaadmin/internal/events"
	"github.com/smallbiznis/shaadmin/internal/testutil"
	"github.com/smallbiznis/shaadmin/internal/testutil/harness"
	"github.com/smallbiznis/shaadmin/pkg/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var start = time.Date(2025, time.March, 10, 8, 30, 0, 0, time.UTC)

func setup(t *testing.T) (domain.Service, *harness.Harness) {
	t.Helper()
	h := harness.New(t, start)
	return New(Params{
		DB: h.DB, Log: h.Log, GenID: h.Node, Clock: h.Clock,
		Repo: repository.Provide(), Reference: h.Reference,
		AuditSvc: h.Audit, Notify: h.Notify, Emitter: h.Emitter,
	}), h
}

type world struct {
	user, member, provider, pkg snowflake.ID
	consult, lab                snowflake.ID
}

func newWorld(h *harness.Harness) world {
	user := h.Fixtures.User("MEMBER")
	pkg := h.Fixtures.Package()
	return world{
		user:     user,
		member:   h.Fixtures.Member(&user),
		provider: h.Fixtures.Provider(nil),
		pkg:      pkg,
		consult:  h.Fixtures.Service(pkg, 150000),
		lab:      h.Fixtures.Service(pkg, 200000),
	}
}

func (w world) submit() domain.SubmitRequest {
	return domain.SubmitRequest{
		MemberID:         w.member,
		ProviderID:       w.provider,
		BenefitPackageID: w.pkg,
		ClaimType:        "outpatient",
		VisitDate:        civil.New(2025, time.March, 8),
		Diagnosis:        "Malaria",
		ICDCode:          "b54",
		Items: []domain.SubmitItemRequest{
			{BenefitServiceID: w.consult, Quantity: 1},
			{BenefitServiceID: w.lab, Quantity: 1},
		},
	}
}

func reviewer(h *harness.Harness) context.Context {
	id := h.Fixtures.User("CLAIMS_OFFICER")
	return actorcontext.WithActor(context.Background(), actorcontext.Actor{UserID: id, Role: "CLAIMS_OFFICER"})
}

func int64p(v int64) *int64 { return &v }

func TestSubmitSumsItems(t *testing.T) {
	svc, h := setup(t)
	w := newWorld(h)

	c, err := svc.Submit(context.Background(), w.submit())
	require.NoError(t, err)
	assert.Equal(t, "CLM/2025/000001", c.ClaimNumber)
	assert.Equal(t, int64(350000), c.ClaimedAmount)
	assert.Equal(t, int64(0), c.CopaymentAmount)
	assert.Nil(t, c.ApprovedAmount)
	assert.Equal(t, domain.StatusSubmitted, c.Status)
	assert.Equal(t, domain.TypeOutpatient, c.ClaimType)
	assert.Equal(t, "B54", c.ICDCode)
	assert.Equal(t, start, c.SubmissionDate)

	got, err := svc.Get(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, int64(150000), got.Items[0].TotalAmount)
	assert.Equal(t, int64(200000), got.Items[1].TotalAmount)
	assert.True(t, testutil.Date(2025, time.March, 8).Equal(got.Items[0].ServiceDate))
	assert.Equal(t, int64(350000), got.ClaimedAmount)

	assert.Equal(t, int64(1), testutil.Count(t, h.DB, "notifications", "user_id = ? AND notification_type = ?", w.user, "CLAIM_SUBMITTED"))
	assert.Equal(t, []events.Type{events.ClaimSubmitted}, h.Recorder.Types())
}

func TestSubmitPricesAndCopayment(t *testing.T) {
	svc, h := setup(t)
	w := newWorld(h)
	require.NoError(t, h.DB.Exec(`UPDATE benefit_services SET copayment_percentage = 1000 WHERE id = ?`, w.consult).Error)
	require.NoError(t, h.DB.Exec(`UPDATE benefit_services SET copayment_amount = 5000 WHERE id = ?`, w.lab).Error)

	req := w.submit()
	req.Items[0].Quantity = 2
	req.Items[1].UnitPrice = int64p(180000)
	c, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(300000+180000), c.ClaimedAmount)
	assert.Equal(t, int64(30000+5000), c.CopaymentAmount)
	assert.Equal(t, int64(180000), c.Items[1].UnitPrice)
}

func TestSubmitValidation(t *testing.T) {
	svc, h := setup(t)
	w := newWorld(h)
	otherPkg := h.Fixtures.Package()
	foreign := h.Fixtures.Service(otherPkg, 1000)
	stranger := h.Fixtures.Member(nil)
	strangerAuth := h.Fixtures.PreAuth(stranger, w.provider, w.consult, "APPROVED", 1000)
	ownAuth := h.Fixtures.PreAuth(w.member, w.provider, w.consult, "APPROVED", 1000)

	cases := []struct {
		name   string
		mutate func(*domain.SubmitRequest)
		err    error
	}{
		{"no items", func(r *domain.SubmitRequest) { r.Items = nil }, domain.ErrInvalidItems},
		{"zero quantity", func(r *domain.SubmitRequest) { r.Items[0].Quantity = 0 }, domain.ErrInvalidQuantity},
		{"negative price", func(r *domain.SubmitRequest) { r.Items[0].UnitPrice = int64p(-1) }, domain.ErrInvalidUnitPrice},
		{"bad type", func(r *domain.SubmitRequest) { r.ClaimType = "DENTAL" }, domain.ErrInvalidClaimType},
		{"blank diagnosis", func(r *domain.SubmitRequest) { r.Diagnosis = " " }, domain.ErrInvalidDiagnosis},
		{"discharge before admission", func(r *domain.SubmitRequest) {
			a, d := civil.New(2025, time.March, 5), civil.New(2025, time.March, 4)
			r.AdmissionDate, r.DischargeDate = &a, &d
		}, domain.ErrInvalidDischargeDate},
		{"service outside package", func(r *domain.SubmitRequest) { r.Items[1].BenefitServiceID = foreign }, domain.ErrInvalidBenefitService},
		{"unknown package", func(r *domain.SubmitRequest) { r.BenefitPackageID = h.Node.Generate() }, domain.ErrInvalidBenefitPackage},
		{"other member's preauth", func(r *domain.SubmitRequest) { r.PreAuthorizationID = &strangerAuth }, domain.ErrInvalidPreAuthorization},
		{"unknown member", func(r *domain.SubmitRequest) { r.MemberID = h.Node.Generate() }, domain.ErrInvalidMember},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := w.submit()
			tc.mutate(&req)
			_, err := svc.Submit(context.Background(), req)
			assert.ErrorIs(t, err, tc.err)
		})
	}
	assert.Equal(t, int64(0), testutil.Count(t, h.DB, "claims", ""))

	h.Fixtures.SetMemberFlags(w.member, false, false)
	_, err := svc.Submit(context.Background(), w.submit())
	assert.ErrorIs(t, err, domain.ErrInvalidMember)

	h.Fixtures.SetMemberFlags(w.member, true, false)
	req := w.submit()
	req.PreAuthorizationID = &ownAuth
	c, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, ownAuth, *c.PreAuthorizationID)
	assert.Equal(t, int64(2), testutil.Count(t, h.DB, "claim_items", "claim_id = ?", c.ID))
}

func TestWorkflowToPaid(t *testing.T) {
	svc, h := setup(t)
	w := newWorld(h)
	ctx := reviewer(h)

	c, err := svc.Submit(ctx, w.submit())
	require.NoError(t, err)

	_, err = svc.Approve(ctx, c.ID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	reviewed, err := svc.MarkUnderReview(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnderReview, reviewed.Status)
	require.NotNil(t, reviewed.ReviewDate)
	assert.NotNil(t, reviewed.ReviewedBy)

	_, err = svc.Approve(ctx, c.ID, int64p(350001))
	assert.ErrorIs(t, err, domain.ErrInvalidApprovedAmount)

	h.Clock.Advance(time.Hour)
	approved, err := svc.Approve(ctx, c.ID, int64p(300000))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, approved.Status)
	assert.Equal(t, int64(300000), *approved.ApprovedAmount)
	assert.Equal(t, int64(50000), *approved.RejectedAmount)
	assert.True(t, start.Add(time.Hour).Equal(*approved.ApprovalDate))
	assert.Equal(t, int64(350000), approved.ClaimedAmount)

	var paid *domain.Claim
	require.NoError(t, h.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		paid, err = svc.MarkPaid(ctx, tx, c.ID)
		return err
	}))
	require.NotNil(t, paid)
	assert.Equal(t, domain.StatusPaid, paid.Status)
	assert.NotNil(t, paid.PaymentDate)

	_, err = svc.Reject(ctx, c.ID, "Duplicate billing")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, "PAID", testutil.Status(t, h.DB, "claims", c.ID))

	assert.Equal(t, int64(1), testutil.Count(t, h.DB, "notifications", "user_id = ? AND notification_type = ?", w.user, "CLAIM_APPROVED"))
	assert.Equal(t, int64(1), testutil.Count(t, h.DB, "audit_logs", "model_name = ? AND action = ?", "claim", "PAYMENT"))
	assert.Equal(t, []events.Type{events.ClaimSubmitted, events.ClaimUnderReview, events.ClaimApproved}, h.Recorder.Types())
}

func TestMarkPaidIgnoresUnapproved(t *testing.T) {
	svc, h := setup(t)
	w := newWorld(h)
	id := h.Fixtures.Claim(w.member, w.provider, w.pkg, "UNDER_REVIEW", 1000, nil)

	require.NoError(t, h.DB.Transaction(func(tx *gorm.DB) error {
		c, err := svc.MarkPaid(context.Background(), tx, id)
		assert.Nil(t, c)
		return err
	}))
	assert.Equal(t, "UNDER_REVIEW", testutil.Status(t, h.DB, "claims", id))
}

func TestApproveKeepsStoredAmount(t *testing.T) {
	svc, h := setup(t)
	w := newWorld(h)
	id := h.Fixtures.Claim(w.member, w.provider, w.pkg, "UNDER_REVIEW", 5000, int64p(4000))

	c, err := svc.Approve(context.Background(), id, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), *c.ApprovedAmount)
	assert.Nil(t, c.ApprovedBy)
}

func TestRejectFromAnyOpenState(t *testing.T) {
	svc, h := setup(t)
	w := newWorld(h)
	ctx := context.Background()

	for _, status := range []string{"SUBMITTED", "UNDER_REVIEW", "APPROVED", "QUERIED"} {
		id := h.Fixtures.Claim(w.member, w.provider, w.pkg, status, 1000, nil)
		c, err := svc.Reject(ctx, id, "Not covered")
		require.NoError(t, err, status)
		assert.Equal(t, domain.StatusRejected, c.Status)
		assert.Equal(t, "Not covered", c.RejectionReason)
	}

	id := h.Fixtures.Claim(w.member, w.provider, w.pkg, "SUBMITTED", 1000, nil)
	_, err := svc.Reject(ctx, id, "")
	assert.ErrorIs(t, err, domain.ErrInvalidRejectionReason)
	_, err = svc.MarkUnderReview(ctx, h.Node.Generate())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBulkOperations(t *testing.T) {
	svc, h := setup(t)
	w := newWorld(h)
	ctx := reviewer(h)

	submitted := h.Fixtures.Claim(w.member, w.provider, w.pkg, "SUBMITTED", 1000, nil)
	review := h.Fixtures.Claim(w.member, w.provider, w.pkg, "UNDER_REVIEW", 1000, nil)
	paid := h.Fixtures.Claim(w.member, w.provider, w.pkg, "PAID", 1000, int64p(1000))

	res, err := svc.BulkMarkUnderReview(ctx, []snowflake.ID{submitted, review, paid})
	require.NoError(t, err)
	assert.Equal(t, domain.BulkResult{Requested: 3, Updated: 1}, res)

	res, err = svc.BulkApprove(ctx, []snowflake.ID{submitted, review, paid, submitted})
	require.NoError(t, err)
	assert.Equal(t, domain.BulkResult{Requested: 3, Updated: 2}, res)
	assert.Equal(t, int64(2), testutil.Count(t, h.DB, "notifications", "user_id = ? AND notification_type = ?", w.user, "CLAIM_APPROVED"))

	res, err = svc.BulkReject(ctx, []snowflake.ID{submitted, paid}, "Fraud review")
	require.NoError(t, err)
	assert.Equal(t, domain.BulkResult{Requested: 2, Updated: 1}, res)
	assert.Equal(t, "REJECTED", testutil.Status(t, h.DB, "claims", submitted))
	assert.Equal(t, "APPROVED", testutil.Status(t, h.DB, "claims", review))
	assert.Equal(t, "PAID", testutil.Status(t, h.DB, "claims", paid))

	_, err = svc.BulkApprove(ctx, []snowflake.ID{0})
	assert.ErrorIs(t, err, domain.ErrInvalidIDs)
}

func TestAdjustItem(t *testing.T) {
	svc, h := setup(t)
	w := newWorld(h)
	ctx := context.Background()

	req := w.submit()
	req.Items[0].Quantity = 3
	c, err := svc.Submit(ctx, req)
	require.NoError(t, err)
	itemID := c.Items[0].ID

	item, err := svc.AdjustItem(ctx, c.ID, itemID, domain.AdjustItemRequest{ApprovedQuantity: intp(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, *item.ApprovedQuantity)
	assert.Equal(t, int64(300000), *item.ApprovedAmount)
	assert.Equal(t, 3, item.Quantity)
	assert.Equal(t, int64(450000), item.TotalAmount)

	_, err = svc.AdjustItem(ctx, c.ID, itemID, domain.AdjustItemRequest{ApprovedQuantity: intp(4)})
	assert.ErrorIs(t, err, domain.ErrInvalidApprovedQuantity)
	_, err = svc.AdjustItem(ctx, c.ID, itemID, domain.AdjustItemRequest{ApprovedAmount: int64p(450001)})
	assert.ErrorIs(t, err, domain.ErrInvalidApprovedAmount)
	_, err = svc.AdjustItem(ctx, c.ID, h.Node.Generate(), domain.AdjustItemRequest{ApprovedAmount: int64p(1)})
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(650000), got.ClaimedAmount)
	assert.Equal(t, int64(1), testutil.Count(t, h.DB, "audit_logs", "model_name = ?", "claim_item"))

	_, err = svc.MarkUnderReview(ctx, c.ID)
	require.NoError(t, err)
	approved, err := svc.Approve(ctx, c.ID, nil)
	require.NoError(t, err)
	// line approvals stay on the items; the claim total is set by the reviewer
	assert.Nil(t, approved.ApprovedAmount)
	_, err = svc.AdjustItem(ctx, c.ID, itemID, domain.AdjustItemRequest{ApprovedAmount: int64p(1)})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestList(t *testing.T) {
	svc, h := setup(t)
	w := newWorld(h)
	other := h.Fixtures.Member(nil)

	h.Fixtures.Claim(w.member, w.provider, w.pkg, "SUBMITTED", 1000, nil)
	h.Fixtures.Claim(w.member, w.provider, w.pkg, "APPROVED", 1000, nil)
	h.Fixtures.Claim(other, w.provider, w.pkg, "SUBMITTED", 1000, nil)

	res, err := svc.List(context.Background(), domain.ListRequest{Status: "submitted"})
	require.NoError(t, err)
	assert.Len(t, res.Claims, 2)

	res, err = svc.List(context.Background(), domain.ListRequest{MemberID: w.member.String(), ClaimType: "OUTPATIENT"})
	require.NoError(t, err)
	assert.Len(t, res.Claims, 2)

	res, err = svc.List(context.Background(), domain.ListRequest{VisitFrom: "2025-03-02"})
	require.NoError(t, err)
	assert.Empty(t, res.Claims)

	res, err = svc.List(context.Background(), domain.ListRequest{VisitFrom: "2025-03-01", VisitTo: "2025-03-01"})
	require.NoError(t, err)
	assert.Len(t, res.Claims, 3)

	_, err = svc.List(context.Background(), domain.ListRequest{ProviderID: "abc"})
	assert.ErrorIs(t, err, domain.ErrInvalidProvider)
}

func intp(v int) *int { return &v }
