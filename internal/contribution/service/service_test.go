package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/internal/contribution/domain"
	"github.com/smallbiznis/shaadmin/internal/contribution/repository"
	"github.com/smallbiznis/shaadmin/internal/events"
	"github.com/smallbiznis/shaadmin/internal/testutil"
	"github.com/smallbiznis/shaadmin/internal/testutil/harness"
	"github.com/smallbiznis/shaadmin/pkg/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (domain.Service, *harness.Harness) {
	t.Helper()
	h := harness.New(t, time.Date(2025, time.April, 8, 10, 0, 0, 0, time.UTC))
	return New(Params{
		DB: h.DB, Log: h.Log, GenID: h.Node, Clock: h.Clock,
		Repo: repository.Provide(), Policy: h.Policy, AuditSvc: h.Audit,
		Notify: h.Notify, Emitter: h.Emitter,
	}), h
}

func int64p(v int64) *int64 { return &v }

func recordRequest(memberID snowflake.ID, ref string) domain.RecordRequest {
	return domain.RecordRequest{
		MemberID:             memberID,
		ContributionMonth:    civil.New(2025, time.April, 17),
		GrossSalary:          int64p(1000000),
		PaymentMethod:        "mpesa",
		TransactionReference: ref,
	}
}

func TestRecordClampsToMinimum(t *testing.T) {
	svc, h := setup(t)
	memberID := h.Fixtures.Member(nil)

	c, err := svc.Record(context.Background(), recordRequest(memberID, "QK12AB"))
	require.NoError(t, err)
	assert.Equal(t, int64(30000), c.ContributionAmount)
	assert.Equal(t, int64(275), c.ContributionRate)
	assert.Equal(t, testutil.Date(2025, time.April, 1), c.ContributionMonth)
	assert.Equal(t, domain.StatusPending, c.Status)
	assert.Equal(t, domain.MethodMpesa, c.PaymentMethod)
	assert.Equal(t, []events.Type{events.ContributionRecorded}, h.Recorder.Types())
}

func TestRecordAmountRules(t *testing.T) {
	svc, h := setup(t)
	ctx := context.Background()
	memberID := h.Fixtures.Member(nil)

	req := recordRequest(memberID, "TX-1")
	req.GrossSalary = int64p(2000000)
	c, err := svc.Record(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(55000), c.ContributionAmount)

	req = recordRequest(memberID, "TX-2")
	req.ContributionMonth = civil.New(2025, time.May, 1)
	req.GrossSalary = nil
	req.ContributionAmount = int64p(29999)
	_, err = svc.Record(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidContributionAmount)

	req.ContributionAmount = nil
	_, err = svc.Record(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidContributionAmount)

	req.ContributionAmount = int64p(45000)
	c, err = svc.Record(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(45000), c.ContributionAmount)

	req = recordRequest(memberID, "TX-3")
	req.ContributionMonth = civil.New(2025, time.June, 1)
	req.ContributionRate = int64p(0)
	_, err = svc.Record(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidContributionRate)

	req.ContributionRate = nil
	req.PaymentMethod = "CHEQUE"
	_, err = svc.Record(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidPaymentMethod)

	_, err = svc.Record(ctx, recordRequest(h.Node.Generate(), "TX-4"))
	assert.ErrorIs(t, err, domain.ErrInvalidMember)
}

func TestRecordUniqueness(t *testing.T) {
	svc, h := setup(t)
	ctx := context.Background()
	memberID := h.Fixtures.Member(nil)

	_, err := svc.Record(ctx, recordRequest(memberID, "TX-1"))
	require.NoError(t, err)

	// another day of the same month is the same contribution month
	req := recordRequest(memberID, "TX-2")
	req.ContributionMonth = civil.New(2025, time.April, 2)
	_, err = svc.Record(ctx, req)
	assert.ErrorIs(t, err, domain.ErrDuplicateContribution)

	req = recordRequest(memberID, "TX-1")
	req.ContributionMonth = civil.New(2025, time.May, 1)
	_, err = svc.Record(ctx, req)
	assert.ErrorIs(t, err, domain.ErrDuplicateTransactionReference)

	assert.Equal(t, int64(1), testutil.Count(t, h.DB, "contributions", "member_id = ?", memberID))
}

func TestRecordDefaultsEmployerFromMember(t *testing.T) {
	svc, h := setup(t)
	memberID := h.Fixtures.Member(nil)
	employerID := h.Fixtures.Employer()
	require.NoError(t, h.DB.Exec(`UPDATE members SET employer_id = ? WHERE id = ?`, employerID, memberID).Error)

	c, err := svc.Record(context.Background(), recordRequest(memberID, "TX-1"))
	require.NoError(t, err)
	require.NotNil(t, c.EmployerID)
	assert.Equal(t, employerID, *c.EmployerID)

	req := recordRequest(memberID, "TX-2")
	req.ContributionMonth = civil.New(2025, time.May, 1)
	unknown := h.Node.Generate()
	req.EmployerID = &unknown
	_, err = svc.Record(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidEmployer)
}

func TestRecordCompletedNotifiesMember(t *testing.T) {
	svc, h := setup(t)
	userID := h.Fixtures.User("MEMBER")
	memberID := h.Fixtures.Member(&userID)

	req := recordRequest(memberID, "TX-1")
	req.Status = "COMPLETED"
	_, err := svc.Record(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, int64(1), testutil.Count(t, h.DB, "notifications", "user_id = ? AND notification_type = ?", userID, "CONTRIBUTION_RECEIVED"))
	assert.Equal(t, []events.Type{events.ContributionRecorded, events.ContributionCompleted}, h.Recorder.Types())
}

func TestBulkMarkCompleted(t *testing.T) {
	svc, h := setup(t)
	ctx := context.Background()
	userID := h.Fixtures.User("MEMBER")
	memberID := h.Fixtures.Member(&userID)

	pending := h.Fixtures.Contribution(memberID, testutil.Date(2025, time.January, 1), "PENDING")
	failed := h.Fixtures.Contribution(memberID, testutil.Date(2025, time.February, 1), "FAILED")
	done := h.Fixtures.Contribution(memberID, testutil.Date(2025, time.March, 1), "COMPLETED")

	res, err := svc.BulkMarkCompleted(ctx, []snowflake.ID{pending, failed, done, pending})
	require.NoError(t, err)
	assert.Equal(t, domain.BulkResult{Requested: 3, Updated: 2}, res)

	for _, id := range []snowflake.ID{pending, failed, done} {
		assert.Equal(t, "COMPLETED", testutil.Status(t, h.DB, "contributions", id))
	}
	assert.Equal(t, int64(2), testutil.Count(t, h.DB, "notifications", "user_id = ?", userID))
	assert.Equal(t, int64(2), testutil.Count(t, h.DB, "audit_logs", "model_name = ? AND action = ?", "contribution", "UPDATE"))
	assert.Len(t, h.Recorder.Events(), 2)

	_, err = svc.BulkMarkCompleted(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidIDs)
}

func TestBulkMarkFailedIgnoresPriorStatus(t *testing.T) {
	svc, h := setup(t)
	memberID := h.Fixtures.Member(nil)

	done := h.Fixtures.Contribution(memberID, testutil.Date(2025, time.January, 1), "COMPLETED")
	reversed := h.Fixtures.Contribution(memberID, testutil.Date(2025, time.February, 1), "REVERSED")

	res, err := svc.BulkMarkFailed(context.Background(), []snowflake.ID{done, reversed, h.Node.Generate()})
	require.NoError(t, err)
	assert.Equal(t, domain.BulkResult{Requested: 3, Updated: 2}, res)
	assert.Equal(t, "FAILED", testutil.Status(t, h.DB, "contributions", done))
	assert.Equal(t, "FAILED", testutil.Status(t, h.DB, "contributions", reversed))
}

func TestReverse(t *testing.T) {
	svc, h := setup(t)
	ctx := context.Background()
	memberID := h.Fixtures.Member(nil)

	done := h.Fixtures.Contribution(memberID, testutil.Date(2025, time.January, 1), "COMPLETED")
	pending := h.Fixtures.Contribution(memberID, testutil.Date(2025, time.February, 1), "PENDING")

	c, err := svc.Reverse(ctx, done)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReversed, c.Status)

	_, err = svc.Reverse(ctx, done)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = svc.Reverse(ctx, pending)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, "PENDING", testutil.Status(t, h.DB, "contributions", pending))

	_, err = svc.Reverse(ctx, h.Node.Generate())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemberSummaryAndList(t *testing.T) {
	svc, h := setup(t)
	ctx := context.Background()
	memberID := h.Fixtures.Member(nil)
	other := h.Fixtures.Member(nil)

	h.Fixtures.Contribution(memberID, testutil.Date(2025, time.January, 1), "COMPLETED")
	h.Fixtures.Contribution(memberID, testutil.Date(2025, time.February, 1), "COMPLETED")
	h.Fixtures.Contribution(memberID, testutil.Date(2025, time.March, 1), "PENDING")
	h.Fixtures.Contribution(other, testutil.Date(2025, time.March, 1), "COMPLETED")

	summary, err := svc.MemberSummary(ctx, memberID)
	require.NoError(t, err)
	assert.Equal(t, int64(60000), summary.TotalCompleted)
	assert.Equal(t, int64(2), summary.MonthsCovered)
	assert.Equal(t, int64(1), summary.PendingCount)
	require.NotNil(t, summary.LastContributionDate)
	assert.True(t, summary.LastContributionDate.Equal(testutil.Date(2025, time.February, 6)))

	_, err = svc.MemberSummary(ctx, h.Node.Generate())
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)

	resp, err := svc.List(ctx, domain.ListRequest{MemberID: memberID.String(), Status: "completed"})
	require.NoError(t, err)
	assert.Len(t, resp.Contributions, 2)

	resp, err = svc.List(ctx, domain.ListRequest{MonthFrom: "2025-02-01", MonthTo: "2025-03-31"})
	require.NoError(t, err)
	assert.Len(t, resp.Contributions, 3)

	_, err = svc.List(ctx, domain.ListRequest{MonthFrom: "March"})
	assert.ErrorIs(t, err, domain.ErrInvalidContributionMonth)
}
