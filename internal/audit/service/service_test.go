package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/shaadmin/internal/actorcontext"
	"github.com/smallbiznis/shaadmin/internal/audit/domain"
	"github.com/smallbiznis/shaadmin/internal/audit/repository"
	"github.com/smallbiznis/shaadmin/internal/clock"
	"github.com/smallbiznis/shaadmin/internal/testutil"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB, *testutil.Fixtures, *clock.FakeClock) {
	t.Helper()
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	clk := clock.NewFakeClock(time.Date(2025, time.May, 1, 8, 0, 0, 0, time.UTC))
	svc := New(Params{DB: db, Log: zap.NewNop(), GenID: fx.Node(), Clock: clk, Repo: repository.Provide()})
	return svc, db, fx, clk
}

func TestRecordMasksSensitiveFieldsAndCapturesActor(t *testing.T) {
	svc, db, fx, _ := newTestService(t)
	userID := fx.User("SHA_OFFICER")

	ctx := actorcontext.WithActor(context.Background(), actorcontext.Actor{UserID: userID, Role: "SHA_OFFICER"})
	ctx = actorcontext.WithIPAddress(ctx, "10.1.1.1")

	var changes domain.ChangeSet
	changes.Set("national_id", "12345678")
	changes.Add("status", "PENDING", "APPROVED")
	changes.Add("county", "Nairobi", "Nairobi")

	require.NoError(t, svc.Record(ctx, db, domain.Entry{
		Action:     domain.ActionApprove,
		ModelName:  "PreAuthorization",
		ObjectID:   fx.Node().Generate(),
		ObjectRepr: "AUTH/2025/000001",
		Changes:    changes,
	}))

	resp, err := svc.List(context.Background(), domain.ListAuditLogRequest{ModelName: "PreAuthorization"})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	entry := resp.AuditLogs[0]
	require.NotNil(t, entry.UserID)
	assert.Equal(t, userID, *entry.UserID)
	assert.Equal(t, "10.1.1.1", entry.IPAddress)
	require.Len(t, entry.Changes, 2)
	assert.Equal(t, "****5678", entry.Changes[0].After)
	assert.Equal(t, "APPROVED", entry.Changes[1].After)
}

func TestRecordRollsBackWithTransaction(t *testing.T) {
	svc, db, _, _ := newTestService(t)

	err := db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.Record(context.Background(), tx, domain.Entry{Action: domain.ActionCreate, ModelName: "Member"}))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, testutil.Count(t, db, "audit_logs", ""))
}

func TestRecordValidates(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Record(ctx, db, domain.Entry{Action: "ERASE", ModelName: "Member"}), domain.ErrInvalidAction)
	assert.ErrorIs(t, svc.Record(ctx, db, domain.Entry{Action: domain.ActionCreate}), domain.ErrInvalidModelName)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	svc, db, _, clk := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Record(ctx, db, domain.Entry{Action: domain.ActionUpdate, ModelName: "Claim"}))
		clk.Advance(time.Minute)
	}

	first, err := svc.List(ctx, domain.ListAuditLogRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, first.AuditLogs, 2)
	assert.True(t, first.HasMore)
	assert.True(t, first.AuditLogs[0].CreatedAt.After(first.AuditLogs[1].CreatedAt))

	second, err := svc.List(ctx, domain.ListAuditLogRequest{Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken}})
	require.NoError(t, err)
	require.Len(t, second.AuditLogs, 1)
	assert.False(t, second.HasMore)
	assert.True(t, second.AuditLogs[0].CreatedAt.Before(first.AuditLogs[1].CreatedAt))
}

func TestListRejectsBadFilters(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	start := time.Now()
	end := start.Add(-time.Hour)

	_, err := svc.List(ctx, domain.ListAuditLogRequest{StartAt: &start, EndAt: &end})
	assert.ErrorIs(t, err, domain.ErrInvalidTimeRange)

	_, err = svc.List(ctx, domain.ListAuditLogRequest{Action: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidAction)

	_, err = svc.List(ctx, domain.ListAuditLogRequest{Pagination: pagination.Pagination{PageToken: "%%%"}})
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
}
