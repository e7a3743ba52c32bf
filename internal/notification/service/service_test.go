package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/internal/clock"
	"github.com/smallbiznis/shaadmin/internal/notification/domain"
	"github.com/smallbiznis/shaadmin/internal/notification/repository"
	"github.com/smallbiznis/shaadmin/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setup(t *testing.T) (domain.Service, *gorm.DB, *testutil.Fixtures) {
	t.Helper()
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: fx.Node(),
		Clock: clock.NewFakeClock(time.Date(2025, time.April, 2, 10, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
	return svc, db, fx
}

func TestNotifyStoresTaggedReference(t *testing.T) {
	svc, db, fx := setup(t)
	ctx := context.Background()
	userID := fx.User("MEMBER")
	claimID := fx.Node().Generate()

	require.NoError(t, svc.Notify(ctx, db, domain.Message{
		UserID:  &userID,
		Type:    domain.TypeClaimApproved,
		Title:   "Claim approved",
		Body:    "Your claim CLM/2025/000001 was approved.",
		Related: domain.RelatedTo(domain.KindClaim, claimID),
	}))

	resp, err := svc.List(ctx, domain.ListRequest{UserID: userID})
	require.NoError(t, err)
	require.Len(t, resp.Notifications, 1)
	n := resp.Notifications[0]
	assert.Equal(t, domain.KindClaim, n.Related.Kind)
	require.NotNil(t, n.Related.ID)
	assert.Equal(t, claimID, *n.Related.ID)
	assert.False(t, n.IsRead)
}

func TestNotifySkipsUnknownRecipients(t *testing.T) {
	svc, db, _ := setup(t)
	ctx := context.Background()
	ghost := snowflake.ID(424242)

	require.NoError(t, svc.Notify(ctx, db, domain.Message{UserID: nil, Title: "x"}))
	require.NoError(t, svc.Notify(ctx, db, domain.Message{UserID: &ghost, Type: domain.TypeSystemAlert, Title: "x"}))
	assert.Zero(t, testutil.Count(t, db, "notifications", ""))
}

func TestNotifyRejectsUnknownKind(t *testing.T) {
	svc, db, fx := setup(t)
	userID := fx.User("MEMBER")

	err := svc.Notify(context.Background(), db, domain.Message{
		UserID:  &userID,
		Title:   "x",
		Related: domain.Related{Kind: "INVOICE"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRelated)
}

func TestMarkReadAndUnread(t *testing.T) {
	svc, db, fx := setup(t)
	ctx := context.Background()
	userID := fx.User("MEMBER")
	other := fx.User("MEMBER")

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Notify(ctx, db, domain.Message{UserID: &userID, Type: domain.TypeSystemAlert, Title: "hello"}))
	}
	resp, err := svc.List(ctx, domain.ListRequest{UserID: userID})
	require.NoError(t, err)
	ids := []snowflake.ID{resp.Notifications[0].ID, resp.Notifications[1].ID}

	n, err := svc.MarkRead(ctx, other, ids)
	require.NoError(t, err)
	assert.Zero(t, n, "another user's notifications are untouched")

	n, err = svc.MarkRead(ctx, userID, ids)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = svc.MarkRead(ctx, userID, ids)
	require.NoError(t, err)
	assert.Zero(t, n)

	unread, err := svc.UnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)

	onlyUnread, err := svc.List(ctx, domain.ListRequest{UserID: userID, UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, onlyUnread.Notifications, 1)

	n, err = svc.MarkUnread(ctx, userID, ids[:1])
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = svc.MarkRead(ctx, userID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidIDs)
}
