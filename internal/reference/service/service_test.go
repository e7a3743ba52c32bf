package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/shaadmin/internal/clock"
	"github.com/smallbiznis/shaadmin/internal/reference/domain"
	"github.com/smallbiznis/shaadmin/internal/reference/repository"
	"github.com/smallbiznis/shaadmin/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, now time.Time) (domain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()
	db := testutil.NewDB(t)
	clk := clock.NewFakeClock(now)
	svc := New(Params{DB: db, Log: zap.NewNop(), Clock: clk, Repo: repository.Provide()})
	return svc, db, clk
}

func issue(t *testing.T, svc domain.Service, db *gorm.DB, family domain.Family) string {
	t.Helper()
	var code string
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		code, err = svc.Issue(context.Background(), tx, family, "")
		return err
	})
	require.NoError(t, err)
	return code
}

func TestIssueMemberCodesSequentially(t *testing.T) {
	svc, db, _ := newTestService(t, time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC))

	assert.Equal(t, "SHA/2025/000001", issue(t, svc, db, domain.FamilyMember))
	assert.Equal(t, "SHA/2025/000002", issue(t, svc, db, domain.FamilyMember))
	assert.Equal(t, "SHA/2025/000003", issue(t, svc, db, domain.FamilyMember))
}

func TestIssueRestartsEachYear(t *testing.T) {
	svc, db, clk := newTestService(t, time.Date(2024, time.December, 31, 23, 0, 0, 0, time.UTC))

	for i := 0; i < 5; i++ {
		issue(t, svc, db, domain.FamilyClaim)
	}
	assert.Equal(t, "CLM/2024/000006", issue(t, svc, db, domain.FamilyClaim))

	clk.Advance(2 * time.Hour)
	assert.Equal(t, "CLM/2025/000001", issue(t, svc, db, domain.FamilyClaim))
}

func TestIssueGlobalFamiliesIgnoreYear(t *testing.T) {
	svc, db, clk := newTestService(t, time.Date(2024, time.December, 31, 23, 0, 0, 0, time.UTC))

	assert.Equal(t, "EMP/000001", issue(t, svc, db, domain.FamilyEmployer))
	clk.Advance(24 * time.Hour)
	assert.Equal(t, "EMP/000002", issue(t, svc, db, domain.FamilyEmployer))
	assert.Equal(t, "FAC/000001", issue(t, svc, db, domain.FamilyProvider))
}

func TestIssueFamiliesAreIndependent(t *testing.T) {
	svc, db, _ := newTestService(t, time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, "AUTH/2025/000001", issue(t, svc, db, domain.FamilyPreAuth))
	assert.Equal(t, "PAY/2025/000001", issue(t, svc, db, domain.FamilyPayment))
	assert.Equal(t, "AUTH/2025/000002", issue(t, svc, db, domain.FamilyPreAuth))
}

func TestIssueAcceptsSuppliedCode(t *testing.T) {
	svc, db, _ := newTestService(t, time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	code, err := svc.Issue(ctx, db, domain.FamilyMember, " SHA/2019/000777 ")
	require.NoError(t, err)
	assert.Equal(t, "SHA/2019/000777", code)

	seq, err := svc.Peek(ctx, domain.FamilyMember, 2025)
	require.NoError(t, err)
	assert.Zero(t, seq.LastValue)

	seq, err = svc.Peek(ctx, domain.FamilyMember, 2019)
	require.NoError(t, err)
	assert.EqualValues(t, 777, seq.LastValue)

	_, err = svc.Issue(ctx, db, domain.FamilyMember, "CLM/2019/000777")
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
}

func TestSuppliedCodeAdvancesCounter(t *testing.T) {
	svc, db, _ := newTestService(t, time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	assert.Equal(t, "SHA/2025/000001", issue(t, svc, db, domain.FamilyMember))

	code, err := svc.Issue(ctx, db, domain.FamilyMember, "SHA/2025/000005")
	require.NoError(t, err)
	assert.Equal(t, "SHA/2025/000005", code)
	assert.Equal(t, "SHA/2025/000006", issue(t, svc, db, domain.FamilyMember))

	// a lower supplied code never moves the counter back
	_, err = svc.Issue(ctx, db, domain.FamilyMember, "SHA/2025/000003")
	require.NoError(t, err)
	assert.Equal(t, "SHA/2025/000007", issue(t, svc, db, domain.FamilyMember))

	_, err = svc.Issue(ctx, db, domain.FamilyEmployer, "EMP/000042")
	require.NoError(t, err)
	assert.Equal(t, "EMP/000043", issue(t, svc, db, domain.FamilyEmployer))
}

func TestRolledBackIssueDoesNotConsumeNumber(t *testing.T) {
	svc, db, _ := newTestService(t, time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC))

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Issue(context.Background(), tx, domain.FamilyClaim, "")
		require.NoError(t, err)
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	assert.Equal(t, "CLM/2025/000001", issue(t, svc, db, domain.FamilyClaim))
}

func TestPeekAndList(t *testing.T) {
	svc, db, _ := newTestService(t, time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	issue(t, svc, db, domain.FamilyMember)
	issue(t, svc, db, domain.FamilyMember)

	seq, err := svc.Peek(ctx, domain.FamilyMember, 0)
	require.NoError(t, err)
	assert.Equal(t, 2025, seq.Year)
	assert.EqualValues(t, 2, seq.LastValue)

	seqs, err := svc.List(ctx, domain.FamilyMember)
	require.NoError(t, err)
	require.Len(t, seqs, 1)

	_, err = svc.Peek(ctx, domain.Family("NOPE"), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidFamily)
}

func TestConcurrentIssueNeverRepeats(t *testing.T) {
	svc, db, _ := newTestService(t, time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC))

	const workers = 8
	codes := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Retry on SQLite's table lock, the counter itself is the unit under test.
			for attempt := 0; attempt < 200; attempt++ {
				var code string
				err := db.Transaction(func(tx *gorm.DB) error {
					var err error
					code, err = svc.Issue(context.Background(), tx, domain.FamilyMember, "")
					return err
				})
				if err == nil {
					codes <- code
					return
				}
				time.Sleep(5 * time.Millisecond)
			}
		}()
	}
	wg.Wait()
	close(codes)

	seen := map[string]bool{}
	for code := range codes {
		assert.False(t, seen[code], code)
		seen[code] = true
	}
	assert.Len(t, seen, workers)
}
