package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/shaadmin/internal/cache"
	"github.com/smallbiznis/shaadmin/internal/dashboard/domain"
	"github.com/smallbiznis/shaadmin/internal/dashboard/repository"
	"github.com/smallbiznis/shaadmin/internal/testutil"
	"github.com/smallbiznis/shaadmin/internal/testutil/harness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, c *cache.JSONCache) (domain.Service, *harness.Harness) {
	t.Helper()
	h := harness.New(t, time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC))
	return New(Params{
		DB: h.DB, Log: h.Log, Clock: h.Clock,
		Repo: repository.Provide(), Policy: h.Policy, Cache: c,
	}), h
}

func int64p(v int64) *int64 { return &v }

func TestSummaryAggregates(t *testing.T) {
	svc, h := setup(t, nil)
	member := h.Fixtures.Member(nil)
	other := h.Fixtures.Member(nil)
	h.Fixtures.SetMemberFlags(other, false, false)
	busy := h.Fixtures.Provider(nil)
	quiet := h.Fixtures.Provider(nil)
	h.Fixtures.SetProviderActive(quiet, false)
	h.Fixtures.Employer()
	pkg := h.Fixtures.Package()

	h.Fixtures.Contribution(member, testutil.Date(2025, time.January, 1), "PENDING")
	h.Fixtures.Contribution(member, testutil.Date(2025, time.February, 1), "COMPLETED")
	h.Fixtures.Contribution(member, testutil.Date(2025, time.March, 1), "COMPLETED")

	h.Fixtures.Claim(member, busy, pkg, "SUBMITTED", 10000, nil)
	h.Fixtures.Claim(member, busy, pkg, "APPROVED", 20000, int64p(15000))
	h.Fixtures.Claim(member, quiet, pkg, "PAID", 5000, int64p(5000))

	svcID := h.Fixtures.Service(pkg, 1000)
	h.Fixtures.PreAuth(member, busy, svcID, "PENDING", 1000)

	s, err := svc.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), s.Members.Total)
	assert.Equal(t, int64(1), s.Members.Active)
	assert.Equal(t, int64(1), s.Members.Principals)
	assert.Equal(t, 0.0, s.Members.GrowthPct)

	assert.Equal(t, int64(1), s.Employers.Active)
	assert.Equal(t, domain.ProviderStats{Total: 2, Active: 1, Contracted: 1}, s.Providers)

	assert.Equal(t, int64(60000), s.Contributions.CompletedTotal)
	assert.Equal(t, int64(30000), s.Contributions.CurrentMonth)
	assert.Equal(t, int64(30000), s.Contributions.LastMonth)
	assert.Equal(t, 0.0, s.Contributions.GrowthPct)
	assert.Equal(t, int64(1), s.Contributions.PendingCount)
	assert.Equal(t, []domain.MonthAmount{
		{Month: "2024-10"}, {Month: "2024-11"}, {Month: "2024-12"}, {Month: "2025-01"},
		{Month: "2025-02", Amount: 30000}, {Month: "2025-03", Amount: 30000},
	}, s.Contributions.Trend)

	assert.Equal(t, int64(3), s.Claims.Total)
	assert.Equal(t, int64(1), s.Claims.Pending)
	assert.Equal(t, int64(35000), s.Claims.TotalClaimed)
	assert.Equal(t, int64(20000), s.Claims.TotalApproved)
	assert.Equal(t, map[string]int64{"SUBMITTED": 1, "APPROVED": 1, "PAID": 1}, s.Claims.ByStatus)

	assert.Equal(t, int64(1), s.PreAuthorizations.Pending)

	require.NotEmpty(t, s.TopProviders)
	assert.Equal(t, busy, s.TopProviders[0].ProviderID)
	assert.Equal(t, int64(2), s.TopProviders[0].Claims)
	assert.Equal(t, []domain.CountyMembers{{County: "Nairobi", Members: 2}}, s.TopCounties)

	require.Len(t, s.RecentClaims, 3)
	assert.Equal(t, "Jane Doe", s.RecentClaims[0].MemberName)
}

func TestSummaryServedFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	jc := cache.NewJSONCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	svc, h := setup(t, jc)
	member := h.Fixtures.Member(nil)
	provider := h.Fixtures.Provider(nil)
	pkg := h.Fixtures.Package()
	h.Fixtures.Claim(member, provider, pkg, "SUBMITTED", 10000, nil)

	first, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Claims.Total)

	h.Fixtures.Claim(member, provider, pkg, "SUBMITTED", 10000, nil)
	cached, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), cached.Claims.Total)

	fresh, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), fresh.Claims.Total)

	mr.FastForward(2 * time.Minute)
	h.Fixtures.Claim(member, provider, pkg, "SUBMITTED", 10000, nil)
	expired, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), expired.Claims.Total)
}
