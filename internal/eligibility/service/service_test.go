package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/internal/eligibility/domain"
	"github.com/smallbiznis/shaadmin/internal/eligibility/repository"
	"github.com/smallbiznis/shaadmin/internal/events"
	"github.com/smallbiznis/shaadmin/internal/testutil"
	"github.com/smallbiznis/shaadmin/internal/testutil/harness"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	pkgrepo "github.com/smallbiznis/shaadmin/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (domain.Service, *harness.Harness) {
	t.Helper()
	h := harness.New(t, time.Date(2025, time.April, 15, 9, 0, 0, 0, time.UTC))
	return New(Params{
		DB: h.DB, Log: h.Log, GenID: h.Node, Clock: h.Clock,
		Repo: repository.Provide(), Store: pkgrepo.ProvideStore[domain.Check](h.DB),
		Policy: h.Policy, Emitter: h.Emitter,
	}), h
}

func TestCheckCurrentMember(t *testing.T) {
	svc, h := setup(t)
	member := h.Fixtures.Member(nil)
	provider := h.Fixtures.Provider(nil)
	h.Fixtures.Contribution(member, testutil.Date(2025, time.January, 1), "COMPLETED")
	h.Fixtures.Contribution(member, testutil.Date(2025, time.March, 1), "COMPLETED")
	h.Fixtures.Contribution(member, testutil.Date(2025, time.April, 1), "PENDING")

	check, err := svc.Check(context.Background(), domain.CheckRequest{MemberID: member, ProviderID: provider})
	require.NoError(t, err)
	assert.True(t, check.IsEligible)
	assert.True(t, check.ContributionsUpToDate)
	assert.Empty(t, check.IneligibilityReason)
	require.NotNil(t, check.LastContributionDate)
	assert.True(t, testutil.Date(2025, time.March, 6).Equal(*check.LastContributionDate))

	got, err := svc.Get(context.Background(), check.ID)
	require.NoError(t, err)
	assert.Equal(t, check.ID, got.ID)
	assert.True(t, got.IsEligible)
	assert.Equal(t, []events.Type{events.EligibilityChecked}, h.Recorder.Types())
}

func TestCheckLapsedMember(t *testing.T) {
	svc, h := setup(t)
	member := h.Fixtures.Member(nil)
	provider := h.Fixtures.Provider(nil)
	h.Fixtures.Contribution(member, testutil.Date(2025, time.February, 1), "COMPLETED")

	check, err := svc.Check(context.Background(), domain.CheckRequest{MemberID: member, ProviderID: provider})
	require.NoError(t, err)
	assert.False(t, check.IsEligible)
	assert.False(t, check.ContributionsUpToDate)
	assert.Equal(t, domain.ReasonNoContributions, check.IneligibilityReason)
	require.NotNil(t, check.LastContributionDate)

	h.Fixtures.SetMemberFlags(member, true, true)
	check, err = svc.Check(context.Background(), domain.CheckRequest{MemberID: member, ProviderID: provider})
	require.NoError(t, err)
	assert.True(t, check.IsEligible)

	h.Fixtures.SetMemberFlags(member, false, true)
	check, err = svc.Check(context.Background(), domain.CheckRequest{MemberID: member, ProviderID: provider})
	require.NoError(t, err)
	assert.False(t, check.IsEligible)
	assert.Equal(t, domain.ReasonInactive, check.IneligibilityReason)

	assert.Equal(t, int64(3), testutil.Count(t, h.DB, "eligibility_checks", "member_id = ?", member))
}

func TestCheckRejectsUnknownParties(t *testing.T) {
	svc, h := setup(t)
	member := h.Fixtures.Member(nil)
	provider := h.Fixtures.Provider(nil)

	_, err := svc.Check(context.Background(), domain.CheckRequest{MemberID: h.Node.Generate(), ProviderID: provider})
	assert.ErrorIs(t, err, domain.ErrInvalidMember)

	h.Fixtures.SetProviderActive(provider, false)
	_, err = svc.Check(context.Background(), domain.CheckRequest{MemberID: member, ProviderID: provider})
	assert.ErrorIs(t, err, domain.ErrInvalidProvider)

	_, err = svc.Get(context.Background(), h.Node.Generate())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, int64(0), testutil.Count(t, h.DB, "eligibility_checks", ""))
}

func TestList(t *testing.T) {
	svc, h := setup(t)
	ctx := context.Background()
	current := h.Fixtures.Member(nil)
	lapsed := h.Fixtures.Member(nil)
	provider := h.Fixtures.Provider(nil)
	h.Fixtures.Contribution(current, testutil.Date(2025, time.April, 1), "COMPLETED")

	for _, m := range []snowflake.ID{current, current, lapsed} {
		_, err := svc.Check(ctx, domain.CheckRequest{MemberID: m, ProviderID: provider})
		require.NoError(t, err)
	}

	res, err := svc.List(ctx, domain.ListRequest{MemberID: current.String()})
	require.NoError(t, err)
	assert.Len(t, res.Checks, 2)

	res, err = svc.List(ctx, domain.ListRequest{Eligible: "false"})
	require.NoError(t, err)
	require.Len(t, res.Checks, 1)
	assert.Equal(t, lapsed, res.Checks[0].MemberID)

	res, err = svc.List(ctx, domain.ListRequest{ProviderID: provider.String(), Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	assert.Len(t, res.Checks, 2)
	assert.True(t, res.HasMore)

	_, err = svc.List(ctx, domain.ListRequest{Eligible: "maybe"})
	assert.ErrorIs(t, err, domain.ErrInvalidEligible)
}
