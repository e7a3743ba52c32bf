package service

import (
	"context"
	"time"

	"github.com/smallbiznis/shaadmin/internal/cache"
	"github.com/smallbiznis/shaadmin/internal/clock"
	"github.com/smallbiznis/shaadmin/internal/config"
	"github.com/smallbiznis/shaadmin/internal/dashboard/domain"
	"github.com/smallbiznis/shaadmin/pkg/civil"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	cacheKey    = "dashboard:summary"
	trendMonths = 6
	topN        = 5
	recentN     = 5
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Repo   domain.Repository
	Policy *config.SchemePolicyHolder
	Cache  *cache.JSONCache `optional:"true"`
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	clock  clock.Clock
	repo   domain.Repository
	policy *config.SchemePolicyHolder
	cache  *cache.JSONCache
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("dashboard.service"),
		clock:  p.Clock,
		repo:   p.Repo,
		policy: p.Policy,
		cache:  p.Cache,
	}
}

func (s *Service) Summary(ctx context.Context) (*domain.Summary, error) {
	var cached domain.Summary
	ok, err := s.cache.Get(ctx, cacheKey, &cached)
	if err != nil {
		// a broken cache must not take the dashboard down
		s.log.Warn("dashboard cache read failed", zap.Error(err))
	}
	if ok {
		return &cached, nil
	}
	return s.Refresh(ctx)
}

func (s *Service) Refresh(ctx context.Context) (*domain.Summary, error) {
	summary, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, cacheKey, summary, s.policy.Get().DashboardCacheTTL); err != nil {
		s.log.Warn("dashboard cache write failed", zap.Error(err))
	}
	return summary, nil
}

// collector runs aggregate queries and keeps the first error, so compute
// reads as a flat list of figures.
type collector struct {
	ctx  context.Context
	db   *gorm.DB
	repo domain.Repository
	err  error
}

func (c *collector) count(table, where string, args ...any) int64 {
	if c.err != nil {
		return 0
	}
	n, err := c.repo.Count(c.ctx, c.db, table, where, args...)
	c.err = err
	return n
}

func (c *collector) sum(table, column, where string, args ...any) int64 {
	if c.err != nil {
		return 0
	}
	n, err := c.repo.Sum(c.ctx, c.db, table, column, where, args...)
	c.err = err
	return n
}

func (s *Service) compute(ctx context.Context) (*domain.Summary, error) {
	now := s.clock.Now()
	thisMonth := civil.FirstOfMonth(now)
	lastMonth := thisMonth.AddDate(0, -1, 0)
	nextMonth := thisMonth.AddDate(0, 1, 0)

	c := &collector{ctx: ctx, db: s.db, repo: s.repo}
	out := &domain.Summary{GeneratedAt: now}

	out.Members = domain.MemberStats{
		Total:        c.count("members", ""),
		Active:       c.count("members", "is_active = ?", true),
		Principals:   c.count("members", "is_active = ? AND member_type = ?", true, "PRINCIPAL"),
		Dependents:   c.count("members", "is_active = ? AND member_type = ?", true, "DEPENDENT"),
		NewThisMonth: c.count("members", "registration_date >= ?", thisMonth),
		NewLastMonth: c.count("members", "registration_date >= ? AND registration_date < ?", lastMonth, thisMonth),
	}
	out.Members.GrowthPct = domain.Growth(out.Members.NewThisMonth, out.Members.NewLastMonth)

	out.Employers = domain.EmployerStats{
		Total:  c.count("employers", ""),
		Active: c.count("employers", "is_active = ?", true),
	}
	out.Providers = domain.ProviderStats{
		Total:      c.count("healthcare_providers", ""),
		Active:     c.count("healthcare_providers", "is_active = ?", true),
		Contracted: c.count("healthcare_providers", "is_active = ? AND is_contracted = ?", true, true),
	}

	out.Contributions = domain.ContributionStats{
		CompletedTotal: c.sum("contributions", "contribution_amount", "status = ?", "COMPLETED"),
		CurrentMonth: c.sum("contributions", "contribution_amount",
			"status = ? AND contribution_month >= ? AND contribution_month < ?", "COMPLETED", thisMonth, nextMonth),
		LastMonth: c.sum("contributions", "contribution_amount",
			"status = ? AND contribution_month >= ? AND contribution_month < ?", "COMPLETED", lastMonth, thisMonth),
		PendingCount: c.count("contributions", "status = ?", "PENDING"),
	}
	out.Contributions.GrowthPct = domain.Growth(out.Contributions.CurrentMonth, out.Contributions.LastMonth)

	out.Claims = domain.ClaimStats{
		Total:         c.count("claims", ""),
		Pending:       c.count("claims", "status IN ?", []string{"SUBMITTED", "UNDER_REVIEW"}),
		TotalClaimed:  c.sum("claims", "claimed_amount", ""),
		TotalApproved: c.sum("claims", "approved_amount", "status IN ?", []string{"APPROVED", "PAID"}),
		ThisMonth:     c.count("claims", "submission_date >= ?", thisMonth),
		LastMonth:     c.count("claims", "submission_date >= ? AND submission_date < ?", lastMonth, thisMonth),
	}
	out.Claims.GrowthPct = domain.Growth(out.Claims.ThisMonth, out.Claims.LastMonth)

	out.PreAuthorizations.Pending = c.count("preauthorizations", "status = ?", "PENDING")

	out.Payments = domain.PaymentStats{
		CompletedTotal: c.sum("payments", "payment_amount", "status = ?", "COMPLETED"),
		CompletedThisMonth: c.sum("payments", "payment_amount",
			"status = ? AND payment_date >= ?", "COMPLETED", thisMonth),
		PendingCount:  c.count("payments", "status IN ?", []string{"PENDING", "PROCESSING"}),
		PendingAmount: c.sum("payments", "payment_amount", "status IN ?", []string{"PENDING", "PROCESSING"}),
	}
	if c.err != nil {
		return nil, c.err
	}

	var err error
	if out.Claims.ByStatus, err = s.repo.CountByStatus(ctx, s.db, "claims"); err != nil {
		return nil, err
	}
	trendFrom := thisMonth.AddDate(0, -(trendMonths - 1), 0)
	monthly, err := s.repo.MonthlyContributions(ctx, s.db, trendFrom, nextMonth)
	if err != nil {
		return nil, err
	}
	out.Contributions.Trend = trend(trendFrom, monthly)

	if out.TopProviders, err = s.repo.TopProviders(ctx, s.db, topN); err != nil {
		return nil, err
	}
	if out.TopCounties, err = s.repo.TopCounties(ctx, s.db, topN); err != nil {
		return nil, err
	}
	if out.RecentClaims, err = s.repo.RecentClaims(ctx, s.db, recentN); err != nil {
		return nil, err
	}
	return out, nil
}

// trend lists every month from the first, zero-filling months without
// completed contributions.
func trend(from time.Time, monthly map[string]int64) []domain.MonthAmount {
	out := make([]domain.MonthAmount, 0, trendMonths)
	for i := 0; i < trendMonths; i++ {
		key := from.AddDate(0, i, 0).Format("2006-01")
		out = append(out, domain.MonthAmount{Month: key, Amount: monthly[key]})
	}
	return out
}
