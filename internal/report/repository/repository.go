package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/internal/report/domain"
	"github.com/smallbiznis/shaadmin/pkg/db/option"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, report *domain.Report) error {
	return db.WithContext(ctx).Create(report).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Report, error) {
	var report domain.Report
	err := db.WithContext(ctx).Where("id = ?", id).First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, reportType domain.Type, page pagination.Pagination) ([]*domain.Report, error) {
	stmt := db.WithContext(ctx).Model(&domain.Report{})
	if reportType != "" {
		stmt = stmt.Where("report_type = ?", reportType)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)

	var items []*domain.Report
	err := stmt.Order("created_at desc, id desc").Find(&items).Error
	return items, err
}

func (r *repo) Contributions(ctx context.Context, db *gorm.DB, q domain.Query) ([]domain.ContributionRow, error) {
	stmt := db.WithContext(ctx).Table("contributions AS c").
		Select("c.contribution_month AS month, c.status, COUNT(*) AS count, COALESCE(SUM(c.contribution_amount), 0) AS amount").
		Where("c.contribution_month >= ? AND c.contribution_month < ?", q.Start, q.End)
	if q.Filters.Status != "" {
		stmt = stmt.Where("c.status = ?", q.Filters.Status)
	}
	if q.Filters.County != "" {
		stmt = stmt.Joins("JOIN members AS m ON m.id = c.member_id").Where("m.county = ?", q.Filters.County)
	}

	var rows []domain.ContributionRow
	err := stmt.Group("c.contribution_month, c.status").
		Order("c.contribution_month, c.status").
		Scan(&rows).Error
	return rows, err
}

func (r *repo) Claims(ctx context.Context, db *gorm.DB, q domain.Query) ([]domain.ClaimRow, error) {
	stmt := claimScope(db.WithContext(ctx).Table("claims AS c"), q).
		Select("c.status, c.claim_type, COUNT(*) AS count, " +
			"COALESCE(SUM(c.claimed_amount), 0) AS claimed, COALESCE(SUM(c.approved_amount), 0) AS approved")

	var rows []domain.ClaimRow
	err := stmt.Group("c.status, c.claim_type").
		Order("c.status, c.claim_type").
		Scan(&rows).Error
	return rows, err
}

func (r *repo) Payments(ctx context.Context, db *gorm.DB, q domain.Query) ([]domain.PaymentRow, error) {
	stmt := db.WithContext(ctx).Table("payments AS p").
		Select("p.status, COUNT(*) AS count, COALESCE(SUM(p.payment_amount), 0) AS amount").
		Where("p.payment_date >= ? AND p.payment_date < ?", q.Start, q.End)
	if q.Filters.Status != "" {
		stmt = stmt.Where("p.status = ?", q.Filters.Status)
	}
	if q.Filters.ProviderID != nil {
		stmt = stmt.Where("p.provider_id = ?", *q.Filters.ProviderID)
	}

	var rows []domain.PaymentRow
	err := stmt.Group("p.status").Order("p.status").Scan(&rows).Error
	return rows, err
}

func (r *repo) Utilization(ctx context.Context, db *gorm.DB, q domain.Query) ([]domain.UtilizationRow, error) {
	stmt := db.WithContext(ctx).Table("claim_items AS ci").
		Select("bs.service_category AS category, COUNT(*) AS items, "+
			"COALESCE(SUM(ci.quantity), 0) AS quantity, COALESCE(SUM(ci.total_amount), 0) AS amount").
		Joins("JOIN benefit_services AS bs ON bs.id = ci.benefit_service_id").
		Joins("JOIN claims AS c ON c.id = ci.claim_id").
		Where("ci.service_date >= ? AND ci.service_date < ?", q.Start, q.End)
	if q.Filters.Status != "" {
		stmt = stmt.Where("c.status = ?", q.Filters.Status)
	}
	if q.Filters.ProviderID != nil {
		stmt = stmt.Where("c.provider_id = ?", *q.Filters.ProviderID)
	}

	var rows []domain.UtilizationRow
	err := stmt.Group("bs.service_category").Order("bs.service_category").Scan(&rows).Error
	return rows, err
}

func (r *repo) Providers(ctx context.Context, db *gorm.DB, q domain.Query) ([]domain.ProviderRow, error) {
	stmt := claimScope(db.WithContext(ctx).Table("claims AS c"), q).
		Select("hp.facility_code, hp.facility_name, COUNT(*) AS claims, "+
			"SUM(CASE WHEN c.status IN (?, ?) THEN 1 ELSE 0 END) AS approved, "+
			"SUM(CASE WHEN c.status = ? THEN 1 ELSE 0 END) AS paid, "+
			"COALESCE(SUM(c.claimed_amount), 0) AS claimed, "+
			"COALESCE(SUM(c.approved_amount), 0) AS approved_amount",
			"APPROVED", "PAID", "PAID").
		Joins("JOIN healthcare_providers AS hp ON hp.id = c.provider_id")

	var rows []domain.ProviderRow
	err := stmt.Group("hp.facility_code, hp.facility_name").
		Order("claims desc, hp.facility_code").
		Scan(&rows).Error
	return rows, err
}

func (r *repo) Enrollment(ctx context.Context, db *gorm.DB, q domain.Query) ([]domain.EnrollmentRow, error) {
	stmt := db.WithContext(ctx).Table("members AS m").
		Select("m.county, m.member_type, COUNT(*) AS count").
		Where("m.registration_date >= ? AND m.registration_date < ?", q.Start, q.End)
	if q.Filters.County != "" {
		stmt = stmt.Where("m.county = ?", q.Filters.County)
	}

	var rows []domain.EnrollmentRow
	err := stmt.Group("m.county, m.member_type").
		Order("m.county, m.member_type").
		Scan(&rows).Error
	return rows, err
}

// claimScope applies the visit window and the claim filters.
func claimScope(stmt *gorm.DB, q domain.Query) *gorm.DB {
	stmt = stmt.Where("c.visit_date >= ? AND c.visit_date < ?", q.Start, q.End)
	if q.Filters.Status != "" {
		stmt = stmt.Where("c.status = ?", q.Filters.Status)
	}
	if q.Filters.ProviderID != nil {
		stmt = stmt.Where("c.provider_id = ?", *q.Filters.ProviderID)
	}
	if q.Filters.County != "" {
		stmt = stmt.Joins("JOIN members AS m ON m.id = c.member_id").Where("m.county = ?", q.Filters.County)
	}
	return stmt
}
