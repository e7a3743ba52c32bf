package repository

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/shaadmin/internal/dashboard/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Count and Sum take table and column names from the service, never from
// request input.
func (r *repo) Count(ctx context.Context, db *gorm.DB, table, where string, args ...any) (int64, error) {
	stmt := db.WithContext(ctx).Table(table)
	if where != "" {
		stmt = stmt.Where(where, args...)
	}
	var n int64
	err := stmt.Count(&n).Error
	return n, err
}

func (r *repo) Sum(ctx context.Context, db *gorm.DB, table, column, where string, args ...any) (int64, error) {
	stmt := db.WithContext(ctx).Table(table).Select("COALESCE(SUM(" + column + "), 0)")
	if where != "" {
		stmt = stmt.Where(where, args...)
	}
	var total int64
	err := stmt.Scan(&total).Error
	return total, err
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB, table string) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := db.WithContext(ctx).Table(table).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

// MonthlyContributions sums completed contributions per month in [from, to),
// keyed "2006-01".
func (r *repo) MonthlyContributions(ctx context.Context, db *gorm.DB, from, to time.Time) (map[string]int64, error) {
	var rows []struct {
		Month  time.Time
		Amount int64
	}
	err := db.WithContext(ctx).Table("contributions").
		Select("contribution_month AS month, COALESCE(SUM(contribution_amount), 0) AS amount").
		Where("status = ? AND contribution_month >= ? AND contribution_month < ?", "COMPLETED", from, to).
		Group("contribution_month").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Month.UTC().Format("2006-01")] += row.Amount
	}
	return out, nil
}

func (r *repo) TopProviders(ctx context.Context, db *gorm.DB, limit int) ([]domain.ProviderClaims, error) {
	var rows []domain.ProviderClaims
	err := db.WithContext(ctx).Table("healthcare_providers AS hp").
		Select("hp.id AS provider_id, hp.facility_name, COUNT(c.id) AS claims").
		Joins("JOIN claims AS c ON c.provider_id = hp.id").
		Group("hp.id, hp.facility_name").
		Order("claims desc, hp.facility_name").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *repo) TopCounties(ctx context.Context, db *gorm.DB, limit int) ([]domain.CountyMembers, error) {
	var rows []domain.CountyMembers
	err := db.WithContext(ctx).Table("members").
		Select("county, COUNT(*) AS members").
		Where("county <> ''").
		Group("county").
		Order("members desc, county").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *repo) RecentClaims(ctx context.Context, db *gorm.DB, limit int) ([]domain.RecentClaim, error) {
	var rows []struct {
		domain.RecentClaim
		FirstName string
		LastName  string
	}
	err := db.WithContext(ctx).Table("claims AS c").
		Select("c.id, c.claim_number, m.first_name, m.last_name, " +
			"COALESCE(hp.facility_name, '') AS facility_name, c.status, c.claimed_amount, c.submission_date").
		Joins("JOIN members AS m ON m.id = c.member_id").
		Joins("LEFT JOIN healthcare_providers AS hp ON hp.id = c.provider_id").
		Order("c.submission_date desc, c.id desc").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.RecentClaim, 0, len(rows))
	for _, row := range rows {
		claim := row.RecentClaim
		claim.MemberName = strings.TrimSpace(row.FirstName + " " + row.LastName)
		out = append(out, claim)
	}
	return out, nil
}
