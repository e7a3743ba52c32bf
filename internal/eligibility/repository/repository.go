package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/internal/eligibility/domain"
	"gorm.io/gorm"
)

const statusCompleted = "COMPLETED"

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Standing(ctx context.Context, db *gorm.DB, memberID snowflake.ID, since time.Time) (domain.MemberStanding, error) {
	var rows []struct {
		IsActive     bool
		IsSubsidized bool
	}
	err := db.WithContext(ctx).Table("members").
		Select("is_active, is_subsidized").
		Where("id = ?", memberID).
		Scan(&rows).Error
	if err != nil || len(rows) == 0 {
		return domain.MemberStanding{}, err
	}

	var recent int64
	err = db.WithContext(ctx).Table("contributions").
		Where("member_id = ? AND status = ? AND contribution_month >= ?", memberID, statusCompleted, since).
		Count(&recent).Error
	if err != nil {
		return domain.MemberStanding{}, err
	}
	return domain.MemberStanding{
		Found:           true,
		Active:          rows[0].IsActive,
		Subsidized:      rows[0].IsSubsidized,
		HasRecentCredit: recent > 0,
	}, nil
}

// LastContributionDate is the payment date of the latest completed
// contribution. It orders and plucks rather than using MAX so the driver
// still sees a timestamp column.
func (r *repo) LastContributionDate(ctx context.Context, db *gorm.DB, memberID snowflake.ID) (*time.Time, error) {
	var dates []time.Time
	err := db.WithContext(ctx).Table("contributions").
		Where("member_id = ? AND status = ?", memberID, statusCompleted).
		Order("payment_date desc").
		Limit(1).
		Pluck("payment_date", &dates).Error
	if err != nil || len(dates) == 0 {
		return nil, err
	}
	return &dates[0], nil
}

func (r *repo) ProviderActive(ctx context.Context, db *gorm.DB, providerID snowflake.ID) (bool, bool, error) {
	var rows []struct{ IsActive bool }
	err := db.WithContext(ctx).Table("healthcare_providers").
		Select("is_active").
		Where("id = ?", providerID).
		Scan(&rows).Error
	if err != nil || len(rows) == 0 {
		return false, false, err
	}
	return true, rows[0].IsActive, nil
}
