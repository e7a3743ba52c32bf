package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/internal/contribution/domain"
	"github.com/smallbiznis/shaadmin/pkg/db/option"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *domain.Contribution) error {
	return db.WithContext(ctx).Create(c).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Contribution, error) {
	var c domain.Contribution
	err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Contribution, error) {
	stmt := db.WithContext(ctx).Model(&domain.Contribution{})
	if filter.MemberID != 0 {
		stmt = stmt.Where("member_id = ?", filter.MemberID)
	}
	if filter.EmployerID != 0 {
		stmt = stmt.Where("employer_id = ?", filter.EmployerID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.MonthFrom != nil {
		stmt = stmt.Where("contribution_month >= ?", *filter.MonthFrom)
	}
	if filter.MonthTo != nil {
		stmt = stmt.Where("contribution_month <= ?", *filter.MonthTo)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)

	var items []*domain.Contribution
	err := stmt.Order("created_at desc, id desc").Find(&items).Error
	return items, err
}

func (r *repo) IDsNotIn(ctx context.Context, db *gorm.DB, ids []snowflake.ID, status domain.Status) ([]snowflake.ID, error) {
	var out []snowflake.ID
	err := db.WithContext(ctx).Model(&domain.Contribution{}).
		Where("id IN ? AND status <> ?", ids, status).
		Order("id").
		Pluck("id", &out).Error
	return out, err
}

// SetStatus moves ids to status in one statement. An empty from applies to
// every row that is not already in status.
func (r *repo) SetStatus(ctx context.Context, db *gorm.DB, ids []snowflake.ID, from []domain.Status, to domain.Status, at time.Time) (int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Contribution{}).Where("id IN ?", ids)
	if len(from) > 0 {
		stmt = stmt.Where("status IN ?", from)
	} else {
		stmt = stmt.Where("status <> ?", to)
	}
	res := stmt.Updates(map[string]any{"status": to, "updated_at": at})
	return res.RowsAffected, res.Error
}

func (r *repo) Recipients(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.Recipient, error) {
	var rows []struct {
		ContributionID       snowflake.ID
		MemberID             snowflake.ID
		UserID               *snowflake.ID
		ContributionAmount   int64
		ContributionMonth    time.Time
		TransactionReference string
	}
	err := db.WithContext(ctx).Table("contributions AS c").
		Select("c.id AS contribution_id, c.member_id, m.user_id, c.contribution_amount, c.contribution_month, c.transaction_reference").
		Joins("JOIN members AS m ON m.id = c.member_id").
		Where("c.id IN ?", ids).
		Order("c.id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Recipient, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Recipient{
			ContributionID: row.ContributionID,
			MemberID:       row.MemberID,
			UserID:         row.UserID,
			Amount:         row.ContributionAmount,
			Month:          row.ContributionMonth,
			Reference:      row.TransactionReference,
		})
	}
	return out, nil
}

func (r *repo) Summary(ctx context.Context, db *gorm.DB, memberID snowflake.ID) (domain.Summary, error) {
	out := domain.Summary{MemberID: memberID}
	var totals struct {
		Total  int64
		Months int64
	}
	err := db.WithContext(ctx).Model(&domain.Contribution{}).
		Select("COALESCE(SUM(contribution_amount), 0) AS total, COUNT(*) AS months").
		Where("member_id = ? AND status = ?", memberID, domain.StatusCompleted).
		Scan(&totals).Error
	if err != nil {
		return out, err
	}
	out.TotalCompleted = totals.Total
	out.MonthsCovered = totals.Months

	var last []time.Time
	err = db.WithContext(ctx).Model(&domain.Contribution{}).
		Where("member_id = ? AND status = ?", memberID, domain.StatusCompleted).
		Order("payment_date desc").
		Limit(1).
		Pluck("payment_date", &last).Error
	if err != nil {
		return out, err
	}
	if len(last) == 1 {
		out.LastContributionDate = &last[0]
	}

	err = db.WithContext(ctx).Model(&domain.Contribution{}).
		Where("member_id = ? AND status = ?", memberID, domain.StatusPending).
		Count(&out.PendingCount).Error
	return out, err
}

func (r *repo) MemberEmployer(ctx context.Context, db *gorm.DB, memberID snowflake.ID) (bool, *snowflake.ID, error) {
	var rows []struct {
		EmployerID *snowflake.ID
	}
	err := db.WithContext(ctx).Table("members").Select("employer_id").Where("id = ?", memberID).Scan(&rows).Error
	if err != nil || len(rows) == 0 {
		return false, nil, err
	}
	return true, rows[0].EmployerID, nil
}

func (r *repo) EmployerExists(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Table("employers").Where("id = ?", id).Count(&n).Error
	return n > 0, err
}
