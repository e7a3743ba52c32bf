package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/internal/payment/domain"
	"github.com/smallbiznis/shaadmin/pkg/db/option"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *domain.Payment) error {
	return db.WithContext(ctx).Create(p).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	var p domain.Payment
	err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Payment, error) {
	stmt := db.WithContext(ctx).Model(&domain.Payment{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.ProviderID != 0 {
		stmt = stmt.Where("provider_id = ?", filter.ProviderID)
	}
	if filter.ClaimID != 0 {
		stmt = stmt.Where("claim_id = ?", filter.ClaimID)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)

	var items []*domain.Payment
	err := stmt.Order("created_at desc, id desc").Find(&items).Error
	return items, err
}

func (r *repo) IDsNotIn(ctx context.Context, db *gorm.DB, ids []snowflake.ID, status domain.Status) ([]snowflake.ID, error) {
	var out []snowflake.ID
	err := db.WithContext(ctx).Model(&domain.Payment{}).
		Where("id IN ? AND status <> ?", ids, status).
		Order("id").
		Pluck("id", &out).Error
	return out, err
}

func (r *repo) WithClaimIn(ctx context.Context, db *gorm.DB, ids []snowflake.ID, claimStatuses []string) ([]snowflake.ID, error) {
	var out []snowflake.ID
	err := db.WithContext(ctx).Table("payments AS p").
		Joins("JOIN claims AS c ON c.id = p.claim_id").
		Where("p.id IN ? AND c.status IN ?", ids, claimStatuses).
		Order("p.id").
		Pluck("p.id", &out).Error
	return out, err
}

// SetStatus updates ids that are still in one of from, or every id when
// from is empty.
func (r *repo) SetStatus(ctx context.Context, db *gorm.DB, ids []snowflake.ID, from []domain.Status, fields map[string]any) (int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Payment{}).Where("id IN ?", ids)
	if len(from) > 0 {
		stmt = stmt.Where("status IN ?", from)
	}
	res := stmt.Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *repo) Recipients(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.Recipient, error) {
	var rows []domain.Recipient
	err := db.WithContext(ctx).Table("payments AS p").
		Select("p.id, p.payment_reference, p.payment_amount, p.claim_id, hp.user_id").
		Joins("LEFT JOIN healthcare_providers AS hp ON hp.id = p.provider_id").
		Where("p.id IN ?", ids).
		Order("p.id").
		Scan(&rows).Error
	return rows, err
}

func (r *repo) ClaimTerms(ctx context.Context, db *gorm.DB, claimID snowflake.ID) (*domain.ClaimTerms, error) {
	var rows []domain.ClaimTerms
	err := db.WithContext(ctx).Table("claims").
		Select("id, claim_number, status, provider_id, claimed_amount, approved_amount").
		Where("id = ?", claimID).
		Scan(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (r *repo) HasActivePayment(ctx context.Context, db *gorm.DB, claimID snowflake.ID) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Payment{}).
		Where("claim_id = ? AND status <> ?", claimID, domain.StatusFailed).
		Count(&n).Error
	return n > 0, err
}
