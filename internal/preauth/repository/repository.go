package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/internal/preauth/domain"
	"github.com/smallbiznis/shaadmin/pkg/db/option"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *domain.PreAuthorization) error {
	return db.WithContext(ctx).Create(p).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PreAuthorization, error) {
	var p domain.PreAuthorization
	err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.PreAuthorization, error) {
	stmt := db.WithContext(ctx).Model(&domain.PreAuthorization{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.MemberID != 0 {
		stmt = stmt.Where("member_id = ?", filter.MemberID)
	}
	if filter.ProviderID != 0 {
		stmt = stmt.Where("provider_id = ?", filter.ProviderID)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)

	var items []*domain.PreAuthorization
	err := stmt.Order("created_at desc, id desc").Find(&items).Error
	return items, err
}

func (r *repo) IDsInStatus(ctx context.Context, db *gorm.DB, ids []snowflake.ID, statuses []domain.Status) ([]snowflake.ID, error) {
	var out []snowflake.ID
	err := db.WithContext(ctx).Model(&domain.PreAuthorization{}).
		Where("id IN ? AND status IN ?", ids, statuses).
		Order("id").
		Pluck("id", &out).Error
	return out, err
}

func (r *repo) ExpiredIDs(ctx context.Context, db *gorm.DB, now time.Time) ([]snowflake.ID, error) {
	var out []snowflake.ID
	err := db.WithContext(ctx).Model(&domain.PreAuthorization{}).
		Where("status IN ? AND valid_until IS NOT NULL AND valid_until < ?", domain.Sources(domain.StatusExpired), now).
		Order("id").
		Pluck("id", &out).Error
	return out, err
}

// Transition updates the rows among ids still in one of from; the status
// filter makes concurrent changes lose rather than overwrite.
func (r *repo) Transition(ctx context.Context, db *gorm.DB, ids []snowflake.ID, from []domain.Status, fields map[string]any) (int64, error) {
	res := db.WithContext(ctx).Model(&domain.PreAuthorization{}).
		Where("id IN ? AND status IN ?", ids, from).
		Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *repo) Recipients(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.Recipient, error) {
	var rows []domain.Recipient
	err := db.WithContext(ctx).Table("preauthorizations AS p").
		Select("p.id, p.authorization_number, m.user_id, p.approved_amount").
		Joins("JOIN members AS m ON m.id = p.member_id").
		Where("p.id IN ?", ids).
		Order("p.id").
		Scan(&rows).Error
	return rows, err
}

func (r *repo) Member(ctx context.Context, db *gorm.DB, id snowflake.ID) (domain.Party, error) {
	return party(ctx, db, "members", id)
}

func (r *repo) Provider(ctx context.Context, db *gorm.DB, id snowflake.ID) (domain.Party, error) {
	return party(ctx, db, "healthcare_providers", id)
}

func (r *repo) BenefitService(ctx context.Context, db *gorm.DB, id snowflake.ID) (domain.Party, error) {
	return party(ctx, db, "benefit_services", id)
}

func party(ctx context.Context, db *gorm.DB, table string, id snowflake.ID) (domain.Party, error) {
	var rows []struct{ IsActive bool }
	err := db.WithContext(ctx).Table(table).Select("is_active").Where("id = ?", id).Scan(&rows).Error
	if err != nil || len(rows) == 0 {
		return domain.Party{}, err
	}
	return domain.Party{Found: true, Active: rows[0].IsActive}, nil
}
