package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	benefitdomain "github.com/smallbiznis/shaadmin/internal/benefit/domain"
	"github.com/smallbiznis/shaadmin/internal/claim/domain"
	"github.com/smallbiznis/shaadmin/pkg/db/option"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *domain.Claim) error {
	return db.WithContext(ctx).Create(c).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.Item) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Claim, error) {
	var c domain.Claim
	err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repo) FindItems(ctx context.Context, db *gorm.DB, claimID snowflake.ID) ([]domain.Item, error) {
	var items []domain.Item
	err := db.WithContext(ctx).Where("claim_id = ?", claimID).Order("id").Find(&items).Error
	return items, err
}

func (r *repo) FindItem(ctx context.Context, db *gorm.DB, claimID, itemID snowflake.ID) (*domain.Item, error) {
	var item domain.Item
	err := db.WithContext(ctx).Where("id = ? AND claim_id = ?", itemID, claimID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) UpdateItem(ctx context.Context, db *gorm.DB, itemID snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).Model(&domain.Item{}).Where("id = ?", itemID).Updates(fields).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Claim, error) {
	stmt := db.WithContext(ctx).Model(&domain.Claim{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.MemberID != 0 {
		stmt = stmt.Where("member_id = ?", filter.MemberID)
	}
	if filter.ProviderID != 0 {
		stmt = stmt.Where("provider_id = ?", filter.ProviderID)
	}
	if filter.ClaimType != "" {
		stmt = stmt.Where("claim_type = ?", filter.ClaimType)
	}
	if filter.VisitFrom != nil {
		stmt = stmt.Where("visit_date >= ?", *filter.VisitFrom)
	}
	if filter.VisitTo != nil {
		stmt = stmt.Where("visit_date <= ?", *filter.VisitTo)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)

	var items []*domain.Claim
	err := stmt.Order("created_at desc, id desc").Find(&items).Error
	return items, err
}

func (r *repo) IDsInStatus(ctx context.Context, db *gorm.DB, ids []snowflake.ID, statuses []domain.Status) ([]snowflake.ID, error) {
	var out []snowflake.ID
	err := db.WithContext(ctx).Model(&domain.Claim{}).
		Where("id IN ? AND status IN ?", ids, statuses).
		Order("id").
		Pluck("id", &out).Error
	return out, err
}

// Transition updates the rows among ids still in one of from.
func (r *repo) Transition(ctx context.Context, db *gorm.DB, ids []snowflake.ID, from []domain.Status, fields map[string]any) (int64, error) {
	res := db.WithContext(ctx).Model(&domain.Claim{}).
		Where("id IN ? AND status IN ?", ids, from).
		Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *repo) Recipients(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.Recipient, error) {
	var rows []domain.Recipient
	err := db.WithContext(ctx).Table("claims AS c").
		Select("c.id, c.claim_number, m.user_id").
		Joins("JOIN members AS m ON m.id = c.member_id").
		Where("c.id IN ?", ids).
		Order("c.id").
		Scan(&rows).Error
	return rows, err
}

func (r *repo) Member(ctx context.Context, db *gorm.DB, id snowflake.ID) (domain.Party, error) {
	return party(ctx, db, "members", id)
}

func (r *repo) Provider(ctx context.Context, db *gorm.DB, id snowflake.ID) (domain.Party, error) {
	return party(ctx, db, "healthcare_providers", id)
}

func party(ctx context.Context, db *gorm.DB, table string, id snowflake.ID) (domain.Party, error) {
	var rows []struct{ IsActive bool }
	err := db.WithContext(ctx).Table(table).Select("is_active").Where("id = ?", id).Scan(&rows).Error
	if err != nil || len(rows) == 0 {
		return domain.Party{}, err
	}
	return domain.Party{Found: true, Active: rows[0].IsActive}, nil
}

func (r *repo) PackageExists(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(&benefitdomain.Package{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

func (r *repo) PackageServices(ctx context.Context, db *gorm.DB, packageID snowflake.ID, ids []snowflake.ID) ([]benefitdomain.BenefitService, error) {
	var out []benefitdomain.BenefitService
	err := db.WithContext(ctx).
		Where("benefit_package_id = ? AND id IN ?", packageID, ids).
		Find(&out).Error
	return out, err
}

func (r *repo) PreAuthMember(ctx context.Context, db *gorm.DB, id snowflake.ID) (snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Table("preauthorizations").Where("id = ?", id).Pluck("member_id", &ids).Error
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	return ids[0], nil
}
