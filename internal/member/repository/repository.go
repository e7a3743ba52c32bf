package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/internal/member/domain"
	"github.com/smallbiznis/shaadmin/pkg/db/option"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, m *domain.Member) error {
	return db.WithContext(ctx).Create(m).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Member, error) {
	return first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindBySHANumber(ctx context.Context, db *gorm.DB, shaNumber string) (*domain.Member, error) {
	return first(db.WithContext(ctx).Where("sha_number = ?", shaNumber))
}

func first(stmt *gorm.DB) (*domain.Member, error) {
	var m domain.Member
	if err := stmt.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Member, error) {
	stmt := db.WithContext(ctx).Model(&domain.Member{})
	if filter.MemberType != "" {
		stmt = stmt.Where("member_type = ?", filter.MemberType)
	}
	if filter.County != "" {
		stmt = stmt.Where("county = ?", filter.County)
	}
	if filter.EmployerID != 0 {
		stmt = stmt.Where("employer_id = ?", filter.EmployerID)
	}
	if filter.PrincipalID != 0 {
		stmt = stmt.Where("principal_member_id = ?", filter.PrincipalID)
	}
	if filter.IsActive != nil {
		stmt = stmt.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		stmt = stmt.Where("(first_name LIKE ? OR last_name LIKE ? OR national_id LIKE ? OR sha_number LIKE ?)", like, like, like, like)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)

	var items []*domain.Member
	err := stmt.Order("created_at desc, id desc").Find(&items).Error
	return items, err
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).Model(&domain.Member{}).Where("id = ?", id).Updates(fields).Error
}

func (r *repo) EmployerExists(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	return exists(ctx, db, `SELECT COUNT(*) FROM employers WHERE id = ?`, id)
}

func (r *repo) UserExists(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	return exists(ctx, db, `SELECT COUNT(*) FROM users WHERE id = ?`, id)
}

func exists(ctx context.Context, db *gorm.DB, query string, id snowflake.ID) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Raw(query, id).Scan(&n).Error
	return n > 0, err
}
