package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/internal/employer/domain"
	"github.com/smallbiznis/shaadmin/pkg/db/option"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, e *domain.Employer) error {
	return db.WithContext(ctx).Create(e).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Employer, error) {
	var e domain.Employer
	err := db.WithContext(ctx).Where("id = ?", id).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, req domain.ListRequest, page pagination.Pagination) ([]*domain.Employer, error) {
	stmt := db.WithContext(ctx).Model(&domain.Employer{})
	if county := strings.TrimSpace(req.County); county != "" {
		stmt = stmt.Where("county = ?", county)
	}
	if req.IsActive != nil {
		stmt = stmt.Where("is_active = ?", *req.IsActive)
	}
	if search := strings.TrimSpace(req.Search); search != "" {
		like := "%" + search + "%"
		stmt = stmt.Where("(company_name LIKE ? OR employer_code LIKE ? OR kra_pin LIKE ?)", like, like, like)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)

	var items []*domain.Employer
	err := stmt.Order("created_at desc, id desc").Find(&items).Error
	return items, err
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).Model(&domain.Employer{}).Where("id = ?", id).Updates(fields).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM employers WHERE id = ?`, id).Error
}
