package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/internal/provider/domain"
	"github.com/smallbiznis/shaadmin/pkg/db/option"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *domain.Provider) error {
	return db.WithContext(ctx).Create(p).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Provider, error) {
	var p domain.Provider
	err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Provider, error) {
	stmt := db.WithContext(ctx).Model(&domain.Provider{})
	if filter.FacilityLevel != "" {
		stmt = stmt.Where("facility_level = ?", filter.FacilityLevel)
	}
	if filter.FacilityType != "" {
		stmt = stmt.Where("facility_type = ?", filter.FacilityType)
	}
	if filter.County != "" {
		stmt = stmt.Where("county = ?", filter.County)
	}
	if filter.IsContracted != nil {
		stmt = stmt.Where("is_contracted = ?", *filter.IsContracted)
	}
	if filter.IsActive != nil {
		stmt = stmt.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		stmt = stmt.Where("(facility_name LIKE ? OR facility_code LIKE ? OR license_number LIKE ?)", like, like, like)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)

	var items []*domain.Provider
	err := stmt.Order("created_at desc, id desc").Find(&items).Error
	return items, err
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).Model(&domain.Provider{}).Where("id = ?", id).Updates(fields).Error
}
