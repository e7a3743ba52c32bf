package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/internal/benefit/domain"
	"github.com/smallbiznis/shaadmin/pkg/db/option"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertPackage(ctx context.Context, db *gorm.DB, p *domain.Package) error {
	return db.WithContext(ctx).Create(p).Error
}

func (r *repo) FindPackageByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Package, error) {
	var p domain.Package
	err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repo) ListPackages(ctx context.Context, db *gorm.DB, packageType domain.PackageType, active *bool, page pagination.Pagination) ([]*domain.Package, error) {
	stmt := db.WithContext(ctx).Model(&domain.Package{})
	if packageType != "" {
		stmt = stmt.Where("package_type = ?", packageType)
	}
	if active != nil {
		stmt = stmt.Where("is_active = ?", *active)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)

	var items []*domain.Package
	err := stmt.Order("created_at desc, id desc").Find(&items).Error
	return items, err
}

func (r *repo) UpdatePackage(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).Model(&domain.Package{}).Where("id = ?", id).Updates(fields).Error
}

func (r *repo) InsertService(ctx context.Context, db *gorm.DB, s *domain.BenefitService) error {
	return db.WithContext(ctx).Create(s).Error
}

func (r *repo) FindServiceByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.BenefitService, error) {
	var s domain.BenefitService
	err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repo) FindServicesByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.BenefitService, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []domain.BenefitService
	err := db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error
	return items, err
}

func (r *repo) ListServices(ctx context.Context, db *gorm.DB, filter domain.ServiceFilter, page pagination.Pagination) ([]*domain.BenefitService, error) {
	stmt := db.WithContext(ctx).Model(&domain.BenefitService{})
	if filter.PackageID != 0 {
		stmt = stmt.Where("benefit_package_id = ?", filter.PackageID)
	}
	if filter.Category != "" {
		stmt = stmt.Where("service_category = ?", filter.Category)
	}
	if filter.RequiresPreauthorization != nil {
		stmt = stmt.Where("requires_preauthorization = ?", *filter.RequiresPreauthorization)
	}
	if filter.IsActive != nil {
		stmt = stmt.Where("is_active = ?", *filter.IsActive)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)

	var items []*domain.BenefitService
	err := stmt.Order("created_at desc, id desc").Find(&items).Error
	return items, err
}

func (r *repo) UpdateService(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).Model(&domain.BenefitService{}).Where("id = ?", id).Updates(fields).Error
}
