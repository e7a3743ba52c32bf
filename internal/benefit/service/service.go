package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/shaadmin/internal/audit/domain"
	"github.com/smallbiznis/shaadmin/internal/benefit/domain"
	"github.com/smallbiznis/shaadmin/internal/clock"
	"github.com/smallbiznis/shaadmin/pkg/civil"
	"github.com/smallbiznis/shaadmin/pkg/db"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	packageModel = "benefit_package"
	serviceModel = "benefit_service"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	AuditSvc auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("benefit.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) CreatePackage(ctx context.Context, req domain.CreatePackageRequest) (*domain.Package, error) {
	code := strings.ToUpper(strings.TrimSpace(req.PackageCode))
	if code == "" {
		return nil, domain.ErrInvalidPackageCode
	}
	name := strings.TrimSpace(req.PackageName)
	if name == "" {
		return nil, domain.ErrInvalidPackageName
	}
	packageType, ok := domain.ParsePackageType(req.PackageType)
	if !ok {
		return nil, domain.ErrInvalidPackageType
	}
	if err := validateLimits(req.AnnualLimit, req.PerIllnessLimit); err != nil {
		return nil, err
	}
	levels, ok := domain.NormalizeLevels(req.ApplicableFacilityLevels)
	if !ok {
		return nil, domain.ErrInvalidFacilityLevel
	}
	if req.EffectiveDate.IsZero() {
		return nil, domain.ErrInvalidEffectivePeriod
	}
	end := civil.TimePtr(req.EndDate)
	if end != nil && end.Before(req.EffectiveDate.Time) {
		return nil, domain.ErrInvalidEffectivePeriod
	}

	now := s.clock.Now()
	p := domain.Package{
		ID:                       s.genID.Generate(),
		PackageCode:              code,
		PackageName:              name,
		PackageType:              packageType,
		Description:              strings.TrimSpace(req.Description),
		AnnualLimit:              req.AnnualLimit,
		PerIllnessLimit:          req.PerIllnessLimit,
		ApplicableFacilityLevels: levels,
		EffectiveDate:            req.EffectiveDate.Time,
		EndDate:                  end,
		IsActive:                 true,
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertPackage(ctx, tx, &p); err != nil {
			return err
		}
		var changes auditdomain.ChangeSet
		changes.Set("package_code", p.PackageCode)
		changes.Set("package_type", string(p.PackageType))
		changes.Set("annual_limit", p.AnnualLimit)
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionCreate,
			ModelName:  packageModel,
			ObjectID:   p.ID,
			ObjectRepr: p.PackageCode + " " + p.PackageName,
			Changes:    changes,
		})
	})
	if err != nil {
		if _, dup := db.DuplicateKey(err, "package_code"); dup {
			return nil, domain.ErrDuplicatePackageCode
		}
		return nil, err
	}
	return &p, nil
}

func validateLimits(annual int64, perIllness *int64) error {
	if annual <= 0 {
		return domain.ErrInvalidLimit
	}
	if perIllness != nil && (*perIllness <= 0 || *perIllness > annual) {
		return domain.ErrInvalidLimit
	}
	return nil
}

func (s *Service) GetPackage(ctx context.Context, id snowflake.ID) (*domain.Package, error) {
	p, err := s.repo.FindPackageByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrPackageNotFound
	}
	return p, nil
}

func (s *Service) ListPackages(ctx context.Context, req domain.ListPackagesRequest) (domain.ListPackagesResponse, error) {
	var packageType domain.PackageType
	if req.PackageType != "" {
		t, ok := domain.ParsePackageType(strings.ToUpper(req.PackageType))
		if !ok {
			return domain.ListPackagesResponse{}, domain.ErrInvalidPackageType
		}
		packageType = t
	}

	page := req.Pagination
	page.PageSize = pagination.Normalize(page.PageSize)
	items, err := s.repo.ListPackages(ctx, s.db, packageType, req.IsActive, page)
	if err != nil {
		return domain.ListPackagesResponse{}, err
	}
	info := pagination.BuildCursorPageInfo(items, page.PageSize, func(p *domain.Package) string {
		return pagination.CursorFor(p.ID, p.CreatedAt)
	})
	return domain.ListPackagesResponse{
		PageInfo: *info,
		Packages: pagination.Trim(items, page.PageSize),
	}, nil
}

func (s *Service) UpdatePackage(ctx context.Context, id snowflake.ID, req domain.UpdatePackageRequest) (*domain.Package, error) {
	if req.PackageName != nil && strings.TrimSpace(*req.PackageName) == "" {
		return nil, domain.ErrInvalidPackageName
	}
	var levels domain.FacilityLevels
	if req.ApplicableFacilityLevels != nil {
		var ok bool
		if levels, ok = domain.NormalizeLevels(req.ApplicableFacilityLevels); !ok {
			return nil, domain.ErrInvalidFacilityLevel
		}
	}

	var out *domain.Package
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.repo.FindPackageByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.ErrPackageNotFound
		}
		out = p

		fields := map[string]any{}
		var changes auditdomain.ChangeSet
		if req.PackageName != nil {
			name := strings.TrimSpace(*req.PackageName)
			changes.Add("package_name", p.PackageName, name)
			fields["package_name"] = name
			p.PackageName = name
		}
		if req.Description != nil {
			desc := strings.TrimSpace(*req.Description)
			changes.Add("description", p.Description, desc)
			fields["description"] = desc
			p.Description = desc
		}
		if req.AnnualLimit != nil || req.PerIllnessLimit != nil {
			annual, perIllness := p.AnnualLimit, p.PerIllnessLimit
			if req.AnnualLimit != nil {
				annual = *req.AnnualLimit
			}
			if req.PerIllnessLimit != nil {
				perIllness = req.PerIllnessLimit
			}
			if err := validateLimits(annual, perIllness); err != nil {
				return err
			}
			changes.Add("annual_limit", p.AnnualLimit, annual)
			changes.Add("per_illness_limit", derefInt64(p.PerIllnessLimit), derefInt64(perIllness))
			fields["annual_limit"] = annual
			fields["per_illness_limit"] = perIllness
			p.AnnualLimit, p.PerIllnessLimit = annual, perIllness
		}
		if req.ApplicableFacilityLevels != nil {
			changes.Add("applicable_facility_levels", levelStrings(p.ApplicableFacilityLevels), levelStrings(levels))
			fields["applicable_facility_levels"] = levels
			p.ApplicableFacilityLevels = levels
		}
		if req.EffectiveDate != nil || req.EndDate != nil {
			effective, end := p.EffectiveDate, p.EndDate
			if req.EffectiveDate != nil {
				effective = req.EffectiveDate.Time
			}
			if req.EndDate != nil {
				end = civil.TimePtr(req.EndDate)
			}
			if effective.IsZero() || (end != nil && end.Before(effective)) {
				return domain.ErrInvalidEffectivePeriod
			}
			changes.Add("effective_date", civil.Of(p.EffectiveDate).String(), civil.Of(effective).String())
			fields["effective_date"] = effective
			fields["end_date"] = end
			p.EffectiveDate, p.EndDate = effective, end
		}
		if req.IsActive != nil {
			changes.Add("is_active", p.IsActive, *req.IsActive)
			fields["is_active"] = *req.IsActive
			p.IsActive = *req.IsActive
		}

		if len(changes) == 0 {
			return nil
		}
		p.UpdatedAt = s.clock.Now()
		fields["updated_at"] = p.UpdatedAt
		if err := s.repo.UpdatePackage(ctx, tx, id, fields); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionUpdate,
			ModelName:  packageModel,
			ObjectID:   p.ID,
			ObjectRepr: p.PackageCode + " " + p.PackageName,
			Changes:    changes,
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func levelStrings(levels domain.FacilityLevels) []string {
	out := make([]string, 0, len(levels))
	for _, l := range levels {
		out = append(out, string(l))
	}
	return out
}

func derefInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func (s *Service) CreateService(ctx context.Context, req domain.CreateServiceRequest) (*domain.BenefitService, error) {
	code := strings.ToUpper(strings.TrimSpace(req.ServiceCode))
	if code == "" {
		return nil, domain.ErrInvalidServiceCode
	}
	name := strings.TrimSpace(req.ServiceName)
	if name == "" {
		return nil, domain.ErrInvalidServiceName
	}
	category := domain.ServiceCategory(strings.ToUpper(strings.TrimSpace(req.ServiceCategory)))
	if !category.Valid() {
		return nil, domain.ErrInvalidServiceCategory
	}
	if req.StandardTariff <= 0 {
		return nil, domain.ErrInvalidTariff
	}
	if err := validateCopayment(req.CopaymentAmount, req.CopaymentPercentage); err != nil {
		return nil, err
	}
	if err := validateCaps(req.AnnualFrequencyLimit, req.PerVisitLimit); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	svc := domain.BenefitService{
		ID:                       s.genID.Generate(),
		BenefitPackageID:         req.BenefitPackageID,
		ServiceCode:              code,
		ServiceName:              name,
		ServiceCategory:          category,
		StandardTariff:           req.StandardTariff,
		CopaymentAmount:          req.CopaymentAmount,
		CopaymentPercentage:      req.CopaymentPercentage,
		AnnualFrequencyLimit:     req.AnnualFrequencyLimit,
		PerVisitLimit:            req.PerVisitLimit,
		RequiresPreauthorization: req.RequiresPreauthorization,
		IsActive:                 true,
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pkg, err := s.repo.FindPackageByID(ctx, tx, req.BenefitPackageID)
		if err != nil {
			return err
		}
		if pkg == nil {
			return domain.ErrInvalidPackage
		}
		if err := s.repo.InsertService(ctx, tx, &svc); err != nil {
			return err
		}
		var changes auditdomain.ChangeSet
		changes.Set("service_code", svc.ServiceCode)
		changes.Set("benefit_package", pkg.PackageCode)
		changes.Set("standard_tariff", svc.StandardTariff)
		changes.Set("requires_preauthorization", svc.RequiresPreauthorization)
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionCreate,
			ModelName:  serviceModel,
			ObjectID:   svc.ID,
			ObjectRepr: svc.ServiceCode + " " + svc.ServiceName,
			Changes:    changes,
		})
	})
	if err != nil {
		if _, dup := db.DuplicateKey(err, "service_code"); dup {
			return nil, domain.ErrDuplicateServiceCode
		}
		return nil, err
	}
	return &svc, nil
}

func validateCopayment(amount int64, percentage int) error {
	if amount < 0 || percentage < 0 || percentage > domain.MaxPercentage {
		return domain.ErrInvalidCopayment
	}
	return nil
}

func validateCaps(frequency *int, perVisit *int64) error {
	if frequency != nil && *frequency <= 0 {
		return domain.ErrInvalidLimit
	}
	if perVisit != nil && *perVisit <= 0 {
		return domain.ErrInvalidLimit
	}
	return nil
}

func (s *Service) GetService(ctx context.Context, id snowflake.ID) (*domain.BenefitService, error) {
	svc, err := s.repo.FindServiceByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if svc == nil {
		return nil, domain.ErrServiceNotFound
	}
	return svc, nil
}

func (s *Service) ListServices(ctx context.Context, req domain.ListServicesRequest) (domain.ListServicesResponse, error) {
	filter := domain.ServiceFilter{
		RequiresPreauthorization: req.RequiresPreauthorization,
		IsActive:                 req.IsActive,
	}
	if req.BenefitPackageID != "" {
		id, err := snowflake.ParseString(req.BenefitPackageID)
		if err != nil {
			return domain.ListServicesResponse{}, domain.ErrInvalidPackage
		}
		filter.PackageID = id
	}
	if req.ServiceCategory != "" {
		filter.Category = domain.ServiceCategory(strings.ToUpper(req.ServiceCategory))
		if !filter.Category.Valid() {
			return domain.ListServicesResponse{}, domain.ErrInvalidServiceCategory
		}
	}

	page := req.Pagination
	page.PageSize = pagination.Normalize(page.PageSize)
	items, err := s.repo.ListServices(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListServicesResponse{}, err
	}
	info := pagination.BuildCursorPageInfo(items, page.PageSize, func(svc *domain.BenefitService) string {
		return pagination.CursorFor(svc.ID, svc.CreatedAt)
	})
	return domain.ListServicesResponse{
		PageInfo: *info,
		Services: pagination.Trim(items, page.PageSize),
	}, nil
}

func (s *Service) UpdateService(ctx context.Context, id snowflake.ID, req domain.UpdateServiceRequest) (*domain.BenefitService, error) {
	if req.ServiceName != nil && strings.TrimSpace(*req.ServiceName) == "" {
		return nil, domain.ErrInvalidServiceName
	}
	var category domain.ServiceCategory
	if req.ServiceCategory != nil {
		category = domain.ServiceCategory(strings.ToUpper(strings.TrimSpace(*req.ServiceCategory)))
		if !category.Valid() {
			return nil, domain.ErrInvalidServiceCategory
		}
	}
	if req.StandardTariff != nil && *req.StandardTariff <= 0 {
		return nil, domain.ErrInvalidTariff
	}
	if err := validateCaps(req.AnnualFrequencyLimit, req.PerVisitLimit); err != nil {
		return nil, err
	}

	var out *domain.BenefitService
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		svc, err := s.repo.FindServiceByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if svc == nil {
			return domain.ErrServiceNotFound
		}
		out = svc

		fields := map[string]any{}
		var changes auditdomain.ChangeSet
		if req.ServiceName != nil {
			name := strings.TrimSpace(*req.ServiceName)
			changes.Add("service_name", svc.ServiceName, name)
			fields["service_name"] = name
			svc.ServiceName = name
		}
		if req.ServiceCategory != nil {
			changes.Add("service_category", string(svc.ServiceCategory), string(category))
			fields["service_category"] = category
			svc.ServiceCategory = category
		}
		if req.StandardTariff != nil {
			changes.Add("standard_tariff", svc.StandardTariff, *req.StandardTariff)
			fields["standard_tariff"] = *req.StandardTariff
			svc.StandardTariff = *req.StandardTariff
		}
		if req.CopaymentAmount != nil || req.CopaymentPercentage != nil {
			amount, pct := svc.CopaymentAmount, svc.CopaymentPercentage
			if req.CopaymentAmount != nil {
				amount = *req.CopaymentAmount
			}
			if req.CopaymentPercentage != nil {
				pct = *req.CopaymentPercentage
			}
			if err := validateCopayment(amount, pct); err != nil {
				return err
			}
			changes.Add("copayment_amount", svc.CopaymentAmount, amount)
			changes.Add("copayment_percentage", svc.CopaymentPercentage, pct)
			fields["copayment_amount"] = amount
			fields["copayment_percentage"] = pct
			svc.CopaymentAmount, svc.CopaymentPercentage = amount, pct
		}
		if req.AnnualFrequencyLimit != nil {
			changes.Add("annual_frequency_limit", derefInt(svc.AnnualFrequencyLimit), *req.AnnualFrequencyLimit)
			fields["annual_frequency_limit"] = *req.AnnualFrequencyLimit
			svc.AnnualFrequencyLimit = req.AnnualFrequencyLimit
		}
		if req.PerVisitLimit != nil {
			changes.Add("per_visit_limit", derefInt64(svc.PerVisitLimit), *req.PerVisitLimit)
			fields["per_visit_limit"] = *req.PerVisitLimit
			svc.PerVisitLimit = req.PerVisitLimit
		}
		if req.RequiresPreauthorization != nil {
			changes.Add("requires_preauthorization", svc.RequiresPreauthorization, *req.RequiresPreauthorization)
			fields["requires_preauthorization"] = *req.RequiresPreauthorization
			svc.RequiresPreauthorization = *req.RequiresPreauthorization
		}
		if req.IsActive != nil {
			changes.Add("is_active", svc.IsActive, *req.IsActive)
			fields["is_active"] = *req.IsActive
			svc.IsActive = *req.IsActive
		}

		if len(changes) == 0 {
			return nil
		}
		svc.UpdatedAt = s.clock.Now()
		fields["updated_at"] = svc.UpdatedAt
		if err := s.repo.UpdateService(ctx, tx, id, fields); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionUpdate,
			ModelName:  serviceModel,
			ObjectID:   svc.ID,
			ObjectRepr: svc.ServiceCode + " " + svc.ServiceName,
			Changes:    changes,
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
