package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/shaadmin/internal/audit/domain"
	"github.com/smallbiznis/shaadmin/internal/clock"
	"github.com/smallbiznis/shaadmin/internal/provider/domain"
	referencedomain "github.com/smallbiznis/shaadmin/internal/reference/domain"
	"github.com/smallbiznis/shaadmin/pkg/civil"
	"github.com/smallbiznis/shaadmin/pkg/db"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const modelName = "healthcare_provider"

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Reference referencedomain.Service
	AuditSvc  auditdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	reference referencedomain.Service
	auditSvc  auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("provider.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		reference: p.Reference,
		auditSvc:  p.AuditSvc,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Provider, error) {
	name := strings.TrimSpace(req.FacilityName)
	if name == "" {
		return nil, domain.ErrInvalidFacilityName
	}
	level := domain.FacilityLevel(strings.ToUpper(strings.TrimSpace(req.FacilityLevel)))
	if !level.Valid() {
		return nil, domain.ErrInvalidFacilityLevel
	}
	facilityType := domain.FacilityType(strings.ToUpper(strings.TrimSpace(req.FacilityType)))
	if !facilityType.Valid() {
		return nil, domain.ErrInvalidFacilityType
	}
	license := strings.TrimSpace(req.LicenseNumber)
	if license == "" {
		return nil, domain.ErrInvalidLicenseNumber
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.ErrInvalidEmail
	}
	phone := strings.TrimSpace(req.PhoneNumber)
	if phone == "" {
		return nil, domain.ErrInvalidPhoneNumber
	}
	start, end := civil.TimePtr(req.ContractStartDate), civil.TimePtr(req.ContractEndDate)
	if err := validateContract(start, end); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	p := domain.Provider{
		ID:                s.genID.Generate(),
		FacilityName:      name,
		FacilityLevel:     level,
		FacilityType:      facilityType,
		LicenseNumber:     license,
		KMPDBNumber:       strings.TrimSpace(req.KMPDBNumber),
		Email:             email,
		PhoneNumber:       phone,
		County:            strings.TrimSpace(req.County),
		SubCounty:         strings.TrimSpace(req.SubCounty),
		PhysicalAddress:   strings.TrimSpace(req.PhysicalAddress),
		BankName:          strings.TrimSpace(req.BankName),
		BankAccountNumber: strings.TrimSpace(req.BankAccountNumber),
		BankBranch:        strings.TrimSpace(req.BankBranch),
		IsContracted:      req.IsContracted,
		ContractStartDate: start,
		ContractEndDate:   end,
		IsActive:          true,
		UserID:            req.UserID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if p.UserID != nil {
			if err := s.checkUser(ctx, tx, *p.UserID); err != nil {
				return err
			}
		}
		code, err := s.reference.Issue(ctx, tx, referencedomain.FamilyProvider, req.FacilityCode)
		if err != nil {
			return err
		}
		p.FacilityCode = code
		if err := s.repo.Insert(ctx, tx, &p); err != nil {
			return err
		}

		var changes auditdomain.ChangeSet
		changes.Set("facility_code", p.FacilityCode)
		changes.Set("facility_name", p.FacilityName)
		changes.Set("facility_level", string(p.FacilityLevel))
		changes.Set("license_number", p.LicenseNumber)
		changes.Set("bank_account_number", p.BankAccountNumber)
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionCreate,
			ModelName:  modelName,
			ObjectID:   p.ID,
			ObjectRepr: p.FacilityCode + " " + p.FacilityName,
			Changes:    changes,
		})
	})
	if err != nil {
		return nil, translateDuplicate(err)
	}
	return &p, nil
}

func (s *Service) checkUser(ctx context.Context, tx *gorm.DB, userID snowflake.ID) error {
	var n int64
	if err := tx.WithContext(ctx).Raw(`SELECT COUNT(*) FROM users WHERE id = ?`, userID).Scan(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrInvalidUser
	}
	return nil
}

func translateDuplicate(err error) error {
	key, ok := db.DuplicateKey(err, "license_number", "facility_code", "user_id")
	if !ok {
		return err
	}
	switch key {
	case "facility_code":
		return domain.ErrDuplicateFacilityCode
	case "user_id":
		return domain.ErrDuplicateUser
	default:
		return domain.ErrDuplicateLicense
	}
}

func validateContract(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return domain.ErrInvalidContractPeriod
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Provider, error) {
	p, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	filter := domain.ListFilter{
		County:       strings.TrimSpace(req.County),
		IsContracted: req.IsContracted,
		IsActive:     req.IsActive,
		Search:       strings.TrimSpace(req.Search),
	}
	if v := strings.ToUpper(strings.TrimSpace(req.FacilityLevel)); v != "" {
		filter.FacilityLevel = domain.FacilityLevel(v)
		if !filter.FacilityLevel.Valid() {
			return domain.ListResponse{}, domain.ErrInvalidFacilityLevel
		}
	}
	if v := strings.ToUpper(strings.TrimSpace(req.FacilityType)); v != "" {
		filter.FacilityType = domain.FacilityType(v)
		if !filter.FacilityType.Valid() {
			return domain.ListResponse{}, domain.ErrInvalidFacilityType
		}
	}

	page := req.Pagination
	page.PageSize = pagination.Normalize(page.PageSize)
	items, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListResponse{}, err
	}
	info := pagination.BuildCursorPageInfo(items, page.PageSize, func(p *domain.Provider) string {
		return pagination.CursorFor(p.ID, p.CreatedAt)
	})
	return domain.ListResponse{
		PageInfo:  *info,
		Providers: pagination.Trim(items, page.PageSize),
	}, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateRequest) (*domain.Provider, error) {
	return s.mutate(ctx, id, func(p *domain.Provider, fields map[string]any, changes *auditdomain.ChangeSet) error {
		setText := func(column string, value *string, current *string) {
			if value == nil {
				return
			}
			v := strings.TrimSpace(*value)
			changes.Add(column, *current, v)
			fields[column] = v
			*current = v
		}
		if req.FacilityName != nil && strings.TrimSpace(*req.FacilityName) == "" {
			return domain.ErrInvalidFacilityName
		}
		if req.FacilityLevel != nil {
			level := domain.FacilityLevel(strings.ToUpper(strings.TrimSpace(*req.FacilityLevel)))
			if !level.Valid() {
				return domain.ErrInvalidFacilityLevel
			}
			changes.Add("facility_level", string(p.FacilityLevel), string(level))
			fields["facility_level"] = level
			p.FacilityLevel = level
		}
		if req.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*req.Email))
			if _, err := mail.ParseAddress(email); err != nil {
				return domain.ErrInvalidEmail
			}
			req.Email = &email
		}
		if req.PhoneNumber != nil && strings.TrimSpace(*req.PhoneNumber) == "" {
			return domain.ErrInvalidPhoneNumber
		}
		setText("facility_name", req.FacilityName, &p.FacilityName)
		setText("kmpdb_number", req.KMPDBNumber, &p.KMPDBNumber)
		setText("email", req.Email, &p.Email)
		setText("phone_number", req.PhoneNumber, &p.PhoneNumber)
		setText("county", req.County, &p.County)
		setText("sub_county", req.SubCounty, &p.SubCounty)
		setText("physical_address", req.PhysicalAddress, &p.PhysicalAddress)
		setText("bank_name", req.BankName, &p.BankName)
		setText("bank_account_number", req.BankAccountNumber, &p.BankAccountNumber)
		setText("bank_branch", req.BankBranch, &p.BankBranch)
		return nil
	})
}

func (s *Service) SetContract(ctx context.Context, id snowflake.ID, req domain.ContractRequest) (*domain.Provider, error) {
	start, end := civil.TimePtr(req.StartDate), civil.TimePtr(req.EndDate)
	if err := validateContract(start, end); err != nil {
		return nil, err
	}
	if req.IsContracted && start == nil {
		return nil, domain.ErrInvalidContractPeriod
	}
	return s.mutate(ctx, id, func(p *domain.Provider, fields map[string]any, changes *auditdomain.ChangeSet) error {
		changes.Add("is_contracted", p.IsContracted, req.IsContracted)
		changes.Add("contract_start_date", p.ContractStartDate, start)
		changes.Add("contract_end_date", p.ContractEndDate, end)
		fields["is_contracted"] = req.IsContracted
		fields["contract_start_date"] = start
		fields["contract_end_date"] = end
		p.IsContracted, p.ContractStartDate, p.ContractEndDate = req.IsContracted, start, end
		return nil
	})
}

func (s *Service) Deactivate(ctx context.Context, id snowflake.ID) (*domain.Provider, error) {
	return s.setActive(ctx, id, false)
}

func (s *Service) Activate(ctx context.Context, id snowflake.ID) (*domain.Provider, error) {
	return s.setActive(ctx, id, true)
}

func (s *Service) setActive(ctx context.Context, id snowflake.ID, active bool) (*domain.Provider, error) {
	return s.mutate(ctx, id, func(p *domain.Provider, fields map[string]any, changes *auditdomain.ChangeSet) error {
		changes.Add("is_active", p.IsActive, active)
		fields["is_active"] = active
		p.IsActive = active
		return nil
	})
}

type mutation func(p *domain.Provider, fields map[string]any, changes *auditdomain.ChangeSet) error

// mutate loads the provider, applies fn and persists the collected fields
// with an UPDATE audit entry. Nothing is written when no field changed.
func (s *Service) mutate(ctx context.Context, id snowflake.ID, fn mutation) (*domain.Provider, error) {
	var out *domain.Provider
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.ErrNotFound
		}

		fields := map[string]any{}
		var changes auditdomain.ChangeSet
		if err := fn(p, fields, &changes); err != nil {
			return err
		}
		out = p
		if len(changes) == 0 {
			return nil
		}

		p.UpdatedAt = s.clock.Now()
		fields["updated_at"] = p.UpdatedAt
		if err := s.repo.Update(ctx, tx, id, fields); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionUpdate,
			ModelName:  modelName,
			ObjectID:   p.ID,
			ObjectRepr: p.FacilityCode + " " + p.FacilityName,
			Changes:    changes,
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
