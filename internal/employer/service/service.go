package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/shaadmin/internal/audit/domain"
	"github.com/smallbiznis/shaadmin/internal/clock"
	"github.com/smallbiznis/shaadmin/internal/employer/domain"
	referencedomain "github.com/smallbiznis/shaadmin/internal/reference/domain"
	"github.com/smallbiznis/shaadmin/pkg/civil"
	"github.com/smallbiznis/shaadmin/pkg/db"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const modelName = "employer"

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
		log:       p.Log.Named("employer.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		reference: p.Reference,
		auditSvc:  p.AuditSvc,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Employer, error) {
	name := strings.TrimSpace(req.CompanyName)
	if name == "" {
		return nil, domain.ErrInvalidCompanyName
	}
	pin := strings.ToUpper(strings.TrimSpace(req.KRAPin))
	if pin == "" {
		return nil, domain.ErrInvalidKRAPin
	}
	brn := strings.TrimSpace(req.BusinessRegistrationNumber)
	if brn == "" {
		return nil, domain.ErrInvalidRegistrationNumber
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.ErrInvalidEmail
	}
	phone := strings.TrimSpace(req.PhoneNumber)
	if phone == "" {
		return nil, domain.ErrInvalidPhoneNumber
	}

	now := s.clock.Now()
	e := domain.Employer{
		ID:                         s.genID.Generate(),
		CompanyName:                name,
		KRAPin:                     pin,
		BusinessRegistrationNumber: brn,
		Email:                      email,
		PhoneNumber:                phone,
		PhysicalAddress:            strings.TrimSpace(req.PhysicalAddress),
		County:                     strings.TrimSpace(req.County),
		ContactPersonName:          strings.TrimSpace(req.ContactPersonName),
		ContactPersonPhone:         strings.TrimSpace(req.ContactPersonPhone),
		ContactPersonEmail:         strings.ToLower(strings.TrimSpace(req.ContactPersonEmail)),
		BankName:                   strings.TrimSpace(req.BankName),
		BankAccountNumber:          strings.TrimSpace(req.BankAccountNumber),
		BankBranch:                 strings.TrimSpace(req.BankBranch),
		RegistrationDate:           civil.Of(now).Time,
		IsActive:                   true,
		UserID:                     req.UserID,
		CreatedAt:                  now,
		UpdatedAt:                  now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if e.UserID != nil {
			var n int64
			if err := tx.Raw(`SELECT COUNT(*) FROM users WHERE id = ?`, *e.UserID).Scan(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return domain.ErrInvalidUser
			}
		}
		code, err := s.reference.Issue(ctx, tx, referencedomain.FamilyEmployer, req.EmployerCode)
		if err != nil {
			return err
		}
		e.EmployerCode = code
		if err := s.repo.Insert(ctx, tx, &e); err != nil {
			return err
		}

		var changes auditdomain.ChangeSet
		changes.Set("employer_code", e.EmployerCode)
		changes.Set("company_name", e.CompanyName)
		changes.Set("kra_pin", e.KRAPin)
		changes.Set("bank_account_number", e.BankAccountNumber)
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionCreate,
			ModelName:  modelName,
			ObjectID:   e.ID,
			ObjectRepr: e.EmployerCode + " " + e.CompanyName,
			Changes:    changes,
		})
	})
	if err != nil {
		return nil, translateDuplicate(err)
	}
	return &e, nil
}

func translateDuplicate(err error) error {
	key, ok := db.DuplicateKey(err, "kra_pin", "business_registration_number", "employer_code", "user_id")
	if !ok {
		return err
	}
	switch key {
	case "business_registration_number":
		return domain.ErrDuplicateRegistrationNumber
	case "employer_code":
		return domain.ErrDuplicateEmployerCode
	case "user_id":
		return domain.ErrDuplicateUser
	default:
		return domain.ErrDuplicateKRAPin
	}
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Employer, error) {
	e, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	page := req.Pagination
	page.PageSize = pagination.Normalize(page.PageSize)

	items, err := s.repo.List(ctx, s.db, req, page)
	if err != nil {
		return domain.ListResponse{}, err
	}
	info := pagination.BuildCursorPageInfo(items, page.PageSize, func(e *domain.Employer) string {
		return pagination.CursorFor(e.ID, e.CreatedAt)
	})
	return domain.ListResponse{
		PageInfo:  *info,
		Employers: pagination.Trim(items, page.PageSize),
	}, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateRequest) (*domain.Employer, error) {
	if req.CompanyName != nil && strings.TrimSpace(*req.CompanyName) == "" {
		return nil, domain.ErrInvalidCompanyName
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, domain.ErrInvalidEmail
		}
		req.Email = &email
	}
	if req.PhoneNumber != nil && strings.TrimSpace(*req.PhoneNumber) == "" {
		return nil, domain.ErrInvalidPhoneNumber
	}

	return s.mutate(ctx, id, func(e *domain.Employer, fields map[string]any, changes *auditdomain.ChangeSet) {
		set := func(column string, value *string, current *string) {
			if value == nil {
				return
			}
			v := strings.TrimSpace(*value)
			changes.Add(column, *current, v)
			fields[column] = v
			*current = v
		}
		set("company_name", req.CompanyName, &e.CompanyName)
		set("email", req.Email, &e.Email)
		set("phone_number", req.PhoneNumber, &e.PhoneNumber)
		set("physical_address", req.PhysicalAddress, &e.PhysicalAddress)
		set("county", req.County, &e.County)
		set("contact_person_name", req.ContactPersonName, &e.ContactPersonName)
		set("contact_person_phone", req.ContactPersonPhone, &e.ContactPersonPhone)
		set("contact_person_email", req.ContactPersonEmail, &e.ContactPersonEmail)
		set("bank_name", req.BankName, &e.BankName)
		set("bank_account_number", req.BankAccountNumber, &e.BankAccountNumber)
		set("bank_branch", req.BankBranch, &e.BankBranch)
	})
}

func (s *Service) Deactivate(ctx context.Context, id snowflake.ID) (*domain.Employer, error) {
	return s.setActive(ctx, id, false)
}

func (s *Service) Activate(ctx context.Context, id snowflake.ID) (*domain.Employer, error) {
	return s.setActive(ctx, id, true)
}

func (s *Service) setActive(ctx context.Context, id snowflake.ID, active bool) (*domain.Employer, error) {
	return s.mutate(ctx, id, func(e *domain.Employer, fields map[string]any, changes *auditdomain.ChangeSet) {
		changes.Add("is_active", e.IsActive, active)
		fields["is_active"] = active
		e.IsActive = active
	})
}

func (s *Service) mutate(ctx context.Context, id snowflake.ID, fn func(*domain.Employer, map[string]any, *auditdomain.ChangeSet)) (*domain.Employer, error) {
	var out *domain.Employer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if e == nil {
			return domain.ErrNotFound
		}
		out = e

		fields := map[string]any{}
		var changes auditdomain.ChangeSet
		fn(e, fields, &changes)
		if len(changes) == 0 {
			return nil
		}
		e.UpdatedAt = s.clock.Now()
		fields["updated_at"] = e.UpdatedAt
		if err := s.repo.Update(ctx, tx, id, fields); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionUpdate,
			ModelName:  modelName,
			ObjectID:   e.ID,
			ObjectRepr: e.EmployerCode + " " + e.CompanyName,
			Changes:    changes,
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if e == nil {
			return domain.ErrNotFound
		}
		if err := s.repo.Delete(ctx, tx, id); err != nil {
			return err
		}
		s.log.Info("employer deleted", zap.String("employer_id", id.String()), zap.String("employer_code", e.EmployerCode))
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionDelete,
			ModelName:  modelName,
			ObjectID:   e.ID,
			ObjectRepr: e.EmployerCode + " " + e.CompanyName,
		})
	})
}
