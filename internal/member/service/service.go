package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/shaadmin/internal/audit/domain"
	"github.com/smallbiznis/shaadmin/internal/clock"
	"github.com/smallbiznis/shaadmin/internal/events"
	"github.com/smallbiznis/shaadmin/internal/member/domain"
	referencedomain "github.com/smallbiznis/shaadmin/internal/reference/domain"
	"github.com/smallbiznis/shaadmin/pkg/civil"
	"github.com/smallbiznis/shaadmin/pkg/db"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const modelName = "member"

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Reference referencedomain.Service
	AuditSvc  auditdomain.Service
	Emitter   *events.Emitter
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	reference referencedomain.Service
	auditSvc  auditdomain.Service
	emitter   *events.Emitter
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("member.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		reference: p.Reference,
		auditSvc:  p.AuditSvc,
		emitter:   p.Emitter,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Member, error) {
	m, err := s.validateRegister(req)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkRelations(ctx, tx, m); err != nil {
			return err
		}
		code, err := s.reference.Issue(ctx, tx, referencedomain.FamilyMember, req.SHANumber)
		if err != nil {
			return err
		}
		m.SHANumber = code
		if err := s.repo.Insert(ctx, tx, m); err != nil {
			return err
		}

		var changes auditdomain.ChangeSet
		changes.Set("sha_number", m.SHANumber)
		changes.Set("national_id", m.NationalID)
		changes.Set("member_type", string(m.MemberType))
		if m.PrincipalMemberID != nil {
			changes.Set("principal_member_id", m.PrincipalMemberID.String())
		}
		if m.EmployerID != nil {
			changes.Set("employer_id", m.EmployerID.String())
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionCreate,
			ModelName:  modelName,
			ObjectID:   m.ID,
			ObjectRepr: repr(m),
			Changes:    changes,
		})
	})
	if err != nil {
		return nil, translateDuplicate(err)
	}

	s.log.Info("member registered",
		zap.String("member_id", m.ID.String()),
		zap.String("sha_number", m.SHANumber),
		zap.String("member_type", string(m.MemberType)),
	)
	s.emitter.Emit(ctx, events.Event{
		Type:      events.MemberRegistered,
		EntityID:  m.ID,
		Reference: m.SHANumber,
		Payload: map[string]any{
			"member_type": m.MemberType,
			"county":      m.County,
		},
	})
	return m, nil
}

func (s *Service) validateRegister(req domain.RegisterRequest) (*domain.Member, error) {
	nationalID := strings.TrimSpace(req.NationalID)
	if nationalID == "" {
		return nil, domain.ErrInvalidNationalID
	}
	first := strings.TrimSpace(req.FirstName)
	last := strings.TrimSpace(req.LastName)
	if first == "" || last == "" {
		return nil, domain.ErrInvalidName
	}
	now := s.clock.Now()
	if req.DateOfBirth.IsZero() || req.DateOfBirth.After(now) {
		return nil, domain.ErrInvalidDateOfBirth
	}
	gender := domain.Gender(strings.ToUpper(strings.TrimSpace(req.Gender)))
	if !gender.Valid() {
		return nil, domain.ErrInvalidGender
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.ErrInvalidEmail
	}
	phone := strings.TrimSpace(req.PhoneNumber)
	if phone == "" {
		return nil, domain.ErrInvalidPhoneNumber
	}

	memberType := domain.MemberPrincipal
	if strings.TrimSpace(req.MemberType) != "" {
		memberType = domain.MemberType(strings.ToUpper(strings.TrimSpace(req.MemberType)))
	}
	if !memberType.Valid() {
		return nil, domain.ErrInvalidMemberType
	}
	switch memberType {
	case domain.MemberDependent:
		if req.PrincipalMemberID == nil || *req.PrincipalMemberID == 0 {
			return nil, domain.ErrInvalidPrincipalMember
		}
	case domain.MemberPrincipal:
		if req.PrincipalMemberID != nil && *req.PrincipalMemberID != 0 {
			return nil, domain.ErrInvalidPrincipalMember
		}
	}

	employment := domain.EmploymentStatus(strings.ToUpper(strings.TrimSpace(req.EmploymentStatus)))
	if !employment.Valid() {
		return nil, domain.ErrInvalidEmploymentStatus
	}

	m := &domain.Member{
		ID:               s.genID.Generate(),
		UserID:           nonZero(req.UserID),
		NationalID:       nationalID,
		FirstName:        first,
		MiddleName:       strings.TrimSpace(req.MiddleName),
		LastName:         last,
		DateOfBirth:      req.DateOfBirth.Time,
		Gender:           gender,
		Email:            email,
		PhoneNumber:      phone,
		MemberType:       memberType,
		EmploymentStatus: employment,
		EmployerID:       nonZero(req.EmployerID),
		RegistrationDate: civil.Of(now).Time,
		IsActive:         true,
		IsSubsidized:     req.IsSubsidized,
		County:           strings.TrimSpace(req.County),
		SubCounty:        strings.TrimSpace(req.SubCounty),
		Ward:             strings.TrimSpace(req.Ward),
		PostalAddress:    strings.TrimSpace(req.PostalAddress),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if memberType == domain.MemberDependent {
		m.PrincipalMemberID = req.PrincipalMemberID
	}
	return m, nil
}

// checkRelations verifies the rows a new member points at.
func (s *Service) checkRelations(ctx context.Context, tx *gorm.DB, m *domain.Member) error {
	if m.PrincipalMemberID != nil {
		principal, err := s.repo.FindByID(ctx, tx, *m.PrincipalMemberID)
		if err != nil {
			return err
		}
		if principal == nil || principal.MemberType != domain.MemberPrincipal {
			return domain.ErrInvalidPrincipalMember
		}
	}
	if m.EmployerID != nil {
		ok, err := s.repo.EmployerExists(ctx, tx, *m.EmployerID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidEmployer
		}
	}
	if m.UserID != nil {
		ok, err := s.repo.UserExists(ctx, tx, *m.UserID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidUser
		}
	}
	return nil
}

func nonZero(id *snowflake.ID) *snowflake.ID {
	if id == nil || *id == 0 {
		return nil
	}
	return id
}

func repr(m *domain.Member) string {
	return m.SHANumber + " " + m.FullName()
}

func translateDuplicate(err error) error {
	key, ok := db.DuplicateKey(err, "national_id", "email", "sha_number", "user_id")
	if !ok {
		return err
	}
	switch key {
	case "email":
		return domain.ErrDuplicateEmail
	case "sha_number":
		return domain.ErrDuplicateSHANumber
	case "user_id":
		return domain.ErrDuplicateUser
	default:
		return domain.ErrDuplicateNationalID
	}
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Member, error) {
	m, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

func (s *Service) GetBySHANumber(ctx context.Context, shaNumber string) (*domain.Member, error) {
	code, err := referencedomain.ParseFor(referencedomain.FamilyMember, shaNumber)
	if err != nil {
		return nil, domain.ErrInvalidSHANumber
	}
	m, err := s.repo.FindBySHANumber(ctx, s.db, code.String())
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	filter := domain.ListFilter{
		County:   strings.TrimSpace(req.County),
		IsActive: req.IsActive,
		Search:   strings.TrimSpace(req.Search),
	}
	if req.MemberType != "" {
		filter.MemberType = domain.MemberType(strings.ToUpper(strings.TrimSpace(req.MemberType)))
		if !filter.MemberType.Valid() {
			return domain.ListResponse{}, domain.ErrInvalidMemberType
		}
	}
	if req.EmployerID != "" {
		id, err := snowflake.ParseString(req.EmployerID)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidEmployer
		}
		filter.EmployerID = id
	}
	return s.list(ctx, filter, req.Pagination)
}

func (s *Service) list(ctx context.Context, filter domain.ListFilter, page pagination.Pagination) (domain.ListResponse, error) {
	page.PageSize = pagination.Normalize(page.PageSize)
	items, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListResponse{}, err
	}
	info := pagination.BuildCursorPageInfo(items, page.PageSize, func(m *domain.Member) string {
		return pagination.CursorFor(m.ID, m.CreatedAt)
	})
	return domain.ListResponse{
		PageInfo: *info,
		Members:  pagination.Trim(items, page.PageSize),
	}, nil
}

func (s *Service) ListDependents(ctx context.Context, principalID snowflake.ID) ([]domain.Member, error) {
	principal, err := s.Get(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if principal.MemberType != domain.MemberPrincipal {
		return nil, domain.ErrInvalidPrincipalMember
	}

	var out []domain.Member
	page := pagination.Pagination{PageSize: pagination.MaxPageSize}
	for {
		resp, err := s.list(ctx, domain.ListFilter{PrincipalID: principalID}, page)
		if err != nil {
			return nil, err
		}
		out = append(out, resp.Members...)
		if !resp.HasMore || resp.NextPageToken == "" {
			return out, nil
		}
		page.PageToken = resp.NextPageToken
	}
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateRequest) (*domain.Member, error) {
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
	var employment domain.EmploymentStatus
	if req.EmploymentStatus != nil {
		employment = domain.EmploymentStatus(strings.ToUpper(strings.TrimSpace(*req.EmploymentStatus)))
		if !employment.Valid() {
			return nil, domain.ErrInvalidEmploymentStatus
		}
	}

	m, err := s.mutate(ctx, id, func(tx *gorm.DB, m *domain.Member, fields map[string]any, changes *auditdomain.ChangeSet) error {
		set := func(column string, value *string, current *string) {
			if value == nil {
				return
			}
			v := strings.TrimSpace(*value)
			changes.Add(column, *current, v)
			fields[column] = v
			*current = v
		}
		set("email", req.Email, &m.Email)
		set("phone_number", req.PhoneNumber, &m.PhoneNumber)
		set("county", req.County, &m.County)
		set("sub_county", req.SubCounty, &m.SubCounty)
		set("ward", req.Ward, &m.Ward)
		set("postal_address", req.PostalAddress, &m.PostalAddress)

		if req.EmploymentStatus != nil {
			changes.Add("employment_status", string(m.EmploymentStatus), string(employment))
			fields["employment_status"] = employment
			m.EmploymentStatus = employment
		}
		if req.IsSubsidized != nil {
			changes.Add("is_subsidized", m.IsSubsidized, *req.IsSubsidized)
			fields["is_subsidized"] = *req.IsSubsidized
			m.IsSubsidized = *req.IsSubsidized
		}
		if req.EmployerID != nil {
			next := nonZero(req.EmployerID)
			if next != nil {
				ok, err := s.repo.EmployerExists(ctx, tx, *next)
				if err != nil {
					return err
				}
				if !ok {
					return domain.ErrInvalidEmployer
				}
			}
			changes.Add("employer_id", idString(m.EmployerID), idString(next))
			if next == nil {
				fields["employer_id"] = nil
			} else {
				fields["employer_id"] = *next
			}
			m.EmployerID = next
		}
		return nil
	})
	if err != nil {
		return nil, translateDuplicate(err)
	}
	return m, nil
}

func idString(id *snowflake.ID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func (s *Service) Deactivate(ctx context.Context, id snowflake.ID) (*domain.Member, error) {
	m, changed, err := s.setActive(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if changed {
		s.emitter.Emit(ctx, events.Event{
			Type:      events.MemberDeactivated,
			EntityID:  m.ID,
			Reference: m.SHANumber,
		})
	}
	return m, nil
}

func (s *Service) Activate(ctx context.Context, id snowflake.ID) (*domain.Member, error) {
	m, _, err := s.setActive(ctx, id, true)
	return m, err
}

func (s *Service) setActive(ctx context.Context, id snowflake.ID, active bool) (*domain.Member, bool, error) {
	var changed bool
	m, err := s.mutate(ctx, id, func(_ *gorm.DB, m *domain.Member, fields map[string]any, changes *auditdomain.ChangeSet) error {
		changed = m.IsActive != active
		changes.Add("is_active", m.IsActive, active)
		fields["is_active"] = active
		m.IsActive = active
		return nil
	})
	return m, changed, err
}

func (s *Service) mutate(ctx context.Context, id snowflake.ID, fn func(*gorm.DB, *domain.Member, map[string]any, *auditdomain.ChangeSet) error) (*domain.Member, error) {
	var out *domain.Member
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.ErrNotFound
		}
		out = m

		fields := map[string]any{}
		var changes auditdomain.ChangeSet
		if err := fn(tx, m, fields, &changes); err != nil {
			return err
		}
		if len(changes) == 0 {
			return nil
		}
		m.UpdatedAt = s.clock.Now()
		fields["updated_at"] = m.UpdatedAt
		if err := s.repo.Update(ctx, tx, id, fields); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionUpdate,
			ModelName:  modelName,
			ObjectID:   m.ID,
			ObjectRepr: repr(m),
			Changes:    changes,
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
