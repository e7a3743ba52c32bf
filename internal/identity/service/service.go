package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/shaadmin/internal/audit/domain"
	"github.com/smallbiznis/shaadmin/internal/clock"
	"github.com/smallbiznis/shaadmin/internal/identity/domain"
	"github.com/smallbiznis/shaadmin/internal/identity/password"
	"github.com/smallbiznis/shaadmin/pkg/db"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
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
		log:      p.Log.Named("identity.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" || strings.ContainsAny(username, " \t/") {
		return nil, domain.ErrInvalidUsername
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.ErrInvalidEmail
	}
	role := domain.Role(strings.ToUpper(strings.TrimSpace(req.Role)))
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	phone := strings.TrimSpace(req.PhoneNumber)
	if phone == "" {
		return nil, domain.ErrInvalidPhoneNumber
	}

	var hash *string
	if req.Password != "" {
		encoded, err := password.Hash(req.Password)
		if err != nil {
			return nil, domain.ErrInvalidPassword
		}
		hash = &encoded
	}

	now := s.clock.Now()
	user := domain.User{
		ID:           s.genID.Generate(),
		Username:     username,
		Email:        email,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         role,
		PhoneNumber:  phone,
		IsActive:     true,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &user); err != nil {
			return err
		}
		var changes auditdomain.ChangeSet
		changes.Set("username", user.Username)
		changes.Set("role", string(user.Role))
		changes.Set("email", user.Email)
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionCreate,
			ModelName:  "user",
			ObjectID:   user.ID,
			ObjectRepr: user.Username,
			Changes:    changes,
		})
	})
	if err != nil {
		return nil, translateDuplicate(err)
	}
	return &user, nil
}

func translateDuplicate(err error) error {
	key, ok := db.DuplicateKey(err, "username", "email", "phone_number")
	if !ok {
		return err
	}
	switch key {
	case "email":
		return domain.ErrDuplicateEmail
	case "phone_number":
		return domain.ErrDuplicatePhone
	default:
		return domain.ErrDuplicateUsername
	}
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (s *Service) FindActive(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

func (s *Service) List(ctx context.Context, req domain.ListUserRequest) (domain.ListUserResponse, error) {
	var role domain.Role
	if r := strings.ToUpper(strings.TrimSpace(req.Role)); r != "" {
		role = domain.Role(r)
		if !role.Valid() {
			return domain.ListUserResponse{}, domain.ErrInvalidRole
		}
	}
	page := req.Pagination
	page.PageSize = pagination.Normalize(page.PageSize)

	items, err := s.repo.List(ctx, s.db, role, page)
	if err != nil {
		return domain.ListUserResponse{}, err
	}
	info := pagination.BuildCursorPageInfo(items, page.PageSize, func(u *domain.User) string {
		return pagination.CursorFor(u.ID, u.CreatedAt)
	})
	return domain.ListUserResponse{
		PageInfo: *info,
		Users:    pagination.Trim(items, page.PageSize),
	}, nil
}

func (s *Service) SetVerified(ctx context.Context, id snowflake.ID, verified bool) (*domain.User, error) {
	return s.update(ctx, id, "is_verified", verified)
}

func (s *Service) Deactivate(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	return s.update(ctx, id, "is_active", false)
}

func (s *Service) update(ctx context.Context, id snowflake.ID, field string, value bool) (*domain.User, error) {
	var out *domain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrNotFound
		}

		before := user.IsVerified
		if field == "is_active" {
			before = user.IsActive
		}
		now := s.clock.Now()
		if _, err := s.repo.Update(ctx, tx, id, map[string]any{field: value, "updated_at": now}); err != nil {
			return err
		}
		if field == "is_active" {
			user.IsActive = value
		} else {
			user.IsVerified = value
		}
		user.UpdatedAt = now
		out = user

		var changes auditdomain.ChangeSet
		changes.Add(field, before, value)
		if len(changes) == 0 {
			return nil
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionUpdate,
			ModelName:  "user",
			ObjectID:   user.ID,
			ObjectRepr: user.Username,
			Changes:    changes,
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) VerifyPassword(ctx context.Context, username, plain string) (*domain.User, error) {
	user, err := s.repo.FindByUsername(ctx, s.db, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive || user.PasswordHash == nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !password.Verify(plain, *user.PasswordHash) {
		s.log.Info("password verification failed", zap.String("user_id", user.ID.String()))
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}
