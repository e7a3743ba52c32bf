package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type CheckRequest struct {
	MemberID   snowflake.ID `json:"member_id" binding:"required"`
	ProviderID snowflake.ID `json:"provider_id" binding:"required"`
}

type ListRequest struct {
	pagination.Pagination
	MemberID   string `form:"member_id"`
	ProviderID string `form:"provider_id"`
	Eligible   string `form:"eligible"`
}

type ListResponse struct {
	pagination.PageInfo
	Checks []Check `json:"eligibility_checks"`
}

type Service interface {
	Check(ctx context.Context, req CheckRequest) (*Check, error)
	Get(ctx context.Context, id snowflake.ID) (*Check, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

// Repository reads the facts a check is derived from. Check rows themselves
// go through the generic store.
type Repository interface {
	Standing(ctx context.Context, db *gorm.DB, memberID snowflake.ID, since time.Time) (MemberStanding, error)
	LastContributionDate(ctx context.Context, db *gorm.DB, memberID snowflake.ID) (*time.Time, error)
	ProviderActive(ctx context.Context, db *gorm.DB, providerID snowflake.ID) (found, active bool, err error)
}

var (
	ErrNotFound        = errors.New("not_found")
	ErrInvalidMember   = errors.New("invalid_member")
	ErrInvalidProvider = errors.New("invalid_provider")
	ErrInvalidEligible = errors.New("invalid_eligible")
)
