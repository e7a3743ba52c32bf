package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Service interface {
	// Summary serves a cached snapshot when one is fresh.
	Summary(ctx context.Context) (*Summary, error)
	// Refresh recomputes the snapshot and replaces the cached copy.
	Refresh(ctx context.Context) (*Summary, error)
}

type Repository interface {
	Count(ctx context.Context, db *gorm.DB, table, where string, args ...any) (int64, error)
	Sum(ctx context.Context, db *gorm.DB, table, column, where string, args ...any) (int64, error)
	CountByStatus(ctx context.Context, db *gorm.DB, table string) (map[string]int64, error)
	MonthlyContributions(ctx context.Context, db *gorm.DB, from, to time.Time) (map[string]int64, error)
	TopProviders(ctx context.Context, db *gorm.DB, limit int) ([]ProviderClaims, error)
	TopCounties(ctx context.Context, db *gorm.DB, limit int) ([]CountyMembers, error)
	RecentClaims(ctx context.Context, db *gorm.DB, limit int) ([]RecentClaim, error)
}
