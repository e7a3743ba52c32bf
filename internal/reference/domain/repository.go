package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// Increment bumps the counter for (family, year) and returns the new value.
	Increment(ctx context.Context, db *gorm.DB, family Family, year int, now time.Time) (int64, error)
	// Raise lifts the counter for (family, year) to at least value so the
	// next Increment issues past a code that was supplied by hand.
	Raise(ctx context.Context, db *gorm.DB, family Family, year int, value int64, now time.Time) error
	Find(ctx context.Context, db *gorm.DB, family Family, year int) (*Sequence, error)
	List(ctx context.Context, db *gorm.DB, family Family) ([]Sequence, error)
}
