package domain

import (
	"context"

	"gorm.io/gorm"
)

type Service interface {
	// Issue returns supplied when it is a well formed code of family,
	// otherwise the next code from the counter. A supplied code lifts the
	// counter of its year to its sequence. It must run on the caller's
	// transaction.
	Issue(ctx context.Context, tx *gorm.DB, family Family, supplied string) (string, error)
	Peek(ctx context.Context, family Family, year int) (Sequence, error)
	List(ctx context.Context, family Family) ([]Sequence, error)
}
