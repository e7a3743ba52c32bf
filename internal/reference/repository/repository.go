package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/shaadmin/internal/reference/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const upsertReturning = `INSERT INTO reference_sequences (family, year, last_value, updated_at)
VALUES (?, ?, 1, ?)
ON CONFLICT (family, year) DO UPDATE
SET last_value = reference_sequences.last_value + 1, updated_at = excluded.updated_at
RETURNING last_value`

// MySQL has no RETURNING; LAST_INSERT_ID(expr) carries the value back on
// the same connection, which a transaction guarantees.
const upsertMySQL = `INSERT INTO reference_sequences (family, year, last_value, updated_at)
VALUES (?, ?, LAST_INSERT_ID(1), ?)
ON DUPLICATE KEY UPDATE last_value = LAST_INSERT_ID(last_value + 1), updated_at = VALUES(updated_at)`

func (r *repo) Increment(ctx context.Context, db *gorm.DB, family domain.Family, year int, now time.Time) (int64, error) {
	db = db.WithContext(ctx)

	var value int64
	if db.Dialector.Name() == "mysql" {
		if err := db.Exec(upsertMySQL, family, year, now).Error; err != nil {
			return 0, err
		}
		if err := db.Raw(`SELECT LAST_INSERT_ID()`).Scan(&value).Error; err != nil {
			return 0, err
		}
		return value, nil
	}

	if err := db.Raw(upsertReturning, family, year, now).Scan(&value).Error; err != nil {
		return 0, err
	}
	if value == 0 {
		return 0, errors.New("reference counter returned no value")
	}
	return value, nil
}

const raisePostgres = `INSERT INTO reference_sequences (family, year, last_value, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (family, year) DO UPDATE
SET last_value = GREATEST(reference_sequences.last_value, excluded.last_value), updated_at = excluded.updated_at`

// SQLite spells the two-argument maximum MAX.
const raiseSQLite = `INSERT INTO reference_sequences (family, year, last_value, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (family, year) DO UPDATE
SET last_value = MAX(reference_sequences.last_value, excluded.last_value), updated_at = excluded.updated_at`

const raiseMySQL = `INSERT INTO reference_sequences (family, year, last_value, updated_at)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE last_value = GREATEST(last_value, VALUES(last_value)), updated_at = VALUES(updated_at)`

func (r *repo) Raise(ctx context.Context, db *gorm.DB, family domain.Family, year int, value int64, now time.Time) error {
	query := raisePostgres
	switch db.Dialector.Name() {
	case "mysql":
		query = raiseMySQL
	case "sqlite":
		query = raiseSQLite
	}
	return db.WithContext(ctx).Exec(query, family, year, value, now).Error
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, family domain.Family, year int) (*domain.Sequence, error) {
	var seq domain.Sequence
	err := db.WithContext(ctx).
		Where("family = ? AND year = ?", family, year).
		Take(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &seq, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, family domain.Family) ([]domain.Sequence, error) {
	var out []domain.Sequence
	err := db.WithContext(ctx).
		Where("family = ?", family).
		Order("year desc").
		Find(&out).Error
	return out, err
}
