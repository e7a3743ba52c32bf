// Package seed creates the bootstrap administrator on an empty database.
package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shaadmin/internal/config"
	"github.com/smallbiznis/shaadmin/internal/identity/password"
	"gorm.io/gorm"
)

const adminRole = "ADMIN"

// EnsureBootstrapAdmin inserts the configured administrator unless a user
// with the same username already exists. It is safe to run on every start.
func EnsureBootstrapAdmin(ctx context.Context, db *gorm.DB, cfg config.BootstrapConfig) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if !cfg.Enabled() {
		return nil
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	username := strings.ToLower(strings.TrimSpace(cfg.Username))
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Raw(`SELECT COUNT(*) FROM users WHERE username = ?`, username).Scan(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}

		var hash *string
		if cfg.Password != "" {
			encoded, err := password.Hash(cfg.Password)
			if err != nil {
				return err
			}
			hash = &encoded
		}

		now := time.Now().UTC()
		return tx.Exec(`INSERT INTO users (id, username, email, first_name, last_name, role, phone_number, is_verified, is_active, password_hash, created_at, updated_at)
			VALUES (?, ?, ?, 'Scheme', 'Administrator', ?, ?, ?, ?, ?, ?, ?)`,
			node.Generate(), username, strings.ToLower(strings.TrimSpace(cfg.Email)), adminRole,
			strings.TrimSpace(cfg.Phone), true, true, hash, now, now,
		).Error
	})
}
