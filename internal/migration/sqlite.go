package migration

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

var sqliteReplacer = strings.NewReplacer(
	"TIMESTAMPTZ", "TIMESTAMP",
	"JSONB", "JSON",
	"DEFAULT NOW()", "DEFAULT CURRENT_TIMESTAMP",
)

// SQLiteSchema renders the up migrations for SQLite. Postgres-only blocks
// (functions and triggers) are dropped, so the append-only guarantee on
// audit_logs is enforced by the service layer alone there.
func SQLiteSchema() (string, error) {
	names, err := Files()
	if err != nil {
		return "", err
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		raw, err := fs.ReadFile(embeddedMigrations, migrationsDir+"/"+name)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", name, err)
		}
		for _, stmt := range strings.Split(stripPostgresBlocks(string(raw)), ";\n") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			b.WriteString(sqliteReplacer.Replace(stmt))
			b.WriteString(";\n")
		}
	}
	return b.String(), nil
}

func stripPostgresBlocks(body string) string {
	const (
		fnStart = "CREATE OR REPLACE FUNCTION"
		trgEnd  = "EXECUTE FUNCTION audit_logs_append_only();"
	)
	for {
		start := strings.Index(body, fnStart)
		if start < 0 {
			return body
		}
		end := strings.Index(body[start:], trgEnd)
		if end < 0 {
			return body[:start]
		}
		body = body[:start] + body[start+end+len(trgEnd):]
	}
}
