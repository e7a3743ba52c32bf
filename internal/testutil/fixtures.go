package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Fixtures inserts minimal valid rows. Every call produces unique business
// keys so tests can create as many rows as they need.
type Fixtures struct {
	t    *testing.T
	db   *gorm.DB
	node *snowflake.Node
	seq  int
}

func NewFixtures(t *testing.T, db *gorm.DB) *Fixtures {
	t.Helper()
	return &Fixtures{t: t, db: db, node: NewNode(t)}
}

func (f *Fixtures) Node() *snowflake.Node { return f.node }

func (f *Fixtures) next() (snowflake.ID, int) {
	f.seq++
	return f.node.Generate(), f.seq
}

func (f *Fixtures) exec(sql string, args ...any) {
	f.t.Helper()
	require.NoError(f.t, f.db.Exec(sql, args...).Error)
}

func (f *Fixtures) User(role string) snowflake.ID {
	f.t.Helper()
	id, n := f.next()
	now := time.Now().UTC()
	f.exec(`INSERT INTO users (id, username, email, first_name, last_name, role, phone_number, is_verified, is_active, created_at, updated_at)
		VALUES (?, ?, ?, 'Test', 'User', ?, ?, ?, ?, ?, ?)`,
		id, fmt.Sprintf("user%d", n), fmt.Sprintf("user%d@example.com", n), role, fmt.Sprintf("+2547000%05d", n), true, true, now, now)
	return id
}

func (f *Fixtures) Employer() snowflake.ID {
	f.t.Helper()
	id, n := f.next()
	now := time.Now().UTC()
	f.exec(`INSERT INTO employers (id, employer_code, company_name, kra_pin, business_registration_number, email, phone_number, county, registration_date, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, '+254711000000', 'Nairobi', ?, ?, ?, ?)`,
		id, fmt.Sprintf("EMP/9%05d", n), fmt.Sprintf("Company %d", n), fmt.Sprintf("P0000%05dZ", n), fmt.Sprintf("BRN-%d", n),
		fmt.Sprintf("hr%d@example.com", n), Date(2024, time.January, 1), true, now, now)
	return id
}

// Provider inserts an active contracted facility, optionally owned by a user.
func (f *Fixtures) Provider(userID *snowflake.ID) snowflake.ID {
	f.t.Helper()
	id, n := f.next()
	now := time.Now().UTC()
	f.exec(`INSERT INTO healthcare_providers (id, facility_code, facility_name, facility_level, facility_type, license_number, email, phone_number, county, is_contracted, is_active, user_id, created_at, updated_at)
		VALUES (?, ?, ?, 'LEVEL_4', 'PUBLIC', ?, ?, '+254722000000', 'Nairobi', ?, ?, ?, ?, ?)`,
		id, fmt.Sprintf("FAC/9%05d", n), fmt.Sprintf("Facility %d", n), fmt.Sprintf("LIC-%d", n), fmt.Sprintf("facility%d@example.com", n),
		true, true, userID, now, now)
	return id
}

func (f *Fixtures) SetProviderActive(id snowflake.ID, active bool) {
	f.t.Helper()
	f.exec(`UPDATE healthcare_providers SET is_active = ? WHERE id = ?`, active, id)
}

// Member inserts an active principal member, optionally owned by a user.
func (f *Fixtures) Member(userID *snowflake.ID) snowflake.ID {
	f.t.Helper()
	id, n := f.next()
	now := time.Now().UTC()
	f.exec(`INSERT INTO members (id, user_id, national_id, first_name, last_name, date_of_birth, gender, email, phone_number, sha_number, member_type, employment_status, registration_date, is_active, is_subsidized, county, created_at, updated_at)
		VALUES (?, ?, ?, 'Jane', 'Doe', ?, 'F', ?, '+254733000000', ?, 'PRINCIPAL', 'EMPLOYED', ?, ?, ?, 'Nairobi', ?, ?)`,
		id, userID, fmt.Sprintf("ID%08d", n), Date(1990, time.May, 1), fmt.Sprintf("member%d@example.com", n),
		fmt.Sprintf("SHA/1999/9%05d", n), Date(2024, time.January, 1), true, false, now, now)
	return id
}

func (f *Fixtures) SetMemberFlags(id snowflake.ID, active, subsidized bool) {
	f.t.Helper()
	f.exec(`UPDATE members SET is_active = ?, is_subsidized = ? WHERE id = ?`, active, subsidized, id)
}

func (f *Fixtures) Package() snowflake.ID {
	f.t.Helper()
	id, n := f.next()
	now := time.Now().UTC()
	f.exec(`INSERT INTO benefit_packages (id, package_code, package_name, package_type, annual_limit, applicable_facility_levels, effective_date, is_active, created_at, updated_at)
		VALUES (?, ?, ?, 'SHIF', 50000000, '["LEVEL_4"]', ?, ?, ?, ?)`,
		id, fmt.Sprintf("PKG-%d", n), fmt.Sprintf("Package %d", n), Date(2024, time.January, 1), true, now, now)
	return id
}

// Service inserts a benefit service with the given tariff in cents.
func (f *Fixtures) Service(packageID snowflake.ID, tariff int64) snowflake.ID {
	f.t.Helper()
	id, n := f.next()
	now := time.Now().UTC()
	f.exec(`INSERT INTO benefit_services (id, benefit_package_id, service_code, service_name, service_category, standard_tariff, copayment_amount, copayment_percentage, requires_preauthorization, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, 'OUTPATIENT', ?, 0, 0, ?, ?, ?, ?)`,
		id, packageID, fmt.Sprintf("SVC-%d", n), fmt.Sprintf("Service %d", n), tariff, false, true, now, now)
	return id
}

// Contribution inserts a contribution for the first day of month.
func (f *Fixtures) Contribution(memberID snowflake.ID, month time.Time, status string) snowflake.ID {
	f.t.Helper()
	id, n := f.next()
	now := time.Now().UTC()
	month = time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	f.exec(`INSERT INTO contributions (id, member_id, contribution_month, contribution_amount, contribution_rate, payment_method, transaction_reference, payment_date, status, created_at, updated_at)
		VALUES (?, ?, ?, 30000, 275, 'MPESA', ?, ?, ?, ?, ?)`,
		id, memberID, month, fmt.Sprintf("TX-%d", n), month.AddDate(0, 0, 5), status, now, now)
	return id
}

// PreAuth inserts a pre-authorization in the given status.
func (f *Fixtures) PreAuth(memberID, providerID, serviceID snowflake.ID, status string, estimated int64) snowflake.ID {
	f.t.Helper()
	id, n := f.next()
	now := time.Now().UTC()
	f.exec(`INSERT INTO preauthorizations (id, authorization_number, member_id, provider_id, benefit_service_id, diagnosis, procedure_description, estimated_cost, requested_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 'Diagnosis', 'Procedure', ?, ?, ?, ?, ?)`,
		id, fmt.Sprintf("AUTH/1999/9%05d", n), memberID, providerID, serviceID, estimated, now, status, now, now)
	return id
}

// Claim inserts a claim header without items.
func (f *Fixtures) Claim(memberID, providerID, packageID snowflake.ID, status string, claimed int64, approved *int64) snowflake.ID {
	f.t.Helper()
	id, n := f.next()
	now := time.Now().UTC()
	f.exec(`INSERT INTO claims (id, claim_number, member_id, provider_id, benefit_package_id, claim_type, visit_date, diagnosis, claimed_amount, approved_amount, copayment_amount, status, submission_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 'OUTPATIENT', ?, 'Diagnosis', ?, ?, 0, ?, ?, ?, ?)`,
		id, fmt.Sprintf("CLM/1999/9%05d", n), memberID, providerID, packageID, Date(2025, time.March, 1), claimed, approved, status, now, now, now)
	return id
}

// Status reads the status column of any workflow table.
func Status(t *testing.T, db *gorm.DB, table string, id snowflake.ID) string {
	t.Helper()
	var status string
	require.NoError(t, db.Raw(fmt.Sprintf("SELECT status FROM %s WHERE id = ?", table), id).Scan(&status).Error)
	return status
}

// Count returns the number of rows in table matching where.
func Count(t *testing.T, db *gorm.DB, table, where string, args ...any) int64 {
	t.Helper()
	var n int64
	q := "SELECT COUNT(*) FROM " + table
	if where != "" {
		q += " WHERE " + where
	}
	require.NoError(t, db.Raw(q, args...).Scan(&n).Error)
	return n
}
