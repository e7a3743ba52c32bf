package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/shaadmin/internal/employer/domain"
	"github.com/smallbiznis/shaadmin/internal/employer/repository"
	"github.com/smallbiznis/shaadmin/internal/testutil"
	"github.com/smallbiznis/shaadmin/internal/testutil/harness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (domain.Service, *harness.Harness) {
	t.Helper()
	h := harness.New(t, time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC))
	return New(Params{
		DB: h.DB, Log: h.Log, GenID: h.Node, Clock: h.Clock,
		Repo: repository.Provide(), Reference: h.Reference, AuditSvc: h.Audit,
	}), h
}

func registerRequest(pin, brn string) domain.RegisterRequest {
	return domain.RegisterRequest{
		CompanyName:                "Acme Ltd",
		KRAPin:                     pin,
		BusinessRegistrationNumber: brn,
		Email:                      "HR@acme.example",
		PhoneNumber:                "+254711111111",
		County:                     "Nairobi",
	}
}

func TestRegisterIssuesEmployerCodes(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, registerRequest("p051234567a", "BRN-1"))
	require.NoError(t, err)
	assert.Equal(t, "EMP/000001", first.EmployerCode)
	assert.Equal(t, "P051234567A", first.KRAPin)
	assert.Equal(t, "hr@acme.example", first.Email)
	assert.Equal(t, testutil.Date(2025, time.March, 3), first.RegistrationDate)

	second, err := svc.Register(ctx, registerRequest("P2", "BRN-2"))
	require.NoError(t, err)
	assert.Equal(t, "EMP/000002", second.EmployerCode)
}

func TestRegisterSuppliedCodeAndDuplicates(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	req := registerRequest("P1", "BRN-1")
	req.EmployerCode = "EMP/000777"
	e, err := svc.Register(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "EMP/000777", e.EmployerCode)

	_, err = svc.Register(ctx, registerRequest("P1", "BRN-9"))
	assert.ErrorIs(t, err, domain.ErrDuplicateKRAPin)

	_, err = svc.Register(ctx, registerRequest("P9", "BRN-1"))
	assert.ErrorIs(t, err, domain.ErrDuplicateRegistrationNumber)

	req = registerRequest("P8", "BRN-8")
	req.EmployerCode = "EMP/000777"
	_, err = svc.Register(ctx, req)
	assert.ErrorIs(t, err, domain.ErrDuplicateEmployerCode)
}

func TestDeleteClearsReferences(t *testing.T) {
	svc, h := setup(t)
	ctx := context.Background()
	e, err := svc.Register(ctx, registerRequest("P1", "BRN-1"))
	require.NoError(t, err)

	memberID := h.Fixtures.Member(nil)
	require.NoError(t, h.DB.Exec(`UPDATE members SET employer_id = ? WHERE id = ?`, e.ID, memberID).Error)
	contributionID := h.Fixtures.Contribution(memberID, testutil.Date(2025, time.February, 1), "COMPLETED")
	require.NoError(t, h.DB.Exec(`UPDATE contributions SET employer_id = ? WHERE id = ?`, e.ID, contributionID).Error)

	require.NoError(t, svc.Delete(ctx, e.ID))

	assert.EqualValues(t, 1, testutil.Count(t, h.DB, "members", "id = ? AND employer_id IS NULL", memberID))
	assert.EqualValues(t, 1, testutil.Count(t, h.DB, "contributions", "id = ? AND employer_id IS NULL", contributionID))
	assert.EqualValues(t, 1, testutil.Count(t, h.DB, "audit_logs", "action = ? AND model_name = ?", "DELETE", "employer"))

	assert.ErrorIs(t, svc.Delete(ctx, e.ID), domain.ErrNotFound)
}

func TestUpdateAndActivation(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	e, err := svc.Register(ctx, registerRequest("P1", "BRN-1"))
	require.NoError(t, err)

	contact := "Mary Achieng"
	updated, err := svc.Update(ctx, e.ID, domain.UpdateRequest{ContactPersonName: &contact})
	require.NoError(t, err)
	assert.Equal(t, contact, updated.ContactPersonName)

	blank := " "
	_, err = svc.Update(ctx, e.ID, domain.UpdateRequest{CompanyName: &blank})
	assert.ErrorIs(t, err, domain.ErrInvalidCompanyName)

	off, err := svc.Deactivate(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, off.IsActive)

	inactive := false
	resp, err := svc.List(ctx, domain.ListRequest{IsActive: &inactive})
	require.NoError(t, err)
	assert.Len(t, resp.Employers, 1)

	on, err := svc.Activate(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, on.IsActive)
}
