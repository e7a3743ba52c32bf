package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/shaadmin/internal/benefit/domain"
	"github.com/smallbiznis/shaadmin/internal/benefit/repository"
	providerdomain "github.com/smallbiznis/shaadmin/internal/provider/domain"
	"github.com/smallbiznis/shaadmin/internal/testutil"
	"github.com/smallbiznis/shaadmin/internal/testutil/harness"
	"github.com/smallbiznis/shaadmin/pkg/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (domain.Service, *harness.Harness) {
	t.Helper()
	h := harness.New(t, time.Date(2025, time.January, 15, 9, 0, 0, 0, time.UTC))
	return New(Params{
		DB: h.DB, Log: h.Log, GenID: h.Node, Clock: h.Clock,
		Repo: repository.Provide(), AuditSvc: h.Audit,
	}), h
}

func shif() domain.CreatePackageRequest {
	return domain.CreatePackageRequest{
		PackageCode:              "shif-2025",
		PackageName:              "Social Health Insurance Fund",
		PackageType:              "SHIF",
		AnnualLimit:              50000000,
		ApplicableFacilityLevels: []string{"LEVEL_6", "LEVEL_4", "LEVEL_4"},
		EffectiveDate:            civil.New(2025, time.January, 1),
	}
}

func TestCreatePackage(t *testing.T) {
	svc, h := setup(t)
	ctx := context.Background()

	p, err := svc.CreatePackage(ctx, shif())
	require.NoError(t, err)
	assert.Equal(t, "SHIF-2025", p.PackageCode)
	assert.True(t, p.IsActive)

	got, err := svc.GetPackage(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FacilityLevels{providerdomain.Level4, providerdomain.Level6}, got.ApplicableFacilityLevels)
	assert.Equal(t, int64(1), testutil.Count(t, h.DB, "audit_logs", "model_name = ?", "benefit_package"))

	_, err = svc.CreatePackage(ctx, shif())
	assert.ErrorIs(t, err, domain.ErrDuplicatePackageCode)
}

func TestCreatePackageValidation(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	cases := map[string]struct {
		mutate func(*domain.CreatePackageRequest)
		want   error
	}{
		"type":           {func(r *domain.CreatePackageRequest) { r.PackageType = "shif" }, domain.ErrInvalidPackageType},
		"annual limit":   {func(r *domain.CreatePackageRequest) { r.AnnualLimit = 0 }, domain.ErrInvalidLimit},
		"illness limit":  {func(r *domain.CreatePackageRequest) { v := r.AnnualLimit + 1; r.PerIllnessLimit = &v }, domain.ErrInvalidLimit},
		"facility level": {func(r *domain.CreatePackageRequest) { r.ApplicableFacilityLevels = []string{"LEVEL_0"} }, domain.ErrInvalidFacilityLevel},
		"end before start": {func(r *domain.CreatePackageRequest) {
			end := civil.New(2024, time.December, 31)
			r.EndDate = &end
		}, domain.ErrInvalidEffectivePeriod},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := shif()
			tc.mutate(&req)
			_, err := svc.CreatePackage(ctx, req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestUpdatePackage(t *testing.T) {
	svc, h := setup(t)
	ctx := context.Background()

	p, err := svc.CreatePackage(ctx, shif())
	require.NoError(t, err)

	end := civil.New(2025, time.December, 31)
	inactive := false
	updated, err := svc.UpdatePackage(ctx, p.ID, domain.UpdatePackageRequest{
		ApplicableFacilityLevels: []string{"LEVEL_2"},
		EndDate:                  &end,
		IsActive:                 &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.FacilityLevels{providerdomain.Level2}, updated.ApplicableFacilityLevels)
	assert.False(t, updated.IsActive)

	before := civil.New(2024, time.June, 1)
	_, err = svc.UpdatePackage(ctx, p.ID, domain.UpdatePackageRequest{EndDate: &before})
	assert.ErrorIs(t, err, domain.ErrInvalidEffectivePeriod)

	// nothing changed, nothing audited
	_, err = svc.UpdatePackage(ctx, p.ID, domain.UpdatePackageRequest{IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, int64(1), testutil.Count(t, h.DB, "audit_logs", "model_name = ? AND action = ?", "benefit_package", "UPDATE"))
}

func TestServices(t *testing.T) {
	svc, h := setup(t)
	ctx := context.Background()

	p, err := svc.CreatePackage(ctx, shif())
	require.NoError(t, err)

	consult, err := svc.CreateService(ctx, domain.CreateServiceRequest{
		BenefitPackageID: p.ID,
		ServiceCode:      "opd-001",
		ServiceName:      "General consultation",
		ServiceCategory:  "outpatient",
		StandardTariff:   150000,
		CopaymentAmount:  5000,
	})
	require.NoError(t, err)
	assert.Equal(t, "OPD-001", consult.ServiceCode)
	assert.Equal(t, domain.CategoryOutpatient, consult.ServiceCategory)

	_, err = svc.CreateService(ctx, domain.CreateServiceRequest{
		BenefitPackageID:         p.ID,
		ServiceCode:              "SUR-001",
		ServiceName:              "Appendectomy",
		ServiceCategory:          "SURGERY",
		StandardTariff:           8000000,
		CopaymentPercentage:      1000,
		RequiresPreauthorization: true,
	})
	require.NoError(t, err)

	_, err = svc.CreateService(ctx, domain.CreateServiceRequest{
		BenefitPackageID: p.ID, ServiceCode: "OPD-001", ServiceName: "Dup",
		ServiceCategory: "OUTPATIENT", StandardTariff: 1,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateServiceCode)

	_, err = svc.CreateService(ctx, domain.CreateServiceRequest{
		BenefitPackageID: h.Node.Generate(), ServiceCode: "X-1", ServiceName: "X",
		ServiceCategory: "OUTPATIENT", StandardTariff: 1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPackage)

	_, err = svc.CreateService(ctx, domain.CreateServiceRequest{
		BenefitPackageID: p.ID, ServiceCode: "X-2", ServiceName: "X",
		ServiceCategory: "OUTPATIENT", StandardTariff: 1, CopaymentPercentage: 10001,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCopayment)

	needsAuth := true
	resp, err := svc.ListServices(ctx, domain.ListServicesRequest{
		BenefitPackageID:         p.ID.String(),
		RequiresPreauthorization: &needsAuth,
	})
	require.NoError(t, err)
	require.Len(t, resp.Services, 1)
	assert.Equal(t, "SUR-001", resp.Services[0].ServiceCode)

	resp, err = svc.ListServices(ctx, domain.ListServicesRequest{ServiceCategory: "outpatient"})
	require.NoError(t, err)
	assert.Len(t, resp.Services, 1)

	tariff := int64(175000)
	pct := 500
	updated, err := svc.UpdateService(ctx, consult.ID, domain.UpdateServiceRequest{
		StandardTariff:      &tariff,
		CopaymentPercentage: &pct,
	})
	require.NoError(t, err)
	assert.Equal(t, tariff, updated.StandardTariff)
	assert.Equal(t, 500, updated.CopaymentPercentage)
	assert.Equal(t, int64(5000), updated.CopaymentAmount)

	_, err = svc.GetService(ctx, h.Node.Generate())
	assert.ErrorIs(t, err, domain.ErrServiceNotFound)
}

func TestListPackagesByType(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.CreatePackage(ctx, shif())
	require.NoError(t, err)
	req := shif()
	req.PackageCode = "PHCF-2025"
	req.PackageType = "PHCF"
	_, err = svc.CreatePackage(ctx, req)
	require.NoError(t, err)

	resp, err := svc.ListPackages(ctx, domain.ListPackagesRequest{PackageType: "phcf"})
	require.NoError(t, err)
	require.Len(t, resp.Packages, 1)
	assert.Equal(t, "PHCF-2025", resp.Packages[0].PackageCode)

	resp, err = svc.ListPackages(ctx, domain.ListPackagesRequest{})
	require.NoError(t, err)
	assert.Len(t, resp.Packages, 2)
}
