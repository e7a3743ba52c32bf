package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/shaadmin/internal/actorcontext"
	auditdomain "github.com/smallbiznis/shaadmin/internal/audit/domain"
	"github.com/smallbiznis/shaadmin/internal/clock"
	"github.com/smallbiznis/shaadmin/internal/config"
	"github.com/smallbiznis/shaadmin/internal/report/domain"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
	"github.com/smallbiznis/shaadmin/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const modelName = "report"

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Config   config.Config
	Repo     domain.Repository
	Renderer domain.Renderer
	AuditSvc auditdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	outputDir string
	repo      domain.Repository
	renderer  domain.Renderer
	auditSvc  auditdomain.Service
}

func New(p Params) domain.Service {
	dir := strings.TrimSpace(p.Config.ReportOutputDir)
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "shaadmin-reports")
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("report.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		outputDir: dir,
		repo:      p.Repo,
		renderer:  p.Renderer,
		auditSvc:  p.AuditSvc,
	}
}

func (s *Service) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.Report, error) {
	name := strings.TrimSpace(req.ReportName)
	if name == "" {
		return nil, domain.ErrInvalidReportName
	}
	if !req.ReportType.Valid() {
		return nil, domain.ErrInvalidReportType
	}
	format := req.FileFormat
	if format == "" {
		format = domain.FormatPDF
	}
	if !format.Valid() {
		return nil, domain.ErrInvalidFileFormat
	}
	if req.StartDate.IsZero() {
		return nil, domain.ErrInvalidStartDate
	}
	end := req.EndDate
	if end.IsZero() {
		end = req.StartDate
	}
	if end.Before(req.StartDate.Time) {
		return nil, domain.ErrInvalidDateRange
	}

	filters := req.Filters.Normalize()
	q := domain.Query{
		Start:   req.StartDate.Time,
		End:     end.AddDate(0, 0, 1),
		Filters: filters,
	}
	if req.ReportType == domain.TypeContributionSummary {
		// contribution_month is always the first of a month
		q.Start = time.Date(q.Start.Year(), q.Start.Month(), 1, 0, 0, 0, 0, time.UTC)
	}

	ds, err := s.dataset(ctx, req.ReportType, q)
	if err != nil {
		return nil, err
	}
	ds.Title = name
	ds.Period = fmt.Sprintf("%s to %s", req.StartDate.String(), end.String())

	now := s.clock.Now()
	path, err := s.write(now, name, format, ds)
	if err != nil {
		return nil, err
	}

	report := &domain.Report{
		ID:          s.genID.Generate(),
		ReportName:  name,
		ReportType:  req.ReportType,
		StartDate:   req.StartDate.Time,
		EndDate:     end.Time,
		Filters:     datatypes.NewJSONType(filters),
		FilePath:    path,
		FileFormat:  format,
		GeneratedBy: actorcontext.ActorOrSystem(ctx).UserIDPtr(),
		GeneratedAt: now,
		CreatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, report); err != nil {
			return err
		}
		var changes auditdomain.ChangeSet
		changes.Set("report_type", report.ReportType)
		changes.Set("file_format", report.FileFormat)
		changes.Set("start_date", req.StartDate.String())
		changes.Set("end_date", end.String())
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     auditdomain.ActionCreate,
			ModelName:  modelName,
			ObjectID:   report.ID,
			ObjectRepr: report.ReportName,
			Changes:    changes,
		})
	})
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	s.log.Info("report generated",
		zap.String("report_id", report.ID.String()),
		zap.String("report_type", string(report.ReportType)),
		zap.String("file_format", string(format)),
		zap.Int("rows", len(ds.Rows)),
	)
	return report, nil
}

// write renders into a temporary file and renames it into place so a
// failed render never leaves a partial artifact.
func (s *Service) write(now time.Time, name string, format domain.Format, ds domain.Dataset) (string, error) {
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	base := slug.Make(name)
	if base == "" {
		base = "report"
	}
	path := filepath.Join(s.outputDir, fmt.Sprintf("%s-%s.%s", base, strings.ToLower(id.String()), format.Ext()))

	tmp, err := os.CreateTemp(s.outputDir, ".report-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if err := s.renderer.Render(tmp, format, ds); err != nil {
		tmp.Close()
		return "", fmt.Errorf("render %s: %w", format, err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Service) dataset(ctx context.Context, t domain.Type, q domain.Query) (domain.Dataset, error) {
	db := s.db.WithContext(ctx)
	switch t {
	case domain.TypeContributionSummary:
		rows, err := s.repo.Contributions(ctx, db, q)
		if err != nil {
			return domain.Dataset{}, err
		}
		ds := domain.Dataset{Columns: []string{"Month", "Status", "Contributions", "Amount"}}
		for _, r := range rows {
			ds.Rows = append(ds.Rows, []string{r.Month.UTC().Format("2006-01"), r.Status, itoa(r.Count), money.Format(r.Amount)})
		}
		return ds, nil

	case domain.TypeClaimsReport:
		rows, err := s.repo.Claims(ctx, db, q)
		if err != nil {
			return domain.Dataset{}, err
		}
		ds := domain.Dataset{Columns: []string{"Status", "Claim type", "Claims", "Claimed", "Approved"}}
		for _, r := range rows {
			ds.Rows = append(ds.Rows, []string{r.Status, r.ClaimType, itoa(r.Count), money.Format(r.Claimed), money.Format(r.Approved)})
		}
		return ds, nil

	case domain.TypePaymentReport:
		rows, err := s.repo.Payments(ctx, db, q)
		if err != nil {
			return domain.Dataset{}, err
		}
		ds := domain.Dataset{Columns: []string{"Status", "Payments", "Amount"}}
		for _, r := range rows {
			ds.Rows = append(ds.Rows, []string{r.Status, itoa(r.Count), money.Format(r.Amount)})
		}
		return ds, nil

	case domain.TypeUtilization:
		rows, err := s.repo.Utilization(ctx, db, q)
		if err != nil {
			return domain.Dataset{}, err
		}
		ds := domain.Dataset{Columns: []string{"Category", "Line items", "Quantity", "Amount"}}
		for _, r := range rows {
			ds.Rows = append(ds.Rows, []string{r.Category, itoa(r.Items), itoa(r.Quantity), money.Format(r.Amount)})
		}
		return ds, nil

	case domain.TypeProviderPerformance:
		rows, err := s.repo.Providers(ctx, db, q)
		if err != nil {
			return domain.Dataset{}, err
		}
		ds := domain.Dataset{Columns: []string{"Facility code", "Facility", "Claims", "Approved", "Paid", "Claimed", "Approved amount"}}
		for _, r := range rows {
			ds.Rows = append(ds.Rows, []string{
				r.FacilityCode, r.FacilityName, itoa(r.Claims), itoa(r.Approved), itoa(r.Paid),
				money.Format(r.Claimed), money.Format(r.ApprovedAmount),
			})
		}
		return ds, nil

	case domain.TypeMemberEnrollment:
		rows, err := s.repo.Enrollment(ctx, db, q)
		if err != nil {
			return domain.Dataset{}, err
		}
		ds := domain.Dataset{Columns: []string{"County", "Member type", "Registrations"}}
		for _, r := range rows {
			county := r.County
			if county == "" {
				county = "Unspecified"
			}
			ds.Rows = append(ds.Rows, []string{county, r.MemberType, itoa(r.Count)})
		}
		return ds, nil
	}
	return domain.Dataset{}, domain.ErrInvalidReportType
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Report, error) {
	if id == 0 {
		return nil, domain.ErrNotFound
	}
	report, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, domain.ErrNotFound
	}
	return report, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	reportType := domain.Type(strings.ToUpper(strings.TrimSpace(req.ReportType)))
	if reportType != "" && !reportType.Valid() {
		return domain.ListResponse{}, domain.ErrInvalidReportType
	}

	page := req.Pagination
	page.PageSize = pagination.Normalize(page.PageSize)
	items, err := s.repo.List(ctx, s.db, reportType, page)
	if err != nil {
		return domain.ListResponse{}, err
	}
	info := pagination.BuildCursorPageInfo(items, page.PageSize, func(r *domain.Report) string {
		return pagination.CursorFor(r.ID, r.CreatedAt)
	})
	return domain.ListResponse{
		PageInfo: *info,
		Reports:  pagination.Trim(items, page.PageSize),
	}, nil
}

func (s *Service) Open(ctx context.Context, id snowflake.ID) (*domain.Report, io.ReadCloser, error) {
	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(report.FilePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, domain.ErrFileNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return report, f, nil
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
