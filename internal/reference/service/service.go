package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/shaadmin/internal/clock"
	obsmetrics "github.com/smallbiznis/shaadmin/internal/observability/metrics"
	"github.com/smallbiznis/shaadmin/internal/reference/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Repo    domain.Repository
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	repo    domain.Repository
	metrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("reference.service"),
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) Issue(ctx context.Context, tx *gorm.DB, family domain.Family, supplied string) (string, error) {
	if _, err := domain.ParseFamily(string(family)); err != nil {
		return "", err
	}

	if supplied = strings.TrimSpace(supplied); supplied != "" {
		code, err := domain.ParseFor(family, supplied)
		if err != nil {
			return "", err
		}
		if err := s.repo.Raise(ctx, tx, family, code.Year, code.Sequence, s.clock.Now()); err != nil {
			return "", fmt.Errorf("raise %s counter: %w", family, err)
		}
		return supplied, nil
	}

	now := s.clock.Now()
	year := family.CounterYear(now)
	next, err := s.repo.Increment(ctx, tx, family, year, now)
	if err != nil {
		return "", fmt.Errorf("increment %s counter: %w", family, err)
	}

	code, err := domain.Format(family, now.Year(), next)
	if err != nil {
		s.log.Error("reference counter out of range",
			zap.String("family", string(family)),
			zap.Int("year", year),
			zap.Int64("value", next),
		)
		return "", err
	}
	s.metrics.RecordCodeIssued(ctx, string(family))
	return code, nil
}

func (s *Service) Peek(ctx context.Context, family domain.Family, year int) (domain.Sequence, error) {
	if _, err := domain.ParseFamily(string(family)); err != nil {
		return domain.Sequence{}, err
	}
	if !family.YearScoped() {
		year = 0
	} else if year == 0 {
		year = s.clock.Now().Year()
	}

	seq, err := s.repo.Find(ctx, s.db, family, year)
	if err != nil {
		return domain.Sequence{}, err
	}
	if seq == nil {
		return domain.Sequence{Family: family, Year: year}, nil
	}
	return *seq, nil
}

func (s *Service) List(ctx context.Context, family domain.Family) ([]domain.Sequence, error) {
	if _, err := domain.ParseFamily(string(family)); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, s.db, family)
}
