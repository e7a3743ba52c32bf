// Package schememetrics keeps scheme KPI gauges in a dedicated Prometheus
// registry, refreshed from the database and optionally pushed upstream.
package schememetrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dashboarddomain "github.com/smallbiznis/shaadmin/internal/dashboard/domain"
	"github.com/smallbiznis/shaadmin/pkg/civil"
	"gorm.io/gorm"
)

var claimStatuses = []string{"SUBMITTED", "UNDER_REVIEW", "QUERIED", "APPROVED", "REJECTED", "PAID"}

type Gauges struct {
	registry      *prometheus.Registry
	activeMembers prometheus.Gauge
	claims        *prometheus.GaugeVec
	pendingAuths  prometheus.Gauge
	contributions prometheus.Gauge
	refreshedAt   prometheus.Gauge
}

func NewGauges() *Gauges {
	g := &Gauges{
		registry: prometheus.NewRegistry(),
		activeMembers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sha_active_members",
			Help: "Members currently active.",
		}),
		claims: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sha_claims",
			Help: "Claims per workflow status.",
		}, []string{"status"}),
		pendingAuths: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sha_pending_preauthorizations",
			Help: "Pre-authorizations awaiting a decision.",
		}),
		contributions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sha_contributions_current_month_cents",
			Help: "Completed contributions for the current month, in cents.",
		}),
		refreshedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sha_scheme_metrics_refreshed_timestamp_seconds",
			Help: "Unix time of the last successful refresh.",
		}),
	}
	g.registry.MustRegister(g.activeMembers, g.claims, g.pendingAuths, g.contributions, g.refreshedAt)
	return g
}

func (g *Gauges) Registry() *prometheus.Registry {
	return g.registry
}

// Handler serves the scheme registry in the Prometheus text format.
func (g *Gauges) Handler() http.Handler {
	return promhttp.HandlerFor(g.registry, promhttp.HandlerOpts{})
}

// Refresh recomputes every gauge. Gauges keep their previous values when a
// query fails.
func (g *Gauges) Refresh(ctx context.Context, db *gorm.DB, repo dashboarddomain.Repository, now time.Time) error {
	active, err := repo.Count(ctx, db, "members", "is_active = ?", true)
	if err != nil {
		return err
	}
	byStatus, err := repo.CountByStatus(ctx, db, "claims")
	if err != nil {
		return err
	}
	pending, err := repo.Count(ctx, db, "preauthorizations", "status = ?", "PENDING")
	if err != nil {
		return err
	}
	month := civil.FirstOfMonth(now)
	collected, err := repo.Sum(ctx, db, "contributions", "contribution_amount",
		"status = ? AND contribution_month >= ? AND contribution_month < ?", "COMPLETED", month, month.AddDate(0, 1, 0))
	if err != nil {
		return err
	}

	g.activeMembers.Set(float64(active))
	for _, status := range claimStatuses {
		g.claims.WithLabelValues(status).Set(float64(byStatus[status]))
	}
	g.pendingAuths.Set(float64(pending))
	g.contributions.Set(float64(collected))
	g.refreshedAt.Set(float64(now.Unix()))
	return nil
}
