// Package harness wires the shared services every workflow service depends
// on, backed by a test database.
package harness

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/shaadmin/internal/audit/domain"
	auditrepo "github.com/smallbiznis/shaadmin/internal/audit/repository"
	auditservice "github.com/smallbiznis/shaadmin/internal/audit/service"
	"github.com/smallbiznis/shaadmin/internal/clock"
	"github.com/smallbiznis/shaadmin/internal/config"
	"github.com/smallbiznis/shaadmin/internal/events"
	notificationdomain "github.com/smallbiznis/shaadmin/internal/notification/domain"
	notificationrepo "github.com/smallbiznis/shaadmin/internal/notification/repository"
	notificationservice "github.com/smallbiznis/shaadmin/internal/notification/service"
	referencedomain "github.com/smallbiznis/shaadmin/internal/reference/domain"
	referencerepo "github.com/smallbiznis/shaadmin/internal/reference/repository"
	referenceservice "github.com/smallbiznis/shaadmin/internal/reference/service"
	"github.com/smallbiznis/shaadmin/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Harness struct {
	DB        *gorm.DB
	Log       *zap.Logger
	Clock     *clock.FakeClock
	Node      *snowflake.Node
	Fixtures  *testutil.Fixtures
	Audit     auditdomain.Service
	Reference referencedomain.Service
	Notify    notificationdomain.Service
	Recorder  *events.Recorder
	Emitter   *events.Emitter
	Policy    *config.SchemePolicyHolder
}

// New opens a fresh database with the clock pinned at now.
func New(t *testing.T, now time.Time) *Harness {
	t.Helper()
	db := testutil.NewDB(t)
	fixtures := testutil.NewFixtures(t, db)
	node := fixtures.Node()
	clk := clock.NewFakeClock(now)
	log := zap.NewNop()
	recorder := events.NewRecorder()

	return &Harness{
		DB:       db,
		Log:      log,
		Clock:    clk,
		Node:     node,
		Fixtures: fixtures,
		Audit: auditservice.New(auditservice.Params{
			DB: db, Log: log, GenID: node, Clock: clk, Repo: auditrepo.Provide(),
		}),
		Reference: referenceservice.New(referenceservice.Params{
			DB: db, Log: log, Clock: clk, Repo: referencerepo.Provide(),
		}),
		Notify: notificationservice.New(notificationservice.Params{
			DB: db, Log: log, GenID: node, Clock: clk, Repo: notificationrepo.Provide(),
		}),
		Recorder: recorder,
		Emitter:  events.NewEmitter(recorder, log, clk, nil),
		Policy:   config.NewStaticSchemePolicy(config.DefaultSchemePolicy()),
	}
}
