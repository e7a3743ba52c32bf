package authorization

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/shaadmin/internal/actorcontext"
	auditrepo "github.com/smallbiznis/shaadmin/internal/audit/repository"
	auditservice "github.com/smallbiznis/shaadmin/internal/audit/service"
	"github.com/smallbiznis/shaadmin/internal/clock"
	"github.com/smallbiznis/shaadmin/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setup(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)
	audit := auditservice.New(auditservice.Params{
		DB: db, Log: zap.NewNop(), GenID: testutil.NewNode(t),
		Clock: clock.NewFakeClock(time.Now()), Repo: auditrepo.Provide(),
	})
	return NewService(Params{DB: db, Log: zap.NewNop(), Enforcer: enforcer, AuditSvc: audit}), db
}

func TestRoleMatrix(t *testing.T) {
	svc, db := setup(t)
	fx := testutil.NewFixtures(t, db)
	ctx := context.Background()

	cases := []struct {
		role, object, action string
		allowed              bool
	}{
		{"ADMIN", ObjectReference, ActionView, true},
		{"ADMIN", ObjectEmployer, ActionDelete, true},
		{"SHA_OFFICER", ObjectMember, ActionCreate, true},
		{"SHA_OFFICER", ObjectClaim, ActionApprove, false},
		{"SHA_OFFICER", ObjectAuditLog, ActionView, true},
		{"CLAIMS_OFFICER", ObjectClaim, ActionApprove, true},
		{"CLAIMS_OFFICER", ObjectPreAuth, ActionExpire, true},
		{"CLAIMS_OFFICER", ObjectPayment, ActionCreate, false},
		{"FINANCE_OFFICER", ObjectPayment, ActionComplete, true},
		{"FINANCE_OFFICER", ObjectContribution, ActionReverse, true},
		{"FINANCE_OFFICER", ObjectClaim, ActionApprove, false},
		{"PROVIDER", ObjectClaim, ActionSubmit, true},
		{"PROVIDER", ObjectClaim, ActionApprove, false},
		{"EMPLOYER", ObjectContribution, ActionCreate, true},
		{"EMPLOYER", ObjectContribution, ActionComplete, false},
		{"MEMBER", ObjectBenefit, ActionView, true},
		{"MEMBER", ObjectMember, ActionView, false},
		{"MEMBER", ObjectNotification, ActionUpdate, true},
		{"MEMBER", ObjectReference, ActionView, false},
	}
	for _, tc := range cases {
		actor := actorcontext.Actor{UserID: fx.User(tc.role), Role: tc.role}
		err := svc.Authorize(ctx, actor, tc.object, tc.action)
		if tc.allowed {
			assert.NoError(t, err, "%s %s.%s", tc.role, tc.object, tc.action)
		} else {
			assert.ErrorIs(t, err, ErrForbidden, "%s %s.%s", tc.role, tc.object, tc.action)
		}
	}
}

func TestSystemActorIsAllowed(t *testing.T) {
	svc, _ := setup(t)
	assert.NoError(t, svc.Authorize(context.Background(), actorcontext.System, ObjectPreAuth, ActionExpire))
}

func TestDenialIsAudited(t *testing.T) {
	svc, db := setup(t)
	fx := testutil.NewFixtures(t, db)
	actor := actorcontext.Actor{UserID: fx.User("MEMBER"), Role: "MEMBER"}

	err := svc.Authorize(context.Background(), actor, ObjectClaim, ActionApprove)
	require.ErrorIs(t, err, ErrForbidden)
	assert.EqualValues(t, 1, testutil.Count(t, db, "audit_logs", "action = ? AND model_name = ? AND user_id = ?", "ACCESS_DENIED", "claim", actor.UserID))
}

func TestRoleChangeReplacesGrouping(t *testing.T) {
	svc, db := setup(t)
	fx := testutil.NewFixtures(t, db)
	userID := fx.User("CLAIMS_OFFICER")
	ctx := context.Background()

	require.NoError(t, svc.Authorize(ctx, actorcontext.Actor{UserID: userID, Role: "CLAIMS_OFFICER"}, ObjectClaim, ActionApprove))
	err := svc.Authorize(ctx, actorcontext.Actor{UserID: userID, Role: "MEMBER"}, ObjectClaim, ActionApprove)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAuthorizeInputValidation(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	assert.ErrorIs(t, svc.Authorize(ctx, actorcontext.Actor{UserID: 1}, ObjectClaim, ActionView), ErrUnauthorized)
	assert.ErrorIs(t, svc.Authorize(ctx, actorcontext.System, "", ActionView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, actorcontext.System, ObjectClaim, " "), ErrInvalidAction)
}

func TestSeedingIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	_, err := NewEnforcer(db)
	require.NoError(t, err)
	_, err = NewEnforcer(db)
	require.NoError(t, err)
	assert.EqualValues(t, len(defaultPolicies()), testutil.Count(t, db, "casbin_rule", "ptype = ?", "p"))
}
