package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/shaadmin/internal/authorization"
	claimdomain "github.com/smallbiznis/shaadmin/internal/claim/domain"
	"github.com/smallbiznis/shaadmin/internal/config"
	identityrepo "github.com/smallbiznis/shaadmin/internal/identity/repository"
	identityservice "github.com/smallbiznis/shaadmin/internal/identity/service"
	memberdomain "github.com/smallbiznis/shaadmin/internal/member/domain"
	memberrepo "github.com/smallbiznis/shaadmin/internal/member/repository"
	memberservice "github.com/smallbiznis/shaadmin/internal/member/service"
	"github.com/smallbiznis/shaadmin/internal/ratelimit"
	referencedomain "github.com/smallbiznis/shaadmin/internal/reference/domain"
	"github.com/smallbiznis/shaadmin/internal/testutil/harness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testServer struct {
	*Server
	h *harness.Harness
}

func newTestServer(t *testing.T, limiter *ratelimit.Limiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	RegisterValidators()

	h := harness.New(t, time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC))
	enforcer, err := authorization.NewEnforcer(h.DB)
	require.NoError(t, err)

	r := gin.New()
	r.Use(ErrorHandlingMiddleware())

	srv := NewServer(ServerParams{
		Gin: r,
		AuthzSvc: authorization.NewService(authorization.Params{
			DB: h.DB, Log: h.Log, Enforcer: enforcer, AuditSvc: h.Audit,
		}),
		AuditSvc: h.Audit,
		IdentitySvc: identityservice.New(identityservice.Params{
			DB: h.DB, Log: h.Log, GenID: h.Node, Clock: h.Clock, Repo: identityrepo.Provide(), AuditSvc: h.Audit,
		}),
		MemberSvc: memberservice.New(memberservice.Params{
			DB: h.DB, Log: h.Log, GenID: h.Node, Clock: h.Clock, Repo: memberrepo.Provide(),
			Reference: h.Reference, AuditSvc: h.Audit, Emitter: h.Emitter,
		}),
		NotificationSvc: h.Notify,
		ReferenceSvc:    h.Reference,
		Limiter:         limiter,
	})
	return &testServer{Server: srv, h: h}
}

func (ts *testServer) do(method, path string, userID snowflake.ID, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.Header.Set(HeaderUserID, userID.String())
	}
	w := httptest.NewRecorder()
	ts.Engine().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

const memberBody = `{
	"national_id": "30000001",
	"first_name": "Amina",
	"last_name": "Otieno",
	"date_of_birth": "1988-06-12",
	"gender": "F",
	"email": "amina@example.com",
	"phone_number": "+254700000001",
	"employment_status": "EMPLOYED",
	"county": "Kisumu"
}`

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{gorm.ErrRecordNotFound, http.StatusNotFound, "not_found"},
		{memberdomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{fmt.Errorf("wrapped: %w", claimdomain.ErrInvalidTransition), http.StatusConflict, "conflict"},
		{referencedomain.ErrInvalidFamily, http.StatusBadRequest, "validation_error"},
		{ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{authorization.ErrForbidden, http.StatusForbidden, "forbidden"},
		{ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{ratelimit.ErrLockHeld, http.StatusTooManyRequests, "rate_limited"},
		{ErrServiceUnavailable, http.StatusServiceUnavailable, "service_unavailable"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, payload := mapError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.kind, payload.Type, tc.err.Error())
	}
}

func TestActorRequired(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(http.MethodGet, "/api/v1/members", 0, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodGet, "/api/v1/members", snowflake.ID(424242), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", decodeError(t, w).Type)
}

func TestRoleWithoutPermissionIsForbidden(t *testing.T) {
	ts := newTestServer(t, nil)
	member := ts.h.Fixtures.User("MEMBER")

	w := ts.do(http.MethodGet, "/api/v1/members", member, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", decodeError(t, w).Type)
}

func TestRegisterAndFetchMember(t *testing.T) {
	ts := newTestServer(t, nil)
	officer := ts.h.Fixtures.User("SHA_OFFICER")

	w := ts.do(http.MethodPost, "/api/v1/members", officer, memberBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Data memberdomain.Member `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "SHA/2025/000001", created.Data.SHANumber)

	w = ts.do(http.MethodGet, "/api/v1/members/"+created.Data.ID.String(), officer, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var fetched struct {
		Data memberdomain.Member `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, created.Data.ID, fetched.Data.ID)
	assert.Equal(t, "amina@example.com", fetched.Data.Email)

	w = ts.do(http.MethodGet, "/api/v1/members/not-a-number", officer, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefCodeValidation(t *testing.T) {
	ts := newTestServer(t, nil)
	officer := ts.h.Fixtures.User("SHA_OFFICER")

	body := strings.Replace(memberBody, `"national_id"`, `"sha_number": "CLM/2025/000001", "national_id"`, 1)
	w := ts.do(http.MethodPost, "/api/v1/members", officer, body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	payload := decodeError(t, w)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "sha_number", payload.Errors[0].Field)
	assert.Equal(t, "invalid_sha_number", payload.Errors[0].Code)
}

func TestMarkNotificationsReadReportsCounts(t *testing.T) {
	ts := newTestServer(t, nil)
	member := ts.h.Fixtures.User("MEMBER")

	w := ts.do(http.MethodPost, "/api/v1/notifications/mark-read", member, `{"ids": ["123456789"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			Requested int   `json:"requested"`
			Updated   int64 `json:"updated"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Requested)
	assert.Equal(t, int64(0), resp.Data.Updated)

	w = ts.do(http.MethodPost, "/api/v1/notifications/mark-read", member, `{"ids": []}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWriteRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter, err := ratelimit.NewLimiter(ratelimit.LimiterParams{
		Config: config.Config{RateLimit: config.RateLimitConfig{
			Enabled: true, WriteRate: 0.01, WriteBurst: 1, ReportRate: 0.01, ReportBurst: 1,
		}},
		Redis: client,
	})
	require.NoError(t, err)

	ts := newTestServer(t, limiter)
	officer := ts.h.Fixtures.User("SHA_OFFICER")

	w := ts.do(http.MethodPost, "/api/v1/members", officer, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = ts.do(http.MethodPost, "/api/v1/members", officer, `{}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// reads are not limited
	w = ts.do(http.MethodGet, "/api/v1/members", officer, "")
	assert.Equal(t, http.StatusOK, w.Code)
}
