package schememetrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/prometheus/prometheus/prompb"
	"github.com/smallbiznis/shaadmin/internal/config"
	"github.com/smallbiznis/shaadmin/internal/dashboard/repository"
	shatest "github.com/smallbiznis/shaadmin/internal/testutil"
	"github.com/smallbiznis/shaadmin/internal/testutil/harness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRefreshSetsGauges(t *testing.T) {
	h := harness.New(t, time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC))
	member := h.Fixtures.Member(nil)
	inactive := h.Fixtures.Member(nil)
	h.Fixtures.SetMemberFlags(inactive, false, false)
	provider := h.Fixtures.Provider(nil)
	pkg := h.Fixtures.Package()

	h.Fixtures.Contribution(member, shatest.Date(2025, time.February, 1), "COMPLETED")
	h.Fixtures.Contribution(member, shatest.Date(2025, time.March, 1), "COMPLETED")
	h.Fixtures.Claim(member, provider, pkg, "SUBMITTED", 10000, nil)
	h.Fixtures.Claim(member, provider, pkg, "SUBMITTED", 5000, nil)
	svcID := h.Fixtures.Service(pkg, 1000)
	h.Fixtures.PreAuth(member, provider, svcID, "PENDING", 1000)

	g := NewGauges()
	require.NoError(t, g.Refresh(context.Background(), h.DB, repository.Provide(), h.Clock.Now()))

	assert.Equal(t, 1.0, testutil.ToFloat64(g.activeMembers))
	assert.Equal(t, 2.0, testutil.ToFloat64(g.claims.WithLabelValues("SUBMITTED")))
	assert.Equal(t, 0.0, testutil.ToFloat64(g.claims.WithLabelValues("PAID")))
	assert.Equal(t, 1.0, testutil.ToFloat64(g.pendingAuths))
	assert.Equal(t, 30000.0, testutil.ToFloat64(g.contributions))
	assert.Equal(t, float64(h.Clock.Now().Unix()), testutil.ToFloat64(g.refreshedAt))
}

func TestRemoteWritePush(t *testing.T) {
	var (
		got     prompb.WriteRequest
		headers http.Header
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		raw, err := snappy.Decode(nil, body)
		require.NoError(t, err)
		require.NoError(t, got.Unmarshal(raw))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	g := NewGauges()
	g.activeMembers.Set(42)

	pusher := NewRemoteWritePusher(server.URL, "secret")
	pusher.now = func() time.Time { return time.UnixMilli(1700000000000) }
	require.NoError(t, pusher.Push(context.Background(), g.Registry()))

	assert.Equal(t, "Bearer secret", headers.Get("Authorization"))
	assert.Equal(t, "snappy", headers.Get("Content-Encoding"))

	var found bool
	for _, ts := range got.Timeseries {
		for _, label := range ts.Labels {
			if label.Name == "__name__" && label.Value == "sha_active_members" {
				found = true
				require.Len(t, ts.Samples, 1)
				assert.Equal(t, 42.0, ts.Samples[0].Value)
				assert.Equal(t, int64(1700000000000), ts.Samples[0].Timestamp)
			}
		}
	}
	assert.True(t, found)
}

func TestRemoteWritePushRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	g := NewGauges()
	g.pendingAuths.Set(1)
	err := NewRemoteWritePusher(server.URL, "").Push(context.Background(), g.Registry())
	require.Error(t, err)
}

func TestBuildRemoteWriteSeriesSortsLabels(t *testing.T) {
	g := NewGauges()
	g.claims.WithLabelValues("APPROVED").Set(3)

	families, err := g.Registry().Gather()
	require.NoError(t, err)

	series := buildRemoteWriteSeries(families, 1)
	var labels []prompb.Label
	for _, ts := range series {
		if len(ts.Labels) == 2 && ts.Labels[1].Value == "APPROVED" {
			labels = ts.Labels
		}
	}
	assert.Equal(t, []prompb.Label{
		{Name: "__name__", Value: "sha_claims"},
		{Name: "status", Value: "APPROVED"},
	}, labels)
}

func TestNewPusher(t *testing.T) {
	log := zap.NewNop()
	cases := []struct {
		name     string
		metrics  config.MetricsPushConfig
		expected any
	}{
		{name: "disabled", metrics: config.MetricsPushConfig{}},
		{name: "missing endpoint", metrics: config.MetricsPushConfig{Exporter: ExporterRemoteWrite}},
		{name: "unknown exporter", metrics: config.MetricsPushConfig{Exporter: "statsd", Endpoint: "http://localhost:9"}},
		{name: "remote write", metrics: config.MetricsPushConfig{Exporter: ExporterRemoteWrite, Endpoint: "http://localhost:9/api/v1/write"}, expected: &RemoteWritePusher{}},
		{name: "pushgateway", metrics: config.MetricsPushConfig{Exporter: ExporterPushgateway, Endpoint: "http://localhost:9091"}, expected: &PushgatewayPusher{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPusher(config.Config{AppName: "shaadmin", Metrics: tc.metrics}, log)
			if tc.expected == nil {
				assert.Nil(t, p)
				return
			}
			assert.IsType(t, tc.expected, p)
		})
	}
}
