package verdandi

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/verdandi/data"
	"github.com/rafaeljc/verdandi/internal/datafile"
	"github.com/rafaeljc/verdandi/internal/observability"
	"github.com/rafaeljc/verdandi/internal/tracking"
	"github.com/rafaeljc/verdandi/internal/visitor"
)

// testConfigJSON is a configuration snapshot exercising every rule shape:
// a plain experiment, a full targeted delivery, an experiment whose traffic
// split leaves a gap, a capped targeted delivery shadowing a later rule, a
// segment-targeted experiment and an environment-disabled flag.
const testConfigJSON = `{
	"configuration": {"realTimeUpdate": false, "consentType": "OPTIONAL"},
	"customData": [
		{"index": 1, "isMappingIdentifier": true},
		{"index": 2}
	],
	"featureFlags": [
		{
			"id": 10, "featureKey": "promo", "defaultVariationKey": "control",
			"environmentEnabled": true,
			"variations": [
				{"key": "a", "variables": [
					{"key": "title", "type": "STRING", "value": "hello"},
					{"key": "limits", "type": "JSON", "value": "{\"max\": 5}"}
				]},
				{"key": "b", "variables": [
					{"key": "title", "type": "STRING", "value": "hi"}
				]}
			],
			"rules": [
				{"id": 100, "order": 1, "type": "EXPERIMENTATION", "exposition": 0.5,
				 "experimentId": 1000, "variationByExposition": [
					{"variationKey": "a", "variationId": 1, "exposition": 0.5},
					{"variationKey": "b", "variationId": 2, "exposition": 0.5}
				]}
			]
		},
		{
			"id": 20, "featureKey": "rollout", "defaultVariationKey": "off",
			"environmentEnabled": true,
			"variations": [{"key": "on", "variables": []}],
			"rules": [
				{"id": 200, "order": 1, "type": "TARGETED_DELIVERY", "exposition": 1.0,
				 "experimentId": 2000, "variationByExposition": [
					{"variationKey": "on", "variationId": 3, "exposition": 1.0}
				]}
			]
		},
		{
			"id": 30, "featureKey": "gap", "defaultVariationKey": "default",
			"environmentEnabled": true,
			"variations": [{"key": "x", "variables": []}],
			"rules": [
				{"id": 300, "order": 1, "type": "EXPERIMENTATION", "exposition": 1.0,
				 "experimentId": 3000, "variationByExposition": [
					{"variationKey": "x", "variationId": 5, "exposition": 0.2}
				]}
			]
		},
		{
			"id": 40, "featureKey": "blocked", "defaultVariationKey": "fallback",
			"environmentEnabled": true,
			"variations": [{"key": "deal", "variables": []}, {"key": "y", "variables": []}],
			"rules": [
				{"id": 400, "order": 1, "type": "TARGETED_DELIVERY", "exposition": 0.1,
				 "experimentId": 4000, "variationByExposition": [
					{"variationKey": "deal", "variationId": 7, "exposition": 1.0}
				]},
				{"id": 401, "order": 2, "type": "EXPERIMENTATION", "exposition": 1.0,
				 "experimentId": 4010, "variationByExposition": [
					{"variationKey": "y", "variationId": 8, "exposition": 1.0}
				]}
			]
		},
		{
			"id": 50, "featureKey": "vip", "defaultVariationKey": "off",
			"environmentEnabled": true,
			"variations": [{"key": "vip-a", "variables": []}],
			"rules": [
				{"id": 500, "order": 1, "type": "EXPERIMENTATION", "exposition": 1.0,
				 "experimentId": 5000,
				 "segment": {"id": 900, "conditionsData": {
					"firstLevelOrOperators": [false],
					"firstLevel": [{"orOperators": [false], "conditions": [
						{"targetingType": "CUSTOM_DATUM", "isInclude": true,
						 "customDataIndex": "2", "valueMatchType": "EXACT", "value": "gold"}
					]}]
				 }},
				 "variationByExposition": [
					{"variationKey": "vip-a", "variationId": 9, "exposition": 1.0}
				]}
			]
		},
		{
			"id": 60, "featureKey": "dark", "defaultVariationKey": "off",
			"environmentEnabled": false,
			"variations": [],
			"rules": []
		}
	]
}`

type captureSender struct {
	mu     sync.Mutex
	bodies []string
	err    error
}

func (s *captureSender) SendTrackingData(_ context.Context, lines string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.bodies = append(s.bodies, lines)
	return nil
}

func (s *captureSender) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.bodies...)
}

// newTestClient builds a client around the given configuration without any
// network or background jobs.
func newTestClient(t *testing.T, configJSON string) (*Client, *captureSender) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &Config{}
	require.NoError(t, cfg.Validate())

	c := &Client{
		siteCode:     "test-site",
		cfg:          cfg,
		logger:       log,
		promRegistry: prometheus.NewRegistry(),
		ready:        make(chan struct{}),
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	t.Cleanup(c.cancel)
	c.visitors = visitor.NewManager(cfg.SessionDuration, func() *datafile.CustomDataInfo {
		return c.snapshot().CustomDataInfo()
	}, log)
	c.metrics = observability.New(c.promRegistry, func() float64 {
		return float64(c.visitors.Len())
	})
	sender := &captureSender{}
	c.tracking = tracking.NewManager(c.snapshot, c.visitors, &instrumentedSender{
		inner:   sender,
		metrics: c.metrics,
	}, log)

	df, err := datafile.Parse("", []byte(configJSON), log)
	require.NoError(t, err)
	c.dataFile.Store(df)
	close(c.ready)
	return c, sender
}

func TestConfigValidateDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultRefreshInterval, cfg.RefreshInterval)
	assert.Equal(t, DefaultTrackingInterval, cfg.TrackingInterval)
	assert.Equal(t, DefaultSessionDuration, cfg.SessionDuration)
	assert.Equal(t, DefaultNetworkTimeout, cfg.NetworkTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestConfigValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "refresh interval too short", cfg: Config{RefreshInterval: 30 * time.Second}},
		{name: "tracking interval too short", cfg: Config{TrackingInterval: 10 * time.Millisecond}},
		{name: "session duration too short", cfg: Config{SessionDuration: 10 * time.Second}},
		{name: "client ID without secret", cfg: Config{ClientID: "id"}},
		{name: "client secret without ID", cfg: Config{ClientSecret: "secret"}},
		{name: "unknown log level", cfg: Config{LogLevel: "verbose"}},
		{name: "unknown log format", cfg: Config{LogFormat: "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}

func TestNewClientRejectsEmptySiteCode(t *testing.T) {
	_, err := NewClient("", nil)
	assert.Error(t, err)
}

func TestNewClientRejectsInvalidConfig(t *testing.T) {
	_, err := NewClient("test-site", &Config{RefreshInterval: time.Second})
	assert.Error(t, err)
}

func TestAddDataQueuesVisitor(t *testing.T) {
	c, _ := newTestClient(t, testConfigJSON)

	require.NoError(t, c.AddData("alice", data.NewPageView("https://example.com", "Home")))

	assert.Equal(t, 1, c.tracking.PendingVisitors())
	v := c.visitors.GetVisitor("alice")
	require.NotNil(t, v)
	assert.Len(t, v.PageViewVisits(), 1)
}

func TestAddDataInvalidVisitorCode(t *testing.T) {
	c, _ := newTestClient(t, testConfigJSON)

	var invalid *VisitorCodeInvalidError
	err := c.AddData("", data.NewPageView("https://example.com", ""))
	require.ErrorAs(t, err, &invalid)

	err = c.AddData(strings.Repeat("x", 256), data.NewPageView("https://example.com", ""))
	require.ErrorAs(t, err, &invalid)
}

func TestTrackConversionFlushesInstantly(t *testing.T) {
	c, sender := newTestClient(t, testConfigJSON)

	require.NoError(t, c.TrackConversion("alice", 99, 10.5))
	require.NoError(t, c.FlushVisitor(context.Background(), "alice", true))

	bodies := sender.all()
	require.Len(t, bodies, 1)
	assert.Contains(t, bodies[0], "eventType=conversion")
	assert.Contains(t, bodies[0], "goalId=99")
	assert.Contains(t, bodies[0], "visitorCode=alice")
}

func TestFlushVisitorDeferred(t *testing.T) {
	c, sender := newTestClient(t, testConfigJSON)
	c.visitors.GetOrCreateVisitor("alice")

	require.NoError(t, c.FlushVisitor(context.Background(), "alice", false))

	assert.Empty(t, sender.all())
	assert.Equal(t, 1, c.tracking.PendingVisitors())
}

func TestFlushAll(t *testing.T) {
	c, sender := newTestClient(t, testConfigJSON)
	require.NoError(t, c.TrackConversion("alice", 1, 0))
	require.NoError(t, c.TrackConversion("bob", 2, 0))

	require.NoError(t, c.FlushAll(context.Background(), true))

	require.Len(t, sender.all(), 1)
	assert.Equal(t, 0, c.tracking.PendingVisitors())
}

func TestSetLegalConsent(t *testing.T) {
	c, _ := newTestClient(t, testConfigJSON)

	require.NoError(t, c.SetLegalConsent("alice", true))
	v := c.visitors.GetVisitor("alice")
	require.NotNil(t, v)
	assert.True(t, v.LegalConsent())

	require.NoError(t, c.SetLegalConsent("alice", false))
	assert.False(t, v.LegalConsent())
}

func TestTrackingMetrics(t *testing.T) {
	c, _ := newTestClient(t, testConfigJSON)
	require.NoError(t, c.TrackConversion("alice", 1, 0))
	require.NoError(t, c.TrackConversion("bob", 2, 0))

	require.NoError(t, c.FlushAll(context.Background(), true))

	success := c.metrics.TrackingBatches.WithLabelValues(observability.ResultSuccess)
	assert.Equal(t, 1.0, testutil.ToFloat64(success))
	// one conversion line per visitor
	assert.Equal(t, 2.0, testutil.ToFloat64(c.metrics.TrackingLines))
}

func TestApplyDataFileNotifiesHandlers(t *testing.T) {
	c, _ := newTestClient(t, testConfigJSON)

	calls := 0
	c.OnUpdateConfiguration(func() { calls++ })

	df, err := datafile.Parse("", []byte(testConfigJSON), c.logger)
	require.NoError(t, err)
	c.applyDataFile(df)

	assert.Equal(t, 1, calls)
	assert.Same(t, df, c.snapshot())
}

func TestApplyDataFileSkipsHandlersBeforeInit(t *testing.T) {
	c, _ := newTestClient(t, testConfigJSON)
	c.ready = make(chan struct{}) // initial fetch still pending

	calls := 0
	c.OnUpdateConfiguration(func() { calls++ })

	df, err := datafile.Parse("", []byte(testConfigJSON), c.logger)
	require.NoError(t, err)
	c.applyDataFile(df)

	assert.Zero(t, calls)
	assert.Same(t, df, c.snapshot())
}

func TestPurgeJobCountsRemovals(t *testing.T) {
	c, _ := newTestClient(t, testConfigJSON)
	c.visitors.GetOrCreateVisitor("alice")

	c.purgeJob(context.Background())
	assert.Equal(t, 0.0, testutil.ToFloat64(c.metrics.PurgedVisitors))
	assert.Equal(t, 1, c.visitors.Len())
}

func TestInstrumentedSenderFailure(t *testing.T) {
	c, sender := newTestClient(t, testConfigJSON)
	sender.err = context.DeadlineExceeded
	require.NoError(t, c.TrackConversion("alice", 1, 0))

	err := c.FlushAll(context.Background(), true)
	require.Error(t, err)

	failure := c.metrics.TrackingBatches.WithLabelValues(observability.ResultFailure)
	assert.Equal(t, 1.0, testutil.ToFloat64(failure))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.metrics.TrackingLines))
	// failed visitors return to the backlog
	assert.Equal(t, 1, c.tracking.PendingVisitors())
}

func TestGenerateVisitorCode(t *testing.T) {
	code := GenerateVisitorCode()
	assert.Len(t, code, 16)
	assert.NotEqual(t, code, GenerateVisitorCode())
	require.NoError(t, validateVisitorCode(code))
}
