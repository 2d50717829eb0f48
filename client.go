package verdandi

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rafaeljc/verdandi/data"
	"github.com/rafaeljc/verdandi/internal/datafile"
	"github.com/rafaeljc/verdandi/internal/logger"
	"github.com/rafaeljc/verdandi/internal/network"
	"github.com/rafaeljc/verdandi/internal/observability"
	"github.com/rafaeljc/verdandi/internal/scheduler"
	"github.com/rafaeljc/verdandi/internal/tracking"
	"github.com/rafaeljc/verdandi/internal/visitor"
)

// Client evaluates feature flags for one site code. Create it with
// NewClient, wait for WaitInit and release it with Close.
type Client struct {
	siteCode string
	cfg      *Config
	logger   *slog.Logger

	promRegistry *prometheus.Registry
	metrics      *observability.Metrics

	network  *network.Manager
	visitors *visitor.Manager
	tracking *tracking.Manager
	sched    *scheduler.Scheduler

	dataFile atomic.Pointer[datafile.DataFile]

	ctx    context.Context
	cancel context.CancelFunc

	ready   chan struct{}
	initErr error // written once, before ready is closed

	mu             sync.Mutex
	sse            *network.SSEClient
	updateHandlers []func()
	closed         bool
}

// NewClient builds and starts a client for the given site code. The initial
// configuration fetch runs in background; use WaitInit to block until the
// client serves real configuration instead of defaults.
func NewClient(siteCode string, cfg *Config) (*Client, error) {
	if siteCode == "" {
		return nil, fmt.Errorf("site code cannot be empty")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = logger.New(cfg.LogLevel, cfg.LogFormat)
	}
	log = log.With(slog.String("site_code", siteCode))

	c := &Client{
		siteCode:     siteCode,
		cfg:          cfg,
		logger:       log,
		promRegistry: prometheus.NewRegistry(),
		ready:        make(chan struct{}),
	}
	c.dataFile.Store(datafile.Default(cfg.Environment))
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.visitors = visitor.NewManager(cfg.SessionDuration, func() *datafile.CustomDataInfo {
		return c.snapshot().CustomDataInfo()
	}, log)
	c.metrics = observability.New(c.promRegistry, func() float64 {
		return float64(c.visitors.Len())
	})

	urls := network.NewURLProvider(siteCode)
	provider := network.NewProvider(cfg.NetworkTimeout)
	var tokens *network.AccessTokenSource
	if cfg.ClientID != "" {
		tokens = network.NewAccessTokenSource(provider, urls, cfg.ClientID, cfg.ClientSecret, log)
	}
	c.network = network.NewManager(provider, urls, tokens, cfg.Environment, log)

	c.tracking = tracking.NewManager(c.snapshot, c.visitors, &instrumentedSender{
		inner:   c.network,
		metrics: c.metrics,
	}, log)

	c.sched = scheduler.New(log)
	c.sched.Schedule("configuration refresh", cfg.RefreshInterval, func(ctx context.Context) {
		_ = c.refresh(ctx, -1)
	})
	c.sched.Schedule("tracking flush", cfg.TrackingInterval, c.flushJob)
	c.sched.Schedule("visitor purge", cfg.SessionDuration, c.purgeJob)
	c.sched.Start(c.ctx)

	go func() {
		c.initErr = c.refresh(c.ctx, -1)
		close(c.ready)
	}()

	log.Info("client started",
		slog.String("environment", cfg.Environment),
		slog.Duration("refresh_interval", cfg.RefreshInterval),
		slog.Duration("tracking_interval", cfg.TrackingInterval),
	)
	return c, nil
}

// WaitInit blocks until the initial configuration fetch completes and
// returns its outcome. A failed initial fetch leaves the client running on
// an empty configuration until a later refresh succeeds.
func (c *Client) WaitInit(ctx context.Context) error {
	select {
	case <-c.ready:
		return c.initErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the background jobs, closes the real-time stream and delivers
// the remaining tracking backlog. The client must not be used afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	sse := c.sse
	c.sse = nil
	c.mu.Unlock()

	c.cancel()
	c.sched.Stop()
	if sse != nil {
		sse.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.NetworkTimeout)
	defer cancel()
	if err := c.tracking.TrackAll(ctx); err != nil {
		return fmt.Errorf("final tracking flush: %w", err)
	}
	c.logger.Info("client closed")
	return nil
}

// MetricsRegistry returns the prometheus registry holding the client's
// instruments, for mounting on an application /metrics endpoint.
func (c *Client) MetricsRegistry() *prometheus.Registry {
	return c.promRegistry
}

// OnUpdateConfiguration registers a handler invoked after every applied
// configuration update past the initial fetch. Handlers run on the refresh
// goroutine and must not block.
func (c *Client) OnUpdateConfiguration(handler func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateHandlers = append(c.updateHandlers, handler)
}

// AddData attaches data to a visitor and queues the visitor for tracking.
func (c *Client) AddData(visitorCode string, items ...data.Data) error {
	if err := validateVisitorCode(visitorCode); err != nil {
		return err
	}
	c.visitors.AddData(visitorCode, items...)
	c.tracking.AddVisitorCode(visitorCode)
	return nil
}

// TrackConversion records a conversion on the given goal. A zero revenue
// records a plain conversion.
func (c *Client) TrackConversion(visitorCode string, goalID int, revenue float64) error {
	return c.AddData(visitorCode, data.NewConversionWithRevenue(goalID, revenue))
}

// SetLegalConsent records the visitor's tracking consent. Without consent,
// a consent-requiring configuration only transmits conversions and targeted
// delivery assignments for the visitor.
func (c *Client) SetLegalConsent(visitorCode string, consent bool) error {
	if err := validateVisitorCode(visitorCode); err != nil {
		return err
	}
	c.visitors.GetOrCreateVisitor(visitorCode).SetLegalConsent(consent)
	return nil
}

// FlushVisitor queues the visitor's unsent data for the next tracking
// cycle, or delivers it immediately when instant is true.
func (c *Client) FlushVisitor(ctx context.Context, visitorCode string, instant bool) error {
	if err := validateVisitorCode(visitorCode); err != nil {
		return err
	}
	if !instant {
		c.tracking.AddVisitorCode(visitorCode)
		return nil
	}
	return c.tracking.TrackVisitor(ctx, visitorCode)
}

// FlushAll queues every known visitor for the next tracking cycle, or
// drains the whole backlog immediately when instant is true.
func (c *Client) FlushAll(ctx context.Context, instant bool) error {
	for _, code := range c.visitors.VisitorCodes() {
		c.tracking.AddVisitorCode(code)
	}
	if !instant {
		return nil
	}
	return c.tracking.TrackAll(ctx)
}

func (c *Client) snapshot() *datafile.DataFile {
	return c.dataFile.Load()
}

// refresh fetches and applies a configuration snapshot. ts is the
// cache-busting timestamp from a real-time update event, -1 for none.
func (c *Client) refresh(ctx context.Context, ts int64) error {
	payload, err := c.network.FetchConfiguration(ctx, ts)
	if err != nil {
		c.metrics.ConfigFetches.WithLabelValues(observability.ResultFailure).Inc()
		c.logger.Error("configuration fetch failed", slog.Any("error", err))
		return err
	}
	df, err := datafile.Parse(c.cfg.Environment, payload, c.logger)
	if err != nil {
		c.metrics.ConfigFetches.WithLabelValues(observability.ResultFailure).Inc()
		c.logger.Error("configuration parse failed", slog.Any("error", err))
		return err
	}
	c.metrics.ConfigFetches.WithLabelValues(observability.ResultSuccess).Inc()
	c.applyDataFile(df)
	return nil
}

func (c *Client) applyDataFile(df *datafile.DataFile) {
	c.dataFile.Store(df)
	if domain := df.Settings().DataAPIDomain; domain != "" {
		c.network.URLs().ApplyDataAPIDomain(domain)
	}
	c.toggleRealTime(df.Settings().RealTimeUpdate)
	c.logger.Debug("configuration applied",
		slog.Int("feature_flags", len(df.FeatureFlags())),
		slog.Bool("real_time", df.Settings().RealTimeUpdate),
	)

	select {
	case <-c.ready:
	default:
		// handlers only fire for updates past the initial fetch
		return
	}
	c.mu.Lock()
	handlers := make([]func(), len(c.updateHandlers))
	copy(handlers, c.updateHandlers)
	c.mu.Unlock()
	for _, handler := range handlers {
		handler()
	}
}

func (c *Client) toggleRealTime(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	switch {
	case enabled && c.sse == nil:
		c.sse = network.NewSSEClient(c.network.URLs().RealTimeURL(), c.onRealTimeEvent, c.logger)
		c.sse.Start(c.ctx)
		c.logger.Info("real-time configuration updates enabled")
	case !enabled && c.sse != nil:
		c.sse.Close()
		c.sse = nil
		c.logger.Info("real-time configuration updates disabled")
	}
}

func (c *Client) onRealTimeEvent(event network.RealTimeEvent) {
	// refresh on a separate goroutine so the stream keeps being consumed
	go func() {
		_ = c.refresh(c.ctx, event.TS)
	}()
}

func (c *Client) flushJob(ctx context.Context) {
	if err := c.tracking.TrackAll(ctx); err != nil {
		c.logger.Warn("tracking flush failed, backlog requeued", slog.Any("error", err))
	}
}

func (c *Client) purgeJob(context.Context) {
	removed := c.visitors.Purge()
	c.metrics.PurgedVisitors.Add(float64(removed))
	if removed > 0 {
		c.logger.Debug("purged expired visitors", slog.Int("removed", removed))
	}
}

// instrumentedSender counts tracking batches and lines around the network
// delivery.
type instrumentedSender struct {
	inner   tracking.Sender
	metrics *observability.Metrics
}

func (s *instrumentedSender) SendTrackingData(ctx context.Context, lines string) error {
	if err := s.inner.SendTrackingData(ctx, lines); err != nil {
		s.metrics.TrackingBatches.WithLabelValues(observability.ResultFailure).Inc()
		return err
	}
	s.metrics.TrackingBatches.WithLabelValues(observability.ResultSuccess).Inc()
	s.metrics.TrackingLines.Add(float64(strings.Count(lines, "\n") + 1))
	return nil
}
