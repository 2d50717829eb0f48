package tracking

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/rafaeljc/verdandi/data"
	"github.com/rafaeljc/verdandi/internal/datafile"
	"github.com/rafaeljc/verdandi/internal/visitor"
)

const (
	linesDelimiter = "\n"

	// upper bound on the characters of one tracking request body
	requestSizeLimit = 2560 * 1024
)

// Sender delivers a newline-delimited tracking body to the collector.
type Sender interface {
	SendTrackingData(ctx context.Context, lines string) error
}

// SnapshotFunc yields the current configuration snapshot.
type SnapshotFunc func() *datafile.DataFile

// Manager drives the delivery of visitor data: evaluation and AddData
// register visitor codes, and TrackAll periodically drains the backlog into
// batched requests. Failed batches return to the backlog.
type Manager struct {
	registry *Registry
	snapshot SnapshotFunc
	visitors *visitor.Manager
	sender   Sender
	logger   *slog.Logger

	flights singleflight.Group
}

// NewManager returns a tracking manager.
func NewManager(
	snapshot SnapshotFunc, visitors *visitor.Manager, sender Sender, logger *slog.Logger,
) *Manager {
	return &Manager{
		registry: NewRegistry(visitors),
		snapshot: snapshot,
		visitors: visitors,
		sender:   sender,
		logger:   logger,
	}
}

// AddVisitorCode registers a visitor whose data awaits delivery.
func (m *Manager) AddVisitorCode(visitorCode string) {
	m.registry.Add(visitorCode)
}

// PendingVisitors returns the number of visitors awaiting delivery.
func (m *Manager) PendingVisitors() int {
	return m.registry.Len()
}

// TrackAll drains the backlog and delivers the pending visitor data.
// Concurrent calls share one delivery pass.
func (m *Manager) TrackAll(ctx context.Context) error {
	_, err, _ := m.flights.Do("track_all", func() (any, error) {
		return nil, m.track(ctx, m.registry.Extract())
	})
	return err
}

// TrackVisitor delivers a single visitor's pending data immediately,
// without touching the backlog.
func (m *Manager) TrackVisitor(ctx context.Context, visitorCode string) error {
	return m.track(ctx, []string{visitorCode})
}

func (m *Manager) track(ctx context.Context, visitorCodes []string) error {
	if len(visitorCodes) == 0 {
		return nil
	}
	b := newBuilder(visitorCodes, m.snapshot(), m.visitors, requestSizeLimit, m.logger)
	b.build()
	if len(b.codesToKeep) > 0 {
		m.logger.Warn("tracking batch exceeded the request size limit, deferring remaining visitors",
			slog.Int("deferred", len(b.codesToKeep)))
		m.registry.AddAll(b.codesToKeep)
	}
	return m.send(ctx, b.codesToSend, b.unsentData, b.lines)
}

func (m *Manager) send(
	ctx context.Context, visitorCodes []string, unsentData []data.Sendable, lines []string,
) error {
	if len(lines) == 0 {
		return nil
	}
	body := strings.Join(lines, linesDelimiter)
	for _, item := range unsentData {
		item.MarkAsTransmitting()
	}
	if err := m.sender.SendTrackingData(ctx, body); err != nil {
		m.logger.Debug("tracking request failed, requeueing visitors",
			slog.Int("visitors", len(visitorCodes)), slog.Any("error", err))
		for _, item := range unsentData {
			item.MarkAsUnsent()
		}
		m.registry.AddAll(visitorCodes)
		return err
	}
	m.logger.Debug("tracking request delivered",
		slog.Int("visitors", len(visitorCodes)), slog.Int("lines", len(lines)))
	for _, item := range unsentData {
		item.MarkAsSent()
	}
	return nil
}
