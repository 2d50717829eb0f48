package network

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const configurationUpdateEvent = "configuration-update-event"

// RealTimeEvent announces that a new configuration is available, stamped
// with the time of the change.
type RealTimeEvent struct {
	TS int64 `json:"ts"`
}

// SSEClient consumes the real-time configuration event stream and invokes
// the handler for every configuration update announcement. A dropped
// connection is re-established with exponential backoff.
type SSEClient struct {
	url     string
	handler func(RealTimeEvent)
	logger  *slog.Logger

	// no overall timeout: the stream stays open indefinitely
	client *http.Client

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSSEClient returns a client for the given stream URL.
func NewSSEClient(url string, handler func(RealTimeEvent), logger *slog.Logger) *SSEClient {
	return &SSEClient{
		url:     url,
		handler: handler,
		logger:  logger,
		client:  &http.Client{},
	}
}

// Start opens the stream and consumes it until Close is called or the
// context is cancelled.
func (c *SSEClient) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		cancel()
		return
	}
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		bo := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
		for ctx.Err() == nil {
			if err := c.consume(ctx); err != nil && ctx.Err() == nil {
				c.logger.Warn("configuration event stream dropped", slog.Any("error", err))
			}
			wait := bo.NextBackOff()
			if wait == backoff.Stop {
				bo.Reset()
				wait = bo.NextBackOff()
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
	}()
}

// Close terminates the stream and waits for the consumer to stop.
func (c *SSEClient) Close() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (c *SSEClient) consume(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("configuration event stream established")
	var eventName, eventData string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			c.dispatch(eventName, eventData)
			eventName, eventData = "", ""
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			eventData = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
	return scanner.Err()
}

func (c *SSEClient) dispatch(eventName, eventData string) {
	if eventName != configurationUpdateEvent || eventData == "" {
		return
	}
	var event RealTimeEvent
	if err := json.Unmarshal([]byte(eventData), &event); err != nil {
		c.logger.Warn("malformed configuration update event", slog.Any("error", err))
		return
	}
	c.handler(event)
}
