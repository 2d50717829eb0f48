package network

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rafaeljc/verdandi/errs"
)

const (
	// failed calls critical to the SDK operation are retried twice,
	// uncritical ones once
	criticalRetries   = 2
	uncriticalRetries = 1

	trackingRetryDelay = 5 * time.Second

	sdkTypeHeader    = "X-Kameleoon-SDK-Type"
	sdkVersionHeader = "X-Kameleoon-SDK-Version"
)

// Manager executes the SDK's API calls: configuration fetches, tracking
// deliveries and remote data retrievals. Calls carrying an access token
// fall back to unauthenticated delivery when the token is rejected.
type Manager struct {
	provider    *Provider
	urls        *URLProvider
	tokens      *AccessTokenSource
	environment string
	logger      *slog.Logger
}

// NewManager returns a network manager. tokens may be nil when no API
// credentials are configured; calls are then unauthenticated.
func NewManager(
	provider *Provider, urls *URLProvider, tokens *AccessTokenSource,
	environment string, logger *slog.Logger,
) *Manager {
	return &Manager{
		provider:    provider,
		urls:        urls,
		tokens:      tokens,
		environment: environment,
		logger:      logger,
	}
}

// URLs returns the endpoint URL provider.
func (m *Manager) URLs() *URLProvider { return m.urls }

// FetchConfiguration retrieves the raw configuration payload. ts, when
// non-negative, requests the configuration state at that real-time event
// timestamp.
func (m *Manager) FetchConfiguration(ctx context.Context, ts int64) ([]byte, error) {
	req := &Request{
		Method: http.MethodGet,
		URL:    m.urls.ConfigurationURL(m.environment, ts),
		Headers: map[string]string{
			sdkTypeHeader:    SDKName,
			sdkVersionHeader: SDKVersion,
		},
	}
	resp, err := m.makeCall(ctx, req, false, criticalRetries, 0)
	if err != nil {
		if resp != nil && (resp.Code == http.StatusForbidden || resp.Code == http.StatusNotFound) {
			return nil, &errs.ConfigCredentialsInvalidError{
				Message: fmt.Sprintf("configuration request rejected with status code %d, check the site code", resp.Code),
			}
		}
		return nil, &errs.NetworkError{Service: "configuration", Err: err}
	}
	return resp.Body, nil
}

// SendTrackingData posts a newline-delimited tracking body.
func (m *Manager) SendTrackingData(ctx context.Context, lines string) error {
	req := &Request{
		Method:      http.MethodPost,
		URL:         m.urls.TrackingURL(),
		Body:        lines,
		ContentType: "text/plain",
	}
	if _, err := m.makeCall(ctx, req, true, uncriticalRetries, trackingRetryDelay); err != nil {
		return &errs.NetworkError{Service: "tracking", Err: err}
	}
	return nil
}

// GetRemoteData retrieves the raw remote data stored under key.
func (m *Manager) GetRemoteData(ctx context.Context, key string) ([]byte, error) {
	req := &Request{
		Method: http.MethodGet,
		URL:    m.urls.RemoteDataURL(key),
	}
	resp, err := m.makeCall(ctx, req, true, 0, 0)
	if err != nil {
		return nil, &errs.NetworkError{Service: "remote data", Err: err}
	}
	return resp.Body, nil
}

// GetRemoteVisitorData retrieves the raw stored visitor data selected by
// filter.
func (m *Manager) GetRemoteVisitorData(
	ctx context.Context, visitorCode string, filter VisitorDataFilter, isUniqueIdentifier bool,
) ([]byte, error) {
	req := &Request{
		Method: http.MethodGet,
		URL:    m.urls.VisitorDataURL(visitorCode, filter, isUniqueIdentifier),
	}
	resp, err := m.makeCall(ctx, req, true, 0, 0)
	if err != nil {
		return nil, &errs.NetworkError{Service: "remote visitor data", Err: err}
	}
	return resp.Body, nil
}

// makeCall executes the request with up to maxRetries constant-delay
// retries. The last response, when one was received, accompanies a non-nil
// error so callers can inspect the status code.
func (m *Manager) makeCall(
	ctx context.Context, req *Request, useToken bool, maxRetries uint64, retryDelay time.Duration,
) (*Response, error) {
	useToken = useToken && m.tokens != nil
	var resp *Response
	tokenRejected := false

	operation := func() error {
		req.AccessToken = ""
		if useToken {
			token, err := m.tokens.Token(ctx)
			if err != nil {
				m.logger.Warn("proceeding without access token", slog.Any("error", err))
			} else {
				req.AccessToken = token
			}
		}
		r, err := m.provider.Run(ctx, req)
		if err != nil {
			m.logger.Warn("request failed",
				slog.String("method", req.Method), slog.String("url", req.URL), slog.Any("error", err))
			return err
		}
		resp = r
		if r.Expected() {
			return nil
		}
		if req.AccessToken != "" && r.Code == http.StatusUnauthorized {
			m.logger.Warn("access token rejected, falling back to unauthenticated delivery",
				slog.String("url", req.URL))
			m.tokens.Discard(req.AccessToken)
			useToken = false
			tokenRejected = true
		}
		m.logger.Warn("request returned unexpected status code",
			slog.String("method", req.Method), slog.String("url", req.URL), slog.Int("code", r.Code))
		return fmt.Errorf("unexpected status code %d", r.Code)
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(retryDelay), maxRetries), ctx)
	err := backoff.Retry(operation, bo)
	if err != nil && tokenRejected {
		// grant one immediate unauthenticated attempt after a rejected token
		err = operation()
	}
	if err != nil {
		m.logger.Error("request failed after retries",
			slog.String("method", req.Method), slog.String("url", req.URL), slog.Any("error", err))
		return resp, err
	}
	return resp, nil
}
