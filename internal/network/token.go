package network

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/rafaeljc/verdandi/internal/wire"
)

const (
	// a token is refetched this long before it actually expires
	tokenExpirationGap = time.Minute
	// a token still valid for less than this is refreshed in background
	tokenObsolescenceGap = 30 * time.Minute

	accessTokenGrantType = "client_credentials"
)

type expiringToken struct {
	value        string
	expiration   time.Time
	obsolescence time.Time
}

// AccessTokenSource caches the OAuth access token used for authenticated
// API calls, refreshing it in background before it expires.
type AccessTokenSource struct {
	provider     *Provider
	urls         *URLProvider
	clientID     string
	clientSecret string
	logger       *slog.Logger

	mu       sync.Mutex
	cached   *expiringToken
	fetching bool
}

// NewAccessTokenSource returns a token source for the given credentials.
func NewAccessTokenSource(
	provider *Provider, urls *URLProvider, clientID, clientSecret string, logger *slog.Logger,
) *AccessTokenSource {
	return &AccessTokenSource{
		provider:     provider,
		urls:         urls,
		clientID:     clientID,
		clientSecret: clientSecret,
		logger:       logger,
	}
}

// Token returns a valid access token, fetching one when the cache is empty
// or expired. A token close to expiration is served while a replacement is
// fetched in background.
func (s *AccessTokenSource) Token(ctx context.Context) (string, error) {
	now := time.Now()
	s.mu.Lock()
	token := s.cached
	if token == nil || !now.Before(token.expiration) {
		s.fetching = true
		s.mu.Unlock()
		return s.fetchToken(ctx)
	}
	if !s.fetching && !now.Before(token.obsolescence) {
		s.fetching = true
		go func() {
			if _, err := s.fetchToken(context.Background()); err != nil {
				s.logger.Error("background access token refresh failed", slog.Any("error", err))
			}
		}()
	}
	value := token.value
	s.mu.Unlock()
	return value, nil
}

// Discard drops the given token from the cache, so a future call fetches a
// fresh one. Called when the API rejects the token.
func (s *AccessTokenSource) Discard(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil && s.cached.value == token {
		s.cached = nil
	}
}

func (s *AccessTokenSource) fetchToken(ctx context.Context) (string, error) {
	defer func() {
		s.mu.Lock()
		s.fetching = false
		s.mu.Unlock()
	}()

	body := wire.NewBuilder(
		wire.NewRawParam(wire.ParamGrantType, accessTokenGrantType),
		wire.NewParam(wire.ParamClientID, s.clientID),
		wire.NewParam(wire.ParamClientSecret, s.clientSecret),
	).String()
	resp, err := s.provider.Run(ctx, &Request{
		Method:      http.MethodPost,
		URL:         s.urls.AccessTokenURL(),
		Body:        body,
		ContentType: "application/x-www-form-urlencoded",
	})
	if err != nil {
		return "", fmt.Errorf("fetch access token: %w", err)
	}
	if !resp.Expected() {
		return "", fmt.Errorf("fetch access token: unexpected status code %d", resp.Code)
	}
	var jwt struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(resp.Body, &jwt); err != nil {
		return "", fmt.Errorf("parse access token response: %w", err)
	}
	if jwt.AccessToken == "" || jwt.ExpiresIn == 0 {
		return "", fmt.Errorf("access token response misses required fields")
	}
	s.cacheToken(jwt.AccessToken, time.Duration(jwt.ExpiresIn)*time.Second)
	return jwt.AccessToken, nil
}

func (s *AccessTokenSource) cacheToken(token string, expiresIn time.Duration) {
	now := time.Now()
	expiration := now.Add(expiresIn - tokenExpirationGap)
	var obsolescence time.Time
	if expiresIn > tokenObsolescenceGap {
		obsolescence = now.Add(expiresIn - tokenObsolescenceGap)
	} else {
		obsolescence = expiration
		if expiresIn <= tokenExpirationGap {
			s.logger.Error("access token lifetime is too short to cache the token",
				slog.Duration("expires_in", expiresIn))
		} else {
			s.logger.Warn("access token lifetime is too short to refresh the token in background",
				slog.Duration("expires_in", expiresIn))
		}
	}
	s.mu.Lock()
	s.cached = &expiringToken{value: token, expiration: expiration, obsolescence: obsolescence}
	s.mu.Unlock()
}
