// Package network talks to the configuration and data collection APIs:
// request execution with retries, URL construction, OAuth token caching and
// the real-time configuration event stream.
package network

import (
	"strconv"
	"sync"

	"github.com/rafaeljc/verdandi/internal/wire"
)

// SDK identity reported with every request.
const (
	SDKName    = "GO"
	SDKVersion = "1.0.0"
)

const (
	trackingPath    = "/visit/events"
	visitorDataPath = "/visit/visitor"
	remoteDataPath  = "/map/map"
	accessTokenPath = "/oauth/token"

	configurationURLFormat = "https://sdk-config.kameleoon.eu/"
	realTimeURL            = "https://events.kameleoon.com:8110/sse"

	// DefaultDataAPIDomain serves the data collection endpoints unless the
	// configuration overrides it.
	DefaultDataAPIDomain       = "data.kameleoon.io"
	defaultAutomationAPIDomain = "api.kameleoon.com"
)

// VisitorDataFilter selects which kinds of stored visitor data a remote
// visitor data request retrieves.
type VisitorDataFilter struct {
	PreviousVisitAmount int
	CurrentVisit        bool
	CustomData          bool
	PageViews           bool
	Geolocation         bool
	Device              bool
	Browser             bool
	OperatingSystem     bool
	Conversions         bool
	Experiments         bool
	KCS                 bool
}

// URLProvider builds the endpoint URLs for one project.
type URLProvider struct {
	siteCode            string
	scheme              string
	automationAPIDomain string
	configurationURL    string
	eventStreamURL      string
	trackingQueryBase   string

	// dataAPIDomain is rewritten by the configuration refresher while the
	// tracking and data request paths read it
	mu            sync.RWMutex
	dataAPIDomain string
}

// NewURLProvider returns a provider for the given project site code.
func NewURLProvider(siteCode string) *URLProvider {
	p := &URLProvider{
		siteCode:            siteCode,
		scheme:              "https",
		dataAPIDomain:       DefaultDataAPIDomain,
		automationAPIDomain: defaultAutomationAPIDomain,
		configurationURL:    configurationURLFormat + siteCode,
		eventStreamURL:      realTimeURL,
	}
	p.trackingQueryBase = wire.NewBuilder(
		wire.NewRawParam(wire.ParamSDKName, SDKName),
		wire.NewRawParam(wire.ParamSDKVersion, SDKVersion),
		wire.NewParam(wire.ParamSiteCode, siteCode),
		wire.NewRawParam(wire.ParamBodyUA, "true"),
	).String()
	return p
}

// ApplyDataAPIDomain switches the data API domain, as directed by the
// configuration.
func (p *URLProvider) ApplyDataAPIDomain(domain string) {
	if domain != "" {
		p.mu.Lock()
		p.dataAPIDomain = domain
		p.mu.Unlock()
	}
}

func (p *URLProvider) dataAPIHost() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dataAPIDomain
}

// TrackingURL returns the endpoint tracking batches are posted to.
func (p *URLProvider) TrackingURL() string {
	return p.scheme + "://" + p.dataAPIHost() + trackingPath + "?" + p.trackingQueryBase
}

// VisitorDataURL returns the endpoint serving stored visitor data.
func (p *URLProvider) VisitorDataURL(visitorCode string, filter VisitorDataFilter, isUniqueIdentifier bool) string {
	identParam := wire.ParamVisitorCode
	if isUniqueIdentifier {
		identParam = wire.ParamMappingValue
	}
	b := wire.NewBuilder(
		wire.NewParam(wire.ParamSiteCode, p.siteCode),
		wire.NewParam(identParam, visitorCode),
		wire.NewRawParam(wire.ParamMaxPrevVisits, strconv.Itoa(filter.PreviousVisitAmount)),
		wire.NewRawParam(wire.ParamVersion, "0"),
	)
	flags := []struct {
		set  bool
		name string
	}{
		{filter.KCS, wire.ParamKCS},
		{filter.CurrentVisit, wire.ParamCurrentVisit},
		{filter.CustomData, wire.ParamCustomData},
		{filter.Conversions, wire.ParamConversion},
		{filter.Geolocation, wire.ParamGeolocation},
		{filter.Experiments, wire.ParamExperiment},
		{filter.PageViews, wire.ParamPage},
		{filter.Device || filter.Browser || filter.OperatingSystem, wire.ParamStaticData},
	}
	for _, flag := range flags {
		if flag.set {
			b.Append(wire.NewRawParam(flag.name, "true"))
		}
	}
	return p.scheme + "://" + p.dataAPIHost() + visitorDataPath + "?" + b.String()
}

// RemoteDataURL returns the endpoint serving a remote data key.
func (p *URLProvider) RemoteDataURL(key string) string {
	query := wire.NewBuilder(
		wire.NewParam(wire.ParamSiteCode, p.siteCode),
		wire.NewParam(wire.ParamKey, key),
	).String()
	return p.scheme + "://" + p.dataAPIHost() + remoteDataPath + "?" + query
}

// ConfigurationURL returns the endpoint serving the project configuration.
// ts, when non-negative, requests the configuration state at that real-time
// event timestamp.
func (p *URLProvider) ConfigurationURL(environment string, ts int64) string {
	b := wire.NewBuilder()
	if environment != "" {
		b.Append(wire.NewParam(wire.ParamEnvironment, environment))
	}
	if ts >= 0 {
		b.Append(wire.NewRawParam(wire.ParamTS, strconv.FormatInt(ts, 10)))
	}
	url := p.configurationURL
	if query := b.String(); query != "" {
		url += "?" + query
	}
	return url
}

// RealTimeURL returns the configuration event stream endpoint.
func (p *URLProvider) RealTimeURL() string {
	return p.eventStreamURL + "?" + wire.NewParam(wire.ParamSiteCode, p.siteCode).String()
}

// AccessTokenURL returns the OAuth token endpoint.
func (p *URLProvider) AccessTokenURL() string {
	return p.scheme + "://" + p.automationAPIDomain + accessTokenPath
}
