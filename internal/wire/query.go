// Package wire implements the query-string tracking protocol: every piece of
// visitor data is encoded as a single "key=value&key=value" line, and a batch
// is a newline-joined set of lines sent in one POST body.
package wire

import "strings"

// Parameter names used by the tracking and configuration endpoints.
const (
	ParamBodyUA          = "bodyUa"
	ParamBrowserIndex    = "browserIndex"
	ParamBrowserVersion  = "browserVersion"
	ParamCity            = "city"
	ParamClientID        = "client_id"
	ParamClientSecret    = "client_secret"
	ParamCountry         = "country"
	ParamDeviceType      = "deviceType"
	ParamEnvironment     = "environment"
	ParamEventType       = "eventType"
	ParamExperimentID    = "id"
	ParamGoalID          = "goalId"
	ParamGrantType       = "grant_type"
	ParamHref            = "href"
	ParamIndex           = "index"
	ParamKey             = "key"
	ParamLatitude        = "latitude"
	ParamLongitude       = "longitude"
	ParamMappingIdent    = "mappingIdentifier"
	ParamMappingValue    = "mappingValue"
	ParamNegative        = "negative"
	ParamNonce           = "nonce"
	ParamOS              = "os"
	ParamOSIndex         = "osIndex"
	ParamOverwrite       = "overwrite"
	ParamPostalCode      = "postalCode"
	ParamReferrers       = "referrersIndices"
	ParamRegion          = "region"
	ParamRevenue         = "revenue"
	ParamSDKName         = "sdkName"
	ParamSDKVersion      = "sdkVersion"
	ParamSiteCode        = "siteCode"
	ParamTitle           = "title"
	ParamTS              = "ts"
	ParamUserAgent       = "userAgent"
	ParamValuesCountMap  = "valuesCountMap"
	ParamVariationID     = "variationId"
	ParamVersion         = "version"
	ParamVisitorCode     = "visitorCode"
	ParamMaxPrevVisits   = "maxNumberPreviousVisits"
	ParamKCS             = "kcs"
	ParamCurrentVisit    = "currentVisit"
	ParamCustomData      = "customData"
	ParamConversion      = "conversion"
	ParamGeolocation     = "geolocation"
	ParamExperiment      = "experiment"
	ParamPage            = "page"
	ParamStaticData      = "staticData"
)

// Values of the eventType parameter.
const (
	EventTypeActivity   = "activity"
	EventTypeConversion = "conversion"
	EventTypeCustomData = "customData"
	EventTypeExperiment = "experiment"
	EventTypePage       = "page"
	EventTypeStaticData = "staticData"
)

// Param is a single query parameter. Empty-named or empty-valued params are
// skipped when rendered, which lets builders append optional fields
// unconditionally.
type Param struct {
	name    string
	value   string
	raw     bool // skip percent-encoding of the value
}

// NewParam returns a percent-encoded query parameter.
func NewParam(name, value string) Param {
	return Param{name: name, value: value}
}

// NewRawParam returns a query parameter whose value is rendered as-is.
// Use it for values known to be URL-safe (numbers, fixed literals).
func NewRawParam(name, value string) Param {
	return Param{name: name, value: value, raw: true}
}

func (p Param) valid() bool { return p.name != "" && p.value != "" }

func (p Param) String() string {
	if p.raw {
		return p.name + "=" + p.value
	}
	return p.name + "=" + EncodeURIComponent(p.value)
}

// Builder accumulates query parameters for one tracking line or URL query.
type Builder struct {
	params []Param
}

// NewBuilder returns a Builder pre-filled with the given parameters.
func NewBuilder(params ...Param) *Builder {
	return &Builder{params: params}
}

// Append adds a single parameter.
func (b *Builder) Append(p Param) { b.params = append(b.params, p) }

// Extend adds multiple parameters.
func (b *Builder) Extend(params ...Param) { b.params = append(b.params, params...) }

// String renders the accumulated parameters as an "&"-joined query string,
// dropping invalid (empty) parameters.
func (b *Builder) String() string {
	var sb strings.Builder
	for _, p := range b.params {
		if !p.valid() {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(p.String())
	}
	return sb.String()
}
