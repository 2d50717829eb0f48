// Package data defines the visitor data items an application can attach to a
// visitor through the client's AddData method: device, browser and OS info,
// geolocation, cookies, custom data, page views, conversions and a few
// bookkeeping items. Items that are transmitted to the collector additionally
// carry the Sendable lifecycle (unsent -> transmitting -> sent).
package data

// Type discriminates the concrete data kinds handled by the visitor store.
type Type string

const (
	TypeActivity          Type = "ACTIVITY"
	TypeAssignedVariation Type = "ASSIGNED_VARIATION"
	TypeBrowser           Type = "BROWSER"
	TypeConversion        Type = "CONVERSION"
	TypeCookie            Type = "COOKIE"
	TypeCustomData        Type = "CUSTOM_DATA"
	TypeDevice            Type = "DEVICE"
	TypeGeolocation       Type = "GEOLOCATION"
	TypeKcsHeat           Type = "KCS_HEAT"
	TypeOperatingSystem   Type = "OPERATING_SYSTEM"
	TypePageView          Type = "PAGE_VIEW"
	TypePageViewVisit     Type = "PAGE_VIEW_VISIT"
	TypeUniqueIdentifier  Type = "UNIQUE_IDENTIFIER"
	TypeUserAgent         Type = "USER_AGENT"
	TypeVisitorVisits     Type = "VISITOR_VISITS"
)

// Data is implemented by every visitor data item.
type Data interface {
	DataType() Type
}
