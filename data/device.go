package data

import (
	"strconv"

	"github.com/rafaeljc/verdandi/internal/wire"
)

// BrowserType identifies a browser family.
type BrowserType int

const (
	BrowserChrome BrowserType = iota
	BrowserInternetExplorer
	BrowserFirefox
	BrowserSafari
	BrowserOpera
	BrowserOther
)

func (t BrowserType) String() string {
	switch t {
	case BrowserChrome:
		return "CHROME"
	case BrowserInternetExplorer:
		return "INTERNET_EXPLORER"
	case BrowserFirefox:
		return "FIREFOX"
	case BrowserSafari:
		return "SAFARI"
	case BrowserOpera:
		return "OPERA"
	default:
		return "OTHER"
	}
}

// Browser describes the visitor's browser family and, optionally, its
// version.
type Browser struct {
	SendableBase

	browserType BrowserType
	version     float64
	hasVersion  bool
}

// NewBrowser returns browser data without version information.
func NewBrowser(t BrowserType) *Browser {
	return &Browser{SendableBase: NewDuplicationUnsafeBase(), browserType: t}
}

// NewBrowserWithVersion returns browser data with a known version.
func NewBrowserWithVersion(t BrowserType, version float64) *Browser {
	return &Browser{SendableBase: NewDuplicationUnsafeBase(), browserType: t, version: version, hasVersion: true}
}

func (b *Browser) DataType() Type { return TypeBrowser }

// Type returns the browser family.
func (b *Browser) Type() BrowserType { return b.browserType }

// Version returns the browser version and whether it is known.
func (b *Browser) Version() (float64, bool) { return b.version, b.hasVersion }

func (b *Browser) EncodeQuery() string {
	builder := wire.NewBuilder(
		wire.NewRawParam(wire.ParamEventType, wire.EventTypeStaticData),
		wire.NewRawParam(wire.ParamBrowserIndex, strconv.Itoa(int(b.browserType))),
	)
	if b.hasVersion {
		builder.Append(wire.NewRawParam(wire.ParamBrowserVersion,
			strconv.FormatFloat(b.version, 'f', -1, 64)))
	}
	builder.Append(b.nonceParam())
	return builder.String()
}

// DeviceType identifies the device class a visitor browses from.
type DeviceType string

const (
	DevicePhone   DeviceType = "PHONE"
	DeviceTablet  DeviceType = "TABLET"
	DeviceDesktop DeviceType = "DESKTOP"
)

// Device describes the visitor's device class.
type Device struct {
	SendableBase

	deviceType DeviceType
}

// NewDevice returns device data for the given device class.
func NewDevice(t DeviceType) *Device {
	return &Device{SendableBase: NewDuplicationUnsafeBase(), deviceType: t}
}

func (d *Device) DataType() Type { return TypeDevice }

// Type returns the device class.
func (d *Device) Type() DeviceType { return d.deviceType }

func (d *Device) EncodeQuery() string {
	return wire.NewBuilder(
		wire.NewRawParam(wire.ParamEventType, wire.EventTypeStaticData),
		wire.NewRawParam(wire.ParamDeviceType, string(d.deviceType)),
		d.nonceParam(),
	).String()
}

// OperatingSystemType identifies an operating system family.
type OperatingSystemType int

const (
	OSWindows OperatingSystemType = iota
	OSMac
	OSIOS
	OSLinux
	OSAndroid
	OSWindowsPhone
)

func (t OperatingSystemType) String() string {
	switch t {
	case OSWindows:
		return "WINDOWS"
	case OSMac:
		return "MAC"
	case OSIOS:
		return "IOS"
	case OSLinux:
		return "LINUX"
	case OSAndroid:
		return "ANDROID"
	case OSWindowsPhone:
		return "WINDOWS_PHONE"
	default:
		return "UNKNOWN"
	}
}

// OperatingSystem describes the visitor's operating system family.
type OperatingSystem struct {
	SendableBase

	osType OperatingSystemType
}

// NewOperatingSystem returns operating system data for the given family.
func NewOperatingSystem(t OperatingSystemType) *OperatingSystem {
	return &OperatingSystem{SendableBase: NewDuplicationUnsafeBase(), osType: t}
}

func (o *OperatingSystem) DataType() Type { return TypeOperatingSystem }

// Type returns the operating system family.
func (o *OperatingSystem) Type() OperatingSystemType { return o.osType }

func (o *OperatingSystem) EncodeQuery() string {
	return wire.NewBuilder(
		wire.NewRawParam(wire.ParamEventType, wire.EventTypeStaticData),
		wire.NewRawParam(wire.ParamOS, o.osType.String()),
		wire.NewRawParam(wire.ParamOSIndex, strconv.Itoa(int(o.osType))),
		o.nonceParam(),
	).String()
}
