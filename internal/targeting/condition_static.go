package targeting

import (
	"strings"

	"github.com/rafaeljc/verdandi/data"
)

var browserTypesByName = map[string]data.BrowserType{
	"CHROME":            data.BrowserChrome,
	"INTERNET_EXPLORER": data.BrowserInternetExplorer,
	"IE":                data.BrowserInternetExplorer,
	"FIREFOX":           data.BrowserFirefox,
	"SAFARI":            data.BrowserSafari,
	"OPERA":             data.BrowserOpera,
	"OTHER":             data.BrowserOther,
}

var osTypesByName = map[string]data.OperatingSystemType{
	"WINDOWS":       data.OSWindows,
	"MAC":           data.OSMac,
	"IOS":           data.OSIOS,
	"LINUX":         data.OSLinux,
	"ANDROID":       data.OSAndroid,
	"WINDOWS_PHONE": data.OSWindowsPhone,
}

// browserCondition matches the visitor's browser family and optionally its
// version.
type browserCondition struct {
	baseCondition

	browserType data.BrowserType
	valid       bool
	version     string
	hasVersion  bool
	operator    Operator
}

func newBrowserCondition(cd *conditionData) Condition {
	c := browserCondition{
		baseCondition: newBaseCondition(cd),
		operator:      Operator(cd.VersionMatchType),
	}
	c.browserType, c.valid = browserTypesByName[cd.Browser]
	if v, ok := cd.Version.value(); ok {
		c.version = v
		c.hasVersion = true
	}
	return c
}

func (c browserCondition) Check(payload any) bool {
	browser, ok := payload.(*data.Browser)
	if !ok || !c.valid || browser.Type() != c.browserType {
		return false
	}
	if !c.hasVersion {
		return true
	}
	conditionVersion, ok := floatVersion(c.version)
	if !ok {
		return false
	}
	browserVersion, has := browser.Version()
	if !has {
		browserVersion = nonExistentIdentifier
	}
	switch c.operator {
	case OperatorEqual:
		return browserVersion == conditionVersion
	case OperatorGreater:
		return browserVersion > conditionVersion
	case OperatorLower:
		return browserVersion < conditionVersion
	default:
		return false
	}
}

// deviceCondition matches the visitor's device class.
type deviceCondition struct {
	baseCondition

	deviceType data.DeviceType
	valid      bool
}

func newDeviceCondition(cd *conditionData) Condition {
	c := deviceCondition{baseCondition: newBaseCondition(cd)}
	switch data.DeviceType(strings.ToUpper(cd.Device)) {
	case data.DevicePhone, data.DeviceTablet, data.DeviceDesktop:
		c.deviceType = data.DeviceType(strings.ToUpper(cd.Device))
		c.valid = true
	}
	return c
}

func (c deviceCondition) Check(payload any) bool {
	device, ok := payload.(*data.Device)
	return ok && c.valid && device.Type() == c.deviceType
}

// operatingSystemCondition matches the visitor's operating system family.
type operatingSystemCondition struct {
	baseCondition

	osType data.OperatingSystemType
	valid  bool
}

func newOperatingSystemCondition(cd *conditionData) Condition {
	c := operatingSystemCondition{baseCondition: newBaseCondition(cd)}
	c.osType, c.valid = osTypesByName[cd.OS]
	return c
}

func (c operatingSystemCondition) Check(payload any) bool {
	os, ok := payload.(*data.OperatingSystem)
	return ok && c.valid && os.Type() == c.osType
}

// cookieCondition selects cookies by name and then matches their values. The
// name operator picks which cookies are inspected, the value operator decides
// whether any selected value matches.
type cookieCondition struct {
	baseCondition

	name           string
	nameOperator   Operator
	value          string
	valueOperator  Operator
}

func newCookieCondition(cd *conditionData) Condition {
	c := cookieCondition{
		baseCondition: newBaseCondition(cd),
		nameOperator:  Operator(cd.NameMatchType),
		valueOperator: Operator(cd.ValueMatchType),
	}
	if v, ok := cd.Name.value(); ok {
		c.name = v
	}
	if v, ok := cd.Value.value(); ok {
		c.value = v
	}
	return c
}

func (c cookieCondition) Check(payload any) bool {
	cookie, ok := payload.(*data.Cookie)
	return ok && c.checkValues(c.selectValues(cookie))
}

func (c cookieCondition) selectValues(cookie *data.Cookie) []string {
	cookies := cookie.Cookies()
	switch c.nameOperator {
	case OperatorExact:
		if value, ok := cookies[c.name]; ok {
			return []string{value}
		}
	case OperatorContains:
		var values []string
		for name, value := range cookies {
			if strings.Contains(name, c.name) {
				values = append(values, value)
			}
		}
		return values
	case OperatorRegex:
		var values []string
		for name, value := range cookies {
			if matchRegex(c.name, name) {
				values = append(values, value)
			}
		}
		return values
	}
	return nil
}

func (c cookieCondition) checkValues(values []string) bool {
	for _, value := range values {
		switch c.valueOperator {
		case OperatorExact:
			if value == c.value {
				return true
			}
		case OperatorContains:
			if strings.Contains(value, c.value) {
				return true
			}
		case OperatorRegex:
			if matchRegex(c.value, value) {
				return true
			}
		}
	}
	return false
}

// geolocationCondition matches the visitor's location case-insensitively.
// Country is mandatory, region and city narrow the match when present.
type geolocationCondition struct {
	baseCondition

	country *string
	region  *string
	city    *string
}

func newGeolocationCondition(cd *conditionData) Condition {
	return geolocationCondition{
		baseCondition: newBaseCondition(cd),
		country:       cd.Country,
		region:        cd.Region,
		city:          cd.City,
	}
}

func (c geolocationCondition) Check(payload any) bool {
	geo, ok := payload.(*data.Geolocation)
	if !ok {
		return false
	}
	return c.country != nil && strings.EqualFold(*c.country, geo.Country()) &&
		(c.region == nil || strings.EqualFold(*c.region, geo.Region())) &&
		(c.city == nil || strings.EqualFold(*c.city, geo.City()))
}

// conversionCondition matches tracked conversions, any conversion when the
// condition names no goal.
type conversionCondition struct {
	baseCondition

	goalID int
}

func newConversionCondition(cd *conditionData) Condition {
	c := conversionCondition{baseCondition: newBaseCondition(cd), goalID: nonExistentIdentifier}
	if cd.GoalID != nil {
		c.goalID = *cd.GoalID
	}
	return c
}

func (c conversionCondition) Check(payload any) bool {
	conversions, ok := payload.([]*data.Conversion)
	if !ok {
		return false
	}
	if c.goalID == nonExistentIdentifier {
		return len(conversions) > 0
	}
	for _, conv := range conversions {
		if conv.GoalID() == c.goalID {
			return true
		}
	}
	return false
}
