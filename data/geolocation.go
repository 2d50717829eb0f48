package data

import (
	"strconv"

	"github.com/rafaeljc/verdandi/internal/wire"
)

// Geolocation describes where the visitor browses from. Country is the only
// mandatory field.
type Geolocation struct {
	SendableBase

	country    string
	region     string
	city       string
	postalCode string
	latitude   float64
	longitude  float64
	hasCoords  bool
}

// NewGeolocation returns geolocation data for the given country.
func NewGeolocation(country string) *Geolocation {
	return &Geolocation{SendableBase: NewDuplicationUnsafeBase(), country: country}
}

// WithRegion sets the region and returns the receiver.
func (g *Geolocation) WithRegion(region string) *Geolocation {
	g.region = region
	return g
}

// WithCity sets the city and returns the receiver.
func (g *Geolocation) WithCity(city string) *Geolocation {
	g.city = city
	return g
}

// WithPostalCode sets the postal code and returns the receiver.
func (g *Geolocation) WithPostalCode(postalCode string) *Geolocation {
	g.postalCode = postalCode
	return g
}

// WithCoordinates sets the latitude and longitude and returns the receiver.
func (g *Geolocation) WithCoordinates(latitude, longitude float64) *Geolocation {
	g.latitude = latitude
	g.longitude = longitude
	g.hasCoords = true
	return g
}

func (g *Geolocation) DataType() Type { return TypeGeolocation }

// Country returns the country name.
func (g *Geolocation) Country() string { return g.country }

// Region returns the region name, possibly empty.
func (g *Geolocation) Region() string { return g.region }

// City returns the city name, possibly empty.
func (g *Geolocation) City() string { return g.city }

func (g *Geolocation) EncodeQuery() string {
	builder := wire.NewBuilder(
		wire.NewRawParam(wire.ParamEventType, wire.EventTypeStaticData),
		wire.NewParam(wire.ParamCountry, g.country),
		wire.NewParam(wire.ParamRegion, g.region),
		wire.NewParam(wire.ParamCity, g.city),
		wire.NewParam(wire.ParamPostalCode, g.postalCode),
	)
	if g.hasCoords {
		builder.Extend(
			wire.NewRawParam(wire.ParamLatitude, strconv.FormatFloat(g.latitude, 'f', -1, 64)),
			wire.NewRawParam(wire.ParamLongitude, strconv.FormatFloat(g.longitude, 'f', -1, 64)),
		)
	}
	builder.Append(g.nonceParam())
	return builder.String()
}
