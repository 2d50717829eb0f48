package visitor

import (
	"sync"

	"github.com/rafaeljc/verdandi/data"
)

// CustomDataItem is the custom data stored on a visitor: either plain
// custom data or its mapping identifier wrapper.
type CustomDataItem interface {
	data.Sendable
	ID() int
	Values() []string
}

// visitorData is the state shared by a visitor and its clones. Clones are
// created when a mapping identifier links an anonymous visitor to an
// application identity; both codes then observe the same data.
type visitorData struct {
	mu sync.Mutex

	userAgent       string
	device          *data.Device
	browser         *data.Browser
	geolocation     *data.Geolocation
	operatingSystem *data.OperatingSystem
	cookie          *data.Cookie
	customData      map[int]CustomDataItem
	pageViewVisits  map[string]*PageViewVisit
	conversions     []*data.Conversion
	variations      map[int]*AssignedVariation
	kcsHeat         *data.KcsHeat
	visitorVisits   *data.VisitorVisits

	mappingIdentifier    string
	hasMappingIdentifier bool
	legalConsent         bool
}

// Visitor is a handle on visitor state. Handles created by Clone share the
// underlying data; the unique identifier flag is per handle.
type Visitor struct {
	data *visitorData

	isUniqueIdentifier bool
}

// New returns a visitor with empty state.
func New() *Visitor {
	return &Visitor{data: &visitorData{}}
}

// Clone returns a handle sharing this visitor's data.
func (v *Visitor) Clone() *Visitor {
	v.data.mu.Lock()
	defer v.data.mu.Unlock()
	return &Visitor{data: v.data, isUniqueIdentifier: v.isUniqueIdentifier}
}

// AddData attaches data items, replacing previous values of the same kind.
func (v *Visitor) AddData(items ...data.Data) {
	v.addData(true, items...)
}

// AddDataIfAbsent attaches data items, keeping previous values of the same
// kind. It is used when folding in remotely fetched visitor data, which
// must not override what the application set locally.
func (v *Visitor) AddDataIfAbsent(items ...data.Data) {
	v.addData(false, items...)
}

func (v *Visitor) addData(overwrite bool, items ...data.Data) {
	d := v.data
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, item := range items {
		switch item := item.(type) {
		case *data.UserAgent:
			d.userAgent = item.Value()
		case *data.Device:
			if overwrite || d.device == nil {
				d.device = item
			}
		case *data.Browser:
			if overwrite || d.browser == nil {
				d.browser = item
			}
		case *data.Geolocation:
			if overwrite || d.geolocation == nil {
				d.geolocation = item
			}
		case *data.OperatingSystem:
			if overwrite || d.operatingSystem == nil {
				d.operatingSystem = item
			}
		case *data.Cookie:
			d.cookie = item
		case CustomDataItem:
			if d.customData == nil {
				d.customData = map[int]CustomDataItem{}
			}
			if _, exists := d.customData[item.ID()]; overwrite || !exists {
				d.customData[item.ID()] = item
			}
		case *data.PageView:
			v.addPageViewLocked(item)
		case *PageViewVisit:
			v.addPageViewVisitLocked(item)
		case *data.Conversion:
			d.conversions = append(d.conversions, item)
		case *data.KcsHeat:
			d.kcsHeat = item
		case *data.VisitorVisits:
			d.visitorVisits = item
		case *AssignedVariation:
			if d.variations == nil {
				d.variations = map[int]*AssignedVariation{}
			}
			if _, exists := d.variations[item.ExperimentID()]; overwrite || !exists {
				d.variations[item.ExperimentID()] = item
			}
		case *data.UniqueIdentifier:
			v.isUniqueIdentifier = item.Value()
		}
	}
}

// a page view with an empty URL carries no usable key and is dropped
func (v *Visitor) addPageViewLocked(pv *data.PageView) {
	if pv.URL() == "" {
		return
	}
	if v.data.pageViewVisits == nil {
		v.data.pageViewVisits = map[string]*PageViewVisit{}
	}
	if visit, ok := v.data.pageViewVisits[pv.URL()]; ok {
		visit.Overwrite(pv)
		return
	}
	v.data.pageViewVisits[pv.URL()] = NewPageViewVisit(pv)
}

func (v *Visitor) addPageViewVisitLocked(pvv *PageViewVisit) {
	if v.data.pageViewVisits == nil {
		v.data.pageViewVisits = map[string]*PageViewVisit{}
	}
	if visit, ok := v.data.pageViewVisits[pvv.PageView.URL()]; ok {
		visit.Merge(pvv)
		return
	}
	v.data.pageViewVisits[pvv.PageView.URL()] = pvv
}

// AssignVariation stores an experiment assignment.
func (v *Visitor) AssignVariation(variation *AssignedVariation) {
	v.data.mu.Lock()
	defer v.data.mu.Unlock()
	if v.data.variations == nil {
		v.data.variations = map[int]*AssignedVariation{}
	}
	v.data.variations[variation.ExperimentID()] = variation
}

// UserAgent returns the visitor's user agent, empty when unknown.
func (v *Visitor) UserAgent() string {
	v.data.mu.Lock()
	defer v.data.mu.Unlock()
	return v.data.userAgent
}

// Device returns the device data, nil when absent.
func (v *Visitor) Device() *data.Device {
	v.data.mu.Lock()
	defer v.data.mu.Unlock()
	return v.data.device
}

// Browser returns the browser data, nil when absent.
func (v *Visitor) Browser() *data.Browser {
	v.data.mu.Lock()
	defer v.data.mu.Unlock()
	return v.data.browser
}

// Geolocation returns the geolocation data, nil when absent.
func (v *Visitor) Geolocation() *data.Geolocation {
	v.data.mu.Lock()
	defer v.data.mu.Unlock()
	return v.data.geolocation
}

// OperatingSystem returns the operating system data, nil when absent.
func (v *Visitor) OperatingSystem() *data.OperatingSystem {
	v.data.mu.Lock()
	defer v.data.mu.Unlock()
	return v.data.operatingSystem
}

// Cookie returns the cookie data, nil when absent.
func (v *Visitor) Cookie() *data.Cookie {
	v.data.mu.Lock()
	defer v.data.mu.Unlock()
	return v.data.cookie
}

// CustomData returns a copy of the custom data keyed by dimension index.
func (v *Visitor) CustomData() map[int]CustomDataItem {
	v.data.mu.Lock()
	defer v.data.mu.Unlock()
	out := make(map[int]CustomDataItem, len(v.data.customData))
	for k, item := range v.data.customData {
		out[k] = item
	}
	return out
}

// PageViewVisits returns a copy of the page visits keyed by URL.
func (v *Visitor) PageViewVisits() map[string]*PageViewVisit {
	v.data.mu.Lock()
	defer v.data.mu.Unlock()
	out := make(map[string]*PageViewVisit, len(v.data.pageViewVisits))
	for k, visit := range v.data.pageViewVisits {
		out[k] = visit
	}
	return out
}

// Conversions returns a copy of the tracked conversions.
func (v *Visitor) Conversions() []*data.Conversion {
	v.data.mu.Lock()
	defer v.data.mu.Unlock()
	out := make([]*data.Conversion, len(v.data.conversions))
	copy(out, v.data.conversions)
	return out
}

// Variations returns a copy of the assignments keyed by experiment.
func (v *Visitor) Variations() map[int]*AssignedVariation {
	v.data.mu.Lock()
	defer v.data.mu.Unlock()
	out := make(map[int]*AssignedVariation, len(v.data.variations))
	for k, variation := range v.data.variations {
		out[k] = variation
	}
	return out
}

// KcsHeat returns the key moment scores, nil when absent.
func (v *Visitor) KcsHeat() *data.KcsHeat {
	v.data.mu.Lock()
	defer v.data.mu.Unlock()
	return v.data.kcsHeat
}

// VisitorVisits returns the visit history, nil when absent.
func (v *Visitor) VisitorVisits() *data.VisitorVisits {
	v.data.mu.Lock()
	defer v.data.mu.Unlock()
	return v.data.visitorVisits
}

// MappingIdentifier returns the anonymous code this visitor's assignments
// are hashed with, and whether one is set.
func (v *Visitor) MappingIdentifier() (string, bool) {
	v.data.mu.Lock()
	defer v.data.mu.Unlock()
	return v.data.mappingIdentifier, v.data.hasMappingIdentifier
}

// SetMappingIdentifier records the anonymous code to hash assignments with.
func (v *Visitor) SetMappingIdentifier(value string) {
	v.data.mu.Lock()
	defer v.data.mu.Unlock()
	v.data.mappingIdentifier = value
	v.data.hasMappingIdentifier = true
}

// LegalConsent reports whether the visitor granted tracking consent.
func (v *Visitor) LegalConsent() bool {
	v.data.mu.Lock()
	defer v.data.mu.Unlock()
	return v.data.legalConsent
}

// SetLegalConsent records the visitor's tracking consent.
func (v *Visitor) SetLegalConsent(consent bool) {
	v.data.mu.Lock()
	defer v.data.mu.Unlock()
	v.data.legalConsent = consent
}

// IsUniqueIdentifier reports whether the visitor code is an
// application-provided stable identifier.
func (v *Visitor) IsUniqueIdentifier() bool {
	v.data.mu.Lock()
	defer v.data.mu.Unlock()
	return v.isUniqueIdentifier
}

// EnumerateSendables snapshots every data item that can be delivered to the
// collector.
func (v *Visitor) EnumerateSendables() []data.Sendable {
	v.data.mu.Lock()
	defer v.data.mu.Unlock()
	d := v.data
	out := make([]data.Sendable, 0, v.countSendablesLocked())
	if d.device != nil {
		out = append(out, d.device)
	}
	if d.browser != nil {
		out = append(out, d.browser)
	}
	if d.geolocation != nil {
		out = append(out, d.geolocation)
	}
	if d.operatingSystem != nil {
		out = append(out, d.operatingSystem)
	}
	for _, item := range d.customData {
		out = append(out, item)
	}
	for _, visit := range d.pageViewVisits {
		out = append(out, visit.PageView)
	}
	for _, conversion := range d.conversions {
		out = append(out, conversion)
	}
	for _, variation := range d.variations {
		out = append(out, variation)
	}
	return out
}

// CountSendables returns the number of items EnumerateSendables would yield.
func (v *Visitor) CountSendables() int {
	v.data.mu.Lock()
	defer v.data.mu.Unlock()
	return v.countSendablesLocked()
}

func (v *Visitor) countSendablesLocked() int {
	d := v.data
	count := len(d.customData) + len(d.pageViewVisits) + len(d.conversions) + len(d.variations)
	if d.device != nil {
		count++
	}
	if d.browser != nil {
		count++
	}
	if d.geolocation != nil {
		count++
	}
	if d.operatingSystem != nil {
		count++
	}
	return count
}
