package verdandi

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/rafaeljc/verdandi/data"
	"github.com/rafaeljc/verdandi/internal/datafile"
	"github.com/rafaeljc/verdandi/internal/visitor"
)

// GetRemoteData retrieves the raw value stored under key on the remote
// data service.
func (c *Client) GetRemoteData(ctx context.Context, key string) (json.RawMessage, error) {
	return c.network.GetRemoteData(ctx, key)
}

// GetRemoteVisitorData retrieves the visitor data the platform has stored
// for the visitor across visits. When addData is true, the retrieved data
// is merged into the local visitor without displacing anything already
// present. The returned slice holds the retrieved data items.
func (c *Client) GetRemoteVisitorData(
	ctx context.Context, visitorCode string, addData bool, filter RemoteVisitorDataFilter,
) ([]data.Data, error) {
	if err := validateVisitorCode(visitorCode); err != nil {
		return nil, err
	}
	v := c.visitors.GetVisitor(visitorCode)
	isUnique := v != nil && v.IsUniqueIdentifier()
	payload, err := c.network.GetRemoteVisitorData(ctx, visitorCode, filter, isUnique)
	if err != nil {
		return nil, err
	}
	remote, err := parseRemoteVisitorData(payload)
	if err != nil {
		return nil, fmt.Errorf("parse remote visitor data: %w", err)
	}
	remote.markDataAsSent(c.snapshot().CustomDataInfo())
	if addData {
		if toAdd := remote.dataToAdd(); len(toAdd) > 0 {
			// added directly on the visitor so remote values never trigger
			// mapping identifier linking
			c.visitors.GetOrCreateVisitor(visitorCode).AddDataIfAbsent(toAdd...)
		}
	}
	return remote.dataToReturn(), nil
}

// remoteVisitorData is the merged view of the visits returned by the data
// API. Events are scanned newest first so the most recent value of each
// dimension wins.
type remoteVisitorData struct {
	device          *data.Device
	browser         *data.Browser
	operatingSystem *data.OperatingSystem
	geolocation     *data.Geolocation
	customData      map[int]*data.CustomData
	pageVisits      map[string]*visitor.PageViewVisit
	pageOrder       []string
	experiments     map[int]*visitor.AssignedVariation
	conversions     []*data.Conversion
	previousVisits  *data.VisitorVisits
	kcsHeat         *data.KcsHeat
}

type remoteEventJSON struct {
	Time int64           `json:"time"`
	Data json.RawMessage `json:"data"`
}

type remoteVisitJSON struct {
	TimeStarted       int64             `json:"timeStarted"`
	CustomDataEvents  []remoteEventJSON `json:"customDataEvents"`
	PageEvents        []remoteEventJSON `json:"pageEvents"`
	ExperimentEvents  []remoteEventJSON `json:"experimentEvents"`
	ConversionEvents  []remoteEventJSON `json:"conversionEvents"`
	GeolocationEvents []remoteEventJSON `json:"geolocationEvents"`
	StaticDataEvent   *remoteEventJSON  `json:"staticDataEvent"`
}

func parseRemoteVisitorData(payload []byte) (*remoteVisitorData, error) {
	var raw struct {
		CurrentVisit   *remoteVisitJSON   `json:"currentVisit"`
		PreviousVisits []*remoteVisitJSON `json:"previousVisits"`
		Kcs            json.RawMessage    `json:"kcs"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}
	r := &remoteVisitorData{
		customData:  map[int]*data.CustomData{},
		pageVisits:  map[string]*visitor.PageViewVisit{},
		experiments: map[int]*visitor.AssignedVariation{},
	}
	if raw.CurrentVisit != nil {
		r.parseVisit(raw.CurrentVisit)
	}
	if len(raw.PreviousVisits) > 0 {
		timesStarted := make([]int64, 0, len(raw.PreviousVisits))
		for _, visit := range raw.PreviousVisits {
			timesStarted = append(timesStarted, visit.TimeStarted)
			r.parseVisit(visit)
		}
		r.previousVisits = data.NewVisitorVisits(timesStarted, 0)
	}
	r.kcsHeat = parseKcsHeat(raw.Kcs)
	return r, nil
}

func (r *remoteVisitorData) parseVisit(visit *remoteVisitJSON) {
	r.parseCustomData(visit.CustomDataEvents)
	r.parsePages(visit.PageEvents)
	r.parseExperiments(visit.ExperimentEvents)
	r.parseConversions(visit.ConversionEvents)
	if r.geolocation == nil && len(visit.GeolocationEvents) > 0 {
		r.parseGeolocation(visit.GeolocationEvents[len(visit.GeolocationEvents)-1])
	}
	if visit.StaticDataEvent != nil {
		r.parseStaticData(*visit.StaticDataEvent)
	}
}

func (r *remoteVisitorData) parseCustomData(events []remoteEventJSON) {
	for i := len(events) - 1; i >= 0; i-- {
		var payload struct {
			Index          *int           `json:"index"`
			ValuesCountMap map[string]int `json:"valuesCountMap"`
		}
		if json.Unmarshal(events[i].Data, &payload) != nil || payload.Index == nil {
			continue
		}
		if _, exists := r.customData[*payload.Index]; exists {
			continue
		}
		values := make([]string, 0, len(payload.ValuesCountMap))
		for value := range payload.ValuesCountMap {
			values = append(values, value)
		}
		sort.Strings(values)
		r.customData[*payload.Index] = data.NewCustomData(*payload.Index, values...)
	}
}

func (r *remoteVisitorData) parsePages(events []remoteEventJSON) {
	for i := len(events) - 1; i >= 0; i-- {
		var payload struct {
			Href  *string `json:"href"`
			Title string  `json:"title"`
		}
		if json.Unmarshal(events[i].Data, &payload) != nil || payload.Href == nil {
			continue
		}
		if existing, ok := r.pageVisits[*payload.Href]; ok {
			existing.Count++
			continue
		}
		r.pageVisits[*payload.Href] = &visitor.PageViewVisit{
			PageView:      data.NewPageView(*payload.Href, payload.Title),
			Count:         1,
			LastTimestamp: events[i].Time,
		}
		r.pageOrder = append(r.pageOrder, *payload.Href)
	}
}

func (r *remoteVisitorData) parseExperiments(events []remoteEventJSON) {
	for i := len(events) - 1; i >= 0; i-- {
		var payload struct {
			ID          *int `json:"id"`
			VariationID *int `json:"variationId"`
		}
		if json.Unmarshal(events[i].Data, &payload) != nil ||
			payload.ID == nil || payload.VariationID == nil {
			continue
		}
		if _, exists := r.experiments[*payload.ID]; exists {
			continue
		}
		r.experiments[*payload.ID] = visitor.NewAssignedVariationAt(
			*payload.ID, *payload.VariationID, datafile.RuleUnknown, time.UnixMilli(events[i].Time),
		)
	}
}

func (r *remoteVisitorData) parseConversions(events []remoteEventJSON) {
	for _, event := range events {
		var payload struct {
			GoalID   *int    `json:"goalId"`
			Revenue  float64 `json:"revenue"`
			Negative bool    `json:"negative"`
		}
		if json.Unmarshal(event.Data, &payload) != nil || payload.GoalID == nil {
			continue
		}
		conversion := data.NewConversionWithRevenue(*payload.GoalID, payload.Revenue)
		if payload.Negative {
			conversion.Negate()
		}
		r.conversions = append(r.conversions, conversion)
	}
}

func (r *remoteVisitorData) parseGeolocation(event remoteEventJSON) {
	var payload struct {
		Country *string `json:"country"`
		Region  string  `json:"region"`
		City    string  `json:"city"`
	}
	if json.Unmarshal(event.Data, &payload) != nil || payload.Country == nil {
		return
	}
	geo := data.NewGeolocation(*payload.Country)
	if payload.Region != "" {
		geo = geo.WithRegion(payload.Region)
	}
	if payload.City != "" {
		geo = geo.WithCity(payload.City)
	}
	r.geolocation = geo
}

func (r *remoteVisitorData) parseStaticData(event remoteEventJSON) {
	if r.device != nil && r.browser != nil && r.operatingSystem != nil {
		return
	}
	var payload struct {
		DeviceType     string   `json:"deviceType"`
		Browser        string   `json:"browser"`
		BrowserVersion *float64 `json:"browserVersion"`
		OS             string   `json:"os"`
	}
	if json.Unmarshal(event.Data, &payload) != nil {
		return
	}
	if r.device == nil {
		if deviceType, ok := parseDeviceType(payload.DeviceType); ok {
			r.device = data.NewDevice(deviceType)
		}
	}
	if r.browser == nil {
		if browserType, ok := parseBrowserType(payload.Browser); ok {
			if payload.BrowserVersion != nil {
				r.browser = data.NewBrowserWithVersion(browserType, *payload.BrowserVersion)
			} else {
				r.browser = data.NewBrowser(browserType)
			}
		}
	}
	if r.operatingSystem == nil {
		if osType, ok := parseOperatingSystemType(payload.OS); ok {
			r.operatingSystem = data.NewOperatingSystem(osType)
		}
	}
}

func parseKcsHeat(raw json.RawMessage) *data.KcsHeat {
	var scoresByKeyMoment map[string]map[string]any
	if json.Unmarshal(raw, &scoresByKeyMoment) != nil {
		return nil
	}
	values := map[int]map[int]float64{}
	for keyMoment, goalScores := range scoresByKeyMoment {
		keyMomentID, err := strconv.Atoi(keyMoment)
		if err != nil {
			continue
		}
		scores := map[int]float64{}
		for goal, score := range goalScores {
			goalID, err := strconv.Atoi(goal)
			if err != nil {
				continue
			}
			value, ok := score.(float64)
			if !ok {
				continue
			}
			scores[goalID] = value
		}
		values[keyMomentID] = scores
	}
	if len(values) == 0 {
		return nil
	}
	return data.NewKcsHeat(values)
}

// dataToAdd returns the items merged into the local visitor.
func (r *remoteVisitorData) dataToAdd() []data.Data {
	var items []data.Data
	for _, index := range sortedKeys(r.customData) {
		items = append(items, r.customData[index])
	}
	if r.previousVisits != nil {
		items = append(items, r.previousVisits)
	}
	if r.kcsHeat != nil {
		items = append(items, r.kcsHeat)
	}
	for _, url := range r.pageOrder {
		items = append(items, r.pageVisits[url])
	}
	for _, experimentID := range sortedKeys(r.experiments) {
		items = append(items, r.experiments[experimentID])
	}
	for _, conversion := range r.conversions {
		items = append(items, conversion)
	}
	return append(items, r.singleData()...)
}

// dataToReturn returns the items handed back to the caller.
func (r *remoteVisitorData) dataToReturn() []data.Data {
	var items []data.Data
	for _, index := range sortedKeys(r.customData) {
		items = append(items, r.customData[index])
	}
	for _, url := range r.pageOrder {
		items = append(items, r.pageVisits[url].PageView)
	}
	items = append(items, r.singleData()...)
	for _, conversion := range r.conversions {
		items = append(items, conversion)
	}
	return items
}

// markDataAsSent keeps retrieved data out of the next tracking batch; the
// platform already holds it. Visitor-scope custom data is the exception:
// it is re-sent so the current visit also carries it.
func (r *remoteVisitorData) markDataAsSent(info *datafile.CustomDataInfo) {
	for _, cd := range r.customData {
		if info == nil || !info.IsVisitorScope(cd.ID()) {
			cd.MarkAsSent()
		}
	}
	for _, variation := range r.experiments {
		variation.MarkAsSent()
	}
	for _, visit := range r.pageVisits {
		visit.PageView.MarkAsSent()
	}
	for _, conversion := range r.conversions {
		conversion.MarkAsSent()
	}
	for _, item := range r.singleData() {
		if sendable, ok := item.(data.Sendable); ok {
			sendable.MarkAsSent()
		}
	}
}

func (r *remoteVisitorData) singleData() []data.Data {
	var items []data.Data
	if r.device != nil {
		items = append(items, r.device)
	}
	if r.browser != nil {
		items = append(items, r.browser)
	}
	if r.operatingSystem != nil {
		items = append(items, r.operatingSystem)
	}
	if r.geolocation != nil {
		items = append(items, r.geolocation)
	}
	return items
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	return keys
}

func parseDeviceType(name string) (data.DeviceType, bool) {
	switch data.DeviceType(name) {
	case data.DevicePhone, data.DeviceTablet, data.DeviceDesktop:
		return data.DeviceType(name), true
	}
	return "", false
}

func parseBrowserType(name string) (data.BrowserType, bool) {
	types := map[string]data.BrowserType{
		"CHROME":            data.BrowserChrome,
		"INTERNET_EXPLORER": data.BrowserInternetExplorer,
		"FIREFOX":           data.BrowserFirefox,
		"SAFARI":            data.BrowserSafari,
		"OPERA":             data.BrowserOpera,
		"OTHER":             data.BrowserOther,
	}
	t, ok := types[name]
	return t, ok
}

func parseOperatingSystemType(name string) (data.OperatingSystemType, bool) {
	types := map[string]data.OperatingSystemType{
		"WINDOWS":       data.OSWindows,
		"MAC":           data.OSMac,
		"IOS":           data.OSIOS,
		"LINUX":         data.OSLinux,
		"ANDROID":       data.OSAndroid,
		"WINDOWS_PHONE": data.OSWindowsPhone,
	}
	t, ok := types[name]
	return t, ok
}
