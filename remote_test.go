package verdandi

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/verdandi/data"
	"github.com/rafaeljc/verdandi/internal/datafile"
	"github.com/rafaeljc/verdandi/internal/visitor"
)

const remoteVisitorPayload = `{
	"currentVisit": {
		"timeStarted": 1700000300000,
		"customDataEvents": [
			{"time": 1700000301000, "data": {"index": 2, "valuesCountMap": {"stale": 1}}},
			{"time": 1700000302000, "data": {"index": 2, "valuesCountMap": {"gold": 2, "silver": 1}}},
			{"time": 1700000303000, "data": {"index": 5, "valuesCountMap": {"beta": 1}}}
		],
		"pageEvents": [
			{"time": 1700000301000, "data": {"href": "https://example.com/", "title": "Home"}},
			{"time": 1700000302000, "data": {"href": "https://example.com/pricing", "title": "Pricing"}},
			{"time": 1700000303000, "data": {"href": "https://example.com/", "title": "Home"}}
		],
		"experimentEvents": [
			{"time": 1700000301000, "data": {"id": 1000, "variationId": 1}},
			{"time": 1700000302000, "data": {"id": 1000, "variationId": 2}},
			{"time": 1700000303000, "data": {"id": 3000, "variationId": 5}}
		],
		"conversionEvents": [
			{"time": 1700000304000, "data": {"goalId": 42, "revenue": 19.9}},
			{"time": 1700000305000, "data": {"goalId": 43, "revenue": 5, "negative": true}}
		],
		"geolocationEvents": [
			{"time": 1700000301000, "data": {"country": "Brazil", "region": "SP"}},
			{"time": 1700000302000, "data": {"country": "France", "region": "IDF", "city": "Paris"}}
		],
		"staticDataEvent": {"time": 1700000300000, "data": {
			"deviceType": "DESKTOP", "browser": "FIREFOX", "browserVersion": 128, "os": "LINUX"
		}}
	},
	"previousVisits": [
		{
			"timeStarted": 1700000200000,
			"customDataEvents": [
				{"time": 1700000201000, "data": {"index": 2, "valuesCountMap": {"bronze": 1}}},
				{"time": 1700000202000, "data": {"index": 7, "valuesCountMap": {"legacy": 1}}}
			],
			"geolocationEvents": [
				{"time": 1700000201000, "data": {"country": "Spain"}}
			]
		},
		{"timeStarted": 1700000100000}
	],
	"kcs": {"11": {"21": 0.25, "22": 0.75}, "bogus": {"1": 1}, "12": {"x": 3}}
}`

func TestParseRemoteVisitorDataCurrentVisit(t *testing.T) {
	remote, err := parseRemoteVisitorData([]byte(remoteVisitorPayload))
	require.NoError(t, err)

	// newest event per index wins, previous visits never displace it
	require.Contains(t, remote.customData, 2)
	assert.Equal(t, []string{"gold", "silver"}, remote.customData[2].Values())
	require.Contains(t, remote.customData, 5)
	assert.Equal(t, []string{"beta"}, remote.customData[5].Values())
	require.Contains(t, remote.customData, 7)
	assert.Equal(t, []string{"legacy"}, remote.customData[7].Values())

	// repeated hrefs fold into one visit with the newest timestamp
	require.Len(t, remote.pageVisits, 2)
	home := remote.pageVisits["https://example.com/"]
	require.NotNil(t, home)
	assert.Equal(t, 2, home.Count)
	assert.Equal(t, int64(1700000303000), home.LastTimestamp)
	assert.Equal(t, "Home", home.PageView.Title())
	pricing := remote.pageVisits["https://example.com/pricing"]
	require.NotNil(t, pricing)
	assert.Equal(t, 1, pricing.Count)

	// newest assignment per experiment wins
	require.Len(t, remote.experiments, 2)
	assert.Equal(t, 2, remote.experiments[1000].VariationID())
	assert.Equal(t, 5, remote.experiments[3000].VariationID())
	assert.Equal(t, datafile.RuleUnknown, remote.experiments[1000].RuleType())

	require.Len(t, remote.conversions, 2)
	assert.Equal(t, 42, remote.conversions[0].GoalID())
	assert.InDelta(t, 19.9, remote.conversions[0].Revenue(), 1e-9)
	assert.False(t, remote.conversions[0].Negative())
	assert.True(t, remote.conversions[1].Negative())

	// the current visit's last geolocation wins over previous visits
	require.NotNil(t, remote.geolocation)
	assert.Equal(t, "France", remote.geolocation.Country())
	assert.Equal(t, "IDF", remote.geolocation.Region())
	assert.Equal(t, "Paris", remote.geolocation.City())

	require.NotNil(t, remote.device)
	assert.Equal(t, data.DeviceDesktop, remote.device.Type())
	require.NotNil(t, remote.browser)
	assert.Equal(t, data.BrowserFirefox, remote.browser.Type())
	version, ok := remote.browser.Version()
	require.True(t, ok)
	assert.InDelta(t, 128, version, 1e-9)
	require.NotNil(t, remote.operatingSystem)
	assert.Equal(t, data.OSLinux, remote.operatingSystem.Type())

	require.NotNil(t, remote.previousVisits)
	assert.Equal(t, []int64{1700000200000, 1700000100000}, remote.previousVisits.PrevVisits())

	require.NotNil(t, remote.kcsHeat)
	assert.Equal(t, map[int]map[int]float64{11: {21: 0.25, 22: 0.75}, 12: {}}, remote.kcsHeat.Values())
}

func TestParseRemoteVisitorDataTolerant(t *testing.T) {
	remote, err := parseRemoteVisitorData([]byte(`{
		"currentVisit": {
			"customDataEvents": [{"time": 1, "data": {"valuesCountMap": {"x": 1}}}],
			"pageEvents": [{"time": 1, "data": {"title": "no href"}}],
			"experimentEvents": [{"time": 1, "data": {"id": 9}}],
			"conversionEvents": [{"time": 1, "data": {"revenue": 3}}],
			"geolocationEvents": [{"time": 1, "data": {"region": "nowhere"}}],
			"staticDataEvent": {"time": 1, "data": {"deviceType": "FRIDGE", "browser": "LYNX", "os": "TEMPLE"}}
		},
		"kcs": "not an object"
	}`))
	require.NoError(t, err)

	assert.Empty(t, remote.customData)
	assert.Empty(t, remote.pageVisits)
	assert.Empty(t, remote.experiments)
	assert.Empty(t, remote.conversions)
	assert.Nil(t, remote.geolocation)
	assert.Nil(t, remote.device)
	assert.Nil(t, remote.browser)
	assert.Nil(t, remote.operatingSystem)
	assert.Nil(t, remote.kcsHeat)
	assert.Nil(t, remote.previousVisits)
	assert.Empty(t, remote.dataToAdd())
	assert.Empty(t, remote.dataToReturn())
}

func TestParseRemoteVisitorDataRejectsMalformedPayload(t *testing.T) {
	_, err := parseRemoteVisitorData([]byte(`{"currentVisit": [`))
	require.Error(t, err)
}

func TestRemoteMarkDataAsSent(t *testing.T) {
	remote, err := parseRemoteVisitorData([]byte(remoteVisitorPayload))
	require.NoError(t, err)

	info := parseCustomDataInfo(t, `{
		"customData": [
			{"index": 2, "scope": "VISITOR"},
			{"index": 5},
			{"index": 7}
		]
	}`)
	remote.markDataAsSent(info)

	// visitor-scope custom data is re-sent so the current visit carries it
	assert.False(t, remote.customData[2].Sent())
	assert.True(t, remote.customData[5].Sent())
	assert.True(t, remote.customData[7].Sent())

	for _, variation := range remote.experiments {
		assert.True(t, variation.Sent())
	}
	for _, visit := range remote.pageVisits {
		assert.True(t, visit.PageView.Sent())
	}
	for _, conversion := range remote.conversions {
		assert.True(t, conversion.Sent())
	}
	assert.True(t, remote.device.Sent())
	assert.True(t, remote.browser.Sent())
	assert.True(t, remote.operatingSystem.Sent())
	assert.True(t, remote.geolocation.Sent())
}

func TestRemoteMarkDataAsSentWithoutCustomDataInfo(t *testing.T) {
	remote, err := parseRemoteVisitorData([]byte(remoteVisitorPayload))
	require.NoError(t, err)

	remote.markDataAsSent(nil)

	for _, cd := range remote.customData {
		assert.True(t, cd.Sent())
	}
}

func TestRemoteDataToAddOrdering(t *testing.T) {
	remote, err := parseRemoteVisitorData([]byte(remoteVisitorPayload))
	require.NoError(t, err)

	items := remote.dataToAdd()
	types := make([]data.Type, 0, len(items))
	for _, item := range items {
		types = append(types, item.DataType())
	}
	assert.Equal(t, []data.Type{
		data.TypeCustomData, data.TypeCustomData, data.TypeCustomData,
		data.TypeVisitorVisits,
		data.TypeKcsHeat,
		data.TypePageViewVisit, data.TypePageViewVisit,
		data.TypeAssignedVariation, data.TypeAssignedVariation,
		data.TypeConversion, data.TypeConversion,
		data.TypeDevice, data.TypeBrowser, data.TypeOperatingSystem, data.TypeGeolocation,
	}, types)

	// custom data and experiments come out index-ordered
	assert.Equal(t, 2, items[0].(*data.CustomData).ID())
	assert.Equal(t, 5, items[1].(*data.CustomData).ID())
	assert.Equal(t, 7, items[2].(*data.CustomData).ID())
	assert.Equal(t, 1000, items[7].(*visitor.AssignedVariation).ExperimentID())
	assert.Equal(t, 3000, items[8].(*visitor.AssignedVariation).ExperimentID())
}

func TestRemoteDataToReturn(t *testing.T) {
	remote, err := parseRemoteVisitorData([]byte(remoteVisitorPayload))
	require.NoError(t, err)

	items := remote.dataToReturn()
	types := make([]data.Type, 0, len(items))
	for _, item := range items {
		types = append(types, item.DataType())
	}
	// assignments, visit history and heat scores stay internal
	assert.Equal(t, []data.Type{
		data.TypeCustomData, data.TypeCustomData, data.TypeCustomData,
		data.TypePageView, data.TypePageView,
		data.TypeDevice, data.TypeBrowser, data.TypeOperatingSystem, data.TypeGeolocation,
		data.TypeConversion, data.TypeConversion,
	}, types)
}

func TestRemoteMergeKeepsLocalData(t *testing.T) {
	remote, err := parseRemoteVisitorData([]byte(remoteVisitorPayload))
	require.NoError(t, err)

	c, _ := newTestClient(t, testConfigJSON)
	require.NoError(t, c.AddData("alice", data.NewCustomData(2, "local")))
	c.visitors.GetOrCreateVisitor("alice").AddDataIfAbsent(remote.dataToAdd()...)

	v := c.visitors.GetVisitor("alice")
	require.NotNil(t, v)
	customData := v.CustomData()
	assert.Equal(t, []string{"local"}, customData[2].Values())
	require.Contains(t, customData, 5)
	assert.Equal(t, []string{"beta"}, customData[5].Values())
	require.Len(t, v.PageViewVisits(), 2)
	require.NotNil(t, v.VisitorVisits())
	require.NotNil(t, v.KcsHeat())
	assert.Len(t, v.Variations(), 2)
}

func parseCustomDataInfo(t *testing.T, configJSON string) *datafile.CustomDataInfo {
	t.Helper()
	df, err := datafile.Parse("production", []byte(configJSON), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return df.CustomDataInfo()
}
