package visitor

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/verdandi/data"
	"github.com/rafaeljc/verdandi/internal/datafile"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func customDataInfo(t *testing.T) *datafile.CustomDataInfo {
	t.Helper()
	payload := []byte(`{"customData": [
		{"index": 1, "localOnly": true},
		{"index": 2, "isMappingIdentifier": true},
		{"index": 3}
	]}`)
	df, err := datafile.Parse("test", payload, testLogger())
	require.NoError(t, err)
	return df.CustomDataInfo()
}

func TestVisitorAddDataRouting(t *testing.T) {
	v := New()
	v.AddData(
		data.NewUserAgent("test-agent/1.0"),
		data.NewDevice(data.DeviceDesktop),
		data.NewBrowser(data.BrowserChrome),
		data.NewGeolocation("France"),
		data.NewOperatingSystem(data.OSLinux),
		data.NewCookie(map[string]string{"sid": "abc"}),
		data.NewCustomData(3, "blue"),
		data.NewPageView("https://example.com/", "Home"),
		data.NewConversion(42),
		data.NewKcsHeat(map[int]map[int]float64{10: {20: 0.5}}),
		data.NewVisitorVisits([]int64{1000}, 2),
		data.NewUniqueIdentifier(true),
	)

	assert.Equal(t, "test-agent/1.0", v.UserAgent())
	require.NotNil(t, v.Device())
	require.NotNil(t, v.Browser())
	require.NotNil(t, v.Geolocation())
	require.NotNil(t, v.OperatingSystem())
	require.NotNil(t, v.Cookie())
	assert.Len(t, v.CustomData(), 1)
	assert.Len(t, v.PageViewVisits(), 1)
	assert.Len(t, v.Conversions(), 1)
	require.NotNil(t, v.KcsHeat())
	require.NotNil(t, v.VisitorVisits())
	assert.True(t, v.IsUniqueIdentifier())
}

func TestVisitorAddDataIfAbsent(t *testing.T) {
	v := New()
	v.AddData(data.NewDevice(data.DevicePhone), data.NewCustomData(3, "blue"))

	v.AddDataIfAbsent(data.NewDevice(data.DeviceDesktop), data.NewCustomData(3, "red"))
	assert.Equal(t, data.DevicePhone, v.Device().Type())
	assert.Equal(t, []string{"blue"}, v.CustomData()[3].Values())

	v.AddData(data.NewDevice(data.DeviceDesktop), data.NewCustomData(3, "red"))
	assert.Equal(t, data.DeviceDesktop, v.Device().Type())
	assert.Equal(t, []string{"red"}, v.CustomData()[3].Values())
}

func TestVisitorPageViewAccumulation(t *testing.T) {
	v := New()
	v.AddData(data.NewPageView("https://example.com/a", "A"))
	v.AddData(data.NewPageView("https://example.com/a", "A again"))
	v.AddData(data.NewPageView("https://example.com/b", "B"))
	v.AddData(data.NewPageView("", "no url"))

	visits := v.PageViewVisits()
	require.Len(t, visits, 2)
	assert.Equal(t, 2, visits["https://example.com/a"].Count)
	assert.Equal(t, "A again", visits["https://example.com/a"].PageView.Title())
	assert.Equal(t, 1, visits["https://example.com/b"].Count)
}

func TestVisitorPageViewVisitMerge(t *testing.T) {
	v := New()
	v.AddData(data.NewPageView("https://example.com/a", "A"))

	remote := NewPageViewVisit(data.NewPageView("https://example.com/a", "A"))
	remote.Count = 4
	remote.LastTimestamp = time.Now().Add(time.Hour).UnixMilli()
	v.AddData(remote)

	visits := v.PageViewVisits()
	require.Len(t, visits, 1)
	assert.Equal(t, 5, visits["https://example.com/a"].Count)
	assert.Equal(t, remote.LastTimestamp, visits["https://example.com/a"].LastTimestamp)
}

func TestVisitorAssignVariation(t *testing.T) {
	v := New()
	first := NewAssignedVariation(100, 1, datafile.RuleExperimentation)
	v.AssignVariation(first)
	v.AssignVariation(NewAssignedVariation(100, 2, datafile.RuleExperimentation))
	v.AssignVariation(NewAssignedVariation(200, 3, datafile.RuleTargetedDelivery))

	variations := v.Variations()
	require.Len(t, variations, 2)
	assert.Equal(t, 2, variations[100].VariationID())
	assert.Equal(t, 3, variations[200].VariationID())

	v.AddDataIfAbsent(NewAssignedVariation(100, 9, datafile.RuleExperimentation))
	assert.Equal(t, 2, v.Variations()[100].VariationID())
}

func TestAssignedVariationIsValid(t *testing.T) {
	variation := NewAssignedVariationAt(100, 1, datafile.RuleExperimentation,
		time.Unix(1000, 0))

	assert.True(t, variation.IsValid(nil))

	respool := 1000
	assert.True(t, variation.IsValid(&respool))
	respool = 1001
	assert.False(t, variation.IsValid(&respool))
}

func TestVisitorCloneSharesData(t *testing.T) {
	v := New()
	v.AddData(data.NewUniqueIdentifier(true))
	clone := v.Clone()

	clone.AddData(data.NewCustomData(3, "blue"))
	assert.Len(t, v.CustomData(), 1)
	assert.True(t, clone.IsUniqueIdentifier())

	// the unique identifier flag belongs to the handle, not the shared data
	clone.AddData(data.NewUniqueIdentifier(false))
	assert.True(t, v.IsUniqueIdentifier())
	assert.False(t, clone.IsUniqueIdentifier())
}

func TestVisitorEnumerateSendables(t *testing.T) {
	v := New()
	v.AddData(
		data.NewDevice(data.DeviceDesktop),
		data.NewCustomData(3, "blue"),
		data.NewPageView("https://example.com/", "Home"),
		data.NewConversion(42),
		data.NewCookie(map[string]string{"sid": "abc"}),
		data.NewUserAgent("test-agent/1.0"),
	)
	v.AssignVariation(NewAssignedVariation(100, 1, datafile.RuleExperimentation))

	sendables := v.EnumerateSendables()
	assert.Len(t, sendables, 5)
	assert.Equal(t, 5, v.CountSendables())
	for _, s := range sendables {
		assert.True(t, s.Unsent())
	}
}

func TestManagerGetOrCreateVisitor(t *testing.T) {
	m := NewManager(time.Minute, nil, testLogger())

	assert.Nil(t, m.GetVisitor("alice"))
	v := m.GetOrCreateVisitor("alice")
	require.NotNil(t, v)
	assert.Same(t, v, m.GetVisitor("alice"))
	assert.Same(t, v, m.GetOrCreateVisitor("alice"))
	assert.Equal(t, 1, m.Len())
	assert.ElementsMatch(t, []string{"alice"}, m.VisitorCodes())
}

func TestManagerAddDataLocalOnly(t *testing.T) {
	info := customDataInfo(t)
	m := NewManager(time.Minute, func() *datafile.CustomDataInfo { return info }, testLogger())

	local := data.NewCustomData(1, "secret")
	plain := data.NewCustomData(3, "blue")
	v := m.AddData("alice", local, plain)

	require.Len(t, v.CustomData(), 2)
	assert.True(t, local.Sent())
	assert.True(t, plain.Unsent())
}

func TestManagerAddDataMappingIdentifier(t *testing.T) {
	info := customDataInfo(t)
	m := NewManager(time.Minute, func() *datafile.CustomDataInfo { return info }, testLogger())

	v := m.AddData("alice", data.NewCustomData(2, "user-1"))

	mapping, ok := v.MappingIdentifier()
	require.True(t, ok)
	assert.Equal(t, "alice", mapping)

	item := v.CustomData()[2]
	require.IsType(t, &data.MappingIdentifier{}, item)
	assert.True(t, item.Unsent())
	item.MarkAsSent()
	assert.True(t, item.Unsent())

	// the same visitor is now reachable under the application identity
	linked := m.GetVisitor("user-1")
	require.NotNil(t, linked)
	linked.AddData(data.NewCustomData(3, "blue"))
	assert.Len(t, v.CustomData(), 2)
	assert.Equal(t, 2, m.Len())
}

func TestManagerAddDataMappingIdentifierSameCode(t *testing.T) {
	info := customDataInfo(t)
	m := NewManager(time.Minute, func() *datafile.CustomDataInfo { return info }, testLogger())

	v := m.AddData("user-1", data.NewCustomData(2, "user-1"))

	mapping, ok := v.MappingIdentifier()
	require.True(t, ok)
	assert.Equal(t, "user-1", mapping)
	assert.Equal(t, 1, m.Len())
}

func TestManagerAddDataWithoutInfo(t *testing.T) {
	m := NewManager(time.Minute, nil, testLogger())

	cd := data.NewCustomData(2, "user-1")
	v := m.AddData("alice", cd)

	_, ok := v.MappingIdentifier()
	assert.False(t, ok)
	assert.True(t, cd.Unsent())
}

func TestManagerPurge(t *testing.T) {
	m := NewManager(50*time.Millisecond, nil, testLogger())
	m.GetOrCreateVisitor("alice")
	m.GetOrCreateVisitor("bob")

	assert.Equal(t, 0, m.Purge())
	assert.Equal(t, 2, m.Len())

	time.Sleep(60 * time.Millisecond)
	m.GetOrCreateVisitor("bob")

	assert.Equal(t, 1, m.Purge())
	assert.Equal(t, 1, m.Len())
	assert.Nil(t, m.GetVisitor("alice"))
	require.NotNil(t, m.GetVisitor("bob"))
}

func TestManagerConcurrentAccess(t *testing.T) {
	m := NewManager(time.Minute, nil, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				code := fmt.Sprintf("visitor-%d", j%10)
				v := m.GetOrCreateVisitor(code)
				v.AddData(data.NewCustomData(worker, "x"))
				m.GetVisitor(code)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, m.Len())
	for i := 0; i < 10; i++ {
		v := m.GetVisitor(fmt.Sprintf("visitor-%d", i))
		require.NotNil(t, v)
		assert.Len(t, v.CustomData(), 8)
	}
}
