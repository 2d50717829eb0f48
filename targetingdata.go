package verdandi

import (
	"github.com/rafaeljc/verdandi/internal/datafile"
	"github.com/rafaeljc/verdandi/internal/network"
	"github.com/rafaeljc/verdandi/internal/targeting"
	"github.com/rafaeljc/verdandi/internal/visitor"
)

// conditionData builds the accessor handing each targeting condition the
// visitor data bucket it inspects. A bucket the visitor does not carry
// yields nil, which conditions resolve per their own absence semantics.
// The getter closes over itself so segment conditions can recurse into
// referenced segments against the same visitor.
func (c *Client) conditionData(
	df *datafile.DataFile, visitorCode string, v *visitor.Visitor, experimentID int,
) targeting.DataGetter {
	var get targeting.DataGetter
	get = func(conditionType targeting.ConditionType) any {
		switch conditionType {
		case targeting.ConditionVisitorCode:
			return visitorCode
		case targeting.ConditionSDKLanguage:
			return &targeting.SDKInfo{Language: network.SDKName, Version: network.SDKVersion}
		case targeting.ConditionSegment:
			return &targeting.SegmentInfo{Index: df, Get: get}
		case targeting.ConditionTargetFeatureFlag:
			return &targeting.TargetFeatureFlagInfo{Index: df, Variations: assignedVariationIDs(v)}
		case targeting.ConditionExclusiveFeatureFlag:
			return &targeting.ExclusiveFeatureFlagInfo{
				CurrentExperimentID: experimentID,
				Variations:          assignedVariationIDs(v),
			}
		}
		if v == nil {
			return nil
		}
		switch conditionType {
		case targeting.ConditionCustomDatum:
			return customDataValues(v)
		case targeting.ConditionBrowser:
			if browser := v.Browser(); browser != nil {
				return browser
			}
		case targeting.ConditionDeviceType:
			if device := v.Device(); device != nil {
				return device
			}
		case targeting.ConditionOperatingSystem:
			if os := v.OperatingSystem(); os != nil {
				return os
			}
		case targeting.ConditionGeolocation:
			if geo := v.Geolocation(); geo != nil {
				return geo
			}
		case targeting.ConditionCookie:
			if cookie := v.Cookie(); cookie != nil {
				return cookie
			}
		case targeting.ConditionConversions:
			return v.Conversions()
		case targeting.ConditionPageURL, targeting.ConditionPageTitle,
			targeting.ConditionPageViews, targeting.ConditionPreviousPage:
			return pageVisits(v)
		case targeting.ConditionFirstVisit, targeting.ConditionLastVisit,
			targeting.ConditionVisits, targeting.ConditionSameDayVisits,
			targeting.ConditionNewVisitors:
			if visits := v.VisitorVisits(); visits != nil {
				return visits
			}
		case targeting.ConditionHeatSlice:
			if heat := v.KcsHeat(); heat != nil {
				return heat
			}
		}
		return nil
	}
	return get
}

func assignedVariationIDs(v *visitor.Visitor) map[int]int {
	if v == nil {
		return nil
	}
	variations := v.Variations()
	ids := make(map[int]int, len(variations))
	for experimentID, variation := range variations {
		ids[experimentID] = variation.VariationID()
	}
	return ids
}

func customDataValues(v *visitor.Visitor) map[int][]string {
	items := v.CustomData()
	values := make(map[int][]string, len(items))
	for id, item := range items {
		values[id] = item.Values()
	}
	return values
}

func pageVisits(v *visitor.Visitor) map[string]targeting.PageVisit {
	stored := v.PageViewVisits()
	visits := make(map[string]targeting.PageVisit, len(stored))
	for url, visit := range stored {
		visits[url] = targeting.PageVisit{
			URL:           visit.PageView.URL(),
			Title:         visit.PageView.Title(),
			Count:         visit.Count,
			LastTimestamp: visit.LastTimestamp,
		}
	}
	return visits
}
