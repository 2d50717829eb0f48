package targeting

// newCondition builds the concrete condition for a descriptor. Descriptors
// with an unrecognized targetingType degrade to a condition that always
// targets.
func newCondition(cd *conditionData) Condition {
	if cd == nil {
		return unknownCondition{}
	}
	switch ConditionType(cd.TargetingType) {
	case ConditionCustomDatum:
		return newCustomDatumCondition(cd)
	case ConditionTargetFeatureFlag:
		return newTargetFeatureFlagCondition(cd)
	case ConditionExclusiveFeatureFlag:
		return newExclusiveFeatureFlagCondition(cd)
	case ConditionDeviceType:
		return newDeviceCondition(cd)
	case ConditionVisitorCode:
		return newVisitorCodeCondition(cd)
	case ConditionPageURL:
		return newPageURLCondition(cd)
	case ConditionPageViews:
		return newPageViewNumberCondition(cd)
	case ConditionPreviousPage:
		return newPreviousPageCondition(cd)
	case ConditionPageTitle:
		return newPageTitleCondition(cd)
	case ConditionSDKLanguage:
		return newSDKLanguageCondition(cd)
	case ConditionConversions:
		return newConversionCondition(cd)
	case ConditionBrowser:
		return newBrowserCondition(cd)
	case ConditionCookie:
		return newCookieCondition(cd)
	case ConditionGeolocation:
		return newGeolocationCondition(cd)
	case ConditionOperatingSystem:
		return newOperatingSystemCondition(cd)
	case ConditionSegment:
		return newSegmentCondition(cd)
	case ConditionVisits:
		return newVisitNumberTotalCondition(cd)
	case ConditionSameDayVisits:
		return newVisitNumberTodayCondition(cd)
	case ConditionNewVisitors:
		return newVisitorNewReturnCondition(cd)
	case ConditionFirstVisit, ConditionLastVisit:
		return newTimeElapsedCondition(cd)
	case ConditionHeatSlice:
		return newHeatSliceCondition(cd)
	default:
		return unknownCondition{baseCondition: newBaseCondition(cd)}
	}
}
