package targeting

// ConditionType identifies the kind of a targeting condition and selects the
// visitor data it is checked against.
type ConditionType string

const (
	ConditionCustomDatum          ConditionType = "CUSTOM_DATUM"
	ConditionTargetFeatureFlag    ConditionType = "TARGET_FEATURE_FLAG"
	ConditionExclusiveFeatureFlag ConditionType = "EXCLUSIVE_FEATURE_FLAG"
	ConditionDeviceType           ConditionType = "DEVICE_TYPE"
	ConditionVisitorCode          ConditionType = "VISITOR_CODE"
	ConditionPageURL              ConditionType = "PAGE_URL"
	ConditionPageViews            ConditionType = "PAGE_VIEWS"
	ConditionPreviousPage         ConditionType = "PREVIOUS_PAGE"
	ConditionPageTitle            ConditionType = "PAGE_TITLE"
	ConditionConversions          ConditionType = "CONVERSIONS"
	ConditionSDKLanguage          ConditionType = "SDK_LANGUAGE"
	ConditionBrowser              ConditionType = "BROWSER"
	ConditionCookie               ConditionType = "COOKIE"
	ConditionGeolocation          ConditionType = "GEOLOCATION"
	ConditionOperatingSystem      ConditionType = "OPERATING_SYSTEM"
	ConditionSegment              ConditionType = "SEGMENT"
	ConditionFirstVisit           ConditionType = "FIRST_VISIT"
	ConditionLastVisit            ConditionType = "LAST_VISIT"
	ConditionVisits               ConditionType = "VISITS"
	ConditionSameDayVisits        ConditionType = "SAME_DAY_VISITS"
	ConditionNewVisitors          ConditionType = "NEW_VISITORS"
	ConditionHeatSlice            ConditionType = "HEAT_SLICE"
	ConditionUnknown              ConditionType = "UNKNOWN"
)

// Operator is a comparison operator carried by a condition.
type Operator string

const (
	OperatorUndefined   Operator = "UNDEFINED"
	OperatorContains    Operator = "CONTAINS"
	OperatorExact       Operator = "EXACT"
	OperatorRegex       Operator = "REGULAR_EXPRESSION"
	OperatorLower       Operator = "LOWER"
	OperatorEqual       Operator = "EQUAL"
	OperatorGreater     Operator = "GREATER"
	OperatorTrue        Operator = "TRUE"
	OperatorFalse       Operator = "FALSE"
	OperatorAmongValues Operator = "AMONG_VALUES"
	OperatorAny         Operator = "ANY"
)

// nonExistentIdentifier stands in for identifiers absent from a condition
// descriptor.
const nonExistentIdentifier = -1

// Condition is a single targeting predicate. Check receives the condition
// data looked up by the condition's type and must tolerate a nil or
// unexpectedly typed value.
type Condition interface {
	Type() ConditionType
	Include() bool
	Check(data any) bool
}

// DataGetter resolves the condition data for a condition type at evaluation
// time.
type DataGetter func(ConditionType) any

type baseCondition struct {
	conditionType ConditionType
	include       bool
}

func newBaseCondition(cd *conditionData) baseCondition {
	include := cd.IsInclude == nil || *cd.IsInclude
	return baseCondition{conditionType: ConditionType(cd.TargetingType), include: include}
}

func (c baseCondition) Type() ConditionType { return c.conditionType }
func (c baseCondition) Include() bool       { return c.include }

// unknownCondition stands in for condition types this build does not know.
// It always targets, which keeps newer configurations usable.
type unknownCondition struct {
	baseCondition
}

func (c unknownCondition) Check(any) bool { return true }
