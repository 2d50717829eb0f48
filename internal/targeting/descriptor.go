package targeting

import (
	"encoding/json"
	"strconv"
)

// flexString accepts a JSON string, number or boolean and keeps its textual
// form. Configuration descriptors are not strict about scalar types.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	var v bool
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexString(strconv.FormatBool(v))
	return nil
}

func (f *flexString) value() (string, bool) {
	if f == nil {
		return "", false
	}
	return string(*f), true
}

// conditionData is the wire descriptor of a single targeting condition. Only
// the fields relevant to the condition's targetingType are populated.
type conditionData struct {
	TargetingType    string      `json:"targetingType"`
	IsInclude        *bool       `json:"isInclude"`
	Value            *flexString `json:"value"`
	CustomDataIndex  *flexString `json:"customDataIndex"`
	ValueMatchType   string      `json:"valueMatchType"`
	NameMatchType    string      `json:"nameMatchType"`
	MatchType        string      `json:"matchType"`
	VersionMatchType string      `json:"versionMatchType"`
	Name             *flexString `json:"name"`
	Browser          string      `json:"browser"`
	Version          *flexString `json:"version"`
	Device           string      `json:"device"`
	OS               string      `json:"os"`
	Country          *string     `json:"country"`
	Region           *string     `json:"region"`
	City             *string     `json:"city"`
	GoalID           *int        `json:"goalId"`
	VisitorCode      *string     `json:"visitorCode"`
	URL              *string     `json:"url"`
	Title            *string     `json:"title"`
	PageCount        *float64    `json:"pageCount"`
	VisitCount       *float64    `json:"visitCount"`
	CountInMillis    *float64    `json:"countInMillis"`
	VisitorType      string      `json:"visitorType"`
	SDKLanguage      string      `json:"sdkLanguage"`
	SegmentID        *int        `json:"segmentId"`
	FeatureFlagID    *int        `json:"featureFlagId"`
	VariationKey     *string     `json:"variationKey"`
	RuleID           *int        `json:"ruleId"`
	KeyMomentID      *int        `json:"keyMomentId"`
	LowerBound       *float64    `json:"lowerBound"`
	UpperBound       *float64    `json:"upperBound"`
}

// conditionsData is the wire form of a segment's targeting expression. The
// first level groups condition blocks, and each block chains its conditions
// with its own operators.
type conditionsData struct {
	FirstLevelOrOperators []bool        `json:"firstLevelOrOperators"`
	FirstLevel            []secondLevel `json:"firstLevel"`
}

type secondLevel struct {
	OrOperators []bool           `json:"orOperators"`
	Conditions  []*conditionData `json:"conditions"`
}
