package targeting

import (
	"bytes"
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"strings"
)

// customDatumCondition matches the values of one custom data dimension. The
// condition data is the visitor's custom data values keyed by dimension
// index. A dimension the visitor never set only matches the UNDEFINED
// operator.
type customDatumCondition struct {
	baseCondition

	index    int
	operator Operator
	value    string
	hasValue bool
}

func newCustomDatumCondition(cd *conditionData) Condition {
	c := customDatumCondition{
		baseCondition: newBaseCondition(cd),
		index:         nonExistentIdentifier,
		operator:      Operator(cd.ValueMatchType),
	}
	if raw, ok := cd.CustomDataIndex.value(); ok {
		if index, err := strconv.Atoi(raw); err == nil {
			c.index = index
		}
	}
	if v, ok := cd.Value.value(); ok {
		c.value = v
		c.hasValue = true
	}
	return c
}

func (c customDatumCondition) Check(payload any) bool {
	byIndex, ok := payload.(map[int][]string)
	if !ok {
		return false
	}
	values, present := byIndex[c.index]
	if !present {
		return c.operator == OperatorUndefined
	}
	return c.checkValues(values)
}

func (c customDatumCondition) checkValues(values []string) bool {
	switch c.operator {
	case OperatorRegex:
		return slices.ContainsFunc(values, func(v string) bool {
			return matchRegex(c.value, v)
		})
	case OperatorContains:
		return slices.ContainsFunc(values, func(v string) bool {
			return strings.Contains(v, c.value)
		})
	case OperatorExact:
		return slices.Contains(values, c.value)
	case OperatorEqual:
		return c.compareNumeric(values, func(v, cv float64) bool {
			return math.Abs(v-cv) < 1e-9
		})
	case OperatorGreater:
		return c.compareNumeric(values, func(v, cv float64) bool { return v > cv })
	case OperatorLower:
		return c.compareNumeric(values, func(v, cv float64) bool { return v < cv })
	case OperatorTrue:
		return slices.Contains(values, "true")
	case OperatorFalse:
		return slices.Contains(values, "false")
	case OperatorAmongValues:
		return c.amongValues(values)
	default:
		return false
	}
}

func (c customDatumCondition) compareNumeric(values []string, cmp func(v, cv float64) bool) bool {
	conditionValue, err := strconv.ParseFloat(c.value, 64)
	if err != nil {
		return false
	}
	for _, raw := range values {
		v, err := strconv.ParseFloat(raw, 64)
		if err == nil && cmp(v, conditionValue) {
			return true
		}
	}
	return false
}

// amongValues parses the condition value as a JSON array and matches any of
// the visitor's values against the textual form of its elements.
func (c customDatumCondition) amongValues(values []string) bool {
	dec := json.NewDecoder(bytes.NewReader([]byte(c.value)))
	dec.UseNumber()
	var matches []any
	if err := dec.Decode(&matches); err != nil {
		return false
	}
	accepted := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		switch v := m.(type) {
		case bool:
			accepted[strconv.FormatBool(v)] = struct{}{}
		case json.Number:
			accepted[v.String()] = struct{}{}
		case string:
			accepted[v] = struct{}{}
		}
	}
	for _, v := range values {
		if _, ok := accepted[v]; ok {
			return true
		}
	}
	return false
}
