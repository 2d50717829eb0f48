package targeting

import "strings"

// stringCondition compares one string value with the EXACT, CONTAINS or
// REGULAR_EXPRESSION operator. It backs every condition that matches a
// single textual field.
type stringCondition struct {
	baseCondition

	conditionValue string
	hasValue       bool
	operator       Operator
}

func newStringCondition(cd *conditionData, value *string) stringCondition {
	sc := stringCondition{
		baseCondition: newBaseCondition(cd),
		operator:      Operator(cd.MatchType),
	}
	if value != nil {
		sc.conditionValue = *value
		sc.hasValue = true
	}
	return sc
}

func (c stringCondition) match(value string) bool {
	if !c.hasValue {
		return false
	}
	switch c.operator {
	case OperatorExact:
		return value == c.conditionValue
	case OperatorContains:
		return strings.Contains(value, c.conditionValue)
	case OperatorRegex:
		return matchRegex(c.conditionValue, value)
	default:
		return false
	}
}

func (c stringCondition) Check(payload any) bool {
	value, ok := payload.(string)
	return ok && c.match(value)
}

type visitorCodeCondition struct {
	stringCondition
}

func newVisitorCodeCondition(cd *conditionData) Condition {
	return visitorCodeCondition{newStringCondition(cd, cd.VisitorCode)}
}

// numberCondition compares one numeric value with the EQUAL, GREATER or
// LOWER operator.
type numberCondition struct {
	baseCondition

	conditionValue float64
	hasValue       bool
	operator       Operator
}

func newNumberCondition(cd *conditionData, value *float64) numberCondition {
	nc := numberCondition{
		baseCondition: newBaseCondition(cd),
		operator:      Operator(cd.MatchType),
	}
	if value != nil {
		nc.conditionValue = *value
		nc.hasValue = true
	}
	return nc
}

func (c numberCondition) matchCount(value float64) bool {
	if !c.hasValue {
		return false
	}
	switch c.operator {
	case OperatorEqual:
		return value == c.conditionValue
	case OperatorGreater:
		return value > c.conditionValue
	case OperatorLower:
		return value < c.conditionValue
	default:
		return false
	}
}
