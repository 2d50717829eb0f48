package targeting

import (
	"time"

	"github.com/rafaeljc/verdandi/data"
)

// The visit conditions receive the visitor's visit history. A nil history
// reads as no previous visits.

func previousVisits(payload any) ([]int64, bool) {
	if payload == nil {
		return nil, true
	}
	visits, ok := payload.(*data.VisitorVisits)
	if !ok {
		return nil, false
	}
	return visits.PrevVisits(), true
}

// visitNumberTotalCondition matches the visit count including the current
// visit.
type visitNumberTotalCondition struct {
	numberCondition
}

func newVisitNumberTotalCondition(cd *conditionData) Condition {
	return visitNumberTotalCondition{newNumberCondition(cd, cd.VisitCount)}
}

func (c visitNumberTotalCondition) Check(payload any) bool {
	prev, ok := previousVisits(payload)
	return ok && c.matchCount(float64(len(prev)+1))
}

// visitNumberTodayCondition matches the number of visits started since local
// midnight, including the current visit. The history is ordered most recent
// first, so the scan stops at the first visit before midnight.
type visitNumberTodayCondition struct {
	numberCondition
}

func newVisitNumberTodayCondition(cd *conditionData) Condition {
	return visitNumberTodayCondition{newNumberCondition(cd, cd.VisitCount)}
}

func (c visitNumberTodayCondition) Check(payload any) bool {
	prev, ok := previousVisits(payload)
	if !ok {
		return false
	}
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
		UnixMilli()
	today := 0
	for _, ts := range prev {
		if ts < startOfDay {
			break
		}
		today++
	}
	return c.matchCount(float64(today + 1))
}

// visitorNewReturnCondition distinguishes first-time visitors from returning
// ones.
type visitorNewReturnCondition struct {
	baseCondition

	newVisitor bool
}

func newVisitorNewReturnCondition(cd *conditionData) Condition {
	return visitorNewReturnCondition{
		baseCondition: newBaseCondition(cd),
		newVisitor:    cd.VisitorType == "NEW",
	}
}

func (c visitorNewReturnCondition) Check(payload any) bool {
	prev, ok := previousVisits(payload)
	if !ok {
		return false
	}
	if c.newVisitor {
		return len(prev) == 0
	}
	return len(prev) > 0
}

// timeElapsedCondition matches the milliseconds elapsed since the first or
// the most recent previous visit, depending on the condition type.
type timeElapsedCondition struct {
	numberCondition

	firstVisit bool
}

func newTimeElapsedCondition(cd *conditionData) Condition {
	return timeElapsedCondition{
		numberCondition: newNumberCondition(cd, cd.CountInMillis),
		firstVisit:      ConditionType(cd.TargetingType) == ConditionFirstVisit,
	}
}

func (c timeElapsedCondition) Check(payload any) bool {
	prev, ok := previousVisits(payload)
	if !ok || len(prev) == 0 {
		return false
	}
	visitTime := prev[0]
	if c.firstVisit {
		visitTime = prev[len(prev)-1]
	}
	return c.matchCount(float64(time.Now().UnixMilli() - visitTime))
}
