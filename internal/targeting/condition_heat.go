package targeting

import "github.com/rafaeljc/verdandi/data"

// heatSliceCondition matches a key moment score range. The default bounds
// form an empty range, so a descriptor without bounds never matches.
type heatSliceCondition struct {
	baseCondition

	goalID      int
	keyMomentID int
	lowerBound  float64
	upperBound  float64
}

func newHeatSliceCondition(cd *conditionData) Condition {
	c := heatSliceCondition{
		baseCondition: newBaseCondition(cd),
		goalID:        nonExistentIdentifier,
		keyMomentID:   nonExistentIdentifier,
		lowerBound:    101.0,
		upperBound:    -1.0,
	}
	if cd.GoalID != nil {
		c.goalID = *cd.GoalID
	}
	if cd.KeyMomentID != nil {
		c.keyMomentID = *cd.KeyMomentID
	}
	if cd.LowerBound != nil {
		c.lowerBound = *cd.LowerBound
	}
	if cd.UpperBound != nil {
		c.upperBound = *cd.UpperBound
	}
	return c
}

func (c heatSliceCondition) Check(payload any) bool {
	heat, ok := payload.(*data.KcsHeat)
	if !ok {
		return false
	}
	goalScores, ok := heat.Values()[c.keyMomentID]
	if !ok {
		return false
	}
	score, ok := goalScores[c.goalID]
	return ok && c.lowerBound <= score && score <= c.upperBound
}
