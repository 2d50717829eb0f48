package datafile

import (
	"encoding/json"

	"github.com/rafaeljc/verdandi/internal/targeting"
)

// RuleType distinguishes experiments from targeted deliveries.
type RuleType string

const (
	RuleUnknown          RuleType = ""
	RuleExperimentation  RuleType = "EXPERIMENTATION"
	RuleTargetedDelivery RuleType = "TARGETED_DELIVERY"
)

// Rule is one delivery rule of a feature flag. Rules are evaluated in order;
// the exposition is the fraction of targeted traffic the rule captures.
type Rule struct {
	ID                    int
	Order                 int
	Type                  RuleType
	Exposition            float64
	ExperimentID          int
	RespoolTime           *int
	VariationByExposition []*VariationByExposition
	FirstVariation        *VariationByExposition
	Segment               *targeting.Segment
	SegmentID             int
}

func (r *Rule) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID                    int                      `json:"id"`
		Order                 int                      `json:"order"`
		Type                  string                   `json:"type"`
		Exposition            float64                  `json:"exposition"`
		ExperimentID          int                      `json:"experimentId"`
		RespoolTime           *int                     `json:"respoolTime"`
		VariationByExposition []*VariationByExposition `json:"variationByExposition"`
		Segment               *targeting.Segment       `json:"segment"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	r.ID = raw.ID
	r.Order = raw.Order
	r.Exposition = raw.Exposition
	r.ExperimentID = raw.ExperimentID
	r.RespoolTime = raw.RespoolTime
	r.VariationByExposition = raw.VariationByExposition
	r.Segment = raw.Segment

	switch RuleType(raw.Type) {
	case RuleExperimentation, RuleTargetedDelivery:
		r.Type = RuleType(raw.Type)
	default:
		r.Type = RuleUnknown
	}
	if len(r.VariationByExposition) > 0 {
		r.FirstVariation = r.VariationByExposition[0]
	}
	r.SegmentID = -1
	if r.Segment != nil {
		r.SegmentID = r.Segment.ID
	}
	return nil
}

// GetVariation walks the cumulative traffic split and returns the first
// slice reaching the given hash, nil when the hash falls past the split.
func (r *Rule) GetVariation(hashDouble float64) *VariationByExposition {
	total := 0.0
	for _, v := range r.VariationByExposition {
		total += v.Exposition
		if total >= hashDouble {
			return v
		}
	}
	return nil
}

// IsExperimentation reports whether the rule runs an experiment.
func (r *Rule) IsExperimentation() bool { return r.Type == RuleExperimentation }

// IsTargetedDelivery reports whether the rule is a targeted delivery.
func (r *Rule) IsTargetedDelivery() bool { return r.Type == RuleTargetedDelivery }
