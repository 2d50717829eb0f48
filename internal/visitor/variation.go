// Package visitor keeps per-visitor state: attached data items, assigned
// variations and consent. Visitors live in an expiring in-memory store
// shared by evaluation and tracking.
package visitor

import (
	"strconv"
	"time"

	"github.com/rafaeljc/verdandi/data"
	"github.com/rafaeljc/verdandi/internal/datafile"
	"github.com/rafaeljc/verdandi/internal/wire"
)

// AssignedVariation records that a visitor was bucketed into a variation of
// an experiment. Assignments are delivered to the collector like any other
// visitor data.
type AssignedVariation struct {
	data.SendableBase

	experimentID   int
	variationID    int
	ruleType       datafile.RuleType
	assignmentTime time.Time
}

// NewAssignedVariation returns an assignment made now.
func NewAssignedVariation(experimentID, variationID int, ruleType datafile.RuleType) *AssignedVariation {
	return NewAssignedVariationAt(experimentID, variationID, ruleType, time.Now())
}

// NewAssignedVariationAt returns an assignment with an explicit time, used
// when syncing assignments fetched from the remote visitor profile.
func NewAssignedVariationAt(
	experimentID, variationID int, ruleType datafile.RuleType, assignmentTime time.Time,
) *AssignedVariation {
	return &AssignedVariation{
		SendableBase:   data.NewDuplicationUnsafeBase(),
		experimentID:   experimentID,
		variationID:    variationID,
		ruleType:       ruleType,
		assignmentTime: assignmentTime,
	}
}

func (v *AssignedVariation) DataType() data.Type { return data.TypeAssignedVariation }

// ExperimentID returns the experiment the assignment belongs to.
func (v *AssignedVariation) ExperimentID() int { return v.experimentID }

// VariationID returns the assigned variation.
func (v *AssignedVariation) VariationID() int { return v.variationID }

// RuleType returns the type of the rule that made the assignment.
func (v *AssignedVariation) RuleType() datafile.RuleType { return v.ruleType }

// AssignmentTime returns when the assignment was made.
func (v *AssignedVariation) AssignmentTime() time.Time { return v.assignmentTime }

// IsValid reports whether the assignment is still usable under the rule's
// respool time, given as seconds since the Unix epoch.
func (v *AssignedVariation) IsValid(respoolTime *int) bool {
	return respoolTime == nil || v.assignmentTime.Unix() >= int64(*respoolTime)
}

func (v *AssignedVariation) EncodeQuery() string {
	return wire.NewBuilder(
		wire.NewRawParam(wire.ParamEventType, wire.EventTypeExperiment),
		wire.NewRawParam(wire.ParamExperimentID, strconv.Itoa(v.experimentID)),
		wire.NewRawParam(wire.ParamVariationID, strconv.Itoa(v.variationID)),
		wire.NewParam(wire.ParamNonce, v.Nonce()),
	).String()
}
