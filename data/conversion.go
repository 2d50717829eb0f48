package data

import (
	"strconv"

	"github.com/rafaeljc/verdandi/internal/wire"
)

// Conversion records that the visitor reached a goal, optionally with a
// revenue amount. A negative conversion cancels a previously tracked one.
// Conversions keep their nonce across resends so the collector can
// deduplicate redelivered lines.
type Conversion struct {
	SendableBase

	goalID   int
	revenue  float64
	negative bool
}

// NewConversion returns a conversion for the given goal.
func NewConversion(goalID int) *Conversion {
	return &Conversion{SendableBase: NewDuplicationSafeBase(), goalID: goalID}
}

// NewConversionWithRevenue returns a conversion carrying a revenue amount.
func NewConversionWithRevenue(goalID int, revenue float64) *Conversion {
	return &Conversion{SendableBase: NewDuplicationSafeBase(), goalID: goalID, revenue: revenue}
}

// Negate marks the conversion as cancelling and returns the receiver.
func (c *Conversion) Negate() *Conversion {
	c.negative = true
	return c
}

func (c *Conversion) DataType() Type { return TypeConversion }

// GoalID returns the goal the conversion belongs to.
func (c *Conversion) GoalID() int { return c.goalID }

// Revenue returns the revenue amount, zero when none was given.
func (c *Conversion) Revenue() float64 { return c.revenue }

// Negative reports whether the conversion cancels a previous one.
func (c *Conversion) Negative() bool { return c.negative }

func (c *Conversion) EncodeQuery() string {
	return wire.NewBuilder(
		wire.NewRawParam(wire.ParamEventType, wire.EventTypeConversion),
		wire.NewRawParam(wire.ParamGoalID, strconv.Itoa(c.goalID)),
		wire.NewRawParam(wire.ParamRevenue, strconv.FormatFloat(c.revenue, 'f', -1, 64)),
		wire.NewRawParam(wire.ParamNegative, strconv.FormatBool(c.negative)),
		c.nonceParam(),
	).String()
}
