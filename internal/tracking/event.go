// Package tracking batches unsent visitor data into newline-delimited
// tracking requests and reconciles the delivery lifecycle after each
// attempt.
package tracking

import (
	"github.com/rafaeljc/verdandi/data"
	"github.com/rafaeljc/verdandi/internal/wire"
)

// ActivityEvent is a heartbeat line sent for a consenting visitor that has
// no other unsent data, so the collector still registers the visit.
type ActivityEvent struct {
	data.SendableBase
}

var _ data.Sendable = (*ActivityEvent)(nil)

// NewActivityEvent returns a heartbeat event.
func NewActivityEvent() *ActivityEvent {
	return &ActivityEvent{SendableBase: data.NewDuplicationUnsafeBase()}
}

func (e *ActivityEvent) DataType() data.Type { return data.TypeActivity }

func (e *ActivityEvent) EncodeQuery() string {
	return wire.NewBuilder(
		wire.NewRawParam(wire.ParamEventType, wire.EventTypeActivity),
		wire.NewParam(wire.ParamNonce, e.Nonce()),
	).String()
}
