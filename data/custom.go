package data

import (
	"encoding/json"
	"strconv"

	"github.com/rafaeljc/verdandi/internal/wire"
)

// CustomData is an indexed set of string values attached to a visitor. The
// index refers to a custom data dimension configured for the project. Adding
// custom data with an index that already holds values replaces them.
type CustomData struct {
	SendableBase

	id     int
	values []string
}

// NewCustomData returns custom data for the given dimension index.
func NewCustomData(id int, values ...string) *CustomData {
	return &CustomData{
		SendableBase: NewDuplicationUnsafeBase(),
		id:           id,
		values:       values,
	}
}

func (c *CustomData) DataType() Type { return TypeCustomData }

// ID returns the custom data dimension index.
func (c *CustomData) ID() int { return c.id }

// Values returns the attached values.
func (c *CustomData) Values() []string { return c.values }

func (c *CustomData) EncodeQuery() string {
	if len(c.values) == 0 {
		return ""
	}
	counts := make(map[string]int, len(c.values))
	for _, v := range c.values {
		counts[v] = 1
	}
	encoded, err := json.Marshal(counts)
	if err != nil {
		return ""
	}
	return wire.NewBuilder(
		wire.NewRawParam(wire.ParamEventType, wire.EventTypeCustomData),
		wire.NewRawParam(wire.ParamIndex, strconv.Itoa(c.id)),
		wire.NewParam(wire.ParamValuesCountMap, string(encoded)),
		wire.NewRawParam(wire.ParamOverwrite, "true"),
		c.nonceParam(),
	).String()
}

// MappingIdentifier wraps the custom data that links an anonymous visitor to
// an application-provided identity. It is re-sent with every batch so the
// collector can keep the association alive, hence it never leaves the unsent
// state.
type MappingIdentifier struct {
	*CustomData
}

// NewMappingIdentifier wraps the given custom data as a mapping identifier.
func NewMappingIdentifier(cd *CustomData) *MappingIdentifier {
	return &MappingIdentifier{CustomData: cd}
}

func (m *MappingIdentifier) Unsent() bool       { return true }
func (m *MappingIdentifier) Transmitting() bool { return false }
func (m *MappingIdentifier) Sent() bool         { return false }

func (m *MappingIdentifier) MarkAsUnsent()       {}
func (m *MappingIdentifier) MarkAsTransmitting() {}
func (m *MappingIdentifier) MarkAsSent()         {}

func (m *MappingIdentifier) EncodeQuery() string {
	line := m.CustomData.EncodeQuery()
	if line == "" {
		return ""
	}
	return line + "&" + wire.NewRawParam(wire.ParamMappingIdent, "true").String()
}
