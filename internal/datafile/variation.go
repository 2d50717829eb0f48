// Package datafile holds the parsed client configuration: feature flags,
// their delivery rules and variations, project settings and custom data
// descriptors. A parsed DataFile is immutable and safe for concurrent reads.
package datafile

import (
	"encoding/json"
	"sync"
)

// Variable types.
const (
	VariableBoolean = "BOOLEAN"
	VariableJSON    = "JSON"
	VariableNumber  = "NUMBER"
	VariableString  = "STRING"
)

// Variable is a typed value carried by a variation. JSON variables arrive as
// a string and are parsed on first access.
type Variable struct {
	Key  string `json:"key"`
	Type string `json:"type"`
	Raw  any    `json:"value"`

	jsonOnce  sync.Once
	jsonValue any
}

// Value returns the variable value: bool, float64 or string for scalar
// types, the parsed document for JSON variables, nil for anything else.
func (v *Variable) Value() any {
	switch v.Type {
	case VariableBoolean, VariableNumber, VariableString:
		return v.Raw
	case VariableJSON:
		v.jsonOnce.Do(func() {
			s, ok := v.Raw.(string)
			if !ok {
				return
			}
			var parsed any
			if err := json.Unmarshal([]byte(s), &parsed); err == nil {
				v.jsonValue = parsed
			}
		})
		return v.jsonValue
	default:
		return nil
	}
}

// Variation is a named set of variables of a feature flag.
type Variation struct {
	Key       string      `json:"key"`
	Variables []*Variable `json:"variables"`
}

// VariableByKey returns the variable with the given key, nil when absent.
func (v *Variation) VariableByKey(key string) *Variable {
	for _, variable := range v.Variables {
		if variable.Key == key {
			return variable
		}
	}
	return nil
}

// VariationByExposition is one slice of a rule's traffic split. Exposition
// is the slice's own fraction of the rule's allocated traffic; Rule.GetVariation
// accumulates the fractions while walking the split.
type VariationByExposition struct {
	VariationKey string  `json:"variationKey"`
	VariationID  *int    `json:"variationId"`
	Exposition   float64 `json:"exposition"`
}
