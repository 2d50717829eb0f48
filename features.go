package verdandi

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rafaeljc/verdandi/errs"
	"github.com/rafaeljc/verdandi/internal/datafile"
	"github.com/rafaeljc/verdandi/internal/hashing"
	"github.com/rafaeljc/verdandi/internal/visitor"
)

// offVariationKey is the sentinel key of an experiment's control bucket. A
// feature resolved to it is inactive.
const offVariationKey = "off"

// engineVariationLifetime bounds how long an assignment is replayed into
// the web engine's tracking code.
const engineVariationLifetime = 5 * time.Second

func validateVisitorCode(visitorCode string) error {
	if visitorCode == "" {
		return &errs.VisitorCodeInvalidError{VisitorCode: visitorCode, Reason: "empty"}
	}
	if len(visitorCode) > hashing.VisitorCodeMaxLength {
		return &errs.VisitorCodeInvalidError{
			VisitorCode: visitorCode,
			Reason:      fmt.Sprintf("longer than %d characters", hashing.VisitorCodeMaxLength),
		}
	}
	return nil
}

// GetFeatureVariationKey returns the variation key the visitor is exposed
// to for the given feature flag, assigning and queueing tracking as a side
// effect.
func (c *Client) GetFeatureVariationKey(visitorCode, featureKey string) (string, error) {
	if err := validateVisitorCode(visitorCode); err != nil {
		return "", err
	}
	key, _, _, err := c.featureVariationKey(visitorCode, featureKey, true)
	return key, err
}

// IsFeatureActive reports whether the feature flag is active for the
// visitor. A flag disabled for the environment reads as inactive rather
// than an error.
func (c *Client) IsFeatureActive(visitorCode, featureKey string) (bool, error) {
	if err := validateVisitorCode(visitorCode); err != nil {
		return false, err
	}
	key, _, _, err := c.featureVariationKey(visitorCode, featureKey, true)
	if err != nil {
		var disabled *errs.FeatureEnvironmentDisabledError
		if errors.As(err, &disabled) {
			return false, nil
		}
		return false, err
	}
	return key != offVariationKey, nil
}

// GetFeatureVariationVariables returns the variable values of one variation
// of a feature flag, without evaluating any visitor.
func (c *Client) GetFeatureVariationVariables(featureKey, variationKey string) (map[string]any, error) {
	ff, err := c.snapshot().GetFeatureFlag(featureKey)
	if err != nil {
		return nil, err
	}
	variation := ff.GetVariation(variationKey)
	if variation == nil {
		return nil, &errs.FeatureVariationNotFoundError{FeatureKey: featureKey, VariationKey: variationKey}
	}
	return variableValues(variation), nil
}

// GetFeatureVariable evaluates the feature flag for the visitor and returns
// the named variable of the exposed variation.
func (c *Client) GetFeatureVariable(visitorCode, featureKey, variableKey string) (any, error) {
	if err := validateVisitorCode(visitorCode); err != nil {
		return nil, err
	}
	key, ff, _, err := c.featureVariationKey(visitorCode, featureKey, true)
	if err != nil {
		return nil, err
	}
	variation := ff.GetVariation(key)
	if variation == nil {
		return nil, &errs.FeatureVariationNotFoundError{FeatureKey: featureKey, VariationKey: key}
	}
	variable := variation.VariableByKey(variableKey)
	if variable == nil {
		return nil, &errs.FeatureVariableNotFoundError{
			FeatureKey: featureKey, VariationKey: key, VariableKey: variableKey,
		}
	}
	return variable.Value(), nil
}

// GetActiveFeatures returns the effective variation of every feature flag
// active for the visitor, keyed by feature key. Evaluation here has no side
// effects: nothing is assigned or queued for tracking.
func (c *Client) GetActiveFeatures(visitorCode string) (map[string]Variation, error) {
	if err := validateVisitorCode(visitorCode); err != nil {
		return nil, err
	}
	df := c.snapshot()
	active := map[string]Variation{}
	for featureKey, ff := range df.FeatureFlags() {
		if !ff.EnvironmentEnabled {
			continue
		}
		rule, varByExp := c.calculateVariation(df, visitorCode, ff)
		key := resolveVariationKey(ff, rule, varByExp)
		if key == offVariationKey {
			continue
		}
		result := Variation{Key: key}
		if varByExp != nil {
			result.VariationID = varByExp.VariationID
		}
		if rule != nil && varByExp != nil {
			experimentID := rule.ExperimentID
			result.ExperimentID = &experimentID
		}
		if variation := ff.GetVariation(key); variation != nil {
			result.Variables = variableValues(variation)
		} else {
			result.Variables = map[string]any{}
		}
		active[featureKey] = result
	}
	return active, nil
}

// GetFeatureList returns the keys of every feature flag in the current
// configuration, sorted.
func (c *Client) GetFeatureList() []string {
	flags := c.snapshot().FeatureFlags()
	keys := make([]string, 0, len(flags))
	for key := range flags {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// GetActiveFeatureListForVisitor returns the sorted keys of the feature
// flags active for the visitor.
func (c *Client) GetActiveFeatureListForVisitor(visitorCode string) ([]string, error) {
	active, err := c.GetActiveFeatures(visitorCode)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(active))
	for key := range active {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// GetEngineTrackingCode returns the JavaScript snippet replaying the
// visitor's recent variation assignments into the web engine's queue.
func (c *Client) GetEngineTrackingCode(visitorCode string) string {
	var b strings.Builder
	b.WriteString("window.kameleoonQueue=window.kameleoonQueue||[];")
	v := c.visitors.GetVisitor(visitorCode)
	if v == nil {
		return b.String()
	}
	cutoff := time.Now().Add(-engineVariationLifetime)
	for _, variation := range v.Variations() {
		if variation.AssignmentTime().Before(cutoff) {
			continue
		}
		fmt.Fprintf(&b, "window.kameleoonQueue.push(['Experiments.assignVariation',%d,%d]);",
			variation.ExperimentID(), variation.VariationID())
		fmt.Fprintf(&b, "window.kameleoonQueue.push(['Experiments.trigger',%d,true]);",
			variation.ExperimentID())
	}
	return b.String()
}

// featureVariationKey resolves the variation key of a feature flag for a
// visitor. When track is set, a found assignment is recorded on the visitor
// and the visitor is queued for tracking.
func (c *Client) featureVariationKey(
	visitorCode, featureKey string, track bool,
) (string, *datafile.FeatureFlag, *datafile.Rule, error) {
	df := c.snapshot()
	ff, err := df.GetFeatureFlag(featureKey)
	if err != nil {
		return "", nil, nil, err
	}
	rule, varByExp := c.calculateVariation(df, visitorCode, ff)
	key := resolveVariationKey(ff, rule, varByExp)
	if track {
		if rule != nil && varByExp != nil && varByExp.VariationID != nil {
			v := c.visitors.GetOrCreateVisitor(visitorCode)
			v.AssignVariation(visitor.NewAssignedVariation(rule.ExperimentID, *varByExp.VariationID, rule.Type))
		}
		c.tracking.AddVisitorCode(visitorCode)
	}
	return key, ff, rule, nil
}

// calculateVariation walks the feature flag's rules in stored order and
// returns the first rule capturing the visitor, with the traffic split
// slice it assigns. A targeted delivery whose exposition the visitor's hash
// exceeds ends the walk: its remainder traffic never reaches later rules.
func (c *Client) calculateVariation(
	df *datafile.DataFile, visitorCode string, ff *datafile.FeatureFlag,
) (*datafile.Rule, *datafile.VariationByExposition) {
	codeForHash := visitorCode
	v := c.visitors.GetVisitor(visitorCode)
	if v != nil {
		if mapping, ok := v.MappingIdentifier(); ok {
			codeForHash = mapping
		}
	}

	for _, rule := range ff.Rules {
		if !c.checkTargeting(df, visitorCode, v, rule) {
			continue
		}
		hashRule := hashing.ObtainHashDoubleRule(codeForHash, rule.ID, rule.RespoolTime)
		if hashRule > rule.Exposition {
			if rule.IsTargetedDelivery() {
				break
			}
			continue
		}
		if rule.IsTargetedDelivery() {
			return rule, rule.FirstVariation
		}
		hashVariation := hashing.ObtainHashDoubleRule(codeForHash, rule.ExperimentID, rule.RespoolTime)
		if variation := rule.GetVariation(hashVariation); variation != nil {
			return rule, variation
		}
		// the split left a gap the hash fell into; later rules may still
		// capture, otherwise the default variation key applies
	}
	return nil, nil
}

func (c *Client) checkTargeting(
	df *datafile.DataFile, visitorCode string, v *visitor.Visitor, rule *datafile.Rule,
) bool {
	if rule.Segment == nil {
		return true
	}
	return rule.Segment.CheckTree(c.conditionData(df, visitorCode, v, rule.ExperimentID))
}

func resolveVariationKey(
	ff *datafile.FeatureFlag, rule *datafile.Rule, variation *datafile.VariationByExposition,
) string {
	switch {
	case variation != nil:
		return variation.VariationKey
	case rule != nil && rule.IsExperimentation():
		return offVariationKey
	default:
		return ff.DefaultVariationKey
	}
}

func variableValues(variation *datafile.Variation) map[string]any {
	values := make(map[string]any, len(variation.Variables))
	for _, variable := range variation.Variables {
		values[variable.Key] = variable.Value()
	}
	return values
}
