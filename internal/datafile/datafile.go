package datafile

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/rafaeljc/verdandi/errs"
	"github.com/rafaeljc/verdandi/internal/targeting"
)

const consentTypeRequired = "REQUIRED"

// Settings are the project-level switches delivered with the configuration.
type Settings struct {
	RealTimeUpdate  bool
	ConsentRequired bool
	DataAPIDomain   string
}

type settingsJSON struct {
	RealTimeUpdate bool   `json:"realTimeUpdate"`
	ConsentType    string `json:"consentType"`
	DataAPIDomain  string `json:"dataApiDomain"`
}

// DataFile is one immutable configuration snapshot.
type DataFile struct {
	environment string
	settings    Settings

	featureFlags    map[string]*FeatureFlag
	featureFlagByID map[int]*FeatureFlag
	ruleBySegmentID map[int]*Rule
	variationByID   map[int]*VariationByExposition

	hasAnyTargetedDeliveryRule bool
	customDataInfo             *CustomDataInfo
}

// Default returns an empty snapshot used until the first configuration
// fetch succeeds.
func Default(environment string) *DataFile {
	df := &DataFile{environment: environment, customDataInfo: newCustomDataInfo(nil, slog.Default())}
	df.collectIndices(nil)
	return df
}

// Parse builds a snapshot from the configuration payload.
func Parse(environment string, payload []byte, logger *slog.Logger) (*DataFile, error) {
	var raw struct {
		Configuration *settingsJSON     `json:"configuration"`
		FeatureFlags  []*FeatureFlag    `json:"featureFlags"`
		CustomData    []customDataEntry `json:"customData"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}

	df := &DataFile{environment: environment}
	if raw.Configuration != nil {
		df.settings = Settings{
			RealTimeUpdate:  raw.Configuration.RealTimeUpdate,
			ConsentRequired: raw.Configuration.ConsentType == consentTypeRequired,
			DataAPIDomain:   raw.Configuration.DataAPIDomain,
		}
	}
	df.customDataInfo = newCustomDataInfo(raw.CustomData, logger)
	df.collectIndices(raw.FeatureFlags)
	return df, nil
}

func (d *DataFile) collectIndices(featureFlags []*FeatureFlag) {
	d.featureFlags = make(map[string]*FeatureFlag, len(featureFlags))
	d.featureFlagByID = make(map[int]*FeatureFlag, len(featureFlags))
	d.ruleBySegmentID = map[int]*Rule{}
	d.variationByID = map[int]*VariationByExposition{}

	for _, ff := range featureFlags {
		d.featureFlags[ff.FeatureKey] = ff
		d.featureFlagByID[ff.ID] = ff
		// evaluation walks rules in their declared order, which the
		// payload is not guaranteed to follow
		sort.SliceStable(ff.Rules, func(i, j int) bool {
			return ff.Rules[i].Order < ff.Rules[j].Order
		})
		for _, rule := range ff.Rules {
			d.ruleBySegmentID[rule.SegmentID] = rule
			if ff.EnvironmentEnabled && rule.IsTargetedDelivery() {
				d.hasAnyTargetedDeliveryRule = true
			}
			for _, variation := range rule.VariationByExposition {
				if variation.VariationID != nil {
					d.variationByID[*variation.VariationID] = variation
				}
			}
		}
	}
}

// Environment returns the environment the snapshot was fetched for.
func (d *DataFile) Environment() string { return d.environment }

// Settings returns the project settings.
func (d *DataFile) Settings() Settings { return d.settings }

// CustomDataInfo returns the custom data dimension descriptors.
func (d *DataFile) CustomDataInfo() *CustomDataInfo { return d.customDataInfo }

// FeatureFlags returns all feature flags keyed by feature key.
func (d *DataFile) FeatureFlags() map[string]*FeatureFlag { return d.featureFlags }

// HasAnyTargetedDeliveryRule reports whether any environment-enabled flag
// carries a targeted delivery rule. It decides whether non-consenting
// visitors still produce tracking.
func (d *DataFile) HasAnyTargetedDeliveryRule() bool { return d.hasAnyTargetedDeliveryRule }

// GetFeatureFlag returns the feature flag for the given key, or a typed
// error when the key is unknown or the flag is disabled for the snapshot's
// environment.
func (d *DataFile) GetFeatureFlag(featureKey string) (*FeatureFlag, error) {
	ff, ok := d.featureFlags[featureKey]
	if !ok {
		return nil, &errs.FeatureNotFoundError{FeatureKey: featureKey}
	}
	if !ff.EnvironmentEnabled {
		return nil, &errs.FeatureEnvironmentDisabledError{FeatureKey: featureKey, Environment: d.environment}
	}
	return ff, nil
}

// RuleBySegmentID implements targeting.CampaignIndex.
func (d *DataFile) RuleBySegmentID(segmentID int) (targeting.RuleInfo, bool) {
	rule, ok := d.ruleBySegmentID[segmentID]
	if !ok {
		return targeting.RuleInfo{}, false
	}
	return ruleInfo(rule), true
}

// RulesByFeatureFlagID implements targeting.CampaignIndex.
func (d *DataFile) RulesByFeatureFlagID(featureFlagID int) []targeting.RuleInfo {
	ff, ok := d.featureFlagByID[featureFlagID]
	if !ok {
		return nil
	}
	infos := make([]targeting.RuleInfo, 0, len(ff.Rules))
	for _, rule := range ff.Rules {
		infos = append(infos, ruleInfo(rule))
	}
	return infos
}

// VariationKeyByID implements targeting.CampaignIndex.
func (d *DataFile) VariationKeyByID(variationID int) (string, bool) {
	variation, ok := d.variationByID[variationID]
	if !ok {
		return "", false
	}
	return variation.VariationKey, true
}

// VariationByID returns the traffic split slice carrying the given
// variation identifier.
func (d *DataFile) VariationByID(variationID int) (*VariationByExposition, bool) {
	variation, ok := d.variationByID[variationID]
	return variation, ok
}

func ruleInfo(rule *Rule) targeting.RuleInfo {
	return targeting.RuleInfo{ID: rule.ID, ExperimentID: rule.ExperimentID, Segment: rule.Segment}
}
