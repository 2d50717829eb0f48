package targeting

// RuleInfo is the slice of a delivery rule that targeting conditions need:
// its identity, the experiment it assigns and its targeting segment. An
// ExperimentID of zero means the rule carries no experiment.
type RuleInfo struct {
	ID           int
	ExperimentID int
	Segment      *Segment
}

// CampaignIndex exposes the configuration lookups used by cross-campaign
// conditions. It is implemented by the active configuration snapshot.
type CampaignIndex interface {
	RuleBySegmentID(segmentID int) (RuleInfo, bool)
	RulesByFeatureFlagID(featureFlagID int) []RuleInfo
	VariationKeyByID(variationID int) (string, bool)
}

// SegmentInfo is the condition data for segment conditions: the
// configuration index plus the getter of the visitor being evaluated, so the
// referenced segment is checked against the same visitor.
type SegmentInfo struct {
	Index CampaignIndex
	Get   DataGetter
}

// TargetFeatureFlagInfo is the condition data for target feature flag
// conditions. Variations maps experiment identifiers to the variation
// identifier assigned to the visitor.
type TargetFeatureFlagInfo struct {
	Index      CampaignIndex
	Variations map[int]int
}

// ExclusiveFeatureFlagInfo is the condition data for exclusive feature flag
// conditions.
type ExclusiveFeatureFlagInfo struct {
	CurrentExperimentID int
	Variations          map[int]int
}

// SDKInfo is the condition data for SDK language conditions.
type SDKInfo struct {
	Language string
	Version  string
}

// PageVisit is the condition data slice of one visited page.
type PageVisit struct {
	URL           string
	Title         string
	Count         int
	LastTimestamp int64
}
