package targeting

// segmentCondition delegates to another segment, checked against the same
// visitor.
type segmentCondition struct {
	baseCondition

	segmentID int
}

func newSegmentCondition(cd *conditionData) Condition {
	c := segmentCondition{baseCondition: newBaseCondition(cd), segmentID: nonExistentIdentifier}
	if cd.SegmentID != nil {
		c.segmentID = *cd.SegmentID
	}
	return c
}

func (c segmentCondition) Check(payload any) bool {
	info, ok := payload.(*SegmentInfo)
	if !ok || info.Index == nil {
		return false
	}
	rule, found := info.Index.RuleBySegmentID(c.segmentID)
	return found && rule.Segment.CheckTree(info.Get)
}

// targetFeatureFlagCondition matches visitors already assigned a variation
// of another feature flag, optionally narrowed to one rule or one variation
// key.
type targetFeatureFlagCondition struct {
	baseCondition

	featureFlagID int
	variationKey  *string
	ruleID        *int
}

func newTargetFeatureFlagCondition(cd *conditionData) Condition {
	c := targetFeatureFlagCondition{
		baseCondition: newBaseCondition(cd),
		featureFlagID: nonExistentIdentifier,
		variationKey:  cd.VariationKey,
		ruleID:        cd.RuleID,
	}
	if cd.FeatureFlagID != nil {
		c.featureFlagID = *cd.FeatureFlagID
	}
	return c
}

func (c targetFeatureFlagCondition) Check(payload any) bool {
	info, ok := payload.(*TargetFeatureFlagInfo)
	if !ok || info.Index == nil || len(info.Variations) == 0 {
		return false
	}
	for _, rule := range info.Index.RulesByFeatureFlagID(c.featureFlagID) {
		if c.checkRule(info, rule) {
			return true
		}
	}
	return false
}

func (c targetFeatureFlagCondition) checkRule(info *TargetFeatureFlagInfo, rule RuleInfo) bool {
	if rule.ExperimentID == 0 {
		return false
	}
	if c.ruleID != nil && *c.ruleID != rule.ID {
		return false
	}
	variationID, assigned := info.Variations[rule.ExperimentID]
	if !assigned {
		return false
	}
	if c.variationKey == nil {
		return true
	}
	key, found := info.Index.VariationKeyByID(variationID)
	return found && key == *c.variationKey
}

// exclusiveFeatureFlagCondition targets visitors not yet assigned to any
// other experiment.
type exclusiveFeatureFlagCondition struct {
	baseCondition
}

func newExclusiveFeatureFlagCondition(cd *conditionData) Condition {
	return exclusiveFeatureFlagCondition{baseCondition: newBaseCondition(cd)}
}

func (c exclusiveFeatureFlagCondition) Check(payload any) bool {
	info, ok := payload.(*ExclusiveFeatureFlagInfo)
	if !ok {
		return false
	}
	switch len(info.Variations) {
	case 0:
		return true
	case 1:
		_, onlyCurrent := info.Variations[info.CurrentExperimentID]
		return onlyCurrent
	default:
		return false
	}
}

// sdkLanguageCondition matches the SDK identity and optionally its version,
// compared component-wise.
type sdkLanguageCondition struct {
	baseCondition

	language   string
	version    string
	hasVersion bool
	operator   Operator
}

func newSDKLanguageCondition(cd *conditionData) Condition {
	c := sdkLanguageCondition{
		baseCondition: newBaseCondition(cd),
		language:      cd.SDKLanguage,
		operator:      Operator(cd.VersionMatchType),
	}
	if v, ok := cd.Version.value(); ok {
		c.version = v
		c.hasVersion = true
	}
	return c
}

func (c sdkLanguageCondition) Check(payload any) bool {
	info, ok := payload.(*SDKInfo)
	if !ok || info.Language != c.language {
		return false
	}
	if !c.hasVersion {
		return true
	}
	condMajor, condMinor, condPatch, ok := versionComponents(c.version)
	if !ok {
		return false
	}
	major, minor, patch, ok := versionComponents(info.Version)
	if !ok {
		return false
	}
	switch c.operator {
	case OperatorEqual:
		return major == condMajor && minor == condMinor && patch == condPatch
	case OperatorGreater:
		return major > condMajor ||
			(major == condMajor && minor > condMinor) ||
			(major == condMajor && minor == condMinor && patch > condPatch)
	case OperatorLower:
		return major < condMajor ||
			(major == condMajor && minor < condMinor) ||
			(major == condMajor && minor == condMinor && patch < condPatch)
	default:
		return false
	}
}
