package datafile

// FeatureFlag is one feature flag with its variations and delivery rules.
type FeatureFlag struct {
	ID                  int          `json:"id"`
	FeatureKey          string       `json:"featureKey"`
	DefaultVariationKey string       `json:"defaultVariationKey"`
	Variations          []*Variation `json:"variations"`
	EnvironmentEnabled  bool         `json:"environmentEnabled"`
	Rules               []*Rule      `json:"rules"`
}

// GetVariation returns the variation with the given key, nil when absent.
func (f *FeatureFlag) GetVariation(key string) *Variation {
	for _, v := range f.Variations {
		if v.Key == key {
			return v
		}
	}
	return nil
}
