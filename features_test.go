package verdandi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/verdandi/data"
	"github.com/rafaeljc/verdandi/internal/datafile"
)

func TestFeatureVariationKeyBucketing(t *testing.T) {
	// assignments are fixed by the sha-256 bucketing hash of
	// visitorCode+containerID, so these expectations never drift
	tests := []struct {
		visitorCode string
		want        string
	}{
		{visitorCode: "alice", want: "b"},
		{visitorCode: "bob", want: "b"},
		{visitorCode: "carol", want: "b"},
		{visitorCode: "frank", want: "a"},
		{visitorCode: "grace", want: "a"},
		// rule hash 0.92 exceeds the 0.5 exposition
		{visitorCode: "erin", want: "control"},
	}
	for _, tt := range tests {
		t.Run(tt.visitorCode, func(t *testing.T) {
			c, _ := newTestClient(t, testConfigJSON)
			key, err := c.GetFeatureVariationKey(tt.visitorCode, "promo")
			require.NoError(t, err)
			assert.Equal(t, tt.want, key)
		})
	}
}

func TestFeatureVariationKeyIsDeterministic(t *testing.T) {
	c, _ := newTestClient(t, testConfigJSON)
	first, err := c.GetFeatureVariationKey("alice", "promo")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		key, err := c.GetFeatureVariationKey("alice", "promo")
		require.NoError(t, err)
		assert.Equal(t, first, key)
	}
}

func TestFeatureVariationKeyAssignsAndQueues(t *testing.T) {
	c, _ := newTestClient(t, testConfigJSON)

	key, err := c.GetFeatureVariationKey("frank", "promo")
	require.NoError(t, err)
	require.Equal(t, "a", key)

	v := c.visitors.GetVisitor("frank")
	require.NotNil(t, v)
	variation, ok := v.Variations()[1000]
	require.True(t, ok)
	assert.Equal(t, 1, variation.VariationID())
	assert.Equal(t, datafile.RuleExperimentation, variation.RuleType())
	assert.Equal(t, 1, c.tracking.PendingVisitors())
}

func TestFeatureVariationKeySplitGapFallsBackToDefault(t *testing.T) {
	c, _ := newTestClient(t, testConfigJSON)

	// bob's variation hash 0.97 falls past the 0.2 split; with no later
	// rule capturing him the flag's default variation key applies
	key, err := c.GetFeatureVariationKey("bob", "gap")
	require.NoError(t, err)
	assert.Equal(t, "default", key)

	active, err := c.IsFeatureActive("bob", "gap")
	require.NoError(t, err)
	assert.True(t, active)

	// visitor-2's hash 0.03 lands inside the split
	key, err = c.GetFeatureVariationKey("visitor-2", "gap")
	require.NoError(t, err)
	assert.Equal(t, "x", key)
}

func TestTargetedDeliveryCapturesOrBreaks(t *testing.T) {
	c, _ := newTestClient(t, testConfigJSON)

	// frank's rule hash 0.03 is inside the 0.1 exposition
	key, err := c.GetFeatureVariationKey("frank", "blocked")
	require.NoError(t, err)
	assert.Equal(t, "deal", key)

	// alice's 0.32 is outside: the walk stops, the later experiment
	// never sees her
	key, err = c.GetFeatureVariationKey("alice", "blocked")
	require.NoError(t, err)
	assert.Equal(t, "fallback", key)
}

func TestTargetedDeliveryFullExposition(t *testing.T) {
	c, _ := newTestClient(t, testConfigJSON)
	for _, code := range []string{"alice", "bob", "erin"} {
		key, err := c.GetFeatureVariationKey(code, "rollout")
		require.NoError(t, err)
		assert.Equal(t, "on", key)
	}
}

func TestSegmentTargeting(t *testing.T) {
	c, _ := newTestClient(t, testConfigJSON)

	key, err := c.GetFeatureVariationKey("grace", "vip")
	require.NoError(t, err)
	assert.Equal(t, "off", key)

	require.NoError(t, c.AddData("grace", data.NewCustomData(2, "gold")))
	key, err = c.GetFeatureVariationKey("grace", "vip")
	require.NoError(t, err)
	assert.Equal(t, "vip-a", key)
}

func TestMappingIdentifierKeepsAnonymousBucket(t *testing.T) {
	c, _ := newTestClient(t, testConfigJSON)

	key, err := c.GetFeatureVariationKey("visitor-2", "promo")
	require.NoError(t, err)
	require.Equal(t, "b", key)

	// without linking, the user id hashes on its own
	key, err = c.GetFeatureVariationKey("unlinked-user", "promo")
	require.NoError(t, err)
	require.Equal(t, "a", key)

	// linking records the anonymous code as the hash subject
	require.NoError(t, c.AddData("visitor-2", data.NewCustomData(1, "mapped-user")))

	key, err = c.GetFeatureVariationKey("visitor-2", "promo")
	require.NoError(t, err)
	assert.Equal(t, "b", key)

	// the linked identity resolves under the anonymous code too
	key, err = c.GetFeatureVariationKey("mapped-user", "promo")
	require.NoError(t, err)
	assert.Equal(t, "b", key)
}

func TestFeatureErrors(t *testing.T) {
	c, _ := newTestClient(t, testConfigJSON)

	_, err := c.GetFeatureVariationKey("alice", "missing")
	var notFound *FeatureNotFoundError
	require.ErrorAs(t, err, &notFound)

	_, err = c.GetFeatureVariationKey("alice", "dark")
	var disabled *FeatureEnvironmentDisabledError
	require.ErrorAs(t, err, &disabled)

	_, err = c.GetFeatureVariationKey("", "promo")
	var invalid *VisitorCodeInvalidError
	require.ErrorAs(t, err, &invalid)
}

func TestIsFeatureActiveDowngradesDisabled(t *testing.T) {
	c, _ := newTestClient(t, testConfigJSON)

	active, err := c.IsFeatureActive("alice", "dark")
	require.NoError(t, err)
	assert.False(t, active)

	// an unknown feature still errors
	_, err = c.IsFeatureActive("alice", "missing")
	assert.Error(t, err)
}

func TestGetFeatureVariationVariables(t *testing.T) {
	c, _ := newTestClient(t, testConfigJSON)

	variables, err := c.GetFeatureVariationVariables("promo", "a")
	require.NoError(t, err)
	assert.Equal(t, "hello", variables["title"])
	assert.Equal(t, map[string]any{"max": 5.0}, variables["limits"])

	_, err = c.GetFeatureVariationVariables("promo", "nope")
	var varNotFound *FeatureVariationNotFoundError
	require.ErrorAs(t, err, &varNotFound)
}

func TestGetFeatureVariable(t *testing.T) {
	c, _ := newTestClient(t, testConfigJSON)

	value, err := c.GetFeatureVariable("frank", "promo", "title")
	require.NoError(t, err)
	assert.Equal(t, "hello", value)

	_, err = c.GetFeatureVariable("frank", "promo", "missing")
	var notFound *FeatureVariableNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestGetActiveFeatures(t *testing.T) {
	c, _ := newTestClient(t, testConfigJSON)

	active, err := c.GetActiveFeatures("visitor-2")
	require.NoError(t, err)

	require.Len(t, active, 4)
	assert.Equal(t, "b", active["promo"].Key)
	assert.Equal(t, "on", active["rollout"].Key)
	assert.Equal(t, "x", active["gap"].Key)
	assert.Equal(t, "deal", active["blocked"].Key)

	promo := active["promo"]
	require.NotNil(t, promo.VariationID)
	assert.Equal(t, 2, *promo.VariationID)
	require.NotNil(t, promo.ExperimentID)
	assert.Equal(t, 1000, *promo.ExperimentID)
	assert.Equal(t, "hi", promo.Variables["title"])

	// active feature listing has no evaluation side effects
	assert.Equal(t, 0, c.tracking.PendingVisitors())
	assert.Nil(t, c.visitors.GetVisitor("visitor-2"))
}

func TestGetFeatureList(t *testing.T) {
	c, _ := newTestClient(t, testConfigJSON)
	assert.Equal(t, []string{"blocked", "dark", "gap", "promo", "rollout", "vip"}, c.GetFeatureList())
}

func TestGetActiveFeatureListForVisitor(t *testing.T) {
	c, _ := newTestClient(t, testConfigJSON)

	keys, err := c.GetActiveFeatureListForVisitor("visitor-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"blocked", "gap", "promo", "rollout"}, keys)
}

func TestGetEngineTrackingCode(t *testing.T) {
	c, _ := newTestClient(t, testConfigJSON)

	const queueInit = "window.kameleoonQueue=window.kameleoonQueue||[];"
	assert.Equal(t, queueInit, c.GetEngineTrackingCode("nobody"))

	_, err := c.GetFeatureVariationKey("frank", "promo")
	require.NoError(t, err)

	code := c.GetEngineTrackingCode("frank")
	assert.Contains(t, code, queueInit)
	assert.Contains(t, code, "window.kameleoonQueue.push(['Experiments.assignVariation',1000,1]);")
	assert.Contains(t, code, "window.kameleoonQueue.push(['Experiments.trigger',1000,true]);")
}
