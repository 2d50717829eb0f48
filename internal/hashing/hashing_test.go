package hashing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

// Fixed vectors shared with the other SDK implementations: the hash must be
// reproducible across processes and languages.
func TestObtainHashDoubleRule_FixedVectors(t *testing.T) {
	tests := []struct {
		name        string
		visitorCode string
		containerID int
		respoolTime *int
		want        float64
	}{
		{"rule id without respool", "visitor1", 100, nil, 0.5003557767088443},
		{"experiment id without respool", "v1", 202, nil, 0.2991724760079066},
		{"respool time appended as suffix", "alice", 42, intPtr(123456), 0.8853558324177585},
		{"zero respool time ignored", "bob", 7, intPtr(0), 0.21904060343874981},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ObtainHashDoubleRule(tt.visitorCode, tt.containerID, tt.respoolTime)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestObtainHashDouble_RespoolTimesSortedByKey(t *testing.T) {
	// "user42" + "1" + values of {"a":70} appended in key order -> "user42170".
	got := ObtainHashDouble("user42", map[string]int{"a": 70}, "1")
	assert.Equal(t, 0.6399112079611877, got)

	// Key order, not insertion order, decides the suffix.
	a := ObtainHashDouble("x", map[string]int{"b": 2, "a": 1}, "5")
	b := ObtainHashDouble("x", map[string]int{"a": 1, "b": 2}, "5")
	assert.Equal(t, a, b)
}

func TestObtainHashDoubleRule_Deterministic(t *testing.T) {
	first := ObtainHashDoubleRule("steady-visitor", 77, nil)
	for i := 0; i < 1000; i++ {
		require.Equal(t, first, ObtainHashDoubleRule("steady-visitor", 77, nil))
	}
}

func TestObtainHashDoubleRule_Distribution(t *testing.T) {
	const n = 20000
	buckets := make([]int, 10)
	for i := 0; i < n; i++ {
		h := ObtainHashDoubleRule(GenerateVisitorCode(), 1, nil)
		require.GreaterOrEqual(t, h, 0.0)
		require.Less(t, h, 1.0)
		buckets[int(h*10)]++
	}
	// Each decile should hold roughly n/10 samples; allow 15% slack.
	for i, count := range buckets {
		assert.InDelta(t, n/10, count, n/10*0.15, "decile %d", i)
	}
}

func TestGenerateVisitorCode(t *testing.T) {
	code := GenerateVisitorCode()
	require.Len(t, code, VisitorCodeLength)
	for _, c := range code {
		assert.Contains(t, "0123456789abcdef", string(c))
	}
	assert.NotEqual(t, code, GenerateVisitorCode())
}
