package adjust

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/brafit/pkg/types"
	"github.com/menta2k/brafit/pkg/volume"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		weeks   float64
		volume  float64
		applied bool
	}{
		{"four weeks", 4, 575, true},
		{"birth", 0, 575, true},
		{"just under threshold", 5.999, 575, true},
		{"at threshold", 6.0, 500, false},
		{"well after", 26, 500, false},
	}

	p := DefaultPolicy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adj, err := p.Apply(volume.Estimate{Volume: 500}, tt.weeks)
			require.NoError(t, err)
			assert.InDelta(t, tt.volume, adj.Volume, 1e-9)
			assert.Equal(t, tt.applied, adj.Applied)
			assert.Equal(t, tt.weeks, adj.PostpartumWeeks)
			assert.InDelta(t, 500, adj.Estimate.Volume, 1e-12)
		})
	}
}

func TestApply_InvalidTimeframe(t *testing.T) {
	for _, weeks := range []float64{-1, -0.001, math.NaN(), math.Inf(1)} {
		_, err := DefaultPolicy().Apply(volume.Estimate{Volume: 500}, weeks)
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrInvalidTimeframe)
	}
}

func TestApply_CustomPolicy(t *testing.T) {
	p := Policy{ThresholdWeeks: 12, Multiplier: 1.3}
	adj, err := p.Apply(volume.Estimate{Volume: 100, Relative: 0.002}, 8)
	require.NoError(t, err)
	assert.True(t, adj.Applied)
	assert.InDelta(t, 130, adj.Volume, 1e-9)
	assert.InDelta(t, 0.0026, adj.Relative(), 1e-12)
}
