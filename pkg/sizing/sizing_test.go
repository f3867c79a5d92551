package sizing

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/brafit/pkg/adjust"
	"github.com/menta2k/brafit/pkg/anthropometry"
	"github.com/menta2k/brafit/pkg/types"
	"github.com/menta2k/brafit/pkg/volume"
)

func adjusted(cc, relative float64, calibrated bool) adjust.Adjusted {
	return adjust.Adjusted{
		Volume:     cc,
		Multiplier: 1,
		Estimate: volume.Estimate{
			Volume:       cc,
			Relative:     relative,
			Measurements: anthropometry.Measurements{Calibrated: calibrated},
		},
	}
}

func TestDefaultTable(t *testing.T) {
	table := DefaultTable()
	assert.Equal(t, []int{28, 30, 32, 34, 36, 38, 40, 42, 44}, table.BandSizes())
	assert.NoError(t, table.Validate())
}

func TestMap_CupLookup(t *testing.T) {
	tests := []struct {
		name  string
		band  int
		cc    float64
		label string
		warn  types.WarningCode
	}{
		{name: "inside C", band: 34, cc: 450, label: "34C"},
		{name: "exact lower bound", band: 34, cc: 400, label: "34C"},
		{name: "just below bound", band: 34, cc: 399.9, label: "34B"},
		{name: "tiny volume", band: 34, cc: 3, label: "34AA"},
		{name: "at maximum", band: 34, cc: 1310, label: "34G"},
		{name: "over maximum", band: 34, cc: 1400, label: "34G", warn: types.WarnOutOfRangeHigh},
		{name: "odd band tie goes down", band: 35, cc: 450, label: "34C", warn: types.WarnBandSubstituted},
		{name: "band above table", band: 50, cc: 900, label: "44DD", warn: types.WarnBandSubstituted},
	}

	m := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, warnings := m.Map(adjusted(tt.cc, 0.004, true), tt.band)
			assert.Equal(t, tt.label, size.Label)
			assert.True(t, size.HasLabel())
			if tt.warn == "" {
				assert.Empty(t, warnings)
			} else {
				assert.True(t, warnings.Has(tt.warn), "warnings: %v", warnings)
			}
		})
	}
}

func TestMap_NoBandGivesDescriptorOnly(t *testing.T) {
	size, warnings := New().Map(adjusted(450, 0.004, true), 0)
	assert.Empty(t, warnings)
	assert.False(t, size.HasLabel())
	assert.Empty(t, size.Cup)
	assert.Zero(t, size.Band)
	assert.Equal(t, "average", size.Descriptor)
}

func TestMap_UncalibratedIgnoresBand(t *testing.T) {
	size, warnings := New().Map(adjusted(0.002, 0.006, false), 34)
	assert.False(t, size.HasLabel())
	assert.Equal(t, "full", size.Descriptor)
	assert.Equal(t, []types.WarningCode{types.WarnBandIgnored}, warnings.Codes())
}

func TestMap_Descriptors(t *testing.T) {
	tests := []struct {
		relative float64
		label    string
	}{
		{0, "petite"},
		{0.001, "petite"},
		{0.003, "average"},
		{0.0049, "average"},
		{0.006, "full"},
		{0.02, "very_full"},
	}
	m := New()
	for _, tt := range tests {
		size, _ := m.Map(adjusted(100, tt.relative, true), 0)
		assert.Equal(t, tt.label, size.Descriptor, "relative %.4f", tt.relative)
	}
}

func TestMap_BelowCustomTable(t *testing.T) {
	table, err := ParseTable(strings.NewReader(`{
		"unit": "cc",
		"bands": [{"band": 32, "max_cc": 600, "cups": [{"min_cc": 200, "cup": "A"}, {"min_cc": 350, "cup": "B"}]}],
		"descriptors": [{"min_relative": 0, "label": "any"}]
	}`))
	require.NoError(t, err)

	size, warnings := NewWithTable(table).Map(adjusted(120, 0.001, true), 32)
	assert.Equal(t, "32A", size.Label)
	assert.True(t, warnings.Has(types.WarnOutOfRangeLow))
}

func TestParseTable_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad unit", `{"unit":"ml","bands":[{"band":32,"max_cc":600,"cups":[{"min_cc":0,"cup":"A"}]}],"descriptors":[{"min_relative":0,"label":"x"}]}`},
		{"no bands", `{"unit":"cc","bands":[],"descriptors":[{"min_relative":0,"label":"x"}]}`},
		{"non monotonic cups", `{"unit":"cc","bands":[{"band":32,"max_cc":600,"cups":[{"min_cc":0,"cup":"A"},{"min_cc":0,"cup":"B"}]}],"descriptors":[{"min_relative":0,"label":"x"}]}`},
		{"max below last cup", `{"unit":"cc","bands":[{"band":32,"max_cc":100,"cups":[{"min_cc":0,"cup":"A"},{"min_cc":200,"cup":"B"}]}],"descriptors":[{"min_relative":0,"label":"x"}]}`},
		{"duplicate band", `{"unit":"cc","bands":[{"band":32,"max_cc":600,"cups":[{"min_cc":0,"cup":"A"}]},{"band":32,"max_cc":600,"cups":[{"min_cc":0,"cup":"A"}]}],"descriptors":[{"min_relative":0,"label":"x"}]}`},
		{"no descriptors", `{"unit":"cc","bands":[{"band":32,"max_cc":600,"cups":[{"min_cc":0,"cup":"A"}]}],"descriptors":[]}`},
		{"unknown field", `{"unit":"cc","sizes":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTable(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestParseTable_SortsBands(t *testing.T) {
	table, err := ParseTable(strings.NewReader(`{"unit":"cc","bands":[
		{"band":36,"max_cc":600,"cups":[{"min_cc":0,"cup":"A"}]},
		{"band":32,"max_cc":600,"cups":[{"min_cc":0,"cup":"A"}]}
	],"descriptors":[{"min_relative":0,"label":"x"}]}`))
	require.NoError(t, err)
	assert.Equal(t, []int{32, 36}, table.BandSizes())
}

func TestLoadTable(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "table.json")
	require.NoError(t, os.WriteFile(path, defaultTableJSON, 0o644))
	table, err := LoadTable(path)
	require.NoError(t, err)
	assert.Len(t, table.Bands, 9)

	_, err = LoadTable(filepath.Join(dir, "table.yaml"))
	assert.Error(t, err)

	_, err = LoadTable(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
