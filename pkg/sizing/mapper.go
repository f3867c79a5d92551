// Package sizing maps an adjusted breast volume and a band size to a cup
// letter through an explicit calibration table.
package sizing

import (
	"fmt"
	"strconv"

	"github.com/menta2k/brafit/pkg/adjust"
	"github.com/menta2k/brafit/pkg/types"
)

// Size is the mapped output. Band, Cup and Label are empty when no band was
// supplied or the volume is uncalibrated; Descriptor is always set.
type Size struct {
	Band       int    `json:"band,omitempty"`
	Cup        string `json:"cup,omitempty"`
	Label      string `json:"label,omitempty"`
	Descriptor string `json:"descriptor"`
}

// HasLabel reports whether a band/cup label was produced
func (s Size) HasLabel() bool {
	return s.Label != ""
}

// Mapper performs cup lookups against a calibration table
type Mapper struct {
	table *Table
}

// New creates a mapper over the embedded default table
func New() *Mapper {
	return &Mapper{table: DefaultTable()}
}

// NewWithTable creates a mapper over a custom table
func NewWithTable(table *Table) *Mapper {
	return &Mapper{table: table}
}

// Table returns the calibration table in use
func (m *Mapper) Table() *Table {
	return m.table
}

// Map selects a size for the adjusted volume. band <= 0 means no band was
// supplied. Volumes beyond the band's range still yield the largest cup.
func (m *Mapper) Map(adj adjust.Adjusted, band int) (Size, types.Warnings) {
	size := Size{Descriptor: m.table.descriptor(adj.Relative())}

	if band <= 0 {
		return size, nil
	}
	if !adj.Estimate.Calibrated() {
		return size, types.Warnings{{
			Code:   types.WarnBandIgnored,
			Detail: fmt.Sprintf("band %d ignored: cup lookup needs a volume in cc", band),
		}}
	}

	var warnings types.Warnings
	entry := m.table.nearestBand(band)
	if entry.Band != band {
		warnings = append(warnings, types.Warning{
			Code:   types.WarnBandSubstituted,
			Detail: fmt.Sprintf("band %d not in calibration table, using %d", band, entry.Band),
		})
	}

	cup, ok := entry.cup(adj.Volume)
	switch {
	case !ok:
		cup = entry.Cups[0]
		warnings = append(warnings, types.Warning{
			Code:   types.WarnOutOfRangeLow,
			Detail: fmt.Sprintf("%.0fcc below smallest %d%s bound %.0fcc", adj.Volume, entry.Band, cup.Cup, cup.MinCC),
		})
	case adj.Volume > entry.MaxCC:
		cup = entry.Cups[len(entry.Cups)-1]
		warnings = append(warnings, types.Warning{
			Code:   types.WarnOutOfRangeHigh,
			Detail: fmt.Sprintf("%.0fcc above band %d maximum %.0fcc", adj.Volume, entry.Band, entry.MaxCC),
		})
	}

	size.Band = entry.Band
	size.Cup = cup.Cup
	size.Label = strconv.Itoa(entry.Band) + cup.Cup
	return size, warnings
}
