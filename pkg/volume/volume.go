// Package volume estimates breast volume with a hemi-ellipsoid model.
package volume

import (
	"fmt"
	"math"

	"github.com/menta2k/brafit/pkg/anthropometry"
	"github.com/menta2k/brafit/pkg/types"
)

// DefaultBreastWidthRatio is single breast width as a share of bi-acromial
// shoulder width (~13cm / 37cm).
const DefaultBreastWidthRatio = 0.35

// DefaultPlausibilityFloor is the smallest relative volume (volume divided by
// torso length cubed) not flagged as implausibly small. About 15cc on a 50cm
// torso.
const DefaultPlausibilityFloor = 0.00012

// Config holds the volume model constants
type Config struct {
	BreastWidthRatio  float64 `json:"breast_width_ratio"`
	PlausibilityFloor float64 `json:"plausibility_floor"`
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		BreastWidthRatio:  DefaultBreastWidthRatio,
		PlausibilityFloor: DefaultPlausibilityFloor,
	}
}

// SemiAxes of the hemi-ellipsoid: a across, b vertical, c projection
type SemiAxes struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
}

// Estimate is a single-breast volume together with the inputs it came from.
// Volume is in cubic centimeters when the measurements are calibrated and in
// cubic normalized units otherwise.
type Estimate struct {
	Volume       float64                    `json:"volume"`
	Relative     float64                    `json:"relative"`
	Axes         SemiAxes                   `json:"axes"`
	Measurements anthropometry.Measurements `json:"measurements"`
}

// Calibrated reports whether Volume is in cubic centimeters
func (e Estimate) Calibrated() bool {
	return e.Measurements.Calibrated
}

// Hemiellipsoid returns (2/3)·π·a·b·c, failing on any non-positive axis
func Hemiellipsoid(a, b, c float64) (float64, error) {
	for _, axis := range []struct {
		name  string
		value float64
	}{{"semi-axis a", a}, {"semi-axis b", b}, {"semi-axis c", c}} {
		if !(axis.value > 0) || math.IsInf(axis.value, 0) {
			return 0, &types.DegenerateGeometryError{Quantity: axis.name, Value: axis.value}
		}
	}
	return 2.0 / 3.0 * math.Pi * a * b * c, nil
}

// Model turns body measurements into a volume estimate
type Model struct {
	config Config
	ratios anthropometry.Config
}

// New creates a model with default constants
func New() *Model {
	return NewWithConfig(DefaultConfig(), anthropometry.DefaultConfig())
}

// NewWithConfig creates a model with custom constants. The anthropometric
// ratios must match the ones used to derive the measurements.
func NewWithConfig(config Config, ratios anthropometry.Config) *Model {
	return &Model{config: config, ratios: ratios}
}

// Axes derives the semi-axes from measurements:
//
//	a = half the breast width, itself a fixed share of shoulder width
//	b = the mid-bust to underbust span (half of the doubled breast height)
//	c = projection from the side photo
func (m *Model) Axes(meas anthropometry.Measurements) SemiAxes {
	return SemiAxes{
		A: meas.ShoulderWidth * m.config.BreastWidthRatio / 2,
		B: (m.ratios.UnderbustRatio - m.ratios.MidBustRatio) * meas.TorsoLength,
		C: meas.Projection,
	}
}

// Estimate computes the volume. Small results are flagged, never rejected.
func (m *Model) Estimate(meas anthropometry.Measurements) (Estimate, types.Warnings, error) {
	axes := m.Axes(meas)
	v, err := Hemiellipsoid(axes.A, axes.B, axes.C)
	if err != nil {
		return Estimate{}, nil, err
	}

	est := Estimate{
		Volume:       v,
		Relative:     v / math.Pow(meas.TorsoLength, 3),
		Axes:         axes,
		Measurements: meas,
	}

	var warnings types.Warnings
	if est.Relative < m.config.PlausibilityFloor {
		warnings = append(warnings, types.Warning{
			Code:   types.WarnImplausiblySmall,
			Detail: fmt.Sprintf("relative volume %.6f below floor %.6f", est.Relative, m.config.PlausibilityFloor),
		})
	}
	return est, warnings, nil
}
