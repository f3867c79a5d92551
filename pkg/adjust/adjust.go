// Package adjust applies the postpartum swelling multiplier to a raw volume.
package adjust

import (
	"fmt"
	"math"

	"github.com/menta2k/brafit/pkg/types"
	"github.com/menta2k/brafit/pkg/volume"
)

// Early postpartum engorgement and milk regulation add roughly 15% volume
// until about six weeks after birth.
const (
	DefaultSwellingThresholdWeeks = 6.0
	DefaultSwellingMultiplier     = 1.15
)

// Policy is the step function: Multiplier applies strictly below
// ThresholdWeeks, 1.0 from ThresholdWeeks on.
type Policy struct {
	ThresholdWeeks float64 `json:"threshold_weeks"`
	Multiplier     float64 `json:"multiplier"`
}

// DefaultPolicy returns the documented threshold and multiplier
func DefaultPolicy() Policy {
	return Policy{
		ThresholdWeeks: DefaultSwellingThresholdWeeks,
		Multiplier:     DefaultSwellingMultiplier,
	}
}

// Adjusted is a volume estimate after the biological multiplier
type Adjusted struct {
	Volume          float64         `json:"volume"`
	Multiplier      float64         `json:"multiplier"`
	Applied         bool            `json:"applied"`
	PostpartumWeeks float64         `json:"postpartum_weeks"`
	Estimate        volume.Estimate `json:"estimate"`
}

// Relative is the adjusted volume divided by torso length cubed
func (a Adjusted) Relative() float64 {
	return a.Estimate.Relative * a.Multiplier
}

// TimeframeError reports an unusable postpartum-weeks value
type TimeframeError struct {
	Weeks float64
}

func (e *TimeframeError) Error() string {
	return fmt.Sprintf("invalid postpartum timeframe: %g weeks (must be a non-negative number)", e.Weeks)
}

func (e *TimeframeError) Unwrap() error {
	return types.ErrInvalidTimeframe
}

// CheckWeeks validates a postpartum-weeks value
func CheckWeeks(weeks float64) error {
	if weeks < 0 || math.IsNaN(weeks) || math.IsInf(weeks, 0) {
		return &TimeframeError{Weeks: weeks}
	}
	return nil
}

// Applies reports whether the multiplier is used for the given weeks
func (p Policy) Applies(weeks float64) bool {
	return weeks < p.ThresholdWeeks
}

// Apply scales the estimate when the timeframe falls inside the swelling window
func (p Policy) Apply(est volume.Estimate, weeks float64) (Adjusted, error) {
	if err := CheckWeeks(weeks); err != nil {
		return Adjusted{}, err
	}

	multiplier := 1.0
	applied := p.Applies(weeks)
	if applied {
		multiplier = p.Multiplier
	}

	return Adjusted{
		Volume:          est.Volume * multiplier,
		Multiplier:      multiplier,
		Applied:         applied,
		PostpartumWeeks: weeks,
		Estimate:        est,
	}, nil
}
