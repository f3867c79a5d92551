package engine

import (
	"errors"

	"github.com/menta2k/brafit/pkg/adjust"
	"github.com/menta2k/brafit/pkg/anthropometry"
	"github.com/menta2k/brafit/pkg/landmark"
	"github.com/menta2k/brafit/pkg/volume"
)

// Policy collects every tunable constant of the pipeline. It is plain data so
// recalibration happens in configuration, not in pipeline code.
type Policy struct {
	Landmarks     landmark.Config      `json:"landmarks"`
	Anthropometry anthropometry.Config `json:"anthropometry"`
	Volume        volume.Config        `json:"volume"`
	Swelling      adjust.Policy        `json:"swelling"`
}

// DefaultPolicy returns the documented defaults of every stage
func DefaultPolicy() Policy {
	return Policy{
		Landmarks:     landmark.DefaultConfig(),
		Anthropometry: anthropometry.DefaultConfig(),
		Volume:        volume.DefaultConfig(),
		Swelling:      adjust.DefaultPolicy(),
	}
}

// Validate checks the constants are within meaningful ranges
func (p Policy) Validate() error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}

	l, a, v, s := p.Landmarks, p.Anthropometry, p.Volume, p.Swelling
	check(l.MinConfidence >= 0 && l.MinConfidence <= 1, "landmarks.min_confidence must be between 0 and 1")
	check(l.ConfidenceSpread >= 0 && l.ConfidenceSpread <= 1, "landmarks.confidence_spread must be between 0 and 1")
	check(a.MidBustRatio > 0 && a.MidBustRatio < 1, "anthropometry.mid_bust_ratio must be between 0 and 1")
	check(a.UnderbustRatio > 0 && a.UnderbustRatio < 1, "anthropometry.underbust_ratio must be between 0 and 1")
	check(a.UnderbustRatio > a.MidBustRatio, "anthropometry.underbust_ratio must exceed mid_bust_ratio")
	check(a.ProjectionRatio > 0 && a.ProjectionRatio <= 1, "anthropometry.projection_ratio must be in (0, 1]")
	check(a.ScaleTolerance > 0, "anthropometry.scale_tolerance must be positive")
	check(a.HeadTopRatio >= 1, "anthropometry.head_top_ratio must be at least 1")
	check(v.BreastWidthRatio > 0 && v.BreastWidthRatio <= 1, "volume.breast_width_ratio must be in (0, 1]")
	check(v.PlausibilityFloor >= 0, "volume.plausibility_floor must not be negative")
	check(s.ThresholdWeeks >= 0, "swelling.threshold_weeks must not be negative")
	check(s.Multiplier > 0, "swelling.multiplier must be positive")

	return errors.Join(errs...)
}
