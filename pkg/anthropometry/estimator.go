// Package anthropometry derives body measurements from a front/side scan pair
// using fixed anthropometric ratios.
package anthropometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/menta2k/brafit/pkg/landmark"
	"github.com/menta2k/brafit/pkg/types"
)

// Vertical interpolation ratios along the shoulder-to-hip midline
// (0 = shoulder midpoint, 1 = hip midpoint).
//
// Average torso (shoulder to hip) is ~53cm; sternal notch to nipple in the
// postpartum breast is ~23.5cm (0.44) and nipple to inframammary fold adds
// ~7.5cm, giving ~31cm (0.53).
const (
	DefaultMidBustRatio   = 0.44
	DefaultUnderbustRatio = 0.53
)

// DefaultProjectionRatio is the share of the side profile depth attributed
// to breast tissue.
const DefaultProjectionRatio = 0.60

// DefaultScaleTolerance is the largest relative front/side torso length
// difference accepted before the photos are considered inconsistently framed.
const DefaultScaleTolerance = 0.20

// DefaultHeadTopRatio converts the nose-to-ankle span into standing height.
const DefaultHeadTopRatio = 1.12

// Unit of the lengths held in Measurements
type Unit string

const (
	Centimeters Unit = "cm"
	Normalized  Unit = "normalized"
)

// Config holds the tunable ratios
type Config struct {
	MidBustRatio    float64 `json:"mid_bust_ratio"`
	UnderbustRatio  float64 `json:"underbust_ratio"`
	ProjectionRatio float64 `json:"projection_ratio"`
	ScaleTolerance  float64 `json:"scale_tolerance"`
	HeadTopRatio    float64 `json:"head_top_ratio"`
}

// DefaultConfig returns the documented anthropometric defaults
func DefaultConfig() Config {
	return Config{
		MidBustRatio:    DefaultMidBustRatio,
		UnderbustRatio:  DefaultUnderbustRatio,
		ProjectionRatio: DefaultProjectionRatio,
		ScaleTolerance:  DefaultScaleTolerance,
		HeadTopRatio:    DefaultHeadTopRatio,
	}
}

// Measurements are derived once from a scan pair and never modified.
// Lengths are in Unit; points are in isotropic front-photo coordinates.
type Measurements struct {
	Unit       Unit    `json:"unit"`
	Calibrated bool    `json:"calibrated"`
	Scale      float64 `json:"scale"` // centimeters per normalized unit, 1 when uncalibrated

	ShoulderWidth float64 `json:"shoulder_width"`
	TorsoLength   float64 `json:"torso_length"`
	HipWidth      float64 `json:"hip_width"`

	// Torso width at the underbust line, interpolated between shoulder and
	// hip width, and the elliptical girth it forms with the side depth.
	UnderbustWidth float64 `json:"underbust_width"`
	UnderbustGirth float64 `json:"underbust_girth"`

	MidBustDrop   float64 `json:"mid_bust_drop"`
	UnderbustDrop float64 `json:"underbust_drop"`
	Projection    float64 `json:"projection"`

	ShoulderMid    r3.Vec `json:"shoulder_mid"`
	HipMid         r3.Vec `json:"hip_mid"`
	MidBustPoint   r3.Vec `json:"mid_bust_point"`
	UnderbustPoint r3.Vec `json:"underbust_point"`

	FrontTorso  float64 `json:"front_torso"`
	SideTorso   float64 `json:"side_torso"`
	SideDepth   float64 `json:"side_depth"`
	Discrepancy float64 `json:"discrepancy"`
}

// ScaleMismatchError reports front and side photos whose torso lengths
// disagree beyond tolerance.
type ScaleMismatchError struct {
	FrontTorso  float64
	SideTorso   float64
	Discrepancy float64
	Tolerance   float64
}

func (e *ScaleMismatchError) Error() string {
	return fmt.Sprintf("front/side scale mismatch: torso lengths %.4f and %.4f differ by %.1f%% (tolerance %.1f%%)",
		e.FrontTorso, e.SideTorso, e.Discrepancy*100, e.Tolerance*100)
}

func (e *ScaleMismatchError) Unwrap() error {
	return types.ErrScaleMismatch
}

// Estimator computes Measurements
type Estimator struct {
	config Config
}

// New creates an estimator with the default ratios
func New() *Estimator {
	return &Estimator{config: DefaultConfig()}
}

// NewWithConfig creates an estimator with custom ratios
func NewWithConfig(config Config) *Estimator {
	return &Estimator{config: config}
}

// Config returns the estimator ratios
func (e *Estimator) Config() Config {
	return e.config
}

// Estimate derives measurements from the scan pair. Without a reference
// scale the result stays in normalized units and carries an uncalibrated
// warning.
func (e *Estimator) Estimate(pair landmark.ScanPair, ref *ReferenceScale) (Measurements, types.Warnings, error) {
	frontAspect, sideAspect := aspectOr1(pair.FrontAspect), aspectOr1(pair.SideAspect)

	front, err := torso(pair.Front, frontAspect)
	if err != nil {
		return Measurements{}, nil, err
	}
	fls, frs, flh, frh := front[0], front[1], front[2], front[3]

	shoulderMid := midpoint(fls, frs)
	hipMid := midpoint(flh, frh)

	frontTorso := hipMid.Y - shoulderMid.Y
	if !positive(frontTorso) {
		return Measurements{}, nil, &types.DegenerateGeometryError{Quantity: "front torso length", Value: frontTorso}
	}

	side, err := torso(pair.Side, sideAspect)
	if err != nil {
		return Measurements{}, nil, err
	}
	sls, srs, slh, srh := side[0], side[1], side[2], side[3]

	sideTorso := midpoint(slh, srh).Y - midpoint(sls, srs).Y
	if !positive(sideTorso) {
		return Measurements{}, nil, &types.DegenerateGeometryError{Quantity: "side torso length", Value: sideTorso}
	}

	discrepancy := math.Abs(frontTorso-sideTorso) / frontTorso
	if discrepancy > e.config.ScaleTolerance {
		return Measurements{}, nil, &ScaleMismatchError{
			FrontTorso:  frontTorso,
			SideTorso:   sideTorso,
			Discrepancy: discrepancy,
			Tolerance:   e.config.ScaleTolerance,
		}
	}

	// Profile depth between the two shoulders in the x/z plane, brought into
	// front-photo units through the torso ratio.
	sideDepth := math.Hypot(sls.X-srs.X, sls.Z-srs.Z) * (frontTorso / sideTorso)

	shoulderWidth := r3.Norm(r3.Sub(fls, frs))
	hipWidth := r3.Norm(r3.Sub(flh, frh))
	underbustWidth := shoulderWidth + e.config.UnderbustRatio*(hipWidth-shoulderWidth)

	m := Measurements{
		Unit:           Normalized,
		Scale:          1,
		ShoulderWidth:  shoulderWidth,
		TorsoLength:    frontTorso,
		HipWidth:       hipWidth,
		UnderbustWidth: underbustWidth,
		UnderbustGirth: ellipsePerimeter(underbustWidth/2, sideDepth/2),
		MidBustDrop:    e.config.MidBustRatio * frontTorso,
		UnderbustDrop:  e.config.UnderbustRatio * frontTorso,
		Projection:     sideDepth * e.config.ProjectionRatio,
		ShoulderMid:    shoulderMid,
		HipMid:         hipMid,
		MidBustPoint:   interpolate(shoulderMid, hipMid, e.config.MidBustRatio),
		UnderbustPoint: interpolate(shoulderMid, hipMid, e.config.UnderbustRatio),
		FrontTorso:     frontTorso,
		SideTorso:      sideTorso,
		SideDepth:      sideDepth,
		Discrepancy:    discrepancy,
	}

	if ref == nil {
		return m, types.Warnings{{
			Code:   types.WarnUncalibrated,
			Detail: "no reference measurement supplied; lengths are in normalized units",
		}}, nil
	}

	measured, err := e.referenceLength(pair.Front, frontAspect, m, ref.Kind)
	if err != nil {
		return Measurements{}, nil, err
	}
	return m.calibrate(ref.CM / measured), nil, nil
}

func (e *Estimator) referenceLength(front landmark.Set, aspect float64, m Measurements, kind ReferenceKind) (float64, error) {
	var length float64
	switch kind {
	case ShoulderWidth:
		length = m.ShoulderWidth
	case TorsoLength:
		length = m.TorsoLength
	case Band:
		length = m.UnderbustGirth
	case Height:
		nose, okN := front.Get(landmark.Nose)
		la, okL := front.Get(landmark.LeftAnkle)
		ra, okR := front.Get(landmark.RightAnkle)
		if !okN || !okL || !okR {
			return 0, &landmark.InsufficientDataError{
				Photo:     types.Front,
				Landmarks: []string{landmark.Nose, landmark.LeftAnkle, landmark.RightAnkle},
				Reason:    "required for height calibration",
			}
		}
		span := midpoint(iso(la, aspect), iso(ra, aspect)).Y - iso(nose, aspect).Y
		length = span * e.config.HeadTopRatio
	default:
		return 0, fmt.Errorf("anthropometry: unknown reference kind %q", kind)
	}
	if !positive(length) {
		return 0, &types.DegenerateGeometryError{Quantity: string(kind) + " reference length", Value: length}
	}
	return length, nil
}

// calibrate returns a copy with every length converted to centimeters
func (m Measurements) calibrate(scale float64) Measurements {
	m.Unit = Centimeters
	m.Calibrated = true
	m.Scale = scale
	m.ShoulderWidth *= scale
	m.TorsoLength *= scale
	m.HipWidth *= scale
	m.UnderbustWidth *= scale
	m.UnderbustGirth *= scale
	m.MidBustDrop *= scale
	m.UnderbustDrop *= scale
	m.Projection *= scale
	return m
}

var torsoNames = []string{landmark.LeftShoulder, landmark.RightShoulder, landmark.LeftHip, landmark.RightHip}

// torso returns the shoulder and hip points of a set in isotropic units,
// ordered left shoulder, right shoulder, left hip, right hip.
func torso(set landmark.Set, aspect float64) ([4]r3.Vec, error) {
	var pts [4]r3.Vec
	var missing []string
	for i, name := range torsoNames {
		lm, ok := set.Get(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		pts[i] = iso(lm, aspect)
	}
	if len(missing) > 0 {
		return pts, &landmark.InsufficientDataError{
			Photo:     set.Photo(),
			Landmarks: missing,
			Reason:    "required for body measurements",
		}
	}
	return pts, nil
}

// ellipsePerimeter uses Ramanujan's second approximation
func ellipsePerimeter(a, b float64) float64 {
	if a+b == 0 {
		return 0
	}
	h := (a - b) * (a - b) / ((a + b) * (a + b))
	return math.Pi * (a + b) * (1 + 3*h/(10+math.Sqrt(4-3*h)))
}

func iso(lm landmark.Landmark, aspect float64) r3.Vec {
	return r3.Vec{X: lm.Position.X * aspect, Y: lm.Position.Y, Z: lm.Position.Z * aspect}
}

func midpoint(a, b r3.Vec) r3.Vec {
	return r3.Scale(0.5, r3.Add(a, b))
}

func interpolate(from, to r3.Vec, fraction float64) r3.Vec {
	return r3.Add(from, r3.Scale(fraction, r3.Sub(to, from)))
}

func aspectOr1(a float64) float64 {
	if a > 0 && !math.IsInf(a, 0) {
		return a
	}
	return 1
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
