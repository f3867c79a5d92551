package landmark

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/menta2k/brafit/pkg/types"
)

// DefaultMinConfidence is the detector confidence a required landmark must reach
const DefaultMinConfidence = 0.5

// DefaultConfidenceSpread is the left/right confidence gap that triggers a
// low_confidence warning even when both sides pass the threshold.
const DefaultConfidenceSpread = 0.4

// Requirement is a group of landmarks that must all be present, with at least
// one of them at or above the confidence threshold. A single-name group must
// simply clear the threshold.
type Requirement struct {
	Names []string
}

var (
	Shoulders = Requirement{Names: []string{LeftShoulder, RightShoulder}}
	Hips      = Requirement{Names: []string{LeftHip, RightHip}}
	Head      = Requirement{Names: []string{Nose}}
	Ankles    = Requirement{Names: []string{LeftAnkle, RightAnkle}}
)

// DefaultRequirements are the landmarks every photo must provide
func DefaultRequirements() []Requirement {
	return []Requirement{Shoulders, Hips}
}

// Config holds adapter thresholds
type Config struct {
	MinConfidence    float64 `json:"min_confidence"`
	ConfidenceSpread float64 `json:"confidence_spread"`
}

// DefaultConfig returns the recommended thresholds
func DefaultConfig() Config {
	return Config{
		MinConfidence:    DefaultMinConfidence,
		ConfidenceSpread: DefaultConfidenceSpread,
	}
}

// Adapter validates raw detector output into landmark sets
type Adapter struct {
	config Config
}

// New creates an adapter with the default thresholds
func New() *Adapter {
	return &Adapter{config: DefaultConfig()}
}

// NewWithConfig creates an adapter with custom thresholds
func NewWithConfig(config Config) *Adapter {
	return &Adapter{config: config}
}

// Config returns the adapter thresholds
func (a *Adapter) Config() Config {
	return a.config
}

// Validate builds the landmark set for one photo. Missing landmarks, or groups
// where nothing clears the threshold, fail with an InsufficientDataError.
// Weak members of an otherwise usable group are kept and reported as warnings.
func (a *Adapter) Validate(photo types.Photo, raws []Raw, reqs ...Requirement) (Set, types.Warnings, error) {
	if len(reqs) == 0 {
		reqs = DefaultRequirements()
	}

	points := make(map[string]Landmark, len(raws))
	invalid := make(map[string]bool)
	for _, r := range raws {
		name := normalizeName(r.Name)
		if name == "" {
			continue
		}
		if !finite(r.X) || !finite(r.Y) || !finite(r.Z) {
			invalid[name] = true
			continue
		}
		// an unreadable confidence is kept as the weakest possible detection
		conf := r.Confidence
		if math.IsNaN(conf) {
			conf = 0
		}
		lm := Landmark{
			Name:       name,
			Position:   r3.Vec{X: r.X, Y: r.Y, Z: r.Z},
			Confidence: clamp(conf, 0, 1),
		}
		// duplicates: keep the most confident detection
		if prev, ok := points[name]; ok && prev.Confidence >= lm.Confidence {
			continue
		}
		points[name] = lm
	}

	var warnings types.Warnings
	for _, req := range reqs {
		ws, err := a.check(photo, points, invalid, req)
		if err != nil {
			return Set{}, nil, err
		}
		warnings = append(warnings, ws...)
	}

	return Set{photo: photo, points: points}, warnings, nil
}

func (a *Adapter) check(photo types.Photo, points map[string]Landmark, invalid map[string]bool, req Requirement) (types.Warnings, error) {
	var missing, unusable, weak []string
	for _, name := range req.Names {
		lm, ok := points[name]
		if !ok {
			if invalid[name] {
				unusable = append(unusable, name)
			} else {
				missing = append(missing, name)
			}
			continue
		}
		if lm.Confidence < a.config.MinConfidence {
			weak = append(weak, name)
		}
	}

	if len(unusable) > 0 {
		return nil, &InsufficientDataError{Photo: photo, Landmarks: unusable, Reason: "non-finite coordinates"}
	}
	if len(missing) > 0 {
		return nil, &InsufficientDataError{Photo: photo, Landmarks: missing, Reason: "not detected"}
	}
	if len(weak) == len(req.Names) {
		return nil, &InsufficientDataError{
			Photo:     photo,
			Landmarks: weak,
			Reason:    fmt.Sprintf("confidence below %.2f", a.config.MinConfidence),
		}
	}

	var warnings types.Warnings
	for _, name := range weak {
		warnings = append(warnings, types.Warning{
			Code:     types.WarnLowConfidence,
			Photo:    photo,
			Landmark: name,
			Detail:   fmt.Sprintf("confidence %.2f below %.2f", points[name].Confidence, a.config.MinConfidence),
		})
	}

	if len(req.Names) == 2 && len(weak) == 0 && a.config.ConfidenceSpread > 0 {
		l, r := points[req.Names[0]], points[req.Names[1]]
		if gap := math.Abs(l.Confidence - r.Confidence); gap > a.config.ConfidenceSpread {
			weaker := l
			if r.Confidence < l.Confidence {
				weaker = r
			}
			warnings = append(warnings, types.Warning{
				Code:     types.WarnLowConfidence,
				Photo:    photo,
				Landmark: weaker.Name,
				Detail:   fmt.Sprintf("left/right confidence differ by %.2f", gap),
			})
		}
	}

	return warnings, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
