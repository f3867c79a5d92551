package landmark

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/menta2k/brafit/pkg/types"
)

// ErrNoPose is returned when detector output contains no pose at all
var ErrNoPose = fmt.Errorf("%w: no pose detected", types.ErrInsufficientLandmarkData)

// Point is one entry of an index-ordered pose as exported by the detector.
// Visibility and Presence are optional; when both are absent the detector is
// taken to have reported full confidence.
type Point struct {
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Z          float64  `json:"z"`
	Visibility *float64 `json:"visibility,omitempty"`
	Presence   *float64 `json:"presence,omitempty"`
}

// NamedPoint is a landmark reported by name rather than by index
type NamedPoint struct {
	Name       string   `json:"name"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Z          float64  `json:"z"`
	Confidence *float64 `json:"confidence,omitempty"`
	Visibility *float64 `json:"visibility,omitempty"`
	Presence   *float64 `json:"presence,omitempty"`
}

// Confidence folds visibility and presence into one score: the lower of the
// two when both are reported.
func (p Point) Confidence() float64 {
	return foldConfidence(nil, p.Visibility, p.Presence)
}

func foldConfidence(conf, vis, pres *float64) float64 {
	if conf != nil {
		return *conf
	}
	switch {
	case vis != nil && pres != nil:
		if *pres < *vis {
			return *pres
		}
		return *vis
	case vis != nil:
		return *vis
	case pres != nil:
		return *pres
	}
	return 1
}

// FromPose names an index-ordered pose through the central index table.
// Points beyond the known scheme are dropped.
func FromPose(points []Point) []Raw {
	out := make([]Raw, 0, len(points))
	for i, p := range points {
		name, ok := NameForIndex(i)
		if !ok {
			continue
		}
		out = append(out, Raw{Name: name, X: p.X, Y: p.Y, Z: p.Z, Confidence: p.Confidence()})
	}
	return out
}

// FromNamed converts name-keyed points
func FromNamed(points []NamedPoint) []Raw {
	out := make([]Raw, 0, len(points))
	for _, p := range points {
		out = append(out, Raw{
			Name:       normalizeName(p.Name),
			X:          p.X,
			Y:          p.Y,
			Z:          p.Z,
			Confidence: foldConfidence(p.Confidence, p.Visibility, p.Presence),
		})
	}
	return out
}

type poseDocument struct {
	PoseLandmarks json.RawMessage `json:"pose_landmarks"`
	Landmark      []Point         `json:"landmark"`
	Landmarks     []NamedPoint    `json:"landmarks"`
}

// ParseJSON reads detector output in any of the supported layouts:
//
//	{"pose_landmarks": [[{x,y,z,visibility,presence}, ...], ...]}  list of poses, first one used
//	{"pose_landmarks": {"landmark": [...]}}                         single pose
//	{"landmark": [...]}                                             single pose
//	{"landmarks": [{"name": "left_shoulder", ...}, ...]}            named points
func ParseJSON(r io.Reader) ([]Raw, error) {
	var doc poseDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode landmark JSON: %w", err)
	}

	if len(doc.Landmarks) > 0 {
		return FromNamed(doc.Landmarks), nil
	}
	if len(doc.Landmark) > 0 {
		return FromPose(doc.Landmark), nil
	}

	raw := bytes.TrimSpace(doc.PoseLandmarks)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, ErrNoPose
	}

	var poses [][]Point
	if err := json.Unmarshal(raw, &poses); err == nil {
		if len(poses) == 0 || len(poses[0]) == 0 {
			return nil, ErrNoPose
		}
		return FromPose(poses[0]), nil
	}

	var single struct {
		Landmark []Point `json:"landmark"`
	}
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, errors.New("failed to decode landmark JSON: unrecognised pose_landmarks layout")
	}
	if len(single.Landmark) == 0 {
		return nil, ErrNoPose
	}
	return FromPose(single.Landmark), nil
}
