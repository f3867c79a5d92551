// Package landmark turns raw pose detector output into validated, named
// landmark sets for the front and side photos.
package landmark

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/menta2k/brafit/pkg/types"
)

// Raw is one detector point before validation
type Raw struct {
	Name       string  `json:"name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Confidence float64 `json:"confidence"`
}

// Landmark is a named anatomical point with its detector confidence
type Landmark struct {
	Name       string
	Position   r3.Vec
	Confidence float64
}

// Set is an immutable name to landmark mapping for one photo
type Set struct {
	photo  types.Photo
	points map[string]Landmark
}

// Photo returns the photo the set was captured from
func (s Set) Photo() types.Photo {
	return s.photo
}

// Get looks up a landmark by anatomical name
func (s Set) Get(name string) (Landmark, bool) {
	lm, ok := s.points[name]
	return lm, ok
}

// Len returns the number of landmarks in the set
func (s Set) Len() int {
	return len(s.points)
}

// Names returns the landmark names in sorted order
func (s Set) Names() []string {
	names := make([]string, 0, len(s.points))
	for n := range s.points {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ScanPair holds the front and side landmark sets of one sizing request.
// The aspect ratios (width/height) of the source photos let x and y, which
// the detector normalizes separately, be compared in one unit.
type ScanPair struct {
	Front       Set
	Side        Set
	FrontAspect float64
	SideAspect  float64
}

// NewScanPair pairs two sets, checking they came from the expected photos.
// Both aspects default to 1.
func NewScanPair(front, side Set) (ScanPair, error) {
	if front.photo != types.Front || side.photo != types.Side {
		return ScanPair{}, fmt.Errorf("landmark: scan pair needs front and side sets, got %s and %s", front.photo, side.photo)
	}
	return ScanPair{Front: front, Side: side, FrontAspect: 1, SideAspect: 1}, nil
}

// WithAspect returns a copy of the pair carrying the photo aspect ratios.
// Non-positive values leave the current aspect unchanged.
func (p ScanPair) WithAspect(front, side float64) ScanPair {
	if front > 0 {
		p.FrontAspect = front
	}
	if side > 0 {
		p.SideAspect = side
	}
	return p
}

// InsufficientDataError reports required landmarks that are missing or too
// weak in a photo.
type InsufficientDataError struct {
	Photo     types.Photo
	Landmarks []string
	Reason    string
}

func (e *InsufficientDataError) Error() string {
	where := "detector output"
	if e.Photo != "" {
		where = string(e.Photo) + " photo"
	}
	return fmt.Sprintf("insufficient landmark data in %s: %s (%s)", where, strings.Join(e.Landmarks, ", "), e.Reason)
}

func (e *InsufficientDataError) Unwrap() error {
	return types.ErrInsufficientLandmarkData
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
