package anthropometry

import (
	"fmt"
	"math"

	"github.com/menta2k/brafit/pkg/landmark"
)

// ReferenceKind names the body length a reference measurement describes
type ReferenceKind string

const (
	ShoulderWidth ReferenceKind = "shoulder_width"
	TorsoLength   ReferenceKind = "torso_length"
	Height        ReferenceKind = "height"
	// Band is an underbust circumference; see BandReference.
	Band          ReferenceKind = "band"
)

// CMPerInch converts band sizes, which are underbust inches, to centimeters
const CMPerInch = 2.54

// BandReference turns a band size into an underbust circumference reference
func BandReference(band int) *ReferenceScale {
	return &ReferenceScale{Kind: Band, CM: float64(band) * CMPerInch}
}

// ReferenceScale is a caller-supplied physical measurement used to convert
// normalized detector units into centimeters. The photos themselves carry no
// usable scale: camera distance is not controlled.
type ReferenceScale struct {
	Kind ReferenceKind `json:"kind"`
	CM   float64       `json:"cm"`
}

// Validate checks the reference is usable
func (r ReferenceScale) Validate() error {
	switch r.Kind {
	case ShoulderWidth, TorsoLength, Height, Band:
	default:
		return fmt.Errorf("reference kind must be one of %s, %s, %s, %s; got %q", ShoulderWidth, TorsoLength, Height, Band, r.Kind)
	}
	if r.CM <= 0 || math.IsNaN(r.CM) || math.IsInf(r.CM, 0) {
		return fmt.Errorf("reference %s must be a positive length in cm, got %g", r.Kind, r.CM)
	}
	return nil
}

// FrontRequirements lists the landmarks the front photo must provide for a
// given reference; a nil reference needs only the defaults.
func FrontRequirements(ref *ReferenceScale) []landmark.Requirement {
	reqs := landmark.DefaultRequirements()
	if ref != nil && ref.Kind == Height {
		reqs = append(reqs, landmark.Head, landmark.Ankles)
	}
	return reqs
}
