package types

import (
	"errors"
	"fmt"
	"strings"
)

// Photo identifies which of the two photographs a landmark set came from
type Photo string

const (
	Front Photo = "front"
	Side  Photo = "side"
)

// Error kinds. Stage errors unwrap to one of these so callers can use errors.Is.
var (
	ErrInsufficientLandmarkData = errors.New("insufficient landmark data")
	ErrScaleMismatch            = errors.New("front/side scale mismatch")
	ErrDegenerateGeometry       = errors.New("degenerate geometry")
	ErrInvalidTimeframe         = errors.New("invalid postpartum timeframe")
)

// WarningCode names a non-fatal condition attached to a result
type WarningCode string

const (
	WarnLowConfidence    WarningCode = "low_confidence"
	WarnUncalibrated     WarningCode = "uncalibrated"
	WarnImplausiblySmall WarningCode = "implausibly_small"
	WarnOutOfRangeHigh   WarningCode = "out_of_range_high"
	WarnOutOfRangeLow    WarningCode = "out_of_range_low"
	WarnBandSubstituted  WarningCode = "band_substituted"
	WarnBandIgnored      WarningCode = "band_ignored"
)

// Warning is an advisory flag. It never blocks a result.
type Warning struct {
	Code     WarningCode `json:"code"`
	Photo    Photo       `json:"photo,omitempty"`
	Landmark string      `json:"landmark,omitempty"`
	Detail   string      `json:"detail,omitempty"`
}

func (w Warning) String() string {
	var b strings.Builder
	b.WriteString(string(w.Code))
	if w.Photo != "" {
		fmt.Fprintf(&b, " [%s", w.Photo)
		if w.Landmark != "" {
			fmt.Fprintf(&b, "/%s", w.Landmark)
		}
		b.WriteString("]")
	}
	if w.Detail != "" {
		b.WriteString(": ")
		b.WriteString(w.Detail)
	}
	return b.String()
}

// Warnings is an ordered warning list
type Warnings []Warning

// Has reports whether any warning carries the given code
func (ws Warnings) Has(code WarningCode) bool {
	for _, w := range ws {
		if w.Code == code {
			return true
		}
	}
	return false
}

// With returns a new list with w appended; the receiver is left untouched.
func (ws Warnings) With(w ...Warning) Warnings {
	out := make(Warnings, 0, len(ws)+len(w))
	out = append(out, ws...)
	return append(out, w...)
}

// Codes returns the warning codes in order, without duplicates
func (ws Warnings) Codes() []WarningCode {
	seen := map[WarningCode]struct{}{}
	out := make([]WarningCode, 0, len(ws))
	for _, w := range ws {
		if _, ok := seen[w.Code]; ok {
			continue
		}
		seen[w.Code] = struct{}{}
		out = append(out, w.Code)
	}
	return out
}

// DegenerateGeometryError reports a derived length or semi-axis that is not a
// positive finite number.
type DegenerateGeometryError struct {
	Quantity string
	Value    float64
}

func (e *DegenerateGeometryError) Error() string {
	return fmt.Sprintf("degenerate geometry: %s is %g, must be positive", e.Quantity, e.Value)
}

func (e *DegenerateGeometryError) Unwrap() error {
	return ErrDegenerateGeometry
}
