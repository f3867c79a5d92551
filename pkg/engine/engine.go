// Package engine runs the sizing pipeline: landmark validation, body
// measurements, hemi-ellipsoid volume, postpartum adjustment and cup lookup.
//
// An Engine holds only read-only configuration, so one instance can serve
// concurrent requests. Every stage is a pure function of its inputs; a failed
// stage stops the pipeline and no partial result is returned.
package engine

import (
	"errors"
	"fmt"

	"github.com/menta2k/brafit/pkg/adjust"
	"github.com/menta2k/brafit/pkg/anthropometry"
	"github.com/menta2k/brafit/pkg/landmark"
	"github.com/menta2k/brafit/pkg/sizing"
	"github.com/menta2k/brafit/pkg/types"
	"github.com/menta2k/brafit/pkg/volume"
)

// ErrInvalidRequest is returned for malformed request fields outside the
// pipeline's own error kinds (negative band, bad reference).
var ErrInvalidRequest = errors.New("invalid sizing request")

// Request is one sizing request. BandSize 0 means no band was supplied;
// a nil Reference leaves the result uncalibrated, and a band Reference
// without a length is taken from BandSize. Aspects are the photo
// width/height ratios and default to 1.
type Request struct {
	Front           []landmark.Raw                `json:"front"`
	Side            []landmark.Raw                `json:"side"`
	FrontAspect     float64                       `json:"front_aspect,omitempty"`
	SideAspect      float64                       `json:"side_aspect,omitempty"`
	PostpartumWeeks float64                       `json:"postpartum_weeks"`
	BandSize        int                           `json:"band_size,omitempty"`
	Reference       *anthropometry.ReferenceScale `json:"reference,omitempty"`
}

// Result is the sizing output
type Result struct {
	Size       sizing.Size     `json:"size"`
	Volume     adjust.Adjusted `json:"volume"`
	Calibrated bool            `json:"calibrated"`
	Warnings   types.Warnings  `json:"warnings,omitempty"`
}

// MultiplierApplied reports whether the postpartum multiplier was used
func (r Result) MultiplierApplied() bool {
	return r.Volume.Applied
}

// Engine is the configured pipeline
type Engine struct {
	policy    Policy
	adapter   *landmark.Adapter
	estimator *anthropometry.Estimator
	model     *volume.Model
	mapper    *sizing.Mapper
}

// New creates an engine with the default policy and calibration table
func New() *Engine {
	e, err := NewWithPolicy(DefaultPolicy(), sizing.DefaultTable())
	if err != nil {
		panic(fmt.Sprintf("engine: default policy is invalid: %v", err))
	}
	return e
}

// NewWithPolicy creates an engine with a custom policy and table. A nil
// table selects the embedded default.
func NewWithPolicy(policy Policy, table *sizing.Table) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	if table == nil {
		table = sizing.DefaultTable()
	} else if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid calibration table: %w", err)
	}

	return &Engine{
		policy:    policy,
		adapter:   landmark.NewWithConfig(policy.Landmarks),
		estimator: anthropometry.NewWithConfig(policy.Anthropometry),
		model:     volume.NewWithConfig(policy.Volume, policy.Anthropometry),
		mapper:    sizing.NewWithTable(table),
	}, nil
}

// Policy returns the engine's policy
func (e *Engine) Policy() Policy {
	return e.policy
}

// Validate checks the request fields that do not depend on landmarks, in
// the order the pipeline would reject them. Callers that run a detector
// first use it to fail before any model call.
func (r Request) Validate() error {
	if err := adjust.CheckWeeks(r.PostpartumWeeks); err != nil {
		return err
	}
	if r.BandSize < 0 {
		return fmt.Errorf("%w: band size must not be negative, got %d", ErrInvalidRequest, r.BandSize)
	}
	_, err := r.reference()
	return err
}

// reference resolves a band reference without a length to the request's
// band size.
func (r Request) reference() (*anthropometry.ReferenceScale, error) {
	ref := r.Reference
	if ref == nil {
		return nil, nil
	}
	if ref.Kind == anthropometry.Band && ref.CM == 0 {
		if r.BandSize <= 0 {
			return nil, fmt.Errorf("%w: a band reference needs a band size", ErrInvalidRequest)
		}
		ref = anthropometry.BandReference(r.BandSize)
	}
	if err := ref.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return ref, nil
}

// Estimate runs the whole pipeline for one request
func (e *Engine) Estimate(req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	ref, err := req.reference()
	if err != nil {
		return Result{}, err
	}

	var warnings types.Warnings

	front, ws, err := e.adapter.Validate(types.Front, req.Front, anthropometry.FrontRequirements(ref)...)
	if err != nil {
		return Result{}, err
	}
	warnings = append(warnings, ws...)

	side, ws, err := e.adapter.Validate(types.Side, req.Side)
	if err != nil {
		return Result{}, err
	}
	warnings = append(warnings, ws...)

	pair, err := landmark.NewScanPair(front, side)
	if err != nil {
		return Result{}, err
	}
	pair = pair.WithAspect(req.FrontAspect, req.SideAspect)

	meas, ws, err := e.estimator.Estimate(pair, ref)
	if err != nil {
		return Result{}, err
	}
	warnings = append(warnings, ws...)

	est, ws, err := e.model.Estimate(meas)
	if err != nil {
		return Result{}, err
	}
	warnings = append(warnings, ws...)

	adj, err := e.policy.Swelling.Apply(est, req.PostpartumWeeks)
	if err != nil {
		return Result{}, err
	}

	size, ws := e.mapper.Map(adj, req.BandSize)
	warnings = append(warnings, ws...)

	return Result{
		Size:       size,
		Volume:     adj,
		Calibrated: meas.Calibrated,
		Warnings:   warnings,
	}, nil
}
