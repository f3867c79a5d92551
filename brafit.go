// Package brafit estimates a bra size from a front and a side photo.
//
// Photos are sent to a vision model that returns pose landmarks; the
// landmarks then run through the sizing engine (pkg/engine):
//
//	landmarks -> body measurements -> hemi-ellipsoid volume
//	          -> postpartum adjustment -> band/cup lookup
//
// Basic usage:
//
//	vc, _ := llamacpp.NewClient("http://localhost:8080")
//	sizer, err := brafit.NewWithConfig(brafit.Options{Client: vc, Model: "openbmb/minicpm-v4.5"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	report, err := sizer.EstimateFromFiles(ctx, "front.jpg", "side.jpg", brafit.Input{
//		PostpartumWeeks: 4,
//		BandSize:        34,
//		Reference:       &anthropometry.ReferenceScale{Kind: anthropometry.Height, CM: 165},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(report.Size.Label, report.Warnings.Codes())
//
// Landmarks from another detector (for example a MediaPipe export parsed with
// landmark.ParseJSON) can skip the model with EstimateFromLandmarks.
package brafit

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/brafit/internal/logging"
	"github.com/menta2k/brafit/pkg/anthropometry"
	"github.com/menta2k/brafit/pkg/client"
	"github.com/menta2k/brafit/pkg/detection"
	"github.com/menta2k/brafit/pkg/engine"
	"github.com/menta2k/brafit/pkg/landmark"
	"github.com/menta2k/brafit/pkg/processing"
	"github.com/menta2k/brafit/pkg/sizing"
	"github.com/menta2k/brafit/pkg/types"
)

// Version of the brafit library
const Version = "1.0.0"

// ErrNoDetector is returned by photo methods when no vision client is configured
var ErrNoDetector = errors.New("no vision client configured")

// Options configures a Sizer. Zero values select defaults; Client may be nil
// when only EstimateFromLandmarks is used.
type Options struct {
	Policy *engine.Policy
	Table  *sizing.Table
	Photo  *processing.Config
	Client client.VisionClient
	Model  string
	Logger logrus.FieldLogger
}

// Input holds the per-request values that do not come from the photos
type Input struct {
	PostpartumWeeks float64
	BandSize        int
	Reference       *anthropometry.ReferenceScale
	// Photo width/height ratios, only used by EstimateFromLandmarks
	FrontAspect float64
	SideAspect  float64
}

func (in Input) request(front, side []landmark.Raw) engine.Request {
	return engine.Request{
		Front:           front,
		Side:            side,
		FrontAspect:     in.FrontAspect,
		SideAspect:      in.SideAspect,
		PostpartumWeeks: in.PostpartumWeeks,
		BandSize:        in.BandSize,
		Reference:       in.Reference,
	}
}

// Report is a sizing result with the landmarks it was computed from
type Report struct {
	RequestID string `json:"request_id"`
	engine.Result
	FrontLandmarks []landmark.Raw `json:"front_landmarks,omitempty"`
	SideLandmarks  []landmark.Raw `json:"side_landmarks,omitempty"`
}

// Sizer provides the high-level photo-to-size interface
type Sizer struct {
	engine    *engine.Engine
	processor *processing.Processor
	detector  *detection.Detector
	logger    logrus.FieldLogger
}

// New creates a Sizer for landmark input with default settings
func New() *Sizer {
	return &Sizer{
		engine:    engine.New(),
		processor: processing.NewProcessor(),
		logger:    logging.Discard(),
	}
}

// NewWithConfig creates a Sizer with custom settings
func NewWithConfig(opts Options) (*Sizer, error) {
	policy := engine.DefaultPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}
	eng, err := engine.NewWithPolicy(policy, opts.Table)
	if err != nil {
		return nil, err
	}

	processor := processing.NewProcessor()
	if opts.Photo != nil {
		processor = processing.NewProcessorWithConfig(*opts.Photo)
	}

	s := &Sizer{
		engine:    eng,
		processor: processor,
		logger:    opts.Logger,
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if opts.Client != nil {
		if opts.Model == "" {
			return nil, fmt.Errorf("a model name is required with a vision client")
		}
		s.detector = detection.NewDetector(opts.Client, opts.Model)
	}
	return s, nil
}

// Policy returns the sizing policy in use
func (s *Sizer) Policy() engine.Policy {
	return s.engine.Policy()
}

// EstimateFromLandmarks sizes from landmarks that were detected elsewhere
func (s *Sizer) EstimateFromLandmarks(ctx context.Context, front, side []landmark.Raw, in Input) (Report, error) {
	ctx, log := s.requestLogger(ctx)
	return s.estimate(ctx, log, front, side, in)
}

// EstimateFromPhotos detects landmarks in both photos and sizes from them
func (s *Sizer) EstimateFromPhotos(ctx context.Context, front, side image.Image, in Input) (Report, error) {
	ctx, log := s.requestLogger(ctx)

	// Request fields are checked before any model call is made.
	if err := in.request(nil, nil).Validate(); err != nil {
		log.WithError(err).Warn("rejected request")
		return Report{}, err
	}
	if s.detector == nil {
		return Report{}, ErrNoDetector
	}

	frontRaws, frontAspect, err := s.detect(ctx, log, types.Front, front)
	if err != nil {
		return Report{}, err
	}
	sideRaws, sideAspect, err := s.detect(ctx, log, types.Side, side)
	if err != nil {
		return Report{}, err
	}

	in.FrontAspect, in.SideAspect = frontAspect, sideAspect
	return s.estimate(ctx, log, frontRaws, sideRaws, in)
}

// EstimateFromFiles loads two photos from paths or URLs and sizes from them
func (s *Sizer) EstimateFromFiles(ctx context.Context, frontPath, sidePath string, in Input) (Report, error) {
	front, err := s.processor.LoadImageSmart(frontPath)
	if err != nil {
		return Report{}, fmt.Errorf("failed to load front photo: %w", err)
	}
	side, err := s.processor.LoadImageSmart(sidePath)
	if err != nil {
		return Report{}, fmt.Errorf("failed to load side photo: %w", err)
	}
	return s.EstimateFromPhotos(ctx, front, side, in)
}

// DebugOverlay draws the landmarks and the bust guide lines on a photo
func (s *Sizer) DebugOverlay(img image.Image, photo types.Photo, raws []landmark.Raw) image.Image {
	policy := s.engine.Policy()
	var guides []processing.Guide
	if photo == types.Front {
		guides = processing.BustGuides(raws, policy.Anthropometry.MidBustRatio, policy.Anthropometry.UnderbustRatio)
	}
	return s.processor.CreateDebugOverlay(img, raws, policy.Landmarks.MinConfidence, guides...)
}

// SaveImage writes an image such as a debug overlay to disk
func (s *Sizer) SaveImage(img image.Image, path, format string, quality int) error {
	return s.processor.SaveImage(img, path, format, quality, false)
}

func (s *Sizer) detect(ctx context.Context, log *logrus.Entry, photo types.Photo, img image.Image) ([]landmark.Raw, float64, error) {
	log = log.WithField("photo", photo)

	prepared, err := s.processor.PreparePhoto(img)
	if err != nil {
		return nil, 0, fmt.Errorf("%s photo: %w", photo, err)
	}

	start := time.Now()
	raws, err := s.detector.DetectPose(ctx, photo, prepared.Base64, prepared.Info.Width, prepared.Info.Height)
	if err != nil {
		log.WithError(err).Error("landmark detection failed")
		return nil, 0, fmt.Errorf("%s photo: %w", photo, err)
	}

	log.WithFields(logrus.Fields{
		"landmarks": len(raws),
		"width":     prepared.Info.Width,
		"height":    prepared.Info.Height,
		"took":      time.Since(start).Round(time.Millisecond),
	}).Debug("landmarks detected")
	return raws, prepared.Aspect, nil
}

func (s *Sizer) estimate(ctx context.Context, log *logrus.Entry, front, side []landmark.Raw, in Input) (Report, error) {
	id, _ := logging.RequestID(ctx)

	res, err := s.engine.Estimate(in.request(front, side))
	if err != nil {
		log.WithError(err).Warn("sizing failed")
		return Report{}, err
	}

	for _, w := range res.Warnings {
		log.WithField("code", w.Code).Debug(w.String())
	}
	log.WithFields(logrus.Fields{
		"label":      res.Size.Label,
		"descriptor": res.Size.Descriptor,
		"volume":     fmt.Sprintf("%.1f", res.Volume.Volume),
		"calibrated": res.Calibrated,
		"adjusted":   res.MultiplierApplied(),
		"warnings":   len(res.Warnings),
	}).Info("size estimated")

	return Report{
		RequestID:      id,
		Result:         res,
		FrontLandmarks: front,
		SideLandmarks:  side,
	}, nil
}

func (s *Sizer) requestLogger(ctx context.Context) (context.Context, *logrus.Entry) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := logging.RequestID(ctx); !ok {
		ctx = logging.ContextWithRequestID(ctx, logging.NewRequestID())
	}
	return ctx, logging.WithRequestID(ctx, s.logger)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
