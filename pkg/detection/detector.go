package detection

import (
	"context"
	"fmt"

	"github.com/menta2k/brafit/pkg/client"
	"github.com/menta2k/brafit/pkg/landmark"
	"github.com/menta2k/brafit/pkg/types"
)

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

// FrontPrompt asks for landmarks on a frontal photo
const FrontPrompt = `You are a human pose landmark locator. The photo shows one person facing the camera.

Return JSON only:
{
  "landmarks": [
    {"name": "nose", "x": 0.0, "y": 0.0, "z": 0.0, "confidence": 0.0},
    {"name": "left_shoulder", "x": 0.0, "y": 0.0, "z": 0.0, "confidence": 0.0}
  ]
}

HARD RULES
- Report these names: nose, left_shoulder, right_shoulder, left_hip, right_hip, left_ankle, right_ankle.
- left/right are the person's own left and right, not the viewer's.
- x and y are normalized to [0,1] of image width and height (NOT pixels). y grows downward.
- z is depth relative to the hip midpoint, smaller is closer to the camera. Use 0 if unsure.
- confidence is 0..1; lower it for occluded or guessed points. Omit points you cannot see at all.
- If no person is visible, return {"landmarks": []}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// SidePrompt asks for landmarks on a profile photo
const SidePrompt = `You are a human pose landmark locator. The photo shows one person standing in profile.

Return JSON only:
{
  "landmarks": [
    {"name": "left_shoulder", "x": 0.0, "y": 0.0, "z": 0.0, "confidence": 0.0}
  ]
}

HARD RULES
- Report these names: left_shoulder, right_shoulder, left_hip, right_hip.
- left/right are the person's own left and right. The far side is partly hidden; estimate it and lower its confidence.
- x and y are normalized to [0,1] of image width and height (NOT pixels). y grows downward.
- z is depth toward the camera relative to the hip midpoint; the chest-facing direction is negative.
- If no person is visible, return {"landmarks": []}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// PromptFor returns the default landmark prompt for a photo kind
func PromptFor(photo types.Photo) string {
	if photo == types.Side {
		return SidePrompt
	}
	return FrontPrompt
}

// Detector locates pose landmarks using a vision model
type Detector struct {
	client client.VisionClient
	model  string
}

// NewDetector creates a new detector with a vision client
func NewDetector(client client.VisionClient, model string) *Detector {
	return &Detector{client: client, model: model}
}

// DetectPose locates landmarks in one photo. width and height are the pixel
// dimensions of the image sent to the model; they are used when the model
// answers in pixels despite the prompt.
func (d *Detector) DetectPose(ctx context.Context, photo types.Photo, imageB64 string, width, height int) ([]landmark.Raw, error) {
	return d.DetectPoseWithPrompt(ctx, imageB64, PromptFor(photo), width, height)
}

// DetectPoseWithPrompt locates landmarks with a custom prompt
func (d *Detector) DetectPoseWithPrompt(ctx context.Context, imageB64, prompt string, width, height int) ([]landmark.Raw, error) {
	raws, err := d.client.DetectLandmarks(ctx, d.model, prompt, imageB64)
	if err != nil {
		return nil, fmt.Errorf("landmark detection failed: %w", err)
	}
	return normalizeLandmarks(raws, width, height), nil
}

// TestVision tests if the model can actually see the image with a simple prompt
func (d *Detector) TestVision(ctx context.Context, imageB64 string) (string, error) {
	return d.client.SimpleQuery(ctx, d.model, SimpleTestPrompt, imageB64)
}

// pixelThreshold separates pixel answers from normalized ones. Models place
// out-of-frame points slightly past 1, so only values well beyond the
// normalized range mark a pose as pixels.
const pixelThreshold = 2.0

// normalizeLandmarks converts pixel coordinates to [0,1] when the model
// ignored the prompt, then clamps positions into the frame.
func normalizeLandmarks(raws []landmark.Raw, imgW, imgH int) []landmark.Raw {
	pixels := false
	for _, r := range raws {
		if r.X > pixelThreshold || r.Y > pixelThreshold {
			pixels = true
			break
		}
	}

	out := make([]landmark.Raw, len(raws))
	for i, r := range raws {
		if pixels && imgW > 0 && imgH > 0 {
			r.X /= float64(imgW)
			r.Y /= float64(imgH)
			r.Z /= float64(imgW)
		}
		r.X = clamp(r.X, 0, 1)
		r.Y = clamp(r.Y, 0, 1)
		out[i] = r
	}
	return out
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
