package client

import (
	"context"

	"github.com/menta2k/brafit/pkg/landmark"
)

// VisionClient is a vision-language model backend able to locate body
// landmarks in a photo.
type VisionClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	DetectLandmarks(ctx context.Context, model, prompt, imgB64 string) ([]landmark.Raw, error)
}
