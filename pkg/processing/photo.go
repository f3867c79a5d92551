package processing

import (
	"fmt"
	"image"
)

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Width       int
	Height      int
	AspectRatio float64
	Area        int
}

// GetImageInfo returns basic information about an image
func GetImageInfo(img image.Image) ImageInfo {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	info := ImageInfo{Width: width, Height: height, Area: width * height}
	if height > 0 {
		info.AspectRatio = float64(width) / float64(height)
	}
	return info
}

// ValidatePhoto checks a photo meets the minimum size for landmark detection
func (p *Processor) ValidatePhoto(img image.Image) error {
	if img == nil {
		return fmt.Errorf("no image")
	}
	bounds := img.Bounds()
	if bounds.Dx() < p.config.MinSize || bounds.Dy() < p.config.MinSize {
		return fmt.Errorf("image too small: %dx%d (minimum: %d)",
			bounds.Dx(), bounds.Dy(), p.config.MinSize)
	}
	return nil
}
