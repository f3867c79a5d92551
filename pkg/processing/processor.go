package processing

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/brafit/internal/utils"
)

// maxDownloadSize bounds photos fetched over HTTP
const maxDownloadSize = 32 << 20

// Config controls how photos are checked and encoded for the vision model
type Config struct {
	Format  string `json:"format"`   // jpg or png
	MaxDim  int    `json:"max_dim"`  // longest side sent to the model, 0 keeps the original
	Quality int    `json:"quality"`  // JPEG quality 1-100
	MinSize int    `json:"min_size"` // smallest accepted side in pixels
}

// DefaultConfig returns the settings used by NewProcessor
func DefaultConfig() Config {
	return Config{
		Format:  "jpg",
		MaxDim:  1536,
		Quality: 85,
		MinSize: 256,
	}
}

// Processor handles image processing operations
type Processor struct {
	config Config
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{config: DefaultConfig()}
}

// NewProcessorWithConfig creates an image processor with custom settings
func NewProcessorWithConfig(config Config) *Processor {
	return &Processor{config: config}
}

// Config returns the processor settings
func (p *Processor) Config() Config {
	return p.config
}

// Prepared is a photo encoded for the model together with the geometry
// needed to interpret normalized landmark coordinates.
type Prepared struct {
	Base64 string
	Info   ImageInfo // of the image sent to the model
	Aspect float64   // width / height of the original photo
}

// PreparePhoto validates a photo and encodes it for the model
func (p *Processor) PreparePhoto(img image.Image) (Prepared, error) {
	info := GetImageInfo(img)
	if err := p.ValidatePhoto(img); err != nil {
		return Prepared{}, err
	}

	sent := resizeToFit(img, p.config.MaxDim)
	b64, err := p.encode(sent)
	if err != nil {
		return Prepared{}, fmt.Errorf("failed to encode photo: %w", err)
	}

	return Prepared{
		Base64: b64,
		Info:   GetImageInfo(sent),
		Aspect: info.AspectRatio,
	}, nil
}

// LoadImageFromURL downloads and loads an image from a URL
func (p *Processor) LoadImageFromURL(imageURL string) (image.Image, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	req, err := http.NewRequest(http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "brafit/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	imageData, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(imageData) > maxDownloadSize {
		return nil, fmt.Errorf("image larger than %d bytes", maxDownloadSize)
	}

	return p.decodeImageFromBytes(imageData)
}

// LoadImage loads an image from a file path with WebP support. EXIF
// orientation is applied so phone photos come out upright.
func (p *Processor) LoadImage(path string) (image.Image, error) {
	if img, err := imaging.Open(path, imaging.AutoOrientation(true)); err == nil {
		return img, nil
	}

	// Fallback: explicit WebP decode
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.Contains(strings.ToLower(path), ".webp") {
		if img, err := webp.Decode(f); err == nil {
			return img, nil
		}
	}
	if _, err := f.Seek(0, io.SeekStart); err == nil {
		if img, _, err := image.Decode(f); err == nil {
			return img, nil
		}
	}
	return nil, fmt.Errorf("image: unknown format for %s", path)
}

// LoadImageSmart loads an image from either a file path or URL
func (p *Processor) LoadImageSmart(source string) (image.Image, error) {
	if utils.IsURL(source) {
		return p.LoadImageFromURL(source)
	}
	return p.LoadImage(source)
}

// decodeImageFromBytes decodes an image from byte data with WebP support
func (p *Processor) decodeImageFromBytes(data []byte) (image.Image, error) {
	if img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown or unsupported format")
}

func (p *Processor) encode(img image.Image) (string, error) {
	return encodeBase64(img, p.config.Format, p.config.Quality)
}

func resizeToFit(img image.Image, maxDim int) image.Image {
	if maxDim <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}
	if w >= h {
		return imaging.Resize(img, maxDim, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxDim, imaging.Lanczos)
}

func encodeBase64(img image.Image, format string, quality int) (string, error) {
	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return "", err
		}
	default: // jpg
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// SaveImage saves an image to a file with the specified format and quality
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		return webp.Encode(f, img, opts)
	case "png":
		return imaging.Save(img, path)
	default: // jpg/jpeg
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}
