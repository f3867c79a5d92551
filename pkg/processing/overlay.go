package processing

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/brafit/pkg/landmark"
)

// Guide is a horizontal reference line at a normalized height
type Guide struct {
	Y     float64
	Color color.NRGBA
}

var (
	confidentColor = color.NRGBA{0, 255, 0, 255}
	weakColor      = color.NRGBA{255, 0, 0, 255}
	skeletonColor  = color.NRGBA{0, 170, 255, 255}
	midBustColor   = color.NRGBA{255, 204, 0, 255}
	underbustColor = color.NRGBA{255, 0, 255, 255}
)

// BustGuides returns the mid-bust and underbust lines for a front photo,
// placed at the given fractions of the shoulder-to-hip span. It returns nil
// when shoulders or hips are missing.
func BustGuides(raws []landmark.Raw, midBustRatio, underbustRatio float64) []Guide {
	y := map[string]float64{}
	for _, r := range raws {
		y[r.Name] = r.Y
	}
	ls, ok1 := y[landmark.LeftShoulder]
	rs, ok2 := y[landmark.RightShoulder]
	lh, ok3 := y[landmark.LeftHip]
	rh, ok4 := y[landmark.RightHip]
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil
	}

	shoulder := (ls + rs) / 2
	torso := (lh+rh)/2 - shoulder
	return []Guide{
		{Y: shoulder + midBustRatio*torso, Color: midBustColor},
		{Y: shoulder + underbustRatio*torso, Color: underbustColor},
	}
}

// CreateDebugOverlay draws detected landmarks, the shoulder and hip lines and
// any guides over the photo. Landmarks below minConfidence are drawn in red.
func (p *Processor) CreateDebugOverlay(img image.Image, raws []landmark.Raw, minConfidence float64, guides ...Guide) image.Image {
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()

	stroke := int(math.Max(2, 0.004*float64(minInt(w, h))))
	cross := int(math.Max(4, 0.01*float64(minInt(w, h))))

	px := func(x, y float64) (int, int) {
		return int(clamp(x, 0, 1)*float64(w) + 0.5), int(clamp(y, 0, 1)*float64(h) + 0.5)
	}

	points := map[string]landmark.Raw{}
	for _, r := range raws {
		points[r.Name] = r
	}
	for _, pair := range [][2]string{
		{landmark.LeftShoulder, landmark.RightShoulder},
		{landmark.LeftHip, landmark.RightHip},
		{landmark.LeftShoulder, landmark.LeftHip},
		{landmark.RightShoulder, landmark.RightHip},
	} {
		a, okA := points[pair[0]]
		b, okB := points[pair[1]]
		if !okA || !okB {
			continue
		}
		x0, y0 := px(a.X, a.Y)
		x1, y1 := px(b.X, b.Y)
		drawLine(nrgba, x0, y0, x1, y1, skeletonColor, stroke)
	}

	for _, g := range guides {
		_, y := px(0, g.Y)
		for s := 0; s < stroke; s++ {
			drawHLine(nrgba, y+s, 0, w, g.Color)
		}
	}

	for _, r := range raws {
		c := confidentColor
		if r.Confidence < minConfidence {
			c = weakColor
		}
		x, y := px(r.X, r.Y)
		for s := -stroke / 2; s <= stroke/2; s++ {
			drawHLine(nrgba, y+s, x-cross, x+cross, c)
			drawVLine(nrgba, x+s, y-cross, y+cross, c)
		}
	}

	return nrgba
}

// Helper functions
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// drawLine rasterizes a thick segment by stamping squares along it
func drawLine(img *image.NRGBA, x0, y0, x1, y1 int, c color.NRGBA, stroke int) {
	steps := maxInt(absInt(x1-x0), absInt(y1-y0))
	if steps == 0 {
		steps = 1
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := x0 + int(math.Round(t*float64(x1-x0)))
		y := y0 + int(math.Round(t*float64(y1-y0)))
		for s := 0; s < stroke; s++ {
			drawHLine(img, y-stroke/2+s, x-stroke/2, x-stroke/2+stroke, c)
		}
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > img.Bounds().Dx() {
		x1 = img.Bounds().Dx()
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > img.Bounds().Dy() {
		y1 = img.Bounds().Dy()
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
