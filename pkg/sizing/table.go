package sizing

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

//go:embed calibration/default.json
var defaultTableJSON []byte

// maxTableSize bounds calibration files read from disk
const maxTableSize = 1 << 20

// CupBound is the smallest single-breast volume that maps to Cup
type CupBound struct {
	MinCC float64 `json:"min_cc"`
	Cup   string  `json:"cup"`
}

// Band is the ordered cup list for one band size. MaxCC is the top of the
// largest cup; volumes above it are out of range.
type Band struct {
	Band  int        `json:"band"`
	MaxCC float64    `json:"max_cc"`
	Cups  []CupBound `json:"cups"`
}

// Descriptor labels a relative volume band for results without a cup letter
type Descriptor struct {
	MinRelative float64 `json:"min_relative"`
	Label       string  `json:"label"`
}

// Table maps (band, volume) to a cup letter. It is read-only once loaded.
type Table struct {
	Unit        string       `json:"unit"`
	Bands       []Band       `json:"bands"`
	Descriptors []Descriptor `json:"descriptors"`
}

// DefaultTable returns the embedded calibration table
func DefaultTable() *Table {
	t, err := ParseTable(bytes.NewReader(defaultTableJSON))
	if err != nil {
		panic(fmt.Sprintf("sizing: embedded calibration table is invalid: %v", err))
	}
	return t
}

// LoadTable reads a calibration table from a JSON file
func LoadTable(path string) (*Table, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("calibration file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat calibration file: %w", err)
	}
	if info.Size() > maxTableSize {
		return nil, fmt.Errorf("calibration file too large: %d bytes (max %d)", info.Size(), maxTableSize)
	}

	file, err := os.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open calibration file: %w", err)
	}
	defer file.Close()

	return ParseTable(file)
}

// ParseTable decodes and validates a calibration table. Bands are sorted by
// size; cups must already be in ascending volume order.
func ParseTable(r io.Reader) (*Table, error) {
	var t Table
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to decode calibration table: %w", err)
	}

	sort.SliceStable(t.Bands, func(i, j int) bool { return t.Bands[i].Band < t.Bands[j].Band })

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks the table is non-empty and monotonic
func (t *Table) Validate() error {
	if t.Unit != "cc" {
		return fmt.Errorf("calibration table unit must be \"cc\", got %q", t.Unit)
	}
	if len(t.Bands) == 0 {
		return fmt.Errorf("calibration table has no bands")
	}

	for i, b := range t.Bands {
		if b.Band <= 0 {
			return fmt.Errorf("band %d: band size must be positive", b.Band)
		}
		if i > 0 && t.Bands[i-1].Band == b.Band {
			return fmt.Errorf("band %d: listed twice", b.Band)
		}
		if len(b.Cups) == 0 {
			return fmt.Errorf("band %d: no cups", b.Band)
		}
		if b.Cups[0].MinCC < 0 {
			return fmt.Errorf("band %d: negative lower bound", b.Band)
		}
		for j, c := range b.Cups {
			if c.Cup == "" {
				return fmt.Errorf("band %d: cup %d has no label", b.Band, j)
			}
			if j > 0 && c.MinCC <= b.Cups[j-1].MinCC {
				return fmt.Errorf("band %d: cup %s lower bound %.1f is not above %s (%.1f)",
					b.Band, c.Cup, c.MinCC, b.Cups[j-1].Cup, b.Cups[j-1].MinCC)
			}
		}
		if last := b.Cups[len(b.Cups)-1]; b.MaxCC <= last.MinCC {
			return fmt.Errorf("band %d: max_cc %.1f must exceed the %s lower bound %.1f", b.Band, b.MaxCC, last.Cup, last.MinCC)
		}
	}

	if len(t.Descriptors) == 0 {
		return fmt.Errorf("calibration table has no descriptors")
	}
	for i, d := range t.Descriptors {
		if d.Label == "" {
			return fmt.Errorf("descriptor %d has no label", i)
		}
		if i > 0 && d.MinRelative <= t.Descriptors[i-1].MinRelative {
			return fmt.Errorf("descriptor %s must start above %s", d.Label, t.Descriptors[i-1].Label)
		}
	}
	return nil
}

// BandSizes lists the bands in the table
func (t *Table) BandSizes() []int {
	out := make([]int, len(t.Bands))
	for i, b := range t.Bands {
		out[i] = b.Band
	}
	return out
}

// nearestBand returns the band entry closest to size; ties go to the smaller band.
func (t *Table) nearestBand(size int) Band {
	best := t.Bands[0]
	for _, b := range t.Bands[1:] {
		if abs(b.Band-size) < abs(best.Band-size) {
			best = b
		}
	}
	return best
}

// cup finds the greatest lower bound not above volume
func (b Band) cup(volume float64) (CupBound, bool) {
	i := sort.Search(len(b.Cups), func(i int) bool { return b.Cups[i].MinCC > volume })
	if i == 0 {
		return CupBound{}, false
	}
	return b.Cups[i-1], true
}

func (t *Table) descriptor(relative float64) string {
	label := t.Descriptors[0].Label
	for _, d := range t.Descriptors {
		if relative >= d.MinRelative {
			label = d.Label
		}
	}
	return label
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
