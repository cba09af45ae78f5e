package cloud

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/cognicore/opini/pkg/opini/internalerr"
)

const (
	// DefaultMaskSize is the side of the procedural circle mask.
	DefaultMaskSize = 800
	// DefaultMaskThreshold separates paintable (darker) from excluded pixels.
	DefaultMaskThreshold = 128

	circleMargin = 10
)

// Mask marks which canvas pixels may receive words. It is read-only once
// built and may be shared between renders.
type Mask struct {
	w, h  int
	paint []bool
}

// CircleMask returns a size×size mask whose paintable area is the disc of
// radius size/2-10 around the centre.
func CircleMask(size int) *Mask {
	if size <= 0 {
		size = DefaultMaskSize
	}
	c := size / 2
	r := size/2 - circleMargin
	m := &Mask{w: size, h: size, paint: make([]bool, size*size)}
	for y := 0; y < size; y++ {
		dy := y - c
		for x := 0; x < size; x++ {
			dx := x - c
			m.paint[y*size+x] = dx*dx+dy*dy <= r*r
		}
	}
	return m
}

// LoadMask reads a silhouette image. Pixels whose luminance is at or above
// threshold, and fully transparent pixels, are excluded; darker pixels are
// paintable. A zero threshold means DefaultMaskThreshold.
func LoadMask(path string, threshold uint8) (*Mask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cloud: open mask: %w: %w", internalerr.ErrMaskUnreadable, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("cloud: decode mask %s: %w: %w", path, internalerr.ErrMaskUnreadable, err)
	}
	m := MaskFromImage(img, threshold)
	if m.Area() == 0 {
		return nil, fmt.Errorf("cloud: mask %s has no paintable area: %w", path, internalerr.ErrMaskUnreadable)
	}
	return m, nil
}

// MaskFromImage thresholds img the same way LoadMask does.
func MaskFromImage(img image.Image, threshold uint8) *Mask {
	if threshold == 0 {
		threshold = DefaultMaskThreshold
	}
	b := img.Bounds()
	m := &Mask{w: b.Dx(), h: b.Dy(), paint: make([]bool, b.Dx()*b.Dy())}
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			c := img.At(b.Min.X+x, b.Min.Y+y)
			if _, _, _, a := c.RGBA(); a == 0 {
				continue
			}
			g := color.GrayModel.Convert(c).(color.Gray)
			m.paint[y*m.w+x] = g.Y < threshold
		}
	}
	return m
}

// Bounds returns the mask dimensions as a rectangle at the origin.
func (m *Mask) Bounds() image.Rectangle { return image.Rect(0, 0, m.w, m.h) }

// Paintable reports whether (x, y) may receive a word. Out-of-range
// coordinates are not paintable.
func (m *Mask) Paintable(x, y int) bool {
	if x < 0 || y < 0 || x >= m.w || y >= m.h {
		return false
	}
	return m.paint[y*m.w+x]
}

// Area counts paintable pixels.
func (m *Mask) Area() int {
	n := 0
	for _, p := range m.paint {
		if p {
			n++
		}
	}
	return n
}
