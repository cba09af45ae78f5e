package cloud

import (
	"context"
	"image"
	"image/color"
	"math"
	"math/rand/v2"
	"sort"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/cognicore/opini/pkg/opini/wordfreq"
)

// Placement is one word positioned on the base-resolution canvas.
// X, Y, W and H give the glyph box.
type Placement struct {
	Term     string
	Count    int
	FontSize int
	X, Y     int
	W, H     int
	Vertical bool
	Color    color.RGBA
}

// occupancy tracks blocked pixels and keeps a summed-area table so any box
// can be tested in constant time.
type occupancy struct {
	w, h     int
	blocked  []uint8
	integral []uint32
}

func newOccupancy(m *Mask) *occupancy {
	o := &occupancy{
		w:        m.w,
		h:        m.h,
		blocked:  make([]uint8, m.w*m.h),
		integral: make([]uint32, (m.w+1)*(m.h+1)),
	}
	for i, p := range m.paint {
		if !p {
			o.blocked[i] = 1
		}
	}
	o.recompute(0, 0)
	return o
}

// recompute refreshes the summed-area table below and right of (x0, y0).
func (o *occupancy) recompute(x0, y0 int) {
	stride := o.w + 1
	for y := y0; y < o.h; y++ {
		for x := x0; x < o.w; x++ {
			o.integral[(y+1)*stride+x+1] = uint32(o.blocked[y*o.w+x]) +
				o.integral[y*stride+x+1] +
				o.integral[(y+1)*stride+x] -
				o.integral[y*stride+x]
		}
	}
}

func (o *occupancy) free(x, y, bw, bh int) bool {
	stride := o.w + 1
	sum := o.integral[(y+bh)*stride+x+bw] -
		o.integral[y*stride+x+bw] -
		o.integral[(y+bh)*stride+x] +
		o.integral[y*stride+x]
	return sum == 0
}

// sample picks uniformly among all free positions for a bw×bh box.
func (o *occupancy) sample(bw, bh int, rng *rand.Rand) (int, int, bool) {
	if bw > o.w || bh > o.h || bw <= 0 || bh <= 0 {
		return 0, 0, false
	}
	hits := 0
	for y := 0; y <= o.h-bh; y++ {
		for x := 0; x <= o.w-bw; x++ {
			if o.free(x, y, bw, bh) {
				hits++
			}
		}
	}
	if hits == 0 {
		return 0, 0, false
	}
	target := rng.IntN(hits)
	for y := 0; y <= o.h-bh; y++ {
		for x := 0; x <= o.w-bw; x++ {
			if !o.free(x, y, bw, bh) {
				continue
			}
			if target == 0 {
				return x, y, true
			}
			target--
		}
	}
	return 0, 0, false
}

// mark blocks every inked pixel of glyph drawn at (x, y).
func (o *occupancy) mark(glyph *image.Alpha, x, y int) {
	b := glyph.Bounds()
	for gy := 0; gy < b.Dy(); gy++ {
		py := y + gy
		if py < 0 || py >= o.h {
			continue
		}
		for gx := 0; gx < b.Dx(); gx++ {
			px := x + gx
			if px < 0 || px >= o.w {
				continue
			}
			if glyph.Pix[gy*glyph.Stride+gx] > 0 {
				o.blocked[py*o.w+px] = 1
			}
		}
	}
	o.recompute(max(x, 0), max(y, 0))
}

// faceCache holds one face per pixel size for the lifetime of a render.
// Faces are not safe for concurrent use, so each render owns its cache.
type faceCache struct {
	font *opentype.Font
	byPx map[int]font.Face
}

func newFaceCache(f *opentype.Font) *faceCache {
	return &faceCache{font: f, byPx: make(map[int]font.Face)}
}

func (c *faceCache) get(px int) (font.Face, error) {
	if face, ok := c.byPx[px]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(c.font, &opentype.FaceOptions{
		Size:    float64(px),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, err
	}
	c.byPx[px] = face
	return face, nil
}

func (c *faceCache) close() {
	for _, face := range c.byPx {
		face.Close()
	}
}

// rasterize draws text into a tight alpha box, rotated 90° counter-clockwise
// when vertical. It returns nil for text with no ink.
func rasterize(face font.Face, text string, vertical bool) *image.Alpha {
	b, _ := font.BoundString(face, text)
	w := (b.Max.X - b.Min.X).Ceil()
	h := (b.Max.Y - b.Min.Y).Ceil()
	if w <= 0 || h <= 0 {
		return nil
	}
	img := image.NewAlpha(image.Rect(0, 0, w, h))
	d := font.Drawer{
		Dst:  img,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.Point26_6{X: -b.Min.X, Y: -b.Min.Y},
	}
	d.DrawString(text)
	if vertical {
		return rotateCCW(img)
	}
	return img
}

func rotateCCW(src *image.Alpha) *image.Alpha {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dst := image.NewAlpha(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Pix[(w-1-x)*dst.Stride+y] = src.Pix[y*src.Stride+x]
		}
	}
	return dst
}

// rankTerms orders the table by count then token, clamps non-positive
// counts to 1 and keeps at most limit terms. An empty table yields the
// sentinel term.
func rankTerms(table wordfreq.Table, limit int) []wordfreq.Term {
	terms := make([]wordfreq.Term, 0, len(table))
	for tok, n := range table {
		if tok == "" {
			continue
		}
		terms = append(terms, wordfreq.Term{Token: tok, Count: max(n, 1)})
	}
	if len(terms) == 0 {
		terms = append(terms, wordfreq.Term{Token: wordfreq.Sentinel, Count: 1})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Token < terms[j].Token
	})
	if limit > 0 && len(terms) > limit {
		terms = terms[:limit]
	}
	return terms
}

// layout places terms in rank order. Font size follows relative scaling
// against the previous term; when a word does not fit the other orientation
// is tried once, then the size shrinks by FontStep. Layout ends at the first
// word that cannot be placed above MinFontSize, or when ctx is done.
func (r *Renderer) layout(ctx context.Context, terms []wordfreq.Term, mask *Mask, faces *faceCache, rng *rand.Rand) ([]Placement, error) {
	opts := r.opts
	occ := newOccupancy(mask)

	size := opts.MaxFontSize
	if size <= 0 {
		size = max(mask.h/4, opts.MinFontSize)
	}
	maxCount := float64(terms[0].Count)
	lastFreq := 1.0
	rs := opts.RelativeScaling

	var out []Placement
	for _, t := range terms {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		freq := float64(t.Count) / maxCount
		if rs != 0 {
			size = int(math.Round((rs*(freq/lastFreq) + (1 - rs)) * float64(size)))
		}
		vertical := rng.Float64() >= opts.HorizontalBias
		triedOther := false

		var (
			glyph  *image.Alpha
			x, y   int
			placed bool
			inked  = true
		)
		for size >= opts.MinFontSize {
			face, err := faces.get(size)
			if err != nil {
				return out, err
			}
			glyph = rasterize(face, t.Token, vertical)
			if glyph == nil {
				inked = false
				break
			}
			gb := glyph.Bounds()
			if bx, by, ok := occ.sample(gb.Dx()+opts.Margin, gb.Dy()+opts.Margin, rng); ok {
				x, y = bx+opts.Margin/2, by+opts.Margin/2
				placed = true
				break
			}
			if !triedOther && opts.HorizontalBias < 1 {
				vertical = !vertical
				triedOther = true
			} else {
				size -= opts.FontStep
				vertical = false
			}
		}
		if !inked {
			continue
		}
		if !placed {
			break
		}

		occ.mark(glyph, x, y)
		out = append(out, Placement{
			Term:     t.Token,
			Count:    t.Count,
			FontSize: size,
			X:        x,
			Y:        y,
			W:        glyph.Bounds().Dx(),
			H:        glyph.Bounds().Dy(),
			Vertical: vertical,
			Color:    r.palette[rng.IntN(len(r.palette))],
		})
		lastFreq = freq
	}
	return out, nil
}
