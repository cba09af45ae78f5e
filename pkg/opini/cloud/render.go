// Package cloud renders shape-masked word clouds from term frequency tables.
//
// Layout runs at mask resolution against a summed-area table of occupied
// pixels. The placed words are then rasterized at Scale times that size and
// downsampled, which keeps small glyphs legible.
package cloud

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/cognicore/opini/internal/logging"
	"github.com/cognicore/opini/pkg/opini/internalerr"
	"github.com/cognicore/opini/pkg/opini/wordfreq"
)

// Options controls layout and rendering. Start from DefaultOptions: zero
// values of HorizontalBias, RelativeScaling, Margin, ContourWidth and Seed
// are meaningful and are not replaced.
type Options struct {
	MaxTerms        int     `yaml:"max_terms"`
	Palette         string  `yaml:"palette"`
	Background      string  `yaml:"background"`
	HorizontalBias  float64 `yaml:"horizontal_bias"`
	Seed            int64   `yaml:"seed"`
	Scale           int     `yaml:"scale"`
	MaskPath        string  `yaml:"mask_path"`
	MaskSize        int     `yaml:"mask_size"`
	MaskThreshold   uint8   `yaml:"mask_threshold"`
	MinFontSize     int     `yaml:"min_font_size"`
	MaxFontSize     int     `yaml:"max_font_size"`
	FontStep        int     `yaml:"font_step"`
	RelativeScaling float64 `yaml:"relative_scaling"`
	Margin          int     `yaml:"margin"`
	ContourWidth    int     `yaml:"contour_width"`
	ContourColor    string  `yaml:"contour_color"`
	FontPath        string  `yaml:"font_path"`
	OutputDir       string  `yaml:"output_dir"`
}

// DefaultOptions returns the stock rendering settings.
func DefaultOptions() Options {
	return Options{
		MaxTerms:        200,
		Palette:         "tab20",
		Background:      "white",
		HorizontalBias:  0.9,
		Seed:            42,
		Scale:           2,
		MaskSize:        DefaultMaskSize,
		MaskThreshold:   DefaultMaskThreshold,
		MinFontSize:     4,
		FontStep:        1,
		RelativeScaling: 0.5,
		Margin:          2,
		ContourWidth:    1,
		ContourColor:    "#333333",
		OutputDir:       "visuals",
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxTerms <= 0 {
		o.MaxTerms = d.MaxTerms
	}
	if o.Palette == "" {
		o.Palette = d.Palette
	}
	if o.Background == "" {
		o.Background = d.Background
	}
	if o.Scale <= 0 {
		o.Scale = d.Scale
	}
	if o.MaskSize <= 0 {
		o.MaskSize = d.MaskSize
	}
	if o.MaskThreshold == 0 {
		o.MaskThreshold = d.MaskThreshold
	}
	if o.MinFontSize <= 0 {
		o.MinFontSize = d.MinFontSize
	}
	if o.FontStep <= 0 {
		o.FontStep = d.FontStep
	}
	if o.ContourColor == "" {
		o.ContourColor = d.ContourColor
	}
	if o.OutputDir == "" {
		o.OutputDir = d.OutputDir
	}
	return o
}

// Validate checks the ranges that have no default.
func (o Options) Validate() error {
	switch {
	case o.HorizontalBias < 0 || o.HorizontalBias > 1:
		return fmt.Errorf("cloud: horizontal_bias %v outside [0,1]: %w", o.HorizontalBias, internalerr.ErrInvalidConfig)
	case o.RelativeScaling < 0 || o.RelativeScaling > 1:
		return fmt.Errorf("cloud: relative_scaling %v outside [0,1]: %w", o.RelativeScaling, internalerr.ErrInvalidConfig)
	case o.Margin < 0:
		return fmt.Errorf("cloud: negative margin: %w", internalerr.ErrInvalidConfig)
	case o.ContourWidth < 0:
		return fmt.Errorf("cloud: negative contour_width: %w", internalerr.ErrInvalidConfig)
	case o.MaxFontSize < 0:
		return fmt.Errorf("cloud: negative max_font_size: %w", internalerr.ErrInvalidConfig)
	}
	return nil
}

// Artifact is a rendered cloud and where it was written.
type Artifact struct {
	Path       string
	Label      string
	Image      *image.RGBA
	Placements []Placement
}

// Renderer lays out and writes word clouds. It is safe for concurrent use;
// each Render call owns its faces and random source.
type Renderer struct {
	opts       Options
	mask       *Mask
	font       *opentype.Font
	palette    []color.RGBA
	background color.RGBA
	contour    color.RGBA
	log        logrus.FieldLogger
}

// NewRenderer resolves fonts, colours and the mask. A mask that cannot be
// loaded is logged and replaced by the circle mask.
func NewRenderer(opts Options, logger logrus.FieldLogger) (*Renderer, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	r := &Renderer{opts: opts, log: logging.OrDiscard(logger)}

	var err error
	if r.palette, err = Palette(opts.Palette); err != nil {
		return nil, err
	}
	if r.background, err = ParseColor(opts.Background); err != nil {
		return nil, err
	}
	if r.contour, err = ParseColor(opts.ContourColor); err != nil {
		return nil, err
	}

	ttf := goregular.TTF
	if opts.FontPath != "" {
		if ttf, err = os.ReadFile(opts.FontPath); err != nil {
			return nil, fmt.Errorf("cloud: read font: %w", err)
		}
	}
	if r.font, err = opentype.Parse(ttf); err != nil {
		return nil, fmt.Errorf("cloud: parse font: %w", err)
	}

	r.mask = CircleMask(opts.MaskSize)
	if opts.MaskPath != "" {
		m, err := LoadMask(opts.MaskPath, opts.MaskThreshold)
		if err != nil {
			r.log.WithError(err).WithField("path", opts.MaskPath).Warn("mask unusable, falling back to circle")
		} else {
			r.mask = m
		}
	}
	return r, nil
}

// Mask returns the mask used for every render.
func (r *Renderer) Mask() *Mask { return r.mask }

// Path returns where the cloud for label is written.
func (r *Renderer) Path(label string) string {
	return filepath.Join(r.opts.OutputDir, "wordcloud_"+label+".png")
}

// Layout places the table's terms on mask (the renderer's own mask when
// nil) without drawing. When ctx ends early the words placed so far are
// returned with ctx's error.
func (r *Renderer) Layout(ctx context.Context, table wordfreq.Table, mask *Mask) ([]Placement, error) {
	if mask == nil {
		mask = r.mask
	}
	faces := newFaceCache(r.font)
	defer faces.close()
	return r.layout(ctx, rankTerms(table, r.opts.MaxTerms), mask, faces, r.newRand())
}

// Render lays out the table, draws it and writes
// <OutputDir>/wordcloud_<label>.png, replacing any earlier file. If ctx
// ends during layout the words placed so far are still rendered.
func (r *Renderer) Render(ctx context.Context, table wordfreq.Table, label string) (*Artifact, error) {
	if label == "" || strings.ContainsAny(label, `/\`) || label == "." || label == ".." {
		return nil, fmt.Errorf("cloud: bad label %q: %w", label, internalerr.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	faces := newFaceCache(r.font)
	defer faces.close()

	placements, err := r.layout(ctx, rankTerms(table, r.opts.MaxTerms), r.mask, faces, r.newRand())
	if err != nil {
		if ctx.Err() == nil {
			return nil, fmt.Errorf("cloud: layout %s: %w", label, err)
		}
		r.log.WithFields(logrus.Fields{"label": label, "placed": len(placements)}).
			Warn("cloud layout cut short, rendering placed terms")
	}

	img, err := r.paint(placements, faces)
	if err != nil {
		return nil, fmt.Errorf("cloud: paint %s: %w", label, err)
	}

	path := r.Path(label)
	if err := writePNG(path, img); err != nil {
		return nil, fmt.Errorf("cloud: write %s: %w", path, err)
	}
	r.log.WithFields(logrus.Fields{"label": label, "path": path, "terms": len(placements)}).Debug("cloud written")

	return &Artifact{Path: path, Label: label, Image: img, Placements: placements}, nil
}

func (r *Renderer) newRand() *rand.Rand {
	seed := uint64(r.opts.Seed)
	return rand.New(rand.NewPCG(seed, seed))
}

// paint draws placements at Scale× resolution and downsamples to the mask
// size before tracing the contour.
func (r *Renderer) paint(placements []Placement, faces *faceCache) (*image.RGBA, error) {
	scale := r.opts.Scale
	base := r.mask.Bounds()
	big := image.NewRGBA(image.Rect(0, 0, base.Dx()*scale, base.Dy()*scale))
	draw.Draw(big, big.Bounds(), image.NewUniform(r.background), image.Point{}, draw.Src)

	for _, p := range placements {
		face, err := faces.get(p.FontSize * scale)
		if err != nil {
			return nil, err
		}
		glyph := rasterize(face, p.Term, p.Vertical)
		if glyph == nil {
			continue
		}
		at := glyph.Bounds().Add(image.Pt(p.X*scale, p.Y*scale))
		draw.DrawMask(big, at, image.NewUniform(p.Color), image.Point{}, glyph, image.Point{}, draw.Over)
	}

	out := big
	if scale > 1 {
		out = image.NewRGBA(base)
		draw.CatmullRom.Scale(out, out.Bounds(), big, big.Bounds(), draw.Src, nil)
	}
	drawContour(out, r.mask, r.opts.ContourWidth, r.contour)
	return out, nil
}

// drawContour paints paintable pixels within width of the mask edge.
func drawContour(img *image.RGBA, m *Mask, width int, c color.RGBA) {
	if width <= 0 {
		return
	}
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			if m.Paintable(x, y) && nearEdge(m, x, y, width) {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

func nearEdge(m *Mask, x, y, width int) bool {
	for dy := -width; dy <= width; dy++ {
		for dx := -width; dx <= width; dx++ {
			if !m.Paintable(x+dx, y+dy) {
				return true
			}
		}
	}
	return false
}

// writePNG encodes into a temporary file beside path and renames it into
// place so readers never observe a partial image.
func writePNG(path string, img image.Image) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".wordcloud-*.png")
	if err != nil {
		return err
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		cleanup()
		return err
	}
	return nil
}
