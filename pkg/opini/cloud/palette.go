package cloud

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"

	"github.com/cognicore/opini/pkg/opini/internalerr"
)

var palettes = map[string][]string{
	"tab10": {
		"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
		"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
	},
	"tab20": {
		"#1f77b4", "#aec7e8", "#ff7f0e", "#ffbb78", "#2ca02c",
		"#98df8a", "#d62728", "#ff9896", "#9467bd", "#c5b0d5",
		"#8c564b", "#c49c94", "#e377c2", "#f7b6d2", "#7f7f7f",
		"#c7c7c7", "#bcbd22", "#dbdb8d", "#17becf", "#9edae5",
	},
	"set2": {
		"#66c2a5", "#fc8d62", "#8da0cb", "#e78ac3",
		"#a6d854", "#ffd92f", "#e5c494", "#b3b3b3",
	},
	"dark2": {
		"#1b9e77", "#d95f02", "#7570b3", "#e7298a",
		"#66a61e", "#e6ab02", "#a6761d", "#666666",
	},
	"viridis": {
		"#440154", "#482878", "#3e4989", "#31688e", "#26828e",
		"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
	},
	"greens": {"#00441b", "#006d2c", "#238b45", "#41ab5d", "#74c476"},
	"reds":   {"#67000d", "#a50f15", "#cb181d", "#ef3b2c", "#fb6a4a"},
	"greys":  {"#000000", "#252525", "#525252", "#737373", "#969696"},
}

// Palette resolves a named palette. Names are case-insensitive.
func Palette(name string) ([]color.RGBA, error) {
	hexes, ok := palettes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("cloud: unknown palette %q: %w", name, internalerr.ErrInvalidConfig)
	}
	out := make([]color.RGBA, len(hexes))
	for i, h := range hexes {
		c, err := ParseColor(h)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// ParseColor accepts "#rgb", "#rrggbb" or an SVG colour name.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := colornames.Map[s]; ok {
		return c, nil
	}
	if !strings.HasPrefix(s, "#") {
		return color.RGBA{}, fmt.Errorf("cloud: unknown colour %q: %w", s, internalerr.ErrInvalidConfig)
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("cloud: bad hex colour %q: %w", s, internalerr.ErrInvalidConfig)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("cloud: bad hex colour %q: %w", s, internalerr.ErrInvalidConfig)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
