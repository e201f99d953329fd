package game

import (
	"fmt"
	"strings"
)

// Color is one of the palette entries a wager can be placed on.
type Color string

const (
	Red    Color = "red"
	Purple Color = "purple"
	Pink   Color = "pink"
	Orange Color = "orange"
	Blue   Color = "blue"
	Green  Color = "green"
)

// DrawSize is the number of colors revealed by a single draw.
const DrawSize = 3

// DefaultColors is the fixed six-color palette used when none is configured.
var DefaultColors = []Color{Red, Purple, Pink, Orange, Blue, Green}

// Palette is the fixed set of colors accepted for wagers and draws.
type Palette struct {
	ordered []Color
	set     map[Color]struct{}
}

// NewPalette builds a palette from the provided colors. Names are normalised to
// lower case and duplicates are dropped.
func NewPalette(colors []Color) Palette {
	p := Palette{set: make(map[Color]struct{}, len(colors))}
	for _, c := range colors {
		c = Color(strings.ToLower(strings.TrimSpace(string(c))))
		if c == "" {
			continue
		}
		if _, dup := p.set[c]; dup {
			continue
		}
		p.set[c] = struct{}{}
		p.ordered = append(p.ordered, c)
	}
	return p
}

// Colors returns the palette in configuration order.
func (p Palette) Colors() []Color {
	out := make([]Color, len(p.ordered))
	copy(out, p.ordered)
	return out
}

// Contains reports whether c belongs to the palette.
func (p Palette) Contains(c Color) bool {
	_, ok := p.set[c]
	return ok
}

// Parse normalises raw user input into a palette color.
func (p Palette) Parse(raw string) (Color, error) {
	c := Color(strings.ToLower(strings.TrimSpace(raw)))
	if !p.Contains(c) {
		return "", fmt.Errorf("%w: %q", ErrInvalidColor, raw)
	}
	return c, nil
}

// ParseDraw validates a draw. Any wrong length or unknown entry rejects the
// whole draw.
func (p Palette) ParseDraw(raw []string) ([]Color, error) {
	if len(raw) != DrawSize {
		return nil, fmt.Errorf("%w: expected %d colors, got %d", ErrInvalidDraw, DrawSize, len(raw))
	}
	draw := make([]Color, 0, DrawSize)
	for _, r := range raw {
		c := Color(strings.ToLower(strings.TrimSpace(r)))
		if !p.Contains(c) {
			return nil, fmt.Errorf("%w: unknown color %q", ErrInvalidDraw, r)
		}
		draw = append(draw, c)
	}
	return draw, nil
}

// Hits counts how many draw slots equal c. Repeated colors count once per slot.
func Hits(draw []Color, c Color) int {
	n := 0
	for _, d := range draw {
		if d == c {
			n++
		}
	}
	return n
}

// Multiplier returns hits+1 for a winning color and zero for a miss.
func Multiplier(hits int) int64 {
	if hits <= 0 {
		return 0
	}
	return int64(hits) + 1
}
