package ase

import "math"

// MaxPaletteEntries is the largest number of entries a Palette can hold.
const MaxPaletteEntries = 256

// PaletteEntry is one colour slot in a Palette. Name is accepted on decode
// and metadata is preserved in memory, but the encoder never emits entry
// names (§9's open question: faithful re-encoding of a decoded file that
// carried palette names omits them, per the Non-goals in §1).
type PaletteEntry struct {
	Color Rgba32
	Name  string
}

// Palette is an ordered list of up to MaxPaletteEntries entries, tagged with
// the first frame from which it takes effect.
type Palette struct {
	Frame   int
	Entries []PaletteEntry
}

// NewPalette returns a Palette of n black, opaque entries anchored at the
// given frame.
func NewPalette(frame, n int) Palette {
	p := Palette{Frame: frame, Entries: make([]PaletteEntry, n)}
	for i := range p.Entries {
		p.Entries[i].Color = Rgba32{A: 255}
	}
	return p
}

// Resize grows or shrinks the entry list to n entries, in place. New
// entries (on growth) are black and opaque.
func (p *Palette) Resize(n int) {
	if n <= len(p.Entries) {
		p.Entries = p.Entries[:n]
		return
	}
	grown := make([]PaletteEntry, n)
	copy(grown, p.Entries)
	for i := len(p.Entries); i < n; i++ {
		grown[i].Color = Rgba32{A: 255}
	}
	p.Entries = grown
}

// ColorAt returns the colour at index, or transparent black if index is out
// of range.
func (p Palette) ColorAt(index int) Rgba32 {
	if index < 0 || index >= len(p.Entries) {
		return Rgba32{}
	}
	return p.Entries[index].Color
}

// SetColor sets the colour at index, growing the palette if necessary.
func (p *Palette) SetColor(index int, c Rgba32) {
	if index >= len(p.Entries) {
		p.Resize(index + 1)
	}
	p.Entries[index].Color = c
}

// Closest returns the index of the entry whose RGB channels are nearest to
// target by squared Euclidean distance. Alpha is ignored, matching the
// reference editor's colour-picker behaviour.
func (p Palette) Closest(target Rgba32) int {
	best, bestDist := -1, math.MaxInt64
	for i, e := range p.Entries {
		dr := int(e.Color.R) - int(target.R)
		dg := int(e.Color.G) - int(target.G)
		db := int(e.Color.B) - int(target.B)
		dist := dr*dr + dg*dg + db*db
		if dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}
