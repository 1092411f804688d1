package ase

import "github.com/google/uuid"

// FrameInfo is per-frame metadata: currently only a playback duration.
type FrameInfo struct {
	// DurationMs is the frame's duration in milliseconds. It is a positive
	// integer on the wire, stored in a WORD (so at most 65535 on encode).
	DurationMs int
}

// LayerCel pairs a layer with the cel it owns at some frame, as returned by
// Sprite.CelsAtFrame.
type LayerCel struct {
	Layer *Layer
	Cel   *Cel
}

// Sprite is the root aggregate of the document model: a canvas, an ordered
// list of frames, a layer tree, an ordered list of palettes (each tagged
// with the frame from which it takes effect), tilesets, tags, slices and
// attached UserData.
type Sprite struct {
	// ID identifies this in-memory document across saves, the way an editor
	// tab keeps a stable identity independent of the file path. No chunk on
	// the wire carries it, so it never round-trips: NewSprite and Decode each
	// mint a fresh one with uuid.New().
	ID uuid.UUID

	Width, Height int
	Mode          ColorMode
	// TransparentIndex is meaningful only in ColorModeIndexed.
	TransparentIndex int
	PixelRatio       PixelRatio
	Grid             Grid

	Frames []FrameInfo

	// Root is the hidden root layer group: every other layer is a
	// descendant of Root. Root itself is never shown to the user and never
	// encoded as a Layer chunk.
	Root *Layer

	// Palettes is kept in ascending Frame order; see PaletteAt.
	Palettes []Palette

	Tilesets []*Tileset
	Tags     []*Tag
	Slices   []*Slice

	UserData UserData

	// Path and Modified record the side effects DecodeFile/EncodeFile have
	// on the document, per §6: the source/destination path, and whether the
	// in-memory document has since diverged from what's on disk. Nothing
	// else in this package touches Modified; callers that mutate a decoded
	// Sprite are expected to set it themselves.
	Path     string
	Modified bool
}

// NewSprite returns a Sprite with the given canvas and colour mode: one
// frame (100ms), an empty root layer group, a 1:1 pixel ratio, the default
// display grid, and a single-entry palette anchored at frame 0 (satisfying
// §3's "at least one palette exists" invariant regardless of colour mode).
func NewSprite(width, height int, mode ColorMode) *Sprite {
	return &Sprite{
		ID:         uuid.New(),
		Width:      width,
		Height:     height,
		Mode:       mode,
		PixelRatio: PixelRatio{Width: 1, Height: 1},
		Grid:       DefaultGrid,
		Frames:     []FrameInfo{{DurationMs: 100}},
		Root:       newRootLayer(),
		Palettes:   []Palette{NewPalette(0, 1)},
	}
}

// FrameCount returns the number of frames. It is always >= 1.
func (s *Sprite) FrameCount() int { return len(s.Frames) }

// AppendFrame adds a frame with the given duration and returns its index.
func (s *Sprite) AppendFrame(durationMs int) int {
	s.Frames = append(s.Frames, FrameInfo{DurationMs: durationMs})
	return len(s.Frames) - 1
}

// InsertFrame inserts a frame of the given duration at index at, shifting
// every cel, palette, tag range and slice key at or after at forward by one
// frame.
func (s *Sprite) InsertFrame(at int, durationMs int) error {
	if at < 0 || at > len(s.Frames) {
		return errInvalidData("insert frame: index %d out of range [0, %d]", at, len(s.Frames))
	}
	s.Frames = append(s.Frames, FrameInfo{})
	copy(s.Frames[at+1:], s.Frames[at:])
	s.Frames[at] = FrameInfo{DurationMs: durationMs}

	for _, l := range s.FlattenLayers() {
		l.shiftCels(at, 1)
	}
	for i := range s.Palettes {
		if s.Palettes[i].Frame >= at {
			s.Palettes[i].Frame++
		}
	}
	for _, t := range s.Tags {
		if t.FromFrame >= at {
			t.FromFrame++
		}
		if t.ToFrame >= at {
			t.ToFrame++
		}
	}
	for _, sl := range s.Slices {
		for i := range sl.Keys {
			if sl.Keys[i].Frame >= at {
				sl.Keys[i].Frame++
			}
		}
	}
	return nil
}

// RemoveFrame removes the frame at index at, shifting later frames'
// cels/palettes/tags/slice keys back by one. It fails if this is the last
// remaining frame, per §3's invariant that FrameCount is always >= 1.
func (s *Sprite) RemoveFrame(at int) error {
	if len(s.Frames) <= 1 {
		return errInvalidData("remove frame: sprite has only one frame left")
	}
	if at < 0 || at >= len(s.Frames) {
		return errInvalidData("remove frame: index %d out of range [0, %d)", at, len(s.Frames))
	}
	s.Frames = append(s.Frames[:at], s.Frames[at+1:]...)

	for _, l := range s.FlattenLayers() {
		l.RemoveCel(at)
		l.shiftCels(at+1, -1)
	}

	keep := s.Palettes[:0]
	for _, p := range s.Palettes {
		switch {
		case p.Frame == at && at != 0:
			// Dropped; the palette in effect at `at` carries forward.
		case p.Frame > at:
			p.Frame--
			keep = append(keep, p)
		default:
			keep = append(keep, p)
		}
	}
	s.Palettes = keep

	for _, t := range s.Tags {
		if t.FromFrame > at {
			t.FromFrame--
		}
		if t.ToFrame > at {
			t.ToFrame--
		}
	}
	for _, sl := range s.Slices {
		for i := range sl.Keys {
			if sl.Keys[i].Frame > at {
				sl.Keys[i].Frame--
			}
		}
	}
	return nil
}

// PaletteAt returns the palette in effect at frame: the one with the
// greatest Frame <= frame. Palettes is assumed sorted in ascending Frame
// order, an invariant AppendPalette maintains.
func (s *Sprite) PaletteAt(frame int) Palette {
	best := s.Palettes[0]
	for _, p := range s.Palettes {
		if p.Frame <= frame {
			best = p
		} else {
			break
		}
	}
	return best
}

// AppendPalette inserts p in ascending Frame order, replacing any existing
// palette already anchored at p.Frame.
func (s *Sprite) AppendPalette(p Palette) {
	for i, existing := range s.Palettes {
		if existing.Frame == p.Frame {
			s.Palettes[i] = p
			return
		}
		if existing.Frame > p.Frame {
			s.Palettes = append(s.Palettes, Palette{})
			copy(s.Palettes[i+1:], s.Palettes[i:])
			s.Palettes[i] = p
			return
		}
	}
	s.Palettes = append(s.Palettes, p)
}

// AppendTileset appends t and returns its index.
func (s *Sprite) AppendTileset(t *Tileset) int {
	s.Tilesets = append(s.Tilesets, t)
	return len(s.Tilesets) - 1
}

// AppendTag appends a tag.
func (s *Sprite) AppendTag(t *Tag) {
	s.Tags = append(s.Tags, t)
}

// AppendSlice appends a slice.
func (s *Sprite) AppendSlice(sl *Slice) {
	s.Slices = append(s.Slices, sl)
}

// FlattenLayers returns every layer under Root, pre-order depth-first, a
// group before its own contents. This is the flattened index §4.2/§4.3 use
// to address layers from Cel chunks: index 0 is Root's first child, and so
// on.
func (s *Sprite) FlattenLayers() []*Layer {
	out := make([]*Layer, 0, 8)
	for _, c := range s.Root.Children {
		out = c.flatten(out)
	}
	return out
}

// LeafLayers returns every non-Group layer under Root, in the same
// bottom-to-top, pre-order traversal as FlattenLayers, filtered to the
// layers that can actually own a cel.
func (s *Sprite) LeafLayers() []*Layer {
	all := s.FlattenLayers()
	out := make([]*Layer, 0, len(all))
	for _, l := range all {
		if l.Kind != LayerKindGroup {
			out = append(out, l)
		}
	}
	return out
}

// CelsAtFrame returns every (layer, cel) pair present at frame, in
// flattened layer order.
func (s *Sprite) CelsAtFrame(frame int) []LayerCel {
	var out []LayerCel
	for _, l := range s.LeafLayers() {
		if c, ok := l.Cel(frame); ok {
			out = append(out, LayerCel{Layer: l, Cel: c})
		}
	}
	return out
}

// Validate checks the structural invariants §3 and §8 place on a Sprite:
// at least one frame, palettes anchored at frame 0 in ascending order,
// in-range tileset references, and linked cels that target an unlinked
// cel in range.
func (s *Sprite) Validate() error {
	if len(s.Frames) == 0 {
		return errInvalidData("sprite has no frames")
	}
	if len(s.Palettes) == 0 || s.Palettes[0].Frame != 0 {
		return errInvalidData("sprite has no palette anchored at frame 0")
	}
	for i := 1; i < len(s.Palettes); i++ {
		if s.Palettes[i].Frame <= s.Palettes[i-1].Frame {
			return errInvalidData("palettes are not in strictly ascending frame order")
		}
	}
	for _, l := range s.LeafLayers() {
		if l.Kind == LayerKindTilemap {
			found := false
			for _, t := range s.Tilesets {
				if t == l.Tileset {
					found = true
					break
				}
			}
			if l.Tileset == nil || !found {
				return errInvalidData("tilemap layer %q references a tileset not owned by the sprite", l.Name)
			}
		}
		for frame, c := range l.cels {
			if !c.IsLinked() {
				continue
			}
			if c.LinkedToFrame < 0 || c.LinkedToFrame >= len(s.Frames) {
				return errInvalidData("layer %q: cel at frame %d links to out-of-range frame %d", l.Name, frame, c.LinkedToFrame)
			}
			target, ok := l.Cel(c.LinkedToFrame)
			if !ok {
				return errInvalidData("layer %q: cel at frame %d links to missing frame %d", l.Name, frame, c.LinkedToFrame)
			}
			if target.IsLinked() {
				return errInvalidData("layer %q: cel at frame %d links to an already-linked cel", l.Name, frame)
			}
		}
	}
	return nil
}
