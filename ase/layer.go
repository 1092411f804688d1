package ase

// LayerKind discriminates the three layer variants. A Layer is modelled as
// one struct carrying a Kind plus whichever fields that kind needs, the same
// shape used throughout this package for other sum-typed values (see
// ErrorKind/Error) rather than an interface with three concrete
// implementations: flattening, index-building and encode/decode dispatch
// all switch on Kind anyway, and a single struct keeps the parent/child
// back-references simple.
type LayerKind byte

const (
	LayerKindImage LayerKind = iota
	LayerKindGroup
	LayerKindTilemap
)

func (k LayerKind) String() string {
	switch k {
	case LayerKindImage:
		return "Image"
	case LayerKindGroup:
		return "Group"
	case LayerKindTilemap:
		return "Tilemap"
	}
	return "Unknown"
}

// Layer is one entry in a Sprite's layer tree.
type Layer struct {
	Kind  LayerKind
	Name  string
	Flags LayerFlags
	// Opacity is in [0, 255]. It only applies to Image/Tilemap layers when
	// the file header's LayerOpacityValid flag is set, or to Group layers
	// when GroupOpacityValid is set; otherwise it is treated as 255 — see
	// decode.go.
	Opacity byte
	Blend   BlendMode

	UserData UserData

	// parent is a non-owning back-reference maintained by AppendChild; it
	// exists only to answer Depth() and ancestor-visibility queries, never
	// to own or traverse downward.
	parent *Layer

	// Children holds child layers, bottom-to-top, for LayerKindGroup.
	Children []*Layer

	// cels maps frame index to Cel, for LayerKindImage and LayerKindTilemap.
	cels map[int]*Cel

	// Tileset and Grid apply only to LayerKindTilemap.
	Tileset *Tileset
	Grid    Grid
}

// NewImageLayer returns an empty Image-kind layer with default flags.
func NewImageLayer(name string) *Layer {
	return &Layer{
		Kind:    LayerKindImage,
		Name:    name,
		Flags:   DefaultLayerFlags,
		Opacity: 255,
		cels:    map[int]*Cel{},
	}
}

// NewGroupLayer returns an empty Group-kind layer with default flags.
func NewGroupLayer(name string) *Layer {
	return &Layer{
		Kind:    LayerKindGroup,
		Name:    name,
		Flags:   DefaultLayerFlags,
		Opacity: 255,
	}
}

// NewTilemapLayer returns an empty Tilemap-kind layer referencing tileset,
// with default flags and grid.
func NewTilemapLayer(name string, tileset *Tileset) *Layer {
	return &Layer{
		Kind:    LayerKindTilemap,
		Name:    name,
		Flags:   DefaultLayerFlags,
		Opacity: 255,
		cels:    map[int]*Cel{},
		Tileset: tileset,
		Grid:    DefaultGrid,
	}
}

// newRootLayer returns the hidden root group every Sprite carries so that
// every other layer has a parent.
func newRootLayer() *Layer {
	return &Layer{Kind: LayerKindGroup, Name: ""}
}

// Parent returns l's enclosing group, or nil for the root layer.
func (l *Layer) Parent() *Layer { return l.parent }

// Depth returns the number of ancestors between l and the sprite's hidden
// root layer: a direct child of the root is at depth 0. This is the
// ChildLevel value §4.2/§4.3 read and write on the wire.
func (l *Layer) Depth() int {
	d := -1
	for p := l; p.parent != nil; p = p.parent {
		d++
	}
	return d
}

// AppendChild adds child to a Group layer, setting child's parent. It
// returns an error if l is not a Group layer.
func (l *Layer) AppendChild(child *Layer) error {
	if l.Kind != LayerKindGroup {
		return errInvalidData("layer %q is not a group layer", l.Name)
	}
	child.parent = l
	l.Children = append(l.Children, child)
	return nil
}

// flatten appends l and, for groups, its descendants (pre-order,
// depth-first, a group before its contents) to out.
func (l *Layer) flatten(out []*Layer) []*Layer {
	out = append(out, l)
	for _, c := range l.Children {
		out = c.flatten(out)
	}
	return out
}

// Cel returns the cel at frame, if any.
func (l *Layer) Cel(frame int) (*Cel, bool) {
	c, ok := l.cels[frame]
	return c, ok
}

// SetCel attaches cel to frame, overwriting any existing cel there. It
// returns an error if l is a Group layer.
func (l *Layer) SetCel(frame int, cel *Cel) error {
	if l.Kind == LayerKindGroup {
		return errInvalidData("layer %q is a group layer and cannot own cels", l.Name)
	}
	if l.cels == nil {
		l.cels = map[int]*Cel{}
	}
	cel.Frame = frame
	l.cels[frame] = cel
	return nil
}

// RemoveCel detaches the cel at frame, if any.
func (l *Layer) RemoveCel(frame int) {
	delete(l.cels, frame)
}

// shiftCels moves every cel at frame >= from by delta frames. A negative
// delta that would move a cel before frame 0 drops it. Used when frames are
// inserted (delta > 0) or removed (delta < 0).
func (l *Layer) shiftCels(from, delta int) {
	if l.cels == nil || delta == 0 {
		return
	}
	shifted := make(map[int]*Cel, len(l.cels))
	for frame, cel := range l.cels {
		nf := frame
		if frame >= from {
			nf = frame + delta
		}
		if nf < 0 {
			continue
		}
		cel.Frame = nf
		shifted[nf] = cel
	}
	l.cels = shifted
}

// framesWithCels returns the frame indices that have a cel, in ascending
// order. Nothing in this package calls it at present.
func (l *Layer) framesWithCels() []int {
	out := make([]int, 0, len(l.cels))
	for f := range l.cels {
		out = append(out, f)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// ResolveCel returns the cel at frame with its image data resolved: if the
// cel at frame is a link, the returned Cel is a clone that owns a copy of
// the link target's image. If frame has no cel, ok is false.
func (l *Layer) ResolveCel(frame int) (cel *Cel, ok bool, err error) {
	c, found := l.Cel(frame)
	if !found {
		return nil, false, nil
	}
	if !c.IsLinked() {
		return c, true, nil
	}
	target, found := l.Cel(c.LinkedToFrame)
	if !found {
		return nil, false, errInvalidData("layer %q: cel at frame %d links to missing frame %d", l.Name, frame, c.LinkedToFrame)
	}
	if target.IsLinked() {
		return nil, false, errInvalidData("layer %q: cel at frame %d links to an already-linked cel at frame %d", l.Name, frame, c.LinkedToFrame)
	}
	clone := c.shallowClone()
	clone.data = target.data.clone()
	clone.linked = false
	return clone, true, nil
}

// Unlink replaces the linked cel at frame, if any, with an owned copy of
// its target's image, in place.
func (l *Layer) Unlink(frame int) error {
	c, ok := l.Cel(frame)
	if !ok || !c.IsLinked() {
		return nil
	}
	resolved, ok, err := l.ResolveCel(frame)
	if err != nil {
		return err
	}
	if !ok {
		return errInvalidData("layer %q: cannot unlink cel at frame %d", l.Name, frame)
	}
	l.cels[frame] = resolved
	return nil
}
