package ase

// CelData is the pixel storage a Cel owns, shared between sibling cels via
// Layer.Unlink/ResolveCel copies (never via aliasing two live Cels at once:
// a linked Cel has no CelData of its own until it is resolved or unlinked).
type CelData struct {
	Image *Image
}

func (d *CelData) clone() *CelData {
	if d == nil {
		return nil
	}
	return &CelData{Image: d.Image.Clone()}
}

// Cel is the content at one (layer, frame) intersection: either an owned
// CelData, or a link to another frame's cel on the same layer.
type Cel struct {
	Frame   int
	X, Y    int16
	Opacity byte
	ZIndex  int16

	UserData UserData

	data *CelData

	// LinkedToFrame is meaningful only when linked is true.
	LinkedToFrame int
	linked        bool
}

// NewCel returns a Cel at (x, y) that owns img.
func NewCel(img *Image, x, y int16) *Cel {
	return &Cel{X: x, Y: y, Opacity: 255, data: &CelData{Image: img}}
}

// NewLinkedCel returns a Cel that links to frame. It owns no image data of
// its own; the data is resolved, at encode/draw time, by looking up
// targetFrame on the same layer (Layer.ResolveCel).
func NewLinkedCel(targetFrame int) *Cel {
	return &Cel{Opacity: 255, linked: true, LinkedToFrame: targetFrame}
}

// IsLinked reports whether c links to another frame's cel rather than
// owning its own image data.
func (c *Cel) IsLinked() bool { return c.linked }

// Data returns c's owned CelData, or nil if c is linked.
func (c *Cel) Data() *CelData { return c.data }

// Image returns the Image c owns, or nil if c is linked (use
// Layer.ResolveCel to follow the link first).
func (c *Cel) Image() *Image {
	if c.data == nil {
		return nil
	}
	return c.data.Image
}

// shallowClone copies c's scalar fields and deep-copies its owned data, if
// any, preserving linked state. It is not the "clone" operation spec.md §4.4
// describes for Cel — that one always produces an unlinked copy, and is
// Layer.ResolveCel/Layer.Unlink, since only the owning layer can resolve a
// link's target. shallowClone is the struct-copy step those two build on.
func (c *Cel) shallowClone() *Cel {
	clone := *c
	clone.data = c.data.clone()
	return &clone
}
