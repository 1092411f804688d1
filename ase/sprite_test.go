package ase

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewSpriteAssignsDistinctIDs(t *testing.T) {
	a := NewSprite(1, 1, ColorModeRGBA)
	b := NewSprite(1, 1, ColorModeRGBA)
	if a.ID == (uuid.UUID{}) {
		t.Fatal("NewSprite should assign a non-zero ID")
	}
	if a.ID == b.ID {
		t.Fatal("two sprites should not share an ID")
	}
}

func TestSpriteFrameInsertAndRemoveShiftsState(t *testing.T) {
	sprite := NewSprite(2, 2, ColorModeRGBA)
	layer := NewImageLayer("L")
	if err := sprite.Root.AppendChild(layer); err != nil {
		t.Fatal(err)
	}
	if err := layer.SetCel(0, NewCel(NewImage(2, 2, ColorModeRGBA), 0, 0)); err != nil {
		t.Fatal(err)
	}
	tag := &Tag{Name: "t", FromFrame: 0, ToFrame: 0}
	sprite.AppendTag(tag)

	if err := sprite.InsertFrame(0, 30); err != nil {
		t.Fatal(err)
	}
	if sprite.FrameCount() != 2 {
		t.Fatalf("frame count = %d, want 2", sprite.FrameCount())
	}
	if _, ok := layer.Cel(0); ok {
		t.Fatal("cel originally at frame 0 should have shifted to frame 1")
	}
	if _, ok := layer.Cel(1); !ok {
		t.Fatal("cel should now be at frame 1")
	}
	if tag.FromFrame != 1 || tag.ToFrame != 1 {
		t.Fatalf("tag range = [%d,%d], want [1,1]", tag.FromFrame, tag.ToFrame)
	}

	if err := sprite.RemoveFrame(0); err != nil {
		t.Fatal(err)
	}
	if sprite.FrameCount() != 1 {
		t.Fatalf("frame count = %d, want 1", sprite.FrameCount())
	}
	if _, ok := layer.Cel(0); !ok {
		t.Fatal("cel should have shifted back to frame 0")
	}
	if tag.FromFrame != 0 || tag.ToFrame != 0 {
		t.Fatalf("tag range = [%d,%d], want [0,0]", tag.FromFrame, tag.ToFrame)
	}
}

func TestSpriteRemoveFrameRejectsLastFrame(t *testing.T) {
	sprite := NewSprite(1, 1, ColorModeRGBA)
	if err := sprite.RemoveFrame(0); err == nil {
		t.Fatal("RemoveFrame on the only frame should fail")
	}
}

func TestSpriteValidateRejectsLinkToLinkedCel(t *testing.T) {
	sprite := NewSprite(1, 1, ColorModeRGBA)
	sprite.AppendFrame(100)
	sprite.AppendFrame(100)
	layer := NewImageLayer("L")
	if err := sprite.Root.AppendChild(layer); err != nil {
		t.Fatal(err)
	}
	if err := layer.SetCel(0, NewLinkedCel(1)); err != nil {
		t.Fatal(err)
	}
	if err := layer.SetCel(1, NewLinkedCel(0)); err != nil {
		t.Fatal(err)
	}
	if err := sprite.Validate(); err == nil {
		t.Fatal("Validate should reject a cel linking to another linked cel")
	}
}

func TestSpriteValidateRejectsTilemapLayerWithForeignTileset(t *testing.T) {
	sprite := NewSprite(8, 8, ColorModeRGBA)
	foreign := NewTileset(8, 8, ColorModeRGBA, "foreign")
	layer := NewTilemapLayer("tm", foreign)
	if err := sprite.Root.AppendChild(layer); err != nil {
		t.Fatal(err)
	}
	if err := sprite.Validate(); err == nil {
		t.Fatal("Validate should reject a tilemap layer referencing a tileset the sprite does not own")
	}
}

func TestFlattenLayersPreOrderDepthFirst(t *testing.T) {
	sprite := NewSprite(1, 1, ColorModeRGBA)
	group := NewGroupLayer("g")
	child := NewImageLayer("c")
	sibling := NewImageLayer("s")
	if err := sprite.Root.AppendChild(group); err != nil {
		t.Fatal(err)
	}
	if err := group.AppendChild(child); err != nil {
		t.Fatal(err)
	}
	if err := sprite.Root.AppendChild(sibling); err != nil {
		t.Fatal(err)
	}

	flat := sprite.FlattenLayers()
	if len(flat) != 3 || flat[0] != group || flat[1] != child || flat[2] != sibling {
		names := make([]string, len(flat))
		for i, l := range flat {
			names[i] = l.Name
		}
		t.Fatalf("flatten order = %v, want [g c s]", names)
	}
	if child.Depth() != 1 {
		t.Fatalf("child depth = %d, want 1", child.Depth())
	}
	if group.Depth() != 0 {
		t.Fatalf("group depth = %d, want 0", group.Depth())
	}
}

func TestPaletteAtUsesGreatestFrameLessOrEqual(t *testing.T) {
	sprite := NewSprite(1, 1, ColorModeIndexed)
	p1 := NewPalette(3, 1)
	p1.SetColor(0, Rgba32{R: 9, A: 255})
	sprite.AppendPalette(p1)

	if got := sprite.PaletteAt(0).ColorAt(0); got != (Rgba32{A: 255}) {
		t.Fatalf("PaletteAt(0) = %+v, want the frame-0 default", got)
	}
	if got := sprite.PaletteAt(3).ColorAt(0); got != (Rgba32{R: 9, A: 255}) {
		t.Fatalf("PaletteAt(3) = %+v, want the frame-3 palette", got)
	}
	if got := sprite.PaletteAt(10).ColorAt(0); got != (Rgba32{R: 9, A: 255}) {
		t.Fatalf("PaletteAt(10) = %+v, want the frame-3 palette to carry forward", got)
	}
}

func TestCelsAtFrameSkipsGroups(t *testing.T) {
	sprite := NewSprite(1, 1, ColorModeRGBA)
	group := NewGroupLayer("g")
	leaf := NewImageLayer("leaf")
	if err := sprite.Root.AppendChild(group); err != nil {
		t.Fatal(err)
	}
	if err := group.AppendChild(leaf); err != nil {
		t.Fatal(err)
	}
	if err := leaf.SetCel(0, NewCel(NewImage(1, 1, ColorModeRGBA), 0, 0)); err != nil {
		t.Fatal(err)
	}

	lcs := sprite.CelsAtFrame(0)
	if len(lcs) != 1 || lcs[0].Layer != leaf {
		t.Fatalf("CelsAtFrame(0) = %+v, want exactly the leaf layer's cel", lcs)
	}
}
