package ase

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func mustEncode(t *testing.T, sprite *Sprite) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := EncodeStream(&buf, sprite); err != nil {
		t.Fatalf("EncodeStream: %v", err)
	}
	return buf.Bytes()
}

func mustDecode(t *testing.T, data []byte) *Sprite {
	t.Helper()
	sprite, err := DecodeStream(data)
	if err != nil {
		t.Fatalf("DecodeStream: %v", err)
	}
	return sprite
}

// Scenario 1: RGBA 2x2 single-cel round-trip.
func TestRoundtripRGBASingleCel(t *testing.T) {
	sprite := NewSprite(2, 2, ColorModeRGBA)
	layer := NewImageLayer("L")
	if err := sprite.Root.AppendChild(layer); err != nil {
		t.Fatal(err)
	}
	img := NewImage(2, 2, ColorModeRGBA)
	img.SetRGBA(0, 0, Rgba32{R: 255, A: 255})
	img.SetRGBA(1, 0, Rgba32{G: 255, A: 255})
	img.SetRGBA(0, 1, Rgba32{B: 255, A: 255})
	img.SetRGBA(1, 1, Rgba32{R: 255, G: 255, B: 255, A: 255})
	if err := layer.SetCel(0, NewCel(img, 0, 0)); err != nil {
		t.Fatal(err)
	}

	data := mustEncode(t, sprite)

	if got := binary.LittleEndian.Uint16(data[4:6]); got != fileMagic {
		t.Fatalf("file magic at offset 4 = 0x%04X, want 0x%04X", got, fileMagic)
	}
	if got := binary.LittleEndian.Uint16(data[128+4 : 128+6]); got != frameMagic {
		t.Fatalf("frame magic at offset 132 = 0x%04X, want 0x%04X", got, frameMagic)
	}

	decoded := mustDecode(t, data)
	cel, ok := decoded.FlattenLayers()[0].Cel(0)
	if !ok {
		t.Fatal("decoded layer has no cel at frame 0")
	}
	got := cel.Image()
	want := [4]Rgba32{
		{R: 255, A: 255}, {G: 255, A: 255},
		{B: 255, A: 255}, {R: 255, G: 255, B: 255, A: 255},
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if c := got.At(x, y, Palette{}); c != want[y*2+x] {
				t.Errorf("pixel (%d,%d) = %+v, want %+v", x, y, c, want[y*2+x])
			}
		}
	}
}

// Scenario 2: linked cel.
func TestRoundtripLinkedCel(t *testing.T) {
	sprite := NewSprite(1, 1, ColorModeRGBA)
	layer := NewImageLayer("L")
	if err := sprite.Root.AppendChild(layer); err != nil {
		t.Fatal(err)
	}
	sprite.AppendFrame(100)

	red := NewImage(1, 1, ColorModeRGBA)
	red.SetRGBA(0, 0, Rgba32{R: 255, A: 255})
	if err := layer.SetCel(0, NewCel(red, 0, 0)); err != nil {
		t.Fatal(err)
	}
	if err := layer.SetCel(1, NewLinkedCel(0)); err != nil {
		t.Fatal(err)
	}

	decoded := mustDecode(t, mustEncode(t, sprite))
	l := decoded.FlattenLayers()[0]
	cel, ok := l.Cel(1)
	if !ok || !cel.IsLinked() {
		t.Fatalf("frame 1 cel = %+v, want a linked cel", cel)
	}
	if cel.LinkedToFrame != 0 {
		t.Fatalf("LinkedToFrame = %d, want 0", cel.LinkedToFrame)
	}
	resolved, ok, err := l.ResolveCel(1)
	if err != nil || !ok {
		t.Fatalf("ResolveCel(1): ok=%v err=%v", ok, err)
	}
	if c := resolved.Image().At(0, 0, Palette{}); c != (Rgba32{R: 255, A: 255}) {
		t.Fatalf("resolved pixel = %+v, want red", c)
	}
}

// Scenario 3: palette change at frame.
func TestRoundtripPaletteChangeAtFrame(t *testing.T) {
	sprite := NewSprite(1, 1, ColorModeIndexed)
	layer := NewImageLayer("L")
	if err := sprite.Root.AppendChild(layer); err != nil {
		t.Fatal(err)
	}
	sprite.AppendFrame(100)

	sprite.Palettes[0].SetColor(1, Rgba32{A: 255}) // black
	p1 := NewPalette(1, 2)
	p1.SetColor(1, Rgba32{R: 255, G: 255, B: 255, A: 255}) // white
	sprite.AppendPalette(p1)

	for _, f := range []int{0, 1} {
		img := NewImage(1, 1, ColorModeIndexed)
		img.SetIndex(0, 0, 1)
		if err := layer.SetCel(f, NewCel(img, 0, 0)); err != nil {
			t.Fatal(err)
		}
	}

	decoded := mustDecode(t, mustEncode(t, sprite))
	if c := decoded.PaletteAt(0).ColorAt(1); c != (Rgba32{A: 255}) {
		t.Fatalf("palette at frame 0, index 1 = %+v, want black", c)
	}
	if c := decoded.PaletteAt(1).ColorAt(1); c != (Rgba32{R: 255, G: 255, B: 255, A: 255}) {
		t.Fatalf("palette at frame 1, index 1 = %+v, want white", c)
	}
}

// Scenario 4: tag + UserData chain.
func TestRoundtripTagUserDataChain(t *testing.T) {
	sprite := NewSprite(1, 1, ColorModeRGBA)
	intro := &Tag{Name: "intro", FromFrame: 0, ToFrame: 0}
	intro.UserData.SetText("intro")
	loop := &Tag{Name: "loop", FromFrame: 0, ToFrame: 0}
	loop.UserData.SetText("loop")
	sprite.AppendTag(intro)
	sprite.AppendTag(loop)

	decoded := mustDecode(t, mustEncode(t, sprite))
	if len(decoded.Tags) != 2 {
		t.Fatalf("got %d tags, want 2", len(decoded.Tags))
	}
	if decoded.Tags[0].UserData.Text != "intro" {
		t.Errorf("tag 0 text = %q, want %q", decoded.Tags[0].UserData.Text, "intro")
	}
	if decoded.Tags[1].UserData.Text != "loop" {
		t.Errorf("tag 1 text = %q, want %q", decoded.Tags[1].UserData.Text, "loop")
	}
}

// Scenario 5: tilemap cel.
func TestRoundtripTilemapCel(t *testing.T) {
	sprite := NewSprite(8, 8, ColorModeRGBA)
	ts := NewTileset(8, 8, ColorModeRGBA, "tiles")
	ts.BaseIndex = 1
	checker := NewImage(8, 8, ColorModeRGBA)
	checker.SetRGBA(0, 0, Rgba32{R: 255, A: 255})
	if _, err := ts.Append(checker); err != nil {
		t.Fatal(err)
	}
	solid := NewImage(8, 8, ColorModeRGBA)
	solid.SetRGBA(0, 0, Rgba32{G: 255, A: 255})
	if _, err := ts.Append(solid); err != nil {
		t.Fatal(err)
	}
	sprite.AppendTileset(ts)

	layer := NewTilemapLayer("tilemap", ts)
	if err := sprite.Root.AppendChild(layer); err != nil {
		t.Fatal(err)
	}
	cellImg := NewImage(2, 1, ColorModeTilemap)
	cellImg.SetTileCell(0, 0, 1, false, false, false)
	cellImg.SetTileCell(1, 0, 2, true, false, false)
	if err := layer.SetCel(0, NewCel(cellImg, 0, 0)); err != nil {
		t.Fatal(err)
	}

	decoded := mustDecode(t, mustEncode(t, sprite))
	dl := decoded.FlattenLayers()[0]
	cel, ok := dl.Cel(0)
	if !ok {
		t.Fatal("decoded tilemap layer has no cel at frame 0")
	}
	idx0, fx0, fy0, r0 := cel.Image().TileCell(0, 0)
	if idx0 != 1 || fx0 || fy0 || r0 {
		t.Errorf("cell 0 = (%d,%v,%v,%v), want (1,false,false,false)", idx0, fx0, fy0, r0)
	}
	idx1, fx1, fy1, r1 := cel.Image().TileCell(1, 0)
	if idx1 != 2 || !fx1 || fy1 || r1 {
		t.Errorf("cell 1 = (%d,%v,%v,%v), want (2,true,false,false)", idx1, fx1, fy1, r1)
	}
}

// Scenario 6: slice with 9-patch and pivot on disjoint keys.
func TestRoundtripSliceDisjointKeys(t *testing.T) {
	sprite := NewSprite(4, 4, ColorModeRGBA)
	sprite.AppendFrame(100)
	sprite.AppendFrame(100)

	sl := &Slice{Name: "hitbox"}
	sl.AddKey(SliceKey{Frame: 0, W: 4, H: 4, Has9Slices: true, CX: 1, CY: 1, CW: 2, CH: 2})
	sl.AddKey(SliceKey{Frame: 2, W: 4, H: 4, HasPivot: true, PX: 2, PY: 2})
	sprite.AppendSlice(sl)

	decoded := mustDecode(t, mustEncode(t, sprite))
	if len(decoded.Slices) != 1 {
		t.Fatalf("got %d slices, want 1", len(decoded.Slices))
	}
	got := decoded.Slices[0]
	if len(got.Keys) != 2 {
		t.Fatalf("got %d keys, want 2", len(got.Keys))
	}
	k0, k2 := got.Keys[0], got.Keys[1]
	if !k0.Has9Slices || k0.HasPivot {
		t.Errorf("key 0 = %+v, want Has9Slices only", k0)
	}
	if k2.Has9Slices || !k2.HasPivot {
		t.Errorf("key 2 = %+v, want HasPivot only", k2)
	}
	if k0.CX != 1 || k0.CY != 1 || k0.CW != 2 || k0.CH != 2 {
		t.Errorf("key 0 9-slice center = %+v, want {1,1,2,2}", k0)
	}
	if k2.PX != 2 || k2.PY != 2 {
		t.Errorf("key 2 pivot = (%d,%d), want (2,2)", k2.PX, k2.PY)
	}
}

// Boundary: 1x1 sprite, indexed, one-entry palette.
func TestBoundaryOneByOneIndexed(t *testing.T) {
	sprite := NewSprite(1, 1, ColorModeIndexed)
	sprite.Palettes[0].Resize(1)
	layer := NewImageLayer("L")
	if err := sprite.Root.AppendChild(layer); err != nil {
		t.Fatal(err)
	}
	img := NewImage(1, 1, ColorModeIndexed)
	if err := layer.SetCel(0, NewCel(img, 0, 0)); err != nil {
		t.Fatal(err)
	}

	decoded := mustDecode(t, mustEncode(t, sprite))
	if decoded.Width != 1 || decoded.Height != 1 {
		t.Fatalf("size = %dx%d, want 1x1", decoded.Width, decoded.Height)
	}
	if len(decoded.PaletteAt(0).Entries) != 1 {
		t.Fatalf("palette size = %d, want 1", len(decoded.PaletteAt(0).Entries))
	}
}

// Boundary: maximum structural dimensions round-trip through the header.
func TestBoundaryMaxDimensions(t *testing.T) {
	sprite := NewSprite(65535, 65535, ColorModeRGBA)
	data := mustEncode(t, sprite)
	decoded := mustDecode(t, data)
	if decoded.Width != 65535 || decoded.Height != 65535 {
		t.Fatalf("size = %dx%d, want 65535x65535", decoded.Width, decoded.Height)
	}
}

// Boundary: a frame with zero cels still decodes, and the encoder omits any
// cel chunks for it.
func TestBoundaryZeroCelFrame(t *testing.T) {
	sprite := NewSprite(4, 4, ColorModeRGBA)
	sprite.AppendFrame(50)
	layer := NewImageLayer("L")
	if err := sprite.Root.AppendChild(layer); err != nil {
		t.Fatal(err)
	}
	img := NewImage(4, 4, ColorModeRGBA)
	if err := layer.SetCel(0, NewCel(img, 0, 0)); err != nil {
		t.Fatal(err)
	}
	// Frame 1 intentionally has no cel.

	decoded := mustDecode(t, mustEncode(t, sprite))
	if decoded.FrameCount() != 2 {
		t.Fatalf("frame count = %d, want 2", decoded.FrameCount())
	}
	if _, ok := decoded.FlattenLayers()[0].Cel(1); ok {
		t.Fatal("frame 1 unexpectedly has a cel")
	}
}

// Boundary: an unknown chunk type embedded mid-frame is skipped without
// disturbing the chunks around it.
func TestBoundaryUnknownChunkIsSkipped(t *testing.T) {
	sprite := NewSprite(2, 2, ColorModeRGBA)
	layer := NewImageLayer("L")
	if err := sprite.Root.AppendChild(layer); err != nil {
		t.Fatal(err)
	}
	img := NewImage(2, 2, ColorModeRGBA)
	if err := layer.SetCel(0, NewCel(img, 0, 0)); err != nil {
		t.Fatal(err)
	}
	data := mustEncode(t, sprite)

	// Splice an unknown chunk (type 0xBEEF, 10-byte body) in right after the
	// frame header, and grow the frame/file size fields and chunk count to
	// match.
	const unknownBody = 10
	unknown := make([]byte, 6+unknownBody)
	binary.LittleEndian.PutUint32(unknown[0:4], uint32(len(unknown)))
	binary.LittleEndian.PutUint16(unknown[4:6], 0xBEEF)

	frameHeaderEnd := 128 + 16
	patched := append([]byte{}, data[:frameHeaderEnd]...)
	patched = append(patched, unknown...)
	patched = append(patched, data[frameHeaderEnd:]...)

	binary.LittleEndian.PutUint32(patched[0:4], uint32(len(patched)))
	newFrameBytes := uint32(len(patched) - 128)
	binary.LittleEndian.PutUint32(patched[128:132], newFrameBytes)
	newChunkCount := binary.LittleEndian.Uint32(data[128+12:128+16]) + 1
	binary.LittleEndian.PutUint32(patched[128+12:128+16], newChunkCount)

	decoded, err := DecodeStream(patched)
	if err != nil {
		t.Fatalf("DecodeStream with injected unknown chunk: %v", err)
	}
	if _, ok := decoded.FlattenLayers()[0].Cel(0); !ok {
		t.Fatal("cel after the unknown chunk was not decoded")
	}
}

// Boundary: an old-palette chunk alongside a new-palette chunk is ignored
// once the new-palette flag has been seen, regardless of chunk order.
func TestBoundaryOldPaletteIgnoredAfterNewPalette(t *testing.T) {
	st := &decodeState{sprite: &Sprite{Palettes: nil}}
	st.usedNewPalette = true

	r := newByteReader([]byte{0, 0}) // numPackets = 0, nothing to parse
	if err := decodeOldPalette(r, st, 0, chunkOldPalette04); err != nil {
		t.Fatalf("decodeOldPalette: %v", err)
	}
	if len(st.sprite.Palettes) != 0 {
		t.Fatalf("old palette chunk modified palettes after new-palette flag was set: %+v", st.sprite.Palettes)
	}
}

func TestDecodeMintsAFreshSpriteID(t *testing.T) {
	sprite := NewSprite(1, 1, ColorModeRGBA)
	decoded := mustDecode(t, mustEncode(t, sprite))
	if decoded.ID == sprite.ID {
		t.Fatal("decoding should mint a fresh ID, not recover the original's")
	}
}

// Regression: a second top-level layer must decode back as Root's child, not
// as a child of the first layer, and a nested group must keep its contents
// nested — both depend on ChildLevel being 0-based on the wire.
func TestRoundtripMultipleTopLevelLayersAndNestedGroup(t *testing.T) {
	sprite := NewSprite(2, 2, ColorModeRGBA)

	group := NewGroupLayer("group")
	if err := sprite.Root.AppendChild(group); err != nil {
		t.Fatal(err)
	}
	nested := NewImageLayer("nested")
	if err := group.AppendChild(nested); err != nil {
		t.Fatal(err)
	}
	top := NewImageLayer("top")
	if err := sprite.Root.AppendChild(top); err != nil {
		t.Fatal(err)
	}

	img := NewImage(2, 2, ColorModeRGBA)
	if err := nested.SetCel(0, NewCel(img, 0, 0)); err != nil {
		t.Fatal(err)
	}
	if err := top.SetCel(0, NewCel(img.Clone(), 0, 0)); err != nil {
		t.Fatal(err)
	}

	decoded := mustDecode(t, mustEncode(t, sprite))
	flat := decoded.FlattenLayers()
	if len(flat) != 3 {
		names := make([]string, len(flat))
		for i, l := range flat {
			names[i] = l.Name
		}
		t.Fatalf("flatten order = %v, want [group nested top]", names)
	}
	dGroup, dNested, dTop := flat[0], flat[1], flat[2]
	if dGroup.Name != "group" || dNested.Name != "nested" || dTop.Name != "top" {
		t.Fatalf("flatten order = [%s %s %s], want [group nested top]", dGroup.Name, dNested.Name, dTop.Name)
	}
	if dGroup.Parent() != decoded.Root {
		t.Fatalf("group's parent = %v, want Root", dGroup.Parent())
	}
	if dNested.Parent() != dGroup {
		t.Fatalf("nested's parent = %v, want group", dNested.Parent())
	}
	if dTop.Parent() != decoded.Root {
		t.Fatalf("top's parent = %v, want Root (not a child of group)", dTop.Parent())
	}
	if dGroup.Depth() != 0 || dTop.Depth() != 0 {
		t.Fatalf("top-level depths = (%d, %d), want (0, 0)", dGroup.Depth(), dTop.Depth())
	}
	if dNested.Depth() != 1 {
		t.Fatalf("nested depth = %d, want 1", dNested.Depth())
	}
}

func TestIsSupported(t *testing.T) {
	cases := map[string]bool{
		"sprite.ase":      true,
		"sprite.aseprite": true,
		"sprite.ASE":      true,
		"sprite.png":      false,
		"sprite":          false,
	}
	for path, want := range cases {
		if got := IsSupported(path); got != want {
			t.Errorf("IsSupported(%q) = %v, want %v", path, got, want)
		}
	}
}
