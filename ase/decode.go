package ase

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/google/uuid"
)

// Decoder parses the Aseprite binary format into a Sprite. Like Encoder, it
// carries no configuration today; it is a struct so options can be added
// without changing call sites.
type Decoder struct{}

// decodeState carries the running state of the chunk dispatch loop described
// in §4.3: the flattened layer index Cel chunks address by position, the
// open-group stack used to rebuild the layer tree from ChildLevel values,
// whether a New Palette chunk has already been seen (which makes Old Palette
// chunks inert for the rest of the file), the FIFO of tags awaiting their
// UserData chunk, and the last layer/cel/slice/tileset eligible to receive
// one.
type decodeState struct {
	sprite *Sprite

	headerFlags uint32
	// lastDuration carries the "effective duration" forward across frames
	// whose own DurationMs field is 0, per §4.3 step 3.
	lastDuration int

	layerIndex []*Layer
	layerStack []*Layer

	usedNewPalette bool

	pendingTagUserData []*Tag
	lastUserDataTarget interface{}
}

// Decode parses the entirety of data as a single Aseprite file.
func (d Decoder) Decode(data []byte) (*Sprite, error) {
	r := newByteReader(data)

	_, err := r.readDWord() // FileSize, unchecked: callers may hand us a
	// slice that is longer than the header claims (e.g. read with slack);
	// framing is still fully determined by the frame/chunk length fields.
	if err != nil {
		return nil, err
	}
	magic, err := r.readWord()
	if err != nil {
		return nil, err
	}
	if magic != fileMagic {
		return nil, errInvalidFileMagic(magic)
	}
	frameCount, err := r.readWord()
	if err != nil {
		return nil, err
	}
	width, err := r.readWord()
	if err != nil {
		return nil, err
	}
	height, err := r.readWord()
	if err != nil {
		return nil, err
	}
	depth, err := r.readWord()
	if err != nil {
		return nil, err
	}
	mode, err := colorModeFromDepth(depth)
	if err != nil {
		return nil, err
	}
	flags, err := r.readDWord()
	if err != nil {
		return nil, err
	}
	speed, err := r.readWord() // deprecated, used only to seed frame 0's duration
	if err != nil {
		return nil, err
	}
	r.skip(8) // reserved
	transparentIndex, err := r.readByte()
	if err != nil {
		return nil, err
	}
	r.skip(3) // padding
	if _, err := r.readWord(); err != nil { // NumColors, informational only
		return nil, err
	}
	pixelW, err := r.readByte()
	if err != nil {
		return nil, err
	}
	pixelH, err := r.readByte()
	if err != nil {
		return nil, err
	}
	gridX, err := r.readShort()
	if err != nil {
		return nil, err
	}
	gridY, err := r.readShort()
	if err != nil {
		return nil, err
	}
	gridW, err := r.readWord()
	if err != nil {
		return nil, err
	}
	gridH, err := r.readWord()
	if err != nil {
		return nil, err
	}
	r.skip(84) // reserved

	if pixelW == 0 || pixelH == 0 {
		pixelW, pixelH = 1, 1
	}

	sprite := &Sprite{
		ID:               uuid.New(),
		Width:            int(width),
		Height:           int(height),
		Mode:             mode,
		TransparentIndex: int(transparentIndex),
		PixelRatio:       PixelRatio{Width: int(pixelW), Height: int(pixelH)},
		Grid:             Grid{X: gridX, Y: gridY, Width: gridW, Height: gridH},
		Root:             newRootLayer(),
		Frames:           make([]FrameInfo, 0, frameCount),
	}

	initialDuration := 100
	if speed > 0 {
		initialDuration = int(speed)
	}
	st := &decodeState{sprite: sprite, headerFlags: flags, lastDuration: initialDuration}

	for i := 0; i < int(frameCount); i++ {
		if err := decodeFrame(r, st, i); err != nil {
			return nil, err
		}
	}

	if len(sprite.Palettes) == 0 {
		sprite.Palettes = []Palette{NewPalette(0, 1)}
	}
	return sprite, nil
}

func decodeFrame(r *byteReader, st *decodeState, frame int) error {
	frameStart := r.pos()
	frameBytes, err := r.readDWord()
	if err != nil {
		return err
	}
	magic, err := r.readWord()
	if err != nil {
		return err
	}
	if magic != frameMagic {
		return errBadFrameMagic(frame)
	}
	oldChunkCount, err := r.readWord()
	if err != nil {
		return err
	}
	durationMs, err := r.readWord()
	if err != nil {
		return err
	}
	r.skip(2) // reserved
	newChunkCount, err := r.readDWord()
	if err != nil {
		return err
	}

	// Effective chunk count: NewChunkCount if non-zero; otherwise
	// OldChunkCount, unless that is the 0xFFFF sentinel meaning "unknown,
	// bounded by frame size" (§4.3).
	numChunks, boundless := 0, false
	switch {
	case newChunkCount != 0:
		numChunks = int(newChunkCount)
	case oldChunkCount == 0xFFFF:
		boundless = true
	default:
		numChunks = int(oldChunkCount)
	}

	if durationMs > 0 {
		st.lastDuration = int(durationMs)
	}
	st.sprite.Frames = append(st.sprite.Frames, FrameInfo{DurationMs: st.lastDuration})

	frameEnd := frameStart + int(frameBytes)
	if boundless {
		for r.pos() < frameEnd {
			if err := decodeChunk(r, st, frame); err != nil {
				return err
			}
		}
	} else {
		for i := 0; i < numChunks; i++ {
			if err := decodeChunk(r, st, frame); err != nil {
				return err
			}
		}
	}
	if frameEnd > r.pos() {
		r.seek(frameEnd)
	}
	return nil
}

func decodeChunk(r *byteReader, st *decodeState, frame int) error {
	chunkStart := r.pos()
	size, err := r.readDWord()
	if err != nil {
		return err
	}
	typ, err := r.readWord()
	if err != nil {
		return err
	}
	bodyEnd := chunkStart + int(size)

	switch typ {
	case chunkLayer:
		if err := decodeLayer(r, st); err != nil {
			return err
		}
	case chunkCel:
		if err := decodeCel(r, st, frame, bodyEnd); err != nil {
			return err
		}
	case chunkPalette:
		if err := decodeNewPalette(r, st, frame); err != nil {
			return err
		}
	case chunkOldPalette04, chunkOldPalette11:
		if err := decodeOldPalette(r, st, frame, typ); err != nil {
			return err
		}
	case chunkTags:
		if err := decodeTags(r, st); err != nil {
			return err
		}
	case chunkSlice:
		if err := decodeSlice(r, st); err != nil {
			return err
		}
	case chunkTileset:
		if err := decodeTileset(r, st); err != nil {
			return err
		}
	case chunkUserData:
		if err := decodeUserData(r, st); err != nil {
			return err
		}
	case chunkCelExtra, chunkColorProfile, chunkExternalFiles:
		// Acknowledged but out of scope (§5); the trailing seek below skips
		// the body untouched.
	default:
		// Unknown chunk type: skip. Forward compatibility with chunk types
		// this package does not yet know about.
	}

	if bodyEnd > r.pos() {
		r.seek(bodyEnd)
	}
	return nil
}

func decodeLayer(r *byteReader, st *decodeState) error {
	flags, err := r.readWord()
	if err != nil {
		return err
	}
	wireType, err := r.readWord()
	if err != nil {
		return err
	}
	childLevel, err := r.readWord()
	if err != nil {
		return err
	}
	r.skip(4) // default width/height, ignored
	blend, err := r.readWord()
	if err != nil {
		return err
	}
	opacity, err := r.readByte()
	if err != nil {
		return err
	}
	r.skip(3)
	name, err := r.readString()
	if err != nil {
		return err
	}

	var layer *Layer
	switch wireType {
	case wireLayerGroup:
		layer = NewGroupLayer(name)
	case wireLayerTilemap:
		tilesetIdx, err := r.readDWord()
		if err != nil {
			return err
		}
		var ts *Tileset
		if int(tilesetIdx) < len(st.sprite.Tilesets) {
			ts = st.sprite.Tilesets[tilesetIdx]
		}
		layer = NewTilemapLayer(name, ts)
	default:
		layer = NewImageLayer(name)
	}
	layer.Flags = LayerFlags(flags)
	layer.Blend = clampBlendMode(blend)
	layer.Opacity = opacity
	if wireType == wireLayerGroup {
		if st.headerFlags&headerFlagGroupOpacityValid == 0 {
			layer.Opacity = 255
		}
	} else if st.headerFlags&headerFlagLayerOpacityValid == 0 {
		layer.Opacity = 255
	}

	parent := st.sprite.Root
	if int(childLevel) > 0 && int(childLevel)-1 < len(st.layerStack) {
		parent = st.layerStack[childLevel-1]
	}
	if err := parent.AppendChild(layer); err != nil {
		return err
	}

	if int(childLevel) < len(st.layerStack) {
		st.layerStack = st.layerStack[:childLevel]
	}
	st.layerStack = append(st.layerStack, layer)

	st.layerIndex = append(st.layerIndex, layer)
	st.lastUserDataTarget = layer
	return nil
}

func decodeCel(r *byteReader, st *decodeState, frame, bodyEnd int) error {
	layerIdx, err := r.readWord()
	if err != nil {
		return err
	}
	x, err := r.readShort()
	if err != nil {
		return err
	}
	y, err := r.readShort()
	if err != nil {
		return err
	}
	opacity, err := r.readByte()
	if err != nil {
		return err
	}
	celType, err := r.readWord()
	if err != nil {
		return err
	}
	zIndex, err := r.readShort()
	if err != nil {
		return err
	}
	r.skip(5)

	if int(layerIdx) >= len(st.layerIndex) {
		// Out-of-range layer index: dropped silently per §4.3, not an error.
		return nil
	}
	layer := st.layerIndex[layerIdx]

	var cel *Cel
	switch celType {
	case celTypeLinked:
		target, err := r.readWord()
		if err != nil {
			return err
		}
		cel = NewLinkedCel(int(target))

	case celTypeRaw:
		w, err := r.readWord()
		if err != nil {
			return err
		}
		h, err := r.readWord()
		if err != nil {
			return err
		}
		img := NewImage(int(w), int(h), st.sprite.Mode)
		n := len(img.Pix)
		if bodyEnd-r.pos() < n {
			n = bodyEnd - r.pos()
		}
		raw, err := r.take(n)
		if err != nil {
			return err
		}
		copy(img.Pix, raw)
		cel = NewCel(img, x, y)

	case celTypeCompressed, celTypeCompressedMap:
		w, err := r.readWord()
		if err != nil {
			return err
		}
		h, err := r.readWord()
		if err != nil {
			return err
		}
		mode := st.sprite.Mode
		if celType == celTypeCompressedMap {
			mode = ColorModeTilemap
			r.skip(2)  // bits per tile
			r.skip(16) // tile id/flip masks
			r.skip(10) // reserved
		}
		img := NewImage(int(w), int(h), mode)
		remaining, err := r.take(bodyEnd - r.pos())
		if err != nil {
			return err
		}
		pix, err := zlibDecompress(remaining, len(img.Pix))
		if err != nil {
			return err
		}
		img.Pix = pix
		cel = NewCel(img, x, y)

	default:
		return errInvalidData("cel at frame %d has unknown cel type %d", frame, celType)
	}

	cel.Opacity = opacity
	cel.ZIndex = zIndex
	if err := layer.SetCel(frame, cel); err != nil {
		return err
	}
	st.lastUserDataTarget = cel
	return nil
}

func decodeNewPalette(r *byteReader, st *decodeState, frame int) error {
	newSize, err := r.readDWord()
	if err != nil {
		return err
	}
	fromIdx, err := r.readDWord()
	if err != nil {
		return err
	}
	toIdx, err := r.readDWord()
	if err != nil {
		return err
	}
	r.skip(8)

	pal := carryForwardPalette(st.sprite, frame, int(newSize))
	for i := fromIdx; i <= toIdx; i++ {
		entryFlags, err := r.readWord()
		if err != nil {
			return err
		}
		rr, err := r.readByte()
		if err != nil {
			return err
		}
		gg, err := r.readByte()
		if err != nil {
			return err
		}
		bb, err := r.readByte()
		if err != nil {
			return err
		}
		aa, err := r.readByte()
		if err != nil {
			return err
		}
		var name string
		if entryFlags&1 != 0 {
			name, err = r.readString()
			if err != nil {
				return err
			}
		}
		if int(i) < len(pal.Entries) {
			pal.Entries[i] = PaletteEntry{Color: Rgba32{R: rr, G: gg, B: bb, A: aa}, Name: name}
		}
	}

	st.sprite.AppendPalette(pal)
	st.usedNewPalette = true
	return nil
}

// decodeOldPalette handles both 0x0004 and 0x0011: identical packet framing,
// differing only in that 0x0011's channels are 0..63 and must be rescaled to
// 0..255 (§4.3).
func decodeOldPalette(r *byteReader, st *decodeState, frame int, typ uint16) error {
	if st.usedNewPalette {
		// A New Palette chunk has already established this file's palette
		// format; old-format chunks from here on are vestigial and ignored.
		return nil
	}

	numPackets, err := r.readWord()
	if err != nil {
		return err
	}

	rescale := func(v byte) byte { return v }
	if typ == chunkOldPalette11 {
		rescale = func(v byte) byte { return byte(int(v) * 255 / 63) }
	}

	entries := map[int]Rgba32{}
	index := 0
	maxIndex := -1
	for i := 0; i < int(numPackets); i++ {
		skip, err := r.readByte()
		if err != nil {
			return err
		}
		numColors, err := r.readByte()
		if err != nil {
			return err
		}
		n := int(numColors)
		if n == 0 {
			n = 256
		}
		index += int(skip)
		for c := 0; c < n; c++ {
			rr, err := r.readByte()
			if err != nil {
				return err
			}
			gg, err := r.readByte()
			if err != nil {
				return err
			}
			bb, err := r.readByte()
			if err != nil {
				return err
			}
			entries[index] = Rgba32{R: rescale(rr), G: rescale(gg), B: rescale(bb), A: 255}
			if index > maxIndex {
				maxIndex = index
			}
			index++
		}
	}

	pal := carryForwardPalette(st.sprite, frame, maxIndex+1)
	for idx, c := range entries {
		if idx < len(pal.Entries) {
			pal.Entries[idx].Color = c
		}
	}
	st.sprite.AppendPalette(pal)
	return nil
}

// carryForwardPalette returns a copy of the palette in effect at frame,
// resized to n entries, ready for the caller to overwrite a subrange of.
// Sprite.PaletteAt assumes at least one palette exists (it reads
// Palettes[0]), but decode runs before that invariant holds, so this also
// tolerates an empty Palettes slice.
func carryForwardPalette(s *Sprite, frame, n int) Palette {
	var base Palette
	if len(s.Palettes) > 0 {
		base = s.PaletteAt(frame)
	}
	pal := Palette{Frame: frame, Entries: append([]PaletteEntry(nil), base.Entries...)}
	pal.Resize(n)
	return pal
}

func decodeTags(r *byteReader, st *decodeState) error {
	numTags, err := r.readWord()
	if err != nil {
		return err
	}
	r.skip(8)

	tags := make([]*Tag, 0, numTags)
	for i := 0; i < int(numTags); i++ {
		from, err := r.readWord()
		if err != nil {
			return err
		}
		to, err := r.readWord()
		if err != nil {
			return err
		}
		dir, err := r.readByte()
		if err != nil {
			return err
		}
		repeat, err := r.readWord()
		if err != nil {
			return err
		}
		r.skip(6)
		rr, err := r.readByte()
		if err != nil {
			return err
		}
		gg, err := r.readByte()
		if err != nil {
			return err
		}
		bb, err := r.readByte()
		if err != nil {
			return err
		}
		r.skip(1)
		name, err := r.readString()
		if err != nil {
			return err
		}
		tags = append(tags, &Tag{
			Name:      name,
			FromFrame: int(from),
			ToFrame:   int(to),
			Direction: clampAnimDirection(dir),
			Repeat:    int(repeat),
			Color:     Rgba32{R: rr, G: gg, B: bb, A: 255},
		})
	}

	for _, t := range tags {
		st.sprite.AppendTag(t)
	}
	st.pendingTagUserData = append(st.pendingTagUserData, tags...)
	// The very next UserData chunk must bind to the first queued tag, not to
	// whatever layer/cel preceded this Tags chunk (§4.3).
	st.lastUserDataTarget = nil
	return nil
}

func decodeSlice(r *byteReader, st *decodeState) error {
	numKeys, err := r.readDWord()
	if err != nil {
		return err
	}
	flags, err := r.readDWord()
	if err != nil {
		return err
	}
	r.skip(4)
	name, err := r.readString()
	if err != nil {
		return err
	}
	has9 := flags&sliceFlag9Slices != 0
	hasPivot := flags&sliceFlagPivot != 0

	sl := &Slice{Name: name}
	for i := 0; i < int(numKeys); i++ {
		frame, err := r.readDWord()
		if err != nil {
			return err
		}
		x, err := r.readLong()
		if err != nil {
			return err
		}
		y, err := r.readLong()
		if err != nil {
			return err
		}
		w, err := r.readDWord()
		if err != nil {
			return err
		}
		h, err := r.readDWord()
		if err != nil {
			return err
		}
		key := SliceKey{Frame: int(frame), X: x, Y: y, W: w, H: h}
		// has9/hasPivot gate field presence for every key in the chunk
		// (emitSlice ORs across all keys), not whether this particular key
		// uses the feature: a key that doesn't still gets zero-valued
		// fields on the wire. Recover this key's own flag from whether its
		// fields are actually non-default.
		if has9 {
			cx, err := r.readLong()
			if err != nil {
				return err
			}
			cy, err := r.readLong()
			if err != nil {
				return err
			}
			cw, err := r.readDWord()
			if err != nil {
				return err
			}
			ch, err := r.readDWord()
			if err != nil {
				return err
			}
			if cx != 0 || cy != 0 || cw != 0 || ch != 0 {
				key.CX, key.CY, key.CW, key.CH = cx, cy, cw, ch
				key.Has9Slices = true
			}
		}
		if hasPivot {
			px, err := r.readLong()
			if err != nil {
				return err
			}
			py, err := r.readLong()
			if err != nil {
				return err
			}
			if px != 0 || py != 0 {
				key.PX, key.PY = px, py
				key.HasPivot = true
			}
		}
		sl.AddKey(key)
	}

	st.sprite.AppendSlice(sl)
	st.lastUserDataTarget = sl
	return nil
}

func decodeTileset(r *byteReader, st *decodeState) error {
	if _, err := r.readDWord(); err != nil { // tileset index, trusted sequential
		return err
	}
	flags, err := r.readDWord()
	if err != nil {
		return err
	}
	numTiles, err := r.readDWord()
	if err != nil {
		return err
	}
	tileW, err := r.readWord()
	if err != nil {
		return err
	}
	tileH, err := r.readWord()
	if err != nil {
		return err
	}
	baseIndex, err := r.readShort()
	if err != nil {
		return err
	}
	r.skip(14)
	name, err := r.readString()
	if err != nil {
		return err
	}

	if flags&tilesetFlagExternalLink != 0 {
		r.skip(8) // external file ID + tileset ID, discarded (§1 Non-goals)
	}

	ts := &Tileset{TileWidth: int(tileW), TileHeight: int(tileH), Mode: st.sprite.Mode, BaseIndex: int(baseIndex), Name: name}

	if flags&tilesetFlagEmbedTiles != 0 {
		compressedLen, err := r.readDWord()
		if err != nil {
			return err
		}
		compressed, err := r.take(int(compressedLen))
		if err != nil {
			return err
		}
		tileBytes := int(tileW) * int(tileH) * st.sprite.Mode.BytesPerPixel()
		pix, err := zlibDecompress(compressed, tileBytes*int(numTiles))
		if err != nil {
			return err
		}
		ts.Tiles = make([]*Image, numTiles)
		for i := 0; i < int(numTiles); i++ {
			img := NewImage(int(tileW), int(tileH), st.sprite.Mode)
			copy(img.Pix, pix[i*tileBytes:(i+1)*tileBytes])
			ts.Tiles[i] = img
		}
	} else {
		ts.Tiles = []*Image{NewImage(int(tileW), int(tileH), st.sprite.Mode)}
	}

	st.sprite.AppendTileset(ts)
	st.lastUserDataTarget = ts
	return nil
}

func decodeUserData(r *byteReader, st *decodeState) error {
	flags, err := r.readDWord()
	if err != nil {
		return err
	}
	var ud UserData
	if flags&userDataFlagText != 0 {
		text, err := r.readString()
		if err != nil {
			return err
		}
		ud.SetText(text)
	}
	if flags&userDataFlagColor != 0 {
		rr, err := r.readByte()
		if err != nil {
			return err
		}
		gg, err := r.readByte()
		if err != nil {
			return err
		}
		bb, err := r.readByte()
		if err != nil {
			return err
		}
		aa, err := r.readByte()
		if err != nil {
			return err
		}
		ud.SetColor(Rgba32{R: rr, G: gg, B: bb, A: aa})
	}
	// Properties (flag bit 2) are out of scope (§5) and left unparsed; the
	// chunk-level seek in decodeChunk skips whatever trails them.

	if len(st.pendingTagUserData) > 0 {
		tag := st.pendingTagUserData[0]
		st.pendingTagUserData = st.pendingTagUserData[1:]
		tag.UserData = ud
		return nil
	}

	switch target := st.lastUserDataTarget.(type) {
	case *Layer:
		target.UserData = ud
	case *Cel:
		target.UserData = ud
	case *Slice:
		target.UserData = ud
	case *Tileset:
		target.UserData = ud
	}
	return nil
}

func zlibDecompress(data []byte, want int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errInvalidData("zlib: %v", err)
	}
	defer zr.Close()

	out := make([]byte, want)
	_, err = io.ReadFull(zr, out)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, errInvalidData("zlib: %v", err)
	}
	return out, nil
}
