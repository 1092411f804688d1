package ase

import (
	"bytes"
	"compress/zlib"
	"io"
)

// Encoder serialises a Sprite to the Aseprite binary format. It carries no
// configuration today (spec.md's encode_stream takes no options); it exists
// as a struct, rather than a bare function, so that options can be added
// later without breaking callers — the same reason rac.Writer is a struct
// of exported fields rather than a constructor with a long parameter list.
type Encoder struct{}

// Encode writes sprite to sink in full. On success, every byte from the
// beginning of the file header to the end of the last frame has been
// written; on failure, sink may have received a partial, invalid prefix —
// callers must treat that as no output at all (§5).
func (e Encoder) Encode(sink io.Writer, sprite *Sprite) error {
	if err := sprite.Validate(); err != nil {
		return err
	}

	w := newByteWriter()
	layers := sprite.FlattenLayers()
	layerIndex := make(map[*Layer]int, len(layers))
	for i, l := range layers {
		layerIndex[l] = i
	}
	tilesetIndex := make(map[*Tileset]int, len(sprite.Tilesets))
	for i, t := range sprite.Tilesets {
		tilesetIndex[t] = i
	}

	w.writeZeros(fileHeaderSize)

	for frame := 0; frame < sprite.FrameCount(); frame++ {
		if err := encodeFrame(w, sprite, frame, layers, layerIndex, tilesetIndex); err != nil {
			return err
		}
	}

	patchFileHeader(w, sprite)

	if _, err := sink.Write(w.bytes()); err != nil {
		return errIO(err)
	}
	return nil
}

func encodeFrame(w *byteWriter, sprite *Sprite, frame int, layers []*Layer, layerIndex map[*Layer]int, tilesetIndex map[*Tileset]int) error {
	frameStart := w.pos()
	w.writeZeros(frameHeaderSize)
	chunkCount := 0

	if frame == 0 {
		for i, ts := range sprite.Tilesets {
			emitTileset(w, ts, i)
			chunkCount++
		}
		for _, l := range layers {
			emitLayer(w, l, tilesetIndex)
			chunkCount++
			if !l.UserData.IsEmpty() {
				emitUserData(w, l.UserData)
				chunkCount++
			}
		}

		emitPalette(w, sprite.Palettes[0])
		chunkCount++

		if len(sprite.Tags) > 0 {
			emitTags(w, sprite.Tags)
			chunkCount++
			for _, t := range sprite.Tags {
				// One UserData chunk per tag, always, so the decoder's
				// pending-tag queue stays in lock-step with tag order even
				// when a tag carries no user data of its own.
				emitUserData(w, t.UserData)
				chunkCount++
			}
		}

		for _, sl := range sprite.Slices {
			emitSlice(w, sl)
			chunkCount++
			if !sl.UserData.IsEmpty() {
				emitUserData(w, sl.UserData)
				chunkCount++
			}
		}
	} else {
		for _, p := range sprite.Palettes {
			if p.Frame == frame {
				emitPalette(w, p)
				chunkCount++
			}
		}
	}

	for _, l := range layers {
		if l.Kind == LayerKindGroup {
			continue
		}
		cel, ok := l.Cel(frame)
		if !ok {
			continue
		}
		if err := emitCel(w, cel, uint16(layerIndex[l])); err != nil {
			return err
		}
		chunkCount++
		if !cel.UserData.IsEmpty() {
			emitUserData(w, cel.UserData)
			chunkCount++
		}
	}

	patchFrameHeader(w, frameStart, sprite.Frames[frame].DurationMs, chunkCount)
	return nil
}

// beginChunk writes a placeholder Size:DWORD and the chunk Type:WORD,
// returning the position of the Size field so endChunk can back-patch it.
func beginChunk(w *byteWriter, typ uint16) int {
	start := w.pos()
	w.writeZeros(4)
	w.writeWord(typ)
	return start
}

func endChunk(w *byteWriter, start int) {
	size := uint32(w.pos() - start)
	w.writeAt(start, []byte{byte(size), byte(size >> 8), byte(size >> 16), byte(size >> 24)})
}

func emitLayer(w *byteWriter, l *Layer, tilesetIndex map[*Tileset]int) {
	start := beginChunk(w, chunkLayer)
	w.writeWord(uint16(l.Flags))
	var wireType uint16
	switch l.Kind {
	case LayerKindGroup:
		wireType = wireLayerGroup
	case LayerKindTilemap:
		wireType = wireLayerTilemap
	default:
		wireType = wireLayerImage
	}
	w.writeWord(wireType)
	w.writeWord(uint16(l.Depth()))
	w.writeZeros(4) // default width/height, ignored
	w.writeWord(uint16(l.Blend))
	w.writeByte(l.Opacity)
	w.writeZeros(3)
	w.writeString(l.Name)
	if l.Kind == LayerKindTilemap {
		w.writeDWord(uint32(tilesetIndex[l.Tileset]))
	}
	endChunk(w, start)
}

func emitCel(w *byteWriter, c *Cel, layerIndex uint16) error {
	start := beginChunk(w, chunkCel)
	w.writeWord(layerIndex)
	w.writeShort(c.X)
	w.writeShort(c.Y)
	w.writeByte(c.Opacity)

	if c.IsLinked() {
		w.writeWord(celTypeLinked)
		w.writeShort(c.ZIndex)
		w.writeZeros(5)
		w.writeWord(uint16(c.LinkedToFrame))
		endChunk(w, start)
		return nil
	}

	img := c.Image()
	isTilemap := img.Mode == ColorModeTilemap
	if isTilemap {
		w.writeWord(celTypeCompressedMap)
	} else {
		w.writeWord(celTypeCompressed)
	}
	w.writeShort(c.ZIndex)
	w.writeZeros(5)
	w.writeWord(uint16(img.Width))
	w.writeWord(uint16(img.Height))
	if isTilemap {
		w.writeWord(32)
		w.writeDWord(tileIndexMask)
		w.writeDWord(tileFlipXMask)
		w.writeDWord(tileFlipYMask)
		w.writeDWord(tileRot90Mask)
		w.writeZeros(10)
	}
	compressed, err := zlibCompress(img.Pix)
	if err != nil {
		return err
	}
	w.write(compressed)
	endChunk(w, start)
	return nil
}

func emitPalette(w *byteWriter, p Palette) {
	start := beginChunk(w, chunkPalette)
	w.writeDWord(uint32(len(p.Entries)))
	w.writeDWord(0)
	if len(p.Entries) > 0 {
		w.writeDWord(uint32(len(p.Entries) - 1))
	} else {
		w.writeDWord(0)
	}
	w.writeZeros(8)
	for _, e := range p.Entries {
		w.writeWord(0)
		w.writeByte(e.Color.R)
		w.writeByte(e.Color.G)
		w.writeByte(e.Color.B)
		w.writeByte(e.Color.A)
	}
	endChunk(w, start)
}

func emitTags(w *byteWriter, tags []*Tag) {
	start := beginChunk(w, chunkTags)
	w.writeWord(uint16(len(tags)))
	w.writeZeros(8)
	for _, t := range tags {
		w.writeWord(uint16(t.FromFrame))
		w.writeWord(uint16(t.ToFrame))
		w.writeByte(byte(t.Direction))
		w.writeWord(uint16(t.Repeat))
		w.writeZeros(6)
		w.writeByte(t.Color.R)
		w.writeByte(t.Color.G)
		w.writeByte(t.Color.B)
		w.writeByte(0)
		w.writeString(t.Name)
	}
	endChunk(w, start)
}

func emitSlice(w *byteWriter, sl *Slice) {
	start := beginChunk(w, chunkSlice)
	has9 := sl.has9Slices()
	hasPivot := sl.hasPivot()

	w.writeDWord(uint32(len(sl.Keys)))
	flags := uint32(0)
	if has9 {
		flags |= sliceFlag9Slices
	}
	if hasPivot {
		flags |= sliceFlagPivot
	}
	w.writeDWord(flags)
	w.writeZeros(4)
	w.writeString(sl.Name)

	for _, k := range sl.Keys {
		w.writeDWord(uint32(k.Frame))
		w.writeLong(k.X)
		w.writeLong(k.Y)
		w.writeDWord(k.W)
		w.writeDWord(k.H)
		if has9 {
			w.writeLong(k.CX)
			w.writeLong(k.CY)
			w.writeDWord(k.CW)
			w.writeDWord(k.CH)
		}
		if hasPivot {
			w.writeLong(k.PX)
			w.writeLong(k.PY)
		}
	}
	endChunk(w, start)
}

func emitTileset(w *byteWriter, t *Tileset, index int) error {
	start := beginChunk(w, chunkTileset)
	w.writeDWord(uint32(index))
	w.writeDWord(tilesetFlagEmbedTiles | tilesetFlagEmptyTileIsZero)
	w.writeDWord(uint32(len(t.Tiles)))
	w.writeWord(uint16(t.TileWidth))
	w.writeWord(uint16(t.TileHeight))
	w.writeShort(int16(t.BaseIndex))
	w.writeZeros(14)
	w.writeString(t.Name)

	all := make([]byte, 0, len(t.Tiles)*t.TileWidth*t.TileHeight*t.Mode.BytesPerPixel())
	for _, tile := range t.Tiles {
		all = append(all, tile.Pix...)
	}
	compressed, err := zlibCompress(all)
	if err != nil {
		return err
	}
	w.writeDWord(uint32(len(compressed)))
	w.write(compressed)
	endChunk(w, start)
	return nil
}

func emitUserData(w *byteWriter, u UserData) {
	start := beginChunk(w, chunkUserData)
	flags := uint32(0)
	if u.HasText {
		flags |= userDataFlagText
	}
	if u.HasColor {
		flags |= userDataFlagColor
	}
	w.writeDWord(flags)
	if u.HasText {
		w.writeString(u.Text)
	}
	if u.HasColor {
		w.writeByte(u.Color.R)
		w.writeByte(u.Color.G)
		w.writeByte(u.Color.B)
		w.writeByte(u.Color.A)
	}
	endChunk(w, start)
}

func patchFrameHeader(w *byteWriter, frameStart, durationMs, chunkCount int) {
	h := newByteWriter()
	h.writeDWord(uint32(w.pos() - frameStart))
	h.writeWord(frameMagic)
	h.writeWord(0xFFFF)
	d := durationMs
	if d > 0xFFFF {
		d = 0xFFFF
	}
	h.writeWord(uint16(d))
	h.writeZeros(2)
	h.writeDWord(uint32(chunkCount))
	w.writeAt(frameStart, h.bytes())
}

func patchFileHeader(w *byteWriter, sprite *Sprite) {
	h := newByteWriter()
	h.writeDWord(uint32(w.pos()))
	h.writeWord(fileMagic)
	h.writeWord(uint16(sprite.FrameCount()))
	h.writeWord(uint16(sprite.Width))
	h.writeWord(uint16(sprite.Height))
	h.writeWord(sprite.Mode.colorDepth())
	h.writeDWord(headerFlagLayerOpacityValid | headerFlagGroupOpacityValid)
	h.writeWord(100) // Speed, deprecated, must be written
	h.writeZeros(8)
	h.writeByte(byte(sprite.TransparentIndex))
	h.writeZeros(3)
	h.writeWord(uint16(len(sprite.Palettes[0].Entries)))
	h.writeByte(byte(sprite.PixelRatio.Width))
	h.writeByte(byte(sprite.PixelRatio.Height))
	h.writeShort(sprite.Grid.X)
	h.writeShort(sprite.Grid.Y)
	h.writeWord(sprite.Grid.Width)
	h.writeWord(sprite.Grid.Height)
	h.writeZeros(84)
	w.writeAt(0, h.bytes())
}

func zlibCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, errIO(err)
	}
	if err := zw.Close(); err != nil {
		return nil, errIO(err)
	}
	return buf.Bytes(), nil
}
