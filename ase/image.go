package ase

import (
	stdimage "image"

	"golang.org/x/image/draw"
)

// Image is a rectangular pixel buffer in one of the four ColorMode
// encodings. Pixels are stored row-major, top-down, in the bytes-per-pixel
// dictated by Mode.
type Image struct {
	Width, Height int
	Mode          ColorMode
	// Pix holds the raw pixel bytes. Its length is always
	// Width * Height * Mode.BytesPerPixel().
	Pix []byte
}

// NewImage allocates a zeroed Image of the given size and mode. width and
// height must be positive.
func NewImage(width, height int, mode ColorMode) *Image {
	bpp := mode.BytesPerPixel()
	return &Image{
		Width:  width,
		Height: height,
		Mode:   mode,
		Pix:    make([]byte, width*height*bpp),
	}
}

// Validate checks the structural invariants §3 places on Image: positive
// dimensions and a pixel buffer of exactly the expected length.
func (img *Image) Validate() error {
	if img.Width <= 0 || img.Height <= 0 {
		return errInvalidData("image has non-positive dimensions %dx%d", img.Width, img.Height)
	}
	want := img.Width * img.Height * img.Mode.BytesPerPixel()
	if len(img.Pix) != want {
		return errInvalidData("image pixel buffer has length %d, want %d", len(img.Pix), want)
	}
	return nil
}

func (img *Image) offset(x, y int) int {
	return (y*img.Width + x) * img.Mode.BytesPerPixel()
}

// PixelBytes returns the raw bytes backing the pixel at (x, y). The slice
// aliases img.Pix; mutating it mutates the image.
func (img *Image) PixelBytes(x, y int) []byte {
	bpp := img.Mode.BytesPerPixel()
	o := img.offset(x, y)
	return img.Pix[o : o+bpp]
}

// At returns the pixel at (x, y) as an Rgba32, resolving indexed pixels
// through pal. It is not meaningful for ColorModeTilemap images; use
// TileCell instead.
func (img *Image) At(x, y int, pal Palette) Rgba32 {
	b := img.PixelBytes(x, y)
	switch img.Mode {
	case ColorModeRGBA:
		return Rgba32{R: b[0], G: b[1], B: b[2], A: b[3]}
	case ColorModeGrayscale:
		return Rgba32{R: b[0], G: b[0], B: b[0], A: b[1]}
	case ColorModeIndexed:
		return pal.ColorAt(int(b[0]))
	default:
		return Rgba32{}
	}
}

// SetRGBA writes an RGBA pixel. It panics if Mode is not ColorModeRGBA.
func (img *Image) SetRGBA(x, y int, c Rgba32) {
	if img.Mode != ColorModeRGBA {
		panic("ase: SetRGBA on a " + img.Mode.String() + " image")
	}
	b := img.PixelBytes(x, y)
	b[0], b[1], b[2], b[3] = c.R, c.G, c.B, c.A
}

// SetIndex writes an indexed pixel. It panics if Mode is not
// ColorModeIndexed.
func (img *Image) SetIndex(x, y int, index byte) {
	if img.Mode != ColorModeIndexed {
		panic("ase: SetIndex on a " + img.Mode.String() + " image")
	}
	img.PixelBytes(x, y)[0] = index
}

// TileCell returns the decoded tile reference at (x, y). It panics if Mode
// is not ColorModeTilemap.
func (img *Image) TileCell(x, y int) (index uint32, flipX, flipY, rotate90 bool) {
	if img.Mode != ColorModeTilemap {
		panic("ase: TileCell on a " + img.Mode.String() + " image")
	}
	b := img.PixelBytes(x, y)
	cell := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return DecodeTileRef(cell)
}

// SetTileCell writes a tile reference at (x, y). It panics if Mode is not
// ColorModeTilemap.
func (img *Image) SetTileCell(x, y int, index uint32, flipX, flipY, rotate90 bool) {
	if img.Mode != ColorModeTilemap {
		panic("ase: SetTileCell on a " + img.Mode.String() + " image")
	}
	cell := EncodeTileRef(index, flipX, flipY, rotate90)
	b := img.PixelBytes(x, y)
	b[0], b[1], b[2], b[3] = byte(cell), byte(cell>>8), byte(cell>>16), byte(cell>>24)
}

// Clone returns a deep copy of img.
func (img *Image) Clone() *Image {
	out := &Image{Width: img.Width, Height: img.Height, Mode: img.Mode}
	out.Pix = make([]byte, len(img.Pix))
	copy(out.Pix, img.Pix)
	return out
}

// ColorImage adapts img to the standard library's image.Image, resolving
// indexed pixels through pal. This is a read-only view used by
// cmd/asetool's thumbnail subcommand; it is built the same way
// lib/nie.Decode builds a stdlib image from a packed pixel buffer: allocate
// the matching image.* type and copy/convert channel-by-channel into its
// Pix slice. Tilemap images have no pixel colour and return a 1x1
// transparent image.
func (img *Image) ColorImage(pal Palette) stdimage.Image {
	switch img.Mode {
	case ColorModeRGBA:
		m := stdimage.NewNRGBA(stdimage.Rect(0, 0, img.Width, img.Height))
		copy(m.Pix, img.Pix)
		return m
	case ColorModeGrayscale:
		m := stdimage.NewNRGBA(stdimage.Rect(0, 0, img.Width, img.Height))
		for i, o := 0, 0; o+1 < len(img.Pix); i, o = i+4, o+2 {
			v, a := img.Pix[o], img.Pix[o+1]
			m.Pix[i], m.Pix[i+1], m.Pix[i+2], m.Pix[i+3] = v, v, v, a
		}
		return m
	case ColorModeIndexed:
		m := stdimage.NewNRGBA(stdimage.Rect(0, 0, img.Width, img.Height))
		for i, idx := range img.Pix {
			c := pal.ColorAt(int(idx))
			o := i * 4
			m.Pix[o], m.Pix[o+1], m.Pix[o+2], m.Pix[o+3] = c.R, c.G, c.B, c.A
		}
		return m
	default:
		return stdimage.NewNRGBA(stdimage.Rect(0, 0, 1, 1))
	}
}

// Resize returns a copy of img scaled to (width, height) using
// golang.org/x/image/draw's bilinear scaler. It only operates on images
// with colour (not ColorModeTilemap), converting through ColorImage/pal and
// back to an RGBA-mode Image; cmd/asetool's thumbnail subcommand is the
// only caller.
func (img *Image) Resize(width, height int, pal Palette) *Image {
	src := img.ColorImage(pal)
	dst := stdimage.NewNRGBA(stdimage.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	out := NewImage(width, height, ColorModeRGBA)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := dst.NRGBAAt(x, y)
			out.SetRGBA(x, y, Rgba32{R: c.R, G: c.G, B: c.B, A: c.A})
		}
	}
	return out
}
