package ase

// Tileset is a fixed-size tile dictionary referenced by Tilemap layers.
// Index 0 is reserved as the empty (transparent) tile and cannot be removed
// or overwritten in place.
type Tileset struct {
	TileWidth, TileHeight int
	Mode                  ColorMode
	BaseIndex             int
	Name                  string
	UserData              UserData

	// Tiles holds one Image per tile, each of size TileWidth x TileHeight
	// and colour mode Mode. Tiles[0] is the reserved empty tile.
	Tiles []*Image
}

// NewTileset returns a Tileset with a single empty (all-zero) tile at
// index 0.
func NewTileset(tileWidth, tileHeight int, mode ColorMode, name string) *Tileset {
	return &Tileset{
		TileWidth:  tileWidth,
		TileHeight: tileHeight,
		Mode:       mode,
		Name:       name,
		Tiles:      []*Image{NewImage(tileWidth, tileHeight, mode)},
	}
}

// Append adds a tile, validating that it matches the tileset's declared
// size and colour mode. It returns the new tile's index.
func (t *Tileset) Append(img *Image) (int, error) {
	if err := t.validateTileShape(img); err != nil {
		return 0, err
	}
	t.Tiles = append(t.Tiles, img)
	return len(t.Tiles) - 1, nil
}

// Replace overwrites the tile at index, which must not be 0 (the reserved
// empty tile).
func (t *Tileset) Replace(index int, img *Image) error {
	if index == 0 {
		return errInvalidData("tileset: cannot overwrite the reserved empty tile at index 0")
	}
	if index < 0 || index >= len(t.Tiles) {
		return errInvalidData("tileset: tile index %d out of range [0, %d)", index, len(t.Tiles))
	}
	if err := t.validateTileShape(img); err != nil {
		return err
	}
	t.Tiles[index] = img
	return nil
}

func (t *Tileset) validateTileShape(img *Image) error {
	if img.Width != t.TileWidth || img.Height != t.TileHeight {
		return errInvalidData("tileset: tile is %dx%d, want %dx%d",
			img.Width, img.Height, t.TileWidth, t.TileHeight)
	}
	if img.Mode != t.Mode {
		return errInvalidData("tileset: tile has color mode %s, want %s", img.Mode, t.Mode)
	}
	return nil
}
