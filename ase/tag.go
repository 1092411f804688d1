package ase

// Tag is a named, inclusive frame range with a playback direction, repeat
// count and display colour.
type Tag struct {
	Name      string
	FromFrame int
	ToFrame   int
	Direction AnimDirection
	// Repeat is the number of times the animation plays; 0 means infinite.
	Repeat int
	Color  Rgba32

	UserData UserData
}
