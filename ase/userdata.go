package ase

// UserData is free-form metadata that can be attached to a layer, cel, tag,
// slice or tileset: optional UTF-8 text and an optional RGBA colour.
type UserData struct {
	Text     string
	HasText  bool
	Color    Rgba32
	HasColor bool
}

// SetText sets the text and marks HasText.
func (u *UserData) SetText(text string) {
	u.Text = text
	u.HasText = true
}

// ClearText clears the text and HasText.
func (u *UserData) ClearText() {
	u.Text = ""
	u.HasText = false
}

// SetColor sets the colour and marks HasColor.
func (u *UserData) SetColor(c Rgba32) {
	u.Color = c
	u.HasColor = true
}

// ClearColor clears the colour and HasColor.
func (u *UserData) ClearColor() {
	u.Color = Rgba32{}
	u.HasColor = false
}

// IsEmpty reports whether there is nothing worth encoding a UserData chunk
// for.
func (u UserData) IsEmpty() bool {
	return !u.HasText && !u.HasColor
}
