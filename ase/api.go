package ase

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

// IsSupported reports whether path's extension (case-insensitive) is one
// DecodeFile/EncodeFile will accept: ".ase" or ".aseprite".
func IsSupported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ase", ".aseprite":
		return true
	}
	return false
}

// DecodeStream parses data as a complete Aseprite file held in memory.
func DecodeStream(data []byte) (*Sprite, error) {
	return Decoder{}.Decode(data)
}

// DecodeFile reads and parses the file at path. On success, the returned
// Sprite has Path set to path and Modified cleared, per §6.
func DecodeFile(path string) (*Sprite, error) {
	if !IsSupported(path) {
		return nil, errUnsupportedFormat(filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errIO(err)
	}
	sprite, err := DecodeStream(data)
	if err != nil {
		return nil, err
	}
	sprite.Path = path
	sprite.Modified = false
	return sprite, nil
}

// EncodeStream writes sprite to sink as a complete Aseprite file.
func EncodeStream(sink io.Writer, sprite *Sprite) error {
	return Encoder{}.Encode(sink, sprite)
}

// EncodeFile writes sprite to the file at path, creating or truncating it.
// On success, sprite.Path is set to path and Modified is cleared, per §6.
func EncodeFile(sprite *Sprite, path string) error {
	if !IsSupported(path) {
		return errUnsupportedFormat(filepath.Ext(path))
	}
	f, err := os.Create(path)
	if err != nil {
		return errIO(err)
	}
	if err := EncodeStream(f, sprite); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errIO(err)
	}

	sprite.Path = path
	sprite.Modified = false
	return nil
}
