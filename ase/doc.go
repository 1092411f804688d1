// Package ase provides a bidirectional codec for the Aseprite sprite file
// format (.ase / .aseprite) and the in-memory document model that the codec
// reads and writes.
//
// The package is split, leaf first, the same way lib/rac splits a chunk-
// oriented binary container into a Writer, a Reader and the primitives they
// share: binary.go holds the little-endian primitive readers and writers;
// sprite.go, layer.go, cel.go, image.go, palette.go, tileset.go, tag.go,
// slice.go and userdata.go hold the document model; chunks.go, decode.go and
// encode.go hold the codec built on top of it.
//
// Decoding and encoding are synchronous, single-pass and single-threaded: one
// call processes one document on one goroutine, matching the format's own
// length-prefixed, seekable-byte-access design (there is no streaming mode).
package ase
