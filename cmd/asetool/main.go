/*
asetool inspects and round-trips Aseprite sprite files.

Usage:

	asetool inspect <file.aseprite>
	asetool roundtrip <file.aseprite>
	asetool thumbnail [-frame N] [-scale F] <file.aseprite> <out.png>

inspect prints the sprite's canvas size, colour mode, frame count, layer
tree and tag list to stdout.

roundtrip decodes the input and re-encodes it to a temporary file, then
reports whether decoding that output produces a sprite identical in shape
(frame count, canvas size, layer count) to the original. It is meant as a
quick smoke test of the codec, not a byte-for-byte comparison.

thumbnail decodes the input, flattens the cels present at -frame (default
0) onto the canvas using the palette in effect at that frame, optionally
scales the result by -scale (default 1.0), and writes it as a PNG.

Examples:

	asetool inspect hero.aseprite
	asetool thumbnail -frame 3 -scale 4 hero.aseprite hero_frame3.png
*/
package main

import (
	"errors"
	"flag"
	"fmt"
	"image/png"
	"os"

	"github.com/n0mad300/gosprite/ase"
)

func main() {
	if err := main1(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func main1() error {
	if len(os.Args) < 2 {
		return errors.New("usage: asetool <inspect|roundtrip|thumbnail> ...")
	}
	switch os.Args[1] {
	case "inspect":
		return runInspect(os.Args[2:])
	case "roundtrip":
		return runRoundtrip(os.Args[2:])
	case "thumbnail":
		return runThumbnail(os.Args[2:])
	}
	return fmt.Errorf("unknown subcommand %q", os.Args[1])
}

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: asetool inspect <file.aseprite>")
	}

	sprite, err := ase.DecodeFile(fs.Arg(0))
	if err != nil {
		return err
	}

	fmt.Printf("canvas:  %dx%d, %s\n", sprite.Width, sprite.Height, sprite.Mode)
	fmt.Printf("frames:  %d\n", sprite.FrameCount())
	fmt.Printf("layers:\n")
	for _, l := range sprite.FlattenLayers() {
		indent := ""
		for i := 0; i < l.Depth(); i++ {
			indent += "  "
		}
		fmt.Printf("  %s%s [%v]\n", indent, l.Name, l.Kind)
	}
	if len(sprite.Tags) > 0 {
		fmt.Printf("tags:\n")
		for _, t := range sprite.Tags {
			fmt.Printf("  %s: %d-%d (%v)\n", t.Name, t.FromFrame, t.ToFrame, t.Direction)
		}
	}
	return nil
}

func runRoundtrip(args []string) error {
	fs := flag.NewFlagSet("roundtrip", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: asetool roundtrip <file.aseprite>")
	}

	path := fs.Arg(0)
	original, err := ase.DecodeFile(path)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", "asetool-roundtrip-*.aseprite")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := ase.EncodeFile(original, tmpPath); err != nil {
		return err
	}
	reread, err := ase.DecodeFile(tmpPath)
	if err != nil {
		return fmt.Errorf("re-decoding round-tripped output: %w", err)
	}

	if reread.FrameCount() != original.FrameCount() ||
		reread.Width != original.Width || reread.Height != original.Height ||
		len(reread.FlattenLayers()) != len(original.FlattenLayers()) {
		return errors.New("roundtrip: re-decoded sprite does not match the original shape")
	}

	fmt.Println("ok")
	return nil
}

func runThumbnail(args []string) error {
	fs := flag.NewFlagSet("thumbnail", flag.ContinueOnError)
	frame := fs.Int("frame", 0, "frame index to render")
	scale := fs.Float64("scale", 1.0, "scale factor applied to the canvas size")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("usage: asetool thumbnail [-frame N] [-scale F] <file.aseprite> <out.png>")
	}

	sprite, err := ase.DecodeFile(fs.Arg(0))
	if err != nil {
		return err
	}
	if *frame < 0 || *frame >= sprite.FrameCount() {
		return fmt.Errorf("frame %d out of range [0, %d)", *frame, sprite.FrameCount())
	}

	pal := sprite.PaletteAt(*frame)
	canvas := ase.NewImage(sprite.Width, sprite.Height, ase.ColorModeRGBA)
	for _, lc := range sprite.CelsAtFrame(*frame) {
		if !lc.Layer.Flags.Has(ase.LayerVisible) {
			continue
		}
		resolved, ok, err := lc.Layer.ResolveCel(*frame)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		img := resolved.Image()
		if img == nil || img.Mode == ase.ColorModeTilemap {
			continue
		}
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				dx, dy := int(resolved.X)+x, int(resolved.Y)+y
				if dx < 0 || dy < 0 || dx >= canvas.Width || dy >= canvas.Height {
					continue
				}
				c := img.At(x, y, pal)
				if c.A == 0 {
					continue
				}
				canvas.SetRGBA(dx, dy, c)
			}
		}
	}

	out := canvas
	if *scale != 1.0 {
		out = canvas.Resize(int(float64(sprite.Width)*(*scale)), int(float64(sprite.Height)*(*scale)), pal)
	}

	f, err := os.Create(fs.Arg(1))
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, out.ColorImage(pal))
}
