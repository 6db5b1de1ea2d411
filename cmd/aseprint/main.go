// Command aseprint decodes a sprite file and draws one of its frames,
// or all frames of a tag, onto the terminal.
package main

import (
	"flag"
	"image"
	"os"
	"time"

	"badc0de.net/pkg/flagutil/v1"

	"badc0de.net/pkg/go-ase/ase"
	"badc0de.net/pkg/go-ase/imageprint"
	"badc0de.net/pkg/go-ase/paths"

	"github.com/golang/glog"
	"github.com/nfnt/resize"
)

var (
	frameIdx = flag.Int("frame", 0, "frame to print")
	tagName  = flag.String("tag", "", "print every frame of this tag instead of a single frame")
	col256   = flag.Bool("col256", false, "whether to use 256 col instead of 24 bit")
	rasTerm  = flag.Bool("rasterm", true, "whether to try graphical terminal protocols (kitty, iterm, sixel) first")
	blanks   = flag.Bool("blanks", true, "whether to just use colored blanks instead of some bad ascii art")
	scale    = flag.Uint("scale", 1, "integer upscale factor applied before printing")
	delays   = flag.Bool("delays", false, "whether to sleep for each frame's duration when printing a tag")

	asePath string
)

func out(img image.Image) {
	if *scale > 1 {
		b := img.Bounds()
		img = resize.Resize(uint(b.Dx())**scale, uint(b.Dy())**scale, img, resize.NearestNeighbor)
	}

	if *rasTerm && imageprint.PrintRasTerm(img) {
		return
	}
	opts := imageprint.Options{Blanks: *blanks}
	if *col256 {
		imageprint.Print256Color(img, opts)
	} else {
		imageprint.Print24bit(img, opts)
	}
}

func frames(doc *ase.Document) []int {
	if *tagName == "" {
		return []int{*frameIdx}
	}
	for _, t := range doc.Tags {
		if t.Name != *tagName {
			continue
		}
		var out []int
		for f := int(t.From); f <= int(t.To); f++ {
			out = append(out, f)
		}
		return out
	}
	glog.Errorf("no tag %q in %s", *tagName, asePath)
	return nil
}

func main() {
	paths.SetupFilePathFlag("sample.ase", "ase_path", &asePath)
	flagutil.Parse()
	flag.Set("logtostderr", "true")

	if flag.NArg() > 0 {
		asePath = flag.Arg(0)
	}
	if asePath == "" {
		glog.Errorf("no sprite file given; pass one as an argument or with -ase_path")
		os.Exit(1)
	}

	f, err := os.Open(asePath)
	if err != nil {
		glog.Errorf("opening sprite file: %v", err)
		os.Exit(1)
	}
	defer f.Close()

	doc, err := ase.Decode(f)
	if err != nil {
		glog.Errorf("decoding %s: %v", asePath, err)
		os.Exit(1)
	}

	for _, idx := range frames(doc) {
		img, err := doc.FrameImage(idx)
		if err != nil {
			glog.Errorf("flattening frame %d: %v", idx, err)
			os.Exit(1)
		}
		out(img)
		if *delays && *tagName != "" {
			time.Sleep(time.Duration(doc.Frames[idx].Duration) * time.Millisecond)
		}
	}
}
