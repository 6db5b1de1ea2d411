// Package imageprint prints images on terminal. UNSUPPORTED debug package.
//
// This package has an API with no stability guarantees.
package imageprint

import (
	"fmt"
	"image"
	ic "image/color"
	"os"

	"github.com/BourgeoisBear/rasterm"
	"github.com/andybons/gogif"
	"github.com/gookit/color"
)

// Options selects how cells are rendered in the escape-code modes.
type Options struct {
	// Blanks renders two colored spaces per pixel instead of ascii-art
	// shading characters.
	Blanks bool
}

func cell(col ic.Color, opts Options, trueColor bool) {
	cR, cG, cB, cA := col.RGBA()
	if cA == 0 {
		fmt.Printf("\x1b[0m  ")
		return
	}

	var p interface {
		Printf(s string, arg ...interface{})
	}
	if trueColor {
		fmt.Printf("\x1b[48;2;%d;%d;%dm", uint8(cR>>8), uint8(cG>>8), uint8(cB>>8))
		p = plainPrinter{}
	} else {
		p = color.RGB(uint8(cR>>8), uint8(cG>>8), uint8(cB>>8), true)
	}

	if opts.Blanks {
		p.Printf("  ")
	} else {
		switch lum := (cR + cG + cB) / 3 >> 8; {
		case lum < 32:
			p.Printf("..")
		case lum < 64:
			p.Printf("--")
		case lum < 128:
			p.Printf("==")
		default:
			p.Printf("##")
		}
	}
	if trueColor {
		fmt.Printf("\x1b[0m")
	}
}

type plainPrinter struct{}

func (plainPrinter) Printf(s string, arg ...interface{}) {
	fmt.Printf(s, arg...)
}

func printCells(i image.Image, opts Options, trueColor bool) {
	b := i.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			cell(i.At(x, y), opts, trueColor)
		}
		fmt.Printf("\x1b[0m\n")
	}
}

// Print256Color draws an image using 256color'd ascii art.
func Print256Color(i image.Image, opts Options) {
	printCells(i, opts, false)
}

// Print24bit draws an image using 24bit color escape sequences by
// changing the background color.
func Print24bit(i image.Image, opts Options) {
	printCells(i, opts, true)
}

// PrintRasTerm draws an image using whichever graphical terminal
// protocol rasterm detects: Kitty, iTerm2/WezTerm, or sixel. It reports
// whether any protocol was available.
func PrintRasTerm(i image.Image) bool {
	switch {
	case rasterm.IsTermKitty():
		rasterm.Settings{}.KittyWriteImage(os.Stdout, i)
	case rasterm.IsTermItermWez():
		rasterm.Settings{}.ItermWriteImage(os.Stdout, i)
	default:
		capable, err := rasterm.IsSixelCapable()
		if !capable || err != nil {
			return false
		}
		paletted := image.NewPaletted(i.Bounds(), nil)
		quantizer := gogif.MedianCutQuantizer{NumColor: 64}
		quantizer.Quantize(paletted, i.Bounds(), i, image.Point{})
		rasterm.Settings{}.SixelWriteImage(os.Stdout, paletted)
	}
	fmt.Printf("\n")
	return true
}
