package ase

// The palette has two wire encodings populating the same in-memory
// structure: the packet-run format of the two old palette chunks, and
// the range-based format of the 0x2019 chunk. Once a 0x2019 chunk has
// been seen, old-format chunks in the same document are ignored.

import (
	"image/color"

	"github.com/golang/glog"
)

// Palette is the document's ordered color table. Colors and Names always
// have the same length; an empty string means the entry is unnamed.
// TransparentIndex is meaningful only for indexed color depth.
type Palette struct {
	Colors           []color.RGBA
	Names            []string
	TransparentIndex uint8
}

func newPalette(size int) Palette {
	return Palette{
		Colors: make([]color.RGBA, size),
		Names:  make([]string, size),
	}
}

// resize grows or shrinks the palette to size entries. Entries below the
// new size keep their prior values; entries appearing after a grow are
// zero (transparent black, unnamed).
func (p *Palette) resize(size int) {
	colors := make([]color.RGBA, size)
	names := make([]string, size)
	copy(colors, p.Colors)
	copy(names, p.Names)
	p.Colors = colors
	p.Names = names
}

// ensure makes index a valid entry, growing the palette if an old-format
// packet run walks past the header's palette size hint.
func (p *Palette) ensure(index int) {
	if index >= len(p.Colors) {
		p.resize(index + 1)
	}
}

// decodeOldPalette merges one packet-run palette chunk into the current
// palette. The skip count accumulates across packets within the chunk.
// Old-format entries carry no alpha and no names.
func (d *decoder) decodeOldPalette() error {
	if d.newPaletteSeen {
		glog.V(1).Infof("ase: ignoring old-format palette chunk after new-format palette")
		return nil
	}
	r := d.r

	packets, err := r.u16()
	if err != nil {
		return err
	}

	offset := 0
	for p := uint16(0); p < packets; p++ {
		skip, err := r.u8()
		if err != nil {
			return err
		}
		offset += int(skip)

		count, err := r.u8()
		if err != nil {
			return err
		}
		n := int(count)
		if n == 0 {
			n = 256
		}

		for i := 0; i < n; i++ {
			rgb, err := r.bytes(3)
			if err != nil {
				return err
			}
			pal := &d.doc.Palette
			pal.ensure(offset + i)
			pal.Colors[offset+i] = color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 0xFF}
			pal.Names[offset+i] = ""
		}
		offset += n
	}
	return nil
}

// decodeNewPalette applies one range-based palette chunk: it may resize
// the whole palette, then rewrites the inclusive [from,to] entry range.
// Entries outside the range keep whatever they held before the resize;
// after a shrink-then-grow they are zero, which is this implementation's
// pick for the format's unspecified case.
func (d *decoder) decodeNewPalette() error {
	r := d.r
	pal := &d.doc.Palette

	size, err := r.u32()
	if err != nil {
		return err
	}
	if int(size) != len(pal.Colors) {
		pal.resize(int(size))
	}

	from, err := r.u32()
	if err != nil {
		return err
	}
	to, err := r.u32()
	if err != nil {
		return err
	}
	if err = r.skip(8); err != nil {
		return err
	}

	for i := from; i <= to; i++ {
		flags, err := r.u16()
		if err != nil {
			return err
		}
		rgba, err := r.bytes(4)
		if err != nil {
			return err
		}
		name := ""
		if flags&PALETTE_ENTRY_FLAG_NAME != 0 {
			if name, err = r.string(); err != nil {
				return err
			}
		}

		pal.ensure(int(i))
		pal.Colors[i] = color.RGBA{R: rgba[0], G: rgba[1], B: rgba[2], A: rgba[3]}
		pal.Names[i] = name
	}

	d.newPaletteSeen = true
	return nil
}
