package ase

import (
	"bytes"
	"image/color"
	"testing"

	"badc0de.net/pkg/go-ase/ttesting"
)

func oldPaletteChunk(packets ...[]byte) []byte {
	w := &chunkWriter{}
	w.u16(uint16(len(packets)))
	for _, p := range packets {
		w.Write(p)
	}
	return w.Bytes()
}

func oldPalettePacket(skip, count uint8, rgb ...byte) []byte {
	w := &chunkWriter{}
	w.u8(skip)
	w.u8(count)
	w.Write(rgb)
	return w.Bytes()
}

func newPaletteChunk(size, from, to uint32, entries ...[]byte) []byte {
	w := &chunkWriter{}
	w.u32(size)
	w.u32(from)
	w.u32(to)
	w.zeros(8)
	for _, e := range entries {
		w.Write(e)
	}
	return w.Bytes()
}

func paletteEntry(name string, r, g, b, a byte) []byte {
	w := &chunkWriter{}
	if name != "" {
		w.u16(PALETTE_ENTRY_FLAG_NAME)
	} else {
		w.u16(0)
	}
	w.Write([]byte{r, g, b, a})
	if name != "" {
		w.str(name)
	}
	return w.Bytes()
}

// TestOldPaletteCumulativeSkip covers the packet-run merge: two packets
// {skip=0,size=2} and {skip=1,size=1} must populate indices 0, 1 and 3.
func TestOldPaletteCumulativeSkip(t *testing.T) {
	chunk := oldPaletteChunk(
		oldPalettePacket(0, 2, 10, 11, 12, 20, 21, 22),
		oldPalettePacket(1, 1, 30, 31, 32),
	)
	spec := newDocSpec(2, 2, 8)
	spec.ncolors = 8
	spec.frame(100).chunk(uint16(CHUNK_OLD_PALETTE_256), chunk)

	doc, err := Decode(bytes.NewReader(spec.bytes()))
	if err != nil {
		t.Fatalf("failed to decode document: %s", err)
	}

	pal := doc.Palette
	want := map[int]color.RGBA{
		0: {10, 11, 12, 255},
		1: {20, 21, 22, 255},
		3: {30, 31, 32, 255},
	}
	for idx, col := range want {
		if pal.Colors[idx] != col {
			t.Errorf("palette[%d] = %v; want %v", idx, pal.Colors[idx], col)
		}
		if pal.Names[idx] != "" {
			t.Errorf("palette[%d] name = %q; want unnamed", idx, pal.Names[idx])
		}
	}
	if pal.Colors[2] != (color.RGBA{}) {
		t.Errorf("palette[2] = %v; want untouched zero entry", pal.Colors[2])
	}
}

// TestNewPaletteRange rewrites [2,4] with a name only on index 3 and
// checks that entries outside the range stay untouched.
func TestNewPaletteRange(t *testing.T) {
	old := oldPaletteChunk(oldPalettePacket(0, 2, 1, 2, 3, 4, 5, 6))
	chunk := newPaletteChunk(8, 2, 4,
		paletteEntry("", 40, 40, 40, 255),
		paletteEntry("skin", 50, 50, 50, 128),
		paletteEntry("", 60, 60, 60, 255),
	)
	spec := newDocSpec(2, 2, 8)
	spec.ncolors = 8
	spec.frame(100).
		chunk(uint16(CHUNK_OLD_PALETTE_256), old).
		chunk(uint16(CHUNK_PALETTE), chunk)

	doc, err := Decode(bytes.NewReader(spec.bytes()))
	if err != nil {
		t.Fatalf("failed to decode document: %s", err)
	}
	pal := doc.Palette

	ttesting.AssertEqualInt(t, "palette size", len(pal.Colors), 8)
	ttesting.AssertEqualInt(t, "names track colors", len(pal.Names), 8)
	if pal.Colors[0] != (color.RGBA{1, 2, 3, 255}) || pal.Colors[1] != (color.RGBA{4, 5, 6, 255}) {
		t.Errorf("entries below the range were touched: %v %v", pal.Colors[0], pal.Colors[1])
	}
	if pal.Colors[3] != (color.RGBA{50, 50, 50, 128}) {
		t.Errorf("palette[3] = %v; want explicit alpha 128", pal.Colors[3])
	}
	for i := 5; i < 8; i++ {
		if pal.Colors[i] != (color.RGBA{}) {
			t.Errorf("palette[%d] = %v; want untouched", i, pal.Colors[i])
		}
	}
	ttesting.AssertEqualStr(t, "only index 3 named", pal.Names[3], "skin")
	for _, i := range []int{0, 1, 2, 4, 5, 6, 7} {
		if pal.Names[i] != "" {
			t.Errorf("palette[%d] name = %q; want unnamed", i, pal.Names[i])
		}
	}
}

// TestNewPaletteSupersedesOld makes sure old-format chunks are ignored
// once a new-format chunk was seen.
func TestNewPaletteSupersedesOld(t *testing.T) {
	newChunk := newPaletteChunk(4, 0, 0, paletteEntry("", 100, 100, 100, 255))
	oldChunk := oldPaletteChunk(oldPalettePacket(0, 1, 9, 9, 9))

	spec := newDocSpec(2, 2, 8)
	spec.frame(100).
		chunk(uint16(CHUNK_PALETTE), newChunk).
		chunk(uint16(CHUNK_OLD_PALETTE_256), oldChunk)

	doc, err := Decode(bytes.NewReader(spec.bytes()))
	if err != nil {
		t.Fatalf("failed to decode document: %s", err)
	}
	if doc.Palette.Colors[0] != (color.RGBA{100, 100, 100, 255}) {
		t.Errorf("palette[0] = %v; old-format chunk was not ignored", doc.Palette.Colors[0])
	}
}

// TestNewPaletteResize shrinks then grows the palette; entries outside
// the rewritten range end up zero, which is the documented choice for
// the format's unspecified case.
func TestNewPaletteResize(t *testing.T) {
	shrink := newPaletteChunk(2, 0, 1,
		paletteEntry("", 1, 1, 1, 255),
		paletteEntry("", 2, 2, 2, 255),
	)
	grow := newPaletteChunk(6, 4, 4, paletteEntry("", 3, 3, 3, 255))

	spec := newDocSpec(2, 2, 8)
	spec.ncolors = 4
	spec.frame(100).
		chunk(uint16(CHUNK_PALETTE), shrink).
		chunk(uint16(CHUNK_PALETTE), grow)

	doc, err := Decode(bytes.NewReader(spec.bytes()))
	if err != nil {
		t.Fatalf("failed to decode document: %s", err)
	}
	pal := doc.Palette
	ttesting.AssertEqualInt(t, "palette regrown", len(pal.Colors), 6)
	if pal.Colors[0] != (color.RGBA{1, 1, 1, 255}) || pal.Colors[1] != (color.RGBA{2, 2, 2, 255}) {
		t.Errorf("surviving entries lost: %v %v", pal.Colors[0], pal.Colors[1])
	}
	if pal.Colors[4] != (color.RGBA{3, 3, 3, 255}) {
		t.Errorf("palette[4] = %v; want the grown-range write", pal.Colors[4])
	}
	for _, i := range []int{2, 3, 5} {
		if pal.Colors[i] != (color.RGBA{}) {
			t.Errorf("palette[%d] = %v; want zero after shrink-then-grow", i, pal.Colors[i])
		}
	}
}
