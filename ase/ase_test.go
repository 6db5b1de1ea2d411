package ase

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	"github.com/klauspost/compress/zlib"

	"badc0de.net/pkg/go-ase/ttesting"
)

// chunkWriter builds one chunk body field by field.
type chunkWriter struct {
	bytes.Buffer
}

func (w *chunkWriter) u8(v uint8)   { w.WriteByte(v) }
func (w *chunkWriter) u16(v uint16) { binary.Write(w, binary.LittleEndian, v) }
func (w *chunkWriter) u32(v uint32) { binary.Write(w, binary.LittleEndian, v) }
func (w *chunkWriter) i16(v int16)  { binary.Write(w, binary.LittleEndian, v) }
func (w *chunkWriter) zeros(n int)  { w.Write(make([]byte, n)) }
func (w *chunkWriter) str(s string) {
	w.u16(uint16(len(s)))
	w.WriteString(s)
}

type rawChunk struct {
	typ  uint16
	body []byte
}

type frameSpec struct {
	duration uint16
	chunks   []rawChunk
}

// docSpec assembles a synthetic .ase byte stream for the decoder to
// chew on.
type docSpec struct {
	width, height uint16
	depth         uint16
	ncolors       uint16
	transparent   uint8
	frames        []*frameSpec
}

func newDocSpec(w, h, depth uint16) *docSpec {
	return &docSpec{width: w, height: h, depth: depth, ncolors: 4}
}

func (d *docSpec) frame(duration uint16) *frameSpec {
	f := &frameSpec{duration: duration}
	d.frames = append(d.frames, f)
	return f
}

func (f *frameSpec) chunk(typ uint16, body []byte) *frameSpec {
	f.chunks = append(f.chunks, rawChunk{typ: typ, body: body})
	return f
}

func (d *docSpec) bytes() []byte {
	var out bytes.Buffer
	w := &chunkWriter{}

	w.u32(0) // file size, unused by the decoder
	w.u16(fileMagic)
	w.u16(uint16(len(d.frames)))
	w.u16(d.width)
	w.u16(d.height)
	w.u16(d.depth)
	w.u32(0)    // flags
	w.zeros(10) // speed + reserved
	w.u8(d.transparent)
	w.zeros(3)
	w.u16(d.ncolors)
	w.u8(1) // pixel width
	w.u8(1) // pixel height
	w.i16(0)
	w.i16(0)
	w.u16(0)
	w.u16(0)
	w.zeros(84)
	out.Write(w.Bytes())

	for _, f := range d.frames {
		fw := &chunkWriter{}
		fw.u32(0) // frame size, unused by the decoder
		fw.u16(frameMagic)
		fw.u16(uint16(len(f.chunks)))
		fw.u16(f.duration)
		fw.zeros(2)
		fw.u32(0) // new chunk count, not needed below the sentinel
		out.Write(fw.Bytes())

		for _, c := range f.chunks {
			cw := &chunkWriter{}
			cw.u32(uint32(6 + len(c.body)))
			cw.u16(c.typ)
			cw.Write(c.body)
			out.Write(cw.Bytes())
		}
	}
	return out.Bytes()
}

func layerChunk(name string, flags uint16) []byte {
	w := &chunkWriter{}
	w.u16(flags)
	w.u16(0) // normal layer
	w.u16(0) // child level
	w.u16(0) // default width
	w.u16(0) // default height
	w.u16(0) // blend normal
	w.u8(255)
	w.zeros(3)
	w.str(name)
	return w.Bytes()
}

func rawCelChunk(layer uint16, x, y int16, w, h uint16, pixels []byte) []byte {
	cw := &chunkWriter{}
	cw.u16(layer)
	cw.i16(x)
	cw.i16(y)
	cw.u8(255)
	cw.u16(uint16(CEL_RAW))
	cw.zeros(7)
	cw.u16(w)
	cw.u16(h)
	cw.Write(pixels)
	return cw.Bytes()
}

func compressedCelChunk(layer uint16, w, h uint16, raw []byte) []byte {
	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	zw.Write(raw)
	zw.Close()

	cw := &chunkWriter{}
	cw.u16(layer)
	cw.i16(0)
	cw.i16(0)
	cw.u8(255)
	cw.u16(uint16(CEL_COMPRESSED_IMAGE))
	cw.zeros(7)
	cw.u16(w)
	cw.u16(h)
	cw.Write(z.Bytes())
	return cw.Bytes()
}

func userDataChunk(text string) []byte {
	w := &chunkWriter{}
	w.u32(USER_DATA_FLAG_TEXT)
	w.str(text)
	return w.Bytes()
}

func tagsChunk(names ...string) []byte {
	w := &chunkWriter{}
	w.u16(uint16(len(names)))
	w.zeros(8)
	for i, name := range names {
		w.u16(uint16(i))     // from
		w.u16(uint16(i + 1)) // to
		w.u8(uint8(TAG_FORWARD))
		w.zeros(8)
		w.Write([]byte{0x10, 0x20, 0x30})
		w.u8(0)
		w.str(name)
	}
	return w.Bytes()
}

func TestDecodeMinimalDocument(t *testing.T) {
	pixels := bytes.Repeat([]byte{0x11, 0x22, 0x33, 0xFF}, 4)
	spec := newDocSpec(2, 2, 32)
	spec.frame(100).
		chunk(uint16(CHUNK_LAYER), layerChunk("Body", uint16(LAYER_FLAG_VISIBLE))).
		chunk(uint16(CHUNK_CEL), rawCelChunk(0, 0, 0, 2, 2, pixels))

	doc, err := Decode(bytes.NewReader(spec.bytes()))
	if err != nil {
		t.Fatalf("failed to decode document: %s", err)
	}

	ttesting.AssertEqualInt(t, "one layer decoded", len(doc.Layers), 1)
	ttesting.AssertEqualStr(t, "layer name", doc.Layers[0].Name, "Body")
	ttesting.AssertEqualInt(t, "one frame decoded", len(doc.Frames), 1)
	ttesting.AssertEqualInt(t, "frame duration", int(doc.Frames[0].Duration), 100)
	ttesting.AssertEqualInt(t, "one cel in frame", len(doc.Frames[0].Cels), 1)

	cel := doc.Frames[0].Cels[0]
	img, ok := cel.Data.(ImageCel)
	if !ok {
		t.Fatalf("cel payload is %T; want ImageCel", cel.Data)
	}
	ttesting.AssertEqualInt(t, "pixel buffer size", len(img.Pixels), 16)
	if !cel.UserData.Empty() {
		t.Errorf("cel user data not empty: %+v", cel.UserData)
	}
	if cel.Extra != (CelExtra{}) {
		t.Errorf("cel extra not zeroed: %+v", cel.Extra)
	}
	for i, name := range doc.Palette.Names {
		if name != "" {
			t.Errorf("palette entry %d has name %q; want unnamed", i, name)
		}
	}
	ttesting.AssertEqualInt(t, "palette sized from header hint", len(doc.Palette.Colors), 4)
}

func TestDecodeDeterministic(t *testing.T) {
	spec := newDocSpec(2, 2, 32)
	spec.frame(50).
		chunk(uint16(CHUNK_LAYER), layerChunk("A", uint16(LAYER_FLAG_VISIBLE))).
		chunk(uint16(CHUNK_CEL), rawCelChunk(0, 1, -1, 2, 2, make([]byte, 16))).
		chunk(uint16(CHUNK_TAGS), tagsChunk("walk"))
	data := spec.bytes()

	first, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("first decode failed: %s", err)
	}
	second, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("second decode failed: %s", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("two decodes of the same bytes differ:\n%+v\n%+v", first, second)
	}
}

func TestBadFileMagic(t *testing.T) {
	data := newDocSpec(2, 2, 32).bytes()
	data[4] = 0x00 // corrupt the magic
	if _, err := Decode(bytes.NewReader(data)); !errors.Is(err, ErrInvalidFile) {
		t.Errorf("got %v; want ErrInvalidFile", err)
	}
}

func TestBadFrameMagic(t *testing.T) {
	spec := newDocSpec(2, 2, 32)
	spec.frame(100)
	data := spec.bytes()
	data[128+4] = 0x00 // corrupt the frame magic
	if _, err := Decode(bytes.NewReader(data)); !errors.Is(err, ErrInvalidFrameHeader) {
		t.Errorf("got %v; want ErrInvalidFrameHeader", err)
	}
}

func TestTruncatedHeader(t *testing.T) {
	data := newDocSpec(2, 2, 32).bytes()
	if _, err := Decode(bytes.NewReader(data[:100])); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("got %v; want ErrUnexpectedEOF", err)
	}
}

// TestChunkBoundarySeek checks the self-healing invariant: after any
// chunk, including unknown types and decoders that under-read their
// body, the cursor must land exactly on the declared chunk boundary so
// the next chunk still decodes.
func TestChunkBoundarySeek(t *testing.T) {
	// A user data chunk whose body carries trailing bytes the decoder
	// does not understand (newer revisions append fields).
	underRead := append(userDataChunk("note"), 0xDE, 0xAD, 0xBE, 0xEF)

	spec := newDocSpec(2, 2, 32)
	spec.frame(100).
		chunk(0x9999, []byte{1, 2, 3, 4, 5}). // unknown chunk type
		chunk(uint16(CHUNK_LAYER), layerChunk("A", uint16(LAYER_FLAG_VISIBLE))).
		chunk(uint16(CHUNK_USER_DATA), underRead).
		chunk(uint16(CHUNK_LAYER), layerChunk("B", uint16(LAYER_FLAG_VISIBLE)))

	doc, err := Decode(bytes.NewReader(spec.bytes()))
	if err != nil {
		t.Fatalf("failed to decode document: %s", err)
	}
	ttesting.AssertEqualInt(t, "both layers decoded", len(doc.Layers), 2)
	ttesting.AssertEqualStr(t, "first layer annotated", doc.Layers[0].UserData.Text, "note")
	ttesting.AssertEqualStr(t, "second layer name", doc.Layers[1].Name, "B")
}

func TestOrphanUserDataSurvives(t *testing.T) {
	spec := newDocSpec(2, 2, 32)
	spec.frame(100).
		chunk(uint16(CHUNK_USER_DATA), userDataChunk("nobody wants me")).
		chunk(uint16(CHUNK_LAYER), layerChunk("A", uint16(LAYER_FLAG_VISIBLE)))

	doc, err := Decode(bytes.NewReader(spec.bytes()))
	if err != nil {
		t.Fatalf("orphaned user data aborted the decode: %s", err)
	}
	ttesting.AssertEqualInt(t, "layer decoded after orphan", len(doc.Layers), 1)
	if !doc.Layers[0].UserData.Empty() {
		t.Errorf("orphan user data leaked onto the layer: %+v", doc.Layers[0].UserData)
	}
}

func TestTagUserDataDistribution(t *testing.T) {
	spec := newDocSpec(2, 2, 32)
	spec.frame(100).
		chunk(uint16(CHUNK_TAGS), tagsChunk("idle", "walk", "jump")).
		chunk(uint16(CHUNK_USER_DATA), userDataChunk("first")).
		chunk(uint16(CHUNK_USER_DATA), userDataChunk("second")).
		chunk(uint16(CHUNK_USER_DATA), userDataChunk("third")).
		chunk(uint16(CHUNK_USER_DATA), userDataChunk("orphan"))

	doc, err := Decode(bytes.NewReader(spec.bytes()))
	if err != nil {
		t.Fatalf("failed to decode document: %s", err)
	}
	ttesting.AssertEqualInt(t, "three tags decoded", len(doc.Tags), 3)
	ttesting.AssertEqualStr(t, "tags[0] annotation", doc.Tags[0].UserData.Text, "first")
	ttesting.AssertEqualStr(t, "tags[1] annotation", doc.Tags[1].UserData.Text, "second")
	ttesting.AssertEqualStr(t, "tags[2] annotation", doc.Tags[2].UserData.Text, "third")
	for i := range doc.Tags {
		if doc.Tags[i].UserData.Text == "orphan" {
			t.Errorf("fourth user data chunk attached to tags[%d]; want dropped", i)
		}
	}
}

func TestOrphanCelExtra(t *testing.T) {
	extra := &chunkWriter{}
	extra.u32(1)
	extra.u32(0x10000) // x = 1.0
	extra.u32(0)
	extra.u32(0x20000) // w = 2.0
	extra.u32(0x20000)

	spec := newDocSpec(2, 2, 32)
	spec.frame(100).
		chunk(uint16(CHUNK_CEL_EXTRA), extra.Bytes()).
		chunk(uint16(CHUNK_LAYER), layerChunk("A", uint16(LAYER_FLAG_VISIBLE)))

	doc, err := Decode(bytes.NewReader(spec.bytes()))
	if err != nil {
		t.Fatalf("orphaned cel extra aborted the decode: %s", err)
	}
	ttesting.AssertEqualInt(t, "layer decoded after orphan", len(doc.Layers), 1)
}

func TestCelExtraAttaches(t *testing.T) {
	extra := &chunkWriter{}
	extra.u32(1)
	extra.u32(0x18000) // x = 1.5
	extra.u32(0)
	extra.u32(0x20000)
	extra.u32(0x20000)

	spec := newDocSpec(2, 2, 32)
	spec.frame(100).
		chunk(uint16(CHUNK_LAYER), layerChunk("A", uint16(LAYER_FLAG_VISIBLE))).
		chunk(uint16(CHUNK_CEL), rawCelChunk(0, 0, 0, 2, 2, make([]byte, 16))).
		chunk(uint16(CHUNK_CEL_EXTRA), extra.Bytes())

	doc, err := Decode(bytes.NewReader(spec.bytes()))
	if err != nil {
		t.Fatalf("failed to decode document: %s", err)
	}
	got := doc.Frames[0].Cels[0].Extra
	if got.Flags != 1 || got.X.Float64() != 1.5 {
		t.Errorf("cel extra = %+v; want flags 1, x 1.5", got)
	}
}

func TestCompressedCel(t *testing.T) {
	raw := bytes.Repeat([]byte{0xAA, 0xBB, 0xCC, 0xDD}, 4)
	spec := newDocSpec(2, 2, 32)
	spec.frame(100).
		chunk(uint16(CHUNK_LAYER), layerChunk("A", uint16(LAYER_FLAG_VISIBLE))).
		chunk(uint16(CHUNK_CEL), compressedCelChunk(0, 2, 2, raw))

	doc, err := Decode(bytes.NewReader(spec.bytes()))
	if err != nil {
		t.Fatalf("failed to decode document: %s", err)
	}
	img, ok := doc.Frames[0].Cels[0].Data.(ImageCel)
	if !ok {
		t.Fatalf("cel payload is %T; want ImageCel", doc.Frames[0].Cels[0].Data)
	}
	if !bytes.Equal(img.Pixels, raw) {
		t.Errorf("inflated pixels = %x; want %x", img.Pixels, raw)
	}
}

// TestCompressedCelShortStream declares a 2x2 RGBA cel (16 bytes) but
// compresses only 8 bytes. The decode must fail rather than zero-pad.
func TestCompressedCelShortStream(t *testing.T) {
	short := make([]byte, 8)
	spec := newDocSpec(2, 2, 32)
	spec.frame(100).
		chunk(uint16(CHUNK_LAYER), layerChunk("A", uint16(LAYER_FLAG_VISIBLE))).
		chunk(uint16(CHUNK_CEL), compressedCelChunk(0, 2, 2, short))

	if _, err := Decode(bytes.NewReader(spec.bytes())); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("got %v; want ErrUnexpectedEOF", err)
	}
}

func TestLinkedCel(t *testing.T) {
	pixels := bytes.Repeat([]byte{0x01, 0x02, 0x03, 0x04}, 4)

	link := &chunkWriter{}
	link.u16(0) // layer
	link.i16(0)
	link.i16(0)
	link.u8(255)
	link.u16(uint16(CEL_LINKED))
	link.zeros(7)
	link.u16(0) // reuse frame 0

	spec := newDocSpec(2, 2, 32)
	spec.frame(100).
		chunk(uint16(CHUNK_LAYER), layerChunk("A", uint16(LAYER_FLAG_VISIBLE))).
		chunk(uint16(CHUNK_CEL), rawCelChunk(0, 0, 0, 2, 2, pixels))
	spec.frame(100).
		chunk(uint16(CHUNK_CEL), link.Bytes())

	doc, err := Decode(bytes.NewReader(spec.bytes()))
	if err != nil {
		t.Fatalf("failed to decode document: %s", err)
	}
	linked, ok := doc.Frames[1].Cels[0].Data.(LinkedCel)
	if !ok {
		t.Fatalf("cel payload is %T; want LinkedCel", doc.Frames[1].Cels[0].Data)
	}
	ttesting.AssertEqualInt(t, "linked frame index", int(linked.Frame), 0)

	img, err := doc.CelImage(1, &doc.Frames[1].Cels[0])
	if err != nil {
		t.Fatalf("failed to resolve linked cel image: %s", err)
	}
	if img == nil {
		t.Fatalf("linked cel resolved to no image")
	}
	r, g, b, _ := img.At(0, 0).RGBA()
	if uint8(r>>8) != 0x01 || uint8(g>>8) != 0x02 || uint8(b>>8) != 0x03 {
		t.Errorf("linked cel pixel = %v; want the linked frame's pixels", img.At(0, 0))
	}
}

func TestSliceChunk(t *testing.T) {
	w := &chunkWriter{}
	w.u32(1)                                               // one key
	w.u32(uint32(SLICE_FLAG_NINE_PATCH | SLICE_FLAG_PIVOT)) // both optionals
	w.u32(0)
	w.str("button")
	w.u32(2) // from frame 2
	binary.Write(w, binary.LittleEndian, int32(4))
	binary.Write(w, binary.LittleEndian, int32(5))
	w.u32(16)
	w.u32(8)
	binary.Write(w, binary.LittleEndian, int32(2)) // center rect
	binary.Write(w, binary.LittleEndian, int32(2))
	w.u32(12)
	w.u32(4)
	binary.Write(w, binary.LittleEndian, int32(1)) // pivot
	binary.Write(w, binary.LittleEndian, int32(1))

	spec := newDocSpec(2, 2, 32)
	spec.frame(100).chunk(uint16(CHUNK_SLICES), w.Bytes())

	doc, err := Decode(bytes.NewReader(spec.bytes()))
	if err != nil {
		t.Fatalf("failed to decode document: %s", err)
	}
	ttesting.AssertEqualInt(t, "one slice decoded", len(doc.Slices), 1)
	s := doc.Slices[0]
	ttesting.AssertEqualStr(t, "slice name", s.Name, "button")
	ttesting.AssertEqualInt(t, "one key decoded", len(s.Keys), 1)
	k := s.Keys[0]
	if k.Frame != 2 || k.X != 4 || k.Y != 5 || k.Width != 16 || k.Height != 8 {
		t.Errorf("slice key placement = %+v", k)
	}
	if k.CenterWidth != 12 || k.CenterHeight != 4 {
		t.Errorf("nine-patch center = %+v", k)
	}
	if k.PivotX != 1 || k.PivotY != 1 {
		t.Errorf("pivot = %+v", k)
	}
}

func TestColorProfileChunk(t *testing.T) {
	w := &chunkWriter{}
	w.u16(uint16(COLOR_PROFILE_SRGB))
	w.u16(1)
	w.u32(0x10000) // gamma 1.0
	w.zeros(8)

	spec := newDocSpec(2, 2, 32)
	spec.frame(100).chunk(uint16(CHUNK_COLOR_PROFILE), w.Bytes())

	doc, err := Decode(bytes.NewReader(spec.bytes()))
	if err != nil {
		t.Fatalf("failed to decode document: %s", err)
	}
	if doc.ColorProfile.Type != COLOR_PROFILE_SRGB {
		t.Errorf("profile type = %v; want sRGB", doc.ColorProfile.Type)
	}
	if doc.ColorProfile.Gamma.Float64() != 1.0 {
		t.Errorf("gamma = %v; want 1.0", doc.ColorProfile.Gamma.Float64())
	}
}

func TestUserDataAfterEachEntity(t *testing.T) {
	spec := newDocSpec(2, 2, 32)
	spec.frame(100).
		chunk(uint16(CHUNK_LAYER), layerChunk("A", uint16(LAYER_FLAG_VISIBLE))).
		chunk(uint16(CHUNK_USER_DATA), userDataChunk("layer note")).
		chunk(uint16(CHUNK_CEL), rawCelChunk(0, 0, 0, 2, 2, make([]byte, 16))).
		chunk(uint16(CHUNK_USER_DATA), userDataChunk("cel note"))

	doc, err := Decode(bytes.NewReader(spec.bytes()))
	if err != nil {
		t.Fatalf("failed to decode document: %s", err)
	}
	ttesting.AssertEqualStr(t, "layer annotation", doc.Layers[0].UserData.Text, "layer note")
	ttesting.AssertEqualStr(t, "cel annotation", doc.Frames[0].Cels[0].UserData.Text, "cel note")
}
