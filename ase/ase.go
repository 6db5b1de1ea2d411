package ase

// This file contains the document model and the top level decoder: the
// fixed 128-byte header, the per-frame headers and the chunk loop with
// its cross-chunk attachment state.

import (
	"fmt"
	"image/color"
	"io"

	"github.com/golang/glog"
)

const (
	fileMagic  = 0xA5E0
	frameMagic = 0xF1FA

	// An old-style chunk count of 0xFFFF means the real count is in the
	// frame header's 32-bit field.
	chunkCountSentinel = 0xFFFF
)

// Document is the fully decoded contents of one .ase file.
//
// It is constructed once by Decode and not mutated afterwards. All
// nested buffers are owned exclusively by the Document; Release drops
// them as a unit.
type Document struct {
	Width, Height uint16
	ColorDepth    ColorDepth
	Flags         uint32

	// Pixel aspect ratio. Both forced to 1 if either reads as 0.
	PixelWidth, PixelHeight uint8

	GridX, GridY          int16
	GridWidth, GridHeight uint16

	Palette      Palette
	ColorProfile ColorProfile
	Layers       []Layer
	Slices       []Slice
	Tags         []Tag
	Frames       []Frame
}

// Release drops every buffer the document owns: palette arrays, layer,
// slice and tag lists, per-frame cel lists with their pixel buffers, and
// the ICC payload. The document must not be used afterwards.
func (d *Document) Release() {
	d.Palette.Colors = nil
	d.Palette.Names = nil
	d.ColorProfile.ICC = nil
	d.Layers = nil
	d.Slices = nil
	d.Tags = nil
	d.Frames = nil
}

// Layer is one entry of the document's ordered layer list. Cels address
// layers by their ordinal position in that list, not by name.
type Layer struct {
	Flags      LayerFlags
	Type       LayerType
	ChildLevel uint16 // depth in the implicit tree formed by sibling order
	BlendMode  BlendMode
	Opacity    uint8
	Name       string
	UserData   UserData
}

// Visible reports whether the layer's visible flag is set.
func (l *Layer) Visible() bool {
	return l.Flags&LAYER_FLAG_VISIBLE != 0
}

// Frame is one animation frame: its display duration and the cels that
// were actually present in its chunk stream. The cel list is sparse, not
// one-per-layer.
type Frame struct {
	Duration uint16 // milliseconds
	Cels     []Cel
}

// Cel is one layer's contribution to one frame.
type Cel struct {
	Layer    uint16 // ordinal index into Document.Layers
	X, Y     int16
	Opacity  uint8
	Data     CelData
	Extra    CelExtra
	UserData UserData
}

// CelData is the payload variant of a cel: ImageCel for raw and
// zlib-compressed pixels (both decode to the same representation),
// LinkedCel for a reference to another frame, TilemapCel for the
// unsupported tilemap payload.
type CelData interface {
	celData()
}

// ImageCel holds a tightly packed row-major pixel buffer of exactly
// Width*Height*BytesPerPixel bytes.
type ImageCel struct {
	Width, Height uint16
	Pixels        []byte
}

// LinkedCel reuses the image of the cel on the same layer in another
// frame.
type LinkedCel struct {
	Frame uint16
}

// TilemapCel records the dimensions of a tilemap cel. Tile data is not
// decoded.
type TilemapCel struct {
	Width, Height uint16
}

func (ImageCel) celData()   {}
func (LinkedCel) celData()  {}
func (TilemapCel) celData() {}

// CelExtra carries precise sub-pixel bounds for a cel. All fields stay
// zero unless a cel extra chunk was present.
type CelExtra struct {
	Flags         uint32
	X, Y          Fixed
	Width, Height Fixed
}

// Tag is a named inclusive frame range representing one animation clip.
type Tag struct {
	From, To  uint16 // inclusive
	Direction TagDirection
	Color     [3]uint8
	Name      string
	UserData  UserData
}

// Slice is a named region with per-frame placement keys.
type Slice struct {
	Flags    SliceFlags
	Name     string
	Keys     []SliceKey
	UserData UserData
}

// SliceKey is the placement of a slice from a given frame onwards. The
// center rectangle is meaningful only when the slice has the nine-patch
// flag, the pivot only with the pivot flag.
type SliceKey struct {
	Frame         uint32
	X, Y          int32
	Width, Height uint32

	CenterX, CenterY          int32
	CenterWidth, CenterHeight uint32

	PivotX, PivotY int32
}

// UserData is a free-form annotation: optional text and an optional
// color. It attaches to whichever layer, cel, slice or tag was decoded
// most recently before the user data chunk.
type UserData struct {
	Text     string
	Color    color.RGBA
	HasColor bool
}

// Empty reports whether neither text nor color is present.
func (u UserData) Empty() bool {
	return u.Text == "" && !u.HasColor
}

// ColorProfile describes the document's declared color space. ICC holds
// the raw profile payload only when Type is COLOR_PROFILE_ICC.
type ColorProfile struct {
	Type  ColorProfileType
	Flags uint16
	Gamma Fixed
	ICC   []byte
}

// userDataKind tags which collection the pending user data target lives
// in. Targets are held as indices rather than pointers because the
// owning slices may reallocate while the decode is still appending.
type userDataKind int

const (
	udNone userDataKind = iota
	udLayer
	udCel
	udSlice
	udTag
)

type userDataRef struct {
	kind  userDataKind
	frame int // cel targets only
	index int
}

type celRef struct {
	frame, index int
	ok           bool
}

type decoder struct {
	r   *reader
	doc *Document

	// Once a new-format palette chunk is seen, old-format palette chunks
	// for the same document are ignored.
	newPaletteSeen bool

	lastCel      celRef
	lastUserData userDataRef

	// Tag annotation cursor. Active only immediately after a tags chunk,
	// walking the just-decoded tag list in order.
	tagCursor    int
	tagCursorEnd int
	tagActive    bool
}

// Decode reads an .ase document from a seekable source positioned at the
// start of the file.
//
// Decode either returns a fully constructed Document or an error; a
// partially decoded document is never exposed. The source is only read
// and seeked within, never closed.
func Decode(rs io.ReadSeeker) (*Document, error) {
	d := &decoder{r: newReader(rs)}
	if err := d.decode(); err != nil {
		return nil, err
	}
	return d.doc, nil
}

func (d *decoder) decode() error {
	r := d.r

	if err := r.skip(4); err != nil { // file size, unused
		return err
	}
	magic, err := r.u16()
	if err != nil {
		return err
	}
	if magic != fileMagic {
		return fmt.Errorf("%w: magic %#04x, want %#04x", ErrInvalidFile, magic, fileMagic)
	}

	frames, err := r.u16()
	if err != nil {
		return err
	}
	doc := &Document{}
	if doc.Width, err = r.u16(); err != nil {
		return err
	}
	if doc.Height, err = r.u16(); err != nil {
		return err
	}
	depth, err := r.u16()
	if err != nil {
		return err
	}
	doc.ColorDepth = ColorDepth(depth)
	if doc.Flags, err = r.u32(); err != nil {
		return err
	}
	if err = r.skip(10); err != nil { // speed (deprecated) + two reserved dwords
		return err
	}
	transparent, err := r.u8()
	if err != nil {
		return err
	}
	if err = r.skip(3); err != nil {
		return err
	}
	ncolors, err := r.u16()
	if err != nil {
		return err
	}
	if ncolors == 0 {
		ncolors = 256
	}
	if doc.PixelWidth, err = r.u8(); err != nil {
		return err
	}
	if doc.PixelHeight, err = r.u8(); err != nil {
		return err
	}
	if doc.PixelWidth == 0 || doc.PixelHeight == 0 {
		doc.PixelWidth, doc.PixelHeight = 1, 1
	}
	if doc.GridX, err = r.i16(); err != nil {
		return err
	}
	if doc.GridY, err = r.i16(); err != nil {
		return err
	}
	if doc.GridWidth, err = r.u16(); err != nil {
		return err
	}
	if doc.GridHeight, err = r.u16(); err != nil {
		return err
	}
	if err = r.skip(84); err != nil {
		return err
	}

	doc.Palette = newPalette(int(ncolors))
	doc.Palette.TransparentIndex = transparent
	doc.Frames = make([]Frame, frames)

	glog.V(1).Infof("ase: %dx%d %v, %d frames, %d palette entries", doc.Width, doc.Height, doc.ColorDepth, frames, ncolors)

	d.doc = doc
	for i := range doc.Frames {
		if err := d.decodeFrame(i); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return nil
}

func (d *decoder) decodeFrame(frame int) error {
	r := d.r

	if err := r.skip(4); err != nil { // frame size, unused
		return err
	}
	magic, err := r.u16()
	if err != nil {
		return err
	}
	if magic != frameMagic {
		return fmt.Errorf("%w: magic %#04x, want %#04x", ErrInvalidFrameHeader, magic, frameMagic)
	}

	oldCount, err := r.u16()
	if err != nil {
		return err
	}
	duration, err := r.u16()
	if err != nil {
		return err
	}
	if err = r.skip(2); err != nil {
		return err
	}
	newCount, err := r.u32()
	if err != nil {
		return err
	}

	count := uint32(oldCount)
	if oldCount == chunkCountSentinel && count < newCount {
		count = newCount
	}

	d.doc.Frames[frame].Duration = duration
	d.lastCel = celRef{}

	for c := uint32(0); c < count; c++ {
		start, err := r.pos()
		if err != nil {
			return err
		}
		size, err := r.u32()
		if err != nil {
			return err
		}
		typ, err := r.u16()
		if err != nil {
			return err
		}

		if err := d.dispatch(frame, ChunkType(typ), start+int64(size)); err != nil {
			return fmt.Errorf("chunk %d (%v): %w", c, ChunkType(typ), err)
		}

		// Land exactly on the declared chunk boundary no matter how many
		// bytes the dispatched decoder consumed. Unknown and partially
		// understood chunk bodies stay survivable because of this.
		if err := r.seekTo(start + int64(size)); err != nil {
			return err
		}
	}
	return nil
}

// dispatch decodes one chunk body. end is the absolute position of the
// chunk's declared end; decoders for chunks with trailing variable data
// use it to bound their reads.
func (d *decoder) dispatch(frame int, typ ChunkType, end int64) error {
	switch typ {
	case CHUNK_OLD_PALETTE_256, CHUNK_OLD_PALETTE_64:
		return d.decodeOldPalette()
	case CHUNK_LAYER:
		return d.decodeLayer()
	case CHUNK_CEL:
		return d.decodeCel(frame, end)
	case CHUNK_CEL_EXTRA:
		return d.decodeCelExtra()
	case CHUNK_COLOR_PROFILE:
		return d.decodeColorProfile()
	case CHUNK_TAGS:
		return d.decodeTags()
	case CHUNK_PALETTE:
		return d.decodeNewPalette()
	case CHUNK_USER_DATA:
		return d.decodeUserData(frame)
	case CHUNK_SLICES:
		return d.decodeSlice()
	default:
		glog.V(1).Infof("ase: skipping unsupported chunk type %v in frame %d", typ, frame)
		return nil
	}
}

// applyUserData distributes a decoded user data record: first to the
// pending attach target if there is one, else to the tag the annotation
// cursor points at, else it is dropped as orphaned.
func (d *decoder) applyUserData(u UserData) {
	if d.lastUserData.kind != udNone {
		ref := d.lastUserData
		d.lastUserData = userDataRef{}
		switch ref.kind {
		case udLayer:
			d.doc.Layers[ref.index].UserData = u
		case udCel:
			d.doc.Frames[ref.frame].Cels[ref.index].UserData = u
		case udSlice:
			d.doc.Slices[ref.index].UserData = u
		case udTag:
			d.doc.Tags[ref.index].UserData = u
		}
		return
	}

	if d.tagActive {
		d.doc.Tags[d.tagCursor].UserData = u
		d.tagCursor++
		if d.tagCursor >= d.tagCursorEnd {
			d.tagActive = false
		}
		return
	}

	glog.Warningf("ase: orphaned user data chunk (no attach target); dropping")
}
