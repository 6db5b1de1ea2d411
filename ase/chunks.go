package ase

// Decoders for the individual chunk bodies. Each decoder is free to
// under-read relative to the declared chunk length (trailing fields
// added by newer format revisions are simply left for the chunk loop's
// boundary seek), but never past it.

import (
	"fmt"
	"image/color"
	"io"

	"github.com/golang/glog"
	"github.com/klauspost/compress/zlib"
)

func (d *decoder) decodeLayer() error {
	r := d.r
	var l Layer

	flags, err := r.u16()
	if err != nil {
		return err
	}
	l.Flags = LayerFlags(flags)
	typ, err := r.u16()
	if err != nil {
		return err
	}
	l.Type = LayerType(typ)
	if l.ChildLevel, err = r.u16(); err != nil {
		return err
	}
	if err = r.skip(4); err != nil { // default width+height, ignored
		return err
	}
	blend, err := r.u16()
	if err != nil {
		return err
	}
	l.BlendMode = BlendMode(blend)
	if l.Opacity, err = r.u8(); err != nil {
		return err
	}
	if err = r.skip(3); err != nil {
		return err
	}
	if l.Name, err = r.string(); err != nil {
		return err
	}

	glog.V(2).Infof("ase: layer %q (%v, child level %d, blend %v)", l.Name, l.Type, l.ChildLevel, l.BlendMode)

	d.doc.Layers = append(d.doc.Layers, l)
	d.lastUserData = userDataRef{kind: udLayer, index: len(d.doc.Layers) - 1}
	return nil
}

func (d *decoder) decodeCel(frame int, end int64) error {
	r := d.r
	var c Cel

	layer, err := r.u16()
	if err != nil {
		return err
	}
	c.Layer = layer
	if c.X, err = r.i16(); err != nil {
		return err
	}
	if c.Y, err = r.i16(); err != nil {
		return err
	}
	if c.Opacity, err = r.u8(); err != nil {
		return err
	}
	typ, err := r.u16()
	if err != nil {
		return err
	}
	if err = r.skip(7); err != nil { // z-index + reserved
		return err
	}

	switch CelType(typ) {
	case CEL_RAW:
		img, err := d.decodeImageCel(end, false)
		if err != nil {
			return err
		}
		c.Data = img
	case CEL_LINKED:
		f, err := r.u16()
		if err != nil {
			return err
		}
		c.Data = LinkedCel{Frame: f}
	case CEL_COMPRESSED_IMAGE:
		img, err := d.decodeImageCel(end, true)
		if err != nil {
			return err
		}
		c.Data = img
	case CEL_COMPRESSED_TILEMAP:
		w, err := r.u16()
		if err != nil {
			return err
		}
		h, err := r.u16()
		if err != nil {
			return err
		}
		// Tile data is not decoded; the chunk boundary seek skips it.
		glog.V(1).Infof("ase: tilemap cel %dx%d on layer %d left undecoded", w, h, layer)
		c.Data = TilemapCel{Width: w, Height: h}
	default:
		glog.Warningf("ase: dropping cel with unknown cel type %d on layer %d", typ, layer)
		return nil
	}

	cels := &d.doc.Frames[frame].Cels
	*cels = append(*cels, c)
	d.lastCel = celRef{frame: frame, index: len(*cels) - 1, ok: true}
	d.lastUserData = userDataRef{kind: udCel, frame: frame, index: len(*cels) - 1}
	return nil
}

// decodeImageCel reads a cel's width and height and then exactly
// width*height*bytesPerPixel pixel bytes, either verbatim or through a
// zlib inflate stream bounded by the chunk end. A compressed stream that
// produces fewer bytes than declared is an ErrUnexpectedEOF, never a
// zero-padded buffer.
//
// No upper bound is enforced on width*height here; consumers guard
// against hostile dimensions before allocating textures.
func (d *decoder) decodeImageCel(end int64, compressed bool) (ImageCel, error) {
	r := d.r

	w, err := r.u16()
	if err != nil {
		return ImageCel{}, err
	}
	h, err := r.u16()
	if err != nil {
		return ImageCel{}, err
	}
	size := int(w) * int(h) * d.doc.ColorDepth.BytesPerPixel()

	if !compressed {
		px, err := r.bytes(size)
		if err != nil {
			return ImageCel{}, err
		}
		return ImageCel{Width: w, Height: h, Pixels: px}, nil
	}

	pos, err := r.pos()
	if err != nil {
		return ImageCel{}, err
	}
	zr, err := zlib.NewReader(io.LimitReader(r.r, end-pos))
	if err != nil {
		return ImageCel{}, fmt.Errorf("%w: bad zlib stream: %s", ErrUnexpectedEOF, err)
	}
	defer zr.Close()

	px := make([]byte, size)
	if _, err := io.ReadFull(zr, px); err != nil {
		return ImageCel{}, fmt.Errorf("%w: compressed cel yielded short output: %s", ErrUnexpectedEOF, err)
	}
	return ImageCel{Width: w, Height: h, Pixels: px}, nil
}

func (d *decoder) decodeCelExtra() error {
	r := d.r
	var e CelExtra
	var err error

	if e.Flags, err = r.u32(); err != nil {
		return err
	}
	if e.X, err = r.fixed(); err != nil {
		return err
	}
	if e.Y, err = r.fixed(); err != nil {
		return err
	}
	if e.Width, err = r.fixed(); err != nil {
		return err
	}
	if e.Height, err = r.fixed(); err != nil {
		return err
	}

	if !d.lastCel.ok {
		glog.Warningf("ase: orphaned cel extra chunk (no preceding cel); dropping")
	} else {
		d.doc.Frames[d.lastCel.frame].Cels[d.lastCel.index].Extra = e
	}
	d.lastCel = celRef{}
	return nil
}

func (d *decoder) decodeColorProfile() error {
	r := d.r
	var p ColorProfile

	typ, err := r.u16()
	if err != nil {
		return err
	}
	p.Type = ColorProfileType(typ)
	if p.Flags, err = r.u16(); err != nil {
		return err
	}
	if p.Gamma, err = r.fixed(); err != nil {
		return err
	}
	if err = r.skip(8); err != nil {
		return err
	}
	if p.Type == COLOR_PROFILE_ICC {
		if p.ICC, err = r.prefixed(32, 1); err != nil {
			return err
		}
	}

	d.doc.ColorProfile = p
	return nil
}

func (d *decoder) decodeTags() error {
	r := d.r

	count, err := r.u16()
	if err != nil {
		return err
	}
	if err = r.skip(8); err != nil {
		return err
	}

	start := len(d.doc.Tags)
	for i := 0; i < int(count); i++ {
		var t Tag
		if t.From, err = r.u16(); err != nil {
			return err
		}
		if t.To, err = r.u16(); err != nil {
			return err
		}
		dir, err := r.u8()
		if err != nil {
			return err
		}
		t.Direction = TagDirection(dir)
		if err = r.skip(8); err != nil { // repeat count + reserved
			return err
		}
		rgb, err := r.bytes(3)
		if err != nil {
			return err
		}
		copy(t.Color[:], rgb)
		if err = r.skip(1); err != nil { // extra byte, always zero
			return err
		}
		if t.Name, err = r.string(); err != nil {
			return err
		}
		d.doc.Tags = append(d.doc.Tags, t)
	}

	// User data chunks that follow now annotate the just-decoded tags in
	// order, one chunk per tag.
	d.tagCursor = start
	d.tagCursorEnd = len(d.doc.Tags)
	d.tagActive = d.tagCursorEnd > start
	return nil
}

func (d *decoder) decodeUserData(frame int) error {
	r := d.r
	var u UserData

	flags, err := r.u32()
	if err != nil {
		return err
	}
	if flags&USER_DATA_FLAG_TEXT != 0 {
		if u.Text, err = r.string(); err != nil {
			return err
		}
	}
	if flags&USER_DATA_FLAG_COLOR != 0 {
		rgba, err := r.bytes(4)
		if err != nil {
			return err
		}
		u.Color = color.RGBA{R: rgba[0], G: rgba[1], B: rgba[2], A: rgba[3]}
		u.HasColor = true
	}

	d.applyUserData(u)
	return nil
}

func (d *decoder) decodeSlice() error {
	r := d.r
	var s Slice

	count, err := r.u32()
	if err != nil {
		return err
	}
	flags, err := r.u32()
	if err != nil {
		return err
	}
	s.Flags = SliceFlags(flags)
	if err = r.skip(4); err != nil {
		return err
	}
	if s.Name, err = r.string(); err != nil {
		return err
	}

	s.Keys = make([]SliceKey, 0, count)
	for i := uint32(0); i < count; i++ {
		var k SliceKey
		if k.Frame, err = r.u32(); err != nil {
			return err
		}
		if k.X, err = r.i32(); err != nil {
			return err
		}
		if k.Y, err = r.i32(); err != nil {
			return err
		}
		if k.Width, err = r.u32(); err != nil {
			return err
		}
		if k.Height, err = r.u32(); err != nil {
			return err
		}
		if s.Flags&SLICE_FLAG_NINE_PATCH != 0 {
			if k.CenterX, err = r.i32(); err != nil {
				return err
			}
			if k.CenterY, err = r.i32(); err != nil {
				return err
			}
			if k.CenterWidth, err = r.u32(); err != nil {
				return err
			}
			if k.CenterHeight, err = r.u32(); err != nil {
				return err
			}
		}
		if s.Flags&SLICE_FLAG_PIVOT != 0 {
			if k.PivotX, err = r.i32(); err != nil {
				return err
			}
			if k.PivotY, err = r.i32(); err != nil {
				return err
			}
		}
		s.Keys = append(s.Keys, k)
	}

	d.doc.Slices = append(d.doc.Slices, s)
	d.lastUserData = userDataRef{kind: udSlice, index: len(d.doc.Slices) - 1}
	return nil
}
