package ase

// This file contains ase package's functions related to implementing
// image.Image decoding on top of the document model: per-cel pixel
// buffer conversion and a flattened per-frame composite. The format
// registration mirrors what the image/gif package offers.

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/golang/glog"
)

func init() {
	// Magic 0xA5E0 sits at offset 4, after the file size dword.
	image.RegisterFormat("ase", "????\xe0\xa5", DecodeImage, DecodeConfig)
}

// seeker returns r itself when it can seek, and otherwise buffers the
// whole source into memory. image.Decode hands us a bufio-wrapped
// reader, so the registered entry points cannot insist on a ReadSeeker.
func seeker(r io.Reader) (io.ReadSeeker, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, nil
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ase: could not buffer source: %s", err)
	}
	return bytes.NewReader(b), nil
}

// DecodeConfig returns the canvas dimensions and color model of the
// document without decoding any frames. The color model is always
// color.RGBAModel because flattened frames are produced as RGBA.
func DecodeConfig(r io.Reader) (image.Config, error) {
	rs, err := seeker(r)
	if err != nil {
		return image.Config{}, err
	}

	rd := newReader(rs)
	if err := rd.skip(4); err != nil {
		return image.Config{}, err
	}
	magic, err := rd.u16()
	if err != nil {
		return image.Config{}, err
	}
	if magic != fileMagic {
		return image.Config{}, fmt.Errorf("%w: magic %#04x, want %#04x", ErrInvalidFile, magic, fileMagic)
	}
	if err := rd.skip(2); err != nil { // frame count
		return image.Config{}, err
	}
	w, err := rd.u16()
	if err != nil {
		return image.Config{}, err
	}
	h, err := rd.u16()
	if err != nil {
		return image.Config{}, err
	}

	return image.Config{ColorModel: color.RGBAModel, Width: int(w), Height: int(h)}, nil
}

// DecodeImage decodes the whole document and returns the first frame,
// flattened.
func DecodeImage(r io.Reader) (image.Image, error) {
	rs, err := seeker(r)
	if err != nil {
		return nil, err
	}
	doc, err := Decode(rs)
	if err != nil {
		return nil, err
	}
	return doc.FrameImage(0)
}

// FrameImage flattens one frame into an RGBA image of canvas size.
//
// Cels are composited in layer order with plain source-over blending;
// non-normal blend modes fall back to normal. Layers hidden directly or
// through a hidden ancestor group contribute nothing.
func (d *Document) FrameImage(frame int) (*image.RGBA, error) {
	if frame < 0 || frame >= len(d.Frames) {
		return nil, fmt.Errorf("ase: frame %d out of range; document has %d", frame, len(d.Frames))
	}

	img := image.NewRGBA(image.Rect(0, 0, int(d.Width), int(d.Height)))
	for ordinal := range d.Layers {
		if !d.layerShown(ordinal) {
			continue
		}
		for i := range d.Frames[frame].Cels {
			cel := &d.Frames[frame].Cels[i]
			if int(cel.Layer) != ordinal {
				continue
			}
			if err := d.compositeCel(img, frame, cel); err != nil {
				return nil, err
			}
		}
	}
	return img, nil
}

// layerShown reports whether the layer and every ancestor group of it
// has the visible flag. The parent of a layer is the nearest preceding
// layer with a child level one less than its own.
func (d *Document) layerShown(ordinal int) bool {
	level := d.Layers[ordinal].ChildLevel
	for i := ordinal; i >= 0; i-- {
		l := &d.Layers[i]
		if i == ordinal || l.ChildLevel < level {
			if !l.Visible() {
				return false
			}
			if l.ChildLevel == 0 {
				break
			}
			level = l.ChildLevel
		}
	}
	return true
}

func (d *Document) compositeCel(dst *image.RGBA, frame int, cel *Cel) error {
	img, err := d.CelImage(frame, cel)
	if err != nil {
		return err
	}
	if img == nil {
		return nil
	}

	layer := &d.Layers[cel.Layer]
	if layer.BlendMode != BLEND_NORMAL {
		glog.V(2).Infof("ase: blend mode %v on layer %q not supported; using normal", layer.BlendMode, layer.Name)
	}
	opacity := uint32(layer.Opacity) * uint32(cel.Opacity) / 255

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			src := img.RGBAAt(x, y)
			a := uint32(src.A) * opacity / 255
			if a == 0 {
				continue
			}
			dx, dy := x+int(cel.X), y+int(cel.Y)
			if !(image.Point{dx, dy}).In(dst.Bounds()) {
				continue
			}
			old := dst.RGBAAt(dx, dy)
			inv := 255 - a
			dst.SetRGBA(dx, dy, color.RGBA{
				R: uint8((uint32(src.R)*a + uint32(old.R)*inv) / 255),
				G: uint8((uint32(src.G)*a + uint32(old.G)*inv) / 255),
				B: uint8((uint32(src.B)*a + uint32(old.B)*inv) / 255),
				A: uint8(a + uint32(old.A)*inv/255),
			})
		}
	}
	return nil
}

// CelImage converts one cel's pixel buffer into an RGBA image, following
// linked cels to the frame they reference. Tilemap cels and cels with no
// decoded payload return nil without error.
func (d *Document) CelImage(frame int, cel *Cel) (*image.RGBA, error) {
	img, err := d.resolveImageCel(frame, cel)
	if err != nil || img == nil {
		return nil, err
	}
	return d.convertPixels(img)
}

// resolveImageCel follows linked cels until it lands on an image cel.
// The hop count is bounded by the frame count to survive a link cycle in
// a corrupt file.
func (d *Document) resolveImageCel(frame int, cel *Cel) (*ImageCel, error) {
	cur := cel
	for hops := 0; hops <= len(d.Frames); hops++ {
		switch data := cur.Data.(type) {
		case ImageCel:
			return &data, nil
		case TilemapCel:
			return nil, nil
		case LinkedCel:
			target := int(data.Frame)
			if target < 0 || target >= len(d.Frames) {
				return nil, fmt.Errorf("ase: linked cel references frame %d; document has %d", target, len(d.Frames))
			}
			next := findCel(&d.Frames[target], cur.Layer)
			if next == nil {
				return nil, fmt.Errorf("ase: linked cel references frame %d which has no cel on layer %d", target, cur.Layer)
			}
			cur = next
		default:
			return nil, nil
		}
	}
	return nil, fmt.Errorf("ase: linked cel cycle on layer %d", cel.Layer)
}

func findCel(f *Frame, layer uint16) *Cel {
	for i := range f.Cels {
		if f.Cels[i].Layer == layer {
			return &f.Cels[i]
		}
	}
	return nil
}

// convertPixels expands the tightly packed row-major buffer into RGBA
// according to the document's color depth. For indexed documents the
// transparent index becomes a fully transparent pixel.
func (d *Document) convertPixels(img *ImageCel) (*image.RGBA, error) {
	bpp := d.ColorDepth.BytesPerPixel()
	want := int(img.Width) * int(img.Height) * bpp
	if len(img.Pixels) != want {
		return nil, fmt.Errorf("ase: cel pixel buffer is %d bytes; want %d", len(img.Pixels), want)
	}

	out := image.NewRGBA(image.Rect(0, 0, int(img.Width), int(img.Height)))
	for i := 0; i < int(img.Width)*int(img.Height); i++ {
		var c color.RGBA
		px := img.Pixels[i*bpp:]
		switch d.ColorDepth {
		case COLOR_DEPTH_RGBA:
			c = color.RGBA{R: px[0], G: px[1], B: px[2], A: px[3]}
		case COLOR_DEPTH_GRAYSCALE:
			c = color.RGBA{R: px[0], G: px[0], B: px[0], A: px[1]}
		case COLOR_DEPTH_INDEXED:
			idx := int(px[0])
			if idx == int(d.Palette.TransparentIndex) {
				break // stays transparent
			}
			if idx < len(d.Palette.Colors) {
				c = d.Palette.Colors[idx]
			}
		default:
			return nil, fmt.Errorf("ase: cannot convert pixels of color depth %v", d.ColorDepth)
		}
		out.SetRGBA(i%int(img.Width), i/int(img.Width), c)
	}
	return out, nil
}
