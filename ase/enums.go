package ase

import (
	"fmt"
	"strings"
)

// Enumeration of chunk type tags appearing inside a frame.
//
// Tags not listed here are recognized-but-unsupported or unknown; they
// are logged and skipped, never a decode failure. The format's
// extensibility contract depends on that.
const (
	CHUNK_OLD_PALETTE_256 ChunkType = 0x0004
	CHUNK_OLD_PALETTE_64  ChunkType = 0x0011
	CHUNK_LAYER           ChunkType = 0x2004
	CHUNK_CEL             ChunkType = 0x2005
	CHUNK_CEL_EXTRA       ChunkType = 0x2006
	CHUNK_COLOR_PROFILE   ChunkType = 0x2007
	CHUNK_EXTERNAL_FILES  ChunkType = 0x2008
	CHUNK_MASK            ChunkType = 0x2016 // deprecated
	CHUNK_PATH            ChunkType = 0x2017 // never used
	CHUNK_TAGS            ChunkType = 0x2018
	CHUNK_PALETTE         ChunkType = 0x2019
	CHUNK_USER_DATA       ChunkType = 0x2020
	CHUNK_SLICES          ChunkType = 0x2022
	CHUNK_TILESET         ChunkType = 0x2023
)

// ChunkType is the 2-byte type tag of a chunk.
type ChunkType uint16

// String implements the stringer interface.
func (c ChunkType) String() string {
	switch c {
	case CHUNK_OLD_PALETTE_256:
		return "old palette (256)"
	case CHUNK_OLD_PALETTE_64:
		return "old palette (64)"
	case CHUNK_LAYER:
		return "layer"
	case CHUNK_CEL:
		return "cel"
	case CHUNK_CEL_EXTRA:
		return "cel extra"
	case CHUNK_COLOR_PROFILE:
		return "color profile"
	case CHUNK_EXTERNAL_FILES:
		return "external files"
	case CHUNK_MASK:
		return "mask (deprecated)"
	case CHUNK_PATH:
		return "path (never used)"
	case CHUNK_TAGS:
		return "tags"
	case CHUNK_PALETTE:
		return "palette"
	case CHUNK_USER_DATA:
		return "user data"
	case CHUNK_SLICES:
		return "slices"
	case CHUNK_TILESET:
		return "tileset"
	}
	return fmt.Sprintf("unknown chunk type 0x%04x", uint16(c))
}

// ColorDepth is the canvas color depth in bits per pixel.
type ColorDepth uint16

const (
	COLOR_DEPTH_INDEXED   ColorDepth = 8
	COLOR_DEPTH_GRAYSCALE ColorDepth = 16
	COLOR_DEPTH_RGBA      ColorDepth = 32
)

// BytesPerPixel returns how many bytes one pixel occupies in a cel's
// pixel buffer.
func (d ColorDepth) BytesPerPixel() int {
	return int(d) / 8
}

// String implements the stringer interface.
func (d ColorDepth) String() string {
	switch d {
	case COLOR_DEPTH_INDEXED:
		return "indexed"
	case COLOR_DEPTH_GRAYSCALE:
		return "grayscale"
	case COLOR_DEPTH_RGBA:
		return "rgba"
	}
	return fmt.Sprintf("unknown color depth %d", uint16(d))
}

// Enumeration of possible bits in the `flags` bitmask of a layer.
const (
	LAYER_FLAG_VISIBLE LayerFlags = 1 << iota
	LAYER_FLAG_EDITABLE
	LAYER_FLAG_LOCK_MOVEMENT
	LAYER_FLAG_BACKGROUND
	LAYER_FLAG_PREFER_LINKED_CELS
	LAYER_FLAG_COLLAPSED
	LAYER_FLAG_REFERENCE

	LAYER_FLAG_LAST
)

// LayerFlags is the bitmask of independent layer booleans.
type LayerFlags uint16

// String implements the stringer interface.
func (f LayerFlags) String() string {
	out := make([]string, 0, 8)
	for bit := LAYER_FLAG_VISIBLE; bit < LAYER_FLAG_LAST; bit <<= 1 {
		if f&bit == 0 {
			continue
		}
		var desc string
		switch bit {
		case LAYER_FLAG_VISIBLE:
			desc = "visible"
		case LAYER_FLAG_EDITABLE:
			desc = "editable"
		case LAYER_FLAG_LOCK_MOVEMENT:
			desc = "lock movement"
		case LAYER_FLAG_BACKGROUND:
			desc = "background"
		case LAYER_FLAG_PREFER_LINKED_CELS:
			desc = "prefer linked cels"
		case LAYER_FLAG_COLLAPSED:
			desc = "collapsed"
		case LAYER_FLAG_REFERENCE:
			desc = "reference"
		}
		if desc != "" {
			out = append(out, desc)
		}
	}
	return strings.Join(out, ", ")
}

// LayerType says whether a layer holds images, groups other layers, or
// holds tilemap cels.
type LayerType uint16

const (
	LAYER_TYPE_NORMAL LayerType = iota
	LAYER_TYPE_GROUP
	LAYER_TYPE_TILEMAP
)

// String implements the stringer interface.
func (t LayerType) String() string {
	switch t {
	case LAYER_TYPE_NORMAL:
		return "normal"
	case LAYER_TYPE_GROUP:
		return "group"
	case LAYER_TYPE_TILEMAP:
		return "tilemap"
	}
	return fmt.Sprintf("unknown layer type %d", uint16(t))
}

// BlendMode selects how a layer is composited over the layers below it.
type BlendMode uint16

const (
	BLEND_NORMAL BlendMode = iota
	BLEND_MULTIPLY
	BLEND_SCREEN
	BLEND_OVERLAY
	BLEND_DARKEN
	BLEND_LIGHTEN
	BLEND_COLOR_DODGE
	BLEND_COLOR_BURN
	BLEND_HARD_LIGHT
	BLEND_SOFT_LIGHT
	BLEND_DIFFERENCE
	BLEND_EXCLUSION
	BLEND_HUE
	BLEND_SATURATION
	BLEND_COLOR
	BLEND_LUMINOSITY
	BLEND_ADDITION
	BLEND_SUBTRACT
	BLEND_DIVIDE
)

// String implements the stringer interface.
func (m BlendMode) String() string {
	switch m {
	case BLEND_NORMAL:
		return "normal"
	case BLEND_MULTIPLY:
		return "multiply"
	case BLEND_SCREEN:
		return "screen"
	case BLEND_OVERLAY:
		return "overlay"
	case BLEND_DARKEN:
		return "darken"
	case BLEND_LIGHTEN:
		return "lighten"
	case BLEND_COLOR_DODGE:
		return "color dodge"
	case BLEND_COLOR_BURN:
		return "color burn"
	case BLEND_HARD_LIGHT:
		return "hard light"
	case BLEND_SOFT_LIGHT:
		return "soft light"
	case BLEND_DIFFERENCE:
		return "difference"
	case BLEND_EXCLUSION:
		return "exclusion"
	case BLEND_HUE:
		return "hue"
	case BLEND_SATURATION:
		return "saturation"
	case BLEND_COLOR:
		return "color"
	case BLEND_LUMINOSITY:
		return "luminosity"
	case BLEND_ADDITION:
		return "addition"
	case BLEND_SUBTRACT:
		return "subtract"
	case BLEND_DIVIDE:
		return "divide"
	}
	return fmt.Sprintf("unknown blend mode %d", uint16(m))
}

// CelType is the embedded payload variant tag of a cel chunk.
type CelType uint16

const (
	CEL_RAW CelType = iota
	CEL_LINKED
	CEL_COMPRESSED_IMAGE
	CEL_COMPRESSED_TILEMAP
)

// String implements the stringer interface.
func (t CelType) String() string {
	switch t {
	case CEL_RAW:
		return "raw image"
	case CEL_LINKED:
		return "linked"
	case CEL_COMPRESSED_IMAGE:
		return "compressed image"
	case CEL_COMPRESSED_TILEMAP:
		return "compressed tilemap"
	}
	return fmt.Sprintf("unknown cel type %d", uint16(t))
}

// TagDirection is the playback direction of a tagged animation range.
type TagDirection uint8

const (
	TAG_FORWARD TagDirection = iota
	TAG_REVERSE
	TAG_PINGPONG
)

// String implements the stringer interface.
func (d TagDirection) String() string {
	switch d {
	case TAG_FORWARD:
		return "forward"
	case TAG_REVERSE:
		return "reverse"
	case TAG_PINGPONG:
		return "pingpong"
	}
	return fmt.Sprintf("unknown direction %d", uint8(d))
}

// ColorProfileType says which color profile the document declares.
type ColorProfileType uint16

const (
	COLOR_PROFILE_NONE ColorProfileType = iota
	COLOR_PROFILE_SRGB
	COLOR_PROFILE_ICC
)

// String implements the stringer interface.
func (t ColorProfileType) String() string {
	switch t {
	case COLOR_PROFILE_NONE:
		return "none"
	case COLOR_PROFILE_SRGB:
		return "sRGB"
	case COLOR_PROFILE_ICC:
		return "ICC"
	}
	return fmt.Sprintf("unknown color profile type %d", uint16(t))
}

// Bits in a slice chunk's flags field.
const (
	SLICE_FLAG_NINE_PATCH SliceFlags = 1 << iota
	SLICE_FLAG_PIVOT
)

// SliceFlags is the bitmask of per-slice feature bits.
type SliceFlags uint32

// Bits in a user data chunk's flags field.
const (
	USER_DATA_FLAG_TEXT  uint32 = 1 << iota // has a text annotation
	USER_DATA_FLAG_COLOR                    // has a color annotation
)

// Bit in a new-format palette entry's flags field.
const PALETTE_ENTRY_FLAG_NAME uint16 = 1
