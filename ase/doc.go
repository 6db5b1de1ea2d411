// Package ase implements a reader for the Aseprite sprite container
// format (.ase/.aseprite files).
//
// The format is a sequence of typed, length-prefixed chunks grouped into
// frames. Decoding produces a Document holding the layer list, the
// palette, tagged animation ranges, slices and per-frame cels. A higher
// level package such as animator needs to be used together with a
// graphics backend in order to actually turn the decoded pixel buffers
// into something displayable.
package ase
