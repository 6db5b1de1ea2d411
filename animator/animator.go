// Package animator builds a presentation-ready view of a decoded ase
// document: named animation states mapped to frame ranges, named layers
// mapped to their ordinal indices, and per-frame pixel buffers uploaded
// to a graphics backend.
//
// The package never talks to a windowing system itself. Callers provide
// a Backend, and they must only construct an Animator after their
// graphics stack is initialized; uploading textures before that is
// undefined on most backends.
package animator

import (
	"fmt"
	"image"
	"time"

	"github.com/golang/glog"

	"badc0de.net/pkg/go-ase/ase"
)

// Texture is an opaque handle to an uploaded frame image. Its concrete
// type belongs to the Backend that produced it.
type Texture interface{}

// Backend turns flattened frame images into renderable textures.
type Backend interface {
	UploadTexture(img *image.RGBA) (Texture, error)
}

// FrameRange is one animation state: an inclusive frame range and its
// playback direction.
type FrameRange struct {
	From, To  int
	Direction ase.TagDirection
}

// frames returns how many frames one playback pass covers.
func (r FrameRange) frames() int {
	return r.To - r.From + 1
}

// Animator is the consumer-facing projection of a document.
type Animator struct {
	doc *ase.Document

	states   map[string]FrameRange
	layers   map[string]int
	textures []Texture
	durs     []time.Duration
}

// New flattens every frame of the document, uploads the results through
// the backend, and indexes the document's tags against the recognized
// state names. Tags whose name is not in states are dropped from the
// state map (the document's own tag list is untouched).
func New(doc *ase.Document, b Backend, states []string) (*Animator, error) {
	recognized := make(map[string]bool, len(states))
	for _, s := range states {
		recognized[s] = true
	}

	a := &Animator{
		doc:      doc,
		states:   make(map[string]FrameRange),
		layers:   make(map[string]int),
		textures: make([]Texture, len(doc.Frames)),
		durs:     make([]time.Duration, len(doc.Frames)),
	}

	for i := range doc.Layers {
		a.layers[doc.Layers[i].Name] = i
	}

	for i := range doc.Tags {
		tag := &doc.Tags[i]
		if !recognized[tag.Name] {
			glog.V(1).Infof("animator: dropping unrecognized tag %q", tag.Name)
			continue
		}
		// A corrupt file can carry an inverted or out-of-range tag; a state
		// built from one would index past the frame list.
		if tag.From > tag.To || int(tag.To) >= len(doc.Frames) {
			glog.Warningf("animator: tag %q has frame range [%d,%d]; document has %d frames, dropping", tag.Name, tag.From, tag.To, len(doc.Frames))
			continue
		}
		a.states[tag.Name] = FrameRange{
			From:      int(tag.From),
			To:        int(tag.To),
			Direction: tag.Direction,
		}
	}

	for i := range doc.Frames {
		img, err := doc.FrameImage(i)
		if err != nil {
			return nil, fmt.Errorf("animator: flattening frame %d: %w", i, err)
		}
		tex, err := b.UploadTexture(img)
		if err != nil {
			return nil, fmt.Errorf("animator: uploading frame %d: %w", i, err)
		}
		a.textures[i] = tex
		a.durs[i] = time.Duration(doc.Frames[i].Duration) * time.Millisecond
	}

	return a, nil
}

// State returns the frame range for a recognized animation state name.
func (a *Animator) State(name string) (FrameRange, error) {
	r, ok := a.states[name]
	if !ok {
		return FrameRange{}, fmt.Errorf("animator: no state %q", name)
	}
	return r, nil
}

// States returns the names of every recognized state, unordered.
func (a *Animator) States() []string {
	out := make([]string, 0, len(a.states))
	for name := range a.states {
		out = append(out, name)
	}
	return out
}

// LayerIndex maps a layer name to its ordinal index, the addressing
// scheme cels use.
func (a *Animator) LayerIndex(name string) (int, error) {
	i, ok := a.layers[name]
	if !ok {
		return 0, fmt.Errorf("animator: no layer %q", name)
	}
	return i, nil
}

// Texture returns the uploaded texture for a frame index.
func (a *Animator) Texture(frame int) (Texture, error) {
	if frame < 0 || frame >= len(a.textures) {
		return nil, fmt.Errorf("animator: frame %d out of range; document has %d", frame, len(a.textures))
	}
	return a.textures[frame], nil
}

// StateDuration is the length of one playback pass of a state. A
// pingpong pass runs there and back without repeating the endpoints.
func (a *Animator) StateDuration(name string) (time.Duration, error) {
	r, err := a.State(name)
	if err != nil {
		return 0, err
	}
	var total time.Duration
	for _, f := range a.passFrames(r) {
		total += a.durs[f]
	}
	return total, nil
}

// FrameAt returns the frame index a state shows at the given time since
// the state started, looping forever.
func (a *Animator) FrameAt(name string, elapsed time.Duration) (int, error) {
	r, err := a.State(name)
	if err != nil {
		return 0, err
	}
	pass := a.passFrames(r)

	var total time.Duration
	for _, f := range pass {
		total += a.durs[f]
	}
	if total <= 0 {
		return pass[0], nil
	}

	elapsed = elapsed % total
	for _, f := range pass {
		if elapsed < a.durs[f] {
			return f, nil
		}
		elapsed -= a.durs[f]
	}
	return pass[len(pass)-1], nil
}

// passFrames expands a frame range into the frame indices of one
// playback pass, honoring the direction.
func (a *Animator) passFrames(r FrameRange) []int {
	n := r.frames()
	switch r.Direction {
	case ase.TAG_REVERSE:
		out := make([]int, 0, n)
		for f := r.To; f >= r.From; f-- {
			out = append(out, f)
		}
		return out
	case ase.TAG_PINGPONG:
		out := make([]int, 0, 2*n-2)
		for f := r.From; f <= r.To; f++ {
			out = append(out, f)
		}
		for f := r.To - 1; f > r.From; f-- {
			out = append(out, f)
		}
		return out
	default:
		out := make([]int, 0, n)
		for f := r.From; f <= r.To; f++ {
			out = append(out, f)
		}
		return out
	}
}
