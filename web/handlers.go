// Package web serves decoded documents over HTTP: flattened frames as
// PNG, tagged animation ranges as animated GIF, and a small HTML index
// per sprite.
package web

import (
	"bytes"
	"fmt"
	"html/template"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/png"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/andybons/gogif"
	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/vincent-petithory/dataurl"

	"badc0de.net/pkg/go-ase/ase"
)

// Handler holds the set of documents being served, keyed by the name
// they are registered under. Documents are immutable after decode, so
// concurrent readers only need the map guarded.
type Handler struct {
	mu   sync.RWMutex
	docs map[string]*ase.Document
}

// NewHandler constructs an empty handler. Documents are added with Add.
func NewHandler() *Handler {
	return &Handler{docs: map[string]*ase.Document{}}
}

// Add registers a decoded document under a name.
func (h *Handler) Add(name string, doc *ase.Document) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.docs[name] = doc
}

func (h *Handler) doc(name string) *ase.Document {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.docs[name]
}

func (h *Handler) names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.docs))
	for name := range h.docs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Router builds the route table.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", h.listHandler)
	r.HandleFunc("/sprite/{name}", h.spriteHandler)
	r.HandleFunc("/sprite/{name}/frame/{idx}", h.frameHandler)
	r.HandleFunc("/sprite/{name}/anim/{tag}", h.animHandler)
	return r
}

func (h *Handler) frameHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	doc := h.doc(vars["name"])
	if doc == nil {
		http.Error(w, "no such sprite", http.StatusNotFound)
		return
	}
	idx, err := strconv.Atoi(vars["idx"])
	if err != nil {
		http.Error(w, "idx not a number", http.StatusBadRequest)
		return
	}
	if idx < 0 || idx >= len(doc.Frames) {
		http.Error(w, "no such frame", http.StatusNotFound)
		return
	}

	img, err := doc.FrameImage(idx)
	if err != nil {
		http.Error(w, "failed to flatten frame", http.StatusInternalServerError)
		glog.Errorf("web: flattening %s frame %d: %v", vars["name"], idx, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public; max-age=3600")
	w.WriteHeader(http.StatusOK)
	png.Encode(w, img)
}

func (h *Handler) animHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	doc := h.doc(vars["name"])
	if doc == nil {
		http.Error(w, "no such sprite", http.StatusNotFound)
		return
	}
	tag := findTag(doc, vars["tag"])
	if tag == nil {
		http.Error(w, "no such tag", http.StatusNotFound)
		return
	}

	etag := fmt.Sprintf(`W/"anim:%s:%s:%d:%d"`, vars["name"], tag.Name, tag.From, tag.To)
	if r.Header.Get("If-None-Match") == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	g, err := EncodeTagGIF(doc, tag)
	if err != nil {
		http.Error(w, "failed to build gif", http.StatusInternalServerError)
		glog.Errorf("web: building gif for %s tag %q: %v", vars["name"], tag.Name, err)
		return
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "public; max-age=3600")
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	gif.EncodeAll(w, g)
}

func findTag(doc *ase.Document, name string) *ase.Tag {
	for i := range doc.Tags {
		if doc.Tags[i].Name == name {
			return &doc.Tags[i]
		}
	}
	return nil
}

// EncodeTagGIF renders one tagged range as an animated GIF, honoring the
// tag's playback direction and the per-frame durations.
func EncodeTagGIF(doc *ase.Document, tag *ase.Tag) (*gif.GIF, error) {
	frames := playbackOrder(tag)
	g := &gif.GIF{}

	quantizer := gogif.MedianCutQuantizer{NumColor: 255} // 255 colors plus 1 slot for transparency
	for _, f := range frames {
		if f < 0 || f >= len(doc.Frames) {
			return nil, fmt.Errorf("web: tag %q references frame %d; document has %d", tag.Name, f, len(doc.Frames))
		}
		img, err := doc.FrameImage(f)
		if err != nil {
			return nil, err
		}

		pal := image.NewPaletted(img.Bounds(), nil)
		quantizer.Quantize(pal, img.Bounds(), img, image.Point{})

		// Rebuild the paletted frame with a leading transparent color so
		// empty pixels default to it.
		palTransparent := image.NewPaletted(img.Bounds(), append(color.Palette{color.Transparent}, pal.Palette...))
		draw.Draw(palTransparent, img.Bounds(), img, image.Point{}, draw.Over)

		g.Image = append(g.Image, palTransparent)
		g.Delay = append(g.Delay, int(doc.Frames[f].Duration)/10) // GIF delays are centiseconds
		g.Disposal = append(g.Disposal, gif.DisposalBackground)
	}
	g.BackgroundIndex = 0
	return g, nil
}

// playbackOrder expands a tag's inclusive range into one playback pass.
func playbackOrder(tag *ase.Tag) []int {
	var out []int
	switch tag.Direction {
	case ase.TAG_REVERSE:
		for f := int(tag.To); f >= int(tag.From); f-- {
			out = append(out, f)
		}
	case ase.TAG_PINGPONG:
		for f := int(tag.From); f <= int(tag.To); f++ {
			out = append(out, f)
		}
		for f := int(tag.To) - 1; f > int(tag.From); f-- {
			out = append(out, f)
		}
	default:
		for f := int(tag.From); f <= int(tag.To); f++ {
			out = append(out, f)
		}
	}
	return out
}

var spriteTemplate = template.Must(template.New("sprite").Parse(`<!DOCTYPE html>
<html><head><title>{{.Name}}</title></head><body>
<h1>{{.Name}}</h1>
<p>{{.Width}}x{{.Height}}, {{.Depth}}, {{.FrameCount}} frames, {{.LayerCount}} layers</p>
<img src="{{.PreviewURL}}" alt="first frame">
<h2>Tags</h2>
<ul>
{{range .Tags}}<li><a href="/sprite/{{$.Name}}/anim/{{.Name}}">{{.Name}}</a> [{{.From}},{{.To}}] {{.Direction}}</li>
{{end}}</ul>
</body></html>
`))

func (h *Handler) spriteHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	doc := h.doc(vars["name"])
	if doc == nil {
		http.Error(w, "no such sprite", http.StatusNotFound)
		return
	}

	img, err := doc.FrameImage(0)
	if err != nil {
		http.Error(w, "failed to flatten frame", http.StatusInternalServerError)
		glog.Errorf("web: flattening %s frame 0: %v", vars["name"], err)
		return
	}
	buf := &bytes.Buffer{}
	png.Encode(buf, img)

	type tagRow struct {
		Name      string
		From, To  uint16
		Direction ase.TagDirection
	}
	data := struct {
		Name          string
		Width, Height uint16
		Depth         ase.ColorDepth
		FrameCount    int
		LayerCount    int
		PreviewURL    template.URL
		Tags          []tagRow
	}{
		Name:       vars["name"],
		Width:      doc.Width,
		Height:     doc.Height,
		Depth:      doc.ColorDepth,
		FrameCount: len(doc.Frames),
		LayerCount: len(doc.Layers),
		PreviewURL: template.URL(dataurl.New(buf.Bytes(), "image/png").String()),
	}
	for _, t := range doc.Tags {
		data.Tags = append(data.Tags, tagRow{Name: t.Name, From: t.From, To: t.To, Direction: t.Direction})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := spriteTemplate.Execute(w, data); err != nil {
		glog.Errorf("web: rendering sprite page for %s: %v", vars["name"], err)
	}
}

var listTemplate = template.Must(template.New("list").Parse(`<!DOCTYPE html>
<html><head><title>sprites</title></head><body>
<h1>Sprites</h1>
<ul>
{{range .}}<li><a href="/sprite/{{.}}">{{.}}</a></li>
{{end}}</ul>
</body></html>
`))

func (h *Handler) listHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := listTemplate.Execute(w, h.names()); err != nil {
		glog.Errorf("web: rendering sprite list: %v", err)
	}
}
