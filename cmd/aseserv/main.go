// Command aseserv serves one or more sprite files over HTTP: flattened
// frames as PNG, tagged animations as GIF, plus an HTML index.
package main

import (
	"flag"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"badc0de.net/pkg/flagutil/v1"

	"badc0de.net/pkg/go-ase/ase"
	"badc0de.net/pkg/go-ase/web"

	"github.com/common-nighthawk/go-figure"
	"github.com/golang/glog"
	"github.com/gorilla/handlers"
)

var (
	listenAddress = flag.String("listen_address", ":8080", "http listen address for aseserv")
)

func spriteName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func main() {
	flagutil.Parse()
	flag.Set("logtostderr", "true")

	if flag.NArg() == 0 {
		glog.Errorf("no sprite files given; pass .ase files as arguments")
		os.Exit(1)
	}

	h := web.NewHandler()
	for _, path := range flag.Args() {
		f, err := os.Open(path)
		if err != nil {
			glog.Errorf("opening %s: %v", path, err)
			os.Exit(1)
		}
		doc, err := ase.Decode(f)
		f.Close()
		if err != nil {
			glog.Errorf("decoding %s: %v", path, err)
			os.Exit(1)
		}
		name := spriteName(path)
		h.Add(name, doc)
		glog.Infof("serving %s as %q: %dx%d, %d frames", path, name, doc.Width, doc.Height, len(doc.Frames))
	}

	figure.NewFigure("aseserv", "", true).Print()
	glog.Infof("aseserv listening on %s", *listenAddress)

	router := handlers.CombinedLoggingHandler(os.Stderr, h.Router())
	glog.Fatal(http.ListenAndServe(*listenAddress, router))
}
