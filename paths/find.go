// Package paths locates sample and test sprite files in the places a
// checkout or a test runner is likely to keep them.
package paths

import (
	"io"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// candidateDirs are the directories searched, in order.
func candidateDirs() []string {
	return []string{
		".",
		"datafiles",
		filepath.Join(os.Getenv("GOPATH"), "src", "badc0de.net", "pkg", "go-ase", "datafiles"),
		os.Args[0] + ".runfiles/go_ase/datafiles",
	}
}

// Find locates the passed datafile shortname and returns a path it can
// be opened at, or an empty string when it is nowhere to be found.
//
// For example, for "hero.ase" it may return "datafiles/hero.ase".
func Find(fileName string) string {
	for _, dir := range candidateDirs() {
		path := filepath.Join(dir, fileName)
		if f, err := os.Open(path); err == nil {
			f.Close()
			glog.V(1).Infof("paths.Find(%q)=%s", fileName, path)
			return path
		}
	}
	return ""
}

// Open locates the passed file in the same locations that Find would
// look, and opens it.
func Open(fileName string) (interface {
	io.ReadCloser
	io.Seeker
}, error) {
	path := Find(fileName)
	if path == "" {
		return nil, errors.Errorf("go-ase/paths: %q not found in any candidate directory", fileName)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "go-ase/paths: opening %q", path)
	}
	return f, nil
}
