package frame

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// RawSpec describes a raw frame dump on disk.
type RawSpec struct {
	Width  int
	Height int
	Layout Layout
}

// Raw frame dumps carry their geometry in the name: scan_640x480.nv21.
var rawNamePattern = regexp.MustCompile(`(?i)_(\d+)x(\d+)\.(nv21|nv12|i420|yuv)$`)

// RawExtensions lists the file extensions of raw frame dumps.
var RawExtensions = []string{".nv21", ".nv12", ".i420", ".yuv"}

// IsRawName reports whether name has a raw frame extension.
func IsRawName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range RawExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ParseRawName extracts the geometry from a raw frame file name. A .yuv
// extension means NV21.
func ParseRawName(name string) (RawSpec, bool) {
	m := rawNamePattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return RawSpec{}, false
	}
	w, errW := strconv.Atoi(m[1])
	h, errH := strconv.Atoi(m[2])
	if errW != nil || errH != nil {
		return RawSpec{}, false
	}
	layout := Layout(strings.ToLower(m[3]))
	if layout == "yuv" {
		layout = LayoutNV21
	}
	return RawSpec{Width: w, Height: h, Layout: layout}, true
}

// RawName builds the file name of a raw frame dump.
func RawName(base string, spec RawSpec) string {
	layout := spec.Layout
	if layout == "" {
		layout = LayoutNV21
	}
	return fmt.Sprintf("%s_%dx%d.%s", base, spec.Width, spec.Height, layout)
}
