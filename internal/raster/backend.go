package raster

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// backend is one external rasterizer resolved on this machine.
type backend struct {
	name string
	path string

	// args builds the command line that renders page of pdf at dpi to outBase+".png".
	args func(pdf string, page, dpi int, outBase string) []string
}

// knownBackends maps a rasterizer's command name to its argument builder.
var knownBackends = map[string]func(pdf string, page, dpi int, outBase string) []string{
	// pdftoppm writes <outBase>.png with -singlefile; PNG output carries no alpha.
	"pdftoppm": func(pdf string, page, dpi int, outBase string) []string {
		p := strconv.Itoa(page)
		return []string{"-f", p, "-l", p, "-r", strconv.Itoa(dpi), "-png", "-singlefile", pdf, outBase}
	},
	// mutool draw with an rgb colorspace drops the alpha channel.
	"mutool": func(pdf string, page, dpi int, outBase string) []string {
		return []string{"draw", "-q", "-r", strconv.Itoa(dpi), "-c", "rgb", "-o", outBase + ImageExt, pdf, strconv.Itoa(page)}
	},
}

// commandName strips directories and a Windows .exe suffix.
func commandName(bin string) string {
	return strings.TrimSuffix(strings.ToLower(filepath.Base(bin)), ".exe")
}

// backend returns the first configured rasterizer that is installed.
// Availability is checked on every call.
func (r *Rasterizer) backend() (backend, error) {
	var tried []string
	for _, bin := range r.cfg.Backends {
		name := commandName(bin)
		args, ok := knownBackends[name]
		if !ok {
			r.cfg.Logger.Warn("ignoring unknown rasterizer", "command", bin)
			continue
		}
		tried = append(tried, bin)
		path, err := r.exec.LookPath(bin)
		if err != nil {
			continue
		}
		return backend{name: name, path: path, args: args}, nil
	}
	return backend{}, fmt.Errorf("%w (tried %s)", ErrNoRasterizer, strings.Join(tried, ", "))
}

// Available reports the rasterizer that would be used, if any.
func (r *Rasterizer) Available() (string, bool) {
	be, err := r.backend()
	if err != nil {
		return "", false
	}
	return be.path, true
}
