// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package raster renders selected PDF pages to PNG images named by display
// ordinal (001.png, 002.png, ...). Page counting uses pdfcpu; pixels come
// from an external rasterizer (poppler's pdftoppm or MuPDF's mutool).
package raster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/signage-workspace/internal/procexec"
	"github.com/pdiddy/signage-workspace/pkg/types"
)

// ImageExt is the extension of every rendered page.
const ImageExt = ".png"

var (
	// ErrNoRasterizer is returned when none of the configured backends is installed.
	ErrNoRasterizer = errors.New("no PDF rasterizer installed")

	// ErrRenderFailed wraps any failure to produce a page image.
	ErrRenderFailed = errors.New("page render failed")
)

// ordinalPattern matches rendered page names such as 001.png.
var ordinalPattern = regexp.MustCompile(`^(\d{3,})\.png$`)

// OrdinalName returns the file name for the n-th rendered page.
func OrdinalName(n int) string {
	return fmt.Sprintf("%03d%s", n, ImageExt)
}

// Config configures a Rasterizer.
type Config struct {
	// Backends lists rasterizer commands in preference order.
	Backends []string

	// DPI is the rendering density.
	DPI int

	// Timeout bounds the rendering of one page.
	Timeout time.Duration

	// Workers bounds concurrent page renders.
	Workers int

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if len(c.Backends) == 0 {
		c.Backends = types.DefaultRasterizers
	}
	if c.DPI <= 0 {
		c.DPI = types.DefaultDPI
	}
	if c.Timeout <= 0 {
		c.Timeout = types.DefaultRenderTimeout
	}
	if c.Workers <= 0 {
		c.Workers = types.DefaultWorkers
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Rasterizer renders PDF pages through an external backend.
type Rasterizer struct {
	cfg       Config
	exec      procexec.Executor
	pageCount func(path string) (int, error)
}

// New creates a Rasterizer that shells out through the OS executor.
func New(cfg Config) *Rasterizer {
	return newRasterizer(cfg, procexec.Default, api.PageCountFile)
}

func newRasterizer(cfg Config, exec procexec.Executor, pageCount func(string) (int, error)) *Rasterizer {
	cfg.defaults()
	return &Rasterizer{cfg: cfg, exec: exec, pageCount: pageCount}
}

// PageCount returns the number of pages in the PDF at path.
func (r *Rasterizer) PageCount(path string) (int, error) {
	n, err := r.pageCount(path)
	if err != nil {
		return 0, fmt.Errorf("reading page count of %s: %w", filepath.Base(path), err)
	}
	return n, nil
}

// Render writes one image per selected page into outDir, numbered from 001
// in selection order, and returns how many images were written. Pages
// beyond the document's actual page count are skipped. Ordinal images above
// the written count, left over from an earlier render, are removed, also
// after a partial failure. A render that fails without writing anything
// leaves the folder untouched.
func (r *Rasterizer) Render(ctx context.Context, pdfPath string, sel []int, outDir string) (int, error) {
	n, err := r.RenderFrom(ctx, pdfPath, sel, outDir, 1)
	if n > 0 || err == nil {
		r.removeStale(outDir, n)
	}
	return n, err
}

// RenderFrom is Render with numbering starting at firstOrdinal, so that
// several PDFs can be rendered into one continuous sequence. Pages render
// into a scratch directory and are moved into place in selection order, so
// the written images are always numbered contiguously from firstOrdinal
// even if some pages fail.
func (r *Rasterizer) RenderFrom(ctx context.Context, pdfPath string, sel []int, outDir string, firstOrdinal int) (int, error) {
	total, err := r.PageCount(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}
	be, err := r.backend()
	if err != nil {
		return 0, err
	}

	var pages []int
	for _, p := range sel {
		if p < 1 || p > total {
			r.cfg.Logger.Debug("skipping page beyond document", "pdf", filepath.Base(pdfPath), "page", p, "pages", total)
			continue
		}
		pages = append(pages, p)
	}
	if len(pages) == 0 {
		return 0, nil
	}

	scratch, err := os.MkdirTemp(outDir, ".render-")
	if err != nil {
		return 0, fmt.Errorf("%w: creating scratch dir: %w", ErrRenderFailed, err)
	}
	defer os.RemoveAll(scratch)

	// Every page is attempted; one failure does not cancel its siblings.
	done := make([]bool, len(pages))
	var (
		g        errgroup.Group
		mu       sync.Mutex
		firstErr error
	)
	g.SetLimit(r.cfg.Workers)
	for i, page := range pages {
		g.Go(func() error {
			err := r.renderPage(ctx, be, pdfPath, page, scratchBase(scratch, i))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return nil
			}
			done[i] = true
			return nil
		})
	}
	_ = g.Wait()

	written := 0
	for i, ok := range done {
		if !ok {
			continue
		}
		dst := filepath.Join(outDir, OrdinalName(firstOrdinal+written))
		if err := os.Rename(scratchBase(scratch, i)+ImageExt, dst); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: placing page %d: %w", ErrRenderFailed, pages[i], err)
			}
			break
		}
		written++
	}
	return written, firstErr
}

func scratchBase(dir string, i int) string {
	return filepath.Join(dir, "job-"+strconv.Itoa(i))
}

func (r *Rasterizer) renderPage(ctx context.Context, be backend, pdfPath string, page int, outBase string) error {
	out, err := r.exec.Run(ctx, procexec.Command{
		Name:    be.path,
		Args:    be.args(pdfPath, page, r.cfg.DPI, outBase),
		Timeout: r.cfg.Timeout,
	})
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			err = fmt.Errorf("%w: %s", err, types.Truncate(msg))
		}
		return fmt.Errorf("%w: page %d with %s: %w", ErrRenderFailed, page, be.name, err)
	}
	if _, err := os.Stat(outBase + ImageExt); err != nil {
		return fmt.Errorf("%w: page %d with %s produced no image", ErrRenderFailed, page, be.name)
	}
	return nil
}

// removeStale deletes ordinal images numbered above keep.
func (r *Rasterizer) removeStale(dir string, keep int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := ordinalPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > keep {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				r.cfg.Logger.Warn("removing stale page image", "file", e.Name(), "error", err)
			}
		}
	}
}
