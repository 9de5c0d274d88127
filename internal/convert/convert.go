// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns the document in a team's document folder into
// display-ready page images. It picks the folder's document, converts it to
// PDF when needed, resolves the page selection, and rasterizes the pages
// into the same folder. Every failure is returned as a categorized
// types.ConversionOutcome; nothing escapes the orchestrator as an error or
// panic.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/signage-workspace/internal/officeconv"
	"github.com/pdiddy/signage-workspace/internal/pagerange"
	"github.com/pdiddy/signage-workspace/internal/procexec"
	"github.com/pdiddy/signage-workspace/internal/raster"
	"github.com/pdiddy/signage-workspace/pkg/types"
)

// DocumentExtensions is the set of source documents a folder may hold.
var DocumentExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".doc":  true,
	".xlsx": true,
	".xls":  true,
	".pptx": true,
	".ppt":  true,
}

// IsDocument reports whether name has a recognized document extension.
func IsDocument(name string) bool {
	return DocumentExtensions[strings.ToLower(filepath.Ext(name))]
}

// Remediation hints shown alongside failures.
const (
	HintInstallConverter  = "install LibreOffice (soffice) on this machine, or upload the document as a PDF"
	HintInstallRasterizer = "install poppler-utils (pdftoppm) or mupdf-tools (mutool) on this machine"
	HintCheckRange        = `use "all", single pages like "3", or ranges like "1-4,7"`
)

// DocumentConverter turns an office document into a PDF in outDir.
type DocumentConverter interface {
	Convert(ctx context.Context, docPath, outDir string) (officeconv.Result, error)
}

// PageRenderer counts and rasterizes PDF pages.
type PageRenderer interface {
	PageCount(pdfPath string) (int, error)
	Render(ctx context.Context, pdfPath string, sel []int, outDir string) (int, error)
}

// Recorder stores finished outcomes, for example in the history database.
type Recorder interface {
	Record(ctx context.Context, o types.ConversionOutcome) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder records every outcome with r.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.rec = r }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// Orchestrator runs the folder conversion pipeline.
type Orchestrator struct {
	conv   DocumentConverter
	render PageRenderer
	rec    Recorder
	log    *slog.Logger
	now    func() time.Time
}

// New creates an Orchestrator.
func New(conv DocumentConverter, render PageRenderer, opts ...Option) *Orchestrator {
	o := &Orchestrator{conv: conv, render: render, log: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type teamKey struct{}

// WithTeam attaches the owning team to ctx so outcomes carry it.
func WithTeam(ctx context.Context, team string) context.Context {
	return context.WithValue(ctx, teamKey{}, team)
}

func teamFrom(ctx context.Context) string {
	team, _ := ctx.Value(teamKey{}).(string)
	return team
}

// ConvertFolder converts the document in folderPath and rasterizes the pages
// selected by rangeExpr into the same folder.
func (o *Orchestrator) ConvertFolder(ctx context.Context, folderPath, rangeExpr string) (out types.ConversionOutcome) {
	start := o.now()
	out = types.ConversionOutcome{
		Team:      teamFrom(ctx),
		Folder:    folderPath,
		Range:     rangeExpr,
		StartedAt: start,
	}
	log := o.log.With("team", out.Team, "folder", folderPath, "range", rangeExpr)

	defer func() {
		if r := recover(); r != nil {
			out = fail(out, types.OutcomePageRenderFailure, fmt.Sprintf("internal error: %v", r), "")
			log.Error("conversion panicked", "panic", r)
		}
		out.Duration = o.now().Sub(start)
		o.finish(ctx, log, out)
	}()

	return o.run(ctx, out, folderPath, rangeExpr)
}

func (o *Orchestrator) run(ctx context.Context, out types.ConversionOutcome, folderPath, rangeExpr string) types.ConversionOutcome {
	info, err := os.Stat(folderPath)
	if err != nil || !info.IsDir() {
		return fail(out, types.OutcomeInvalidInput, fmt.Sprintf("%s is not a document folder", filepath.Base(folderPath)), "")
	}

	doc, err := findDocument(folderPath)
	if err != nil {
		return fail(out, types.OutcomeInvalidInput, err.Error(), "")
	}
	if doc == "" {
		return fail(out, types.OutcomeNoDocumentFound, "no PDF, Word, Excel or PowerPoint document in folder", "")
	}
	out.Document = doc
	docPath := filepath.Join(folderPath, doc)

	pdfPath := docPath
	if !strings.EqualFold(filepath.Ext(doc), ".pdf") {
		res, err := o.conv.Convert(ctx, docPath, folderPath)
		out.TriedEngines = res.Tried
		if err != nil {
			kind := types.OutcomeConverterUnavailable
			if errors.Is(err, procexec.ErrTimeout) {
				kind = types.OutcomeTimeout
			}
			return fail(out, kind, err.Error(), HintInstallConverter)
		}
		out.Engine = res.Engine
		pdfPath = res.PDFPath
	}

	total, err := o.render.PageCount(pdfPath)
	if err != nil {
		return fail(out, types.OutcomePageRenderFailure, err.Error(), "")
	}
	if total <= 0 {
		return fail(out, types.OutcomeEmptyDocument, fmt.Sprintf("%s has no pages", filepath.Base(pdfPath)), "")
	}

	sel := pagerange.Parse(rangeExpr, total)
	if len(sel) == 0 {
		return fail(out, types.OutcomeNoPagesSelected,
			fmt.Sprintf("range %q selects no pages of a %d-page document", rangeExpr, total), HintCheckRange)
	}

	n, err := o.render.Render(ctx, pdfPath, sel, folderPath)
	if err != nil {
		// Count keeps the images that did land, numbered 001..n.
		switch {
		case errors.Is(err, procexec.ErrTimeout):
			out = fail(out, types.OutcomeTimeout, err.Error(), "")
		case errors.Is(err, raster.ErrNoRasterizer):
			out = fail(out, types.OutcomePageRenderFailure, err.Error(), HintInstallRasterizer)
		default:
			out = fail(out, types.OutcomePageRenderFailure, err.Error(), "")
		}
		out.Count = n
		return out
	}

	out.Kind = types.OutcomeSuccess
	out.Count = n
	return out
}

func (o *Orchestrator) finish(ctx context.Context, log *slog.Logger, out types.ConversionOutcome) {
	if out.OK() {
		log.Info("converted folder", "document", out.Document, "engine", out.Engine, "images", out.Count, "duration", out.Duration)
	} else {
		log.Warn("conversion failed", "kind", out.Kind, "document", out.Document, "tried", out.TriedEngines, "message", out.Message)
	}
	if o.rec == nil {
		return
	}
	if err := o.rec.Record(ctx, out); err != nil {
		log.Warn("recording conversion history", "error", err)
	}
}

func fail(out types.ConversionOutcome, kind types.OutcomeKind, msg, hint string) types.ConversionOutcome {
	out.Kind = kind
	out.Count = 0
	out.Message = types.Truncate(msg)
	out.Hint = hint
	return out
}

// findDocument returns the name of the first file in dir, in name order,
// with a recognized document extension, or "" when there is none.
func findDocument(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("listing %s: %w", filepath.Base(dir), err)
	}
	// ReadDir returns entries sorted by name.
	for _, e := range entries {
		if e.Type().IsRegular() && IsDocument(e.Name()) {
			return e.Name(), nil
		}
	}
	return "", nil
}
