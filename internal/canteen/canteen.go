// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package canteen refreshes a team's canteen menu slides: it downloads one
// or more menu PDFs, renders the selected pages of each, and writes them
// into a single ordinal sequence (001.png, 002.png, ...) under
// <team>/canteen_menu/menu_pdf.
package canteen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/signage-workspace/internal/httputil"
	"github.com/pdiddy/signage-workspace/internal/pagerange"
	"github.com/pdiddy/signage-workspace/pkg/types"
)

// MenuDir is the menu image folder relative to a team directory.
const MenuDir = "canteen_menu/menu_pdf"

// maxMenuBytes bounds one downloaded menu PDF.
const maxMenuBytes = 64 << 20

var (
	ErrNoValidURLs   = errors.New("no valid PDF URLs")
	ErrDownload      = errors.New("download failed")
	ErrPDFConversion = errors.New("PDF conversion failed")
)

// Item is one menu source: an http(s) URL and a page-range expression.
type Item struct {
	URL   string `json:"url" yaml:"url"`
	Range string `json:"range,omitempty" yaml:"range,omitempty"`
}

// ParseItem reads "URL" or "URL#RANGE" as used on the command line.
func ParseItem(s string) Item {
	u, r, _ := strings.Cut(s, "#")
	return Item{URL: strings.TrimSpace(u), Range: strings.TrimSpace(r)}
}

// Renderer counts and rasterizes PDF pages with explicit numbering.
type Renderer interface {
	PageCount(pdfPath string) (int, error)
	RenderFrom(ctx context.Context, pdfPath string, sel []int, outDir string, firstOrdinal int) (int, error)
}

// TeamResolver locates an existing team directory.
type TeamResolver interface {
	ExistingTeamDir(team string) (string, error)
}

// Config configures a Refresher.
type Config struct {
	UserAgent string

	// Timeout bounds each download.
	Timeout time.Duration

	Client *http.Client
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.UserAgent == "" {
		c.UserAgent = types.DefaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = types.DefaultDownloadTimeout
	}
	if c.Client == nil {
		c.Client = &http.Client{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Refresher runs canteen menu refreshes.
type Refresher struct {
	cfg    Config
	teams  TeamResolver
	render Renderer
}

// New creates a Refresher.
func New(cfg Config, teams TeamResolver, render Renderer) *Refresher {
	cfg.defaults()
	return &Refresher{cfg: cfg, teams: teams, render: render}
}

// Result reports a finished refresh.
type Result struct {
	// Count is the total number of menu images written.
	Count int `json:"count" yaml:"count"`

	// Dir is the menu folder relative to the team directory.
	Dir string `json:"dir" yaml:"dir"`
}

// ValidItems returns the items whose URL is http or https.
func ValidItems(items []Item) []Item {
	var out []Item
	for _, it := range items {
		u, err := url.Parse(strings.TrimSpace(it.URL))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			continue
		}
		it.URL = u.String()
		out = append(out, it)
	}
	return out
}

// Refresh replaces the team's menu images with the pages selected from
// each item, in item order. It stops at the first item that fails; images
// written for earlier items are kept.
func (r *Refresher) Refresh(ctx context.Context, team string, items []Item) (Result, error) {
	res := Result{Dir: MenuDir}
	valid := ValidItems(items)
	if len(valid) == 0 {
		return res, ErrNoValidURLs
	}
	teamDir, err := r.teams.ExistingTeamDir(team)
	if err != nil {
		return res, err
	}
	outDir := filepath.Join(teamDir, filepath.FromSlash(MenuDir))
	if err := clearFiles(outDir); err != nil {
		return res, fmt.Errorf("clearing menu folder: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "signage-canteen-*")
	if err != nil {
		return res, fmt.Errorf("creating download dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	log := r.cfg.Logger.With("team", team)
	for i, it := range valid {
		pdfPath := filepath.Join(tmpDir, fmt.Sprintf("menu-%d.pdf", i+1))
		if err := r.download(ctx, it.URL, pdfPath); err != nil {
			return res, fmt.Errorf("%w: %s", ErrDownload, types.Truncate(err.Error()))
		}

		n, err := r.renderItem(ctx, pdfPath, it.Range, outDir, res.Count+1)
		res.Count += n
		if err != nil {
			return res, fmt.Errorf("%w: %s", ErrPDFConversion, types.Truncate(err.Error()))
		}
		log.Info("rendered canteen menu", "url", it.URL, "range", it.Range, "images", n)
	}
	return res, nil
}

func (r *Refresher) download(ctx context.Context, rawURL, dest string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	_, err := httputil.Download(ctx, r.cfg.Client, rawURL, dest, httputil.DownloadOptions{
		UserAgent: r.cfg.UserAgent,
		Accept:    "application/pdf,*/*",
		MaxBytes:  maxMenuBytes,
	})
	return err
}

func (r *Refresher) renderItem(ctx context.Context, pdfPath, rangeExpr, outDir string, first int) (int, error) {
	total, err := r.render.PageCount(pdfPath)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	sel := pagerange.Parse(rangeExpr, total)
	if len(sel) == 0 {
		return 0, nil
	}
	return r.render.RenderFrom(ctx, pdfPath, sel, outDir, first)
}

// clearFiles ensures dir exists and removes the regular files in it.
func clearFiles(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Type().IsRegular() {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}
