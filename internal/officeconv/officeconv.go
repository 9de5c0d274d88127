// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package officeconv converts office documents (Word, Excel, PowerPoint) to
// PDF by trying an ordered list of external engines until one succeeds:
// headless document suites first, then, on Windows, the native office
// application driven through COM automation.
//
// Engine availability is probed on every call; nothing is cached, so
// installing or removing a suite takes effect on the next conversion.
package officeconv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/pdiddy/signage-workspace/internal/procexec"
	"github.com/pdiddy/signage-workspace/pkg/types"
)

var (
	// ErrConverterUnavailable matches every *UnavailableError.
	ErrConverterUnavailable = errors.New("no document converter succeeded")

	// errNotInstalled marks a candidate whose executable is absent.
	errNotInstalled = errors.New("not installed")

	// errBridgeUnavailable marks a missing automation bridge. It means the
	// fallback cannot run on this machine, not that the document is bad.
	errBridgeUnavailable = errors.New("automation bridge unavailable")
)

// UnavailableError reports that every engine failed or was absent.
type UnavailableError struct {
	// Tried lists every engine attempted, in order.
	Tried []string

	// LastErr is the last underlying failure, truncated. Empty when every
	// engine was simply absent.
	LastErr string

	timedOut bool
}

func (e *UnavailableError) Error() string {
	msg := fmt.Sprintf("%s (tried %s)", ErrConverterUnavailable, strings.Join(e.Tried, ", "))
	if e.LastErr != "" {
		msg += ": " + e.LastErr
	}
	return msg
}

// Is matches ErrConverterUnavailable, and procexec.ErrTimeout when the last
// attempt timed out.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrConverterUnavailable || (e.timedOut && target == procexec.ErrTimeout)
}

// Strategy is one way of turning a document into a PDF.
type Strategy interface {
	Name() string
	Class() Class

	// TryConvert writes <outDir>/<base>.pdf and returns its path.
	TryConvert(ctx context.Context, docPath, outDir string) (string, error)
}

// Result describes a successful conversion.
type Result struct {
	PDFPath string
	Engine  string
	Tried   []string
}

// Config configures a Converter.
type Config struct {
	// ExtraBinaries are document-suite executables tried before the built-in list.
	ExtraBinaries []string

	// Timeout bounds each engine invocation.
	Timeout time.Duration

	// GOOS selects the platform candidate list (default runtime.GOOS).
	GOOS string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = types.DefaultOfficeTimeout
	}
	if c.GOOS == "" {
		c.GOOS = runtime.GOOS
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Converter runs the engine fallback chain.
type Converter struct {
	cfg  Config
	exec procexec.Executor
}

// New creates a Converter that shells out through the OS executor.
func New(cfg Config) *Converter {
	return newConverter(cfg, procexec.Default)
}

func newConverter(cfg Config, exec procexec.Executor) *Converter {
	cfg.defaults()
	return &Converter{cfg: cfg, exec: exec}
}

// Strategies returns the engines that would be tried for docPath, in order.
func (c *Converter) Strategies(docPath string) []Strategy {
	var out []Strategy
	for _, cand := range Candidates(c.cfg.GOOS, c.cfg.ExtraBinaries) {
		out = append(out, &headlessSuite{cand: cand, exec: c.exec, timeout: c.cfg.Timeout})
	}
	if SupportsNativeAutomation(c.cfg.GOOS) {
		if kind, ok := AppKindFor(docPath); ok {
			out = append(out, &nativeAutomation{kind: kind, bridge: powershellBridge, exec: c.exec, timeout: c.cfg.Timeout})
		}
	}
	return out
}

// Convert produces a PDF next to outDir from docPath using the first engine
// that succeeds. When all fail it returns an *UnavailableError.
func (c *Converter) Convert(ctx context.Context, docPath, outDir string) (Result, error) {
	log := c.cfg.Logger.With("document", docPath)

	var tried []string
	var lastErr error
	for _, s := range c.Strategies(docPath) {
		tried = append(tried, s.Name())

		pdf, err := s.TryConvert(ctx, docPath, outDir)
		if err == nil {
			log.Info("converted document to PDF", "engine", s.Name(), "class", s.Class(), "pdf", pdf)
			return Result{PDFPath: pdf, Engine: s.Name(), Tried: tried}, nil
		}

		switch {
		case errors.Is(err, errNotInstalled):
			log.Debug("converter not installed", "engine", s.Name())
		case errors.Is(err, errBridgeUnavailable):
			log.Info("native automation fallback unavailable", "engine", s.Name(), "reason", err)
		default:
			lastErr = err
			log.Warn("converter failed", "engine", s.Name(), "error", err)
		}

		if ctx.Err() != nil {
			break
		}
	}

	uerr := &UnavailableError{Tried: tried}
	if lastErr != nil {
		uerr.LastErr = types.Truncate(lastErr.Error())
		uerr.timedOut = errors.Is(lastErr, procexec.ErrTimeout)
	}
	return Result{Tried: tried}, uerr
}
