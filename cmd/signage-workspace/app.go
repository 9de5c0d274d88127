// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"

	"github.com/pdiddy/signage-workspace/internal/canteen"
	"github.com/pdiddy/signage-workspace/internal/convert"
	"github.com/pdiddy/signage-workspace/internal/gitsync"
	"github.com/pdiddy/signage-workspace/internal/history"
	"github.com/pdiddy/signage-workspace/internal/officeconv"
	"github.com/pdiddy/signage-workspace/internal/raster"
	"github.com/pdiddy/signage-workspace/internal/workspace"
	"github.com/pdiddy/signage-workspace/pkg/types"
)

// app holds the services built from the configuration.
type app struct {
	cfg     types.Config
	log     *slog.Logger
	ws      *workspace.Workspace
	raster  *raster.Rasterizer
	history *history.Store
	conv    *convert.Orchestrator
	git     *gitsync.Repo
	canteen *canteen.Refresher
}

// newApp loads the configuration and wires every service. Close releases
// the history database.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg.Log)
	slog.SetDefault(log)

	ws, err := workspace.New(cfg.Workspace, log)
	if err != nil {
		return nil, err
	}

	rast := raster.New(raster.Config{
		Backends: cfg.Conversion.Rasterizers,
		DPI:      cfg.Conversion.DPI,
		Timeout:  cfg.Conversion.RenderTimeout,
		Workers:  cfg.Conversion.Workers,
		Logger:   log,
	})
	office := officeconv.New(officeconv.Config{
		ExtraBinaries: cfg.Conversion.OfficeBinaries,
		Timeout:       cfg.Conversion.OfficeTimeout,
		Logger:        log,
	})

	store, err := history.Open(ws.StateDir())
	if err != nil {
		return nil, fmt.Errorf("opening conversion history: %w", err)
	}

	return &app{
		cfg:     cfg,
		log:     log,
		ws:      ws,
		raster:  rast,
		history: store,
		conv:    convert.New(office, rast, convert.WithRecorder(store), convert.WithLogger(log)),
		git: gitsync.New(gitsync.Config{
			RepoDir:       cfg.Git.RepoDir,
			CommitMessage: cfg.Git.CommitMessage,
			Logger:        log,
		}),
		canteen: canteen.New(canteen.Config{
			UserAgent: cfg.Canteen.UserAgent,
			Timeout:   cfg.Canteen.Timeout,
			Logger:    log,
		}, ws, rast),
	}, nil
}

func (a *app) Close() error {
	return a.history.Close()
}
