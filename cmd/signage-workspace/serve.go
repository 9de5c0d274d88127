// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/signage-workspace/internal/gitsync"
	"github.com/pdiddy/signage-workspace/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the workspace HTTP API for the dashboard and displays",
	Long: `Serve starts the HTTP API on server.addr (default 127.0.0.1:5000) and,
when git.sync_interval is non-zero and the workspace lives in a git
checkout, pulls remote changes in the background. Stop it with Ctrl+C.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		a.cfg.Server.Addr = addr
	}
	noSync, _ := cmd.Flags().GetBool("no-sync")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Config{
		Addr:            a.cfg.Server.Addr,
		MaxUploadSize:   a.cfg.Workspace.MaxUploadSize,
		ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
		Logger:          a.log,
	}, server.Deps{
		Workspace: a.ws,
		Converter: a.conv,
		Git:       a.git,
		History:   a.history,
		Canteen:   a.canteen,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(ctx) })

	if !noSync && a.cfg.Git.SyncInterval > 0 {
		if err := a.git.Connect(ctx); err != nil {
			a.log.Warn("background git sync disabled", "error", err)
		} else {
			syncer := gitsync.NewSyncer(a.git, a.cfg.Git.SyncInterval, a.log)
			syncer.OnChange = func(res gitsync.PullResult) {
				a.log.Info("workspace updated from remote", "before", res.Before, "after", res.After)
			}
			g.Go(func() error { return syncer.Run(ctx) })
		}
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().Bool("no-sync", false, "disable the background git pull")

	rootCmd.AddCommand(serveCmd)
}
