// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/signage-workspace/internal/gitsync"
)

var gitCmd = &cobra.Command{
	Use:   "git",
	Short: "Synchronize the workspace with its git remote",
	Long: `Git works on the checkout that contains the workspace (git.repo_dir,
default: the workspace's parent directory). Push and pull take a lock so they
never overlap with "serve" running on the same machine.`,
}

var gitConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Check that the remote is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.git.Connect(context.Background()); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "connected: %s\n", a.git.Dir())
		return nil
	},
}

var gitPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Commit all workspace changes and push them",
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, _ := cmd.Flags().GetString("message")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.git.Push(context.Background(), msg)
		if errors.Is(err, gitsync.ErrRemoteAhead) {
			return fmt.Errorf("%w; run \"signage-workspace git pull\" first", err)
		}
		if err != nil {
			return err
		}
		if res.Committed {
			fmt.Fprintf(os.Stdout, "pushed: %q\n", res.Message)
		} else {
			fmt.Fprintln(os.Stdout, "pushed: nothing new to commit")
		}
		return nil
	},
}

var gitPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Fast-forward the workspace to the remote",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.git.Pull(context.Background())
		if err != nil {
			return err
		}
		if res.Changed {
			fmt.Fprintf(os.Stdout, "pulled: %s -> %s\n", res.Before, res.After)
		} else {
			fmt.Fprintln(os.Stdout, "pulled: already up to date")
		}
		return nil
	},
}

func init() {
	gitPushCmd.Flags().StringP("message", "m", "", "commit message (default: git.commit_message)")

	gitCmd.AddCommand(gitConnectCmd, gitPushCmd, gitPullCmd)
	rootCmd.AddCommand(gitCmd)
}
