// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/signage-workspace/internal/history"
	"github.com/pdiddy/signage-workspace/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent document conversions",
	Long: `History lists conversion runs recorded in the local history database
(<state_dir>/history.db), newest first. Use --export to dump them as YAML
or JSON, and --prune to drop runs older than a duration.`,
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	team, _ := cmd.Flags().GetString("team")
	kind, _ := cmd.Flags().GetString("kind")
	limit, _ := cmd.Flags().GetInt("limit")
	since, _ := cmd.Flags().GetDuration("since")
	export, _ := cmd.Flags().GetString("export")
	prune, _ := cmd.Flags().GetDuration("prune")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := context.Background()

	if prune > 0 {
		n, err := a.history.Prune(ctx, time.Now().Add(-prune))
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "pruned: %d run(s) older than %s\n", n, prune)
		return nil
	}

	q := history.Query{Team: team, Kind: types.OutcomeKind(kind), Limit: limit}
	if since > 0 {
		q.Since = time.Now().Add(-since)
	}

	switch export {
	case "yaml":
		return a.history.ExportYAML(ctx, os.Stdout, q)
	case "json":
		return a.history.ExportJSON(ctx, os.Stdout, q)
	case "":
	default:
		return fmt.Errorf("unknown export format %q (want yaml or json)", export)
	}

	runs, err := a.history.List(ctx, q)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "No conversions recorded.")
		return nil
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		detail := r.Engine
		if r.Kind != types.OutcomeSuccess {
			detail = r.Message
			if len(detail) > 60 {
				detail = detail[:57] + "..."
			}
		}
		rows = append(rows, []string{
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Team,
			r.Folder,
			string(r.Kind),
			strconv.Itoa(r.Count),
			r.Duration.Round(time.Millisecond).String(),
			detail,
		})
	}
	printTable(os.Stdout, []string{"Started", "Team", "Folder", "Outcome", "Images", "Took", "Detail"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft})
	return nil
}

func init() {
	historyCmd.Flags().String("team", "", "only runs for this team")
	historyCmd.Flags().String("kind", "", "only runs with this outcome (e.g. success, converter_unavailable)")
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	historyCmd.Flags().Duration("since", 0, "only runs newer than this (e.g. 24h)")
	historyCmd.Flags().String("export", "", "write runs as yaml or json instead of a table")
	historyCmd.Flags().Duration("prune", 0, "delete runs older than this (e.g. 720h) and exit")

	rootCmd.AddCommand(historyCmd)
}
