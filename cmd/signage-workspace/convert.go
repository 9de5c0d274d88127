// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/signage-workspace/internal/convert"
	"github.com/pdiddy/signage-workspace/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert <team> [folder]",
	Short: "Convert a document folder into numbered slide images",
	Long: `Convert finds the document in a team's folder (PDF, Word, Excel or
PowerPoint), converts it to PDF if needed with LibreOffice (or, on Windows,
the installed Office applications), and renders the selected pages to
001.png, 002.png, ... in the same folder.

The folder is relative to the team directory, e.g. documents/menu_1a2b3c4d.
Use --all to convert every folder under the team's documents/.

Range examples: "1-3", "1,3,5", "2-" (from page 2 to the end), "" (all).`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	rangeExpr, _ := cmd.Flags().GetString("range")
	all, _ := cmd.Flags().GetBool("all")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	team := args[0]
	var folders []string
	switch {
	case len(args) == 2 && !all:
		folders = []string{args[1]}
	case len(args) == 1 && all:
	default:
		return fmt.Errorf("give either a folder or --all")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if all {
		list, err := a.ws.DocumentFolders(team, convert.IsDocument)
		if err != nil {
			return err
		}
		for _, f := range list {
			folders = append(folders, f.Name)
		}
		if len(folders) == 0 {
			fmt.Fprintf(os.Stdout, "%s has no document folders\n", team)
			return nil
		}
	}

	ctx := convert.WithTeam(context.Background(), team)
	var outcomes []types.ConversionOutcome
	failed := 0
	for _, rel := range folders {
		dir, err := a.ws.ResolveDocumentFolder(team, rel)
		if err != nil {
			return err
		}
		out := a.conv.ConvertFolder(ctx, dir, rangeExpr)
		out.Folder = rel
		outcomes = append(outcomes, out)
		if !out.OK() {
			failed++
		}
		if !jsonOutput {
			printOutcome(os.Stdout, out)
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		var v any = outcomes
		if len(outcomes) == 1 {
			v = outcomes[0]
		}
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d folder(s) failed to convert", failed, len(folders))
	}
	return nil
}

func printOutcome(w io.Writer, out types.ConversionOutcome) {
	name := path.Base(out.Folder)
	if out.OK() {
		via := ""
		if out.Engine != "" {
			via = " via " + out.Engine
		}
		fmt.Fprintf(w, "converted: %s (%s) -> %d image(s)%s in %s\n",
			name, out.Document, out.Count, via, out.Duration.Round(time.Millisecond))
		return
	}
	fmt.Fprintf(w, "failed: %s: %s", name, out.Kind)
	if out.Message != "" {
		fmt.Fprintf(w, ": %s", out.Message)
	}
	fmt.Fprintln(w)
	if len(out.TriedEngines) > 0 {
		fmt.Fprintf(w, "  tried: %v\n", out.TriedEngines)
	}
	if out.Hint != "" {
		fmt.Fprintf(w, "  hint: %s\n", out.Hint)
	}
}

func init() {
	convertCmd.Flags().String("range", "", "pages to render, e.g. 1-3,5 (default: all)")
	convertCmd.Flags().Bool("all", false, "convert every document folder of the team")
	convertCmd.Flags().Bool("json", false, "print outcomes as JSON")

	rootCmd.AddCommand(convertCmd)
}
