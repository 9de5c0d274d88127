// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/signage-workspace/internal/convert"
	"github.com/pdiddy/signage-workspace/internal/workspace"
	"github.com/pdiddy/signage-workspace/pkg/types"
)

var teamsCmd = &cobra.Command{
	Use:   "teams",
	Short: "List, create and delete teams",
}

var teamsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the teams in the workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		teams, err := a.ws.Teams()
		if err != nil {
			return err
		}
		if len(teams) == 0 {
			fmt.Fprintf(os.Stdout, "No teams in %s\n", a.ws.Root())
			return nil
		}
		selected := a.ws.SelectedTeam()
		rows := make([][]string, 0, len(teams))
		for _, t := range teams {
			pl, err := a.ws.ReadPlaylist(t)
			slides := "?"
			if err == nil {
				slides = strconv.Itoa(len(pl.Slides))
			}
			docs, _ := a.ws.DocumentFolders(t, convert.IsDocument)
			mark := ""
			if t == selected {
				mark = "*"
			}
			rows = append(rows, []string{t, slides, strconv.Itoa(len(docs)), mark})
		}
		printTable(os.Stdout, []string{"Team", "Slides", "Documents", "Display"}, rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft})
		return nil
	},
}

var teamsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a team with an empty playlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		name, err := a.ws.CreateTeam(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "created: %s\n", name)
		return nil
	},
}

var teamsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a team and all of its files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("deleting %s removes all of its files; pass --yes to confirm", args[0])
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ws.DeleteTeam(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "deleted: %s\n", args[0])
		return nil
	},
}

var displayCmd = &cobra.Command{
	Use:   "display [team]",
	Short: "Show or set the team shown on the displays",
	Long: `Display prints the team currently selected for the signage displays.
With a team argument it selects that team; --clear removes the selection.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		clearSel, _ := cmd.Flags().GetBool("clear")
		switch {
		case clearSel:
			return a.ws.SetSelectedTeam("")
		case len(args) == 1:
			if err := a.ws.SetSelectedTeam(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "display team: %s\n", args[0])
		default:
			team := a.ws.SelectedTeam()
			if team == "" {
				team = "(none)"
			}
			fmt.Fprintln(os.Stdout, team)
		}
		return nil
	},
}

// --- playlist ---

var playlistCmd = &cobra.Command{
	Use:   "playlist",
	Short: "Show or replace a team's playlist",
}

var playlistShowCmd = &cobra.Command{
	Use:   "show <team>",
	Short: "Print a team's playlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.ws.ExistingTeamDir(args[0]); err != nil {
			return err
		}
		pl, err := a.ws.ReadPlaylist(args[0])
		if err != nil {
			return err
		}
		if base, _ := cmd.Flags().GetString("base-url"); base != "" {
			pl = workspace.ResolveSources(pl, base)
		}

		switch format, _ := cmd.Flags().GetString("format"); format {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(pl)
		case "yaml":
			return yaml.NewEncoder(os.Stdout).Encode(pl)
		case "table", "":
			rows := make([][]string, 0, len(pl.Slides))
			for _, s := range pl.Slides {
				src := s.Src
				if s.Type == types.SlideDocument && s.Folder != "" {
					src = s.Folder
				}
				dur := ""
				if s.Duration > 0 {
					dur = strconv.FormatFloat(s.Duration, 'f', -1, 64) + "s"
				}
				rows = append(rows, []string{s.ID, string(s.Type), src, dur, s.Title})
			}
			printTable(os.Stdout, []string{"ID", "Type", "Source", "Duration", "Title"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft})
			return nil
		default:
			return fmt.Errorf("unknown format %q (want table, json or yaml)", format)
		}
	},
}

var playlistSetCmd = &cobra.Command{
	Use:   "set <team> <file>",
	Short: "Replace a team's playlist from a JSON or YAML file (- for stdin)",
	Long: `Set replaces the team's playlist.json. The input holds {"slides": [...]}
as JSON, or the same structure as YAML when the file ends in .yaml or .yml.
Slides without an id get slide-N; markup is stripped from titles.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		team, file := args[0], args[1]
		pl, err := readPlaylistFile(file)
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.ws.ExistingTeamDir(team); err != nil {
			return err
		}
		if err := a.ws.WritePlaylist(team, pl); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "saved: %s playlist (%d slides)\n", team, len(pl.Slides))
		return nil
	},
}

func readPlaylistFile(file string) (types.Playlist, error) {
	var pl types.Playlist
	var data []byte
	var err error
	if file == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return pl, fmt.Errorf("reading playlist: %w", err)
	}
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &pl)
	default:
		err = json.Unmarshal(data, &pl)
	}
	if err != nil {
		return pl, fmt.Errorf("parsing playlist %s: %w", file, err)
	}
	return pl, nil
}

func init() {
	teamsDeleteCmd.Flags().Bool("yes", false, "confirm deletion")
	displayCmd.Flags().Bool("clear", false, "clear the display selection")
	playlistShowCmd.Flags().String("format", "table", "output format: table, json or yaml")
	playlistShowCmd.Flags().String("base-url", "", "rewrite relative sources under this URL")

	teamsCmd.AddCommand(teamsListCmd, teamsCreateCmd, teamsDeleteCmd)
	playlistCmd.AddCommand(playlistShowCmd, playlistSetCmd)
	rootCmd.AddCommand(teamsCmd, playlistCmd, displayCmd)
}
