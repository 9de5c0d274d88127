package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/pdiddy/signage-workspace/internal/deps"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the external tools used for conversion and sync",
	Long: `Doctor reports which document suites, PDF rasterizers, git and (on
Windows) PowerShell are installed. PDF uploads only need a rasterizer;
Office documents also need a document suite or, on Windows, Office.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		statuses := deps.CheckBinaries(deps.Requirements(cfg, runtime.GOOS))

		rows := make([][]string, 0, len(statuses))
		for _, s := range statuses {
			state := "ok"
			switch {
			case !s.Available && s.Optional:
				state = "missing (optional)"
			case !s.Available:
				state = "MISSING"
			}
			found := s.Path
			if !s.Available {
				found = s.Detail
			}
			rows = append(rows, []string{s.Name, state, found, s.Description})
		}
		printTable(os.Stdout, []string{"Tool", "Status", "Found", "Used for"}, rows, nil)

		if missing := deps.Missing(statuses); len(missing) > 0 {
			return fmt.Errorf("%d required tool(s) missing", len(missing))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
