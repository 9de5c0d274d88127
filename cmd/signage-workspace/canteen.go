package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/signage-workspace/internal/canteen"
)

var canteenCmd = &cobra.Command{
	Use:   "canteen",
	Short: "Manage canteen menu slides",
}

var canteenRefreshCmd = &cobra.Command{
	Use:   "refresh <team> <url[#range]>...",
	Short: "Download menu PDFs and render them as the team's menu slides",
	Long: `Refresh replaces the images in <team>/canteen_menu/menu_pdf with the
selected pages of each menu PDF, numbered 001.png, 002.png, ... across all
URLs in order. Append #range to a URL to pick pages, e.g.

  signage-workspace canteen refresh Kitchen 'https://example.com/week.pdf#1-2'`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		team := args[0]
		items := make([]canteen.Item, 0, len(args)-1)
		for _, arg := range args[1:] {
			items = append(items, canteen.ParseItem(arg))
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.canteen.Refresh(context.Background(), team, items)
		if err != nil {
			if res.Count > 0 {
				fmt.Fprintf(os.Stdout, "partial: %d image(s) written to %s/%s\n", res.Count, team, res.Dir)
			}
			return err
		}
		fmt.Fprintf(os.Stdout, "refreshed: %d image(s) in %s/%s\n", res.Count, team, res.Dir)
		return nil
	},
}

func init() {
	canteenCmd.AddCommand(canteenRefreshCmd)
	rootCmd.AddCommand(canteenCmd)
}
