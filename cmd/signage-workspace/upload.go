package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/signage-workspace/internal/convert"
	"github.com/pdiddy/signage-workspace/internal/workspace"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <team> <file>",
	Short: "Copy a photo, video or document into a team",
	Long: `Upload stores a file under the team's photos/ (--kind image), videos/
(--kind video) or a new folder under documents/ (--kind document). Stored
names get a short random suffix so uploads never overwrite each other.
Documents are converted to slide images right away unless --no-convert.`,
	Args: cobra.ExactArgs(2),
	RunE: runUpload,
}

func runUpload(cmd *cobra.Command, args []string) error {
	team, file := args[0], args[1]
	kindFlag, _ := cmd.Flags().GetString("kind")
	rangeExpr, _ := cmd.Flags().GetString("range")
	noConvert, _ := cmd.Flags().GetBool("no-convert")

	kind, err := workspace.ParseUploadKind(kindFlag)
	if err != nil {
		return err
	}

	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	stored, err := a.ws.SaveUpload(team, workspace.Upload{
		Kind:        kind,
		Filename:    filepath.Base(file),
		ContentType: mime.TypeByExtension(filepath.Ext(file)),
		Body:        f,
	}, convert.IsDocument)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "stored: %s (%d bytes)\n", stored.Path, stored.Size)

	if stored.Folder == "" || noConvert {
		return nil
	}
	dir, err := a.ws.ResolveDocumentFolder(team, stored.Folder)
	if err != nil {
		return err
	}
	out := a.conv.ConvertFolder(convert.WithTeam(context.Background(), team), dir, rangeExpr)
	out.Folder = stored.Folder
	printOutcome(os.Stdout, out)
	if !out.OK() {
		return fmt.Errorf("document stored but not converted: %s", out.Kind)
	}
	return nil
}

func init() {
	uploadCmd.Flags().String("kind", "", "image, video or document (required)")
	uploadCmd.Flags().String("range", "", "pages to render for documents (default: all)")
	uploadCmd.Flags().Bool("no-convert", false, "store a document without converting it")
	uploadCmd.MarkFlagRequired("kind")

	rootCmd.AddCommand(uploadCmd)
}
