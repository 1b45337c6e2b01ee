package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"mediaparser/internal/store"
)

// allowedExtensions gates which files a directory walk stages into a job,
// the same extension allowlist shape as the teacher's backup walk.
var allowedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".heic": true, ".heif": true,
	".mp4": true, ".mov": true, ".mkv": true, ".webm": true, ".avi": true,
}

func newImportCmd(a *app) *cobra.Command {
	var srcDir string
	var interactive bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Stage a directory of media files into a new import job and enqueue it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if interactive || srcDir == "" {
				printBanner()
				picked, err := promptForDirectory("Source directory (where your photos and videos currently live)")
				if err != nil {
					return err
				}
				srcDir = picked
			}

			candidates, walkErr := walkMediaFiles(srcDir)
			if walkErr != nil {
				color.New(color.FgYellow).Printf("Some paths under %s could not be read:\n%v\n", srcDir, walkErr)
			}
			if len(candidates) == 0 {
				return fmt.Errorf("no files with a recognized extension found under %s", srcDir)
			}

			newFiles := make([]store.NewFile, 0, len(candidates))
			for _, c := range candidates {
				newFiles = append(newFiles, store.NewFile{SourcePath: c.path, FileSize: c.size})
			}

			bar := progressbar.NewOptions(len(newFiles),
				progressbar.OptionSetDescription("Staging"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
			bar.Add(len(newFiles))

			jobID, fileIDs, err := a.Store.CreateImportJob(cmd.Context(), a.Layout.Root, newFiles)
			if err != nil {
				return err
			}
			if err := a.Queue.Enqueue(jobID); err != nil {
				return fmt.Errorf("enqueueing job %d: %w", jobID, err)
			}

			color.New(color.FgGreen, color.Bold).Printf("Created job %d with %d files staged.\n", jobID, len(fileIDs))
			color.New(color.FgWhite).Printf("Run `mediaparser run --job %d` to process it.\n", jobID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&srcDir, "src", "s", "", "Source directory to import")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "Prompt for the source directory")
	return cmd
}

type mediaCandidate struct {
	path string
	size int64
}

// walkMediaFiles mirrors the teacher's getAllFiles: a filepath.Walk that
// never aborts on a single bad entry, collecting every error instead so
// the caller can report them without losing the rest of the tree.
func walkMediaFiles(root string) ([]mediaCandidate, error) {
	var candidates []mediaCandidate
	var walkErrs *multierror.Error

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			walkErrs = multierror.Append(walkErrs, fmt.Errorf("%s: %w", path, err))
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if !allowedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		candidates = append(candidates, mediaCandidate{path: path, size: info.Size()})
		return nil
	})
	if err != nil {
		walkErrs = multierror.Append(walkErrs, err)
	}
	return candidates, walkErrs.ErrorOrNil()
}
