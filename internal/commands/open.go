package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vizbench/vzb/internal/workbench"
)

var (
	openJSON bool
	openBins int
)

var openCmd = &cobra.Command{
	Use:   "open <file-id>",
	Short: "Show the AI summary and charts of a file",
	Long: `Open a file in the workbench: fetch its chart suggestions, raw data and
AI summary concurrently, then print every resolved chart spec.

A channel that fails does not abort the others; its fallback is shown
with a warning.

Examples:
  vzb open 3
  vzb open 3 --bins 20
  vzb open 3 --json    # Chart specs as JSON`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

func init() {
	openCmd.Flags().BoolVar(&openJSON, "json", false, "Output as JSON")
	openCmd.Flags().IntVar(&openBins, "bins", 0, "Histogram bin count (default: histogram_bins from config)")
}

func runOpen(cmd *cobra.Command, args []string) error {
	id, err := parseFileID(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctrl := newController(cfg, openBins)
	defer ctrl.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), waitTimeout)
	defer cancel()

	ref := workbench.FileRef{ID: id}
	files, err := ctrl.RefreshFiles(ctx)
	if err != nil {
		logger.Warn("listing files", zap.Error(err))
	}
	for _, f := range files {
		if f.ID == id {
			ref = workbench.RefFromFile(f)
			break
		}
	}

	ctrl.SelectFile(ctx, ref)
	s, err := ctrl.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for file %d: %w", id, err)
	}
	return printSession(cmd, s, openJSON)
}

func printSession(cmd *cobra.Command, s workbench.Session, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		fmt.Fprint(out, marshalJSONOrFallback(newSessionView(s)))
	} else {
		fmt.Fprint(out, formatSessionOutput(s))
	}
	if s.State == workbench.Error {
		return errors.New("file could not be opened")
	}
	return nil
}
