package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var filesJSON bool

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List uploaded files",
	Long: `List the files uploaded to the vizbench backend.

Examples:
  vzb files           # Human-readable listing
  vzb files --json    # Output as JSON`,
	Args: cobra.NoArgs,
	RunE: runFiles,
}

func init() {
	filesCmd.Flags().BoolVar(&filesJSON, "json", false, "Output as JSON")
}

func runFiles(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeoutDuration())
	defer cancel()

	files, err := newClient(cfg).ListFiles(ctx)
	if err != nil {
		return fmt.Errorf("listing files: %s", describeError(err))
	}

	out := cmd.OutOrStdout()
	if filesJSON {
		fmt.Fprint(out, marshalJSONOrFallback(files))
		return nil
	}
	fmt.Fprint(out, formatFilesOutput(files, time.Now()))
	return nil
}
