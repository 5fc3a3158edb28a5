package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vizbench/vzb/internal/client"
)

var deleteConfirm bool

var deleteCmd = &cobra.Command{
	Use:   "delete <file-id>",
	Short: "Delete an uploaded file",
	Long: `Delete an uploaded file and its stored data from the backend.

Requires --confirm. Without it the target file is shown and nothing is deleted.

Example:
  vzb delete 3 --confirm`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVar(&deleteConfirm, "confirm", false, "Confirm deletion (required)")
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := parseFileID(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctrl := newController(cfg, 0)
	defer ctrl.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeoutDuration()*2)
	defer cancel()

	files, _ := ctrl.RefreshFiles(ctx)
	target, found := findFile(files, id)

	if !deleteConfirm {
		return fmt.Errorf("%s - use --confirm to delete", formatDeleteTarget(target, found, id))
	}

	if err := ctrl.DeleteFile(ctx, id); err != nil {
		return fmt.Errorf("deleting file %d: %s", id, describeError(err))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, styled(successStyle, fmt.Sprintf("✓ Deleted %s", formatDeleteTarget(target, found, id))))
	fmt.Fprintf(out, "%d file(s) remaining\n", len(ctrl.Files()))
	return nil
}

func findFile(files []client.File, id int64) (client.File, bool) {
	for _, f := range files {
		if f.ID == id {
			return f, true
		}
	}
	return client.File{}, false
}

func formatDeleteTarget(f client.File, found bool, id int64) string {
	if !found || f.Filename == "" {
		return fmt.Sprintf("file #%d", id)
	}
	return fmt.Sprintf("file #%d (%s)", id, f.Filename)
}
